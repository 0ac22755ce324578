// Command broista resolves a spoken or typed drink order against a product
// catalog and prints the composed order as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/broistadev/broista/internal/alias"
	"github.com/broistadev/broista/internal/catalog"
	"github.com/broistadev/broista/internal/config"
	"github.com/broistadev/broista/internal/extract"
	"github.com/broistadev/broista/internal/extract/llmextract"
	"github.com/broistadev/broista/internal/match"
	"github.com/broistadev/broista/internal/match/embedcache"
	"github.com/broistadev/broista/internal/observe"
	"github.com/broistadev/broista/internal/order"
	"github.com/broistadev/broista/internal/pipeline"
	"github.com/broistadev/broista/pkg/provider/embeddings"
	ollamaembed "github.com/broistadev/broista/pkg/provider/embeddings/ollama"
	oaembed "github.com/broistadev/broista/pkg/provider/embeddings/openai"
	"github.com/broistadev/broista/pkg/provider/llm"
	"github.com/broistadev/broista/pkg/provider/llm/anyllm"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	text := flag.String("text", "", "order text to resolve; reads stdin when empty")
	summary := flag.Bool("summary", false, "print a human-readable receipt instead of JSON")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "broista: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "broista: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("broista starting",
		"config", *configPath,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "broista",
		ServiceVersion: cfg.Server.ServiceVersion,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	p, err := buildPipeline(ctx, cfg, reg)
	if err != nil {
		slog.Error("failed to build pipeline", "err", err)
		return 1
	}

	// ── Resolve the order ─────────────────────────────────────────────────────
	input := *text
	if input == "" {
		input, err = readStdin()
		if err != nil {
			slog.Error("failed to read order text", "err", err)
			return 1
		}
	}
	if strings.TrimSpace(input) == "" {
		fmt.Fprintln(os.Stderr, "broista: no order text given; pass -text or pipe text on stdin")
		return 1
	}

	result := p.ProcessText(ctx, input)

	if *summary && result.Order != nil {
		fmt.Println(order.Summary(*result.Order))
	} else {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			slog.Error("failed to encode result", "err", err)
			return 1
		}
	}

	if !result.Success {
		return 1
	}
	return 0
}

// ── Pipeline wiring ─────────────────────────────────────────────────────────────

// buildPipeline instantiates all stages named in cfg and assembles them.
func buildPipeline(ctx context.Context, cfg *config.Config, reg *config.Registry) (*pipeline.Pipeline, error) {
	// Catalog.
	store, err := catalog.LoadFile(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	// Alias tables.
	tables := alias.DefaultTables()
	if cfg.Aliases.Path != "" {
		tables, err = alias.LoadTables(cfg.Aliases.Path)
		if err != nil {
			return nil, fmt.Errorf("load alias tables: %w", err)
		}
	}
	resolver := alias.New(tables)

	// Embeddings provider.
	embedder, err := reg.CreateEmbeddings(cfg.Providers.Embeddings)
	if err != nil {
		return nil, fmt.Errorf("create embeddings provider %q: %w", cfg.Providers.Embeddings.Name, err)
	}
	slog.Info("provider created", "kind", "embeddings", "name", cfg.Providers.Embeddings.Name)

	// Matcher tuning.
	matcherOpts := []match.Option{}
	if cfg.Matcher.BestThreshold > 0 {
		matcherOpts = append(matcherOpts, match.WithBestThreshold(cfg.Matcher.BestThreshold))
	}

	// Embedding cache.
	switch cfg.Cache.Kind {
	case config.CacheFile:
		cache, err := embedcache.NewFileStore(cfg.Cache.Dir)
		if err != nil {
			return nil, fmt.Errorf("open embedding cache: %w", err)
		}
		matcherOpts = append(matcherOpts, match.WithCache(cache))
	case config.CachePostgres:
		cache, err := embedcache.NewPostgresStore(ctx, cfg.Cache.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open embedding cache: %w", err)
		}
		matcherOpts = append(matcherOpts, match.WithCache(cache))
	}

	matcher, err := match.New(ctx, store, embedder, resolver, matcherOpts...)
	if err != nil {
		return nil, fmt.Errorf("build matcher: %w", err)
	}

	// Candidate source.
	var source pipeline.CandidateSource
	mode := cfg.Providers.Extraction
	if mode == "" {
		if cfg.Providers.LLM.Name != "" {
			mode = config.ExtractionLLM
		} else {
			mode = config.ExtractionPattern
		}
	}
	switch mode {
	case config.ExtractionLLM:
		llmProvider, err := reg.CreateLLM(cfg.Providers.LLM)
		if err != nil {
			return nil, fmt.Errorf("create llm provider %q: %w", cfg.Providers.LLM.Name, err)
		}
		slog.Info("provider created", "kind", "llm", "name", cfg.Providers.LLM.Name)
		source = llmextract.New(llmProvider)
	default:
		source = pipeline.SegmenterSource{Segmenter: extract.NewSegmenter()}
	}
	slog.Info("extraction mode selected", "mode", mode)

	// Composer.
	composerOpts := []order.ComposerOption{}
	if pricing := pricingFromConfig(cfg.Pricing); pricing != nil {
		composerOpts = append(composerOpts, order.WithPricing(*pricing))
	}
	composer := order.NewComposer(store, composerOpts...)

	normalizer := extract.NewNormalizer()

	return pipeline.New(source, normalizer, matcher, composer), nil
}

// pricingFromConfig merges configured price overrides onto the defaults.
// Returns nil when nothing is overridden.
func pricingFromConfig(pc config.PricingConfig) *order.PricingDefaults {
	if pc.BasePrice == 0 && pc.DefaultModifierPrice == 0 &&
		len(pc.SizeAdjustments) == 0 && len(pc.ModifierPrices) == 0 {
		return nil
	}

	pricing := order.DefaultPricing()
	if pc.BasePrice > 0 {
		pricing.BasePrice = pc.BasePrice
	}
	if pc.DefaultModifierPrice > 0 {
		pricing.ModifierPrice = pc.DefaultModifierPrice
	}
	for size, adj := range pc.SizeAdjustments {
		pricing.SizeAdjustments[strings.ToLower(size)] = adj
	}
	for mod, price := range pc.ModifierPrices {
		pricing.ModifierPrices[strings.ToLower(mod)] = price
	}
	return &pricing
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────
	// openai, anthropic, gemini, deepseek, mistral, groq, llamacpp, llamafile
	// all share the same pattern: optional APIKey + optional BaseURL.
	for _, providerName := range []string{
		"openai", "anthropic", "gemini",
		"deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	// ── Embeddings ────────────────────────────────────────────────────────────

	reg.RegisterEmbeddings("openai", func(entry config.ProviderEntry) (embeddings.Provider, error) {
		var opts []oaembed.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaembed.WithBaseURL(entry.BaseURL))
		}
		return oaembed.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterEmbeddings("ollama", func(entry config.ProviderEntry) (embeddings.Provider, error) {
		return ollamaembed.New(entry.BaseURL, entry.Model)
	})
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":        {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"embeddings": {"openai", "ollama"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)

	// Extraction mode ↔ provider cross-validation.
	if cfg.Providers.Extraction != "" && !cfg.Providers.Extraction.IsValid() {
		errs = append(errs, fmt.Errorf("providers.extraction %q is invalid; valid values: llm, pattern", cfg.Providers.Extraction))
	}
	if cfg.Providers.Extraction == ExtractionLLM && cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.extraction is \"llm\" but providers.llm is not configured"))
	}

	// Matching cannot run without an embeddings provider.
	if cfg.Providers.Embeddings.Name == "" {
		errs = append(errs, errors.New("providers.embeddings is required"))
	}

	// Catalog
	if cfg.Catalog.Path == "" {
		errs = append(errs, errors.New("catalog.path is required"))
	}

	// Matcher
	if cfg.Matcher.BestThreshold < 0 || cfg.Matcher.BestThreshold > 1 {
		errs = append(errs, fmt.Errorf("matcher.best_threshold %.2f is out of range [0, 1]", cfg.Matcher.BestThreshold))
	}

	// Pricing
	if cfg.Pricing.BasePrice < 0 {
		errs = append(errs, fmt.Errorf("pricing.base_price %.2f must not be negative", cfg.Pricing.BasePrice))
	}
	if cfg.Pricing.DefaultModifierPrice < 0 {
		errs = append(errs, fmt.Errorf("pricing.default_modifier_price %.2f must not be negative", cfg.Pricing.DefaultModifierPrice))
	}

	// Cache
	if cfg.Cache.Kind != "" && !cfg.Cache.Kind.IsValid() {
		errs = append(errs, fmt.Errorf("cache.kind %q is invalid; valid values: none, file, postgres", cfg.Cache.Kind))
	}
	if cfg.Cache.Kind == CacheFile && cfg.Cache.Dir == "" {
		errs = append(errs, errors.New("cache.dir is required when cache.kind is file"))
	}
	if cfg.Cache.Kind == CachePostgres && cfg.Cache.PostgresDSN == "" {
		errs = append(errs, errors.New("cache.postgres_dsn is required when cache.kind is postgres"))
	}
	if cfg.Cache.Kind == "" || cfg.Cache.Kind == CacheNone {
		slog.Warn("embedding cache disabled; the catalog will be re-embedded on every start")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}

// Package match ranks catalog products against free-text product hints by
// blending semantic (embedding cosine) and lexical (edit distance) scores.
//
// The [Matcher] embeds every catalog product name once at construction time
// (the warm-up), optionally persisting the vectors through an
// [embedcache.Store]. Per query it embeds only the query text, so matching
// cost is one embedding call plus a linear scan — fine for menu-sized
// catalogs.
package match

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/broistadev/broista/internal/alias"
	"github.com/broistadev/broista/internal/catalog"
	"github.com/broistadev/broista/internal/match/embedcache"
	"github.com/broistadev/broista/pkg/provider/embeddings"
)

// Blend weights and default thresholds.
const (
	weightSemantic = 0.6
	weightLexical  = 0.4

	// DefaultThreshold is the minimum combined score for Match results.
	DefaultThreshold = 0.5

	// BestThreshold is the minimum combined score MatchBest accepts.
	BestThreshold = 0.4

	// categoryTopK and categoryThreshold widen the candidate pool when a
	// category hint is available to re-rank it.
	categoryTopK      = 10
	categoryThreshold = 0.3

	// categoryBias multiplies the score of candidates whose categories
	// contain the hint.
	categoryBias = 1.2

	// warmupChunkSize is the number of names per EmbedBatch call during
	// warm-up.
	warmupChunkSize = 64

	// warmupConcurrency caps parallel EmbedBatch calls during warm-up.
	warmupConcurrency = 4
)

// Match is one ranked candidate for a query.
type Match struct {
	// Product is the matched catalog product. Zero-valued when Exists is
	// false.
	Product catalog.Product `json:"product"`

	// ProductName echoes Product.Name, or the original query when Exists is
	// false.
	ProductName string `json:"product_name"`

	// ProductID echoes Product.ID.
	ProductID string `json:"product_id,omitempty"`

	// Score is the blended similarity, higher is better.
	Score float64 `json:"similarity"`

	// SemanticScore is the embedding cosine component.
	SemanticScore float64 `json:"semantic_score"`

	// LexicalScore is the edit-distance component.
	LexicalScore float64 `json:"lexical_score"`

	// Exists is false when the query names a product known not to be on the
	// menu.
	Exists bool `json:"exists"`

	// Suggestions lists real products to offer when Exists is false.
	Suggestions []string `json:"suggestions,omitempty"`

	// OriginalQuery is the query as received, before alias resolution.
	OriginalQuery string `json:"original_query"`
}

// exclusion marks a candidate as categorically incompatible with the query.
// Excluded candidates never enter the ranking, regardless of how well they
// score otherwise.
type exclusion struct {
	reason string
}

// scoredCandidate is a candidate that survived exclusion checks.
type scoredCandidate struct {
	idx      int
	semantic float64
	lexical  float64
	combined float64
}

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithCache persists warm-up embeddings through the given store.
func WithCache(cache embedcache.Store) Option {
	return func(m *Matcher) {
		m.cache = cache
	}
}

// WithLogger sets the logger used during warm-up and matching.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) {
		m.logger = logger
	}
}

// WithBestThreshold sets the minimum combined score [Matcher.MatchBest]
// accepts. Values at or below zero keep [BestThreshold].
func WithBestThreshold(threshold float64) Option {
	return func(m *Matcher) {
		if threshold > 0 {
			m.bestThreshold = threshold
		}
	}
}

// Matcher ranks catalog products against product hints. Construct with
// [New]; all methods are then safe for concurrent use.
type Matcher struct {
	store         catalog.Store
	embedder      embeddings.Provider
	resolver      *alias.Resolver
	cache         embedcache.Store
	logger        *slog.Logger
	bestThreshold float64

	// Built once during warm-up, read-only afterwards.
	products []catalog.Product
	names    []string
	vectors  [][]float32
}

// New builds a Matcher over the given catalog and warms up the embedding
// index. A cached snapshot is reused when it was produced by the same model
// for the same number of products; otherwise every name is re-embedded.
func New(ctx context.Context, store catalog.Store, embedder embeddings.Provider, resolver *alias.Resolver, opts ...Option) (*Matcher, error) {
	m := &Matcher{
		store:         store,
		embedder:      embedder,
		resolver:      resolver,
		logger:        slog.Default(),
		bestThreshold: BestThreshold,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.products = store.Products()
	m.names = make([]string, len(m.products))
	for i, p := range m.products {
		m.names[i] = strings.ToLower(p.Name)
	}

	if err := m.warmUp(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// warmUp populates m.vectors from the cache or the embedding provider.
func (m *Matcher) warmUp(ctx context.Context) error {
	if len(m.names) == 0 {
		m.logger.Warn("catalog is empty, matcher will return no results")
		return nil
	}

	if m.cache != nil {
		snap, err := m.cache.Load(ctx, m.embedder.ModelID())
		if err != nil {
			m.logger.Warn("embedding cache load failed, re-embedding", "error", err)
		} else if snap != nil && len(snap.Names) == len(m.names) {
			// Product count is the cache key; renames within an equal-sized
			// catalog are not detected.
			m.names = snap.Names
			m.vectors = snap.Vectors
			m.logger.Info("embedding cache hit", "products", len(m.names), "model", snap.ModelID)
			return nil
		}
	}

	vectors := make([][]float32, len(m.names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmupConcurrency)
	for start := 0; start < len(m.names); start += warmupChunkSize {
		end := min(start+warmupChunkSize, len(m.names))
		g.Go(func() error {
			vecs, err := m.embedder.EmbedBatch(gctx, m.names[start:end])
			if err != nil {
				return fmt.Errorf("match: embed products %d-%d: %w", start, end-1, err)
			}
			if len(vecs) != end-start {
				return fmt.Errorf("match: embed products %d-%d: got %d vectors, want %d", start, end-1, len(vecs), end-start)
			}
			copy(vectors[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	m.vectors = vectors
	m.logger.Info("embedding index built", "products", len(m.names), "model", m.embedder.ModelID())

	if m.cache != nil {
		snap := &embedcache.Snapshot{
			ModelID: m.embedder.ModelID(),
			Names:   m.names,
			Vectors: m.vectors,
		}
		if err := m.cache.Save(ctx, snap); err != nil {
			m.logger.Warn("embedding cache save failed", "error", err)
		}
	}
	return nil
}

// Match returns up to topK products scoring at least threshold against the
// query, best first. The query is alias-resolved before scoring. An empty
// query or empty catalog yields no matches.
func (m *Matcher) Match(ctx context.Context, query string, topK int, threshold float64) ([]Match, error) {
	if strings.TrimSpace(query) == "" || len(m.names) == 0 {
		return nil, nil
	}

	original := query
	resolved := query
	if m.resolver != nil {
		canonical, _, _ := m.resolver.Resolve(query)
		resolved = canonical
	}
	resolved = strings.ToLower(strings.TrimSpace(resolved))

	queryVec, err := m.embedder.Embed(ctx, resolved)
	if err != nil {
		return nil, fmt.Errorf("match: embed query: %w", err)
	}

	candidates := m.score(resolved, queryVec)

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].combined > candidates[j].combined
	})

	var out []Match
	for _, c := range candidates {
		if len(out) == topK {
			break
		}
		if c.combined < threshold {
			continue
		}
		out = append(out, Match{
			Product:       m.products[c.idx],
			ProductName:   m.products[c.idx].Name,
			ProductID:     m.products[c.idx].ID,
			Score:         c.combined,
			SemanticScore: c.semantic,
			LexicalScore:  c.lexical,
			Exists:        true,
			OriginalQuery: original,
		})
	}
	return out, nil
}

// score evaluates every catalog product against the resolved query,
// returning only the candidates that survive exclusion.
func (m *Matcher) score(resolved string, queryVec []float32) []scoredCandidate {
	queryWords := wordSet(resolved)

	candidates := make([]scoredCandidate, 0, len(m.names))
	for i, name := range m.names {
		if excl := checkExclusion(queryWords, name); excl != nil {
			m.logger.Debug("candidate excluded", "query", resolved, "product", name, "reason", excl.reason)
			continue
		}

		sem := cosineSimilarity(queryVec, m.vectors[i])
		lex := LexicalScore(resolved, name)
		combined := weightSemantic*sem + weightLexical*lex

		// A "double chocolate" product is a weak fit for a "white" query but
		// not categorically wrong, so it is penalised rather than excluded.
		if queryWords["white"] && strings.Contains(name, "double chocolate") {
			combined -= 0.8
		}

		candidates = append(candidates, scoredCandidate{
			idx:      i,
			semantic: sem,
			lexical:  lex,
			combined: combined,
		})
	}
	return candidates
}

// checkExclusion rules out products whose color family contradicts the
// query: a customer asking for "white" anything never means a "dark"
// product, and vice versa.
func checkExclusion(queryWords map[string]bool, productName string) *exclusion {
	if queryWords["white"] && strings.Contains(productName, "dark") {
		return &exclusion{reason: "query says white, product is dark"}
	}
	if queryWords["dark"] && strings.Contains(productName, "white") {
		return &exclusion{reason: "query says dark, product is white"}
	}
	return nil
}

// MatchBest returns the single best match for the query, or a non-existent
// Match carrying suggestions when the query names a product known to be off
// the menu. Returns nil when nothing clears the best threshold
// ([BestThreshold] unless overridden with [WithBestThreshold]).
func (m *Matcher) MatchBest(ctx context.Context, query string) (*Match, error) {
	if m.resolver != nil {
		if suggestions, absent := m.resolver.KnownAbsent(query); absent {
			return &Match{
				ProductName:   query,
				Exists:        false,
				Suggestions:   suggestions,
				OriginalQuery: query,
			}, nil
		}
	}

	matches, err := m.Match(ctx, query, 1, m.bestThreshold)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	best := matches[0]
	return &best, nil
}

// MatchWithCategory returns the best match for the query, biasing towards
// products whose categories contain the hint. An empty hint degrades to a
// plain best-of-pool match over the widened candidate set.
func (m *Matcher) MatchWithCategory(ctx context.Context, query, categoryHint string) (*Match, error) {
	matches, err := m.Match(ctx, query, categoryTopK, categoryThreshold)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}

	if categoryHint != "" {
		hint := strings.ToLower(categoryHint)
		for i := range matches {
			for _, cat := range matches[i].Product.Categories {
				if strings.Contains(strings.ToLower(cat), hint) {
					matches[i].Score *= categoryBias
					break
				}
			}
		}
		sort.SliceStable(matches, func(i, j int) bool {
			return matches[i].Score > matches[j].Score
		})
	}

	best := matches[0]
	return &best, nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths and zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func wordSet(s string) map[string]bool {
	words := strings.Fields(s)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

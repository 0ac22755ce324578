// Package mock provides a test double for the embeddings.Provider interface.
//
// Provider returns deterministic vectors without any network access. By
// default each text is embedded as a bag-of-tokens hash vector, so texts
// sharing tokens produce correlated vectors and identical texts produce
// identical vectors — enough structure for similarity-ranking tests.
// Explicit vectors can be pinned per text via the Vectors map.
package mock

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/broistadev/broista/pkg/provider/embeddings"
)

// Dimensions is the fixed vector length produced by the mock provider.
const Dimensions = 64

// Provider is a mock implementation of embeddings.Provider.
// Zero value is ready to use. Set Err to inject failures.
type Provider struct {
	mu sync.Mutex

	// Vectors pins explicit embeddings for specific input texts. Texts not
	// present fall back to the deterministic token-hash embedding.
	Vectors map[string][]float32

	// Err, if non-nil, is returned from Embed and EmbedBatch.
	Err error

	// EmbedCalls records every text passed to Embed, in order.
	EmbedCalls []string

	// EmbedBatchCalls records every slice passed to EmbedBatch, in order.
	EmbedBatchCalls [][]string
}

// Ensure Provider implements embeddings.Provider at compile time.
var _ embeddings.Provider = (*Provider)(nil)

// Embed records the call and returns the deterministic vector for text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	p.EmbedCalls = append(p.EmbedCalls, text)
	err := p.Err
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return p.vectorFor(text), nil
}

// EmbedBatch records the call and returns one vector per text.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	cp := make([]string, len(texts))
	copy(cp, texts)
	p.EmbedBatchCalls = append(p.EmbedBatchCalls, cp)
	err := p.Err
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = p.vectorFor(t)
	}
	return out, nil
}

// Dimensions implements embeddings.Provider.
func (p *Provider) Dimensions() int {
	return Dimensions
}

// ModelID implements embeddings.Provider.
func (p *Provider) ModelID() string {
	return "mock-token-hash"
}

// vectorFor returns the pinned vector for text when one exists, otherwise
// a bag-of-tokens hash vector.
func (p *Provider) vectorFor(text string) []float32 {
	p.mu.Lock()
	pinned, ok := p.Vectors[text]
	p.mu.Unlock()
	if ok {
		out := make([]float32, len(pinned))
		copy(out, pinned)
		return out
	}

	vec := make([]float32, Dimensions)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%Dimensions]++
	}
	return vec
}

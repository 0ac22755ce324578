// Package llmextract implements a language-model-based extraction stage that
// turns a free-form customer transcript into structured order candidates.
//
// The [Extractor] sends the transcript to an [llm.Provider] with a
// chain-of-thought system prompt that walks the model through item
// identification, attribute resolution (size, temperature, modifiers,
// quantity), and the conversational special cases ("actually, make that
// iced", "can you add soft top"). The model is instructed to answer with a
// bare JSON array of candidate objects.
//
// Parsing is deliberately forgiving: markdown fences are stripped, the first
// JSON array in the reply is used, and when no array parses, individual
// candidate objects are salvaged one by one. When nothing parses at all the
// extractor returns an empty candidate list and a nil error — the pipeline
// degrades to the pattern-based segmenter rather than failing the request.
package llmextract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/broistadev/broista/internal/extract"
	"github.com/broistadev/broista/pkg/provider/llm"
)

const (
	defaultTemperature = 0.0
	defaultMaxTokens   = 800
)

// systemPrompt instructs the model to reason step by step and emit only a
// JSON array. The worked examples pin down the ambiguous phrasings that
// plain instruction-following gets wrong.
const systemPrompt = `You are an expert barista assistant. Extract order items from customer conversations using step-by-step reasoning.

TASK: Analyze the conversation and extract ALL drink/food items ordered.

REASONING PROCESS:
1. Identify all product mentions (ignore chitchat like "how are you", "thank you")
2. For each product, determine:
   - Is this a NEW item or a MODIFICATION to a previous item?
   - What size? (small/medium/large/kids)
   - What temperature? (hot/iced/blended)
   - What modifiers? (soft top, oat milk, boba, extra sweet, etc.)
   - What quantity? (one=1, two=2, etc.)
3. Handle special cases:
   - "actually, make that iced" = MODIFY previous item's temperature
   - "can you add soft top" = ADD modifier to previous item
   - "and" or "also" = usually means NEW item

EXAMPLES:

Example 1: Simple
Input: "Can I get a large hot mocha with soft top?"
Output: [{"product":"mocha","size":"large","temp":"hot","mods":["soft top"],"qty":1}]

Example 2: Multiple items
Input: "I'll do a medium iced golden eagle and a small rebel with boba"
Output: [
  {"product":"golden eagle","size":"medium","temp":"iced","mods":[],"qty":1},
  {"product":"rebel","size":"small","temp":null,"mods":["boba"],"qty":1}
]

Example 3: Modification
Input: "Can I get a golden eagle? Actually, make that iced please"
Output: [{"product":"golden eagle","size":null,"temp":"iced","mods":[],"qty":1}]

Example 4: Complex multi-item
Input: "Large hot white chocolate mocha extra sweet with soft top, medium double blended rainbow rebel with boba, and kids not so hot with whip"
Output: [
  {"product":"white chocolate mocha","size":"large","temp":"hot","mods":["extra sweet","soft top"],"qty":1},
  {"product":"rainbow rebel","size":"medium","temp":"blended","mods":["boba","double blended"],"qty":1},
  {"product":"not so hot","size":"kids","temp":null,"mods":["whip"],"qty":1}
]

Example 5: Modifier addition
Input: "Medium golden eagle. Can you add oat milk and soft top?"
Output: [{"product":"golden eagle","size":"medium","temp":null,"mods":["oat milk","soft top"],"qty":1}]

CRITICAL RULES:
1. IGNORE chitchat (greetings, thank you, questions about milk types, etc.)
2. "and", "also", "can I also have" = NEW item
3. "can you add", "with", "make that" = MODIFICATION/ADDITION
4. Size before product = applies to that product ("small oat milk golden eagle" = small golden eagle + oat milk modifier)
5. Milk types (oat/almond/coconut milk) = MODIFIERS not part of the product name
6. "double" before a product name usually means a "double blended" modifier
7. "not so hot" is ONE product (kids hot chocolate)
8. "rainbro" or "rainbow" = "rainbow rebel"

OUTPUT FORMAT (JSON array only, no explanation):
[{"product":"...","size":"...","temp":"...","mods":[...],"qty":1}]`

// objectPattern salvages individual candidate objects when the full array
// fails to parse.
var objectPattern = regexp.MustCompile(`\{[^}]*"product(?:_name)?"[^}]*\}`)

// arrayPattern locates the first JSON array in a possibly-chatty reply.
var arrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

// Option is a functional option for configuring an [Extractor].
type Option func(*Extractor)

// WithTemperature sets the LLM sampling temperature. Default: 0.0.
func WithTemperature(temp float64) Option {
	return func(e *Extractor) {
		e.temperature = temp
	}
}

// WithMaxTokens caps the completion length. Default: 800.
func WithMaxTokens(max int) Option {
	return func(e *Extractor) {
		e.maxTokens = max
	}
}

// Extractor uses an [llm.Provider] to extract order candidates from
// transcript text. It is safe for concurrent use.
type Extractor struct {
	llm         llm.Provider
	temperature float64
	maxTokens   int
}

// New returns a new [Extractor] backed by the given [llm.Provider].
func New(provider llm.Provider, opts ...Option) *Extractor {
	e := &Extractor{
		llm:         provider,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract sends the transcript to the LLM and parses the reply into
// candidates. An unparseable reply yields an empty slice and a nil error;
// transport failures and context cancellation are returned as errors.
func (e *Extractor) Extract(ctx context.Context, text string) ([]extract.Candidate, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	req := llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Temperature:  e.temperature,
		MaxTokens:    e.maxTokens,
		Messages: []llm.Message{
			{Role: "user", Content: fmt.Sprintf("CONVERSATION:\n%q\n\nNow extract from the conversation above:", text)},
		},
	}

	resp, err := e.llm.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("llmextract: complete: %w", err)
	}
	if resp == nil {
		return nil, nil
	}

	return ParseCandidates(resp.Content), nil
}

// ParseCandidates extracts candidate objects from an LLM reply. Candidates
// without a product phrase are skipped.
func ParseCandidates(content string) []extract.Candidate {
	cleaned := stripMarkdown(content)

	if arr := arrayPattern.FindString(cleaned); arr != "" {
		var parsed []extract.Candidate
		if err := json.Unmarshal([]byte(arr), &parsed); err == nil {
			return withProduct(parsed)
		}
	}

	// Object-by-object salvage for truncated or malformed arrays.
	var out []extract.Candidate
	for _, obj := range objectPattern.FindAllString(cleaned, -1) {
		var c extract.Candidate
		if err := json.Unmarshal([]byte(obj), &c); err != nil {
			continue
		}
		if c.Product != "" {
			out = append(out, c)
		}
	}
	return out
}

func withProduct(in []extract.Candidate) []extract.Candidate {
	out := in[:0]
	for _, c := range in {
		if c.Product != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// stripMarkdown removes markdown code fences around an LLM reply.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

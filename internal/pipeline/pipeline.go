// Package pipeline wires extraction, matching, and order composition into
// the end-to-end order resolution flow.
//
// A [Pipeline] never returns an error to its caller: every failure mode,
// including panics in downstream stages, is folded into the [Result] with
// Success set to false, so an API handler can always serialise the result
// as-is.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/broistadev/broista/internal/extract"
	"github.com/broistadev/broista/internal/match"
	"github.com/broistadev/broista/internal/observe"
	"github.com/broistadev/broista/internal/order"
)

// Combined confidences below this threshold flag the item for review.
const lowConfidenceThreshold = 0.75

// Flag reasons.
const (
	ReasonLowConfidence = "low_confidence"
	ReasonNotInMenu     = "not_in_menu"
	ReasonNoMatch       = "no_match"
)

// Flag actions.
const (
	ActionReview          = "review"
	ActionManualSelection = "manual_selection"
	ActionManualEntry     = "manual_entry"
)

// CandidateSource produces raw order candidates from transcript text. Both
// the LLM extractor and the pattern segmenter satisfy it (the latter via
// [SegmenterSource]).
type CandidateSource interface {
	Extract(ctx context.Context, text string) ([]extract.Candidate, error)
}

// SegmenterSource adapts the pattern-based [extract.Segmenter] to the
// [CandidateSource] interface.
type SegmenterSource struct {
	Segmenter *extract.Segmenter
}

// Extract implements [CandidateSource].
func (s SegmenterSource) Extract(_ context.Context, text string) ([]extract.Candidate, error) {
	return s.Segmenter.Extract(text), nil
}

// Transcription echoes the input text and how it was obtained.
type Transcription struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence,omitempty"`
	Source     string  `json:"source,omitempty"`
}

// Extraction reports the normalisation stage outcome.
type Extraction struct {
	Items      []extract.Item      `json:"items"`
	Rejected   []extract.Rejection `json:"rejected,omitempty"`
	Count      int                 `json:"count"`
	Confidence float64             `json:"confidence"`
}

// MatchedItem pairs an extracted item with its catalog match and the blended
// confidence used for review flagging.
type MatchedItem struct {
	Item              extract.Item `json:"item"`
	Match             match.Match  `json:"match"`
	OverallConfidence float64      `json:"overall_confidence"`
}

// UnmatchedItem is an extracted item the matcher could not resolve.
type UnmatchedItem struct {
	Item          extract.Item `json:"item"`
	Suggestions   []string     `json:"suggestions,omitempty"`
	OriginalQuery string       `json:"original_query"`
}

// Matching reports the catalog resolution stage outcome.
type Matching struct {
	MatchedCount   int             `json:"matched_count"`
	UnmatchedCount int             `json:"unmatched_count"`
	Matched        []MatchedItem   `json:"matched_items"`
	Unmatched      []UnmatchedItem `json:"unmatched_items"`
}

// Flag marks an item that needs human attention before the order is final.
type Flag struct {
	Item        string   `json:"item"`
	Reason      string   `json:"reason"`
	Confidence  float64  `json:"confidence,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Action      string   `json:"action"`
}

// Result is the complete outcome of one pipeline run.
type Result struct {
	Success       bool          `json:"success"`
	Error         string        `json:"error,omitempty"`
	Transcription Transcription `json:"transcription"`
	Extraction    Extraction    `json:"extraction"`
	Matching      Matching      `json:"matching"`
	Order         *order.Order  `json:"order,omitempty"`
	Flags         []Flag        `json:"flags"`
}

// Option configures a [Pipeline].
type Option func(*Pipeline)

// WithMetrics sets the metrics instance. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithCustomerName sets the customer name stamped on composed orders.
func WithCustomerName(name string) Option {
	return func(p *Pipeline) {
		p.customerName = name
	}
}

// Pipeline runs transcript text through extraction, normalisation, catalog
// matching, and order composition. Safe for concurrent use.
type Pipeline struct {
	source     CandidateSource
	normalizer *extract.Normalizer
	matcher    *match.Matcher
	composer   *order.Composer

	metrics      *observe.Metrics
	logger       *slog.Logger
	customerName string
}

// New assembles a Pipeline from its stages.
func New(source CandidateSource, normalizer *extract.Normalizer, matcher *match.Matcher, composer *order.Composer, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:       source,
		normalizer:   normalizer,
		matcher:      matcher,
		composer:     composer,
		logger:       slog.Default(),
		customerName: "Voice Customer",
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	return p
}

// ProcessText resolves a typed-in order. The text is treated as a perfect
// transcription.
func (p *Pipeline) ProcessText(ctx context.Context, text string) *Result {
	return p.process(ctx, Transcription{Text: text, Confidence: 1.0, Source: "text_input"})
}

// ProcessTranscript resolves a speech transcription with its recognition
// confidence.
func (p *Pipeline) ProcessTranscript(ctx context.Context, text string, confidence float64) *Result {
	return p.process(ctx, Transcription{Text: text, Confidence: confidence, Source: "speech"})
}

// process runs all stages, converting any error or panic into a failed
// Result.
func (p *Pipeline) process(ctx context.Context, tr Transcription) (res *Result) {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "pipeline.process")
	defer span.End()

	res = &Result{
		Transcription: tr,
		Flags:         []Flag{},
	}
	defer func() {
		if r := recover(); r != nil {
			res.Success = false
			res.Error = fmt.Sprintf("internal error: %v", r)
			p.logger.Error("pipeline panic", "panic", r)
		}
		p.metrics.PipelineDuration.Record(ctx, time.Since(start).Seconds())
	}()

	if err := p.run(ctx, res); err != nil {
		res.Error = err.Error()
		p.logger.Error("pipeline failed", "error", err)
		return res
	}
	res.Success = true
	return res
}

func (p *Pipeline) run(ctx context.Context, res *Result) error {
	// Stage 1: extraction + normalisation.
	extractStart := time.Now()
	extractCtx, extractSpan := observe.StartSpan(ctx, "pipeline.extract")
	candidates, err := p.source.Extract(extractCtx, res.Transcription.Text)
	if err != nil {
		extractSpan.End()
		return fmt.Errorf("pipeline: extract candidates: %w", err)
	}

	items, rejected := p.normalizer.NormalizeAndScore(candidates, res.Transcription.Text)
	extractSpan.End()
	p.metrics.ExtractDuration.Record(ctx, time.Since(extractStart).Seconds())
	p.metrics.ItemsExtracted.Add(ctx, int64(len(items)))
	p.metrics.ItemsRejected.Add(ctx, int64(len(rejected)))

	res.Extraction = Extraction{
		Items:      items,
		Rejected:   rejected,
		Count:      len(items),
		Confidence: extract.MeanConfidence(items),
	}

	// Stage 2: catalog matching.
	matchCtx, matchSpan := observe.StartSpan(ctx, "pipeline.match")
	var resolved []order.Resolved
	for _, item := range items {
		matchStart := time.Now()
		m, err := p.matcher.MatchBest(matchCtx, item.ProductHint)
		p.metrics.MatchDuration.Record(ctx, time.Since(matchStart).Seconds())
		if err != nil {
			matchSpan.End()
			return fmt.Errorf("pipeline: match %q: %w", item.ProductHint, err)
		}

		switch {
		case m != nil && m.Exists:
			combined := (item.Confidence + m.Score) / 2
			res.Matching.Matched = append(res.Matching.Matched, MatchedItem{
				Item:              item,
				Match:             *m,
				OverallConfidence: combined,
			})
			resolved = append(resolved, order.Resolved{Item: item, Match: m})
			p.metrics.RecordMatchOutcome(ctx, "matched")

			if combined < lowConfidenceThreshold {
				res.Flags = append(res.Flags, Flag{
					Item:       m.ProductName,
					Reason:     ReasonLowConfidence,
					Confidence: combined,
					Action:     ActionReview,
				})
			}

		case m != nil:
			// The customer named a product known not to be on the menu.
			res.Matching.Unmatched = append(res.Matching.Unmatched, UnmatchedItem{
				Item:          item,
				Suggestions:   m.Suggestions,
				OriginalQuery: item.ProductHint,
			})
			resolved = append(resolved, order.Resolved{Item: item, Match: m})
			p.metrics.RecordMatchOutcome(ctx, ReasonNotInMenu)

			res.Flags = append(res.Flags, Flag{
				Item:        item.ProductHint,
				Reason:      ReasonNotInMenu,
				Suggestions: m.Suggestions,
				Action:      ActionManualSelection,
			})

		default:
			res.Matching.Unmatched = append(res.Matching.Unmatched, UnmatchedItem{
				Item:          item,
				OriginalQuery: item.ProductHint,
			})
			resolved = append(resolved, order.Resolved{Item: item})
			p.metrics.RecordMatchOutcome(ctx, ReasonNoMatch)

			res.Flags = append(res.Flags, Flag{
				Item:   item.ProductHint,
				Reason: ReasonNoMatch,
				Action: ActionManualEntry,
			})
		}
	}
	matchSpan.End()
	res.Matching.MatchedCount = len(res.Matching.Matched)
	res.Matching.UnmatchedCount = len(res.Matching.Unmatched)

	// Stage 3: order composition. Unmatched items become placeholder lines
	// so the operator sees the full request.
	composeStart := time.Now()
	_, composeSpan := observe.StartSpan(ctx, "pipeline.compose")
	o := p.composer.Compose(resolved, p.customerName, "")
	composeSpan.End()
	p.metrics.ComposeDuration.Record(ctx, time.Since(composeStart).Seconds())
	p.metrics.OrdersComposed.Add(ctx, 1)
	res.Order = &o

	p.logger.Info("order resolved",
		"items", len(items),
		"matched", res.Matching.MatchedCount,
		"unmatched", res.Matching.UnmatchedCount,
		"flags", len(res.Flags),
		"total", o.Total,
	)
	return nil
}

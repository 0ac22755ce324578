package extract

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
)

// defaultStoplist contains conversational filler words that LLM extraction
// sometimes promotes to product names ("thank you so much" → "thank").
var defaultStoplist = map[string]struct{}{
	"thank":   {},
	"please":  {},
	"awesome": {},
	"great":   {},
	"good":    {},
	"fun":     {},
	"course":  {},
}

// defaultNicknames maps common spoken shorthand to canonical product phrases.
// Applied before alias resolution, so downstream tables only need canonical
// spellings.
var defaultNicknames = map[string]string{
	"rainbro":        "rainbow rebel",
	"rainbow":        "rainbow rebel",
	"double rainbro": "rainbow rebel",
	"double rainbow": "rainbow rebel",
	"wc mocha":       "white chocolate mocha",
	"nsh":            "not so hot",
}

// MinConfidence is the default admission threshold for normalized items.
const MinConfidence = 0.4

// minHintLen is the shortest product hint admitted after canonicalisation.
const minHintLen = 3

// Rejection explains why a candidate was dropped during normalisation.
// Rejections are diagnostic only and never fail the pipeline.
type Rejection struct {
	// ProductHint is the canonical product phrase of the dropped candidate.
	ProductHint string `json:"product_hint"`

	// Reason is a short human-readable explanation.
	Reason string `json:"reason"`

	// Confidence is the computed confidence at drop time, when applicable.
	Confidence float64 `json:"confidence,omitempty"`
}

// Normalizer canonicalises extraction candidates and scores how plausibly
// each one was actually ordered. The zero value is not usable; construct with
// [NewNormalizer].
type Normalizer struct {
	nicknames     map[string]string
	stoplist      map[string]struct{}
	minConfidence float64
	logger        *slog.Logger
}

// NormalizerOption configures a [Normalizer].
type NormalizerOption func(*Normalizer)

// WithNicknames replaces the default nickname table.
func WithNicknames(nicknames map[string]string) NormalizerOption {
	return func(n *Normalizer) {
		n.nicknames = nicknames
	}
}

// WithStoplist replaces the default stoplist.
func WithStoplist(words []string) NormalizerOption {
	return func(n *Normalizer) {
		n.stoplist = make(map[string]struct{}, len(words))
		for _, w := range words {
			n.stoplist[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
		}
	}
}

// WithMinConfidence overrides the admission threshold.
func WithMinConfidence(min float64) NormalizerOption {
	return func(n *Normalizer) {
		n.minConfidence = min
	}
}

// WithLogger sets the logger used for drop diagnostics.
func WithLogger(logger *slog.Logger) NormalizerOption {
	return func(n *Normalizer) {
		n.logger = logger
	}
}

// NewNormalizer creates a Normalizer with the default nickname table,
// stoplist, and admission threshold.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		nicknames:     defaultNicknames,
		stoplist:      defaultStoplist,
		minConfidence: MinConfidence,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Canonicalize maps a candidate onto the canonical field vocabulary. It is
// total (never fails) and idempotent: canonicalising an already-canonical
// candidate returns it unchanged.
func (n *Normalizer) Canonicalize(c Candidate) Candidate {
	out := Candidate{RawText: c.RawText}

	out.Product = strings.ToLower(strings.TrimSpace(c.Product))
	if canonical, ok := n.nicknames[out.Product]; ok {
		out.Product = canonical
	}

	out.Size = canonicalSize(c.Size)
	out.Temperature, out.Modifiers = canonicalTemperature(c.Temperature, c.Modifiers)

	out.Quantity = c.Quantity
	if out.Quantity < 1 {
		out.Quantity = 1
	}
	return out
}

// canonicalSize lowercases and validates the size token. Unrecognised sizes
// are discarded rather than guessed; the composer asks for clarification.
func canonicalSize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(cleanNull(raw)))
	if Size(s).IsValid() {
		return s
	}
	return ""
}

// canonicalTemperature resolves the temperature token and folds the
// "double blended" phrasing into a blended temperature plus a modifier. The
// modifier is appended only when not already present, keeping the mapping
// idempotent.
func canonicalTemperature(raw string, mods []string) (string, []string) {
	outMods := canonicalModifiers(mods)

	t := strings.ToLower(strings.TrimSpace(cleanNull(raw)))
	switch {
	case t == "double blended":
		if !containsString(outMods, "double blended") {
			outMods = append(outMods, "double blended")
		}
		return string(TempBlended), outMods
	case strings.Contains(t, "blended"):
		return string(TempBlended), outMods
	case Temperature(t).IsValid():
		return t, outMods
	default:
		return "", outMods
	}
}

// canonicalModifiers trims, lowercases, and deduplicates modifier phrases
// while preserving first-seen order.
func canonicalModifiers(mods []string) []string {
	if len(mods) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(mods))
	out := make([]string, 0, len(mods))
	for _, m := range mods {
		m = strings.ToLower(strings.TrimSpace(m))
		if m == "" {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// NormalizeAndScore canonicalises, deduplicates, scores, and filters the
// given candidates against the source text they were extracted from. The
// returned items are in first-occurrence order. Dropped candidates are
// reported as rejections for diagnostics.
func (n *Normalizer) NormalizeAndScore(candidates []Candidate, sourceText string) ([]Item, []Rejection) {
	lowerText := strings.ToLower(sourceText)

	var items []Item
	var rejections []Rejection
	seen := make(map[string]struct{}, len(candidates))

	for _, raw := range candidates {
		c := n.Canonicalize(raw)

		sig := dedupSignature(c)
		if _, dup := seen[sig]; dup {
			continue
		}
		seen[sig] = struct{}{}

		if reason := n.admitHint(c.Product); reason != "" {
			rejections = append(rejections, Rejection{ProductHint: c.Product, Reason: reason})
			n.logger.Debug("candidate dropped", "product", c.Product, "reason", reason)
			continue
		}

		conf := n.Confidence(c, lowerText)
		if conf < n.minConfidence {
			rej := Rejection{
				ProductHint: c.Product,
				Reason:      fmt.Sprintf("confidence %.2f below threshold %.2f", conf, n.minConfidence),
				Confidence:  conf,
			}
			rejections = append(rejections, rej)
			n.logger.Debug("candidate dropped", "product", c.Product, "confidence", conf)
			continue
		}

		items = append(items, Item{
			ProductHint: c.Product,
			Size:        Size(c.Size),
			Temperature: Temperature(c.Temperature),
			Modifiers:   c.Modifiers,
			Quantity:    c.Quantity,
			Confidence:  conf,
		})
	}
	return items, rejections
}

// admitHint returns a non-empty rejection reason when the product hint fails
// the structural admission checks.
func (n *Normalizer) admitHint(hint string) string {
	if hint == "" {
		return "empty product name"
	}
	if len(hint) < minHintLen {
		return "product name too short"
	}
	if _, stopped := n.stoplist[hint]; stopped {
		return "conversational filler"
	}
	return ""
}

// dedupSignature identifies a candidate by its canonical product, size,
// temperature, and modifier set (order-insensitive). Candidates sharing a
// signature describe the same order line.
func dedupSignature(c Candidate) string {
	mods := make([]string, len(c.Modifiers))
	copy(mods, c.Modifiers)
	sort.Strings(mods)
	return c.Product + "|" + c.Size + "|" + c.Temperature + "|" + strings.Join(mods, ",")
}

// Confidence scores how plausibly the canonical candidate was actually
// ordered, based on lexical evidence in the lowercased source text. The
// score starts at 1.0 and each weak-evidence signal multiplies it down:
//
//   - product phrase not verbatim in the text: scaled by the fraction of its
//     meaningful words (>2 chars) that do appear;
//   - neither size nor temperature extracted;
//   - modifiers claimed but absent from the text;
//   - very short product phrase.
//
// The result is rounded to two decimals.
func (n *Normalizer) Confidence(c Candidate, lowerText string) float64 {
	conf := 1.0

	if !strings.Contains(lowerText, c.Product) {
		words := meaningfulWords(c.Product)
		found := 0
		for _, w := range words {
			if strings.Contains(lowerText, w) {
				found++
			}
		}
		ratio := 0.0
		if len(words) > 0 {
			ratio = float64(found) / float64(len(words))
		}
		conf *= 0.3 + 0.7*ratio
	}

	if c.Size == "" && c.Temperature == "" {
		conf *= 0.9
	}

	if len(c.Modifiers) > 0 {
		found := 0
		for _, m := range c.Modifiers {
			if strings.Contains(lowerText, m) {
				found++
			}
		}
		ratio := float64(found) / float64(len(c.Modifiers))
		conf *= 0.5 + 0.5*ratio
	}

	if len(c.Product) < 4 {
		conf *= 0.7
	}

	return math.Round(conf*100) / 100
}

// meaningfulWords returns the words of the phrase longer than two characters.
func meaningfulWords(phrase string) []string {
	var out []string
	for _, w := range strings.Fields(phrase) {
		if len(w) > 2 {
			out = append(out, w)
		}
	}
	return out
}

// MeanConfidence averages the confidence of the given items, returning 0 for
// an empty slice.
func MeanConfidence(items []Item) float64 {
	if len(items) == 0 {
		return 0
	}
	var sum float64
	for _, it := range items {
		sum += it.Confidence
	}
	return sum / float64(len(items))
}

// Package extract turns raw transcripts or LLM-proposed candidate items into
// normalized, deduplicated, confidence-scored order items.
//
// Two candidate sources feed the normalizer: the regex [Segmenter] for
// LLM-free deployments, and the [llmextract] subpackage for model-backed
// extraction. Both produce [Candidate] values; [Normalizer.NormalizeAndScore]
// is the single place where field-name variance, nicknames, and value
// canonicalisation are resolved, so downstream components only ever see the
// strict [Item] schema.
package extract

import (
	"encoding/json"
	"strings"
)

// Size is a drink size extracted from customer phrasing. The empty string
// means the size was not determined.
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
	SizeKids   Size = "kids"
)

// IsValid reports whether s is a recognised size.
func (s Size) IsValid() bool {
	switch s {
	case SizeSmall, SizeMedium, SizeLarge, SizeKids:
		return true
	}
	return false
}

// Temperature is a drink temperature/preparation style. The empty string
// means the temperature was not determined.
type Temperature string

const (
	TempHot     Temperature = "hot"
	TempIced    Temperature = "iced"
	TempBlended Temperature = "blended"
)

// IsValid reports whether t is a recognised temperature.
func (t Temperature) IsValid() bool {
	switch t {
	case TempHot, TempIced, TempBlended:
		return true
	}
	return false
}

// Candidate is an unvalidated, possibly-incomplete parse of one ordered
// product. Candidates are transient — they exist only between extraction and
// normalisation and are never persisted.
type Candidate struct {
	// Product is the free-text product phrase.
	Product string

	// Size is the raw size token, if any.
	Size string

	// Temperature is the raw temperature token, if any.
	Temperature string

	// Modifiers lists the raw modifier phrases in spoken order.
	Modifiers []string

	// Quantity is the ordered count. Zero means "not stated" (defaults to 1
	// during normalisation).
	Quantity int

	// RawText is the source span this candidate was parsed from, when known.
	RawText string
}

// candidateJSON accepts the field-name variants produced by different
// extraction prompts over time (product vs product_name, temp vs temperature,
// mods vs modifiers, qty vs quantity). The long spelling wins when both are
// present.
type candidateJSON struct {
	Product     string          `json:"product"`
	ProductName string          `json:"product_name"`
	Size        string          `json:"size"`
	Temp        string          `json:"temp"`
	Temperature string          `json:"temperature"`
	Mods        []string        `json:"mods"`
	Modifiers   []string        `json:"modifiers"`
	Qty         json.RawMessage `json:"qty"`
	Quantity    json.RawMessage `json:"quantity"`
}

// UnmarshalJSON implements json.Unmarshaler with lenient field-name
// reconciliation. Absent fields decode to zero values; JSON null and the
// literal string "null" are both treated as absent.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	var raw candidateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	c.Product = firstNonEmpty(raw.ProductName, raw.Product)
	c.Size = cleanNull(raw.Size)
	c.Temperature = cleanNull(firstNonEmpty(raw.Temperature, raw.Temp))
	c.Modifiers = raw.Modifiers
	if c.Modifiers == nil {
		c.Modifiers = raw.Mods
	}
	c.Quantity = decodeQuantity(raw.Quantity, raw.Qty)
	return nil
}

// firstNonEmpty returns the first non-empty string of a, b.
func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// cleanNull maps the literal "null" (produced by some models as a string
// rather than a JSON null) to the empty string.
func cleanNull(s string) string {
	if strings.EqualFold(strings.TrimSpace(s), "null") {
		return ""
	}
	return s
}

// decodeQuantity extracts a positive integer quantity from either raw field.
// Models occasionally emit quantities as strings ("2"); both forms are
// accepted. Anything unparseable yields 0 (= default 1 downstream).
func decodeQuantity(candidates ...json.RawMessage) int {
	for _, raw := range candidates {
		if len(raw) == 0 {
			continue
		}
		var n int
		if err := json.Unmarshal(raw, &n); err == nil && n > 0 {
			return n
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			var parsed int
			for _, r := range s {
				if r < '0' || r > '9' {
					parsed = 0
					break
				}
				parsed = parsed*10 + int(r-'0')
			}
			if parsed > 0 {
				return parsed
			}
		}
	}
	return 0
}

// Item is the canonical, confidence-scored, validated form of a [Candidate].
// Items are value objects: once emitted by the normalizer they are never
// mutated.
type Item struct {
	// ProductHint is the lowercased product phrase handed to the matcher.
	ProductHint string `json:"product_hint"`

	// Size is the canonical size, or "" when undetermined.
	Size Size `json:"size,omitempty"`

	// Temperature is the canonical temperature, or "" when undetermined.
	Temperature Temperature `json:"temperature,omitempty"`

	// Modifiers lists canonical modifier phrases in insertion order with
	// exact duplicates removed.
	Modifiers []string `json:"modifiers,omitempty"`

	// Quantity is the ordered count, always ≥ 1.
	Quantity int `json:"quantity"`

	// Confidence is the extraction confidence in [0, 1], rounded to two
	// decimals.
	Confidence float64 `json:"confidence"`
}

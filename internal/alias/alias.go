// Package alias maps informal customer phrasing to canonical catalog product
// names, and flags phrases that name products known not to exist.
//
// The resolver sits in front of lexical/semantic matching: a direct table hit
// short-circuits similarity scoring entirely, and a known-nonexistent phrase
// is answered with suggested alternatives instead of a low-confidence false
// match. Resolution is pure and total — it never fails.
//
// Tables are swappable configuration data supplied at construction time
// (and loadable from YAML), not embedded constants, so synthetic catalogs
// can be tested without touching resolver logic.
package alias

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tables holds the two static lookup tables the resolver operates on.
type Tables struct {
	// Variations maps an informal phrase to the canonical catalog name.
	Variations map[string]string `yaml:"variations"`

	// Unknown maps a phrase naming a product that intentionally does not
	// exist to an ordered list of suggested canonical alternatives.
	Unknown map[string][]string `yaml:"unknown"`
}

// DefaultTables returns the production variation and unknown-product tables.
func DefaultTables() Tables {
	return Tables{
		Variations: map[string]string{
			"white chocolate mocha": "white mocha",
			"wc mocha":              "white mocha",

			"rainbow rebel":       "rainbow rebel",
			"rainbro rebel":       "rainbow rebel",
			"rainbro":             "rainbow rebel",
			"double rainbow rebel": "double rainbro rebel",
			"double rainbro":       "double rainbro rebel",

			"golden eagle": "golden eagle",
			"colon eagle":  "golden eagle",

			"chocolate mocha": "dark chocolate mocha",

			"carmelizer":  "caramelizer",
			"carameliser": "caramelizer",

			"hot chocolate":      "hot cocoa",
			"kids hot chocolate": "hot cocoa",
			"cocoa":              "hot cocoa",
		},
		Unknown: map[string][]string{
			"not so hot": {"hot cocoa", "build your own: hot cocoa", "zero sugar added hot cocoa"},
			"nsh":        {"hot cocoa", "build your own: hot cocoa"},
		},
	}
}

// Resolver answers phrase lookups against a fixed pair of [Tables].
// It is read-only after construction and safe for concurrent use.
type Resolver struct {
	tables Tables
}

// New returns a [Resolver] over the given tables. Nil maps are tolerated
// and behave as empty.
func New(tables Tables) *Resolver {
	return &Resolver{tables: tables}
}

// Resolve looks up phrase case-insensitively with surrounding whitespace
// trimmed.
//
// Return semantics:
//   - Variation hit: (canonical name, true, nil).
//   - Known-nonexistent hit: (phrase unchanged, false, suggestions).
//   - Miss: (phrase unchanged, true, nil) — downstream similarity matching
//     decides.
func (r *Resolver) Resolve(phrase string) (canonical string, exists bool, suggestions []string) {
	key := strings.ToLower(strings.TrimSpace(phrase))

	if name, ok := r.tables.Variations[key]; ok {
		return name, true, nil
	}
	if alts, ok := r.tables.Unknown[key]; ok {
		return phrase, false, alts
	}
	return phrase, true, nil
}

// KnownAbsent reports whether phrase names a product known not to exist,
// along with its suggested alternatives.
func (r *Resolver) KnownAbsent(phrase string) ([]string, bool) {
	key := strings.ToLower(strings.TrimSpace(phrase))
	alts, ok := r.tables.Unknown[key]
	return alts, ok
}

// LoadTables reads alias tables from a YAML file.
func LoadTables(path string) (Tables, error) {
	f, err := os.Open(path)
	if err != nil {
		return Tables{}, fmt.Errorf("alias: open %q: %w", path, err)
	}
	defer f.Close()

	t, err := LoadTablesFromReader(f)
	if err != nil {
		return Tables{}, fmt.Errorf("alias: parse %q: %w", path, err)
	}
	return t, nil
}

// LoadTablesFromReader parses alias tables YAML from r.
func LoadTablesFromReader(r io.Reader) (Tables, error) {
	var t Tables
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return Tables{}, fmt.Errorf("alias: decode yaml: %w", err)
	}
	return t, nil
}

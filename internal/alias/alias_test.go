package alias_test

import (
	"strings"
	"testing"

	"github.com/broistadev/broista/internal/alias"
)

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()

	r := alias.New(alias.Tables{
		Variations: map[string]string{
			"wc mocha":    "white mocha",
			"colon eagle": "golden eagle",
		},
		Unknown: map[string][]string{
			"not so hot": {"hot cocoa", "zero sugar added hot cocoa"},
		},
	})

	tests := []struct {
		name            string
		phrase          string
		wantCanonical   string
		wantExists      bool
		wantSuggestions int
	}{
		{
			name:          "variation hit",
			phrase:        "wc mocha",
			wantCanonical: "white mocha",
			wantExists:    true,
		},
		{
			name:          "case and whitespace insensitive",
			phrase:        "  Colon EAGLE ",
			wantCanonical: "golden eagle",
			wantExists:    true,
		},
		{
			name:            "known nonexistent product",
			phrase:          "not so hot",
			wantCanonical:   "not so hot",
			wantExists:      false,
			wantSuggestions: 2,
		},
		{
			name:          "miss passes the phrase through",
			phrase:        "caramel freeze",
			wantCanonical: "caramel freeze",
			wantExists:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			canonical, exists, suggestions := r.Resolve(tt.phrase)
			if canonical != tt.wantCanonical {
				t.Errorf("canonical=%q, want %q", canonical, tt.wantCanonical)
			}
			if exists != tt.wantExists {
				t.Errorf("exists=%v, want %v", exists, tt.wantExists)
			}
			if len(suggestions) != tt.wantSuggestions {
				t.Errorf("suggestions=%v, want %d entries", suggestions, tt.wantSuggestions)
			}
		})
	}
}

func TestResolver_KnownAbsent(t *testing.T) {
	t.Parallel()

	r := alias.New(alias.DefaultTables())

	alts, absent := r.KnownAbsent("NSH")
	if !absent {
		t.Fatal("KnownAbsent=false for a tabled phrase")
	}
	if len(alts) == 0 {
		t.Error("no suggested alternatives")
	}

	if _, absent := r.KnownAbsent("golden eagle"); absent {
		t.Error("KnownAbsent=true for a real product")
	}
}

func TestResolver_EmptyTables(t *testing.T) {
	t.Parallel()

	r := alias.New(alias.Tables{})

	canonical, exists, suggestions := r.Resolve("anything")
	if canonical != "anything" || !exists || suggestions != nil {
		t.Errorf("Resolve=(%q, %v, %v), want passthrough", canonical, exists, suggestions)
	}
}

func TestLoadTablesFromReader(t *testing.T) {
	t.Parallel()

	in := `
variations:
  rainbro: rainbow rebel
unknown:
  not so hot:
    - hot cocoa
`
	tables, err := alias.LoadTablesFromReader(strings.NewReader(in))
	if err != nil {
		t.Fatalf("LoadTablesFromReader returned error: %v", err)
	}
	if tables.Variations["rainbro"] != "rainbow rebel" {
		t.Errorf("Variations=%v, want rainbro mapped", tables.Variations)
	}
	if len(tables.Unknown["not so hot"]) != 1 {
		t.Errorf("Unknown=%v, want one suggestion", tables.Unknown)
	}
}

func TestLoadTablesFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()

	in := `
variations: {}
nicknames: {}
`
	if _, err := alias.LoadTablesFromReader(strings.NewReader(in)); err == nil {
		t.Fatal("LoadTablesFromReader accepted an unknown field")
	}
}

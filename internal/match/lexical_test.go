package match_test

import (
	"testing"

	"github.com/broistadev/broista/internal/match"
)

func TestLexicalScore_Bounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
	}{
		{"mocha", "mocha"},
		{"mocha", "white mocha"},
		{"golden eagle", "eagle golden"},
		{"", "anything"},
		{"completely", "different"},
	}

	for _, tt := range tests {
		got := match.LexicalScore(tt.a, tt.b)
		if got < 0 || got > 1 {
			t.Errorf("LexicalScore(%q, %q)=%v, want in [0, 1]", tt.a, tt.b, got)
		}
	}
}

func TestLexicalScore_IdenticalStrings(t *testing.T) {
	t.Parallel()

	if got := match.LexicalScore("golden eagle", "golden eagle"); got != 1 {
		t.Errorf("LexicalScore of identical strings=%v, want 1", got)
	}
}

func TestLexicalScore_WordOrderInsensitivity(t *testing.T) {
	t.Parallel()

	// Token sorting and the partial window keep reordered phrases close.
	reordered := match.LexicalScore("iced mocha", "mocha iced")
	unrelated := match.LexicalScore("iced mocha", "banana split")
	if reordered <= unrelated {
		t.Errorf("reordered score %v should beat unrelated score %v", reordered, unrelated)
	}
}

func TestLexicalScore_SubstringQuery(t *testing.T) {
	t.Parallel()

	// "mocha" is a substring of "white mocha"; the partial ratio should lift
	// it well above a non-overlapping name.
	contained := match.LexicalScore("mocha", "white mocha")
	disjoint := match.LexicalScore("mocha", "green tea")
	if contained <= disjoint {
		t.Errorf("contained score %v should beat disjoint score %v", contained, disjoint)
	}
	if contained < 0.5 {
		t.Errorf("contained score %v, want at least 0.5", contained)
	}
}

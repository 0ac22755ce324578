package match

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

// Lexical blend weights. The full-string ratio carries the most weight;
// partial and token-sort ratios recover matches on word-order swaps and
// phrases embedded in longer names.
const (
	weightRatio     = 0.4
	weightPartial   = 0.3
	weightTokenSort = 0.3
)

// LexicalScore blends three edit-distance ratios into a single [0, 1]
// similarity between the query and a product name.
func LexicalScore(query, name string) float64 {
	r := ratio(query, name)
	p := partialRatio(query, name)
	ts := tokenSortRatio(query, name)
	return weightRatio*r + weightPartial*p + weightTokenSort*ts
}

// ratio is edit-distance similarity normalised to [0, 1]: identical strings
// score 1.0, completely different strings approach 0.
func ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := max(len(a), len(b))
	if longest == 0 {
		return 1
	}
	d := matchr.Levenshtein(a, b)
	return 1 - float64(d)/float64(longest)
}

// partialRatio slides the shorter string across the longer one and returns
// the best windowed ratio, so "mocha" scores high against "white mocha".
func partialRatio(a, b string) float64 {
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 1
	}
	if len(short) == len(long) {
		return ratio(short, long)
	}

	best := 0.0
	for i := 0; i+len(short) <= len(long); i++ {
		if r := ratio(short, long[i:i+len(short)]); r > best {
			best = r
			if best == 1 {
				break
			}
		}
	}
	return best
}

// tokenSortRatio compares the two strings after sorting their words, making
// the score insensitive to word order ("mocha iced" vs "iced mocha").
func tokenSortRatio(a, b string) float64 {
	return ratio(sortTokens(a), sortTokens(b))
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

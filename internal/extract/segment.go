package extract

import (
	"regexp"
	"strings"
)

// sizeRule maps a word-boundary pattern to a canonical size.
type sizeRule struct {
	re   *regexp.Regexp
	size string
}

// tempRule maps a word-boundary pattern to a canonical temperature.
type tempRule struct {
	re   *regexp.Regexp
	temp string
}

// qtyRule maps a spoken quantity word to its count.
type qtyRule struct {
	re  *regexp.Regexp
	qty int
}

var (
	sizeRules = []sizeRule{
		{regexp.MustCompile(`\b(small|sm|sml)\b`), string(SizeSmall)},
		{regexp.MustCompile(`\b(medium|med|md)\b`), string(SizeMedium)},
		{regexp.MustCompile(`\b(large|lrg|lg)\b`), string(SizeLarge)},
		{regexp.MustCompile(`\b(kids?|kid size)\b`), string(SizeKids)},
	}

	tempRules = []tempRule{
		{regexp.MustCompile(`\b(hot)\b`), string(TempHot)},
		{regexp.MustCompile(`\b(iced|ice|cold)\b`), string(TempIced)},
		{regexp.MustCompile(`\b(blended|frozen|freeze)\b`), string(TempBlended)},
	}

	qtyRules = []qtyRule{
		{regexp.MustCompile(`\b(one|a|an)\b`), 1},
		{regexp.MustCompile(`\b(two|couple)\b`), 2},
		{regexp.MustCompile(`\b(three)\b`), 3},
		{regexp.MustCompile(`\b(four)\b`), 4},
		{regexp.MustCompile(`\b(five)\b`), 5},
	}

	// modifierPatterns are the customization phrases recognised without an
	// LLM: milk swaps, toppings, espresso tweaks, add-ins, ice and sweetness
	// levels, and blend texture.
	modifierPatterns = compileAll(
		"oat milk", "almond milk", "coconut milk",
		"chocolate milk", "breve", "half and half",
		"protein milk", "nonfat", "2% milk",
		"soft top", "whipped cream", "whip",
		"caramel drizzle", "chocolate drizzle",
		"extra shot", "double shot", "decaf",
		"boba", "pearls",
		"no ice", "light ice", "extra ice",
		"extra sweet", "less sweet", "no sugar",
		"double blended", "extra thick",
	)

	// productPatterns are recognised menu phrases, most specific first so the
	// longest match wins ("white chocolate mocha" before "mocha").
	productPatterns = compileAll(
		"golden eagle",
		"white chocolate mocha",
		"caramelizer",
		"rainbow rebel",
		"rainbro rebel",
		"rebel",
		"mocha",
		"latte",
		"freeze",
		"americano",
		"cold brew",
		"not so hot",
	)

	itemDelimiters = []*regexp.Regexp{
		regexp.MustCompile(`\s+and\s+(a|an|also)\s+`),
		regexp.MustCompile(`\s+also\s+`),
		regexp.MustCompile(`\s+and\s+`),
	}
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// skipWords are ignored when falling back to generic product-hint words.
var skipWords = map[string]struct{}{
	"i": {}, "a": {}, "an": {}, "the": {},
	"can": {}, "get": {}, "have": {}, "with": {}, "and": {},
}

// Segmenter extracts order candidates from raw transcript text using pattern
// rules only. It is the LLM-free extraction path: cheaper and fully
// deterministic, at the cost of recall on unusual phrasings.
//
// Segmenter is stateless and safe for concurrent use.
type Segmenter struct{}

// NewSegmenter returns a ready-to-use Segmenter.
func NewSegmenter() *Segmenter {
	return &Segmenter{}
}

// Extract splits the text into item segments and parses one candidate per
// segment. Segments yielding neither a product hint nor any modifier are
// discarded.
func (s *Segmenter) Extract(text string) []Candidate {
	lower := strings.ToLower(text)

	var out []Candidate
	for _, seg := range s.segments(lower) {
		c := Candidate{
			RawText:     seg,
			Size:        firstSizeMatch(seg),
			Temperature: firstTempMatch(seg),
			Modifiers:   modifierMatches(seg),
			Quantity:    quantityMatch(seg),
			Product:     productHint(seg),
		}
		if c.Product == "" && len(c.Modifiers) == 0 {
			continue
		}
		out = append(out, c)
	}
	return out
}

// segments splits the lowercased text on conjunctions that separate distinct
// items. Fragments shorter than three words are noise and dropped; when
// nothing survives, the whole text is treated as one segment.
func (s *Segmenter) segments(lower string) []string {
	const delim = " ||| "
	for _, re := range itemDelimiters {
		lower = re.ReplaceAllString(lower, delim)
	}

	var out []string
	for _, seg := range strings.Split(lower, "|||") {
		seg = strings.TrimSpace(seg)
		if len(strings.Fields(seg)) >= 3 {
			out = append(out, seg)
		}
	}
	if len(out) == 0 {
		return []string{strings.TrimSpace(lower)}
	}
	return out
}

func firstSizeMatch(seg string) string {
	for _, r := range sizeRules {
		if r.re.MatchString(seg) {
			return r.size
		}
	}
	return ""
}

func firstTempMatch(seg string) string {
	for _, r := range tempRules {
		if r.re.MatchString(seg) {
			return r.temp
		}
	}
	return ""
}

func modifierMatches(seg string) []string {
	var out []string
	for _, re := range modifierPatterns {
		if m := re.FindString(seg); m != "" {
			out = append(out, m)
		}
	}
	return out
}

func quantityMatch(seg string) int {
	for _, r := range qtyRules {
		if r.re.MatchString(seg) {
			return r.qty
		}
	}
	return 1
}

// productHint returns the first known menu phrase found in the segment, or a
// generic hint built from up to three meaningful words when no known phrase
// matches.
func productHint(seg string) string {
	for _, re := range productPatterns {
		if m := re.FindString(seg); m != "" {
			return m
		}
	}

	var meaningful []string
	for _, w := range strings.Fields(seg) {
		if _, skip := skipWords[w]; skip {
			continue
		}
		if len(w) > 2 {
			meaningful = append(meaningful, w)
		}
		if len(meaningful) == 3 {
			break
		}
	}
	return strings.Join(meaningful, " ")
}

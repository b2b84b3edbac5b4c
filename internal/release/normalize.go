package release

import (
	"regexp"
	"strings"
)

var (
	apostrophePattern    = regexp.MustCompile(`[''\x60\x{2018}\x{2019}\x{02BC}]`)
	specialCharsPattern  = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	multipleSpacePattern = regexp.MustCompile(`\s+`)
)

// NormalizeName converts a series name to its canonical comparison
// form: lowercase, apostrophes stripped, remaining punctuation turned
// into spaces, runs of whitespace collapsed. Apostrophes are removed
// rather than spaced out so "Schitt's Creek" and "Schitts Creek"
// normalize to the same string. The normalized form is also the
// natural key for series rows.
func NormalizeName(name string) string {
	normalized := strings.ToLower(name)
	normalized = apostrophePattern.ReplaceAllString(normalized, "")
	normalized = specialCharsPattern.ReplaceAllString(normalized, " ")
	normalized = multipleSpacePattern.ReplaceAllString(normalized, " ")
	return strings.TrimSpace(normalized)
}

// NamesMatch reports whether two series names are equal after
// normalization.
func NamesMatch(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}

// NameSimilarity computes the Jaccard similarity of the word sets of
// two names after normalization. Returns a value between 0.0 and 1.0.
func NameSimilarity(a, b string) float64 {
	wordsA := strings.Fields(NormalizeName(a))
	wordsB := strings.Fields(NormalizeName(b))

	if len(wordsA) == 0 && len(wordsB) == 0 {
		return 1.0
	}
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0.0
	}

	setA := make(map[string]bool, len(wordsA))
	for _, w := range wordsA {
		setA[w] = true
	}

	setB := make(map[string]bool, len(wordsB))
	for _, w := range wordsB {
		setB[w] = true
	}

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}

	union := len(setA)
	for w := range setB {
		if !setA[w] {
			union++
		}
	}

	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

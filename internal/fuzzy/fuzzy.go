// Package fuzzy provides edit-distance string similarity for typo-tolerant matching.
package fuzzy

import (
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

const (
	// MinLength is the shortest query term or candidate token compared fuzzily
	MinLength = 4
	// Threshold is the similarity a pair must reach before it contributes to a score
	Threshold = 0.7
	// Weight multiplies each qualifying similarity
	Weight = 5.0
)

// Levenshtein returns the classic edit distance between a and b, counting
// insertions, deletions and substitutions at cost 1 over runes
func Levenshtein(a, b string) int {
	return edlib.LevenshteinDistance(a, b)
}

// Similarity returns (maxLen - distance) / maxLen in [0,1]. Two empty strings are identical.
func Similarity(a, b string) float64 {
	la := utf8.RuneCountInString(a)
	lb := utf8.RuneCountInString(b)
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1.0
	}
	return float64(longest-Levenshtein(a, b)) / float64(longest)
}

// Eligible reports whether s is long enough to take part in fuzzy matching
func Eligible(s string) bool {
	return utf8.RuneCountInString(s) >= MinLength
}

// Score sums Weight*similarity over every (term, token) pair where both are eligible
// and the similarity reaches Threshold. A term matching several tokens counts each time.
func Score(terms, tokens []string) float64 {
	var total float64
	for _, term := range terms {
		if !Eligible(term) {
			continue
		}
		for _, tok := range tokens {
			if !Eligible(tok) {
				continue
			}
			if sim := Similarity(term, tok); sim >= Threshold {
				total += sim * Weight
			}
		}
	}
	return total
}

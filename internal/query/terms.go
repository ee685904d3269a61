package query

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// minTermLength is the shortest token kept as a term; shorter tokens are dropped
const minTermLength = 3

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {}, "you": {},
	"all": {}, "any": {}, "can": {}, "had": {}, "her": {}, "was": {}, "one": {},
	"our": {}, "out": {}, "has": {}, "have": {}, "this": {}, "that": {}, "with": {},
	"from": {}, "they": {}, "will": {}, "what": {}, "when": {}, "where": {}, "which": {},
	"who": {}, "how": {}, "your": {}, "into": {}, "about": {}, "their": {}, "there": {},
	"been": {}, "some": {}, "more": {}, "also": {}, "than": {}, "then": {}, "them": {},
	"these": {}, "those": {}, "such": {}, "only": {}, "show": {}, "find": {}, "want": {},
	"need": {}, "looking": {}, "get": {},
}

// IsStopword reports whether w is excluded from term extraction
func IsStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}

// stripPunctuation removes everything that is not a letter, digit, underscore or space
func stripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
}

// Tokens splits s into punctuation-free lowercase words, in order, without filtering
func Tokens(s string) []string {
	return strings.Fields(stripPunctuation(strings.ToLower(s)))
}

// Keywords returns the filtered unigrams of s in order: long enough and not stopwords
func Keywords(s string) []string {
	tokens := Tokens(s)
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) < minTermLength || IsStopword(tok) {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// ExtractTerms returns the de-duplicated union of the filtered unigrams of expanded
// and the bigrams of adjacent filtered unigrams. Order is first occurrence, unigrams first.
func ExtractTerms(expanded string) []string {
	words := Keywords(expanded)
	seen := make(map[string]struct{}, len(words)*2)
	terms := make([]string, 0, len(words)*2)
	add := func(t string) {
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		terms = append(terms, t)
	}
	for _, w := range words {
		add(w)
	}
	for i := 0; i+1 < len(words); i++ {
		add(words[i] + " " + words[i+1])
	}
	return terms
}

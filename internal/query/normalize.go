package query

import (
	"regexp"
	"strings"
)

// correction is a whole-word replacement for a common misspelling
type correction struct {
	wrong   string
	right   string
	pattern *regexp.Regexp
}

// misspellings maps frequent typos to their correct form. No correct form may itself
// appear as a misspelling, which keeps Normalize idempotent.
var misspellings = []struct{ wrong, right string }{
	{"scholership", "scholarship"},
	{"scholarshp", "scholarship"},
	{"schlarship", "scholarship"},
	{"scolarship", "scholarship"},
	{"scholorship", "scholarship"},
	{"scholerships", "scholarships"},
	{"hackaton", "hackathon"},
	{"hakathon", "hackathon"},
	{"hackathn", "hackathon"},
	{"hackatons", "hackathons"},
	{"workshp", "workshop"},
	{"wrokshop", "workshop"},
	{"internshp", "internship"},
	{"intership", "internship"},
	{"interships", "internships"},
	{"enginering", "engineering"},
	{"engg", "engineering"},
	{"programing", "programming"},
	{"goverment", "government"},
	{"govt", "government"},
	{"studnet", "student"},
	{"studnets", "students"},
	{"univercity", "university"},
	{"colege", "college"},
	{"fellowshp", "fellowship"},
	{"stipened", "stipend"},
	{"reserch", "research"},
	{"techonology", "technology"},
	{"scince", "science"},
	{"medcal", "medical"},
}

var corrections = compileCorrections()

func compileCorrections() []correction {
	out := make([]correction, 0, len(misspellings))
	for _, m := range misspellings {
		out = append(out, correction{
			wrong:   m.wrong,
			right:   m.right,
			pattern: regexp.MustCompile(`\b` + regexp.QuoteMeta(m.wrong) + `\b`),
		})
	}
	return out
}

// Normalize lowercases and trims raw, then applies whole-word spelling corrections.
// An empty result means the caller should skip scoring entirely.
func Normalize(raw string) string {
	q := strings.ToLower(strings.TrimSpace(raw))
	if q == "" {
		return ""
	}
	for _, c := range corrections {
		if !strings.Contains(q, c.wrong) {
			continue
		}
		q = c.pattern.ReplaceAllLiteralString(q, c.right)
	}
	return q
}

// Correct returns the corrected spelling of a single word, if the table knows it
func Correct(word string) (string, bool) {
	w := strings.ToLower(word)
	for _, c := range corrections {
		if c.wrong == w {
			return c.right, true
		}
	}
	return "", false
}

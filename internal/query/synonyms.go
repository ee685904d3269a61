package query

import "strings"

// SynonymEntry expands a key phrase into related phrases
type SynonymEntry struct {
	Key      string
	Synonyms []string
}

// Synonyms is the static expansion table. Keys match as substrings of the normalized query.
var Synonyms = []SynonymEntry{
	{"scholarship", []string{"grant", "financial aid", "fellowship", "bursary", "stipend"}},
	{"hackathon", []string{"coding competition", "hack", "codefest", "programming contest"}},
	{"workshop", []string{"training", "seminar", "bootcamp", "masterclass"}},
	{"internship", []string{"intern", "trainee", "apprenticeship", "work experience"}},
	{"engineering", []string{"btech", "technical", "technology"}},
	{"medical", []string{"mbbs", "healthcare", "medicine"}},
	{"women", []string{"girls", "female"}},
	{"government", []string{"official", "national", "central"}},
	{"coding", []string{"programming", "software", "developer"}},
	{"merit", []string{"topper", "academic excellence"}},
	{"research", []string{"fellowship", "phd", "project"}},
	{"startup", []string{"entrepreneurship", "innovation", "incubation"}},
	{"free", []string{"no fee", "unpaid"}},
	{"remote", []string{"online", "work from home", "virtual"}},
}

// Expand appends every synonym of every key contained in normalized.
// Original terms are never removed.
func Expand(normalized string) string {
	if normalized == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString(normalized)
	for _, entry := range Synonyms {
		if strings.Contains(normalized, entry.Key) {
			b.WriteByte(' ')
			b.WriteString(strings.Join(entry.Synonyms, " "))
		}
	}
	return b.String()
}

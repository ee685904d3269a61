package query

// Parsed holds every derived form of one raw query
type Parsed struct {
	Raw      string   // As typed by the user
	Original string   // Normalized, before synonym expansion; used for exact-phrase matching
	Expanded string   // Original plus synonyms; used for term extraction
	Terms    []string // Unigrams and bigrams from Expanded
	Keywords []string // Unigrams from Original; what the tracker learns from
}

// Empty reports whether the query normalized to nothing
func (p Parsed) Empty() bool {
	return p.Original == ""
}

// Parse normalizes, expands and tokenizes raw
func Parse(raw string) Parsed {
	original := Normalize(raw)
	if original == "" {
		return Parsed{Raw: raw}
	}
	expanded := Expand(original)
	return Parsed{
		Raw:      raw,
		Original: original,
		Expanded: expanded,
		Terms:    ExtractTerms(expanded),
		Keywords: Keywords(original),
	}
}

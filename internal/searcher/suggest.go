package searcher

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/eduportal/eduportal-search/internal/query"
	"github.com/eduportal/eduportal-search/pkg/types"
)

const (
	// MaxSuggestions caps the suggestion list
	MaxSuggestions = 8

	// MinSuggestLength is the shortest input that produces suggestions
	MinSuggestLength = 2
)

// suggestionSet collects distinct suggestions in insertion order, case-insensitively
type suggestionSet struct {
	seen  map[string]struct{}
	items []string
}

func newSuggestionSet() *suggestionSet {
	return &suggestionSet{seen: make(map[string]struct{})}
}

// add reports false once the set is full
func (s *suggestionSet) add(v string) bool {
	if len(s.items) >= MaxSuggestions {
		return false
	}
	key := strings.ToLower(strings.TrimSpace(v))
	if key == "" {
		return true
	}
	if _, ok := s.seen[key]; !ok {
		s.seen[key] = struct{}{}
		s.items = append(s.items, strings.TrimSpace(v))
	}
	return len(s.items) < MaxSuggestions
}

// Suggest returns up to MaxSuggestions completions for input, drawn in order from
// opportunity names and name words, synonym keys and phrases, and recent queries.
// An empty category draws names from every category. A known misspelling is
// completed as its corrected word.
func (s *Searcher) Suggest(ctx context.Context, input string, category types.Category) []string {
	q := strings.ToLower(strings.TrimSpace(input))
	if utf8.RuneCountInString(q) < MinSuggestLength {
		return []string{}
	}
	if fixed, ok := query.Correct(q); ok {
		q = fixed
	}

	categories := types.AllCategories
	if category != "" {
		if !category.Valid() {
			return []string{}
		}
		categories = []types.Category{category}
	}

	set := newSuggestionSet()
	if !s.suggestFromCatalog(ctx, q, categories, set) {
		return set.items
	}
	if !suggestFromSynonyms(q, set) {
		return set.items
	}
	for _, recent := range s.tracker.RecentQueries(category, MaxSuggestions*2) {
		if strings.Contains(strings.ToLower(recent), q) && !set.add(recent) {
			break
		}
	}
	return set.items
}

func (s *Searcher) suggestFromCatalog(ctx context.Context, q string, categories []types.Category, set *suggestionSet) bool {
	for _, c := range categories {
		for _, opp := range s.catalog.GetCategory(ctx, c) {
			name := strings.ToLower(opp.Name)
			if strings.Contains(name, q) {
				if !set.add(opp.Name) {
					return false
				}
				continue
			}
			for _, word := range query.Tokens(name) {
				if len(word) > 2 && strings.HasPrefix(word, q) {
					if !set.add(word) {
						return false
					}
				}
			}
		}
	}
	return true
}

func suggestFromSynonyms(q string, set *suggestionSet) bool {
	for _, entry := range query.Synonyms {
		if strings.Contains(entry.Key, q) {
			if !set.add(entry.Key) {
				return false
			}
		}
		for _, syn := range entry.Synonyms {
			if strings.Contains(syn, q) {
				if !set.add(syn) {
					return false
				}
			}
		}
	}
	return true
}

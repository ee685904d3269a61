package tracker

import (
	"github.com/eduportal/eduportal-search/pkg/types"
)

// Persisted-state keys
const (
	KeySearchHistory = "eduportal.searchHistory"
	KeyViewHistory   = "eduportal.viewHistory"
	KeyPreferences   = "eduportal.preferences"
	KeyViewWeights   = "eduportal.viewWeights"
	KeyClickThrough  = "eduportal.clickThrough"
	KeyFilterUsage   = "eduportal.filterUsage"
)

// History caps
const (
	MaxSearchHistory = 100
	MaxViewHistory   = 200
)

// PruneThreshold is the weight below which preference entries are dropped when
// storage is full
const PruneThreshold = 2

// CategoryPreferences counts what a user searches for within one category. Filter
// values are keyed "field:value".
type CategoryPreferences struct {
	Keywords map[string]int `json:"keywords"`
	Filters  map[string]int `json:"filters"`
}

func newCategoryPreferences() *CategoryPreferences {
	return &CategoryPreferences{
		Keywords: make(map[string]int),
		Filters:  make(map[string]int),
	}
}

// ClickStats aggregates clicks on one item
type ClickStats struct {
	Clicks      int     `json:"clicks"`
	Impressions int     `json:"impressions"`
	AvgPosition float64 `json:"avgPosition"`
}

// state is everything the tracker persists
type state struct {
	SearchHistory []Event
	ViewHistory   []Event
	Preferences   map[types.Category]*CategoryPreferences
	ViewWeights   map[types.Category]map[string]int
	ClickThrough  map[types.Category]map[string]*ClickStats
	FilterUsage   map[types.Category]map[string]map[string]int
}

func newState() *state {
	s := &state{
		SearchHistory: make([]Event, 0),
		ViewHistory:   make([]Event, 0),
	}
	s.fillDefaults()
	return s
}

// fillDefaults adds an empty entry for every category missing from the maps
func (s *state) fillDefaults() {
	if s.Preferences == nil {
		s.Preferences = make(map[types.Category]*CategoryPreferences)
	}
	if s.ViewWeights == nil {
		s.ViewWeights = make(map[types.Category]map[string]int)
	}
	if s.ClickThrough == nil {
		s.ClickThrough = make(map[types.Category]map[string]*ClickStats)
	}
	if s.FilterUsage == nil {
		s.FilterUsage = make(map[types.Category]map[string]map[string]int)
	}
	if s.SearchHistory == nil {
		s.SearchHistory = make([]Event, 0)
	}
	if s.ViewHistory == nil {
		s.ViewHistory = make([]Event, 0)
	}

	for _, c := range types.AllCategories {
		p := s.Preferences[c]
		if p == nil {
			p = newCategoryPreferences()
			s.Preferences[c] = p
		}
		if p.Keywords == nil {
			p.Keywords = make(map[string]int)
		}
		if p.Filters == nil {
			p.Filters = make(map[string]int)
		}
		if s.ViewWeights[c] == nil {
			s.ViewWeights[c] = make(map[string]int)
		}
		if s.ClickThrough[c] == nil {
			s.ClickThrough[c] = make(map[string]*ClickStats)
		}
		if s.FilterUsage[c] == nil {
			s.FilterUsage[c] = make(map[string]map[string]int)
		}
	}
}

// appendCapped appends e and drops the oldest entries beyond max
func appendCapped(log []Event, e Event, max int) []Event {
	log = append(log, e)
	if len(log) > max {
		trimmed := make([]Event, max)
		copy(trimmed, log[len(log)-max:])
		log = trimmed
	}
	return log
}

// prune shrinks the state after a quota failure: histories keep their newer half and
// low-weight preference entries are removed
func (s *state) prune() {
	s.SearchHistory = keepNewest(s.SearchHistory, MaxSearchHistory/2)
	s.ViewHistory = keepNewest(s.ViewHistory, MaxViewHistory/2)

	for _, p := range s.Preferences {
		dropBelow(p.Keywords, PruneThreshold)
		dropBelow(p.Filters, PruneThreshold)
	}
	for _, weights := range s.ViewWeights {
		dropBelow(weights, PruneThreshold)
	}
	for _, filters := range s.FilterUsage {
		for name, values := range filters {
			dropBelow(values, PruneThreshold)
			if len(values) == 0 {
				delete(filters, name)
			}
		}
	}
}

func keepNewest(log []Event, n int) []Event {
	if len(log) <= n {
		return log
	}
	kept := make([]Event, n)
	copy(kept, log[len(log)-n:])
	return kept
}

func dropBelow(m map[string]int, threshold int) {
	for k, v := range m {
		if v < threshold {
			delete(m, k)
		}
	}
}

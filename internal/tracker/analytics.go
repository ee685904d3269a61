package tracker

import (
	"math"

	"github.com/eduportal/eduportal-search/pkg/types"
)

// Engagement weights. Each component saturates at its cap so the total stays
// within 0..100.
const (
	searchComponentMax    = 30.0
	searchSaturation      = 50.0
	viewComponentMax      = 30.0
	viewSaturation        = 100.0
	categoryComponentMax  = 20.0
	diversityComponentMax = 20.0
)

// Analytics summarizes recorded activity
type Analytics struct {
	TotalSearches    int                    `json:"totalSearches"`
	TotalViews       int                    `json:"totalViews"`
	TopCategory      types.Category         `json:"topCategory"`
	SearchEfficiency int                    `json:"searchEfficiency"`
	EngagementScore  int                    `json:"engagementScore"`
	CategoryActivity map[types.Category]int `json:"categoryActivity"`
}

// Analytics computes the activity summary from the retained history logs
func (t *Tracker) Analytics() Analytics {
	t.mu.Lock()
	defer t.mu.Unlock()

	activity := make(map[types.Category]int, len(types.AllCategories))
	for _, c := range types.AllCategories {
		activity[c] = 0
	}
	for _, e := range t.state.SearchHistory {
		activity[e.Category]++
	}
	for _, e := range t.state.ViewHistory {
		activity[e.Category]++
	}

	var top types.Category
	best, distinct := 0, 0
	counts := make([]int, 0, len(types.AllCategories))
	for _, c := range types.AllCategories {
		n := activity[c]
		if n > 0 {
			distinct++
		}
		if n > best {
			best, top = n, c
		}
		counts = append(counts, n)
	}

	searches := len(t.state.SearchHistory)
	views := len(t.state.ViewHistory)
	return Analytics{
		TotalSearches:    searches,
		TotalViews:       views,
		TopCategory:      top,
		SearchEfficiency: SearchEfficiency(searches, views),
		EngagementScore:  EngagementScore(searches, views, distinct, Diversity(counts)),
		CategoryActivity: activity,
	}
}

// SearchEfficiency is the percentage of searches followed by a view, capped at 100
func SearchEfficiency(searches, views int) int {
	if searches <= 0 || views <= 0 {
		return 0
	}
	return int(math.Min(100, math.Round(100*float64(views)/float64(searches))))
}

// EngagementScore combines search volume, view volume, category coverage and the
// diversity of activity across categories into a 0..100 score
func EngagementScore(searches, views, distinctCategories int, diversity float64) int {
	score := saturate(float64(searches), searchSaturation)*searchComponentMax +
		saturate(float64(views), viewSaturation)*viewComponentMax +
		saturate(float64(distinctCategories), float64(len(types.AllCategories)))*categoryComponentMax +
		clamp01(diversity)*diversityComponentMax
	return int(math.Round(math.Max(0, math.Min(100, score))))
}

// Diversity is the normalized Shannon entropy of activity counts: 0 when activity
// sits in one category, 1 when it is spread evenly
func Diversity(counts []int) float64 {
	total := 0
	for _, n := range counts {
		if n > 0 {
			total += n
		}
	}
	if total == 0 || len(counts) < 2 {
		return 0
	}
	entropy := 0.0
	for _, n := range counts {
		if n <= 0 {
			continue
		}
		p := float64(n) / float64(total)
		entropy -= p * math.Log(p)
	}
	return clamp01(entropy / math.Log(float64(len(counts))))
}

func saturate(v, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return clamp01(v / max)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

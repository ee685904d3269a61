package scorer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduportal/eduportal-search/internal/query"
	"github.com/eduportal/eduportal-search/pkg/types"
)

var fixedNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

type stubProfile struct {
	items      map[string]int
	categories map[types.Category]int
}

func (p stubProfile) ItemViews(_ types.Category, id string) int { return p.items[id] }
func (p stubProfile) CategoryViews(category types.Category) int { return p.categories[category] }

func newTestScorer() *Scorer {
	return New(WithClock(func() time.Time { return fixedNow }))
}

func nsp() types.Opportunity {
	return types.Opportunity{
		ID:          "https://scholarships.gov.in",
		Name:        "National Scholarship Portal (NSP)",
		Description: "Central sector scholarships for SC, ST, OBC and minority students",
		Category:    types.CategoryScholarships,
		Priority:    types.IntPtr(1),
		URL:         "https://scholarships.gov.in",
	}
}

func TestScore_AcronymMatch(t *testing.T) {
	s := newTestScorer()
	q := FromParsed(query.Parse("NSP"), nil)

	b := s.Explain(nsp(), q, nil)

	assert.Equal(t, ExactNameBonus, b.ExactName)
	assert.Equal(t, 0.0, b.ExactDescription)
	assert.Equal(t, ExactFullTextBonus, b.ExactFullText)
	assert.Equal(t, TermNameBonus+TermWholeWordBonus, b.TermName)
	assert.Equal(t, PriorityBonus, b.Priority)
	assert.Greater(t, s.Score(nsp(), q, nil), 0.0)
}

func TestScore_NoOverlapIsZero(t *testing.T) {
	s := newTestScorer()
	opp := nsp()
	opp.DatePosted = types.TimePtr(fixedNow.Add(-24 * time.Hour))
	profile := stubProfile{
		items:      map[string]int{opp.ID: 10},
		categories: map[types.Category]int{types.CategoryScholarships: 25},
	}
	q := FromParsed(query.Parse("xyzxyz"), types.Filters{types.FilterCategory: "scholarships"})

	assert.Equal(t, 0.0, s.Score(opp, q, profile))
	assert.Equal(t, Breakdown{}, s.Explain(opp, q, profile))
}

func TestScore_ExactPhraseTiersAreNotExclusive(t *testing.T) {
	s := newTestScorer()
	opp := types.Opportunity{
		Name:        "Coding Bootcamp",
		Description: "Coding bootcamp for beginners",
		Category:    types.CategoryWorkshops,
		URL:         "https://example.org/bootcamp",
	}
	q := NewQuery("coding bootcamp", nil, nil)

	b := s.Explain(opp, q, nil)

	assert.Equal(t, ExactNameBonus, b.ExactName)
	assert.Equal(t, ExactDescriptionBonus, b.ExactDescription)
	assert.Equal(t, ExactFullTextBonus, b.ExactFullText)
	// "coding" is a hackathon keyword, "bootcamp" a workshop keyword
	assert.Equal(t, 2*CategoryKeywordWeight, b.Contextual)
	assert.Equal(t, 186.0, b.Total())
}

func TestScore_SynonymsDoNotInflateExactPhrase(t *testing.T) {
	s := newTestScorer()
	opp := types.Opportunity{
		Name:        "Merit Grant Financial Aid",
		Description: "Support for toppers",
		Category:    types.CategoryScholarships,
		URL:         "https://example.org/merit",
	}
	p := query.Parse("scholarship")
	require.Contains(t, p.Expanded, "grant financial aid")

	b := s.Explain(opp, FromParsed(p, nil), nil)

	assert.Equal(t, 0.0, b.ExactName)
	assert.Equal(t, 0.0, b.ExactFullText)
	assert.Greater(t, b.TermName, 0.0, "synonym terms still match")
}

func TestScore_WholeWordBonus(t *testing.T) {
	s := newTestScorer()
	q := NewQuery("", []string{"hack"}, nil)

	partial := types.Opportunity{Name: "Hackathon 2025", Category: types.CategoryHackathons, URL: "a"}
	whole := types.Opportunity{Name: "Hack Day", Category: types.CategoryHackathons, URL: "b"}

	assert.Equal(t, TermNameBonus, s.Explain(partial, q, nil).TermName)
	assert.Equal(t, TermNameBonus+TermWholeWordBonus, s.Explain(whole, q, nil).TermName)
}

func TestScore_DescriptionAndSourceTerms(t *testing.T) {
	s := newTestScorer()
	opp := types.Opportunity{
		Name:        "Summer Program",
		Description: "Paid research placement",
		Source:      "Indian Institute of Science",
		Category:    types.CategoryInternships,
		URL:         "https://iisc.ac.in/summer",
	}
	q := NewQuery("", []string{"research", "science"}, nil)

	b := s.Explain(opp, q, nil)
	assert.Equal(t, TermDescriptionBonus, b.TermDescription)
	assert.Equal(t, TermSourceBonus, b.TermSource)
	assert.Equal(t, 0.0, b.TermName)
}

func TestScore_PriorityPresence(t *testing.T) {
	s := newTestScorer()
	q := NewQuery("portal", []string{"portal"}, nil)

	tests := []struct {
		name     string
		priority *int
		want     float64
	}{
		{"absent", nil, 0},
		{"zero", types.IntPtr(0), 0},
		{"two", types.IntPtr(2), 0},
		{"official", types.IntPtr(1), PriorityBonus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opp := types.Opportunity{Name: "Portal", Category: types.CategoryScholarships, URL: "x", Priority: tt.priority}
			assert.Equal(t, tt.want, s.Explain(opp, q, nil).Priority)
		})
	}
}

func TestScore_Recency(t *testing.T) {
	s := newTestScorer()
	q := NewQuery("portal", []string{"portal"}, nil)

	tests := []struct {
		name   string
		posted *time.Time
		want   float64
	}{
		{"missing", nil, 0},
		{"today", types.TimePtr(fixedNow), 30},
		{"ten days", types.TimePtr(fixedNow.Add(-10 * 24 * time.Hour)), 20},
		{"partial day rounds down", types.TimePtr(fixedNow.Add(-36 * time.Hour)), 29},
		{"twenty nine days", types.TimePtr(fixedNow.Add(-29 * 24 * time.Hour)), 1},
		{"thirty days", types.TimePtr(fixedNow.Add(-30 * 24 * time.Hour)), 0},
		{"old", types.TimePtr(fixedNow.AddDate(-1, 0, 0)), 0},
		{"future", types.TimePtr(fixedNow.Add(48 * time.Hour)), 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opp := types.Opportunity{Name: "Portal", Category: types.CategoryWorkshops, URL: "x", DatePosted: tt.posted}
			assert.Equal(t, tt.want, s.Explain(opp, q, nil).Recency)
		})
	}
}

func TestScore_Filters(t *testing.T) {
	s := newTestScorer()
	opp := nsp()
	opp.Source = "Ministry of Education"

	matching := FromParsed(query.Parse("nsp"), types.Filters{
		types.FilterSource:   "Ministry of Education",
		types.FilterPriority: "1",
	})
	mismatched := FromParsed(query.Parse("nsp"), types.Filters{types.FilterSource: "Someone Else"})

	assert.Equal(t, 2*FilterMatchBonus, s.Explain(opp, matching, nil).Filters)
	assert.Equal(t, 0.0, s.Explain(opp, mismatched, nil).Filters)
}

func TestScore_Preference(t *testing.T) {
	s := newTestScorer()
	opp := nsp()
	profile := stubProfile{
		items:      map[string]int{opp.ID: 3},
		categories: map[types.Category]int{types.CategoryScholarships: 7},
	}
	q := FromParsed(query.Parse("nsp"), nil)

	assert.Equal(t, 2*3.0+7.0, s.Explain(opp, q, profile).Preference)
	assert.Equal(t, s.Score(opp, q, nil)+13.0, s.Score(opp, q, profile))
}

func TestScore_FuzzyTypo(t *testing.T) {
	s := newTestScorer()
	opp := types.Opportunity{Name: "Smart India Hackathon", Category: types.CategoryHackathons, URL: "https://sih.gov.in"}
	q := NewQuery("", []string{"hackthon"}, nil)

	b := s.Explain(opp, q, nil)
	assert.Equal(t, 0.0, b.TermName)
	assert.Greater(t, b.Fuzzy, 0.0)
}

func TestScore_QueryLiteral(t *testing.T) {
	s := newTestScorer()
	opp := types.Opportunity{Name: "NSP portal", Category: types.CategoryScholarships, URL: "a"}

	literal := &Query{Original: "NSP", Terms: []string{"nsp"}}
	require.NotPanics(t, func() { s.Score(opp, literal, nil) })

	b := s.Explain(opp, literal, nil)
	assert.Equal(t, ExactNameBonus, b.ExactName)
	assert.Equal(t, TermNameBonus+TermWholeWordBonus, b.TermName)
}

func TestScore_TermsChangedAfterNewQuery(t *testing.T) {
	s := newTestScorer()
	opp := types.Opportunity{Name: "Hack Day portal", Category: types.CategoryHackathons, URL: "a"}

	q := NewQuery("", []string{"hack"}, nil)
	q.Terms = append(q.Terms, "portal")
	require.NotPanics(t, func() { s.Score(opp, q, nil) })
	assert.Equal(t, 2*(TermNameBonus+TermWholeWordBonus), s.Explain(opp, q, nil).TermName)

	// A replaced term must not reuse the old term's pattern
	q.Terms[0] = "day"
	q.Terms = q.Terms[:1]
	assert.Equal(t, TermNameBonus+TermWholeWordBonus, s.Explain(opp, q, nil).TermName)
}

func TestScore_NilQuery(t *testing.T) {
	assert.Equal(t, 0.0, newTestScorer().Score(nsp(), nil, nil))
}

func TestDaysAgo(t *testing.T) {
	assert.Equal(t, 0, DaysAgo(fixedNow, fixedNow))
	assert.Equal(t, 1, DaysAgo(fixedNow.Add(-25*time.Hour), fixedNow))
	assert.Equal(t, 0, DaysAgo(fixedNow.Add(time.Hour), fixedNow))
}

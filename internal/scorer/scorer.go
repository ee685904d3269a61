package scorer

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/eduportal/eduportal-search/internal/fuzzy"
	"github.com/eduportal/eduportal-search/internal/query"
	"github.com/eduportal/eduportal-search/pkg/types"
)

// Signal weights
const (
	ExactNameBonus        = 100.0
	ExactDescriptionBonus = 50.0
	ExactFullTextBonus    = 30.0
	TermNameBonus         = 25.0
	TermWholeWordBonus    = 10.0
	TermDescriptionBonus  = 10.0
	TermSourceBonus       = 15.0
	PriorityBonus         = 20.0
	CategoryKeywordWeight = 3.0
	FilterMatchBonus      = 30.0
	ItemViewWeight        = 2.0
	CategoryViewWeight    = 1.0
	RecencyWindowDays     = 30
)

// CategoryKeywords are the contextual vocabularies of each category
var CategoryKeywords = map[types.Category][]string{
	types.CategoryScholarships: {"scholarship", "grant", "financial", "fellowship", "merit", "stipend", "education", "tuition"},
	types.CategoryHackathons:   {"hackathon", "coding", "competition", "hack", "innovation", "developer", "prize", "challenge"},
	types.CategoryWorkshops:    {"workshop", "training", "seminar", "learn", "skill", "bootcamp", "course", "certification"},
	types.CategoryInternships:  {"internship", "intern", "experience", "industry", "company", "trainee", "placement", "job"},
}

// Profile supplies the personalization counters the preference boost reads
type Profile interface {
	ItemViews(category types.Category, itemID string) int
	CategoryViews(category types.Category) int
}

// Query is a prepared query: the pre-expansion phrase, its terms and the filters.
// Whole-word patterns are compiled once in NewQuery rather than per candidate.
type Query struct {
	Original string
	Terms    []string
	Filters  types.Filters

	wordPatterns []*regexp.Regexp
}

// NewQuery prepares terms for scoring
func NewQuery(original string, terms []string, filters types.Filters) *Query {
	q := &Query{
		Original:     strings.ToLower(original),
		Terms:        terms,
		Filters:      filters,
		wordPatterns: make([]*regexp.Regexp, len(terms)),
	}
	for i, term := range terms {
		q.wordPatterns[i] = compileWordPattern(term)
	}
	return q
}

// wordPattern returns the whole-word pattern for Terms[i]. Queries built as
// literals, or whose Terms changed after NewQuery, get a fresh pattern; the
// cache is never written here so a Query can be scored concurrently.
func (q *Query) wordPattern(i int) *regexp.Regexp {
	if i < len(q.wordPatterns) {
		if p := q.wordPatterns[i]; p != nil && p.String() == wordPatternSource(q.Terms[i]) {
			return p
		}
	}
	return compileWordPattern(q.Terms[i])
}

func wordPatternSource(term string) string {
	return `\b` + regexp.QuoteMeta(term) + `\b`
}

func compileWordPattern(term string) *regexp.Regexp {
	return regexp.MustCompile(wordPatternSource(term))
}

// FromParsed prepares a query from a parsed search string
func FromParsed(p query.Parsed, filters types.Filters) *Query {
	return NewQuery(p.Original, p.Terms, filters)
}

// Breakdown is the contribution of each signal to a score
type Breakdown struct {
	ExactName        float64 `json:"exact_name"`
	ExactDescription float64 `json:"exact_description"`
	ExactFullText    float64 `json:"exact_full_text"`
	TermName         float64 `json:"term_name"`
	TermDescription  float64 `json:"term_description"`
	TermSource       float64 `json:"term_source"`
	Fuzzy            float64 `json:"fuzzy"`

	Priority   float64 `json:"priority"`
	Contextual float64 `json:"contextual"`
	Filters    float64 `json:"filters"`
	Preference float64 `json:"preference"`
	Recency    float64 `json:"recency"`
}

// Relevance is the sum of the query-dependent signals
func (b Breakdown) Relevance() float64 {
	return b.ExactName + b.ExactDescription + b.ExactFullText +
		b.TermName + b.TermDescription + b.TermSource + b.Fuzzy
}

// Boosts is the sum of the query-independent signals
func (b Breakdown) Boosts() float64 {
	return b.Priority + b.Contextual + b.Filters + b.Preference + b.Recency
}

// Total is the final score
func (b Breakdown) Total() float64 {
	return b.Relevance() + b.Boosts()
}

// Scorer computes relevance scores. It holds no per-query state and is safe for
// concurrent use.
type Scorer struct {
	now func() time.Time
}

// Option configures a Scorer
type Option func(*Scorer)

// WithClock sets the time source used for recency
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		s.now = now
	}
}

// New creates a Scorer
func New(opts ...Option) *Scorer {
	s := &Scorer{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score returns the total relevance of candidate for q; 0 means excluded
func (s *Scorer) Score(candidate types.Opportunity, q *Query, profile Profile) float64 {
	return s.Explain(candidate, q, profile).Total()
}

// Explain returns the per-signal breakdown of candidate's score for q.
// Boost signals are left at zero unless the relevance signals are positive.
func (s *Scorer) Explain(candidate types.Opportunity, q *Query, profile Profile) Breakdown {
	var b Breakdown
	if q == nil {
		return b
	}

	name := strings.ToLower(candidate.Name)
	description := strings.ToLower(candidate.Description)
	source := strings.ToLower(candidate.Source)
	fullText := strings.ToLower(candidate.FullText())

	if original := strings.ToLower(q.Original); original != "" {
		if strings.Contains(name, original) {
			b.ExactName = ExactNameBonus
		}
		if strings.Contains(description, original) {
			b.ExactDescription = ExactDescriptionBonus
		}
		if strings.Contains(fullText, original) {
			b.ExactFullText = ExactFullTextBonus
		}
	}

	for i, term := range q.Terms {
		if strings.Contains(name, term) {
			b.TermName += TermNameBonus
			if q.wordPattern(i).MatchString(name) {
				b.TermName += TermWholeWordBonus
			}
		}
		if strings.Contains(description, term) {
			b.TermDescription += TermDescriptionBonus
		}
		if source != "" && strings.Contains(source, term) {
			b.TermSource += TermSourceBonus
		}
	}

	b.Fuzzy = fuzzy.Score(q.Terms, query.Tokens(fullText))

	if b.Relevance() <= 0 {
		return Breakdown{}
	}

	if candidate.IsOfficial() {
		b.Priority = PriorityBonus
	}
	b.Contextual = contextualScore(fullText)
	b.Filters = filterScore(candidate, q.Filters)
	b.Preference = preferenceScore(candidate, profile)
	b.Recency = recencyScore(candidate, s.now())

	return b
}

// Recency returns the recency boost of candidate at the scorer's current time
func (s *Scorer) Recency(candidate types.Opportunity) float64 {
	return recencyScore(candidate, s.now())
}

// contextualScore counts category keywords present in text, across all categories
func contextualScore(text string) float64 {
	var total float64
	for _, category := range types.AllCategories {
		matches := 0
		for _, kw := range CategoryKeywords[category] {
			if strings.Contains(text, kw) {
				matches++
			}
		}
		total += float64(matches) * CategoryKeywordWeight
	}
	return total
}

func filterScore(candidate types.Opportunity, filters types.Filters) float64 {
	var total float64
	for field, want := range filters {
		if got, ok := candidate.Field(field); ok && got == want {
			total += FilterMatchBonus
		}
	}
	return total
}

func preferenceScore(candidate types.Opportunity, profile Profile) float64 {
	if profile == nil {
		return 0
	}
	return ItemViewWeight*float64(profile.ItemViews(candidate.Category, candidate.ID)) +
		CategoryViewWeight*float64(profile.CategoryViews(candidate.Category))
}

// recencyScore rewards opportunities posted within the recency window
func recencyScore(candidate types.Opportunity, now time.Time) float64 {
	if candidate.DatePosted == nil {
		return 0
	}
	days := DaysAgo(*candidate.DatePosted, now)
	if days >= RecencyWindowDays {
		return 0
	}
	return float64(RecencyWindowDays - days)
}

// DaysAgo returns whole days between t and now, never negative
func DaysAgo(t, now time.Time) int {
	d := now.Sub(t)
	if d < 0 {
		return 0
	}
	return int(math.Floor(d.Hours() / 24))
}

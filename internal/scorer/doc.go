// Package scorer computes a deterministic, explainable relevance score for one
// (query, opportunity) pair.
//
// # Basic Usage
//
//	p := query.Parse("nsp scholarship")
//	q := scorer.NewQuery(p.Original, p.Terms, filters)
//	s := scorer.New()
//
//	score := s.Score(opp, q, profile)
//	breakdown := s.Explain(opp, q, profile)
//
// A score of exactly 0 excludes the opportunity from results.
//
// # Signals
//
// Relevance signals depend on the query text:
//
//	exact phrase in name          +100
//	exact phrase in description    +50
//	exact phrase in full text      +30   (tiers are not exclusive)
//	term in name                   +25, +10 more on a whole-word match
//	term in description            +10
//	term in source                 +15
//	fuzzy                          5 * similarity per term/token pair >= 0.7
//
// Boost signals are added only when the relevance signals are positive:
//
//	official priority              +20
//	category keywords              3 per keyword found, all four categories
//	filter match                   +30 per matching filter field
//	preference                     2 per view of the item, 1 per view of its category
//	recency                        30 - daysAgo when posted less than 30 days ago
package scorer

// Package searcher ranks catalog opportunities against free-text queries.
//
// A search normalizes and spell-corrects the query, expands synonyms, extracts
// unigram and bigram terms, scores every candidate of the category and returns
// those with a positive score, highest first. Equal scores keep catalog order.
//
// # Basic Usage
//
//	s := searcher.New(catalog, searcher.WithTracker(tr))
//
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    Category: types.CategoryScholarships,
//	    Query:    "engineering scholership for girls",
//	    Limit:    10,
//	})
//
//	for _, r := range resp.Results {
//	    fmt.Printf("[%d] %s (score: %.0f)\n", r.Rank, r.Name, r.Score)
//	}
//
// # Blank Queries
//
// A blank query returns the category listing in catalog order without scoring,
// caching or recording a search.
//
// # Caching
//
// Each category has its own result cache keyed by the lowercased raw query.
// Entries expire after five minutes and the oldest insertion is evicted when the
// cache is full. Searches with filters bypass the cache. A cache hit returns the
// stored ranking and does not record another search interaction.
//
// # Personalization
//
// The tracker supplies view counts to the scorer, so items and categories a user
// has viewed rank higher among relevant results. Views never make an irrelevant
// item appear.
//
// # Other Entry Points
//
//   - SearchAll: one query across every category, run concurrently
//   - Suggest: up to eight completions from names, synonyms and recent queries
//   - Recommend: engagement-ranked items of a category
//   - Trending: the remote trending feed, with last-good fallback
//   - Typeahead: debounced search while a query is typed; the last call wins
package searcher

package types

// ScoredResult is an opportunity with its relevance score for one search response
type ScoredResult struct {
	Opportunity

	// Scoring
	Score float64 `json:"score"` // Raw additive score, not normalized
	Rank  int     `json:"rank"`  // Position in result set (1-based)
}

// Validate checks if the scored result is valid
func (sr *ScoredResult) Validate() error {
	if sr.Score < 0 {
		return ErrInvalidScore
	}
	if sr.Rank < 1 {
		return ErrInvalidRank
	}
	return sr.Opportunity.Validate()
}

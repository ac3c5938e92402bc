// Package optimization provides shared data structures for optimization results.
package optimization

// Summary captures the result of a single markup search.
type Summary struct {
	Batch            string   `json:"batch"`
	Goal             string   `json:"goal"`
	Strategy         string   `json:"strategy"`
	OriginalMarkup   float64  `json:"originalMarkup"`
	Markup           float64  `json:"markup"`
	SuggestedPrice   float64  `json:"suggestedPrice"`
	MinimumSafePrice float64  `json:"minimumSafePrice"`
	ProfitPerBatch   float64  `json:"profitPerBatch"`
	TargetProfit     float64  `json:"targetProfit,omitempty"`
	Headroom         float64  `json:"headroom"`
	Iterations       int      `json:"iterations"`
	Converged        bool     `json:"converged"`
	Notes            []string `json:"notes,omitempty"`
}

// Changed reports whether the search moved the markup away from the
// configured value.
func (s Summary) Changed() bool {
	diff := s.Markup - s.OriginalMarkup
	return diff > 1e-9 || diff < -1e-9
}

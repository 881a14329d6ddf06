// Package pricing implements the demand-driven dynamic pricing engine:
// demand scoring, the rule-based and learned prediction strategies, and the
// coordinator that applies price updates and writes the audit trail.
package pricing

// DemandScorer computes a dimensionless demand signal from current vs. prior
// period sales. 1.0 is neutral; >1.0 growing demand, <1.0 shrinking.
type DemandScorer struct{}

// NewDemandScorer creates a new demand scorer
func NewDemandScorer() *DemandScorer {
	return &DemandScorer{}
}

// Score returns weeklySales / lastWeekSales as a float with no rounding.
// A zero baseline means "no signal", not "zero demand", so it scores 1.0.
// The result is unclamped; bursty data can produce arbitrarily large ratios
// and callers must not assume a bounded range. Inputs are non-negative by
// caller contract (validated at the product-state boundary).
func (s *DemandScorer) Score(weeklySales, lastWeekSales int) float64 {
	if lastWeekSales == 0 {
		return 1.0
	}
	return float64(weeklySales) / float64(lastWeekSales)
}

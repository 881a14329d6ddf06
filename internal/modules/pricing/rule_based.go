package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/pricewise/pricewise/internal/domain"
)

// Sales-to-step conversion rates for the high and low demand regimes:
// one price step per 5 sales above the high threshold, one per 3 sales of
// deficit below the low threshold.
const (
	salesPerStepUp   = 5
	salesPerStepDown = 3
)

// Moderate-regime breakpoints on the demand score.
var (
	demandScoreHigh = 1.2
	demandScoreLow  = 0.8
	two             = decimal.NewFromInt(2)
)

// RuleBasedStrategy applies step-wise price adjustments across three demand
// regimes. The regime is selected by raw weekly sales against the product's
// step-logic thresholds; the demand score only breaks ties in the moderate
// regime. Both boundaries are exclusive: weekly sales exactly equal to a
// threshold fall into the moderate regime.
type RuleBasedStrategy struct{}

// NewRuleBasedStrategy creates a new rule-based pricing strategy
func NewRuleBasedStrategy() *RuleBasedStrategy {
	return &RuleBasedStrategy{}
}

// Predict returns the step-adjusted candidate price, clamped to
// [base_price, max_price]. All monetary arithmetic is fixed-point.
func (s *RuleBasedStrategy) Predict(p *domain.Product, demandScore float64) (decimal.Decimal, error) {
	current := p.EffectivePrice()
	step := p.PriceAdjustmentStep

	var newPrice decimal.Decimal

	switch {
	case p.WeeklySales > p.DemandThresholdHigh:
		// High demand: raise in steps, capped to remaining headroom.
		steps := ceilDiv(p.WeeklySales-p.DemandThresholdHigh, salesPerStepUp)
		headroom := p.MaxPrice.Sub(current)
		adjustment := decimal.Min(step.Mul(decimal.NewFromInt(int64(steps))), headroom)
		newPrice = current.Add(adjustment)

	case p.WeeklySales < p.DemandThresholdLow:
		// Low demand: cut in steps, capped to the room above base price.
		deficit := p.DemandThresholdLow - p.WeeklySales
		steps := ceilDiv(deficit, salesPerStepDown)
		downsideRoom := current.Sub(p.BasePrice)
		adjustment := decimal.Min(step.Mul(decimal.NewFromInt(int64(steps))), downsideRoom)
		newPrice = current.Sub(adjustment)

	default:
		// Moderate demand: fine adjustment of half a step, driven by the
		// demand-score trend rather than raw sales.
		switch {
		case demandScore > demandScoreHigh:
			newPrice = current.Add(step.Div(two))
		case demandScore < demandScoreLow:
			newPrice = current.Sub(step.Div(two))
		default:
			newPrice = current
		}
	}

	// Authoritative clamp, independent of the per-regime caps.
	return p.ClampPrice(newPrice), nil
}

// ceilDiv is ceiling division on non-negative integers
func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

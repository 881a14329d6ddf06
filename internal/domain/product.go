// Package domain provides the core product pricing model.
//
// Product is the single pricing-state type used throughout the system: the
// catalog repository hydrates it, the pricing strategies read it, and the
// coordinator persists the new selling price back. Monetary fields are
// fixed-point decimals; binary floating point is never used for money.
package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product represents the pricing state of a single catalog product.
type Product struct {
	ID    string `json:"id"`
	Title string `json:"title"`

	// Pricing bounds and state. Invariant: BasePrice <= SellingPrice <= MaxPrice.
	BasePrice           decimal.Decimal `json:"base_price"`
	MaxPrice            decimal.Decimal `json:"max_price"`
	SellingPrice        decimal.Decimal `json:"selling_price"`
	PriceAdjustmentStep decimal.Decimal `json:"price_adjustment_step"`

	// StockCount is free-form text from upstream inventory feeds.
	// Unparseable values are treated as zero stock, never as an error.
	StockCount string `json:"stock_count"`
	InStock    bool   `json:"in_stock"`

	WeeklySales   int `json:"weekly_sales"`
	LastWeekSales int `json:"last_week_sales"`

	// Step-logic breakpoints: sales counts that select the pricing regime.
	DemandThresholdHigh int `json:"demand_threshold_high"`
	DemandThresholdLow  int `json:"demand_threshold_low"`

	// Display-only breakpoints used by the analytics dashboard. These are
	// intentionally distinct from the step-logic thresholds above.
	DemandHigh int `json:"demand_high"`
	DemandLow  int `json:"demand_low"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EffectivePrice returns the current price used for prediction: the selling
// price, or the base price if the selling price was never set.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.SellingPrice.IsZero() {
		return p.BasePrice
	}
	return p.SellingPrice
}

// StockCountInt parses the free-form stock count, returning 0 for anything
// unparseable (matching upstream feed semantics).
func (p *Product) StockCountInt() int {
	s := strings.TrimSpace(p.StockCount)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Validate checks the product state contract before any price computation.
// Violations here are caller bugs, not conditions to clamp or repair, so the
// engine fails fast with a descriptive error.
func (p *Product) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("product has no ID")
	}
	if p.MaxPrice.LessThan(p.BasePrice) {
		return fmt.Errorf("product %s: max_price %s is below base_price %s",
			p.ID, p.MaxPrice, p.BasePrice)
	}
	if p.PriceAdjustmentStep.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("product %s: price_adjustment_step %s must be positive",
			p.ID, p.PriceAdjustmentStep)
	}
	if p.WeeklySales < 0 {
		return fmt.Errorf("product %s: weekly_sales %d is negative", p.ID, p.WeeklySales)
	}
	if p.LastWeekSales < 0 {
		return fmt.Errorf("product %s: last_week_sales %d is negative", p.ID, p.LastWeekSales)
	}
	if p.DemandThresholdHigh <= p.DemandThresholdLow {
		return fmt.Errorf("product %s: demand_threshold_high %d must exceed demand_threshold_low %d",
			p.ID, p.DemandThresholdHigh, p.DemandThresholdLow)
	}
	return nil
}

// ClampPrice clips a candidate price into [BasePrice, MaxPrice]. This is the
// authoritative bound applied after every prediction regardless of strategy.
func (p *Product) ClampPrice(price decimal.Decimal) decimal.Decimal {
	if price.LessThan(p.BasePrice) {
		return p.BasePrice
	}
	if price.GreaterThan(p.MaxPrice) {
		return p.MaxPrice
	}
	return price
}

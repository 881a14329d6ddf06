package pricing

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/pricewise/pricewise/internal/domain"
)

// Strategy produces a candidate selling price for a product given its current
// state and demand score. Implementations must return a price already clamped
// into [base_price, max_price] so callers can treat them interchangeably.
type Strategy interface {
	Predict(p *domain.Product, demandScore float64) (decimal.Decimal, error)
}

// FallbackStrategy dispatches to a primary strategy and absorbs any failure
// by delegating to a fallback. Selection logic lives only here so each
// strategy stays independently testable.
type FallbackStrategy struct {
	primary  Strategy
	fallback Strategy
	log      zerolog.Logger
}

// NewFallbackStrategy creates a dispatcher that prefers primary and falls
// back on any error. The fallback itself is not allowed to fail silently;
// its error (if any) is returned.
func NewFallbackStrategy(primary, fallback Strategy, log zerolog.Logger) *FallbackStrategy {
	return &FallbackStrategy{
		primary:  primary,
		fallback: fallback,
		log:      log.With().Str("component", "strategy_dispatch").Logger(),
	}
}

// Predict tries the primary strategy and falls back on any failure.
// Primary failures are logged for observability and never surfaced.
func (f *FallbackStrategy) Predict(p *domain.Product, demandScore float64) (decimal.Decimal, error) {
	price, err := f.primary.Predict(p, demandScore)
	if err == nil {
		return price, nil
	}

	f.log.Warn().
		Err(err).
		Str("product_id", p.ID).
		Msg("Primary strategy failed, falling back")

	return f.fallback.Predict(p, demandScore)
}

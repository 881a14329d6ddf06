package history

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pricewise/pricewise/internal/domain"
)

// ProductSource defines the catalog operations the rollup needs
type ProductSource interface {
	GetAll() ([]domain.Product, error)
	RotateSalesCounters(id string) error
}

// DemandScorer computes the demand signal recorded on each snapshot
type DemandScorer interface {
	Score(weeklySales, lastWeekSales int) float64
}

// RollupService snapshots every product's weekly sales state into the
// history store and rotates the weekly counters. It runs on its own periodic
// schedule, decoupled from price updates: the coordinator never writes
// history, and the rollup never touches prices.
type RollupService struct {
	products ProductSource
	store    *Repository
	scorer   DemandScorer
	log      zerolog.Logger
}

// NewRollupService creates a new history rollup service
func NewRollupService(products ProductSource, store *Repository, scorer DemandScorer, log zerolog.Logger) *RollupService {
	return &RollupService{
		products: products,
		store:    store,
		scorer:   scorer,
		log:      log.With().Str("service", "history_rollup").Logger(),
	}
}

// Run appends one snapshot per product, then shifts weekly_sales into
// last_week_sales and resets the current week. Per-product failures are
// isolated; the rollup continues and reports the first error at the end.
func (s *RollupService) Run() error {
	products, err := s.products.GetAll()
	if err != nil {
		return fmt.Errorf("failed to list products for rollup: %w", err)
	}

	var firstErr error
	snapshots := 0

	for _, p := range products {
		score := s.scorer.Score(p.WeeklySales, p.LastWeekSales)

		err := s.store.Append(Record{
			ProductID:    p.ID,
			WeeklySales:  p.WeeklySales,
			SellingPrice: p.EffectivePrice(),
			StockCount:   p.StockCountInt(),
			DemandScore:  score,
		})
		if err != nil {
			s.log.Error().Err(err).Str("product_id", p.ID).Msg("Failed to snapshot product")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		// Rotation happens only after the snapshot landed, so a failed
		// snapshot never loses a week of sales data.
		if err := s.products.RotateSalesCounters(p.ID); err != nil {
			s.log.Error().Err(err).Str("product_id", p.ID).Msg("Failed to rotate sales counters")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		snapshots++
	}

	s.log.Info().
		Int("snapshots", snapshots).
		Int("products", len(products)).
		Msg("History rollup complete")

	return firstErr
}

// Package export produces the tabular pricing dump for offline analysis.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/pricewise/pricewise/internal/domain"
)

// ProductSource supplies the products to export
type ProductSource interface {
	GetAll() ([]domain.Product, error)
}

// DemandScorer computes the demand score column
type DemandScorer interface {
	Score(weeklySales, lastWeekSales int) float64
}

// Columns is the exact export column order. Downstream tooling depends on
// this order; do not reorder.
var Columns = []string{
	"Product", "Base Price", "Max Price", "Current Price",
	"Weekly Sales", "Last Week Sales", "Demand Score", "Stock",
}

// Service writes the row-per-product pricing dump
type Service struct {
	products ProductSource
	scorer   DemandScorer
	log      zerolog.Logger
}

// NewService creates a new export service
func NewService(products ProductSource, scorer DemandScorer, log zerolog.Logger) *Service {
	return &Service{
		products: products,
		scorer:   scorer,
		log:      log.With().Str("service", "export").Logger(),
	}
}

// WriteCSV streams the full pricing dump to w
func (s *Service) WriteCSV(w io.Writer) error {
	products, err := s.products.GetAll()
	if err != nil {
		return fmt.Errorf("failed to list products for export: %w", err)
	}

	cw := csv.NewWriter(w)

	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}

	for _, p := range products {
		score := s.scorer.Score(p.WeeklySales, p.LastWeekSales)

		row := []string{
			p.Title,
			p.BasePrice.String(),
			p.MaxPrice.String(),
			p.SellingPrice.String(),
			strconv.Itoa(p.WeeklySales),
			strconv.Itoa(p.LastWeekSales),
			strconv.FormatFloat(score, 'f', -1, 64),
			p.StockCount,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write export row for %s: %w", p.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush export: %w", err)
	}

	s.log.Debug().Int("products", len(products)).Msg("Pricing data exported")
	return nil
}

package training

import (
	"sort"

	"github.com/pricewise/pricewise/internal/domain"
	"github.com/pricewise/pricewise/internal/modules/history"
	"github.com/pricewise/pricewise/internal/modules/pricing"
)

// Dataset is the engineered training matrix. Features holds rows in the
// fixed order of pricing.FeatureNames; Targets holds the effective selling
// price each row should predict. SalesTrend and PricePosition are derived
// per-row diagnostics, reported after training but not part of the model
// input.
type Dataset struct {
	FeatureNames  []string
	Features      [][]float64
	Targets       []float64
	SalesTrend    []float64
	PricePosition []float64
}

// Len returns the number of training rows
func (d *Dataset) Len() int {
	return len(d.Targets)
}

// BuildDataset engineers training rows from sales history joined with the
// product pricing bounds:
//   - per-product chronological ordering
//   - one-step lag of sales and price, zero-filled for each product's first
//     record (the lagged price doubles as the "current price" feature, the
//     price in effect before the snapshot week)
//   - sales trend (current - previous) and price position within the
//     [base, max] range, guarded against zero-width ranges
//
// Missing or invalid values are zero-filled, never dropped.
func BuildDataset(records []history.Record, products []domain.Product) *Dataset {
	type bounds struct {
		base float64
		max  float64
	}
	boundsByID := make(map[string]bounds, len(products))
	for _, p := range products {
		base, _ := p.BasePrice.Float64()
		max, _ := p.MaxPrice.Float64()
		boundsByID[p.ID] = bounds{base: base, max: max}
	}

	// Group per product, oldest first (the store returns newest first).
	byProduct := make(map[string][]history.Record)
	for _, rec := range records {
		byProduct[rec.ProductID] = append(byProduct[rec.ProductID], rec)
	}

	productIDs := make([]string, 0, len(byProduct))
	for id := range byProduct {
		productIDs = append(productIDs, id)
	}
	sort.Strings(productIDs)

	ds := &Dataset{FeatureNames: pricing.FeatureNames}

	for _, id := range productIDs {
		recs := byProduct[id]
		sort.Slice(recs, func(i, j int) bool {
			if recs[i].Date.Equal(recs[j].Date) {
				return recs[i].ID < recs[j].ID
			}
			return recs[i].Date.Before(recs[j].Date)
		})

		numericID := float64(pricing.ProductNumericID(id))
		b := boundsByID[id]

		prevSales := 0.0
		prevPrice := 0.0

		for i, rec := range recs {
			price, _ := rec.SellingPrice.Float64()

			if i == 0 {
				prevSales = 0
				prevPrice = 0
			}

			ds.Features = append(ds.Features, []float64{
				numericID,
				float64(rec.WeeklySales),
				prevSales,
				float64(rec.StockCount),
				float64(pricing.DateOrdinal(rec.Date)),
				prevPrice,
				rec.DemandScore,
			})
			ds.Targets = append(ds.Targets, price)

			ds.SalesTrend = append(ds.SalesTrend, float64(rec.WeeklySales)-prevSales)
			ds.PricePosition = append(ds.PricePosition, pricePosition(price, b.base, b.max))

			prevSales = float64(rec.WeeklySales)
			prevPrice = price
		}
	}

	return ds
}

// pricePosition places a price within [base, max] as a 0..1 fraction,
// returning 0 for zero-width or unknown ranges.
func pricePosition(price, base, max float64) float64 {
	width := max - base
	if width <= 0 {
		return 0
	}
	return (price - base) / width
}

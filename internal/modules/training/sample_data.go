package training

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/pricewise/pricewise/internal/modules/pricing"
)

// sampleSeed fixes the synthetic generator so cold-system training runs are
// reproducible.
const sampleSeed = 42

const (
	sampleProducts = 10
	sampleWeeks    = 52
)

// GenerateSampleDataset synthesizes a deterministic training set for a cold
// system with no sales history: 10 synthetic products over 52 weeks with a
// sinusoidal seasonal demand factor. Prices track demand so the fitted model
// learns a sane demand-to-price relationship.
func GenerateSampleDataset(now time.Time) *Dataset {
	rng := rand.New(rand.NewSource(sampleSeed))

	ds := &Dataset{FeatureNames: pricing.FeatureNames}

	for product := 1; product <= sampleProducts; product++ {
		basePrice := 10 + rng.Float64()*40
		maxPrice := basePrice * 2
		numericID := float64(pricing.ProductNumericID(fmt.Sprintf("sample-%d", product)))

		for week := 0; week < sampleWeeks; week++ {
			seasonalFactor := 1 + 0.3*math.Sin(2*math.Pi*float64(week)/float64(sampleWeeks))
			baseSales := 5 + rng.Intn(25)
			weeklySales := int(float64(baseSales) * seasonalFactor)

			// Price rises with demand relative to an average of 20 sales/week,
			// saturating at the max price.
			demandRatio := float64(weeklySales) / 20
			priceMultiplier := 1 + 0.3*(demandRatio-1)
			sellingPrice := basePrice + (maxPrice-basePrice)*math.Min(priceMultiplier, 1)

			prevWeekSales := weeklySales + rng.Intn(11) - 5
			if prevWeekSales < 0 {
				prevWeekSales = 0
			}

			stockCount := rng.Intn(100)
			date := now.AddDate(0, 0, -7*(sampleWeeks-week))

			demandBaseline := weeklySales + rng.Intn(11) - 5
			if demandBaseline < 1 {
				demandBaseline = 1
			}
			demandScore := float64(weeklySales) / float64(demandBaseline)

			ds.Features = append(ds.Features, []float64{
				numericID,
				float64(weeklySales),
				float64(prevWeekSales),
				float64(stockCount),
				float64(pricing.DateOrdinal(date)),
				sellingPrice,
				demandScore,
			})
			ds.Targets = append(ds.Targets, sellingPrice)

			ds.SalesTrend = append(ds.SalesTrend, float64(weeklySales-prevWeekSales))
			ds.PricePosition = append(ds.PricePosition, pricePosition(sellingPrice, basePrice, maxPrice))
		}
	}

	return ds
}

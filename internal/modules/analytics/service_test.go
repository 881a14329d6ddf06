package analytics

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewise/pricewise/internal/domain"
	"github.com/pricewise/pricewise/internal/modules/history"
	"github.com/pricewise/pricewise/internal/modules/pricing"
)

type fakeProducts struct {
	products []domain.Product
}

func (f *fakeProducts) GetAll() ([]domain.Product, error) {
	return f.products, nil
}

type fakeChanges struct {
	changes []pricing.PriceChange
}

func (f *fakeChanges) ListRecent(limit int) ([]pricing.PriceChange, error) {
	if len(f.changes) > limit {
		return f.changes[:limit], nil
	}
	return f.changes, nil
}

type fakeSnaps struct {
	records []history.Record
}

func (f *fakeSnaps) ListAll() ([]history.Record, error) {
	return f.records, nil
}

func dashboardProduct(weekly int) domain.Product {
	return domain.Product{
		BasePrice:    decimal.RequireFromString("8.00"),
		SellingPrice: decimal.RequireFromString("10.00"),
		MaxPrice:     decimal.RequireFromString("15.00"),
		WeeklySales:  weekly,
		DemandHigh:   100,
		DemandLow:    20,
	}
}

func TestService_DashboardStats_DemandClassification(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	service := NewService(&fakeProducts{products: []domain.Product{
		dashboardProduct(150), // above display-high
		dashboardProduct(100), // boundary counts as normal
		dashboardProduct(50),
		dashboardProduct(20), // boundary counts as normal
		dashboardProduct(5),  // below display-low
	}}, &fakeChanges{}, &fakeSnaps{}, log)

	stats, err := service.DashboardStats()
	require.NoError(t, err)

	assert.Equal(t, 5, stats.TotalProducts)
	assert.Equal(t, 1, stats.HighDemand)
	assert.Equal(t, 1, stats.LowDemand)
	assert.Equal(t, 3, stats.NormalDemand)

	// Every product sells at 10.00 with base 8.00: margin is 20.0%.
	assert.Equal(t, 20.0, stats.AvgMarginPct)
}

func TestService_DashboardStats_NoSales(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	service := NewService(&fakeProducts{products: []domain.Product{
		dashboardProduct(0),
	}}, &fakeChanges{}, &fakeSnaps{}, log)

	stats, err := service.DashboardStats()
	require.NoError(t, err)
	assert.Equal(t, 0.0, stats.AvgMarginPct)
}

func TestService_DashboardStats_DemandTrend(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	// Six weekly dates, two products per date.
	var records []history.Record
	for week := 0; week < 6; week++ {
		date := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 7*week)
		records = append(records,
			history.Record{ProductID: "a", Date: date, WeeklySales: 10 + week},
			history.Record{ProductID: "b", Date: date, WeeklySales: 5},
		)
	}

	service := NewService(&fakeProducts{}, &fakeChanges{}, &fakeSnaps{records: records}, log)

	stats, err := service.DashboardStats()
	require.NoError(t, err)
	require.Len(t, stats.DemandTrend, 6)

	// Dates ascend and totals aggregate both products.
	assert.Equal(t, "2026-01-05", stats.DemandTrend[0].Date)
	assert.Equal(t, 15.0, stats.DemandTrend[0].TotalSales)
	assert.Equal(t, 20.0, stats.DemandTrend[5].TotalSales)

	// With >= 4 points the smoothed series is a 4-period moving average:
	// the last point averages totals of weeks 2..5.
	expected := (17.0 + 18.0 + 19.0 + 20.0) / 4
	assert.InDelta(t, expected, stats.DemandTrend[5].Smoothed, 1e-9)
}

func TestService_DashboardStats_ShortTrendUnsmoothed(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	records := []history.Record{
		{ProductID: "a", Date: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), WeeklySales: 10},
		{ProductID: "a", Date: time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC), WeeklySales: 12},
	}

	service := NewService(&fakeProducts{}, &fakeChanges{}, &fakeSnaps{records: records}, log)

	stats, err := service.DashboardStats()
	require.NoError(t, err)
	require.Len(t, stats.DemandTrend, 2)
	assert.Equal(t, stats.DemandTrend[1].TotalSales, stats.DemandTrend[1].Smoothed)
}

// Package analytics computes dashboard statistics over the pricing state.
package analytics

import (
	"fmt"
	"math"
	"sort"

	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/pricewise/pricewise/internal/domain"
	"github.com/pricewise/pricewise/internal/modules/history"
	"github.com/pricewise/pricewise/internal/modules/pricing"
)

// smaPeriod is the smoothing window for the demand trend series
const smaPeriod = 4

// recentChangesLimit caps the audit entries shown on the dashboard
const recentChangesLimit = 20

// ProductSource supplies products for the dashboard
type ProductSource interface {
	GetAll() ([]domain.Product, error)
}

// ChangeSource supplies recent price-change audit entries
type ChangeSource interface {
	ListRecent(limit int) ([]pricing.PriceChange, error)
}

// HistorySource supplies sales snapshots for the demand trend
type HistorySource interface {
	ListAll() ([]history.Record, error)
}

// TrendPoint is one point of the smoothed demand trend series
type TrendPoint struct {
	Date       string  `json:"date"`
	TotalSales float64 `json:"total_sales"`
	Smoothed   float64 `json:"smoothed"`
}

// DashboardStats is the analytics payload for the pricing dashboard.
// Demand classification here uses the display thresholds (demand_high and
// demand_low), not the step-logic thresholds that drive price adjustments.
type DashboardStats struct {
	TotalProducts int                   `json:"total_products"`
	HighDemand    int                   `json:"high_demand"`
	LowDemand     int                   `json:"low_demand"`
	NormalDemand  int                   `json:"normal_demand"`
	AvgMarginPct  float64               `json:"avg_margin"`
	RecentChanges []pricing.PriceChange `json:"recent_changes"`
	DemandTrend   []TrendPoint          `json:"demand_trend"`
}

// Service computes dashboard statistics
type Service struct {
	products ProductSource
	changes  ChangeSource
	snaps    HistorySource
	log      zerolog.Logger
}

// NewService creates a new analytics service
func NewService(products ProductSource, changes ChangeSource, snaps HistorySource, log zerolog.Logger) *Service {
	return &Service{
		products: products,
		changes:  changes,
		snaps:    snaps,
		log:      log.With().Str("service", "analytics").Logger(),
	}
}

// DashboardStats aggregates the current pricing state for the dashboard
func (s *Service) DashboardStats() (*DashboardStats, error) {
	products, err := s.products.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	stats := &DashboardStats{TotalProducts: len(products)}

	totalRevenue := decimal.Zero
	totalCost := decimal.Zero

	for _, p := range products {
		switch {
		case p.WeeklySales > p.DemandHigh:
			stats.HighDemand++
		case p.WeeklySales < p.DemandLow:
			stats.LowDemand++
		default:
			stats.NormalDemand++
		}

		sales := decimal.NewFromInt(int64(p.WeeklySales))
		totalRevenue = totalRevenue.Add(p.SellingPrice.Mul(sales))
		totalCost = totalCost.Add(p.BasePrice.Mul(sales))
	}

	if totalRevenue.IsPositive() {
		margin, _ := totalRevenue.Sub(totalCost).Div(totalRevenue).Float64()
		stats.AvgMarginPct = math.Round(margin*1000) / 10
	}

	changes, err := s.changes.ListRecent(recentChangesLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent price changes: %w", err)
	}
	stats.RecentChanges = changes

	trend, err := s.demandTrend()
	if err != nil {
		return nil, err
	}
	stats.DemandTrend = trend

	return stats, nil
}

// demandTrend aggregates total sales per snapshot date and smooths the
// series with a simple moving average.
func (s *Service) demandTrend() ([]TrendPoint, error) {
	records, err := s.snaps.ListAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list sales history: %w", err)
	}

	salesByDate := make(map[string]float64)
	for _, rec := range records {
		salesByDate[rec.Date.Format("2006-01-02")] += float64(rec.WeeklySales)
	}

	dates := make([]string, 0, len(salesByDate))
	for date := range salesByDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	totals := make([]float64, len(dates))
	for i, date := range dates {
		totals[i] = salesByDate[date]
	}

	// Too short to smooth: report the raw series as its own trend.
	smoothed := totals
	if len(totals) >= smaPeriod {
		smoothed = talib.Sma(totals, smaPeriod)
	}

	trend := make([]TrendPoint, len(dates))
	for i, date := range dates {
		trend[i] = TrendPoint{
			Date:       date,
			TotalSales: totals[i],
			Smoothed:   smoothed[i],
		}
	}

	return trend, nil
}

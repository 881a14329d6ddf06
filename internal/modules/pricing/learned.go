package pricing

import (
	"fmt"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/pricewise/pricewise/internal/domain"
)

// Model is a fitted prediction model. Predict takes the fixed-order feature
// vector and returns a raw (unclamped) price estimate.
type Model interface {
	Predict(features []float64) (float64, error)
	Version() int
}

// ModelSource loads the currently published model artifact. Loading is
// best-effort: a missing or corrupt artifact is an error here and a fallback
// signal upstream, never a retry loop.
type ModelSource interface {
	LoadCurrent() (Model, error)
}

// LearnedStrategy predicts prices with a trained regression model. The model
// is loaded lazily through the injected source and cached for the process
// lifetime, or until Invalidate is called after a retrain. Any failure at any
// stage is returned as an error for the dispatcher to absorb.
type LearnedStrategy struct {
	source ModelSource
	log    zerolog.Logger

	mu    sync.Mutex
	model Model
}

// NewLearnedStrategy creates a learned pricing strategy backed by source
func NewLearnedStrategy(source ModelSource, log zerolog.Logger) *LearnedStrategy {
	return &LearnedStrategy{
		source: source,
		log:    log.With().Str("strategy", "learned").Logger(),
	}
}

// Predict builds the feature vector, runs the cached model, and clamps the
// result to [base_price, max_price] rounded to cents.
func (s *LearnedStrategy) Predict(p *domain.Product, demandScore float64) (decimal.Decimal, error) {
	model, err := s.loadModel()
	if err != nil {
		return decimal.Zero, fmt.Errorf("model unavailable: %w", err)
	}

	features := FeatureVector(p, demandScore, time.Now().UTC())

	predicted, err := model.Predict(features)
	if err != nil {
		return decimal.Zero, fmt.Errorf("prediction failed: %w", err)
	}
	// Guard before decimal conversion: NewFromFloat panics on non-finite
	// input, and a panic here would defeat the fallback contract.
	if math.IsNaN(predicted) || math.IsInf(predicted, 0) {
		return decimal.Zero, fmt.Errorf("prediction is not finite: %v", predicted)
	}

	price := decimal.NewFromFloat(predicted).Round(2)
	return p.ClampPrice(price), nil
}

// Invalidate drops the cached model so the next prediction reloads the
// artifact. Called after a retrain publishes a new version.
func (s *LearnedStrategy) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = nil
}

func (s *LearnedStrategy) loadModel() (Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.model != nil {
		return s.model, nil
	}

	model, err := s.source.LoadCurrent()
	if err != nil {
		return nil, err
	}

	s.model = model
	s.log.Info().Int("version", model.Version()).Msg("Loaded pricing model")
	return model, nil
}

// FeatureNames is the fixed feature order shared by prediction and training.
var FeatureNames = []string{
	"product_id",
	"weekly_sales",
	"prev_week_sales",
	"stock_count",
	"date",
	"current_price",
	"demand_score",
}

// FeatureVector builds the model input for a product in the fixed order of
// FeatureNames. Missing or invalid source values become 0 rather than failing
// the prediction.
func FeatureVector(p *domain.Product, demandScore float64, now time.Time) []float64 {
	currentPrice, _ := p.EffectivePrice().Float64()

	return []float64{
		float64(ProductNumericID(p.ID)),
		float64(p.WeeklySales),
		float64(p.LastWeekSales),
		float64(p.StockCountInt()),
		float64(DateOrdinal(now)),
		currentPrice,
		demandScore,
	}
}

// ProductNumericID maps a product's string ID onto a stable numeric
// identifier in [0, 10000).
func ProductNumericID(id string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return int(h.Sum32() % 10000)
}

// unixEpochOrdinal is the ordinal day count of 1970-01-01, with day 1 being
// January 1 of year 1.
const unixEpochOrdinal = 719163

// DateOrdinal returns the proleptic ordinal day count for a date
// (day 1 = January 1 of year 1), the same encoding the training data uses.
// Computed from Unix days; a time.Duration span would overflow at dates this
// far from year 1.
func DateOrdinal(t time.Time) int {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(day.Unix()/86400) + unixEpochOrdinal
}

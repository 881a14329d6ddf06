package training

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewise/pricewise/internal/domain"
	"github.com/pricewise/pricewise/internal/modules/history"
	"github.com/pricewise/pricewise/internal/modules/pricing"
)

type fakeHistorySource struct {
	records []history.Record
	err     error
}

func (f *fakeHistorySource) ListAll() ([]history.Record, error) {
	return f.records, f.err
}

type fakeProductSource struct {
	products []domain.Product
}

func (f *fakeProductSource) GetAll() ([]domain.Product, error) {
	return f.products, nil
}

func newColdTrainer(t *testing.T) *Trainer {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	store := NewStore(t.TempDir(), log)
	return NewTrainer(&fakeHistorySource{}, &fakeProductSource{}, store, log)
}

func TestTrainer_Train_ColdSystemUsesSampleData(t *testing.T) {
	trainer := newColdTrainer(t)

	artifact, err := trainer.Train()
	require.NoError(t, err)

	assert.Equal(t, 1, artifact.ModelVersion)
	assert.Equal(t, sampleProducts*sampleWeeks, artifact.Metrics.Samples)
	assert.Equal(t, pricing.FeatureNames, artifact.FeatureNames)
	require.Len(t, artifact.Coefficients, len(pricing.FeatureNames))

	// The synthetic data ties price to demand, so the fit should explain
	// most of the variance and the importance ranking should be usable.
	assert.Greater(t, artifact.Metrics.TrainR2, 0.5)
	require.Len(t, artifact.Importance, len(pricing.FeatureNames))

	total := 0.0
	for i, imp := range artifact.Importance {
		total += imp.Importance
		if i > 0 {
			assert.LessOrEqual(t, imp.Importance, artifact.Importance[i-1].Importance)
		}
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestTrainer_Train_Deterministic(t *testing.T) {
	first, err := newColdTrainer(t).Train()
	require.NoError(t, err)

	second, err := newColdTrainer(t).Train()
	require.NoError(t, err)

	// Independent stores, so both publish version 1 of the same fit.
	assert.Equal(t, first.ModelVersion, second.ModelVersion)
	assert.InDelta(t, first.Intercept, second.Intercept, 1e-9)
	for i := range first.Coefficients {
		assert.InDelta(t, first.Coefficients[i], second.Coefficients[i], 1e-9)
	}
}

func TestTrainer_Train_VersionAdvances(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	store := NewStore(t.TempDir(), log)
	trainer := NewTrainer(&fakeHistorySource{}, &fakeProductSource{}, store, log)

	first, err := trainer.Train()
	require.NoError(t, err)
	assert.Equal(t, 1, first.ModelVersion)

	second, err := trainer.Train()
	require.NoError(t, err)
	assert.Equal(t, 2, second.ModelVersion)

	current, err := store.CurrentArtifact()
	require.NoError(t, err)
	assert.Equal(t, 2, current.ModelVersion)
}

func TestTrainer_Train_TooFewRowsFailsLoudly(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	store := NewStore(t.TempDir(), log)

	// A handful of real records: no sample-data fallback, and too few rows
	// to fit. Training must fail, not silently degrade.
	records := []history.Record{
		{ID: 1, ProductID: "p", Date: day(0), WeeklySales: 10, SellingPrice: decimal.NewFromInt(10)},
		{ID: 2, ProductID: "p", Date: day(7), WeeklySales: 12, SellingPrice: decimal.NewFromInt(10)},
		{ID: 3, ProductID: "p", Date: day(14), WeeklySales: 9, SellingPrice: decimal.NewFromInt(10)},
	}
	trainer := NewTrainer(&fakeHistorySource{records: records}, &fakeProductSource{}, store, log)

	_, err := trainer.Train()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enough training data")

	// Nothing was published.
	_, err = store.CurrentArtifact()
	require.Error(t, err)
}

func TestLearnedStrategy_UsesPublishedModel(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	store := NewStore(t.TempDir(), log)
	trainer := NewTrainer(&fakeHistorySource{}, &fakeProductSource{}, store, log)

	learned := pricing.NewLearnedStrategy(store, log)

	p := &domain.Product{
		ID:                  "prod-1",
		Title:               "Widget",
		BasePrice:           decimal.RequireFromString("8.00"),
		MaxPrice:            decimal.RequireFromString("15.00"),
		SellingPrice:        decimal.RequireFromString("10.00"),
		PriceAdjustmentStep: decimal.RequireFromString("0.50"),
		StockCount:          "25",
		InStock:             true,
		WeeklySales:         12,
		LastWeekSales:       10,
		DemandThresholdHigh: 20,
		DemandThresholdLow:  5,
	}

	// No artifact yet: the learned strategy must error so the dispatcher
	// can fall back.
	_, err := learned.Predict(p, 1.2)
	require.Error(t, err)

	_, err = trainer.Train()
	require.NoError(t, err)
	learned.Invalidate()

	price, err := learned.Predict(p, 1.2)
	require.NoError(t, err)

	// Whatever the model says, the published price is clamped and in cents.
	assert.False(t, price.LessThan(p.BasePrice))
	assert.False(t, price.GreaterThan(p.MaxPrice))
	assert.True(t, price.Exponent() >= -2)
}

func TestFallbackStrategy_RecoversFromMissingModel(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	store := NewStore(t.TempDir(), log)

	learned := pricing.NewLearnedStrategy(store, log)
	dispatch := pricing.NewFallbackStrategy(learned, pricing.NewRuleBasedStrategy(), log)

	p := &domain.Product{
		ID:                  "prod-1",
		BasePrice:           decimal.RequireFromString("8.00"),
		MaxPrice:            decimal.RequireFromString("15.00"),
		SellingPrice:        decimal.RequireFromString("10.00"),
		PriceAdjustmentStep: decimal.RequireFromString("0.50"),
		WeeklySales:         33,
		DemandThresholdHigh: 20,
		DemandThresholdLow:  5,
	}

	// With no artifact on disk the dispatcher must produce exactly the
	// rule-based answer.
	price, err := dispatch.Predict(p, 1.65)
	require.NoError(t, err)
	assert.Equal(t, "11.5", price.String())
}

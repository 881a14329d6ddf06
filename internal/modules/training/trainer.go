package training

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/pricewise/pricewise/internal/domain"
	"github.com/pricewise/pricewise/internal/modules/history"
)

// minTrainingRows is the smallest dataset worth fitting; anything less fails
// loudly so the operator knows training is not viable yet.
const minTrainingRows = 20

// splitSeed fixes the train/test shuffle for reproducible metrics
const splitSeed = 42

// HistorySource supplies the sales history records the trainer learns from
type HistorySource interface {
	ListAll() ([]history.Record, error)
}

// ProductSource supplies product pricing bounds for feature engineering
type ProductSource interface {
	GetAll() ([]domain.Product, error)
}

// Trainer fits the learned pricing model from sales history and publishes a
// versioned artifact. It runs out-of-band (scheduled job or manual trigger),
// never on the price-update path, and unlike prediction it is allowed to
// fail loudly.
type Trainer struct {
	history  HistorySource
	products ProductSource
	store    *Store
	log      zerolog.Logger
	now      func() time.Time
}

// NewTrainer creates a model trainer
func NewTrainer(historySource HistorySource, products ProductSource, store *Store, log zerolog.Logger) *Trainer {
	return &Trainer{
		history:  historySource,
		products: products,
		store:    store,
		log:      log.With().Str("component", "trainer").Logger(),
		now:      time.Now,
	}
}

// Train builds the dataset, fits an OLS regression of effective price on the
// prediction features, reports diagnostics, and publishes the artifact.
func (t *Trainer) Train() (*Artifact, error) {
	ds, err := t.buildDataset()
	if err != nil {
		return nil, err
	}

	if ds.Len() < minTrainingRows {
		return nil, fmt.Errorf("not enough training data: %d rows, need at least %d", ds.Len(), minTrainingRows)
	}

	t.log.Info().
		Int("samples", ds.Len()).
		Int("features", len(ds.FeatureNames)).
		Msg("Training pricing model")

	trainIdx, testIdx := splitIndices(ds.Len())

	intercept, coefs, err := fitOLS(ds, trainIdx)
	if err != nil {
		return nil, fmt.Errorf("model fit failed: %w", err)
	}

	metrics := Metrics{
		Samples:  ds.Len(),
		TrainMAE: meanAbsoluteError(ds, trainIdx, intercept, coefs),
		TestMAE:  meanAbsoluteError(ds, testIdx, intercept, coefs),
		TrainR2:  rSquared(ds, trainIdx, intercept, coefs),
		TestR2:   rSquared(ds, testIdx, intercept, coefs),
	}

	importance := rankImportance(ds, coefs)

	version, err := t.store.NextVersion()
	if err != nil {
		return nil, err
	}

	artifact := &Artifact{
		ModelVersion: version,
		TrainedAt:    t.now().UTC(),
		FeatureNames: ds.FeatureNames,
		Intercept:    intercept,
		Coefficients: coefs,
		Metrics:      metrics,
		Importance:   importance,
	}

	if err := t.store.Save(artifact); err != nil {
		return nil, err
	}

	t.log.Info().
		Int("version", version).
		Float64("train_mae", metrics.TrainMAE).
		Float64("test_mae", metrics.TestMAE).
		Float64("train_r2", metrics.TrainR2).
		Float64("test_r2", metrics.TestR2).
		Str("top_feature", importance[0].Feature).
		Float64("mean_sales_trend", stat.Mean(ds.SalesTrend, nil)).
		Float64("mean_price_position", stat.Mean(ds.PricePosition, nil)).
		Msg("Model training complete")

	return artifact, nil
}

// buildDataset reads sales history, falling back to the deterministic
// synthetic dataset on a cold system with no records.
func (t *Trainer) buildDataset() (*Dataset, error) {
	records, err := t.history.ListAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read sales history: %w", err)
	}

	if len(records) == 0 {
		t.log.Warn().Msg("No sales history found, generating sample training data")
		return GenerateSampleDataset(t.now().UTC()), nil
	}

	products, err := t.products.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read product bounds: %w", err)
	}

	return BuildDataset(records, products), nil
}

// splitIndices produces a deterministic 80/20 train/test split
func splitIndices(n int) (train, test []int) {
	perm := rand.New(rand.NewSource(splitSeed)).Perm(n)

	testSize := n / 5
	if testSize < 1 {
		testSize = 1
	}

	return perm[testSize:], perm[:testSize]
}

// fitOLS solves the least-squares problem for the rows in idx. The design
// matrix carries an explicit intercept column.
func fitOLS(ds *Dataset, idx []int) (intercept float64, coefs []float64, err error) {
	k := len(ds.FeatureNames)
	m := len(idx)
	if m <= k+1 {
		return 0, nil, fmt.Errorf("underdetermined system: %d rows for %d features", m, k)
	}

	a := mat.NewDense(m, k+1, nil)
	b := mat.NewVecDense(m, nil)

	for row, i := range idx {
		a.Set(row, 0, 1)
		for col, v := range ds.Features[i] {
			a.Set(row, col+1, v)
		}
		b.SetVec(row, ds.Targets[i])
	}

	var beta mat.VecDense
	if err := beta.SolveVec(a, b); err != nil {
		// A Condition error flags poor conditioning but the solution is
		// still usable; anything else (rank deficiency) is a real failure.
		if _, ok := err.(mat.Condition); !ok {
			return 0, nil, err
		}
	}

	intercept = beta.AtVec(0)
	coefs = make([]float64, k)
	for j := 0; j < k; j++ {
		coefs[j] = beta.AtVec(j + 1)
	}

	return intercept, coefs, nil
}

func predictRow(features []float64, intercept float64, coefs []float64) float64 {
	p := intercept
	for j, f := range features {
		p += coefs[j] * f
	}
	return p
}

func meanAbsoluteError(ds *Dataset, idx []int, intercept float64, coefs []float64) float64 {
	if len(idx) == 0 {
		return 0
	}

	sum := 0.0
	for _, i := range idx {
		sum += math.Abs(predictRow(ds.Features[i], intercept, coefs) - ds.Targets[i])
	}
	return sum / float64(len(idx))
}

func rSquared(ds *Dataset, idx []int, intercept float64, coefs []float64) float64 {
	if len(idx) == 0 {
		return 0
	}

	estimates := make([]float64, len(idx))
	values := make([]float64, len(idx))
	for row, i := range idx {
		estimates[row] = predictRow(ds.Features[i], intercept, coefs)
		values[row] = ds.Targets[i]
	}

	return stat.RSquaredFrom(estimates, values, nil)
}

// rankImportance scores each feature by |coefficient| x feature standard
// deviation (the coefficient's contribution in target units), normalized to
// sum to 1 and sorted descending.
func rankImportance(ds *Dataset, coefs []float64) []FeatureImportance {
	k := len(ds.FeatureNames)

	raw := make([]float64, k)
	total := 0.0
	for j := 0; j < k; j++ {
		col := make([]float64, ds.Len())
		for i := range ds.Features {
			col[i] = ds.Features[i][j]
		}
		raw[j] = math.Abs(coefs[j]) * stat.StdDev(col, nil)
		total += raw[j]
	}

	importance := make([]FeatureImportance, k)
	for j := 0; j < k; j++ {
		score := 0.0
		if total > 0 {
			score = raw[j] / total
		}
		importance[j] = FeatureImportance{Feature: ds.FeatureNames[j], Importance: score}
	}

	sort.Slice(importance, func(i, j int) bool {
		return importance[i].Importance > importance[j].Importance
	})

	return importance
}

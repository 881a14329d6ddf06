// Package training implements the offline model trainer for the learned
// pricing strategy: feature engineering over sales history, an ordinary
// least squares fit, diagnostic metrics, and versioned artifact publishing.
package training

import (
	"fmt"
	"math"
	"time"
)

// Metrics holds diagnostic fit quality numbers. They are reported to the
// operator and stored on the artifact; the prediction contract does not
// depend on them.
type Metrics struct {
	Samples  int     `msgpack:"samples" json:"samples"`
	TrainMAE float64 `msgpack:"train_mae" json:"train_mae"`
	TestMAE  float64 `msgpack:"test_mae" json:"test_mae"`
	TrainR2  float64 `msgpack:"train_r2" json:"train_r2"`
	TestR2   float64 `msgpack:"test_r2" json:"test_r2"`
}

// FeatureImportance ranks one feature's contribution to the fit
type FeatureImportance struct {
	Feature    string  `msgpack:"feature" json:"feature"`
	Importance float64 `msgpack:"importance" json:"importance"`
}

// Artifact is a persisted, versioned, fitted pricing model. It implements
// pricing.Model: prediction is the linear combination of the fixed-order
// feature vector with the fitted coefficients.
type Artifact struct {
	ModelVersion int                 `msgpack:"model_version" json:"model_version"`
	TrainedAt    time.Time           `msgpack:"trained_at" json:"trained_at"`
	FeatureNames []string            `msgpack:"feature_names" json:"feature_names"`
	Intercept    float64             `msgpack:"intercept" json:"intercept"`
	Coefficients []float64           `msgpack:"coefficients" json:"coefficients"`
	Metrics      Metrics             `msgpack:"metrics" json:"metrics"`
	Importance   []FeatureImportance `msgpack:"importance" json:"importance"`
}

// Version returns the artifact's model version
func (a *Artifact) Version() int {
	return a.ModelVersion
}

// Predict evaluates the fitted model on a feature vector
func (a *Artifact) Predict(features []float64) (float64, error) {
	if len(features) != len(a.Coefficients) {
		return 0, fmt.Errorf("feature count mismatch: got %d, model expects %d",
			len(features), len(a.Coefficients))
	}

	prediction := a.Intercept
	for i, f := range features {
		prediction += a.Coefficients[i] * f
	}

	return prediction, nil
}

// validate checks structural integrity after deserialization. A corrupt
// artifact must read as "absent" upstream, so this is strict.
func (a *Artifact) validate() error {
	if a.ModelVersion <= 0 {
		return fmt.Errorf("invalid model version %d", a.ModelVersion)
	}
	if len(a.Coefficients) == 0 {
		return fmt.Errorf("artifact has no coefficients")
	}
	if len(a.FeatureNames) != len(a.Coefficients) {
		return fmt.Errorf("artifact has %d feature names but %d coefficients",
			len(a.FeatureNames), len(a.Coefficients))
	}
	if !isFinite(a.Intercept) {
		return fmt.Errorf("artifact intercept %v is not finite", a.Intercept)
	}
	for i, c := range a.Coefficients {
		if !isFinite(c) {
			return fmt.Errorf("artifact coefficient %d (%s) is not finite: %v",
				i, a.FeatureNames[i], c)
		}
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

package training

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testArtifact() *Artifact {
	return &Artifact{
		ModelVersion: 3,
		TrainedAt:    time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		FeatureNames: []string{"a", "b", "c"},
		Intercept:    2.0,
		Coefficients: []float64{1.0, 0.5, -0.25},
	}
}

func TestArtifact_Predict(t *testing.T) {
	a := testArtifact()

	got, err := a.Predict([]float64{4, 2, 8})
	require.NoError(t, err)

	// 2 + 1*4 + 0.5*2 - 0.25*8 = 5
	assert.Equal(t, 5.0, got)
}

func TestArtifact_Predict_FeatureCountMismatch(t *testing.T) {
	a := testArtifact()

	_, err := a.Predict([]float64{1, 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feature count mismatch")
}

func TestArtifact_Version(t *testing.T) {
	assert.Equal(t, 3, testArtifact().Version())
}

func TestArtifact_Validate_RejectsNonFinite(t *testing.T) {
	nanCoef := testArtifact()
	nanCoef.Coefficients[1] = math.NaN()

	infCoef := testArtifact()
	infCoef.Coefficients[2] = math.Inf(1)

	badIntercept := testArtifact()
	badIntercept.Intercept = math.Inf(-1)

	for _, a := range []*Artifact{nanCoef, infCoef, badIntercept} {
		err := a.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not finite")
	}
}

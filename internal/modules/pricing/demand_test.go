package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDemandScorer_Score(t *testing.T) {
	scorer := NewDemandScorer()

	tests := []struct {
		name          string
		weeklySales   int
		lastWeekSales int
		expected      float64
	}{
		{"zero baseline is neutral", 15, 0, 1.0},
		{"zero over zero is neutral", 0, 0, 1.0},
		{"demand doubled", 20, 10, 2.0},
		{"demand collapsed", 5, 20, 0.25},
		{"flat demand", 7, 7, 1.0},
		{"no sales this week", 0, 10, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, scorer.Score(tt.weeklySales, tt.lastWeekSales))
		})
	}
}

func TestDemandScorer_Score_Unbounded(t *testing.T) {
	scorer := NewDemandScorer()

	// The score is a raw ratio; bursty data can produce large values and
	// callers must not assume an upper bound.
	assert.Equal(t, 500.0, scorer.Score(500, 1))
}

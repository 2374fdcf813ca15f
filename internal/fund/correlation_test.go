package fund

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCorrelationPerfectPositive(t *testing.T) {
	returns := map[string][]float64{
		"a": {1, 2, 3, 4},
		"b": {2, 4, 6, 8},
	}
	matrix, pairs := Correlation(returns)
	assert.InDelta(t, 1.0, matrix["a"]["b"], 1e-9)
	assert.Len(t, pairs, 1)
}

func TestCorrelationShortSeriesIsZero(t *testing.T) {
	returns := map[string][]float64{
		"a": {1, 2},
		"b": {2, 4},
	}
	matrix, pairs := Correlation(returns)
	assert.Equal(t, 0.0, matrix["a"]["b"])
	assert.Empty(t, pairs)
}

func TestCorrelationZeroVarianceIsZero(t *testing.T) {
	returns := map[string][]float64{
		"a": {1, 1, 1, 1},
		"b": {1, 2, 3, 4},
	}
	matrix, _ := Correlation(returns)
	assert.Equal(t, 0.0, matrix["a"]["b"])
}

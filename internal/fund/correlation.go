package fund

import "math"

// highCorrelationThreshold is the |ρ| at or above which two strategies are
// considered to compete for the same edge.
const highCorrelationThreshold = 0.7

// CorrelatedPair is one entry of the high-correlation report.
type CorrelatedPair struct {
	A, B        string
	Correlation float64
}

// CorrelationMatrix holds the pairwise Pearson correlation of every
// strategy's return series against every other's.
type CorrelationMatrix map[string]map[string]float64

// Correlation computes the pairwise Pearson correlation matrix from returns,
// keyed by strategy ID. Each pair is evaluated on the overlapping prefix of
// length min(|a|, |b|). Pairs shorter than 3 samples, or with zero variance
// on either side, correlate at 0.
func Correlation(returns map[string][]float64) (CorrelationMatrix, []CorrelatedPair) {
	ids := make([]string, 0, len(returns))
	for id := range returns {
		ids = append(ids, id)
	}

	matrix := make(CorrelationMatrix, len(ids))
	for _, id := range ids {
		matrix[id] = make(map[string]float64, len(ids))
	}

	var pairs []CorrelatedPair

	for i, a := range ids {
		matrix[a][a] = 1
		for j := i + 1; j < len(ids); j++ {
			b := ids[j]
			rho := pearson(returns[a], returns[b])
			matrix[a][b] = rho
			matrix[b][a] = rho
			if math.Abs(rho) >= highCorrelationThreshold {
				pairs = append(pairs, CorrelatedPair{A: a, B: b, Correlation: rho})
			}
		}
	}

	return matrix, pairs
}

func pearson(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < 3 {
		return 0
	}
	a, b = a[:n], b[:n]

	var meanA, meanB float64
	for i := 0; i < n; i++ {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= float64(n)
	meanB /= float64(n)

	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da, db := a[i]-meanA, b[i]-meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}

	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

package econ

import "gonum.org/v1/gonum/stat"

// Resize returns a float64 slice of length n, reusing the initial
// subslice of x if it is big enough.
func Resize(x []float64, n int) []float64 {
	if cap(x) >= n {
		return x[0:n]
	}
	return make([]float64, n)
}

// Zero sets all elements of the slice to 0.
func Zero(x []float64) {
	for i := range x {
		x[i] = 0
	}
}

// MeanVar returns the mean and the population (uncorrected) variance
// of x.  The population definition is used throughout the estimation
// core so that variance-based quantities agree with their
// maximum-likelihood counterparts.
func MeanVar(x []float64) (float64, float64) {
	return stat.PopMeanVariance(x, nil)
}

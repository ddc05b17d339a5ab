package econ

import (
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// The estimation engines never differentiate model functions
// themselves; they go through these adapters so the differentiation
// backend stays in one place.

// NumGrad returns the numerical gradient of f at x.
func NumGrad(f func([]float64) float64, x []float64) []float64 {
	grad := make([]float64, len(x))
	fd.Gradient(grad, f, x, nil)
	return grad
}

// NumHess returns the numerical Hessian of f at x.  The finite
// difference scheme fills the matrix symmetrically, which also serves
// as the symmetrization step required after numerical-derivative-based
// constructions.
func NumHess(f func([]float64) float64, x []float64) *mat.SymDense {
	hess := mat.NewSymDense(len(x), nil)
	fd.Hessian(hess, f, x, nil)
	return hess
}

// NumJac returns the m x len(x) numerical Jacobian of f at x, where f
// fills a length-m destination vector.
func NumJac(f func(y, x []float64), m int, x []float64) *mat.Dense {
	jac := mat.NewDense(m, len(x), nil)
	fd.Jacobian(jac, f, x, nil)
	return jac
}

package gmm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/RolfLobo/FinancialEconometrics/econ"
)

// newton solves the square system f(x) = 0 with Newton steps and a
// finite-difference Jacobian.  gonum's optimize package only
// minimizes, so the root-finding loop lives here.  On failure the last
// iterate is returned together with the error.
func newton(f func([]float64) []float64, x0 []float64, tol float64, maxIter int) ([]float64, error) {

	x := make([]float64, len(x0))
	copy(x, x0)

	fill := func(dst, p []float64) {
		copy(dst, f(p))
	}

	for iter := 0; iter < maxIter; iter++ {

		fx := f(x)
		if normInf(fx) < tol {
			return x, nil
		}

		jac := econ.NumJac(fill, len(fx), x)

		var step mat.Dense
		if err := step.Solve(jac, mat.NewDense(len(fx), 1, fx)); err != nil {
			return x, fmt.Errorf("gmm: %w in Newton step (iteration %d)", econ.ErrSingular, iter)
		}

		for j := range x {
			x[j] -= step.At(j, 0)
		}
	}

	fx := f(x)
	if normInf(fx) < tol {
		return x, nil
	}

	return x, fmt.Errorf("gmm: root finding did not converge in %d iterations (residual %g)", maxIter, normInf(fx))
}

func normInf(x []float64) float64 {
	var m float64
	for _, v := range x {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}

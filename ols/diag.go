package ols

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/RolfLobo/FinancialEconometrics/econ"
)

// RegressionFit returns the adjusted R-squared and the Gaussian
// log-likelihood based AIC and BIC for a regression with k fitted
// coefficients and the given residuals.
func RegressionFit(resid []float64, r2 float64, k int) (r2adj, aic, bic float64) {

	nobs := float64(len(resid))

	var ssq float64
	for _, u := range resid {
		ssq += u * u
	}
	sigma2 := ssq / nobs

	// Gaussian log-likelihood at the ML variance estimate.
	ll := -0.5 * nobs * (math.Log(2*math.Pi) + math.Log(sigma2) + 1)

	r2adj = 1 - (1-r2)*(nobs-1)/(nobs-float64(k))
	aic = -2*ll + 2*float64(k)
	bic = -2*ll + float64(k)*math.Log(nobs)

	return r2adj, aic, bic
}

// VIF computes variance inflation factors for the columns of x by
// regressing each column on all the others (intercept included if x
// carries one).  A factor is +Inf when the remaining columns reproduce
// the column exactly, and NaN when the column does not vary.
func VIF(x *mat.Dense) (maxVIF float64, allVIF []float64) {

	nobs, nvar := x.Dims()
	allVIF = make([]float64, nvar)

	xj := make([]float64, nobs)
	for j := 0; j < nvar; j++ {

		mat.Col(xj, j, x)
		_, vx := econ.MeanVar(xj)
		if vx == 0 {
			allVIF[j] = math.NaN()
			continue
		}

		// Regress column j on the remaining columns.
		xo := mat.NewDense(nobs, nvar-1, nil)
		for k, ko := 0, 0; k < nvar; k++ {
			if k == j {
				continue
			}
			for t := 0; t < nobs; t++ {
				xo.Set(t, ko, x.At(t, k))
			}
			ko++
		}

		yj := mat.NewDense(nobs, 1, nil)
		for t := 0; t < nobs; t++ {
			yj.Set(t, 0, xj[t])
		}

		var b mat.Dense
		if err := b.Solve(xo, yj); err != nil {
			allVIF[j] = math.Inf(1)
			continue
		}

		var fit mat.Dense
		fit.Mul(xo, &b)
		u := make([]float64, nobs)
		for t := 0; t < nobs; t++ {
			u[t] = xj[t] - fit.At(t, 0)
		}
		_, vu := econ.MeanVar(u)

		r2 := 1 - vu/vx
		if r2 >= 1 {
			allVIF[j] = math.Inf(1)
		} else {
			allVIF[j] = 1 / (1 - r2)
		}
	}

	maxVIF = math.Inf(-1)
	for _, v := range allVIF {
		if !math.IsNaN(v) && v > maxVIF {
			maxVIF = v
		}
	}

	return maxVIF, allVIF
}

// JarqueBera tests the residuals for normality.  It returns the test
// statistic and its p-value under the chi-squared(2) null.
func JarqueBera(resid []float64) (stat, pvalue float64) {

	nobs := float64(len(resid))
	mn, va := econ.MeanVar(resid)
	sd := math.Sqrt(va)

	var skew, kurt float64
	for _, u := range resid {
		z := (u - mn) / sd
		skew += z * z * z
		kurt += z * z * z * z
	}
	skew /= nobs
	kurt /= nobs

	stat = nobs / 6 * (skew*skew + (kurt-3)*(kurt-3)/4)
	pvalue = distuv.ChiSquared{K: 2}.Survival(stat)

	return stat, pvalue
}

package econ

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// BaseResults holds the point estimates and the sampling covariance of
// an estimator, and lazily derives standard errors, t-statistics, and
// p-values from them.  The estimation packages embed it in their own
// results types.
type BaseResults struct {
	names  []string
	params []float64
	vcov   *mat.SymDense

	stderr  []float64
	tstats  []float64
	pvalues []float64
}

// NewBaseResults returns a BaseResults for the given point estimates.
// vcov may be nil when no covariance estimate is available, in which
// case the derived quantities are nil as well.
func NewBaseResults(params []float64, names []string, vcov *mat.SymDense) BaseResults {
	if names == nil {
		names = defaultNames(len(params))
	}
	if len(names) != len(params) {
		panic("econ: parameter and name lengths differ")
	}
	return BaseResults{
		names:  names,
		params: params,
		vcov:   vcov,
	}
}

func defaultNames(p int) []string {
	names := make([]string, p)
	for j := range names {
		names[j] = fmt.Sprintf("x%d", j+1)
	}
	return names
}

// Names returns the parameter names.
func (rslt *BaseResults) Names() []string {
	return rslt.names
}

// Params returns the point estimates.
func (rslt *BaseResults) Params() []float64 {
	return rslt.params
}

// VCov returns the sampling covariance matrix of the point estimates,
// or nil when none was computed.
func (rslt *BaseResults) VCov() *mat.SymDense {
	return rslt.vcov
}

// StdErr returns the standard errors of the point estimates.
func (rslt *BaseResults) StdErr() []float64 {

	// No vcov, no standard errors
	if rslt.vcov == nil {
		return nil
	}

	if rslt.stderr != nil {
		return rslt.stderr
	}
	rslt.stderr = StdErrFromVCov(rslt.vcov)

	return rslt.stderr
}

// TStats returns the parameter estimates divided by their standard
// errors.
func (rslt *BaseResults) TStats() []float64 {

	if rslt.vcov == nil {
		return nil
	}

	if rslt.tstats != nil {
		return rslt.tstats
	}

	std := rslt.StdErr()
	rslt.tstats = make([]float64, len(std))
	for i := range std {
		rslt.tstats[i] = rslt.params[i] / std[i]
	}

	return rslt.tstats
}

// PValues returns two-sided normal p-values for the null hypothesis
// that each parameter equals zero.
func (rslt *BaseResults) PValues() []float64 {

	if rslt.vcov == nil {
		return nil
	}

	if rslt.pvalues != nil {
		return rslt.pvalues
	}

	ts := rslt.TStats()
	rslt.pvalues = make([]float64, len(ts))
	for i, t := range ts {
		rslt.pvalues[i] = 2 * normcdf(-math.Abs(t))
	}

	return rslt.pvalues
}

func normcdf(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt(2))
}

// StdErrFromVCov extracts the square roots of the diagonal of a
// covariance matrix.  It returns nil for a nil matrix.
func StdErrFromVCov(vcov *mat.SymDense) []float64 {
	if vcov == nil {
		return nil
	}
	p, _ := vcov.Dims()
	std := make([]float64, p)
	for i := range std {
		std[i] = math.Sqrt(vcov.At(i, i))
	}
	return std
}

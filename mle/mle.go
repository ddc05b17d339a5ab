package mle

import (
	"fmt"
	"log"
	"os"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/RolfLobo/FinancialEconometrics/econ"
)

// LogLikelihooder evaluates the per-observation log-likelihood
// contributions of a model at a parameter vector.  The engine never
// inspects the model's internal form; any caller implementing this
// interface can reuse the engine unmodified.
type LogLikelihooder interface {

	// Number of observations in the data set.
	NumObs() int

	// LogLike fills dst, of length NumObs, with the log-likelihood
	// contribution of each observation at params.
	LogLike(params []float64, dst []float64)
}

type likFunc struct {
	nobs int
	fn   func(params, dst []float64)
}

func (f *likFunc) NumObs() int { return f.nobs }

func (f *likFunc) LogLike(params, dst []float64) { f.fn(params, dst) }

// NewFunc wraps a plain function as a LogLikelihooder over nobs
// observations.
func NewFunc(nobs int, fn func(params, dst []float64)) LogLikelihooder {
	return &likFunc{nobs: nobs, fn: fn}
}

// Model configures a maximum-likelihood estimation.
type Model struct {
	ll    LogLikelihooder
	start []float64

	lb, ub []float64
	names  []string

	settings *optimize.Settings
	method   optimize.Method

	log *log.Logger
}

// New returns a model maximizing ll from the given starting values.
func New(ll LogLikelihooder, start []float64) *Model {
	return &Model{ll: ll, start: start}
}

// Bounds sets box constraints on the parameters.  Entries of -Inf or
// +Inf leave the corresponding side unbounded.  Either slice may be
// nil.
func (m *Model) Bounds(lb, ub []float64) *Model {
	m.lb = lb
	m.ub = ub
	return m
}

// Names sets the parameter names used in results and summaries.
func (m *Model) Names(names []string) *Model {
	m.names = names
	return m
}

// OptSettings allows the caller to provide an optimization settings
// value.
func (m *Model) OptSettings(s *optimize.Settings) *Model {
	m.settings = s
	return m
}

// OptMethod sets the optimization method from gonum optimize.
func (m *Model) OptMethod(method optimize.Method) *Model {
	m.method = method
	return m
}

// Log takes a Logger value that will receive fitting messages.
func (m *Model) Log(log *log.Logger) *Model {
	m.log = log
	return m
}

// Done validates the model configuration.
func (m *Model) Done() *Model {

	if len(m.start) == 0 {
		panic("mle: starting values are required")
	}
	newXform(m.lb, m.ub, len(m.start))

	return m
}

// Results holds a fitted maximum-likelihood model.  The embedded
// results carry the sandwich covariance, the most robust of the three
// under misspecification; the other two are available alongside it.
type Results struct {
	econ.BaseResults

	vcovInfo *mat.SymDense
	vcovOPG  *mat.SymDense

	loglikObs []float64
	loglik    float64
}

// VCovInfo returns the information-matrix covariance estimate.
func (rslt *Results) VCovInfo() *mat.SymDense { return rslt.vcovInfo }

// VCovOPG returns the outer-product-of-gradients covariance estimate.
func (rslt *Results) VCovOPG() *mat.SymDense { return rslt.vcovOPG }

// VCovSandwich returns the sandwich covariance estimate.
func (rslt *Results) VCovSandwich() *mat.SymDense { return rslt.VCov() }

// StdErrInfo returns information-matrix standard errors.
func (rslt *Results) StdErrInfo() []float64 { return econ.StdErrFromVCov(rslt.vcovInfo) }

// StdErrOPG returns outer-product-of-gradients standard errors.
func (rslt *Results) StdErrOPG() []float64 { return econ.StdErrFromVCov(rslt.vcovOPG) }

// StdErrSandwich returns sandwich standard errors.
func (rslt *Results) StdErrSandwich() []float64 { return rslt.StdErr() }

// LogLike returns the log-likelihood at the estimate.
func (rslt *Results) LogLike() float64 { return rslt.loglik }

// LogLikeObs returns the per-observation log-likelihood contributions
// at the estimate.
func (rslt *Results) LogLikeObs() []float64 { return rslt.loglikObs }

// Fit maximizes the mean log-likelihood and computes the three
// covariance estimates.  A convergence failure is returned as an
// error together with partial results holding the last iterate.
func (m *Model) Fit() (*Results, error) {

	nparam := len(m.start)
	nobs := m.ll.NumObs()
	xf := newXform(m.lb, m.ub, nparam)

	work := make([]float64, nobs)
	meanLL := func(theta []float64) float64 {
		m.ll.LogLike(theta, work)
		var s float64
		for _, v := range work {
			s += v
		}
		return s / float64(nobs)
	}

	// Objective over the free space when bounds are present.
	obj := func(z []float64) float64 {
		if xf != nil {
			return -meanLL(xf.toTheta(z))
		}
		return -meanLL(z)
	}

	p := optimize.Problem{
		Func: obj,
		Grad: func(grad, z []float64) {
			copy(grad, econ.NumGrad(obj, z))
		},
	}

	settings := m.settings
	if settings == nil {
		settings = &optimize.Settings{
			GradientThreshold: 1e-6,
		}
	}
	method := m.method
	if method == nil {
		method = &optimize.BFGS{}
	}

	z0 := m.start
	if xf != nil {
		z0 = xf.toFree(m.start)
	}

	optrslt, err := optimize.Minimize(p, z0, settings, method)
	if err == nil && optrslt != nil {
		err = optrslt.Status.Err()
	}
	if err != nil {
		if optrslt == nil {
			return nil, fmt.Errorf("mle: %v", err)
		}
		// Return partial results with the last iterate for
		// inspection.
		theta := optrslt.X
		if xf != nil {
			theta = xf.toTheta(optrslt.X)
		}
		rslt := &Results{
			BaseResults: econ.NewBaseResults(theta, m.names, nil),
			loglik:      -optrslt.F * float64(nobs),
		}
		m.failMessage(optrslt)
		return rslt, fmt.Errorf("mle: optimizer did not converge: %v", err)
	}

	theta := make([]float64, nparam)
	if xf != nil {
		copy(theta, xf.toTheta(optrslt.X))
	} else {
		copy(theta, optrslt.X)
	}

	if m.log != nil {
		m.log.Printf("mle: converged after %d function evaluations", optrslt.FuncEvaluations)
	}

	loglikObs := make([]float64, nobs)
	m.ll.LogLike(theta, loglikObs)
	var loglik float64
	for _, v := range loglikObs {
		loglik += v
	}

	vinfo, vopg, vsand, err := m.vcov(theta, meanLL, nobs)
	if err != nil {
		rslt := &Results{
			BaseResults: econ.NewBaseResults(theta, m.names, nil),
			loglikObs:   loglikObs,
			loglik:      loglik,
		}
		return rslt, err
	}

	rslt := &Results{
		BaseResults: econ.NewBaseResults(theta, m.names, vsand),
		vcovInfo:    vinfo,
		vcovOPG:     vopg,
		loglikObs:   loglikObs,
		loglik:      loglik,
	}

	return rslt, nil
}

// vcov computes the information-matrix, outer-product-of-gradients,
// and sandwich covariance estimates at the point estimate.
func (m *Model) vcov(theta []float64, meanLL func([]float64) float64, nobs int) (vinfo, vopg, vsand *mat.SymDense, err error) {

	nparam := len(theta)
	tn := float64(nobs)

	// Information matrix: negated Hessian of the mean
	// log-likelihood.  The finite-difference Hessian is symmetric by
	// construction.
	hess := econ.NumHess(meanLL, theta)
	info := mat.NewDense(nparam, nparam, nil)
	info.Scale(-1, hess)

	infoi, err := econ.Inv(info)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("mle: information matrix: %w", err)
	}

	// Score matrix: per-observation gradients.
	scores := econ.NumJac(func(dst, p []float64) {
		m.ll.LogLike(p, dst)
	}, nobs, theta)

	var j mat.Dense
	j.Mul(scores.T(), scores)
	j.Scale(1/tn, &j)

	ji, err := econ.Inv(&j)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("mle: gradient outer product: %w", err)
	}

	var vi mat.Dense
	vi.Scale(1/tn, infoi)
	vinfo = econ.SymmetrizeSym(&vi)

	var vg mat.Dense
	vg.Scale(1/tn, ji)
	vopg = econ.SymmetrizeSym(&vg)

	var vs mat.Dense
	vs.Mul(infoi, &j)
	vs.Mul(&vs, infoi)
	vs.Scale(1/tn, &vs)
	vsand = econ.SymmetrizeSym(&vs)

	return vinfo, vopg, vsand, nil
}

// failMessage prints information that can help diagnose optimization
// failures.
func (m *Model) failMessage(optrslt *optimize.Result) {

	os.Stderr.WriteString("mle: current point and gradient:\n")
	for j, x := range optrslt.X {
		if optrslt.Gradient != nil {
			os.Stderr.WriteString(fmt.Sprintf("%16.8f %16.8f\n", x, optrslt.Gradient[j]))
		} else {
			os.Stderr.WriteString(fmt.Sprintf("%16.8f\n", x))
		}
	}
}

// Summary returns a text summary reporting sandwich standard errors.
func (rslt *Results) Summary() *econ.SummaryTable {

	top := []string{
		fmt.Sprintf("Num obs:        %d", len(rslt.loglikObs)),
		fmt.Sprintf("Log-likelihood: %.4f", rslt.loglik),
		"Covariance:     sandwich",
	}

	return econ.CoefSummary(&rslt.BaseResults, "Maximum likelihood estimation", top)
}

package gmm

import (
	"fmt"
	"log"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/RolfLobo/FinancialEconometrics/econ"
)

// Momenter evaluates the per-observation moment conditions of a model
// at a parameter vector.  Row t of the destination matrix holds the M
// moment contributions of observation t; their expectation is zero at
// the true parameter.
type Momenter interface {

	// Number of observations in the data set.
	NumObs() int

	// Number of moment conditions.
	NumMoments() int

	// Moments fills dst, of size NumObs x NumMoments, with the
	// moment contributions at params.
	Moments(params []float64, dst *mat.Dense)
}

type momFunc struct {
	nobs, nmom int
	fn         func(params []float64, dst *mat.Dense)
}

func (f *momFunc) NumObs() int { return f.nobs }

func (f *momFunc) NumMoments() int { return f.nmom }

func (f *momFunc) Moments(params []float64, dst *mat.Dense) { f.fn(params, dst) }

// NewFunc wraps a plain function as a Momenter with nobs observations
// and nmom moment conditions.
func NewFunc(nobs, nmom int, fn func(params []float64, dst *mat.Dense)) Momenter {
	return &momFunc{nobs: nobs, nmom: nmom, fn: fn}
}

// Model configures a GMM estimation.
type Model struct {
	mom   Momenter
	start []float64

	lags    int
	maxIter int
	tol     float64
	names   []string

	settings *optimize.Settings
	method   optimize.Method

	log *log.Logger
}

// New returns a GMM model for the given moment conditions and starting
// values.
func New(mom Momenter, start []float64) *Model {
	return &Model{
		mom:     mom,
		start:   start,
		maxIter: 100,
		tol:     1e-3,
	}
}

// Lags sets the Newey-West bandwidth used for the long-run covariance
// of the moment conditions.
func (m *Model) Lags(lags int) *Model {
	m.lags = lags
	return m
}

// MaxIter caps the efficient-weighting refinement loop.  The default
// is 100; exceeding the cap is reported as non-convergence.
func (m *Model) MaxIter(n int) *Model {
	m.maxIter = n
	return m
}

// Tol sets the convergence threshold on the maximum absolute parameter
// change between refinement iterations.  The default is 1e-3.
func (m *Model) Tol(tol float64) *Model {
	m.tol = tol
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
		panic("gmm: starting values are required")
	}
	if len(m.start) > m.mom.NumMoments() {
		msg := fmt.Sprintf("gmm: %d parameters cannot be identified by %d moments",
			len(m.start), m.mom.NumMoments())
		panic(msg)
	}
	if m.lags < 0 {
		panic("gmm: negative HAC bandwidth")
	}
	if m.maxIter < 1 {
		panic("gmm: iteration cap must be positive")
	}

	return m
}

// Results holds a fitted GMM model.
type Results struct {
	econ.BaseResults

	gbar   []float64
	weight *mat.SymDense
	iter   int

	jstat float64
	jdf   int
}

// MeanMoments returns the column means of the moment conditions at the
// estimate.
func (rslt *Results) MeanMoments() []float64 { return rslt.gbar }

// Weight returns the weighting matrix used in the final fit, or nil
// for the exactly identified and combined modes.
func (rslt *Results) Weight() *mat.SymDense { return rslt.weight }

// Iter returns the number of refinement iterations performed by
// FitIterated, and zero for the other modes.
func (rslt *Results) Iter() int { return rslt.iter }

// JStat returns the Hansen overidentification statistic and its
// chi-squared p-value.  Both are NaN for exactly identified fits.
func (rslt *Results) JStat() (stat, pvalue float64) {
	if rslt.jdf <= 0 {
		return math.NaN(), math.NaN()
	}
	return rslt.jstat, distuv.ChiSquared{K: float64(rslt.jdf)}.Survival(rslt.jstat)
}

// momentMatrix evaluates the T x M moment matrix at params.
func (m *Model) momentMatrix(params []float64) *mat.Dense {
	g := mat.NewDense(m.mom.NumObs(), m.mom.NumMoments(), nil)
	m.mom.Moments(params, g)
	return g
}

// meanMoments returns the column means of the moment matrix at params.
func (m *Model) meanMoments(params []float64) []float64 {

	nobs := m.mom.NumObs()
	nmom := m.mom.NumMoments()
	g := m.momentMatrix(params)

	gbar := make([]float64, nmom)
	for t := 0; t < nobs; t++ {
		for k := 0; k < nmom; k++ {
			gbar[k] += g.At(t, k)
		}
	}
	for k := range gbar {
		gbar[k] /= float64(nobs)
	}
	return gbar
}

// FitExact solves the exactly identified system, driving the mean
// moment vector to zero by root-finding.
func (m *Model) FitExact() (*Results, error) {

	nparam := len(m.start)
	nmom := m.mom.NumMoments()
	if nmom != nparam {
		msg := fmt.Sprintf("gmm: FitExact needs as many moments as parameters, got %d and %d", nmom, nparam)
		panic(msg)
	}

	params, err := newton(m.meanMoments, m.start, 1e-8, m.maxIter)
	if err != nil {
		rslt := &Results{
			BaseResults: econ.NewBaseResults(params, m.names, nil),
			gbar:        m.meanMoments(params),
		}
		return rslt, err
	}

	if m.log != nil {
		m.log.Printf("gmm: exactly identified system solved")
	}

	vcov, err := m.exactVCov(params, nil)
	if err != nil {
		return nil, err
	}

	rslt := &Results{
		BaseResults: econ.NewBaseResults(params, m.names, vcov),
		gbar:        m.meanMoments(params),
	}

	return rslt, nil
}

// FitCombined solves A * meanMoments(params) = 0, where A recombines
// the M moments into K effective ones.  A may be given as K x M or as
// its M x K transpose.
func (m *Model) FitCombined(a *mat.Dense) (*Results, error) {

	nparam := len(m.start)
	nmom := m.mom.NumMoments()
	ar, ac := a.Dims()
	switch {
	case ar == nparam && ac == nmom:
	case ar == nmom && ac == nparam:
		var at mat.Dense
		at.CloneFrom(a.T())
		a = &at
	default:
		msg := fmt.Sprintf("gmm: combination matrix is %dx%d, want %dx%d or %dx%d",
			ar, ac, nparam, nmom, nmom, nparam)
		panic(msg)
	}

	combined := func(params []float64) []float64 {
		gbar := mat.NewVecDense(nmom, m.meanMoments(params))
		out := mat.NewVecDense(nparam, nil)
		out.MulVec(a, gbar)
		return out.RawVector().Data
	}

	params, err := newton(combined, m.start, 1e-8, m.maxIter)
	if err != nil {
		rslt := &Results{
			BaseResults: econ.NewBaseResults(params, m.names, nil),
			gbar:        m.meanMoments(params),
		}
		return rslt, err
	}

	vcov, err := m.exactVCov(params, a)
	if err != nil {
		return nil, err
	}

	rslt := &Results{
		BaseResults: econ.NewBaseResults(params, m.names, vcov),
		gbar:        m.meanMoments(params),
	}

	return rslt, nil
}

// exactVCov computes (D' S^-1 D)^-1 / T where D is the Jacobian of the
// mean moments and S their long-run covariance.  When a is non-nil the
// moments are first recombined by it, as in FitCombined.
func (m *Model) exactVCov(params []float64, a *mat.Dense) (*mat.SymDense, error) {

	nobs := m.mom.NumObs()
	nmom := m.mom.NumMoments()

	g := m.momentMatrix(params)
	sig := econ.CovNW(g, m.lags)

	d := econ.NumJac(func(dst, p []float64) {
		copy(dst, m.meanMoments(p))
	}, nmom, params)

	var sigm mat.Matrix = sig
	var dm mat.Matrix = d
	if a != nil {
		var da mat.Dense
		da.Mul(a, d)
		dm = &da
		var as mat.Dense
		as.Mul(a, sig)
		var sa mat.Dense
		sa.Mul(&as, a.T())
		sigm = econ.SymmetrizeSym(&sa)
	}

	sigi, err := econ.Inv(sigm)
	if err != nil {
		return nil, fmt.Errorf("gmm: moment covariance: %w", err)
	}

	var h mat.Dense
	h.Mul(dm.T(), sigi)
	h.Mul(&h, dm)

	hi, err := econ.Inv(&h)
	if err != nil {
		return nil, fmt.Errorf("gmm: %w", err)
	}

	var v mat.Dense
	v.Scale(1/float64(nobs), hi)

	return econ.SymmetrizeSym(&v), nil
}

// FitWeighted minimizes the quadratic form gbar' W gbar of the mean
// moments under the caller-supplied weighting matrix.
func (m *Model) FitWeighted(w *mat.SymDense) (*Results, error) {
	return m.fitWeighted(w, true)
}

// fitWeighted carries a flag to skip the Jacobian and covariance work
// when only the point estimate is needed, as inside the refinement
// loop.
func (m *Model) fitWeighted(w *mat.SymDense, wantCov bool) (*Results, error) {

	nmom := m.mom.NumMoments()
	wr, _ := w.Dims()
	if wr != nmom {
		msg := fmt.Sprintf("gmm: weighting matrix is %dx%d, want %dx%d", wr, wr, nmom, nmom)
		panic(msg)
	}

	obj := func(params []float64) float64 {
		gbar := mat.NewVecDense(nmom, m.meanMoments(params))
		return mat.Inner(gbar, w, gbar)
	}

	p := optimize.Problem{
		Func: obj,
		Grad: func(grad, x []float64) {
			copy(grad, econ.NumGrad(obj, x))
		},
	}

	settings := m.settings
	if settings == nil {
		settings = &optimize.Settings{
			GradientThreshold: 1e-8,
		}
	}
	method := m.method
	if method == nil {
		method = &optimize.BFGS{}
	}

	optrslt, err := optimize.Minimize(p, m.start, settings, method)
	if err == nil && optrslt != nil {
		err = optrslt.Status.Err()
	}
	if err != nil {
		if optrslt == nil {
			return nil, fmt.Errorf("gmm: %v", err)
		}
		rslt := &Results{
			BaseResults: econ.NewBaseResults(optrslt.X, m.names, nil),
			gbar:        m.meanMoments(optrslt.X),
			weight:      w,
		}
		return rslt, fmt.Errorf("gmm: optimizer did not converge: %v", err)
	}

	params := make([]float64, len(optrslt.X))
	copy(params, optrslt.X)

	rslt := &Results{
		BaseResults: econ.NewBaseResults(params, m.names, nil),
		gbar:        m.meanMoments(params),
		weight:      w,
	}

	if !wantCov {
		return rslt, nil
	}

	vcov, jstat, err := m.weightedVCov(params, w)
	if err != nil {
		return rslt, err
	}

	rslt.BaseResults = econ.NewBaseResults(params, m.names, vcov)
	rslt.jstat = jstat
	rslt.jdf = nmom - len(params)

	return rslt, nil
}

// weightedVCov computes the overidentified GMM covariance
// (D'WD)^-1 D'W S WD (D'WD)^-1 / T and the Hansen J statistic.
func (m *Model) weightedVCov(params []float64, w *mat.SymDense) (*mat.SymDense, float64, error) {

	nobs := m.mom.NumObs()
	nmom := m.mom.NumMoments()

	g := m.momentMatrix(params)
	sig := econ.CovNW(g, m.lags)

	d := econ.NumJac(func(dst, p []float64) {
		copy(dst, m.meanMoments(p))
	}, nmom, params)

	// The K x M intermediates keep their own storage; the final K x K
	// products go into fresh receivers.
	var dw mat.Dense
	dw.Mul(d.T(), w)
	var dwd mat.Dense
	dwd.Mul(&dw, d)

	dwdi, err := econ.Inv(&dwd)
	if err != nil {
		return nil, 0, fmt.Errorf("gmm: %w", err)
	}

	var dws mat.Dense
	dws.Mul(&dw, sig)
	dws.Mul(&dws, w)
	var meat mat.Dense
	meat.Mul(&dws, d)

	var v mat.Dense
	v.Mul(dwdi, &meat)
	v.Mul(&v, dwdi)
	v.Scale(1/float64(nobs), &v)

	// Hansen J: T * gbar' S^-1 gbar.
	var jstat float64
	if sigi, err := econ.Inv(sig); err == nil {
		gbar := mat.NewVecDense(nmom, m.meanMoments(params))
		jstat = float64(nobs) * mat.Inner(gbar, sigi, gbar)
	} else {
		jstat = math.NaN()
	}

	return econ.SymmetrizeSym(&v), jstat, nil
}

// FitIterated refits with W set to the inverse of the current long-run
// moment covariance until the parameters settle, starting from the
// supplied weighting matrix, or from the identity when w0 is nil.  At
// least one refinement is always performed.  The state of each
// iteration is a fresh (params, weight, iteration) triple; nothing is
// accumulated in place.
func (m *Model) FitIterated(w0 *mat.SymDense) (*Results, error) {

	w := w0
	if w == nil {
		nmom := m.mom.NumMoments()
		w = mat.NewSymDense(nmom, nil)
		for i := 0; i < nmom; i++ {
			w.SetSym(i, i, 1)
		}
	}
	params := m.start
	var last *Results

	for iter := 1; iter <= m.maxIter; iter++ {

		rslt, err := m.restarted(params).fitWeighted(w, false)
		if err != nil {
			return rslt, err
		}
		last = rslt

		delta := maxAbsDiff(rslt.Params(), params)
		params = rslt.Params()

		g := m.momentMatrix(params)
		sig := econ.CovNW(g, m.lags)
		wi, err := econ.Inv(sig)
		if err != nil {
			return rslt, fmt.Errorf("gmm: efficient weighting matrix: %w", err)
		}
		w = econ.SymmetrizeSym(wi)

		if m.log != nil {
			m.log.Printf("gmm: refinement iteration %d, max parameter change %g", iter, delta)
		}

		if delta < m.tol {
			out, err := m.restarted(params).fitWeighted(w, true)
			if err != nil {
				return out, err
			}
			out.iter = iter
			return out, nil
		}
	}

	// Last iterate stays available for inspection alongside the
	// error.
	return last, fmt.Errorf("gmm: efficient weighting did not converge in %d iterations", m.maxIter)
}

// restarted clones the model with new starting values.
func (m *Model) restarted(start []float64) *Model {
	c := *m
	c.start = start
	return &c
}

func maxAbsDiff(a, b []float64) float64 {
	var m float64
	for i := range a {
		if d := math.Abs(a[i] - b[i]); d > m {
			m = d
		}
	}
	return m
}

// Summary returns a text summary of the fitted model.
func (rslt *Results) Summary() *econ.SummaryTable {

	top := []string{
		fmt.Sprintf("Num moments: %d", len(rslt.gbar)),
	}
	if rslt.jdf > 0 {
		stat, pv := rslt.JStat()
		top = append(top, fmt.Sprintf("J-stat:      %.4f (p = %.4f)", stat, pv))
	}

	return econ.CoefSummary(&rslt.BaseResults, "GMM estimation", top)
}

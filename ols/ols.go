package ols

import (
	"fmt"
	"log"

	"gonum.org/v1/gonum/mat"

	"github.com/RolfLobo/FinancialEconometrics/econ"
)

// CovType selects the covariance estimator for the fitted
// coefficients.
type CovType int

const (
	// IID is the classical Gauss-Markov estimator.
	IID CovType = iota

	// White is the heteroskedasticity-robust estimator.
	White

	// NeweyWest is the HAC estimator with linearly tapering lag
	// weights.  With zero lags it coincides with White.
	NeweyWest

	// HodrickHansen is the HAC estimator with uniform lag weights.
	HodrickHansen

	// Cluster is the one-way cluster-robust estimator.  With every
	// observation in its own cluster it coincides with White.
	Cluster
)

// Model specifies a least-squares regression of each column of y on a
// common regressor matrix x.
type Model struct {
	y *mat.Dense // T x n
	x *mat.Dense // T x K

	covtype  CovType
	lags     int
	clusters []int
	xnames   []string

	log *log.Logger
}

// New returns a model regressing each column of y on x.  The rows of y
// and x must be aligned.
func New(y, x *mat.Dense) *Model {

	ty, _ := y.Dims()
	tx, _ := x.Dims()
	if ty != tx {
		msg := fmt.Sprintf("ols: y has %d rows but x has %d", ty, tx)
		panic(msg)
	}

	return &Model{y: y, x: x}
}

// Single returns a model for a single regression of y on x.
func Single(y []float64, x *mat.Dense) *Model {
	return New(mat.NewDense(len(y), 1, y), x)
}

// Cov sets the covariance estimator.  The default is IID.
func (m *Model) Cov(t CovType) *Model {
	m.covtype = t
	return m
}

// Lags sets the HAC bandwidth used by the NeweyWest and HodrickHansen
// estimators.
func (m *Model) Lags(lags int) *Model {
	m.lags = lags
	return m
}

// Clusters sets the cluster assignment, one id per observation,
// consumed by the Cluster covariance estimator.
func (m *Model) Clusters(c []int) *Model {
	m.clusters = c
	return m
}

// Names sets the regressor names used in results and summaries.
func (m *Model) Names(names []string) *Model {
	m.xnames = names
	return m
}

// Log takes a Logger value that will receive fitting messages.
func (m *Model) Log(log *log.Logger) *Model {
	m.log = log
	return m
}

// Done validates the model configuration.  It must be called before
// Fit.
func (m *Model) Done() *Model {

	nobs, nvar := m.x.Dims()

	if m.lags < 0 {
		panic("ols: negative HAC bandwidth")
	}
	if m.covtype == Cluster && m.clusters == nil {
		panic("ols: Cluster covariance requires a cluster assignment")
	}
	if m.clusters != nil && len(m.clusters) != nobs {
		msg := fmt.Sprintf("ols: %d cluster ids for %d observations", len(m.clusters), nobs)
		panic(msg)
	}
	if m.xnames != nil && len(m.xnames) != nvar {
		msg := fmt.Sprintf("ols: %d names for %d regressors", len(m.xnames), nvar)
		panic(msg)
	}

	return m
}

// Results holds a fitted least-squares regression.  For n simultaneous
// equations the stacked coefficient vector is ordered equation by
// equation, and the covariance matrix refers to that stacking.
type Results struct {
	econ.BaseResults

	coeff  *mat.Dense // K x n
	resid  *mat.Dense // T x n
	fitted *mat.Dense // T x n
	r2     []float64  // per equation

	covtype CovType
	nobs    int
}

// Coeff returns the K x n coefficient matrix.
func (rslt *Results) Coeff() *mat.Dense { return rslt.coeff }

// Resid returns the T x n residual matrix.
func (rslt *Results) Resid() *mat.Dense { return rslt.resid }

// Fitted returns the T x n matrix of fitted values.
func (rslt *Results) Fitted() *mat.Dense { return rslt.fitted }

// RSquared returns the coefficient of determination for each equation,
// computed with population variances.
func (rslt *Results) RSquared() []float64 { return rslt.r2 }

// NumObs returns the number of observations used in the fit.
func (rslt *Results) NumObs() int { return rslt.nobs }

// Fit estimates the model.  It fails with a singular-design error when
// the regressors are collinear; see the VIF diagnostic.
func (m *Model) Fit() (*Results, error) {

	nobs, nvar := m.x.Dims()
	_, neq := m.y.Dims()

	if m.log != nil {
		m.log.Printf("ols: fitting %d equation(s), %d observations, %d regressors", neq, nobs, nvar)
	}

	var coeff mat.Dense
	if err := coeff.Solve(m.x, m.y); err != nil {
		return nil, fmt.Errorf("ols: %w (%v)", econ.ErrSingular, err)
	}

	var fitted mat.Dense
	fitted.Mul(m.x, &coeff)
	var resid mat.Dense
	resid.Sub(m.y, &fitted)

	r2 := make([]float64, neq)
	var ucol, ycol []float64
	for j := 0; j < neq; j++ {
		ucol = mat.Col(ucol, j, &resid)
		ycol = mat.Col(ycol, j, m.y)
		_, vu := econ.MeanVar(ucol)
		_, vy := econ.MeanVar(ycol)
		r2[j] = 1 - vu/vy
	}

	vcov, err := m.vcov(&coeff, &resid)
	if err != nil {
		return nil, err
	}

	params := make([]float64, nvar*neq)
	for j := 0; j < neq; j++ {
		for k := 0; k < nvar; k++ {
			params[j*nvar+k] = coeff.At(k, j)
		}
	}

	rslt := &Results{
		BaseResults: econ.NewBaseResults(params, m.paramNames(neq, nvar), vcov),
		coeff:       &coeff,
		resid:       &resid,
		fitted:      &fitted,
		r2:          r2,
		covtype:     m.covtype,
		nobs:        nobs,
	}

	return rslt, nil
}

func (m *Model) paramNames(neq, nvar int) []string {

	xnames := m.xnames
	if xnames == nil {
		xnames = make([]string, nvar)
		for k := range xnames {
			xnames[k] = fmt.Sprintf("x%d", k+1)
		}
	}

	if neq == 1 {
		return xnames
	}

	names := make([]string, 0, neq*nvar)
	for j := 0; j < neq; j++ {
		for _, na := range xnames {
			names = append(names, fmt.Sprintf("eq%d:%s", j+1, na))
		}
	}
	return names
}

// vcov computes the covariance matrix of the stacked coefficient
// vector under the configured estimator.
func (m *Model) vcov(coeff, resid *mat.Dense) (*mat.SymDense, error) {

	nobs, _ := m.x.Dims()
	_, neq := m.y.Dims()

	var xtx mat.Dense
	xtx.Mul(m.x.T(), m.x)
	xtxi, err := econ.Inv(&xtx)
	if err != nil {
		return nil, fmt.Errorf("ols: %w", err)
	}

	if m.covtype == IID {
		// Residual covariance across equations, normalized by T.
		var sigma mat.Dense
		sigma.Mul(resid.T(), resid)
		sigma.Scale(1/float64(nobs), &sigma)

		var v mat.Dense
		if neq == 1 {
			v.Scale(sigma.At(0, 0), xtxi)
		} else {
			v.Kronecker(&sigma, xtxi)
		}
		return econ.SymmetrizeSym(&v), nil
	}

	// Per-observation score contributions for the stacked system.
	g := scoreMatrix(m.x, resid)

	var meat *mat.SymDense
	switch m.covtype {
	case White:
		meat = econ.CovNW(g, 0)
		scaleSym(meat, float64(nobs))
	case NeweyWest:
		meat = econ.CovNW(g, m.lags)
		scaleSym(meat, float64(nobs))
	case HodrickHansen:
		meat = econ.CovNWFlat(g, m.lags)
		scaleSym(meat, float64(nobs))
	case Cluster:
		gc := clusterSums(g, m.clusters)
		var s mat.Dense
		s.Mul(gc.T(), gc)
		meat = econ.SymmetrizeSym(&s)
	default:
		panic(fmt.Sprintf("ols: unknown covariance type %d", m.covtype))
	}

	var bread mat.Dense
	if neq == 1 {
		bread.CloneFrom(xtxi)
	} else {
		bread.Kronecker(eye(neq), xtxi)
	}

	var v mat.Dense
	v.Mul(&bread, meat)
	v.Mul(&v, &bread)

	return econ.SymmetrizeSym(&v), nil
}

// scoreMatrix builds the T x (K*n) matrix whose row t stacks
// x_t * u_t,j for each equation j.
func scoreMatrix(x, resid *mat.Dense) *mat.Dense {

	nobs, nvar := x.Dims()
	_, neq := resid.Dims()

	g := mat.NewDense(nobs, nvar*neq, nil)
	for t := 0; t < nobs; t++ {
		for j := 0; j < neq; j++ {
			u := resid.At(t, j)
			for k := 0; k < nvar; k++ {
				g.Set(t, j*nvar+k, u*x.At(t, k))
			}
		}
	}
	return g
}

// clusterSums adds the rows of g within each cluster, producing one
// super-observation per cluster.
func clusterSums(g *mat.Dense, clusters []int) *mat.Dense {

	nobs, q := g.Dims()

	ix := make(map[int]int)
	for _, c := range clusters {
		if _, ok := ix[c]; !ok {
			ix[c] = len(ix)
		}
	}

	gc := mat.NewDense(len(ix), q, nil)
	for t := 0; t < nobs; t++ {
		r := ix[clusters[t]]
		for k := 0; k < q; k++ {
			gc.Set(r, k, gc.At(r, k)+g.At(t, k))
		}
	}
	return gc
}

func scaleSym(s *mat.SymDense, c float64) {
	n, _ := s.Dims()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, c*s.At(i, j))
		}
	}
}

func eye(n int) *mat.Dense {
	a := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		a.Set(i, i, 1)
	}
	return a
}

// Summary returns a text summary of the fitted model.
func (rslt *Results) Summary() *econ.SummaryTable {

	covname := map[CovType]string{
		IID:           "IID",
		White:         "White",
		NeweyWest:     "Newey-West",
		HodrickHansen: "Hodrick-Hansen",
		Cluster:       "Cluster",
	}[rslt.covtype]

	top := []string{
		fmt.Sprintf("Num obs:    %d", rslt.nobs),
		fmt.Sprintf("Covariance: %s", covname),
	}
	for j, r2 := range rslt.r2 {
		if len(rslt.r2) == 1 {
			top = append(top, fmt.Sprintf("R-squared:  %.4f", r2))
		} else {
			top = append(top, fmt.Sprintf("R-squared (eq %d): %.4f", j+1, r2))
		}
	}

	return econ.CoefSummary(&rslt.BaseResults, "Least squares regression", top)
}

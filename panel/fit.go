package panel

import (
	"fmt"
	"log"

	"gonum.org/v1/gonum/mat"

	"github.com/RolfLobo/FinancialEconometrics/econ"
)

// Model specifies a pooled least-squares regression on panel data.
// Missing observations are zeroed out, not dropped, so the panel keeps
// its rectangular shape; the per-period valid-observation counts are
// reported for diagnostic use.
type Model struct {
	d *Data

	lags     int
	clusters []int
	xnames   []string

	log *log.Logger
}

// New returns a pooled panel regression model for d.
func New(d *Data) *Model {
	return &Model{d: d}
}

// Lags sets the bandwidth of the Driscoll-Kraay HAC estimator.
func (m *Model) Lags(lags int) *Model {
	m.lags = lags
	return m
}

// Clusters assigns each entity to a cluster, enabling the
// cluster-robust covariance in the result bundle.
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

// Done validates the model configuration.
func (m *Model) Done() *Model {

	_, nent, nvar := m.d.Dims()

	if m.lags < 0 {
		panic("panel: negative HAC bandwidth")
	}
	if m.clusters != nil && len(m.clusters) != nent {
		msg := fmt.Sprintf("panel: %d cluster ids for %d entities", len(m.clusters), nent)
		panic(msg)
	}
	if m.xnames != nil && len(m.xnames) != nvar {
		msg := fmt.Sprintf("panel: %d names for %d regressors", len(m.xnames), nvar)
		panic(msg)
	}

	return m
}

// Results bundles a pooled panel fit with the covariance estimators
// for the different error structures a caller may assume.  The
// embedded results use the Driscoll-Kraay covariance.
type Results struct {
	econ.BaseResults

	// VCovIID assumes independent homoskedastic errors.
	VCovIID *mat.SymDense

	// VCovWhite is robust to heteroskedasticity only.
	VCovWhite *mat.SymDense

	// VCovDriscollKraay is robust to cross-sectional correlation
	// and, through its HAC lags, to autocorrelation.
	VCovDriscollKraay *mat.SymDense

	// VCovArellano clusters by entity, handling within-entity
	// autocorrelation.
	VCovArellano *mat.SymDense

	// VCovCluster clusters entities by the supplied assignment and
	// sums scores within each cluster across all periods.  Nil when
	// no assignment was given.
	VCovCluster *mat.SymDense

	resid  *mat.Dense
	fitted *mat.Dense
	r2     float64

	nobs       int
	nobsPeriod []int
}

// Resid returns the T x N residual matrix; invalid cells hold zero.
func (rslt *Results) Resid() *mat.Dense { return rslt.resid }

// Fitted returns the T x N matrix of fitted values; invalid cells hold
// zero.
func (rslt *Results) Fitted() *mat.Dense { return rslt.fitted }

// RSquared returns the coefficient of determination over the valid
// observations, computed with population variances.
func (rslt *Results) RSquared() float64 { return rslt.r2 }

// NumObs returns the total number of valid observations.
func (rslt *Results) NumObs() int { return rslt.nobs }

// NumObsPeriod returns the number of valid observations per period.
func (rslt *Results) NumObsPeriod() []int { return rslt.nobsPeriod }

// Fit estimates the pooled regression and the covariance bundle.
func (m *Model) Fit() (*Results, error) {

	z := m.d.zeroed()
	nper, nent, nvar := z.Dims()

	nobsPeriod := z.NumValid()
	nobs := 0
	for _, c := range nobsPeriod {
		nobs += c
	}

	if m.log != nil {
		m.log.Printf("panel: fitting %d periods x %d entities, %d valid observations", nper, nent, nobs)
	}

	// Stack the panel entity by entity; zeroed rows drop out of all
	// cross products.
	ys := mat.NewDense(nper*nent, 1, nil)
	xs := mat.NewDense(nper*nent, nvar, nil)
	for i := 0; i < nent; i++ {
		for t := 0; t < nper; t++ {
			r := i*nper + t
			ys.Set(r, 0, z.Y.At(t, i))
			for k := 0; k < nvar; k++ {
				xs.Set(r, k, z.X[k].At(t, i))
			}
		}
	}

	var coeff mat.Dense
	if err := coeff.Solve(xs, ys); err != nil {
		return nil, fmt.Errorf("panel: %w (%v)", econ.ErrSingular, err)
	}
	b := make([]float64, nvar)
	for k := 0; k < nvar; k++ {
		b[k] = coeff.At(k, 0)
	}

	// Residuals and fitted values on the panel grid.
	resid := mat.NewDense(nper, nent, nil)
	fitted := mat.NewDense(nper, nent, nil)
	var yv, uv []float64
	for t := 0; t < nper; t++ {
		for i := 0; i < nent; i++ {
			if !z.valid[t][i] {
				continue
			}
			var fv float64
			for k := 0; k < nvar; k++ {
				fv += b[k] * z.X[k].At(t, i)
			}
			u := z.Y.At(t, i) - fv
			fitted.Set(t, i, fv)
			resid.Set(t, i, u)
			yv = append(yv, z.Y.At(t, i))
			uv = append(uv, u)
		}
	}

	_, vy := econ.MeanVar(yv)
	_, vu := econ.MeanVar(uv)
	r2 := 1 - vu/vy

	vcovs, err := m.vcovBundle(z, resid, nobs)
	if err != nil {
		return nil, err
	}

	rslt := &Results{
		BaseResults:       econ.NewBaseResults(b, m.xnames, vcovs.driscollKraay),
		VCovIID:           vcovs.iid,
		VCovWhite:         vcovs.white,
		VCovDriscollKraay: vcovs.driscollKraay,
		VCovArellano:      vcovs.arellano,
		VCovCluster:       vcovs.cluster,
		resid:             resid,
		fitted:            fitted,
		r2:                r2,
		nobs:              nobs,
		nobsPeriod:        nobsPeriod,
	}

	return rslt, nil
}

type vcovBundle struct {
	iid           *mat.SymDense
	white         *mat.SymDense
	driscollKraay *mat.SymDense
	arellano      *mat.SymDense
	cluster       *mat.SymDense
}

func (m *Model) vcovBundle(z *Data, resid *mat.Dense, nobs int) (*vcovBundle, error) {

	nper, nent, nvar := z.Dims()

	// X'X over valid cells.
	xtx := mat.NewDense(nvar, nvar, nil)
	for t := 0; t < nper; t++ {
		for i := 0; i < nent; i++ {
			if !z.valid[t][i] {
				continue
			}
			for k1 := 0; k1 < nvar; k1++ {
				for k2 := 0; k2 < nvar; k2++ {
					xtx.Set(k1, k2, xtx.At(k1, k2)+z.X[k1].At(t, i)*z.X[k2].At(t, i))
				}
			}
		}
	}
	xtxi, err := econ.Inv(xtx)
	if err != nil {
		return nil, fmt.Errorf("panel: %w", err)
	}

	sandwich := func(meat mat.Matrix) *mat.SymDense {
		var v mat.Dense
		v.Mul(xtxi, meat)
		v.Mul(&v, xtxi)
		return econ.SymmetrizeSym(&v)
	}

	// Per-cell scores x*u and their period sums.
	score := func(t, i, k int) float64 {
		return z.X[k].At(t, i) * resid.At(t, i)
	}

	bundle := &vcovBundle{}

	// IID
	var ssq float64
	for t := 0; t < nper; t++ {
		for i := 0; i < nent; i++ {
			u := resid.At(t, i)
			ssq += u * u
		}
	}
	sigma2 := ssq / float64(nobs)
	iid := mat.NewSymDense(nvar, nil)
	for k1 := 0; k1 < nvar; k1++ {
		for k2 := k1; k2 < nvar; k2++ {
			iid.SetSym(k1, k2, sigma2*xtxi.At(k1, k2))
		}
	}
	bundle.iid = iid

	// White: outer products of per-cell scores.
	white := mat.NewDense(nvar, nvar, nil)
	gt := make([]float64, nvar)
	for t := 0; t < nper; t++ {
		for i := 0; i < nent; i++ {
			if !z.valid[t][i] {
				continue
			}
			for k := 0; k < nvar; k++ {
				gt[k] = score(t, i, k)
			}
			addOuter(white, gt)
		}
	}
	bundle.white = sandwich(white)

	// Driscoll-Kraay: sum scores cross-sectionally per period, then
	// HAC over the period sums.
	h := mat.NewDense(nper, nvar, nil)
	for t := 0; t < nper; t++ {
		for i := 0; i < nent; i++ {
			if !z.valid[t][i] {
				continue
			}
			for k := 0; k < nvar; k++ {
				h.Set(t, k, h.At(t, k)+score(t, i, k))
			}
		}
	}
	dk := econ.CovNW(h, m.lags)
	var dkm mat.Dense
	dkm.CloneFrom(dk)
	dkm.Scale(float64(nper), &dkm)
	bundle.driscollKraay = sandwich(&dkm)

	// Arellano: sum scores over time within each entity.
	si := mat.NewDense(nent, nvar, nil)
	for i := 0; i < nent; i++ {
		for t := 0; t < nper; t++ {
			if !z.valid[t][i] {
				continue
			}
			for k := 0; k < nvar; k++ {
				si.Set(i, k, si.At(i, k)+score(t, i, k))
			}
		}
	}
	var am mat.Dense
	am.Mul(si.T(), si)
	bundle.arellano = sandwich(&am)

	// Cluster: sum the entity scores within each cluster.
	if m.clusters != nil {
		ix := make(map[int]int)
		for _, c := range m.clusters {
			if _, ok := ix[c]; !ok {
				ix[c] = len(ix)
			}
		}
		sc := mat.NewDense(len(ix), nvar, nil)
		for i := 0; i < nent; i++ {
			r := ix[m.clusters[i]]
			for k := 0; k < nvar; k++ {
				sc.Set(r, k, sc.At(r, k)+si.At(i, k))
			}
		}
		var cm mat.Dense
		cm.Mul(sc.T(), sc)
		bundle.cluster = sandwich(&cm)
	}

	return bundle, nil
}

func addOuter(s *mat.Dense, g []float64) {
	for k1 := range g {
		for k2 := range g {
			s.Set(k1, k2, s.At(k1, k2)+g[k1]*g[k2])
		}
	}
}

// Summary returns a text summary of the fit, reporting Driscoll-Kraay
// standard errors.
func (rslt *Results) Summary() *econ.SummaryTable {

	top := []string{
		fmt.Sprintf("Num obs:    %d", rslt.nobs),
		fmt.Sprintf("Periods:    %d", len(rslt.nobsPeriod)),
		"Covariance: Driscoll-Kraay",
		fmt.Sprintf("R-squared:  %.4f", rslt.r2),
	}

	return econ.CoefSummary(&rslt.BaseResults, "Pooled panel regression", top)
}

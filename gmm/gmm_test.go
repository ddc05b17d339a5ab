package gmm

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/RolfLobo/FinancialEconometrics/econ"
)

// meanVarMoments returns the two classical moment conditions
// [x - mu, (x-mu)^2 - v] for the series y.
func meanVarMoments(y []float64) Momenter {
	return NewFunc(len(y), 2, func(params []float64, dst *mat.Dense) {
		mu, v := params[0], params[1]
		for t, yt := range y {
			d := yt - mu
			dst.Set(t, 0, d)
			dst.Set(t, 1, d*d-v)
		}
	})
}

// threeMoments adds the third central moment, zero under symmetry, to
// the mean/variance conditions.
func threeMoments(y []float64) Momenter {
	return NewFunc(len(y), 3, func(params []float64, dst *mat.Dense) {
		mu, v := params[0], params[1]
		for t, yt := range y {
			d := yt - mu
			dst.Set(t, 0, d)
			dst.Set(t, 1, d*d-v)
			dst.Set(t, 2, d*d*d)
		}
	})
}

func simSeries(nobs int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	y := make([]float64, nobs)
	for i := range y {
		y[i] = 0.6 + 2.1*rng.NormFloat64()
	}
	return y
}

func TestExactlyIdentified(t *testing.T) {

	y := simSeries(600, 1)

	rslt, err := New(meanVarMoments(y), []float64{0, 1}).Lags(1).Done().FitExact()
	require.NoError(t, err)

	// The solution is the sample mean and the uncorrected sample
	// variance.
	mn, va := econ.MeanVar(y)
	assert.InDelta(t, mn, rslt.Params()[0], 1e-6)
	assert.InDelta(t, va, rslt.Params()[1], 1e-6)

	// The mean moments vanish at the solution.
	for _, g := range rslt.MeanMoments() {
		assert.InDelta(t, 0, g, 1e-8)
	}

	// Standard errors exist and the J statistic does not apply.
	require.NotNil(t, rslt.VCov())
	stat, _ := rslt.JStat()
	assert.True(t, math.IsNaN(stat))
}

func TestExactStdErrClosedForm(t *testing.T) {

	y := simSeries(2000, 3)

	rslt, err := New(meanVarMoments(y), []float64{0, 1}).Done().FitExact()
	require.NoError(t, err)

	// At the solution the Jacobian of the mean moments is close to
	// -I, so the covariance is close to Sigma/T; for the first
	// moment that is the series variance over T.
	_, va := econ.MeanVar(y)
	nobs := float64(len(y))
	assert.InEpsilon(t, math.Sqrt(va/nobs), rslt.StdErr()[0], 0.05)
}

func TestWeightedMatchesExact(t *testing.T) {

	y := simSeries(400, 5)

	re, err := New(meanVarMoments(y), []float64{0, 1}).Done().FitExact()
	require.NoError(t, err)

	w := mat.NewSymDense(2, []float64{1, 0, 0, 1})
	rw, err := New(meanVarMoments(y), []float64{0, 1}).Done().FitWeighted(w)
	require.NoError(t, err)

	// With as many moments as parameters the weighting is
	// irrelevant; both modes find the same point.
	assert.InDeltaSlice(t, re.Params(), rw.Params(), 1e-4)
}

func TestWeightedOveridentified(t *testing.T) {

	y := simSeries(700, 4)

	// More moments than parameters: the covariance path runs the
	// full (D'WD)^-1 D'W Sigma W D (D'WD)^-1 sandwich.
	w := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		w.SetSym(i, i, 1)
	}

	rslt, err := New(threeMoments(y), []float64{0, 1}).Lags(1).Done().FitWeighted(w)
	require.NoError(t, err)

	require.NotNil(t, rslt.VCov())
	p, _ := rslt.VCov().Dims()
	require.Equal(t, 2, p)
	for k := 0; k < 2; k++ {
		assert.Greater(t, rslt.StdErr()[k], 0.0)
	}

	mn, va := econ.MeanVar(y)
	assert.InDelta(t, mn, rslt.Params()[0], 0.05)
	assert.InDelta(t, va, rslt.Params()[1], 0.3)

	stat, pv := rslt.JStat()
	assert.False(t, math.IsNaN(stat))
	assert.GreaterOrEqual(t, pv, 0.0)
	assert.LessOrEqual(t, pv, 1.0)
}

func TestIterated(t *testing.T) {

	y := simSeries(800, 7)

	w0 := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		w0.SetSym(i, i, 1)
	}

	rslt, err := New(threeMoments(y), []float64{0, 1}).Done().FitIterated(w0)
	require.NoError(t, err)

	mn, va := econ.MeanVar(y)
	assert.InDelta(t, mn, rslt.Params()[0], 0.05)
	assert.InDelta(t, va, rslt.Params()[1], 0.25)

	assert.GreaterOrEqual(t, rslt.Iter(), 1)
	require.NotNil(t, rslt.Weight())
	require.NotNil(t, rslt.VCov())

	// One overidentifying restriction: the J statistic has a
	// p-value, and under symmetry it should not reject wildly.
	stat, pv := rslt.JStat()
	assert.False(t, math.IsNaN(stat))
	assert.GreaterOrEqual(t, pv, 0.0)
	assert.LessOrEqual(t, pv, 1.0)
}

func TestIterationCap(t *testing.T) {

	y := simSeries(300, 9)

	w0 := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		w0.SetSym(i, i, 1)
	}

	// A tolerance no optimizer noise can meet, with a hard cap:
	// non-convergence must come back as an error, not a hang.
	_, err := New(threeMoments(y), []float64{0, 1}).
		Tol(0).MaxIter(2).Done().FitIterated(w0)
	require.Error(t, err)
}

func TestCombined(t *testing.T) {

	y := simSeries(500, 11)

	// Select the first two of the three moments.
	a := mat.NewDense(2, 3, []float64{
		1, 0, 0,
		0, 1, 0,
	})

	rc, err := New(threeMoments(y), []float64{0, 1}).Done().FitCombined(a)
	require.NoError(t, err)

	re, err := New(meanVarMoments(y), []float64{0, 1}).Done().FitExact()
	require.NoError(t, err)

	assert.InDeltaSlice(t, re.Params(), rc.Params(), 1e-6)
	require.NotNil(t, rc.VCov())
	for k := 0; k < 2; k++ {
		assert.Greater(t, rc.StdErr()[k], 0.0)
	}

	// The transposed orientation is accepted and gives the same
	// answer.
	var at mat.Dense
	at.CloneFrom(a.T())
	rt, err := New(threeMoments(y), []float64{0, 1}).Done().FitCombined(&at)
	require.NoError(t, err)
	assert.InDeltaSlice(t, rc.Params(), rt.Params(), 1e-10)
	require.True(t, mat.EqualApprox(rc.VCov(), rt.VCov(), 1e-12))
}

func TestDoneValidation(t *testing.T) {

	y := simSeries(50, 13)

	assert.Panics(t, func() {
		// Three parameters cannot be identified by two moments.
		New(meanVarMoments(y), []float64{0, 1, 2}).Done()
	})
	assert.Panics(t, func() {
		New(meanVarMoments(y), nil).Done()
	})
}

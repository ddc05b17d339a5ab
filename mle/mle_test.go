package mle

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/RolfLobo/FinancialEconometrics/econ"
)

// normalLik is the Gaussian log-likelihood parameterized by the mean
// and the variance.
type normalLik struct {
	y []float64
}

func (nl *normalLik) NumObs() int { return len(nl.y) }

func (nl *normalLik) LogLike(params, dst []float64) {
	mu, v := params[0], params[1]
	for i, yi := range nl.y {
		d := yi - mu
		dst[i] = -0.5*math.Log(2*math.Pi) - 0.5*math.Log(v) - d*d/(2*v)
	}
}

func simNormal(nobs int, mu, sd float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	y := make([]float64, nobs)
	for i := range y {
		y[i] = mu + sd*rng.NormFloat64()
	}
	return y
}

func TestNormalMLE(t *testing.T) {

	y := simNormal(2000, 1.0, 2.0, 2)
	nl := &normalLik{y: y}

	m := New(nl, []float64{0, 1}).
		Bounds([]float64{math.Inf(-1), 1e-8}, nil).
		Names([]string{"mu", "sigma2"}).
		Done()

	rslt, err := m.Fit()
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}

	// The ML estimates are the sample mean and the uncorrected
	// sample variance.
	mn, va := econ.MeanVar(y)
	if !floats.EqualApprox(rslt.Params(), []float64{mn, va}, 1e-4) {
		t.Errorf("estimates %v, want [%v %v]", rslt.Params(), mn, va)
	}

	if rslt.Params()[1] <= 0 {
		t.Errorf("variance estimate violates its lower bound")
	}

	// Textbook asymptotic standard errors: sqrt(v/T) for the mean,
	// sqrt(2 v^2 / T) for the variance.
	nobs := float64(len(y))
	wantSE := []float64{math.Sqrt(va / nobs), math.Sqrt(2 * va * va / nobs)}

	for name, se := range map[string][]float64{
		"information": rslt.StdErrInfo(),
		"gradient":    rslt.StdErrOPG(),
		"sandwich":    rslt.StdErrSandwich(),
	} {
		for k := range wantSE {
			if math.Abs(se[k]-wantSE[k])/wantSE[k] > 0.15 {
				t.Errorf("%s std error %d: %v, want about %v", name, k, se[k], wantSE[k])
			}
		}
	}

	// Under a correctly specified likelihood the three estimates
	// agree closely.
	if !floats.EqualApprox(rslt.StdErrInfo(), rslt.StdErrSandwich(), 0.1) {
		t.Errorf("information and sandwich standard errors diverge: %v vs %v",
			rslt.StdErrInfo(), rslt.StdErrSandwich())
	}

	// Per-observation contributions sum to the reported
	// log-likelihood.
	var s float64
	for _, v := range rslt.LogLikeObs() {
		s += v
	}
	if math.Abs(s-rslt.LogLike()) > 1e-8 {
		t.Errorf("per-observation contributions do not sum to the log-likelihood")
	}
}

func TestThreeStdErrorsConverge(t *testing.T) {

	// As the sample grows the three standard-error variants close in
	// on each other.
	spread := func(nobs int) float64 {
		y := simNormal(nobs, 0.5, 1.5, 4)
		rslt, err := New(&normalLik{y: y}, []float64{0, 1}).
			Bounds([]float64{math.Inf(-1), 1e-8}, nil).
			Done().Fit()
		if err != nil {
			t.Fatalf("fit failed for T=%d: %v", nobs, err)
		}
		var m float64
		for k := 0; k < 2; k++ {
			d := math.Abs(rslt.StdErrInfo()[k]-rslt.StdErrOPG()[k]) / rslt.StdErrInfo()[k]
			if d > m {
				m = d
			}
		}
		return m
	}

	small := spread(200)
	large := spread(8000)
	if large > small+0.02 {
		t.Errorf("standard-error spread grew with the sample: %v -> %v", small, large)
	}
	if large > 0.1 {
		t.Errorf("standard-error spread too wide in a large sample: %v", large)
	}
}

func TestFuncAdapter(t *testing.T) {

	y := simNormal(500, 0, 1, 6)
	ll := NewFunc(len(y), func(params, dst []float64) {
		(&normalLik{y: y}).LogLike(params, dst)
	})

	rslt, err := New(ll, []float64{0, 1}).
		Bounds([]float64{math.Inf(-1), 1e-8}, nil).
		Done().Fit()
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}

	mn, _ := econ.MeanVar(y)
	if math.Abs(rslt.Params()[0]-mn) > 1e-4 {
		t.Errorf("mean estimate %v, want %v", rslt.Params()[0], mn)
	}
}

func TestBoundsTransform(t *testing.T) {

	xf := newXform([]float64{0, -1, math.Inf(-1)}, []float64{math.Inf(1), 1, 2}, 3)

	theta := []float64{0.5, 0.25, -3}
	z := xf.toFree(theta)
	back := xf.toTheta(z)
	if !floats.EqualApprox(theta, back, 1e-10) {
		t.Errorf("round trip %v -> %v -> %v", theta, z, back)
	}

	// Any free point maps inside the box.
	for _, v := range []float64{-10, -1, 0, 1, 10} {
		th := xf.toTheta([]float64{v, v, v})
		if th[0] < 0 {
			t.Errorf("lower bound violated: %v", th[0])
		}
		if th[1] < -1 || th[1] > 1 {
			t.Errorf("interval bound violated: %v", th[1])
		}
	}

	if newXform(nil, nil, 2) != nil {
		t.Errorf("no bounds should produce a nil transform")
	}
}

package econ

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrSingular indicates that a design or weighting matrix could not be
// inverted.  It is never handled silently; callers decide whether to
// reformulate the model.
var ErrSingular = errors.New("econ: singular or ill-conditioned matrix")

// CovNW computes the Newey-West long-run covariance matrix of the rows
// of g, a T x q matrix of score or moment contributions.  Lagged
// autocovariances up to lag m enter with linearly tapering (tent)
// weights.  The result is normalized by T, so it estimates the
// covariance of sqrt(T) times the column means of g.  With m = 0 the
// result is the contemporaneous outer product, i.e. the White
// estimator's meat matrix.
func CovNW(g *mat.Dense, m int) *mat.SymDense {
	return covHAC(g, m, false)
}

// CovNWFlat is like CovNW but applies uniform (flat) weights to the
// lagged autocovariances, as in Hodrick-Hansen.
func CovNWFlat(g *mat.Dense, m int) *mat.SymDense {
	return covHAC(g, m, true)
}

func covHAC(g *mat.Dense, m int, flat bool) *mat.SymDense {

	nobs, q := g.Dims()
	if m < 0 {
		panic("econ: HAC bandwidth must be non-negative")
	}
	if m >= nobs {
		msg := fmt.Sprintf("econ: HAC bandwidth %d too large for %d observations", m, nobs)
		panic(msg)
	}

	var s mat.Dense
	s.Mul(g.T(), g)

	// Lagged cross products are not symmetric on their own, so each
	// lag enters together with its transpose.
	var gs, gst mat.Dense
	for lag := 1; lag <= m; lag++ {
		w := 1.0
		if !flat {
			w = 1 - float64(lag)/float64(m+1)
		}
		ga := g.Slice(lag, nobs, 0, q)
		gb := g.Slice(0, nobs-lag, 0, q)
		gs.Mul(ga.T(), gb)
		gst.CloneFrom(gs.T())
		gs.Add(&gs, &gst)
		gs.Scale(w, &gs)
		s.Add(&s, &gs)
	}

	s.Scale(1/float64(nobs), &s)

	return SymmetrizeSym(&s)
}

// Symmetrize replaces a with the average of a and its transpose,
// cancelling floating-point asymmetry left behind by numerical
// differentiation.  a must be square.
func Symmetrize(a *mat.Dense) {
	r, c := a.Dims()
	if r != c {
		panic("econ: cannot symmetrize a non-square matrix")
	}
	for i := 0; i < r; i++ {
		for j := 0; j < i; j++ {
			v := 0.5 * (a.At(i, j) + a.At(j, i))
			a.Set(i, j, v)
			a.Set(j, i, v)
		}
	}
}

// SymmetrizeSym returns the symmetric matrix obtained by averaging a
// with its transpose.
func SymmetrizeSym(a *mat.Dense) *mat.SymDense {
	r, c := a.Dims()
	if r != c {
		panic("econ: cannot symmetrize a non-square matrix")
	}
	s := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			s.SetSym(i, j, 0.5*(a.At(i, j)+a.At(j, i)))
		}
	}
	return s
}

// Inv returns the inverse of the square matrix a, or ErrSingular when a
// cannot be inverted reliably.  Singular designs are surfaced, never
// regularized.
func Inv(a mat.Matrix) (*mat.Dense, error) {
	r, c := a.Dims()
	if r != c {
		panic("econ: cannot invert a non-square matrix")
	}
	var ai mat.Dense
	if err := ai.Inverse(a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	return &ai, nil
}

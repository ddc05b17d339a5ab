package mle

import "math"

// xform maps between the bounded parameter space and the free space
// the optimizer works in.  Per coordinate: a two-sided bound uses a
// sine transform onto the interval, a one-sided bound an exponential
// transform, and an unbounded coordinate passes through.
type xform struct {
	lb, ub []float64
}

func newXform(lb, ub []float64, nparam int) *xform {

	if lb == nil && ub == nil {
		return nil
	}
	if lb == nil {
		lb = infSlice(nparam, -1)
	}
	if ub == nil {
		ub = infSlice(nparam, 1)
	}
	if len(lb) != nparam || len(ub) != nparam {
		panic("mle: bound lengths do not match the parameter count")
	}
	for j := range lb {
		if lb[j] >= ub[j] {
			panic("mle: lower bound not below upper bound")
		}
	}

	return &xform{lb: lb, ub: ub}
}

func infSlice(n int, sign float64) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = math.Inf(int(sign))
	}
	return x
}

// toTheta maps a free point to the bounded parameter space.
func (xf *xform) toTheta(z []float64) []float64 {

	theta := make([]float64, len(z))
	for j, v := range z {
		lo, hi := xf.lb[j], xf.ub[j]
		switch {
		case math.IsInf(lo, -1) && math.IsInf(hi, 1):
			theta[j] = v
		case math.IsInf(hi, 1):
			theta[j] = lo + math.Exp(v)
		case math.IsInf(lo, -1):
			theta[j] = hi - math.Exp(v)
		default:
			theta[j] = lo + (hi-lo)*(math.Sin(v)+1)/2
		}
	}
	return theta
}

// toFree maps a bounded starting point into the free space, nudging
// values on or outside the bounds slightly inside.
func (xf *xform) toFree(theta []float64) []float64 {

	const eps = 1e-8

	z := make([]float64, len(theta))
	for j, v := range theta {
		lo, hi := xf.lb[j], xf.ub[j]
		switch {
		case math.IsInf(lo, -1) && math.IsInf(hi, 1):
			z[j] = v
		case math.IsInf(hi, 1):
			z[j] = math.Log(math.Max(v-lo, eps))
		case math.IsInf(lo, -1):
			z[j] = math.Log(math.Max(hi-v, eps))
		default:
			u := (v - lo) / (hi - lo)
			u = math.Min(math.Max(u, eps), 1-eps)
			z[j] = math.Asin(2*u - 1)
		}
	}
	return z
}

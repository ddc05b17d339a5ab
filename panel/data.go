package panel

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Data holds a panel of T periods by N entities: a response matrix and
// one T x N matrix per regressor, together with the validity mask
// derived from missing-value markers.  Values at invalid cells are
// never read through the mask-aware operations in this package.
type Data struct {
	// Y is the T x N response.
	Y *mat.Dense

	// X[k] is the T x N matrix of the k'th regressor.
	X []*mat.Dense

	valid [][]bool
}

// NewData wraps a response matrix and regressor matrices into a panel.
// The validity mask marks a cell invalid when the response or any
// regressor is NaN there.
func NewData(y *mat.Dense, x []*mat.Dense) *Data {

	nper, nent := y.Dims()
	for k, xk := range x {
		r, c := xk.Dims()
		if r != nper || c != nent {
			msg := fmt.Sprintf("panel: regressor %d is %dx%d, response is %dx%d", k, r, c, nper, nent)
			panic(msg)
		}
	}

	valid := make([][]bool, nper)
	for t := 0; t < nper; t++ {
		valid[t] = make([]bool, nent)
		for i := 0; i < nent; i++ {
			ok := !math.IsNaN(y.At(t, i))
			for _, xk := range x {
				if math.IsNaN(xk.At(t, i)) {
					ok = false
					break
				}
			}
			valid[t][i] = ok
		}
	}

	return &Data{Y: y, X: x, valid: valid}
}

// Dims returns the number of periods, entities, and regressors.
func (d *Data) Dims() (nper, nent, nvar int) {
	nper, nent = d.Y.Dims()
	return nper, nent, len(d.X)
}

// Valid reports whether the observation at period t, entity i is
// complete.
func (d *Data) Valid(t, i int) bool {
	return d.valid[t][i]
}

// NumValid returns the number of valid observations in each period.
func (d *Data) NumValid() []int {
	nper, nent, _ := d.Dims()
	counts := make([]int, nper)
	for t := 0; t < nper; t++ {
		for i := 0; i < nent; i++ {
			if d.valid[t][i] {
				counts[t]++
			}
		}
	}
	return counts
}

// Reshape builds a panel from flat records.  Entities are assigned
// columns in order of first appearance; periods are sorted ascending.
// Cells with no record are missing.
func Reshape(ids, periods []int, y []float64, x *mat.Dense) *Data {

	nrec := len(ids)
	if len(periods) != nrec || len(y) != nrec {
		panic("panel: record arrays have different lengths")
	}
	xr, nvar := x.Dims()
	if xr != nrec {
		panic("panel: regressor rows do not match record count")
	}

	entIx := make(map[int]int)
	for _, id := range ids {
		if _, ok := entIx[id]; !ok {
			entIx[id] = len(entIx)
		}
	}

	perSet := make(map[int]bool)
	for _, t := range periods {
		perSet[t] = true
	}
	perVals := make([]int, 0, len(perSet))
	for t := range perSet {
		perVals = append(perVals, t)
	}
	sort.Ints(perVals)
	perIx := make(map[int]int, len(perVals))
	for j, t := range perVals {
		perIx[t] = j
	}

	nper := len(perVals)
	nent := len(entIx)

	ym := nanMatrix(nper, nent)
	xm := make([]*mat.Dense, nvar)
	for k := range xm {
		xm[k] = nanMatrix(nper, nent)
	}

	for r := 0; r < nrec; r++ {
		t := perIx[periods[r]]
		i := entIx[ids[r]]
		ym.Set(t, i, y[r])
		for k := 0; k < nvar; k++ {
			xm[k].Set(t, i, x.At(r, k))
		}
	}

	return NewData(ym, xm)
}

func nanMatrix(r, c int) *mat.Dense {
	a := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			a.Set(i, j, math.NaN())
		}
	}
	return a
}

// zeroed returns a copy of d in which every invalid cell holds zero,
// so that invalid cells drop out of sums.  The mask is shared; it is
// never mutated after construction.
func (d *Data) zeroed() *Data {

	nper, nent, nvar := d.Dims()

	cp := func(a *mat.Dense) *mat.Dense {
		b := mat.NewDense(nper, nent, nil)
		for t := 0; t < nper; t++ {
			for i := 0; i < nent; i++ {
				if d.valid[t][i] {
					b.Set(t, i, a.At(t, i))
				}
			}
		}
		return b
	}

	x := make([]*mat.Dense, nvar)
	for k := range x {
		x[k] = cp(d.X[k])
	}

	return &Data{Y: cp(d.Y), X: x, valid: d.valid}
}

// matrices returns the response and regressor matrices as one slice,
// response first.
func (d *Data) matrices() []*mat.Dense {
	all := make([]*mat.Dense, 0, len(d.X)+1)
	all = append(all, d.Y)
	return append(all, d.X...)
}

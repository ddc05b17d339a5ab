package panel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// smallPanel builds a 4-period, 3-entity panel with one regressor and
// a missing cell at (1, 2).
func smallPanel() *Data {

	y := mat.NewDense(4, 3, []float64{
		1, 2, 3,
		2, 1, math.NaN(),
		3, 3, 2,
		0, 2, 1,
	})
	x := mat.NewDense(4, 3, []float64{
		0.5, 1.0, -1.0,
		1.5, 0.0, 2.0,
		-0.5, 2.0, 1.0,
		1.0, 1.0, 0.0,
	})
	return NewData(y, []*mat.Dense{x})
}

func TestValidMask(t *testing.T) {

	d := smallPanel()

	assert.False(t, d.Valid(1, 2), "NaN response must invalidate the cell")
	assert.True(t, d.Valid(0, 2))

	counts := d.NumValid()
	assert.Equal(t, []int{3, 2, 3, 3}, counts)

	// A NaN regressor invalidates the cell too.
	x := mat.NewDense(4, 3, nil)
	x.Set(2, 0, math.NaN())
	d2 := NewData(mat.NewDense(4, 3, nil), []*mat.Dense{x})
	assert.False(t, d2.Valid(2, 0))
}

func TestFixedIndivEffects(t *testing.T) {

	d := smallPanel()
	z := FixedIndivEffects(d)

	// Each entity's mean over valid periods is zero afterwards.
	for _, a := range z.matrices() {
		for i := 0; i < 3; i++ {
			var sum float64
			for t1 := 0; t1 < 4; t1++ {
				if z.valid[t1][i] {
					sum += a.At(t1, i)
				}
			}
			assert.InDelta(t, 0, sum, 1e-12)
		}
	}

	// Invalid cells hold zero, not NaN.
	assert.Equal(t, 0.0, z.Y.At(1, 2))

	// The input is not mutated.
	assert.True(t, math.IsNaN(d.Y.At(1, 2)))
	assert.Equal(t, 1.0, d.Y.At(0, 0))
}

func TestFixedIndivEffectsIdempotent(t *testing.T) {

	d := smallPanel()
	once := FixedIndivEffects(d)
	twice := FixedIndivEffects(once)

	require.True(t, mat.EqualApprox(once.Y, twice.Y, 1e-12))
	for k := range once.X {
		require.True(t, mat.EqualApprox(once.X[k], twice.X[k], 1e-12))
	}
}

func TestFixedIndivTimeEffects(t *testing.T) {

	// Balanced panel: both entity and period means vanish after the
	// two-way transform.
	y := mat.NewDense(3, 3, []float64{
		1, 2, 3,
		4, 0, 2,
		2, 2, 2,
	})
	x := mat.NewDense(3, 3, []float64{
		1, 0, 1,
		0, 1, 1,
		1, 1, 0,
	})
	d := NewData(y, []*mat.Dense{x})

	z := FixedIndivTimeEffects(d)
	for t1 := 0; t1 < 3; t1++ {
		var rowsum float64
		for i := 0; i < 3; i++ {
			rowsum += z.Y.At(t1, i)
		}
		assert.InDelta(t, 0, rowsum, 1e-12, "period mean not removed")
	}

	// Time-first ordering also zeroes both margins on a balanced
	// panel.
	z2 := FixedTimeIndivEffects(d)
	for i := 0; i < 3; i++ {
		var colsum float64
		for t1 := 0; t1 < 3; t1++ {
			colsum += z2.Y.At(t1, i)
		}
		assert.InDelta(t, 0, colsum, 1e-12, "entity mean not removed")
	}
}

func TestAllMissingEntity(t *testing.T) {

	// Entity 2 has no valid observations at all.
	y := mat.NewDense(3, 3, []float64{
		1, 2, math.NaN(),
		4, 0, math.NaN(),
		2, 2, math.NaN(),
	})
	x := mat.NewDense(3, 3, []float64{
		1, 0, 1,
		0, 1, 1,
		1, 1, 0,
	})
	d := NewData(y, []*mat.Dense{x})

	z := FixedIndivEffects(d)

	// The dead entity comes out as zeros without errors.
	for t1 := 0; t1 < 3; t1++ {
		assert.Equal(t, 0.0, z.Y.At(t1, 2))
	}

	// Other entities match a panel that never contained the dead
	// entity.
	y2 := mat.NewDense(3, 2, []float64{1, 2, 4, 0, 2, 2})
	x2 := mat.NewDense(3, 2, []float64{1, 0, 0, 1, 1, 1})
	z2 := FixedIndivEffects(NewData(y2, []*mat.Dense{x2}))
	for t1 := 0; t1 < 3; t1++ {
		for i := 0; i < 2; i++ {
			assert.InDelta(t, z2.Y.At(t1, i), z.Y.At(t1, i), 1e-12)
		}
	}
}

func TestReshape(t *testing.T) {

	ids := []int{7, 7, 7, 9, 9}
	periods := []int{2000, 2001, 2002, 2000, 2002}
	y := []float64{1, 2, 3, 4, 5}
	x := mat.NewDense(5, 1, []float64{10, 20, 30, 40, 50})

	d := Reshape(ids, periods, y, x)
	nper, nent, nvar := d.Dims()
	require.Equal(t, 3, nper)
	require.Equal(t, 2, nent)
	require.Equal(t, 1, nvar)

	assert.Equal(t, 1.0, d.Y.At(0, 0))
	assert.Equal(t, 4.0, d.Y.At(0, 1))
	assert.Equal(t, 30.0, d.X[0].At(2, 0))

	// Entity 9 has no record in 2001.
	assert.False(t, d.Valid(1, 1))
	assert.True(t, math.IsNaN(d.Y.At(1, 1)))
}

package matop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDenseMul(t *testing.T) {
	// A = [[1,2],[3,4],[5,6]] (3x2)
	a := NewDense[float64](3, 2, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, a.Init())

	y := make([]float64, 3)
	require.NoError(t, a.Mul('n', 1, []float64{1, 1}, 0, y))
	assert.Equal(t, []float64{3, 7, 11}, y)

	x := make([]float64, 2)
	require.NoError(t, a.Mul('t', 1, []float64{1, 1, 1}, 0, x))
	assert.Equal(t, []float64{9, 12}, x)
}

func TestDenseEquilBalancesNorms(t *testing.T) {
	a := NewDense[float64](2, 2, []float64{1, 0, 0, 100})
	require.NoError(t, a.Init())
	d := make([]float64, 2)
	e := make([]float64, 2)
	require.NoError(t, a.Equil(d, e, nil, nil))
	// After equilibration the nonzero entries should have roughly unit magnitude.
	assert.InDelta(t, 1.0, a.At(0, 0), 1e-6)
	assert.InDelta(t, 1.0, a.At(1, 1), 1e-6)
}

func TestSparseMulMatchesDense(t *testing.T) {
	dense := NewDense[float64](3, 2, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, dense.Init())
	// CSC for the same matrix: col0=[1,3,5], col1=[2,4,6].
	sp := NewSparse[float64](3, 2, []int{0, 3, 6}, []int{0, 1, 2, 0, 1, 2}, []float64{1, 3, 5, 2, 4, 6})
	require.NoError(t, sp.Init())

	x := []float64{2, -1}
	yd := make([]float64, 3)
	ys := make([]float64, 3)
	require.NoError(t, dense.Mul('n', 1, x, 0, yd))
	require.NoError(t, sp.Mul('n', 1, x, 0, ys))
	assert.Equal(t, yd, ys)
}

func TestFastOpEquilibratedMulMatchesDirect(t *testing.T) {
	// A = diag(2, 5) as a closure-defined operator.
	diag := []float64{2, 5}
	mul := func(alpha float64, x []float64, beta float64, y []float64) {
		for i := range y {
			y[i] = beta*y[i] + alpha*diag[i]*x[i]
		}
	}
	op := NewFastOp[float64](2, 2, 8, mul, mul)
	require.NoError(t, op.Init())

	d := make([]float64, 2)
	e := make([]float64, 2)
	require.NoError(t, op.Equil(d, e, nil, nil))

	eq := &Equilibrated[float64]{Inner: op, D: d, E: e}
	y := make([]float64, 2)
	require.NoError(t, eq.Mul('n', 1, []float64{1, 1}, 0, y))
	// d[i]*diag[i]*e[i] should land close to 1 after equilibration.
	assert.InDelta(t, 1.0, y[0], 0.3)
	assert.InDelta(t, 1.0, y[1], 0.3)
}

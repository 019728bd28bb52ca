package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pogs-solver/pogs/matop"
)

func TestDirectProjectSatisfiesConstraint(t *testing.T) {
	a := matop.NewDense[float64](3, 2, []float64{
		1, 0,
		0, 1,
		1, 1,
	})
	require.NoError(t, a.Init())

	p := NewDirect(a)
	require.NoError(t, p.Init())

	cx := []float64{1, 2}
	cy := []float64{0, 0, 10}
	xOut := make([]float64, 2)
	yOut := make([]float64, 3)
	require.NoError(t, p.Project(cx, cy, 1.0, xOut, yOut, 0))

	// The projection must land exactly on y = A*x.
	want := make([]float64, 3)
	require.NoError(t, a.Mul('n', 1, xOut, 0, want))
	assert.InDeltaSlice(t, want, yOut, 1e-9)
}

func TestDirectProjectDualFormWhenWide(t *testing.T) {
	// 1 row, 3 columns: m < n triggers the dual branch.
	a := matop.NewDense[float64](1, 3, []float64{1, 1, 1})
	require.NoError(t, a.Init())

	p := NewDirect(a)
	require.NoError(t, p.Init())
	assert.True(t, p.dual)

	cx := []float64{0, 0, 0}
	cy := []float64{3}
	xOut := make([]float64, 3)
	yOut := make([]float64, 1)
	require.NoError(t, p.Project(cx, cy, 1.0, xOut, yOut, 0))

	want := make([]float64, 1)
	require.NoError(t, a.Mul('n', 1, xOut, 0, want))
	assert.InDeltaSlice(t, want, yOut, 1e-9)
}

func TestDirectRejectsNonFloat64Operator(t *testing.T) {
	a := matop.NewDense[float32](2, 2, []float32{1, 0, 0, 1})
	require.NoError(t, a.Init())
	p := NewDirect(a)
	assert.Error(t, p.Init())
}

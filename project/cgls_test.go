package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pogs-solver/pogs/matop"
)

func TestCGLSMatchesDirectOnDenseOperator(t *testing.T) {
	raw := []float64{
		1, 0,
		0, 1,
		1, 1,
	}
	a := matop.NewDense[float64](3, 2, raw)
	require.NoError(t, a.Init())

	direct := NewDirect(a)
	require.NoError(t, direct.Init())

	a2 := matop.NewDense[float64](3, 2, append([]float64(nil), raw...))
	require.NoError(t, a2.Init())
	cgls := NewCGLS[float64](a2)
	require.NoError(t, cgls.Init())

	cx := []float64{1, 2}
	cy := []float64{0, 0, 10}

	xDirect := make([]float64, 2)
	yDirect := make([]float64, 3)
	require.NoError(t, direct.Project(cx, cy, 1.0, xDirect, yDirect, 0))

	xCGLS := make([]float64, 2)
	yCGLS := make([]float64, 3)
	require.NoError(t, cgls.Project(cx, cy, 1.0, xCGLS, yCGLS, 1e-10))

	assert.InDeltaSlice(t, xDirect, xCGLS, 1e-6)
	assert.InDeltaSlice(t, yDirect, yCGLS, 1e-6)
}

func TestCGLSWorksOnSparseOperator(t *testing.T) {
	// 2x2 identity in CSC form.
	a := matop.NewSparse[float64](2, 2, []int{0, 1, 2}, []int{0, 1}, []float64{1, 1})
	require.NoError(t, a.Init())
	p := NewCGLS[float64](a)
	require.NoError(t, p.Init())

	cx := []float64{0, 0}
	cy := []float64{3, 4}
	xOut := make([]float64, 2)
	yOut := make([]float64, 2)
	require.NoError(t, p.Project(cx, cy, 1.0, xOut, yOut, 1e-10))

	assert.InDeltaSlice(t, []float64{1.5, 2}, xOut, 1e-6)
	assert.InDeltaSlice(t, xOut, yOut, 1e-9)
}

func TestCGLSWarmStartReusesPreviousSolution(t *testing.T) {
	a := matop.NewDense[float64](2, 2, []float64{1, 0, 0, 1})
	require.NoError(t, a.Init())
	p := NewCGLS[float64](a)
	require.NoError(t, p.Init())

	cx := []float64{5, 5}
	cy := []float64{5, 5}
	xOut := make([]float64, 2)
	yOut := make([]float64, 2)
	require.NoError(t, p.Project(cx, cy, 1.0, xOut, yOut, 1e-10))
	assert.InDeltaSlice(t, []float64{5, 5}, xOut, 1e-6)

	// A second call starting from the same fixed point should need ~0 extra
	// work and still land on the same answer.
	require.NoError(t, p.Project(cx, cy, 1.0, xOut, yOut, 1e-10))
	assert.InDeltaSlice(t, []float64{5, 5}, xOut, 1e-6)
}

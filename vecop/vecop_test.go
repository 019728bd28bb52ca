package vecop

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAxpy(t *testing.T) {
	x := []float64{1, 2, 3}
	y := []float64{4, 5, 6}
	Axpy(2.0, x, y)
	assert.Equal(t, []float64{6, 9, 12}, y)
}

func TestScal(t *testing.T) {
	x := []float32{1, 2, 3}
	Scal[float32](-2, x)
	assert.Equal(t, []float32{-2, -4, -6}, x)
}

func TestNrm2AndDot(t *testing.T) {
	x := []float64{3, 4}
	assert.InDelta(t, 5.0, Nrm2(x), 1e-12)
	assert.InDelta(t, 25.0, Dot(x, x), 1e-12)
}

func TestElementwise(t *testing.T) {
	x := []float64{1, 2, 3}
	y := []float64{4, 5, 6}
	dst := make([]float64, 3)
	MulTo(dst, x, y)
	assert.Equal(t, []float64{4, 10, 18}, dst)
	DivTo(dst, y, x)
	assert.InDeltaSlice(t, []float64{4, 2.5, 2}, dst, 1e-12)
}

func TestViewAliasesParent(t *testing.T) {
	buf := []float64{1, 2, 3, 4, 5}
	v := Sub(buf, 1, 4)
	v[0] = 99
	assert.Equal(t, float64(99), buf[1])
}

func TestPartition(t *testing.T) {
	buf := make([]float64, 5)
	x, y := Partition(buf, 3, 2)
	require.Len(t, x, 3)
	require.Len(t, y, 2)
	x[0] = 7
	assert.Equal(t, float64(7), buf[0])
}

func TestHasNonFinite(t *testing.T) {
	assert.False(t, HasNonFinite([]float64{1, 2, 3}))
	assert.True(t, HasNonFinite([]float64{1, math.NaN(), 3}))
}

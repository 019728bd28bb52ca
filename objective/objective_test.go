package objective

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pogs-solver/pogs/cone"
	"github.com/pogs-solver/pogs/objective/atom"
)

func TestSeparableProxAndEvaluate(t *testing.T) {
	g := []atom.Atom{atom.New(atom.KindIndGe0)}
	f := []atom.Atom{atom.New(atom.KindSquare)}
	obj := NewSeparable[float64](f, g)

	xOut := make([]float64, 1)
	yOut := make([]float64, 1)
	obj.Prox([]float64{-2}, []float64{4}, xOut, yOut, 1.0)
	assert.Equal(t, 0.0, xOut[0])
	assert.InDelta(t, 2.0, yOut[0], 1e-9)

	val := obj.Evaluate([]float64{0}, []float64{2})
	assert.InDelta(t, 2.0, val, 1e-9)
}

func TestSeparableScale(t *testing.T) {
	// g (x-block) scales by e, multiplicatively; f (y-block) scales by d,
	// divisively — original_source/src/cpu/pogs.cpp:395-404.
	g := []atom.Atom{atom.New(atom.KindAbs)}
	f := []atom.Atom{atom.New(atom.KindAbs)}
	obj := NewSeparable[float64](f, g)
	obj.Scale([]float64{2}, []float64{4})
	assert.InDelta(t, 4.0, obj.G[0].A, 1e-9)
	assert.InDelta(t, 0.5, obj.F[0].A, 1e-9)
}

func TestSeparableValidateRejectsLengthMismatch(t *testing.T) {
	g := []atom.Atom{atom.New(atom.KindIndGe0), atom.New(atom.KindIndGe0)}
	f := []atom.Atom{atom.New(atom.KindSquare)}
	obj := NewSeparable[float64](f, g)
	assert.NoError(t, obj.Validate(1, 2))
	assert.Error(t, obj.Validate(2, 2))
	assert.Error(t, obj.Validate(1, 3))
}

func TestConeProxAndEvaluate(t *testing.T) {
	kx := cone.Set{Dim: 2, Constraints: []cone.Constraint{{Kind: cone.NonNeg, Idx: []int{0, 1}}}}
	ky := cone.Set{Dim: 2, Constraints: []cone.Constraint{{Kind: cone.Zero, Idx: []int{0, 1}}}}
	obj := NewCone[float64]([]float64{1, 1}, []float64{3, -1}, kx, ky)

	val := obj.Evaluate([]float64{2, 5}, nil)
	assert.InDelta(t, 1.0, val, 1e-9) // 3*2 + (-1)*5 = 1

	xOut := make([]float64, 2)
	yOut := make([]float64, 2)
	obj.Prox([]float64{0, 0}, []float64{0, 0}, xOut, yOut, 1.0)
	assert.True(t, xOut[0] >= 0 && xOut[1] >= 0)
	// y in = 0, so b-yIn = b; projecting b onto the zero cone gives 0;
	// reflecting back through b gives b-0 = b.
	assert.InDeltaSlice(t, []float64{1, 1}, yOut, 1e-9)
}

func TestConeProxSurfacesUnsupportedAsNaN(t *testing.T) {
	kx := cone.Set{Dim: 2, Constraints: []cone.Constraint{{Kind: cone.SDP, Idx: []int{0, 1}}}}
	ky := cone.Set{Dim: 2}
	obj := NewCone[float64]([]float64{0, 0}, []float64{1, 1}, kx, ky)
	xOut := make([]float64, 2)
	yOut := make([]float64, 2)
	obj.Prox([]float64{0, 0}, []float64{0, 0}, xOut, yOut, 1.0)
	assert.True(t, math.IsNaN(xOut[0]))
}

func TestConeScaleAndAveraging(t *testing.T) {
	kx := cone.Set{Dim: 3, Constraints: []cone.Constraint{{Kind: cone.SecondOrder, Idx: []int{0, 1, 2}}}}
	ky := cone.Set{Dim: 1, Constraints: []cone.Constraint{{Kind: cone.Zero, Idx: []int{0}}}}
	obj := NewCone[float64]([]float64{1}, []float64{1, 2, 3}, kx, ky)
	obj.Scale([]float64{2}, []float64{10, 10, 10})
	require.InDeltaSlice(t, []float64{10, 20, 30}, obj.C, 1e-9)
	require.InDeltaSlice(t, []float64{2}, obj.B, 1e-9)

	e := []float64{1, 5, 9}
	obj.ConstrainE(e)
	mean := (1.0 + 5.0 + 9.0) / 3.0
	assert.InDeltaSlice(t, []float64{mean, mean, mean}, e, 1e-9)
}

package objective

import (
	"github.com/pkg/errors"

	"github.com/pogs-solver/pogs/objective/atom"
	"github.com/pogs-solver/pogs/vecop"
)

// Separable is the g(x) + f(y) = sum_j g_j(x_j) + sum_i f_i(y_i) objective
// variant: two lists of scalar proximable atoms. Grounded on the original
// source's PogsObjectiveSeparable (cpu/pogs.cpp): evaluate sums FuncEval
// over both lists, prox evaluates each list's proximal operators
// independently, and scale multiplies g by e and divides f by d.
//
// atom.Atom always computes in float64; Separable casts to/from T at the
// boundary so the same atom library backs both the float32 and float64
// instantiations of the solver without duplicating the proximal-operator
// closed forms per type.
type Separable[T vecop.Float] struct {
	F []atom.Atom // one atom per y-coordinate (length m)
	G []atom.Atom // one atom per x-coordinate (length n)
}

// NewSeparable builds a Separable objective from atom lists. len(f) must
// equal the problem's m (rows of A) and len(g) must equal n (cols of A);
// Validate checks this (satisfying pogs.Validator) before the driver starts
// iterating.
func NewSeparable[T vecop.Float](f, g []atom.Atom) *Separable[T] {
	return &Separable[T]{F: f, G: g}
}

// Validate checks that len(F) == m and len(G) == n, satisfying
// pogs.Validator so a length-mismatched Separable fails fast with
// INVALID_CONE instead of indexing out of range inside Prox/Evaluate (§7:
// "No exceptions propagate out of the driver").
func (s *Separable[T]) Validate(m, n int) error {
	if len(s.F) != m {
		return errors.Errorf("objective: len(F) %d does not match m=%d", len(s.F), m)
	}
	if len(s.G) != n {
		return errors.Errorf("objective: len(G) %d does not match n=%d", len(s.G), n)
	}
	return nil
}

func (s *Separable[T]) Evaluate(x, y []T) T {
	var total float64
	for i, fi := range s.F {
		total += fi.Eval(float64(y[i]))
	}
	for j, gj := range s.G {
		total += gj.Eval(float64(x[j]))
	}
	return T(total)
}

func (s *Separable[T]) Prox(xIn, yIn []T, xOut, yOut []T, rho T) {
	r := float64(rho)
	for j, gj := range s.G {
		xOut[j] = T(gj.Prox(float64(xIn[j]), r))
	}
	for i, fi := range s.F {
		yOut[i] = T(fi.Prox(float64(yIn[i]), r))
	}
}

// Scale implements §4.5's separable scaling rule, as x = e⊙x̃ and y = ỹ⊘d:
// multiply the j-th atom of g by e[j], divide the i-th atom of f by d[i].
// original_source/src/cpu/pogs.cpp:395-404 confirms the direction: its
// "divide" lambda is driven by d and applied to f, its "multiply" lambda is
// driven by e and applied to g.
func (s *Separable[T]) Scale(d, e []T) {
	for j := range s.G {
		s.G[j].MultiplyByScale(float64(e[j]))
	}
	for i := range s.F {
		s.F[i].DivideByScale(float64(d[i]))
	}
}

// ConstrainD and ConstrainE are no-ops: every cone in a separable problem is
// the whole-space (unconstrained) cone, which is trivially separable.
func (s *Separable[T]) ConstrainD(d []T) {}
func (s *Separable[T]) ConstrainE(e []T) {}

var _ Objective[float64] = (*Separable[float64])(nil)

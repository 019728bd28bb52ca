package objective

import (
	"math"

	"github.com/pkg/errors"

	"github.com/pogs-solver/pogs/cone"
	"github.com/pogs-solver/pogs/vecop"
)

// Cone is the standard-form cone-program objective variant: minimize cᵀx
// subject to b - Ax in Ky, x in Kx. Grounded on the original source's
// PogsObjectiveCone (cpu/pogs.cpp): evaluate is the linear functional cᵀx;
// prox shifts by c/rho then projects onto Kx for the x-block, and reflects
// through b before/after projecting onto Ky for the y-block; scale applies
// c *= e, b *= d; the averaging callbacks delegate to cone.ConstrainAverage.
type Cone[T vecop.Float] struct {
	B, C []T
	Kx   cone.Set // over the x-block, length n = len(C)
	Ky   cone.Set // over the y-block, length m = len(B)
}

// NewCone builds a Cone objective. Kx.Dim must equal len(c) and Ky.Dim must
// equal len(b); the driver validates both cone sets before iterating
// (§7: INVALID_CONE).
func NewCone[T vecop.Float](b, c []T, kx, ky cone.Set) *Cone[T] {
	return &Cone[T]{B: b, C: c, Kx: kx, Ky: ky}
}

func (o *Cone[T]) Evaluate(x, _ []T) T {
	return vecop.Dot(o.C, x)
}

// Validate checks Kx and Ky for out-of-range/duplicated indices, unsupported
// cone kinds, and a mismatch against the solver's own (m, n), satisfying
// pogs.Validator so the driver can fail fast with INVALID_CONE before
// iterating (§7) instead of relying on Prox's NaN-surfacing fallback.
func (o *Cone[T]) Validate(m, n int) error {
	if o.Kx.Dim != n {
		return errors.Errorf("objective: Kx.Dim %d does not match n=%d", o.Kx.Dim, n)
	}
	if o.Ky.Dim != m {
		return errors.Errorf("objective: Ky.Dim %d does not match m=%d", o.Ky.Dim, m)
	}
	if err := o.Kx.ValidateSupported(); err != nil {
		return err
	}
	return o.Ky.ValidateSupported()
}

// Prox implements the two-projection update of §4.5. Projection failures
// (an unsupported cone kind, see cone.ErrUnsupportedCone) cannot be
// signaled through this method's error-free signature, so they are surfaced
// as NaN in the output instead: the driver's existing NaN/Inf residual
// check (§7 "Numerical divergence") then converts them into NAN_FOUND on
// the very next iteration, rather than this method panicking. Validated
// cone sets (see pogs.Solver's pre-solve INVALID_CONE check) never hit this
// path in practice.
func (o *Cone[T]) Prox(xIn, yIn []T, xOut, yOut []T, rho T) {
	for j := range xOut {
		xOut[j] = xIn[j] - o.C[j]/rho
	}
	if err := cone.Project[T](o.Kx, xOut, xOut); err != nil {
		fillNaN(xOut)
	}

	for i := range yOut {
		yOut[i] = o.B[i] - yIn[i]
	}
	if err := cone.Project[T](o.Ky, yOut, yOut); err != nil {
		fillNaN(yOut)
		return
	}
	for i := range yOut {
		yOut[i] = o.B[i] - yOut[i]
	}
}

func fillNaN[T vecop.Float](v []T) {
	for i := range v {
		v[i] = T(math.NaN())
	}
}

func (o *Cone[T]) Scale(d, e []T) {
	vecop.MulTo(o.C, o.C, e)
	vecop.MulTo(o.B, o.B, d)
}

func (o *Cone[T]) ConstrainD(d []T) { cone.ConstrainAverage(o.Ky, d) }
func (o *Cone[T]) ConstrainE(e []T) { cone.ConstrainAverage(o.Kx, e) }

var _ Objective[float64] = (*Cone[float64])(nil)

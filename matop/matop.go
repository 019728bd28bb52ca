// Package matop defines the uniform matrix-operator contract consumed by the
// rest of pogs (the driver and the CGLS projector work only through it;
// project.Direct additionally reads Dense's float64 mirror) and ships three
// backends: Dense,
// Sparse (CSC), and FastOp (a user-supplied multiply closure, for operators
// that are cheap to apply but expensive or impossible to materialize).
package matop

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/pogs-solver/pogs/vecop"
)

// ErrNotInitialized is returned by Mul/Equil when Init has not been called.
var ErrNotInitialized = errors.New("matop: Init not called")

// Op is the matrix-operator contract (§6 "Matrix backend" of the spec):
// Init, Rows, Cols, Equil, and the workhorse Mul.
type Op[T vecop.Float] interface {
	// Init prepares the backend for use. Idempotent: a second call is a
	// no-op returning nil.
	Init() error
	Rows() int
	Cols() int
	// Equil computes scalings d (length Rows) and e (length Cols) such
	// that diag(d)*A*diag(e) is approximately row/column norm balanced,
	// honoring the cone-consistency constraints via constrainD/constrainE
	// applied at every sweep. From the moment Equil returns, Mul operates
	// on the equilibrated operator.
	Equil(d, e []T, constrainD, constrainE func([]T)) error
	// Mul computes y <- alpha*op(A)*x + beta*y where op(A) = A if
	// trans == 'n' and Aᵀ if trans == 't'.
	Mul(trans byte, alpha T, x []T, beta T, y []T) error
}

// scaleY is the shared beta-scale-then-accumulate step used by every
// backend's Mul, matching the BLAS convention y <- alpha*op(A)*x + beta*y.
func scaleY[T vecop.Float](beta T, y []T) {
	if beta == 0 {
		vecop.Fill(y, T(0))
		return
	}
	if beta != 1 {
		vecop.Scal(beta, y)
	}
}

func checkTrans(trans byte) error {
	if trans != 'n' && trans != 't' {
		return errors.Errorf("matop: invalid trans flag %q, want 'n' or 't'", trans)
	}
	return nil
}

// Dense is a dense, row-major matrix operator. For the float64
// instantiation Init also builds a separate gonum mat.Dense copy of the
// entries, kept in step by Set and Equil, which project.Direct factors.
type Dense[T vecop.Float] struct {
	rows, cols int
	data       []T // row-major, length rows*cols

	// gonumF64 mirrors data as a *mat.Dense when T is float64, lazily built
	// in Init, so project.Direct can share the factorization-ready form.
	gonumF64 *mat.Dense

	initialized bool
}

// NewDense builds a Dense operator of the given shape from row-major data.
// If data is nil, a zeroed backing slice is allocated. Panics if len(data)
// is non-zero and not rows*cols.
func NewDense[T vecop.Float](rows, cols int, data []T) *Dense[T] {
	if data == nil {
		data = make([]T, rows*cols)
	} else if len(data) != rows*cols {
		panic("matop: data length does not match rows*cols")
	}
	return &Dense[T]{rows: rows, cols: cols, data: data}
}

func (d *Dense[T]) Init() error {
	if d.initialized {
		return nil
	}
	if f64, ok := any(d.data).([]float64); ok {
		raw := make([]float64, len(f64))
		copy(raw, f64)
		d.gonumF64 = mat.NewDense(d.rows, d.cols, raw)
	}
	d.initialized = true
	return nil
}

func (d *Dense[T]) Rows() int { return d.rows }
func (d *Dense[T]) Cols() int { return d.cols }

// At returns the (i,j) entry.
func (d *Dense[T]) At(i, j int) T { return d.data[i*d.cols+j] }

// Set assigns the (i,j) entry and, for the float64 instantiation, the mirror
// gonum matrix used by project.Direct.
func (d *Dense[T]) Set(i, j int, v T) {
	d.data[i*d.cols+j] = v
	if d.gonumF64 != nil {
		d.gonumF64.Set(i, j, float64(v))
	}
}

// RawRowMajor exposes the backing row-major slice for the equilibrator,
// which needs direct entry access to compute row/column norms.
func (d *Dense[T]) RawRowMajor() []T { return d.data }

// GonumF64 returns the mat.Dense mirror when T is float64, or nil otherwise.
// project.Direct uses this to avoid re-copying entries into its own factor.
func (d *Dense[T]) GonumF64() *mat.Dense { return d.gonumF64 }

// Equil runs Sinkhorn-style row/column norm balancing directly against the
// dense entries (cheap random access makes this the natural strategy for
// this backend; compare Sparse.Equil, which uses the same recurrence over
// CSC storage, and FastOp.Equil, which estimates the same norms by random
// probing). See sinkhornDense for the recurrence itself.
func (d *Dense[T]) Equil(dd, e []T, constrainD, constrainE func([]T)) error {
	if !d.initialized {
		return ErrNotInitialized
	}
	if len(dd) != d.rows || len(e) != d.cols {
		return errors.New("matop: Equil scaling length mismatch")
	}
	sinkhornDense(d.data, d.rows, d.cols, dd, e, constrainD, constrainE)
	if d.gonumF64 != nil {
		// Re-derive the float64 mirror from the (now equilibrated)
		// entries so project.Direct factors Ã, not A.
		for i := 0; i < d.rows; i++ {
			for j := 0; j < d.cols; j++ {
				d.gonumF64.Set(i, j, float64(d.data[i*d.cols+j]))
			}
		}
	}
	return nil
}

func (d *Dense[T]) Mul(trans byte, alpha T, x []T, beta T, y []T) error {
	if !d.initialized {
		return ErrNotInitialized
	}
	if err := checkTrans(trans); err != nil {
		return err
	}
	scaleY(beta, y)
	if trans == 'n' {
		if len(x) != d.cols || len(y) != d.rows {
			return errors.New("matop: Dense.Mul dimension mismatch")
		}
		for i := 0; i < d.rows; i++ {
			row := d.data[i*d.cols : (i+1)*d.cols]
			y[i] += alpha * vecop.Dot(row, x)
		}
		return nil
	}
	if len(x) != d.rows || len(y) != d.cols {
		return errors.New("matop: Dense.Mul (trans) dimension mismatch")
	}
	for i := 0; i < d.rows; i++ {
		xi := alpha * x[i]
		if xi == 0 {
			continue
		}
		row := d.data[i*d.cols : (i+1)*d.cols]
		for j, aij := range row {
			y[j] += xi * aij
		}
	}
	return nil
}

// sinkhornDense performs alternating row/column ℓ2-norm balancing directly
// on row-major entries, applying the cone-consistency constraints at every
// sweep, and finally rescales data in place by diag(d)*data*diag(e) so that
// the backend's own Mul operates on the equilibrated operator from then on.
// Grounded on gonum-gonum/floats' sum-of-squares reduction idiom for the
// per-row/per-column norm passes.
func sinkhornDense[T vecop.Float](data []T, rows, cols int, d, e []T, constrainD, constrainE func([]T)) {
	const sweeps = 10
	vecop.Fill(d, T(1))
	vecop.Fill(e, T(1))
	for s := 0; s < sweeps; s++ {
		for i := 0; i < rows; i++ {
			row := data[i*cols : (i+1)*cols]
			var ss T
			for j, a := range row {
				v := a * e[j]
				ss += v * v
			}
			if ss > 0 {
				d[i] = 1 / sqrtT(ss)
			}
		}
		if constrainD != nil {
			constrainD(d)
		}
		for j := 0; j < cols; j++ {
			var ss T
			for i := 0; i < rows; i++ {
				v := data[i*cols+j] * d[i]
				ss += v * v
			}
			if ss > 0 {
				e[j] = 1 / sqrtT(ss)
			}
		}
		if constrainE != nil {
			constrainE(e)
		}
	}
	for i := 0; i < rows; i++ {
		row := data[i*cols : (i+1)*cols]
		for j := range row {
			row[j] *= d[i] * e[j]
		}
	}
}

func sqrtT[T vecop.Float](v T) T {
	return T(math.Sqrt(float64(v)))
}

// Equilibrated wraps an Op whose Equil call reports scalings without
// rescaling its own storage in place (FastOp, which has nothing to
// rescale) so that its Mul presents the equilibrated operator
// Ã = diag(D)*Inner*diag(E) to the rest of pogs, matching the behavior
// Dense and Sparse give for free by mutating their entries during Equil.
type Equilibrated[T vecop.Float] struct {
	Inner Op[T]
	D, E  []T

	scratch []T
}

func (s *Equilibrated[T]) Init() error { return s.Inner.Init() }
func (s *Equilibrated[T]) Rows() int   { return s.Inner.Rows() }
func (s *Equilibrated[T]) Cols() int   { return s.Inner.Cols() }

// Equil is a no-op returning the scalings already computed: Equilibrated is
// constructed from an Op that has already equilibrated itself.
func (s *Equilibrated[T]) Equil(d, e []T, _, _ func([]T)) error {
	vecop.Copy(d, s.D)
	vecop.Copy(e, s.E)
	return nil
}

func (s *Equilibrated[T]) Mul(trans byte, alpha T, x []T, beta T, y []T) error {
	if err := checkTrans(trans); err != nil {
		return err
	}
	if trans == 'n' {
		if len(x) != len(s.E) || len(y) != len(s.D) {
			return errors.New("matop: Equilibrated.Mul dimension mismatch")
		}
		if len(s.scratch) != len(s.E) {
			s.scratch = make([]T, len(s.E))
		}
		vecop.MulTo(s.scratch, x, s.E)
		scaleY(beta, y)
		tmp := make([]T, len(s.D))
		if err := s.Inner.Mul('n', 1, s.scratch, 0, tmp); err != nil {
			return err
		}
		for i, v := range tmp {
			y[i] += alpha * s.D[i] * v
		}
		return nil
	}
	if len(x) != len(s.D) || len(y) != len(s.E) {
		return errors.New("matop: Equilibrated.Mul (trans) dimension mismatch")
	}
	scratchM := make([]T, len(s.D))
	vecop.MulTo(scratchM, x, s.D)
	scaleY(beta, y)
	tmp := make([]T, len(s.E))
	if err := s.Inner.Mul('t', 1, scratchM, 0, tmp); err != nil {
		return err
	}
	for j, v := range tmp {
		y[j] += alpha * s.E[j] * v
	}
	return nil
}

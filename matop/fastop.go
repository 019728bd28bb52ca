package matop

import (
	"math/rand/v2"

	"github.com/pkg/errors"

	"github.com/pogs-solver/pogs/vecop"
)

// FastOp wraps a pair of caller-supplied multiply closures as a matrix
// operator with no materialized storage, modelled on the original
// MatrixFAO ("fast-operator") backend: an operator that is cheap to apply
// (e.g. a DAG of linear transforms, an FFT, a convolution) but whose dense
// or sparse form would be impractical to hold in memory.
type FastOp[T vecop.Float] struct {
	rows, cols int
	// MulFunc computes y <- alpha*A*x + beta*y.
	MulFunc func(alpha T, x []T, beta T, y []T)
	// MulTransFunc computes y <- alpha*Aᵀ*x + beta*y.
	MulTransFunc func(alpha T, x []T, beta T, y []T)
	// Samples is the number of random probe vectors used per equilibration
	// sweep; Equil below uses this to size its Rademacher-vector batch.
	Samples int

	initialized bool
}

// NewFastOp builds a FastOp of the given shape from multiply closures.
// Samples defaults to 1 if non-positive.
func NewFastOp[T vecop.Float](rows, cols, samples int, mul, mulTrans func(alpha T, x []T, beta T, y []T)) *FastOp[T] {
	if samples <= 0 {
		samples = 1
	}
	return &FastOp[T]{rows: rows, cols: cols, Samples: samples, MulFunc: mul, MulTransFunc: mulTrans}
}

func (f *FastOp[T]) Init() error {
	if f.MulFunc == nil || f.MulTransFunc == nil {
		return errors.New("matop: FastOp requires both MulFunc and MulTransFunc")
	}
	f.initialized = true
	return nil
}

func (f *FastOp[T]) Rows() int { return f.rows }
func (f *FastOp[T]) Cols() int { return f.cols }

func (f *FastOp[T]) Mul(trans byte, alpha T, x []T, beta T, y []T) error {
	if !f.initialized {
		return ErrNotInitialized
	}
	if err := checkTrans(trans); err != nil {
		return err
	}
	if trans == 'n' {
		if len(x) != f.cols || len(y) != f.rows {
			return errors.New("matop: FastOp.Mul dimension mismatch")
		}
		f.MulFunc(alpha, x, beta, y)
		return nil
	}
	if len(x) != f.rows || len(y) != f.cols {
		return errors.New("matop: FastOp.Mul (trans) dimension mismatch")
	}
	f.MulTransFunc(alpha, x, beta, y)
	return nil
}

// Equil estimates row/column scalings by randomized probing: since entries
// are not materialized, d[i] and e[j] are approximated from the response of
// A and Aᵀ to random Rademacher probe vectors rather than from exact column
// norms, then refined by the same alternating sweep used by Dense/Sparse.
// This cannot rescale the underlying operator in place (there is no storage
// to rescale), so the resulting d, e are meant to be handed to Equilibrated,
// which presents diag(d)*f*diag(e) as an Op without ever touching f's
// closures.
func (f *FastOp[T]) Equil(d, e []T, constrainD, constrainE func([]T)) error {
	if !f.initialized {
		return ErrNotInitialized
	}
	if len(d) != f.rows || len(e) != f.cols {
		return errors.New("matop: Equil scaling length mismatch")
	}
	const sweeps = 4
	probe := make([]T, f.cols)
	resp := make([]T, f.rows)
	colSS := make([]T, f.cols)
	rowSS := make([]T, f.rows)
	vecop.Fill(d, T(1))
	vecop.Fill(e, T(1))
	for s := 0; s < sweeps; s++ {
		vecop.Fill(rowSS, T(0))
		for n := 0; n < f.Samples; n++ {
			rademacher(probe)
			vecop.MulTo(probe, probe, e)
			vecop.Fill(resp, T(0))
			f.MulFunc(1, probe, 0, resp)
			for i, r := range resp {
				rowSS[i] += r * r
			}
		}
		for i := range d {
			if rowSS[i] > 0 {
				d[i] = 1 / sqrtT(rowSS[i]/T(f.Samples))
			}
		}
		if constrainD != nil {
			constrainD(d)
		}

		vecop.Fill(colSS, T(0))
		probeRow := make([]T, f.rows)
		for n := 0; n < f.Samples; n++ {
			rademacher(probeRow)
			vecop.MulTo(probeRow, probeRow, d)
			respCol := make([]T, f.cols)
			f.MulTransFunc(1, probeRow, 0, respCol)
			for j, r := range respCol {
				colSS[j] += r * r
			}
		}
		for j := range e {
			if colSS[j] > 0 {
				e[j] = 1 / sqrtT(colSS[j]/T(f.Samples))
			}
		}
		if constrainE != nil {
			constrainE(e)
		}
	}
	return nil
}

// rademacher fills x with independent +-1 entries.
func rademacher[T vecop.Float](x []T) {
	for i := range x {
		if rand.IntN(2) == 0 {
			x[i] = -1
		} else {
			x[i] = 1
		}
	}
}

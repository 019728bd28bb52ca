package project

import (
	"math"

	"github.com/pkg/errors"

	"github.com/pogs-solver/pogs/matop"
	"github.com/pogs-solver/pogs/vecop"
)

// ErrMaxIterations is returned when CGLS exhausts MaxIter inner iterations
// without reaching the requested tolerance — a projector backend failure
// the driver treats as NAN_FOUND (§7: "Backend failure ... surfaced as
// NAN_FOUND for the driver").
var ErrMaxIterations = errors.New("project: CGLS iteration limit reached without convergence")

// CGLS is the Krylov-subspace projector strategy (§4.4): applicable to any
// matop.Op backend (dense, sparse, or fast-operator), re-using the previous
// call's solution as a warm start. It solves
//
//	minimize 0.5||x-cx||^2 + 0.5*w*||y-cy||^2  s.t. y = Ã x
//
// by running conjugate-gradient least squares (Björck, "Numerical Methods
// for Least Squares Problems", Algorithm 7.4.1) against the stacked system
//
//	[ I          ] x  ~=  [ cx        ]
//	[ sqrt(w)*Ã  ]        [ sqrt(w)*cy ]
//
// applying the stacked operator and its transpose via Ã's own Mul rather
// than ever forming I + w*ÃᵀÃ explicitly, exactly the "minimal memory
// storage" property gonum-gonum/linsolve/cg.go documents for plain CG
// applied to SPD systems — CGLS is the least-squares analogue of that same
// Hestenes-Stiefel recurrence.
type CGLS[T vecop.Float] struct {
	A       matop.Op[T]
	MaxIter int // defaults to 10*(m+n) if zero, mirroring linsolve's default of twice the system dimension scaled up for the outer stacked system

	m, n int
	// x carries the warm start across Project calls.
	x []T

	initted bool
}

// NewCGLS builds a CGLS projector over a.
func NewCGLS[T vecop.Float](a matop.Op[T]) *CGLS[T] {
	return &CGLS[T]{A: a, m: a.Rows(), n: a.Cols()}
}

func (p *CGLS[T]) Init() error {
	if p.initted {
		return nil
	}
	if err := p.A.Init(); err != nil {
		return err
	}
	p.x = make([]T, p.n)
	if p.MaxIter <= 0 {
		p.MaxIter = 10 * (p.m + p.n)
	}
	p.initted = true
	return nil
}

func (p *CGLS[T]) Project(cx, cy []T, w T, xOut, yOut []T, tol T) error {
	if !p.initted {
		return errors.New("project: Init not called")
	}
	sw := T(math.Sqrt(float64(w)))

	// applyM computes [x; sqrt(w)*Ã x] into (topOut, botOut).
	applyM := func(x []T, topOut, botOut []T) error {
		copy(topOut, x)
		if err := p.A.Mul('n', sw, x, 0, botOut); err != nil {
			return err
		}
		return nil
	}
	// applyMT computes topIn + sqrt(w)*Ãᵀ*botIn into dst (length n).
	applyMT := func(topIn, botIn []T, dst []T) error {
		copy(dst, topIn)
		if err := p.A.Mul('t', sw, botIn, 1, dst); err != nil {
			return err
		}
		return nil
	}

	x := make([]T, p.n)
	copy(x, p.x) // warm start from the previous call

	rTop := make([]T, p.n)
	rBot := make([]T, p.m)
	if err := applyM(x, rTop, rBot); err != nil {
		return err
	}
	for i := range rTop {
		rTop[i] = cx[i] - rTop[i]
	}
	for i := range rBot {
		rBot[i] = sw*cy[i] - rBot[i]
	}

	s := make([]T, p.n)
	if err := applyMT(rTop, rBot, s); err != nil {
		return err
	}
	p2 := make([]T, p.n)
	copy(p2, s)
	gamma := vecop.Dot(s, s)
	gamma0 := gamma

	qTop := make([]T, p.n)
	qBot := make([]T, p.m)

	converged := gamma0 == 0
	for it := 0; !converged && it < p.MaxIter; it++ {
		if err := applyM(p2, qTop, qBot); err != nil {
			return err
		}
		qq := vecop.Dot(qTop, qTop) + vecop.Dot(qBot, qBot)
		if qq == 0 {
			break
		}
		alpha := gamma / qq
		vecop.Axpy(alpha, p2, x)
		vecop.Axpy(-alpha, qTop, rTop)
		vecop.Axpy(-alpha, qBot, rBot)

		if err := applyMT(rTop, rBot, s); err != nil {
			return err
		}
		gammaNext := vecop.Dot(s, s)
		if gamma0 > 0 && T(math.Sqrt(float64(gammaNext/gamma0))) < tol {
			gamma = gammaNext
			converged = true
			break
		}
		beta := gammaNext / gamma
		for i := range p2 {
			p2[i] = s[i] + beta*p2[i]
		}
		gamma = gammaNext
	}
	if !converged {
		// Still return the best iterate found alongside ErrMaxIterations,
		// rather than this type panicking; the driver turns the error
		// into NAN_FOUND.
		copy(xOut, x)
		if err := p.A.Mul('n', 1, xOut, 0, yOut); err != nil {
			return err
		}
		copy(p.x, x)
		return ErrMaxIterations
	}

	copy(xOut, x)
	if err := p.A.Mul('n', 1, xOut, 0, yOut); err != nil {
		return err
	}
	copy(p.x, x)
	return nil
}

// Package project implements the graph projector (C4): given the
// equilibrated operator Ã, solve at every ADMM iteration the weighted
// least-squares projection onto the subspace {(x,y) : y = Ã x}. Two
// strategies are provided, matching the base spec's §4.4: Direct (a
// one-time Cholesky factorization of the normal equations, dense Ã only)
// and CGLS (a warm-started Krylov method usable against any matop.Op).
package project

import (
	"math"

	"github.com/pogs-solver/pogs/vecop"
)

// Projector is the contract the ADMM driver calls every iteration.
type Projector[T vecop.Float] interface {
	// Init performs any one-time factorization/workspace setup. Must be
	// called before Project; idempotent.
	Init() error
	// Project writes into xOut, yOut the solution of
	//   minimize 0.5*||x-cx||^2 + 0.5*w*||y-cy||^2  s.t. y = Ã x,
	// to relative tolerance tol (ignored by Direct, whose solves are to
	// machine precision; Direct solves this only for w = 1).
	Project(cx, cy []T, w T, xOut, yOut []T, tol T) error
}

// ToleranceSchedule returns tol_k = max(tolMin, tolBase*(k+1)^-p), the
// schedule the driver applies at each iteration per §4.4: tolBase=1e-2,
// p=1.3, tolMin=1e-8.
func ToleranceSchedule(k int) float64 {
	const tolBase = 1e-2
	const p = 1.3
	const tolMin = 1e-8
	v := tolBase / math.Pow(float64(k+1), p)
	if v < tolMin {
		return tolMin
	}
	return v
}

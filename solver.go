// Package pogs implements the Proximal Operator Graph Solver's ADMM driver
// (C6) and status/reporting (C7): an over-relaxed ADMM iteration with
// adaptive penalty and a hybrid approximate/exact stopping rule, solving
//
//	minimize    f(y) + g(x)
//	subject to  y = A x
//
// by alternating a proximal step (delegated to an objective.Objective) with
// a projection onto the graph {(x,y): y = Ã x} (delegated to a
// project.Projector), against an operator pre-conditioned by equilibration
// (delegated to the chosen matop.Op backend). Grounded throughout on
// original_source/src/cpu/pogs.cpp, the reference implementation this
// package's loop is a direct, idiomatic-Go transcription of.
package pogs

import (
	"log"
	"math"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/pogs-solver/pogs/matop"
	"github.com/pogs-solver/pogs/objective"
	"github.com/pogs-solver/pogs/project"
	"github.com/pogs-solver/pogs/vecop"
)

// Validator is implemented by objectives that can fail configuration
// validation before the ADMM loop starts — objective.Cone (malformed cone
// sets) and objective.Separable (a mismatched atom-list length) both check
// against the solver's own (m, n) here, since neither objective otherwise
// knows the dimensions of A. A Solve against an objective that does not
// implement Validator skips straight to iterating.
type Validator interface {
	Validate(m, n int) error
}

const (
	admmAlpha      = 1.7
	admmDeltaMin   = 1.05
	admmGamma      = 1.01
	admmTau        = 0.8
	admmKappa      = 0.9
	admmRhoMin     = 1e-4
	admmRhoMax     = 1e4
)

// admmMetrics carries the residual/tolerance snapshot of an iteration, kept
// around after Solve returns so Summary can report it.
type admmMetrics[T vecop.Float] struct {
	r, s, gap, epsPri, epsDua, epsGap T
}

// Solver drives one (matrix, projector) pair through repeated ADMM solves
// against whatever objective is handed to Solve. It owns all iteration
// state (§3 "Lifecycle"): equilibration scalings, the primal/dual ADMM
// buffers, and the output vectors x, y, mu, lambda.
type Solver[T vecop.Float] struct {
	a    matop.Op[T]
	proj project.Projector[T]

	m, n int

	doneInit bool

	// de is the (d | e) scaling buffer: d = de[:m], e = de[m:].
	de []T
	// z, zt, zPrev are (x | y)-partitioned buffers of length m+n, persisted
	// across Solve calls so a re-solve can warm-start from the prior one.
	z, zt, zPrev []T

	rho T

	x, y, mu, lambda []T
	optval           T
	finalIter        int

	lastStatus            Status
	lastMetrics           admmMetrics[T]
	lastTimeInit, lastTimeSolve time.Duration

	logger   *log.Logger
	failWarn *skipThrottler
}

// NewSolver builds a Solver wired to the given matrix-operator and
// projector backends — the "tagged variant" selection point of §9's design
// notes, performed here via ordinary interface values rather than template
// instantiation.
func NewSolver[T vecop.Float](a matop.Op[T], proj project.Projector[T]) *Solver[T] {
	return &Solver[T]{
		a:        a,
		proj:     proj,
		m:        a.Rows(),
		n:        a.Cols(),
		rho:      T(1.0),
		logger:   log.New(os.Stdout, "pogs: ", 0),
		failWarn: newSkipThrottler(10 * time.Second),
	}
}

// NewDirectSolver wires the dense matrix backend to the Direct (Cholesky)
// projector, the combination §4.4 describes as "dense Ã only". Direct is
// float64-only, so this convenience constructor is too.
func NewDirectSolver(a *matop.Dense[float64]) *Solver[float64] {
	return NewSolver[float64](a, project.NewDirect(a))
}

// NewCGLSSolver wires any matop.Op backend to the CGLS projector, the
// combination §4.4 describes as "applicable to any backend".
func NewCGLSSolver[T vecop.Float](a matop.Op[T]) *Solver[T] {
	return NewSolver[T](a, project.NewCGLS[T](a))
}

// X returns the last solve's primal solution (length n).
func (s *Solver[T]) X() []T { return s.x }

// Y returns the last solve's primal solution (length m), satisfying y ≈ A·x.
func (s *Solver[T]) Y() []T { return s.y }

// Mu returns the last solve's dual variable conjugate to x (length n).
func (s *Solver[T]) Mu() []T { return s.mu }

// Lambda returns the last solve's dual variable conjugate to y (length m).
func (s *Solver[T]) Lambda() []T { return s.lambda }

// Optval returns f(y)+g(x) (or cᵀx for the cone variant) at the last
// solve's solution.
func (s *Solver[T]) Optval() T { return s.optval }

// FinalIter returns the iteration count of the last solve.
func (s *Solver[T]) FinalIter() int { return s.finalIter }

// Summary reports the last solve's final-iterate metrics (SPEC_FULL.md §C.4)
// without requiring the caller to have captured the log output.
func (s *Solver[T]) Summary() Summary[T] {
	return Summary[T]{
		Status:    s.lastStatus,
		FinalIter: s.finalIter,
		Optval:    s.optval,
		NrmR:      s.lastMetrics.r,
		NrmS:      s.lastMetrics.s,
		Gap:       s.lastMetrics.gap,
		EpsPri:    s.lastMetrics.epsPri,
		EpsDua:    s.lastMetrics.epsDua,
		EpsGap:    s.lastMetrics.epsGap,
		TimeInit:  s.lastTimeInit,
		TimeSolve: s.lastTimeSolve,
	}
}

func (s *Solver[T]) init(obj objective.Objective[T]) error {
	if s.doneInit {
		return nil
	}
	m, n := s.m, s.n
	s.de = make([]T, m+n)
	s.z = make([]T, m+n)
	s.zt = make([]T, m+n)
	s.zPrev = make([]T, m+n)
	s.x = make([]T, n)
	s.y = make([]T, m)
	s.mu = make([]T, n)
	s.lambda = make([]T, m)

	if err := s.a.Init(); err != nil {
		return errors.Wrap(err, "pogs: matrix Init failed")
	}
	d, e := s.de[:m], s.de[m:]
	if err := s.a.Equil(d, e, obj.ConstrainD, obj.ConstrainE); err != nil {
		return errors.Wrap(err, "pogs: equilibration failed")
	}
	// FastOp has no storage to rescale in place (unlike Dense/Sparse, which
	// mutate their own entries during Equil), so Equil only reports d, e;
	// wrap it in Equilibrated here so every subsequent s.a.Mul (and the
	// projector's, if it is CGLS) sees Ã = diag(d)*A*diag(e), matching
	// matop_test.go's own documented two-phase Equil-then-wrap usage.
	if fo, ok := s.a.(*matop.FastOp[T]); ok {
		wrapped := &matop.Equilibrated[T]{Inner: fo, D: append([]T(nil), d...), E: append([]T(nil), e...)}
		s.a = wrapped
		if cgls, ok := s.proj.(*project.CGLS[T]); ok {
			cgls.A = wrapped
		}
	}
	if err := s.proj.Init(); err != nil {
		return errors.Wrap(err, "pogs: projector Init failed")
	}
	s.doneInit = true
	return nil
}

// Solve runs the ADMM iteration to convergence (or MAX_ITER/NAN_FOUND)
// against obj, per settings, and returns the terminal Status. Re-solving
// the same Solver reuses the equilibration and projector factorization from
// the first call (§3 "Lifecycle"): only rho, z, and zt evolve across calls.
func (s *Solver[T]) Solve(obj objective.Objective[T], settings Settings[T]) (Status, error) {
	t0 := time.Now()
	if v, ok := obj.(Validator); ok {
		if err := v.Validate(s.m, s.n); err != nil {
			return INVALID_CONE, err
		}
	}
	firstInit := !s.doneInit
	if err := s.init(obj); err != nil {
		return NAN_FOUND, err
	}

	m, n := s.m, s.n
	d, e := s.de[:m], s.de[m:]

	if firstInit {
		// Scale the objective to account for the diagonal equilibration,
		// per §4.6's "Scale objective to account for diagonal scaling e
		// and d." Only meaningful once: re-solving the same Solver against
		// the same (already-scaled) objective must not rescale it again.
		obj.Scale(d, e)
	}

	if settings.Output != nil {
		s.logger.SetOutput(settings.Output)
	}
	if settings.Rho > 0 {
		s.rho = settings.Rho
	}

	x, y := vecop.Partition(s.z, n, m)
	xt, yt := vecop.Partition(s.zt, n, m)
	s.applyWarmStart(obj, settings, d, e, x, y, xt, yt)

	timeInit := time.Since(t0)
	if settings.Verbose > 0 {
		s.logger.Printf("starting solve: m=%d n=%d rho=%v", m, n, s.rho)
	}
	if settings.Verbose > 1 {
		s.logger.Printf(" iter |  pri res |  pri tol |  dua res |  dua tol |   gap    |  eps gap | pri obj")
	}

	status := s.iterate(obj, settings, x, y, xt, yt)
	timeSolve := time.Since(t0) - timeInit

	s.lastStatus = status
	s.lastTimeInit = timeInit
	s.lastTimeSolve = timeSolve

	if settings.Verbose > 0 {
		mm := s.lastMetrics
		s.logger.Printf("status: %s  iters: %d  time: init=%s solve=%s",
			status, s.finalIter, timeInit, timeSolve)
		s.logger.Printf("pri: %.2e  dua: %.2e  gap: %.2e",
			safeRatio(mm.r, mm.epsPri), safeRatio(mm.s, mm.epsDua), safeRatio(mm.gap, mm.epsGap))
	}
	return status, nil
}

func safeRatio[T vecop.Float](a, b T) T {
	if b == 0 {
		return 0
	}
	return a / b
}

func (s *Solver[T]) applyWarmStart(obj objective.Objective[T], settings Settings[T], d, e []T, x, y, xt, yt vecop.View[T]) {
	initX := settings.InitX != nil
	initLambda := settings.InitLambda != nil
	if !initX && !initLambda {
		return
	}

	xtemp := make([]T, s.n)
	ytemp := make([]T, s.m)

	if initX {
		// xtemp = x0 / e ; ytemp = Ã·xtemp ; z = (xtemp, ytemp).
		vecop.DivTo(xtemp, settings.InitX, e)
		s.a.Mul('n', 1, xtemp, 0, ytemp)
		copy(x, xtemp)
		copy(y, ytemp)
	}
	if initLambda {
		// ytemp = lambda0 / d ; xtemp = -Ãᵀ·ytemp ; zt = -1/rho * (xtemp, ytemp).
		vecop.DivTo(ytemp, settings.InitLambda, d)
		s.a.Mul('t', -1, ytemp, 0, xtemp)
		copy(xt, xtemp)
		copy(yt, ytemp)
		vecop.Scal(-1/s.rho, s.zt)
	}

	if initX && !initLambda {
		s.bootstrapDual(obj, settings.InitIter)
	}
	// init_lambda-alone has no dual bootstrap: there is no primal iterate
	// to refine, matching the spec's "if both: ... no extra dual bootstrap"
	// treatment of the combined case.
}

// bootstrapDual estimates z_t from the x-only warm start via initIter
// alternating projector passes (§4.6 "Warm start"). Each pass evaluates
// obj.Prox at the current (x_prev, y_prev) to get a subgradient-consistent
// point, then projects that point onto the graph — standing in for the
// original's ProjSubgradEval, which per original_source/src/cpu/pogs.cpp
// was never implemented there either (its own placeholder comment: "Make
// part of PogsObj"). The substitution is exact for a single scalar
// function's prox (rho*(v-prox(v)) is by definition a subgradient at
// prox(v)); here it is applied jointly across the x- and y-blocks through
// the one Prox call the Objective contract already exposes.
func (s *Solver[T]) bootstrapDual(obj objective.Objective[T], initIter int) {
	if initIter <= 0 {
		initIter = 10
	}
	m, n := s.m, s.n
	zprev := make([]T, m+n)
	ztemp := make([]T, m+n)
	xPrev, yPrev := vecop.Partition(zprev, n, m)
	xTemp, yTemp := vecop.Partition(ztemp, n, m)

	tolIni := T(1e-5)
	for i := 0; i < initIter; i++ {
		obj.Prox(xPrev, yPrev, xTemp, yTemp, s.rho)
		if err := s.proj.Project(xTemp, yTemp, 1, xPrev, yPrev, tolIni); err != nil {
			return
		}
		vecop.Axpy(-1, ztemp, zprev)
		vecop.Scal(-1, zprev)
	}
	copy(s.zt, zprev)
	vecop.Scal(-1/s.rho, s.zt)
}

// iterate runs the ADMM loop (§4.6), writes the final x, y, mu, lambda,
// optval, finalIter, and lastMetrics onto the Solver, and returns the
// terminal Status.
func (s *Solver[T]) iterate(obj objective.Objective[T], settings Settings[T], x, y, xt, yt vecop.View[T]) Status {
	m, n := s.m, s.n
	z12 := make([]T, m+n)
	x12, y12 := vecop.Partition(z12, n, m)
	zTmp := make([]T, m+n)
	xTmp, yTmp := vecop.Partition(zTmp, n, m)
	scratch := make([]T, m+n)

	sqrtnAtol := T(math.Sqrt(float64(n))) * settings.AbsTol
	sqrtmAtol := T(math.Sqrt(float64(m))) * settings.AbsTol
	sqrtmnAtol := T(math.Sqrt(float64(m+n))) * settings.AbsTol

	delta, xi := T(admmDeltaMin), T(1.0)
	var kd, ku int

	maxIter := settings.MaxIter
	if maxIter <= 0 {
		maxIter = 2500
	}

	for k := 0; ; k++ {
		if settings.CancelFunc != nil && settings.CancelFunc() {
			s.finish(obj, z12, x12, y12)
			s.finalIter = k
			return MAX_ITER
		}

		copy(s.zPrev, s.z)

		// Prox step: z <- z - zt, then prox(x,y) -> (x12,y12).
		vecop.Axpy(-1, s.zt, s.z)
		obj.Prox(x, y, x12, y12, s.rho)

		// gap and the three tolerances. z is consumed here (z -= z12) and
		// immediately overwritten wholesale by the Project call below, so
		// there is nothing to restore — matches the reference
		// implementation's own reuse of the same buffer.
		vecop.Axpy(-1, z12, s.z)
		gap := T(math.Abs(float64(vecop.Dot(s.z, z12))))
		epsGap := sqrtmnAtol + settings.RelTol*vecop.Nrm2(s.z)*vecop.Nrm2(z12)
		epsPri := sqrtmAtol + settings.RelTol*vecop.Nrm2(y12)
		epsDua := sqrtnAtol + settings.RelTol*s.rho*vecop.Nrm2(x)

		// Over-relaxation: zTmp = zt + alpha*z12 + (1-alpha)*zPrev.
		copy(zTmp, s.zt)
		vecop.Axpy(admmAlpha, z12, zTmp)
		vecop.Axpy(1-admmAlpha, s.zPrev, zTmp)

		// Project onto y = Ã x; this overwrites (x,y), i.e. s.z, in place.
		// A backend error in this iteration ends the solve with NAN_FOUND.
		backendFailed := false
		tolK := T(project.ToleranceSchedule(k))
		if err := s.proj.Project(xTmp, yTmp, 1, x, y, tolK); err != nil {
			s.logBackendFailure(settings, err)
			backendFailed = true
		}

		copy(scratch, s.zPrev)
		vecop.Axpy(-1, s.z, scratch)
		nrmS := s.rho * vecop.Nrm2(scratch)

		copy(scratch, z12)
		vecop.Axpy(-1, s.z, scratch)
		nrmR := vecop.Nrm2(scratch)

		// Exact residual refresh (§4.6 step 5, §8's literal formula).
		// use_exact_stop is hard-coded true per the Open Question decision
		// recorded in DESIGN.md, so this branch always runs.
		exact := false
		const useExactStop = true
		if (nrmR < epsPri && nrmS < epsDua) || useExactStop {
			yScratch := make([]T, m)
			copy(yScratch, y12)
			if err := s.a.Mul('n', 1, x12, -1, yScratch); err != nil {
				s.logBackendFailure(settings, err)
				backendFailed = true
			}
			nrmR = vecop.Nrm2(yScratch)
			if nrmR < epsPri || useExactStop {
				xPrev, yPrev := vecop.Partition(s.zPrev, n, m)

				yComb := make([]T, m)
				copy(yComb, y12)
				vecop.Axpy(1, yt, yComb)
				vecop.Axpy(-1, yPrev, yComb)

				xComb := make([]T, n)
				copy(xComb, x12)
				vecop.Axpy(1, xt, xComb)
				vecop.Axpy(-1, xPrev, xComb)

				if err := s.a.Mul('t', 1, yComb, 1, xComb); err != nil {
					s.logBackendFailure(settings, err)
					backendFailed = true
				}
				nrmS = s.rho * vecop.Nrm2(xComb)
				exact = true
			}
		}

		converged := exact && nrmR < epsPri && nrmS < epsDua &&
			(!settings.GapStop || gap < epsGap)
		nonFinite := backendFailed || vecop.HasNonFinite(s.z) || vecop.HasNonFinite(s.zt) ||
			math.IsNaN(float64(nrmR)) || math.IsInf(float64(nrmR), 0) ||
			math.IsNaN(float64(nrmS)) || math.IsInf(float64(nrmS), 0)

		s.lastMetrics = admmMetrics[T]{r: nrmR, s: nrmS, gap: gap, epsPri: epsPri, epsDua: epsDua, epsGap: epsGap}

		if (settings.Verbose > 2 && k%10 == 0) ||
			(settings.Verbose > 1 && k%100 == 0) ||
			(settings.Verbose > 1 && converged) {
			optval := obj.Evaluate(x12, y12)
			s.logger.Printf("%5d | %.2e | %.2e | %.2e | %.2e | %.2e | %.2e | % .2e",
				k, nrmR, epsPri, nrmS, epsDua, gap, epsGap, optval)
		}

		if converged || nonFinite || k == maxIter-1 {
			s.finalIter = k
			s.finish(obj, z12, x12, y12)
			switch {
			case converged:
				return SUCCESS
			case nonFinite:
				return NAN_FOUND
			default:
				return MAX_ITER
			}
		}

		// Dual update: zt <- zt + alpha*z12 + (1-alpha)*zPrev - z.
		vecop.Axpy(admmAlpha, z12, s.zt)
		vecop.Axpy(1-admmAlpha, s.zPrev, s.zt)
		vecop.Axpy(-1, s.z, s.zt)

		if settings.AdaptiveRho {
			s.adaptRho(&delta, &xi, &kd, &ku, k, nrmR, nrmS, epsPri, epsDua, settings.Verbose)
		}
	}
}

func (s *Solver[T]) adaptRho(delta, xi *T, kd, ku *int, k int, nrmR, nrmS, epsPri, epsDua T, verbose int) {
	switch {
	case nrmS < *xi*epsDua && nrmR > *xi*epsPri && admmTau*T(k) > T(*kd):
		if s.rho < admmRhoMax {
			s.rho *= *delta
			vecop.Scal(1 / *delta, s.zt)
			*delta *= admmGamma
			*ku = k
			if verbose > 3 {
				s.logger.Printf("+ rho %v", s.rho)
			}
		}
	case nrmS > *xi*epsDua && nrmR < *xi*epsPri && admmTau*T(k) > T(*ku):
		if s.rho > admmRhoMin {
			s.rho /= *delta
			vecop.Scal(*delta, s.zt)
			*delta *= admmGamma
			*kd = k
			if verbose > 3 {
				s.logger.Printf("- rho %v", s.rho)
			}
		}
	case nrmS < *xi*epsDua && nrmR < *xi*epsPri:
		*xi *= admmKappa
	default:
		*delta = admmDeltaMin
	}
	if s.rho < admmRhoMin {
		s.rho = admmRhoMin
	}
	if s.rho > admmRhoMax {
		s.rho = admmRhoMax
	}
}

// finish computes optval and rescales the final iterate into user
// coordinates (§4.6 "Post-processing"):
//
//	mu, lambda = -rho * (zt - zPrev + z½), split x/y block, then /e, *d
//	x_out = x½ ⊙ e ; y_out = y½ ⊘ d
//
// and rolls z back to zPrev, matching the reference implementation's final
// "z = zprev" — so a subsequent warm-started Solve resumes from the last
// *accepted* iterate, not from the just-computed (and now consumed)
// projected point.
func (s *Solver[T]) finish(obj objective.Objective[T], z12 []T, x12, y12 vecop.View[T]) {
	n, m := s.n, s.m
	d, e := s.de[:m], s.de[m:]

	s.optval = obj.Evaluate(x12, y12)

	ztmp := make([]T, m+n)
	copy(ztmp, s.zt)
	vecop.Axpy(-1, s.zPrev, ztmp)
	vecop.Axpy(1, z12, ztmp)
	vecop.Scal(-s.rho, ztmp)
	xTmp, yTmp := vecop.Partition(ztmp, n, m)

	vecop.DivTo(s.mu, xTmp, e)
	vecop.MulTo(s.lambda, yTmp, d)

	vecop.MulTo(s.x, x12, e)
	vecop.DivTo(s.y, y12, d)

	copy(s.z, s.zPrev)
}

func (s *Solver[T]) logBackendFailure(settings Settings[T], err error) {
	if settings.Verbose > 0 && s.failWarn.Ok() {
		s.logger.Printf("backend warning: %v", err)
	}
}

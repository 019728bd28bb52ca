package pogs

import (
	"io"
	"os"

	"github.com/pogs-solver/pogs/vecop"
)

// Settings holds every tunable of a Solver (§6 "Solver public surface"):
// tolerances, iteration limits, penalty initialization, verbosity, the
// adaptive-penalty and duality-gap-stop switches, and the two warm-start
// vectors. It is a plain struct rather than a file-backed configuration
// object — nothing in the retrieval pack configures a numerical solver from
// a file, and pogs has no persisted state to round-trip.
type Settings[T vecop.Float] struct {
	AbsTol T
	RelTol T

	MaxIter  int
	InitIter int

	Rho T

	// Verbose gates reporting: 0 silent, 1 header+summary, 2 adds a line
	// every 100 iterations, 3 tightens that to every 10 (§4.7).
	Verbose int
	Output  io.Writer

	AdaptiveRho bool
	GapStop     bool

	// CancelFunc, when non-nil, is polled once at the top of every
	// iteration; a true return terminates the solve exactly like MAX_ITER
	// with the current iterate returned (§5, §C.3 of SPEC_FULL.md).
	CancelFunc func() bool

	// InitX and InitLambda are the warm-start vectors (length n and m
	// respectively). Every Solve call applies whichever of these are non-nil
	// (see §4.6 "Warm start"). Settings is passed to Solve by value, so they
	// are not cleared: a later Solve with the same Settings applies them
	// again.
	InitX      []T
	InitLambda []T
}

// DefaultSettings returns the §6 default configuration:
// abs_tol=1e-4, rel_tol=1e-3, max_iter=2500, init_iter=10, rho=1.0,
// adaptive_rho=true, gap_stop=false, verbose=2, logging to os.Stdout.
func DefaultSettings[T vecop.Float]() Settings[T] {
	return Settings[T]{
		AbsTol:      T(1e-4),
		RelTol:      T(1e-3),
		MaxIter:     2500,
		InitIter:    10,
		Rho:         T(1.0),
		Verbose:     2,
		Output:      os.Stdout,
		AdaptiveRho: true,
		GapStop:     false,
	}
}

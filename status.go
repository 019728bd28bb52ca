package pogs

import "time"

// Status is the terminal outcome of a Solve call (§4.7/§7).
type Status int

const (
	// SUCCESS: converged within tolerance.
	SUCCESS Status = iota
	// MAX_ITER: exhausted Settings.MaxIter without converging; residuals
	// remained finite. The current iterate is still returned.
	MAX_ITER
	// NAN_FOUND: a residual went non-finite, or a backend (factorization,
	// CGLS) failed — surfaced identically per §7's "Backend failure"
	// clause. The current iterate is still returned.
	NAN_FOUND
	// INVALID_CONE: a cone configuration was malformed (out-of-range or
	// duplicated index, or an unsupported cone kind) — detected before the
	// first iteration runs.
	INVALID_CONE
)

func (s Status) String() string {
	switch s {
	case SUCCESS:
		return "SUCCESS"
	case MAX_ITER:
		return "MAX_ITER"
	case NAN_FOUND:
		return "NAN_FOUND"
	case INVALID_CONE:
		return "INVALID_CONE"
	default:
		return "UNKNOWN"
	}
}

// Summary is the final-iterate report a caller can pull programmatically
// instead of parsing the verbose log line (SPEC_FULL.md §C.4).
type Summary[T any] struct {
	Status     Status
	FinalIter  int
	Optval     T
	NrmR, NrmS T
	Gap        T
	EpsPri     T
	EpsDua     T
	EpsGap     T
	TimeInit   time.Duration
	TimeSolve  time.Duration
}

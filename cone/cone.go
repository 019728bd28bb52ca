// Package cone implements the convex-cone primitives consumed by the cone
// objective variant: cone kinds, index sets, Euclidean projection, and the
// separability test that drives equilibration's averaging constraints.
package cone

import (
	"math"

	"github.com/pkg/errors"
)

// Kind identifies a cone type. Zero and NonNeg are separable; the rest are
// not (see IsSeparable).
type Kind int

const (
	Zero Kind = iota
	NonNeg
	SecondOrder
	SDP
	Exp
	DualExp
)

func (k Kind) String() string {
	switch k {
	case Zero:
		return "zero"
	case NonNeg:
		return "nonneg"
	case SecondOrder:
		return "second-order"
	case SDP:
		return "sdp"
	case Exp:
		return "exp"
	case DualExp:
		return "dual-exp"
	default:
		return "unknown"
	}
}

// IsSeparable reports whether projection onto a cone of this kind factors
// coordinate-wise. Zero and NonNeg are separable; SecondOrder, SDP, Exp, and
// DualExp couple their coordinates and are not.
func IsSeparable(k Kind) bool {
	return k == Zero || k == NonNeg
}

// ErrUnsupportedCone is returned by Project for cone kinds whose projection
// this package does not implement (SDP, Exp, DualExp — see SPEC_FULL.md §C.2).
var ErrUnsupportedCone = errors.New("cone: projection not implemented for this kind")

// Constraint is a single (kind, index-list) cone over a subset of
// coordinates of a vector of dimension Dim.
type Constraint struct {
	Kind Kind
	Idx  []int
}

// Set is a Cartesian product of cone Constraints covering (a subset of) the
// coordinates of a vector of length Dim.
type Set struct {
	Dim         int
	Constraints []Constraint
}

// Validate checks that every index across all constraints lies in
// [0, Dim) and that no index is claimed by more than one constraint,
// matching the base spec's INVALID_CONE failure condition (§7).
func (s Set) Validate() error {
	seen := make([]bool, s.Dim)
	for ci, c := range s.Constraints {
		for _, i := range c.Idx {
			if i < 0 || i >= s.Dim {
				return errors.Errorf("cone: constraint %d index %d out of range [0,%d)", ci, i, s.Dim)
			}
			if seen[i] {
				return errors.Errorf("cone: index %d claimed by more than one cone constraint", i)
			}
			seen[i] = true
		}
	}
	return nil
}

// ValidateSupported runs Validate and additionally rejects any constraint
// whose Kind this package cannot project onto (SDP, Exp, DualExp — see
// ErrUnsupportedCone). pogs.Solver calls this before iterating so an
// unsupported cone fails fast with INVALID_CONE instead of surfacing as a
// NaN partway through a solve.
func (s Set) ValidateSupported() error {
	if err := s.Validate(); err != nil {
		return err
	}
	for ci, c := range s.Constraints {
		switch c.Kind {
		case Zero, NonNeg, SecondOrder:
		default:
			return errors.Errorf("cone: constraint %d has unsupported kind %s", ci, c.Kind)
		}
	}
	return nil
}

// ConstrainAverage replaces v[i], for i in every non-separable constraint's
// index set, by the arithmetic mean of those entries — the equilibration
// cone-consistency callback required by the base spec's §4.3 (constrain_e
// for Kx, constrain_d for Ky).
func ConstrainAverage[V ~float32 | ~float64](s Set, v []V) {
	for _, c := range s.Constraints {
		if IsSeparable(c.Kind) || len(c.Idx) == 0 {
			continue
		}
		var sum V
		for _, i := range c.Idx {
			sum += v[i]
		}
		mean := sum / V(len(c.Idx))
		for _, i := range c.Idx {
			v[i] = mean
		}
	}
}

// Project writes into dst the Euclidean projection of src onto the cone Set;
// coordinates not covered by any Constraint are left unchanged (implicitly
// the whole-space cone). dst and src may be the same slice.
func Project[V ~float32 | ~float64](s Set, src, dst []V) error {
	if len(src) != s.Dim || len(dst) != s.Dim {
		return errors.New("cone: Project length mismatch")
	}
	if len(dst) > 0 && &dst[0] != &src[0] {
		copy(dst, src)
	}
	for _, c := range s.Constraints {
		if err := projectOne[V](c, dst); err != nil {
			return err
		}
	}
	return nil
}

func projectOne[V ~float32 | ~float64](c Constraint, v []V) error {
	switch c.Kind {
	case Zero:
		for _, i := range c.Idx {
			v[i] = 0
		}
		return nil
	case NonNeg:
		for _, i := range c.Idx {
			if v[i] < 0 {
				v[i] = 0
			}
		}
		return nil
	case SecondOrder:
		return projectSOC(c.Idx, v)
	default:
		return ErrUnsupportedCone
	}
}

// projectSOC projects onto the second-order cone {(t, x) : ||x||_2 <= t}
// where v[Idx[0]] plays the role of t and v[Idx[1:]] the role of x, the
// standard convention (e.g. SCS, ECOS) for a Lorentz cone block.
func projectSOC[V ~float32 | ~float64](idx []int, v []V) error {
	if len(idx) < 2 {
		return errors.New("cone: second-order cone needs at least 2 coordinates")
	}
	t := v[idx[0]]
	var ss float64
	for _, i := range idx[1:] {
		x := float64(v[i])
		ss += x * x
	}
	nrm := math.Sqrt(ss)
	switch {
	case nrm <= float64(t):
		// Already in the cone.
		return nil
	case nrm <= -float64(t):
		for _, i := range idx {
			v[i] = 0
		}
		return nil
	default:
		scale := (nrm + float64(t)) / (2 * nrm)
		v[idx[0]] = V(scale * nrm)
		for _, i := range idx[1:] {
			v[i] = V(scale * float64(v[i]))
		}
		return nil
	}
}

// Package atom implements the scalar proximable FunctionObj library that
// the separable objective variant sums over: each Atom is a function of one
// real variable in the standard affine form
//
//	h(a*t - b) + c*t + 0.5*d*t^2
//
// for a base function h drawn from a small closed set (Kind), carrying its
// own closed-form Eval and Prox. The base spec treats FunctionObj purely as
// an external collaborator (§1, §4.5); this package is the concrete minimal
// library needed to make the separable end-to-end scenarios (NNLS, Lasso)
// runnable, per SPEC_FULL.md §C.1.
package atom

import "math"

// Kind names the base function h before the affine reparametrization.
type Kind int

const (
	// KindZero is h(t) = 0.
	KindZero Kind = iota
	// KindAbs is h(t) = |t| (L1 / absolute value).
	KindAbs
	// KindSquare is h(t) = 0.5*t^2 (squared error).
	KindSquare
	// KindIndGe0 is h(t) = 0 if t >= 0, else +infinity (nonnegativity indicator).
	KindIndGe0
	// KindIndEq0 is h(t) = 0 if t == 0, else +infinity (equality indicator).
	KindIndEq0
	// KindHuber is the Huber loss with unit transition.
	KindHuber
)

// Atom is one scalar term h(a*t - b) + c*t + 0.5*d*t^2 of a separable
// objective. Zero-value Atom is h(t)=0 with a=0 (and b=c=d=0); callers
// should use New to get a properly initialized Atom (a=1).
type Atom struct {
	Kind Kind
	A    float64 // 1 when built by New
	B    float64
	C    float64
	D    float64 // quadratic coefficient, must stay >= 0
}

// New returns an Atom of the given kind with the identity affine parameters
// (a=1, b=0, c=0, d=0).
func New(k Kind) Atom { return Atom{Kind: k, A: 1} }

// Eval returns h(a*t - b) + c*t + 0.5*d*t^2.
func (f Atom) Eval(t float64) float64 {
	z := f.A*t - f.B
	return f.h(z) + f.C*t + 0.5*f.D*t*t
}

func (f Atom) h(z float64) float64 {
	switch f.Kind {
	case KindZero:
		return 0
	case KindAbs:
		return math.Abs(z)
	case KindSquare:
		return 0.5 * z * z
	case KindIndGe0:
		if z >= 0 {
			return 0
		}
		return math.Inf(1)
	case KindIndEq0:
		if z == 0 {
			return 0
		}
		return math.Inf(1)
	case KindHuber:
		az := math.Abs(z)
		if az <= 1 {
			return 0.5 * z * z
		}
		return az - 0.5
	default:
		return math.Inf(1)
	}
}

// Prox evaluates prox_{f,rho}(v) = argmin_t f(t) + (rho/2)*(t-v)^2.
//
// The closed forms below first solve the inner proximal problem for h at
// scale (rho+d)/a^2 — the standard substitution that reduces a scaled,
// shifted, ridge-regularized proximal evaluation to a bare prox of h — then
// undoes the affine map, matching the derivation in Parikh & Boyd,
// "Proximal Algorithms" §6.
func (f Atom) Prox(v float64, rho float64) float64 {
	if rho <= 0 {
		panic("atom: Prox requires rho > 0")
	}
	// Fold in the linear term c*t and quadratic term 0.5*d*t^2 by
	// completing the square against the proximal quadratic:
	//   argmin_t h(a*t-b) + c*t + 0.5*d*t^2 + (rho/2)(t-v)^2
	// = argmin_t h(a*t-b) + (rho+d)/2 * (t - (rho*v-c)/(rho+d))^2.
	rhoEff := rho + f.D
	vEff := (rho*v - f.C) / rhoEff

	if f.A == 0 {
		return vEff
	}
	// Substitute s = a*t - b, t = (s+b)/a:
	//   argmin_s h(s) + (rhoEff/(2*a^2))*( s - (a*vEff - b) )^2
	// reduces to prox_{h, rhoEff/a^2}( a*vEff - b ) mapped back by t=(s+b)/a.
	rhoH := rhoEff / (f.A * f.A)
	s := a2bShift(f.A, f.B, vEff)
	sStar := proxH(f.Kind, s, rhoH)
	return (sStar + f.B) / f.A
}

func a2bShift(a, b, vEff float64) float64 {
	return a*vEff - b
}

// proxH evaluates the bare proximal operator of h at scale rho (rho is the
// quadratic weight of the surrounding (rho/2)(s-v)^2 term, already folded
// in by Prox above).
func proxH(k Kind, v, rho float64) float64 {
	switch k {
	case KindZero:
		return v
	case KindAbs:
		// Soft threshold at 1/rho.
		thresh := 1 / rho
		switch {
		case v > thresh:
			return v - thresh
		case v < -thresh:
			return v + thresh
		default:
			return 0
		}
	case KindSquare:
		return rho * v / (1 + rho)
	case KindIndGe0:
		if v < 0 {
			return 0
		}
		return v
	case KindIndEq0:
		return 0
	case KindHuber:
		// prox of Huber at scale rho: shrink toward 0 within the
		// quadratic region, clip at the kink otherwise.
		denom := 1 + rho
		candidate := rho * v / denom
		if math.Abs(candidate) <= 1 {
			return candidate
		}
		thresh := 1 / rho
		if v > 0 {
			return v - thresh
		}
		return v + thresh
	default:
		return v
	}
}

// DivideByScale rescales the atom for the substitution t = t'/s, so that
// prox/eval of the rescaled atom at t' reproduce the original atom at t: in
// the affine form h(a*t-b) + c*t + 0.5*d*t^2 it divides a and c by s and d
// by s^2. Separable.Scale applies it to the f-atoms with s = d_i.
func (f *Atom) DivideByScale(s float64) {
	if s == 0 {
		panic("atom: DivideByScale requires a nonzero scale")
	}
	f.A /= s
	f.C /= s
	f.D /= s * s
}

// MultiplyByScale rescales the atom for the substitution t = s*t': it
// multiplies a and c by s and d by s^2. Separable.Scale applies it to the
// g-atoms with s = e_j.
func (f *Atom) MultiplyByScale(s float64) {
	f.A *= s
	f.C *= s
	f.D *= s * s
}

// Package objective implements the pluggable proximal-objective contract
// (C5 of the spec) and its two concrete variants, Separable and Cone.
package objective

import "github.com/pogs-solver/pogs/vecop"

// Objective is the capability set the ADMM driver calls against: evaluate
// the original objective, evaluate proximal operators in scaled
// coordinates, absorb an equilibration rescaling, and the cone-consistency
// averaging callbacks consumed by equilibration (§4.3, §4.5).
type Objective[T vecop.Float] interface {
	// Evaluate returns the original objective value at (x, y) in *user*
	// coordinates (the driver calls it on (x½, y½) post-unscaling).
	Evaluate(x, y []T) T
	// Prox evaluates component proximal operators in scaled coordinates:
	// xOut = argmin_x g(x) + (rho/2)||x-xIn||^2, and analogously yOut for f.
	Prox(xIn, yIn []T, xOut, yOut []T, rho T)
	// Scale transforms stored parameters so that evaluating/prox-ing on
	// scaled variables corresponds to the unscaled problem.
	Scale(d, e []T)
	// ConstrainD, ConstrainE are the equilibration averaging callbacks of
	// §4.3: ConstrainE acts on Kx (the x-block cones), ConstrainD on Ky.
	ConstrainD(d []T)
	ConstrainE(e []T)
}

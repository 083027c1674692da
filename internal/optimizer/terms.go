package optimizer

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// smoothEps is the smoothing width used for the non-smooth terms. The
// absolute value is replaced by sqrt(x^2+eps^2)-eps, which is convex,
// differentiable everywhere and exact to within eps.
const smoothEps = 1e-9

func smoothAbs(x float64) float64 {
	return math.Sqrt(x*x+smoothEps*smoothEps) - smoothEps
}

func smoothAbsGrad(x float64) float64 {
	return x / math.Sqrt(x*x+smoothEps*smoothEps)
}

// Linear is the term c·x over a sparse set of variables.
type Linear struct {
	Coeffs []Entry
}

// Value implements Term.
func (t Linear) Value(x []float64) float64 {
	total := 0.0
	for _, e := range t.Coeffs {
		total += e.Coeff * x[e.Index]
	}

	return total
}

// AddGradient implements Term.
func (t Linear) AddGradient(grad, _ []float64) {
	for _, e := range t.Coeffs {
		grad[e.Index] += e.Coeff
	}
}

// Quadratic is the term weight * y'Qy where y = x[Indices]. Q must be
// positive semidefinite and weight non-negative for the term to be convex.
type Quadratic struct {
	Indices []int
	Q       *mat.SymDense
	Weight  float64
}

// Value implements Term.
func (t Quadratic) Value(x []float64) float64 {
	n := len(t.Indices)
	total := 0.0

	for i := 0; i < n; i++ {
		xi := x[t.Indices[i]]
		for j := 0; j < n; j++ {
			total += xi * t.Q.At(i, j) * x[t.Indices[j]]
		}
	}

	return t.Weight * total
}

// AddGradient implements Term.
func (t Quadratic) AddGradient(grad, x []float64) {
	n := len(t.Indices)

	for i := 0; i < n; i++ {
		g := 0.0
		for j := 0; j < n; j++ {
			g += t.Q.At(i, j) * x[t.Indices[j]]
		}

		grad[t.Indices[i]] += 2 * t.Weight * g
	}
}

// AbsSum is the term sum_i c_i |x_i| with c_i >= 0 (smoothed).
type AbsSum struct {
	Coeffs []Entry
}

// Value implements Term.
func (t AbsSum) Value(x []float64) float64 {
	total := 0.0
	for _, e := range t.Coeffs {
		total += e.Coeff * smoothAbs(x[e.Index])
	}

	return total
}

// AddGradient implements Term.
func (t AbsSum) AddGradient(grad, x []float64) {
	for _, e := range t.Coeffs {
		grad[e.Index] += e.Coeff * smoothAbsGrad(x[e.Index])
	}
}

// PowerThreeHalves is the term sum_i c_i |x_i|^(3/2) with c_i >= 0, the
// standard market-impact exponent. Smoothed as (x^2+eps^2)^(3/4).
type PowerThreeHalves struct {
	Coeffs []Entry
}

// Value implements Term.
func (t PowerThreeHalves) Value(x []float64) float64 {
	total := 0.0

	for _, e := range t.Coeffs {
		xi := x[e.Index]
		total += e.Coeff * math.Pow(xi*xi+smoothEps*smoothEps, 0.75)
	}

	return total
}

// AddGradient implements Term.
func (t PowerThreeHalves) AddGradient(grad, x []float64) {
	for _, e := range t.Coeffs {
		xi := x[e.Index]
		grad[e.Index] += e.Coeff * 1.5 * xi * math.Pow(xi*xi+smoothEps*smoothEps, -0.25)
	}
}

// NegativePart is the term sum_i c_i max(0, -x_i) with c_i >= 0, used for
// borrow-cost surrogates on short positions. Smoothed via the absolute value:
// max(0,-x) = (|x| - x)/2.
type NegativePart struct {
	Coeffs []Entry
}

// Value implements Term.
func (t NegativePart) Value(x []float64) float64 {
	total := 0.0
	for _, e := range t.Coeffs {
		total += e.Coeff * 0.5 * (smoothAbs(x[e.Index]) - x[e.Index])
	}

	return total
}

// AddGradient implements Term.
func (t NegativePart) AddGradient(grad, x []float64) {
	for _, e := range t.Coeffs {
		grad[e.Index] += e.Coeff * 0.5 * (smoothAbsGrad(x[e.Index]) - 1)
	}
}

// Scaled multiplies another term by a non-negative factor, e.g. a per-step
// discount over a planning horizon.
type Scaled struct {
	Term   Term
	Factor float64
}

// Value implements Term.
func (t Scaled) Value(x []float64) float64 {
	return t.Factor * t.Term.Value(x)
}

// AddGradient implements Term.
func (t Scaled) AddGradient(grad, x []float64) {
	if t.Factor == 0 {
		return
	}

	inner := make([]float64, len(grad))
	t.Term.AddGradient(inner, x)

	for i, g := range inner {
		grad[i] += t.Factor * g
	}
}

// L1Bound is the convex constraint sum_i w_i |x_i| <= Bound, used for
// leverage and turnover limits.
type L1Bound struct {
	Coeffs []Entry
	Bound  float64
}

// Value implements ConvexConstraint.
func (c L1Bound) Value(x []float64) float64 {
	total := -c.Bound
	for _, e := range c.Coeffs {
		total += e.Coeff * smoothAbs(x[e.Index])
	}

	return total
}

// AddGradient implements ConvexConstraint.
func (c L1Bound) AddGradient(grad, x []float64, scale float64) {
	for _, e := range c.Coeffs {
		grad[e.Index] += scale * e.Coeff * smoothAbsGrad(x[e.Index])
	}
}

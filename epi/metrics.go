// Package epi derives epidemiological effect measures from fitted models
// and design-based estimates: odds ratios, annual percent change,
// population attributable fractions and alternate-outcome sensitivity
// tables. Every quantity is a transformation of upstream estimates and
// their covariance; nothing here touches raw data.
package epi

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/arloliu/svystat/glm"
	"github.com/arloliu/svystat/survey"
)

// Estimate is a derived quantity on its natural scale with a 95% interval.
// Intervals are computed on the log-odds scale and transformed, so they are
// asymmetric around Value; PValue carries over from the underlying
// coefficient test.
type Estimate struct {
	Value  float64
	CILow  float64
	CIHigh float64
	PValue float64
}

// zQuantile returns the 97.5% standard normal quantile used for derived
// intervals. Derived measures are reported with normal-reference intervals;
// the coefficient-level t intervals remain available on the model.
func zQuantile() float64 {
	return distuv.Normal{Mu: 0, Sigma: 1}.Quantile(0.975)
}

// OddsRatio exponentiates a model term into an odds ratio with a 95%
// interval transformed from the log-odds scale.
//
// Parameters:
//   - m: a converged fit from glm.Fit
//   - term: the coefficient to transform, e.g. "arthritis" or "age_group=65+"
//
// Returns an error when the term is not in the model.
//
// Example:
//
//	or, err := epi.OddsRatio(m, "arthritis")
//	// or.Value = exp(beta), or.CILow/CIHigh = exp(beta -/+ z*SE)
func OddsRatio(m *glm.Model, term string) (Estimate, error) {
	return expTransform(m, term, 0)
}

// AnnualPercentChange transforms a per-year trend coefficient into the
// proportional change per year, exp(beta)-1. A value of 0.021 means the
// odds grow 2.1% per year. The interval transforms the same way. Works for
// crude fits (year as sole predictor) and adjusted fits alike.
func AnnualPercentChange(m *glm.Model, yearTerm string) (Estimate, error) {
	return expTransform(m, yearTerm, -1)
}

// expTransform maps a coefficient through exp(beta)+shift with interval
// endpoints transformed on the log scale.
func expTransform(m *glm.Model, term string, shift float64) (Estimate, error) {
	c, ok := m.Coefficient(term)
	if !ok {
		return Estimate{}, fmt.Errorf("epi: term %q not in model (have %v)", term, m.Terms)
	}
	zq := zQuantile()

	return Estimate{
		Value:  math.Exp(c.Estimate) + shift,
		CILow:  math.Exp(c.Estimate-zq*c.StdErr) + shift,
		CIHigh: math.Exp(c.Estimate+zq*c.StdErr) + shift,
		PValue: c.PValue,
	}, nil
}

// PAF computes the population attributable fraction from exposure
// prevalence and an odds ratio:
//
//	PAF = p(OR-1) / (1 + p(OR-1))
//
// It is a point value only. The formula treats the odds ratio as a risk
// ratio, which biases the fraction upward when the outcome is common, so
// report it alongside the outcome prevalence.
//
// Returns an error unless prevalence lies in [0, 1] and the odds ratio is
// positive.
func PAF(prevalence, oddsRatio float64) (float64, error) {
	if math.IsNaN(prevalence) || prevalence < 0 || prevalence > 1 {
		return 0, fmt.Errorf("epi: prevalence must lie in [0, 1], got %g", prevalence)
	}
	if math.IsNaN(oddsRatio) || oddsRatio <= 0 {
		return 0, fmt.Errorf("epi: odds ratio must be positive, got %g", oddsRatio)
	}
	excess := prevalence * (oddsRatio - 1)

	return excess / (1 + excess), nil
}

// PAFFromResults is a convenience over PAF taking the estimates directly:
// the design-based prevalence of the exposure and a derived odds ratio.
func PAFFromResults(prev survey.Result, or Estimate) (float64, error) {
	return PAF(prev.Estimate, or.Value)
}

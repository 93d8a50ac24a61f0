// Package glm fits survey-weighted quasi-binomial logistic regressions with
// design-based inference.
//
// # Model
//
// The fitted model is a logistic regression estimated by weighted quasi
// likelihood: coefficients solve the weighted score equations under the
// logit link, with no assumption that the binomial variance holds exactly.
// The outcome is a numeric column in [0, 1]; predictors are numeric columns
// or categorical columns expanded into reference-coded indicator terms by
// BuildMatrix. There is no formula language.
//
// # Inference
//
// Coefficient covariance is the sandwich estimator: the inverse information
// around the Taylor linearized covariance of the per-cluster score totals,
// computed by the survey package over the same stratum and cluster structure
// the design declares. Wald intervals and p-values use the t distribution
// with the design degrees of freedom of the rows that entered the fit. The
// model-based covariance (inverse information scaled by the Pearson
// dispersion) is reported alongside for diagnostics but drives no inference.
//
// # Failure Modes
//
// Fit distinguishes data that cannot support the model (errs.ErrInsufficientData:
// rank deficiency, too few clusters, no degrees of freedom) from iterative
// failures, which come back as *FitError wrapping errs.ErrSeparation or
// errs.ErrConvergence together with the iteration count and last
// coefficients.
//
// Example:
//
//	m, err := glm.Fit(d, glm.ModelSpec{
//	    Outcome:    "disability",
//	    Predictors: []string{"arthritis", "age_group", "sex", "survey_year"},
//	})
//	if err != nil {
//	    return err
//	}
//	for _, c := range m.Summary() {
//	    fmt.Printf("%-24s %8.4f (%.4f)\n", c.Term, c.Estimate, c.StdErr)
//	}
package glm

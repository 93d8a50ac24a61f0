// Package survey implements design-based estimation for complex sample
// surveys: weighted means, totals and domain estimates whose variances come
// from stratified first-stage Taylor linearization.
//
// # Designs
//
// A Design couples a frame.Frame with per-row analysis weights and optional
// stratum ids, first-stage cluster ids and finite population sampling
// fractions. All validation happens in NewDesign; estimators can then assume
// positive weights and consistent grouping. Designs are immutable, and
// Subset / SubsetEq produce restricted designs that keep the stratum and
// cluster identities of the surviving rows, so domain estimates see the
// same sampling structure the full sample does.
//
// Public-use files that ship no PSU codes are handled by the default
// grouping: omit WithClusters and every row is its own cluster, omit
// WithStrata and the sample forms a single stratum.
//
// # Variance Estimation
//
// Every statistic is expressed as a weighted total of per-row scores and its
// variance delegated to TotalCovariance, which aggregates scores to cluster
// totals, centers them within strata, and scales each stratum by
// n_h/(n_h-1) (and 1-f_h when sampling fractions are configured). Strata
// with a single cluster contribute nothing and reduce the degrees of
// freedom; a design whose strata are all singletons yields estimates whose
// variance is reported as undefined rather than zero.
//
// Confidence intervals use the t distribution with clusters-minus-strata
// degrees of freedom.
//
// Example:
//
//	d, err := survey.NewDesign(f, "wtfinal",
//	    survey.WithStrata("ststr"),
//	    survey.WithClusters("psu"),
//	)
//	if err != nil {
//	    return err
//	}
//	prev, err := survey.Mean(d, "disability")      // weighted prevalence
//	byYear, err := survey.ByDomain(d, "disability", "survey_year")
package survey

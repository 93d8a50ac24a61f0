// Package svystat estimates population quantities from complex survey
// samples: design-based prevalences, totals and domain estimates with
// Taylor linearized variances, survey-weighted quasi-binomial logistic
// regression with sandwich covariance, and derived epidemiological measures
// (odds ratios, annual percent change, attributable fractions) built on
// them.
//
// Analyses start from a survey.Design, which binds a data frame to per-row
// analysis weights and optional stratum ids, first-stage cluster ids and
// finite population corrections. All estimators respect that structure:
// variances come from per-cluster score totals centered within strata, and
// confidence intervals use the t distribution with clusters-minus-strata
// degrees of freedom. Domain (subpopulation) estimates never re-weight;
// they restrict the design while keeping its sampling identities.
//
// # Basic Usage
//
// Estimating a weighted prevalence and an adjusted odds ratio:
//
//	import (
//	    "github.com/arloliu/svystat"
//	    "github.com/arloliu/svystat/frame"
//	    "github.com/arloliu/svystat/glm"
//	    "github.com/arloliu/svystat/survey"
//	)
//
//	f, _ := frame.Open("brfss.csv.gz")
//	d, err := svystat.NewDesign(f, "wtfinal",
//	    survey.WithStrata("ststr"),
//	    survey.WithClusters("psu"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	prev, _ := svystat.Mean(d, "disability")
//	byYear, _ := svystat.ByDomain(d, "disability", "survey_year")
//
//	m, err := svystat.Fit(d, glm.ModelSpec{
//	    Outcome:    "disability",
//	    Predictors: []string{"arthritis", "age_group", "sex", "survey_year"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	or, _ := svystat.OddsRatio(m, "arthritis")
//
// # Package Structure
//
// This package provides top-level wrappers around the estimation packages,
// covering the common analysis flow. For finer control use the subpackages
// directly: frame (loading and typing data), survey (designs, linearized
// estimators), glm (model matrices and fitting), epi (derived measures) and
// report (result tables and CSV rendering).
package svystat

import (
	"github.com/arloliu/svystat/epi"
	"github.com/arloliu/svystat/frame"
	"github.com/arloliu/svystat/glm"
	"github.com/arloliu/svystat/survey"
)

// NewDesign binds a data frame to its sampling structure.
//
// Every row needs a positive weight in weightCol. Stratum and cluster
// columns are optional: without survey.WithStrata the sample forms one
// stratum, without survey.WithClusters every row is its own cluster, which
// matches public-use files that ship no PSU codes.
//
// Parameters:
//   - f: the loaded data frame
//   - weightCol: numeric column of analysis weights
//   - opts: survey.WithStrata, survey.WithClusters, survey.WithFPC,
//     survey.WithLogger
//
// Returns an error wrapping errs.ErrDesign when the weights are missing or
// non-positive, an id column is missing values, or a cluster appears in
// more than one stratum.
//
// Example:
//
//	d, err := svystat.NewDesign(f, "wtfinal",
//	    survey.WithStrata("ststr"),
//	    survey.WithClusters("psu"),
//	)
func NewDesign(f *frame.Frame, weightCol string, opts ...survey.DesignOption) (*survey.Design, error) {
	return survey.NewDesign(f, weightCol, opts...)
}

// Mean estimates the weighted mean of a numeric column with a linearized
// standard error and a 95% confidence interval. For a 0/1 column this is
// the weighted prevalence. Rows missing the column are excluded from this
// estimate only and counted in the result.
func Mean(d *survey.Design, col string) (survey.Result, error) {
	return survey.Mean(d, col)
}

// Total estimates the weighted population total of a numeric column with a
// linearized standard error and a 95% confidence interval.
func Total(d *survey.Design, col string) (survey.Result, error) {
	return survey.Total(d, col)
}

// ByDomain estimates the weighted mean of col within every level of a
// grouping column, one restricted design per level. Levels whose estimate
// fails carry the error in their row; the remaining levels still estimate.
//
// Example:
//
//	byYear, err := svystat.ByDomain(d, "disability", "survey_year")
//	for _, dm := range byYear {
//	    if dm.Err != nil {
//	        continue
//	    }
//	    fmt.Printf("%s: %.3f\n", dm.Group, dm.Result.Estimate)
//	}
func ByDomain(d *survey.Design, col, groupBy string) ([]survey.DomainMean, error) {
	return survey.ByDomain(d, col, groupBy)
}

// Fit estimates a survey-weighted quasi-binomial logistic regression with a
// design-based sandwich covariance. Coefficients are on the log-odds scale;
// categorical predictors expand to reference-coded indicator terms.
//
// Parameters:
//   - d: the survey design
//   - spec: outcome, predictors and reference levels (see glm.ModelSpec)
//   - opts: glm.WithTol, glm.WithMaxIterations, glm.WithLogger
//
// Example:
//
//	m, err := svystat.Fit(d, glm.ModelSpec{
//	    Outcome:    "disability",
//	    Predictors: []string{"arthritis", "age_group", "survey_year"},
//	    RefLevels:  map[string]string{"age_group": "18-44"},
//	})
func Fit(d *survey.Design, spec glm.ModelSpec, opts ...glm.FitOption) (*glm.Model, error) {
	return glm.Fit(d, spec, opts...)
}

// OddsRatio exponentiates a fitted model term into an odds ratio with a 95%
// interval transformed from the log-odds scale.
func OddsRatio(m *glm.Model, term string) (epi.Estimate, error) {
	return epi.OddsRatio(m, term)
}

// AnnualPercentChange transforms a per-year trend coefficient into the
// proportional change in odds per year, exp(coef)-1.
func AnnualPercentChange(m *glm.Model, yearTerm string) (epi.Estimate, error) {
	return epi.AnnualPercentChange(m, yearTerm)
}

// PAF computes the population attributable fraction p(OR-1)/(1+p(OR-1))
// from an exposure prevalence and an odds ratio. Point value only; see
// epi.PAF for the rare-outcome caveat.
func PAF(prevalence, oddsRatio float64) (float64, error) {
	return epi.PAF(prevalence, oddsRatio)
}

// Sensitivity refits the base model once per alternate outcome column and
// reports the exposure odds ratio from each fit, one row per outcome.
// Per-outcome failures never abort the remaining fits.
func Sensitivity(d *survey.Design, base glm.ModelSpec, outcomes []string, term string, opts ...glm.FitOption) []epi.SensitivityRow {
	return epi.Sensitivity(d, base, outcomes, term, opts...)
}

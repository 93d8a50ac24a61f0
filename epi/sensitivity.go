package epi

import (
	"github.com/arloliu/svystat/glm"
	"github.com/arloliu/svystat/survey"
)

// SensitivityRow is the outcome of refitting one alternate outcome: either
// a derived odds ratio or the error that stopped its fit.
type SensitivityRow struct {
	Outcome string
	OR      Estimate
	Err     error
}

// Sensitivity refits the base model once per alternate outcome column and
// extracts the odds ratio of the same exposure term from each fit. A fit
// that fails (separation, insufficient data, missing column) is reported in
// its row's Err; the remaining outcomes still run.
//
// Parameters:
//   - d: the survey design shared by all fits
//   - base: the adjusted model; its Outcome field is replaced per row
//   - outcomes: alternate outcome columns, fitted in order
//   - term: the exposure coefficient to transform, e.g. "arthritis"
//   - opts: fit options forwarded to every glm.Fit call
func Sensitivity(d *survey.Design, base glm.ModelSpec, outcomes []string, term string, opts ...glm.FitOption) []SensitivityRow {
	rows := make([]SensitivityRow, 0, len(outcomes))
	for _, outcome := range outcomes {
		spec := base
		spec.Outcome = outcome

		row := SensitivityRow{Outcome: outcome}
		m, err := glm.Fit(d, spec, opts...)
		if err == nil {
			row.OR, err = OddsRatio(m, term)
		}
		row.Err = err

		rows = append(rows, row)
	}

	return rows
}

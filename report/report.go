// Package report shapes estimation results into flat tables and renders
// them as CSV or aligned text. Rows are plain values; builders convert the
// result types of the survey, glm and epi packages, recording failed
// estimates as annotated rows instead of dropping them.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/arloliu/svystat/epi"
	"github.com/arloliu/svystat/glm"
	"github.com/arloliu/svystat/survey"
)

// Row is one reported estimate. Float fields that do not apply hold NaN and
// render empty; DF and N render empty when zero. Note carries caveats such
// as undefined variance, missing-value exclusions or the error that
// replaced an estimate.
type Row struct {
	Term     string
	Group    string
	Estimate float64
	StdErr   float64
	CILow    float64
	CIHigh   float64
	PValue   float64
	DF       int
	N        int
	Note     string
}

// Table is a titled list of rows, rendered in order.
type Table struct {
	Title string
	Rows  []Row
}

// Append adds rows and returns the table for chaining.
func (t *Table) Append(rows ...Row) *Table {
	t.Rows = append(t.Rows, rows...)

	return t
}

// LabeledMean pairs a design-based mean with the label it reports under.
type LabeledMean struct {
	Label string
	Mean  survey.Result
}

// LabeledEstimate pairs a derived estimate with the label it reports under.
type LabeledEstimate struct {
	Label    string
	Estimate epi.Estimate
}

// MeanRow converts one design-based mean into a row. Means carry no
// hypothesis test, so PValue is NaN; undefined variance and missing-value
// exclusions surface in Note.
func MeanRow(term string, r survey.Result) Row {
	return Row{
		Term:     term,
		Estimate: r.Estimate,
		StdErr:   r.StdErr,
		CILow:    r.CILow,
		CIHigh:   r.CIHigh,
		PValue:   math.NaN(),
		DF:       r.DF,
		N:        r.N,
		Note:     meanNote(r),
	}
}

// EstimateRow converts a derived estimate (odds ratio, annual percent
// change) into a row. Derived estimates report transformed intervals with
// no standard error of their own.
func EstimateRow(term string, e epi.Estimate) Row {
	return Row{
		Term:     term,
		Estimate: e.Value,
		StdErr:   math.NaN(),
		CILow:    e.CILow,
		CIHigh:   e.CIHigh,
		PValue:   e.PValue,
	}
}

// PointRow reports a bare point value, such as a population attributable
// fraction, with no interval at all.
func PointRow(term string, value float64, note string) Row {
	row := emptyRow(term)
	row.Estimate = value
	row.Note = note

	return row
}

// FromMeans assembles labeled means into one table, in argument order.
func FromMeans(title string, means []LabeledMean) *Table {
	t := &Table{Title: title}
	for _, m := range means {
		t.Rows = append(t.Rows, MeanRow(m.Label, m.Mean))
	}

	return t
}

// FromDomains tabulates per-domain means of one analysis column. Domains
// whose estimate failed become rows with empty values and the error in
// Note, keeping the group visible in the output.
func FromDomains(title, term string, domains []survey.DomainMean) *Table {
	t := &Table{Title: title}
	for _, dm := range domains {
		var row Row
		if dm.Err != nil {
			row = emptyRow(term)
			row.Note = dm.Err.Error()
		} else {
			row = MeanRow(term, dm.Result)
		}
		row.Group = dm.Group
		t.Rows = append(t.Rows, row)
	}

	return t
}

// FromFit tabulates a fitted model's coefficient summary, one row per term
// on the log-odds scale, each carrying the fit's degrees of freedom and
// sample size.
func FromFit(title string, m *glm.Model) *Table {
	t := &Table{Title: title}
	for _, c := range m.Summary() {
		t.Rows = append(t.Rows, Row{
			Term:     c.Term,
			Estimate: c.Estimate,
			StdErr:   c.StdErr,
			CILow:    c.CILow,
			CIHigh:   c.CIHigh,
			PValue:   c.PValue,
			DF:       m.DF,
			N:        m.N,
		})
	}

	return t
}

// FromEstimates assembles labeled derived estimates into one table.
func FromEstimates(title string, ests []LabeledEstimate) *Table {
	t := &Table{Title: title}
	for _, e := range ests {
		t.Rows = append(t.Rows, EstimateRow(e.Label, e.Estimate))
	}

	return t
}

// FromSensitivity tabulates alternate-outcome odds ratios, one row per
// outcome. Failed fits keep their row with the error in Note.
func FromSensitivity(title string, rows []epi.SensitivityRow) *Table {
	t := &Table{Title: title}
	for _, r := range rows {
		if r.Err != nil {
			row := emptyRow(r.Outcome)
			row.Note = r.Err.Error()
			t.Rows = append(t.Rows, row)
			continue
		}
		t.Rows = append(t.Rows, EstimateRow(r.Outcome, r.OR))
	}

	return t
}

func emptyRow(term string) Row {
	nan := math.NaN()

	return Row{
		Term:     term,
		Estimate: nan,
		StdErr:   nan,
		CILow:    nan,
		CIHigh:   nan,
		PValue:   nan,
	}
}

func meanNote(r survey.Result) string {
	var notes []string
	if !r.VarianceDefined {
		notes = append(notes, "variance undefined")
	}
	if r.Excluded > 0 {
		notes = append(notes, fmt.Sprintf("%d rows missing", r.Excluded))
	}

	return strings.Join(notes, "; ")
}

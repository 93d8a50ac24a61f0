package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"
)

var csvHeader = []string{
	"term", "group", "estimate", "std_error", "ci_low", "ci_high",
	"p_value", "df", "n", "note",
}

// WriteCSV renders the table as CSV with a fixed header. NaN values and
// zero DF/N render as empty cells, so downstream tools read blanks rather
// than sentinel numbers. The title is not part of the CSV; name the file
// after it.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("report: write csv header: %w", err)
	}
	for _, r := range t.Rows {
		rec := []string{
			r.Term,
			r.Group,
			formatFloat(r.Estimate),
			formatFloat(r.StdErr),
			formatFloat(r.CILow),
			formatFloat(r.CIHigh),
			formatFloat(r.PValue),
			formatCount(r.DF),
			formatCount(r.N),
			r.Note,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("report: write csv row: %w", err)
		}
	}
	cw.Flush()

	return cw.Error()
}

// String renders the table as aligned text for logs and terminals.
func (t *Table) String() string {
	var sb strings.Builder
	if t.Title != "" {
		sb.WriteString(t.Title)
		sb.WriteByte('\n')
	}

	tw := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "term\tgroup\testimate\tstd_error\tci_low\tci_high\tp_value\tdf\tn\tnote")
	for _, r := range t.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Term,
			r.Group,
			formatFloat(r.Estimate),
			formatFloat(r.StdErr),
			formatFloat(r.CILow),
			formatFloat(r.CIHigh),
			formatFloat(r.PValue),
			formatCount(r.DF),
			formatCount(r.N),
			r.Note,
		)
	}
	tw.Flush()

	return sb.String()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}

	return strconv.FormatFloat(v, 'g', 6, 64)
}

func formatCount(v int) string {
	if v == 0 {
		return ""
	}

	return strconv.Itoa(v)
}

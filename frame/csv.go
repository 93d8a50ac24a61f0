package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Missing-value sentinels recognized in CSV cells, matching the convention
// of the public-survey extracts this engine consumes.
func isMissingCell(s string) bool {
	return s == "" || s == "NA"
}

// ReadCSV reads a headered CSV stream into a Frame.
//
// Column types are inferred: a column whose every non-missing cell parses as
// a float64 becomes numeric (missing cells become NaN); any other column is
// kept categorical (missing cells become ""). Empty cells and the literal
// "NA" are treated as missing. All records must have the same number of
// fields as the header.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("frame: empty csv input")
	}
	if err != nil {
		return nil, fmt.Errorf("frame: read csv header: %w", err)
	}

	cells := make([][]string, len(header))
	numeric := make([]bool, len(header))
	for i := range numeric {
		numeric[i] = true
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("frame: read csv record: %w", err)
		}
		for i, cell := range record {
			cells[i] = append(cells[i], cell)
			if numeric[i] && !isMissingCell(cell) {
				if _, perr := strconv.ParseFloat(cell, 64); perr != nil {
					numeric[i] = false
				}
			}
		}
	}

	b := NewBuilder()
	for i, name := range header {
		if numeric[i] {
			floats := make([]float64, len(cells[i]))
			for row, cell := range cells[i] {
				if isMissingCell(cell) {
					floats[row] = math.NaN()
					continue
				}
				floats[row], _ = strconv.ParseFloat(cell, 64)
			}
			b.AddFloat(name, floats)

			continue
		}

		labels := make([]string, len(cells[i]))
		for row, cell := range cells[i] {
			if isMissingCell(cell) {
				continue
			}
			labels[row] = cell
		}
		b.AddString(name, labels)
	}

	return b.Build()
}

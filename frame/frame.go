package frame

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/arloliu/svystat/errs"
)

// Frame is an immutable column-oriented table of survey observations.
//
// Each column is either numeric (float64, with NaN marking missing values)
// or categorical (string, with "" marking missing values). Frames are built
// once, via Builder or the CSV readers, and never mutated afterwards; every
// design, subset and model fit references the same backing storage.
type Frame struct {
	names []string
	cols  map[string]*column
	n     int
}

type column struct {
	name    string
	numeric bool
	floats  []float64
	labels  []string
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return f.n
}

// Names returns the column names in their original order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.names))
	copy(names, f.names)

	return names
}

// Has reports whether a column with the given name exists.
func (f *Frame) Has(name string) bool {
	_, ok := f.cols[name]
	return ok
}

// IsNumeric reports whether the named column holds float64 values.
// It returns false for absent columns.
func (f *Frame) IsNumeric(name string) bool {
	col, ok := f.cols[name]
	return ok && col.numeric
}

// Floats returns the values of a numeric column, with NaN marking missing
// entries. The returned slice is the frame's backing storage and must not
// be modified.
//
// Returns:
//   - errs.ErrColumnNotFound if no column has the given name
//   - errs.ErrColumnType if the column is categorical
func (f *Frame) Floats(name string) ([]float64, error) {
	col, ok := f.cols[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrColumnNotFound, name)
	}
	if !col.numeric {
		return nil, fmt.Errorf("%w: column %q is categorical, not numeric", errs.ErrColumnType, name)
	}

	return col.floats, nil
}

// Strings returns the values of a categorical column, with "" marking
// missing entries. The returned slice is the frame's backing storage and
// must not be modified.
//
// Returns:
//   - errs.ErrColumnNotFound if no column has the given name
//   - errs.ErrColumnType if the column is numeric
func (f *Frame) Strings(name string) ([]string, error) {
	col, ok := f.cols[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrColumnNotFound, name)
	}
	if col.numeric {
		return nil, fmt.Errorf("%w: column %q is numeric, not categorical", errs.ErrColumnType, name)
	}

	return col.labels, nil
}

// Label returns the grouping label of one cell, regardless of column type.
// Numeric values are rendered with the shortest representation that
// round-trips, so 2015.0 groups as "2015". The second return value is false
// when the cell is missing or the column does not exist.
func (f *Frame) Label(name string, row int) (string, bool) {
	col, ok := f.cols[name]
	if !ok || row < 0 || row >= f.n {
		return "", false
	}

	if col.numeric {
		v := col.floats[row]
		if math.IsNaN(v) {
			return "", false
		}

		return strconv.FormatFloat(v, 'g', -1, 64), true
	}

	s := col.labels[row]
	if s == "" {
		return "", false
	}

	return s, true
}

// Levels returns the sorted distinct non-missing labels of a column over the
// given rows. Numeric columns sort by value before formatting, so "9" comes
// before "10"; categorical columns sort lexicographically.
//
// Returns errs.ErrColumnNotFound if no column has the given name.
func (f *Frame) Levels(name string, rows []int) ([]string, error) {
	col, ok := f.cols[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrColumnNotFound, name)
	}

	if col.numeric {
		seen := make(map[float64]struct{})
		values := make([]float64, 0, 16)
		for _, row := range rows {
			v := col.floats[row]
			if math.IsNaN(v) {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			values = append(values, v)
		}
		sort.Float64s(values)

		levels := make([]string, len(values))
		for i, v := range values {
			levels[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}

		return levels, nil
	}

	seen := make(map[string]struct{})
	levels := make([]string, 0, 16)
	for _, row := range rows {
		s := col.labels[row]
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		levels = append(levels, s)
	}
	sort.Strings(levels)

	return levels, nil
}

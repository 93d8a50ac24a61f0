package glm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/arloliu/svystat/errs"
	"github.com/arloliu/svystat/frame"
)

// interceptTerm names the leading column every model matrix carries.
const interceptTerm = "intercept"

// ModelSpec declares a regression: a binary outcome column and the
// predictor columns entering the linear predictor. There is no formula
// language; categorical expansion is the only transformation applied.
type ModelSpec struct {
	// Outcome is a numeric column with values in [0, 1].
	Outcome string

	// Predictors enter in order. A numeric column contributes one term
	// under its own name; a categorical column contributes one indicator
	// term per non-reference level, named "column=level".
	Predictors []string

	// RefLevels overrides the reference level of categorical predictors.
	// Unlisted predictors use their first level in sorted order.
	RefLevels map[string]string
}

// Matrix is the expanded regression design over the complete-case rows.
type Matrix struct {
	Terms    []string
	X        *mat.Dense // len(Rows) × len(Terms), intercept first
	Y        []float64  // outcome, aligned with Rows
	Rows     []int      // frame row indices, in X row order
	Excluded int        // rows dropped for a missing outcome or predictor
}

// BuildMatrix expands a ModelSpec into the numeric design matrix over the
// given frame rows. Rows with a missing outcome or any missing predictor
// value are dropped (listwise deletion) and counted in Excluded; categorical
// levels and reference checks are evaluated over the surviving rows.
//
// Returns:
//   - errs.ErrDesign for a structurally invalid spec (no outcome, duplicate
//     predictors, outcome used as predictor, absent reference level)
//   - errs.ErrColumnNotFound / errs.ErrColumnType for bad columns
//   - errs.ErrInsufficientData when no complete-case rows remain or a
//     categorical predictor has fewer than two levels among them
func BuildMatrix(f *frame.Frame, rows []int, spec ModelSpec) (*Matrix, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: nil frame", errs.ErrDesign)
	}
	if spec.Outcome == "" {
		return nil, fmt.Errorf("%w: model spec has no outcome", errs.ErrDesign)
	}
	seen := map[string]struct{}{spec.Outcome: {}}
	for _, name := range spec.Predictors {
		if name == spec.Outcome {
			return nil, fmt.Errorf("%w: outcome %q cannot be a predictor", errs.ErrDesign, name)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: duplicate predictor %q", errs.ErrDesign, name)
		}
		seen[name] = struct{}{}
	}

	y, err := f.Floats(spec.Outcome)
	if err != nil {
		return nil, err
	}

	type predictor struct {
		name    string
		numeric bool
		floats  []float64
		levels  []string
		ref     string
	}
	preds := make([]predictor, len(spec.Predictors))
	for i, name := range spec.Predictors {
		if !f.Has(name) {
			return nil, fmt.Errorf("%w: %q", errs.ErrColumnNotFound, name)
		}
		preds[i].name = name
		preds[i].numeric = f.IsNumeric(name)
		if preds[i].numeric {
			preds[i].floats, _ = f.Floats(name)
		}
	}

	used := make([]int, 0, len(rows))
	for _, row := range rows {
		if math.IsNaN(y[row]) {
			continue
		}
		complete := true
		for i := range preds {
			if preds[i].numeric {
				if math.IsNaN(preds[i].floats[row]) {
					complete = false
					break
				}
				continue
			}
			if _, present := f.Label(preds[i].name, row); !present {
				complete = false
				break
			}
		}
		if complete {
			used = append(used, row)
		}
	}
	if len(used) == 0 {
		return nil, fmt.Errorf("%w: no complete-case rows for outcome %q", errs.ErrInsufficientData, spec.Outcome)
	}

	for _, row := range used {
		if y[row] < 0 || y[row] > 1 {
			return nil, fmt.Errorf("%w: outcome %q must lie in [0,1], got %g at row %d", errs.ErrColumnType, spec.Outcome, y[row], row)
		}
	}

	terms := []string{interceptTerm}
	for i := range preds {
		if preds[i].numeric {
			terms = append(terms, preds[i].name)
			continue
		}

		levels, err := f.Levels(preds[i].name, used)
		if err != nil {
			return nil, err
		}
		if len(levels) < 2 {
			return nil, fmt.Errorf("%w: predictor %q has %d level(s) among complete cases",
				errs.ErrInsufficientData, preds[i].name, len(levels))
		}

		ref := levels[0]
		if want, has := spec.RefLevels[preds[i].name]; has {
			found := false
			for _, level := range levels {
				if level == want {
					found = true
					break
				}
			}
			if !found {
				return nil, fmt.Errorf("%w: reference level %q not present in %q", errs.ErrDesign, want, preds[i].name)
			}
			ref = want
		}
		preds[i].levels = levels
		preds[i].ref = ref

		for _, level := range levels {
			if level != ref {
				terms = append(terms, preds[i].name+"="+level)
			}
		}
	}

	x := mat.NewDense(len(used), len(terms), nil)
	outcome := make([]float64, len(used))
	for r, row := range used {
		outcome[r] = y[row]
		x.Set(r, 0, 1)

		c := 1
		for i := range preds {
			if preds[i].numeric {
				x.Set(r, c, preds[i].floats[row])
				c++
				continue
			}
			label, _ := f.Label(preds[i].name, row)
			for _, level := range preds[i].levels {
				if level == preds[i].ref {
					continue
				}
				if label == level {
					x.Set(r, c, 1)
				}
				c++
			}
		}
	}

	return &Matrix{
		Terms:    terms,
		X:        x,
		Y:        outcome,
		Rows:     used,
		Excluded: len(rows) - len(used),
	}, nil
}

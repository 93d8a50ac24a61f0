package glm

import (
	"errors"
	"math"
	"testing"

	"github.com/arloliu/svystat/errs"
	"github.com/arloliu/svystat/frame"
)

// modelFrame has one missing outcome (row 4) and one row missing both
// predictors (row 5), so specs over disease+exposed+age keep rows 0-3.
func modelFrame(t *testing.T) *frame.Frame {
	t.Helper()

	nan := math.NaN()
	f, err := frame.NewBuilder().
		AddFloat("disease", []float64{1, 0, 1, 0, nan, 1}).
		AddFloat("exposed", []float64{1, 1, 0, 0, 1, nan}).
		AddString("age", []string{"young", "old", "old", "young", "young", ""}).
		AddString("region", []string{"n", "n", "n", "n", "s", ""}).
		AddFloat("count", []float64{0, 2, 1, 0, 1, 1}).
		AddFloat("allmiss", []float64{nan, nan, nan, nan, nan, nan}).
		Build()
	if err != nil {
		t.Fatalf("build frame: %v", err)
	}

	return f
}

func allRows(f *frame.Frame) []int {
	rows := make([]int, f.Len())
	for i := range rows {
		rows[i] = i
	}

	return rows
}

func TestBuildMatrix_NumericPredictor(t *testing.T) {
	f := modelFrame(t)

	m, err := BuildMatrix(f, allRows(f), ModelSpec{Outcome: "disease", Predictors: []string{"exposed"}})
	if err != nil {
		t.Fatalf("BuildMatrix: %v", err)
	}

	wantTerms := []string{"intercept", "exposed"}
	if len(m.Terms) != len(wantTerms) {
		t.Fatalf("Terms = %v, want %v", m.Terms, wantTerms)
	}
	for i := range wantTerms {
		if m.Terms[i] != wantTerms[i] {
			t.Fatalf("Terms = %v, want %v", m.Terms, wantTerms)
		}
	}

	// Row 4 misses the outcome, row 5 misses the predictor.
	if len(m.Rows) != 4 || m.Excluded != 2 {
		t.Fatalf("Rows, Excluded = %v, %d, want 4 rows, 2 excluded", m.Rows, m.Excluded)
	}

	wantY := []float64{1, 0, 1, 0}
	wantX := []float64{1, 1, 0, 0}
	for i := range wantY {
		if m.Y[i] != wantY[i] {
			t.Errorf("Y[%d] = %g, want %g", i, m.Y[i], wantY[i])
		}
		if m.X.At(i, 0) != 1 {
			t.Errorf("X[%d,0] = %g, want 1 (intercept)", i, m.X.At(i, 0))
		}
		if m.X.At(i, 1) != wantX[i] {
			t.Errorf("X[%d,1] = %g, want %g", i, m.X.At(i, 1), wantX[i])
		}
	}
}

func TestBuildMatrix_CategoricalExpansion(t *testing.T) {
	f := modelFrame(t)

	// Levels sort to [old young]; the default reference is "old".
	m, err := BuildMatrix(f, allRows(f), ModelSpec{Outcome: "disease", Predictors: []string{"age"}})
	if err != nil {
		t.Fatalf("BuildMatrix: %v", err)
	}
	if len(m.Terms) != 2 || m.Terms[1] != "age=young" {
		t.Fatalf("Terms = %v, want [intercept age=young]", m.Terms)
	}
	wantYoung := []float64{1, 0, 0, 1}
	for i := range wantYoung {
		if m.X.At(i, 1) != wantYoung[i] {
			t.Errorf("X[%d,1] = %g, want %g", i, m.X.At(i, 1), wantYoung[i])
		}
	}

	// Overriding the reference flips the indicator.
	m, err = BuildMatrix(f, allRows(f), ModelSpec{
		Outcome:    "disease",
		Predictors: []string{"age"},
		RefLevels:  map[string]string{"age": "young"},
	})
	if err != nil {
		t.Fatalf("BuildMatrix with ref override: %v", err)
	}
	if len(m.Terms) != 2 || m.Terms[1] != "age=old" {
		t.Fatalf("Terms = %v, want [intercept age=old]", m.Terms)
	}
	wantOld := []float64{0, 1, 1, 0}
	for i := range wantOld {
		if m.X.At(i, 1) != wantOld[i] {
			t.Errorf("X[%d,1] = %g, want %g", i, m.X.At(i, 1), wantOld[i])
		}
	}
}

func TestBuildMatrix_InterceptOnly(t *testing.T) {
	f := modelFrame(t)

	m, err := BuildMatrix(f, allRows(f), ModelSpec{Outcome: "disease"})
	if err != nil {
		t.Fatalf("BuildMatrix: %v", err)
	}

	// Only the outcome restricts the rows now: row 4 drops, row 5 stays.
	if len(m.Terms) != 1 || m.Terms[0] != "intercept" {
		t.Fatalf("Terms = %v, want [intercept]", m.Terms)
	}
	if len(m.Rows) != 5 || m.Excluded != 1 {
		t.Fatalf("Rows, Excluded = %v, %d, want 5 rows, 1 excluded", m.Rows, m.Excluded)
	}
}

func TestBuildMatrix_Errors(t *testing.T) {
	f := modelFrame(t)
	rows := allRows(f)

	tests := []struct {
		name string
		spec ModelSpec
		want error
	}{
		{
			name: "no outcome",
			spec: ModelSpec{Predictors: []string{"exposed"}},
			want: errs.ErrDesign,
		},
		{
			name: "outcome as predictor",
			spec: ModelSpec{Outcome: "disease", Predictors: []string{"disease"}},
			want: errs.ErrDesign,
		},
		{
			name: "duplicate predictor",
			spec: ModelSpec{Outcome: "disease", Predictors: []string{"exposed", "exposed"}},
			want: errs.ErrDesign,
		},
		{
			name: "reference level not present",
			spec: ModelSpec{
				Outcome:    "disease",
				Predictors: []string{"age"},
				RefLevels:  map[string]string{"age": "elder"},
			},
			want: errs.ErrDesign,
		},
		{
			name: "unknown predictor column",
			spec: ModelSpec{Outcome: "disease", Predictors: []string{"smoking"}},
			want: errs.ErrColumnNotFound,
		},
		{
			name: "unknown outcome column",
			spec: ModelSpec{Outcome: "missingcol"},
			want: errs.ErrColumnNotFound,
		},
		{
			name: "categorical outcome",
			spec: ModelSpec{Outcome: "age"},
			want: errs.ErrColumnType,
		},
		{
			name: "outcome outside unit interval",
			spec: ModelSpec{Outcome: "count", Predictors: []string{"exposed"}},
			want: errs.ErrColumnType,
		},
		{
			name: "single level among complete cases",
			spec: ModelSpec{Outcome: "disease", Predictors: []string{"region"}},
			want: errs.ErrInsufficientData,
		},
		{
			name: "no complete cases",
			spec: ModelSpec{Outcome: "allmiss"},
			want: errs.ErrInsufficientData,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildMatrix(f, rows, tt.spec)
			if !errors.Is(err, tt.want) {
				t.Fatalf("BuildMatrix error = %v, want %v", err, tt.want)
			}
		})
	}

	t.Run("nil frame", func(t *testing.T) {
		_, err := BuildMatrix(nil, nil, ModelSpec{Outcome: "disease"})
		if !errors.Is(err, errs.ErrDesign) {
			t.Fatalf("BuildMatrix error = %v, want %v", err, errs.ErrDesign)
		}
	})
}

func TestBuildMatrix_RowSubset(t *testing.T) {
	f := modelFrame(t)

	// Restricting the candidate rows restricts the complete cases with them.
	m, err := BuildMatrix(f, []int{0, 1}, ModelSpec{Outcome: "disease", Predictors: []string{"exposed"}})
	if err != nil {
		t.Fatalf("BuildMatrix: %v", err)
	}
	if len(m.Rows) != 2 || m.Rows[0] != 0 || m.Rows[1] != 1 || m.Excluded != 0 {
		t.Fatalf("Rows, Excluded = %v, %d, want [0 1], 0", m.Rows, m.Excluded)
	}
}

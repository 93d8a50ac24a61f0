package epi

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/arloliu/svystat/errs"
	"github.com/arloliu/svystat/frame"
	"github.com/arloliu/svystat/glm"
	"github.com/arloliu/svystat/survey"
)

// zQuantile975 is the 97.5% standard normal quantile.
const zQuantile975 = 1.959963984540054

// fixedModel returns a hand-assembled fit: beta = (-1, 0.5) with a diagonal
// sandwich covariance, so every transform has a closed form.
func fixedModel() *glm.Model {
	return &glm.Model{
		Terms:     []string{"intercept", "x"},
		Coefs:     []float64{-1, 0.5},
		Cov:       mat.NewSymDense(2, []float64{0.04, 0, 0, 0.01}),
		DF:        30,
		N:         100,
		Converged: true,
	}
}

func TestOddsRatio(t *testing.T) {
	m := fixedModel()

	or, err := OddsRatio(m, "x")
	if err != nil {
		t.Fatalf("OddsRatio: %v", err)
	}

	if math.Abs(or.Value-math.Exp(0.5)) > 1e-12 {
		t.Errorf("Value = %.15g, want %.15g", or.Value, math.Exp(0.5))
	}
	wantLow := math.Exp(0.5 - zQuantile975*0.1)
	wantHigh := math.Exp(0.5 + zQuantile975*0.1)
	if math.Abs(or.CILow-wantLow) > 1e-9 || math.Abs(or.CIHigh-wantHigh) > 1e-9 {
		t.Errorf("CI = [%.12g, %.12g], want [%.12g, %.12g]", or.CILow, or.CIHigh, wantLow, wantHigh)
	}

	// Log-scale intervals are asymmetric on the odds ratio scale, wider
	// above the point value than below.
	if or.CIHigh-or.Value <= or.Value-or.CILow {
		t.Errorf("CI [%g, %g] around %g is not right-skewed", or.CILow, or.CIHigh, or.Value)
	}

	c, _ := m.Coefficient("x")
	if or.PValue != c.PValue {
		t.Errorf("PValue = %g, want the coefficient test's %g", or.PValue, c.PValue)
	}

	if _, err := OddsRatio(m, "smoking"); err == nil {
		t.Error("OddsRatio accepted a term that is not in the model")
	}
}

func TestAnnualPercentChange(t *testing.T) {
	m := fixedModel()

	apc, err := AnnualPercentChange(m, "x")
	if err != nil {
		t.Fatalf("AnnualPercentChange: %v", err)
	}

	if math.Abs(apc.Value-(math.Exp(0.5)-1)) > 1e-12 {
		t.Errorf("Value = %.15g, want %.15g", apc.Value, math.Exp(0.5)-1)
	}
	wantLow := math.Exp(0.5-zQuantile975*0.1) - 1
	wantHigh := math.Exp(0.5+zQuantile975*0.1) - 1
	if math.Abs(apc.CILow-wantLow) > 1e-9 || math.Abs(apc.CIHigh-wantHigh) > 1e-9 {
		t.Errorf("CI = [%.12g, %.12g], want [%.12g, %.12g]", apc.CILow, apc.CIHigh, wantLow, wantHigh)
	}

	if _, err := AnnualPercentChange(m, "year"); err == nil {
		t.Error("AnnualPercentChange accepted a term that is not in the model")
	}
}

func TestPAF(t *testing.T) {
	tests := []struct {
		name string
		p    float64
		or   float64
		want float64
	}{
		{"common exposure doubled odds", 0.4, 2, 2.0 / 7.0},
		{"no exposure", 0, 5, 0},
		{"universal exposure", 1, 2, 0.5},
		{"null association", 0.3, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PAF(tt.p, tt.or)
			if err != nil {
				t.Fatalf("PAF(%g, %g): %v", tt.p, tt.or, err)
			}
			if math.Abs(got-tt.want) > 1e-15 {
				t.Errorf("PAF(%g, %g) = %.15g, want %.15g", tt.p, tt.or, got, tt.want)
			}
		})
	}

	// The null association maps to zero at every prevalence.
	for _, p := range []float64{0, 0.25, 0.5, 1} {
		if got, _ := PAF(p, 1); got != 0 {
			t.Errorf("PAF(%g, 1) = %g, want 0", p, got)
		}
	}

	// Fixing prevalence, the fraction grows with the odds ratio.
	a, _ := PAF(0.3, 1.2)
	b, _ := PAF(0.3, 2)
	c, _ := PAF(0.3, 8)
	if !(a < b && b < c) {
		t.Errorf("PAF not increasing in OR: %g, %g, %g", a, b, c)
	}

	bad := []struct {
		name string
		p    float64
		or   float64
	}{
		{"negative prevalence", -0.1, 2},
		{"prevalence above one", 1.1, 2},
		{"prevalence NaN", math.NaN(), 2},
		{"zero odds ratio", 0.3, 0},
		{"negative odds ratio", 0.3, -1},
		{"odds ratio NaN", 0.3, math.NaN()},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := PAF(tt.p, tt.or); err == nil {
				t.Errorf("PAF(%g, %g) accepted invalid input", tt.p, tt.or)
			}
		})
	}
}

func TestPAFFromResults(t *testing.T) {
	got, err := PAFFromResults(survey.Result{Estimate: 0.25}, Estimate{Value: 3})
	if err != nil {
		t.Fatalf("PAFFromResults: %v", err)
	}
	if math.Abs(got-1.0/3.0) > 1e-15 {
		t.Errorf("PAFFromResults = %.15g, want 1/3", got)
	}
}

func TestSensitivity(t *testing.T) {
	// y against x is the saturated 2x2 with odds ratio exactly 6; ysep
	// duplicates x, so its fit is perfectly separated.
	f, err := frame.NewBuilder().
		AddFloat("y", []float64{1, 0, 1, 0}).
		AddFloat("ysep", []float64{1, 1, 0, 0}).
		AddFloat("x", []float64{1, 1, 0, 0}).
		AddFloat("w", []float64{3, 2, 1, 4}).
		Build()
	if err != nil {
		t.Fatalf("build frame: %v", err)
	}
	d, err := survey.NewDesign(f, "w")
	if err != nil {
		t.Fatalf("NewDesign: %v", err)
	}

	base := glm.ModelSpec{Predictors: []string{"x"}}
	rows := Sensitivity(d, base, []string{"y", "ysep", "nope"}, "x")
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}

	if rows[0].Outcome != "y" || rows[0].Err != nil {
		t.Fatalf("rows[0] = %+v, want a clean fit for y", rows[0])
	}
	if math.Abs(rows[0].OR.Value-6.0) > 1e-6 {
		t.Errorf("OR = %.12g, want 6", rows[0].OR.Value)
	}

	if !errors.Is(rows[1].Err, errs.ErrSeparation) {
		t.Errorf("rows[1].Err = %v, want %v", rows[1].Err, errs.ErrSeparation)
	}
	if !errors.Is(rows[2].Err, errs.ErrColumnNotFound) {
		t.Errorf("rows[2].Err = %v, want %v", rows[2].Err, errs.ErrColumnNotFound)
	}
}

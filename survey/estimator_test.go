package survey

import (
	"errors"
	"math"
	"testing"

	"github.com/arloliu/svystat/errs"
	"github.com/arloliu/svystat/frame"
)

// Standard 97.5% t quantiles; tolerance absorbs quantile evaluation error.
const (
	tQuantile3 = 3.182446305284263
	tQuantile7 = 2.3646242515927853
)

// Under equal weights with one row per cluster and a single stratum, the
// linearized mean must reproduce the classical SRS answer: x-bar, s/sqrt(n)
// and n-1 degrees of freedom.
func TestMean_SRSEquivalence(t *testing.T) {
	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	f, err := frame.NewBuilder().
		AddFloat("w", []float64{1, 1, 1, 1, 1, 1, 1, 1}).
		AddFloat("x", xs).
		Build()
	if err != nil {
		t.Fatalf("build frame: %v", err)
	}

	d, err := NewDesign(f, "w")
	if err != nil {
		t.Fatalf("NewDesign: %v", err)
	}

	res, err := Mean(d, "x")
	if err != nil {
		t.Fatalf("Mean: %v", err)
	}

	wantSE := math.Sqrt((32.0 / 7.0) / 8.0) // s²=32/7, n=8
	if math.Abs(res.Estimate-5.0) > 1e-12 {
		t.Errorf("Estimate = %.15g, want 5", res.Estimate)
	}
	if math.Abs(res.StdErr-wantSE) > 1e-9 {
		t.Errorf("StdErr = %.15g, want %.15g", res.StdErr, wantSE)
	}
	if res.DF != 7 {
		t.Errorf("DF = %d, want 7", res.DF)
	}
	if res.N != 8 || res.Excluded != 0 {
		t.Errorf("N, Excluded = %d, %d, want 8, 0", res.N, res.Excluded)
	}
	if !res.VarianceDefined {
		t.Error("VarianceDefined = false, want true")
	}

	wantLow := 5.0 - tQuantile7*wantSE
	wantHigh := 5.0 + tQuantile7*wantSE
	if math.Abs(res.CILow-wantLow) > 1e-6 || math.Abs(res.CIHigh-wantHigh) > 1e-6 {
		t.Errorf("CI = [%.9g, %.9g], want [%.9g, %.9g]", res.CILow, res.CIHigh, wantLow, wantHigh)
	}
}

// Hand-computed reference for testFrame: weighted mean 2, linearized
// variance 0.07 (stratum A contributes 0, stratum B contributes 0.07).
func TestMean_Stratified(t *testing.T) {
	d := testDesign(t)

	res, err := Mean(d, "x")
	if err != nil {
		t.Fatalf("Mean: %v", err)
	}

	if math.Abs(res.Estimate-2.0) > 1e-12 {
		t.Errorf("Estimate = %.15g, want 2", res.Estimate)
	}
	wantSE := math.Sqrt(0.07)
	if math.Abs(res.StdErr-wantSE) > 1e-12 {
		t.Errorf("StdErr = %.15g, want %.15g", res.StdErr, wantSE)
	}
	if res.DF != 3 {
		t.Errorf("DF = %d, want 3", res.DF)
	}
	if math.Abs(res.WeightSum-10.0) > 1e-12 {
		t.Errorf("WeightSum = %g, want 10", res.WeightSum)
	}

	wantHalf := tQuantile3 * wantSE
	if math.Abs((res.CIHigh-res.CILow)/2-wantHalf) > 1e-6 {
		t.Errorf("CI half-width = %.9g, want %.9g", (res.CIHigh-res.CILow)/2, wantHalf)
	}
}

func TestTotal_Stratified(t *testing.T) {
	d := testDesign(t)

	res, err := Total(d, "x")
	if err != nil {
		t.Fatalf("Total: %v", err)
	}

	if math.Abs(res.Estimate-20.0) > 1e-12 {
		t.Errorf("Estimate = %.15g, want 20", res.Estimate)
	}
	if math.Abs(res.StdErr-math.Sqrt(5.0)) > 1e-12 {
		t.Errorf("StdErr = %.15g, want sqrt(5)", res.StdErr)
	}
	if res.DF != 3 {
		t.Errorf("DF = %d, want 3", res.DF)
	}
}

func TestMean_ExcludesMissing(t *testing.T) {
	f, err := frame.NewBuilder().
		AddFloat("w", []float64{1, 1, 1, 1}).
		AddFloat("x", []float64{1, math.NaN(), 3, math.NaN()}).
		Build()
	if err != nil {
		t.Fatalf("build frame: %v", err)
	}

	d, err := NewDesign(f, "w")
	if err != nil {
		t.Fatalf("NewDesign: %v", err)
	}

	res, err := Mean(d, "x")
	if err != nil {
		t.Fatalf("Mean: %v", err)
	}

	if res.N != 2 || res.Excluded != 2 {
		t.Errorf("N, Excluded = %d, %d, want 2, 2", res.N, res.Excluded)
	}
	if math.Abs(res.Estimate-2.0) > 1e-12 {
		t.Errorf("Estimate = %.15g, want 2", res.Estimate)
	}
	// Two used rows, each its own cluster: V = 2 * ((-0.5)² + 0.5²) = 1.
	if math.Abs(res.StdErr-1.0) > 1e-12 {
		t.Errorf("StdErr = %.15g, want 1", res.StdErr)
	}
	if res.DF != 1 {
		t.Errorf("DF = %d, want 1", res.DF)
	}
}

// Every stratum holding a single cluster leaves no degrees of freedom: the
// point estimate stands, the variance is explicitly undefined.
func TestMean_AllSingletonStrata(t *testing.T) {
	f, err := frame.NewBuilder().
		AddFloat("w", []float64{1, 2, 3}).
		AddFloat("x", []float64{4, 5, 6}).
		AddString("stratum", []string{"s1", "s2", "s3"}).
		Build()
	if err != nil {
		t.Fatalf("build frame: %v", err)
	}

	d, err := NewDesign(f, "w", WithStrata("stratum"))
	if err != nil {
		t.Fatalf("NewDesign: %v", err)
	}

	res, err := Mean(d, "x")
	if err != nil {
		t.Fatalf("Mean: %v", err)
	}

	if res.VarianceDefined {
		t.Error("VarianceDefined = true, want false")
	}
	if !math.IsNaN(res.StdErr) || !math.IsNaN(res.CILow) || !math.IsNaN(res.CIHigh) {
		t.Errorf("StdErr, CI = %g, [%g, %g], want NaN", res.StdErr, res.CILow, res.CIHigh)
	}
	if math.Abs(res.Estimate-32.0/6.0) > 1e-12 {
		t.Errorf("Estimate = %.15g, want %g", res.Estimate, 32.0/6.0)
	}
	if res.DF != 0 {
		t.Errorf("DF = %d, want 0", res.DF)
	}
}

func TestMean_Errors(t *testing.T) {
	d := testDesign(t)

	t.Run("empty design", func(t *testing.T) {
		empty := d.Subset(func(int) bool { return false })
		_, err := Mean(empty, "x")
		if !errors.Is(err, errs.ErrEmptyDesign) {
			t.Errorf("error = %v, want errs.ErrEmptyDesign", err)
		}
	})

	t.Run("column not found", func(t *testing.T) {
		_, err := Mean(d, "nope")
		if !errors.Is(err, errs.ErrColumnNotFound) {
			t.Errorf("error = %v, want errs.ErrColumnNotFound", err)
		}
	})

	t.Run("categorical column", func(t *testing.T) {
		_, err := Mean(d, "stratum")
		if !errors.Is(err, errs.ErrColumnType) {
			t.Errorf("error = %v, want errs.ErrColumnType", err)
		}
	})

	t.Run("all values missing", func(t *testing.T) {
		f, err := frame.NewBuilder().
			AddFloat("w", []float64{1, 1}).
			AddFloat("x", []float64{math.NaN(), math.NaN()}).
			Build()
		if err != nil {
			t.Fatalf("build frame: %v", err)
		}
		d, err := NewDesign(f, "w")
		if err != nil {
			t.Fatalf("NewDesign: %v", err)
		}

		_, err = Mean(d, "x")
		if !errors.Is(err, errs.ErrInsufficientData) {
			t.Errorf("error = %v, want errs.ErrInsufficientData", err)
		}
	})
}

func domainFrame(t *testing.T) *frame.Frame {
	t.Helper()

	f, err := frame.NewBuilder().
		AddFloat("w", []float64{1, 2, 1, 1, 2, 3}).
		AddFloat("x", []float64{1, 0, 1, 1, 0, 1}).
		AddString("g", []string{"a", "a", "b", "b", "b", ""}).
		Build()
	if err != nil {
		t.Fatalf("build frame: %v", err)
	}

	return f
}

func TestByDomain_PartitionsDesign(t *testing.T) {
	d, err := NewDesign(domainFrame(t), "w")
	if err != nil {
		t.Fatalf("NewDesign: %v", err)
	}

	domains, err := ByDomain(d, "x", "g")
	if err != nil {
		t.Fatalf("ByDomain: %v", err)
	}

	if len(domains) != 2 {
		t.Fatalf("len(domains) = %d, want 2", len(domains))
	}
	if domains[0].Group != "a" || domains[1].Group != "b" {
		t.Errorf("groups = %q, %q, want a, b", domains[0].Group, domains[1].Group)
	}

	// Rows with a missing group label belong to no domain, so domain counts
	// and weight sums cover exactly the labeled rows.
	var n int
	var wsum float64
	for _, dm := range domains {
		if dm.Err != nil {
			t.Fatalf("domain %q: %v", dm.Group, dm.Err)
		}
		n += dm.Result.N
		wsum += dm.Result.WeightSum
	}
	if n != 5 {
		t.Errorf("sum of domain N = %d, want 5", n)
	}
	if math.Abs(wsum-7.0) > 1e-12 {
		t.Errorf("sum of domain weights = %g, want 7", wsum)
	}

	// Each domain equals the estimate on the matching subset.
	sub, err := d.SubsetEq("g", "a")
	if err != nil {
		t.Fatalf("SubsetEq: %v", err)
	}
	want, err := Mean(sub, "x")
	if err != nil {
		t.Fatalf("Mean: %v", err)
	}
	if domains[0].Result != want {
		t.Errorf("domain a = %+v, want %+v", domains[0].Result, want)
	}
}

func TestByDomain_FailedDomainDoesNotAbortSiblings(t *testing.T) {
	f, err := frame.NewBuilder().
		AddFloat("w", []float64{1, 1, 1, 1}).
		AddFloat("x", []float64{1, 0, math.NaN(), math.NaN()}).
		AddString("g", []string{"a", "a", "c", "c"}).
		Build()
	if err != nil {
		t.Fatalf("build frame: %v", err)
	}
	d, err := NewDesign(f, "w")
	if err != nil {
		t.Fatalf("NewDesign: %v", err)
	}

	domains, err := ByDomain(d, "x", "g")
	if err != nil {
		t.Fatalf("ByDomain: %v", err)
	}
	if len(domains) != 2 {
		t.Fatalf("len(domains) = %d, want 2", len(domains))
	}

	if domains[0].Err != nil {
		t.Errorf("domain a failed: %v", domains[0].Err)
	}
	if !errors.Is(domains[1].Err, errs.ErrInsufficientData) {
		t.Errorf("domain c error = %v, want errs.ErrInsufficientData", domains[1].Err)
	}
}

func TestByDomain_Errors(t *testing.T) {
	d, err := NewDesign(domainFrame(t), "w")
	if err != nil {
		t.Fatalf("NewDesign: %v", err)
	}

	t.Run("unknown group column", func(t *testing.T) {
		_, err := ByDomain(d, "x", "nope")
		if !errors.Is(err, errs.ErrColumnNotFound) {
			t.Errorf("error = %v, want errs.ErrColumnNotFound", err)
		}
	})

	t.Run("empty design", func(t *testing.T) {
		empty := d.Subset(func(int) bool { return false })
		_, err := ByDomain(empty, "x", "g")
		if !errors.Is(err, errs.ErrEmptyDesign) {
			t.Errorf("error = %v, want errs.ErrEmptyDesign", err)
		}
	})
}

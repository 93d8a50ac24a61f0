package glm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Model is a fitted survey-weighted quasi-binomial logistic regression.
// Coefficients are on the log-odds scale, aligned with Terms.
type Model struct {
	Spec  ModelSpec
	Terms []string
	Coefs []float64

	// Cov is the design-based covariance of the coefficients: the inverse
	// information wrapped around the linearized covariance of the score
	// totals. All reported inference uses it.
	Cov *mat.SymDense

	// ModelCov is the model-based covariance, the inverse information
	// scaled by Dispersion. Reported for diagnostics only; it ignores the
	// sampling design.
	ModelCov *mat.SymDense

	Dispersion float64 // Pearson dispersion under mean-one weights; NaN when n <= p
	Iterations int
	Converged  bool
	DF         int // design degrees of freedom of the fitting subset
	N          int // complete-case rows used
	Excluded   int // rows dropped for missing values
}

// Coefficient is one row of Summary: a term's estimate with design-based
// inference on the t distribution with the model's degrees of freedom.
type Coefficient struct {
	Term     string
	Estimate float64
	StdErr   float64
	CILow    float64
	CIHigh   float64
	TStat    float64
	PValue   float64
}

// TermIndex returns the position of a term, or -1 when absent.
func (m *Model) TermIndex(term string) int {
	for i, t := range m.Terms {
		if t == term {
			return i
		}
	}

	return -1
}

// Coef returns a term's coefficient on the log-odds scale.
func (m *Model) Coef(term string) (float64, bool) {
	i := m.TermIndex(term)
	if i < 0 {
		return 0, false
	}

	return m.Coefs[i], true
}

// SE returns a term's design-based standard error.
func (m *Model) SE(term string) (float64, bool) {
	i := m.TermIndex(term)
	if i < 0 {
		return 0, false
	}

	return math.Sqrt(m.Cov.At(i, i)), true
}

// Coefficient returns a term's full inference row.
func (m *Model) Coefficient(term string) (Coefficient, bool) {
	i := m.TermIndex(term)
	if i < 0 {
		return Coefficient{}, false
	}

	return m.coefficientAt(i), true
}

// Summary returns the inference table, one row per term in model order.
func (m *Model) Summary() []Coefficient {
	rows := make([]Coefficient, len(m.Terms))
	for i := range m.Terms {
		rows[i] = m.coefficientAt(i)
	}

	return rows
}

func (m *Model) coefficientAt(i int) Coefficient {
	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(m.DF)}
	tq := tdist.Quantile(0.975)

	est := m.Coefs[i]
	se := math.Sqrt(m.Cov.At(i, i))
	tstat := est / se

	pvalue := 2 * tdist.CDF(-math.Abs(tstat))
	if pvalue > 1 {
		pvalue = 1
	}

	return Coefficient{
		Term:     m.Terms[i],
		Estimate: est,
		StdErr:   se,
		CILow:    est - tq*se,
		CIHigh:   est + tq*se,
		TStat:    tstat,
		PValue:   pvalue,
	}
}

// FitError reports a failed iterative fit with enough state to diagnose it.
// It wraps errs.ErrConvergence or errs.ErrSeparation, so errors.Is
// classifies the failure while the fields carry the trajectory.
type FitError struct {
	Err        error
	Iterations int
	MaxDelta   float64   // last maximum absolute coefficient change
	LastCoefs  []float64 // coefficients at the failing iteration
}

func (e *FitError) Error() string {
	return fmt.Sprintf("%v after %d iterations (max coefficient change %.3g)", e.Err, e.Iterations, e.MaxDelta)
}

func (e *FitError) Unwrap() error {
	return e.Err
}

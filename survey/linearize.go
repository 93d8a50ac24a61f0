package survey

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/arloliu/svystat/errs"
)

// TotalCovariance estimates the design-based covariance of a vector of
// weighted totals from per-row score contributions, by Taylor linearization
// collapsed to the first sampling stage.
//
// scores must have one row per design row, in design row order; column j
// holds the observation's contribution to the j-th total. Within each
// stratum the scores are summed per cluster, centered on the stratum mean of
// cluster totals, and the outer products accumulated with the n_h/(n_h-1)
// factor, where n_h is the number of clusters in stratum h. When the design
// carries sampling fractions, each stratum's contribution is scaled by
// (1 - f_h). Strata with a single cluster contribute nothing; they surface
// as reduced degrees of freedom.
//
// Returns:
//   - errs.ErrEmptyDesign when the design has no rows
//   - errs.ErrDesign when scores does not align with the design
func TotalCovariance(d *Design, scores *mat.Dense) (*mat.SymDense, error) {
	if d == nil || d.Empty() {
		return nil, errs.ErrEmptyDesign
	}
	if scores == nil {
		return nil, fmt.Errorf("%w: nil scores", errs.ErrDesign)
	}
	n, p := scores.Dims()
	if n != d.Len() {
		return nil, fmt.Errorf("%w: scores have %d rows for %d design rows", errs.ErrDesign, n, d.Len())
	}
	if p == 0 {
		return nil, fmt.Errorf("%w: scores have no columns", errs.ErrDesign)
	}

	acc := make([]float64, p*p)
	mean := make([]float64, p)
	dev := make([]float64, p)

	for _, st := range d.groups() {
		nh := len(st.clusters)
		if nh < 2 {
			continue
		}

		factor := float64(nh) / float64(nh-1)
		if d.fpc != nil {
			factor *= 1 - st.fraction
		}

		totals := make([][]float64, nh)
		for j := range mean {
			mean[j] = 0
		}
		for c, cl := range st.clusters {
			total := make([]float64, p)
			for _, i := range cl.rows {
				for j := 0; j < p; j++ {
					total[j] += scores.At(i, j)
				}
			}
			totals[c] = total
			for j := 0; j < p; j++ {
				mean[j] += total[j]
			}
		}
		for j := range mean {
			mean[j] /= float64(nh)
		}

		for _, total := range totals {
			for j := 0; j < p; j++ {
				dev[j] = total[j] - mean[j]
			}
			for j := 0; j < p; j++ {
				for k := j; k < p; k++ {
					acc[j*p+k] += factor * dev[j] * dev[k]
				}
			}
		}
	}

	cov := mat.NewSymDense(p, nil)
	for j := 0; j < p; j++ {
		for k := j; k < p; k++ {
			cov.SetSym(j, k, acc[j*p+k])
		}
	}

	return cov, nil
}

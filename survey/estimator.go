package survey

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/arloliu/svystat/errs"
)

// Result is a design-based point estimate with its linearized uncertainty.
//
// When VarianceDefined is false the design had no degrees of freedom left
// for variance estimation (every stratum held a single cluster); Estimate is
// still valid but StdErr, CILow and CIHigh are NaN.
type Result struct {
	Estimate        float64
	StdErr          float64
	CILow           float64
	CIHigh          float64
	DF              int     // design degrees of freedom: clusters minus strata
	N               int     // rows that entered the estimate
	WeightSum       float64 // sum of analysis weights over those rows
	Excluded        int     // rows dropped for a missing value in the column
	VarianceDefined bool
}

// DomainMean is one group's estimate from ByDomain. Exactly one of Result
// and Err is meaningful: groups whose estimate failed carry the error and a
// zero Result.
type DomainMean struct {
	Group  string
	Result Result
	Err    error
}

// Mean computes the weighted mean of a numeric column with its linearized
// standard error and a 95% confidence interval on the t distribution with
// the design degrees of freedom. For a 0/1 column this is the weighted
// prevalence. Rows with a missing value are excluded from this estimate
// only and counted in Result.Excluded.
//
// Returns:
//   - errs.ErrEmptyDesign when the design has no rows
//   - errs.ErrColumnNotFound / errs.ErrColumnType for a bad column
//   - errs.ErrInsufficientData when every row is missing the column
func Mean(d *Design, col string) (Result, error) {
	return estimate(d, col, false)
}

// Total computes the weighted total of a numeric column with its linearized
// standard error and a 95% confidence interval. Missing-value handling and
// errors match Mean.
func Total(d *Design, col string) (Result, error) {
	return estimate(d, col, true)
}

func estimate(d *Design, col string, total bool) (Result, error) {
	if d == nil || d.Empty() {
		return Result{}, errs.ErrEmptyDesign
	}

	values, err := d.frame.Floats(col)
	if err != nil {
		return Result{}, err
	}

	used := d.Subset(func(row int) bool { return !math.IsNaN(values[row]) })
	excluded := d.Len() - used.Len()
	if used.Empty() {
		return Result{}, fmt.Errorf("%w: column %q has no observed values", errs.ErrInsufficientData, col)
	}
	if excluded > 0 {
		d.logger.Debug("excluded rows with missing values",
			zap.String("column", col),
			zap.Int("excluded", excluded),
		)
	}

	var sumW, sumWX float64
	for i, row := range used.rows {
		sumW += used.weights[i]
		sumWX += used.weights[i] * values[row]
	}

	res := Result{
		N:         used.Len(),
		WeightSum: sumW,
		Excluded:  excluded,
		DF:        used.DF(),
		StdErr:    math.NaN(),
		CILow:     math.NaN(),
		CIHigh:    math.NaN(),
	}

	// Score contributions: the estimate is a total of these, so its
	// linearized variance is their TotalCovariance.
	scores := mat.NewDense(used.Len(), 1, nil)
	if total {
		res.Estimate = sumWX
		for i, row := range used.rows {
			scores.Set(i, 0, used.weights[i]*values[row])
		}
	} else {
		res.Estimate = sumWX / sumW
		for i, row := range used.rows {
			scores.Set(i, 0, used.weights[i]*(values[row]-res.Estimate)/sumW)
		}
	}

	cov, err := TotalCovariance(used, scores)
	if err != nil {
		return Result{}, err
	}

	res.VarianceDefined = res.DF >= 1
	if !res.VarianceDefined {
		d.logger.Warn("variance undefined: no non-singleton strata",
			zap.String("column", col),
			zap.Int("clusters", used.Clusters()),
			zap.Int("strata", used.Strata()),
		)

		return res, nil
	}

	res.StdErr = math.Sqrt(cov.At(0, 0))
	tq := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(res.DF)}.Quantile(0.975)
	res.CILow = res.Estimate - tq*res.StdErr
	res.CIHigh = res.Estimate + tq*res.StdErr

	return res, nil
}

// ByDomain computes the weighted mean of col within every level of groupBy,
// in level order. Rows missing the grouping label belong to no level and are
// skipped. A level whose estimate fails carries its error in DomainMean.Err
// without aborting the remaining levels.
//
// Returns:
//   - errs.ErrEmptyDesign when the design has no rows
//   - errs.ErrColumnNotFound when groupBy does not exist
func ByDomain(d *Design, col, groupBy string) ([]DomainMean, error) {
	if d == nil || d.Empty() {
		return nil, errs.ErrEmptyDesign
	}

	levels, err := d.frame.Levels(groupBy, d.rows)
	if err != nil {
		return nil, err
	}

	domains := make([]DomainMean, 0, len(levels))
	for _, level := range levels {
		sub, err := d.SubsetEq(groupBy, level)
		if err != nil {
			return nil, err
		}

		res, err := Mean(sub, col)
		if err != nil {
			d.logger.Warn("domain estimate failed",
				zap.String("column", col),
				zap.String("group", level),
				zap.Error(err),
			)
			domains = append(domains, DomainMean{Group: level, Err: err})

			continue
		}
		domains = append(domains, DomainMean{Group: level, Result: res})
	}

	return domains, nil
}

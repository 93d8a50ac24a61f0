package glm

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/arloliu/svystat/errs"
	"github.com/arloliu/svystat/survey"
)

const (
	// muEps keeps fitted probabilities off the exact 0/1 boundary so
	// working weights and responses stay finite.
	muEps = 1e-10

	// sepEps flags a fit as separated when every case is pinned above
	// 1-sepEps and every control below sepEps.
	sepEps = 1e-6

	// sepEpsAtCap is the softer pin threshold used to classify an exhausted
	// iteration cap as separation rather than non-convergence.
	sepEpsAtCap = 1e-3

	// svdRCond is the rank cutoff when the normal equations fall back to SVD.
	svdRCond = 1e-12
)

// Fit estimates a survey-weighted quasi-binomial logistic regression by
// iteratively reweighted least squares, then equips it with a design-based
// sandwich covariance: the inverse information wrapped around the Taylor
// linearized covariance of the score totals, so standard errors respect the
// weights, strata and clusters of the design.
//
// Rows missing the outcome or any predictor are dropped before fitting and
// variance estimation runs on the restricted design, preserving stratum and
// cluster identities.
//
// Parameters:
//   - d: the survey design supplying rows, weights and sampling structure
//   - spec: outcome, predictors and reference levels (see ModelSpec)
//   - opts: WithTol, WithMaxIterations, WithLogger
//
// Returns:
//   - errs.ErrEmptyDesign when the design has no rows
//   - BuildMatrix errors for a bad spec (see BuildMatrix)
//   - errs.ErrInsufficientData when fewer effective clusters remain than
//     coefficients plus one, no degrees of freedom remain, or the design
//     matrix is rank deficient
//   - *FitError wrapping errs.ErrSeparation or errs.ErrConvergence when the
//     iteration diverges or stalls
//
// Example:
//
//	m, err := glm.Fit(d, glm.ModelSpec{
//	    Outcome:    "disability",
//	    Predictors: []string{"arthritis", "age_group", "survey_year"},
//	    RefLevels:  map[string]string{"age_group": "18-44"},
//	})
//	if err != nil {
//	    return err
//	}
//	logOR, _ := m.Coef("arthritis")
func Fit(d *survey.Design, spec ModelSpec, opts ...FitOption) (*Model, error) {
	if d == nil || d.Empty() {
		return nil, errs.ErrEmptyDesign
	}
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	dm, err := BuildMatrix(d.Frame(), d.Rows(), spec)
	if err != nil {
		return nil, err
	}

	usedSet := make(map[int]struct{}, len(dm.Rows))
	for _, row := range dm.Rows {
		usedSet[row] = struct{}{}
	}
	used := d.Subset(func(row int) bool {
		_, ok := usedSet[row]
		return ok
	})

	n, p := dm.X.Dims()
	if used.Len() != n {
		return nil, fmt.Errorf("glm: design subset does not align with model matrix")
	}
	if clusters := used.Clusters(); clusters < p+1 {
		return nil, fmt.Errorf("%w: %d effective clusters for %d coefficients", errs.ErrInsufficientData, clusters, p)
	}
	if used.DF() < 1 {
		return nil, fmt.Errorf("%w: no design degrees of freedom for variance estimation", errs.ErrInsufficientData)
	}

	weights := used.Weights()
	y := dm.Y

	beta := make([]float64, p)
	beta[0] = startIntercept(y, weights)

	eta := make([]float64, n)
	mu := make([]float64, n)
	wwork := make([]float64, n)
	zwork := make([]float64, n)

	var (
		converged  bool
		iterations int
		maxDelta   = math.Inf(1)
	)
	for iter := 1; iter <= cfg.MaxIter; iter++ {
		iterations = iter

		linearPredictor(dm.X, beta, eta)
		for i := range eta {
			mu[i] = clampMu(logistic(eta[i]))
			v := mu[i] * (1 - mu[i])
			wwork[i] = weights[i] * v
			zwork[i] = eta[i] + (y[i]-mu[i])/v
		}

		if separated(y, mu, sepEps) {
			return nil, &FitError{
				Err:        errs.ErrSeparation,
				Iterations: iter,
				MaxDelta:   maxDelta,
				LastCoefs:  append([]float64(nil), beta...),
			}
		}

		next, err := solveWeighted(dm.X, wwork, zwork)
		if err != nil {
			return nil, err
		}

		maxDelta = 0
		for j := range beta {
			if delta := math.Abs(next[j] - beta[j]); delta > maxDelta {
				maxDelta = delta
			}
		}
		beta = next

		cfg.Logger.Debug("irls iteration",
			zap.Int("iteration", iter),
			zap.Float64("max_delta", maxDelta),
		)

		if maxDelta < cfg.Tol {
			converged = true
			break
		}
	}

	if !converged {
		linearPredictor(dm.X, beta, eta)
		for i := range eta {
			mu[i] = clampMu(logistic(eta[i]))
		}
		failure := errs.ErrConvergence
		if separated(y, mu, sepEpsAtCap) {
			failure = errs.ErrSeparation
		}

		return nil, &FitError{
			Err:        failure,
			Iterations: iterations,
			MaxDelta:   maxDelta,
			LastCoefs:  append([]float64(nil), beta...),
		}
	}

	// Fitted values at the converged coefficients feed the dispersion, the
	// bread and the score contributions.
	linearPredictor(dm.X, beta, eta)
	for i := range eta {
		mu[i] = clampMu(logistic(eta[i]))
		wwork[i] = weights[i] * mu[i] * (1 - mu[i])
	}

	bread, err := breadInverse(dm.X, wwork)
	if err != nil {
		return nil, err
	}

	scores := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		r := weights[i] * (y[i] - mu[i])
		for j := 0; j < p; j++ {
			scores.Set(i, j, r*dm.X.At(i, j))
		}
	}
	meat, err := survey.TotalCovariance(used, scores)
	if err != nil {
		return nil, err
	}

	modelCov, dispersion := modelBased(bread, y, mu, weights, n, p)

	cfg.Logger.Debug("fit converged",
		zap.Int("iterations", iterations),
		zap.Int("rows", n),
		zap.Int("coefficients", p),
		zap.Float64("dispersion", dispersion),
	)

	return &Model{
		Spec:       spec,
		Terms:      dm.Terms,
		Coefs:      beta,
		Cov:        sandwich(bread, meat),
		ModelCov:   modelCov,
		Dispersion: dispersion,
		Iterations: iterations,
		Converged:  true,
		DF:         used.DF(),
		N:          n,
		Excluded:   dm.Excluded,
	}, nil
}

// startIntercept seeds the iteration at the weighted log-odds of the outcome.
func startIntercept(y, w []float64) float64 {
	var sw, swy float64
	for i := range y {
		sw += w[i]
		swy += w[i] * y[i]
	}
	pbar := clampMu(swy / sw)

	return math.Log(pbar / (1 - pbar))
}

func logistic(eta float64) float64 {
	return 1 / (1 + math.Exp(-eta))
}

func clampMu(mu float64) float64 {
	if mu < muEps {
		return muEps
	}
	if mu > 1-muEps {
		return 1 - muEps
	}

	return mu
}

func linearPredictor(x *mat.Dense, beta, eta []float64) {
	n, p := x.Dims()
	for i := 0; i < n; i++ {
		var s float64
		for j := 0; j < p; j++ {
			s += x.At(i, j) * beta[j]
		}
		eta[i] = s
	}
}

// separated reports whether the fit pins every binary case above 1-eps and
// every binary control below eps. Fractional outcomes cannot be perfectly
// predicted, so any rules separation out.
func separated(y, mu []float64, eps float64) bool {
	for i := range y {
		switch {
		case y[i] <= 0:
			if mu[i] >= eps {
				return false
			}
		case y[i] >= 1:
			if mu[i] <= 1-eps {
				return false
			}
		default:
			return false
		}
	}

	return true
}

// solveWeighted solves one reweighted least squares step (XᵗSX)β = XᵗSz.
// The normal equations go through Cholesky first; when the factorization
// fails, the step retries on a thin SVD of the weighted design, erroring if
// the matrix is rank deficient.
func solveWeighted(x *mat.Dense, s, z []float64) ([]float64, error) {
	n, p := x.Dims()

	xtwz := make([]float64, p)
	for i := 0; i < n; i++ {
		sz := s[i] * z[i]
		for j := 0; j < p; j++ {
			xtwz[j] += x.At(i, j) * sz
		}
	}

	var chol mat.Cholesky
	if chol.Factorize(normalMatrix(x, s)) {
		var sol mat.VecDense
		if err := chol.SolveVecTo(&sol, mat.NewVecDense(p, xtwz)); err == nil {
			return vecSlice(&sol, p), nil
		}
	}

	a := mat.NewDense(n, p, nil)
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		r := math.Sqrt(s[i])
		for j := 0; j < p; j++ {
			a.Set(i, j, r*x.At(i, j))
		}
		b.SetVec(i, r*z[i])
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return nil, fmt.Errorf("%w: svd of weighted design failed", errs.ErrInsufficientData)
	}
	rank := svd.Rank(svdRCond)
	if rank < p {
		return nil, fmt.Errorf("%w: design matrix is rank deficient (rank %d of %d)", errs.ErrInsufficientData, rank, p)
	}

	var sol mat.VecDense
	svd.SolveVecTo(&sol, b, rank)

	return vecSlice(&sol, p), nil
}

// normalMatrix forms XᵗSX with S the diagonal of working weights.
func normalMatrix(x *mat.Dense, s []float64) *mat.SymDense {
	n, p := x.Dims()
	out := mat.NewSymDense(p, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			sx := s[i] * x.At(i, j)
			for k := j; k < p; k++ {
				out.SetSym(j, k, out.At(j, k)+sx*x.At(i, k))
			}
		}
	}

	return out
}

// breadInverse inverts the information matrix XᵗSX at the converged fit.
func breadInverse(x *mat.Dense, s []float64) (*mat.SymDense, error) {
	var chol mat.Cholesky
	if !chol.Factorize(normalMatrix(x, s)) {
		return nil, fmt.Errorf("%w: information matrix is not positive definite", errs.ErrInsufficientData)
	}

	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, fmt.Errorf("%w: information matrix inversion failed", errs.ErrInsufficientData)
	}

	return &inv, nil
}

// sandwich composes bread · meat · bread, symmetrizing the floating-point
// residue of the two products.
func sandwich(bread, meat *mat.SymDense) *mat.SymDense {
	p, _ := bread.Dims()

	var tmp, full mat.Dense
	tmp.Mul(bread, meat)
	full.Mul(&tmp, bread)

	out := mat.NewSymDense(p, nil)
	for j := 0; j < p; j++ {
		for k := j; k < p; k++ {
			out.SetSym(j, k, 0.5*(full.At(j, k)+full.At(k, j)))
		}
	}

	return out
}

// modelBased scales the inverse information by the Pearson dispersion.
// Weights are normalized to mean one inside the dispersion so it does not
// scale with the population total the weights sum to.
func modelBased(bread *mat.SymDense, y, mu, w []float64, n, p int) (*mat.SymDense, float64) {
	dispersion := math.NaN()
	if n > p {
		var sw float64
		for i := range w {
			sw += w[i]
		}
		scale := float64(n) / sw

		var chi2 float64
		for i := range y {
			r := y[i] - mu[i]
			chi2 += scale * w[i] * r * r / (mu[i] * (1 - mu[i]))
		}
		dispersion = chi2 / float64(n-p)
	}

	dim, _ := bread.Dims()
	out := mat.NewSymDense(dim, nil)
	for j := 0; j < dim; j++ {
		for k := j; k < dim; k++ {
			out.SetSym(j, k, dispersion*bread.At(j, k))
		}
	}

	return out, dispersion
}

func vecSlice(v *mat.VecDense, p int) []float64 {
	out := make([]float64, p)
	for j := 0; j < p; j++ {
		out[j] = v.AtVec(j)
	}

	return out
}

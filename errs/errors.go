// Package errs defines the sentinel errors shared across the svystat engine.
//
// All errors returned by the engine either are one of these sentinels or wrap
// one with fmt.Errorf("%w: ...", ...), so callers can classify failures with
// errors.Is regardless of the detail text.
package errs

import "errors"

// Design construction and validation errors. These are fatal for the call
// that produced them and are never retried by the engine.
var (
	// ErrDesign indicates a malformed survey design: a non-positive weight,
	// a referenced column that does not exist, or a cluster id that spans
	// more than one stratum.
	ErrDesign = errors.New("invalid survey design")

	// ErrEmptyDesign indicates an estimator was invoked on a design with no
	// rows. Subsetting to zero rows is legal; estimating on the result is not.
	ErrEmptyDesign = errors.New("empty design")
)

// Estimation and model-fitting errors. These reflect genuine properties of
// the data and design; they are reported per call and never substituted with
// a default value.
var (
	// ErrInsufficientData indicates too few rows or clusters for the
	// requested estimate or model. Domain loops report it per domain without
	// aborting sibling domains.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrConvergence indicates the IRLS loop exhausted its iteration cap
	// before the coefficient change fell below tolerance.
	ErrConvergence = errors.New("model did not converge")

	// ErrSeparation indicates a covariate perfectly predicts the outcome, so
	// the maximum-likelihood coefficient diverges.
	ErrSeparation = errors.New("perfect separation detected")
)

// Table and grouping errors.
var (
	// ErrColumnNotFound indicates a referenced column is absent from the table.
	ErrColumnNotFound = errors.New("column not found")

	// ErrColumnType indicates a column holds the wrong type for the requested
	// operation, such as asking for numeric values of a string column.
	ErrColumnType = errors.New("column has wrong type")

	// ErrLabelCollision indicates two distinct group labels hashed to the same
	// 64-bit key, so stratum or cluster membership would be ambiguous.
	ErrLabelCollision = errors.New("group label hash collision")
)

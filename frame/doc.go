// Package frame provides the immutable column-oriented table that feeds the
// svystat estimation engine.
//
// A Frame holds one column per survey variable. Columns are typed at load
// time: numeric columns store float64 with NaN marking missing values,
// categorical columns store strings with "" marking missing values. Once
// built, a Frame is never mutated; survey designs and their subsets share
// the same backing storage and carry only row indices.
//
// # Loading Data
//
// Frames come from three sources. Builder covers programmatic construction
// in tests and simulations:
//
//	f, err := frame.NewBuilder().
//	    AddFloat("weight", weights).
//	    AddString("age_group", ages).
//	    Build()
//
// ReadCSV ingests any io.Reader of headered CSV, inferring column types: a
// column becomes numeric when every non-missing cell parses as float64.
// Open does the same for files and detects compression from the extension,
// so multi-year extracts can stay compressed on disk: .gz, .zst and .lz4
// are supported.
//
// # Missing Values
//
// Empty CSV cells and the literal "NA" load as missing. Estimators exclude
// missing values per statistic and report the exclusion count rather than
// propagating NaN silently.
package frame

package survey

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/arloliu/svystat/errs"
	"github.com/arloliu/svystat/frame"
	"github.com/arloliu/svystat/internal/collision"
	"github.com/arloliu/svystat/internal/hash"
	"github.com/arloliu/svystat/internal/options"
)

// Design binds a frame to its sampling structure: per-row analysis weights
// and, optionally, stratum ids, first-stage cluster ids and finite population
// sampling fractions.
//
// A Design is immutable after construction. Subsetting produces a new Design
// that shares the frame and preserves the stratum and cluster identities of
// the surviving rows, which is what domain estimation requires.
type Design struct {
	frame    *frame.Frame
	rows     []int     // frame row indices covered by this design
	weights  []float64 // analysis weight per row
	strata   []uint64  // stratum key per row
	clusters []uint64  // cluster key per row
	fpc      []float64 // sampling fraction per row; nil when not configured

	weightCol  string
	strataCol  string
	clusterCol string
	fpcCol     string

	logger *zap.Logger
}

// DesignOption is a functional option for NewDesign.
type DesignOption = options.Option[*Design]

// WithStrata sets the column holding stratum identifiers. Without it the
// whole sample forms a single stratum.
func WithStrata(col string) DesignOption {
	return options.New(func(d *Design) error {
		if col == "" {
			return fmt.Errorf("%w: empty stratum column name", errs.ErrDesign)
		}
		d.strataCol = col

		return nil
	})
}

// WithClusters sets the column holding first-stage cluster identifiers.
// Without it every row is its own cluster, the with-replacement
// approximation used for public-use files that ship no PSU codes.
func WithClusters(col string) DesignOption {
	return options.New(func(d *Design) error {
		if col == "" {
			return fmt.Errorf("%w: empty cluster column name", errs.ErrDesign)
		}
		d.clusterCol = col

		return nil
	})
}

// WithFPC sets the column holding per-row sampling fractions in [0, 1).
// Each stratum's variance contribution is scaled by one minus its fraction.
func WithFPC(col string) DesignOption {
	return options.New(func(d *Design) error {
		if col == "" {
			return fmt.Errorf("%w: empty fpc column name", errs.ErrDesign)
		}
		d.fpcCol = col

		return nil
	})
}

// WithLogger sets the logger used for estimation diagnostics such as
// missing-value exclusions. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) DesignOption {
	return options.NoError(func(d *Design) {
		if logger != nil {
			d.logger = logger
		}
	})
}

// NewDesign validates the frame against the declared sampling structure and
// returns the immutable design all estimation runs through.
//
// Parameters:
//   - f: the source frame; every design column must exist in it
//   - weightCol: numeric column of analysis weights, all present and > 0
//   - opts: optional stratum, cluster, fpc and logger configuration
//
// Returns an error wrapping errs.ErrDesign when the weight column is missing
// or non-numeric, any weight is missing or non-positive, a design column has
// missing ids, a cluster id spans more than one stratum, or two distinct
// group labels collide on the same 64-bit key.
//
// Example:
//
//	d, err := survey.NewDesign(f, "wtfinal",
//	    survey.WithStrata("ststr"),
//	    survey.WithClusters("psu"),
//	)
func NewDesign(f *frame.Frame, weightCol string, opts ...DesignOption) (*Design, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: nil frame", errs.ErrDesign)
	}

	d := &Design{
		frame:     f,
		weightCol: weightCol,
		logger:    zap.NewNop(),
	}
	if err := options.Apply(d, opts...); err != nil {
		return nil, err
	}
	if err := d.populate(); err != nil {
		return nil, err
	}

	return d, nil
}

func (d *Design) populate() error {
	weights, err := d.frame.Floats(d.weightCol)
	if err != nil {
		return fmt.Errorf("%w: weight column: %w", errs.ErrDesign, err)
	}

	n := d.frame.Len()
	d.rows = make([]int, n)
	d.weights = make([]float64, n)
	for row := 0; row < n; row++ {
		w := weights[row]
		if math.IsNaN(w) {
			return fmt.Errorf("%w: missing weight at row %d", errs.ErrDesign, row)
		}
		if w <= 0 {
			return fmt.Errorf("%w: non-positive weight %g at row %d", errs.ErrDesign, w, row)
		}
		d.rows[row] = row
		d.weights[row] = w
	}

	if d.strataCol == "" {
		d.strata = make([]uint64, n)
	} else if d.strata, err = d.hashColumn(d.strataCol, "stratum"); err != nil {
		return err
	}

	if d.clusterCol == "" {
		d.clusters = make([]uint64, n)
		for i, row := range d.rows {
			d.clusters[i] = uint64(row)
		}
	} else if d.clusters, err = d.hashColumn(d.clusterCol, "cluster"); err != nil {
		return err
	}

	if err := d.validateNesting(); err != nil {
		return err
	}

	return d.populateFPC()
}

// hashColumn maps the labels of one design column to 64-bit group keys,
// rejecting missing ids and key collisions.
func (d *Design) hashColumn(col, role string) ([]uint64, error) {
	if !d.frame.Has(col) {
		return nil, fmt.Errorf("%w: %s column: %w: %q", errs.ErrDesign, role, errs.ErrColumnNotFound, col)
	}

	tracker := collision.NewTracker()
	keys := make([]uint64, len(d.rows))
	for i, row := range d.rows {
		label, ok := d.frame.Label(col, row)
		if !ok {
			return nil, fmt.Errorf("%w: missing %s id at row %d", errs.ErrDesign, role, row)
		}
		key := hash.Key(label)
		if err := tracker.Track(label, key); err != nil {
			return nil, fmt.Errorf("%w: %s column %q: %w", errs.ErrDesign, role, col, err)
		}
		keys[i] = key
	}

	return keys, nil
}

// validateNesting rejects cluster ids that appear in more than one stratum.
func (d *Design) validateNesting() error {
	if d.clusterCol == "" {
		return nil
	}

	owner := make(map[uint64]int) // cluster key → position of first row seen
	for i := range d.rows {
		first, seen := owner[d.clusters[i]]
		if !seen {
			owner[d.clusters[i]] = i
			continue
		}
		if d.strata[first] != d.strata[i] {
			label, _ := d.frame.Label(d.clusterCol, d.rows[i])
			return fmt.Errorf("%w: cluster %q appears in more than one stratum", errs.ErrDesign, label)
		}
	}

	return nil
}

func (d *Design) populateFPC() error {
	if d.fpcCol == "" {
		return nil
	}

	fractions, err := d.frame.Floats(d.fpcCol)
	if err != nil {
		return fmt.Errorf("%w: fpc column: %w", errs.ErrDesign, err)
	}

	d.fpc = make([]float64, len(d.rows))
	perStratum := make(map[uint64]float64)
	for i, row := range d.rows {
		fr := fractions[row]
		if math.IsNaN(fr) || fr < 0 || fr >= 1 {
			return fmt.Errorf("%w: sampling fraction must be in [0,1), got %g at row %d", errs.ErrDesign, fr, row)
		}
		if prev, seen := perStratum[d.strata[i]]; seen && prev != fr {
			return fmt.Errorf("%w: conflicting sampling fractions %g and %g within one stratum", errs.ErrDesign, prev, fr)
		}
		perStratum[d.strata[i]] = fr
		d.fpc[i] = fr
	}

	return nil
}

// Subset returns the design restricted to the frame rows for which keep
// returns true. The predicate receives frame row indices, so callers can
// close over frame columns. Stratum and cluster identities are preserved;
// subsetting to zero rows is legal and yields an empty design.
func (d *Design) Subset(keep func(row int) bool) *Design {
	sub := &Design{
		frame:      d.frame,
		weightCol:  d.weightCol,
		strataCol:  d.strataCol,
		clusterCol: d.clusterCol,
		fpcCol:     d.fpcCol,
		logger:     d.logger,
	}
	for i, row := range d.rows {
		if !keep(row) {
			continue
		}
		sub.rows = append(sub.rows, row)
		sub.weights = append(sub.weights, d.weights[i])
		sub.strata = append(sub.strata, d.strata[i])
		sub.clusters = append(sub.clusters, d.clusters[i])
		if d.fpc != nil {
			sub.fpc = append(sub.fpc, d.fpc[i])
		}
	}

	return sub
}

// SubsetEq returns the design restricted to rows whose label in col equals
// label. Missing cells never match.
//
// Returns errs.ErrColumnNotFound if no column has the given name.
func (d *Design) SubsetEq(col, label string) (*Design, error) {
	if !d.frame.Has(col) {
		return nil, fmt.Errorf("%w: %q", errs.ErrColumnNotFound, col)
	}

	return d.Subset(func(row int) bool {
		got, ok := d.frame.Label(col, row)
		return ok && got == label
	}), nil
}

// Len returns the number of rows in the design.
func (d *Design) Len() int {
	return len(d.rows)
}

// Empty reports whether the design has no rows.
func (d *Design) Empty() bool {
	return len(d.rows) == 0
}

// Rows returns a copy of the frame row indices covered by this design.
func (d *Design) Rows() []int {
	rows := make([]int, len(d.rows))
	copy(rows, d.rows)

	return rows
}

// Weights returns a copy of the analysis weights, aligned with Rows.
func (d *Design) Weights() []float64 {
	weights := make([]float64, len(d.weights))
	copy(weights, d.weights)

	return weights
}

// Frame returns the frame this design draws rows from.
func (d *Design) Frame() *frame.Frame {
	return d.frame
}

// Strata returns the number of distinct strata present in the design.
func (d *Design) Strata() int {
	seen := make(map[uint64]struct{}, 16)
	for _, k := range d.strata {
		seen[k] = struct{}{}
	}

	return len(seen)
}

// Clusters returns the number of distinct first-stage clusters present in
// the design.
func (d *Design) Clusters() int {
	seen := make(map[uint64]struct{}, 64)
	for _, k := range d.clusters {
		seen[k] = struct{}{}
	}

	return len(seen)
}

// DF returns the design degrees of freedom: distinct clusters minus
// distinct strata.
func (d *Design) DF() int {
	return d.Clusters() - d.Strata()
}

type clusterGroup struct {
	key  uint64
	rows []int // positions into the design's row-aligned slices
}

type stratumGroup struct {
	key      uint64
	fraction float64
	clusters []clusterGroup
}

// groups organizes design rows by stratum and cluster. Both levels are
// ordered by key so that accumulation order, and therefore floating-point
// results, are identical from run to run.
func (d *Design) groups() []stratumGroup {
	byStratum := make(map[uint64]map[uint64][]int)
	for i := range d.rows {
		clusters, ok := byStratum[d.strata[i]]
		if !ok {
			clusters = make(map[uint64][]int)
			byStratum[d.strata[i]] = clusters
		}
		clusters[d.clusters[i]] = append(clusters[d.clusters[i]], i)
	}

	strata := make([]stratumGroup, 0, len(byStratum))
	for sk, clusters := range byStratum {
		sg := stratumGroup{key: sk, clusters: make([]clusterGroup, 0, len(clusters))}
		for ck, positions := range clusters {
			sg.clusters = append(sg.clusters, clusterGroup{key: ck, rows: positions})
		}
		sort.Slice(sg.clusters, func(a, b int) bool { return sg.clusters[a].key < sg.clusters[b].key })
		if d.fpc != nil {
			sg.fraction = d.fpc[sg.clusters[0].rows[0]]
		}
		strata = append(strata, sg)
	}
	sort.Slice(strata, func(a, b int) bool { return strata[a].key < strata[b].key })

	return strata
}

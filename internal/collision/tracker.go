package collision

import (
	"fmt"

	"github.com/arloliu/svystat/errs"
)

// Tracker detects hash collisions among the group labels of one keyed
// column (stratum, cluster or domain identifiers). Group labels are
// reduced to uint64 keys before grouping; two distinct labels mapping
// to the same key would silently merge their groups, so tracking is
// mandatory whenever keys are derived from user data.
type Tracker struct {
	labels map[uint64]string // key → first label observed for it
}

// NewTracker creates a collision tracker for a single keyed column.
func NewTracker() *Tracker {
	return &Tracker{
		labels: make(map[uint64]string),
	}
}

// Track records a label/key pair and checks it against prior assignments.
// Re-tracking the same label is a no-op; a different label arriving with
// an already-used key returns ErrLabelCollision naming both labels.
func (t *Tracker) Track(label string, key uint64) error {
	existing, exists := t.labels[key]
	if !exists {
		t.labels[key] = label
		return nil
	}

	if existing != label {
		return fmt.Errorf("%w: labels %q and %q map to key %#016x", errs.ErrLabelCollision, existing, label, key)
	}

	return nil
}

// Count returns the number of distinct keys tracked so far.
func (t *Tracker) Count() int {
	return len(t.labels)
}

// Reset clears all tracked labels so the tracker can be reused for
// another column. Map capacity is preserved to avoid reallocations.
func (t *Tracker) Reset() {
	for k := range t.labels {
		delete(t.labels, k)
	}
}

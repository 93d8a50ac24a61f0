// Package hash maps group labels (stratum ids, cluster ids, domain values) to
// fixed 64-bit keys so the estimation loops can group rows without string
// comparisons. Distinct labels colliding on the same key is handled by the
// collision package, never silently.
package hash

import "github.com/cespare/xxhash/v2"

// Key computes the xxHash64 group key of a normalized label.
func Key(label string) uint64 {
	return xxhash.Sum64String(label)
}

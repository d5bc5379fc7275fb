// Package signal turns "min_max" -> value config hashes into range lookup
// tables used as score multipliers.
package signal

import (
	"sort"
	"strconv"
	"strings"

	"adserver/domain"
)

const rangeSeparator = "_"

// Build parses a mapping of "min_max" keys into buckets ordered by max
// descending, then min descending. Keys without a separator are skipped and
// unparsable numbers read as zero. The result does not depend on map
// iteration order.
func Build(mapping map[string]string) []domain.RangeBucket {
	keys := make([]string, 0, len(mapping))
	for k := range mapping {
		if strings.Contains(k, rangeSeparator) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	table := make([]domain.RangeBucket, 0, len(keys))
	for _, k := range keys {
		// fields past the second are ignored
		bounds := strings.Split(k, rangeSeparator)
		table = append(table, domain.RangeBucket{
			Min:   parseFloat(bounds[0]),
			Max:   parseFloat(bounds[1]),
			Value: parseFloat(mapping[k]),
		})
	}

	// Canonical order first so the stable pass below sees the same input
	// for every permutation of the mapping.
	sort.SliceStable(table, func(i, j int) bool {
		a, b := table[i], table[j]
		if a.Max != b.Max {
			return a.Max > b.Max
		}
		return a.Min > b.Min
	})
	sort.SliceStable(table, func(i, j int) bool {
		return compareBuckets(table[i], table[j]) < 0
	})
	return table
}

// compareBuckets orders by max descending. When a does not lead on max it
// reports greater if its min is larger and equal otherwise, which is not a
// strict total order; a stable sort keeps equal runs as they came in.
func compareBuckets(a, b domain.RangeBucket) int {
	switch {
	case a.Max > b.Max:
		return -1
	case a.Min > b.Min:
		return 1
	default:
		return 0
	}
}

// FindTargetVal returns the value of the first bucket, in table order, with
// min >= x and x < max. It returns 0 when no bucket matches.
func FindTargetVal(table []domain.RangeBucket, x float64) float64 {
	for _, b := range table {
		if b.Min >= x && x < b.Max {
			return b.Value
		}
	}
	return 0
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

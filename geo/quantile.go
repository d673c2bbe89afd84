package geo

import (
	"math"
	"sort"
)

// median returns the median of the values: the middle element for odd
// counts, the mean of the two middle elements for even counts. The input
// slice is not modified. Returns 0 for an empty slice.
func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// percentile returns the p-th percentile (0 < p <= 100) of an ascending
// sorted slice, using linear interpolation between the two nearest ranks.
// With a single element, the percentile is that element for any p. The
// interpolation method is fixed: results must be reproducible across calls
// and releases, and nearest-rank vs. linear differ subtly on small samples.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if hi >= n {
		hi = n - 1
	}
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

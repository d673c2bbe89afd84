package geo

import "fmt"

// ExtractStatistics reduces a distance matrix to summary scalars over its
// strict upper triangle — the n(n-1)/2 distinct pairwise distances. The
// diagonal and the mirrored lower triangle are excluded so zeros and
// duplicates cannot dilute the statistics. The raw distance list is retained
// for distribution analysis, and the matrix's metric is carried forward
// unchanged.
//
// A nil matrix or one with fewer than 2 rows is rejected with ErrEmptyInput.
func ExtractStatistics(m *DistanceMatrix) (*Stats, error) {
	if m == nil || m.Size() < 2 {
		return nil, fmt.Errorf("%w: statistics need a matrix with at least 2 rows", ErrEmptyInput)
	}

	n := m.Size()
	distances := make([]float64, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			distances = append(distances, m.Values[i][j])
		}
	}

	stats := &Stats{
		MinDistance: distances[0],
		MaxDistance: distances[0],
		Distances:   distances,
		Metric:      m.Metric,
	}
	for _, d := range distances {
		if d < stats.MinDistance {
			stats.MinDistance = d
		}
		if d > stats.MaxDistance {
			stats.MaxDistance = d
		}
		stats.TotalDistance += d
	}
	stats.AvgDistance = stats.TotalDistance / float64(len(distances))

	return stats, nil
}

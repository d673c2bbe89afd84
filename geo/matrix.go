package geo

import "fmt"

// BuildMatrix computes the full pairwise distance matrix for the point set
// under the given metric. A matrix is meaningless for fewer than 2 points;
// such inputs are rejected with ErrEmptyInput.
//
// The matrix is indexed by point label rather than raw ID so downstream
// presentation stays human-readable; duplicate labels are allowed and appear
// as separate rows distinguished only by position. Each off-diagonal pair is
// computed once and mirrored, so Values[i][j] == Values[j][i] holds
// bit-for-bit and the diagonal is exactly zero.
func BuildMatrix(points PointSet, metric Metric) (*DistanceMatrix, error) {
	n := len(points)
	if n < 2 {
		return nil, fmt.Errorf("%w: distance matrix needs at least 2 points, got %d", ErrEmptyInput, n)
	}

	labels := make([]string, n)
	for i, p := range points {
		labels[i] = p.Label()
	}

	values := make([][]float64, n)
	for i := range values {
		values[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := Distance(points[i], points[j], metric)
			values[i][j] = d
			values[j][i] = d
		}
	}

	return &DistanceMatrix{
		Labels: labels,
		Values: values,
		Metric: metric,
	}, nil
}

package geo

import "fmt"

// OptimalLocation finds a single representative center for the point set and
// the per-point distance statistics relative to it.
//
// The center depends on the metric: for Manhattan distance the coordinate-wise
// median is used, because the median minimizes the sum of absolute deviations
// on each axis independently — the exact optimum for a rectilinear objective.
// For Haversine distance the coordinate-wise arithmetic mean is used as the
// standard stand-in for a true spherical centroid over small regional extents.
//
// When several points are equidistant at the minimum or maximum, the first in
// iteration order wins, so results are deterministic for a stable PointSet.
func OptimalLocation(points PointSet, metric Metric) (*CenterResult, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: optimal location needs at least one point", ErrEmptyInput)
	}

	var centerLat, centerLng float64
	if metric == MetricManhattan {
		centerLat, centerLng = medianCenter(points)
	} else {
		centerLat, centerLng = meanCenter(points)
	}

	result := summarizeCenter(points, centerLat, centerLng, metric)
	return &result, nil
}

// medianCenter returns the coordinate-wise median of the set.
func medianCenter(points PointSet) (lat, lng float64) {
	lats := make([]float64, len(points))
	lngs := make([]float64, len(points))
	for i, p := range points {
		lats[i] = p.Latitude
		lngs[i] = p.Longitude
	}
	return median(lats), median(lngs)
}

// meanCenter returns the coordinate-wise arithmetic mean of the set.
func meanCenter(points PointSet) (lat, lng float64) {
	if len(points) == 0 {
		return 0, 0
	}
	var sumLat, sumLng float64
	for _, p := range points {
		sumLat += p.Latitude
		sumLng += p.Longitude
	}
	n := float64(len(points))
	return sumLat / n, sumLng / n
}

// summarizeCenter computes every point's distance from the given center and
// folds the results into a CenterResult. Ties at the minimum or maximum keep
// the first point encountered.
func summarizeCenter(points PointSet, centerLat, centerLng float64, metric Metric) CenterResult {
	center := Point{Latitude: centerLat, Longitude: centerLng}

	result := CenterResult{
		CenterLat: centerLat,
		CenterLng: centerLng,
		Metric:    metric,
		Distances: make([]PointDistance, 0, len(points)),
	}

	closestIdx, farthestIdx := -1, -1
	var minDist, maxDist float64

	for i, p := range points {
		dist := Distance(center, p, metric)
		result.Distances = append(result.Distances, PointDistance{
			ID:       p.ID,
			Label:    p.Label(),
			Distance: dist,
		})
		result.TotalDistance += dist

		if closestIdx == -1 || dist < minDist {
			minDist = dist
			closestIdx = i
		}
		if farthestIdx == -1 || dist > maxDist {
			maxDist = dist
			farthestIdx = i
		}
	}

	if n := len(points); n > 0 {
		result.AvgDistance = result.TotalDistance / float64(n)
	}
	if closestIdx >= 0 {
		result.MinDistance = minDist
		result.Closest = pointRef(points[closestIdx])
	}
	if farthestIdx >= 0 {
		result.MaxDistance = maxDist
		result.Farthest = pointRef(points[farthestIdx])
	}

	return result
}

func pointRef(p Point) *PointRef {
	return &PointRef{
		ID:        p.ID,
		Label:     p.Label(),
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
	}
}

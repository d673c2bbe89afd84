package geo

import "sort"

// MaxDisplayRadiusKm caps the coverage-circle radius so a single pathological
// outlier cannot render an absurdly large indicator.
const MaxDisplayRadiusKm = 150.0

// DisplayRadius derives a bounded radius in kilometers for a coverage circle
// around the given center. It is a presentation heuristic, not a statistical
// claim: with 20 or more points it takes the distance at the 95th-percentile
// rank, smaller sets fall back to the more conservative 80th-percentile rank,
// a single point yields its own distance, and the result is always capped at
// MaxDisplayRadiusKm.
func DisplayRadius(points PointSet, centerLat, centerLng float64, metric Metric) float64 {
	if len(points) == 0 {
		return 0
	}

	center := Point{Latitude: centerLat, Longitude: centerLng}
	distances := make([]float64, len(points))
	for i, p := range points {
		distances[i] = Distance(center, p, metric)
	}
	sort.Float64s(distances)

	n := len(distances)
	var radius float64
	switch {
	case n >= 20:
		radius = distances[int(float64(n)*0.95)]
	case n > 1:
		radius = distances[int(float64(n)*0.8)]
	default:
		radius = distances[n-1]
	}

	if radius > MaxDisplayRadiusKm {
		return MaxDisplayRadiusKm
	}
	return radius
}

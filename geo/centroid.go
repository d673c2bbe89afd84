package geo

import (
	"fmt"
	"sort"
)

// DefaultOutlierPercentile is the percentile used for outlier detection when
// the caller does not override it.
const DefaultOutlierPercentile = 95.0

// RobustCentroid computes a centroid that is insensitive to a small number of
// geographically distant points, using two-pass robust estimation:
//
//  1. An initial centroid is taken as the coordinate-wise median regardless
//     of metric — unlike OptimalLocation's mean-for-haversine rule, because
//     robustness to not-yet-identified outliers matters more here than
//     metric-specific optimality.
//  2. Each point's distance from the initial centroid is computed under the
//     caller's metric, and the outlierPercentile-th percentile of those
//     distances (linear interpolation) becomes the outlier threshold.
//  3. Points with distance above the threshold are outliers; the rest are
//     inliers.
//  4. If excludeOutliers is set and at least one inlier exists, the final
//     centroid is the coordinate-wise median of the inliers only. Otherwise
//     the initial centroid stands, and when excludeOutliers is false every
//     point is reported as an inlier — outliers only matter when we intend
//     to exclude them.
//  5. The reported statistics (including MedianDistance) cover the full set,
//     inliers and outliers alike, measured from the final centroid.
//
// outlierPercentile must lie in (0, 100]; anything else is rejected with
// ErrInvalidParameter. An empty set is rejected with ErrEmptyInput. A single
// point is always its own inlier: its distance from the median centroid is 0,
// which equals the threshold.
func RobustCentroid(points PointSet, metric Metric, outlierPercentile float64, excludeOutliers bool) (*RobustCentroidResult, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: robust centroid needs at least one point", ErrEmptyInput)
	}
	if outlierPercentile <= 0 || outlierPercentile > 100 {
		return nil, fmt.Errorf("%w: outlier percentile %.2f outside (0, 100]", ErrInvalidParameter, outlierPercentile)
	}

	// Pass 1: median centroid and distances from it.
	initialLat, initialLng := medianCenter(points)
	initial := Point{Latitude: initialLat, Longitude: initialLng}

	dists := make([]float64, len(points))
	for i, p := range points {
		dists[i] = Distance(initial, p, metric)
	}

	sorted := make([]float64, len(dists))
	copy(sorted, dists)
	sort.Float64s(sorted)
	threshold := percentile(sorted, outlierPercentile)

	var inliers PointSet
	var inlierIDs, outlierIDs []int
	for i, p := range points {
		if dists[i] <= threshold {
			inliers = append(inliers, p)
			inlierIDs = append(inlierIDs, p.ID)
		} else {
			outlierIDs = append(outlierIDs, p.ID)
		}
	}

	// Pass 2: final centroid, from inliers only when excluding.
	finalLat, finalLng := initialLat, initialLng
	if excludeOutliers && len(inliers) > 0 {
		finalLat, finalLng = medianCenter(inliers)
	}
	if !excludeOutliers {
		// Keep the initial centroid and report no outliers at all.
		inlierIDs = inlierIDs[:0]
		for _, p := range points {
			inlierIDs = append(inlierIDs, p.ID)
		}
		outlierIDs = nil
	}

	// Statistics always reflect the final centroid over the full set.
	summary := summarizeCenter(points, finalLat, finalLng, metric)

	finalDists := make([]float64, len(summary.Distances))
	for i, d := range summary.Distances {
		finalDists[i] = d.Distance
	}

	sort.Ints(inlierIDs)
	sort.Ints(outlierIDs)

	return &RobustCentroidResult{
		CenterResult:     summary,
		OutlierThreshold: threshold,
		MedianDistance:   median(finalDists),
		InlierIDs:        inlierIDs,
		OutlierIDs:       outlierIDs,
	}, nil
}

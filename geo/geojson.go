package geo

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// circleSegments is the number of vertices used to approximate a coverage
// circle polygon.
const circleSegments = 64

// coverageRing builds a closed ring approximating a circle of radiusKm
// around a center. Kilometers are converted to degrees separately per axis,
// with the longitude span widened by the latitude correction.
func coverageRing(centerLat, centerLng, radiusKm float64) orb.Ring {
	latSpan := radiusKm / kmPerDegreeLat
	lngSpan := radiusKm / (kmPerDegreeLat * math.Cos(toRadians(centerLat)))

	ring := make(orb.Ring, 0, circleSegments+1)
	for i := 0; i <= circleSegments; i++ {
		angle := 2 * math.Pi * float64(i) / circleSegments
		ring = append(ring, orb.Point{
			centerLng + lngSpan*math.Cos(angle),
			centerLat + latSpan*math.Sin(angle),
		})
	}
	return ring
}

// CoverageCirclePolygon returns a GeoJSON polygon feature approximating the
// circle of radiusKm around the center, tagged with the radius in its
// properties.
func CoverageCirclePolygon(centerLat, centerLng, radiusKm float64) *geojson.Feature {
	feature := geojson.NewFeature(orb.Polygon{coverageRing(centerLat, centerLng, radiusKm)})
	feature.Properties = geojson.Properties{
		"kind":      "coverage",
		"radius_km": radiusKm,
	}
	return feature
}

// pointFeature converts a site point to a GeoJSON point feature.
// GeoJSON coordinates are longitude-first.
func pointFeature(p Point) *geojson.Feature {
	feature := geojson.NewFeature(orb.Point{p.Longitude, p.Latitude})
	feature.ID = p.ID
	feature.Properties = geojson.Properties{
		"kind":  "site",
		"label": p.Label(),
	}
	if p.Group != "" {
		feature.Properties["group"] = p.Group
	}
	return feature
}

// centerFeature converts a computed center to a GeoJSON point feature with
// the summary statistics attached as properties.
func centerFeature(result *CenterResult, group string) *geojson.Feature {
	feature := geojson.NewFeature(orb.Point{result.CenterLng, result.CenterLat})
	feature.Properties = geojson.Properties{
		"kind":              "center",
		"metric":            string(result.Metric),
		"min_distance_km":   result.MinDistance,
		"max_distance_km":   result.MaxDistance,
		"avg_distance_km":   result.AvgDistance,
		"total_distance_km": result.TotalDistance,
	}
	if group != "" {
		feature.Properties["group"] = group
	}
	if result.Closest != nil {
		feature.Properties["closest"] = result.Closest.Label
	}
	if result.Farthest != nil {
		feature.Properties["farthest"] = result.Farthest.Label
	}
	return feature
}

// ExportGeoJSON builds a FeatureCollection holding the sites of each group,
// the computed center per group, and a coverage circle sized by the display
// radius heuristic. Results are keyed by group name; the empty group key
// covers ungrouped points.
func ExportGeoJSON(points PointSet, centers map[string]*CenterResult, metric Metric) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, p := range points {
		fc.Append(pointFeature(p))
	}

	for _, group := range sortedCenterKeys(centers) {
		result := centers[group]
		if result == nil {
			continue
		}
		fc.Append(centerFeature(result, group))

		groupPoints := points
		if group != "" {
			groupPoints = points.ByGroup(group)
		}
		radius := DisplayRadius(groupPoints, result.CenterLat, result.CenterLng, metric)
		if radius > 0 {
			circle := CoverageCirclePolygon(result.CenterLat, result.CenterLng, radius)
			if group != "" {
				circle.Properties["group"] = group
			}
			fc.Append(circle)
		}
	}

	return fc
}

func sortedCenterKeys(centers map[string]*CenterResult) []string {
	keys := make([]string, 0, len(centers))
	for k := range centers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

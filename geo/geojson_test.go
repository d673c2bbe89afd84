package geo

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoverageCirclePolygon(t *testing.T) {
	feature := CoverageCirclePolygon(24.5, 46.5, 10.0)

	polygon, ok := feature.Geometry.(orb.Polygon)
	require.True(t, ok, "geometry should be a polygon")
	require.Len(t, polygon, 1)

	ring := polygon[0]
	// Closed ring with one vertex per segment plus the repeated first vertex.
	assert.Len(t, ring, circleSegments+1)
	assert.Equal(t, ring[0], ring[len(ring)-1], "ring must be closed")

	assert.Equal(t, "coverage", feature.Properties["kind"])
	assert.Equal(t, 10.0, feature.Properties["radius_km"])

	// Every vertex sits roughly 10 km from the center under the planar
	// conversion that built it.
	latSpan := 10.0 / kmPerDegreeLat
	for _, pt := range ring {
		dLat := pt[1] - 24.5
		if math.Abs(dLat) > latSpan+1e-9 {
			t.Errorf("vertex latitude offset %v exceeds span %v", dLat, latSpan)
		}
	}
}

func TestExportGeoJSON_LongitudeFirst(t *testing.T) {
	points := PointSet{{ID: 0, Name: "site", Latitude: 24.5, Longitude: 46.5}}

	fc := ExportGeoJSON(points, nil, MetricManhattan)
	require.Len(t, fc.Features, 1)

	pt, ok := fc.Features[0].Geometry.(orb.Point)
	require.True(t, ok)
	assert.Equal(t, 46.5, pt[0], "GeoJSON x coordinate is longitude")
	assert.Equal(t, 24.5, pt[1], "GeoJSON y coordinate is latitude")
}

func TestExportGeoJSON_FeatureKinds(t *testing.T) {
	points := PointSet{
		{ID: 0, Name: "a", Group: "north", Latitude: 24.50, Longitude: 46.50},
		{ID: 1, Name: "b", Group: "north", Latitude: 24.52, Longitude: 46.52},
		{ID: 2, Name: "c", Group: "south", Latitude: 24.10, Longitude: 46.10},
	}

	centers := make(map[string]*CenterResult)
	for _, group := range points.Groups() {
		result, err := OptimalLocation(points.ByGroup(group), MetricManhattan)
		require.NoError(t, err)
		centers[group] = result
	}

	fc := ExportGeoJSON(points, centers, MetricManhattan)

	counts := make(map[string]int)
	for _, f := range fc.Features {
		kind, _ := f.Properties["kind"].(string)
		counts[kind]++
	}

	assert.Equal(t, 3, counts["site"])
	assert.Equal(t, 2, counts["center"])
	// south has one site at its own center, so its display radius is 0 and
	// no coverage circle is emitted.
	assert.Equal(t, 1, counts["coverage"])
}

func TestExportGeoJSON_CenterProperties(t *testing.T) {
	points := PointSet{
		{ID: 0, Name: "near", Group: "g", Latitude: 24.50, Longitude: 46.50},
		{ID: 1, Name: "far", Group: "g", Latitude: 24.60, Longitude: 46.60},
		{ID: 2, Name: "mid", Group: "g", Latitude: 24.55, Longitude: 46.55},
	}

	result, err := OptimalLocation(points, MetricHaversine)
	require.NoError(t, err)

	fc := ExportGeoJSON(points, map[string]*CenterResult{"g": result}, MetricHaversine)

	var props map[string]interface{}
	for _, f := range fc.Features {
		if f.Properties["kind"] == "center" {
			props = f.Properties
			break
		}
	}
	require.NotNil(t, props, "center feature missing")

	assert.Equal(t, "haversine", props["metric"])
	assert.Equal(t, "g", props["group"])
	assert.Contains(t, props, "min_distance_km")
	assert.Contains(t, props, "max_distance_km")
	assert.Contains(t, props, "avg_distance_km")
	assert.Contains(t, props, "total_distance_km")
	assert.NotEmpty(t, props["closest"])
	assert.NotEmpty(t, props["farthest"])
}

func TestExportGeoJSON_MarshalsToValidJSON(t *testing.T) {
	points := PointSet{
		{ID: 0, Name: "a", Latitude: 24.50, Longitude: 46.50},
		{ID: 1, Name: "b", Latitude: 24.60, Longitude: 46.60},
	}
	result, err := OptimalLocation(points, MetricManhattan)
	require.NoError(t, err)

	fc := ExportGeoJSON(points, map[string]*CenterResult{"": result}, MetricManhattan)

	data, err := fc.MarshalJSON()
	require.NoError(t, err)

	var decoded struct {
		Type     string `json:"type"`
		Features []struct {
			Type     string `json:"type"`
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "FeatureCollection", decoded.Type)
	assert.NotEmpty(t, decoded.Features)
}

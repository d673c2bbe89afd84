package geo

import "math"

const (
	// earthRadiusKm is the approximate radius of the earth used by the
	// haversine formula.
	earthRadiusKm = 6371.0

	// kmPerDegreeLat is the approximate length of one degree of latitude.
	// One degree of longitude shrinks from this value by cos(latitude).
	kmPerDegreeLat = 111.0
)

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Distance computes the distance in kilometers between two points under the
// given metric. It is symmetric in its arguments and exactly zero for
// identical points under both metrics. Coordinate range validation is the
// caller's responsibility.
func Distance(p1, p2 Point, metric Metric) float64 {
	if metric == MetricManhattan {
		return ManhattanDistance(p1.Latitude, p1.Longitude, p2.Latitude, p2.Longitude)
	}
	return HaversineDistance(p1.Latitude, p1.Longitude, p2.Latitude, p2.Longitude)
}

// HaversineDistance computes the great-circle distance in kilometers between
// two points given in decimal degrees, on a sphere of radius 6371 km.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := toRadians(lat1)
	lon1Rad := toRadians(lon1)
	lat2Rad := toRadians(lat2)
	lon2Rad := toRadians(lon2)

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// ManhattanDistance computes the city-block distance in kilometers between
// two points: the sum of the north-south and east-west components, with the
// east-west component corrected by cos(average latitude) for the shrinking
// of longitude degrees away from the equator.
//
// This is a first-order planar approximation for regional datasets, not a
// road-network distance.
func ManhattanDistance(lat1, lon1, lat2, lon2 float64) float64 {
	latDistance := math.Abs(lat1-lat2) * kmPerDegreeLat

	avgLat := toRadians((lat1 + lat2) / 2)
	lonDistance := math.Abs(lon1-lon2) * kmPerDegreeLat * math.Cos(avgLat)

	return latDistance + lonDistance
}

package geo

import (
	"errors"
	"fmt"
	"sort"
)

// Engine operations reject caller-contract violations with these sentinel
// errors. Callers check them with errors.Is; the engine never returns a
// partially computed result alongside an error.
var (
	// ErrEmptyInput indicates the point set has fewer elements than the
	// operation requires (at least one for center calculations, at least two
	// for matrix construction).
	ErrEmptyInput = errors.New("point set is empty")

	// ErrInvalidParameter indicates a parameter outside its documented range,
	// e.g. an outlier percentile outside (0, 100].
	ErrInvalidParameter = errors.New("invalid parameter")
)

// Metric selects the distance formula used for a calculation. Every derived
// result carries the metric it was computed with so consumers can label
// output correctly; it is never defaulted inside the engine.
type Metric string

const (
	// MetricManhattan is the city-block approximation on a geographic plane.
	MetricManhattan Metric = "manhattan"
	// MetricHaversine is the great-circle distance on a spherical earth.
	MetricHaversine Metric = "haversine"
)

// ParseMetric converts a user-supplied metric name to a Metric.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricManhattan, MetricHaversine:
		return Metric(s), nil
	}
	return "", fmt.Errorf("%w: unknown metric %q (want manhattan or haversine)", ErrInvalidParameter, s)
}

// DisplayName returns the human-readable metric name used in reports.
func (m Metric) DisplayName() string {
	switch m {
	case MetricManhattan:
		return "Manhattan"
	case MetricHaversine:
		return "Haversine"
	}
	return string(m)
}

// Point is one geotagged site. Coordinates are decimal degrees, already
// validated and cleaned upstream (zero-zero pairs are treated as missing and
// never reach the engine). Group is an optional grouping key, e.g. the
// education office or zone a site belongs to.
type Point struct {
	ID        int     `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Group     string  `json:"group,omitempty"`
}

// Label returns the display name for the point, synthesizing one from the ID
// when no name is set.
func (p Point) Label() string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("Point #%d", p.ID)
}

// PointSet is an ordered collection of points. The engine never mutates a
// PointSet in place; every operation returns fresh derived values, so a set
// may be shared freely between concurrent callers.
type PointSet []Point

// Groups returns the sorted unique group keys present in the set. Points
// without a group are reported under the empty string.
func (ps PointSet) Groups() []string {
	seen := make(map[string]bool)
	var groups []string
	for _, p := range ps {
		if !seen[p.Group] {
			seen[p.Group] = true
			groups = append(groups, p.Group)
		}
	}
	sort.Strings(groups)
	return groups
}

// ByGroup returns the points belonging to the given group, preserving order.
func (ps PointSet) ByGroup(group string) PointSet {
	var out PointSet
	for _, p := range ps {
		if p.Group == group {
			out = append(out, p)
		}
	}
	return out
}

// PointRef identifies a point inside a result structure, carrying enough of
// the point to present it without a lookup into the owning set.
type PointRef struct {
	ID        int     `json:"id"`
	Label     string  `json:"label"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PointDistance is one point's distance from a computed center.
type PointDistance struct {
	ID       int     `json:"id"`
	Label    string  `json:"label"`
	Distance float64 `json:"distance"`
}

// CenterResult is the outcome of an optimal-location calculation: a single
// representative center plus per-point distance statistics relative to it.
// Results are produced fresh on every call and never cached, because the
// underlying point set may change between calls.
type CenterResult struct {
	CenterLat     float64         `json:"centerLat"`
	CenterLng     float64         `json:"centerLng"`
	Metric        Metric          `json:"metric"`
	Distances     []PointDistance `json:"distances"`
	MinDistance   float64         `json:"minDistance"`
	MaxDistance   float64         `json:"maxDistance"`
	AvgDistance   float64         `json:"avgDistance"`
	TotalDistance float64         `json:"totalDistance"`
	Closest       *PointRef       `json:"closest"`
	Farthest      *PointRef       `json:"farthest"`
}

// RobustCentroidResult extends CenterResult with the outlier partition
// computed by the two-pass robust estimation. InlierIDs and OutlierIDs are
// sorted, disjoint, and together cover every point ID in the input set. The
// embedded statistics always reflect the final centroid, including outliers.
type RobustCentroidResult struct {
	CenterResult
	OutlierThreshold float64 `json:"outlierThreshold"`
	MedianDistance   float64 `json:"medianDistance"`
	InlierIDs        []int   `json:"inlierIds"`
	OutlierIDs       []int   `json:"outlierIds"`
}

// IsOutlier reports whether the given point ID was classified as an outlier.
func (r *RobustCentroidResult) IsOutlier(id int) bool {
	for _, oid := range r.OutlierIDs {
		if oid == id {
			return true
		}
	}
	return false
}

// DistanceMatrix is a square, symmetric table of pairwise distances indexed
// by point label (labels may collide; rows are distinguished by position).
// The diagonal is exactly zero and Values[i][j] == Values[j][i] bit-for-bit.
type DistanceMatrix struct {
	Labels []string    `json:"labels"`
	Values [][]float64 `json:"values"`
	Metric Metric      `json:"metric"`
}

// Size returns the number of rows (and columns) in the matrix.
func (m *DistanceMatrix) Size() int {
	return len(m.Labels)
}

// Stats summarizes the distinct pairwise distances of a distance matrix
// (its strict upper triangle). Distances retains the raw list for
// downstream distribution analysis such as histograms.
type Stats struct {
	MinDistance   float64   `json:"minDistance"`
	MaxDistance   float64   `json:"maxDistance"`
	AvgDistance   float64   `json:"avgDistance"`
	TotalDistance float64   `json:"totalDistance"`
	Distances     []float64 `json:"distances"`
	Metric        Metric    `json:"metric"`
}

// SiteUpdate is the JSON payload delivered on a region's MQTT topic when a
// site is added or moved.
type SiteUpdate struct {
	ID        int     `json:"id"`
	Name      string  `json:"name,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Removed   bool    `json:"removed,omitempty"`
}

// RegionConfig defines a region feed from the config file.
type RegionConfig struct {
	ID    string `yaml:"id" json:"id"`
	Topic string `yaml:"topic" json:"topic"`
	Color string `yaml:"color,omitempty" json:"color,omitempty"`
}

// MQTTConfig holds MQTT connection settings.
type MQTTConfig struct {
	Broker        string `yaml:"broker" json:"broker"`
	PublishPrefix string `yaml:"publishPrefix" json:"publishPrefix"`
	ClientID      string `yaml:"clientId" json:"clientId"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
}

// Config represents the full configuration file.
type Config struct {
	MQTT              MQTTConfig     `yaml:"mqtt" json:"mqtt"`
	Metric            string         `yaml:"metric,omitempty" json:"metric,omitempty"`                       // Default distance metric (manhattan or haversine)
	OutlierPercentile float64        `yaml:"outlierPercentile,omitempty" json:"outlierPercentile,omitempty"` // Default robust-centroid percentile (0,100]
	Regions           []RegionConfig `yaml:"regions" json:"regions"`
}

// GetRegionByID returns the region config for the given ID.
func (c *Config) GetRegionByID(id string) *RegionConfig {
	for i := range c.Regions {
		if c.Regions[i].ID == id {
			return &c.Regions[i]
		}
	}
	return nil
}

// DefaultMetric returns the configured metric, falling back to Manhattan to
// match the upstream analyzer's default.
func (c *Config) DefaultMetric() Metric {
	if c.Metric == "" {
		return MetricManhattan
	}
	return Metric(c.Metric)
}

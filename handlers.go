package main

import (
	"encoding/json"
	"fmt"
	"image/color"
	"image/png"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/kwv/geoffice/geo"
)

// newHTTPServer creates an HTTP server with all endpoints
func newHTTPServer(store *geo.SiteStore, config *geo.Config, metric geo.Metric, outlierPercentile float64) http.Handler {
	mux := http.NewServeMux()

	// requestMetric allows ?metric= to override the service default per request
	requestMetric := func(r *http.Request) (geo.Metric, error) {
		if v := r.URL.Query().Get("metric"); v != "" {
			return geo.ParseMetric(v)
		}
		return metric, nil
	}

	// regionPoints resolves ?region= to a point set; no region means all sites
	regionPoints := func(r *http.Request) (geo.PointSet, string, bool) {
		regionID := r.URL.Query().Get("region")
		if regionID == "" {
			return store.AllPoints(), "", true
		}
		snap, ok := store.Region(regionID)
		if !ok {
			return nil, regionID, false
		}
		return snap.Points, regionID, true
	}

	writeJSON := func(w http.ResponseWriter, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.Printf("Error encoding JSON response: %v", err)
		}
	}

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := struct {
			Status    string    `json:"status"`
			Timestamp time.Time `json:"timestamp"`
			HasSites  bool      `json:"hasSites"`
			Metric    string    `json:"metric"`
		}{
			Status:    "ok",
			Timestamp: time.Now(),
			HasSites:  store.HasSites(),
			Metric:    string(metric),
		}
		writeJSON(w, status)
	})

	// Tracked regions and their sites
	mux.HandleFunc("/regions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, store.Regions())
	})

	// Optimal centers for all regions
	mux.HandleFunc("/centers", func(w http.ResponseWriter, r *http.Request) {
		m, err := requestMetric(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		snapshots := store.Regions()
		if len(snapshots) == 0 {
			http.Error(w, "No sites available", http.StatusServiceUnavailable)
			return
		}

		centers := make(map[string]*geo.CenterResult, len(snapshots))
		for _, snap := range snapshots {
			result, err := geo.OptimalLocation(snap.Points, m)
			if err != nil {
				continue
			}
			centers[snap.RegionID] = result
		}
		writeJSON(w, centers)
	})

	// Optimal center for one region (or all sites)
	mux.HandleFunc("/center", func(w http.ResponseWriter, r *http.Request) {
		m, err := requestMetric(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		points, regionID, ok := regionPoints(r)
		if !ok {
			http.Error(w, fmt.Sprintf("Region %q has no sites", regionID), http.StatusNotFound)
			return
		}

		result, err := geo.OptimalLocation(points, m)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		radius := geo.DisplayRadius(points, result.CenterLat, result.CenterLng, m)
		writeJSON(w, struct {
			*geo.CenterResult
			RegionID string  `json:"regionId,omitempty"`
			RadiusKm float64 `json:"radiusKm"`
		}{result, regionID, radius})
	})

	// Outlier-aware centroid
	mux.HandleFunc("/robust-centroid", func(w http.ResponseWriter, r *http.Request) {
		m, err := requestMetric(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		pct := outlierPercentile
		if v := r.URL.Query().Get("percentile"); v != "" {
			pct, err = strconv.ParseFloat(v, 64)
			if err != nil {
				http.Error(w, "invalid percentile", http.StatusBadRequest)
				return
			}
		}
		excludeOutliers := r.URL.Query().Get("keep-outliers") != "true"

		points, regionID, ok := regionPoints(r)
		if !ok {
			http.Error(w, fmt.Sprintf("Region %q has no sites", regionID), http.StatusNotFound)
			return
		}

		result, err := geo.RobustCentroid(points, m, pct, excludeOutliers)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, result)
	})

	// Pairwise distance matrix
	mux.HandleFunc("/matrix", func(w http.ResponseWriter, r *http.Request) {
		m, err := requestMetric(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		points, regionID, ok := regionPoints(r)
		if !ok {
			http.Error(w, fmt.Sprintf("Region %q has no sites", regionID), http.StatusNotFound)
			return
		}

		matrix, err := geo.BuildMatrix(points, m)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, matrix)
	})

	// Distance statistics over the matrix
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		m, err := requestMetric(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		points, regionID, ok := regionPoints(r)
		if !ok {
			http.Error(w, fmt.Sprintf("Region %q has no sites", regionID), http.StatusNotFound)
			return
		}

		matrix, err := geo.BuildMatrix(points, m)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		stats, err := geo.ExtractStatistics(matrix)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, stats)
	})

	// All sites, centers, and coverage circles as GeoJSON
	mux.HandleFunc("/points.geojson", func(w http.ResponseWriter, r *http.Request) {
		m, err := requestMetric(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		points := store.AllPoints()
		if len(points) == 0 {
			http.Error(w, "No sites available", http.StatusServiceUnavailable)
			return
		}

		fc := geo.ExportGeoJSON(points, regionCenters(store, m), m)
		data, err := fc.MarshalJSON()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		w.Header().Set("Cache-Control", "no-cache")
		if _, err := w.Write(data); err != nil {
			log.Printf("Error writing GeoJSON response: %v", err)
		}
	})

	// Rendered site map
	mux.HandleFunc("/map.png", func(w http.ResponseWriter, r *http.Request) {
		m, err := requestMetric(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		points := store.AllPoints()
		if len(points) == 0 {
			http.Error(w, "No sites available", http.StatusServiceUnavailable)
			return
		}

		renderer := geo.NewMapRenderer(points, regionCenters(store, m), m)
		applyConfigColors(renderer.Colors, config)

		img := renderer.Render()
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if err := png.Encode(w, img); err != nil {
			log.Printf("Error encoding map PNG: %v", err)
		}
	})

	// Rendered site map, vector
	mux.HandleFunc("/map.svg", func(w http.ResponseWriter, r *http.Request) {
		m, err := requestMetric(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		points := store.AllPoints()
		if len(points) == 0 {
			http.Error(w, "No sites available", http.StatusServiceUnavailable)
			return
		}

		vectorRenderer := geo.NewVectorMapRenderer(points, regionCenters(store, m), m)
		applyConfigColors(vectorRenderer.Colors, config)

		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-cache")
		if err := vectorRenderer.RenderToSVG(w); err != nil {
			log.Printf("Error encoding map SVG: %v", err)
		}
	})

	// Default route serves HTML page embedding the SVG map
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = fmt.Fprint(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>geoffice</title>
<style>
*{margin:0;padding:0;box-sizing:border-box}
html,body{width:100%;height:100%;overflow:hidden;background:#1a1a1a}
img{display:block;width:100vw;height:100vh;object-fit:contain}
</style>
</head>
<body>
<img src="/map.svg" alt="Site Map">
</body>
</html>`)
	})

	// Wrap mux with logging middleware
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		mux.ServeHTTP(w, r)
	})
}

// regionCenters computes the optimal center for each region that holds sites
func regionCenters(store *geo.SiteStore, metric geo.Metric) map[string]*geo.CenterResult {
	centers := make(map[string]*geo.CenterResult)
	for _, snap := range store.Regions() {
		result, err := geo.OptimalLocation(snap.Points, metric)
		if err != nil {
			continue
		}
		centers[snap.RegionID] = result
	}
	return centers
}

// applyConfigColors applies region colors from config to a renderer's palette
func applyConfigColors(colors map[string]geo.GroupColor, config *geo.Config) {
	if config == nil {
		return
	}

	for _, rc := range config.Regions {
		if rc.Color == "" {
			continue
		}

		// Parse hex color
		hexColor := rc.Color
		if len(hexColor) > 0 && hexColor[0] == '#' {
			hexColor = hexColor[1:]
		}

		if len(hexColor) != 6 {
			continue
		}

		var r, g, b uint8
		if _, err := fmt.Sscanf(hexColor, "%02x%02x%02x", &r, &g, &b); err != nil {
			continue
		}

		base := color.NRGBA{r, g, b, 255}
		colors[rc.ID] = geo.GroupColor{
			Site:   base,
			Center: darkenColor(base),
			Circle: color.NRGBA{r, g, b, 60},
		}
	}
}

// darkenColor creates a darker version of a color for center markers
func darkenColor(c color.NRGBA) color.NRGBA {
	factor := 0.5
	return color.NRGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: 255,
	}
}

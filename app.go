package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/kwv/geoffice/geo"
)

// App encapsulates the application state and dependencies
type App struct {
	Config     *geo.Config
	Store      *geo.SiteStore
	MQTTClient *geo.MQTTClient
	Publisher  *geo.Publisher

	// CLI Flags (effectively dependencies)
	ConfigFile   string
	InputFile    string
	Metric       string
	ByGroup      bool
	Percentile   float64
	KeepOutliers bool
	OutputFile   string
	CSVFile      string
	RenderFormat string
	HttpPort     int
	MqttMode     bool
	HttpMode     bool
}

// AppOptions collects the CLI flags handed to the App
type AppOptions struct {
	ConfigFile   string
	InputFile    string
	Metric       string
	ByGroup      bool
	Percentile   float64
	KeepOutliers bool
	OutputFile   string
	CSVFile      string
	RenderFormat string
	HttpPort     int
	MqttMode     bool
	HttpMode     bool
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{
		Store: geo.NewSiteStore(),
	}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.InputFile = opts.InputFile
	a.Metric = opts.Metric
	a.ByGroup = opts.ByGroup
	a.Percentile = opts.Percentile
	a.KeepOutliers = opts.KeepOutliers
	a.OutputFile = opts.OutputFile
	a.CSVFile = opts.CSVFile
	a.RenderFormat = opts.RenderFormat
	a.HttpPort = opts.HttpPort
	a.MqttMode = opts.MqttMode
	a.HttpMode = opts.HttpMode
}

// loadOptionalConfig loads the config file if it exists. CLI-only modes work
// without one.
func (a *App) loadOptionalConfig() {
	if a.Config != nil {
		return
	}
	if _, err := os.Stat(a.ConfigFile); err != nil {
		return
	}
	config, err := geo.LoadConfig(a.ConfigFile)
	if err != nil {
		log.Printf("Warning: Failed to load config file %s: %v", a.ConfigFile, err)
		return
	}
	a.Config = config
	log.Printf("Loaded config from %s", a.ConfigFile)
}

// effectiveMetric resolves the metric with priority: CLI flag > config > default
func (a *App) effectiveMetric() geo.Metric {
	if a.Metric != "" {
		m, err := geo.ParseMetric(a.Metric)
		if err != nil {
			log.Fatalf("Invalid metric: %v", err)
		}
		return m
	}
	if a.Config != nil {
		return a.Config.DefaultMetric()
	}
	return geo.MetricManhattan
}

// effectivePercentile resolves the outlier percentile with priority: CLI flag > config > default
func (a *App) effectivePercentile() float64 {
	if a.Percentile > 0 {
		return a.Percentile
	}
	if a.Config != nil && a.Config.OutlierPercentile > 0 {
		return a.Config.OutlierPercentile
	}
	return geo.DefaultOutlierPercentile
}

// loadInput loads the site table named by -input, dispatching on extension
func (a *App) loadInput() geo.PointSet {
	if a.InputFile == "" {
		log.Fatal("No input file: use -input=sites.csv or -input=sites.xlsx")
	}

	var points geo.PointSet
	var err error
	switch strings.ToLower(filepath.Ext(a.InputFile)) {
	case ".csv":
		points, err = geo.LoadPointsCSV(a.InputFile)
	case ".xlsx":
		points, err = geo.LoadPointsXLSX(a.InputFile)
	default:
		log.Fatalf("Unsupported input format: %s (use .csv or .xlsx)", a.InputFile)
	}
	if err != nil {
		log.Fatalf("Error loading %s: %v", a.InputFile, err)
	}

	fmt.Printf("Loaded %d site(s) from %s\n", len(points), a.InputFile)
	return points
}

// groupedInput splits the input per group when -by-group is set, otherwise
// returns the whole set under the empty key.
func (a *App) groupedInput(points geo.PointSet) map[string]geo.PointSet {
	if !a.ByGroup {
		return map[string]geo.PointSet{"": points}
	}
	grouped := make(map[string]geo.PointSet)
	for _, g := range points.Groups() {
		grouped[g] = points.ByGroup(g)
	}
	if len(grouped) == 0 {
		grouped[""] = points
	}
	return grouped
}

func sortedGroupKeys(grouped map[string]geo.PointSet) []string {
	keys := make([]string, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func groupHeading(group string) string {
	if group == "" {
		return "all sites"
	}
	return group
}

// RunAnalyze computes the optimal center for the input and prints a report
func (a *App) RunAnalyze() {
	a.loadOptionalConfig()
	metric := a.effectiveMetric()
	points := a.loadInput()

	grouped := a.groupedInput(points)
	for _, group := range sortedGroupKeys(grouped) {
		groupPoints := grouped[group]

		result, err := geo.OptimalLocation(groupPoints, metric)
		if err != nil {
			log.Fatalf("Error computing center for %s: %v", groupHeading(group), err)
		}

		fmt.Printf("\n=== %s (%d sites, %s) ===\n", groupHeading(group), len(groupPoints), metric.DisplayName())
		fmt.Printf("Optimal center: (%.6f, %.6f)\n", result.CenterLat, result.CenterLng)
		fmt.Printf("Distances: min=%.2f km, max=%.2f km, avg=%.2f km, total=%.2f km\n",
			result.MinDistance, result.MaxDistance, result.AvgDistance, result.TotalDistance)
		if result.Closest != nil {
			fmt.Printf("Closest:  %s (%.2f km)\n", result.Closest.Label, result.MinDistance)
		}
		if result.Farthest != nil {
			fmt.Printf("Farthest: %s (%.2f km)\n", result.Farthest.Label, result.MaxDistance)
		}

		radius := geo.DisplayRadius(groupPoints, result.CenterLat, result.CenterLng, metric)
		fmt.Printf("Display radius: %.2f km\n", radius)

		if a.CSVFile != "" {
			path := a.CSVFile
			if group != "" {
				ext := filepath.Ext(path)
				path = strings.TrimSuffix(path, ext) + "_" + group + ext
			}
			f, err := os.Create(path)
			if err != nil {
				log.Fatalf("Error creating %s: %v", path, err)
			}
			if err := geo.WriteDistancesCSV(f, result); err != nil {
				_ = f.Close()
				log.Fatalf("Error writing %s: %v", path, err)
			}
			if err := f.Close(); err != nil {
				log.Printf("Warning: error closing %s: %v", path, err)
			}
			fmt.Printf("Wrote distances to %s\n", path)
		}
	}
}

// RunRobust computes the outlier-aware centroid for the input and prints a report
func (a *App) RunRobust() {
	a.loadOptionalConfig()
	metric := a.effectiveMetric()
	pct := a.effectivePercentile()
	points := a.loadInput()

	grouped := a.groupedInput(points)
	for _, group := range sortedGroupKeys(grouped) {
		groupPoints := grouped[group]

		result, err := geo.RobustCentroid(groupPoints, metric, pct, !a.KeepOutliers)
		if err != nil {
			log.Fatalf("Error computing robust centroid for %s: %v", groupHeading(group), err)
		}

		fmt.Printf("\n=== %s (%d sites, %s, p%.0f) ===\n", groupHeading(group), len(groupPoints), metric.DisplayName(), pct)
		fmt.Printf("Robust centroid: (%.6f, %.6f)\n", result.CenterLat, result.CenterLng)
		fmt.Printf("Outlier threshold: %.2f km, median distance: %.2f km\n",
			result.OutlierThreshold, result.MedianDistance)
		fmt.Printf("Inliers: %d, outliers: %d\n", len(result.InlierIDs), len(result.OutlierIDs))
		fmt.Printf("Distances: min=%.2f km, max=%.2f km, avg=%.2f km\n",
			result.MinDistance, result.MaxDistance, result.AvgDistance)

		if len(result.OutlierIDs) > 0 {
			fmt.Println("Outlier sites:")
			for _, d := range result.Distances {
				if result.IsOutlier(d.ID) {
					fmt.Printf("  - %s (%.2f km)\n", d.Label, d.Distance)
				}
			}
		}
	}
}

// RunMatrix prints the pairwise distance matrix and its summary statistics
func (a *App) RunMatrix() {
	a.loadOptionalConfig()
	metric := a.effectiveMetric()
	points := a.loadInput()

	matrix, err := geo.BuildMatrix(points, metric)
	if err != nil {
		log.Fatalf("Error building matrix: %v", err)
	}

	// Column header
	fmt.Printf("\nPairwise distances (%s, km):\n", metric.DisplayName())
	fmt.Printf("%-24s", "")
	for _, label := range matrix.Labels {
		fmt.Printf("%12s", truncateLabel(label, 11))
	}
	fmt.Println()

	for i, label := range matrix.Labels {
		fmt.Printf("%-24s", truncateLabel(label, 23))
		for j := range matrix.Labels {
			fmt.Printf("%12.2f", matrix.Values[i][j])
		}
		fmt.Println()
	}

	stats, err := geo.ExtractStatistics(matrix)
	if err != nil {
		log.Fatalf("Error extracting statistics: %v", err)
	}

	fmt.Printf("\nPairs: %d\n", len(stats.Distances))
	fmt.Printf("Min: %.2f km, Max: %.2f km, Avg: %.2f km, Total: %.2f km\n",
		stats.MinDistance, stats.MaxDistance, stats.AvgDistance, stats.TotalDistance)
}

func truncateLabel(label string, max int) string {
	if len(label) <= max {
		return label
	}
	return label[:max-1] + "~"
}

// RunRender renders the input sites and their centers to an image file
func (a *App) RunRender() {
	a.loadOptionalConfig()
	metric := a.effectiveMetric()
	points := a.loadInput()

	centers := a.computeCenters(points, metric)

	format := a.RenderFormat
	if format != "raster" && format != "vector" && format != "both" {
		log.Fatalf("Invalid format: %s (must be raster, vector, or both)", format)
	}

	if format == "raster" || format == "both" {
		renderer := geo.NewMapRenderer(points, centers, metric)

		outputPath := a.OutputFile
		if !strings.HasSuffix(outputPath, ".png") {
			outputPath = strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".png"
		}

		if err := renderer.SavePNG(outputPath); err != nil {
			log.Fatalf("Error rendering raster: %v", err)
		}
		fmt.Printf("Created raster: %s\n", outputPath)
	}

	if format == "vector" || format == "both" {
		vectorRenderer := geo.NewVectorMapRenderer(points, centers, metric)

		outputPath := strings.TrimSuffix(a.OutputFile, filepath.Ext(a.OutputFile)) + ".svg"

		outFile, err := os.Create(outputPath)
		if err != nil {
			log.Fatalf("Error creating output file %s: %v", outputPath, err)
		}
		defer func() {
			if err := outFile.Close(); err != nil {
				log.Printf("Warning: error closing output file %s: %v", outputPath, err)
			}
		}()

		if err := vectorRenderer.RenderToSVG(outFile); err != nil {
			log.Fatalf("Error rendering vector SVG: %v", err)
		}
		fmt.Printf("Created vector SVG: %s\n", outputPath)
	}

	fmt.Println("Done!")
}

// RunGeoJSON exports the input sites, centers, and coverage circles as GeoJSON
func (a *App) RunGeoJSON() {
	a.loadOptionalConfig()
	metric := a.effectiveMetric()
	points := a.loadInput()

	centers := a.computeCenters(points, metric)
	fc := geo.ExportGeoJSON(points, centers, metric)

	data, err := fc.MarshalJSON()
	if err != nil {
		log.Fatalf("Error marshaling GeoJSON: %v", err)
	}

	outputPath := a.OutputFile
	if !strings.HasSuffix(outputPath, ".geojson") && !strings.HasSuffix(outputPath, ".json") {
		outputPath = strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".geojson"
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		log.Fatalf("Error writing %s: %v", outputPath, err)
	}
	fmt.Printf("Created GeoJSON: %s\n", outputPath)
}

// computeCenters computes an optimal center per group (or one overall center
// when -by-group is off).
func (a *App) computeCenters(points geo.PointSet, metric geo.Metric) map[string]*geo.CenterResult {
	centers := make(map[string]*geo.CenterResult)
	for group, groupPoints := range a.groupedInput(points) {
		result, err := geo.OptimalLocation(groupPoints, metric)
		if err != nil {
			log.Printf("Warning: skipping %s: %v", groupHeading(group), err)
			continue
		}
		centers[group] = result
	}
	return centers
}

// siteUpdateHandler returns the MQTT handler that applies a region's site
// update to the store, recomputes the region's center, and republishes it.
func (a *App) siteUpdateHandler(metric geo.Metric) geo.MessageHandler {
	return func(regionID string, rawPayload []byte, update *geo.SiteUpdate, err error) {
		if err != nil {
			log.Printf("Error receiving site update for %s: %v", regionID, err)
			return
		}

		if update.Removed {
			if a.Store.RemoveSite(regionID, update.ID) {
				log.Printf("%s: removed site %d", regionID, update.ID)
			}
		} else {
			id := a.Store.UpsertSite(regionID, geo.Point{
				ID:        update.ID,
				Name:      update.Name,
				Latitude:  update.Latitude,
				Longitude: update.Longitude,
			})
			log.Printf("%s: upserted site %d (%.5f, %.5f)", regionID, id, update.Latitude, update.Longitude)
		}

		// Recompute and publish the region's center
		snap, ok := a.Store.Region(regionID)
		if !ok {
			return
		}
		result, err := geo.OptimalLocation(snap.Points, metric)
		if err != nil {
			log.Printf("Error recomputing center for %s: %v", regionID, err)
			return
		}
		radius := geo.DisplayRadius(snap.Points, result.CenterLat, result.CenterLng, metric)

		if a.Publisher != nil {
			if err := a.Publisher.PublishCenter(regionID, result, len(snap.Points), radius); err != nil {
				log.Printf("Error publishing center for %s: %v", regionID, err)
			}
		}
	}
}

// RunService starts the combined MQTT and/or HTTP service
func (a *App) RunService() {
	fmt.Println("Starting geoffice service...")

	// Service mode requires a config file for region feeds
	config, err := geo.LoadConfig(a.ConfigFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v (looked at %s)", err, a.ConfigFile)
	}
	a.Config = config
	log.Printf("Loaded config from %s", a.ConfigFile)

	metric := a.effectiveMetric()
	log.Printf("Distance metric: %s", metric.DisplayName())

	// Set region colors from config
	for _, rc := range config.Regions {
		if rc.Color != "" {
			a.Store.SetColor(rc.ID, rc.Color)
		}
	}

	// Seed the store from -input if provided, splitting by group so region
	// endpoints have data before the first MQTT update arrives
	if a.InputFile != "" {
		points := a.loadInput()
		for _, group := range points.Groups() {
			region := group
			if region == "" {
				region = "default"
			}
			a.Store.ReplaceRegion(region, points.ByGroup(group))
		}
	}

	// Start MQTT if enabled
	if a.MqttMode {
		mqttClient, err := geo.InitMQTT(config, a.siteUpdateHandler(metric))
		if err != nil {
			log.Fatalf("Failed to initialize MQTT: %v", err)
		}
		a.MQTTClient = mqttClient

		if mqttClient == nil {
			log.Fatal("MQTT broker not configured in config.yaml")
		}

		a.Publisher = geo.NewPublisher(mqttClient.GetClient())
		fmt.Println("MQTT center publisher initialized")
	}

	// Start HTTP server if enabled
	if a.HttpMode {
		httpServer := newHTTPServer(a.Store, config, metric, a.effectivePercentile())
		go func() {
			addr := fmt.Sprintf("0.0.0.0:%d", a.HttpPort)
			log.Printf("[HTTP] Starting server on %s", addr)
			if err := http.ListenAndServe(addr, httpServer); err != nil {
				log.Fatalf("[HTTP] Server error: %v", err)
			}
		}()
	}

	// Print service info
	fmt.Println("\nService Running")
	fmt.Println("===============")

	if a.MqttMode {
		fmt.Println("\nMQTT:")
		fmt.Println("  Subscribed topics:")
		for _, rc := range config.Regions {
			fmt.Printf("    - %s (%s)\n", rc.Topic, rc.ID)
		}
		publishPrefix := config.MQTT.PublishPrefix
		if publishPrefix == "" {
			publishPrefix = "geoffice"
		}
		fmt.Printf("  Publishing to: %s/{regionID}/center\n", publishPrefix)
		fmt.Printf("  Combined centers: %s/centers\n", publishPrefix)
	}

	if a.HttpMode {
		fmt.Printf("\nHTTP endpoints (port %d):\n", a.HttpPort)
		fmt.Println("  GET /health            - Health check")
		fmt.Println("  GET /regions           - Tracked regions and their sites")
		fmt.Println("  GET /centers           - Optimal centers for all regions")
		fmt.Println("  GET /center?region=    - Optimal center for one region")
		fmt.Println("  GET /robust-centroid?region= - Outlier-aware centroid")
		fmt.Println("  GET /matrix?region=    - Pairwise distance matrix")
		fmt.Println("  GET /stats?region=     - Distance statistics")
		fmt.Println("  GET /points.geojson    - All sites, centers, and coverage circles")
		fmt.Println("  GET /map.png           - Rendered site map")
		fmt.Println("  GET /map.svg           - Rendered site map (vector)")
	}

	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	fmt.Println("\nShutting down service...")
	if a.MQTTClient != nil {
		a.MQTTClient.Disconnect()
	}
	fmt.Println("Service stopped")
}

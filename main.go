package main

import (
	"flag"
	"fmt"
)

// Version is set at build time via -ldflags
var Version = "dev"

var (
	configFile   = flag.String("config", "config.yaml", "Path to configuration file")
	inputFile    = flag.String("input", "", "Site table to load (.csv or .xlsx)")
	metricFlag   = flag.String("metric", "", "Distance metric: manhattan or haversine (default from config)")
	analyzeOnly  = flag.Bool("analyze", false, "Compute the optimal center for the input and exit")
	robustOnly   = flag.Bool("robust", false, "Compute the outlier-aware centroid for the input and exit")
	matrixOnly   = flag.Bool("matrix", false, "Print the pairwise distance matrix and statistics and exit")
	renderOnly   = flag.Bool("render", false, "Render a map of the input and exit")
	geojsonOnly  = flag.Bool("geojson", false, "Export the input as GeoJSON and exit")
	byGroup      = flag.Bool("by-group", false, "Analyze each group in the input separately")
	percentile   = flag.Float64("percentile", 0, "Outlier threshold percentile for -robust (default from config)")
	keepOutliers = flag.Bool("keep-outliers", false, "Keep outliers in the final centroid for -robust")
	outputFile   = flag.String("output", "site-map.png", "Output file for -render, -geojson, and -csv modes")
	csvFile      = flag.String("csv", "", "Also write per-site distances to this CSV file in -analyze mode")
	renderFormat = flag.String("format", "raster", "Render format: raster, vector, or both")
	mqttMode     = flag.Bool("mqtt", false, "Run MQTT service mode for live site feeds")
	httpMode     = flag.Bool("http", false, "Enable HTTP server for analysis endpoints")
	httpPort     = flag.Int("http-port", 8080, "HTTP server port (default 8080)")
)

func main() {
	flag.Parse()
	fmt.Printf("geoffice version: %s\n", Version)

	app := NewApp()
	app.ApplyOptions(AppOptions{
		ConfigFile:   *configFile,
		InputFile:    *inputFile,
		Metric:       *metricFlag,
		ByGroup:      *byGroup,
		Percentile:   *percentile,
		KeepOutliers: *keepOutliers,
		OutputFile:   *outputFile,
		CSVFile:      *csvFile,
		RenderFormat: *renderFormat,
		HttpPort:     *httpPort,
		MqttMode:     *mqttMode,
		HttpMode:     *httpMode,
	})

	if *analyzeOnly {
		app.RunAnalyze()
		return
	}

	if *robustOnly {
		app.RunRobust()
		return
	}

	if *matrixOnly {
		app.RunMatrix()
		return
	}

	if *renderOnly {
		app.RunRender()
		return
	}

	if *geojsonOnly {
		app.RunGeoJSON()
		return
	}

	if *mqttMode || *httpMode {
		app.RunService()
		return
	}

	fmt.Println("geoffice service starting...")
	fmt.Println("Use -analyze -input=sites.csv to compute an optimal center")
	fmt.Println("Use -robust -input=sites.csv to compute an outlier-aware centroid")
	fmt.Println("Use -matrix -input=sites.csv to print the pairwise distance matrix")
	fmt.Println("Use -render -input=sites.csv to output a site map")
	fmt.Println("Use -geojson -input=sites.csv to export GeoJSON")
	fmt.Println("Use -mqtt to run MQTT service mode")
	fmt.Println("Use -http to run HTTP server mode")
	fmt.Println("Use -mqtt -http to run both together")
	fmt.Println("\nConfiguration:")
	fmt.Println("  config.yaml - MQTT settings, region feeds, metric, outlier percentile")
}

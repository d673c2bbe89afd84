package geo

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads the service configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	// Apply defaults before validation
	if config.Metric == "" {
		config.Metric = string(MetricManhattan)
	}
	if config.OutlierPercentile == 0 {
		config.OutlierPercentile = DefaultOutlierPercentile
	}

	// Validate required fields
	if _, err := ParseMetric(config.Metric); err != nil {
		return nil, fmt.Errorf("metric: %w", err)
	}
	if config.OutlierPercentile <= 0 || config.OutlierPercentile > 100 {
		return nil, fmt.Errorf("outlierPercentile must be in (0, 100], got %v", config.OutlierPercentile)
	}

	// Region definitions require both an ID and a topic so the MQTT layer
	// can route updates
	for i, rc := range config.Regions {
		if rc.ID == "" {
			return nil, fmt.Errorf("region[%d].id is required", i)
		}
		if rc.Topic == "" {
			return nil, fmt.Errorf("region[%d].topic is required for %s", i, rc.ID)
		}
	}

	return &config, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Package config loads the storewatch YAML configuration and applies CLI
// overrides on top.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the config file omits a value.
const (
	DefaultInterval   = 30 * time.Second
	DefaultTimeout    = 2 * time.Second
	DefaultSamples    = 1
	DefaultQuorum     = 1
	DefaultMaxWorkers = 32

	DefaultStoresFile = "stores.json"
	DefaultIPListFile = "Store_IP_List.csv"

	DefaultHelpdeskURLPrefix = "https://lidshelp.atlassian.net/jira/servicedesk/projects/HD/queues/custom/20/"
)

// Config holds all runtime settings.
type Config struct {
	Interval   time.Duration // polling interval between cycles
	Timeout    time.Duration // per-sample probe timeout
	Samples    int           // probes per store per cycle
	Quorum     int           // successes required for ONLINE
	MaxWorkers int           // concurrent probe cap per cycle

	MetricsListen string // e.g. ":9217"; empty disables the metrics server
	UIDisable     bool
	Notifications bool

	StoresFile string
	IPListFile string

	LogFile  string
	LogLevel string

	HelpdeskURLPrefix string
}

// Overrides carries optional CLI values that win over file values.
type Overrides struct {
	Interval      *time.Duration
	Timeout       *time.Duration
	Samples       *int
	Quorum        *int
	MaxWorkers    *int
	MetricsListen *string
	UIDisable     *bool
	Notifications *bool
}

// fileConfig is the on-disk YAML shape. Durations are strings so the file
// reads naturally ("interval: 30s").
type fileConfig struct {
	Interval      string `yaml:"interval"`
	Timeout       string `yaml:"timeout"`
	Samples       int    `yaml:"samples"`
	Quorum        int    `yaml:"quorum"`
	MaxWorkers    int    `yaml:"max_workers"`
	MetricsListen string `yaml:"metrics_listen"`
	UIDisable     bool   `yaml:"ui_disable"`
	Notifications *bool  `yaml:"notifications"`
	StoresFile    string `yaml:"stores_file"`
	IPListFile    string `yaml:"ip_list_file"`
	LogFile       string `yaml:"log_file"`
	LogLevel      string `yaml:"log_level"`
	HelpdeskURL   string `yaml:"helpdesk_url_prefix"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Interval:          DefaultInterval,
		Timeout:           DefaultTimeout,
		Samples:           DefaultSamples,
		Quorum:            DefaultQuorum,
		MaxWorkers:        DefaultMaxWorkers,
		Notifications:     true,
		StoresFile:        DefaultStoresFile,
		IPListFile:        DefaultIPListFile,
		LogLevel:          "info",
		HelpdeskURLPrefix: DefaultHelpdeskURLPrefix,
	}
}

// Load reads a YAML config file, fills defaults, applies overrides, and
// validates. An empty path skips the file and uses defaults plus overrides.
func Load(path string, overrides Overrides) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		var raw fileConfig
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, err
		}
		if err := applyFile(&cfg, raw); err != nil {
			return Config{}, err
		}
	}

	applyOverrides(&cfg, overrides)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the quorum engine settings for consistency.
func Validate(cfg Config) error {
	if cfg.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", cfg.Interval)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", cfg.Timeout)
	}
	if cfg.Samples < 1 {
		return fmt.Errorf("samples must be at least 1, got %d", cfg.Samples)
	}
	if cfg.Quorum < 1 {
		return fmt.Errorf("quorum must be at least 1, got %d", cfg.Quorum)
	}
	if cfg.Quorum > cfg.Samples {
		return fmt.Errorf("quorum %d exceeds samples %d", cfg.Quorum, cfg.Samples)
	}
	if cfg.MaxWorkers < 1 {
		return fmt.Errorf("max_workers must be at least 1, got %d", cfg.MaxWorkers)
	}
	return nil
}

func applyFile(cfg *Config, raw fileConfig) error {
	if raw.Interval != "" {
		d, err := time.ParseDuration(raw.Interval)
		if err != nil {
			return fmt.Errorf("invalid interval: %w", err)
		}
		cfg.Interval = d
	}
	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if raw.Samples != 0 {
		cfg.Samples = raw.Samples
	}
	if raw.Quorum != 0 {
		cfg.Quorum = raw.Quorum
	}
	if raw.MaxWorkers != 0 {
		cfg.MaxWorkers = raw.MaxWorkers
	}
	if raw.MetricsListen != "" {
		cfg.MetricsListen = raw.MetricsListen
	}
	if raw.UIDisable {
		cfg.UIDisable = true
	}
	if raw.Notifications != nil {
		cfg.Notifications = *raw.Notifications
	}
	if raw.StoresFile != "" {
		cfg.StoresFile = raw.StoresFile
	}
	if raw.IPListFile != "" {
		cfg.IPListFile = raw.IPListFile
	}
	if raw.LogFile != "" {
		cfg.LogFile = raw.LogFile
	}
	if raw.LogLevel != "" {
		cfg.LogLevel = raw.LogLevel
	}
	if raw.HelpdeskURL != "" {
		cfg.HelpdeskURLPrefix = raw.HelpdeskURL
	}
	return nil
}

func applyOverrides(cfg *Config, o Overrides) {
	if o.Interval != nil {
		cfg.Interval = *o.Interval
	}
	if o.Timeout != nil {
		cfg.Timeout = *o.Timeout
	}
	if o.Samples != nil {
		cfg.Samples = *o.Samples
	}
	if o.Quorum != nil {
		cfg.Quorum = *o.Quorum
	}
	if o.MaxWorkers != nil {
		cfg.MaxWorkers = *o.MaxWorkers
	}
	if o.MetricsListen != nil {
		cfg.MetricsListen = *o.MetricsListen
	}
	if o.UIDisable != nil {
		cfg.UIDisable = *o.UIDisable
	}
	if o.Notifications != nil {
		cfg.Notifications = *o.Notifications
	}
}

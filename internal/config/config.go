package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the binaries look for configuration when no path is given.
const DefaultPath = "configs/config.yaml"

// LogConfig controls console level and the rotating log file.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
	JSON       bool   `yaml:"json"`
}

// FMCConfig holds connection details for the management center.
type FMCConfig struct {
	Server             string        `yaml:"server"`
	Username           string        `yaml:"username"`
	Password           string        `yaml:"password"`
	Domain             string        `yaml:"domain_uuid"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
	Timeout            time.Duration `yaml:"timeout"`
	PageLimit          int           `yaml:"page_limit"`
	RequestDelay       time.Duration `yaml:"request_delay"`
}

// ClickHouseConfig holds ClickHouse connection details.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// NATSConfig holds the NATS connection and subject for report summaries.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// SMTPConfig holds configuration for sending reports by mail.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// TextWriterConfig places the rendered report on disk.
type TextWriterConfig struct {
	RootPath string `yaml:"root_path"`
}

// SnapshotConfig places re-renderable report snapshots on disk.
type SnapshotConfig struct {
	RootPath string `yaml:"root_path"`
}

// WriterDef defines one report sink.
type WriterDef struct {
	Type       string           `yaml:"type"`
	Enabled    bool             `yaml:"enabled"`
	Text       TextWriterConfig `yaml:"text"`
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	NATS       NATSConfig       `yaml:"nats"`
	SMTP       SMTPConfig       `yaml:"smtp"`
}

// FlowReportConfig holds defaults for the flow-ip-stats report generator.
type FlowReportConfig struct {
	MaxWorkers   int               `yaml:"max_workers"`
	PairLimit    int               `yaml:"pair_limit"`
	SummaryLimit int               `yaml:"summary_limit"`
	DefaultLimit int               `yaml:"default_limit"`
	Networks     map[string]string `yaml:"networks"`
	Writers      []WriterDef       `yaml:"writers"`
}

// SnortConfig holds the expense thresholds for rule profiles.
type SnortConfig struct {
	PctLimit     float64          `yaml:"pct_limit"`
	NomatchLimit float64          `yaml:"nomatch_limit"`
	MatchLimit   float64          `yaml:"match_limit"`
	ClickHouse   ClickHouseConfig `yaml:"clickhouse"`
}

// APIConfig holds the report query API settings.
type APIConfig struct {
	ListenAddr string           `yaml:"listen_addr"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// Config is the top-level configuration struct shared by every binary.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	FMC        FMCConfig        `yaml:"fmc"`
	FlowReport FlowReportConfig `yaml:"flow_report"`
	Snort      SnortConfig      `yaml:"snort"`
	API        APIConfig        `yaml:"api"`
	NATS       NATSConfig       `yaml:"nats"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		FMC: FMCConfig{
			Domain:             "e276abec-e0f2-11e3-8169-6d9ed49b625f",
			InsecureSkipVerify: true,
			Timeout:            30 * time.Second,
			PageLimit:          200,
			RequestDelay:       5 * time.Second,
		},
		FlowReport: FlowReportConfig{
			MaxWorkers:   5,
			PairLimit:    15,
			SummaryLimit: 25,
			DefaultLimit: 15,
		},
		Snort: SnortConfig{
			PctLimit:     0.0025,
			NomatchLimit: 50,
			MatchLimit:   500,
		},
		API: APIConfig{
			ListenAddr: ":8080",
		},
		NATS: NATSConfig{
			URL:     "nats://127.0.0.1:4222",
			Subject: "firepowerkit.reports",
		},
	}
}

// LoadConfig reads the configuration from a YAML file on top of the defaults.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigOrDefault behaves like LoadConfig but falls back to Default when the file does not exist.
func LoadConfigOrDefault(filePath string) (*Config, bool, error) {
	cfg, err := LoadConfig(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), false, nil
		}
		return nil, false, err
	}
	return cfg, true, nil
}

// Validate checks value ranges that would otherwise surface as confusing runtime errors.
func (c *Config) Validate() error {
	if c.FlowReport.MaxWorkers < 1 || c.FlowReport.MaxWorkers > 5 {
		return fmt.Errorf("flow_report.max_workers must be between 1 and 5, got %d", c.FlowReport.MaxWorkers)
	}
	if c.FlowReport.PairLimit < 1 {
		return fmt.Errorf("flow_report.pair_limit must be positive, got %d", c.FlowReport.PairLimit)
	}
	if c.FlowReport.SummaryLimit < 1 {
		return fmt.Errorf("flow_report.summary_limit must be positive, got %d", c.FlowReport.SummaryLimit)
	}
	if c.FlowReport.DefaultLimit < 1 {
		return fmt.Errorf("flow_report.default_limit must be positive, got %d", c.FlowReport.DefaultLimit)
	}
	if c.FMC.PageLimit < 1 {
		return fmt.Errorf("fmc.page_limit must be positive, got %d", c.FMC.PageLimit)
	}
	for i, w := range c.FlowReport.Writers {
		if w.Type == "" {
			return fmt.Errorf("flow_report.writers[%d] has no type", i)
		}
	}
	return nil
}

// EnabledWriters returns the report sinks switched on in the config.
func (c *Config) EnabledWriters() []WriterDef {
	var out []WriterDef
	for _, w := range c.FlowReport.Writers {
		if w.Enabled {
			out = append(out, w)
		}
	}
	return out
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig_OverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
fmc:
  server: https://fmc.example.net
  username: api
  request_delay: 2s
flow_report:
  max_workers: 3
  networks:
    10.0.0.0/8: corp
  writers:
    - type: text
      enabled: true
      text:
        root_path: ./reports
    - type: clickhouse
      enabled: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.FMC.Server != "https://fmc.example.net" {
		t.Errorf("Expected server from file, got %q", cfg.FMC.Server)
	}
	if cfg.FMC.RequestDelay != 2*time.Second {
		t.Errorf("Expected request delay 2s, got %s", cfg.FMC.RequestDelay)
	}
	if cfg.FMC.Timeout != 30*time.Second {
		t.Errorf("Expected default timeout to survive, got %s", cfg.FMC.Timeout)
	}
	if cfg.FMC.Domain != "e276abec-e0f2-11e3-8169-6d9ed49b625f" {
		t.Errorf("Expected default domain, got %q", cfg.FMC.Domain)
	}
	if cfg.FlowReport.MaxWorkers != 3 {
		t.Errorf("Expected 3 workers, got %d", cfg.FlowReport.MaxWorkers)
	}
	if cfg.FlowReport.PairLimit != 15 || cfg.FlowReport.SummaryLimit != 25 {
		t.Errorf("Expected default pair/summary limits, got %d/%d", cfg.FlowReport.PairLimit, cfg.FlowReport.SummaryLimit)
	}
	if cfg.FlowReport.Networks["10.0.0.0/8"] != "corp" {
		t.Errorf("Expected network label, got %v", cfg.FlowReport.Networks)
	}

	enabled := cfg.EnabledWriters()
	if len(enabled) != 1 || enabled[0].Type != "text" || enabled[0].Text.RootPath != "./reports" {
		t.Errorf("Unexpected enabled writers: %+v", enabled)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"too many workers", "flow_report:\n  max_workers: 9\n"},
		{"zero pair limit", "flow_report:\n  pair_limit: 0\n"},
		{"writer without type", "flow_report:\n  writers:\n    - enabled: true\n"},
		{"bad yaml", "fmc: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tt.body)); err == nil {
				t.Fatalf("Expected an error for %s", tt.name)
			}
		})
	}
}

func TestLoadConfigOrDefault_MissingFile(t *testing.T) {
	cfg, found, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Expected no error for a missing file, got %v", err)
	}
	if found {
		t.Errorf("Expected found=false for a missing file")
	}
	if cfg.Snort.MatchLimit != 500 || cfg.Snort.NomatchLimit != 50 || cfg.Snort.PctLimit != 0.0025 {
		t.Errorf("Unexpected snort defaults: %+v", cfg.Snort)
	}
}

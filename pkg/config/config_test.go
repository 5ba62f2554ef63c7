package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsValidatedDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scenario != ScenarioTrackUeAndEstimate {
		t.Errorf("Scenario = %v, want default", cfg.Scenario)
	}
}

func TestLoadMergesYamlOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nectard.yaml")
	yamlDoc := "scenario: PerformMeasurement\ncellapi:\n  base_url: http://10.0.0.1\ndownload:\n  base_addr: http://10.0.0.2:8080\n"
	if err := os.WriteFile(path, []byte(yamlDoc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scenario != ScenarioPerformMeasurement {
		t.Errorf("Scenario = %v, want PerformMeasurement", cfg.Scenario)
	}
	if cfg.CellApi.BaseURL != "http://10.0.0.1" {
		t.Errorf("CellApi.BaseURL = %q, want override", cfg.CellApi.BaseURL)
	}
	// Fields the YAML document omits must retain Default()'s values.
	if cfg.CellApi.Backend != "milesight" {
		t.Errorf("CellApi.Backend = %q, want default milesight", cfg.CellApi.Backend)
	}
}

func TestLoadRejectsInvalidScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("scenario: NotAScenario\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load with invalid scenario = nil error, want error")
	}
}

func TestValidateRequiresDownloadAddrForPerformMeasurement(t *testing.T) {
	cfg := Default()
	cfg.Scenario = ScenarioPerformMeasurement
	cfg.Download.BaseAddr = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for missing download.base_addr")
	}
}

func TestApplyFlagsOverridesYamlValue(t *testing.T) {
	cfg := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	if err := ApplyFlags(cfg, fs, []string{"-cellapi-addr", "http://192.168.100.1"}); err != nil {
		t.Fatalf("ApplyFlags: %v", err)
	}
	if cfg.CellApi.BaseURL != "http://192.168.100.1" {
		t.Errorf("CellApi.BaseURL = %q, want flag override", cfg.CellApi.BaseURL)
	}
	// Unset flags must not clobber the existing value.
	if cfg.Sniffer.BinPath != "/usr/bin/ng-scope" {
		t.Errorf("Sniffer.BinPath = %q, want unchanged default", cfg.Sniffer.BinPath)
	}
}

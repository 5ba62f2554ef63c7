// Package config implements the YAML-plus-flag-override configuration
// surface described in §6's "CLI/config surface (abstract)": a typed
// struct with field-by-field defaults and fatal-on-error validation at
// startup (§7), mirroring the shape of the teacher's pkg/uci.LoadConfig
// (set defaults, parse the file, validate) without any UCI/OpenWrt
// dependency.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario selects which workers the supervisor launches (§1, §6).
type Scenario string

const (
	ScenarioTrackCellDciOnly   Scenario = "TrackCellDciOnly"
	ScenarioTrackUeAndEstimate Scenario = "TrackUeAndEstimate"
	ScenarioPerformMeasurement Scenario = "PerformMeasurement"
)

func (s Scenario) valid() bool {
	switch s {
	case ScenarioTrackCellDciOnly, ScenarioTrackUeAndEstimate, ScenarioPerformMeasurement:
		return true
	default:
		return false
	}
}

// CellApiConfig selects and parameterizes the cellsource.Backend (§6).
type CellApiConfig struct {
	Backend  string `yaml:"backend"` // "milesight" | "device_publisher"
	BaseURL  string `yaml:"base_url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// SnifferConfig parameterizes the NgControl worker's external sniffer
// process (§6); CellID and FrequencyHz are filled in per-cell at
// runtime from the current CellInfo rather than configured statically.
type SnifferConfig struct {
	BinPath         string `yaml:"bin_path"`
	LocalAddr       string `yaml:"local_addr"`
	ServerAddr      string `yaml:"server_addr"`
	LogFile         string `yaml:"log_file"`
	AutoStart       bool   `yaml:"auto_start"`
	LogDci          bool   `yaml:"log_dci"`
	LogDciBatchSize int    `yaml:"log_dci_batch_size"`
}

// MatcherConfig parameterizes the RntiMatcher worker (§6).
type MatcherConfig struct {
	LocalAddr    string `yaml:"local_addr"`
	PatternLabel string `yaml:"pattern_label"` // key into rntimatcher.Patterns
	Destination  string `yaml:"destination"`
	LogTraffic   bool   `yaml:"log_traffic"`
}

// ScheduleConfig is the "(fixed_ms | rtt_factor, value)" schedule shape
// from §6: a zero RttFactor means fixed-interval.
type ScheduleConfig struct {
	FixedMs   int64   `yaml:"fixed_ms"`
	RttFactor float64 `yaml:"rtt_factor"`
}

// ModelConfig parameterizes the ModelHandler worker (§6, §4.5).
type ModelConfig struct {
	SendingInterval ScheduleConfig `yaml:"sending_interval"`
	SmoothingSize   ScheduleConfig `yaml:"smoothing_size"`
	RntiShareType   string         `yaml:"rnti_share_type"` // "all" | "dl_occurrences" | "greedy"
}

// LogConfig parameterizes the Logger worker (§6, §4.7).
type LogConfig struct {
	BaseDir string `yaml:"base_dir"`
	Level   string `yaml:"level"`
}

// DownloadConfig parameterizes the Downloader worker (§6, §4.6).
type DownloadConfig struct {
	BaseAddr string   `yaml:"base_addr"`
	Paths    []string `yaml:"paths"`
}

// MetricsConfig parameterizes the Prometheus exporter.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// MqttConfig parameterizes the optional MQTT telemetry side-channel.
type MqttConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	Port        int    `yaml:"port"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         int    `yaml:"qos"`
	Retain      bool   `yaml:"retain"`
}

// Config is the full nectard configuration surface (§6).
type Config struct {
	Scenario Scenario       `yaml:"scenario"`
	CellApi  CellApiConfig  `yaml:"cellapi"`
	Sniffer  SnifferConfig  `yaml:"sniffer"`
	Matcher  MatcherConfig  `yaml:"matcher"`
	Model    ModelConfig    `yaml:"model"`
	Log      LogConfig      `yaml:"log"`
	Download DownloadConfig `yaml:"download"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Mqtt     MqttConfig     `yaml:"mqtt"`
	Verbose  bool           `yaml:"verbose"`
	PidFile  string         `yaml:"pid_file"`
}

// Default returns a fully-populated Config with the daemon's baseline
// settings, equivalent in role to the teacher's Config.setDefaults.
func Default() *Config {
	return &Config{
		Scenario: ScenarioTrackUeAndEstimate,
		CellApi: CellApiConfig{
			Backend: "milesight",
			BaseURL: "http://192.168.1.1",
		},
		Sniffer: SnifferConfig{
			BinPath:         "/usr/bin/ng-scope",
			LocalAddr:       "127.0.0.1:9000",
			ServerAddr:      "127.0.0.1:9001",
			AutoStart:       true,
			LogDci:          true,
			LogDciBatchSize: 50,
		},
		Matcher: MatcherConfig{
			LocalAddr:    "0.0.0.0:9100",
			PatternLabel: "A",
			LogTraffic:   false,
		},
		Model: ModelConfig{
			SendingInterval: ScheduleConfig{FixedMs: 100},
			SmoothingSize:   ScheduleConfig{FixedMs: 50},
			RntiShareType:   "all",
		},
		Log: LogConfig{
			BaseDir: "/var/log/nectard",
			Level:   "info",
		},
		Download: DownloadConfig{
			BaseAddr: "http://127.0.0.1:8080",
			Paths:    []string{"/download/fair1", "/download/fair2"},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9616",
		},
		Mqtt: MqttConfig{
			Enabled:     false,
			Broker:      "localhost",
			Port:        1883,
			ClientID:    "nectard",
			TopicPrefix: "nectard",
			QoS:         1,
		},
		PidFile: "/var/run/nectard.pid",
	}
}

// Load reads path as YAML over a Default() config (so any field the
// file omits keeps its default) and validates the result. A missing
// file is not an error: the defaults are returned as-is, matching the
// teacher's loadConfigFromFile fallback behavior.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if verr := cfg.Validate(); verr != nil {
				return nil, verr
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate reports the first configuration error found (§7's
// "Configuration error at startup ... fatal"). Every caller of Load
// already gets this for free; exported separately so main can
// re-validate after applying flag overrides.
func (c *Config) Validate() error {
	if !c.Scenario.valid() {
		return fmt.Errorf("config: invalid scenario %q", c.Scenario)
	}
	switch c.CellApi.Backend {
	case "milesight", "device_publisher":
	default:
		return fmt.Errorf("config: invalid cellapi.backend %q", c.CellApi.Backend)
	}
	if c.CellApi.BaseURL == "" {
		return fmt.Errorf("config: cellapi.base_url is required")
	}
	if c.Sniffer.BinPath == "" {
		return fmt.Errorf("config: sniffer.bin_path is required")
	}
	if c.Sniffer.ServerAddr == "" || c.Sniffer.LocalAddr == "" {
		return fmt.Errorf("config: sniffer.local_addr and sniffer.server_addr are required")
	}
	switch c.Model.RntiShareType {
	case "all", "dl_occurrences", "greedy":
	default:
		return fmt.Errorf("config: invalid model.rnti_share_type %q", c.Model.RntiShareType)
	}
	if c.Log.BaseDir == "" {
		return fmt.Errorf("config: log.base_dir is required")
	}
	if c.Scenario == ScenarioPerformMeasurement && c.Download.BaseAddr == "" {
		return fmt.Errorf("config: download.base_addr is required for scenario %q", c.Scenario)
	}
	return nil
}

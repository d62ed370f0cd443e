package config

import (
	"errors"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Device          DeviceConfig   `yaml:"device"`
	Panel           PanelConfig    `yaml:"panel"`
	Sensor          SensorConfig   `yaml:"sensor"`
	Stream          StreamConfig   `yaml:"stream"`
	Database        DatabaseConfig `yaml:"database"`
	Ledger          LedgerConfig   `yaml:"ledger"`
	MQTT            MQTTConfig     `yaml:"mqtt"`
	Log             LogConfig      `yaml:"log"`
	EventBus        EventBusConfig `yaml:"eventbus"`
	ShutdownTimeout Duration       `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// DeviceConfig contains ESP32 board connection settings
type DeviceConfig struct {
	Address string   `yaml:"address"` // Base URL of the board, e.g. http://192.168.1.50
	Timeout Duration `yaml:"timeout"` // HTTP timeout for /dht and /led (0 = none)
}

// PanelConfig contains the panel HTTP server settings
type PanelConfig struct {
	Addr      string `yaml:"addr"`
	StreamURL string `yaml:"stream_url"` // URL browsers load and the stream switch probes; defaults to <device><stream.path>
}

// SensorConfig contains DHT polling settings
type SensorConfig struct {
	Interval Duration `yaml:"interval"`
}

// StreamConfig contains camera stream settings
type StreamConfig struct {
	Path string `yaml:"path"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LedgerConfig contains panel history settings
type LedgerConfig struct {
	Enabled         bool     `yaml:"enabled"`
	CleanupInterval Duration `yaml:"cleanup_interval"`
	RetentionDays   int      `yaml:"retention_days"`
}

// MQTTConfig contains telemetry publishing settings. Empty broker disables MQTT.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// Enabled reports whether a broker is configured
func (c *MQTTConfig) Enabled() bool {
	return c.Broker != ""
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	Colors  bool   `yaml:"colors"`
	UseJSON bool   `yaml:"json"`
}

// GetLevel returns the configured level, lowercased
func (c *LogConfig) GetLevel() string {
	return strings.ToLower(c.Level)
}

// EventBusConfig contains event bus settings
type EventBusConfig struct {
	Workers   int `yaml:"workers"`    // Number of worker goroutines (default: 2)
	QueueSize int `yaml:"queue_size"` // Event queue size (default: 100)
}

// GetWorkers returns worker count with default
func (c *EventBusConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return 2
	}
	return c.Workers
}

// GetQueueSize returns queue size with default
func (c *EventBusConfig) GetQueueSize() int {
	if c.QueueSize <= 0 {
		return 100
	}
	return c.QueueSize
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// ErrNoDevice is returned by Validate when the board address is missing
var ErrNoDevice = errors.New("device.address is required")

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse expands environment variables in data, decodes it and applies defaults
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	cfg.Device.Address = strings.TrimRight(cfg.Device.Address, "/")

	// Panel defaults
	if cfg.Panel.Addr == "" {
		cfg.Panel.Addr = "0.0.0.0:8080"
	}

	// Stream defaults
	if cfg.Stream.Path == "" {
		cfg.Stream.Path = "/stream"
	}
	if cfg.Panel.StreamURL == "" && cfg.Device.Address != "" {
		cfg.Panel.StreamURL = cfg.Device.Address + cfg.Stream.Path
	}

	// Sensor defaults
	if cfg.Sensor.Interval == 0 {
		cfg.Sensor.Interval = Duration(5 * time.Second)
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "./espanel.sqlite"
	}

	// Ledger defaults
	if cfg.Ledger.CleanupInterval == 0 {
		cfg.Ledger.CleanupInterval = Duration(24 * time.Hour)
	}
	if cfg.Ledger.RetentionDays == 0 {
		cfg.Ledger.RetentionDays = 30
	}

	// MQTT defaults
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "espanel"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "espanel"
	}

	// General shutdown timeout
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}
}

// Validate checks required settings
func (cfg *Config) Validate() error {
	if cfg.Device.Address == "" {
		return ErrNoDevice
	}
	return nil
}

// GetShutdownTimeout returns the shutdown timeout as time.Duration
func (cfg *Config) GetShutdownTimeout() time.Duration {
	return cfg.ShutdownTimeout.Duration()
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}

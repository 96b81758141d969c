package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the afaudio daemon.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Monitor   MonitorConfig   `yaml:"monitor"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// MonitorConfig contains settings for the supervised audio monitor process.
type MonitorConfig struct {
	// Binary is the path to the monitor executable.
	Binary string `yaml:"binary"`

	// Variant selects the wire protocol variant: "args" or "command".
	Variant string `yaml:"variant"`

	// PollDelayMs is the device polling interval in milliseconds.
	// Minimum: 100.
	PollDelayMs int `yaml:"poll_delay_ms"`

	// VolumeStep is the default step for relative volume commands (1-100).
	VolumeStep int `yaml:"volume_step"`

	// GracefulTimeoutMs is how long to wait after SIGTERM before
	// escalating to SIGKILL, in milliseconds.
	GracefulTimeoutMs int `yaml:"graceful_timeout_ms"`

	// MaxFrameSize bounds a single buffered stdout record in bytes.
	// 0 selects the built-in default.
	MaxFrameSize int `yaml:"max_frame_size"`

	// Autostart spawns the monitor process as soon as the daemon boots.
	Autostart bool `yaml:"autostart"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: AFAUDIO_SECTION_KEY
// For example: AFAUDIO_MONITOR_BINARY, AFAUDIO_DATABASE_PATH
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Monitor: MonitorConfig{
			Binary:            "./af-win-audio.exe",
			Variant:           "args",
			PollDelayMs:       250,
			VolumeStep:        5,
			GracefulTimeoutMs: 3000,
			Autostart:         true,
		},
		Database: DatabaseConfig{
			Path:        "./data/afaudio.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "afaudio-daemon",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: AFAUDIO_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Monitor
	if v := os.Getenv("AFAUDIO_MONITOR_BINARY"); v != "" {
		cfg.Monitor.Binary = v
	}
	if v := os.Getenv("AFAUDIO_MONITOR_VARIANT"); v != "" {
		cfg.Monitor.Variant = v
	}
	if v := os.Getenv("AFAUDIO_MONITOR_POLL_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Monitor.PollDelayMs = n
		}
	}

	// Database
	if v := os.Getenv("AFAUDIO_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("AFAUDIO_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("AFAUDIO_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("AFAUDIO_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("AFAUDIO_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("AFAUDIO_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Monitor validation
	if c.Monitor.Binary == "" {
		errs = append(errs, "monitor.binary is required")
	}
	if c.Monitor.Variant != "args" && c.Monitor.Variant != "command" {
		errs = append(errs, `monitor.variant must be "args" or "command"`)
	}
	if c.Monitor.PollDelayMs < 100 {
		errs = append(errs, "monitor.poll_delay_ms must be at least 100")
	}
	if c.Monitor.VolumeStep < 1 || c.Monitor.VolumeStep > 100 {
		errs = append(errs, "monitor.volume_step must be between 1 and 100")
	}
	if c.Monitor.GracefulTimeoutMs < 1 {
		errs = append(errs, "monitor.graceful_timeout_ms must be positive")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetPollDelay returns the monitor polling interval as a Duration.
func (c *Config) GetPollDelay() time.Duration {
	return time.Duration(c.Monitor.PollDelayMs) * time.Millisecond
}

// GetGracefulTimeout returns the monitor graceful stop deadline as a Duration.
func (c *Config) GetGracefulTimeout() time.Duration {
	return time.Duration(c.Monitor.GracefulTimeoutMs) * time.Millisecond
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for IronPin Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Controller ControllerConfig `yaml:"controller"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Serial     SerialConfig     `yaml:"serial"`
	CAN        CANConfig        `yaml:"can"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ControllerConfig contains the unit identity and supervisor settings.
type ControllerConfig struct {
	// ID identifies this unit in MQTT topics and log lines.
	ID string `yaml:"id"`

	// Role is the unit's position in the daisy chain: 0 for the
	// local/master unit, 1-4 for sibling units.
	Role int `yaml:"role"`

	// Revision selects the installed hardware revision: "base" or
	// "analog".
	Revision string `yaml:"revision"`

	// TickMs is the supervisor period in milliseconds, clamped by the
	// engine to its supported range.
	TickMs int `yaml:"tick_ms"`

	// Simulate runs against the in-memory hardware simulator instead
	// of real adapters.
	Simulate bool `yaml:"simulate"`
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

// SerialConfig contains the auxiliary serial port settings.
type SerialConfig struct {
	Enabled bool   `yaml:"enabled"`
	Device  string `yaml:"device"`
	Mode    string `yaml:"mode"`
	Baud    int    `yaml:"baud"`
}

// CANConfig contains the CAN interface settings.
type CANConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Interface string `yaml:"interface"`
	Bitrate   int    `yaml:"bitrate"`
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
// Environment variables follow the pattern: IRONPIN_SECTION_KEY
// For example: IRONPIN_DATABASE_PATH, IRONPIN_MQTT_HOST
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Controller: ControllerConfig{
			ID:       "ironpin-001",
			Role:     0,
			Revision: "base",
			TickMs:   20,
		},
		Database: DatabaseConfig{
			Path:        "./data/ironpin.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "ironpin-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Serial: SerialConfig{
			Device: "/dev/ttyS1",
			Mode:   "rs232",
			Baud:   115200,
		},
		CAN: CANConfig{
			Interface: "can0",
			Bitrate:   500000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: IRONPIN_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("IRONPIN_CONTROLLER_ID"); v != "" {
		cfg.Controller.ID = v
	}
	if v := os.Getenv("IRONPIN_CONTROLLER_ROLE"); v != "" {
		if role, err := strconv.Atoi(v); err == nil {
			cfg.Controller.Role = role
		}
	}
	if v := os.Getenv("IRONPIN_CONTROLLER_REVISION"); v != "" {
		cfg.Controller.Revision = v
	}

	if v := os.Getenv("IRONPIN_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("IRONPIN_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("IRONPIN_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("IRONPIN_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("IRONPIN_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Controller.ID == "" {
		errs = append(errs, "controller.id is required")
	}
	if c.Controller.Role < 0 || c.Controller.Role > 4 {
		errs = append(errs, "controller.role must be between 0 and 4")
	}
	switch c.Controller.Revision {
	case "base", "analog":
	default:
		errs = append(errs, "controller.revision must be \"base\" or \"analog\"")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// TickPeriod returns the supervisor period as a Duration.
func (c *Config) TickPeriod() time.Duration {
	return time.Duration(c.Controller.TickMs) * time.Millisecond
}

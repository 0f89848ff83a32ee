package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for graydb.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Parity     ParityConfig     `yaml:"parity"`
	Governance GovernanceConfig `yaml:"governance"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	API        APIConfig        `yaml:"api"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// DatabaseConfig selects the backend and sizes its pool.
type DatabaseConfig struct {
	// URL is the connection URI. Its scheme selects the adapter for the
	// lifetime of the process.
	URL  string     `yaml:"url"`
	Pool PoolConfig `yaml:"pool"`
}

// PoolConfig contains connection pool settings. Timeouts are in seconds
// except PingTimeout, which is in milliseconds.
type PoolConfig struct {
	MaxOpen         int `yaml:"max_open"`
	CheckoutTimeout int `yaml:"checkout_timeout"`
	PingTimeout     int `yaml:"ping_timeout_ms"`
	IdleTimeout     int `yaml:"idle_timeout"`
}

// ParityConfig names the two adapters the harness compares.
type ParityConfig struct {
	ReferenceURL    string   `yaml:"reference_url"`
	CandidateURL    string   `yaml:"candidate_url"`
	ScenarioTimeout int      `yaml:"scenario_timeout"`
	Scenarios       []string `yaml:"scenarios"`
}

// GovernanceConfig locates the deviation registry.
type GovernanceConfig struct {
	RegistryPath string `yaml:"registry_path"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
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

// APIConfig contains HTTP status server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// InfluxDBConfig contains InfluxDB connection settings for pool statistics.
type InfluxDBConfig struct {
	Enabled        bool   `yaml:"enabled"`
	URL            string `yaml:"url"`
	Token          string `yaml:"token"`
	Org            string `yaml:"org"`
	Bucket         string `yaml:"bucket"`
	BatchSize      int    `yaml:"batch_size"`
	FlushInterval  int    `yaml:"flush_interval"`
	ReportInterval int    `yaml:"report_interval"`
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
//  2. YAML file values (override defaults); skipped when path is empty
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYDB_SECTION_KEY
// For example: GRAYDB_DATABASE_URL, GRAYDB_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file, or "" for defaults only
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // Config path comes from the operator
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
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
		Database: DatabaseConfig{
			URL: "sqlite://./data/graydb.db",
			Pool: PoolConfig{
				MaxOpen:         10,
				CheckoutTimeout: 10,
				PingTimeout:     2000,
				IdleTimeout:     0,
			},
		},
		Parity: ParityConfig{
			ReferenceURL:    "sqlite://:memory:",
			CandidateURL:    "turso://:memory:",
			ScenarioTimeout: 30,
		},
		Governance: GovernanceConfig{
			RegistryPath: "./configs/deviations.yaml",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graydb",
			},
			QoS:         1,
			TopicPrefix: "graydb",
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
		InfluxDB: InfluxDBConfig{
			BatchSize:      100,
			FlushInterval:  10,
			ReportInterval: 15,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GRAYDB_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("GRAYDB_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v, ok := envInt("GRAYDB_POOL_MAX_OPEN"); ok {
		cfg.Database.Pool.MaxOpen = v
	}

	// Parity and governance
	if v := os.Getenv("GRAYDB_PARITY_REFERENCE_URL"); v != "" {
		cfg.Parity.ReferenceURL = v
	}
	if v := os.Getenv("GRAYDB_PARITY_CANDIDATE_URL"); v != "" {
		cfg.Parity.CandidateURL = v
	}
	if v := os.Getenv("GRAYDB_REGISTRY_PATH"); v != "" {
		cfg.Governance.RegistryPath = v
	}

	// MQTT
	if v := os.Getenv("GRAYDB_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYDB_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYDB_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("GRAYDB_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v, ok := envInt("GRAYDB_API_PORT"); ok {
		cfg.API.Port = v
	}

	// InfluxDB
	if v := os.Getenv("GRAYDB_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("GRAYDB_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// envInt reads an integer variable; malformed values are ignored and
// left for Validate to judge the file value.
func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	if c.Database.URL == "" {
		errs = append(errs, "database.url is required (set GRAYDB_DATABASE_URL environment variable)")
	} else if !strings.Contains(c.Database.URL, "://") {
		errs = append(errs, "database.url must have the form scheme://...")
	}
	if c.Database.Pool.MaxOpen < 1 {
		errs = append(errs, "database.pool.max_open must be at least 1")
	}
	if c.Database.Pool.CheckoutTimeout < 1 {
		errs = append(errs, "database.pool.checkout_timeout must be at least 1 second")
	}
	if c.Database.Pool.PingTimeout < 1 {
		errs = append(errs, "database.pool.ping_timeout_ms must be positive")
	}
	if c.Database.Pool.IdleTimeout < 0 {
		errs = append(errs, "database.pool.idle_timeout must not be negative")
	}

	// Parity validation
	if c.Parity.ScenarioTimeout < 1 {
		errs = append(errs, "parity.scenario_timeout must be at least 1 second")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.API.TLS.Enabled && (c.API.TLS.CertFile == "" || c.API.TLS.KeyFile == "") {
		errs = append(errs, "api.tls.cert_file and api.tls.key_file are required when tls is enabled")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" || c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.url, influxdb.org and influxdb.bucket are required when influxdb is enabled")
		}
		if c.InfluxDB.ReportInterval < 1 {
			errs = append(errs, "influxdb.report_interval must be at least 1 second")
		}
	}

	// Logging validation
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, "logging.format must be json or text")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
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

// GetCheckoutTimeout returns the pool checkout timeout as a Duration.
func (c *Config) GetCheckoutTimeout() time.Duration {
	return time.Duration(c.Database.Pool.CheckoutTimeout) * time.Second
}

// GetPingTimeout returns the pool liveness check timeout as a Duration.
func (c *Config) GetPingTimeout() time.Duration {
	return time.Duration(c.Database.Pool.PingTimeout) * time.Millisecond
}

// GetPoolIdleTimeout returns the pool idle timeout as a Duration.
func (c *Config) GetPoolIdleTimeout() time.Duration {
	return time.Duration(c.Database.Pool.IdleTimeout) * time.Second
}

// GetScenarioTimeout returns the per-scenario parity timeout as a Duration.
func (c *Config) GetScenarioTimeout() time.Duration {
	return time.Duration(c.Parity.ScenarioTimeout) * time.Second
}

// Package config loads and validates jobcontrol configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Control ControlConfig `mapstructure:"control"`
	Logging LoggingConfig `mapstructure:"logging"`
	Driver  DriverConfig  `mapstructure:"driver"`
	Audit   AuditConfig   `mapstructure:"audit"`
	Console ConsoleConfig `mapstructure:"console"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// ControlConfig holds the presentation-layer speed settings.
type ControlConfig struct {
	DefaultSpeed int `mapstructure:"default_speed"`
	MinSpeed     int `mapstructure:"min_speed"`
	MaxSpeed     int `mapstructure:"max_speed"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// DriverConfig injects faults into the simulated drive.
type DriverConfig struct {
	FaultOnStart bool `mapstructure:"fault_on_start"`
	FaultOnStop  bool `mapstructure:"fault_on_stop"`
}

// AuditConfig controls the audit hub and its sinks.
type AuditConfig struct {
	Enabled       bool             `mapstructure:"enabled"`
	LogEnabled    bool             `mapstructure:"log_enabled"`
	HistorySize   int              `mapstructure:"history_size"`
	BufferSize    int              `mapstructure:"buffer_size"`
	Batch         AuditBatchConfig `mapstructure:"batch"`
	SinkTimeoutMs int              `mapstructure:"sink_timeout_ms"`
}

// AuditBatchConfig sets hub flush thresholds.
type AuditBatchConfig struct {
	MaxEvents int `mapstructure:"max_events"`
	MaxWaitMs int `mapstructure:"max_wait_ms"`
}

// ConsoleConfig configures the terminal front end.
type ConsoleConfig struct {
	RefreshIntervalMs int    `mapstructure:"refresh_interval_ms"`
	LogFile           string `mapstructure:"log_file"`
}

// Load builds a Config from an optional dotenv file, an optional config file,
// and JOBCONTROL_* environment variables.
func Load(path, envFile string) (Config, error) {
	if err := loadDotEnv(envFile); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("JOBCONTROL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// loadDotEnv exports variables from envFile without overriding the real
// environment. A missing file is not an error.
func loadDotEnv(envFile string) error {
	if envFile == "" {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", envFile, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 10)
	v.SetDefault("control.default_speed", 100)
	v.SetDefault("control.min_speed", 1)
	v.SetDefault("control.max_speed", 1000)
	v.SetDefault("logging.development", true)
	v.SetDefault("driver.fault_on_start", false)
	v.SetDefault("driver.fault_on_stop", false)
	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.log_enabled", true)
	v.SetDefault("audit.history_size", 100)
	v.SetDefault("audit.buffer_size", 1024)
	v.SetDefault("audit.batch.max_events", 64)
	v.SetDefault("audit.batch.max_wait_ms", 200)
	v.SetDefault("audit.sink_timeout_ms", 2000)
	v.SetDefault("console.refresh_interval_ms", 1000)
	v.SetDefault("console.log_file", "jobcontrol-console.log")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be > 0")
	}
	if c.Control.MinSpeed > c.Control.MaxSpeed {
		return fmt.Errorf("control.min_speed must be <= control.max_speed")
	}
	if c.Control.DefaultSpeed < c.Control.MinSpeed || c.Control.DefaultSpeed > c.Control.MaxSpeed {
		return fmt.Errorf("control.default_speed must be within [control.min_speed, control.max_speed]")
	}
	if c.Audit.Enabled && c.Audit.HistorySize < 0 {
		return fmt.Errorf("audit.history_size must be >= 0")
	}
	if c.Console.RefreshIntervalMs <= 0 {
		return fmt.Errorf("console.refresh_interval_ms must be > 0")
	}
	return nil
}

// RequestTimeout converts the server timeout to a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// ConsoleRefresh converts the console interlock refresh interval to a duration.
func (c Config) ConsoleRefresh() time.Duration {
	return time.Duration(c.Console.RefreshIntervalMs) * time.Millisecond
}

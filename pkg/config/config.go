package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Veraticus/idlewatch/pkg/inactivity"
)

// Config holds all configuration for idlewatch
type Config struct {
	// Inactivity settings
	InactivityLimit  float64       `yaml:"inactivity_limit" env:"IDLEWATCH_LIMIT"`
	SamplingInterval time.Duration `yaml:"sampling_interval" env:"IDLEWATCH_INTERVAL"`
	DisabledEvents   []string      `yaml:"disabled_events" env:"IDLEWATCH_DISABLED_EVENTS"`

	// Terminal settings
	MouseTracking bool `yaml:"mouse_tracking" env:"IDLEWATCH_MOUSE"`

	// Notification settings
	NtfyTopic  string `yaml:"ntfy_topic" env:"IDLEWATCH_NTFY_TOPIC"`
	NtfyServer string `yaml:"ntfy_server" env:"IDLEWATCH_NTFY_SERVER"`

	// Behavior flags
	Quiet bool `yaml:"quiet" env:"IDLEWATCH_QUIET"`
	Debug bool `yaml:"debug" env:"IDLEWATCH_DEBUG"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		InactivityLimit:  inactivity.DefaultInactivityLimit,
		SamplingInterval: inactivity.DefaultSamplingInterval,
		NtfyServer:       "https://ntfy.sh",
	}
}

// MonitorConfig returns the inactivity monitor settings
func (c *Config) MonitorConfig() inactivity.Config {
	disabled := make([]string, len(c.DisabledEvents))
	copy(disabled, c.DisabledEvents)
	return inactivity.Config{
		InactivityLimit:  c.InactivityLimit,
		SamplingInterval: c.SamplingInterval,
		DisabledEvents:   disabled,
	}
}

// Load loads configuration from file and environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// Try to load from config file
	configPath := getConfigPath()
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Variables from the env file sit below the real environment
	if envPath := getEnvFilePath(configPath); envPath != "" {
		if err := loadFromEnvFile(cfg, envPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	// Override with environment variables
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	// Validate configuration
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// getConfigPath returns the config file path
func getConfigPath() string {
	// Check for explicit config path
	if path := os.Getenv("IDLEWATCH_CONFIG"); path != "" {
		return path
	}

	// Check XDG config directory
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "idlewatch", "config.yaml")
	}

	// Fall back to home directory
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "idlewatch", "config.yaml")
	}

	return ""
}

// getEnvFilePath returns the dotenv file path, next to the config file by default
func getEnvFilePath(configPath string) string {
	if path := os.Getenv("IDLEWATCH_ENV_FILE"); path != "" {
		return path
	}
	if configPath == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(configPath), "idlewatch.env")
}

// loadFromEnvFile applies IDLEWATCH_* variables from a dotenv file without
// exporting them to the process environment
func loadFromEnvFile(cfg *Config, path string) error {
	vars, err := godotenv.Read(path)
	if err != nil {
		return err
	}
	return applyEnv(cfg, func(name string) string { return vars[name] })
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(cfg *Config, path string) error {
	// #nosec G304 - The config file path comes from trusted sources (env var or standard locations)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(cfg *Config) error {
	return applyEnv(cfg, os.Getenv)
}

// applyEnv overrides cfg with every non-empty variable returned by getenv
func applyEnv(cfg *Config, getenv func(string) string) error {
	if limit := getenv("IDLEWATCH_LIMIT"); limit != "" {
		minutes, err := strconv.ParseFloat(limit, 64)
		if err != nil {
			return fmt.Errorf("invalid IDLEWATCH_LIMIT: %w", err)
		}
		cfg.InactivityLimit = minutes
	}

	if interval := getenv("IDLEWATCH_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			return fmt.Errorf("invalid IDLEWATCH_INTERVAL: %w", err)
		}
		cfg.SamplingInterval = d
	}

	if disabled := getenv("IDLEWATCH_DISABLED_EVENTS"); disabled != "" {
		cfg.DisabledEvents = splitList(disabled)
	}

	if topic := getenv("IDLEWATCH_NTFY_TOPIC"); topic != "" {
		cfg.NtfyTopic = topic
	}

	if server := getenv("IDLEWATCH_NTFY_SERVER"); server != "" {
		cfg.NtfyServer = server
	}

	for _, flag := range []struct {
		name   string
		target *bool
	}{
		{name: "IDLEWATCH_MOUSE", target: &cfg.MouseTracking},
		{name: "IDLEWATCH_QUIET", target: &cfg.Quiet},
		{name: "IDLEWATCH_DEBUG", target: &cfg.Debug},
	} {
		value := getenv(flag.name)
		if value == "" {
			continue
		}
		b, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("invalid %s value: %q (use true/false)", flag.name, value)
		}
		*flag.target = b
	}

	return nil
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	default:
		return false, fmt.Errorf("not a boolean: %q", value)
	}
}

// splitList splits a comma-separated list, dropping empty entries
func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Validate validates the configuration
func Validate(cfg *Config) error {
	if !inactivity.ValidInactivityLimit(cfg.InactivityLimit) {
		return fmt.Errorf("inactivity_limit must be a positive number of minutes below %.0f, got %v",
			inactivity.MaxInactivityLimit, cfg.InactivityLimit)
	}

	if cfg.SamplingInterval < 0 {
		return fmt.Errorf("sampling_interval must be non-negative")
	}

	for _, kind := range cfg.DisabledEvents {
		if !inactivity.IsKnownKind(kind) {
			return fmt.Errorf("disabled_events: unknown event kind %q", kind)
		}
	}

	if cfg.NtfyTopic != "" && cfg.NtfyServer == "" {
		return fmt.Errorf("ntfy_server is required when ntfy_topic is set")
	}

	return nil
}

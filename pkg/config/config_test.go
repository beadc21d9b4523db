package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envVars = []string{
	"IDLEWATCH_LIMIT",
	"IDLEWATCH_INTERVAL",
	"IDLEWATCH_DISABLED_EVENTS",
	"IDLEWATCH_MOUSE",
	"IDLEWATCH_NTFY_TOPIC",
	"IDLEWATCH_NTFY_SERVER",
	"IDLEWATCH_QUIET",
	"IDLEWATCH_DEBUG",
	"IDLEWATCH_CONFIG",
	"IDLEWATCH_ENV_FILE",
}

// clearEnv blanks every idlewatch variable for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range envVars {
		t.Setenv(name, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.InactivityLimit != 15 {
		t.Errorf("expected InactivityLimit to be 15 but got %v", cfg.InactivityLimit)
	}
	if cfg.SamplingInterval != time.Second {
		t.Errorf("expected SamplingInterval to be 1s but got %v", cfg.SamplingInterval)
	}
	if len(cfg.DisabledEvents) != 0 {
		t.Errorf("expected no disabled events but got %v", cfg.DisabledEvents)
	}
	if cfg.NtfyServer != "https://ntfy.sh" {
		t.Errorf("expected NtfyServer to be https://ntfy.sh but got %s", cfg.NtfyServer)
	}
}

func TestMonitorConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InactivityLimit = 2.5
	cfg.DisabledEvents = []string{"Wheel"}

	mc := cfg.MonitorConfig()
	if mc.InactivityLimit != 2.5 {
		t.Errorf("expected InactivityLimit 2.5 but got %v", mc.InactivityLimit)
	}
	if mc.SamplingInterval != time.Second {
		t.Errorf("expected SamplingInterval 1s but got %v", mc.SamplingInterval)
	}

	// The monitor gets its own copy
	mc.DisabledEvents[0] = "keypress"
	if cfg.DisabledEvents[0] != "Wheel" {
		t.Errorf("expected config to be unaffected but got %v", cfg.DisabledEvents)
	}
}

func TestLoadFromEnv(t *testing.T) {
	tests := []struct {
		name      string
		envVars   map[string]string
		checkFunc func(*testing.T, *Config)
		wantErr   bool
	}{
		{
			name: "valid environment variables",
			envVars: map[string]string{
				"IDLEWATCH_LIMIT":       "0.5",
				"IDLEWATCH_INTERVAL":    "250ms",
				"IDLEWATCH_NTFY_TOPIC":  "test-topic",
				"IDLEWATCH_NTFY_SERVER": "https://test.server",
				"IDLEWATCH_QUIET":       "true",
				"IDLEWATCH_MOUSE":       "1",
				"IDLEWATCH_DEBUG":       "yes",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.InactivityLimit != 0.5 {
					t.Errorf("expected InactivityLimit to be 0.5 but got %v", cfg.InactivityLimit)
				}
				if cfg.SamplingInterval != 250*time.Millisecond {
					t.Errorf("expected SamplingInterval to be 250ms but got %v", cfg.SamplingInterval)
				}
				if cfg.NtfyTopic != "test-topic" {
					t.Errorf("expected NtfyTopic to be test-topic but got %s", cfg.NtfyTopic)
				}
				if cfg.NtfyServer != "https://test.server" {
					t.Errorf("expected NtfyServer to be https://test.server but got %s", cfg.NtfyServer)
				}
				if !cfg.Quiet || !cfg.MouseTracking || !cfg.Debug {
					t.Errorf("expected boolean flags to be set, got quiet=%v mouse=%v debug=%v", cfg.Quiet, cfg.MouseTracking, cfg.Debug)
				}
			},
		},
		{
			name: "disabled events list",
			envVars: map[string]string{
				"IDLEWATCH_DISABLED_EVENTS": " Wheel , keypress ,,",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				expected := []string{"Wheel", "keypress"}
				if len(cfg.DisabledEvents) != len(expected) {
					t.Fatalf("expected %d disabled events but got %v", len(expected), cfg.DisabledEvents)
				}
				for i, kind := range expected {
					if cfg.DisabledEvents[i] != kind {
						t.Errorf("expected disabled event[%d] to be %q but got %q", i, kind, cfg.DisabledEvents[i])
					}
				}
			},
		},
		{
			name: "invalid limit",
			envVars: map[string]string{
				"IDLEWATCH_LIMIT": "soon",
			},
			wantErr: true,
		},
		{
			name: "zero limit",
			envVars: map[string]string{
				"IDLEWATCH_LIMIT": "0",
			},
			wantErr: true,
		},
		{
			name: "invalid interval",
			envVars: map[string]string{
				"IDLEWATCH_INTERVAL": "often",
			},
			wantErr: true,
		},
		{
			name: "unknown disabled event",
			envVars: map[string]string{
				"IDLEWATCH_DISABLED_EVENTS": "wheel,scroll",
			},
			wantErr: true,
		},
		{
			name: "invalid quiet value",
			envVars: map[string]string{
				"IDLEWATCH_QUIET": "maybe",
			},
			wantErr: true,
		},
		{
			name: "boolean variations",
			envVars: map[string]string{
				"IDLEWATCH_QUIET": "no",
				"IDLEWATCH_MOUSE": "TRUE",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.Quiet {
					t.Error("expected Quiet to be false for 'no'")
				}
				if !cfg.MouseTracking {
					t.Error("expected MouseTracking to be true for 'TRUE'")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)

			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			// Set a non-existent config path to prevent loading user's config
			t.Setenv("IDLEWATCH_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.checkFunc != nil {
				tt.checkFunc(t, cfg)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		envVars   map[string]string
		checkFunc func(*testing.T, *Config)
		wantErr   bool
	}{
		{
			name: "valid config file",
			content: `
inactivity_limit: 1
sampling_interval: "2s"
disabled_events:
  - wheel
  - TouchEnd
mouse_tracking: true
ntfy_topic: "file-topic"
ntfy_server: "https://file.server"
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.InactivityLimit != 1 {
					t.Errorf("expected InactivityLimit to be 1 but got %v", cfg.InactivityLimit)
				}
				if cfg.SamplingInterval != 2*time.Second {
					t.Errorf("expected SamplingInterval to be 2s but got %v", cfg.SamplingInterval)
				}
				if len(cfg.DisabledEvents) != 2 || cfg.DisabledEvents[1] != "TouchEnd" {
					t.Errorf("expected disabled events [wheel TouchEnd] but got %v", cfg.DisabledEvents)
				}
				if !cfg.MouseTracking {
					t.Error("expected MouseTracking to be true")
				}
				if cfg.NtfyTopic != "file-topic" {
					t.Errorf("expected NtfyTopic to be file-topic but got %s", cfg.NtfyTopic)
				}
			},
		},
		{
			name:    "environment overrides file",
			content: "inactivity_limit: 1\nntfy_topic: file-topic\n",
			envVars: map[string]string{
				"IDLEWATCH_LIMIT":      "3",
				"IDLEWATCH_NTFY_TOPIC": "env-topic",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.InactivityLimit != 3 {
					t.Errorf("expected InactivityLimit to be 3 but got %v", cfg.InactivityLimit)
				}
				if cfg.NtfyTopic != "env-topic" {
					t.Errorf("expected NtfyTopic to be env-topic but got %s", cfg.NtfyTopic)
				}
			},
		},
		{
			name:    "partial file keeps defaults",
			content: "quiet: true\n",
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.InactivityLimit != 15 {
					t.Errorf("expected default InactivityLimit but got %v", cfg.InactivityLimit)
				}
				if cfg.SamplingInterval != time.Second {
					t.Errorf("expected default SamplingInterval but got %v", cfg.SamplingInterval)
				}
			},
		},
		{
			name:    "invalid yaml",
			content: "invalid: yaml: content:\n  bad indentation",
			wantErr: true,
		},
		{
			name:    "invalid event kind in file",
			content: "disabled_events: [hover]\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)

			configPath := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0600); err != nil {
				t.Fatalf("failed to write config file: %v", err)
			}
			t.Setenv("IDLEWATCH_CONFIG", configPath)

			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.checkFunc != nil {
				tt.checkFunc(t, cfg)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *Config
		wantErr  bool
		errorMsg string
	}{
		{
			name:    "default config",
			cfg:     DefaultConfig(),
			wantErr: false,
		},
		{
			name: "zero limit",
			cfg: &Config{
				InactivityLimit: 0,
			},
			wantErr:  true,
			errorMsg: "inactivity_limit must be a positive number",
		},
		{
			name:     "NaN limit",
			cfg:      &Config{InactivityLimit: math.NaN()},
			wantErr:  true,
			errorMsg: "inactivity_limit",
		},
		{
			name:     "infinite limit",
			cfg:      &Config{InactivityLimit: math.Inf(1)},
			wantErr:  true,
			errorMsg: "inactivity_limit",
		},
		{
			name:     "limit overflowing a duration",
			cfg:      &Config{InactivityLimit: 1e300},
			wantErr:  true,
			errorMsg: "inactivity_limit",
		},
		{
			name:    "largest representable limit",
			cfg:     &Config{InactivityLimit: 153722867},
			wantErr: false,
		},
		{
			name: "negative interval",
			cfg: &Config{
				InactivityLimit:  1,
				SamplingInterval: -time.Second,
			},
			wantErr:  true,
			errorMsg: "must be non-negative",
		},
		{
			name: "case-insensitive event kinds",
			cfg: &Config{
				InactivityLimit: 1,
				DisabledEvents:  []string{"MouseMove", "WHEEL"},
			},
			wantErr: false,
		},
		{
			name: "unknown event kind",
			cfg: &Config{
				InactivityLimit: 1,
				DisabledEvents:  []string{"click"},
			},
			wantErr:  true,
			errorMsg: "unknown event kind",
		},
		{
			name: "topic without server",
			cfg: &Config{
				InactivityLimit: 1,
				NtfyTopic:       "topic",
			},
			wantErr:  true,
			errorMsg: "ntfy_server is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cfg)

			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("expected error containing %q but got %q", tt.errorMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoadRejectsNaNLimit(t *testing.T) {
	clearEnv(t)
	t.Setenv("IDLEWATCH_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("IDLEWATCH_LIMIT", "NaN")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "inactivity_limit") {
		t.Errorf("expected inactivity_limit error but got %v", err)
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("inactivity_limit: 5\nntfy_topic: file-topic\n"), 0600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	envFile := "IDLEWATCH_LIMIT=7\nIDLEWATCH_DISABLED_EVENTS=wheel,keypress\nIDLEWATCH_NTFY_TOPIC=dotenv-topic\n"
	if err := os.WriteFile(filepath.Join(dir, "idlewatch.env"), []byte(envFile), 0600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	t.Setenv("IDLEWATCH_CONFIG", configPath)
	t.Setenv("IDLEWATCH_NTFY_TOPIC", "env-topic")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.InactivityLimit != 7 {
		t.Errorf("expected env file to override InactivityLimit to 7 but got %v", cfg.InactivityLimit)
	}
	if len(cfg.DisabledEvents) != 2 || cfg.DisabledEvents[1] != "keypress" {
		t.Errorf("expected disabled events [wheel keypress] but got %v", cfg.DisabledEvents)
	}
	if cfg.NtfyTopic != "env-topic" {
		t.Errorf("expected environment to win over env file but got %s", cfg.NtfyTopic)
	}
	if os.Getenv("IDLEWATCH_LIMIT") != "" {
		t.Error("env file values leaked into the process environment")
	}
}

func TestLoadFromEnvFile_Invalid(t *testing.T) {
	clearEnv(t)

	envPath := filepath.Join(t.TempDir(), "custom.env")
	if err := os.WriteFile(envPath, []byte("IDLEWATCH_QUIET=maybe\n"), 0600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Setenv("IDLEWATCH_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("IDLEWATCH_ENV_FILE", envPath)

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "IDLEWATCH_QUIET") {
		t.Errorf("expected IDLEWATCH_QUIET error but got %v", err)
	}
}

func TestGetEnvFilePath(t *testing.T) {
	t.Setenv("IDLEWATCH_ENV_FILE", "")
	if got := getEnvFilePath("/etc/idlewatch/config.yaml"); got != "/etc/idlewatch/idlewatch.env" {
		t.Errorf("expected env file next to config but got %q", got)
	}
	if got := getEnvFilePath(""); got != "" {
		t.Errorf("expected no env file without config path but got %q", got)
	}

	t.Setenv("IDLEWATCH_ENV_FILE", "/custom/idle.env")
	if got := getEnvFilePath("/etc/idlewatch/config.yaml"); got != "/custom/idle.env" {
		t.Errorf("expected explicit env file but got %q", got)
	}
}

func TestGetConfigPath(t *testing.T) {
	tests := []struct {
		name        string
		envVars     map[string]string
		wantContain string
	}{
		{
			name: "explicit config path",
			envVars: map[string]string{
				"IDLEWATCH_CONFIG": "/custom/path/config.yaml",
			},
			wantContain: "/custom/path/config.yaml",
		},
		{
			name: "XDG config path",
			envVars: map[string]string{
				"XDG_CONFIG_HOME": "/xdg/config",
			},
			wantContain: "/xdg/config/idlewatch/config.yaml",
		},
		{
			name:        "home directory fallback",
			envVars:     map[string]string{},
			wantContain: ".config/idlewatch/config.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("IDLEWATCH_CONFIG", "")
			t.Setenv("XDG_CONFIG_HOME", "")

			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			path := getConfigPath()
			if !strings.Contains(path, tt.wantContain) {
				t.Errorf("expected path to contain %q but got %q", tt.wantContain, path)
			}
		})
	}
}

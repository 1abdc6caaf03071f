// Package config loads server settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr"`

	// Debug forces debug logging.
	Debug bool `yaml:"debug"`

	// LogLevel is one of error, warn, info, debug, trace.
	LogLevel string `yaml:"log_level"`

	// Backend selects the input backend: "robot" injects through robotgo,
	// "dry" only logs.
	Backend string `yaml:"backend"`

	// Platform overrides host detection for shortcuts: auto, apple or other.
	Platform string `yaml:"platform"`

	// FailSafe aborts input while the pointer rests in a screen corner.
	FailSafe bool `yaml:"failsafe"`

	PauseMs        int `yaml:"pause_ms"`
	ScrollPauseMs  int `yaml:"scroll_pause_ms"`
	DragDurationMs int `yaml:"drag_duration_ms"`

	CORSOrigins []string `yaml:"cors_origins"`

	WebRTC WebRTCConfig `yaml:"webrtc"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type WebRTCConfig struct {
	Enabled    bool     `yaml:"enabled"`
	ICEServers []string `yaml:"ice_servers"`
}

func Default() *Config {
	return &Config{
		Addr:           ":5000",
		LogLevel:       "info",
		Backend:        "robot",
		Platform:       "auto",
		FailSafe:       true,
		PauseMs:        20,
		ScrollPauseMs:  5,
		DragDurationMs: 300,
		CORSOrigins:    []string{"*"},
		WebRTC: WebRTCConfig{
			Enabled:    true,
			ICEServers: []string{"stun:stun.l.google.com:19302"},
		},
		ShutdownTimeout: 5 * time.Second,
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("ADDR"); v != "" {
		c.Addr = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("BACKEND"); v != "" {
		c.Backend = v
	}
	if v := getenv("PLATFORM"); v != "" {
		c.Platform = v
	}
	if v, ok := envBool(getenv("DEBUG")); ok {
		c.Debug = v
	}
	if v, ok := envBool(getenv("FAILSAFE")); ok {
		c.FailSafe = v
	}
}

func envBool(v string) (bool, bool) {
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		v = strings.ToLower(strings.TrimSpace(v))
		return v == "yes" || v == "on", true
	}
	return b, true
}

func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("config: addr is empty")
	}
	switch c.Backend {
	case "robot", "dry":
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	switch c.Platform {
	case "", "auto", "apple", "other":
	default:
		return fmt.Errorf("config: unknown platform %q", c.Platform)
	}
	switch strings.ToLower(c.LogLevel) {
	case "error", "warn", "info", "debug", "trace":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	if c.PauseMs < 0 || c.ScrollPauseMs < 0 || c.DragDurationMs < 0 {
		return errors.New("config: pauses must not be negative")
	}
	return nil
}

func (c *Config) Pause() time.Duration        { return time.Duration(c.PauseMs) * time.Millisecond }
func (c *Config) ScrollPause() time.Duration  { return time.Duration(c.ScrollPauseMs) * time.Millisecond }
func (c *Config) DragDuration() time.Duration { return time.Duration(c.DragDurationMs) * time.Millisecond }

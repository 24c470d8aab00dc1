// Package config loads frontdesk configuration from the platform-native
// backend with FRONTDESK_* environment overrides.
package config

import (
	"log/slog"
	"time"
)

type Config struct {
	Server     ServerConfig
	Ollama     OllamaConfig
	Storage    StorageConfig
	Escalation EscalationConfig
	Notify     NotifyConfig
	Sweep      SweepConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port int
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type StorageConfig struct {
	DataDir string
}

type EscalationConfig struct {
	// Horizon is a duration string; pending requests past it are expired.
	Horizon string
	// HoldingMessage overrides what callers hear on escalation. Empty
	// keeps the built-in message.
	HoldingMessage string
}

type NotifyConfig struct {
	// PollInterval is a duration string for the notification poller.
	PollInterval  string
	RetentionDays int
}

type SweepConfig struct {
	// Interval is a duration string for the timeout sweeper.
	Interval string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4500,
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
			Model:   "tinyllama",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Escalation: EscalationConfig{
			Horizon: "2h",
		},
		Notify: NotifyConfig{
			PollInterval:  "5s",
			RetentionDays: 7,
		},
		Sweep: SweepConfig{
			Interval: "60s",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend and applies
// environment overrides.
//
// On macOS the backend is UserDefaults (domain: com.frontdesk.app).
// On Linux the backend is a JSON file at
// $XDG_CONFIG_HOME/frontdesk/config.json.
//
// Environment variables (FRONTDESK_*) override backend values on all
// platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// HorizonDuration parses the escalation horizon, falling back to two
// hours on a malformed value.
func (c EscalationConfig) HorizonDuration() time.Duration {
	return parseDuration(c.Horizon, 2*time.Hour)
}

// PollDuration parses the notification poll interval, falling back to
// five seconds.
func (c NotifyConfig) PollDuration() time.Duration {
	return parseDuration(c.PollInterval, 5*time.Second)
}

// Retention converts the retention window to a duration.
func (c NotifyConfig) Retention() time.Duration {
	days := c.RetentionDays
	if days <= 0 {
		days = 7
	}
	return time.Duration(days) * 24 * time.Hour
}

// IntervalDuration parses the sweep interval, falling back to a minute.
func (c SweepConfig) IntervalDuration() time.Duration {
	return parseDuration(c.Interval, time.Minute)
}

// SlogLevel maps the configured level name to a slog level, defaulting
// to info for unknown names.
func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

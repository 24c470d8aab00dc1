package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "FRONTDESK_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "ollama.base_url", typ: kString, env: "FRONTDESK_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "ollama.model", typ: kString, env: "FRONTDESK_OLLAMA_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.Model },
	},
	{
		key: "storage.data_dir", typ: kString, env: "FRONTDESK_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "escalation.horizon", typ: kString, env: "FRONTDESK_ESCALATION_HORIZON",
		apply:   func(cfg *Config, v any) { cfg.Escalation.Horizon = v.(string) },
		extract: func(cfg Config) any { return cfg.Escalation.Horizon },
	},
	{
		key: "escalation.holding_message", typ: kString, env: "FRONTDESK_ESCALATION_HOLDING_MESSAGE",
		apply:   func(cfg *Config, v any) { cfg.Escalation.HoldingMessage = v.(string) },
		extract: func(cfg Config) any { return cfg.Escalation.HoldingMessage },
	},
	{
		key: "notify.poll_interval", typ: kString, env: "FRONTDESK_NOTIFY_POLL_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Notify.PollInterval = v.(string) },
		extract: func(cfg Config) any { return cfg.Notify.PollInterval },
	},
	{
		key: "notify.retention_days", typ: kInt, env: "FRONTDESK_NOTIFY_RETENTION_DAYS",
		apply:   func(cfg *Config, v any) { cfg.Notify.RetentionDays = v.(int) },
		extract: func(cfg Config) any { return cfg.Notify.RetentionDays },
	},
	{
		key: "sweep.interval", typ: kString, env: "FRONTDESK_SWEEP_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Sweep.Interval = v.(string) },
		extract: func(cfg Config) any { return cfg.Sweep.Interval },
	},
	{
		key: "log.level", typ: kString, env: "FRONTDESK_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}

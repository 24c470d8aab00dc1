package config

import (
	"fmt"
	"log/slog"
	"testing"
	"time"
)

// mapBackend is an in-memory ConfigBackend for tests.
type mapBackend struct {
	data map[string]any
}

func (b *mapBackend) GetString(key string) (string, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return "", false, nil
	}
	return fmt.Sprintf("%v", v), true, nil
}

func (b *mapBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return 0, false, nil
	}
	i, ok := v.(int)
	if !ok {
		return 0, true, fmt.Errorf("invalid type for %s", key)
	}
	return i, true, nil
}

func (b *mapBackend) SetString(key, val string) error {
	b.data[key] = val
	return nil
}

func (b *mapBackend) SetInt(key string, val int) error {
	b.data[key] = val
	return nil
}

func (b *mapBackend) Delete(key string) error {
	delete(b.data, key)
	return nil
}

func TestDefaults(t *testing.T) {
	cfg, err := loadWith(&mapBackend{data: map[string]any{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4500 {
		t.Errorf("Server.Port = %d, want 4500", cfg.Server.Port)
	}
	if cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("Ollama.BaseURL = %q", cfg.Ollama.BaseURL)
	}
	if cfg.Ollama.Model != "tinyllama" {
		t.Errorf("Ollama.Model = %q", cfg.Ollama.Model)
	}
	if cfg.Escalation.HorizonDuration() != 2*time.Hour {
		t.Errorf("horizon = %v", cfg.Escalation.HorizonDuration())
	}
	if cfg.Notify.PollDuration() != 5*time.Second {
		t.Errorf("poll interval = %v", cfg.Notify.PollDuration())
	}
	if cfg.Notify.Retention() != 7*24*time.Hour {
		t.Errorf("retention = %v", cfg.Notify.Retention())
	}
	if cfg.Sweep.IntervalDuration() != time.Minute {
		t.Errorf("sweep interval = %v", cfg.Sweep.IntervalDuration())
	}
	if cfg.Log.SlogLevel() != slog.LevelInfo {
		t.Errorf("log level = %v", cfg.Log.SlogLevel())
	}
}

func TestBackendValuesApplied(t *testing.T) {
	b := &mapBackend{data: map[string]any{
		"server.port":                8080,
		"ollama.model":               "phi3.5",
		"escalation.horizon":         "30m",
		"escalation.holding_message": "Hold on, checking with a human.",
		"notify.retention_days":      2,
	}}

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Ollama.Model != "phi3.5" {
		t.Errorf("Ollama.Model = %q", cfg.Ollama.Model)
	}
	if cfg.Escalation.HorizonDuration() != 30*time.Minute {
		t.Errorf("horizon = %v", cfg.Escalation.HorizonDuration())
	}
	if cfg.Escalation.HoldingMessage != "Hold on, checking with a human." {
		t.Errorf("holding message = %q", cfg.Escalation.HoldingMessage)
	}
	if cfg.Notify.Retention() != 48*time.Hour {
		t.Errorf("retention = %v", cfg.Notify.Retention())
	}
}

func TestEnvOverridesBackend(t *testing.T) {
	t.Setenv("FRONTDESK_SERVER_PORT", "9000")
	t.Setenv("FRONTDESK_SWEEP_INTERVAL", "10s")

	b := &mapBackend{data: map[string]any{"server.port": 8080}}
	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want env override 9000", cfg.Server.Port)
	}
	if cfg.Sweep.IntervalDuration() != 10*time.Second {
		t.Errorf("sweep interval = %v", cfg.Sweep.IntervalDuration())
	}
}

func TestMalformedDurationFallsBack(t *testing.T) {
	b := &mapBackend{data: map[string]any{"escalation.horizon": "soon"}}
	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Escalation.HorizonDuration() != 2*time.Hour {
		t.Errorf("horizon = %v, want 2h fallback", cfg.Escalation.HorizonDuration())
	}
}

func TestShowAllListsEveryKey(t *testing.T) {
	cfg := defaults()
	infos := ShowAll(cfg)
	if len(infos) != len(specs) {
		t.Fatalf("ShowAll returned %d keys, want %d", len(infos), len(specs))
	}
	for _, info := range infos {
		if info.Key == "" || info.EnvVar == "" {
			t.Errorf("incomplete key info: %+v", info)
		}
	}
}

// fakeKeychain is a test double for the secret store.
type fakeKeychain struct {
	values map[string]string
}

func (f *fakeKeychain) Get(service, account string) (string, error) {
	v, ok := f.values[service+"/"+account]
	if !ok {
		return "", fmt.Errorf("not found")
	}
	return v, nil
}

func (f *fakeKeychain) Set(service, account, value string) error {
	f.values[service+"/"+account] = value
	return nil
}

func TestGetAPITokenGeneratesOnce(t *testing.T) {
	t.Setenv("FRONTDESK_API_TOKEN", "")
	kc := &fakeKeychain{values: map[string]string{}}

	first, err := GetAPIToken(kc)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(first))
	}

	second, err := GetAPIToken(kc)
	if err != nil {
		t.Fatal(err)
	}
	if second != first {
		t.Error("token regenerated instead of reused")
	}
}

func TestGetAPITokenEnvWins(t *testing.T) {
	t.Setenv("FRONTDESK_API_TOKEN", "from-env")
	kc := &fakeKeychain{values: map[string]string{"frontdesk/api_token": "from-store"}}

	token, err := GetAPIToken(kc)
	if err != nil {
		t.Fatal(err)
	}
	if token != "from-env" {
		t.Errorf("token = %q, want env value", token)
	}
}

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sunnylabs/coachd/internal/config"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("COACHD_AI_API_KEY", "test-key")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.AI.APIKey != "test-key" {
		t.Errorf("api key = %q, want the env value", cfg.AI.APIKey)
	}
	if cfg.AI.PrimaryModel != "gpt-5" || cfg.AI.FallbackModel != "gpt-4o" {
		t.Errorf("model defaults = %q/%q", cfg.AI.PrimaryModel, cfg.AI.FallbackModel)
	}
	if cfg.AI.MaxTokens != 80 {
		t.Errorf("max tokens default = %d, want 80", cfg.AI.MaxTokens)
	}
	if cfg.AI.CallTimeout != 8*time.Second {
		t.Errorf("call timeout default = %v, want 8s", cfg.AI.CallTimeout)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("server addr default = %q", cfg.Server.Addr)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level default = %q", cfg.Log.Level)
	}
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("COACHD_AI_API_KEY", "test-key")
	t.Setenv("COACHD_AI_PRIMARY_MODEL", "gpt-5-mini")
	t.Setenv("COACHD_SERVER_ADDR", ":9090")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AI.PrimaryModel != "gpt-5-mini" {
		t.Errorf("primary model = %q, want env override", cfg.AI.PrimaryModel)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("server addr = %q, want env override", cfg.Server.Addr)
	}
}

// Settings that have no useful default must still be reachable through the
// environment alone, with no config file present.
func TestLoad_EnvOnlyKeys(t *testing.T) {
	t.Setenv("COACHD_AI_API_KEY", "test-key")
	t.Setenv("COACHD_AI_GEMINI_API_KEY", "gem-key")
	t.Setenv("COACHD_AI_BASE_URL", "https://proxy.example.com/v1")
	t.Setenv("COACHD_TELEGRAM_TOKEN", "123:abc")
	t.Setenv("COACHD_PROMPT_PATH", "/etc/coachd/prompt.md")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AI.GeminiAPIKey != "gem-key" {
		t.Errorf("gemini api key = %q, want env value", cfg.AI.GeminiAPIKey)
	}
	if cfg.AI.BaseURL != "https://proxy.example.com/v1" {
		t.Errorf("base url = %q, want env value", cfg.AI.BaseURL)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Errorf("telegram token = %q, want env value", cfg.Telegram.Token)
	}
	if cfg.Prompt.Path != "/etc/coachd/prompt.md" {
		t.Errorf("prompt path = %q, want env value", cfg.Prompt.Path)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	t.Setenv("COACHD_AI_API_KEY", "test-key")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "ai:\n  primary_model: gpt-4o\n  fallback_model: gpt-4o-mini\nlog:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AI.PrimaryModel != "gpt-4o" || cfg.AI.FallbackModel != "gpt-4o-mini" {
		t.Errorf("file values not applied: %q/%q", cfg.AI.PrimaryModel, cfg.AI.FallbackModel)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"Missing API key", map[string]string{}},
		{"Bad log level", map[string]string{
			"COACHD_AI_API_KEY": "k",
			"COACHD_LOG_LEVEL":  "loud",
		}},
		{"Token budget too small", map[string]string{
			"COACHD_AI_API_KEY":    "k",
			"COACHD_AI_MAX_TOKENS": "2",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := config.Load(""); err == nil {
				t.Errorf("expected a validation error")
			}
		})
	}
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	t.Setenv("COACHD_AI_API_KEY", "test-key")

	if _, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Errorf("an explicitly named missing config file should fail")
	}
}

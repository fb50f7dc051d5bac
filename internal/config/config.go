// Package config loads and validates application configuration from
// defaults, an optional config.yaml, and COACHD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config defines all runtime settings for the coaching service.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	AI        AIConfig        `mapstructure:"ai"`
	Speech    SpeechConfig    `mapstructure:"speech"`
	Prompt    PromptConfig    `mapstructure:"prompt"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr" validate:"required"`
	AllowedOrigins []string `mapstructure:"allowed_origins" validate:"min=1"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

type AIConfig struct {
	APIKey        string        `mapstructure:"api_key" validate:"required"`
	BaseURL       string        `mapstructure:"base_url" validate:"omitempty,url"`
	GeminiAPIKey  string        `mapstructure:"gemini_api_key"`
	PrimaryModel  string        `mapstructure:"primary_model" validate:"required"`
	FallbackModel string        `mapstructure:"fallback_model" validate:"required"`
	MaxTokens     int           `mapstructure:"max_tokens" validate:"min=16,max=4096"`
	CallTimeout   time.Duration `mapstructure:"call_timeout" validate:"min=1s,max=2m"`
}

type SpeechConfig struct {
	TTSModel string `mapstructure:"tts_model" validate:"required"`
	STTModel string `mapstructure:"stt_model" validate:"required"`
	VoiceEN  string `mapstructure:"voice_en" validate:"required"`
	VoiceVI  string `mapstructure:"voice_vi" validate:"required"`
}

type PromptConfig struct {
	// Path to an external prompt template; empty uses built-in blocks.
	Path string `mapstructure:"path"`
}

type TelegramConfig struct {
	// Token enables the Telegram surface when non-empty.
	Token string `mapstructure:"token"`
}

type SchedulerConfig struct {
	// MaintenanceCron schedules database upkeep; empty disables it.
	MaintenanceCron string `mapstructure:"maintenance_cron"`
}

// Load reads configuration in order: defaults, then the config file at
// path (or ./config.yaml when empty, missing file tolerated), then
// COACHD_* environment variables. The result is validated before return.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("COACHD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; defaults and env cover everything.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", true)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.path", "coachd.db")

	// Keys without a meaningful default still need registering: viper only
	// surfaces env values through Unmarshal for keys it already knows.
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.gemini_api_key", "")
	v.SetDefault("ai.primary_model", "gpt-5")
	v.SetDefault("ai.fallback_model", "gpt-4o")
	v.SetDefault("ai.max_tokens", 80)
	v.SetDefault("ai.call_timeout", 8*time.Second)

	v.SetDefault("speech.tts_model", "gpt-4o-mini-tts")
	v.SetDefault("speech.stt_model", "gpt-4o-mini-transcribe")
	v.SetDefault("speech.voice_en", "alloy")
	v.SetDefault("speech.voice_vi", "coral")

	v.SetDefault("prompt.path", "")
	v.SetDefault("telegram.token", "")

	v.SetDefault("scheduler.maintenance_cron", "0 4 * * *")
}

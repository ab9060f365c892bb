package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

const (
	AuthModeQuery  = "query"
	AuthModeHeader = "header"
)

type Config struct {
	Gemini    GeminiConfig    `toml:"gemini"`
	Memory    MemoryConfig    `toml:"memory"`
	Bot       BotConfig       `toml:"bot"`
	Log       LogConfig       `toml:"log"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

type GeminiConfig struct {
	APIKey          string  `toml:"api_key" env:"GENAI_API_KEY"`
	Model           string  `toml:"model" env:"GEMINI_MODEL"`
	APIVersion      string  `toml:"api_version" env:"GEMINI_API_VERSION"`
	APIBase         string  `toml:"api_base" env:"WANDERBOT_GEMINI_API_BASE"`
	AuthMode        string  `toml:"auth_mode" env:"WANDERBOT_GEMINI_AUTH_MODE"`
	Temperature     float64 `toml:"temperature" env:"WANDERBOT_GEMINI_TEMPERATURE"`
	TopP            float64 `toml:"top_p" env:"WANDERBOT_GEMINI_TOP_P"`
	TimeoutSeconds  int     `toml:"timeout_seconds" env:"WANDERBOT_GEMINI_TIMEOUT_SECONDS"`
	OfflineFallback bool    `toml:"offline_fallback" env:"WANDERBOT_GEMINI_OFFLINE_FALLBACK"`
}

type MemoryConfig struct {
	MaxTokens           int `toml:"max_tokens" env:"WANDERBOT_MEMORY_MAX_TOKENS"`
	TargetContextTokens int `toml:"target_context_tokens" env:"WANDERBOT_MEMORY_TARGET_CONTEXT_TOKENS"`
	SummaryMaxLength    int `toml:"summary_max_length" env:"WANDERBOT_MEMORY_SUMMARY_MAX_LENGTH"`
	CharsPerToken       int `toml:"chars_per_token" env:"WANDERBOT_MEMORY_CHARS_PER_TOKEN"`
}

type BotConfig struct {
	// Profile is a YAML bot profile path; empty selects the built-in WanderBot profile.
	Profile string `toml:"profile" env:"WANDERBOT_BOT_PROFILE"`
}

type LogConfig struct {
	Level  string `toml:"level" env:"WANDERBOT_LOG_LEVEL"`
	Format string `toml:"format" env:"WANDERBOT_LOG_FORMAT"`
}

type TelemetryConfig struct {
	Enabled     bool   `toml:"enabled" env:"WANDERBOT_TELEMETRY_ENABLED"`
	ServiceName string `toml:"service_name" env:"WANDERBOT_TELEMETRY_SERVICE_NAME"`
}

func DefaultConfig() *Config {
	return &Config{
		Gemini: GeminiConfig{
			Model:           "gemini-2.0-flash",
			APIVersion:      "v1beta",
			APIBase:         "https://generativelanguage.googleapis.com",
			AuthMode:        AuthModeQuery,
			Temperature:     0.6,
			TopP:            0.9,
			TimeoutSeconds:  60,
			OfflineFallback: true,
		},
		Memory: MemoryConfig{
			MaxTokens:           6000,
			TargetContextTokens: 3000,
			SummaryMaxLength:    800,
			CharsPerToken:       4,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "wanderbot",
		},
	}
}

// DefaultPath is ~/.wanderbot/config.toml.
func DefaultPath() string {
	return expandHome("~/.wanderbot/config.toml")
}

// LoadConfig layers defaults, the TOML file at path (if present), and the
// environment, in that order.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	path = expandHome(strings.TrimSpace(path))
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err == nil {
			if _, err := toml.Decode(string(data), cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return err
	}

	path = expandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	return os.WriteFile(path, buf.Bytes(), 0600)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	g := c.Gemini
	if strings.TrimSpace(g.Model) == "" {
		errs = append(errs, errors.New("gemini.model is required"))
	}
	if strings.TrimSpace(g.APIVersion) == "" {
		errs = append(errs, errors.New("gemini.api_version is required"))
	}
	if strings.TrimSpace(g.APIBase) == "" {
		errs = append(errs, errors.New("gemini.api_base is required"))
	}
	switch g.AuthMode {
	case AuthModeQuery, AuthModeHeader:
	default:
		errs = append(errs, fmt.Errorf("gemini.auth_mode must be %q or %q, got %q", AuthModeQuery, AuthModeHeader, g.AuthMode))
	}
	if g.Temperature < 0 || g.Temperature > 2 {
		errs = append(errs, fmt.Errorf("gemini.temperature must be within [0, 2], got %v", g.Temperature))
	}
	if g.TopP < 0 || g.TopP > 1 {
		errs = append(errs, fmt.Errorf("gemini.top_p must be within [0, 1], got %v", g.TopP))
	}
	if g.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("gemini.timeout_seconds must be positive, got %d", g.TimeoutSeconds))
	}
	if !g.OfflineFallback && strings.TrimSpace(g.APIKey) == "" {
		errs = append(errs, errors.New("gemini.api_key (or GENAI_API_KEY) is required when gemini.offline_fallback is false"))
	}

	m := c.Memory
	if m.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("memory.max_tokens must be positive, got %d", m.MaxTokens))
	}
	if m.TargetContextTokens <= 0 || m.TargetContextTokens > m.MaxTokens {
		errs = append(errs, fmt.Errorf("memory.target_context_tokens must be within (0, max_tokens], got %d", m.TargetContextTokens))
	}
	if m.SummaryMaxLength <= 0 {
		errs = append(errs, fmt.Errorf("memory.summary_max_length must be positive, got %d", m.SummaryMaxLength))
	}
	if m.CharsPerToken <= 0 {
		errs = append(errs, fmt.Errorf("memory.chars_per_token must be positive, got %d", m.CharsPerToken))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of console, json", c.Log.Format))
	}

	return errors.Join(errs...)
}

// HasAPIKey reports whether live Gemini calls are possible.
func (c *Config) HasAPIKey() bool {
	return strings.TrimSpace(c.Gemini.APIKey) != ""
}

func (c *Config) ProfilePath() string {
	return expandHome(strings.TrimSpace(c.Bot.Profile))
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}

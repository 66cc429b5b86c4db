// Package config loads settings from .env, the environment and an optional
// config file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"dart_screener/pkg/core/ingest"
	"dart_screener/pkg/core/llm"
)

// Config holds every setting. Durations are seconds, rates are percent.
type Config struct {
	DARTAPIKey  string `mapstructure:"DART_API_KEY" validate:"required"`
	ECOSAPIKey  string `mapstructure:"ECOS_API_KEY"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	APITimeout      float64 `mapstructure:"API_TIMEOUT" validate:"gt=0"`
	APIMaxRetries   int     `mapstructure:"API_MAX_RETRIES" validate:"gte=0,lte=10"`
	APIDelay        float64 `mapstructure:"API_DELAY" validate:"gte=0"`
	ParallelWorkers int     `mapstructure:"PARALLEL_WORKERS" validate:"gte=1,lte=64"`

	TaxRate           float64 `mapstructure:"TAX_RATE" validate:"gte=0,lt=100"`
	EquityRiskPremium float64 `mapstructure:"EQUITY_RISK_PREMIUM" validate:"gte=0"`

	LLMProvider   string `mapstructure:"LLM_PROVIDER" validate:"omitempty,oneof=gemini openai"`
	GeminiAPIKey  string `mapstructure:"GEMINI_API_KEY"`
	GeminiModel   string `mapstructure:"GEMINI_MODEL"`
	OpenAIAPIKey  string `mapstructure:"OPENAI_API_KEY"`
	OpenAIModel   string `mapstructure:"OPENAI_MODEL"`
	OpenAIBaseURL string `mapstructure:"OPENAI_BASE_URL" validate:"omitempty,url"`

	LogLevel string `mapstructure:"LOG_LEVEL" validate:"oneof=trace debug info warn error"`
}

var defaults = map[string]interface{}{
	"DART_API_KEY":        "",
	"ECOS_API_KEY":        "",
	"DATABASE_URL":        "",
	"API_TIMEOUT":         30.0,
	"API_MAX_RETRIES":     2,
	"API_DELAY":           1.0,
	"PARALLEL_WORKERS":    9,
	"TAX_RATE":            25.0,
	"EQUITY_RISK_PREMIUM": 5.0,
	"LLM_PROVIDER":        "gemini",
	"GEMINI_API_KEY":      "",
	"GEMINI_MODEL":        llm.DefaultGeminiModel,
	"OPENAI_API_KEY":      "",
	"OPENAI_MODEL":        llm.DefaultOpenAIModel,
	"OPENAI_BASE_URL":     llm.DefaultOpenAIBaseURL,
	"LOG_LEVEL":           "info",
}

// Options select the files Load reads. Both are optional.
type Options struct {
	EnvFile    string // default ".env"
	ConfigFile string // any format viper reads (yaml, toml, json, ...)
}

var validate = validator.New()

// Load reads .env into the process environment (a missing file is only
// logged), then resolves every key from the environment, the config file and
// the defaults, in that order of precedence. The DART key is not required
// here; see RequireDART.
func Load(opts Options, log zerolog.Logger) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn().Str("file", envFile).Msg(".env file not found, using environment variables")
		} else {
			return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
		}
	}

	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.ConfigFile, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := validate.StructExcept(cfg, "DARTAPIKey"); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// RequireDART fails when no DART API key is configured.
func (c *Config) RequireDART() error {
	if err := validate.StructPartial(c, "DARTAPIKey"); err != nil {
		return fmt.Errorf("DART_API_KEY is not set: %w", err)
	}
	return nil
}

// Timeout is the per-request timeout.
func (c *Config) Timeout() time.Duration {
	return seconds(c.APITimeout)
}

// CallDelay is the pause after every successful upstream call.
func (c *Config) CallDelay() time.Duration {
	return seconds(c.APIDelay)
}

// TaxFraction returns the tax rate as a fraction.
func (c *Config) TaxFraction() float64 {
	return c.TaxRate / 100
}

// ClientOptions configures an ingest client from the API settings.
func (c *Config) ClientOptions() []ingest.Option {
	return []ingest.Option{
		ingest.WithTimeout(c.Timeout()),
		ingest.WithMaxRetries(c.APIMaxRetries),
		ingest.WithCallDelay(c.CallDelay()),
	}
}

// LLMSettings returns the provider settings.
func (c *Config) LLMSettings() llm.Settings {
	return llm.Settings{
		Provider:      c.LLMProvider,
		GeminiAPIKey:  c.GeminiAPIKey,
		GeminiModel:   c.GeminiModel,
		OpenAIAPIKey:  c.OpenAIAPIKey,
		OpenAIModel:   c.OpenAIModel,
		OpenAIBaseURL: c.OpenAIBaseURL,
	}
}

// Level parses LogLevel.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnvFile(t *testing.T) Options {
	return Options{EnvFile: filepath.Join(t.TempDir(), "missing.env")}
}

// unset removes key for the duration of the test.
func unset(t *testing.T, key string) {
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"API_TIMEOUT", "API_MAX_RETRIES", "API_DELAY", "PARALLEL_WORKERS", "TAX_RATE", "EQUITY_RISK_PREMIUM", "LLM_PROVIDER", "LOG_LEVEL"} {
		unset(t, k)
	}
	cfg, err := Load(noEnvFile(t), zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Timeout())
	assert.Equal(t, 2, cfg.APIMaxRetries)
	assert.Equal(t, time.Second, cfg.CallDelay())
	assert.Equal(t, 9, cfg.ParallelWorkers)
	assert.Equal(t, 0.25, cfg.TaxFraction())
	assert.Equal(t, 5.0, cfg.EquityRiskPremium)
	assert.Equal(t, "gemini", cfg.LLMProvider)
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
	assert.Len(t, cfg.ClientOptions(), 3)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("API_MAX_RETRIES", "4")
	t.Setenv("API_DELAY", "0.5")
	t.Setenv("TAX_RATE", "22")
	t.Setenv("LLM_PROVIDER", " OpenAI ")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(noEnvFile(t), zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.APIMaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.CallDelay())
	assert.InDelta(t, 0.22, cfg.TaxFraction(), 1e-12)

	s := cfg.LLMSettings()
	assert.Equal(t, "openai", s.Provider)
	assert.Equal(t, "sk-test", s.OpenAIAPIKey)
}

func TestLoad_DotEnvAndConfigFile(t *testing.T) {
	unset(t, "ECOS_API_KEY")
	unset(t, "PARALLEL_WORKERS")
	unset(t, "LOG_LEVEL")

	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("ECOS_API_KEY=from-dotenv\n"), 0o600))
	cfgFile := filepath.Join(dir, "screener.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("PARALLEL_WORKERS: 4\nLOG_LEVEL: DEBUG\n"), 0o600))

	cfg, err := Load(Options{EnvFile: envFile, ConfigFile: cfgFile}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.ECOSAPIKey)
	assert.Equal(t, 4, cfg.ParallelWorkers)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())

	_, err = Load(Options{EnvFile: envFile, ConfigFile: filepath.Join(dir, "nope.yaml")}, zerolog.Nop())
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "claude")
	_, err := Load(noEnvFile(t), zerolog.Nop())
	assert.Error(t, err)

	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("PARALLEL_WORKERS", "0")
	_, err = Load(noEnvFile(t), zerolog.Nop())
	assert.Error(t, err)
}

func TestRequireDART(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.RequireDART())
	cfg.DARTAPIKey = "key"
	assert.NoError(t, cfg.RequireDART())
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "reviews.db", cfg.Store.Path)
	assert.Equal(t, int32(10), cfg.Store.Pool.MaxConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "review-cli/1.0", cfg.Crawl.UserAgent)
	assert.Equal(t, 30, cfg.Crawl.TimeoutSecs)
	assert.Equal(t, 3, cfg.Crawl.MaxRetries)
	assert.InDelta(t, 2, cfg.Crawl.RequestsPerSecond, 0.001)
	assert.Equal(t, 4, cfg.Pipeline.Concurrency)
	assert.InDelta(t, 2, cfg.Pipeline.ModelRate, 0.001)
	assert.Equal(t, 100, cfg.Pipeline.BatchSize)
	assert.Equal(t, int64(1024), cfg.Anthropic.MaxTokens)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/reviews
log:
  level: debug
  format: console
server:
  port: 9090
crawl:
  archives:
    - https://example.com/2024/01/
    - https://example.com/2024/02/
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/reviews", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Len(t, cfg.Crawl.Archives, 2)
	// Defaults still apply for unset values
	assert.Equal(t, 4, cfg.Pipeline.Concurrency)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("REVIEW_STORE_DRIVER", "postgres")
	t.Setenv("REVIEW_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("REVIEW_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.Path = "reviews.db"
	cfg.Pipeline.Concurrency = 4
	cfg.Pipeline.BatchSize = 100
	cfg.Server.Port = 8080
	return cfg
}

func TestValidatePipeline_AllPresent(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = "sk-ant-key"

	assert.NoError(t, cfg.Validate("pipeline"))
}

func TestValidatePipeline_MissingModelKey(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("pipeline")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key or openai.key")
}

func TestValidatePipeline_OpenAIKeyAlone(t *testing.T) {
	cfg := validDefaults()
	cfg.OpenAI.Key = "sk-key"

	assert.NoError(t, cfg.Validate("pipeline"))
}

func TestValidatePipeline_ConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = "sk-ant-key"

	cfg.Pipeline.Concurrency = 0
	err := cfg.Validate("pipeline")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "concurrency must be between 1 and 32")

	cfg.Pipeline.Concurrency = 33
	err = cfg.Validate("pipeline")
	assert.Error(t, err)

	cfg.Pipeline.Concurrency = 32
	assert.NoError(t, cfg.Validate("pipeline"))
}

func TestValidateStore_PostgresNeedsURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"
	cfg.Store.Path = ""

	err := cfg.Validate("migrate")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/reviews"
	assert.NoError(t, cfg.Validate("migrate"))
}

func TestValidateStore_UnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"

	err := cfg.Validate("migrate")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite or postgres")
}

func TestValidateEnrich_NeedsToken(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("enrich")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "tmdb.token is required")

	cfg.TMDB.Token = "tmdb-token"
	assert.NoError(t, cfg.Validate("enrich"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

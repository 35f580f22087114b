package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cinelog/review-cli/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI    OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
	TMDB      TMDBConfig      `yaml:"tmdb" mapstructure:"tmdb"`
	Crawl     CrawlConfig     `yaml:"crawl" mapstructure:"crawl"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Routes    RoutesConfig    `yaml:"routes" mapstructure:"routes"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	// Driver selects the backend: "sqlite" or "postgres".
	Driver string `yaml:"driver" mapstructure:"driver"`
	// Path is the SQLite database file.
	Path string `yaml:"path" mapstructure:"path"`
	// DatabaseURL is the Postgres connection string.
	DatabaseURL string           `yaml:"database_url" mapstructure:"database_url"`
	Pool        store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OpenAIConfig holds OpenAI (or OpenAI-compatible) API settings.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// TMDBConfig holds The Movie Database API settings.
type TMDBConfig struct {
	Token string `yaml:"token" mapstructure:"token"`
}

// CrawlConfig configures the archive crawler.
type CrawlConfig struct {
	Archives          []string `yaml:"archives" mapstructure:"archives"`
	UserAgent         string   `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs       int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries        int      `yaml:"max_retries" mapstructure:"max_retries"`
	RequestsPerSecond float64  `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// PipelineConfig bounds stage concurrency and batching.
type PipelineConfig struct {
	Concurrency int     `yaml:"concurrency" mapstructure:"concurrency"`
	ModelRate   float64 `yaml:"model_rate" mapstructure:"model_rate"`
	BatchSize   int     `yaml:"batch_size" mapstructure:"batch_size"`
}

// RoutesConfig points at the per-task model routing file.
type RoutesConfig struct {
	// Path to a models.yaml routing file; empty means built-in defaults.
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the status server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("REVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "reviews.db")
	v.SetDefault("store.pool.max_conns", 10)
	v.SetDefault("store.pool.min_conns", 2)
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("crawl.user_agent", "review-cli/1.0")
	v.SetDefault("crawl.timeout_secs", 30)
	v.SetDefault("crawl.max_retries", 3)
	v.SetDefault("crawl.requests_per_second", 2)
	v.SetDefault("pipeline.concurrency", 4)
	v.SetDefault("pipeline.model_rate", 2)
	v.SetDefault("pipeline.batch_size", 100)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the fields a command needs are present. Mode names the
// command: "pipeline", "enrich", or "serve".
func (c *Config) Validate(mode string) error {
	var missing []string

	storeOK := func() {
		switch c.Store.Driver {
		case "sqlite":
			if c.Store.Path == "" {
				missing = append(missing, "store.path is required for the sqlite driver")
			}
		case "postgres":
			if c.Store.DatabaseURL == "" {
				missing = append(missing, "store.database_url is required for the postgres driver")
			}
		default:
			missing = append(missing, "store.driver must be sqlite or postgres")
		}
	}

	switch mode {
	case "pipeline":
		storeOK()
		if c.Anthropic.Key == "" && c.OpenAI.Key == "" {
			missing = append(missing, "at least one of anthropic.key or openai.key is required")
		}
		if c.Pipeline.Concurrency < 1 || c.Pipeline.Concurrency > 32 {
			missing = append(missing, "pipeline.concurrency must be between 1 and 32")
		}
		if c.Pipeline.BatchSize < 1 {
			missing = append(missing, "pipeline.batch_size must be > 0")
		}
	case "enrich":
		storeOK()
		if c.TMDB.Token == "" {
			missing = append(missing, "tmdb.token is required")
		}
	case "serve":
		storeOK()
		if c.Server.Port <= 0 {
			missing = append(missing, "server.port must be > 0")
		}
	case "migrate", "status":
		storeOK()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.Errorf("config: invalid configuration:\n  - %s", strings.Join(missing, "\n  - "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

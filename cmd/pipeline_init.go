package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cinelog/review-cli/internal/fetcher"
	"github.com/cinelog/review-cli/internal/llm"
	"github.com/cinelog/review-cli/internal/monitoring"
	"github.com/cinelog/review-cli/internal/pipeline"
	"github.com/cinelog/review-cli/internal/store"
	anthropicpkg "github.com/cinelog/review-cli/pkg/anthropic"
	openaipkg "github.com/cinelog/review-cli/pkg/openai"
	"github.com/cinelog/review-cli/pkg/tmdb"
)

// pipelineEnv holds the initialized store, clients, and pipeline needed by
// the stage commands and the server.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Metrics  *monitoring.Collector
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens the configured database backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.Path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initPipeline sets up the store, model invokers, routing, and clients, and
// builds the Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	policy := llm.DefaultCallPolicy()
	registry := llm.NewRegistry()
	if cfg.Anthropic.Key != "" {
		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		registry.Register("claude", llm.NewAnthropicInvoker(client, cfg.Anthropic.MaxTokens, policy))
	}
	if cfg.OpenAI.Key != "" {
		openaiCfg := openaipkg.DefaultConfig()
		openaiCfg.APIKey = cfg.OpenAI.Key
		openaiCfg.BaseURL = cfg.OpenAI.BaseURL
		client := openaipkg.NewClient(openaiCfg)
		registry.Register("gpt", llm.NewOpenAIInvoker(client, policy))
	}
	if mode == "pipeline" && len(registry.Prefixes()) == 0 {
		_ = st.Close()
		return nil, eris.New("no model providers configured")
	}

	routes := llm.DefaultRoutes()
	if cfg.Routes.Path != "" {
		routes, err = llm.LoadRoutes(cfg.Routes.Path)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
	}

	httpFetcher := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:         cfg.Crawl.UserAgent,
		Timeout:           time.Duration(cfg.Crawl.TimeoutSecs) * time.Second,
		MaxRetries:        cfg.Crawl.MaxRetries,
		RequestsPerSecond: cfg.Crawl.RequestsPerSecond,
	})

	var tmdbClient tmdb.Client
	if cfg.TMDB.Token != "" {
		tmdbClient = tmdb.NewClient(cfg.TMDB.Token)
	} else {
		zap.L().Debug("REVIEW_TMDB_TOKEN not set, enrichment disabled")
	}

	metrics, err := monitoring.NewCollector()
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "init metrics")
	}

	p := pipeline.New(st, registry, routes, httpFetcher, tmdbClient, metrics, pipeline.Options{
		Concurrency: cfg.Pipeline.Concurrency,
		ModelRate:   cfg.Pipeline.ModelRate,
		BatchSize:   cfg.Pipeline.BatchSize,
	})

	zap.L().Info("pipeline initialized",
		zap.String("store", cfg.Store.Driver),
		zap.Strings("providers", registry.Prefixes()),
	)

	return &pipelineEnv{
		Store:    st,
		Pipeline: p,
		Metrics:  metrics,
	}, nil
}

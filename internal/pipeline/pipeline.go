// Package pipeline implements the review ETL stages: crawl, parse, classify,
// clean, link, sentiment, enrich. Each stage is independently runnable and
// idempotent; state lives in the store and stages communicate only through
// page statuses and the append-only LLM result log.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cinelog/review-cli/internal/fetcher"
	"github.com/cinelog/review-cli/internal/llm"
	"github.com/cinelog/review-cli/internal/monitoring"
	"github.com/cinelog/review-cli/internal/store"
	"github.com/cinelog/review-cli/pkg/tmdb"
)

// sourceTable is the table every log row in this pipeline points back to.
const sourceTable = "raw_pages"

// Options bounds stage concurrency and batch sizes.
type Options struct {
	// Concurrency caps simultaneous model invocations within a stage.
	Concurrency int
	// ModelRate paces model invocations across the whole stage.
	ModelRate float64
	// BatchSize caps how many items a stage pulls per run.
	BatchSize int
}

// DefaultOptions returns the stage bounds used in production.
func DefaultOptions() Options {
	return Options{
		Concurrency: 4,
		ModelRate:   2,
		BatchSize:   100,
	}
}

// Pipeline wires the stages to their collaborators.
type Pipeline struct {
	store    store.Store
	registry *llm.Registry
	routes   *llm.Routes
	fetcher  fetcher.Fetcher
	tmdb     tmdb.Client
	metrics  *monitoring.Collector
	opts     Options
	limiter  *rate.Limiter
}

// New creates a Pipeline. tmdbClient and metrics may be nil; the enrich stage
// is skipped without a TMDB client and metrics become no-ops.
func New(st store.Store, registry *llm.Registry, routes *llm.Routes, f fetcher.Fetcher, tmdbClient tmdb.Client, metrics *monitoring.Collector, opts Options) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultOptions().Concurrency
	}
	if opts.ModelRate <= 0 {
		opts.ModelRate = DefaultOptions().ModelRate
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultOptions().BatchSize
	}
	if routes == nil {
		routes = llm.DefaultRoutes()
	}
	return &Pipeline{
		store:    st,
		registry: registry,
		routes:   routes,
		fetcher:  f,
		tmdb:     tmdbClient,
		metrics:  metrics,
		opts:     opts,
		limiter:  rate.NewLimiter(rate.Limit(opts.ModelRate), 1),
	}
}

// Run executes every stage in order. A stage error stops the run; partial
// progress is already persisted and a re-run picks up where it left off.
func (p *Pipeline) Run(ctx context.Context, archiveURLs []string) error {
	stages := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"crawl", func(ctx context.Context) error { return p.Crawl(ctx, archiveURLs) }},
		{"parse", p.Parse},
		{"classify", p.Classify},
		{"clean", p.Clean},
		{"link", p.Link},
		{"sentiment", p.Sentiment},
		{"enrich", p.Enrich},
	}

	for _, stage := range stages {
		start := time.Now()
		zap.L().Info("pipeline: stage starting", zap.String("stage", stage.name))
		if err := stage.fn(ctx); err != nil {
			return eris.Wrapf(err, "pipeline: stage %s", stage.name)
		}
		elapsed := time.Since(start)
		p.metrics.ObserveStage(stage.name, elapsed)
		zap.L().Info("pipeline: stage complete",
			zap.String("stage", stage.name),
			zap.Duration("elapsed", elapsed),
		)
	}
	return nil
}

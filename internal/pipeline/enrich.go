package pipeline

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cinelog/review-cli/internal/model"
)

// enrichConcurrency caps simultaneous TMDB lookups; the API throttles beyond
// a handful of parallel requests.
const enrichConcurrency = 5

// Enrich fetches release year, language, and genre for movies that have no
// metadata yet. A failed lookup marks the movie's linked pages
// enrichment_failed and moves on; one dead movie never aborts the batch.
func (p *Pipeline) Enrich(ctx context.Context) error {
	if p.tmdb == nil {
		zap.L().Info("enrich: no TMDB client configured, skipping")
		return nil
	}

	movies, err := p.store.MoviesMissingMetadata(ctx, p.opts.BatchSize)
	if err != nil {
		return eris.Wrap(err, "enrich: list movies")
	}
	if len(movies) == 0 {
		zap.L().Info("enrich: nothing to enrich")
		return nil
	}

	type outcome struct {
		movie model.Movie
		meta  *tmdbResult
		err   error
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)

	var mu sync.Mutex
	var outcomes []outcome
	for _, movie := range movies {
		g.Go(func() error {
			meta, err := p.tmdb.SearchMovie(gCtx, movie.Title)
			if err == nil && meta == nil {
				err = eris.Errorf("enrich: no TMDB match for %q", movie.Title)
			}
			mu.Lock()
			if err != nil {
				outcomes = append(outcomes, outcome{movie: movie, err: err})
			} else {
				outcomes = append(outcomes, outcome{movie: movie, meta: &tmdbResult{
					releaseYear: meta.ReleaseYear,
					language:    meta.Language,
					genre:       meta.Genre,
				}})
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if err := gCtx.Err(); err != nil {
		return eris.Wrap(err, "enrich: lookups cancelled")
	}

	enriched := 0
	for _, o := range outcomes {
		if o.err != nil {
			zap.L().Warn("enrich: TMDB lookup failed",
				zap.String("movie", o.movie.Title),
				zap.Error(o.err),
			)
			if err := p.store.UpdatePageStatusForMovie(ctx, o.movie.ID, model.StatusEnrichmentFailed); err != nil {
				zap.L().Error("enrich: mark failed pages",
					zap.String("movie", o.movie.Title),
					zap.Error(err),
				)
			}
			continue
		}
		if err := p.store.UpdateMovieMetadata(ctx, o.movie.ID, o.meta.releaseYear, o.meta.language, o.meta.genre); err != nil {
			return eris.Wrapf(err, "enrich: update movie %s", o.movie.Title)
		}
		if err := p.store.UpdatePageStatusForMovie(ctx, o.movie.ID, model.StatusEnriched); err != nil {
			return eris.Wrapf(err, "enrich: mark enriched pages for %s", o.movie.Title)
		}
		enriched++
	}

	zap.L().Info("enrich: complete",
		zap.Int("movies", len(movies)),
		zap.Int("enriched", enriched),
	)
	return nil
}

type tmdbResult struct {
	releaseYear string
	language    string
	genre       string
}

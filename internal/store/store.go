// Package store persists pipeline state: scraped pages, the append-only LLM
// result log, cleaned reviews, and movies. Two backends implement the same
// interface: SQLite for local runs and Postgres for shared deployments.
package store

import (
	"context"

	"github.com/cinelog/review-cli/internal/model"
)

// Store defines the persistence interface for the review pipeline.
type Store interface {
	// Pages
	InsertPages(ctx context.Context, pages []model.ReviewPage) error
	GetPage(ctx context.Context, id string) (*model.ReviewPage, error)
	ListPagesByStatus(ctx context.Context, status model.PageStatus, limit int) ([]model.ReviewPage, error)
	UpdatePageStatuses(ctx context.Context, ids []string, status model.PageStatus) error
	UpdateParsedPage(ctx context.Context, page model.ReviewPage) error
	SetPageFullText(ctx context.Context, id, fullText string) error

	// LLM result log (append-only)
	InsertLLMLogs(ctx context.Context, rows []model.LLMResultRow) error
	LatestAcceptedResults(ctx context.Context, sourceID string, task model.TaskType) ([]model.LLMResultRow, error)
	SourceIDsWithTask(ctx context.Context, task model.TaskType) ([]string, error)

	// Cleaned reviews
	InsertCleanReviews(ctx context.Context, reviews []model.CleanedReview) error
	UpdateCleanReviewStatuses(ctx context.Context, sourceIDs []string, status model.PageStatus) error

	// Movies
	GetMovieByTitle(ctx context.Context, title string) (*model.Movie, error)
	CreateMovie(ctx context.Context, title string) (*model.Movie, error)
	LinkReviewToMovie(ctx context.Context, pageID, movieID string) error
	MoviesMissingMetadata(ctx context.Context, limit int) ([]model.Movie, error)
	UpdateMovieMetadata(ctx context.Context, movieID, releaseYear, language, genre string) error
	UpdatePageStatusForMovie(ctx context.Context, movieID string, status model.PageStatus) error

	// Sentiment
	PagesMissingSentiment(ctx context.Context, limit int) ([]model.ReviewPage, error)
	UpdatePageSentiment(ctx context.Context, id, sentiment string) error

	// Reporting
	CountPagesByStatus(ctx context.Context) (map[model.PageStatus]int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

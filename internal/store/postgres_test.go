package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinelog/review-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func TestPostgresStore_GetPage_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM raw_pages WHERE id = \$1`).
		WithArgs("missing-page").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetPage(context.Background(), "missing-page")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetMovieByTitle_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM movies WHERE title = \$1`).
		WithArgs("Unknown Film").
		WillReturnError(pgx.ErrNoRows)

	m, err := s.GetMovieByTitle(context.Background(), "Unknown Film")
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdatePageSentiment(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE raw_pages SET sentiment = \$1`).
		WithArgs("positive", pgxmock.AnyArg(), "page-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpdatePageSentiment(context.Background(), "page-1", "positive")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdatePageSentiment_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE raw_pages SET sentiment = \$1`).
		WithArgs("negative", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdatePageSentiment(context.Background(), "missing", "negative")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestAcceptedResults(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "source_table", "source_id", "model_name", "task_type",
		"input", "output_raw", "output_parsed", "task_fingerprint", "accepted", "created_at",
	}).
		AddRow("log-1", "raw_pages", "page-1", "claude-haiku", "classify_page",
			[]byte(`{}`), `{"is_film_review":"yes"}`, []byte(`{"is_film_review":"yes"}`), "fp", true, now).
		AddRow("log-2", "raw_pages", "page-1", "gpt-4o-mini", "classify_page",
			[]byte(`{}`), `{"is_film_review":"no"}`, []byte(`{"is_film_review":"no"}`), "fp", true, now)

	mock.ExpectQuery(`SELECT DISTINCT ON \(model_name\)`).
		WithArgs("page-1", "classify_page").
		WillReturnRows(rows)

	got, err := s.LatestAcceptedResults(context.Background(), "page-1", model.TaskClassifyPage)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "claude-haiku", got[0].ModelName)
	assert.Equal(t, "yes", got[0].ParsedFields()["is_film_review"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertLLMLogs_UsesCopy(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"llm_logs"}, []string{
		"id", "source_table", "source_id", "model_name", "task_type",
		"input", "output_raw", "output_parsed", "task_fingerprint", "accepted", "created_at",
	}).WillReturnResult(2)

	err := s.InsertLLMLogs(context.Background(), []model.LLMResultRow{
		{SourceTable: "raw_pages", SourceID: "page-1", ModelName: "claude-haiku", TaskType: model.TaskClassifyPage, Input: []byte(`{}`), OutputRaw: "{}", TaskFingerprint: "fp", Accepted: true},
		{SourceTable: "raw_pages", SourceID: "page-2", ModelName: "claude-haiku", TaskType: model.TaskClassifyPage, Input: []byte(`{}`), OutputRaw: "{}", TaskFingerprint: "fp2", Accepted: false},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertLLMLogs_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	err := s.InsertLLMLogs(context.Background(), nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertCleanReviews_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_clean_reviews"}, []string{
		"id", "source_id", "cleaned_title", "cleaned_short_review",
		"is_title_valid", "is_short_review_valid", "status", "created_at",
	}).WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO "clean_reviews" .+ ON CONFLICT`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	err := s.InsertCleanReviews(context.Background(), []model.CleanedReview{
		{SourceID: "page-1", CleanedTitle: "Heat", CleanedShortReview: "Great.", IsTitleValid: true, IsShortReviewValid: true},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdatePageStatuses_Batch(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE raw_pages SET status = \$1`).
		WithArgs("promoted", pgxmock.AnyArg(), []string{"a", "b"}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	err := s.UpdatePageStatuses(context.Background(), []string{"a", "b"}, model.StatusPromoted)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdatePageStatuses_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	err := s.UpdatePageStatuses(context.Background(), nil, model.StatusPromoted)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountPagesByStatus(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM raw_pages GROUP BY status`).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow("pending", 4).
			AddRow("promoted", 2))

	counts, err := s.CountPagesByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, counts[model.StatusPending])
	assert.Equal(t, 2, counts[model.StatusPromoted])
	assert.NoError(t, mock.ExpectationsWereMet())
}

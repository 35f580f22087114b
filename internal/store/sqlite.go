package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/cinelog/review-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS raw_pages (
	id           TEXT PRIMARY KEY,
	url          TEXT NOT NULL UNIQUE,
	title        TEXT NOT NULL DEFAULT '',
	short_review TEXT NOT NULL DEFAULT '',
	full_text    TEXT NOT NULL DEFAULT '',
	sentiment    TEXT NOT NULL DEFAULT '',
	movie_id     TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'pending',
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS llm_logs (
	id               TEXT PRIMARY KEY,
	source_table     TEXT NOT NULL,
	source_id        TEXT NOT NULL,
	model_name       TEXT NOT NULL,
	task_type        TEXT NOT NULL,
	input            TEXT NOT NULL,
	output_raw       TEXT NOT NULL,
	output_parsed    TEXT,
	task_fingerprint TEXT NOT NULL,
	accepted         INTEGER NOT NULL DEFAULT 0,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS clean_reviews (
	id                    TEXT PRIMARY KEY,
	source_id             TEXT NOT NULL UNIQUE,
	cleaned_title         TEXT NOT NULL,
	cleaned_short_review  TEXT NOT NULL,
	is_title_valid        INTEGER NOT NULL DEFAULT 0,
	is_short_review_valid INTEGER NOT NULL DEFAULT 0,
	status                TEXT NOT NULL DEFAULT 'approved',
	created_at            DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS movies (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL UNIQUE,
	release_year TEXT NOT NULL DEFAULT '',
	language     TEXT NOT NULL DEFAULT '',
	genre        TEXT NOT NULL DEFAULT '',
	enriched     INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_raw_pages_status ON raw_pages(status);
CREATE INDEX IF NOT EXISTS idx_llm_logs_lookup ON llm_logs(source_id, task_type, accepted);
CREATE INDEX IF NOT EXISTS idx_llm_logs_fingerprint ON llm_logs(task_fingerprint);
CREATE INDEX IF NOT EXISTS idx_clean_reviews_status ON clean_reviews(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InsertPages(ctx context.Context, pages []model.ReviewPage) error {
	if len(pages) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin insert pages")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO raw_pages (id, url, title, short_review, full_text, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO NOTHING`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert pages")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, p := range pages {
		id := p.ID
		if id == "" {
			id = uuid.New().String()
		}
		status := p.Status
		if status == "" {
			status = model.StatusPending
		}
		if _, err := stmt.ExecContext(ctx, id, p.URL, p.Title, p.ShortReview, p.FullText, string(status), now, now); err != nil {
			return eris.Wrapf(err, "sqlite: insert page %s", p.URL)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit insert pages")
}

func (s *SQLiteStore) GetPage(ctx context.Context, id string) (*model.ReviewPage, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, url, title, short_review, full_text, sentiment, movie_id, status, created_at, updated_at
		 FROM raw_pages WHERE id = ?`,
		id,
	)
	p, err := scanPage(row)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("page not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get page %s", id)
	}
	return p, nil
}

func (s *SQLiteStore) ListPagesByStatus(ctx context.Context, status model.PageStatus, limit int) ([]model.ReviewPage, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, title, short_review, full_text, sentiment, movie_id, status, created_at, updated_at
		 FROM raw_pages WHERE status = ? ORDER BY created_at LIMIT ?`,
		string(status), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list pages")
	}
	defer rows.Close()

	var pages []model.ReviewPage
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan page")
		}
		pages = append(pages, *p)
	}
	return pages, eris.Wrap(rows.Err(), "sqlite: list pages iterate")
}

func (s *SQLiteStore) UpdatePageStatuses(ctx context.Context, ids []string, status model.PageStatus) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE raw_pages SET status = ?, updated_at = ? WHERE id IN (` + placeholders(len(ids)) + `)`
	args := make([]any, 0, len(ids)+2)
	args = append(args, string(status), time.Now().UTC())
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := s.db.ExecContext(ctx, query, args...)
	return eris.Wrapf(err, "sqlite: update %d page statuses", len(ids))
}

func (s *SQLiteStore) UpdateParsedPage(ctx context.Context, page model.ReviewPage) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE raw_pages SET title = ?, short_review = ?, full_text = ?, status = ?, updated_at = ? WHERE id = ?`,
		page.Title, page.ShortReview, page.FullText, string(model.StatusParsed), time.Now().UTC(), page.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update parsed page %s", page.ID)
	}
	return checkRowsAffected(res, "page", page.ID)
}

func (s *SQLiteStore) SetPageFullText(ctx context.Context, id, fullText string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE raw_pages SET full_text = ?, updated_at = ? WHERE id = ?`,
		fullText, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set page full text %s", id)
	}
	return checkRowsAffected(res, "page", id)
}

func (s *SQLiteStore) InsertLLMLogs(ctx context.Context, logRows []model.LLMResultRow) error {
	if len(logRows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin insert logs")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO llm_logs (id, source_table, source_id, model_name, task_type, input, output_raw, output_parsed, task_fingerprint, accepted, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert logs")
	}
	defer stmt.Close()

	for _, r := range logRows {
		id := r.ID
		if id == "" {
			id = uuid.New().String()
		}
		createdAt := r.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		var parsed any
		if len(r.OutputParsed) > 0 {
			parsed = string(r.OutputParsed)
		}
		if _, err := stmt.ExecContext(ctx,
			id, r.SourceTable, r.SourceID, r.ModelName, string(r.TaskType),
			string(r.Input), r.OutputRaw, parsed, r.TaskFingerprint, r.Accepted, createdAt,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert log for %s/%s", r.SourceID, r.TaskType)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit insert logs")
}

// LatestAcceptedResults returns the most recent accepted row per model for a
// (source_id, task_type) pair, ordered by model name for determinism.
func (s *SQLiteStore) LatestAcceptedResults(ctx context.Context, sourceID string, task model.TaskType) ([]model.LLMResultRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_table, source_id, model_name, task_type, input, output_raw, output_parsed, task_fingerprint, accepted, MAX(created_at) AS created_at
		 FROM llm_logs
		 WHERE source_id = ? AND task_type = ? AND accepted = 1
		 GROUP BY model_name
		 ORDER BY model_name`,
		sourceID, string(task),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: latest results for %s/%s", sourceID, task)
	}
	defer rows.Close()

	var results []model.LLMResultRow
	for rows.Next() {
		r, err := scanLogRow(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan log row")
		}
		results = append(results, *r)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: latest results iterate")
}

func (s *SQLiteStore) SourceIDsWithTask(ctx context.Context, task model.TaskType) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT source_id FROM llm_logs WHERE task_type = ? AND accepted = 1 ORDER BY source_id`,
		string(task),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: source ids for %s", task)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan source id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "sqlite: source ids iterate")
}

func (s *SQLiteStore) InsertCleanReviews(ctx context.Context, reviews []model.CleanedReview) error {
	if len(reviews) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin insert clean reviews")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO clean_reviews (id, source_id, cleaned_title, cleaned_short_review, is_title_valid, is_short_review_valid, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source_id) DO UPDATE SET
			cleaned_title = excluded.cleaned_title,
			cleaned_short_review = excluded.cleaned_short_review,
			is_title_valid = excluded.is_title_valid,
			is_short_review_valid = excluded.is_short_review_valid,
			status = excluded.status`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert clean reviews")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, r := range reviews {
		id := r.ID
		if id == "" {
			id = uuid.New().String()
		}
		status := r.Status
		if status == "" {
			status = model.StatusApproved
		}
		if _, err := stmt.ExecContext(ctx,
			id, r.SourceID, r.CleanedTitle, r.CleanedShortReview, r.IsTitleValid, r.IsShortReviewValid, string(status), now,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert clean review %s", r.SourceID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit insert clean reviews")
}

func (s *SQLiteStore) UpdateCleanReviewStatuses(ctx context.Context, sourceIDs []string, status model.PageStatus) error {
	if len(sourceIDs) == 0 {
		return nil
	}
	query := `UPDATE clean_reviews SET status = ? WHERE source_id IN (` + placeholders(len(sourceIDs)) + `)`
	args := make([]any, 0, len(sourceIDs)+1)
	args = append(args, string(status))
	for _, id := range sourceIDs {
		args = append(args, id)
	}
	_, err := s.db.ExecContext(ctx, query, args...)
	return eris.Wrapf(err, "sqlite: update %d clean review statuses", len(sourceIDs))
}

func (s *SQLiteStore) GetMovieByTitle(ctx context.Context, title string) (*model.Movie, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, release_year, language, genre, enriched, created_at FROM movies WHERE title = ?`,
		title,
	)
	m, err := scanMovie(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get movie %q", title)
	}
	return m, nil
}

func (s *SQLiteStore) CreateMovie(ctx context.Context, title string) (*model.Movie, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	// Races with a concurrent insert of the same title resolve to the
	// existing row.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO movies (id, title, created_at) VALUES (?, ?, ?) ON CONFLICT(title) DO NOTHING`,
		id, title, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: create movie %q", title)
	}
	return s.GetMovieByTitle(ctx, title)
}

func (s *SQLiteStore) LinkReviewToMovie(ctx context.Context, pageID, movieID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE raw_pages SET movie_id = ?, updated_at = ? WHERE id = ?`,
		movieID, time.Now().UTC(), pageID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: link page %s to movie %s", pageID, movieID)
	}
	return checkRowsAffected(res, "page", pageID)
}

func (s *SQLiteStore) MoviesMissingMetadata(ctx context.Context, limit int) ([]model.Movie, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, release_year, language, genre, enriched, created_at
		 FROM movies WHERE enriched = 0 ORDER BY created_at LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: movies missing metadata")
	}
	defer rows.Close()

	var movies []model.Movie
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan movie")
		}
		movies = append(movies, *m)
	}
	return movies, eris.Wrap(rows.Err(), "sqlite: movies iterate")
}

func (s *SQLiteStore) UpdateMovieMetadata(ctx context.Context, movieID, releaseYear, language, genre string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE movies SET release_year = ?, language = ?, genre = ?, enriched = 1 WHERE id = ?`,
		releaseYear, language, genre, movieID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update movie metadata %s", movieID)
	}
	return checkRowsAffected(res, "movie", movieID)
}

func (s *SQLiteStore) UpdatePageStatusForMovie(ctx context.Context, movieID string, status model.PageStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE raw_pages SET status = ?, updated_at = ? WHERE movie_id = ? AND status = ?`,
		string(status), time.Now().UTC(), movieID, string(model.StatusApproved),
	)
	return eris.Wrapf(err, "sqlite: update page status for movie %s", movieID)
}

func (s *SQLiteStore) PagesMissingSentiment(ctx context.Context, limit int) ([]model.ReviewPage, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, title, short_review, full_text, sentiment, movie_id, status, created_at, updated_at
		 FROM raw_pages WHERE status IN (?, ?) AND sentiment = '' ORDER BY created_at LIMIT ?`,
		string(model.StatusPromoted), string(model.StatusApproved), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: pages missing sentiment")
	}
	defer rows.Close()

	var pages []model.ReviewPage
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan page")
		}
		pages = append(pages, *p)
	}
	return pages, eris.Wrap(rows.Err(), "sqlite: pages iterate")
}

func (s *SQLiteStore) UpdatePageSentiment(ctx context.Context, id, sentiment string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE raw_pages SET sentiment = ?, updated_at = ? WHERE id = ?`,
		sentiment, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update sentiment %s", id)
	}
	return checkRowsAffected(res, "page", id)
}

func (s *SQLiteStore) CountPagesByStatus(ctx context.Context) (map[model.PageStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM raw_pages GROUP BY status`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count pages by status")
	}
	defer rows.Close()

	counts := make(map[model.PageStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan status count")
		}
		counts[model.PageStatus(status)] = n
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: counts iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanPage(row scannable) (*model.ReviewPage, error) {
	var p model.ReviewPage
	var status string
	err := row.Scan(&p.ID, &p.URL, &p.Title, &p.ShortReview, &p.FullText, &p.Sentiment, &p.MovieID, &status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = model.PageStatus(status)
	return &p, nil
}

func scanLogRow(row scannable) (*model.LLMResultRow, error) {
	var r model.LLMResultRow
	var taskType, input string
	var parsed sql.NullString
	err := row.Scan(&r.ID, &r.SourceTable, &r.SourceID, &r.ModelName, &taskType, &input, &r.OutputRaw, &parsed, &r.TaskFingerprint, &r.Accepted, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.TaskType = model.TaskType(taskType)
	r.Input = []byte(input)
	if parsed.Valid {
		r.OutputParsed = []byte(parsed.String)
	}
	return &r, nil
}

func scanMovie(row scannable) (*model.Movie, error) {
	var m model.Movie
	err := row.Scan(&m.ID, &m.Title, &m.ReleaseYear, &m.Language, &m.Genre, &m.Enriched, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/cinelog/review-cli/internal/db"
	"github.com/cinelog/review-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hottest store operations.
var preparedStatements = map[string]string{
	"get_page":          `SELECT id, url, title, short_review, full_text, sentiment, movie_id, status, created_at, updated_at FROM raw_pages WHERE id = $1`,
	"update_sentiment":  `UPDATE raw_pages SET sentiment = $1, updated_at = $2 WHERE id = $3`,
	"link_movie":        `UPDATE raw_pages SET movie_id = $1, updated_at = $2 WHERE id = $3`,
	"get_movie":         `SELECT id, title, release_year, language, genre, enriched, created_at FROM movies WHERE title = $1`,
	"latest_accepted": `SELECT DISTINCT ON (model_name)
		id, source_table, source_id, model_name, task_type, input, output_raw, output_parsed, task_fingerprint, accepted, created_at
		FROM llm_logs WHERE source_id = $1 AND task_type = $2 AND accepted
		ORDER BY model_name, created_at DESC`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS raw_pages (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	url          TEXT NOT NULL UNIQUE,
	title        TEXT NOT NULL DEFAULT '',
	short_review TEXT NOT NULL DEFAULT '',
	full_text    TEXT NOT NULL DEFAULT '',
	sentiment    TEXT NOT NULL DEFAULT '',
	movie_id     TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'pending',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS llm_logs (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source_table     TEXT NOT NULL,
	source_id        TEXT NOT NULL,
	model_name       TEXT NOT NULL,
	task_type        TEXT NOT NULL,
	input            JSONB NOT NULL,
	output_raw       TEXT NOT NULL,
	output_parsed    JSONB,
	task_fingerprint TEXT NOT NULL,
	accepted         BOOLEAN NOT NULL DEFAULT false,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS clean_reviews (
	id                    TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source_id             TEXT NOT NULL UNIQUE,
	cleaned_title         TEXT NOT NULL,
	cleaned_short_review  TEXT NOT NULL,
	is_title_valid        BOOLEAN NOT NULL DEFAULT false,
	is_short_review_valid BOOLEAN NOT NULL DEFAULT false,
	status                TEXT NOT NULL DEFAULT 'approved',
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS movies (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	title        TEXT NOT NULL UNIQUE,
	release_year TEXT NOT NULL DEFAULT '',
	language     TEXT NOT NULL DEFAULT '',
	genre        TEXT NOT NULL DEFAULT '',
	enriched     BOOLEAN NOT NULL DEFAULT false,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_raw_pages_status ON raw_pages(status);
CREATE INDEX IF NOT EXISTS idx_llm_logs_lookup ON llm_logs(source_id, task_type, accepted);
CREATE INDEX IF NOT EXISTS idx_llm_logs_fingerprint ON llm_logs(task_fingerprint);
CREATE INDEX IF NOT EXISTS idx_clean_reviews_status ON clean_reviews(status);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) InsertPages(ctx context.Context, pages []model.ReviewPage) error {
	if len(pages) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([][]any, 0, len(pages))
	for _, p := range pages {
		id := p.ID
		if id == "" {
			id = uuid.New().String()
		}
		status := p.Status
		if status == "" {
			status = model.StatusPending
		}
		rows = append(rows, []any{id, p.URL, p.Title, p.ShortReview, p.FullText, string(status), now, now})
	}
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "raw_pages",
		Columns:      []string{"id", "url", "title", "short_review", "full_text", "status", "created_at", "updated_at"},
		ConflictKeys: []string{"url"},
		// Re-crawled pages keep their id, body, and pipeline status.
		UpdateCols: []string{"updated_at"},
	}, rows)
	return eris.Wrap(err, "postgres: insert pages")
}

func (s *PostgresStore) GetPage(ctx context.Context, id string) (*model.ReviewPage, error) {
	p, err := scanPgPage(s.pool.QueryRow(ctx,
		`SELECT id, url, title, short_review, full_text, sentiment, movie_id, status, created_at, updated_at FROM raw_pages WHERE id = $1`,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("page not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get page %s", id)
	}
	return p, nil
}

func (s *PostgresStore) ListPagesByStatus(ctx context.Context, status model.PageStatus, limit int) ([]model.ReviewPage, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, url, title, short_review, full_text, sentiment, movie_id, status, created_at, updated_at
		 FROM raw_pages WHERE status = $1 ORDER BY created_at LIMIT $2`,
		string(status), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list pages")
	}
	defer rows.Close()
	return collectPages(rows)
}

func (s *PostgresStore) UpdatePageStatuses(ctx context.Context, ids []string, status model.PageStatus) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE raw_pages SET status = $1, updated_at = $2 WHERE id = ANY($3)`,
		string(status), time.Now().UTC(), ids,
	)
	return eris.Wrapf(err, "postgres: update %d page statuses", len(ids))
}

func (s *PostgresStore) UpdateParsedPage(ctx context.Context, page model.ReviewPage) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE raw_pages SET title = $1, short_review = $2, full_text = $3, status = $4, updated_at = $5 WHERE id = $6`,
		page.Title, page.ShortReview, page.FullText, string(model.StatusParsed), time.Now().UTC(), page.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update parsed page %s", page.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("page not found: %s", page.ID)
	}
	return nil
}

func (s *PostgresStore) SetPageFullText(ctx context.Context, id, fullText string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE raw_pages SET full_text = $1, updated_at = $2 WHERE id = $3`,
		fullText, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set page full text %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("page not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) InsertLLMLogs(ctx context.Context, logRows []model.LLMResultRow) error {
	if len(logRows) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(logRows))
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
			parsed = []byte(r.OutputParsed)
		}
		rows = append(rows, []any{
			id, r.SourceTable, r.SourceID, r.ModelName, string(r.TaskType),
			[]byte(r.Input), r.OutputRaw, parsed, r.TaskFingerprint, r.Accepted, createdAt,
		})
	}
	_, err := db.CopyFrom(ctx, s.pool, "llm_logs",
		[]string{"id", "source_table", "source_id", "model_name", "task_type", "input", "output_raw", "output_parsed", "task_fingerprint", "accepted", "created_at"},
		rows,
	)
	return eris.Wrap(err, "postgres: insert llm logs")
}

// LatestAcceptedResults returns the most recent accepted row per model for a
// (source_id, task_type) pair, ordered by model name for determinism.
func (s *PostgresStore) LatestAcceptedResults(ctx context.Context, sourceID string, task model.TaskType) ([]model.LLMResultRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT ON (model_name)
			id, source_table, source_id, model_name, task_type, input, output_raw, output_parsed, task_fingerprint, accepted, created_at
		 FROM llm_logs WHERE source_id = $1 AND task_type = $2 AND accepted
		 ORDER BY model_name, created_at DESC`,
		sourceID, string(task),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: latest results for %s/%s", sourceID, task)
	}
	defer rows.Close()

	var results []model.LLMResultRow
	for rows.Next() {
		var r model.LLMResultRow
		var taskType string
		var input, parsed []byte
		if err := rows.Scan(&r.ID, &r.SourceTable, &r.SourceID, &r.ModelName, &taskType,
			&input, &r.OutputRaw, &parsed, &r.TaskFingerprint, &r.Accepted, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan log row")
		}
		r.TaskType = model.TaskType(taskType)
		r.Input = input
		r.OutputParsed = parsed
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "postgres: latest results iterate")
}

func (s *PostgresStore) SourceIDsWithTask(ctx context.Context, task model.TaskType) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT source_id FROM llm_logs WHERE task_type = $1 AND accepted ORDER BY source_id`,
		string(task),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: source ids for %s", task)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan source id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "postgres: source ids iterate")
}

func (s *PostgresStore) InsertCleanReviews(ctx context.Context, reviews []model.CleanedReview) error {
	if len(reviews) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([][]any, 0, len(reviews))
	for _, r := range reviews {
		id := r.ID
		if id == "" {
			id = uuid.New().String()
		}
		status := r.Status
		if status == "" {
			status = model.StatusApproved
		}
		rows = append(rows, []any{id, r.SourceID, r.CleanedTitle, r.CleanedShortReview, r.IsTitleValid, r.IsShortReviewValid, string(status), now})
	}
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "clean_reviews",
		Columns:      []string{"id", "source_id", "cleaned_title", "cleaned_short_review", "is_title_valid", "is_short_review_valid", "status", "created_at"},
		ConflictKeys: []string{"source_id"},
		UpdateCols:   []string{"cleaned_title", "cleaned_short_review", "is_title_valid", "is_short_review_valid", "status"},
	}, rows)
	return eris.Wrap(err, "postgres: insert clean reviews")
}

func (s *PostgresStore) UpdateCleanReviewStatuses(ctx context.Context, sourceIDs []string, status model.PageStatus) error {
	if len(sourceIDs) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE clean_reviews SET status = $1 WHERE source_id = ANY($2)`,
		string(status), sourceIDs,
	)
	return eris.Wrapf(err, "postgres: update %d clean review statuses", len(sourceIDs))
}

func (s *PostgresStore) GetMovieByTitle(ctx context.Context, title string) (*model.Movie, error) {
	var m model.Movie
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, release_year, language, genre, enriched, created_at FROM movies WHERE title = $1`,
		title,
	).Scan(&m.ID, &m.Title, &m.ReleaseYear, &m.Language, &m.Genre, &m.Enriched, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get movie %q", title)
	}
	return &m, nil
}

func (s *PostgresStore) CreateMovie(ctx context.Context, title string) (*model.Movie, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	// Races with a concurrent insert of the same title resolve to the
	// existing row.
	_, err := s.pool.Exec(ctx,
		`INSERT INTO movies (id, title, created_at) VALUES ($1, $2, $3) ON CONFLICT (title) DO NOTHING`,
		id, title, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: create movie %q", title)
	}
	return s.GetMovieByTitle(ctx, title)
}

func (s *PostgresStore) LinkReviewToMovie(ctx context.Context, pageID, movieID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE raw_pages SET movie_id = $1, updated_at = $2 WHERE id = $3`,
		movieID, time.Now().UTC(), pageID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: link page %s to movie %s", pageID, movieID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("page not found: %s", pageID)
	}
	return nil
}

func (s *PostgresStore) MoviesMissingMetadata(ctx context.Context, limit int) ([]model.Movie, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, release_year, language, genre, enriched, created_at
		 FROM movies WHERE NOT enriched ORDER BY created_at LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: movies missing metadata")
	}
	defer rows.Close()

	var movies []model.Movie
	for rows.Next() {
		var m model.Movie
		if err := rows.Scan(&m.ID, &m.Title, &m.ReleaseYear, &m.Language, &m.Genre, &m.Enriched, &m.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan movie")
		}
		movies = append(movies, m)
	}
	return movies, eris.Wrap(rows.Err(), "postgres: movies iterate")
}

func (s *PostgresStore) UpdateMovieMetadata(ctx context.Context, movieID, releaseYear, language, genre string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE movies SET release_year = $1, language = $2, genre = $3, enriched = true WHERE id = $4`,
		releaseYear, language, genre, movieID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update movie metadata %s", movieID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("movie not found: %s", movieID)
	}
	return nil
}

func (s *PostgresStore) UpdatePageStatusForMovie(ctx context.Context, movieID string, status model.PageStatus) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE raw_pages SET status = $1, updated_at = $2 WHERE movie_id = $3 AND status = $4`,
		string(status), time.Now().UTC(), movieID, string(model.StatusApproved),
	)
	return eris.Wrapf(err, "postgres: update page status for movie %s", movieID)
}

func (s *PostgresStore) PagesMissingSentiment(ctx context.Context, limit int) ([]model.ReviewPage, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, url, title, short_review, full_text, sentiment, movie_id, status, created_at, updated_at
		 FROM raw_pages WHERE status = ANY($1) AND sentiment = '' ORDER BY created_at LIMIT $2`,
		[]string{string(model.StatusPromoted), string(model.StatusApproved)}, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: pages missing sentiment")
	}
	defer rows.Close()
	return collectPages(rows)
}

func (s *PostgresStore) UpdatePageSentiment(ctx context.Context, id, sentiment string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE raw_pages SET sentiment = $1, updated_at = $2 WHERE id = $3`,
		sentiment, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update sentiment %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("page not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) CountPagesByStatus(ctx context.Context) (map[model.PageStatus]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM raw_pages GROUP BY status`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count pages by status")
	}
	defer rows.Close()

	counts := make(map[model.PageStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan status count")
		}
		counts[model.PageStatus(status)] = n
	}
	return counts, eris.Wrap(rows.Err(), "postgres: counts iterate")
}

// helpers

func scanPgPage(row pgx.Row) (*model.ReviewPage, error) {
	var p model.ReviewPage
	var status string
	err := row.Scan(&p.ID, &p.URL, &p.Title, &p.ShortReview, &p.FullText, &p.Sentiment, &p.MovieID, &status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = model.PageStatus(status)
	return &p, nil
}

func collectPages(rows pgx.Rows) ([]model.ReviewPage, error) {
	var pages []model.ReviewPage
	for rows.Next() {
		p, err := scanPgPage(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan page")
		}
		pages = append(pages, *p)
	}
	return pages, eris.Wrap(rows.Err(), "postgres: pages iterate")
}

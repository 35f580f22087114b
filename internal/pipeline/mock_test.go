package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cinelog/review-cli/internal/model"
	"github.com/cinelog/review-cli/pkg/tmdb"
)

// --- Store mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) InsertPages(ctx context.Context, pages []model.ReviewPage) error {
	return m.Called(ctx, pages).Error(0)
}

func (m *mockStore) GetPage(ctx context.Context, id string) (*model.ReviewPage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReviewPage), args.Error(1)
}

func (m *mockStore) ListPagesByStatus(ctx context.Context, status model.PageStatus, limit int) ([]model.ReviewPage, error) {
	args := m.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ReviewPage), args.Error(1)
}

func (m *mockStore) UpdatePageStatuses(ctx context.Context, ids []string, status model.PageStatus) error {
	return m.Called(ctx, ids, status).Error(0)
}

func (m *mockStore) UpdateParsedPage(ctx context.Context, page model.ReviewPage) error {
	return m.Called(ctx, page).Error(0)
}

func (m *mockStore) SetPageFullText(ctx context.Context, id, fullText string) error {
	return m.Called(ctx, id, fullText).Error(0)
}

func (m *mockStore) InsertLLMLogs(ctx context.Context, rows []model.LLMResultRow) error {
	return m.Called(ctx, rows).Error(0)
}

func (m *mockStore) LatestAcceptedResults(ctx context.Context, sourceID string, task model.TaskType) ([]model.LLMResultRow, error) {
	args := m.Called(ctx, sourceID, task)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.LLMResultRow), args.Error(1)
}

func (m *mockStore) SourceIDsWithTask(ctx context.Context, task model.TaskType) ([]string, error) {
	args := m.Called(ctx, task)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockStore) InsertCleanReviews(ctx context.Context, reviews []model.CleanedReview) error {
	return m.Called(ctx, reviews).Error(0)
}

func (m *mockStore) UpdateCleanReviewStatuses(ctx context.Context, sourceIDs []string, status model.PageStatus) error {
	return m.Called(ctx, sourceIDs, status).Error(0)
}

func (m *mockStore) GetMovieByTitle(ctx context.Context, title string) (*model.Movie, error) {
	args := m.Called(ctx, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Movie), args.Error(1)
}

func (m *mockStore) CreateMovie(ctx context.Context, title string) (*model.Movie, error) {
	args := m.Called(ctx, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Movie), args.Error(1)
}

func (m *mockStore) LinkReviewToMovie(ctx context.Context, pageID, movieID string) error {
	return m.Called(ctx, pageID, movieID).Error(0)
}

func (m *mockStore) MoviesMissingMetadata(ctx context.Context, limit int) ([]model.Movie, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Movie), args.Error(1)
}

func (m *mockStore) UpdateMovieMetadata(ctx context.Context, movieID, releaseYear, language, genre string) error {
	return m.Called(ctx, movieID, releaseYear, language, genre).Error(0)
}

func (m *mockStore) UpdatePageStatusForMovie(ctx context.Context, movieID string, status model.PageStatus) error {
	return m.Called(ctx, movieID, status).Error(0)
}

func (m *mockStore) PagesMissingSentiment(ctx context.Context, limit int) ([]model.ReviewPage, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ReviewPage), args.Error(1)
}

func (m *mockStore) UpdatePageSentiment(ctx context.Context, id, sentiment string) error {
	return m.Called(ctx, id, sentiment).Error(0)
}

func (m *mockStore) CountPagesByStatus(ctx context.Context) (map[model.PageStatus]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[model.PageStatus]int), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

// --- TMDB mock ---

type mockTMDBClient struct {
	mock.Mock
}

func (m *mockTMDBClient) SearchMovie(ctx context.Context, title string) (*tmdb.Metadata, error) {
	args := m.Called(ctx, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tmdb.Metadata), args.Error(1)
}

// --- Fetcher mock ---

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

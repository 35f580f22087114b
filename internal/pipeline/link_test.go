package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cinelog/review-cli/internal/model"
)

func TestLink_CreatesMovieWhenMissing(t *testing.T) {
	st := &mockStore{}
	inv := &scriptedInvoker{responses: map[string]string{
		"gpt-4o-mini": `"Jigarthanda DoubleX"`,
	}}
	p := testPipeline(st, inv)

	page := model.ReviewPage{ID: "page-1", Title: "Jigarthanda DoubleX review", Status: model.StatusApproved}
	st.On("ListPagesByStatus", mock.Anything, model.StatusApproved, 50).Return([]model.ReviewPage{page}, nil)
	st.On("GetMovieByTitle", mock.Anything, "Jigarthanda DoubleX").Return(nil, nil)
	st.On("CreateMovie", mock.Anything, "Jigarthanda DoubleX").Return(&model.Movie{ID: "movie-1", Title: "Jigarthanda DoubleX"}, nil)
	st.On("LinkReviewToMovie", mock.Anything, "page-1", "movie-1").Return(nil)
	st.On("InsertLLMLogs", mock.Anything, mock.MatchedBy(func(rows []model.LLMResultRow) bool {
		return len(rows) == 1 && rows[0].TaskType == model.TaskExtractMovieTitle
	})).Return(nil)

	require.NoError(t, p.Link(context.Background()))
	st.AssertExpectations(t)
}

func TestLink_ReusesExistingMovie(t *testing.T) {
	st := &mockStore{}
	inv := &scriptedInvoker{responses: map[string]string{
		"gpt-4o-mini": `{"film_name": "Heat"}`,
	}}
	p := testPipeline(st, inv)

	page := model.ReviewPage{ID: "page-2", Title: "Heat revisited", Status: model.StatusApproved}
	st.On("ListPagesByStatus", mock.Anything, model.StatusApproved, 50).Return([]model.ReviewPage{page}, nil)
	st.On("GetMovieByTitle", mock.Anything, "Heat").Return(&model.Movie{ID: "movie-7", Title: "Heat"}, nil)
	st.On("LinkReviewToMovie", mock.Anything, "page-2", "movie-7").Return(nil)
	st.On("InsertLLMLogs", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, p.Link(context.Background()))
	st.AssertExpectations(t)
	st.AssertNotCalled(t, "CreateMovie", mock.Anything, mock.Anything)
}

func TestLink_SkipsAlreadyLinkedAndUnextractable(t *testing.T) {
	st := &mockStore{}
	inv := &scriptedInvoker{responses: map[string]string{
		"gpt-4o-mini": `""`,
	}}
	p := testPipeline(st, inv)

	pages := []model.ReviewPage{
		{ID: "page-3", Title: "already linked", MovieID: "movie-9", Status: model.StatusApproved},
		{ID: "page-4", Title: "untitled musings", Status: model.StatusApproved},
	}
	st.On("ListPagesByStatus", mock.Anything, model.StatusApproved, 50).Return(pages, nil)
	st.On("InsertLLMLogs", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, p.Link(context.Background()))
	// Only the unlinked page reaches the model, and an empty answer links nothing.
	assert.Len(t, inv.calls, 1)
	st.AssertNotCalled(t, "LinkReviewToMovie", mock.Anything, mock.Anything, mock.Anything)
}

func TestExtractedTitle(t *testing.T) {
	assert.Equal(t, "Heat", extractedTitle(acceptedRow("p", "m", model.TaskExtractMovieTitle, `"Heat"`)))
	assert.Equal(t, "Heat", extractedTitle(acceptedRow("p", "m", model.TaskExtractMovieTitle, `{"film_name": " Heat "}`)))
	assert.Equal(t, "", extractedTitle(acceptedRow("p", "m", model.TaskExtractMovieTitle, `""`)))
	assert.Equal(t, "", extractedTitle(acceptedRow("p", "m", model.TaskExtractMovieTitle, `123`)))
}

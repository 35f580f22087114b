package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cinelog/review-cli/internal/model"
)

func TestRun_AllStagesOnEmptyStore(t *testing.T) {
	st := &mockStore{}
	p := testPipeline(st, &scriptedInvoker{})

	st.On("ListPagesByStatus", mock.Anything, model.StatusPending, 50).Return([]model.ReviewPage{}, nil)
	st.On("ListPagesByStatus", mock.Anything, model.StatusParsed, 50).Return([]model.ReviewPage{}, nil)
	st.On("ListPagesByStatus", mock.Anything, model.StatusPromoted, 50).Return([]model.ReviewPage{}, nil)
	st.On("ListPagesByStatus", mock.Anything, model.StatusApproved, 50).Return([]model.ReviewPage{}, nil)
	st.On("PagesMissingSentiment", mock.Anything, 50).Return([]model.ReviewPage{}, nil)
	st.On("InsertLLMLogs", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, p.Run(context.Background(), nil))
	st.AssertExpectations(t)
}

func TestRun_StageErrorNamesStage(t *testing.T) {
	st := &mockStore{}
	p := testPipeline(st, &scriptedInvoker{})

	st.On("ListPagesByStatus", mock.Anything, model.StatusPending, 50).Return(nil, eris.New("disk full"))

	err := p.Run(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage parse")
	// Later stages never run once one fails.
	st.AssertNotCalled(t, "ListPagesByStatus", mock.Anything, model.StatusParsed, 50)
}

func TestOptionsDefaults(t *testing.T) {
	p := New(&mockStore{}, nil, nil, nil, nil, nil, Options{})
	assert.Equal(t, DefaultOptions(), p.opts)
}

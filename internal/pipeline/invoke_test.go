package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinelog/review-cli/internal/llm"
	"github.com/cinelog/review-cli/internal/model"
)

func TestInvokeAndLog_AcceptedRow(t *testing.T) {
	inv := &scriptedInvoker{responses: map[string]string{
		"claude-haiku": `{"is_film_review": true}`,
	}}
	p := testPipeline(&mockStore{}, inv)

	row, err := p.invokeAndLog(context.Background(), "claude-haiku", model.TaskClassifyPage, "page-1", "sys", "user")
	require.NoError(t, err)
	assert.True(t, row.Accepted)
	assert.Equal(t, "page-1", row.SourceID)
	assert.Equal(t, sourceTable, row.SourceTable)
	assert.Equal(t, llm.Fingerprint(model.TaskClassifyPage, "page-1"), row.TaskFingerprint)
	assert.Equal(t, map[string]any{"is_film_review": true}, row.ParsedFields())
}

func TestInvokeAndLog_ProviderErrorBecomesRejectedRow(t *testing.T) {
	inv := &scriptedInvoker{errs: map[string]error{
		"claude-haiku": eris.New("upstream 503"),
	}}
	p := testPipeline(&mockStore{}, inv)

	row, err := p.invokeAndLog(context.Background(), "claude-haiku", model.TaskClassifyPage, "page-1", "sys", "user")
	require.NoError(t, err)
	assert.False(t, row.Accepted)
	assert.Empty(t, row.OutputRaw)
	assert.NotEmpty(t, row.OutputParsed)
}

func TestInvokeAndLog_CancelledContextPropagates(t *testing.T) {
	inv := &scriptedInvoker{errs: map[string]error{
		"claude-haiku": context.Canceled,
	}}
	p := testPipeline(&mockStore{}, inv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.invokeAndLog(ctx, "claude-haiku", model.TaskClassifyPage, "page-1", "sys", "user")
	assert.ErrorIs(t, err, context.Canceled)
}

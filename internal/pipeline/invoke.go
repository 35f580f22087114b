package pipeline

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/cinelog/review-cli/internal/llm"
	"github.com/cinelog/review-cli/internal/model"
)

// invokeAndLog runs one model call for one source item and turns the outcome
// into a log row. Provider failures and parse failures both come back as a
// row with accepted=false; the returned error is only for context
// cancellation, so callers can keep fanning out.
func (p *Pipeline) invokeAndLog(ctx context.Context, modelID string, task model.TaskType, sourceID, systemPrompt, userPrompt string) (model.LLMResultRow, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return model.LLMResultRow{}, err
	}

	input, _ := json.Marshal(map[string]string{
		"system": systemPrompt,
		"user":   userPrompt,
	})
	row := model.LLMResultRow{
		SourceTable:     sourceTable,
		SourceID:        sourceID,
		ModelName:       llm.SanitizeModelName(modelID),
		TaskType:        task,
		Input:           input,
		TaskFingerprint: llm.Fingerprint(task, sourceID),
	}

	raw, err := p.registry.Invoke(ctx, modelID, systemPrompt, userPrompt)
	if err != nil {
		if ctx.Err() != nil {
			return model.LLMResultRow{}, ctx.Err()
		}
		zap.L().Warn("pipeline: model invocation failed",
			zap.String("model", modelID),
			zap.String("task", string(task)),
			zap.String("source_id", sourceID),
			zap.Error(err),
		)
		p.metrics.ObserveInvocation(modelID, string(task), "error")
		row.OutputRaw = ""
		row.OutputParsed = llm.MarshalParsed(nil, &llm.ParseError{
			Kind:    llm.ParseErrOther,
			Message: err.Error(),
		})
		return row, nil
	}

	row.OutputRaw = raw
	parsed, perr := llm.Parse(raw, task)
	row.OutputParsed = llm.MarshalParsed(parsed, perr)
	row.Accepted = perr == nil
	if perr != nil {
		zap.L().Warn("pipeline: model output rejected",
			zap.String("model", modelID),
			zap.String("task", string(task)),
			zap.String("source_id", sourceID),
			zap.String("kind", string(perr.Kind)),
		)
		p.metrics.ObserveInvocation(modelID, string(task), "rejected")
	} else {
		p.metrics.ObserveInvocation(modelID, string(task), "accepted")
	}
	return row, nil
}

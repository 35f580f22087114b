package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cinelog/review-cli/internal/llm"
	"github.com/cinelog/review-cli/internal/model"
)

// scriptedInvoker returns canned responses keyed by model ID and, optionally,
// records every prompt it saw.
type scriptedInvoker struct {
	mu        sync.Mutex
	responses map[string]string // model ID → raw output
	errs      map[string]error
	calls     []invokerCall
}

type invokerCall struct {
	Model  string
	System string
	User   string
}

func (s *scriptedInvoker) Invoke(_ context.Context, modelID, systemPrompt, userPrompt string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, invokerCall{Model: modelID, System: systemPrompt, User: userPrompt})
	s.mu.Unlock()
	if err, ok := s.errs[modelID]; ok {
		return "", err
	}
	resp, ok := s.responses[modelID]
	if !ok {
		return "", fmt.Errorf("no scripted response for %s", modelID)
	}
	return resp, nil
}

func testRegistry(inv llm.Invoker) *llm.Registry {
	r := llm.NewRegistry()
	r.Register("claude", inv)
	r.Register("gpt", inv)
	return r
}

func testRoutes() *llm.Routes {
	return &llm.Routes{
		Tasks: map[model.TaskType]llm.TaskRoute{
			model.TaskClassifyPage: {
				Models:        []string{"claude-haiku", "gpt-4o-mini"},
				PriorityModel: "claude-haiku",
			},
			model.TaskCleanReview:       {Models: []string{"gpt-4o-mini"}},
			model.TaskJudgeReview:       {Models: []string{"claude-haiku"}},
			model.TaskExtractMovieTitle: {Models: []string{"gpt-4o-mini"}},
			model.TaskSentiment:         {Models: []string{"claude-haiku"}},
		},
	}
}

func testPipeline(st *mockStore, inv llm.Invoker) *Pipeline {
	return New(st, testRegistry(inv), testRoutes(), nil, nil, nil, Options{
		Concurrency: 2,
		ModelRate:   10000, // no pacing in tests
		BatchSize:   50,
	})
}

func acceptedRow(sourceID, modelName string, task model.TaskType, parsedJSON string) model.LLMResultRow {
	return model.LLMResultRow{
		SourceID:        sourceID,
		SourceTable:     sourceTable,
		ModelName:       modelName,
		TaskType:        task,
		OutputRaw:       parsedJSON,
		OutputParsed:    json.RawMessage(parsedJSON),
		TaskFingerprint: llm.Fingerprint(task, sourceID),
		Accepted:        true,
		CreatedAt:       time.Now().UTC(),
	}
}

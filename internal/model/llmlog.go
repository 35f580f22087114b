package model

import (
	"encoding/json"
	"time"
)

// TaskType identifies which LLM task produced a result row.
type TaskType string

const (
	TaskClassifyPage      TaskType = "classify_page"
	TaskIsFilmReview      TaskType = "is_film_review"
	TaskCleanReview       TaskType = "clean_review"
	TaskJudgeReview       TaskType = "judge_review"
	TaskExtractMovieTitle TaskType = "extract_movie_title"
	TaskSentiment         TaskType = "sentiment"
)

// LLMResultRow is one observed model invocation, appended to the result log.
// Rows are never updated in place; reconciliation reads the latest accepted
// row per model for a given (source_id, task_type).
type LLMResultRow struct {
	ID              string          `json:"id"`
	SourceTable     string          `json:"source_table"`
	SourceID        string          `json:"source_id"`
	ModelName       string          `json:"model_name"`
	TaskType        TaskType        `json:"task_type"`
	Input           json.RawMessage `json:"input"`
	OutputRaw       string          `json:"output_raw"`
	OutputParsed    json.RawMessage `json:"output_parsed,omitempty"`
	TaskFingerprint string          `json:"task_fingerprint"`
	Accepted        bool            `json:"accepted"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ParsedFields decodes OutputParsed into a field map. Returns nil when the
// parsed output is absent or not a JSON object.
func (r LLMResultRow) ParsedFields() map[string]any {
	if len(r.OutputParsed) == 0 {
		return nil
	}
	var fields map[string]any
	if err := json.Unmarshal(r.OutputParsed, &fields); err != nil {
		return nil
	}
	return fields
}

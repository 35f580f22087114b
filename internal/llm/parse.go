package llm

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/cinelog/review-cli/internal/model"
)

// ParseErrorKind classifies output parse failures.
type ParseErrorKind string

const (
	ParseErrJSONDecode ParseErrorKind = "JSON_DECODE_ERROR"
	ParseErrOther      ParseErrorKind = "OTHER"
)

// ParseError describes why a model's raw output could not be parsed. It is
// recorded on the log row with accepted=false; it never aborts a batch.
type ParseError struct {
	Kind      ParseErrorKind `json:"error"`
	Message   string         `json:"message,omitempty"`
	RawOutput string         `json:"raw_output"`
}

func (e *ParseError) Error() string {
	if e.Message != "" {
		return string(e.Kind) + ": " + e.Message
	}
	return string(e.Kind)
}

// extractFieldsForTask lists the output fields kept per task. Fields outside
// the allow-list are dropped; tasks not listed keep the full object.
var extractFieldsForTask = map[model.TaskType][]string{
	model.TaskClassifyPage: {"is_film_review", "film_names", "sentiment"},
	model.TaskCleanReview:  {"cleaned_title", "cleaned_short_review"},
	model.TaskJudgeReview:  {"is_title_valid", "is_short_review_valid"},
}

var (
	fencePattern = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

	// Models sometimes emit enum-like values without quotes
	// (is_film_review: Maybe), which is not valid JSON.
	unquotedEnumPattern = regexp.MustCompile(`"is_film_review":\s*(Yes|No|Maybe|yes|no|maybe)`)
)

// Parse extracts the task-relevant fields from a model's raw text output.
// JSON objects are projected through the task's allow-list; bare JSON values
// (strings, arrays) are returned as decoded. A nil error means the output was
// accepted.
func Parse(raw string, task model.TaskType) (any, *ParseError) {
	cleaned := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(cleaned); m != nil {
		cleaned = strings.TrimSpace(m[1])
	}
	cleaned = unquotedEnumPattern.ReplaceAllString(cleaned, `"is_film_review": "$1"`)

	var decoded any
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return nil, &ParseError{Kind: ParseErrJSONDecode, Message: err.Error(), RawOutput: raw}
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		// Bare string / array output; downstream task handling decides validity.
		return decoded, nil
	}

	fields, ok := extractFieldsForTask[task]
	if !ok {
		return obj, nil
	}
	extracted := make(map[string]any)
	for _, f := range fields {
		if v, present := obj[f]; present {
			extracted[f] = v
		}
	}
	return extracted, nil
}

// MarshalParsed renders a parse result (or parse error) as the JSON stored in
// the log's output_parsed column.
func MarshalParsed(parsed any, perr *ParseError) json.RawMessage {
	var v any = parsed
	if perr != nil {
		v = perr
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// Package llm dispatches prompts to configured model providers and parses
// their output into task-specific field maps.
package llm

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"

	"github.com/cinelog/review-cli/internal/model"
)

// Fingerprint returns a stable identity for a (task, source item) pair, used
// to deduplicate log rows across re-runs. Identical inputs always hash to the
// identical fingerprint.
func Fingerprint(task model.TaskType, sourceID string) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s-%s", task, sourceID))
	return hex.EncodeToString(sum[:])
}

var modelNamePattern = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeModelName strips characters that are not allowed in stored model
// identifiers.
func SanitizeModelName(name string) string {
	return modelNamePattern.ReplaceAllString(name, "")
}

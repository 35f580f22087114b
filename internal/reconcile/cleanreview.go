package reconcile

import (
	"strings"

	"go.uber.org/zap"
)

// JudgeGate reconciles primary-clean/judge-validate record pairs. A record is
// approved iff the judge marked both the title and the short review valid and
// the primary output parsed to non-null cleaned fields. Anything else is
// rejected with the full list of failed checks. Records missing either half
// of the pair never reach the decision step: they are returned as incomplete
// so "never judged" is not conflated with "failed judging".
func JudgeGate(records []PairedRecord) (approved []ApprovedReview, rejected []Rejection, incomplete []string) {
	for _, rec := range records {
		if !rec.HasPrimary || !rec.HasJudge {
			incomplete = append(incomplete, rec.SourceID)
			zap.L().Warn("reconcile: incomplete record pair",
				zap.String("source_id", rec.SourceID),
				zap.Bool("has_primary", rec.HasPrimary),
				zap.Bool("has_judge", rec.HasJudge),
			)
			continue
		}

		titleValid := boolField(rec.Judge, "is_title_valid")
		shortValid := boolField(rec.Judge, "is_short_review_valid")
		cleanedTitle, _ := rec.Primary["cleaned_title"].(string)
		cleanedShort, _ := rec.Primary["cleaned_short_review"].(string)
		hasPrimaryData := cleanedTitle != "" && cleanedShort != ""

		if titleValid && shortValid && hasPrimaryData {
			approved = append(approved, ApprovedReview{
				SourceID:           rec.SourceID,
				CleanedTitle:       cleanedTitle,
				CleanedShortReview: cleanedShort,
				IsTitleValid:       true,
				IsShortReviewValid: true,
			})
			continue
		}

		var reasons []RejectReason
		if !titleValid {
			reasons = append(reasons, ReasonTitleInvalid)
		}
		if !shortValid {
			reasons = append(reasons, ReasonShortReviewInvalid)
		}
		if !hasPrimaryData {
			reasons = append(reasons, ReasonMissingPrimary)
		}
		rejected = append(rejected, Rejection{SourceID: rec.SourceID, Reasons: reasons})
	}
	return approved, rejected, incomplete
}

// ValidateApproved double-checks approved records after the judge gate: both
// cleaned fields must be non-empty and not whitespace-only. Records failing
// this are dropped from the approved set even though the judge passed them;
// the judge and the primary occasionally disagree about what they saw.
func ValidateApproved(records []ApprovedReview) (valid []ApprovedReview, dropped []string) {
	for _, rec := range records {
		if strings.TrimSpace(rec.CleanedTitle) == "" || strings.TrimSpace(rec.CleanedShortReview) == "" {
			dropped = append(dropped, rec.SourceID)
			zap.L().Warn("reconcile: approved record failed validation",
				zap.String("source_id", rec.SourceID),
			)
			continue
		}
		valid = append(valid, rec)
	}
	return valid, dropped
}

// boolField reads a boolean from a parsed field map, accepting the string
// forms models sometimes emit.
func boolField(fields map[string]any, key string) bool {
	switch v := fields[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true")
	default:
		return false
	}
}

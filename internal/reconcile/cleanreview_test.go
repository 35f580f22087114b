package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pairedRecord(sourceID string, titleValid, shortValid any, cleanedTitle, cleanedShort string) PairedRecord {
	return PairedRecord{
		SourceID: sourceID,
		Primary: map[string]any{
			"cleaned_title":        cleanedTitle,
			"cleaned_short_review": cleanedShort,
		},
		Judge: map[string]any{
			"is_title_valid":        titleValid,
			"is_short_review_valid": shortValid,
		},
		HasPrimary: true,
		HasJudge:   true,
	}
}

func TestJudgeGate_ApprovesValidRecord(t *testing.T) {
	records := []PairedRecord{
		pairedRecord("p1", true, true, "Jigarthanda DoubleX", "A gonzo celebration of filmmaking."),
	}

	approved, rejected, incomplete := JudgeGate(records)

	require.Len(t, approved, 1)
	assert.Empty(t, rejected)
	assert.Empty(t, incomplete)
	assert.Equal(t, "p1", approved[0].SourceID)
	assert.Equal(t, "Jigarthanda DoubleX", approved[0].CleanedTitle)
	assert.True(t, approved[0].IsTitleValid)
	assert.True(t, approved[0].IsShortReviewValid)
}

func TestJudgeGate_RejectsInvalidTitle(t *testing.T) {
	records := []PairedRecord{
		pairedRecord("p1", false, true, "Title", "Short review."),
	}

	approved, rejected, _ := JudgeGate(records)

	assert.Empty(t, approved)
	require.Len(t, rejected, 1)
	assert.Equal(t, []RejectReason{ReasonTitleInvalid}, rejected[0].Reasons)
}

func TestJudgeGate_RejectsInvalidShortReview(t *testing.T) {
	records := []PairedRecord{
		pairedRecord("p1", true, false, "Title", "Short review."),
	}

	_, rejected, _ := JudgeGate(records)

	require.Len(t, rejected, 1)
	assert.Equal(t, []RejectReason{ReasonShortReviewInvalid}, rejected[0].Reasons)
}

func TestJudgeGate_RejectsMissingPrimaryData(t *testing.T) {
	records := []PairedRecord{
		pairedRecord("p1", true, true, "", "Short review."),
	}

	_, rejected, _ := JudgeGate(records)

	require.Len(t, rejected, 1)
	assert.Equal(t, []RejectReason{ReasonMissingPrimary}, rejected[0].Reasons)
}

func TestJudgeGate_CollectsAllReasons(t *testing.T) {
	records := []PairedRecord{
		pairedRecord("p1", false, false, "", ""),
	}

	_, rejected, _ := JudgeGate(records)

	require.Len(t, rejected, 1)
	assert.Equal(t,
		[]RejectReason{ReasonTitleInvalid, ReasonShortReviewInvalid, ReasonMissingPrimary},
		rejected[0].Reasons,
	)
}

func TestJudgeGate_IncompletePairExcludedNotRejected(t *testing.T) {
	records := []PairedRecord{
		{
			SourceID:   "p1",
			Primary:    map[string]any{"cleaned_title": "T", "cleaned_short_review": "S"},
			HasPrimary: true,
			HasJudge:   false,
		},
		{
			SourceID: "p2",
			Judge:    map[string]any{"is_title_valid": true, "is_short_review_valid": true},
			HasJudge: true,
		},
	}

	approved, rejected, incomplete := JudgeGate(records)

	assert.Empty(t, approved)
	assert.Empty(t, rejected)
	assert.Equal(t, []string{"p1", "p2"}, incomplete)
}

func TestJudgeGate_StringBooleansFromJudge(t *testing.T) {
	records := []PairedRecord{
		pairedRecord("p1", "true", "True", "Title", "Short."),
		pairedRecord("p2", "false", "true", "Title", "Short."),
	}

	approved, rejected, _ := JudgeGate(records)

	require.Len(t, approved, 1)
	assert.Equal(t, "p1", approved[0].SourceID)
	require.Len(t, rejected, 1)
	assert.Equal(t, "p2", rejected[0].SourceID)
}

func TestValidateApproved_DropsBlankFields(t *testing.T) {
	records := []ApprovedReview{
		{SourceID: "ok", CleanedTitle: "Title", CleanedShortReview: "Short."},
		{SourceID: "blank-title", CleanedTitle: "   ", CleanedShortReview: "Short."},
		{SourceID: "blank-short", CleanedTitle: "Title", CleanedShortReview: "\t\n"},
	}

	valid, dropped := ValidateApproved(records)

	require.Len(t, valid, 1)
	assert.Equal(t, "ok", valid[0].SourceID)
	assert.ElementsMatch(t, []string{"blank-title", "blank-short"}, dropped)
}

func TestValidateApproved_EmptyInput(t *testing.T) {
	valid, dropped := ValidateApproved(nil)
	assert.Empty(t, valid)
	assert.Empty(t, dropped)
}

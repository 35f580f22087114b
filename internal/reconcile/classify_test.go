package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifications_MajorityWins(t *testing.T) {
	votes := []Vote{
		{Model: "a", Classification: "review"},
		{Model: "b", Classification: "review"},
		{Model: "c", Classification: "not_review"},
	}

	result := Classifications(votes, "")

	assert.Equal(t, "review", result.FinalClassification)
	assert.Equal(t, StrategyMajorityVote, result.Strategy)
	assert.Equal(t, 2, result.WinningVoteCount)
	assert.Equal(t, []string{"a", "b"}, result.ContributingModels)
	assert.Empty(t, result.Err)
}

func TestClassifications_TieWithPriorityModel(t *testing.T) {
	votes := []Vote{
		{Model: "a", Classification: "review"},
		{Model: "b", Classification: "not_review"},
	}

	result := Classifications(votes, "b")

	assert.Equal(t, "not_review", result.FinalClassification)
	assert.Equal(t, "tie_breaker (priority_model: b)", result.Strategy)
	assert.Equal(t, 1, result.WinningVoteCount)
	assert.Equal(t, []string{"b"}, result.ContributingModels)
}

func TestClassifications_TieWithoutPriority_FirstEncounteredWins(t *testing.T) {
	votes := []Vote{
		{Model: "a", Classification: "review"},
		{Model: "b", Classification: "not_review"},
	}

	result := Classifications(votes, "")

	assert.Equal(t, "review", result.FinalClassification)
	assert.Equal(t, StrategyTieDefault, result.Strategy)
}

func TestClassifications_PriorityModelNotInTie_FallsBackToDefault(t *testing.T) {
	// The priority model's own vote lost outright, so it cannot break the
	// tie between the remaining values.
	votes := []Vote{
		{Model: "a", Classification: "review"},
		{Model: "a2", Classification: "review"},
		{Model: "b", Classification: "not_review"},
		{Model: "b2", Classification: "not_review"},
		{Model: "c", Classification: "maybe"},
	}

	result := Classifications(votes, "c")

	assert.Equal(t, "review", result.FinalClassification)
	assert.Equal(t, StrategyTieDefault, result.Strategy)
	assert.Equal(t, 2, result.WinningVoteCount)
}

func TestClassifications_EmptyInput(t *testing.T) {
	result := Classifications(nil, "")

	assert.Equal(t, "failed", result.FinalClassification)
	assert.Equal(t, StrategyNone, result.Strategy)
	assert.Equal(t, "No valid classifications provided.", result.Err)
	assert.True(t, result.Failed())
}

func TestClassifications_FiltersEmptyClassifications(t *testing.T) {
	votes := []Vote{
		{Model: "a", Classification: ""},
		{Model: "b", Classification: "review"},
		{Model: "c", Classification: "review"},
	}

	result := Classifications(votes, "")

	assert.Equal(t, "review", result.FinalClassification)
	assert.Equal(t, StrategyMajorityVote, result.Strategy)
	assert.Equal(t, 2, result.WinningVoteCount)
	assert.NotContains(t, result.ContributingModels, "a")
}

func TestClassifications_AllInvalid(t *testing.T) {
	votes := []Vote{
		{Model: "a", Classification: ""},
		{Model: "b", Classification: ""},
	}

	result := Classifications(votes, "")

	assert.True(t, result.Failed())
	assert.Equal(t, StrategyNone, result.Strategy)
}

func TestClassifications_Deterministic(t *testing.T) {
	votes := []Vote{
		{Model: "a", Classification: "maybe"},
		{Model: "b", Classification: "true"},
		{Model: "c", Classification: "false"},
		{Model: "d", Classification: "true"},
	}

	first := Classifications(votes, "c")
	second := Classifications(votes, "c")

	assert.Equal(t, first, second)
}

func TestClassifications_ThreeWayTieDefault(t *testing.T) {
	votes := []Vote{
		{Model: "m1", Classification: "maybe"},
		{Model: "m2", Classification: "true"},
		{Model: "m3", Classification: "false"},
	}

	result := Classifications(votes, "")

	// First-encountered tied value wins.
	assert.Equal(t, "maybe", result.FinalClassification)
	assert.Equal(t, StrategyTieDefault, result.Strategy)
	assert.Equal(t, 1, result.WinningVoteCount)
	assert.Equal(t, []string{"m1"}, result.ContributingModels)
}

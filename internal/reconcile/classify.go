package reconcile

import "fmt"

// Classifications reconciles classification votes from multiple models into a
// single verdict by majority vote. Ties go to the priority model's vote when
// that model is among the tied values; otherwise the tied classification
// encountered first in input order wins. Input order is therefore meaningful:
// callers must pass votes in a stable order to keep the default tie-break
// reproducible.
//
// Entries with an empty classification (failed calls) are filtered out before
// counting. With no valid entries at all the result carries
// FinalClassification "failed" and an error message; no error is returned.
func Classifications(votes []Vote, priorityModel string) Result {
	valid := make([]Vote, 0, len(votes))
	for _, v := range votes {
		if v.Classification != "" {
			valid = append(valid, v)
		}
	}

	if len(valid) == 0 {
		return Result{
			FinalClassification: "failed",
			Strategy:            StrategyNone,
			Err:                 "No valid classifications provided.",
		}
	}

	// Count votes, tracking first-encounter order of distinct values.
	counts := make(map[string]int, len(valid))
	var order []string
	for _, v := range valid {
		if _, seen := counts[v.Classification]; !seen {
			order = append(order, v.Classification)
		}
		counts[v.Classification]++
	}

	maxVotes := 0
	for _, n := range counts {
		if n > maxVotes {
			maxVotes = n
		}
	}

	var top []string
	for _, cls := range order {
		if counts[cls] == maxVotes {
			top = append(top, cls)
		}
	}

	winner := top[0]
	strategy := StrategyMajorityVote
	if len(top) > 1 {
		strategy = StrategyTieDefault
		if priorityModel != "" {
			if cls, ok := priorityVote(valid, priorityModel, top); ok {
				winner = cls
				strategy = fmt.Sprintf("tie_breaker (priority_model: %s)", priorityModel)
			}
		}
	}

	var contributing []string
	for _, v := range valid {
		if v.Classification == winner {
			contributing = append(contributing, v.Model)
		}
	}

	return Result{
		FinalClassification: winner,
		Strategy:            strategy,
		WinningVoteCount:    maxVotes,
		ContributingModels:  contributing,
	}
}

// priorityVote finds the priority model's classification if it is among the
// tied top values.
func priorityVote(valid []Vote, priorityModel string, top []string) (string, bool) {
	inTop := make(map[string]bool, len(top))
	for _, cls := range top {
		inTop[cls] = true
	}
	for _, v := range valid {
		if v.Model == priorityModel && inTop[v.Classification] {
			return v.Classification, true
		}
	}
	return "", false
}

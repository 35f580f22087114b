// Package reconcile resolves disagreeing LLM outputs into a single accepted
// verdict. Both variants (majority-vote classification, primary/judge
// quality gating) are pure functions over already-fetched result rows; all
// I/O stays with the caller.
package reconcile

// Vote is one model's classification of a source item.
type Vote struct {
	Model          string `json:"model"`
	Classification string `json:"classification"`
}

// Strategy labels how a final classification was chosen.
const (
	StrategyMajorityVote = "majority_vote"
	StrategyTieDefault   = "tie_breaker (default)"
	StrategyNone         = "none"
)

// Result is the outcome of majority-vote reconciliation for one source item.
// A failed reconciliation is a value (FinalClassification "failed" with Err
// set), never a panic or error return.
type Result struct {
	FinalClassification string   `json:"final_classification"`
	Strategy            string   `json:"strategy"`
	WinningVoteCount    int      `json:"winning_vote_count,omitempty"`
	ContributingModels  []string `json:"contributing_models,omitempty"`
	Err                 string   `json:"error,omitempty"`
}

// Failed reports whether no valid classification could be chosen.
func (r Result) Failed() bool {
	return r.FinalClassification == "failed"
}

// RejectReason identifies which judge-gate check failed for a record.
type RejectReason string

const (
	ReasonTitleInvalid       RejectReason = "title_invalid"
	ReasonShortReviewInvalid RejectReason = "short_review_invalid"
	ReasonMissingPrimary     RejectReason = "missing_primary"
)

// PairedRecord couples one source item's primary clean output with the judge
// model's assessment of that output.
type PairedRecord struct {
	SourceID string
	Primary  map[string]any // latest accepted clean_review fields, nil if unparsed
	Judge    map[string]any // latest accepted judge_review fields, nil if unparsed

	// HasPrimary/HasJudge record whether a log row existed at all; a record
	// missing either half is incomplete, not rejected.
	HasPrimary bool
	HasJudge   bool
}

// ApprovedReview is a record that passed the judge gate.
type ApprovedReview struct {
	SourceID           string
	CleanedTitle       string
	CleanedShortReview string
	IsTitleValid       bool
	IsShortReviewValid bool
}

// Rejection is a record that failed the judge gate, with every check that
// caused the failure.
type Rejection struct {
	SourceID string
	Reasons  []RejectReason
}

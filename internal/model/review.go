package model

import "time"

// PageStatus tracks a scraped page's position in the pipeline. Statuses only
// move forward; each stage owns exactly one transition.
type PageStatus string

const (
	StatusPending          PageStatus = "pending"
	StatusParsed           PageStatus = "parsed"
	StatusPromoted         PageStatus = "promoted"
	StatusNotPromoted      PageStatus = "not_promoted"
	StatusApproved         PageStatus = "approved"
	StatusRejected         PageStatus = "rejected"
	StatusEnriched         PageStatus = "enriched"
	StatusEnrichmentFailed PageStatus = "enrichment_failed"
)

// ReviewPage is one scraped blog post moving through the pipeline.
type ReviewPage struct {
	ID          string     `json:"id"`
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	ShortReview string     `json:"short_review"`
	FullText    string     `json:"full_text"`
	Sentiment   string     `json:"sentiment,omitempty"`
	MovieID     string     `json:"movie_id,omitempty"`
	Status      PageStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CleanedReview holds the LLM-cleaned title and short review for an approved
// page. Rows are written only after the judge gate passes.
type CleanedReview struct {
	ID                 string     `json:"id"`
	SourceID           string     `json:"source_id"`
	CleanedTitle       string     `json:"cleaned_title"`
	CleanedShortReview string     `json:"cleaned_short_review"`
	IsTitleValid       bool       `json:"is_title_valid"`
	IsShortReviewValid bool       `json:"is_short_review_valid"`
	Status             PageStatus `json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
}

// Movie is a film record linked from one or more reviews.
type Movie struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	ReleaseYear string    `json:"release_year,omitempty"`
	Language    string    `json:"language,omitempty"`
	Genre       string    `json:"genre,omitempty"`
	Enriched    bool      `json:"enriched"`
	CreatedAt   time.Time `json:"created_at"`
}

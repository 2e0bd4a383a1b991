package model

import "time"

// Analysis is one saved classification run for a video.
type Analysis struct {
	ID            string              `json:"id"`
	UserID        string              `json:"user_id"`
	VideoURL      string              `json:"video_url"`
	VideoID       string              `json:"video_id,omitempty"`
	Results       []ClassifiedComment `json:"results"`
	TotalComments int                 `json:"total_comments"`
	Counts        LeadCounts          `json:"counts"`
	CreatedAt     time.Time           `json:"created_at"`
}

// Feedback is a user rating attached to an analysis.
type Feedback struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	AnalysisID string    `json:"analysis_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

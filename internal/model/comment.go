// Package model defines the shared domain types for the lead pipeline.
package model

// LeadType grades a comment's buying intent.
type LeadType string

const (
	LeadHot  LeadType = "hot"
	LeadWarm LeadType = "warm"
	LeadCold LeadType = "cold"
)

// Valid reports whether lt is one of the known lead grades.
func (lt LeadType) Valid() bool {
	switch lt {
	case LeadHot, LeadWarm, LeadCold:
		return true
	}
	return false
}

// Comment is a single video comment as fetched from the platform.
// Only ID and Text participate in classification; the remaining fields are
// pass-through metadata for display and persistence.
type Comment struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	Text     string `json:"text"`
	Date     string `json:"date,omitempty"`
	Likes    int    `json:"likes"`
	Replied  bool   `json:"replied"`
}

// ClassificationRequest is the input unit for one comment to classify.
type ClassificationRequest struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ClassificationResult is one model-produced classification. The external
// model is not guaranteed to return one per request, return each exactly
// once, or echo a recognized id.
type ClassificationResult struct {
	ID         string   `json:"id"`
	LeadType   LeadType `json:"leadType"`
	LeadReason string   `json:"leadReason"`
	Reply      string   `json:"reply"`
}

// ClassifiedComment is a comment enriched with its classification.
type ClassifiedComment struct {
	Comment
	LeadType   LeadType `json:"leadType"`
	LeadReason string   `json:"leadReason"`
	Reply      string   `json:"reply"`
}

// LeadCounts tallies classified comments by grade.
type LeadCounts struct {
	Hot  int `json:"hot_leads"`
	Warm int `json:"warm_leads"`
	Cold int `json:"cold_leads"`
}

// CountLeads tallies the classified comments by lead grade.
func CountLeads(comments []ClassifiedComment) LeadCounts {
	var c LeadCounts
	for _, cc := range comments {
		switch cc.LeadType {
		case LeadHot:
			c.Hot++
		case LeadWarm:
			c.Warm++
		default:
			c.Cold++
		}
	}
	return c
}

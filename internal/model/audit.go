package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// SearchLog is an append-only record of a search made against the matcher.
type SearchLog struct {
	ID            string         `json:"id"`
	SearchTerm    string         `json:"search_term"`
	Filters       map[string]any `json:"filters,omitempty"`
	ResultCount   int            `json:"result_count"`
	AvgConfidence float64        `json:"avg_confidence"`
	CreatedAt     time.Time      `json:"created_at"`
}

// FeedbackType classifies a user's reaction to a match.
type FeedbackType string

// Feedback types.
const (
	FeedbackCorrect    FeedbackType = "correct"
	FeedbackIncorrect  FeedbackType = "incorrect"
	FeedbackCorrection FeedbackType = "correction"
)

// ParseFeedbackType validates a raw feedback type string.
func ParseFeedbackType(s string) (FeedbackType, error) {
	switch ft := FeedbackType(s); ft {
	case FeedbackCorrect, FeedbackIncorrect, FeedbackCorrection:
		return ft, nil
	default:
		return "", eris.Errorf("model: unknown feedback type %q", s)
	}
}

// CompanyFeedback is an append-only record of a user verdict on a match.
type CompanyFeedback struct {
	ID               string       `json:"id"`
	OriginalCompany  string       `json:"original_company"`
	CorrectedCompany *string      `json:"corrected_company,omitempty"`
	HSCode           string       `json:"hs_code"`
	Country          string       `json:"country"`
	ConfidenceAtTime int          `json:"confidence_at_time"`
	FeedbackType     FeedbackType `json:"feedback_type"`
	CreatedAt        time.Time    `json:"created_at"`
}

// Validate checks that the feedback is internally consistent.
func (f *CompanyFeedback) Validate() error {
	if _, err := ParseFeedbackType(string(f.FeedbackType)); err != nil {
		return err
	}
	if f.FeedbackType == FeedbackCorrection && (f.CorrectedCompany == nil || *f.CorrectedCompany == "") {
		return eris.New("model: correction feedback requires a corrected company")
	}
	return nil
}

// CorrectionVote aggregates agreeing corrections for one HS code and country.
type CorrectionVote struct {
	HSCode      string `json:"hs_code"`
	Country     string `json:"country"`
	CompanyName string `json:"company_name"`
	Votes       int    `json:"votes"`
}

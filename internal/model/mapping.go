// Package model defines the persisted records read and written by the matcher.
package model

import "time"

// Mapping sources.
const (
	MappingSourceManual   = "manual"
	MappingSourceImport   = "import"
	MappingSourceFeedback = "feedback"
)

// HSMapping is a learned association between an HS code, an origin country
// and the company that usually ships it.
type HSMapping struct {
	ID                 int64     `json:"id" db:"id"`
	HSCode             string    `json:"hs_code" db:"hs_code"`
	Country            string    `json:"country" db:"country"`
	CompanyName        string    `json:"company_name" db:"company_name"`
	ConfidenceOverride *int      `json:"confidence_override,omitempty" db:"confidence_override"`
	Source             string    `json:"source,omitempty" db:"source"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// Confidence returns the stored override, or def when none is set.
func (m *HSMapping) Confidence(def int) int {
	if m == nil || m.ConfidenceOverride == nil {
		return def
	}
	return *m.ConfidenceOverride
}

package dto

import "github.com/noah-isme/sports-academy-api/internal/models"

// SelectRequest toggles one candidate in a roster.
type SelectRequest struct {
	SportID       string              `json:"sportId" validate:"required"`
	AgeCategoryID string              `json:"ageCategoryId" validate:"required"`
	EventID       string              `json:"eventId"`
	CandidateID   string              `json:"candidateId" validate:"required"`
	Selection     models.SelectionSet `json:"selection"`
}

// SubstituteRequest toggles one selected student's substitute flag.
type SubstituteRequest struct {
	SportID     string              `json:"sportId" validate:"required"`
	CandidateID string              `json:"candidateId" validate:"required"`
	Selection   models.SelectionSet `json:"selection"`
}

// SelectionResult is the roster after a selection change.
type SelectionResult struct {
	Selection models.SelectionSet `json:"selection"`
	// Truncated is set when a candidate was dropped because the roster is full.
	Truncated   bool `json:"truncated"`
	MinStudents int  `json:"minStudents"`
	CanSubmit   bool `json:"canSubmit"`
}

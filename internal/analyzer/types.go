package analyzer

import (
	"errors"
	"fmt"

	"noticeboard/internal/model"
)

const (
	CategoryAcademic    = "Academic"
	CategoryEvent       = "Event"
	CategoryDeadline    = "Deadline"
	CategoryOpportunity = "Opportunity"
	CategoryOther       = "Other"

	ImportanceLow    = "low"
	ImportanceMedium = "medium"
	ImportanceHigh   = "high"
)

const (
	msgTitleContentRequired = "title and content are required"
	msgInvalidBody          = "invalid request body: "
)

var ErrMissingFields = errors.New(msgTitleContentRequired)

// Request is the body of POST /api/notices.
type Request struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	UserID  string `json:"userId"`
}

// Response is returned for both outcomes; Analysis is set iff Success.
type Response struct {
	Success  bool            `json:"success"`
	Analysis *model.Analysis `json:"analysis,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// FailureError is returned by Client.Analyze when the analyzer answered with
// success=false.
type FailureError struct {
	StatusCode int
	Message    string
}

func (e *FailureError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("analyzer failed with status %d", e.StatusCode)
	}
	return e.Message
}

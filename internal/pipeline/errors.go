package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrNoReportURL is returned when the notification carries no report link
	ErrNoReportURL = errors.New("no report URL found in email")
	// ErrAcquisition marks failures fetching or extracting the report page
	ErrAcquisition = errors.New("failed to scrape report")
	// ErrContentTooShort is the acquisition cause for near-empty pages
	ErrContentTooShort = errors.New("content too short, extraction may have failed")
	// ErrUnexpected wraps panics recovered during acquisition or analysis
	ErrUnexpected = errors.New("unexpected pipeline failure")
)

// AcquisitionError describes a failed report fetch
type AcquisitionError struct {
	URL     string
	Message string // Short reason, e.g. "timeout"
	Err     error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAcquisition, e.Message)
}

// Unwrap exposes both ErrAcquisition and the underlying cause
func (e *AcquisitionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrAcquisition}
	}
	return []error{ErrAcquisition, e.Err}
}

package services

import "errors"

var (
	// ErrPDFUnavailable is returned when no PDF renderer is configured
	ErrPDFUnavailable = errors.New("pdf export is not configured")

	// ErrNoHistory is returned when no stored analysis exists
	ErrNoHistory = errors.New("no stored analysis")
)

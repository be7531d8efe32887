package services

import "errors"

// ErrDocumentBusy is returned when another worker holds the processing lock.
var ErrDocumentBusy = errors.New("document is already being processed")

type ValidationError struct{ Message string }

func (e *ValidationError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

// ProcessingError wraps a failure to turn an uploaded file into chunks.
type ProcessingError struct {
	Stage string
	Err   error
}

func (e *ProcessingError) Error() string { return e.Stage + ": " + e.Err.Error() }

func (e *ProcessingError) Unwrap() error { return e.Err }

// UpstreamError marks a failure of the language model provider.
type UpstreamError struct{ Err error }

func (e *UpstreamError) Error() string { return "language model error: " + e.Err.Error() }

func (e *UpstreamError) Unwrap() error { return e.Err }

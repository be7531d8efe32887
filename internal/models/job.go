package models

import (
	"time"

	"github.com/google/uuid"
)

const JobDocumentReindex = "document-reindex"

// Job is a unit of background work carried on a Redis list.
type Job struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"` // "document-reindex"
	ReferenceID uuid.UUID `json:"reference_id"`
	RetryCount  int       `json:"retry_count"`
	MaxRetries  int       `json:"max_retries"`
	CreatedAt   time.Time `json:"created_at"`
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type StatusUpdate struct {
	DocumentID uuid.UUID `json:"document_id"`
	Status     string    `json:"status"`
	Chunks     int       `json:"chunks,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// API Error response
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

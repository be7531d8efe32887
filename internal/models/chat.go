package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatTurn is one question/answer exchange against a document.
type ChatTurn struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChatRequest is the payload sent to the chat endpoint.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the answer returned by the chat endpoint.
type ChatResponse struct {
	Answer string `json:"answer"`
}

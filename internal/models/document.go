package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	DocumentPending    = "pending"
	DocumentProcessing = "processing"
	DocumentReady      = "ready"
	DocumentFailed     = "failed"
)

type Document struct {
	ID           uuid.UUID  `json:"id"`
	Filename     string     `json:"filename"`
	StoredName   string     `json:"stored_name"`
	FilePath     string     `json:"-"`
	MimeType     string     `json:"mime_type"`
	SizeBytes    int64      `json:"size_bytes"`
	Status       string     `json:"status"` // "pending" | "processing" | "ready" | "failed"
	ChunkCount   int        `json:"chunk_count"`
	ErrorMessage *string    `json:"error_message"`
	CreatedAt    time.Time  `json:"created_at"`
	ProcessedAt  *time.Time `json:"processed_at"`
}

// Chunk is a slice of document text with its embedding vector.
type Chunk struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	Index      int       `json:"chunk_index"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"-"`
}

type UploadResponse struct {
	Success    bool      `json:"success"`
	DocumentID uuid.UUID `json:"document_id"`
	Filename   string    `json:"filename"`
	Chunks     int       `json:"chunks"`
}

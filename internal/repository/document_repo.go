package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"docchat/internal/models"
)

type DocumentRepo struct {
	pool *pgxpool.Pool
}

func NewDocumentRepo(pool *pgxpool.Pool) *DocumentRepo {
	return &DocumentRepo{pool: pool}
}

const documentColumns = `id, filename, stored_name, file_path, mime_type, size_bytes, status, chunk_count, error_message, created_at, processed_at`

func scanDocument(row pgx.Row) (*models.Document, error) {
	d := &models.Document{}
	err := row.Scan(
		&d.ID, &d.Filename, &d.StoredName, &d.FilePath, &d.MimeType, &d.SizeBytes,
		&d.Status, &d.ChunkCount, &d.ErrorMessage, &d.CreatedAt, &d.ProcessedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return d, nil
}

func (r *DocumentRepo) Create(ctx context.Context, d *models.Document) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = models.DocumentPending
	}

	query := `INSERT INTO documents (id, filename, stored_name, file_path, mime_type, size_bytes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		d.ID, d.Filename, d.StoredName, d.FilePath, d.MimeType, d.SizeBytes, d.Status,
	).Scan(&d.CreatedAt)
}

func (r *DocumentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(r.pool.QueryRow(ctx, query, id))
}

// GetLatest returns the most recently uploaded document, which is the one
// chat questions are answered against.
func (r *DocumentRepo) GetLatest(ctx context.Context) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents ORDER BY created_at DESC LIMIT 1`
	return scanDocument(r.pool.QueryRow(ctx, query))
}

func (r *DocumentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string, errMsg *string) error {
	if status == models.DocumentFailed || status == models.DocumentReady {
		_, err := r.pool.Exec(ctx,
			"UPDATE documents SET status = $1, error_message = $2, processed_at = $3 WHERE id = $4",
			status, errMsg, time.Now(), id,
		)
		return err
	}
	_, err := r.pool.Exec(ctx, "UPDATE documents SET status = $1, error_message = $2 WHERE id = $3", status, errMsg, id)
	return err
}

// ReplaceChunks swaps the document's chunk set atomically and marks it ready.
func (r *DocumentRepo) ReplaceChunks(ctx context.Context, id uuid.UUID, chunks []models.Chunk) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin chunk transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM document_chunks WHERE document_id = $1", id); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}

	rows := make([][]interface{}, 0, len(chunks))
	for _, c := range chunks {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		rows = append(rows, []interface{}{c.ID, id, c.Index, c.Content, c.Embedding})
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"document_chunks"},
		[]string{"id", "document_id", "chunk_index", "content", "embedding"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to copy chunks: %w", err)
	}

	_, err = tx.Exec(ctx,
		"UPDATE documents SET status = $1, chunk_count = $2, error_message = NULL, processed_at = $3 WHERE id = $4",
		models.DocumentReady, len(chunks), time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark document ready: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *DocumentRepo) ListChunks(ctx context.Context, id uuid.UUID) ([]models.Chunk, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, document_id, chunk_index, content, embedding
		FROM document_chunks WHERE document_id = $1 ORDER BY chunk_index`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []models.Chunk
	for rows.Next() {
		var c models.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Index, &c.Content, &c.Embedding); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

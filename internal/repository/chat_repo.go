package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"docchat/internal/models"
)

type ChatRepo struct {
	pool *pgxpool.Pool
}

func NewChatRepo(pool *pgxpool.Pool) *ChatRepo {
	return &ChatRepo{pool: pool}
}

func (r *ChatRepo) Append(ctx context.Context, t *models.ChatTurn) error {
	t.ID = uuid.New()
	query := `INSERT INTO chat_turns (id, document_id, question, answer)
		VALUES ($1, $2, $3, $4) RETURNING created_at`
	return r.pool.QueryRow(ctx, query, t.ID, t.DocumentID, t.Question, t.Answer).Scan(&t.CreatedAt)
}

// Recent returns up to limit of the latest turns for a document, oldest first.
func (r *ChatRepo) Recent(ctx context.Context, documentID uuid.UUID, limit int) ([]models.ChatTurn, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, document_id, question, answer, created_at FROM (
			SELECT id, document_id, question, answer, created_at
			FROM chat_turns WHERE document_id = $1
			ORDER BY created_at DESC LIMIT $2
		) recent ORDER BY created_at ASC`, documentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []models.ChatTurn
	for rows.Next() {
		var t models.ChatTurn
		if err := rows.Scan(&t.ID, &t.DocumentID, &t.Question, &t.Answer, &t.CreatedAt); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

package services

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docchat/internal/models"
	"docchat/internal/repository"
)

// Fixed answers returned when there is nothing to answer against.
const (
	AnswerNoDocument       = "No document has been uploaded yet."
	AnswerProcessingFailed = "Document processing failed or expired."
	AnswerStillProcessing  = "The document is still being processed. Please try again shortly."
)

// reindexCooldown is how long a queued reindex suppresses further requests
// for the same document.
const reindexCooldown = 10 * time.Minute

type chatStore interface {
	Append(ctx context.Context, t *models.ChatTurn) error
	Recent(ctx context.Context, documentID uuid.UUID, limit int) ([]models.ChatTurn, error)
}

type Answerer interface {
	Answer(ctx context.Context, prompt string, history []models.ChatTurn) (string, error)
}

type ReindexQueue interface {
	EnqueueReindex(ctx context.Context, documentID uuid.UUID) error
}

type QAService struct {
	docs         documentStore
	chats        chatStore
	embedder     Embedder
	answerer     Answerer
	retriever    *Retriever
	queue        ReindexQueue
	pending      Locker
	historyTurns int
	logger       *zap.Logger
}

func NewQAService(
	docs documentStore,
	chats chatStore,
	embedder Embedder,
	answerer Answerer,
	retriever *Retriever,
	queue ReindexQueue,
	pending Locker,
	historyTurns int,
	logger *zap.Logger,
) *QAService {
	return &QAService{
		docs:         docs,
		chats:        chats,
		embedder:     embedder,
		answerer:     answerer,
		retriever:    retriever,
		queue:        queue,
		pending:      pending,
		historyTurns: historyTurns,
		logger:       logger,
	}
}

// Ask answers question against the active document and records the turn.
func (s *QAService) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", &ValidationError{Message: "Message is required"}
	}

	doc, err := s.docs.GetLatest(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return AnswerNoDocument, nil
	}
	if err != nil {
		return "", err
	}

	switch doc.Status {
	case models.DocumentPending, models.DocumentProcessing:
		return AnswerStillProcessing, nil
	}

	chunks, err := s.docs.ListChunks(ctx, doc.ID)
	if err != nil {
		return "", err
	}
	if doc.Status != models.DocumentReady || len(chunks) == 0 {
		s.scheduleReindex(ctx, doc)
		return AnswerProcessingFailed, nil
	}

	qvec, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return "", err
	}
	selected := s.retriever.Select(qvec, chunks)

	var history []models.ChatTurn
	if s.historyTurns > 0 {
		history, err = s.chats.Recent(ctx, doc.ID, s.historyTurns)
		if err != nil {
			s.logger.Warn("failed to load chat history", zap.String("document_id", doc.ID.String()), zap.Error(err))
			history = nil
		}
	}

	answer, err := s.answerer.Answer(ctx, buildAnswerPrompt(question, selected), history)
	if err != nil {
		return "", err
	}

	turn := &models.ChatTurn{DocumentID: doc.ID, Question: question, Answer: answer}
	if err := s.chats.Append(ctx, turn); err != nil {
		s.logger.Warn("failed to save chat turn", zap.String("document_id", doc.ID.String()), zap.Error(err))
	}

	return answer, nil
}

// scheduleReindex queues a rebuild when the stored file is still on disk.
func (s *QAService) scheduleReindex(ctx context.Context, doc *models.Document) {
	if _, err := os.Stat(doc.FilePath); err != nil {
		return
	}
	// The pending key is left to expire so a document that keeps failing is
	// retried at most once per cooldown.
	_, first, err := s.pending.AcquireLock(ctx, reindexPendingKey(doc.ID), reindexCooldown)
	if err != nil {
		s.logger.Warn("failed to mark reindex pending", zap.String("document_id", doc.ID.String()), zap.Error(err))
		return
	}
	if !first {
		s.logger.Debug("reindex already pending", zap.String("document_id", doc.ID.String()))
		return
	}
	if err := s.queue.EnqueueReindex(ctx, doc.ID); err != nil {
		s.logger.Warn("failed to enqueue reindex", zap.String("document_id", doc.ID.String()), zap.Error(err))
		return
	}
	s.logger.Info("reindex queued", zap.String("document_id", doc.ID.String()))
}

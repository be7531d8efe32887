package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"docchat/internal/models"
	"docchat/internal/repository"
)

type stubDocumentStore struct {
	mu       sync.Mutex
	docs     map[uuid.UUID]*models.Document
	latest   uuid.UUID
	chunks   map[uuid.UUID][]models.Chunk
	statuses []string
}

func newStubDocumentStore() *stubDocumentStore {
	return &stubDocumentStore{
		docs:   make(map[uuid.UUID]*models.Document),
		chunks: make(map[uuid.UUID][]models.Chunk),
	}
}

func (s *stubDocumentStore) Create(ctx context.Context, d *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.docs[d.ID] = &cp
	s.latest = d.ID
	return nil
}

func (s *stubDocumentStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *stubDocumentStore) GetLatest(ctx context.Context) (*models.Document, error) {
	if s.latest == uuid.Nil {
		return nil, repository.ErrNotFound
	}
	return s.GetByID(ctx, s.latest)
}

func (s *stubDocumentStore) UpdateStatus(ctx context.Context, id uuid.UUID, status string, errMsg *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
	if d, ok := s.docs[id]; ok {
		d.Status = status
		d.ErrorMessage = errMsg
	}
	return nil
}

func (s *stubDocumentStore) ReplaceChunks(ctx context.Context, id uuid.UUID, chunks []models.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[id] = chunks
	if d, ok := s.docs[id]; ok {
		d.Status = models.DocumentReady
		d.ChunkCount = len(chunks)
	}
	return nil
}

func (s *stubDocumentStore) ListChunks(ctx context.Context, id uuid.UUID) ([]models.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunks[id], nil
}

type stubChatStore struct {
	turns []models.ChatTurn
	limit int
}

func (s *stubChatStore) Append(ctx context.Context, t *models.ChatTurn) error {
	t.ID = uuid.New()
	s.turns = append(s.turns, *t)
	return nil
}

func (s *stubChatStore) Recent(ctx context.Context, documentID uuid.UUID, limit int) ([]models.ChatTurn, error) {
	s.limit = limit
	var out []models.ChatTurn
	for _, t := range s.turns {
		if t.DocumentID == documentID {
			out = append(out, t)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// stubEmbedder maps text to a fixed 2-d vector: texts mentioning "graph"
// point one way, everything else the other.
type stubEmbedder struct {
	err   error
	calls int
}

func embedFor(text string) []float32 {
	for i := 0; i+5 <= len(text); i++ {
		if text[i:i+5] == "graph" {
			return []float32{0, 1}
		}
	}
	return []float32{1, 0}
}

func (s *stubEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = embedFor(t)
	}
	return out, nil
}

func (s *stubEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return embedFor(text), nil
}

type stubAnswerer struct {
	answer  string
	err     error
	prompt  string
	history []models.ChatTurn
}

func (s *stubAnswerer) Answer(ctx context.Context, prompt string, history []models.ChatTurn) (string, error) {
	s.prompt = prompt
	s.history = history
	return s.answer, s.err
}

type stubCoordinator struct {
	mu       sync.Mutex
	held     map[string]string
	tokens   int
	updates  []models.StatusUpdate
	enqueued []uuid.UUID
	lockErr  error
}

func newStubCoordinator() *stubCoordinator {
	return &stubCoordinator{held: make(map[string]string)}
}

func (s *stubCoordinator) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lockErr != nil {
		return "", false, s.lockErr
	}
	if _, ok := s.held[key]; ok {
		return "", false, nil
	}
	s.tokens++
	token := fmt.Sprintf("token-%d", s.tokens)
	s.held[key] = token
	return token, true, nil
}

func (s *stubCoordinator) ReleaseLock(ctx context.Context, key, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held[key] == token {
		delete(s.held, key)
	}
	return nil
}

func (s *stubCoordinator) PublishStatus(ctx context.Context, update models.StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, update)
	return nil
}

func (s *stubCoordinator) EnqueueReindex(ctx context.Context, documentID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enqueued = append(s.enqueued, documentID)
	return nil
}

var errBoom = errors.New("boom")

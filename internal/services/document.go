package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docchat/internal/models"
	"docchat/internal/repository"
)

const processingLockTTL = 10 * time.Minute

type documentStore interface {
	Create(ctx context.Context, d *models.Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	GetLatest(ctx context.Context) (*models.Document, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, errMsg *string) error
	ReplaceChunks(ctx context.Context, id uuid.UUID, chunks []models.Chunk) error
	ListChunks(ctx context.Context, id uuid.UUID) ([]models.Chunk, error)
}

type textExtractor interface {
	ExtractTextFromPath(path string) (string, error)
}

type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	ReleaseLock(ctx context.Context, key, token string) error
}

type StatusPublisher interface {
	PublishStatus(ctx context.Context, update models.StatusUpdate) error
}

// Upload is a file received by the upload endpoint.
type Upload struct {
	Filename string
	MimeType string
	Body     io.Reader
}

type DocumentService struct {
	docs        documentStore
	extractor   textExtractor
	splitter    *TextSplitter
	embedder    Embedder
	locker      Locker
	publisher   StatusPublisher
	storagePath string
	logger      *zap.Logger
}

func NewDocumentService(
	docs documentStore,
	extractor textExtractor,
	splitter *TextSplitter,
	embedder Embedder,
	locker Locker,
	publisher StatusPublisher,
	storagePath string,
	logger *zap.Logger,
) *DocumentService {
	return &DocumentService{
		docs:        docs,
		extractor:   extractor,
		splitter:    splitter,
		embedder:    embedder,
		locker:      locker,
		publisher:   publisher,
		storagePath: storagePath,
		logger:      logger,
	}
}

// StoragePath is the directory uploads are written to.
func (s *DocumentService) StoragePath() string {
	return s.storagePath
}

// Ingest stores the upload under a fresh name, records it and processes it
// before returning. The new document becomes the active one.
func (s *DocumentService) Ingest(ctx context.Context, up Upload) (*models.Document, error) {
	name := filepath.Base(strings.TrimSpace(up.Filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, &ValidationError{Message: "No selected file"}
	}

	if err := os.MkdirAll(s.storagePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	id := uuid.New()
	stored := id.String() + strings.ToLower(filepath.Ext(name))
	path := filepath.Join(s.storagePath, stored)

	size, err := writeFile(path, up.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to save upload: %w", err)
	}

	doc := &models.Document{
		ID:         id,
		Filename:   name,
		StoredName: stored,
		FilePath:   path,
		MimeType:   up.MimeType,
		SizeBytes:  size,
		Status:     models.DocumentPending,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to record document: %w", err)
	}

	s.logger.Info("document stored",
		zap.String("document_id", doc.ID.String()),
		zap.String("filename", name),
		zap.Int64("size_bytes", size),
	)

	n, err := s.Process(ctx, doc)
	if err != nil {
		return doc, err
	}
	doc.Status = models.DocumentReady
	doc.ChunkCount = n
	return doc, nil
}

// Process extracts, splits and embeds the document's file and replaces its
// chunk set. It returns the number of chunks stored.
func (s *DocumentService) Process(ctx context.Context, doc *models.Document) (int, error) {
	lockKey := documentLockKey(doc.ID)
	token, locked, err := s.locker.AcquireLock(ctx, lockKey, processingLockTTL)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire processing lock: %w", err)
	}
	if !locked {
		return 0, ErrDocumentBusy
	}
	defer s.locker.ReleaseLock(context.WithoutCancel(ctx), lockKey, token)

	s.setStatus(ctx, doc.ID, models.DocumentProcessing, nil)

	n, err := s.buildChunks(ctx, doc)
	if err != nil {
		msg := err.Error()
		s.setStatus(ctx, doc.ID, models.DocumentFailed, &msg)
		s.logger.Error("document processing failed",
			zap.String("document_id", doc.ID.String()),
			zap.Error(err),
		)
		return 0, err
	}

	s.publish(ctx, models.StatusUpdate{DocumentID: doc.ID, Status: models.DocumentReady, Chunks: n})
	s.logger.Info("document ready",
		zap.String("document_id", doc.ID.String()),
		zap.Int("chunks", n),
	)
	return n, nil
}

func (s *DocumentService) buildChunks(ctx context.Context, doc *models.Document) (int, error) {
	text, err := s.extractor.ExtractTextFromPath(doc.FilePath)
	if err != nil {
		return 0, &ProcessingError{Stage: "extract", Err: err}
	}

	pieces := s.splitter.Split(text)
	if len(pieces) == 0 {
		return 0, &ProcessingError{Stage: "split", Err: errors.New("document produced no chunks")}
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, pieces)
	if err != nil {
		return 0, &ProcessingError{Stage: "embed", Err: err}
	}

	chunks := make([]models.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = models.Chunk{ID: uuid.New(), DocumentID: doc.ID, Index: i, Content: p, Embedding: vectors[i]}
	}

	if err := s.docs.ReplaceChunks(ctx, doc.ID, chunks); err != nil {
		return 0, &ProcessingError{Stage: "store", Err: err}
	}
	return len(chunks), nil
}

// Reprocess reloads a document by ID and processes it again.
func (s *DocumentService) Reprocess(ctx context.Context, id uuid.UUID) (int, error) {
	doc, err := s.docs.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, &NotFoundError{Message: "document " + id.String() + " not found"}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load document %s: %w", id, err)
	}
	if _, err := os.Stat(doc.FilePath); err != nil {
		return 0, &NotFoundError{Message: "stored file missing for document " + id.String()}
	}
	return s.Process(ctx, doc)
}

// Active returns the most recently uploaded document.
func (s *DocumentService) Active(ctx context.Context) (*models.Document, error) {
	return s.docs.GetLatest(ctx)
}

func (s *DocumentService) setStatus(ctx context.Context, id uuid.UUID, status string, errMsg *string) {
	if err := s.docs.UpdateStatus(ctx, id, status, errMsg); err != nil {
		s.logger.Warn("failed to update document status",
			zap.String("document_id", id.String()),
			zap.String("status", status),
			zap.Error(err),
		)
	}
	update := models.StatusUpdate{DocumentID: id, Status: status}
	if errMsg != nil {
		update.Error = *errMsg
	}
	s.publish(ctx, update)
}

func (s *DocumentService) publish(ctx context.Context, update models.StatusUpdate) {
	if err := s.publisher.PublishStatus(ctx, update); err != nil {
		s.logger.Debug("status publish failed", zap.Error(err))
	}
}

func writeFile(path string, body io.Reader) (int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return 0, err
	}
	return n, nil
}

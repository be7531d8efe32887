package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docchat/internal/models"
)

type qaFixture struct {
	svc      *QAService
	store    *stubDocumentStore
	chats    *stubChatStore
	answerer *stubAnswerer
	coord    *stubCoordinator
}

func newQAFixture() *qaFixture {
	f := &qaFixture{
		store:    newStubDocumentStore(),
		chats:    &stubChatStore{},
		answerer: &stubAnswerer{answer: "It covers graphs."},
		coord:    newStubCoordinator(),
	}
	f.svc = NewQAService(f.store, f.chats, &stubEmbedder{}, f.answerer, NewRetriever(1, 20, 0.25), f.coord, f.coord, 10, zap.NewNop())
	return f
}

func (f *qaFixture) addReadyDocument(t *testing.T) *models.Document {
	t.Helper()
	doc := &models.Document{ID: uuid.New(), Status: models.DocumentReady}
	require.NoError(t, f.store.Create(context.Background(), doc))
	f.store.chunks[doc.ID] = []models.Chunk{
		{Index: 0, Content: "Sorting puts items in order.", Embedding: []float32{1, 0}},
		{Index: 1, Content: "A graph is vertices plus edges.", Embedding: []float32{0, 1}},
	}
	return doc
}

func TestQAService_RejectsBlankQuestion(t *testing.T) {
	f := newQAFixture()
	_, err := f.svc.Ask(context.Background(), "   ")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestQAService_NoDocument(t *testing.T) {
	f := newQAFixture()
	answer, err := f.svc.Ask(context.Background(), "hello?")
	require.NoError(t, err)
	assert.Equal(t, AnswerNoDocument, answer)
	assert.Empty(t, f.answerer.prompt)
}

func TestQAService_StillProcessing(t *testing.T) {
	f := newQAFixture()
	require.NoError(t, f.store.Create(context.Background(), &models.Document{ID: uuid.New(), Status: models.DocumentProcessing}))

	answer, err := f.svc.Ask(context.Background(), "hello?")
	require.NoError(t, err)
	assert.Equal(t, AnswerStillProcessing, answer)
}

func TestQAService_FailedDocumentQueuesReindex(t *testing.T) {
	f := newQAFixture()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	doc := &models.Document{ID: uuid.New(), Status: models.DocumentFailed, FilePath: path}
	require.NoError(t, f.store.Create(context.Background(), doc))

	answer, err := f.svc.Ask(context.Background(), "what is it?")
	require.NoError(t, err)
	assert.Equal(t, AnswerProcessingFailed, answer)
	assert.Equal(t, []uuid.UUID{doc.ID}, f.coord.enqueued)
}

func TestQAService_FailedDocumentQueuedOncePerCooldown(t *testing.T) {
	f := newQAFixture()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	doc := &models.Document{ID: uuid.New(), Status: models.DocumentFailed, FilePath: path}
	require.NoError(t, f.store.Create(context.Background(), doc))

	for i := 0; i < 3; i++ {
		answer, err := f.svc.Ask(context.Background(), "what is it?")
		require.NoError(t, err)
		assert.Equal(t, AnswerProcessingFailed, answer)
	}

	assert.Equal(t, []uuid.UUID{doc.ID}, f.coord.enqueued)
	assert.Contains(t, f.coord.held, reindexPendingKey(doc.ID))
}

func TestQAService_PendingMarkerErrorSkipsEnqueue(t *testing.T) {
	f := newQAFixture()
	f.coord.lockErr = errBoom
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	require.NoError(t, f.store.Create(context.Background(), &models.Document{ID: uuid.New(), Status: models.DocumentFailed, FilePath: path}))

	answer, err := f.svc.Ask(context.Background(), "what is it?")
	require.NoError(t, err)
	assert.Equal(t, AnswerProcessingFailed, answer)
	assert.Empty(t, f.coord.enqueued)
}

func TestQAService_MissingFileIsNotQueued(t *testing.T) {
	f := newQAFixture()
	doc := &models.Document{ID: uuid.New(), Status: models.DocumentFailed, FilePath: "/nonexistent/doc.pdf"}
	require.NoError(t, f.store.Create(context.Background(), doc))

	answer, err := f.svc.Ask(context.Background(), "what is it?")
	require.NoError(t, err)
	assert.Equal(t, AnswerProcessingFailed, answer)
	assert.Empty(t, f.coord.enqueued)
}

func TestQAService_AnswersFromRetrievedContext(t *testing.T) {
	f := newQAFixture()
	doc := f.addReadyDocument(t)

	answer, err := f.svc.Ask(context.Background(), "  What is a graph?  ")
	require.NoError(t, err)
	assert.Equal(t, "It covers graphs.", answer)

	assert.Contains(t, f.answerer.prompt, "A graph is vertices plus edges.")
	assert.NotContains(t, f.answerer.prompt, "Sorting puts items in order.")
	assert.Contains(t, f.answerer.prompt, "Question: What is a graph?")

	require.Len(t, f.chats.turns, 1)
	assert.Equal(t, doc.ID, f.chats.turns[0].DocumentID)
	assert.Equal(t, "What is a graph?", f.chats.turns[0].Question)
}

func TestQAService_PassesHistory(t *testing.T) {
	f := newQAFixture()
	f.addReadyDocument(t)

	_, err := f.svc.Ask(context.Background(), "first question")
	require.NoError(t, err)
	_, err = f.svc.Ask(context.Background(), "second question")
	require.NoError(t, err)

	require.Len(t, f.answerer.history, 1)
	assert.Equal(t, "first question", f.answerer.history[0].Question)
	assert.Equal(t, 10, f.chats.limit)
}

func TestQAService_AnswererError(t *testing.T) {
	f := newQAFixture()
	f.addReadyDocument(t)
	f.answerer.err = &UpstreamError{Err: errBoom}

	_, err := f.svc.Ask(context.Background(), "anything")
	var uerr *UpstreamError
	require.ErrorAs(t, err, &uerr)
	assert.Empty(t, f.chats.turns)
}

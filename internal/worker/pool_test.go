package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docchat/internal/models"
	"docchat/internal/services"
)

type memQueue struct {
	mu   sync.Mutex
	jobs []models.Job
}

func (q *memQueue) Enqueue(ctx context.Context, job models.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *memQueue) Dequeue(ctx context.Context, timeout time.Duration) (*models.Job, error) {
	q.mu.Lock()
	if len(q.jobs) > 0 {
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		q.mu.Unlock()
		return &job, nil
	}
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Millisecond):
		return nil, nil
	}
}

func (q *memQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

type stubReprocessor struct {
	mu    sync.Mutex
	calls []uuid.UUID
	errs  []error
}

func (s *stubReprocessor) Reprocess(ctx context.Context, id uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, id)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return 0, err
	}
	return 4, nil
}

func (s *stubReprocessor) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func newTestPool(q jobQueue, r reprocessor) *Pool {
	p := NewPool(q, r, 1, zap.NewNop())
	p.retryDelay = time.Millisecond
	p.pollTimeout = time.Millisecond
	return p
}

func reindexJob(id uuid.UUID) models.Job {
	return models.Job{ID: uuid.New(), Type: models.JobDocumentReindex, ReferenceID: id, MaxRetries: 2}
}

func TestPool_ProcessesQueuedJob(t *testing.T) {
	q := &memQueue{}
	r := &stubReprocessor{}
	docID := uuid.New()
	require.NoError(t, q.Enqueue(context.Background(), reindexJob(docID)))

	p := newTestPool(q, r)
	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool { return r.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, docID, r.calls[0])
}

func TestPool_RetriesTransientFailure(t *testing.T) {
	q := &memQueue{}
	r := &stubReprocessor{errs: []error{errors.New("embed timeout")}}
	require.NoError(t, q.Enqueue(context.Background(), reindexJob(uuid.New())))

	p := newTestPool(q, r)
	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool { return r.count() == 2 }, time.Second, 5*time.Millisecond)
}

func TestPool_GivesUpAfterMaxRetries(t *testing.T) {
	q := &memQueue{}
	fail := errors.New("still broken")
	r := &stubReprocessor{errs: []error{fail, fail, fail, fail}}
	require.NoError(t, q.Enqueue(context.Background(), reindexJob(uuid.New())))

	p := newTestPool(q, r)
	p.Start(context.Background())

	require.Eventually(t, func() bool { return r.count() == 3 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	p.Stop()

	assert.Equal(t, 3, r.count(), "initial attempt plus MaxRetries")
	assert.Zero(t, q.len())
}

func TestPool_DropsMissingAndBusyDocuments(t *testing.T) {
	q := &memQueue{}
	r := &stubReprocessor{errs: []error{&services.NotFoundError{Message: "gone"}, services.ErrDocumentBusy}}
	require.NoError(t, q.Enqueue(context.Background(), reindexJob(uuid.New())))
	require.NoError(t, q.Enqueue(context.Background(), reindexJob(uuid.New())))

	p := newTestPool(q, r)
	p.Start(context.Background())

	require.Eventually(t, func() bool { return r.count() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	p.Stop()

	assert.Equal(t, 2, r.count())
	assert.Zero(t, q.len())
}

func TestPool_StopReturns(t *testing.T) {
	p := newTestPool(&memQueue{}, &stubReprocessor{})
	p.Start(context.Background())

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}

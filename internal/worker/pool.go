package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docchat/internal/models"
	"docchat/internal/services"
)

type jobQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*models.Job, error)
	Enqueue(ctx context.Context, job models.Job) error
}

type reprocessor interface {
	Reprocess(ctx context.Context, id uuid.UUID) (int, error)
}

// Pool runs goroutines that rebuild document chunks queued by the chat path.
type Pool struct {
	queue       jobQueue
	docs        reprocessor
	workerCount int
	pollTimeout time.Duration
	retryDelay  time.Duration
	logger      *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPool(queue jobQueue, docs reprocessor, workerCount int, logger *zap.Logger) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{
		queue:       queue,
		docs:        docs,
		workerCount: workerCount,
		pollTimeout: 5 * time.Second,
		retryDelay:  2 * time.Second,
		logger:      logger,
	}
}

func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.worker(ctx, id)
		}(i)
	}
	p.logger.Info("worker pool started", zap.Int("workers", p.workerCount))
}

// Stop cancels the workers and waits for in-flight jobs to return.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *Pool) worker(ctx context.Context, id int) {
	log := p.logger.With(zap.Int("worker", id))
	for {
		if ctx.Err() != nil {
			log.Debug("worker shutting down")
			return
		}

		job, err := p.queue.Dequeue(ctx, p.pollTimeout)
		if err != nil {
			if ctx.Err() == nil {
				log.Warn("dequeue failed", zap.Error(err))
				p.sleep(ctx, p.retryDelay)
			}
			continue
		}
		if job == nil {
			continue
		}

		p.process(ctx, log, job)
	}
}

func (p *Pool) process(ctx context.Context, log *zap.Logger, job *models.Job) {
	log = log.With(zap.String("job_id", job.ID.String()), zap.String("document_id", job.ReferenceID.String()))

	if job.Type != models.JobDocumentReindex {
		log.Warn("unknown job type", zap.String("type", job.Type))
		return
	}

	log.Info("reindexing document")
	n, err := p.docs.Reprocess(ctx, job.ReferenceID)
	switch {
	case err == nil:
		log.Info("reindex complete", zap.Int("chunks", n))
	case errors.Is(err, services.ErrDocumentBusy):
		log.Info("document already being processed, dropping job")
	default:
		var nf *services.NotFoundError
		if errors.As(err, &nf) || job.RetryCount >= job.MaxRetries {
			log.Error("reindex failed permanently", zap.Int("retries", job.RetryCount), zap.Error(err))
			return
		}
		job.RetryCount++
		log.Warn("reindex failed, requeueing", zap.Int("retry", job.RetryCount), zap.Error(err))
		p.sleep(ctx, p.retryDelay*time.Duration(job.RetryCount))
		if err := p.queue.Enqueue(context.WithoutCancel(ctx), *job); err != nil {
			log.Error("failed to requeue job", zap.Error(err))
		}
	}
}

func (p *Pool) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

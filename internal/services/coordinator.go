package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"docchat/internal/models"
)

const (
	ReindexQueueKey = "queue:document-reindex"
	StatusChannel   = "document_updates"
)

func documentLockKey(id uuid.UUID) string {
	return "doc_lock:" + id.String()
}

func reindexPendingKey(id uuid.UUID) string {
	return "reindex_pending:" + id.String()
}

// RedisCoordinator shares processing state between the HTTP handlers and the
// worker pool: a per-document lock, the reindex queue and status pub/sub.
type RedisCoordinator struct {
	redis *redis.Client
}

func NewRedisCoordinator(client *redis.Client) *RedisCoordinator {
	return &RedisCoordinator{redis: client}
}

// releaseLockScript deletes the lock only while it still holds the caller's
// token, so an expired holder cannot free a lock someone else took over.
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// AcquireLock takes key for ttl. The returned token must be passed to
// ReleaseLock.
func (c *RedisCoordinator) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := c.redis.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

func (c *RedisCoordinator) ReleaseLock(ctx context.Context, key, token string) error {
	return releaseLockScript.Run(ctx, c.redis, []string{key}, token).Err()
}

func (c *RedisCoordinator) PublishStatus(ctx context.Context, update models.StatusUpdate) error {
	data, err := json.Marshal(models.WSMessage{Type: "document_status", Payload: update})
	if err != nil {
		return err
	}
	return c.redis.Publish(ctx, StatusChannel, string(data)).Err()
}

func (c *RedisCoordinator) EnqueueReindex(ctx context.Context, documentID uuid.UUID) error {
	job := models.Job{
		ID:          uuid.New(),
		Type:        models.JobDocumentReindex,
		ReferenceID: documentID,
		MaxRetries:  3,
		CreatedAt:   time.Now(),
	}
	return c.Enqueue(ctx, job)
}

func (c *RedisCoordinator) Enqueue(ctx context.Context, job models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return c.redis.RPush(ctx, ReindexQueueKey, string(data)).Err()
}

// Dequeue blocks up to timeout for the next job. A nil job with a nil error
// means the wait timed out.
func (c *RedisCoordinator) Dequeue(ctx context.Context, timeout time.Duration) (*models.Job, error) {
	result, err := c.redis.BLPop(ctx, timeout, ReindexQueueKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}

	var job models.Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to parse job: %w", err)
	}
	return &job, nil
}

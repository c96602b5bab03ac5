package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"tourstay/internal/domain"
	"tourstay/internal/observability"
)

const emailQueueKey = "email_queue"

// EmailQueue is the durable retry list for transactional email. Unlike
// the cache, push failures are reported: the orchestrator's rollback
// decision depends on whether the job was durably queued.
type EmailQueue struct {
	client *redis.Client
}

func NewEmailQueue(client *redis.Client) *EmailQueue {
	return &EmailQueue{client: client}
}

func (q *EmailQueue) Push(ctx context.Context, job domain.EmailJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := q.client.RPush(ctx, emailQueueKey, data).Err(); err != nil {
		return err
	}
	if n, err := q.client.LLen(ctx, emailQueueKey).Result(); err == nil {
		observability.EmailQueueDepth.Set(float64(n))
	}
	return nil
}

// Pop blocks up to timeout waiting for a job. Returns nil with no error
// when the wait times out.
func (q *EmailQueue) Pop(ctx context.Context, timeout time.Duration) (*domain.EmailJob, error) {
	res, err := q.client.BLPop(ctx, timeout, emailQueueKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var job domain.EmailJob
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (q *EmailQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, emailQueueKey).Result()
}

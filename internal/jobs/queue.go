package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultQueueKey = "assessment:jobs:queue"

// Queue hands job ids from the dispatcher to workers.
type Queue interface {
	Enqueue(ctx context.Context, id uuid.UUID) error
	// Dequeue blocks up to wait; it returns ErrQueueEmpty when nothing arrived.
	Dequeue(ctx context.Context, wait time.Duration) (uuid.UUID, error)
}

// RedisQueue is a FIFO list: LPUSH to enqueue, BRPOP to dequeue.
type RedisQueue struct {
	client redis.Cmdable
	key    string
}

var _ Queue = (*RedisQueue)(nil)

func NewRedisQueue(client redis.Cmdable, key string) *RedisQueue {
	if key == "" {
		key = defaultQueueKey
	}
	return &RedisQueue{client: client, key: key}
}

func (q *RedisQueue) Enqueue(ctx context.Context, id uuid.UUID) error {
	if err := q.client.LPush(ctx, q.key, id.String()).Err(); err != nil {
		return fmt.Errorf("enqueue job %s: %w", id, err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context, wait time.Duration) (uuid.UUID, error) {
	res, err := q.client.BRPop(ctx, wait, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, ErrQueueEmpty
		}
		return uuid.Nil, fmt.Errorf("dequeue job: %w", err)
	}
	// BRPOP replies with [key, value].
	if len(res) != 2 {
		return uuid.Nil, fmt.Errorf("dequeue job: unexpected reply %v", res)
	}
	id, err := uuid.Parse(res[1])
	if err != nil {
		return uuid.Nil, fmt.Errorf("dequeue job: bad id %q: %w", res[1], err)
	}
	return id, nil
}

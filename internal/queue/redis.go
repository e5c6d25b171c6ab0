// Package queue is the Redis list the dispatcher pushes job ids onto and the workers pop from.
package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrEmpty is returned by Dequeue when nothing arrived before the timeout
var ErrEmpty = errors.New("queue is empty")

// RedisQueue is a FIFO of video job ids backed by a Redis list
type RedisQueue struct {
	client *redis.Client
	queue  string
}

// NewRedisQueue creates a queue on an existing client
func NewRedisQueue(client *redis.Client, queue string) *RedisQueue {
	return &RedisQueue{client: client, queue: queue}
}

// Enqueue appends the job ids in order
func (q *RedisQueue) Enqueue(ctx context.Context, jobIDs ...uint) error {
	if len(jobIDs) == 0 {
		return nil
	}
	vals := make([]interface{}, len(jobIDs))
	for i, id := range jobIDs {
		vals[i] = strconv.FormatUint(uint64(id), 10)
	}
	if err := q.client.LPush(ctx, q.queue, vals...).Err(); err != nil {
		return fmt.Errorf("failed to enqueue %d jobs: %w", len(jobIDs), err)
	}
	return nil
}

// Dequeue blocks until a job id is available, the timeout passes or ctx is done.
// A zero timeout blocks until ctx is done.
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (uint, error) {
	vals, err := q.client.BRPop(ctx, timeout, q.queue).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrEmpty
	}
	if err != nil {
		return 0, err
	}
	if len(vals) < 2 {
		return 0, fmt.Errorf("unexpected BRPop response: %v", vals)
	}
	id, err := strconv.ParseUint(vals[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid job id %q in queue %s: %w", vals[1], q.queue, err)
	}
	return uint(id), nil
}

// Len returns the number of queued job ids
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.queue).Result()
}

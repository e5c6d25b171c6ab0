// Package cache keeps the provider operation handle of every in-flight video job in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultTTL is how long an operation handle stays resolvable
const DefaultTTL = 24 * time.Hour

const keyPrefix = "video_operation:"

// Entry is the cached handle of a submitted generation.
type Entry struct {
	JobID         uint      `json:"job_id"`
	OperationName string    `json:"operation_name"`
	CreatedAt     time.Time `json:"created_at"`
}

// OperationCache is a TTL key-value store from job id to operation handle.
// A missing entry means the handle is unknown, never that the job is gone.
type OperationCache struct {
	client *redis.Client
}

// New creates an OperationCache on an existing Redis client
func New(client *redis.Client) *OperationCache {
	return &OperationCache{client: client}
}

// Key returns the Redis key of a job's operation handle
func Key(jobID uint) string {
	return fmt.Sprintf("%s%d", keyPrefix, jobID)
}

// Put stores the entry under the job id, replacing any previous handle.
// A non-positive ttl falls back to DefaultTTL.
func (c *OperationCache) Put(ctx context.Context, jobID uint, entry Entry, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	entry.JobID = jobID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode operation entry: %w", err)
	}
	if err := c.client.Set(ctx, Key(jobID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache operation for job %d: %w", jobID, err)
	}
	return nil
}

// Get returns the entry of a job and whether it was present
func (c *OperationCache) Get(ctx context.Context, jobID uint) (Entry, bool, error) {
	var entry Entry
	data, err := c.client.Get(ctx, Key(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return entry, false, nil
	}
	if err != nil {
		return entry, false, fmt.Errorf("failed to read operation for job %d: %w", jobID, err)
	}
	if err := json.Unmarshal(data, &entry); err != nil {
		return entry, false, fmt.Errorf("failed to decode operation for job %d: %w", jobID, err)
	}
	return entry, true, nil
}

// Evict removes the entry of a job. Evicting a missing entry is not an error.
func (c *OperationCache) Evict(ctx context.Context, jobID uint) error {
	if err := c.client.Del(ctx, Key(jobID)).Err(); err != nil {
		return fmt.Errorf("failed to evict operation for job %d: %w", jobID, err)
	}
	return nil
}

// Package queue provides Redis-backed task queues decoupling upload-time
// request handling from background import execution and event publication
// from webhook delivery. Lists give at-least-once dispatch; both task
// kinds are idempotent by construction, so redelivery is safe.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"product-importer/internal/config"
	"product-importer/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	importQueueKey  = "import:queue"
	webhookQueueKey = "webhook:queue"
)

// ErrEmpty is returned by a dequeue that timed out with no task available.
var ErrEmpty = errors.New("queue is empty")

// ImportTask schedules one CSV import job against its spooled file.
type ImportTask struct {
	JobID    uuid.UUID `json:"job_id"`
	FilePath string    `json:"file_path"`
}

// DeliveryTask schedules one webhook delivery attempt sequence.
type DeliveryTask struct {
	WebhookID uuid.UUID    `json:"webhook_id"`
	URL       string       `json:"url"`
	Event     domain.Event `json:"event"`
}

// Queue wraps the Redis lists used for background work dispatch.
type Queue struct {
	client *redis.Client
}

// New connects a Queue to Redis.
func New(cfg config.RedisConfig) *Queue {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Queue{client: client}
}

// NewWithClient wraps an existing Redis client, used by tests.
func NewWithClient(client *redis.Client) *Queue {
	return &Queue{client: client}
}

// Client exposes the underlying Redis client for middleware that needs
// raw commands, such as rate limiting.
func (q *Queue) Client() *redis.Client {
	return q.client
}

// Ping verifies the Redis connection.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (q *Queue) Close() error {
	return q.client.Close()
}

// EnqueueImport appends an import task for a worker to claim.
func (q *Queue) EnqueueImport(ctx context.Context, task ImportTask) error {
	return q.push(ctx, importQueueKey, task)
}

// DequeueImport blocks up to timeout for the next import task.
func (q *Queue) DequeueImport(ctx context.Context, timeout time.Duration) (*ImportTask, error) {
	task := &ImportTask{}
	if err := q.pop(ctx, importQueueKey, timeout, task); err != nil {
		return nil, err
	}
	return task, nil
}

// EnqueueDelivery appends one webhook delivery task.
func (q *Queue) EnqueueDelivery(ctx context.Context, task DeliveryTask) error {
	return q.push(ctx, webhookQueueKey, task)
}

// DequeueDelivery blocks up to timeout for the next delivery task.
func (q *Queue) DequeueDelivery(ctx context.Context, timeout time.Duration) (*DeliveryTask, error) {
	task := &DeliveryTask{}
	if err := q.pop(ctx, webhookQueueKey, timeout, task); err != nil {
		return nil, err
	}
	return task, nil
}

// ImportBacklog returns the number of unclaimed import tasks.
func (q *Queue) ImportBacklog(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, importQueueKey).Result()
}

// DeliveryBacklog returns the number of unclaimed delivery tasks.
func (q *Queue) DeliveryBacklog(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, webhookQueueKey).Result()
}

func (q *Queue) push(ctx context.Context, key string, task any) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	if err := q.client.LPush(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue task on %s: %w", key, err)
	}

	return nil
}

func (q *Queue) pop(ctx context.Context, key string, timeout time.Duration, task any) error {
	res, err := q.client.BRPop(ctx, timeout, key).Result()
	if err == redis.Nil {
		return ErrEmpty
	}
	if err != nil {
		return fmt.Errorf("failed to dequeue task from %s: %w", key, err)
	}
	if len(res) < 2 {
		return ErrEmpty
	}

	if err := json.Unmarshal([]byte(res[1]), task); err != nil {
		return fmt.Errorf("failed to unmarshal task from %s: %w", key, err)
	}

	return nil
}

package queue

import (
	"context"
	"testing"
	"time"

	"product-importer/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := NewWithClient(client)
	t.Cleanup(func() { q.Close() })
	return q
}

func TestQueue_ImportTaskRoundTrip(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	task := ImportTask{JobID: uuid.New(), FilePath: "/tmp/uploads/products.csv"}
	if err := q.EnqueueImport(ctx, task); err != nil {
		t.Fatalf("EnqueueImport failed: %v", err)
	}

	backlog, err := q.ImportBacklog(ctx)
	if err != nil {
		t.Fatalf("ImportBacklog failed: %v", err)
	}
	if backlog != 1 {
		t.Errorf("backlog = %d, want 1", backlog)
	}

	got, err := q.DequeueImport(ctx, time.Second)
	if err != nil {
		t.Fatalf("DequeueImport failed: %v", err)
	}
	if got.JobID != task.JobID || got.FilePath != task.FilePath {
		t.Errorf("dequeued task = %+v, want %+v", got, task)
	}
}

func TestQueue_ImportTasksAreFIFO(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	first := ImportTask{JobID: uuid.New(), FilePath: "first.csv"}
	second := ImportTask{JobID: uuid.New(), FilePath: "second.csv"}
	for _, task := range []ImportTask{first, second} {
		if err := q.EnqueueImport(ctx, task); err != nil {
			t.Fatalf("EnqueueImport failed: %v", err)
		}
	}

	got, err := q.DequeueImport(ctx, time.Second)
	if err != nil {
		t.Fatalf("DequeueImport failed: %v", err)
	}
	if got.JobID != first.JobID {
		t.Errorf("first dequeue = %s, want %s", got.FilePath, first.FilePath)
	}

	got, err = q.DequeueImport(ctx, time.Second)
	if err != nil {
		t.Fatalf("DequeueImport failed: %v", err)
	}
	if got.JobID != second.JobID {
		t.Errorf("second dequeue = %s, want %s", got.FilePath, second.FilePath)
	}
}

func TestQueue_DequeueEmptyReturnsErrEmpty(t *testing.T) {
	q := newTestQueue(t)

	if _, err := q.DequeueImport(context.Background(), 50*time.Millisecond); err != ErrEmpty {
		t.Fatalf("DequeueImport on empty queue = %v, want ErrEmpty", err)
	}
	if _, err := q.DequeueDelivery(context.Background(), 50*time.Millisecond); err != ErrEmpty {
		t.Fatalf("DequeueDelivery on empty queue = %v, want ErrEmpty", err)
	}
}

func TestQueue_DeliveryTaskRoundTrip(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	task := DeliveryTask{
		WebhookID: uuid.New(),
		URL:       "https://example.com/hooks",
		Event: domain.NewEvent(domain.EventProductCreated, map[string]any{
			"sku": "A-1",
		}),
	}
	if err := q.EnqueueDelivery(ctx, task); err != nil {
		t.Fatalf("EnqueueDelivery failed: %v", err)
	}

	got, err := q.DequeueDelivery(ctx, time.Second)
	if err != nil {
		t.Fatalf("DequeueDelivery failed: %v", err)
	}
	if got.WebhookID != task.WebhookID || got.URL != task.URL {
		t.Errorf("dequeued task = %+v, want %+v", got, task)
	}
	if got.Event.EventType != domain.EventProductCreated {
		t.Errorf("event type = %s, want %s", got.Event.EventType, domain.EventProductCreated)
	}
	if got.Event.Data["sku"] != "A-1" {
		t.Errorf("event data = %v", got.Event.Data)
	}

	// Import and delivery queues are independent
	if _, err := q.DequeueImport(ctx, 50*time.Millisecond); err != ErrEmpty {
		t.Errorf("delivery task leaked into the import queue: %v", err)
	}
}

package importer

import (
	"context"
	"testing"
	"time"

	"product-importer/internal/domain"
	"product-importer/internal/queue"

	"go.uber.org/zap"
)

type fakeImportQueue struct {
	tasks chan queue.ImportTask
}

func (f *fakeImportQueue) DequeueImport(ctx context.Context, timeout time.Duration) (*queue.ImportTask, error) {
	select {
	case task := <-f.tasks:
		return &task, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(10 * time.Millisecond):
		return nil, queue.ErrEmpty
	}
}

// signalPublisher reports job completion to the test without sharing
// mutable state across goroutines.
type signalPublisher struct {
	completed chan struct{}
}

func (p *signalPublisher) Publish(ctx context.Context, event domain.Event) {
	if event.EventType == domain.EventImportCompleted {
		p.completed <- struct{}{}
	}
}

func TestWorker_ProcessesQueuedJobs(t *testing.T) {
	jobs := newMockImportJobRepository()
	products := newMockProductRepository()
	publisher := &signalPublisher{completed: make(chan struct{}, 2)}
	imp := New(jobs, products, publisher, zap.NewNop(), 1000, 0)

	q := &fakeImportQueue{tasks: make(chan queue.ImportTask, 2)}
	for i := 0; i < 2; i++ {
		jobID := newPendingJob(t, jobs)
		path := writeSpool(t, "sku,name\nSKU-"+string(rune('A'+i))+",Product\n")
		q.tasks <- queue.ImportTask{JobID: jobID, FilePath: path}
	}

	worker := NewWorker(q, imp, 1, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-publisher.completed:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for import jobs to complete")
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not drain after cancellation")
	}

	for id, job := range jobs.jobs {
		if job.Status != domain.ImportStatusCompleted {
			t.Errorf("job %s status = %s, want completed", id, job.Status)
		}
	}
	if len(products.products) != 2 {
		t.Errorf("imported products = %d, want 2", len(products.products))
	}
}

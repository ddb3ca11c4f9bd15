package webhook

import (
	"context"
	"sync"
	"time"

	"product-importer/internal/queue"

	"go.uber.org/zap"
)

// DeliveryQueue supplies queued delivery tasks, one claim at a time.
type DeliveryQueue interface {
	DequeueDelivery(ctx context.Context, timeout time.Duration) (*queue.DeliveryTask, error)
}

// Worker consumes delivery tasks from the queue with a pool of
// goroutines. Deliveries to different subscriptions are independent; no
// ordering is guaranteed beyond best-effort enqueue order.
type Worker struct {
	queue     DeliveryQueue
	deliverer *Deliverer
	logger    *zap.Logger
	poolSize  int
}

// NewWorker creates a delivery worker pool of the given size.
func NewWorker(q DeliveryQueue, deliverer *Deliverer, poolSize int, logger *zap.Logger) *Worker {
	if poolSize <= 0 {
		poolSize = 1
	}
	return &Worker{
		queue:     q,
		deliverer: deliverer,
		logger:    logger,
		poolSize:  poolSize,
	}
}

// Run blocks until ctx is canceled and all workers have drained.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("Webhook delivery workers starting", zap.Int("pool_size", w.poolSize))

	var wg sync.WaitGroup
	for i := 0; i < w.poolSize; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx)
		}()
	}
	wg.Wait()

	w.logger.Info("Webhook delivery workers stopped")
}

func (w *Worker) loop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		task, err := w.queue.DequeueDelivery(ctx, 5*time.Second)
		if err == queue.ErrEmpty {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("Failed to dequeue webhook delivery", zap.Error(err))
			time.Sleep(500 * time.Millisecond)
			continue
		}

		// A terminal failure is logged inside Deliver; it never
		// propagates to the event's producer.
		w.deliverer.Deliver(ctx, task.URL, task.Event)
	}
}

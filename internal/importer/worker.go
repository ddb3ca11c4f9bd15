package importer

import (
	"context"
	"sync"
	"time"

	"product-importer/internal/queue"

	"go.uber.org/zap"
)

// ImportQueue supplies queued import tasks, one claim at a time.
type ImportQueue interface {
	DequeueImport(ctx context.Context, timeout time.Duration) (*queue.ImportTask, error)
}

// Worker pulls import tasks from the queue and runs them. Each job is a
// single sequential forward pass; parallelism exists only across jobs,
// bounded by the pool size.
type Worker struct {
	queue    ImportQueue
	importer *Importer
	logger   *zap.Logger
	poolSize int
}

// NewWorker creates an import worker pool of the given size.
func NewWorker(q ImportQueue, importer *Importer, poolSize int, logger *zap.Logger) *Worker {
	if poolSize <= 0 {
		poolSize = 1
	}
	return &Worker{
		queue:    q,
		importer: importer,
		logger:   logger,
		poolSize: poolSize,
	}
}

// Run blocks until ctx is canceled and all workers have drained.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("Import workers starting", zap.Int("pool_size", w.poolSize))

	var wg sync.WaitGroup
	for i := 0; i < w.poolSize; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx)
		}()
	}
	wg.Wait()

	w.logger.Info("Import workers stopped")
}

func (w *Worker) loop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		task, err := w.queue.DequeueImport(ctx, 5*time.Second)
		if err == queue.ErrEmpty {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("Failed to dequeue import task", zap.Error(err))
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if err := w.importer.Run(ctx, task.JobID, task.FilePath); err != nil {
			w.logger.Error("Import run failed",
				zap.String("import_id", task.JobID.String()),
				zap.Error(err),
			)
		}
	}
}

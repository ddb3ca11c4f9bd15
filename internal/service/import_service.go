package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"product-importer/internal/domain"
	"product-importer/internal/queue"
	"product-importer/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNotCSV       = errors.New("file must be a CSV file")
	ErrEmptyUpload  = errors.New("file is empty")
	ErrFileTooLarge = errors.New("file size exceeds the configured maximum")
)

// ImportQueue schedules background import tasks.
type ImportQueue interface {
	EnqueueImport(ctx context.Context, task queue.ImportTask) error
}

// ImportService owns upload intake and job status reads. The upload path
// only spools the file and enqueues work; all processing happens in the
// background workers.
type ImportService interface {
	Upload(ctx context.Context, fileName string, src io.Reader, size int64) (*domain.ImportJob, error)
	GetStatus(ctx context.Context, id uuid.UUID) (*domain.ImportJob, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.ImportJob, error)
}

type importService struct {
	jobs        repository.ImportJobRepository
	queue       ImportQueue
	publisher   EventPublisher
	logger      *zap.Logger
	uploadDir   string
	maxFileSize int64
}

// NewImportService creates a new instance of ImportService
func NewImportService(
	jobs repository.ImportJobRepository,
	q ImportQueue,
	publisher EventPublisher,
	logger *zap.Logger,
	uploadDir string,
	maxFileSize int64,
) ImportService {
	return &importService{
		jobs:        jobs,
		queue:       q,
		publisher:   publisher,
		logger:      logger,
		uploadDir:   uploadDir,
		maxFileSize: maxFileSize,
	}
}

// Upload validates the incoming file, spools it to disk, creates a
// pending job, publishes ImportStarted, and enqueues the background task.
// The job id is returned synchronously; processing starts when a worker
// claims the task.
func (s *importService) Upload(ctx context.Context, fileName string, src io.Reader, size int64) (*domain.ImportJob, error) {
	if !strings.HasSuffix(strings.ToLower(fileName), ".csv") {
		return nil, ErrNotCSV
	}
	if size == 0 {
		return nil, ErrEmptyUpload
	}
	if s.maxFileSize > 0 && size > s.maxFileSize {
		return nil, ErrFileTooLarge
	}

	job := &domain.ImportJob{
		ID:        uuid.New(),
		FileName:  fileName,
		Status:    domain.ImportStatusPending,
		CreatedAt: time.Now(),
	}

	spoolPath, err := s.spool(job.ID, src)
	if err != nil {
		return nil, err
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		os.Remove(spoolPath)
		return nil, err
	}

	s.publisher.Publish(ctx, domain.NewEvent(domain.EventImportStarted, map[string]any{
		"import_id": job.ID.String(),
		"file_name": fileName,
	}))

	if err := s.queue.EnqueueImport(ctx, queue.ImportTask{JobID: job.ID, FilePath: spoolPath}); err != nil {
		s.logger.Error("Failed to enqueue import task",
			zap.String("import_id", job.ID.String()),
			zap.Error(err),
		)
		msg := fmt.Sprintf("failed to start import task: %v", err)
		if failErr := s.jobs.Fail(ctx, job.ID, msg); failErr != nil {
			s.logger.Error("Failed to mark import job failed",
				zap.String("import_id", job.ID.String()),
				zap.Error(failErr),
			)
		}
		os.Remove(spoolPath)
		return nil, fmt.Errorf("failed to enqueue import: %w", err)
	}

	s.logger.Info("Import task enqueued",
		zap.String("import_id", job.ID.String()),
		zap.String("file_name", fileName),
		zap.Int64("size_bytes", size),
	)

	return job, nil
}

// spool copies the upload to disk in fixed-size chunks; the whole file is
// never held in memory. A size ceiling is enforced on the stream itself in
// case the declared size was wrong.
func (s *importService) spool(jobID uuid.UUID, src io.Reader) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}

	path := filepath.Join(s.uploadDir, jobID.String()+".csv")
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create spool file: %w", err)
	}
	defer dst.Close()

	limited := src
	if s.maxFileSize > 0 {
		limited = io.LimitReader(src, s.maxFileSize+1)
	}

	written, err := io.Copy(dst, limited)
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to spool upload: %w", err)
	}
	if s.maxFileSize > 0 && written > s.maxFileSize {
		os.Remove(path)
		return "", ErrFileTooLarge
	}

	return path, nil
}

// GetStatus returns a point-in-time snapshot of the job, safe to poll.
func (s *importService) GetStatus(ctx context.Context, id uuid.UUID) (*domain.ImportJob, error) {
	return s.jobs.FindByID(ctx, id)
}

// ListRecent returns the most recent import jobs.
func (s *importService) ListRecent(ctx context.Context, limit int) ([]*domain.ImportJob, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.jobs.ListRecent(ctx, limit)
}

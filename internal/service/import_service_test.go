package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"product-importer/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newTestImportService(t *testing.T, maxFileSize int64) (ImportService, *mockImportJobRepository, *mockImportQueue, *mockEventPublisher) {
	t.Helper()
	jobs := newMockImportJobRepository()
	q := &mockImportQueue{}
	publisher := &mockEventPublisher{}
	svc := NewImportService(jobs, q, publisher, zap.NewNop(), t.TempDir(), maxFileSize)
	return svc, jobs, q, publisher
}

func TestImportService_Upload(t *testing.T) {
	svc, jobs, q, publisher := newTestImportService(t, 0)
	ctx := context.Background()

	content := "sku,name\nA-1,Widget\n"
	job, err := svc.Upload(ctx, "products.csv", strings.NewReader(content), int64(len(content)))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if job.Status != domain.ImportStatusPending {
		t.Errorf("job status = %s, want pending", job.Status)
	}
	if _, ok := jobs.jobs[job.ID]; !ok {
		t.Errorf("job was not persisted")
	}

	if len(q.tasks) != 1 {
		t.Fatalf("enqueued tasks = %d, want 1", len(q.tasks))
	}
	task := q.tasks[0]
	if task.JobID != job.ID {
		t.Errorf("task job id = %s, want %s", task.JobID, job.ID)
	}

	// The spool holds the upload verbatim
	spooled, err := os.ReadFile(task.FilePath)
	if err != nil {
		t.Fatalf("failed to read spool: %v", err)
	}
	if string(spooled) != content {
		t.Errorf("spool content = %q, want %q", spooled, content)
	}

	started := publisher.last()
	if started == nil || started.EventType != domain.EventImportStarted {
		t.Fatalf("expected ImportStarted event, got %v", started)
	}
	if started.Data["import_id"] != job.ID.String() || started.Data["file_name"] != "products.csv" {
		t.Errorf("ImportStarted data = %v", started.Data)
	}
}

func TestImportService_UploadValidation(t *testing.T) {
	svc, _, q, _ := newTestImportService(t, 64)
	ctx := context.Background()

	if _, err := svc.Upload(ctx, "products.xlsx", strings.NewReader("x"), 1); err != ErrNotCSV {
		t.Errorf("non-CSV upload = %v, want ErrNotCSV", err)
	}
	if _, err := svc.Upload(ctx, "products.csv", strings.NewReader(""), 0); err != ErrEmptyUpload {
		t.Errorf("empty upload = %v, want ErrEmptyUpload", err)
	}
	if _, err := svc.Upload(ctx, "products.csv", strings.NewReader("x"), 65); err != ErrFileTooLarge {
		t.Errorf("oversized upload = %v, want ErrFileTooLarge", err)
	}

	// A stream longer than its declared size still hits the ceiling
	big := strings.Repeat("a", 100)
	if _, err := svc.Upload(ctx, "products.csv", strings.NewReader(big), 10); err != ErrFileTooLarge {
		t.Errorf("lying content-length = %v, want ErrFileTooLarge", err)
	}

	if len(q.tasks) != 0 {
		t.Errorf("rejected uploads were enqueued: %d", len(q.tasks))
	}
}

func TestImportService_UploadEnqueueFailure(t *testing.T) {
	jobs := newMockImportJobRepository()
	q := &mockImportQueue{enqueueErr: errors.New("redis down")}
	svc := NewImportService(jobs, q, &mockEventPublisher{}, zap.NewNop(), t.TempDir(), 0)

	content := "sku,name\nA-1,Widget\n"
	_, err := svc.Upload(context.Background(), "products.csv", strings.NewReader(content), int64(len(content)))
	if err == nil {
		t.Fatal("Upload succeeded despite enqueue failure")
	}

	// The orphaned job is failed rather than left pending forever
	for _, job := range jobs.jobs {
		if job.Status != domain.ImportStatusFailed {
			t.Errorf("job status = %s, want failed", job.Status)
		}
	}
}

func TestImportService_ListRecentClampsLimit(t *testing.T) {
	svc, jobs, _, _ := newTestImportService(t, 0)
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		job := &domain.ImportJob{ID: uuid.New(), Status: domain.ImportStatusPending}
		jobs.jobs[job.ID] = job
	}

	out, err := svc.ListRecent(ctx, 0)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(out) != 50 {
		t.Errorf("default limit returned %d jobs, want 50", len(out))
	}

	out, err = svc.ListRecent(ctx, 1000)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(out) != 50 {
		t.Errorf("excessive limit returned %d jobs, want 50", len(out))
	}
}

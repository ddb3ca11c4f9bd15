package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"product-importer/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrImportJobNotFound = errors.New("import job not found")
	ErrInvalidTransition = errors.New("invalid import status transition")
)

// ImportJobRepository defines the interface for import job persistence.
// Status transitions are validated against the job state machine: the
// happy path is strictly forward and terminal states are final.
type ImportJobRepository interface {
	Create(ctx context.Context, job *domain.ImportJob) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.ImportJob, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.ImportJob, error)
	Transition(ctx context.Context, id uuid.UUID, next domain.ImportStatus) error
	Fail(ctx context.Context, id uuid.UUID, message string) error
	SetTotalRecords(ctx context.Context, id uuid.UUID, total int) error
	SetProcessedRecords(ctx context.Context, id uuid.UUID, processed int) error
}

type importJobRepository struct {
	db *sql.DB
}

// NewImportJobRepository creates a new instance of ImportJobRepository
func NewImportJobRepository(db *sql.DB) ImportJobRepository {
	return &importJobRepository{db: db}
}

// Create inserts a new import job in the pending state.
func (r *importJobRepository) Create(ctx context.Context, job *domain.ImportJob) error {
	query := `
		INSERT INTO import_jobs (id, file_name, total_records, processed_records, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		job.ID,
		job.FileName,
		job.TotalRecords,
		job.ProcessedRecords,
		job.Status,
		job.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create import job: %w", err)
	}

	return nil
}

// FindByID retrieves a point-in-time snapshot of an import job.
func (r *importJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.ImportJob, error) {
	query := `
		SELECT id, file_name, total_records, processed_records, status, error_message,
		       created_at, started_at, completed_at
		FROM import_jobs
		WHERE id = $1
	`

	job := &domain.ImportJob{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID,
		&job.FileName,
		&job.TotalRecords,
		&job.ProcessedRecords,
		&job.Status,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.StartedAt,
		&job.CompletedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrImportJobNotFound
		}
		return nil, fmt.Errorf("failed to find import job: %w", err)
	}

	return job, nil
}

// ListRecent returns the most recently created jobs first.
func (r *importJobRepository) ListRecent(ctx context.Context, limit int) ([]*domain.ImportJob, error) {
	query := `
		SELECT id, file_name, total_records, processed_records, status, error_message,
		       created_at, started_at, completed_at
		FROM import_jobs
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list import jobs: %w", err)
	}
	defer rows.Close()

	jobs := []*domain.ImportJob{}
	for rows.Next() {
		job := &domain.ImportJob{}
		err := rows.Scan(
			&job.ID,
			&job.FileName,
			&job.TotalRecords,
			&job.ProcessedRecords,
			&job.Status,
			&job.ErrorMessage,
			&job.CreatedAt,
			&job.StartedAt,
			&job.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan import job: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating import jobs: %w", err)
	}

	return jobs, nil
}

// Transition moves a job to the next status if the step is legal.
// Leaving pending stamps started_at; entering a terminal state stamps
// completed_at exactly once.
func (r *importJobRepository) Transition(ctx context.Context, id uuid.UUID, next domain.ImportStatus) error {
	job, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if !job.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, next)
	}

	now := time.Now()

	query := `
		UPDATE import_jobs
		SET status = $2,
		    started_at = CASE WHEN started_at IS NULL AND $3 THEN $4 ELSE started_at END,
		    completed_at = CASE WHEN completed_at IS NULL AND $5 THEN $4 ELSE completed_at END
		WHERE id = $1
	`

	startsWork := job.Status == domain.ImportStatusPending
	terminal := next.IsTerminal()

	if _, err := r.db.ExecContext(ctx, query, id, next, startsWork, now, terminal); err != nil {
		return fmt.Errorf("failed to transition import job: %w", err)
	}

	return nil
}

// Fail moves a job to the failed state and records the cause. Failing an
// already-terminal job is rejected.
func (r *importJobRepository) Fail(ctx context.Context, id uuid.UUID, message string) error {
	job, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if !job.Status.CanTransition(domain.ImportStatusFailed) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, domain.ImportStatusFailed)
	}

	query := `
		UPDATE import_jobs
		SET status = $2, error_message = $3,
		    completed_at = COALESCE(completed_at, $4)
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, id, domain.ImportStatusFailed, message, time.Now()); err != nil {
		return fmt.Errorf("failed to mark import job failed: %w", err)
	}

	return nil
}

// SetTotalRecords fixes the total once header parsing completes.
func (r *importJobRepository) SetTotalRecords(ctx context.Context, id uuid.UUID, total int) error {
	query := `UPDATE import_jobs SET total_records = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, total)
	if err != nil {
		return fmt.Errorf("failed to set total records: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrImportJobNotFound
	}

	return nil
}

// SetProcessedRecords persists progress. The counter is monotonically
// non-decreasing; a stale write is silently ignored.
func (r *importJobRepository) SetProcessedRecords(ctx context.Context, id uuid.UUID, processed int) error {
	query := `
		UPDATE import_jobs
		SET processed_records = $2
		WHERE id = $1 AND processed_records <= $2
	`

	if _, err := r.db.ExecContext(ctx, query, id, processed); err != nil {
		return fmt.Errorf("failed to set processed records: %w", err)
	}

	return nil
}

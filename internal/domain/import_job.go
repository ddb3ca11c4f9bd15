package domain

import (
	"time"

	"github.com/google/uuid"
)

// ImportStatus is the lifecycle state of an import job.
type ImportStatus string

const (
	ImportStatusPending    ImportStatus = "pending"
	ImportStatusParsing    ImportStatus = "parsing"
	ImportStatusValidating ImportStatus = "validating"
	ImportStatusImporting  ImportStatus = "importing"
	ImportStatusCompleted  ImportStatus = "completed"
	ImportStatusFailed     ImportStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s ImportStatus) IsTerminal() bool {
	return s == ImportStatusCompleted || s == ImportStatusFailed
}

// CanTransition reports whether moving from s to next is a legal step.
// The happy path is strictly forward: pending -> parsing -> validating ->
// importing -> completed. Failed is reachable from any non-terminal state.
func (s ImportStatus) CanTransition(next ImportStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == ImportStatusFailed {
		return true
	}
	switch s {
	case ImportStatusPending:
		return next == ImportStatusParsing
	case ImportStatusParsing:
		return next == ImportStatusValidating
	case ImportStatusValidating:
		return next == ImportStatusImporting
	case ImportStatusImporting:
		return next == ImportStatusCompleted
	}
	return false
}

// ImportJob tracks the progress of one CSV import. It is owned by the
// worker executing the job; API consumers only ever read snapshots.
type ImportJob struct {
	ID               uuid.UUID    `json:"id" db:"id"`
	FileName         string       `json:"file_name" db:"file_name"`
	TotalRecords     int          `json:"total_records" db:"total_records"`
	ProcessedRecords int          `json:"processed_records" db:"processed_records"`
	Status           ImportStatus `json:"status" db:"status"`
	ErrorMessage     *string      `json:"error_message" db:"error_message"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
	StartedAt        *time.Time   `json:"started_at" db:"started_at"`
	CompletedAt      *time.Time   `json:"completed_at" db:"completed_at"`
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"product-importer/internal/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrWebhookNotFound = errors.New("webhook not found")
)

// WebhookRepository defines the interface for webhook subscription access.
// The delivery core only ever reads subscriptions; CRUD belongs to the
// REST surface.
type WebhookRepository interface {
	Create(ctx context.Context, webhook *domain.Webhook) error
	Update(ctx context.Context, webhook *domain.Webhook) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Webhook, error)
	List(ctx context.Context) ([]*domain.Webhook, error)
	ListEnabled(ctx context.Context) ([]*domain.Webhook, error)
}

type webhookRepository struct {
	db *sql.DB
}

// NewWebhookRepository creates a new instance of WebhookRepository
func NewWebhookRepository(db *sql.DB) WebhookRepository {
	return &webhookRepository{db: db}
}

// Create inserts a new webhook subscription.
func (r *webhookRepository) Create(ctx context.Context, webhook *domain.Webhook) error {
	query := `
		INSERT INTO webhooks (id, url, event_types, is_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		webhook.ID,
		webhook.URL,
		pq.Array(webhook.EventTypes),
		webhook.IsEnabled,
		webhook.CreatedAt,
		webhook.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create webhook: %w", err)
	}

	return nil
}

// Update updates an existing webhook subscription.
func (r *webhookRepository) Update(ctx context.Context, webhook *domain.Webhook) error {
	query := `
		UPDATE webhooks
		SET url = $2, event_types = $3, is_enabled = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		webhook.ID,
		webhook.URL,
		pq.Array(webhook.EventTypes),
		webhook.IsEnabled,
		webhook.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update webhook: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrWebhookNotFound
	}

	return nil
}

// Delete removes a webhook subscription.
func (r *webhookRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM webhooks WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrWebhookNotFound
	}

	return nil
}

// FindByID retrieves a webhook by ID.
func (r *webhookRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Webhook, error) {
	query := `
		SELECT id, url, event_types, is_enabled, created_at, updated_at
		FROM webhooks
		WHERE id = $1
	`

	webhook := &domain.Webhook{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&webhook.ID,
		&webhook.URL,
		pq.Array(&webhook.EventTypes),
		&webhook.IsEnabled,
		&webhook.CreatedAt,
		&webhook.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrWebhookNotFound
		}
		return nil, fmt.Errorf("failed to find webhook: %w", err)
	}

	return webhook, nil
}

// List retrieves all webhook subscriptions.
func (r *webhookRepository) List(ctx context.Context) ([]*domain.Webhook, error) {
	return r.list(ctx, false)
}

// ListEnabled retrieves only enabled subscriptions, for event fan-out.
func (r *webhookRepository) ListEnabled(ctx context.Context) ([]*domain.Webhook, error) {
	return r.list(ctx, true)
}

func (r *webhookRepository) list(ctx context.Context, enabledOnly bool) ([]*domain.Webhook, error) {
	query := `
		SELECT id, url, event_types, is_enabled, created_at, updated_at
		FROM webhooks
	`
	if enabledOnly {
		query += ` WHERE is_enabled = TRUE`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	defer rows.Close()

	webhooks := []*domain.Webhook{}
	for rows.Next() {
		webhook := &domain.Webhook{}
		err := rows.Scan(
			&webhook.ID,
			&webhook.URL,
			pq.Array(&webhook.EventTypes),
			&webhook.IsEnabled,
			&webhook.CreatedAt,
			&webhook.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook: %w", err)
		}
		webhooks = append(webhooks, webhook)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating webhooks: %w", err)
	}

	return webhooks, nil
}

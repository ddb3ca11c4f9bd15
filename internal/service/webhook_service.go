package service

import (
	"context"
	"errors"
	"time"

	"product-importer/internal/domain"
	"product-importer/internal/repository"
	"product-importer/internal/webhook"

	"github.com/google/uuid"
)

var (
	ErrWebhookDisabled = errors.New("webhook is disabled")
)

// WebhookTestResult is the outcome of one on-demand delivery attempt.
type WebhookTestResult struct {
	StatusCode int
	Latency    time.Duration
}

// CreateWebhookParams are the attributes of a new subscription.
type CreateWebhookParams struct {
	URL        string
	EventTypes []string
	IsEnabled  bool
}

// UpdateWebhookParams are partial updates; nil fields are left unchanged.
type UpdateWebhookParams struct {
	URL        *string
	EventTypes *[]string
	IsEnabled  *bool
}

// WebhookService defines subscription management plus the on-demand test
// operation, which performs exactly one synchronous delivery attempt and
// bypasses the retry/queue path.
type WebhookService interface {
	Create(ctx context.Context, params CreateWebhookParams) (*domain.Webhook, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateWebhookParams) (*domain.Webhook, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Webhook, error)
	List(ctx context.Context) ([]*domain.Webhook, error)
	Test(ctx context.Context, id uuid.UUID) (*WebhookTestResult, error)
}

type webhookService struct {
	webhooks  repository.WebhookRepository
	deliverer *webhook.Deliverer
}

// NewWebhookService creates a new instance of WebhookService
func NewWebhookService(webhooks repository.WebhookRepository, deliverer *webhook.Deliverer) WebhookService {
	return &webhookService{
		webhooks:  webhooks,
		deliverer: deliverer,
	}
}

// Create registers a new subscription.
func (s *webhookService) Create(ctx context.Context, params CreateWebhookParams) (*domain.Webhook, error) {
	now := time.Now()
	wh := &domain.Webhook{
		ID:         uuid.New(),
		URL:        params.URL,
		EventTypes: params.EventTypes,
		IsEnabled:  params.IsEnabled,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if wh.EventTypes == nil {
		wh.EventTypes = []string{}
	}

	if err := s.webhooks.Create(ctx, wh); err != nil {
		return nil, err
	}

	return wh, nil
}

// Update applies the non-nil fields.
func (s *webhookService) Update(ctx context.Context, id uuid.UUID, params UpdateWebhookParams) (*domain.Webhook, error) {
	wh, err := s.webhooks.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.URL != nil {
		wh.URL = *params.URL
	}
	if params.EventTypes != nil {
		wh.EventTypes = *params.EventTypes
		if wh.EventTypes == nil {
			wh.EventTypes = []string{}
		}
	}
	if params.IsEnabled != nil {
		wh.IsEnabled = *params.IsEnabled
	}
	wh.UpdatedAt = time.Now()

	if err := s.webhooks.Update(ctx, wh); err != nil {
		return nil, err
	}

	return wh, nil
}

// Delete removes a subscription.
func (s *webhookService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.webhooks.Delete(ctx, id)
}

// GetByID retrieves a subscription by ID.
func (s *webhookService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Webhook, error) {
	return s.webhooks.FindByID(ctx, id)
}

// List retrieves all subscriptions.
func (s *webhookService) List(ctx context.Context) ([]*domain.Webhook, error) {
	return s.webhooks.List(ctx)
}

// Test sends one TestEvent synchronously and returns the endpoint's
// status code and latency.
func (s *webhookService) Test(ctx context.Context, id uuid.UUID) (*WebhookTestResult, error) {
	wh, err := s.webhooks.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !wh.IsEnabled {
		return nil, ErrWebhookDisabled
	}

	event := domain.NewEvent(domain.EventTest, map[string]any{
		"message":    "This is a test webhook event",
		"webhook_id": wh.ID.String(),
	})

	result := s.deliverer.Attempt(ctx, wh.URL, event)
	if result.Err != nil {
		return nil, result.Err
	}

	return &WebhookTestResult{
		StatusCode: result.StatusCode,
		Latency:    result.Latency,
	}, nil
}

// Package event fans catalog and import lifecycle events out to webhook
// subscriptions.
package event

import (
	"context"

	"product-importer/internal/domain"
	"product-importer/internal/queue"
	"product-importer/internal/repository"

	"go.uber.org/zap"
)

// DeliveryQueue enqueues one delivery task per matching subscription.
type DeliveryQueue interface {
	EnqueueDelivery(ctx context.Context, task queue.DeliveryTask) error
}

// Publisher matches events against enabled subscriptions and queues
// deliveries. It must only be invoked after the transaction that produced
// the event has committed; it can never roll that transaction back, and it
// never fails the caller.
type Publisher struct {
	webhooks repository.WebhookRepository
	queue    DeliveryQueue
	logger   *zap.Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(webhooks repository.WebhookRepository, q DeliveryQueue, logger *zap.Logger) *Publisher {
	return &Publisher{
		webhooks: webhooks,
		queue:    q,
		logger:   logger,
	}
}

// Publish enqueues the event for every enabled subscription whose filter
// is empty (wildcard) or contains the event's type. Delivery itself is
// asynchronous; nothing is sent from here.
func (p *Publisher) Publish(ctx context.Context, event domain.Event) {
	subscriptions, err := p.webhooks.ListEnabled(ctx)
	if err != nil {
		p.logger.Error("Failed to load webhook subscriptions",
			zap.String("event_type", string(event.EventType)),
			zap.Error(err),
		)
		return
	}

	matched := 0
	for _, sub := range subscriptions {
		if !sub.Matches(event.EventType) {
			continue
		}

		task := queue.DeliveryTask{
			WebhookID: sub.ID,
			URL:       sub.URL,
			Event:     event,
		}
		if err := p.queue.EnqueueDelivery(ctx, task); err != nil {
			p.logger.Error("Failed to enqueue webhook delivery",
				zap.String("event_type", string(event.EventType)),
				zap.String("webhook_id", sub.ID.String()),
				zap.Error(err),
			)
			continue
		}
		matched++
	}

	p.logger.Debug("Event published",
		zap.String("event_type", string(event.EventType)),
		zap.Int("deliveries_queued", matched),
	)
}

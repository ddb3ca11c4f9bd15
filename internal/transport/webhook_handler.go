package transport

import (
	"net/http"
	"time"

	"product-importer/internal/domain"
	"product-importer/internal/middleware"
	"product-importer/internal/repository"
	"product-importer/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateWebhookRequest represents the webhook creation payload
type CreateWebhookRequest struct {
	URL        string   `json:"url" validate:"required,url,max=500"`
	EventTypes []string `json:"event_types"`
	IsEnabled  *bool    `json:"is_enabled"`
}

// UpdateWebhookRequest represents a partial webhook update payload
type UpdateWebhookRequest struct {
	URL        *string   `json:"url" validate:"omitempty,url,max=500"`
	EventTypes *[]string `json:"event_types"`
	IsEnabled  *bool     `json:"is_enabled"`
}

// WebhookResponse represents a webhook in API responses
type WebhookResponse struct {
	ID         string   `json:"id"`
	URL        string   `json:"url"`
	EventTypes []string `json:"event_types"`
	IsEnabled  bool     `json:"is_enabled"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
}

// WebhookTestResponse represents the on-demand test outcome
type WebhookTestResponse struct {
	Status         string `json:"status"`
	ResponseCode   int    `json:"response_code"`
	ResponseTimeMS int64  `json:"response_time_ms"`
}

// WebhookHandler handles HTTP requests for webhook subscription operations
type WebhookHandler struct {
	webhookService service.WebhookService
	logger         *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(webhookService service.WebhookService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		logger:         logger,
	}
}

// RegisterRoutes registers all webhook routes
func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/webhooks", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/test", h.Test)
	})
}

// Create handles webhook registration
func (h *WebhookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateWebhookRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Webhook validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	isEnabled := true
	if req.IsEnabled != nil {
		isEnabled = *req.IsEnabled
	}

	webhook, err := h.webhookService.Create(r.Context(), service.CreateWebhookParams{
		URL:        req.URL,
		EventTypes: req.EventTypes,
		IsEnabled:  isEnabled,
	})
	if err != nil {
		h.logger.Error("Webhook creation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create webhook")
		return
	}

	h.logger.Info("Webhook created", zap.String("webhook_id", webhook.ID.String()), zap.String("url", webhook.URL))
	middleware.RespondWithJSON(w, http.StatusCreated, toWebhookResponse(webhook))
}

// List handles webhook listing
func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	webhooks, err := h.webhookService.List(r.Context())
	if err != nil {
		h.logger.Error("Webhook listing failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list webhooks")
		return
	}

	items := make([]WebhookResponse, 0, len(webhooks))
	for _, wh := range webhooks {
		items = append(items, toWebhookResponse(wh))
	}

	middleware.RespondWithJSON(w, http.StatusOK, items)
}

// Get handles retrieval of a single webhook
func (h *WebhookHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid webhook ID")
		return
	}

	webhook, err := h.webhookService.GetByID(r.Context(), id)
	if err != nil {
		if err == repository.ErrWebhookNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "webhook not found")
			return
		}

		h.logger.Error("Webhook lookup failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get webhook")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toWebhookResponse(webhook))
}

// Update handles partial webhook updates
func (h *WebhookHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid webhook ID")
		return
	}

	var req UpdateWebhookRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Webhook update validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	webhook, err := h.webhookService.Update(r.Context(), id, service.UpdateWebhookParams{
		URL:        req.URL,
		EventTypes: req.EventTypes,
		IsEnabled:  req.IsEnabled,
	})
	if err != nil {
		if err == repository.ErrWebhookNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "webhook not found")
			return
		}

		h.logger.Error("Webhook update failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update webhook")
		return
	}

	h.logger.Info("Webhook updated", zap.String("webhook_id", webhook.ID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, toWebhookResponse(webhook))
}

// Delete handles webhook removal
func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid webhook ID")
		return
	}

	if err := h.webhookService.Delete(r.Context(), id); err != nil {
		if err == repository.ErrWebhookNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "webhook not found")
			return
		}

		h.logger.Error("Webhook deletion failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to delete webhook")
		return
	}

	h.logger.Info("Webhook deleted", zap.String("webhook_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

// Test performs one synchronous delivery attempt and reports the result
func (h *WebhookHandler) Test(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid webhook ID")
		return
	}

	result, err := h.webhookService.Test(r.Context(), id)
	if err != nil {
		switch err {
		case repository.ErrWebhookNotFound:
			middleware.RespondWithError(w, http.StatusNotFound, "webhook not found")
		case service.ErrWebhookDisabled:
			middleware.RespondWithError(w, http.StatusBadRequest, "webhook is disabled")
		default:
			h.logger.Error("Webhook test failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusBadGateway, "webhook test failed: "+err.Error())
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, WebhookTestResponse{
		Status:         "success",
		ResponseCode:   result.StatusCode,
		ResponseTimeMS: result.Latency.Milliseconds(),
	})
}

func toWebhookResponse(wh *domain.Webhook) WebhookResponse {
	eventTypes := wh.EventTypes
	if eventTypes == nil {
		eventTypes = []string{}
	}
	return WebhookResponse{
		ID:         wh.ID.String(),
		URL:        wh.URL,
		EventTypes: eventTypes,
		IsEnabled:  wh.IsEnabled,
		CreatedAt:  wh.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  wh.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

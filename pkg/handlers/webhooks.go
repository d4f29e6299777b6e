package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/socialflow-inc/socialflow-engine/pkg/auth"
	"github.com/socialflow-inc/socialflow-engine/pkg/models"
	"github.com/socialflow-inc/socialflow-engine/pkg/services"
	"github.com/socialflow-inc/socialflow-engine/pkg/validation"
)

// CreateWebhookRequest is the body for POST /api/projects/{pid}/webhooks.
type CreateWebhookRequest struct {
	WebhookURL      string   `json:"webhook_url" validate:"required,url"`
	WebhookSecret   string   `json:"webhook_secret" validate:"required,min=1"`
	WorkflowID      *string  `json:"workflow_id"`
	AutomationType  string   `json:"automation_type" validate:"required"`
	TriggerEvents   []string `json:"trigger_events"`
	PlatformFilters []string `json:"platform_filters"`
}

// UpdateWebhookRequest is the body for PUT /api/projects/{pid}/webhooks/{wid}.
// Only provided fields are written.
type UpdateWebhookRequest struct {
	WebhookURL      *string  `json:"webhook_url" validate:"omitempty,url"`
	WebhookSecret   *string  `json:"webhook_secret" validate:"omitempty,min=1"`
	WorkflowID      *string  `json:"workflow_id"`
	AutomationType  *string  `json:"automation_type"`
	TriggerEvents   []string `json:"trigger_events"`
	PlatformFilters []string `json:"platform_filters"`
	IsActive        *bool    `json:"is_active"`
}

// TriggerEventData is the event payload inside a trigger request.
type TriggerEventData struct {
	EventType     string         `json:"event_type" validate:"required"`
	ContentID     *string        `json:"content_id" validate:"omitempty,uuid"`
	ScheduledTime *time.Time     `json:"scheduled_time"`
	Platforms     []string       `json:"platforms"`
	Metadata      map[string]any `json:"metadata"`
}

// TriggerRequest is the body for POST /api/projects/{pid}/automations/trigger.
type TriggerRequest struct {
	AutomationType string           `json:"automation_type" validate:"required"`
	EventData      TriggerEventData `json:"event_data" validate:"required"`
}

// WebhooksHandler handles webhook config and automation trigger HTTP requests.
type WebhooksHandler struct {
	webhookService services.WebhookService
	logger         *zap.Logger
}

// NewWebhooksHandler creates a new webhooks handler.
func NewWebhooksHandler(webhookService services.WebhookService, logger *zap.Logger) *WebhooksHandler {
	return &WebhooksHandler{
		webhookService: webhookService,
		logger:         logger,
	}
}

// RegisterRoutes registers the webhooks handler's routes on the given mux.
// Config creation and automation triggering are separate endpoints.
func (h *WebhooksHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, tenantMiddleware TenantMiddleware) {
	base := "/api/projects/{pid}/webhooks"

	mux.HandleFunc("GET "+base,
		authMiddleware.RequireAuthWithPathValidation("pid")(tenantMiddleware(h.List)))
	mux.HandleFunc("POST "+base,
		authMiddleware.RequireAuthWithPathValidation("pid")(tenantMiddleware(h.Create)))
	mux.HandleFunc("PUT "+base+"/{wid}",
		authMiddleware.RequireAuthWithPathValidation("pid")(tenantMiddleware(h.Update)))
	mux.HandleFunc("DELETE "+base+"/{wid}",
		authMiddleware.RequireAuthWithPathValidation("pid")(tenantMiddleware(h.Delete)))
	mux.HandleFunc("POST /api/projects/{pid}/automations/trigger",
		authMiddleware.RequireAuthWithPathValidation("pid")(tenantMiddleware(h.Trigger)))
}

// List handles GET /api/projects/{pid}/webhooks
// Returns active configs newest first. Shared secrets are never included.
func (h *WebhooksHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := ParseProjectID(w, r, h.logger); !ok {
		return
	}

	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		h.unauthorized(w, err)
		return
	}

	configs, err := h.webhookService.List(r.Context(), principal)
	if err != nil {
		HandleServiceError(w, h.logger, err, "Failed to list webhook configs")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: configs}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST /api/projects/{pid}/webhooks
// Registers a new webhook config. Returns 201.
func (h *WebhooksHandler) Create(w http.ResponseWriter, r *http.Request) {
	if _, ok := ParseProjectID(w, r, h.logger); !ok {
		return
	}

	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		h.unauthorized(w, err)
		return
	}

	var req CreateWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if reqErr := validation.Struct(&req); reqErr != nil {
		if err := ValidationErrorResponse(w, reqErr); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	cfg, err := h.webhookService.Create(r.Context(), principal, &services.CreateWebhookInput{
		WebhookURL:      req.WebhookURL,
		WebhookSecret:   req.WebhookSecret,
		WorkflowID:      req.WorkflowID,
		AutomationType:  req.AutomationType,
		TriggerEvents:   req.TriggerEvents,
		PlatformFilters: req.PlatformFilters,
	})
	if err != nil {
		HandleServiceError(w, h.logger, err, "Failed to create webhook config")
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: cfg}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/projects/{pid}/webhooks/{wid}
func (h *WebhooksHandler) Update(w http.ResponseWriter, r *http.Request) {
	if _, ok := ParseProjectID(w, r, h.logger); !ok {
		return
	}
	webhookID, ok := ParseWebhookID(w, r, h.logger)
	if !ok {
		return
	}

	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		h.unauthorized(w, err)
		return
	}

	var req UpdateWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if reqErr := validation.Struct(&req); reqErr != nil {
		if err := ValidationErrorResponse(w, reqErr); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	cfg, err := h.webhookService.Update(r.Context(), principal, webhookID, &services.UpdateWebhookInput{
		WebhookURL:      req.WebhookURL,
		WebhookSecret:   req.WebhookSecret,
		WorkflowID:      req.WorkflowID,
		WorkflowIDSet:   req.WorkflowID != nil,
		AutomationType:  req.AutomationType,
		TriggerEvents:   req.TriggerEvents,
		PlatformFilters: req.PlatformFilters,
		PlatformsSet:    req.PlatformFilters != nil,
		IsActive:        req.IsActive,
	})
	if err != nil {
		HandleServiceError(w, h.logger, err, "Failed to update webhook config")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: cfg}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/projects/{pid}/webhooks/{wid}
// Soft-deletes the config. Repeating the call succeeds.
func (h *WebhooksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, ok := ParseProjectID(w, r, h.logger); !ok {
		return
	}
	webhookID, ok := ParseWebhookID(w, r, h.logger)
	if !ok {
		return
	}

	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		h.unauthorized(w, err)
		return
	}

	if err := h.webhookService.Delete(r.Context(), principal, webhookID); err != nil {
		HandleServiceError(w, h.logger, err, "Failed to delete webhook config")
		return
	}

	response := ApiResponse{
		Success: true,
		Message: "Webhook config deleted",
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Trigger handles POST /api/projects/{pid}/automations/trigger
// Relays the event to the newest active config for the automation type.
// Responds 404 without side effects when no active config matches.
func (h *WebhooksHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if _, ok := ParseProjectID(w, r, h.logger); !ok {
		return
	}

	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		h.unauthorized(w, err)
		return
	}

	var req TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if reqErr := validation.Struct(&req); reqErr != nil {
		if err := ValidationErrorResponse(w, reqErr); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	event := models.TriggerEvent{
		EventType:     req.EventData.EventType,
		ScheduledTime: req.EventData.ScheduledTime,
		Platforms:     req.EventData.Platforms,
		Metadata:      req.EventData.Metadata,
	}
	if req.EventData.ContentID != nil {
		contentID, err := uuid.Parse(*req.EventData.ContentID)
		if err != nil {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_content_id", "Invalid content ID format"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		event.ContentID = &contentID
	}

	result, err := h.webhookService.Trigger(r.Context(), principal, &services.TriggerInput{
		AutomationType: req.AutomationType,
		Event:          event,
	}, r.RemoteAddr)
	if err != nil {
		HandleServiceError(w, h.logger, err, "Failed to trigger automation")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *WebhooksHandler) unauthorized(w http.ResponseWriter, err error) {
	h.logger.Warn("Request without resolvable principal", zap.Error(err))
	if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required"); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

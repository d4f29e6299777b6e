package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/socialflow-inc/socialflow-engine/pkg/auth"
	"github.com/socialflow-inc/socialflow-engine/pkg/services"
	"github.com/socialflow-inc/socialflow-engine/pkg/validation"
)

// GenerateContentRequest is the body for POST /api/projects/{pid}/content/generate.
type GenerateContentRequest struct {
	Platform string   `json:"platform" validate:"required"`
	Topic    string   `json:"topic" validate:"required,max=1000"`
	Keywords []string `json:"keywords" validate:"max=20"`
}

// ContentHandler handles AI content generation HTTP requests.
type ContentHandler struct {
	contentService services.ContentService
	logger         *zap.Logger
}

// NewContentHandler creates a new content handler.
func NewContentHandler(contentService services.ContentService, logger *zap.Logger) *ContentHandler {
	return &ContentHandler{
		contentService: contentService,
		logger:         logger,
	}
}

// RegisterRoutes registers the content handler's routes on the given mux.
func (h *ContentHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, tenantMiddleware TenantMiddleware) {
	mux.HandleFunc("POST /api/projects/{pid}/content/generate",
		authMiddleware.RequireAuthWithPathValidation("pid")(tenantMiddleware(h.Generate)))
}

// Generate handles POST /api/projects/{pid}/content/generate
func (h *ContentHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if _, ok := ParseProjectID(w, r, h.logger); !ok {
		return
	}

	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		h.logger.Warn("Request without resolvable principal", zap.Error(err))
		if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	var req GenerateContentRequest
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

	result, err := h.contentService.Generate(r.Context(), principal, &services.GenerateContentInput{
		Platform: req.Platform,
		Topic:    req.Topic,
		Keywords: req.Keywords,
	})
	if err != nil {
		HandleServiceError(w, h.logger, err, "Failed to generate content")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

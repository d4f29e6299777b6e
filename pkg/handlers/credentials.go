package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/socialflow-inc/socialflow-engine/pkg/auth"
	"github.com/socialflow-inc/socialflow-engine/pkg/services"
	"github.com/socialflow-inc/socialflow-engine/pkg/validation"
)

// CreateCredentialRequest is the body for POST /api/projects/{pid}/credentials.
type CreateCredentialRequest struct {
	SocialAccountID string            `json:"social_account_id" validate:"required,uuid"`
	Platform        string            `json:"platform" validate:"required"`
	AccountName     string            `json:"account_name" validate:"required,max=255"`
	Credentials     map[string]string `json:"credentials" validate:"required,min=1"`
	ExpiresAt       *time.Time        `json:"expires_at"`
}

// UpdateCredentialRequest is the body for PUT /api/projects/{pid}/credentials/{cid}.
// Only provided fields are written.
type UpdateCredentialRequest struct {
	AccountName *string           `json:"account_name" validate:"omitempty,max=255"`
	Credentials map[string]string `json:"credentials"`
	ExpiresAt   *time.Time        `json:"expires_at"`
	IsActive    *bool             `json:"is_active"`
}

// CredentialsHandler handles social media credential HTTP requests.
type CredentialsHandler struct {
	credentialService   services.CredentialService
	verificationService services.VerificationService
	logger              *zap.Logger
}

// NewCredentialsHandler creates a new credentials handler.
func NewCredentialsHandler(
	credentialService services.CredentialService,
	verificationService services.VerificationService,
	logger *zap.Logger,
) *CredentialsHandler {
	return &CredentialsHandler{
		credentialService:   credentialService,
		verificationService: verificationService,
		logger:              logger,
	}
}

// RegisterRoutes registers the credentials handler's routes on the given mux.
func (h *CredentialsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, tenantMiddleware TenantMiddleware) {
	base := "/api/projects/{pid}/credentials"

	mux.HandleFunc("GET "+base,
		authMiddleware.RequireAuthWithPathValidation("pid")(tenantMiddleware(h.List)))
	mux.HandleFunc("POST "+base,
		authMiddleware.RequireAuthWithPathValidation("pid")(tenantMiddleware(h.Create)))
	mux.HandleFunc("PUT "+base+"/{cid}",
		authMiddleware.RequireAuthWithPathValidation("pid")(tenantMiddleware(h.Update)))
	mux.HandleFunc("DELETE "+base+"/{cid}",
		authMiddleware.RequireAuthWithPathValidation("pid")(tenantMiddleware(h.Delete)))
	mux.HandleFunc("POST "+base+"/{cid}/verify",
		authMiddleware.RequireAuthWithPathValidation("pid")(tenantMiddleware(h.Verify)))
}

// List handles GET /api/projects/{pid}/credentials
// Returns active credentials newest first. Secret material is never included.
func (h *CredentialsHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := ParseProjectID(w, r, h.logger); !ok {
		return
	}

	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		h.unauthorized(w, err)
		return
	}

	creds, err := h.credentialService.List(r.Context(), principal)
	if err != nil {
		HandleServiceError(w, h.logger, err, "Failed to list credentials")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: creds}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST /api/projects/{pid}/credentials
// Encrypts secret fields and stores the credential. Returns 201.
func (h *CredentialsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if _, ok := ParseProjectID(w, r, h.logger); !ok {
		return
	}

	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		h.unauthorized(w, err)
		return
	}

	var req CreateCredentialRequest
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

	socialAccountID, err := uuid.Parse(req.SocialAccountID)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_social_account_id", "Invalid social account ID format"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	cred, err := h.credentialService.Create(r.Context(), principal, &services.CreateCredentialInput{
		SocialAccountID: socialAccountID,
		Platform:        req.Platform,
		AccountName:     req.AccountName,
		Secrets:         req.Credentials,
		ExpiresAt:       req.ExpiresAt,
	})
	if err != nil {
		HandleServiceError(w, h.logger, err, "Failed to create credential")
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: cred}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/projects/{pid}/credentials/{cid}
// Applies a sparse update. Returns 404 if the credential does not exist.
func (h *CredentialsHandler) Update(w http.ResponseWriter, r *http.Request) {
	if _, ok := ParseProjectID(w, r, h.logger); !ok {
		return
	}
	credentialID, ok := ParseCredentialID(w, r, h.logger)
	if !ok {
		return
	}

	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		h.unauthorized(w, err)
		return
	}

	var req UpdateCredentialRequest
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

	cred, err := h.credentialService.Update(r.Context(), principal, credentialID, &services.UpdateCredentialInput{
		AccountName:  req.AccountName,
		Secrets:      req.Credentials,
		ExpiresAt:    req.ExpiresAt,
		ExpiresAtSet: req.ExpiresAt != nil,
		IsActive:     req.IsActive,
	})
	if err != nil {
		HandleServiceError(w, h.logger, err, "Failed to update credential")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: cred}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/projects/{pid}/credentials/{cid}
// Soft-deletes the credential. Repeating the call succeeds.
func (h *CredentialsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, ok := ParseProjectID(w, r, h.logger); !ok {
		return
	}
	credentialID, ok := ParseCredentialID(w, r, h.logger)
	if !ok {
		return
	}

	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		h.unauthorized(w, err)
		return
	}

	if err := h.credentialService.Delete(r.Context(), principal, credentialID); err != nil {
		HandleServiceError(w, h.logger, err, "Failed to delete credential")
		return
	}

	response := ApiResponse{
		Success: true,
		Message: "Credential deleted",
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Verify handles POST /api/projects/{pid}/credentials/{cid}/verify
// A failed verification is a normal 200 response with verified=false.
func (h *CredentialsHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if _, ok := ParseProjectID(w, r, h.logger); !ok {
		return
	}
	credentialID, ok := ParseCredentialID(w, r, h.logger)
	if !ok {
		return
	}

	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		h.unauthorized(w, err)
		return
	}

	result, err := h.verificationService.Verify(r.Context(), principal, credentialID)
	if err != nil {
		HandleServiceError(w, h.logger, err, "Failed to verify credential")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *CredentialsHandler) unauthorized(w http.ResponseWriter, err error) {
	h.logger.Warn("Request without resolvable principal", zap.Error(err))
	if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required"); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

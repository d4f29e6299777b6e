package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/socialflow-inc/socialflow-engine/pkg/auth"
	"github.com/socialflow-inc/socialflow-engine/pkg/services"
)

// TenantMiddleware wraps a handler with tenant-scoped database access.
type TenantMiddleware func(http.HandlerFunc) http.HandlerFunc

// ProvisionProjectRequest is the body for POST /api/projects/{pid}/provision.
type ProvisionProjectRequest struct {
	Name string `json:"name"`
}

// UpdateProjectRequest is the body for PATCH /api/projects/{pid}.
type UpdateProjectRequest struct {
	Name     *string        `json:"name"`
	Settings map[string]any `json:"settings"`
}

// ProjectsHandler handles project HTTP requests.
type ProjectsHandler struct {
	projectService services.ProjectService
	logger         *zap.Logger
}

// NewProjectsHandler creates a new projects handler.
func NewProjectsHandler(projectService services.ProjectService, logger *zap.Logger) *ProjectsHandler {
	return &ProjectsHandler{
		projectService: projectService,
		logger:         logger,
	}
}

// RegisterRoutes registers the projects handler's routes on the given mux.
func (h *ProjectsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, tenantMiddleware TenantMiddleware) {
	base := "/api/projects/{pid}"

	mux.HandleFunc("POST "+base+"/provision",
		authMiddleware.RequireAuthWithPathValidation("pid")(tenantMiddleware(h.Provision)))
	mux.HandleFunc("GET "+base,
		authMiddleware.RequireAuthWithPathValidation("pid")(tenantMiddleware(h.Get)))
	mux.HandleFunc("PATCH "+base,
		authMiddleware.RequireAuthWithPathValidation("pid")(tenantMiddleware(h.Update)))
	mux.HandleFunc("DELETE "+base,
		authMiddleware.RequireAuthWithPathValidation("pid")(tenantMiddleware(h.Delete)))
}

// Provision handles POST /api/projects/{pid}/provision
// Idempotent: repeated calls converge on the same project row.
func (h *ProjectsHandler) Provision(w http.ResponseWriter, r *http.Request) {
	if _, ok := ParseProjectID(w, r, h.logger); !ok {
		return
	}

	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		h.unauthorized(w, err)
		return
	}

	// Body is optional; an empty body provisions with a default name.
	var req ProvisionProjectRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	project, err := h.projectService.Provision(r.Context(), principal, req.Name)
	if err != nil {
		HandleServiceError(w, h.logger, err, "Failed to provision project")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: project}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/projects/{pid}
func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := ParseProjectID(w, r, h.logger); !ok {
		return
	}

	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		h.unauthorized(w, err)
		return
	}

	project, err := h.projectService.Get(r.Context(), principal)
	if err != nil {
		HandleServiceError(w, h.logger, err, "Failed to get project")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: project}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PATCH /api/projects/{pid}
func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	if _, ok := ParseProjectID(w, r, h.logger); !ok {
		return
	}

	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		h.unauthorized(w, err)
		return
	}

	var req UpdateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	project, err := h.projectService.Update(r.Context(), principal, req.Name, req.Settings)
	if err != nil {
		HandleServiceError(w, h.logger, err, "Failed to update project")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: project}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/projects/{pid}
func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, ok := ParseProjectID(w, r, h.logger); !ok {
		return
	}

	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		h.unauthorized(w, err)
		return
	}

	if err := h.projectService.Delete(r.Context(), principal); err != nil {
		HandleServiceError(w, h.logger, err, "Failed to delete project")
		return
	}

	response := ApiResponse{
		Success: true,
		Message: "Project deleted",
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *ProjectsHandler) unauthorized(w http.ResponseWriter, err error) {
	h.logger.Warn("Request without resolvable principal", zap.Error(err))
	if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required"); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

package database

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/socialflow-inc/socialflow-engine/pkg/auth"
)

// WithTenantContext returns middleware that acquires a project-scoped DB
// connection for the request. It must run after auth middleware, since the
// project ID comes from the validated JWT claims. The scoped connection is
// released when the handler returns.
func WithTenantContext(db *DB, logger *zap.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.GetClaims(r.Context())
			if !ok || claims.ProjectID == "" {
				// Auth middleware should have rejected this already.
				logger.Error("Tenant middleware reached without project claims",
					zap.String("path", r.URL.Path))
				writeError(w, http.StatusInternalServerError, "internal_error", "Missing project context")
				return
			}

			projectID, err := uuid.Parse(claims.ProjectID)
			if err != nil {
				logger.Error("Claims carry malformed project ID",
					zap.String("project_id", claims.ProjectID),
					zap.Error(err))
				writeError(w, http.StatusBadRequest, "invalid_project_id", "Invalid project ID format")
				return
			}

			scope, err := db.WithTenant(r.Context(), projectID)
			if err != nil {
				logger.Error("Failed to acquire tenant connection",
					zap.String("project_id", projectID.String()),
					zap.Error(err))
				writeError(w, http.StatusInternalServerError, "database_error", "Database connection error")
				return
			}
			defer scope.Close()

			next(w, r.WithContext(SetTenantScope(r.Context(), scope)))
		}
	}
}

func writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

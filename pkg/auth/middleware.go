package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Middleware provides HTTP authentication middleware.
// It is thin and delegates authentication logic to AuthService.
type Middleware struct {
	authService AuthService
	logger      *zap.Logger
}

// NewMiddleware creates a new auth middleware with the given AuthService.
func NewMiddleware(authService AuthService, logger *zap.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		logger:      logger,
	}
}

// RequireAuth validates the JWT and requires a project ID claim. Claims and
// the raw token end up in the request context. For endpoints without a
// project ID in the URL.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, token, err := m.authService.ValidateRequest(r)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}

		if err := m.authService.RequireProjectID(claims); err != nil {
			writeAuthError(w, http.StatusBadRequest, "bad_request", "Missing project ID in token")
			return
		}

		next(w, r.WithContext(withAuthContext(r.Context(), claims, token)))
	}
}

// RequireAuthWithPathValidation additionally checks that the project ID in
// the URL path matches the one in the token. For /api/projects/{pid}/...
// routes; pathParamName is the r.PathValue name, normally "pid".
func (m *Middleware) RequireAuthWithPathValidation(pathParamName string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, token, err := m.authService.ValidateRequest(r)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
				return
			}

			if err := m.authService.RequireProjectID(claims); err != nil {
				writeAuthError(w, http.StatusBadRequest, "bad_request", "Missing project ID in token")
				return
			}

			if err := m.authService.ValidateProjectIDMatch(claims, r.PathValue(pathParamName)); err != nil {
				writeAuthError(w, http.StatusForbidden, "forbidden", "Project ID mismatch between token and URL")
				return
			}

			next(w, r.WithContext(withAuthContext(r.Context(), claims, token)))
		}
	}
}

func withAuthContext(ctx context.Context, claims *Claims, token string) context.Context {
	ctx = context.WithValue(ctx, ClaimsKey, claims)
	return context.WithValue(ctx, TokenKey, token)
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}

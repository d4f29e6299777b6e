package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/socialflow-inc/socialflow-engine/pkg/auth"
	"github.com/socialflow-inc/socialflow-engine/pkg/config"
)

// StartLoginRequest is the body for POST /api/auth/start-login.
type StartLoginRequest struct {
	// OriginalURL is the dashboard page the user was on; they are sent back
	// there after the identity provider round trip.
	OriginalURL string `json:"original_url"`
}

// StartLoginResponse carries the state parameter the dashboard must pass
// through the identity provider redirect.
type StartLoginResponse struct {
	State string `json:"state"`
}

// CompleteOAuthRequest is the body for POST /api/auth/complete-oauth.
// The dashboard completes the PKCE exchange with the identity provider
// directly and posts the resulting JWT here to have it set as an httpOnly
// cookie.
type CompleteOAuthRequest struct {
	Token string `json:"token"`
	State string `json:"state"`
}

// CompleteOAuthResponse is the response for OAuth completion.
type CompleteOAuthResponse struct {
	Success     bool   `json:"success"`
	RedirectURL string `json:"redirect_url"`
}

// LogoutResponse is the response for logout.
type LogoutResponse struct {
	Success     bool   `json:"success"`
	RedirectURL string `json:"redirect_url"`
}

// MeResponse is the response for GET /api/auth/me.
type MeResponse struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	ProjectID string `json:"project_id"`
}

// AuthHandler handles the login flow endpoints.
type AuthHandler struct {
	authService auth.AuthService
	config      *config.Config
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService auth.AuthService, cfg *config.Config, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		config:      cfg,
		logger:      logger,
	}
}

// RegisterRoutes registers the auth handler's routes on the given mux.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/auth/start-login", h.StartLogin)
	mux.HandleFunc("POST /api/auth/complete-oauth", h.CompleteOAuth)
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
	mux.HandleFunc("GET /api/auth/me", authMiddleware.RequireAuth(h.Me))
}

// StartLogin handles POST /api/auth/start-login
// Generates the OAuth state parameter and records it, with the user's
// original URL, in a short-lived session cookie.
func (h *AuthHandler) StartLogin(w http.ResponseWriter, r *http.Request) {
	var req StartLoginRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		h.logger.Error("Failed to generate OAuth state", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to start login"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	state := hex.EncodeToString(buf)

	if err := auth.BeginLogin(r, w, state, req.OriginalURL); err != nil {
		h.logger.Error("Failed to save login session", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to start login"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, StartLoginResponse{State: state}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// CompleteOAuth handles POST /api/auth/complete-oauth
// Verifies the state against the login session, validates the posted JWT
// against the configured JWKS endpoints, and sets it as an httpOnly cookie.
func (h *AuthHandler) CompleteOAuth(w http.ResponseWriter, r *http.Request) {
	var req CompleteOAuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body", zap.Error(err))
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if req.Token == "" || req.State == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_parameters", "Missing token or state"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	originalURL, err := auth.CompleteLogin(r, w, req.State)
	if err != nil {
		if errors.Is(err, auth.ErrStateMismatch) {
			h.logger.Warn("OAuth state mismatch")
			if err := ErrorResponse(w, http.StatusBadRequest, "state_mismatch", "Login session state does not match"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to consume login session", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Authentication failed"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if _, err := h.authService.ValidateToken(req.Token); err != nil {
		h.logger.Warn("Rejected token at OAuth completion", zap.Error(err))
		if err := ErrorResponse(w, http.StatusUnauthorized, "invalid_token", "Token validation failed"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	cookieSettings := auth.DeriveCookieSettings(h.config.BaseURL, h.config.CookieDomain)
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    req.Token,
		HttpOnly: true,
		Secure:   cookieSettings.Secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   86400, // 24 hours
		Path:     "/",
		Domain:   cookieSettings.Domain,
	})

	if originalURL == "" {
		originalURL = "/"
	}

	h.logger.Info("Login completed", zap.String("redirect_url", originalURL))

	if err := WriteJSON(w, http.StatusOK, CompleteOAuthResponse{
		Success:     true,
		RedirectURL: originalURL,
	}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// Logout handles POST /api/auth/logout
// Clears the JWT cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookieSettings := auth.DeriveCookieSettings(h.config.BaseURL, h.config.CookieDomain)

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   cookieSettings.Secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
		Path:     "/",
		Domain:   cookieSettings.Domain,
	})

	if err := WriteJSON(w, http.StatusOK, LogoutResponse{
		Success:     true,
		RedirectURL: "/",
	}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// Me handles GET /api/auth/me
// Returns the authenticated user's identity from the JWT claims.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetClaims(r.Context())
	if !ok || claims == nil {
		if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Not authenticated"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, MeResponse{
		UserID:    claims.Subject,
		Email:     claims.Email,
		ProjectID: claims.ProjectID,
	}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// Package auth provides JWT-based authentication for socialflow-engine.
// It validates tokens issued by the SocialFlow identity provider using
// JWKS endpoints.
package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
	// TokenKey is the context key for storing the raw JWT token string.
	TokenKey contextKey = "token"
)

// Claims represents the JWT claims structure from the identity provider.
// It embeds RegisteredClaims for standard JWT fields (sub, iss, exp, etc.)
// and adds custom claims for project context.
type Claims struct {
	jwt.RegisteredClaims
	ProjectID string `json:"pid,omitempty"`   // Project UUID
	Email     string `json:"email,omitempty"` // User email address
}

// Principal is the authenticated caller resolved from a request.
// Handlers pass it explicitly into services so business logic can be
// tested without request-scoped context plumbing.
type Principal struct {
	UserID    string
	Email     string
	ProjectID uuid.UUID
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// GetToken retrieves the raw JWT token string from the request context.
// Returns empty string and false if token is not present.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}

// PrincipalFromContext resolves the authenticated principal from JWT claims
// in the context. Returns an error if not authenticated or claims are invalid.
func PrincipalFromContext(ctx context.Context) (*Principal, error) {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return nil, fmt.Errorf("authentication required: no claims in context")
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("missing user ID in JWT claims")
	}

	if claims.ProjectID == "" {
		return nil, fmt.Errorf("missing project ID in JWT claims")
	}

	projectID, err := uuid.Parse(claims.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("invalid project ID format: %w", err)
	}

	return &Principal{
		UserID:    claims.Subject,
		Email:     claims.Email,
		ProjectID: projectID,
	}, nil
}

// GetUserIDFromContext extracts the user ID from JWT claims in the context.
// Returns empty string if not authenticated or claims are missing.
func GetUserIDFromContext(ctx context.Context) string {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return ""
	}
	return claims.Subject
}

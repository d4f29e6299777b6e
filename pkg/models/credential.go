// Package models contains domain types for socialflow-engine.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Platform constants for supported social networks.
const (
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
	PlatformTwitter   = "twitter"
	PlatformLinkedIn  = "linkedin"
	PlatformTikTok    = "tiktok"
	PlatformYouTube   = "youtube"
	PlatformPinterest = "pinterest"
)

// Platforms lists every supported platform value.
var Platforms = []string{
	PlatformFacebook,
	PlatformInstagram,
	PlatformTwitter,
	PlatformLinkedIn,
	PlatformTikTok,
	PlatformYouTube,
	PlatformPinterest,
}

// SecretFieldNames is the fixed set of credential secret fields.
// Each is persisted only as an encrypted_<name> column.
var SecretFieldNames = []string{
	"api_key",
	"api_secret",
	"access_token",
	"refresh_token",
	"app_id",
	"client_id",
	"client_secret",
	"webhook_secret",
	"page_access_token",
	"business_account_id",
}

// Credential represents one set of secret material bound to a
// project + social account + platform. Secret fields never appear on this
// struct in plaintext; they live only in EncryptedFields and are written
// by the service layer after encryption.
type Credential struct {
	ID              uuid.UUID `json:"id"`
	ProjectID       uuid.UUID `json:"project_id"`
	SocialAccountID uuid.UUID `json:"social_account_id"`
	Platform        string    `json:"platform"`
	AccountName     string    `json:"account_name"`

	// EncryptedFields maps secret field name to its encrypted representation.
	// Never serialized in API responses.
	EncryptedFields map[string]string `json:"-"`

	IsActive          bool       `json:"is_active"`
	IsVerified        bool       `json:"is_verified"`
	LastVerifiedAt    *time.Time `json:"last_verified_at,omitempty"`
	VerificationError *string    `json:"verification_error,omitempty"`

	UsageCount         int64      `json:"usage_count"`
	RateLimitRemaining *int       `json:"rate_limit_remaining,omitempty"`
	RateLimitResetAt   *time.Time `json:"rate_limit_reset_at,omitempty"`

	ExpiresAt           *time.Time `json:"expires_at,omitempty"`
	RotationScheduledAt *time.Time `json:"rotation_scheduled_at,omitempty"`

	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasSecretField reports whether the credential stores an encrypted value
// for the named field.
func (c *Credential) HasSecretField(name string) bool {
	_, ok := c.EncryptedFields[name]
	return ok
}

// ValidPlatform reports whether p is one of the supported platforms.
func ValidPlatform(p string) bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

// ValidSecretField reports whether name is one of the fixed secret fields.
func ValidSecretField(name string) bool {
	for _, known := range SecretFieldNames {
		if name == known {
			return true
		}
	}
	return false
}

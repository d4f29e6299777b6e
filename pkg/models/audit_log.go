package models

import (
	"time"

	"github.com/google/uuid"
)

// Credential access actions recorded in the audit log.
const (
	CredentialActionCreated  = "created"
	CredentialActionUpdated  = "updated"
	CredentialActionDeleted  = "deleted"
	CredentialActionVerified = "verified"
)

// AccessMethodDashboard is the access method recorded for dashboard-originated
// credential operations.
const AccessMethodDashboard = "dashboard"

// CredentialAccessEntry is an append-only record of a credential-related
// action. Stored in credential_access_log. Write-only from this layer's
// perspective.
type CredentialAccessEntry struct {
	ID           uuid.UUID `json:"id"`
	CredentialID uuid.UUID `json:"credential_id"`
	Action       string    `json:"action"` // 'created', 'updated', 'deleted', 'verified'
	UserID       string    `json:"user_id"`
	AccessMethod string    `json:"access_method"`
	Success      bool      `json:"success"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/socialflow-inc/socialflow-engine/pkg/database"
	"github.com/socialflow-inc/socialflow-engine/pkg/models"
)

// CredentialAuditRepository provides data access for the credential access log.
// The log is append-only; this layer never reads it back.
type CredentialAuditRepository interface {
	// Create inserts a new access log entry.
	Create(ctx context.Context, entry *models.CredentialAccessEntry) error
}

type credentialAuditRepository struct{}

// NewCredentialAuditRepository creates a new CredentialAuditRepository.
func NewCredentialAuditRepository() CredentialAuditRepository {
	return &credentialAuditRepository{}
}

var _ CredentialAuditRepository = (*credentialAuditRepository)(nil)

func (r *credentialAuditRepository) Create(ctx context.Context, entry *models.CredentialAccessEntry) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()
	if entry.AccessMethod == "" {
		entry.AccessMethod = models.AccessMethodDashboard
	}

	query := `
		INSERT INTO credential_access_log (
			id, credential_id, action, user_id, access_method, success, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := scope.Conn.Exec(ctx, query,
		entry.ID,
		entry.CredentialID,
		entry.Action,
		entry.UserID,
		entry.AccessMethod,
		entry.Success,
		entry.ErrorMessage,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create credential access entry: %w", err)
	}

	return nil
}

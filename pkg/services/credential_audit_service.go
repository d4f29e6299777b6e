package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/socialflow-inc/socialflow-engine/pkg/models"
	"github.com/socialflow-inc/socialflow-engine/pkg/repositories"
)

// CredentialAuditService records credential access events.
// Recording is fire-and-forget: failures are logged but never surfaced to
// the caller, so an audit outage cannot fail a credential operation.
type CredentialAuditService interface {
	// Record writes one access log entry.
	Record(ctx context.Context, credentialID uuid.UUID, action, userID string, success bool, errorMessage *string)
}

type credentialAuditService struct {
	repo   repositories.CredentialAuditRepository
	logger *zap.Logger
}

// NewCredentialAuditService creates a new credential audit service.
func NewCredentialAuditService(
	repo repositories.CredentialAuditRepository,
	logger *zap.Logger,
) CredentialAuditService {
	return &credentialAuditService{
		repo:   repo,
		logger: logger,
	}
}

// Record writes one access log entry. Repository errors are logged and
// swallowed.
func (s *credentialAuditService) Record(
	ctx context.Context,
	credentialID uuid.UUID,
	action, userID string,
	success bool,
	errorMessage *string,
) {
	entry := &models.CredentialAccessEntry{
		CredentialID: credentialID,
		Action:       action,
		UserID:       userID,
		AccessMethod: models.AccessMethodDashboard,
		Success:      success,
		ErrorMessage: errorMessage,
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error("Failed to record credential access",
			zap.String("credential_id", credentialID.String()),
			zap.String("action", action),
			zap.Error(err))
	}
}

// Ensure credentialAuditService implements CredentialAuditService at compile time.
var _ CredentialAuditService = (*credentialAuditService)(nil)

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/socialflow-inc/socialflow-engine/pkg/auth"
	"github.com/socialflow-inc/socialflow-engine/pkg/crypto"
	"github.com/socialflow-inc/socialflow-engine/pkg/models"
	"github.com/socialflow-inc/socialflow-engine/pkg/repositories"
	"github.com/socialflow-inc/socialflow-engine/pkg/validation"
)

// CreateCredentialInput carries the fields for a new credential.
// Secrets maps secret field name to plaintext value; every key must be one
// of models.SecretFieldNames.
type CreateCredentialInput struct {
	SocialAccountID uuid.UUID
	Platform        string
	AccountName     string
	Secrets         map[string]string
	ExpiresAt       *time.Time
}

// UpdateCredentialInput carries a sparse credential update. Nil pointers and
// absent map keys leave the stored value untouched.
type UpdateCredentialInput struct {
	AccountName  *string
	Secrets      map[string]string
	ExpiresAt    *time.Time
	ExpiresAtSet bool
	IsActive     *bool
}

// CredentialService manages social media credentials for a project.
// All secret material is encrypted before it reaches the repository and is
// never returned by any read operation.
type CredentialService interface {
	// Create validates, encrypts, and stores a new credential.
	Create(ctx context.Context, principal *auth.Principal, input *CreateCredentialInput) (*models.Credential, error)

	// List returns all active credentials for the principal's project,
	// newest first, without secret material.
	List(ctx context.Context, principal *auth.Principal) ([]*models.Credential, error)

	// Update applies a sparse update to an existing credential.
	Update(ctx context.Context, principal *auth.Principal, id uuid.UUID, input *UpdateCredentialInput) (*models.Credential, error)

	// Delete soft-deletes a credential. Idempotent.
	Delete(ctx context.Context, principal *auth.Principal, id uuid.UUID) error
}

type credentialService struct {
	repo      repositories.CredentialRepository
	encryptor crypto.FieldEncryptor
	audit     CredentialAuditService
	logger    *zap.Logger
}

// NewCredentialService creates a new credential service.
func NewCredentialService(
	repo repositories.CredentialRepository,
	encryptor crypto.FieldEncryptor,
	audit CredentialAuditService,
	logger *zap.Logger,
) CredentialService {
	return &credentialService{
		repo:      repo,
		encryptor: encryptor,
		audit:     audit,
		logger:    logger,
	}
}

// Create validates, encrypts, and stores a new credential.
// Every secret field is encrypted before a single row is written, so a
// failure partway through encryption leaves no partial state behind.
func (s *credentialService) Create(ctx context.Context, principal *auth.Principal, input *CreateCredentialInput) (*models.Credential, error) {
	if !models.ValidPlatform(input.Platform) {
		return nil, validation.NewRequestError("platform", "oneof",
			fmt.Sprintf("platform must be one of: %v", models.Platforms))
	}
	if len(input.Secrets) == 0 {
		return nil, validation.NewRequestError("credentials", "required",
			"at least one credential field is required")
	}

	encrypted, err := s.encryptSecrets(principal.ProjectID, input.Secrets)
	if err != nil {
		return nil, err
	}

	cred := &models.Credential{
		ProjectID:       principal.ProjectID,
		SocialAccountID: input.SocialAccountID,
		Platform:        input.Platform,
		AccountName:     input.AccountName,
		EncryptedFields: encrypted,
		IsActive:        true,
		ExpiresAt:       input.ExpiresAt,
		CreatedBy:       principal.UserID,
	}

	if err := s.repo.Create(ctx, cred); err != nil {
		return nil, fmt.Errorf("failed to create credential: %w", err)
	}

	s.logger.Info("Credential created",
		zap.String("credential_id", cred.ID.String()),
		zap.String("project_id", principal.ProjectID.String()),
		zap.String("platform", cred.Platform))

	s.audit.Record(ctx, cred.ID, models.CredentialActionCreated, principal.UserID, true, nil)

	// Strip ciphertext before turning the credential over to callers.
	cred.EncryptedFields = nil
	return cred, nil
}

// List returns all active credentials for the principal's project.
func (s *credentialService) List(ctx context.Context, principal *auth.Principal) ([]*models.Credential, error) {
	creds, err := s.repo.List(ctx, principal.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	return creds, nil
}

// Update applies a sparse update. Changed secret fields are re-encrypted as
// a batch before the write.
func (s *credentialService) Update(ctx context.Context, principal *auth.Principal, id uuid.UUID, input *UpdateCredentialInput) (*models.Credential, error) {
	upd := &repositories.CredentialUpdate{
		AccountName:  input.AccountName,
		ExpiresAt:    input.ExpiresAt,
		ExpiresAtSet: input.ExpiresAtSet,
		IsActive:     input.IsActive,
	}

	if len(input.Secrets) > 0 {
		encrypted, err := s.encryptSecrets(principal.ProjectID, input.Secrets)
		if err != nil {
			return nil, err
		}
		upd.EncryptedFields = encrypted
	}

	if err := s.repo.Update(ctx, id, upd); err != nil {
		return nil, fmt.Errorf("failed to update credential: %w", err)
	}

	s.logger.Info("Credential updated",
		zap.String("credential_id", id.String()),
		zap.String("project_id", principal.ProjectID.String()))

	s.audit.Record(ctx, id, models.CredentialActionUpdated, principal.UserID, true, nil)

	cred, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load updated credential: %w", err)
	}
	cred.EncryptedFields = nil
	return cred, nil
}

// Delete soft-deletes a credential. Repeating the call is not an error.
func (s *credentialService) Delete(ctx context.Context, principal *auth.Principal, id uuid.UUID) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	s.logger.Info("Credential deleted",
		zap.String("credential_id", id.String()),
		zap.String("project_id", principal.ProjectID.String()))

	s.audit.Record(ctx, id, models.CredentialActionDeleted, principal.UserID, true, nil)
	return nil
}

// encryptSecrets validates field names and encrypts every value. Either all
// fields encrypt successfully or none are kept.
func (s *credentialService) encryptSecrets(projectID uuid.UUID, secrets map[string]string) (map[string]string, error) {
	encrypted := make(map[string]string, len(secrets))
	for name, plaintext := range secrets {
		if !models.ValidSecretField(name) {
			return nil, validation.NewRequestError("credentials."+name, "oneof",
				fmt.Sprintf("unknown credential field %q", name))
		}
		ciphertext, err := s.encryptor.Encrypt(projectID, plaintext)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt field %s: %w", name, err)
		}
		encrypted[name] = ciphertext
	}
	return encrypted, nil
}

// Ensure credentialService implements CredentialService at compile time.
var _ CredentialService = (*credentialService)(nil)

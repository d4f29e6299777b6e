package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/socialflow-inc/socialflow-engine/pkg/apperrors"
	"github.com/socialflow-inc/socialflow-engine/pkg/auth"
	"github.com/socialflow-inc/socialflow-engine/pkg/models"
	"github.com/socialflow-inc/socialflow-engine/pkg/repositories"
)

// CredentialVerifier decides whether a credential is valid for its platform.
// Implementations receive the stored credential, encrypted fields included,
// and must not decrypt or log secret material. An error return means the
// verification could not complete; it is recorded as a failed outcome, not
// surfaced as a handler error.
type CredentialVerifier interface {
	Verify(ctx context.Context, cred *models.Credential) (bool, error)
}

// VerificationResult is the outcome of a verification attempt.
type VerificationResult struct {
	Platform    string    `json:"platform"`
	AccountName string    `json:"account_name"`
	Verified    bool      `json:"verified"`
	Error       *string   `json:"error,omitempty"`
	VerifiedAt  time.Time `json:"verified_at"`
}

// VerificationService verifies stored credentials against their platform.
type VerificationService interface {
	// Verify checks the credential and records the outcome.
	// The verified flag, timestamp, and error text are written to the
	// credential row whether verification succeeds or fails.
	Verify(ctx context.Context, principal *auth.Principal, credentialID uuid.UUID) (*VerificationResult, error)
}

type verificationService struct {
	repo     repositories.CredentialRepository
	verifier CredentialVerifier
	audit    CredentialAuditService
	logger   *zap.Logger
}

// NewVerificationService creates a new verification service.
func NewVerificationService(
	repo repositories.CredentialRepository,
	verifier CredentialVerifier,
	audit CredentialAuditService,
	logger *zap.Logger,
) VerificationService {
	return &verificationService{
		repo:     repo,
		verifier: verifier,
		audit:    audit,
		logger:   logger,
	}
}

// Verify checks the credential and records the outcome unconditionally.
// A failed verification is a normal result, not an error; only a missing or
// inactive credential fails the call.
func (s *verificationService) Verify(ctx context.Context, principal *auth.Principal, credentialID uuid.UUID) (*VerificationResult, error) {
	cred, err := s.repo.GetByID(ctx, credentialID)
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	if !cred.IsActive {
		return nil, apperrors.ErrCredentialInactive
	}

	verified, verifyErr := s.verifier.Verify(ctx, cred)
	var errMsg *string
	if verifyErr != nil {
		verified = false
		msg := verifyErr.Error()
		errMsg = &msg
	}

	verifiedAt := time.Now().UTC()

	if err := s.repo.SetVerification(ctx, credentialID, verified, verifiedAt, errMsg); err != nil {
		return nil, fmt.Errorf("failed to record verification outcome: %w", err)
	}

	s.logger.Info("Credential verification completed",
		zap.String("credential_id", credentialID.String()),
		zap.String("platform", cred.Platform),
		zap.Bool("verified", verified))

	s.audit.Record(ctx, credentialID, models.CredentialActionVerified, principal.UserID, verified, errMsg)

	return &VerificationResult{
		Platform:    cred.Platform,
		AccountName: cred.AccountName,
		Verified:    verified,
		Error:       errMsg,
		VerifiedAt:  verifiedAt,
	}, nil
}

// Ensure verificationService implements VerificationService at compile time.
var _ VerificationService = (*verificationService)(nil)

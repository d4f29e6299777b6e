package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/socialflow-inc/socialflow-engine/pkg/apperrors"
	"github.com/socialflow-inc/socialflow-engine/pkg/database"
	"github.com/socialflow-inc/socialflow-engine/pkg/models"
)

// encryptedColumns maps secret field names to their table columns, in a
// stable order matching models.SecretFieldNames.
var encryptedColumns = []string{
	"encrypted_api_key",
	"encrypted_api_secret",
	"encrypted_access_token",
	"encrypted_refresh_token",
	"encrypted_app_id",
	"encrypted_client_id",
	"encrypted_client_secret",
	"encrypted_webhook_secret",
	"encrypted_page_access_token",
	"encrypted_business_account_id",
}

// CredentialUpdate describes a sparse update. Nil pointers and absent map
// keys leave the stored value untouched. ExpiresAtSet distinguishes "clear
// the expiry" from "leave it alone".
type CredentialUpdate struct {
	AccountName     *string
	EncryptedFields map[string]string
	ExpiresAt       *time.Time
	ExpiresAtSet    bool
	IsActive        *bool
}

// CredentialRepository defines the interface for credential data access.
// Secret fields are stored only in encrypted form - encryption is handled
// by the service layer before any value reaches this repository.
type CredentialRepository interface {
	// Create inserts a new credential with its encrypted fields.
	Create(ctx context.Context, cred *models.Credential) error

	// GetByID retrieves a credential by ID, including encrypted fields.
	// Only the verification path may consume the encrypted fields.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Credential, error)

	// List retrieves all active credentials for a project, newest first.
	// The projection excludes every encrypted column.
	List(ctx context.Context, projectID uuid.UUID) ([]*models.Credential, error)

	// Update applies a sparse update and stamps updated_at.
	Update(ctx context.Context, id uuid.UUID, upd *CredentialUpdate) error

	// SoftDelete flips is_active to false and stamps updated_at.
	// Idempotent: repeating the call is not an error.
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// SetVerification records a verification outcome unconditionally.
	SetVerification(ctx context.Context, id uuid.UUID, verified bool, verifiedAt time.Time, verificationError *string) error
}

// credentialRepository implements CredentialRepository using PostgreSQL.
type credentialRepository struct{}

// NewCredentialRepository creates a new credential repository.
func NewCredentialRepository() CredentialRepository {
	return &credentialRepository{}
}

// Create inserts a new credential.
func (r *credentialRepository) Create(ctx context.Context, cred *models.Credential) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	if cred.ID == uuid.Nil {
		cred.ID = uuid.New()
	}
	now := time.Now()
	cred.CreatedAt = now
	cred.UpdatedAt = now
	cred.IsActive = true

	query := `
		INSERT INTO social_media_credentials (
			id, project_id, social_account_id, platform, account_name,
			encrypted_api_key, encrypted_api_secret, encrypted_access_token,
			encrypted_refresh_token, encrypted_app_id, encrypted_client_id,
			encrypted_client_secret, encrypted_webhook_secret,
			encrypted_page_access_token, encrypted_business_account_id,
			is_active, expires_at, created_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20
		)`

	args := []any{
		cred.ID,
		cred.ProjectID,
		cred.SocialAccountID,
		cred.Platform,
		cred.AccountName,
	}
	for _, field := range models.SecretFieldNames {
		args = append(args, nullableField(cred.EncryptedFields, field))
	}
	args = append(args, cred.IsActive, cred.ExpiresAt, cred.CreatedBy, cred.CreatedAt, cred.UpdatedAt)

	_, err := scope.Conn.Exec(ctx, query, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create credential: %w", err)
	}

	return nil
}

// GetByID retrieves a credential by ID, including encrypted fields.
func (r *credentialRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Credential, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		SELECT id, project_id, social_account_id, platform, account_name,
		       encrypted_api_key, encrypted_api_secret, encrypted_access_token,
		       encrypted_refresh_token, encrypted_app_id, encrypted_client_id,
		       encrypted_client_secret, encrypted_webhook_secret,
		       encrypted_page_access_token, encrypted_business_account_id,
		       is_active, is_verified, last_verified_at, verification_error,
		       usage_count, rate_limit_remaining, rate_limit_reset_at,
		       expires_at, rotation_scheduled_at, created_by, created_at, updated_at
		FROM social_media_credentials
		WHERE id = $1`

	var cred models.Credential
	encrypted := make([]*string, len(encryptedColumns))
	dest := []any{
		&cred.ID, &cred.ProjectID, &cred.SocialAccountID, &cred.Platform, &cred.AccountName,
	}
	for i := range encrypted {
		dest = append(dest, &encrypted[i])
	}
	dest = append(dest,
		&cred.IsActive, &cred.IsVerified, &cred.LastVerifiedAt, &cred.VerificationError,
		&cred.UsageCount, &cred.RateLimitRemaining, &cred.RateLimitResetAt,
		&cred.ExpiresAt, &cred.RotationScheduledAt, &cred.CreatedBy, &cred.CreatedAt, &cred.UpdatedAt,
	)

	err := scope.Conn.QueryRow(ctx, query, id).Scan(dest...)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	cred.EncryptedFields = make(map[string]string)
	for i, field := range models.SecretFieldNames {
		if encrypted[i] != nil && *encrypted[i] != "" {
			cred.EncryptedFields[field] = *encrypted[i]
		}
	}

	return &cred, nil
}

// List retrieves all active credentials for a project, newest first.
// Encrypted columns are never part of this projection.
func (r *credentialRepository) List(ctx context.Context, projectID uuid.UUID) ([]*models.Credential, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		SELECT id, project_id, social_account_id, platform, account_name,
		       is_active, is_verified, last_verified_at, verification_error,
		       usage_count, rate_limit_remaining, rate_limit_reset_at,
		       expires_at, rotation_scheduled_at, created_by, created_at, updated_at
		FROM social_media_credentials
		WHERE project_id = $1 AND is_active = true
		ORDER BY created_at DESC`

	rows, err := scope.Conn.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	defer rows.Close()

	var credentials []*models.Credential
	for rows.Next() {
		var cred models.Credential
		err := rows.Scan(
			&cred.ID, &cred.ProjectID, &cred.SocialAccountID, &cred.Platform, &cred.AccountName,
			&cred.IsActive, &cred.IsVerified, &cred.LastVerifiedAt, &cred.VerificationError,
			&cred.UsageCount, &cred.RateLimitRemaining, &cred.RateLimitResetAt,
			&cred.ExpiresAt, &cred.RotationScheduledAt, &cred.CreatedBy, &cred.CreatedAt, &cred.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		credentials = append(credentials, &cred)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating credentials: %w", err)
	}

	return credentials, nil
}

// Update applies a sparse update. The SET clause is assembled from only the
// provided fields so untouched columns keep their values.
func (r *credentialRepository) Update(ctx context.Context, id uuid.UUID, upd *CredentialUpdate) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	setClauses := []string{"updated_at = $2"}
	args := []any{id, time.Now()}

	addSet := func(column string, value any) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.AccountName != nil {
		addSet("account_name", *upd.AccountName)
	}
	for i, field := range models.SecretFieldNames {
		if value, ok := upd.EncryptedFields[field]; ok {
			addSet(encryptedColumns[i], value)
		}
	}
	if upd.ExpiresAtSet {
		addSet("expires_at", upd.ExpiresAt)
	}
	if upd.IsActive != nil {
		addSet("is_active", *upd.IsActive)
	}

	query := "UPDATE social_media_credentials SET " + strings.Join(setClauses, ", ") + " WHERE id = $1"

	result, err := scope.Conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// SoftDelete flips is_active to false. Repeating the call on an already
// inactive credential is not an error.
func (r *credentialRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	query := `UPDATE social_media_credentials SET is_active = false, updated_at = $2 WHERE id = $1`

	_, err := scope.Conn.Exec(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	return nil
}

// SetVerification records a verification outcome.
func (r *credentialRepository) SetVerification(ctx context.Context, id uuid.UUID, verified bool, verifiedAt time.Time, verificationError *string) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	query := `
		UPDATE social_media_credentials
		SET is_verified = $2, last_verified_at = $3, verification_error = $4, updated_at = $5
		WHERE id = $1`

	result, err := scope.Conn.Exec(ctx, query, id, verified, verifiedAt, verificationError, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record verification: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// nullableField returns the encrypted value for field, or nil when absent so
// the column is stored as NULL.
func nullableField(fields map[string]string, field string) *string {
	if value, ok := fields[field]; ok && value != "" {
		return &value
	}
	return nil
}

// Ensure credentialRepository implements CredentialRepository at compile time.
var _ CredentialRepository = (*credentialRepository)(nil)

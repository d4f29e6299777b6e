package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/socialflow-inc/socialflow-engine/pkg/apperrors"
	"github.com/socialflow-inc/socialflow-engine/pkg/auth"
	"github.com/socialflow-inc/socialflow-engine/pkg/models"
	"github.com/socialflow-inc/socialflow-engine/pkg/repositories"
	"github.com/socialflow-inc/socialflow-engine/pkg/validation"
)

// mockCredentialRepository is a mock implementation of CredentialRepository
// for testing. It records every write so tests can assert on side effects.
type mockCredentialRepository struct {
	credentials map[uuid.UUID]*models.Credential

	createErr error
	updateErr error
	listErr   error

	updates       []*repositories.CredentialUpdate
	softDeletes   []uuid.UUID
	verifications []setVerificationCall
}

type setVerificationCall struct {
	id                uuid.UUID
	verified          bool
	verifiedAt        time.Time
	verificationError *string
}

func newMockCredentialRepository() *mockCredentialRepository {
	return &mockCredentialRepository{credentials: make(map[uuid.UUID]*models.Credential)}
}

func (m *mockCredentialRepository) Create(ctx context.Context, cred *models.Credential) error {
	if m.createErr != nil {
		return m.createErr
	}
	if cred.ID == uuid.Nil {
		cred.ID = uuid.New()
	}
	cred.IsActive = true
	stored := *cred
	// Keep our own copy of the encrypted fields; the service strips them
	// from the value it returns to callers.
	stored.EncryptedFields = make(map[string]string, len(cred.EncryptedFields))
	for k, v := range cred.EncryptedFields {
		stored.EncryptedFields[k] = v
	}
	m.credentials[cred.ID] = &stored
	return nil
}

func (m *mockCredentialRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Credential, error) {
	cred, ok := m.credentials[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *cred
	return &copied, nil
}

func (m *mockCredentialRepository) List(ctx context.Context, projectID uuid.UUID) ([]*models.Credential, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []*models.Credential
	for _, cred := range m.credentials {
		if cred.ProjectID == projectID && cred.IsActive {
			copied := *cred
			copied.EncryptedFields = nil
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (m *mockCredentialRepository) Update(ctx context.Context, id uuid.UUID, upd *repositories.CredentialUpdate) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	cred, ok := m.credentials[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	m.updates = append(m.updates, upd)
	if upd.AccountName != nil {
		cred.AccountName = *upd.AccountName
	}
	for field, value := range upd.EncryptedFields {
		cred.EncryptedFields[field] = value
	}
	if upd.ExpiresAtSet {
		cred.ExpiresAt = upd.ExpiresAt
	}
	if upd.IsActive != nil {
		cred.IsActive = *upd.IsActive
	}
	return nil
}

func (m *mockCredentialRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	m.softDeletes = append(m.softDeletes, id)
	if cred, ok := m.credentials[id]; ok {
		cred.IsActive = false
	}
	return nil
}

func (m *mockCredentialRepository) SetVerification(ctx context.Context, id uuid.UUID, verified bool, verifiedAt time.Time, verificationError *string) error {
	if _, ok := m.credentials[id]; !ok {
		return apperrors.ErrNotFound
	}
	m.verifications = append(m.verifications, setVerificationCall{
		id:                id,
		verified:          verified,
		verifiedAt:        verifiedAt,
		verificationError: verificationError,
	})
	return nil
}

// recordedAccess captures one CredentialAuditService.Record call.
type recordedAccess struct {
	credentialID uuid.UUID
	action       string
	userID       string
	success      bool
	errorMessage *string
}

type mockCredentialAudit struct {
	records []recordedAccess
}

func (m *mockCredentialAudit) Record(ctx context.Context, credentialID uuid.UUID, action, userID string, success bool, errorMessage *string) {
	m.records = append(m.records, recordedAccess{
		credentialID: credentialID,
		action:       action,
		userID:       userID,
		success:      success,
		errorMessage: errorMessage,
	})
}

// fakeEncryptor is a deterministic FieldEncryptor. Encrypt prefixes the
// plaintext; failOn forces an error for one specific plaintext value.
type fakeEncryptor struct {
	failOn string
}

func (f *fakeEncryptor) Encrypt(projectID uuid.UUID, plaintext string) (string, error) {
	if f.failOn != "" && plaintext == f.failOn {
		return "", errors.New("encryption unavailable")
	}
	return "enc:" + plaintext, nil
}

func (f *fakeEncryptor) Decrypt(projectID uuid.UUID, encrypted string) (string, error) {
	return encrypted[len("enc:"):], nil
}

func testPrincipal() *auth.Principal {
	return &auth.Principal{
		UserID:    "user-123",
		Email:     "ops@example.com",
		ProjectID: uuid.MustParse("aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"),
	}
}

func setupCredentialTest(t *testing.T) (CredentialService, *mockCredentialRepository, *fakeEncryptor, *mockCredentialAudit) {
	t.Helper()
	repo := newMockCredentialRepository()
	enc := &fakeEncryptor{}
	auditRec := &mockCredentialAudit{}
	svc := NewCredentialService(repo, enc, auditRec, zap.NewNop())
	return svc, repo, enc, auditRec
}

func TestCredentialService_Create(t *testing.T) {
	svc, repo, _, auditRec := setupCredentialTest(t)
	principal := testPrincipal()

	cred, err := svc.Create(context.Background(), principal, &CreateCredentialInput{
		SocialAccountID: uuid.New(),
		Platform:        models.PlatformTwitter,
		AccountName:     "@socialflow",
		Secrets: map[string]string{
			"api_key":      "key-123",
			"access_token": "token-456",
		},
	})
	require.NoError(t, err)
	require.NotNil(t, cred)

	assert.NotEqual(t, uuid.Nil, cred.ID, "credential should be assigned an ID")
	assert.Equal(t, principal.ProjectID, cred.ProjectID)
	assert.Equal(t, principal.UserID, cred.CreatedBy)
	assert.True(t, cred.IsActive)
	assert.Nil(t, cred.EncryptedFields, "returned credential must not carry ciphertext")

	stored := repo.credentials[cred.ID]
	require.NotNil(t, stored)
	assert.Equal(t, "enc:key-123", stored.EncryptedFields["api_key"], "secret should be encrypted before storage")
	assert.Equal(t, "enc:token-456", stored.EncryptedFields["access_token"])

	require.Len(t, auditRec.records, 1)
	assert.Equal(t, models.CredentialActionCreated, auditRec.records[0].action)
	assert.Equal(t, cred.ID, auditRec.records[0].credentialID)
	assert.Equal(t, principal.UserID, auditRec.records[0].userID)
	assert.True(t, auditRec.records[0].success)
}

func TestCredentialService_Create_InvalidPlatform(t *testing.T) {
	svc, repo, _, auditRec := setupCredentialTest(t)

	_, err := svc.Create(context.Background(), testPrincipal(), &CreateCredentialInput{
		SocialAccountID: uuid.New(),
		Platform:        "myspace",
		AccountName:     "legacy",
		Secrets:         map[string]string{"api_key": "key"},
	})
	require.Error(t, err)

	var reqErr *validation.RequestError
	require.ErrorAs(t, err, &reqErr)
	require.Len(t, reqErr.Violations, 1)
	assert.Equal(t, "platform", reqErr.Violations[0].Field)

	assert.Empty(t, repo.credentials, "nothing should be stored for an invalid platform")
	assert.Empty(t, auditRec.records)
}

func TestCredentialService_Create_UnknownSecretField(t *testing.T) {
	svc, repo, _, _ := setupCredentialTest(t)

	_, err := svc.Create(context.Background(), testPrincipal(), &CreateCredentialInput{
		SocialAccountID: uuid.New(),
		Platform:        models.PlatformFacebook,
		AccountName:     "page",
		Secrets:         map[string]string{"password": "hunter2"},
	})
	require.Error(t, err)

	var reqErr *validation.RequestError
	require.ErrorAs(t, err, &reqErr)
	require.Len(t, reqErr.Violations, 1)
	assert.Contains(t, reqErr.Violations[0].Message, "unknown credential field")
	assert.Empty(t, repo.credentials)
}

func TestCredentialService_Create_NoSecrets(t *testing.T) {
	svc, _, _, _ := setupCredentialTest(t)

	_, err := svc.Create(context.Background(), testPrincipal(), &CreateCredentialInput{
		SocialAccountID: uuid.New(),
		Platform:        models.PlatformInstagram,
		AccountName:     "brand",
	})
	require.Error(t, err)

	var reqErr *validation.RequestError
	require.ErrorAs(t, err, &reqErr)
	require.Len(t, reqErr.Violations, 1)
	assert.Equal(t, "credentials", reqErr.Violations[0].Field)
}

func TestCredentialService_Create_EncryptionFailureWritesNothing(t *testing.T) {
	svc, repo, enc, auditRec := setupCredentialTest(t)
	enc.failOn = "bad-token"

	// One field fails to encrypt; regardless of map iteration order the
	// batch must be all-or-nothing.
	_, err := svc.Create(context.Background(), testPrincipal(), &CreateCredentialInput{
		SocialAccountID: uuid.New(),
		Platform:        models.PlatformLinkedIn,
		AccountName:     "company",
		Secrets: map[string]string{
			"client_id":    "id-1",
			"access_token": "bad-token",
		},
	})
	require.Error(t, err)

	assert.Empty(t, repo.credentials, "no row may be written when any field fails to encrypt")
	assert.Empty(t, auditRec.records)
}

func TestCredentialService_Update(t *testing.T) {
	svc, repo, _, auditRec := setupCredentialTest(t)
	principal := testPrincipal()

	created, err := svc.Create(context.Background(), principal, &CreateCredentialInput{
		SocialAccountID: uuid.New(),
		Platform:        models.PlatformYouTube,
		AccountName:     "channel",
		Secrets:         map[string]string{"refresh_token": "old-token"},
	})
	require.NoError(t, err)

	newName := "renamed-channel"
	updated, err := svc.Update(context.Background(), principal, created.ID, &UpdateCredentialInput{
		AccountName: &newName,
		Secrets:     map[string]string{"refresh_token": "new-token"},
	})
	require.NoError(t, err)

	assert.Equal(t, newName, updated.AccountName)
	assert.Nil(t, updated.EncryptedFields, "returned credential must not carry ciphertext")

	require.Len(t, repo.updates, 1)
	assert.Equal(t, "enc:new-token", repo.updates[0].EncryptedFields["refresh_token"],
		"changed secret should be re-encrypted")

	require.Len(t, auditRec.records, 2)
	assert.Equal(t, models.CredentialActionUpdated, auditRec.records[1].action)
}

func TestCredentialService_Update_NoSecretsSkipsEncryption(t *testing.T) {
	svc, repo, enc, _ := setupCredentialTest(t)
	principal := testPrincipal()

	created, err := svc.Create(context.Background(), principal, &CreateCredentialInput{
		SocialAccountID: uuid.New(),
		Platform:        models.PlatformPinterest,
		AccountName:     "board",
		Secrets:         map[string]string{"access_token": "tok"},
	})
	require.NoError(t, err)

	// An encryptor that would fail must not be consulted for a
	// metadata-only update.
	enc.failOn = "anything"
	newName := "renamed-board"
	_, err = svc.Update(context.Background(), principal, created.ID, &UpdateCredentialInput{
		AccountName: &newName,
	})
	require.NoError(t, err)

	require.Len(t, repo.updates, 1)
	assert.Nil(t, repo.updates[0].EncryptedFields)
}

func TestCredentialService_Update_NotFound(t *testing.T) {
	svc, _, _, auditRec := setupCredentialTest(t)

	name := "ghost"
	_, err := svc.Update(context.Background(), testPrincipal(), uuid.New(), &UpdateCredentialInput{
		AccountName: &name,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Empty(t, auditRec.records)
}

func TestCredentialService_Delete_Idempotent(t *testing.T) {
	svc, repo, _, auditRec := setupCredentialTest(t)
	principal := testPrincipal()

	created, err := svc.Create(context.Background(), principal, &CreateCredentialInput{
		SocialAccountID: uuid.New(),
		Platform:        models.PlatformTikTok,
		AccountName:     "creator",
		Secrets:         map[string]string{"client_secret": "s3cret"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), principal, created.ID))
	require.NoError(t, svc.Delete(context.Background(), principal, created.ID),
		"repeating a delete must not be an error")

	assert.Len(t, repo.softDeletes, 2)
	assert.False(t, repo.credentials[created.ID].IsActive)

	// create + two deletes
	require.Len(t, auditRec.records, 3)
	assert.Equal(t, models.CredentialActionDeleted, auditRec.records[1].action)
	assert.Equal(t, models.CredentialActionDeleted, auditRec.records[2].action)
}

func TestCredentialService_List_ExcludesSecrets(t *testing.T) {
	svc, _, _, _ := setupCredentialTest(t)
	principal := testPrincipal()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(context.Background(), principal, &CreateCredentialInput{
			SocialAccountID: uuid.New(),
			Platform:        models.PlatformFacebook,
			AccountName:     "page",
			Secrets:         map[string]string{"page_access_token": "tok"},
		})
		require.NoError(t, err)
	}

	creds, err := svc.List(context.Background(), principal)
	require.NoError(t, err)
	require.Len(t, creds, 3)
	for _, cred := range creds {
		assert.Nil(t, cred.EncryptedFields, "list projection must not include secret material")
	}
}

package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/socialflow-inc/socialflow-engine/pkg/models"
)

// mockCredentialAuditRepository is a mock implementation of
// CredentialAuditRepository for testing.
type mockCredentialAuditRepository struct {
	entries   []*models.CredentialAccessEntry
	createErr error
}

func (m *mockCredentialAuditRepository) Create(ctx context.Context, entry *models.CredentialAccessEntry) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func TestCredentialAuditService_Record(t *testing.T) {
	repo := &mockCredentialAuditRepository{}
	svc := NewCredentialAuditService(repo, zap.NewNop())

	credentialID := uuid.New()
	svc.Record(context.Background(), credentialID, models.CredentialActionCreated, "user-123", true, nil)

	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	assert.Equal(t, credentialID, entry.CredentialID)
	assert.Equal(t, models.CredentialActionCreated, entry.Action)
	assert.Equal(t, "user-123", entry.UserID)
	assert.Equal(t, models.AccessMethodDashboard, entry.AccessMethod)
	assert.True(t, entry.Success)
	assert.Nil(t, entry.ErrorMessage)
}

func TestCredentialAuditService_Record_Failure(t *testing.T) {
	repo := &mockCredentialAuditRepository{}
	svc := NewCredentialAuditService(repo, zap.NewNop())

	errMsg := "missing required fields for twitter: api_secret"
	svc.Record(context.Background(), uuid.New(), models.CredentialActionVerified, "user-123", false, &errMsg)

	require.Len(t, repo.entries, 1)
	assert.False(t, repo.entries[0].Success)
	require.NotNil(t, repo.entries[0].ErrorMessage)
	assert.Equal(t, errMsg, *repo.entries[0].ErrorMessage)
}

func TestCredentialAuditService_Record_RepositoryOutageIsSwallowed(t *testing.T) {
	repo := &mockCredentialAuditRepository{createErr: errors.New("connection refused")}
	svc := NewCredentialAuditService(repo, zap.NewNop())

	// Record has no error return; an audit outage must not panic or
	// propagate.
	svc.Record(context.Background(), uuid.New(), models.CredentialActionDeleted, "user-123", true, nil)
	assert.Empty(t, repo.entries)
}

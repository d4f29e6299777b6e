package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/socialflow-inc/socialflow-engine/pkg/apperrors"
	"github.com/socialflow-inc/socialflow-engine/pkg/models"
)

// mockProjectRepository is a mock implementation of ProjectRepository for
// testing. Create mirrors the production upsert.
type mockProjectRepository struct {
	projects map[uuid.UUID]*models.Project
}

func newMockProjectRepository() *mockProjectRepository {
	return &mockProjectRepository{projects: make(map[uuid.UUID]*models.Project)}
}

func (m *mockProjectRepository) Create(ctx context.Context, project *models.Project) error {
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	if project.Status == "" {
		project.Status = models.ProjectStatusActive
	}
	if existing, ok := m.projects[project.ID]; ok {
		existing.Name = project.Name
		*project = *existing
		return nil
	}
	stored := *project
	m.projects[project.ID] = &stored
	return nil
}

func (m *mockProjectRepository) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	project, ok := m.projects[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *project
	return &copied, nil
}

func (m *mockProjectRepository) Update(ctx context.Context, project *models.Project) error {
	if _, ok := m.projects[project.ID]; !ok {
		return apperrors.ErrNotFound
	}
	stored := *project
	m.projects[project.ID] = &stored
	return nil
}

func (m *mockProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.projects, id)
	return nil
}

func setupProjectTest(t *testing.T) (ProjectService, *mockProjectRepository) {
	t.Helper()
	repo := newMockProjectRepository()
	return NewProjectService(repo, zap.NewNop()), repo
}

func TestProjectService_Provision(t *testing.T) {
	svc, repo := setupProjectTest(t)
	principal := testPrincipal()

	project, err := svc.Provision(context.Background(), principal, "Acme Social")
	require.NoError(t, err)

	assert.Equal(t, principal.ProjectID, project.ID)
	assert.Equal(t, "Acme Social", project.Name)
	assert.Equal(t, models.ProjectStatusActive, project.Status)
	assert.Contains(t, repo.projects, principal.ProjectID)
}

func TestProjectService_Provision_DefaultName(t *testing.T) {
	svc, _ := setupProjectTest(t)
	principal := testPrincipal()

	project, err := svc.Provision(context.Background(), principal, "")
	require.NoError(t, err)

	assert.Equal(t, "Project "+principal.ProjectID.String()[:8], project.Name)
}

func TestProjectService_Provision_Idempotent(t *testing.T) {
	svc, repo := setupProjectTest(t)
	principal := testPrincipal()

	_, err := svc.Provision(context.Background(), principal, "First")
	require.NoError(t, err)
	_, err = svc.Provision(context.Background(), principal, "Second")
	require.NoError(t, err)

	assert.Len(t, repo.projects, 1, "repeated provisioning converges on one row")
}

func TestProjectService_Update(t *testing.T) {
	svc, _ := setupProjectTest(t)
	principal := testPrincipal()

	_, err := svc.Provision(context.Background(), principal, "Acme Social")
	require.NoError(t, err)

	newName := "Acme Social Rebranded"
	settings := map[string]any{"timezone": "Europe/Berlin"}
	project, err := svc.Update(context.Background(), principal, &newName, settings)
	require.NoError(t, err)

	assert.Equal(t, newName, project.Name)
	assert.Equal(t, "Europe/Berlin", project.Settings["timezone"])
}

func TestProjectService_Update_NotFound(t *testing.T) {
	svc, _ := setupProjectTest(t)

	name := "ghost"
	_, err := svc.Update(context.Background(), testPrincipal(), &name, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProjectService_GetAndDelete(t *testing.T) {
	svc, _ := setupProjectTest(t)
	principal := testPrincipal()

	_, err := svc.Provision(context.Background(), principal, "Acme Social")
	require.NoError(t, err)

	project, err := svc.Get(context.Background(), principal)
	require.NoError(t, err)
	assert.Equal(t, principal.ProjectID, project.ID)

	require.NoError(t, svc.Delete(context.Background(), principal))

	_, err = svc.Get(context.Background(), principal)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

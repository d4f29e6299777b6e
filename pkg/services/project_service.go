package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/socialflow-inc/socialflow-engine/pkg/auth"
	"github.com/socialflow-inc/socialflow-engine/pkg/models"
	"github.com/socialflow-inc/socialflow-engine/pkg/repositories"
)

// ProjectService manages the project rows that scope all other resources.
type ProjectService interface {
	// Provision creates the project row if it does not exist yet.
	// Safe to call on every first request for a project.
	Provision(ctx context.Context, principal *auth.Principal, name string) (*models.Project, error)

	// Get returns the project row.
	Get(ctx context.Context, principal *auth.Principal) (*models.Project, error)

	// Update changes the project name or settings.
	Update(ctx context.Context, principal *auth.Principal, name *string, settings map[string]any) (*models.Project, error)

	// Delete removes the project row.
	Delete(ctx context.Context, principal *auth.Principal) error
}

type projectService struct {
	repo   repositories.ProjectRepository
	logger *zap.Logger
}

// NewProjectService creates a new project service.
func NewProjectService(repo repositories.ProjectRepository, logger *zap.Logger) ProjectService {
	return &projectService{
		repo:   repo,
		logger: logger,
	}
}

// Provision creates the project row if needed. The underlying upsert makes
// repeated calls converge on the same row.
func (s *projectService) Provision(ctx context.Context, principal *auth.Principal, name string) (*models.Project, error) {
	if name == "" {
		name = "Project " + principal.ProjectID.String()[:8]
	}

	project := &models.Project{
		ID:     principal.ProjectID,
		Name:   name,
		Status: models.ProjectStatusActive,
	}

	if err := s.repo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to provision project: %w", err)
	}

	s.logger.Info("Project provisioned",
		zap.String("project_id", project.ID.String()),
		zap.String("name", project.Name))

	return project, nil
}

// Get returns the project row.
func (s *projectService) Get(ctx context.Context, principal *auth.Principal) (*models.Project, error) {
	return s.repo.Get(ctx, principal.ProjectID)
}

// Update changes the project name or settings. Nil arguments leave the
// stored values untouched.
func (s *projectService) Update(ctx context.Context, principal *auth.Principal, name *string, settings map[string]any) (*models.Project, error) {
	project, err := s.repo.Get(ctx, principal.ProjectID)
	if err != nil {
		return nil, err
	}

	if name != nil {
		project.Name = *name
	}
	if settings != nil {
		project.Settings = settings
	}

	if err := s.repo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	return project, nil
}

// Delete removes the project row.
func (s *projectService) Delete(ctx context.Context, principal *auth.Principal) error {
	if err := s.repo.Delete(ctx, principal.ProjectID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	s.logger.Info("Project deleted",
		zap.String("project_id", principal.ProjectID.String()))

	return nil
}

// Ensure projectService implements ProjectService at compile time.
var _ ProjectService = (*projectService)(nil)

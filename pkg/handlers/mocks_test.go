package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/google/uuid"

	"github.com/socialflow-inc/socialflow-engine/pkg/auth"
	"github.com/socialflow-inc/socialflow-engine/pkg/models"
	"github.com/socialflow-inc/socialflow-engine/pkg/services"
)

// newAuthedRequest builds a request with JWT claims for projectID in the
// context and the pid path value already set.
func newAuthedRequest(method, target string, body io.Reader, projectID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.SetPathValue("pid", projectID.String())

	claims := &auth.Claims{
		ProjectID: projectID.String(),
		Email:     "user@example.com",
	}
	claims.Subject = "user-123"

	ctx := context.WithValue(req.Context(), auth.ClaimsKey, claims)
	return req.WithContext(ctx)
}

// mockCredentialService is a configurable mock for credential handler tests.
type mockCredentialService struct {
	credential  *models.Credential
	credentials []*models.Credential
	err         error

	createInput *services.CreateCredentialInput
	updateInput *services.UpdateCredentialInput
	deletedIDs  []uuid.UUID
}

func (m *mockCredentialService) Create(ctx context.Context, principal *auth.Principal, input *services.CreateCredentialInput) (*models.Credential, error) {
	m.createInput = input
	if m.err != nil {
		return nil, m.err
	}
	if m.credential != nil {
		return m.credential, nil
	}
	return &models.Credential{
		ID:              uuid.New(),
		ProjectID:       principal.ProjectID,
		SocialAccountID: input.SocialAccountID,
		Platform:        input.Platform,
		AccountName:     input.AccountName,
		IsActive:        true,
		CreatedBy:       principal.UserID,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}, nil
}

func (m *mockCredentialService) List(ctx context.Context, principal *auth.Principal) ([]*models.Credential, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.credentials, nil
}

func (m *mockCredentialService) Update(ctx context.Context, principal *auth.Principal, id uuid.UUID, input *services.UpdateCredentialInput) (*models.Credential, error) {
	m.updateInput = input
	if m.err != nil {
		return nil, m.err
	}
	if m.credential != nil {
		return m.credential, nil
	}
	return &models.Credential{
		ID:        id,
		ProjectID: principal.ProjectID,
		IsActive:  true,
	}, nil
}

func (m *mockCredentialService) Delete(ctx context.Context, principal *auth.Principal, id uuid.UUID) error {
	m.deletedIDs = append(m.deletedIDs, id)
	return m.err
}

// mockVerificationService is a configurable mock for the verify endpoint.
type mockVerificationService struct {
	result *services.VerificationResult
	err    error

	verifiedID uuid.UUID
}

func (m *mockVerificationService) Verify(ctx context.Context, principal *auth.Principal, credentialID uuid.UUID) (*services.VerificationResult, error) {
	m.verifiedID = credentialID
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &services.VerificationResult{
		Platform:    models.PlatformTwitter,
		AccountName: "@acme",
		Verified:    true,
		VerifiedAt:  time.Now(),
	}, nil
}

// mockWebhookService is a configurable mock for webhook handler tests.
type mockWebhookService struct {
	config        *models.WebhookConfig
	configs       []*models.WebhookConfig
	triggerResult *services.TriggerResult
	err           error

	createInput  *services.CreateWebhookInput
	updateInput  *services.UpdateWebhookInput
	triggerInput *services.TriggerInput
	clientIP     string
	deletedIDs   []uuid.UUID
}

func (m *mockWebhookService) Create(ctx context.Context, principal *auth.Principal, input *services.CreateWebhookInput) (*models.WebhookConfig, error) {
	m.createInput = input
	if m.err != nil {
		return nil, m.err
	}
	if m.config != nil {
		return m.config, nil
	}
	return &models.WebhookConfig{
		ID:             uuid.New(),
		ProjectID:      principal.ProjectID,
		WebhookURL:     input.WebhookURL,
		WebhookSecret:  input.WebhookSecret,
		WorkflowID:     input.WorkflowID,
		AutomationType: input.AutomationType,
		IsActive:       true,
		TriggerEvents:  input.TriggerEvents,
		CreatedBy:      principal.UserID,
	}, nil
}

func (m *mockWebhookService) List(ctx context.Context, principal *auth.Principal) ([]*models.WebhookConfig, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.configs, nil
}

func (m *mockWebhookService) Update(ctx context.Context, principal *auth.Principal, id uuid.UUID, input *services.UpdateWebhookInput) (*models.WebhookConfig, error) {
	m.updateInput = input
	if m.err != nil {
		return nil, m.err
	}
	if m.config != nil {
		return m.config, nil
	}
	return &models.WebhookConfig{
		ID:        id,
		ProjectID: principal.ProjectID,
		IsActive:  true,
	}, nil
}

func (m *mockWebhookService) Delete(ctx context.Context, principal *auth.Principal, id uuid.UUID) error {
	m.deletedIDs = append(m.deletedIDs, id)
	return m.err
}

func (m *mockWebhookService) Trigger(ctx context.Context, principal *auth.Principal, input *services.TriggerInput, clientIP string) (*services.TriggerResult, error) {
	m.triggerInput = input
	m.clientIP = clientIP
	if m.err != nil {
		return nil, m.err
	}
	if m.triggerResult != nil {
		return m.triggerResult, nil
	}
	return &services.TriggerResult{
		ProjectID:      principal.ProjectID,
		AutomationType: input.AutomationType,
		TriggeredAt:    time.Now(),
		Delivered:      true,
	}, nil
}

// mockProjectService is a configurable mock for project handler tests.
type mockProjectService struct {
	project *models.Project
	err     error

	provisionedName string
	deleteCalls     int
}

func (m *mockProjectService) Provision(ctx context.Context, principal *auth.Principal, name string) (*models.Project, error) {
	m.provisionedName = name
	if m.err != nil {
		return nil, m.err
	}
	if m.project != nil {
		return m.project, nil
	}
	return &models.Project{
		ID:     principal.ProjectID,
		Name:   name,
		Status: models.ProjectStatusActive,
	}, nil
}

func (m *mockProjectService) Get(ctx context.Context, principal *auth.Principal) (*models.Project, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.project != nil {
		return m.project, nil
	}
	return &models.Project{
		ID:     principal.ProjectID,
		Name:   "Test Project",
		Status: models.ProjectStatusActive,
	}, nil
}

func (m *mockProjectService) Update(ctx context.Context, principal *auth.Principal, name *string, settings map[string]any) (*models.Project, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.project != nil {
		return m.project, nil
	}
	project := &models.Project{
		ID:       principal.ProjectID,
		Name:     "Test Project",
		Settings: settings,
		Status:   models.ProjectStatusActive,
	}
	if name != nil {
		project.Name = *name
	}
	return project, nil
}

func (m *mockProjectService) Delete(ctx context.Context, principal *auth.Principal) error {
	m.deleteCalls++
	return m.err
}

// mockContentService is a configurable mock for content handler tests.
type mockContentService struct {
	result *services.GeneratedContent
	err    error

	input *services.GenerateContentInput
}

func (m *mockContentService) Generate(ctx context.Context, principal *auth.Principal, input *services.GenerateContentInput) (*services.GeneratedContent, error) {
	m.input = input
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &services.GeneratedContent{
		Platform: input.Platform,
		Content:  "Generated post copy.",
		Model:    "mock-model",
	}, nil
}

// mockAuthService is a configurable mock for auth handler tests.
type mockAuthService struct {
	claims *auth.Claims
	err    error

	validatedToken string
}

func (m *mockAuthService) ValidateRequest(r *http.Request) (*auth.Claims, string, error) {
	if m.err != nil {
		return nil, "", m.err
	}
	return m.claims, "token", nil
}

func (m *mockAuthService) RequireProjectID(claims *auth.Claims) error {
	return nil
}

func (m *mockAuthService) ValidateProjectIDMatch(claims *auth.Claims, urlProjectID string) error {
	return nil
}

func (m *mockAuthService) ValidateToken(tokenString string) (*auth.Claims, error) {
	m.validatedToken = tokenString
	if m.err != nil {
		return nil, m.err
	}
	if m.claims != nil {
		return m.claims, nil
	}
	claims := &auth.Claims{
		ProjectID: uuid.New().String(),
		Email:     "user@example.com",
	}
	claims.Subject = "user-123"
	return claims, nil
}

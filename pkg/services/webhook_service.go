package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/socialflow-inc/socialflow-engine/pkg/audit"
	"github.com/socialflow-inc/socialflow-engine/pkg/auth"
	"github.com/socialflow-inc/socialflow-engine/pkg/models"
	"github.com/socialflow-inc/socialflow-engine/pkg/n8n"
	"github.com/socialflow-inc/socialflow-engine/pkg/repositories"
	"github.com/socialflow-inc/socialflow-engine/pkg/validation"
)

// TriggerDeliverer performs the outbound signed POST to the automation
// engine. Satisfied by *n8n.Client; mock it in tests.
type TriggerDeliverer interface {
	Deliver(ctx context.Context, d *n8n.Delivery) (*n8n.DeliveryResult, error)
}

// CreateWebhookInput carries the fields for a new webhook config.
type CreateWebhookInput struct {
	WebhookURL      string
	WebhookSecret   string
	WorkflowID      *string
	AutomationType  string
	TriggerEvents   []string
	PlatformFilters []string
}

// UpdateWebhookInput carries a sparse webhook config update.
type UpdateWebhookInput struct {
	WebhookURL      *string
	WebhookSecret   *string
	WorkflowID      *string
	WorkflowIDSet   bool
	AutomationType  *string
	TriggerEvents   []string
	PlatformFilters []string
	PlatformsSet    bool
	IsActive        *bool
}

// TriggerInput identifies which automation to fire and with what payload.
type TriggerInput struct {
	AutomationType string
	Event          models.TriggerEvent
}

// TriggerResult is the envelope returned after a trigger relay.
type TriggerResult struct {
	ProjectID      uuid.UUID `json:"project_id"`
	AutomationType string    `json:"automation_type"`
	TriggeredAt    time.Time `json:"triggered_at"`
	Delivered      bool      `json:"delivered"`
}

// WebhookService manages n8n webhook configurations and relays automation
// triggers to them.
type WebhookService interface {
	// Create registers a new webhook config for the principal's project.
	Create(ctx context.Context, principal *auth.Principal, input *CreateWebhookInput) (*models.WebhookConfig, error)

	// List returns all active configs for the principal's project, newest first.
	List(ctx context.Context, principal *auth.Principal) ([]*models.WebhookConfig, error)

	// Update applies a sparse update to an existing config.
	Update(ctx context.Context, principal *auth.Principal, id uuid.UUID, input *UpdateWebhookInput) (*models.WebhookConfig, error)

	// Delete soft-deletes a config. Idempotent.
	Delete(ctx context.Context, principal *auth.Principal, id uuid.UUID) error

	// Trigger locates the newest active config for the automation type,
	// marks it triggered, and delivers the event payload.
	Trigger(ctx context.Context, principal *auth.Principal, input *TriggerInput, clientIP string) (*TriggerResult, error)
}

type webhookService struct {
	repo      repositories.WebhookConfigRepository
	deliverer TriggerDeliverer
	auditor   *audit.SecurityAuditor
	logger    *zap.Logger
}

// NewWebhookService creates a new webhook service.
func NewWebhookService(
	repo repositories.WebhookConfigRepository,
	deliverer TriggerDeliverer,
	auditor *audit.SecurityAuditor,
	logger *zap.Logger,
) WebhookService {
	return &webhookService{
		repo:      repo,
		deliverer: deliverer,
		auditor:   auditor,
		logger:    logger,
	}
}

// Create registers a new webhook config. Trigger events default to
// models.DefaultTriggerEvents when omitted.
func (s *webhookService) Create(ctx context.Context, principal *auth.Principal, input *CreateWebhookInput) (*models.WebhookConfig, error) {
	if !models.ValidAutomationType(input.AutomationType) {
		return nil, validation.NewRequestError("automation_type", "oneof",
			fmt.Sprintf("automation_type must be one of: %v", models.AutomationTypes))
	}

	cfg := &models.WebhookConfig{
		ProjectID:       principal.ProjectID,
		WebhookURL:      input.WebhookURL,
		WebhookSecret:   input.WebhookSecret,
		WorkflowID:      input.WorkflowID,
		AutomationType:  input.AutomationType,
		IsActive:        true,
		TriggerEvents:   input.TriggerEvents,
		PlatformFilters: input.PlatformFilters,
		CreatedBy:       principal.UserID,
	}

	if err := s.repo.Create(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to create webhook config: %w", err)
	}

	s.logger.Info("Webhook config created",
		zap.String("config_id", cfg.ID.String()),
		zap.String("project_id", principal.ProjectID.String()),
		zap.String("automation_type", cfg.AutomationType))

	return cfg, nil
}

// List returns all active configs for the principal's project.
func (s *webhookService) List(ctx context.Context, principal *auth.Principal) ([]*models.WebhookConfig, error) {
	configs, err := s.repo.List(ctx, principal.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhook configs: %w", err)
	}
	return configs, nil
}

// Update applies a sparse update to an existing config.
func (s *webhookService) Update(ctx context.Context, principal *auth.Principal, id uuid.UUID, input *UpdateWebhookInput) (*models.WebhookConfig, error) {
	if input.AutomationType != nil && !models.ValidAutomationType(*input.AutomationType) {
		return nil, validation.NewRequestError("automation_type", "oneof",
			fmt.Sprintf("automation_type must be one of: %v", models.AutomationTypes))
	}

	upd := &repositories.WebhookConfigUpdate{
		WebhookURL:      input.WebhookURL,
		WebhookSecret:   input.WebhookSecret,
		WorkflowID:      input.WorkflowID,
		WorkflowIDSet:   input.WorkflowIDSet,
		AutomationType:  input.AutomationType,
		TriggerEvents:   input.TriggerEvents,
		PlatformFilters: input.PlatformFilters,
		PlatformsSet:    input.PlatformsSet,
		IsActive:        input.IsActive,
	}

	if err := s.repo.Update(ctx, id, upd); err != nil {
		return nil, fmt.Errorf("failed to update webhook config: %w", err)
	}

	s.logger.Info("Webhook config updated",
		zap.String("config_id", id.String()),
		zap.String("project_id", principal.ProjectID.String()))

	return s.repo.GetByID(ctx, id)
}

// Delete soft-deletes a config. Repeating the call is not an error.
func (s *webhookService) Delete(ctx context.Context, principal *auth.Principal, id uuid.UUID) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete webhook config: %w", err)
	}

	s.logger.Info("Webhook config deleted",
		zap.String("config_id", id.String()),
		zap.String("project_id", principal.ProjectID.String()))

	return nil
}

// Trigger relays an automation event. When no active config matches the
// automation type, the call fails without any bookkeeping side effects.
// Metadata values are scanned for injection patterns before the payload
// leaves the service; a hit rejects the request and raises a SIEM event.
func (s *webhookService) Trigger(ctx context.Context, principal *auth.Principal, input *TriggerInput, clientIP string) (*TriggerResult, error) {
	if !models.ValidAutomationType(input.AutomationType) {
		return nil, validation.NewRequestError("automation_type", "oneof",
			fmt.Sprintf("automation_type must be one of: %v", models.AutomationTypes))
	}
	if input.Event.EventType == "" {
		return nil, validation.NewRequestError("event_data.event_type", "required",
			"event_data.event_type is required")
	}

	cfg, err := s.repo.FindActiveForTrigger(ctx, principal.ProjectID, input.AutomationType)
	if err != nil {
		return nil, err
	}

	if hits := audit.CheckMetadata(input.Event.Metadata); len(hits) > 0 {
		for _, hit := range hits {
			s.auditor.LogInjectionAttempt(ctx, principal.ProjectID, cfg.ID, audit.InjectionDetails{
				FieldName:   hit.FieldName,
				FieldValue:  fmt.Sprintf("%v", hit.FieldValue),
				Fingerprint: hit.Fingerprint,
				EventType:   input.Event.EventType,
			}, clientIP)
		}
		return nil, validation.NewRequestError("event_data.metadata."+hits[0].FieldName,
			"injection", "metadata value contains a disallowed pattern")
	}

	triggeredAt := time.Now().UTC()
	if err := s.repo.MarkTriggered(ctx, cfg.ID, triggeredAt); err != nil {
		return nil, fmt.Errorf("failed to mark config triggered: %w", err)
	}

	result := &TriggerResult{
		ProjectID:      principal.ProjectID,
		AutomationType: input.AutomationType,
		TriggeredAt:    triggeredAt,
	}

	_, err = s.deliverer.Deliver(ctx, &n8n.Delivery{
		WebhookURL:    cfg.WebhookURL,
		WebhookSecret: cfg.WebhookSecret,
		WorkflowID:    cfg.WorkflowID,
		Event:         &input.Event,
	})
	if err != nil {
		// Delivery failure does not undo the trigger bookkeeping; the
		// envelope reports delivered=false so callers can re-fire.
		s.logger.Error("Trigger delivery failed",
			zap.String("config_id", cfg.ID.String()),
			zap.String("automation_type", input.AutomationType),
			zap.Error(err))
		return result, nil
	}

	result.Delivered = true
	return result, nil
}

// Ensure webhookService implements WebhookService at compile time.
var _ WebhookService = (*webhookService)(nil)

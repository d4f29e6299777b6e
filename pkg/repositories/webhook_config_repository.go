package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/socialflow-inc/socialflow-engine/pkg/apperrors"
	"github.com/socialflow-inc/socialflow-engine/pkg/database"
	"github.com/socialflow-inc/socialflow-engine/pkg/models"
)

// WebhookConfigUpdate describes a sparse update to a webhook config.
// Nil pointers leave the stored value untouched.
type WebhookConfigUpdate struct {
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

// WebhookConfigRepository defines the interface for webhook config data access.
type WebhookConfigRepository interface {
	// Create inserts a new webhook config.
	Create(ctx context.Context, cfg *models.WebhookConfig) error

	// GetByID retrieves a config by ID, including the shared secret.
	GetByID(ctx context.Context, id uuid.UUID) (*models.WebhookConfig, error)

	// List retrieves all active configs for a project, newest first.
	List(ctx context.Context, projectID uuid.UUID) ([]*models.WebhookConfig, error)

	// Update applies a sparse update and stamps updated_at.
	Update(ctx context.Context, id uuid.UUID, upd *WebhookConfigUpdate) error

	// SoftDelete flips is_active to false. Idempotent.
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// FindActiveForTrigger returns the most recently created active config
	// for the (project, automation type) pair.
	FindActiveForTrigger(ctx context.Context, projectID uuid.UUID, automationType string) (*models.WebhookConfig, error)

	// MarkTriggered stamps last_triggered_at and increments trigger_count.
	MarkTriggered(ctx context.Context, id uuid.UUID, at time.Time) error
}

// webhookConfigRepository implements WebhookConfigRepository using PostgreSQL.
type webhookConfigRepository struct{}

// NewWebhookConfigRepository creates a new webhook config repository.
func NewWebhookConfigRepository() WebhookConfigRepository {
	return &webhookConfigRepository{}
}

const webhookConfigColumns = `id, project_id, webhook_url, webhook_secret, workflow_id,
	automation_type, is_active, trigger_events, platform_filters,
	last_triggered_at, trigger_count, created_by, created_at, updated_at`

// Create inserts a new webhook config.
func (r *webhookConfigRepository) Create(ctx context.Context, cfg *models.WebhookConfig) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}
	now := time.Now()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now
	cfg.IsActive = true
	if len(cfg.TriggerEvents) == 0 {
		cfg.TriggerEvents = append([]string(nil), models.DefaultTriggerEvents...)
	}

	query := `
		INSERT INTO n8n_webhook_configs (
			id, project_id, webhook_url, webhook_secret, workflow_id,
			automation_type, is_active, trigger_events, platform_filters,
			created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := scope.Conn.Exec(ctx, query,
		cfg.ID,
		cfg.ProjectID,
		cfg.WebhookURL,
		cfg.WebhookSecret,
		cfg.WorkflowID,
		cfg.AutomationType,
		cfg.IsActive,
		cfg.TriggerEvents,
		cfg.PlatformFilters,
		cfg.CreatedBy,
		cfg.CreatedAt,
		cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create webhook config: %w", err)
	}

	return nil
}

// GetByID retrieves a config by ID.
func (r *webhookConfigRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.WebhookConfig, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `SELECT ` + webhookConfigColumns + `
		FROM n8n_webhook_configs
		WHERE id = $1`

	cfg, err := scanWebhookConfig(scope.Conn.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get webhook config: %w", err)
	}

	return cfg, nil
}

// List retrieves all active configs for a project, newest first.
func (r *webhookConfigRepository) List(ctx context.Context, projectID uuid.UUID) ([]*models.WebhookConfig, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `SELECT ` + webhookConfigColumns + `
		FROM n8n_webhook_configs
		WHERE project_id = $1 AND is_active = true
		ORDER BY created_at DESC`

	rows, err := scope.Conn.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhook configs: %w", err)
	}
	defer rows.Close()

	var configs []*models.WebhookConfig
	for rows.Next() {
		cfg, err := scanWebhookConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook config: %w", err)
		}
		configs = append(configs, cfg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating webhook configs: %w", err)
	}

	return configs, nil
}

// Update applies a sparse update.
func (r *webhookConfigRepository) Update(ctx context.Context, id uuid.UUID, upd *WebhookConfigUpdate) error {
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

	if upd.WebhookURL != nil {
		addSet("webhook_url", *upd.WebhookURL)
	}
	if upd.WebhookSecret != nil {
		addSet("webhook_secret", *upd.WebhookSecret)
	}
	if upd.WorkflowIDSet {
		addSet("workflow_id", upd.WorkflowID)
	}
	if upd.AutomationType != nil {
		addSet("automation_type", *upd.AutomationType)
	}
	if upd.TriggerEvents != nil {
		addSet("trigger_events", upd.TriggerEvents)
	}
	if upd.PlatformsSet {
		addSet("platform_filters", upd.PlatformFilters)
	}
	if upd.IsActive != nil {
		addSet("is_active", *upd.IsActive)
	}

	query := "UPDATE n8n_webhook_configs SET " + strings.Join(setClauses, ", ") + " WHERE id = $1"

	result, err := scope.Conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update webhook config: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// SoftDelete flips is_active to false. Repeating the call is not an error.
func (r *webhookConfigRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	query := `UPDATE n8n_webhook_configs SET is_active = false, updated_at = $2 WHERE id = $1`

	_, err := scope.Conn.Exec(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete webhook config: %w", err)
	}

	return nil
}

// FindActiveForTrigger returns the newest active config for the pair.
// Multiple active configs per (project, automation type) are permitted;
// the lookup deliberately takes the most recently created one.
func (r *webhookConfigRepository) FindActiveForTrigger(ctx context.Context, projectID uuid.UUID, automationType string) (*models.WebhookConfig, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `SELECT ` + webhookConfigColumns + `
		FROM n8n_webhook_configs
		WHERE project_id = $1 AND automation_type = $2 AND is_active = true
		ORDER BY created_at DESC
		LIMIT 1`

	cfg, err := scanWebhookConfig(scope.Conn.QueryRow(ctx, query, projectID, automationType))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNoActiveWebhook
		}
		return nil, fmt.Errorf("failed to find webhook config: %w", err)
	}

	return cfg, nil
}

// MarkTriggered stamps last_triggered_at and increments trigger_count.
func (r *webhookConfigRepository) MarkTriggered(ctx context.Context, id uuid.UUID, at time.Time) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	query := `
		UPDATE n8n_webhook_configs
		SET last_triggered_at = $2, trigger_count = trigger_count + 1, updated_at = $2
		WHERE id = $1`

	result, err := scope.Conn.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark webhook config triggered: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// scanWebhookConfig scans one webhook config row.
func scanWebhookConfig(row pgx.Row) (*models.WebhookConfig, error) {
	var cfg models.WebhookConfig
	err := row.Scan(
		&cfg.ID,
		&cfg.ProjectID,
		&cfg.WebhookURL,
		&cfg.WebhookSecret,
		&cfg.WorkflowID,
		&cfg.AutomationType,
		&cfg.IsActive,
		&cfg.TriggerEvents,
		&cfg.PlatformFilters,
		&cfg.LastTriggeredAt,
		&cfg.TriggerCount,
		&cfg.CreatedBy,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Ensure webhookConfigRepository implements WebhookConfigRepository at compile time.
var _ WebhookConfigRepository = (*webhookConfigRepository)(nil)

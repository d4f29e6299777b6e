package models

import (
	"time"

	"github.com/google/uuid"
)

// Automation type constants.
const (
	AutomationContentCreation = "content_creation"
	AutomationPosting         = "posting"
	AutomationAnalytics       = "analytics"
	AutomationMonitoring      = "monitoring"
)

// AutomationTypes lists every supported automation type value.
var AutomationTypes = []string{
	AutomationContentCreation,
	AutomationPosting,
	AutomationAnalytics,
	AutomationMonitoring,
}

// DefaultTriggerEvents is applied when a config is created without an
// explicit trigger event list.
var DefaultTriggerEvents = []string{"content_ready", "schedule_time"}

// WebhookConfig represents one external-automation binding for a project.
// The shared secret is never serialized in API responses.
type WebhookConfig struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`

	WebhookURL    string  `json:"webhook_url"`
	WebhookSecret string  `json:"-"`
	WorkflowID    *string `json:"workflow_id,omitempty"`

	AutomationType  string   `json:"automation_type"`
	IsActive        bool     `json:"is_active"`
	TriggerEvents   []string `json:"trigger_events"`
	PlatformFilters []string `json:"platform_filters,omitempty"`

	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
	TriggerCount    int64      `json:"trigger_count"`

	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TriggerEvent is the payload relayed to the automation engine.
type TriggerEvent struct {
	EventType     string         `json:"event_type"`
	ContentID     *uuid.UUID     `json:"content_id,omitempty"`
	ScheduledTime *time.Time     `json:"scheduled_time,omitempty"`
	Platforms     []string       `json:"platforms,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// ValidAutomationType reports whether t is one of the supported automation types.
func ValidAutomationType(t string) bool {
	for _, known := range AutomationTypes {
		if t == known {
			return true
		}
	}
	return false
}

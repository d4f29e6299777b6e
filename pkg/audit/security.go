// Package audit provides security audit logging for SIEM consumption.
// It logs security-relevant events in structured JSON format for easy parsing
// and integration with security information and event management systems.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/socialflow-inc/socialflow-engine/pkg/auth"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventInjectionAttempt is logged when libinjection detects SQL injection
	// patterns in trigger payload metadata.
	EventInjectionAttempt SecurityEventType = "injection_attempt"
	// EventPayloadValidation is logged when trigger payload validation fails.
	EventPayloadValidation SecurityEventType = "payload_validation_failure"
	// EventCredentialAccess is logged when encrypted credential fields are
	// decrypted for verification or delivery.
	EventCredentialAccess SecurityEventType = "credential_access"
)

// SecurityEvent represents an auditable security event with all relevant context
// for SIEM ingestion and analysis.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	ProjectID uuid.UUID         `json:"project_id"`
	ConfigID  uuid.UUID         `json:"config_id,omitempty"`
	UserID    string            `json:"user_id,omitempty"`
	ClientIP  string            `json:"client_ip,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// InjectionDetails contains specifics of a detected injection attempt in a
// trigger payload.
type InjectionDetails struct {
	FieldName   string `json:"field_name"`
	FieldValue  string `json:"field_value"`
	Fingerprint string `json:"fingerprint"` // libinjection fingerprint for pattern analysis
	EventType   string `json:"trigger_event_type"`
}

// SecurityAuditor logs security events for SIEM consumption.
// Events are logged in structured JSON format with appropriate severity levels.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a new security auditor with a dedicated logger namespace.
// The logger is automatically configured with "security_audit" namespace for easy
// filtering in SIEM systems.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	securityLogger := logger.Named("security_audit")
	return &SecurityAuditor{logger: securityLogger}
}

// LogInjectionAttempt records a detected injection attempt with full context.
// This is logged at ERROR level with "critical" severity for immediate alerting.
//
// The context is used to extract user ID from JWT claims if available.
// Client IP should be extracted from the HTTP request (typically r.RemoteAddr).
func (a *SecurityAuditor) LogInjectionAttempt(
	ctx context.Context,
	projectID, configID uuid.UUID,
	details InjectionDetails,
	clientIP string,
) {
	userID := auth.GetUserIDFromContext(ctx)

	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventInjectionAttempt,
		ProjectID: projectID,
		ConfigID:  configID,
		UserID:    userID,
		ClientIP:  clientIP,
		Details:   details,
		Severity:  "critical",
	}

	// Serialize event to JSON for SIEM ingestion
	// Ignoring error as marshaling known types should never fail
	eventJSON, _ := json.Marshal(event)

	a.logger.Error("Injection attempt detected in trigger payload",
		zap.String("event_json", string(eventJSON)),
		zap.String("project_id", projectID.String()),
		zap.String("config_id", configID.String()),
		zap.String("field_name", details.FieldName),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("client_ip", clientIP),
		zap.String("user_id", userID),
		zap.String("severity", "critical"),
	)
}

// LogPayloadValidation records a trigger payload validation failure.
// This is logged at WARN level as these are typically user errors, not attacks.
func (a *SecurityAuditor) LogPayloadValidation(
	ctx context.Context,
	projectID uuid.UUID,
	errorMessage string,
	clientIP string,
) {
	userID := auth.GetUserIDFromContext(ctx)

	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventPayloadValidation,
		ProjectID: projectID,
		UserID:    userID,
		ClientIP:  clientIP,
		Details: map[string]string{
			"error": errorMessage,
		},
		Severity: "warning",
	}

	eventJSON, _ := json.Marshal(event)

	a.logger.Warn("Trigger payload validation failed",
		zap.String("event_json", string(eventJSON)),
		zap.String("project_id", projectID.String()),
		zap.String("error", errorMessage),
		zap.String("client_ip", clientIP),
		zap.String("user_id", userID),
		zap.String("severity", "warning"),
	)
}

// LogCredentialAccess records decryption of credential secret fields for
// verification or delivery. This is logged at INFO level and can generate
// high log volume in production.
func (a *SecurityAuditor) LogCredentialAccess(
	ctx context.Context,
	projectID, credentialID uuid.UUID,
	purpose string,
	clientIP string,
) {
	userID := auth.GetUserIDFromContext(ctx)

	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventCredentialAccess,
		ProjectID: projectID,
		ConfigID:  credentialID,
		UserID:    userID,
		ClientIP:  clientIP,
		Details: map[string]string{
			"purpose": purpose,
		},
		Severity: "info",
	}

	eventJSON, _ := json.Marshal(event)

	a.logger.Info("Credential secret fields accessed",
		zap.String("event_json", string(eventJSON)),
		zap.String("project_id", projectID.String()),
		zap.String("credential_id", credentialID.String()),
		zap.String("purpose", purpose),
		zap.String("client_ip", clientIP),
		zap.String("user_id", userID),
		zap.String("severity", "info"),
	)
}

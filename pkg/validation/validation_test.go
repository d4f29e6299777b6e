package validation

import (
	"strings"
	"testing"
)

type sampleRequest struct {
	Platform   string   `json:"platform" validate:"required"`
	WebhookURL string   `json:"webhook_url" validate:"required,url"`
	AccountID  string   `json:"account_id" validate:"omitempty,uuid"`
	Name       string   `json:"name" validate:"max=10"`
	Keywords   []string `json:"keywords" validate:"max=3"`
	Internal   string   `json:"-" validate:"omitempty"`
}

func TestStruct_Valid(t *testing.T) {
	req := sampleRequest{
		Platform:   "twitter",
		WebhookURL: "https://n8n.example.com/webhook/abc",
		AccountID:  "550e8400-e29b-41d4-a716-446655440000",
		Name:       "acme",
	}

	if err := Struct(&req); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestStruct_CollectsEveryViolation(t *testing.T) {
	req := sampleRequest{
		WebhookURL: "not a url",
		Name:       "a name that is far too long",
	}

	reqErr := Struct(&req)
	if reqErr == nil {
		t.Fatal("expected a validation error")
	}

	if len(reqErr.Violations) != 3 {
		t.Fatalf("expected 3 violations, got %d: %+v", len(reqErr.Violations), reqErr.Violations)
	}

	byField := make(map[string]FieldViolation, len(reqErr.Violations))
	for _, v := range reqErr.Violations {
		byField[v.Field] = v
	}

	if v, ok := byField["platform"]; !ok || v.Rule != "required" {
		t.Errorf("expected required violation on platform, got %+v", v)
	}
	if v, ok := byField["webhook_url"]; !ok || v.Rule != "url" {
		t.Errorf("expected url violation on webhook_url, got %+v", v)
	}
	if v, ok := byField["name"]; !ok || v.Rule != "max" {
		t.Errorf("expected max violation on name, got %+v", v)
	}
}

func TestStruct_FieldNamesComeFromJSONTags(t *testing.T) {
	req := sampleRequest{Platform: "twitter"}

	reqErr := Struct(&req)
	if reqErr == nil {
		t.Fatal("expected a validation error")
	}

	for _, v := range reqErr.Violations {
		if strings.ContainsAny(v.Field, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
			t.Errorf("violation field %q looks like a Go identifier, want the json name", v.Field)
		}
	}
}

func TestStruct_InvalidUUID(t *testing.T) {
	req := sampleRequest{
		Platform:   "twitter",
		WebhookURL: "https://n8n.example.com/webhook/abc",
		AccountID:  "not-a-uuid",
	}

	reqErr := Struct(&req)
	if reqErr == nil {
		t.Fatal("expected a validation error")
	}
	if len(reqErr.Violations) != 1 {
		t.Fatalf("expected 1 violation, got %d", len(reqErr.Violations))
	}

	v := reqErr.Violations[0]
	if v.Field != "account_id" || v.Rule != "uuid" {
		t.Errorf("unexpected violation %+v", v)
	}
	if !strings.Contains(v.Message, "valid UUID") {
		t.Errorf("expected readable message, got %q", v.Message)
	}
}

func TestNewRequestError(t *testing.T) {
	reqErr := NewRequestError("credentials", "secret_field", "unknown secret field \"steam_key\" for platform twitter")

	if len(reqErr.Violations) != 1 {
		t.Fatalf("expected 1 violation, got %d", len(reqErr.Violations))
	}
	if reqErr.Violations[0].Field != "credentials" {
		t.Errorf("field = %q, want 'credentials'", reqErr.Violations[0].Field)
	}
	if reqErr.Violations[0].Rule != "secret_field" {
		t.Errorf("rule = %q, want 'secret_field'", reqErr.Violations[0].Rule)
	}
}

func TestRequestError_ErrorJoinsMessages(t *testing.T) {
	reqErr := &RequestError{Violations: []FieldViolation{
		{Field: "platform", Rule: "required", Message: "platform is required"},
		{Field: "topic", Rule: "required", Message: "topic is required"},
	}}

	got := reqErr.Error()
	want := "platform is required; topic is required"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Project statuses.
const (
	ProjectStatusActive   = "active"
	ProjectStatusArchived = "archived"
)

// Project represents a workspace owning credentials and webhook configs.
type Project struct {
	ID        uuid.UUID              `json:"id"`
	Name      string                 `json:"name"`
	Settings  map[string]interface{} `json:"settings,omitempty"`
	Status    string                 `json:"status"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

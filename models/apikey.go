package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// API key profiles. A key may also carry an explicit tool-action allow-list;
// the allow-list is honored regardless of profile.
const (
	ProfileReadOnly = "read-only"
	ProfileWrite    = "write"
	ProfileAdmin    = "admin"
)

// APIKey stores only the sha256 hash of the secret value. The plaintext is
// returned to the caller exactly once at creation. Keys are never hard
// deleted; revocation is a status transition.
type APIKey struct {
	ID         string     `json:"id" gorm:"primaryKey;size:36"`
	TenantID   string     `json:"tenant_id" gorm:"size:36;not null;index"`
	Name       string     `json:"name" gorm:"size:255;not null"`
	Hash       string     `json:"-" gorm:"size:64;not null;uniqueIndex"`
	Status     string     `json:"status" gorm:"size:16;not null;default:active"`
	Profile    *string    `json:"profile,omitempty" gorm:"size:16"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (k *APIKey) BeforeCreate(tx *gorm.DB) error {
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	return nil
}

// APIKeyToolAction attaches one allow-listed capability to an API key.
type APIKeyToolAction struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	TenantID     string    `json:"tenant_id" gorm:"size:36;not null;uniqueIndex:idx_api_key_action"`
	APIKeyID     string    `json:"api_key_id" gorm:"size:36;not null;uniqueIndex:idx_api_key_action"`
	ToolActionID string    `json:"tool_action_id" gorm:"size:36;not null;uniqueIndex:idx_api_key_action"`
	CreatedAt    time.Time `json:"created_at"`
}

func (ka *APIKeyToolAction) BeforeCreate(tx *gorm.DB) error {
	if ka.ID == "" {
		ka.ID = uuid.NewString()
	}
	return nil
}

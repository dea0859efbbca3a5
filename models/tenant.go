package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Lifecycle status shared by tenants, users, groups, API keys and
// webhook subscriptions.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

type Tenant struct {
	ID              string    `json:"id" gorm:"primaryKey;size:36"`
	Name            string    `json:"name" gorm:"size:255;not null"`
	Status          string    `json:"status" gorm:"size:16;not null;default:active"`
	SuspendedReason *string   `json:"suspended_reason,omitempty" gorm:"size:255"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

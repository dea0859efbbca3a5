package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tool is a platform-wide product area (e.g. "rbac"). Tools and their
// actions form the registry that capability keys point at.
type Tool struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	Key         string    `json:"key" gorm:"size:128;not null;uniqueIndex"`
	Name        string    `json:"name" gorm:"size:255;not null"`
	Description *string   `json:"description,omitempty" gorm:"size:512"`
	Status      string    `json:"status" gorm:"size:16;not null;default:active"`
	CreatedAt   time.Time `json:"created_at"`
}

func (t *Tool) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// ToolAction is one fine-grained capability, identified by a dot-segmented
// key such as "rbac.users.create".
type ToolAction struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	ToolID      string    `json:"tool_id" gorm:"size:36;not null;index"`
	Key         string    `json:"key" gorm:"size:128;not null;uniqueIndex"`
	Name        string    `json:"name" gorm:"size:255;not null"`
	Description *string   `json:"description,omitempty" gorm:"size:512"`
	Status      string    `json:"status" gorm:"size:16;not null;default:active"`
	CreatedAt   time.Time `json:"created_at"`
}

func (a *ToolAction) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

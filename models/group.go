package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Group struct {
	ID          string         `json:"id" gorm:"primaryKey;size:36"`
	TenantID    string         `json:"tenant_id" gorm:"size:36;not null;index"`
	Name        string         `json:"name" gorm:"size:255;not null"`
	Description *string        `json:"description,omitempty" gorm:"size:512"`
	Status      string         `json:"status" gorm:"size:16;not null;default:active"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (g *Group) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}

// UserGroup is a tenant-scoped membership of a user in a group.
type UserGroup struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	TenantID  string    `json:"tenant_id" gorm:"size:36;not null;uniqueIndex:idx_user_group"`
	UserID    string    `json:"user_id" gorm:"size:36;not null;uniqueIndex:idx_user_group"`
	GroupID   string    `json:"group_id" gorm:"size:36;not null;uniqueIndex:idx_user_group"`
	CreatedAt time.Time `json:"created_at"`
}

func (ug *UserGroup) BeforeCreate(tx *gorm.DB) error {
	if ug.ID == "" {
		ug.ID = uuid.NewString()
	}
	return nil
}

// GroupPermission grants one tool-action capability to a group. A user's
// effective capabilities are the union over all groups they belong to.
type GroupPermission struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	TenantID     string    `json:"tenant_id" gorm:"size:36;not null;uniqueIndex:idx_group_permission"`
	GroupID      string    `json:"group_id" gorm:"size:36;not null;uniqueIndex:idx_group_permission"`
	ToolActionID string    `json:"tool_action_id" gorm:"size:36;not null;uniqueIndex:idx_group_permission"`
	CreatedAt    time.Time `json:"created_at"`
}

func (gp *GroupPermission) BeforeCreate(tx *gorm.DB) error {
	if gp.ID == "" {
		gp.ID = uuid.NewString()
	}
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Coarse roles carried in user token claims. Role checks are exact string
// matches; fine-grained access goes through group permissions instead.
const (
	RolePlatformAdmin = "PLATFORM_ADMIN"
)

type User struct {
	ID              string         `json:"id" gorm:"primaryKey;size:36"`
	TenantID        string         `json:"tenant_id" gorm:"size:36;not null;uniqueIndex:idx_tenant_email"`
	Email           string         `json:"email" gorm:"size:255;not null;uniqueIndex:idx_tenant_email"`
	Name            string         `json:"name" gorm:"size:255;not null"`
	PasswordHash    []byte         `json:"-" gorm:"not null"`
	Role            *string        `json:"role,omitempty" gorm:"size:64"`
	Status          string         `json:"status" gorm:"size:16;not null;default:active"`
	SuspendedReason *string        `json:"suspended_reason,omitempty" gorm:"size:255"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

func (u *User) SetPassword(password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return err
	}
	u.PasswordHash = hashed
	return nil
}

func (u *User) ComparePassword(password string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password))
}

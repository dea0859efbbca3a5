package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IdempotencyRecord stores the response of the first successful execution
// for a (tenant, key, handler) triple. Records are immutable once written;
// a replay must return the stored status and body verbatim.
type IdempotencyRecord struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	TenantID       string    `json:"tenant_id" gorm:"size:36;not null;uniqueIndex:idx_idempotency"`
	Key            string    `json:"key" gorm:"size:128;not null;uniqueIndex:idx_idempotency"`
	Handler        string    `json:"handler" gorm:"size:128;not null;uniqueIndex:idx_idempotency"`
	RequestHash    string    `json:"request_hash" gorm:"size:64;not null"`
	ResponseStatus int       `json:"response_status" gorm:"not null"`
	ResponseBody   []byte    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

func (r *IdempotencyRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

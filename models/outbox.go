package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Outbox job states. "done" and "dead" are terminal and never revisited by
// the worker poll loop.
const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobDone       = "done"
	JobDead       = "dead"
)

// Job types dispatched by the delivery worker.
const (
	JobTypeWebhookDeliver = "webhook.deliver"
)

// OutboxJob is a unit of side-effect work staged in the same transaction as
// the business mutation that triggered it.
type OutboxJob struct {
	ID          string         `json:"id" gorm:"primaryKey;size:36"`
	TenantID    string         `json:"tenant_id" gorm:"size:36;not null;index"`
	Type        string         `json:"type" gorm:"size:64;not null"`
	Payload     datatypes.JSON `json:"payload"`
	Status      string         `json:"status" gorm:"size:16;not null;default:pending;index:idx_outbox_poll"`
	Retries     int            `json:"retries" gorm:"not null;default:0"`
	AvailableAt time.Time      `json:"available_at" gorm:"not null;index:idx_outbox_poll"`
	LastError   *string        `json:"last_error,omitempty" gorm:"size:1024"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (j *OutboxJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.AvailableAt.IsZero() {
		j.AvailableAt = time.Now().UTC()
	}
	return nil
}

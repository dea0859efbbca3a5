package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Webhook delivery states.
const (
	DeliveryPending   = "pending"
	DeliveryDelivered = "delivered"
	DeliveryFailed    = "failed"
	DeliveryDead      = "dead"
)

// EventWildcard in a subscription's event filter matches every event type.
const EventWildcard = "*"

// WebhookSubscription is a tenant-configured HTTP endpoint interested in a
// set of event types. Fan-out happens at enqueue time: changing a
// subscription later does not affect already-enqueued deliveries.
type WebhookSubscription struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	TenantID  string    `json:"tenant_id" gorm:"size:36;not null;index"`
	URL       string    `json:"url" gorm:"size:1024;not null"`
	Secret    string    `json:"-" gorm:"size:255;not null"`
	Status    string    `json:"status" gorm:"size:16;not null;default:active"`
	Events    []string  `json:"events" gorm:"serializer:json"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *WebhookSubscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Matches reports whether the subscription wants the given event type.
func (s *WebhookSubscription) Matches(eventType string) bool {
	for _, e := range s.Events {
		if e == eventType || e == EventWildcard {
			return true
		}
	}
	return false
}

// WebhookDelivery is one (event, subscription) pair. EventID is unique per
// delivery and lets the receiver deduplicate.
type WebhookDelivery struct {
	ID             string         `json:"id" gorm:"primaryKey;size:36"`
	TenantID       string         `json:"tenant_id" gorm:"size:36;not null;index"`
	SubscriptionID string         `json:"subscription_id" gorm:"size:36;not null;index"`
	EventID        string         `json:"event_id" gorm:"size:36;not null;uniqueIndex"`
	EventType      string         `json:"event_type" gorm:"size:64;not null"`
	Payload        datatypes.JSON `json:"payload"`
	Status         string         `json:"status" gorm:"size:16;not null;default:pending"`
	Attempts       int            `json:"attempts" gorm:"not null;default:0"`
	LastAttemptAt  *time.Time     `json:"last_attempt_at,omitempty"`
	NextAttemptAt  *time.Time     `json:"next_attempt_at,omitempty"`
	ResponseStatus *int           `json:"response_status,omitempty"`
	ResponseBody   *string        `json:"-" gorm:"size:10000"`
	LastError      *string        `json:"last_error,omitempty" gorm:"size:1024"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (d *WebhookDelivery) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

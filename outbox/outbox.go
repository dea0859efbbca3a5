// Package outbox stages webhook delivery work transactionally alongside the
// business mutation that triggers it. The worker consumes the staged jobs
// asynchronously; durable rows are the only channel between the two.
package outbox

import (
	"encoding/json"

	"verwaltung-backend/models"

	"github.com/google/uuid"
)

// Tenant-facing event types.
const (
	EventTenantCreated          = "tenant.created"
	EventUserCreated            = "user.created"
	EventUserUpdated            = "user.updated"
	EventGroupPermissionChanged = "group.permission.changed"
	EventAPIKeyRevoked          = "api_key.revoked"
)

// Store is the transactional persistence surface Enqueue writes through. It
// must be bound to the same transaction as the business mutation: if that
// transaction rolls back, none of these rows may exist afterwards.
type Store interface {
	ActiveSubscriptions(tenantID, eventType string) ([]models.WebhookSubscription, error)
	CreateDelivery(delivery *models.WebhookDelivery) error
	CreateJob(job *models.OutboxJob) error
}

// JobPayload is the outbox job body for webhook deliveries: the job
// references a pre-materialized delivery row, not the subscription list, so
// later subscription changes do not affect already-enqueued work.
type JobPayload struct {
	DeliveryID string `json:"deliveryId"`
}

// Enqueue fans an event out to every active subscription whose filter
// matches the type (or carries the wildcard), materializing one delivery row
// plus one job row per subscription.
func Enqueue(store Store, tenantID, eventType string, payload any) error {
	subscriptions, err := store.ActiveSubscriptions(tenantID, eventType)
	if err != nil {
		return err
	}
	if len(subscriptions) == 0 {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	for _, sub := range subscriptions {
		delivery := &models.WebhookDelivery{
			TenantID:       tenantID,
			SubscriptionID: sub.ID,
			EventID:        uuid.NewString(),
			EventType:      eventType,
			Payload:        body,
			Status:         models.DeliveryPending,
		}
		if err := store.CreateDelivery(delivery); err != nil {
			return err
		}

		jobPayload, err := json.Marshal(JobPayload{DeliveryID: delivery.ID})
		if err != nil {
			return err
		}
		job := &models.OutboxJob{
			TenantID: tenantID,
			Type:     models.JobTypeWebhookDeliver,
			Payload:  jobPayload,
			Status:   models.JobPending,
		}
		if err := store.CreateJob(job); err != nil {
			return err
		}
	}
	return nil
}

package database

import (
	"verwaltung-backend/models"

	"gorm.io/gorm"
)

// OutboxStore writes delivery and job rows through the transaction it is
// bound to, so enqueued work shares the fate of the business mutation.
type OutboxStore struct {
	tx *gorm.DB
}

// NewOutboxStore binds an outbox store to a (usually per-request)
// transaction.
func NewOutboxStore(tx *gorm.DB) *OutboxStore {
	return &OutboxStore{tx: tx}
}

// ActiveSubscriptions returns the tenant's active subscriptions whose event
// filter matches the type or includes the wildcard. Filtering happens on the
/// decoded events slice: the column is serialized JSON, which keeps the query
// portable across drivers.
func (s *OutboxStore) ActiveSubscriptions(tenantID, eventType string) ([]models.WebhookSubscription, error) {
	var all []models.WebhookSubscription
	err := s.tx.Where("tenant_id = ? AND status = ?", tenantID, models.StatusActive).
		Find(&all).Error
	if err != nil {
		return nil, err
	}

	matched := all[:0]
	for _, sub := range all {
		if sub.Matches(eventType) {
			matched = append(matched, sub)
		}
	}
	return matched, nil
}

func (s *OutboxStore) CreateDelivery(delivery *models.WebhookDelivery) error {
	return s.tx.Create(delivery).Error
}

func (s *OutboxStore) CreateJob(job *models.OutboxJob) error {
	return s.tx.Create(job).Error
}

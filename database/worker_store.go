package database

import (
	"errors"
	"time"

	"verwaltung-backend/models"

	"gorm.io/gorm"
)

// WorkerStore is the gorm-backed job/delivery store consumed by the
// delivery worker. The claim is a row-level conditional update; its
// atomicity at the storage layer is what makes worker replication safe.
type WorkerStore struct {
	db *gorm.DB
}

func NewWorkerStore(db *gorm.DB) *WorkerStore {
	return &WorkerStore{db: db}
}

func (s *WorkerStore) DueJobs(now time.Time, limit int) ([]models.OutboxJob, error) {
	var jobs []models.OutboxJob
	err := s.db.Where("status = ? AND available_at <= ?", models.JobPending, now).
		Order("available_at asc").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

func (s *WorkerStore) ClaimJob(id string) (bool, error) {
	res := s.db.Model(&models.OutboxJob{}).
		Where("id = ? AND status = ?", id, models.JobPending).
		Update("status", models.JobProcessing)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *WorkerStore) CompleteJob(id string) error {
	return s.db.Model(&models.OutboxJob{}).Where("id = ?", id).
		Updates(map[string]any{"status": models.JobDone, "last_error": nil}).Error
}

func (s *WorkerStore) RetryJob(id string, retries int, availableAt time.Time, lastError string) error {
	return s.db.Model(&models.OutboxJob{}).Where("id = ?", id).
		Updates(map[string]any{
			"status":       models.JobPending,
			"retries":      retries,
			"available_at": availableAt,
			"last_error":   lastError,
		}).Error
}

func (s *WorkerStore) DeadLetterJob(id string, retries int, lastError string) error {
	return s.db.Model(&models.OutboxJob{}).Where("id = ?", id).
		Updates(map[string]any{
			"status":     models.JobDead,
			"retries":    retries,
			"last_error": lastError,
		}).Error
}

func (s *WorkerStore) Delivery(id string) (*models.WebhookDelivery, *models.WebhookSubscription, error) {
	var delivery models.WebhookDelivery
	if err := s.db.Where("id = ?", id).First(&delivery).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	var subscription models.WebhookSubscription
	if err := s.db.Where("id = ?", delivery.SubscriptionID).First(&subscription).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &delivery, nil, nil
		}
		return nil, nil, err
	}
	return &delivery, &subscription, nil
}

func (s *WorkerStore) MarkDelivered(id string, attempts int, at time.Time, responseStatus int, responseBody string) error {
	return s.db.Model(&models.WebhookDelivery{}).Where("id = ?", id).
		Updates(map[string]any{
			"status":          models.DeliveryDelivered,
			"attempts":        attempts,
			"last_attempt_at": at,
			"next_attempt_at": nil,
			"response_status": responseStatus,
			"response_body":   responseBody,
			"last_error":      nil,
		}).Error
}

func (s *WorkerStore) MarkDeliveryFailed(id string, attempts int, at time.Time,
	responseStatus *int, responseBody *string, lastError string,
	nextAttemptAt *time.Time, dead bool) error {

	status := models.DeliveryFailed
	if dead {
		status = models.DeliveryDead
	}
	updates := map[string]any{
		"status":          status,
		"attempts":        attempts,
		"last_attempt_at": at,
		"next_attempt_at": nextAttemptAt,
		"last_error":      lastError,
	}
	if responseStatus != nil {
		updates["response_status"] = *responseStatus
	}
	if responseBody != nil {
		updates["response_body"] = *responseBody
	}
	return s.db.Model(&models.WebhookDelivery{}).Where("id = ?", id).
		Updates(updates).Error
}

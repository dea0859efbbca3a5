package worker

import (
	"time"

	"verwaltung-backend/models"
)

// Store is the persistence surface the worker polls and updates. ClaimJob
// must be an atomic conditional update (pending → processing): it is the
// sole concurrency-safety mechanism between replicas, and exactly one
// claimer may win.
type Store interface {
	// DueJobs returns pending jobs with available_at <= now, ordered by
	// availability, at most limit rows.
	DueJobs(now time.Time, limit int) ([]models.OutboxJob, error)

	// ClaimJob transitions pending → processing and reports whether this
	// caller won the claim.
	ClaimJob(id string) (bool, error)

	CompleteJob(id string) error
	RetryJob(id string, retries int, availableAt time.Time, lastError string) error
	DeadLetterJob(id string, retries int, lastError string) error

	// Delivery loads a delivery and its subscription. Either may be nil when
	// the row no longer exists.
	Delivery(id string) (*models.WebhookDelivery, *models.WebhookSubscription, error)

	MarkDelivered(id string, attempts int, at time.Time, responseStatus int, responseBody string) error
	MarkDeliveryFailed(id string, attempts int, at time.Time,
		responseStatus *int, responseBody *string, lastError string,
		nextAttemptAt *time.Time, dead bool) error
}

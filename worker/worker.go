// Package worker is the delivery side of the transactional outbox: an
// independent polling process that claims staged jobs and performs signed
// webhook deliveries with bounded retry and dead-lettering. It is safe to
// run replicated; the conditional claim update is the only coordination.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"verwaltung-backend/logs"
	"verwaltung-backend/models"
	"verwaltung-backend/outbox"

	"github.com/sirupsen/logrus"
)

// Config tunes the poll loop. Zero values fall back to defaults.
type Config struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	HTTPTimeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 10 * time.Second
	}
	return c
}

// errDeliveryRetry signals a failed-but-retryable delivery attempt so the
// job wrapper reschedules the job; the next poll retries the delivery.
var errDeliveryRetry = errors.New("delivery failed, retry scheduled")

type Worker struct {
	store  Store
	cfg    Config
	client *http.Client
	log    *logrus.Logger
	now    func() time.Time
}

func New(store Store, cfg Config) *Worker {
	cfg = cfg.withDefaults()
	return &Worker{
		store:  store,
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
		log:    logs.Logger,
		now:    time.Now,
	}
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.log.WithFields(logrus.Fields{
		"pollInterval": w.cfg.PollInterval,
		"batchSize":    w.cfg.BatchSize,
		"maxAttempts":  w.cfg.MaxAttempts,
	}).Info("worker started")

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.runOnce(ctx); err != nil {
			w.log.WithError(err).Error("poll cycle failed")
		}
		select {
		case <-ctx.Done():
			w.log.Info("worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// runOnce performs a single poll cycle: fetch due jobs, claim each, dispatch,
// and apply the job-level retry/dead-letter state machine.
func (w *Worker) runOnce(ctx context.Context) error {
	jobs, err := w.store.DueJobs(w.now().UTC(), w.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, job := range jobs {
		claimed, err := w.store.ClaimJob(job.ID)
		if err != nil {
			return err
		}
		if !claimed {
			// Another replica won the claim.
			continue
		}

		if err := w.handleJob(ctx, job); err != nil {
			if rerr := w.rescheduleJob(job, err); rerr != nil {
				return rerr
			}
			continue
		}
		if err := w.store.CompleteJob(job.ID); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) handleJob(ctx context.Context, job models.OutboxJob) error {
	switch job.Type {
	case models.JobTypeWebhookDeliver:
		var payload outbox.JobPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil || payload.DeliveryID == "" {
			w.log.WithField("job", job.ID).Warn("malformed webhook job payload")
			return nil
		}
		return w.processWebhookDelivery(ctx, payload.DeliveryID)
	default:
		w.log.WithFields(logrus.Fields{"job": job.ID, "type": job.Type}).Warn("unknown job type")
		return nil
	}
}

// rescheduleJob applies backoff to a failed job, dead-lettering it once the
// retry budget is exhausted. Handler failures are recovered here, never
// surfaced to any caller.
func (w *Worker) rescheduleJob(job models.OutboxJob, cause error) error {
	retries := job.Retries + 1
	if retries >= w.cfg.MaxAttempts {
		w.log.WithFields(logrus.Fields{"job": job.ID, "retries": retries}).
			Warn("job dead-lettered")
		return w.store.DeadLetterJob(job.ID, retries, cause.Error())
	}
	availableAt := w.now().UTC().Add(Backoff(retries))
	return w.store.RetryJob(job.ID, retries, availableAt, cause.Error())
}

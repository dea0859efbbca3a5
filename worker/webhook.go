package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"verwaltung-backend/models"
)

// maxResponseBody caps how much of the receiver's response is stored on the
// delivery row.
const maxResponseBody = 10000

const (
	headerEventID   = "X-Event-Id"
	headerEventType = "X-Event-Type"
	headerSignature = "X-Signature"
)

// eventEnvelope is the wire body POSTed to the subscription URL. The
// signature is computed over these exact bytes.
type eventEnvelope struct {
	EventID   string          `json:"eventId"`
	Type      string          `json:"type"`
	CreatedAt time.Time       `json:"createdAt"`
	Data      json.RawMessage `json:"data"`
}

// processWebhookDelivery runs one delivery attempt. A delivery that is
// already terminal, missing, or whose subscription is inactive counts as
// success. A failed attempt updates the delivery state machine and returns
// errDeliveryRetry while attempts remain; once the delivery is dead the job
// completes normally.
func (w *Worker) processWebhookDelivery(ctx context.Context, deliveryID string) error {
	delivery, subscription, err := w.store.Delivery(deliveryID)
	if err != nil {
		return err
	}
	if delivery == nil || subscription == nil {
		return nil
	}
	if delivery.Status == models.DeliveryDelivered || delivery.Status == models.DeliveryDead {
		return nil
	}
	if subscription.Status != models.StatusActive {
		return nil
	}

	body, err := json.Marshal(eventEnvelope{
		EventID:   delivery.EventID,
		Type:      delivery.EventType,
		CreatedAt: delivery.CreatedAt.UTC(),
		Data:      json.RawMessage(delivery.Payload),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, subscription.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "verwaltung-webhook/1.0")
	req.Header.Set(headerEventID, delivery.EventID)
	req.Header.Set(headerEventType, delivery.EventType)
	req.Header.Set(headerSignature, Sign(subscription.Secret, body))

	attempt := delivery.Attempts + 1
	now := w.now().UTC()

	resp, err := w.client.Do(req)
	if err != nil {
		return w.failDelivery(delivery.ID, attempt, now, nil, nil, err.Error())
	}
	defer resp.Body.Close()

	snippet := readSnippet(resp.Body)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return w.store.MarkDelivered(delivery.ID, attempt, now, resp.StatusCode, snippet)
	}

	status := resp.StatusCode
	return w.failDelivery(delivery.ID, attempt, now, &status, &snippet, fmt.Sprintf("HTTP %d", status))
}

func (w *Worker) failDelivery(deliveryID string, attempt int, now time.Time,
	responseStatus *int, responseBody *string, lastError string) error {

	dead := attempt >= w.cfg.MaxAttempts
	var nextAttemptAt *time.Time
	if !dead {
		next := now.Add(Backoff(attempt))
		nextAttemptAt = &next
	}

	if err := w.store.MarkDeliveryFailed(deliveryID, attempt, now,
		responseStatus, responseBody, lastError, nextAttemptAt, dead); err != nil {
		return err
	}
	if dead {
		// Terminal: the dead delivery is an operational signal, not a
		// caller-visible error. The job completes.
		return nil
	}
	return errDeliveryRetry
}

func readSnippet(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, maxResponseBody))
	if err != nil {
		return ""
	}
	return string(b)
}

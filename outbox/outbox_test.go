package outbox

import (
	"encoding/json"
	"testing"

	"verwaltung-backend/models"
)

type memoryStore struct {
	subscriptions []models.WebhookSubscription
	deliveries    []*models.WebhookDelivery
	jobs          []*models.OutboxJob
}

func (s *memoryStore) ActiveSubscriptions(tenantID, eventType string) ([]models.WebhookSubscription, error) {
	var matched []models.WebhookSubscription
	for _, sub := range s.subscriptions {
		if sub.TenantID == tenantID && sub.Status == models.StatusActive && sub.Matches(eventType) {
			matched = append(matched, sub)
		}
	}
	return matched, nil
}

func (s *memoryStore) CreateDelivery(d *models.WebhookDelivery) error {
	if d.ID == "" {
		d.ID = "d" + string(rune('1'+len(s.deliveries)))
	}
	s.deliveries = append(s.deliveries, d)
	return nil
}

func (s *memoryStore) CreateJob(j *models.OutboxJob) error {
	s.jobs = append(s.jobs, j)
	return nil
}

func TestEnqueueFansOutPerSubscription(t *testing.T) {
	store := &memoryStore{subscriptions: []models.WebhookSubscription{
		{ID: "s1", TenantID: "t1", Status: models.StatusActive, Events: []string{EventUserCreated}},
		{ID: "s2", TenantID: "t1", Status: models.StatusActive, Events: []string{models.EventWildcard}},
		{ID: "s3", TenantID: "t1", Status: models.StatusActive, Events: []string{EventTenantCreated}},
		{ID: "s4", TenantID: "t1", Status: models.StatusSuspended, Events: []string{EventUserCreated}},
		{ID: "s5", TenantID: "t2", Status: models.StatusActive, Events: []string{EventUserCreated}},
	}}

	err := Enqueue(store, "t1", EventUserCreated, map[string]string{"userId": "u1"})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	if len(store.deliveries) != 2 || len(store.jobs) != 2 {
		t.Fatalf("got %d deliveries and %d jobs, want 2 and 2",
			len(store.deliveries), len(store.jobs))
	}

	seen := map[string]bool{}
	for i, d := range store.deliveries {
		seen[d.SubscriptionID] = true
		if d.TenantID != "t1" || d.EventType != EventUserCreated || d.Status != models.DeliveryPending {
			t.Errorf("delivery %d = %+v", i, d)
		}
		if d.EventID == "" {
			t.Errorf("delivery %d missing event id", i)
		}

		var payload map[string]string
		if err := json.Unmarshal(d.Payload, &payload); err != nil || payload["userId"] != "u1" {
			t.Errorf("delivery %d payload = %s", i, d.Payload)
		}
	}
	if !seen["s1"] || !seen["s2"] {
		t.Fatalf("expected deliveries for s1 and s2, got %v", seen)
	}

	for i, j := range store.jobs {
		if j.Type != models.JobTypeWebhookDeliver || j.Status != models.JobPending {
			t.Errorf("job %d = %+v", i, j)
		}
		var p JobPayload
		if err := json.Unmarshal(j.Payload, &p); err != nil || p.DeliveryID == "" {
			t.Errorf("job %d payload = %s", i, j.Payload)
		}
	}
}

func TestEnqueueDistinctEventIDs(t *testing.T) {
	store := &memoryStore{subscriptions: []models.WebhookSubscription{
		{ID: "s1", TenantID: "t1", Status: models.StatusActive, Events: []string{models.EventWildcard}},
		{ID: "s2", TenantID: "t1", Status: models.StatusActive, Events: []string{models.EventWildcard}},
	}}

	if err := Enqueue(store, "t1", EventAPIKeyRevoked, nil); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if len(store.deliveries) != 2 {
		t.Fatalf("got %d deliveries, want 2", len(store.deliveries))
	}
	if store.deliveries[0].EventID == store.deliveries[1].EventID {
		t.Fatal("each delivery must carry its own event id")
	}
}

func TestEnqueueNoSubscribersIsNoop(t *testing.T) {
	store := &memoryStore{}
	if err := Enqueue(store, "t1", EventUserUpdated, map[string]string{"userId": "u1"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if len(store.deliveries) != 0 || len(store.jobs) != 0 {
		t.Fatal("no subscribers must stage no rows")
	}
}

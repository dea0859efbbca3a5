package middlewares

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"verwaltung-backend/apperr"
	"verwaltung-backend/models"

	"github.com/gofiber/fiber/v2"
)

type fakeIdempotency struct {
	mu      sync.Mutex
	records map[string]*models.IdempotencyRecord
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{records: map[string]*models.IdempotencyRecord{}}
}

func idempotencyKeyOf(tenantID, key, handler string) string {
	return tenantID + "/" + key + "/" + handler
}

func (f *fakeIdempotency) Find(tenantID, key, handler string) (*models.IdempotencyRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[idempotencyKeyOf(tenantID, key, handler)]
	if !ok {
		return nil, nil
	}
	copied := *r
	return &copied, nil
}

func (f *fakeIdempotency) Create(record *models.IdempotencyRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := idempotencyKeyOf(record.TenantID, record.Key, record.Handler)
	if _, exists := f.records[k]; exists {
		return apperr.Duplicate()
	}
	copied := *record
	f.records[k] = &copied
	return nil
}

// racingStore simulates losing the first-insert race: Find sees nothing until
// Create fails with a duplicate, after which the winner's record is visible.
type racingStore struct {
	winner  *models.IdempotencyRecord
	created bool
}

func (s *racingStore) Find(tenantID, key, handler string) (*models.IdempotencyRecord, error) {
	if !s.created {
		return nil, nil
	}
	return s.winner, nil
}

func (s *racingStore) Create(record *models.IdempotencyRecord) error {
	s.created = true
	return apperr.Duplicate()
}

func newIdempotentApp(store IdempotencyStore, calls *int) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/things",
		func(c *fiber.Ctx) error {
			c.Locals(authLocalKey, userCtx("t1", "u1", ""))
			return c.Next()
		},
		Idempotent("things.create", store),
		func(c *fiber.Ctx) error {
			*calls++
			return c.Status(fiber.StatusCreated).JSON(fiber.Map{"call": *calls})
		})
	return app
}

func postThings(t *testing.T, app *fiber.App, key, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/things", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func TestIdempotentWithoutKeyIsPassthrough(t *testing.T) {
	var calls int
	app := newIdempotentApp(newFakeIdempotency(), &calls)

	postThings(t, app, "", `{"name":"a"}`)
	postThings(t, app, "", `{"name":"a"}`)
	if calls != 2 {
		t.Fatalf("handler ran %d times, want 2", calls)
	}
}

func TestIdempotentReplaysFirstResponse(t *testing.T) {
	var calls int
	app := newIdempotentApp(newFakeIdempotency(), &calls)

	first := postThings(t, app, "key-1", `{"name":"a"}`)
	firstBody := readBody(t, first)

	second := postThings(t, app, "key-1", `{"name":"a"}`)
	secondBody := readBody(t, second)

	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
	if second.StatusCode != first.StatusCode {
		t.Fatalf("replay status = %d, want %d", second.StatusCode, first.StatusCode)
	}
	if secondBody != firstBody {
		t.Fatalf("replay body = %s, want %s", secondBody, firstBody)
	}
}

func TestIdempotentReplayIgnoresKeyOrder(t *testing.T) {
	var calls int
	app := newIdempotentApp(newFakeIdempotency(), &calls)

	postThings(t, app, "key-1", `{"a":1,"b":2}`)
	resp := postThings(t, app, "key-1", `{"b":2,"a":1}`)

	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
}

func TestIdempotentConflictOnDifferentBody(t *testing.T) {
	var calls int
	app := newIdempotentApp(newFakeIdempotency(), &calls)

	postThings(t, app, "key-1", `{"name":"a"}`)
	resp := postThings(t, app, "key-1", `{"name":"b"}`)

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	if code := errorCode(t, resp); code != apperr.CodeConflict {
		t.Fatalf("code = %s, want CONFLICT", code)
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
}

func TestIdempotentKeyTooLong(t *testing.T) {
	var calls int
	app := newIdempotentApp(newFakeIdempotency(), &calls)

	resp := postThings(t, app, strings.Repeat("k", 129), `{"name":"a"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if calls != 0 {
		t.Fatalf("handler ran %d times, want 0", calls)
	}
}

func TestIdempotentRaceLoserReplaysWinner(t *testing.T) {
	body := `{"name":"a"}`
	store := &racingStore{winner: &models.IdempotencyRecord{
		TenantID:       "t1",
		Key:            "key-1",
		Handler:        "things.create",
		RequestHash:    RequestFingerprint(http.MethodPost, "/things", []byte(body)),
		ResponseStatus: fiber.StatusCreated,
		ResponseBody:   []byte(`{"call":"winner"}`),
	}}

	var calls int
	app := newIdempotentApp(store, &calls)

	resp := postThings(t, app, "key-1", body)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if got := readBody(t, resp); got != `{"call":"winner"}` {
		t.Fatalf("body = %s, want the winner's stored response", got)
	}
}

func TestIdempotentRaceLoserConflictsOnMismatch(t *testing.T) {
	store := &racingStore{winner: &models.IdempotencyRecord{
		TenantID:       "t1",
		Key:            "key-1",
		Handler:        "things.create",
		RequestHash:    "different-fingerprint",
		ResponseStatus: fiber.StatusCreated,
		ResponseBody:   []byte(`{}`),
	}}

	var calls int
	app := newIdempotentApp(store, &calls)

	resp := postThings(t, app, "key-1", `{"name":"a"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
}

func TestRequestFingerprintStable(t *testing.T) {
	a := RequestFingerprint("POST", "/things", []byte(`{"a":1,"b":[1,2]}`))
	b := RequestFingerprint("POST", "/things", []byte(`{"b":[1,2],"a":1}`))
	if a != b {
		t.Fatal("key order must not change the fingerprint")
	}

	distinct := []string{
		RequestFingerprint("POST", "/things", []byte(`{"a":2}`)),
		RequestFingerprint("PUT", "/things", []byte(`{"a":1}`)),
		RequestFingerprint("POST", "/other", []byte(`{"a":1}`)),
	}
	for i, d := range distinct {
		if d == a {
			t.Fatalf("variant %d collided with the base fingerprint", i)
		}
	}

	if RequestFingerprint("POST", "/things", []byte("not json")) == "" {
		t.Fatal("raw bodies must still fingerprint")
	}
}

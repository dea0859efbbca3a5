package middlewares

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"verwaltung-backend/apperr"
	"verwaltung-backend/models"
	"verwaltung-backend/utils"

	"github.com/gofiber/fiber/v2"
)

const idempotencyKeyHeader = "Idempotency-Key"

// IdempotencyStore persists first-response records. Find returns nil when no
// record exists; Create must surface a unique-constraint violation as a
// DUPLICATE_RESOURCE error so the race loser can be resolved
// deterministically.
type IdempotencyStore interface {
	Find(tenantID, key, handler string) (*models.IdempotencyRecord, error)
	Create(record *models.IdempotencyRecord) error
}

// RequestFingerprint hashes the canonical serialization of a request so that
// semantically equal retries map to the same digest regardless of JSON key
// order.
func RequestFingerprint(method, path string, body []byte) string {
	var decoded any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &decoded); err != nil {
			decoded = string(body)
		}
	}
	canonical := utils.CanonicalJSON(map[string]any{
		"method": method,
		"path":   path,
		"body":   decoded,
	})
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// Idempotent makes a mutating route replay-safe under client retries. The
// pipeline is a no-op unless the caller supplies an Idempotency-Key header.
//
// A stored record with a matching fingerprint is replayed verbatim without
// re-executing the handler; the same key with a different fingerprint is a
// CONFLICT. If two concurrent requests race on a fresh key, the loser of the
// insert re-reads the winner's record and replays it (or conflicts on a
// fingerprint mismatch).
func Idempotent(handler string, store IdempotencyStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := strings.TrimSpace(c.Get(idempotencyKeyHeader))
		if key == "" {
			return c.Next()
		}
		if len(key) > 128 {
			return apperr.Validation("Idempotency-Key too long")
		}

		auth := AuthFromCtx(c)
		if auth == nil {
			return apperr.Unauthorized()
		}

		fingerprint := RequestFingerprint(c.Method(), c.Path(), c.Body())

		existing, err := store.Find(auth.TenantID, key, handler)
		if err != nil {
			return err
		}
		if existing != nil {
			return replayOrConflict(c, existing, fingerprint)
		}

		if err := c.Next(); err != nil {
			return err
		}

		record := &models.IdempotencyRecord{
			TenantID:       auth.TenantID,
			Key:            key,
			Handler:        handler,
			RequestHash:    fingerprint,
			ResponseStatus: c.Response().StatusCode(),
			ResponseBody:   append([]byte(nil), c.Response().Body()...),
		}
		if err := store.Create(record); err != nil {
			if apperr.IsDuplicate(err) {
				// A concurrent request with the same key won the insert.
				winner, findErr := store.Find(auth.TenantID, key, handler)
				if findErr != nil {
					return findErr
				}
				if winner != nil {
					return replayOrConflict(c, winner, fingerprint)
				}
			}
			return err
		}
		return nil
	}
}

func replayOrConflict(c *fiber.Ctx, record *models.IdempotencyRecord, fingerprint string) error {
	if record.RequestHash != fingerprint {
		return apperr.Conflict("Idempotency key reused with a different request")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	c.Status(record.ResponseStatus)
	return c.Send(record.ResponseBody)
}

package controllers

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"verwaltung-backend/apperr"
	"verwaltung-backend/database"
	"verwaltung-backend/middlewares"
	"verwaltung-backend/models"
	"verwaltung-backend/outbox"
	"verwaltung-backend/utils"

	"github.com/gofiber/fiber/v2"
)

const apiKeyPrefix = "vw_sk_"

func generateAPIKeyValue() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return apiKeyPrefix + base64.RawURLEncoding.EncodeToString(raw), nil
}

type createAPIKeyRequest struct {
	Name           string     `json:"name" validate:"required,min=2,max=255"`
	Profile        *string    `json:"profile,omitempty" validate:"omitempty,oneof=read-only write admin"`
	ToolActionKeys []string   `json:"tool_action_keys,omitempty" validate:"omitempty,dive,min=1"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// CreateAPIKey mints a new opaque service key. The plaintext value is
// returned exactly once; only its digest is stored.
func CreateAPIKey(c *fiber.Ctx) error {
	var req createAPIKeyRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	if req.Profile == nil && len(req.ToolActionKeys) == 0 {
		return apperr.Validation("tool_action_keys or profile is required")
	}

	auth := middlewares.AuthFromCtx(c)
	tx := middlewares.TxFromCtx(c)

	var actions []models.ToolAction
	if len(req.ToolActionKeys) > 0 {
		if err := tx.Where("key IN ?", req.ToolActionKeys).Find(&actions).Error; err != nil {
			return err
		}
		if len(actions) != len(req.ToolActionKeys) {
			known := make(map[string]bool, len(actions))
			for _, a := range actions {
				known[a.Key] = true
			}
			var missing []string
			for _, k := range req.ToolActionKeys {
				if !known[k] {
					missing = append(missing, k)
				}
			}
			return apperr.Validation(fmt.Sprintf("Unknown tool action keys: %s", strings.Join(missing, ", ")))
		}
	}

	value, err := generateAPIKeyValue()
	if err != nil {
		return err
	}

	key := models.APIKey{
		TenantID:  auth.TenantID,
		Name:      req.Name,
		Hash:      middlewares.HashAPIKey(value),
		Status:    models.StatusActive,
		Profile:   req.Profile,
		ExpiresAt: req.ExpiresAt,
	}
	if err := tx.Create(&key).Error; err != nil {
		return err
	}
	for _, action := range actions {
		if err := tx.Create(&models.APIKeyToolAction{
			TenantID:     auth.TenantID,
			APIKeyID:     key.ID,
			ToolActionID: action.ID,
		}).Error; err != nil {
			return err
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":    key.ID,
		"value": value,
	})
}

func ListAPIKeys(c *fiber.Ctx) error {
	auth := middlewares.AuthFromCtx(c)
	db := middlewares.TxFromCtx(c)
	limit := utils.ParseLimit(c.Query("limit"))

	q := db.Model(&models.APIKey{}).Where("tenant_id = ?", auth.TenantID)
	if cur, ok := utils.DecodeCursor(c.Query("cursor")); ok {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cur.CreatedAt, cur.CreatedAt, cur.ID)
	}

	var keys []models.APIKey
	if err := q.Order("created_at desc, id desc").Limit(limit + 1).Find(&keys).Error; err != nil {
		return err
	}
	return c.JSON(pagedResponse(keys, limit, func(k models.APIKey) utils.Cursor {
		return utils.Cursor{CreatedAt: k.CreatedAt, ID: k.ID}
	}))
}

type updateAPIKeyStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active suspended"`
}

// UpdateAPIKeyStatus activates or revokes a key. Keys are never hard
// deleted; suspension notifies subscribers.
func UpdateAPIKeyStatus(c *fiber.Ctx) error {
	var req updateAPIKeyStatusRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	auth := middlewares.AuthFromCtx(c)
	tx := middlewares.TxFromCtx(c)
	keyID := c.Params("id")

	res := tx.Model(&models.APIKey{}).
		Where("id = ? AND tenant_id = ?", keyID, auth.TenantID).
		Update("status", req.Status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("API key not found")
	}

	if req.Status == models.StatusSuspended {
		if err := outbox.Enqueue(database.NewOutboxStore(tx), auth.TenantID, outbox.EventAPIKeyRevoked, fiber.Map{
			"apiKeyId": keyID,
		}); err != nil {
			return err
		}
	}
	return c.JSON(fiber.Map{"status": req.Status})
}

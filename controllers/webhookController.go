package controllers

import (
	"verwaltung-backend/apperr"
	"verwaltung-backend/middlewares"
	"verwaltung-backend/models"
	"verwaltung-backend/utils"

	"github.com/gofiber/fiber/v2"
)

type createSubscriptionRequest struct {
	URL    string   `json:"url" validate:"required,url,max=1024"`
	Secret string   `json:"secret" validate:"required,min=16,max=255"`
	Events []string `json:"events" validate:"required,min=1,dive,min=1"`
}

// CreateSubscription registers a webhook endpoint. Events may include the
// wildcard "*" to receive everything.
func CreateSubscription(c *fiber.Ctx) error {
	var req createSubscriptionRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	auth := middlewares.AuthFromCtx(c)
	tx := middlewares.TxFromCtx(c)

	sub := models.WebhookSubscription{
		TenantID: auth.TenantID,
		URL:      req.URL,
		Secret:   req.Secret,
		Status:   models.StatusActive,
		Events:   req.Events,
	}
	if err := tx.Create(&sub).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": sub.ID})
}

func ListSubscriptions(c *fiber.Ctx) error {
	auth := middlewares.AuthFromCtx(c)
	db := middlewares.TxFromCtx(c)
	limit := utils.ParseLimit(c.Query("limit"))

	q := db.Model(&models.WebhookSubscription{}).Where("tenant_id = ?", auth.TenantID)
	if cur, ok := utils.DecodeCursor(c.Query("cursor")); ok {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cur.CreatedAt, cur.CreatedAt, cur.ID)
	}

	var subs []models.WebhookSubscription
	if err := q.Order("created_at desc, id desc").Limit(limit + 1).Find(&subs).Error; err != nil {
		return err
	}
	return c.JSON(pagedResponse(subs, limit, func(s models.WebhookSubscription) utils.Cursor {
		return utils.Cursor{CreatedAt: s.CreatedAt, ID: s.ID}
	}))
}

func UpdateSubscriptionStatus(c *fiber.Ctx) error {
	var req updateAPIKeyStatusRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	auth := middlewares.AuthFromCtx(c)
	tx := middlewares.TxFromCtx(c)

	res := tx.Model(&models.WebhookSubscription{}).
		Where("id = ? AND tenant_id = ?", c.Params("id"), auth.TenantID).
		Update("status", req.Status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Subscription not found")
	}
	return c.JSON(fiber.Map{"status": req.Status})
}

// ListDeliveries exposes per-tenant delivery history, filterable by status.
func ListDeliveries(c *fiber.Ctx) error {
	auth := middlewares.AuthFromCtx(c)
	db := middlewares.TxFromCtx(c)
	limit := utils.ParseLimit(c.Query("limit"))

	q := db.Model(&models.WebhookDelivery{}).Where("tenant_id = ?", auth.TenantID)
	switch c.Query("status") {
	case models.DeliveryPending, models.DeliveryDelivered, models.DeliveryFailed, models.DeliveryDead:
		q = q.Where("status = ?", c.Query("status"))
	}
	if subID := c.Query("subscription_id"); subID != "" {
		q = q.Where("subscription_id = ?", subID)
	}
	if cur, ok := utils.DecodeCursor(c.Query("cursor")); ok {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cur.CreatedAt, cur.CreatedAt, cur.ID)
	}

	var deliveries []models.WebhookDelivery
	if err := q.Order("created_at desc, id desc").Limit(limit + 1).Find(&deliveries).Error; err != nil {
		return err
	}
	return c.JSON(pagedResponse(deliveries, limit, func(d models.WebhookDelivery) utils.Cursor {
		return utils.Cursor{CreatedAt: d.CreatedAt, ID: d.ID}
	}))
}

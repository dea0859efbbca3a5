package controllers

import (
	"verwaltung-backend/apperr"
	"verwaltung-backend/database"
	"verwaltung-backend/middlewares"
	"verwaltung-backend/models"
	"verwaltung-backend/outbox"
	"verwaltung-backend/utils"

	"github.com/gofiber/fiber/v2"
)

// defaultAdminGroup is created with every tenant and carries the baseline
// capabilities a fresh tenant admin needs. Keys missing from the catalog are
// skipped silently so tenant creation does not depend on catalog seeding
// order.
const defaultAdminGroup = "TENANT_ADMIN"

var adminBaselineKeys = []string{
	"me.read",
	"rbac.users.create",
	"rbac.users.read",
	"rbac.users.status.update",
	"rbac.groups.create",
	"rbac.groups.read",
	"rbac.groups.users.add",
	"rbac.groups.users.remove",
	"rbac.groups.permissions.set",
	"rbac.api_keys.create",
	"rbac.api_keys.read",
	"rbac.api_keys.status.update",
	"webhooks.subscriptions.create",
	"webhooks.subscriptions.read",
	"webhooks.subscriptions.status.update",
	"webhooks.deliveries.read",
}

type createTenantRequest struct {
	Name          string `json:"name" validate:"required,min=2,max=255"`
	AdminEmail    string `json:"admin_email" validate:"required,email"`
	AdminName     string `json:"admin_name" validate:"required,min=2,max=255"`
	AdminPassword string `json:"admin_password" validate:"required,min=8"`
}

// CreateTenant provisions a tenant with its first admin user and the
// default admin group, all in the request transaction.
func CreateTenant(c *fiber.Ctx) error {
	var req createTenantRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	tx := middlewares.TxFromCtx(c)

	tenant := models.Tenant{Name: req.Name, Status: models.StatusActive}
	if err := tx.Create(&tenant).Error; err != nil {
		return err
	}

	admin := models.User{
		TenantID: tenant.ID,
		Email:    req.AdminEmail,
		Name:     req.AdminName,
		Status:   models.StatusActive,
	}
	if err := admin.SetPassword(req.AdminPassword); err != nil {
		return err
	}
	if err := tx.Create(&admin).Error; err != nil {
		return err
	}

	group := models.Group{
		TenantID: tenant.ID,
		Name:     defaultAdminGroup,
		Status:   models.StatusActive,
	}
	if err := tx.Create(&group).Error; err != nil {
		return err
	}
	if err := tx.Create(&models.UserGroup{
		TenantID: tenant.ID,
		UserID:   admin.ID,
		GroupID:  group.ID,
	}).Error; err != nil {
		return err
	}

	var actions []models.ToolAction
	if err := tx.Where("key IN ?", adminBaselineKeys).Find(&actions).Error; err != nil {
		return err
	}
	for _, action := range actions {
		if err := tx.Create(&models.GroupPermission{
			TenantID:     tenant.ID,
			GroupID:      group.ID,
			ToolActionID: action.ID,
		}).Error; err != nil {
			return err
		}
	}

	store := database.NewOutboxStore(tx)
	if err := outbox.Enqueue(store, tenant.ID, outbox.EventTenantCreated, fiber.Map{
		"tenantId": tenant.ID,
		"name":     tenant.Name,
	}); err != nil {
		return err
	}
	if err := outbox.Enqueue(store, tenant.ID, outbox.EventUserCreated, fiber.Map{
		"userId": admin.ID,
		"email":  admin.Email,
	}); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":            tenant.ID,
		"admin_user_id": admin.ID,
	})
}

// ListTenants pages over all tenants, newest first.
func ListTenants(c *fiber.Ctx) error {
	db := middlewares.TxFromCtx(c)
	limit := utils.ParseLimit(c.Query("limit"))

	q := db.Model(&models.Tenant{})
	if cur, ok := utils.DecodeCursor(c.Query("cursor")); ok {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cur.CreatedAt, cur.CreatedAt, cur.ID)
	}

	var tenants []models.Tenant
	if err := q.Order("created_at desc, id desc").Limit(limit + 1).Find(&tenants).Error; err != nil {
		return err
	}
	return c.JSON(pagedResponse(tenants, limit, func(t models.Tenant) utils.Cursor {
		return utils.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
	}))
}

type updateStatusRequest struct {
	Status          string  `json:"status" validate:"required,oneof=active suspended"`
	SuspendedReason *string `json:"suspended_reason,omitempty" validate:"omitempty,max=255"`
}

func UpdateTenantStatus(c *fiber.Ctx) error {
	var req updateStatusRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	tx := middlewares.TxFromCtx(c)
	res := tx.Model(&models.Tenant{}).Where("id = ?", c.Params("id")).
		Updates(map[string]any{
			"status":           req.Status,
			"suspended_reason": req.SuspendedReason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Tenant not found")
	}
	return c.JSON(fiber.Map{"status": req.Status})
}

// pagedResponse builds the shared list envelope with keyset cursors.
func pagedResponse[T any](rows []T, limit int, cursorOf func(T) utils.Cursor) fiber.Map {
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	meta := fiber.Map{"hasMore": hasMore}
	if hasMore && len(rows) > 0 {
		meta["nextCursor"] = utils.EncodeCursor(cursorOf(rows[len(rows)-1]))
	}
	return fiber.Map{"items": rows, "meta": meta}
}

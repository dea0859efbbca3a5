package controllers

import (
	"errors"
	"fmt"
	"strings"

	"verwaltung-backend/apperr"
	"verwaltung-backend/database"
	"verwaltung-backend/middlewares"
	"verwaltung-backend/models"
	"verwaltung-backend/outbox"
	"verwaltung-backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type createGroupRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=512"`
}

func CreateGroup(c *fiber.Ctx) error {
	var req createGroupRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	auth := middlewares.AuthFromCtx(c)
	tx := middlewares.TxFromCtx(c)

	group := models.Group{
		TenantID:    auth.TenantID,
		Name:        req.Name,
		Description: req.Description,
		Status:      models.StatusActive,
	}
	if err := tx.Create(&group).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": group.ID})
}

func ListGroups(c *fiber.Ctx) error {
	auth := middlewares.AuthFromCtx(c)
	db := middlewares.TxFromCtx(c)
	limit := utils.ParseLimit(c.Query("limit"))

	q := db.Model(&models.Group{}).Where("tenant_id = ?", auth.TenantID)
	if name := strings.TrimSpace(c.Query("q")); name != "" {
		q = q.Where("name LIKE ?", "%"+name+"%")
	}
	if cur, ok := utils.DecodeCursor(c.Query("cursor")); ok {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cur.CreatedAt, cur.CreatedAt, cur.ID)
	}

	var groups []models.Group
	if err := q.Order("created_at desc, id desc").Limit(limit + 1).Find(&groups).Error; err != nil {
		return err
	}
	return c.JSON(pagedResponse(groups, limit, func(g models.Group) utils.Cursor {
		return utils.Cursor{CreatedAt: g.CreatedAt, ID: g.ID}
	}))
}

type groupMemberRequest struct {
	UserID string `json:"user_id" validate:"required,uuid4"`
}

func AddGroupMember(c *fiber.Ctx) error {
	var req groupMemberRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	auth := middlewares.AuthFromCtx(c)
	tx := middlewares.TxFromCtx(c)
	groupID := c.Params("id")

	if err := findTenantRow(tx, &models.Group{}, auth.TenantID, groupID, "Group not found"); err != nil {
		return err
	}
	if err := findTenantRow(tx, &models.User{}, auth.TenantID, req.UserID, "User not found"); err != nil {
		return err
	}

	membership := models.UserGroup{
		TenantID: auth.TenantID,
		UserID:   req.UserID,
		GroupID:  groupID,
	}
	if err := tx.Create(&membership).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": membership.ID})
}

func RemoveGroupMember(c *fiber.Ctx) error {
	auth := middlewares.AuthFromCtx(c)
	tx := middlewares.TxFromCtx(c)

	res := tx.Where("tenant_id = ? AND group_id = ? AND user_id = ?",
		auth.TenantID, c.Params("id"), c.Params("userId")).
		Delete(&models.UserGroup{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Membership not found")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type setGroupPermissionsRequest struct {
	ToolActionKeys []string `json:"tool_action_keys" validate:"required,min=1,dive,min=1"`
}

// SetGroupPermissions replaces the group's permission set with the given
// capability keys.
func SetGroupPermissions(c *fiber.Ctx) error {
	var req setGroupPermissionsRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	auth := middlewares.AuthFromCtx(c)
	tx := middlewares.TxFromCtx(c)
	groupID := c.Params("id")

	if err := findTenantRow(tx, &models.Group{}, auth.TenantID, groupID, "Group not found"); err != nil {
		return err
	}

	var actions []models.ToolAction
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

	if err := tx.Where("tenant_id = ? AND group_id = ?", auth.TenantID, groupID).
		Delete(&models.GroupPermission{}).Error; err != nil {
		return err
	}
	for _, action := range actions {
		if err := tx.Create(&models.GroupPermission{
			TenantID:     auth.TenantID,
			GroupID:      groupID,
			ToolActionID: action.ID,
		}).Error; err != nil {
			return err
		}
	}

	if err := outbox.Enqueue(database.NewOutboxStore(tx), auth.TenantID, outbox.EventGroupPermissionChanged, fiber.Map{
		"groupId":        groupID,
		"toolActionKeys": req.ToolActionKeys,
	}); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"count": len(actions)})
}

// findTenantRow checks that a tenant-scoped row exists, translating absence
// into the given NOT_FOUND message.
func findTenantRow(db *gorm.DB, model any, tenantID, id, notFound string) error {
	err := db.Where("id = ? AND tenant_id = ?", id, tenantID).First(model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound(notFound)
		}
		return err
	}
	return nil
}

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

type createUserRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Name     string  `json:"name" validate:"required,min=2,max=255"`
	Password string  `json:"password" validate:"required,min=8"`
	Role     *string `json:"role,omitempty" validate:"omitempty,max=64"`
}

func CreateUser(c *fiber.Ctx) error {
	var req createUserRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	auth := middlewares.AuthFromCtx(c)
	tx := middlewares.TxFromCtx(c)

	user := models.User{
		TenantID: auth.TenantID,
		Email:    req.Email,
		Name:     req.Name,
		Role:     req.Role,
		Status:   models.StatusActive,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return err
	}
	if err := tx.Create(&user).Error; err != nil {
		return err
	}

	if err := outbox.Enqueue(database.NewOutboxStore(tx), auth.TenantID, outbox.EventUserCreated, fiber.Map{
		"userId": user.ID,
		"email":  user.Email,
	}); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": user.ID})
}

func ListUsers(c *fiber.Ctx) error {
	auth := middlewares.AuthFromCtx(c)
	db := middlewares.TxFromCtx(c)
	limit := utils.ParseLimit(c.Query("limit"))

	q := db.Model(&models.User{}).Where("tenant_id = ?", auth.TenantID)
	if status := c.Query("status"); status == models.StatusActive || status == models.StatusSuspended {
		q = q.Where("status = ?", status)
	}
	if cur, ok := utils.DecodeCursor(c.Query("cursor")); ok {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cur.CreatedAt, cur.CreatedAt, cur.ID)
	}

	var users []models.User
	if err := q.Order("created_at desc, id desc").Limit(limit + 1).Find(&users).Error; err != nil {
		return err
	}
	return c.JSON(pagedResponse(users, limit, func(u models.User) utils.Cursor {
		return utils.Cursor{CreatedAt: u.CreatedAt, ID: u.ID}
	}))
}

func UpdateUserStatus(c *fiber.Ctx) error {
	var req updateStatusRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	auth := middlewares.AuthFromCtx(c)
	tx := middlewares.TxFromCtx(c)
	userID := c.Params("id")

	res := tx.Model(&models.User{}).
		Where("id = ? AND tenant_id = ?", userID, auth.TenantID).
		Updates(map[string]any{
			"status":           req.Status,
			"suspended_reason": req.SuspendedReason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("User not found")
	}

	if err := outbox.Enqueue(database.NewOutboxStore(tx), auth.TenantID, outbox.EventUserUpdated, fiber.Map{
		"userId": userID,
		"status": req.Status,
	}); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": req.Status})
}

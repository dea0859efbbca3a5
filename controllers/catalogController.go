package controllers

import (
	"errors"

	"verwaltung-backend/apperr"
	"verwaltung-backend/middlewares"
	"verwaltung-backend/models"
	"verwaltung-backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type createToolRequest struct {
	Key         string  `json:"key" validate:"required,min=2,max=128"`
	Name        string  `json:"name" validate:"required,min=2,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=512"`
}

func CreateTool(c *fiber.Ctx) error {
	var req createToolRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	tx := middlewares.TxFromCtx(c)
	tool := models.Tool{
		Key:         req.Key,
		Name:        req.Name,
		Description: req.Description,
		Status:      models.StatusActive,
	}
	if err := tx.Create(&tool).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": tool.ID})
}

func ListTools(c *fiber.Ctx) error {
	db := middlewares.TxFromCtx(c)
	limit := utils.ParseLimit(c.Query("limit"))

	q := db.Model(&models.Tool{})
	if cur, ok := utils.DecodeCursor(c.Query("cursor")); ok {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cur.CreatedAt, cur.CreatedAt, cur.ID)
	}

	var tools []models.Tool
	if err := q.Order("created_at desc, id desc").Limit(limit + 1).Find(&tools).Error; err != nil {
		return err
	}
	return c.JSON(pagedResponse(tools, limit, func(t models.Tool) utils.Cursor {
		return utils.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
	}))
}

type createToolActionRequest struct {
	Key         string  `json:"key" validate:"required,min=2,max=128"`
	Name        string  `json:"name" validate:"required,min=2,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=512"`
}

// CreateToolAction registers a capability key under a tool.
func CreateToolAction(c *fiber.Ctx) error {
	var req createToolActionRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	tx := middlewares.TxFromCtx(c)

	var tool models.Tool
	if err := tx.Where("key = ?", c.Params("toolKey")).First(&tool).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("Tool not found")
		}
		return err
	}

	action := models.ToolAction{
		ToolID:      tool.ID,
		Key:         req.Key,
		Name:        req.Name,
		Description: req.Description,
		Status:      models.StatusActive,
	}
	if err := tx.Create(&action).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": action.ID})
}

func ListToolActions(c *fiber.Ctx) error {
	db := middlewares.TxFromCtx(c)

	var tool models.Tool
	if err := db.Where("key = ?", c.Params("toolKey")).First(&tool).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("Tool not found")
		}
		return err
	}

	var actions []models.ToolAction
	if err := db.Where("tool_id = ?", tool.ID).Order("key asc").Find(&actions).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": actions})
}

package controllers

import (
	"errors"
	"time"

	"verwaltung-backend/apperr"
	"verwaltung-backend/database"
	"verwaltung-backend/middlewares"
	"verwaltung-backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const userTokenTTL = 24 * time.Hour

type loginRequest struct {
	TenantID string `json:"tenant_id" validate:"required,uuid4"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates a user by email/password within a tenant and issues a
// signed user token carrying tenant and role claims.
func Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	var user models.User
	err := database.DB.
		Where("tenant_id = ? AND email = ?", req.TenantID, req.Email).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Unauthorized()
		}
		return err
	}
	if err := user.ComparePassword(req.Password); err != nil {
		return apperr.Unauthorized()
	}
	if user.Status != models.StatusActive {
		return apperr.Forbidden()
	}

	role := ""
	if user.Role != nil {
		role = *user.Role
	}
	token, err := middlewares.GenerateUserToken(user.ID, user.TenantID, role, userTokenTTL)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
		},
	})
}

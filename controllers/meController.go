package controllers

import (
	"verwaltung-backend/middlewares"

	"github.com/gofiber/fiber/v2"
)

// Me returns the authenticated actor as the pipeline resolved it.
func Me(c *fiber.Ctx) error {
	auth := middlewares.AuthFromCtx(c)

	switch actor := auth.Actor.(type) {
	case middlewares.UserActor:
		return c.JSON(fiber.Map{
			"kind":      "user",
			"tenant_id": auth.TenantID,
			"user_id":   actor.UserID,
			"role":      actor.Role,
		})
	case middlewares.ServiceActor:
		return c.JSON(fiber.Map{
			"kind":       "service",
			"tenant_id":  auth.TenantID,
			"api_key_id": actor.APIKeyID,
			"profile":    actor.Profile,
		})
	}
	return c.JSON(fiber.Map{"tenant_id": auth.TenantID})
}

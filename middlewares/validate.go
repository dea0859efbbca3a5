package middlewares

import (
	"verwaltung-backend/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// BindAndValidate parses the request body into dst and validates it.
// Parse failures map to VALIDATION_ERROR; validation failures surface as
// validator.ValidationErrors for the error handler to render per-field.
func BindAndValidate(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.Validation("invalid request body")
	}
	return validate.Struct(dst)
}

package middlewares

import (
	"errors"

	"verwaltung-backend/apperr"
	"verwaltung-backend/logs"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"gorm.io/gorm"
)

type errorBody struct {
	Code      apperr.Code    `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"requestId"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// ErrorHandler renders every failure as the standard error envelope and
// keeps storage-engine and internal error text out of responses.
func ErrorHandler(c *fiber.Ctx, err error) error {
	reqID, _ := c.Locals(requestid.ConfigDefault.ContextKey).(string)

	respond := func(status int, code apperr.Code, message string, details map[string]any) error {
		return c.Status(status).JSON(errorEnvelope{Error: errorBody{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: reqID,
		}})
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return respond(appErr.Status, appErr.Code, appErr.Message, appErr.Details)
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make(map[string]any, len(validationErrs))
		for _, fe := range validationErrs {
			details[fe.Field()] = fe.Tag()
		}
		return respond(fiber.StatusBadRequest, apperr.CodeValidation, "Validation failed", details)
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return respond(fiber.StatusConflict, apperr.CodeDuplicate, "Duplicate resource", nil)
	}
	if errors.Is(err, gorm.ErrInvalidTransaction) || errors.Is(err, gorm.ErrInvalidDB) {
		logs.Logger.WithError(err).WithField("requestId", reqID).Error("database error")
		return respond(fiber.StatusInternalServerError, apperr.CodeDatabase, "Database error", nil)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		switch fiberErr.Code {
		case fiber.StatusBadRequest:
			return respond(fiberErr.Code, apperr.CodeValidation, fiberErr.Message, nil)
		case fiber.StatusNotFound:
			return respond(fiberErr.Code, apperr.CodeNotFound, fiberErr.Message, nil)
		case fiber.StatusTooManyRequests:
			return respond(fiberErr.Code, apperr.CodeRateLimited, fiberErr.Message, nil)
		case fiber.StatusServiceUnavailable:
			return respond(fiberErr.Code, apperr.CodeServiceUnavailable, fiberErr.Message, nil)
		}
	}

	// Everything else is reported generically and logged with full context.
	logs.Logger.WithError(err).WithField("requestId", reqID).Error("internal error")
	return respond(fiber.StatusInternalServerError, apperr.CodeInternal, "Internal error", nil)
}

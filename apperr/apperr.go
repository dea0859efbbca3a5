package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Code identifies a failure class exposed to API callers.
type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeTenantMismatch     Code = "TENANT_MISMATCH"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeInvalidToken       Code = "INVALID_TOKEN"
	CodeTokenExpired       Code = "TOKEN_EXPIRED"
	CodeTenantNotFound     Code = "TENANT_NOT_FOUND"
	CodeTenantSuspended    Code = "TENANT_SUSPENDED"
	CodeForbidden          Code = "FORBIDDEN_ACTION"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodeDuplicate          Code = "DUPLICATE_RESOURCE"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeInternal           Code = "INTERNAL_ERROR"
	CodeDatabase           Code = "DATABASE_ERROR"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
)

// Error is a typed application error carrying the HTTP status to respond with.
// The global error handler renders it as the standard error envelope.
type Error struct {
	Code    Code
	Status  int
	Message string
	Details map[string]any
}

func (e *Error) Error() string { return string(e.Code) + ": " + e.Message }

// New builds an Error with an explicit status code.
func New(code Code, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// WithDetails attaches structured details (e.g. per-field validation info).
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

func Unauthorized() *Error {
	return New(CodeUnauthorized, fiber.StatusUnauthorized, "Unauthorized")
}

func InvalidToken() *Error {
	return New(CodeInvalidToken, fiber.StatusUnauthorized, "Invalid token")
}

func TokenExpired() *Error {
	return New(CodeTokenExpired, fiber.StatusUnauthorized, "Token expired")
}

// TenantNotFound responds 401 on purpose: a 404 would leak tenant existence
// to unauthenticated parties.
func TenantNotFound() *Error {
	return New(CodeTenantNotFound, fiber.StatusUnauthorized, "Tenant not found")
}

func TenantSuspended() *Error {
	return New(CodeTenantSuspended, fiber.StatusForbidden, "Tenant suspended")
}

func TenantMismatch() *Error {
	return New(CodeTenantMismatch, fiber.StatusBadRequest, "Tenant mismatch")
}

func Forbidden() *Error {
	return New(CodeForbidden, fiber.StatusForbidden, "Forbidden")
}

func NotFound(message string) *Error {
	return New(CodeNotFound, fiber.StatusNotFound, message)
}

func Conflict(message string) *Error {
	return New(CodeConflict, fiber.StatusConflict, message)
}

func Validation(message string) *Error {
	return New(CodeValidation, fiber.StatusBadRequest, message)
}

func Duplicate() *Error {
	return New(CodeDuplicate, fiber.StatusConflict, "Duplicate resource")
}

// IsDuplicate reports whether err is a DUPLICATE_RESOURCE application error.
func IsDuplicate(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeDuplicate
}

func Database() *Error {
	return New(CodeDatabase, fiber.StatusInternalServerError, "Database error")
}

func Internal() *Error {
	return New(CodeInternal, fiber.StatusInternalServerError, "Internal error")
}

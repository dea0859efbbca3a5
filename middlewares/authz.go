package middlewares

import (
	"verwaltung-backend/apperr"

	"github.com/gofiber/fiber/v2"
)

// Requirement declares what a protected operation demands: nothing (public),
// an exact user role, or a single capability key. Routes that declare none of
// these are denied — absence of an explicit grant never implies access.
type Requirement struct {
	public     bool
	role       string
	capability string
}

// Public marks an operation as requiring no authentication.
func Public() Requirement { return Requirement{public: true} }

// RequireRole demands a user actor whose token role matches exactly.
func RequireRole(role string) Requirement { return Requirement{role: role} }

// RequireCapability demands the given dot-segmented capability key.
func RequireCapability(key string) Requirement { return Requirement{capability: key} }

// PermissionSource answers whether a user holds a capability through any of
// their group memberships within the tenant.
type PermissionSource interface {
	UserHasCapability(tenantID, userID, capabilityKey string) (bool, error)
}

// Authorize evaluates a Requirement against the authenticated context.
func Authorize(req Requirement, perms PermissionSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if req.public {
			return c.Next()
		}

		auth := AuthFromCtx(c)
		if auth == nil {
			return apperr.Unauthorized()
		}

		if req.role != "" {
			user, ok := auth.Actor.(UserActor)
			if !ok || user.Role != req.role {
				return apperr.Forbidden()
			}
			return c.Next()
		}

		if req.capability == "" {
			// Fail closed: no declared requirement means no access.
			return apperr.Forbidden()
		}

		switch actor := auth.Actor.(type) {
		case ServiceActor:
			if !actor.Allows(req.capability) {
				return apperr.Forbidden()
			}
		case UserActor:
			ok, err := perms.UserHasCapability(auth.TenantID, actor.UserID, req.capability)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.Forbidden()
			}
		default:
			return apperr.Forbidden()
		}
		return c.Next()
	}
}

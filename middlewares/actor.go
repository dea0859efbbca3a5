package middlewares

import (
	"strings"

	"verwaltung-backend/models"

	"github.com/gofiber/fiber/v2"
)

// Actor is the authenticated identity behind a request: a human user or an
// automated service credential. It is a sealed sum type so that every
// authorization branch matches exhaustively — a new actor kind is a
// compile-time-visible gap, not a silent fallthrough.
type Actor interface {
	Tenant() string
	sealedActor()
}

// UserActor is a human user authenticated via a signed token.
type UserActor struct {
	TenantID string
	UserID   string
	Role     string
}

func (a UserActor) Tenant() string { return a.TenantID }
func (a UserActor) sealedActor()   {}

// ServiceActor is an automated credential: an opaque API key, or a signed
// token of type "service" (which gets the wildcard capability set).
type ServiceActor struct {
	TenantID   string
	APIKeyID   string
	Profile    string // "", read-only, write, admin
	ActionKeys []string
}

func (a ServiceActor) Tenant() string { return a.TenantID }
func (a ServiceActor) sealedActor()   {}

// Allows reports whether this service credential may perform the given
// capability key. Admin and write profiles pass everything; read-only passes
// any ".read"-suffixed key; the explicit allow-list is honored regardless of
// profile.
func (a ServiceActor) Allows(capabilityKey string) bool {
	switch a.Profile {
	case models.ProfileAdmin, models.ProfileWrite:
		return true
	case models.ProfileReadOnly:
		if strings.HasSuffix(capabilityKey, ".read") {
			return true
		}
	}
	for _, key := range a.ActionKeys {
		if key == capabilityKey || key == "*" {
			return true
		}
	}
	return false
}

// AuthContext is the immutable authenticated request context produced by
// RequireAuth and carried in fiber Locals for the rest of the request.
type AuthContext struct {
	Actor    Actor
	TenantID string
	UserID   string // set for user actors
	APIKeyID string // set for service actors
}

const authLocalKey = "authContext"

// AuthFromCtx returns the authenticated context attached by RequireAuth, or
// nil on public routes.
func AuthFromCtx(c *fiber.Ctx) *AuthContext {
	auth, _ := c.Locals(authLocalKey).(*AuthContext)
	return auth
}

package routes

import (
	"github.com/gofiber/fiber/v2"

	"verwaltung-backend/controllers"
	"verwaltung-backend/database"
	"verwaltung-backend/middlewares"
	"verwaltung-backend/models"
)

// Register wires all HTTP routes. Every protected route declares its own
// authorization requirement; a route without one is rejected by Authorize,
// so forgetting a declaration fails closed instead of open.
func Register(app *fiber.App) {
	creds := database.NewCredentialStore(database.DB)
	perms := database.NewPermissionStore(database.DB)
	idem := database.NewIdempotencyStore(database.DB)

	capability := func(key string) fiber.Handler {
		return middlewares.Authorize(middlewares.RequireCapability(key), perms)
	}
	platformAdmin := middlewares.Authorize(middlewares.RequireRole(models.RolePlatformAdmin), perms)

	api := app.Group("/api/v1")

	// Public auth endpoints
	api.Post("/auth/login", controllers.Login)

	// Protected endpoints (JWT or API key)
	protected := api.Group("")
	protected.Use(middlewares.RequireAuth(creds))

	protected.Get("/me", capability("me.read"), controllers.Me)

	// Tenant lifecycle (platform operators only)
	protected.Post("/tenants", platformAdmin,
		middlewares.Idempotent("tenants.create", idem),
		middlewares.Tx(), controllers.CreateTenant)
	protected.Get("/tenants", platformAdmin, controllers.ListTenants)
	protected.Put("/tenants/:id/status", platformAdmin,
		middlewares.Tx(), controllers.UpdateTenantStatus)

	// Capability catalog (platform operators only)
	protected.Post("/tools", platformAdmin, middlewares.Tx(), controllers.CreateTool)
	protected.Get("/tools", platformAdmin, controllers.ListTools)
	protected.Post("/tools/:toolKey/actions", platformAdmin, middlewares.Tx(), controllers.CreateToolAction)
	protected.Get("/tools/:toolKey/actions", platformAdmin, controllers.ListToolActions)

	// Users
	protected.Post("/users", capability("rbac.users.create"),
		middlewares.Idempotent("rbac.users.create", idem),
		middlewares.Tx(), controllers.CreateUser)
	protected.Get("/users", capability("rbac.users.read"), controllers.ListUsers)
	protected.Put("/users/:id/status", capability("rbac.users.status.update"),
		middlewares.Tx(), controllers.UpdateUserStatus)

	// Groups and permissions
	protected.Post("/groups", capability("rbac.groups.create"),
		middlewares.Tx(), controllers.CreateGroup)
	protected.Get("/groups", capability("rbac.groups.read"), controllers.ListGroups)
	protected.Post("/groups/:id/users", capability("rbac.groups.users.add"),
		middlewares.Tx(), controllers.AddGroupMember)
	protected.Delete("/groups/:id/users/:userId", capability("rbac.groups.users.remove"),
		middlewares.Tx(), controllers.RemoveGroupMember)
	protected.Put("/groups/:id/permissions", capability("rbac.groups.permissions.set"),
		middlewares.Tx(), controllers.SetGroupPermissions)

	// API keys
	protected.Post("/api-keys", capability("rbac.api_keys.create"),
		middlewares.Idempotent("rbac.api_keys.create", idem),
		middlewares.Tx(), controllers.CreateAPIKey)
	protected.Get("/api-keys", capability("rbac.api_keys.read"), controllers.ListAPIKeys)
	protected.Put("/api-keys/:id/status", capability("rbac.api_keys.status.update"),
		middlewares.Tx(), controllers.UpdateAPIKeyStatus)

	// Webhooks
	protected.Post("/webhooks/subscriptions", capability("webhooks.subscriptions.create"),
		middlewares.Idempotent("webhooks.subscriptions.create", idem),
		middlewares.Tx(), controllers.CreateSubscription)
	protected.Get("/webhooks/subscriptions", capability("webhooks.subscriptions.read"), controllers.ListSubscriptions)
	protected.Put("/webhooks/subscriptions/:id/status", capability("webhooks.subscriptions.status.update"),
		middlewares.Tx(), controllers.UpdateSubscriptionStatus)
	protected.Get("/webhooks/deliveries", capability("webhooks.deliveries.read"), controllers.ListDeliveries)
}

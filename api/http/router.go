package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/artem13815/accounts/api/http/handlers"
)

// Gates are the middleware chains protecting routes.
type Gates struct {
	Authenticated fiber.Handler
	Admin         fiber.Handler
}

// Register wires all HTTP routes onto given Fiber app.
func Register(app *fiber.App, users *handlers.UsersHandler, health *handlers.HealthHandler, gates Gates) {
	api := app.Group("/api")

	// Health and readiness endpoints for probes/monitoring
	api.Get("/health", health.Health)
	api.Get("/ready", health.Ready)

	u := api.Group("/users")
	u.Post("/", users.Register)
	u.Post("/auth", users.Login)
	u.Post("/logout", users.Logout)

	u.Get("/profile", gates.Authenticated, users.Profile)
	u.Put("/profile", gates.Authenticated, users.UpdateProfile)

	u.Get("/", gates.Authenticated, gates.Admin, users.List)
	u.Get("/:id", gates.Authenticated, gates.Admin, users.Get)
	u.Put("/:id", gates.Authenticated, gates.Admin, users.Update)
	u.Delete("/:id", gates.Authenticated, gates.Admin, users.Delete)
}

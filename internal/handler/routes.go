package handler

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"license-binding-server/internal/middleware"
)

// RouteOptions carries the middleware the routes are mounted behind.
type RouteOptions struct {
	Auth      fiber.Handler
	RateLimit fiber.Handler
	Metrics   http.Handler
}

func (h *Handler) RegisterRoutes(app fiber.Router, opts RouteOptions) {
	limit := opts.RateLimit
	if limit == nil {
		limit = func(c *fiber.Ctx) error { return c.Next() }
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if opts.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(opts.Metrics))
	}

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/login", limit, h.HandleLogin)
	auth.Post("/logout", opts.Auth, h.HandleLogout)
	auth.Get("/status", opts.Auth, h.HandleStatus)
	auth.Post("/register", opts.Auth, middleware.AdminOnly(), h.HandleRegister)
	auth.Get("/users", opts.Auth, middleware.AdminOnly(), h.HandleListUsers)
	auth.Delete("/users/:username", opts.Auth, middleware.AdminOnly(), h.HandleRemoveUser)

	license := api.Group("/license")
	license.Post("/validate", limit, h.HandleLicenseValidate)

	adminOnly := []fiber.Handler{opts.Auth, middleware.AdminOnly()}
	license.Post("/generate", append(adminOnly, h.HandleLicenseGenerate)...)
	license.Get("/list", append(adminOnly, h.HandleLicenseList)...)
	license.Get("/list-advanced", append(adminOnly, h.HandleLicenseListAdvanced)...)
	license.Get("/details/:key", append(adminOnly, h.HandleGetLicense)...)
	license.Get("/statistics", append(adminOnly, h.HandleLicenseStatistics)...)
	license.Post("/renew/:key", append(adminOnly, h.HandleLicenseRenew)...)
	license.Post("/block/:key", append(adminOnly, h.HandleLicenseBlock)...)
	license.Post("/unblock/:key", append(adminOnly, h.HandleLicenseUnblock)...)
	license.Post("/reset-hwid/:key", append(adminOnly, h.HandleLicenseResetHWID)...)
	license.Delete("/remove/:key", append(adminOnly, h.HandleLicenseDelete)...)
	license.Post("/sync", append(adminOnly, h.HandleLicenseSync)...)

	api.Get("/logs", append(adminOnly, h.HandleGetLogs)...)
}

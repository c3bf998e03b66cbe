package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/studiolens/whatsapp-relay/internal/config"
	"github.com/studiolens/whatsapp-relay/internal/handlers"
	"github.com/studiolens/whatsapp-relay/internal/middleware"
)

// Handlers groups everything the router mounts
type Handlers struct {
	Health   *handlers.HealthHandler
	WhatsApp *handlers.WhatsAppHandler
	Billing  *handlers.BillingHandler
	Admin    *handlers.AdminHandler
}

// SetupRoutes configures all routes
func SetupRoutes(app *fiber.App, h Handlers, cfg *config.Config) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "WhatsApp relay",
			"version": h.Health.Version,
			"endpoints": fiber.Map{
				"health":  "/health",
				"ready":   "/ready",
				"webhook": "/webhook/whatsapp",
				"billing": "/webhook/billing",
				"admin":   "/admin/sessions/:phone",
			},
		})
	})

	app.Get("/health", h.Health.Check)
	app.Get("/ready", h.Health.Ready)

	// ========== WEBHOOK ROUTES ==========
	webhooks := app.Group("/webhook")

	if cfg.Messaging.Provider == config.ProviderTwilio && !cfg.Messaging.DisableValidation {
		webhooks.Post("/whatsapp", middleware.ValidateTwilioSignature(cfg.Messaging.TwilioAuthToken), h.WhatsApp.HandleWebhook)
	} else {
		if cfg.Messaging.Provider == config.ProviderTwilio {
			slog.Warn("⚠️  twilio webhook signature validation disabled")
		}
		webhooks.Post("/whatsapp", h.WhatsApp.HandleWebhook)
	}

	webhooks.Post("/billing", middleware.RequireWebhookSecret(cfg.BillingWebhookSecret), h.Billing.HandleDueNotice)

	// ========== ADMIN ROUTES ==========
	admin := app.Group("/admin", middleware.RequireBearer(cfg.AdminToken))
	admin.Get("/sessions/:phone", h.Admin.GetSession)
	admin.Delete("/sessions/:phone", h.Admin.DeleteSession)
	admin.Delete("/sessions/:phone/cache", h.Admin.InvalidateCache)
}

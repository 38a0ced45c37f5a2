package routes

import (
	"crypto/subtle"
	"log"

	"github.com/Ananth-NQI/vfa-backend/internal/handlers"
	"github.com/Ananth-NQI/vfa-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config carries everything the router needs.
type Config struct {
	Version          string
	Chat             *handlers.ChatHandler
	Health           *handlers.HealthHandler
	WhatsApp         *handlers.WhatsAppHandler
	Admin            *handlers.AdminHandler
	AdminAPIKey      string
	Gatherer         prometheus.Gatherer
	TwilioAuthToken  string
	ValidateWebhooks bool
}

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, cfg Config) {

	// Root endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to the VFA banking assistant!",
			"version": cfg.Version,
			"endpoints": fiber.Map{
				"health":    "/health",
				"chat":      "/api/chat",
				"cancel":    "/api/chat/cancel",
				"state":     "/api/chat/:userId/state",
				"transfers": "/api/transfers/:userId",
				"webhook":   "/webhook/whatsapp",
				"metrics":   "/metrics",
			},
		})
	})

	app.Get("/health", cfg.Health.Check)

	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	// API routes
	api := app.Group("/api")

	chat := api.Group("/chat")
	chat.Post("/", cfg.Chat.HandleChat)
	chat.Post("/cancel", cfg.Chat.Cancel)
	chat.Get("/:userId/state", cfg.Chat.GetState)

	api.Get("/transfers/:userId", cfg.Chat.GetTransfers)

	// ========== ADMIN ROUTES ==========
	if cfg.Admin != nil && cfg.AdminAPIKey != "" {
		admin := app.Group("/admin", keyauth.New(keyauth.Config{
			KeyLookup:  "header:Authorization",
			AuthScheme: "Bearer",
			Validator: func(c *fiber.Ctx, key string) (bool, error) {
				if subtle.ConstantTimeCompare([]byte(key), []byte(cfg.AdminAPIKey)) == 1 {
					return true, nil
				}
				return false, keyauth.ErrMissingOrMalformedAPIKey
			},
		}))
		admin.Get("/sessions", cfg.Admin.GetActiveSessions)
		admin.Get("/sessions/:userId", cfg.Admin.GetSession)
		admin.Get("/beneficiaries", cfg.Admin.GetBeneficiaries)
	}

	// ========== WEBHOOK ROUTES ==========
	if cfg.WhatsApp == nil {
		return
	}
	webhooks := app.Group("/webhook")

	if cfg.ValidateWebhooks {
		webhooks.Post("/whatsapp", middleware.ValidateTwilioSignature(cfg.TwilioAuthToken), cfg.WhatsApp.HandleWebhook)
	} else {
		log.Println("⚠️  WhatsApp webhook validation DISABLED")
		webhooks.Post("/whatsapp", cfg.WhatsApp.HandleWebhook)
	}
}

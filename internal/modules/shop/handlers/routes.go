package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// Routes groups the handlers and guards mounted by Register.
type Routes struct {
	Webhook *WebhookHandler
	Health  *HealthHandler
	KB      *KBHandler

	AppSecret string
	AdminKey  string
	// RateLimit is the number of webhook requests allowed per IP per minute.
	RateLimit int
}

// Register mounts the chatbot routes on app.
func Register(app *fiber.App, r Routes) {
	app.Get("/health", r.Health.GetHealth)

	rate := r.RateLimit
	if rate <= 0 {
		rate = 100
	}
	webhook := app.Group("/webhook", limiter.New(limiter.Config{
		Max:        rate,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests",
			})
		},
	}))
	webhook.Get("", r.Webhook.VerifyWebhook)
	webhook.Post("", VerifySignature(r.AppSecret), r.Webhook.ReceiveWebhook)

	admin := app.Group("/knowledge-base", AdminOnly(r.AdminKey))
	admin.Post("/documents", r.KB.AddDocument)
	admin.Post("/ask", r.KB.Ask)
}

package routes

import (
	controller "mailverify/controllers"
	"mailverify/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

// Options carries what the route table needs beyond the controller.
type Options struct {
	Version             string
	DeepVerifyRateLimit int
	RateLimitStorage    fiber.Storage
}

func SetupAPIRoutes(app *fiber.App, vc *controller.VerificationController, opts Options) {
	api := app.Group("/api/v1", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Verification routes
	verify := api.Group("/verify")
	verify.Get("/quick", vc.QuickCheck)
	verify.Get("/full", vc.FullVerify)
	verify.Post("/bulk", vc.BulkVerify)

	// Deep verification opens SMTP sessions to third-party servers, so it is
	// admin-only and rate limited per operator
	verify.Post("/deep",
		middleware.Protected(),
		middleware.AdminOnly(),
		middleware.DeepVerifyRateLimiter(opts.DeepVerifyRateLimit, opts.RateLimitStorage),
		vc.DeepVerify,
	)

	// WebSocket route for streamed bulk verification
	verify.Use("/stream", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	verify.Get("/stream", websocket.New(vc.StreamVerify))

	logrus.Info("API routes initialized successfully")
}

func SetupRoutes(app *fiber.App, vc *controller.VerificationController, opts Options) {
	app.Get("/", controller.HealthCheck(opts.Version))

	SetupAPIRoutes(app, vc, opts)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}

package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"mailverify/config"
	controller "mailverify/controllers"
	"mailverify/middleware"
	"mailverify/routes"
	"mailverify/utils"
	"mailverify/verifier"
)

const version = "1.0.0"

func main() {
	logger := logrus.StandardLogger()

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	if config.AppConfig.Environment == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	if dsn := config.AppConfig.SentryDSN; dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         dsn,
			Environment: config.AppConfig.Environment,
			Release:     "mailverify@" + version,
		}); err != nil {
			logger.WithError(err).Warn("Sentry disabled")
		}
		defer sentry.Flush(2 * time.Second)
	}

	verifierCfg, err := config.AppConfig.VerifierConfig(logger)
	if err != nil {
		logger.Fatalf("Failed to build verifier configuration: %v", err)
	}
	engine, err := verifier.New(verifierCfg)
	if err != nil {
		logger.Fatalf("Failed to create verifier: %v", err)
	}
	logger.WithField("disposable_domains", engine.Disposable().Len()).Info("Verifier ready")

	app := fiber.New(fiber.Config{
		AppName:      "mailverify " + version,
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			utils.LogError("panic", fmt.Errorf("%v", e), map[string]interface{}{
				"method": c.Method(),
				"path":   c.Path(),
			})
		},
	}))
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   config.AppConfig.CORSAllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposedHeaders:   []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:           3600,
	}))

	storage := middleware.NewRateLimitStorage(config.AppConfig.Redis)
	if storage != nil {
		defer storage.Close()
	}

	vc := controller.NewVerificationController(engine, logger, config.AppConfig)
	routes.SetupRoutes(app, vc, routes.Options{
		Version:             version,
		DeepVerifyRateLimit: config.AppConfig.DeepVerifyRateLimit,
		RateLimitStorage:    storage,
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Info("Shutting down server...")
		if err := app.ShutdownWithTimeout(15 * time.Second); err != nil {
			logger.WithError(err).Error("Server shutdown failed")
		}
	}()

	logger.Printf("Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}

// errorHandler keeps the JSON error shape for errors returned by handlers and
// middleware.
func errorHandler(c *fiber.Ctx, err error) error {
	code, message := fiber.StatusInternalServerError, "Internal Server Error"
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code, message = fiberErr.Code, fiberErr.Message
	}
	if code >= fiber.StatusInternalServerError {
		utils.LogError("http", err, map[string]interface{}{
			"method": c.Method(),
			"path":   c.Path(),
		})
	}
	return utils.ErrorResponse(c, code, message, nil)
}

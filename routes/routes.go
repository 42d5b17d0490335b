package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"needthisdone-payments/config"
	"needthisdone-payments/controllers"
	"needthisdone-payments/dedup"
	"needthisdone-payments/middlewares"
)

// Deps is everything the HTTP layer needs.
type Deps struct {
	Controller *controllers.Controller
	Auth       *middlewares.Auth
	Guard      *dedup.Guard
	Log        *zap.Logger
}

// NewApp builds the fiber app with the global middleware stack and all routes.
func NewApp(cfg *config.Config, d Deps) *fiber.App {
	// ---- Fiber app with global error handler + body limit
	app := fiber.New(fiber.Config{
		ErrorHandler:          middlewares.ErrorHandler(d.Log),
		BodyLimit:             cfg.BodyLimitBytes,
		DisableStartupMessage: cfg.IsProduction(),
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(middlewares.RequestLogger(d.Log))

	// ---- CORS
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowCredentials: false, // using Bearer tokens, not cookies
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key, X-Admin-Registration-Key",
	}))

	// ---- Global rate limiter (default key is the client IP)
	if cfg.RateLimitMax > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimitMax,
			Expiration: cfg.RateLimitWindow,
		}))
	}

	Register(app, cfg, d)
	return app
}

// Register wires all HTTP routes.
func Register(app *fiber.App, cfg *config.Config, d Deps) {
	h := d.Controller

	app.Get("/healthz", h.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// Public endpoints
	api.Post("/auth/register", h.Register)
	api.Post("/auth/login", h.Login)
	api.Post("/webhooks/payments", h.PaymentWebhook)

	// Protected endpoints (JWT auth)
	protected := api.Group("")
	protected.Use(d.Auth.IsAuthenticatedHeader())

	dedupMW := func(label string) fiber.Handler {
		return middlewares.Dedup(middlewares.DedupConfig{
			Guard:    d.Guard,
			Label:    label,
			FailOpen: cfg.DedupFailOpen,
			Log:      d.Log,
		})
	}
	admin := middlewares.RequireAdmin()

	// Orders
	protected.Post("/orders", dedupMW("create_order"), h.CreateOrder)
	protected.Get("/orders/:id", h.GetOrder)
	protected.Put("/orders/:id/payment-fields", admin, h.UpdatePaymentFields)
	protected.Post("/orders/:id/ready-for-delivery", admin, h.MarkReadyForDelivery)

	// Payments
	protected.Post("/orders/:id/collect", admin, dedupMW("collect_balance"), h.CollectBalance)
	protected.Get("/orders/:id/payment-attempts", h.ListPaymentAttempts)
	protected.Patch("/orders/:id/payment-attempts/latest", admin, h.UpdateLatestAttempt)
}

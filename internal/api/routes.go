package api

import (
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type AppOptions struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RateLimitMax    int
	RateLimitWindow time.Duration
	MetricsEnabled  bool
	AccessLog       bool
}

// NewApp builds the fiber app with the global middleware stack and all
// routes mounted.
func NewApp(opts AppOptions, handler *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ServerHeader:          "Companies-API",
		AppName:               "Companies API v" + version,
		DisableStartupMessage: true,
		ReadTimeout:           opts.ReadTimeout,
		WriteTimeout:          opts.WriteTimeout,
		IdleTimeout:           120 * time.Second,
		ErrorHandler:          ErrorHandler,
	})

	app.Use(recover.New())
	if opts.AccessLog {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}))
	}
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-Request-ID",
	}))

	SetupRoutes(app, handler, opts)

	return app
}

func SetupRoutes(app *fiber.App, handler *Handler, opts AppOptions) {
	app.Use(RequestID())

	// Probes and metrics are not rate limited
	app.Get("/health", handler.HealthCheck)
	app.Get("/ready", handler.ReadinessCheck)
	if opts.MetricsEnabled {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	v1 := app.Group("/api/v1")
	if opts.RateLimitMax > 0 {
		v1.Use(RateLimiter(opts.RateLimitMax, opts.RateLimitWindow))
	}
	if opts.MetricsEnabled {
		v1.Use(PrometheusMiddleware())
	}

	v1.Get("/companies", handler.GetCompanies)

	app.Use(func(c *fiber.Ctx) error {
		return fiber.ErrNotFound
	})
}

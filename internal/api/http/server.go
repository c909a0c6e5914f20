package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/task-distribution/internal/observability"
)

// ServerOptions configures the Fiber application.
type ServerOptions struct {
	AppName        string
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	RequestTimeout time.Duration
	BodyLimit      int
}

// NewApp builds the Fiber app with middlewares and routes registered.
func NewApp(opts ServerOptions, routes RouteConfig) *fiber.App {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	cfg := fiber.Config{
		AppName:               opts.AppName,
		Immutable:             true,
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler(opts.Logger, opts.Metrics),
	}
	if opts.BodyLimit > 0 {
		cfg.BodyLimit = opts.BodyLimit
	}

	app := fiber.New(cfg)
	RegisterMiddlewares(app, opts.Logger, opts.Metrics, opts.RequestTimeout)
	RegisterRoutes(app, routes)
	return app
}

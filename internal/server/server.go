package server

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/storage/redis/v3"

	"sowmatch/internal/config"
)

// maxBodyBytes bounds request bodies; SOW text is capped well below this.
const maxBodyBytes = 4 * 1024 * 1024

// Server wraps the Fiber app and configuration.
type Server struct {
	App    *fiber.App
	Cfg    *config.Config
	Logger *slog.Logger

	limiterStorage *redis.Storage
}

// New creates a new server with middleware configured.
func New(cfg *config.Config, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}

	app := fiber.New(fiber.Config{
		BodyLimit:    maxBodyBytes,
		ErrorHandler: errorHandler(log),
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())

	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Split(cfg.CORSOrigins, ","),
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{
			fiber.HeaderContentDisposition,
			fiber.HeaderRetryAfter,
		},
		MaxAge: 86400,
	}))

	s := &Server{App: app, Cfg: cfg, Logger: log}

	limiterCfg := limiter.Config{
		Max:        cfg.RateLimitPerMinute,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/healthz" || c.Path() == "/metrics"
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"status": "error",
				"error":  "Rate limit exceeded. Please try again later.",
			})
		},
	}
	// Share counters across replicas when Redis is configured.
	if cfg.RedisURL != "" {
		s.limiterStorage = redis.New(redis.Config{URL: cfg.RedisURL})
		limiterCfg.Storage = s.limiterStorage
		log.Info("rate limiter using redis storage")
	}
	app.Use(limiter.New(limiterCfg))

	return s
}

// errorHandler renders unhandled errors in the JSON envelope.
func errorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
			message = e.Message
		} else {
			log.Error("unhandled error", "path", c.Path(), "error", err)
		}

		return c.Status(code).JSON(fiber.Map{
			"status": "error",
			"error":  message,
		})
	}
}

// Start starts the server on the configured address.
func (s *Server) Start() error {
	return s.App.Listen(s.Cfg.ServerAddr, fiber.ListenConfig{DisableStartupMessage: !s.Cfg.IsDev()})
}

// Shutdown gracefully shuts down the server and releases the limiter storage.
func (s *Server) Shutdown() error {
	err := s.App.Shutdown()
	if s.limiterStorage != nil {
		if cerr := s.limiterStorage.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

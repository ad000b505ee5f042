// Package server contains the HTTP and WebSocket handlers of the relationship API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	_ "habitpal/docs" // swagger docs
	"habitpal/internal/config"
	"habitpal/internal/middleware"
	"habitpal/internal/models"
	"habitpal/internal/notifications"
	"habitpal/internal/repository"
	"habitpal/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	relationships  *service.RelationshipService
	notifier       *notifications.Notifier
	hub            *notifications.Hub
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; realtime events are then delivered only to
// connections on this instance.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, opts ...service.Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("habitpal-api"),
		shutdownCtx:    ctx,
		shutdownFn:     cancel,
		notifier:       notifications.NewNotifier(redisClient),
		hub:            notifications.NewHub(),
	}

	base := []service.Option{
		service.WithEventPublisher(notifications.NewDispatcher(s.hub, s.notifier)),
		service.WithPresenceWindow(cfg.PresenceWindow),
		service.WithOperationTimeout(cfg.OperationTimeout),
	}
	s.relationships = service.NewRelationshipService(repository.NewStore(db), append(base, opts...)...)
	return s
}

// Relationships exposes the service for background jobs sharing this server's wiring.
func (s *Server) Relationships() *service.RelationshipService {
	return s.relationships
}

// NewApp builds the fiber app with middleware and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "habitpal relationship API",
		BodyLimit: 64 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return models.RespondWithError(c, fe.Code, fe)
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled request error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}
	app.Use(middleware.ContextMiddleware())
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}
	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected browser requests still carry CORS headers.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.AllowedOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: s.config.AllowedOrigins != "*",
		MaxAge:           86400,
	}))

	if s.config.RateLimitMax > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        s.config.RateLimitMax,
			Expiration: s.config.RateLimitWindow,
			Next: func(c *fiber.Ctx) bool {
				return c.Method() == fiber.MethodOptions || s.config.Env == "test"
			},
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return models.RespondWithError(c, fiber.StatusTooManyRequests,
					fiber.NewError(fiber.StatusTooManyRequests, "Too many requests, please try again later"))
			},
		}))
	}
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	auth := s.authConfig()
	protected := api.Group("", middleware.AuthRequired(auth, s.redis))

	friends := protected.Group("/friends")
	friends.Get("/", s.ListFriends)
	friends.Get("/search/:uid", s.SearchUser)
	friends.Post("/request", middleware.RateLimit(s.redis, 20, time.Minute, "friend_request"), s.SendFriendRequest)
	friends.Get("/requests", s.ListFriendRequests)
	friends.Post("/requests/:id/handle", s.HandleFriendRequest)
	friends.Delete("/requests/:id", s.CancelFriendRequest)

	notes := friends.Group("/notifications")
	notes.Get("/", s.ListNotifications)
	notes.Get("/unread-count", s.UnreadNotificationCount)
	notes.Post("/read-all", s.MarkAllNotificationsRead)
	notes.Patch("/:id/read", s.MarkNotificationRead)

	friends.Delete("/:otherUserId", s.RemoveFriend)
	friends.Patch("/:otherUserId/settings", s.UpdateFriendSettings)
	friends.Post("/:otherUserId/block", s.BlockUser)

	wsAuth := auth
	wsAuth.AllowQueryToken = true
	api.Get("/ws", middleware.AuthRequired(wsAuth, s.redis), s.WebSocketUpgrade(), s.WebSocketEventsHandler())
}

func (s *Server) authConfig() middleware.AuthConfig {
	return middleware.AuthConfig{
		Secret:   s.config.JWTSecret,
		Issuer:   s.config.JWTIssuer,
		Audience: s.config.JWTAudience,
	}
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis health. Redis is optional; its
// absence is reported but does not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if sqlDB, err := s.db.DB(); err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start wires the hub to Redis and blocks serving HTTP.
func (s *Server) Start() error {
	s.app = s.NewApp()

	if s.notifier.Enabled() {
		if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
			middleware.Logger.Error("failed to start realtime wiring", slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownFn()

	var errs []error
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.hub.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return errors.Join(errs...)
}

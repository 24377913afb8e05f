// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"log"
	"time"

	_ "socialhub/docs" // swagger docs
	"socialhub/internal/bootstrap"
	"socialhub/internal/config"
	"socialhub/internal/middleware"
	"socialhub/internal/models"
	"socialhub/internal/notifications"

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
	verifier       middleware.TokenVerifier
	featureFlags   FlagSnapshot
	hub            *notifications.Hub
	svc            Services
}

// NewServer builds a server over an initialized runtime.
func NewServer(rt *bootstrap.Runtime) *Server {
	s := &Server{
		config:         rt.Config,
		db:             rt.DB,
		redis:          rt.Redis,
		promMiddleware: middleware.InitMetrics("socialhub-api"),
		verifier:       rt.Verifier,
		hub:            rt.Hub,
		svc: Services{
			Identity:      rt.Services.Identity,
			Graph:         rt.Services.Graph,
			Content:       rt.Services.Content,
			Engagement:    rt.Services.Engagement,
			Notifications: rt.Services.Notifications,
			Feed:          rt.Services.Feed,
			Saved:         rt.Services.Saved,
		},
	}
	if rt.Flags != nil {
		s.featureFlags = rt.Flags
	}
	return s
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
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

	authenticated := middleware.RequireToken(s.verifier)
	resolve := middleware.ResolveActor(s.svc.Identity.ResolveActorID)

	// Registration needs a verified token but no identity yet.
	api.Post("/identities", authenticated, middleware.RateLimit(
		s.redis, 5, 10*time.Minute, "register"), s.Register)

	// Sockets authenticate by ticket, so they sit outside the protected group.
	api.Post("/ws/ticket", authenticated, resolve, s.IssueWSTicket)
	api.Get("/ws", s.WSAuthRequired(), s.WebsocketHandler())

	protected := api.Group("", authenticated, resolve)

	identities := protected.Group("/identities")
	identities.Get("/me", s.GetMe)
	identities.Put("/me", s.UpdateMe)
	identities.Get("/search", middleware.RateLimit(
		s.redis, 30, time.Minute, "search"), s.SearchIdentities)
	// Define specific /:id/:resource routes BEFORE generic /:id route
	identities.Post("/:id/follow", middleware.RateLimit(
		s.redis, 60, time.Minute, "follow"), s.Follow)
	identities.Delete("/:id/follow", s.Unfollow)
	identities.Get("/:id/following-status", s.FollowingStatus)
	identities.Get("/:id/followers", s.ListFollowers)
	identities.Get("/:id/following", s.ListFollowing)
	identities.Get("/:id/posts", s.ListIdentityPosts)
	identities.Get("/:id", s.GetIdentity)

	posts := protected.Group("/posts")
	posts.Post("/", middleware.RateLimit(
		s.redis, 10, time.Minute, "create_post"), s.CreatePost)
	posts.Post("/:id/like", s.LikePost)
	posts.Delete("/:id/like", s.UnlikePost)
	posts.Get("/:id/likes", s.ListLikers)
	posts.Get("/:id/comments", s.ListComments)
	posts.Post("/:id/comments", middleware.RateLimit(
		s.redis, 20, time.Minute, "create_comment"), s.CreateComment)
	posts.Delete("/:id/comments/:commentId", s.DeleteComment)
	posts.Get("/:id", s.GetPost)
	posts.Delete("/:id", s.DeletePost)

	stories := protected.Group("/stories")
	stories.Post("/", middleware.RateLimit(
		s.redis, 10, time.Minute, "create_story"), s.CreateStory)
	stories.Get("/", s.ListStories)

	protected.Get("/feed", s.GetFeed)

	notifs := protected.Group("/notifications")
	notifs.Get("/", s.ListNotifications)
	notifs.Get("/unread-count", s.UnreadCount)
	notifs.Post("/read-all", s.MarkAllRead)
	notifs.Post("/:id/read", s.MarkRead)

	saved := protected.Group("/saved")
	saved.Get("/", s.ListSaved)
	saved.Post("/", s.SaveItem)
	saved.Delete("/:source/:ref", s.UnsaveItem)

	admin := protected.Group("/admin", s.AdminRequired())
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   nowUTC(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis only counts
// when it is configured; without it the service runs degraded.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.db == nil {
		dbStatus = "unhealthy"
	} else if sqlDB, err := s.db.DB(); err != nil {
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
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	} else if redisStatus == "unavailable" {
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": nowUTC(),
	})
}

// AdminRequired returns middleware that rejects subjects missing from
// ADMIN_SUBJECTS with 403. Must run after RequireToken.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		subject, _ := c.Locals(middleware.LocalSubject).(string)
		if subject == "" || !s.config.IsAdminSubject(subject) {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewPermissionDeniedError("Admin access required"))
		}
		return c.Next()
	}
}

// Start builds the Fiber app and blocks serving it.
func (s *Server) Start() error {
	app := fiber.New(fiber.Config{
		AppName: "SocialHub API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests and drains in-flight ones. Stores and
// sockets belong to the runtime and are closed there.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app == nil {
		return nil
	}
	return s.app.ShutdownWithContext(ctx)
}

// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	_ "github.com/yogull/yogull-social-platform-sub001/docs" // swagger docs
	"github.com/yogull/yogull-social-platform-sub001/internal/blobstore"
	"github.com/yogull/yogull-social-platform-sub001/internal/config"
	"github.com/yogull/yogull-social-platform-sub001/internal/database"
	"github.com/yogull/yogull-social-platform-sub001/internal/featureflags"
	"github.com/yogull/yogull-social-platform-sub001/internal/identity"
	"github.com/yogull/yogull-social-platform-sub001/internal/middleware"
	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/notifications"
	"github.com/yogull/yogull-social-platform-sub001/internal/policy"
	"github.com/yogull/yogull-social-platform-sub001/internal/repository"
	"github.com/yogull/yogull-social-platform-sub001/internal/service"

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

// wireableHub is implemented by every WebSocket hub that can be wired to
// Redis pub/sub and gracefully shut down.
type wireableHub interface {
	Name() string
	StartWiring(ctx context.Context, n *notifications.Notifier) error
	Shutdown(ctx context.Context) error
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	store        *repository.Store
	policy       *policy.Policy
	resolver     *identity.Resolver
	featureFlags *featureflags.Manager
	blobs        blobstore.Store

	notifier   *notifications.Notifier
	hub        *notifications.Hub
	hubs       []wireableHub
	dispatcher *notifications.Dispatcher

	wallService         *service.WallService
	contentService      *service.ContentService
	discussionService   *service.DiscussionService
	chatService         *service.ChatService
	galleryService      *service.GalleryService
	userService         *service.UserService
	notificationService *service.NotificationService
	integrityService    *service.IntegrityService
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// The bootstrap layer establishes DB, Redis, the token verifier and the blob
// store. redisClient may be nil; realtime delivery is then disabled.
func NewServerWithDeps(
	cfg *config.Config,
	db *gorm.DB,
	redisClient *redis.Client,
	verifier identity.TokenVerifier,
	blobs blobstore.Store,
) (*Server, error) {
	if blobs == nil {
		blobs = blobstore.None{}
	}
	store := repository.NewStore(db)
	pol := policy.New(policy.Rules{
		AllowCrossPosting:     cfg.PolicyAllowCrossPosting,
		ContextOwnerMayDelete: cfg.PolicyContextOwnerMayDelete,
	})
	flags := featureflags.NewManager(cfg.FeatureFlags)

	server := &Server{
		config:       cfg,
		db:           db,
		redis:        redisClient,
		store:        store,
		policy:       pol,
		resolver:     identity.NewResolver(verifier, store.Users),
		featureFlags: flags,
		blobs:        blobs,
		notifier:     notifications.NewNotifier(redisClient),
	}

	// Initialize hub if Redis is available
	if redisClient != nil {
		server.hub = notifications.NewHub()
		server.hubs = []wireableHub{server.hub}
	}

	fanout := notifications.NewFanout(notifications.FanoutConfig{
		Participants: store.Discussions,
		Writer:       store.Notifications,
		Realtime:     server.notifier,
		Flags:        flags,
		MaxAttempts:  cfg.NotifyMaxAttempts,
	})
	server.dispatcher = notifications.NewDispatcher(fanout, cfg.NotifyWorkers, cfg.NotifyQueueSize)

	server.wallService = service.NewWallService(store, pol, server.dispatcher)
	server.discussionService = service.NewDiscussionService(store, pol, server.dispatcher)
	server.chatService = service.NewChatService(store, pol, server.notifier, flags)
	server.galleryService = service.NewGalleryService(store, pol, blobs)
	server.contentService = service.NewContentService(store, pol,
		server.wallService, server.discussionService, server.chatService, server.galleryService)
	server.userService = service.NewUserService(store.Users, pol)
	server.notificationService = service.NewNotificationService(store.Notifications, store.Users)
	server.integrityService = service.NewIntegrityService(store, blobs, cfg.OrphanGrace())

	return server, nil
}

// Integrity exposes the reconciler so the process can schedule it.
func (s *Server) Integrity() *service.IntegrityService {
	return s.integrityService
}

// NewApp builds the fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "OPC Community API",
		BodyLimit: 4 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code := models.CodeValidation
				if fe.Code == fiber.StatusNotFound {
					code = models.CodeNotFound
				}
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message, Code: code})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app
	s.promMiddleware = middleware.InitMetrics(app, "opc-api")

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	// Security headers
	app.Use(helmet.New())

	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so browser clients still receive CORS
	// headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || !s.config.IsProduction()
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
				Code:  "RATE_LIMITED",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	api.Post("/session", middleware.RateLimit(s.redis, 20, time.Minute, "session"), s.CreateSession)

	// Websocket endpoint authenticates from the query string.
	api.Get("/ws", middleware.WebSocketAuthRequired(s.resolver), s.WebsocketHandler())

	protected := api.Group("", middleware.AuthRequired(s.resolver))

	// User routes; /me routes before /:id
	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Patch("/me", s.UpdateMyProfile)
	users.Put("/me/profile-picture", s.SetProfilePicture)
	users.Put("/me/cover-image", s.SetCoverImage)
	users.Get("/:id/wall", s.GetWall)
	users.Post("/:id/wall", middleware.RateLimit(s.redis, 10, time.Minute, "create_post"), s.CreateWallPost)
	users.Get("/:id/galleries", s.GetUserGalleries)
	users.Get("/:id", s.GetUserProfile)

	posts := protected.Group("/posts")
	posts.Get("/", s.GetFeed)
	posts.Post("/", middleware.RateLimit(s.redis, 10, time.Minute, "create_post"), s.CreatePost)
	posts.Get("/:id/comments", s.GetComments)
	posts.Post("/:id/comments", middleware.RateLimit(s.redis, 30, time.Minute, "create_comment"), s.CreateComment)
	posts.Post("/:id/like", s.LikePost)
	posts.Post("/:id/share", s.SharePost)
	posts.Delete("/:id/share", s.UnsharePost)
	posts.Get("/:id", s.GetPost)
	posts.Patch("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	comments := protected.Group("/comments")
	comments.Post("/:id/like", s.LikeComment)
	comments.Patch("/:id", s.UpdateComment)
	comments.Delete("/:id", s.DeleteComment)

	protected.Post("/likes", s.ToggleLike)
	protected.Delete("/content/:type/:id", s.DeleteContent)

	categories := protected.Group("/discussion-categories")
	categories.Get("/", s.GetCategories)
	categories.Post("/", s.CreateCategory)

	discussions := protected.Group("/discussions")
	discussions.Get("/", s.GetDiscussions)
	discussions.Post("/", middleware.RateLimit(s.redis, 10, time.Minute, "create_discussion"), s.CreateDiscussion)
	discussions.Get("/:id/messages", s.GetDiscussionMessages)
	discussions.Post("/:id/messages", middleware.RateLimit(s.redis, 30, time.Minute, "discussion_message"), s.PostDiscussionMessage)
	discussions.Get("/:id", s.GetDiscussion)
	discussions.Patch("/:id", s.UpdateDiscussion)
	discussions.Delete("/:id", s.DeleteDiscussion)

	discussionMessages := protected.Group("/discussion-messages")
	discussionMessages.Patch("/:id", s.UpdateDiscussionMessage)
	discussionMessages.Delete("/:id", s.DeleteDiscussionMessage)

	chat := protected.Group("/chat")
	chat.Get("/rooms", s.GetChatRooms)
	chat.Post("/rooms", s.CreateChatRoom)
	chat.Post("/rooms/:id/participants", s.AddChatParticipant)
	chat.Delete("/rooms/:id/participants/:userId", s.RemoveChatParticipant)
	chat.Get("/rooms/:id/messages", s.GetChatMessages)
	chat.Post("/rooms/:id/messages", middleware.RateLimit(s.redis, 60, time.Minute, "send_chat"), s.SendChatMessage)
	chat.Get("/rooms/:id", s.GetChatRoom)
	chat.Delete("/messages/:id", s.DeleteChatMessage)

	notifs := protected.Group("/notifications")
	notifs.Get("/", s.GetNotifications)
	notifs.Get("/unread-count", s.GetUnreadCount)
	notifs.Post("/read-all", s.MarkAllNotificationsRead)
	notifs.Post("/:id/read", s.MarkNotificationRead)
	notifs.Delete("/:id", s.DeleteNotification)

	protected.Post("/media/files", s.RegisterMediaFile)

	galleries := protected.Group("/galleries")
	galleries.Post("/", s.CreateGallery)
	galleries.Get("/:id/items", s.GetGalleryItems)
	galleries.Post("/:id/items", s.AddGalleryItem)
	galleries.Get("/:id", s.GetGallery)

	items := protected.Group("/gallery-items")
	items.Post("/:id/like", s.LikeGalleryItem)
	items.Post("/:id/view", s.ViewGalleryItem)
	items.Post("/:id/share", s.ShareGalleryItem)
	items.Delete("/:id", s.DeleteGalleryItem)

	// Admin routes; the services enforce the admin rule, the middleware
	// rejects early.
	admin := protected.Group("/admin", s.AdminRequired())
	admin.Post("/users/:id/block", s.BlockUser)
	admin.Post("/users/:id/unblock", s.UnblockUser)
	admin.Post("/users/:id/promote", s.PromoteUser)
	admin.Get("/integrity", s.GetIntegrityReport)
	admin.Post("/integrity/repair", s.RepairIntegrity)
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// LivenessCheck handles liveness check requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness check requests. Redis is optional; its
// absence is reported but does not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
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
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
			"blobs":    s.blobs.Name(),
		},
		"time": time.Now(),
	})
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(uint)

		user, err := s.store.Users.GetByID(c.UserContext(), userID)
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		if !user.IsAdmin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError(policy.ReasonAdminRequired, "Admin access required"))
		}

		return c.Next()
	}
}

// StartBackground launches the notification workers and the realtime
// subscriptions. They stop when Shutdown is called.
func (s *Server) StartBackground() {
	if s.shutdownFn != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.dispatcher.Start(ctx)

	for _, h := range s.hubs {
		h := h
		go func() {
			if err := h.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start hub wiring",
					slog.String("hub", h.Name()), slog.String("error", err.Error()))
			}
		}()
	}
}

// Start builds the app, starts background work and listens on the
// configured port.
func (s *Server) Start() error {
	app := s.NewApp()
	s.StartBackground()

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Stop accepting requests first so no new events are queued.
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	// Drain queued notifications before the wiring context goes away.
	s.dispatcher.Close()
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	for _, h := range s.hubs {
		if err := h.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down hub",
				slog.String("hub", h.Name()), slog.String("error", err.Error()))
		}
	}

	if err := database.Close(s.db); err != nil {
		middleware.Logger.Error("error closing database", slog.String("error", err.Error()))
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}

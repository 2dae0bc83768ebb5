package router

import (
	"github.com/anonto42/nano-midea/socialfeed/internal/handlers"
	"github.com/anonto42/nano-midea/socialfeed/internal/middleware"
	"github.com/anonto42/nano-midea/socialfeed/internal/models"
	"github.com/anonto42/nano-midea/socialfeed/pkg/logger"
	"github.com/anonto42/nano-midea/socialfeed/validators"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Identity is the account service as the router sees it
type Identity interface {
	handlers.Authenticator
	handlers.UserDirectory
	middleware.TokenParser
	middleware.FirebaseResolver
	middleware.RoleLookup
}

// Dependencies are the services the routes are built on
type Dependencies struct {
	Identity      Identity
	Graph         handlers.SocialGraph
	Feed          handlers.FeedReader
	Engagement    handlers.Engagement
	Notifications handlers.NotificationLister
	Posts         handlers.PostStore
	Comments      handlers.CommentStore
	// FirebaseEnabled turns on Firebase ID tokens as bearer credentials.
	FirebaseEnabled bool
}

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	log := logger.Get().Named("http")

	e.HideBanner = true
	e.HTTPErrorHandler = handlers.HTTPErrorHandler
	e.Validator = validators.NewValidator()

	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	e.Use(eMiddleware.RequestIDWithConfig(eMiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(eMiddleware.RequestLoggerWithConfig(eMiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v eMiddleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				log.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	}))
	log.Debug("global middleware configured")
}

// SetupRoutes configures all application routes
func SetupRoutes(e *echo.Echo, deps Dependencies) {
	log := logger.Get().Named("http")

	e.GET("/health", handlers.HealthCheck)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	handlers.NewAuthHandler(deps.Identity).RegisterAuthRoutes(authGroup)

	postHandler := handlers.NewPostHandler(deps.Posts)
	commentHandler := handlers.NewCommentHandler(deps.Comments)

	// --- Public read-only routes ---
	public := e.Group("/api/v1")
	postHandler.RegisterPublicPostRoutes(public)
	commentHandler.RegisterPublicCommentRoutes(public)

	// --- Protected routes ---
	var firebase middleware.FirebaseResolver
	if deps.FirebaseEnabled {
		firebase = deps.Identity
	}
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(deps.Identity, firebase))

	userHandler := handlers.NewUserHandler(deps.Identity)
	userHandler.RegisterProfileRoutes(api)

	admin := api.Group("/admin")
	admin.Use(middleware.RequireRole(deps.Identity, models.RoleAdmin))
	userHandler.RegisterAdminRoutes(admin)

	handlers.NewFollowHandler(deps.Graph).RegisterFollowRoutes(api)
	postHandler.RegisterPostRoutes(api)
	commentHandler.RegisterCommentRoutes(api)
	handlers.NewLikeHandler(deps.Engagement).RegisterLikeRoutes(api)
	handlers.NewFeedHandler(deps.Feed).RegisterFeedRoutes(api)
	handlers.NewNotificationHandler(deps.Notifications).RegisterNotificationRoutes(api)

	log.Info("routes configured", zap.Int("count", len(e.Routes())))
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/nano-midea/socialfeed/internal/metrics"
	"github.com/anonto42/nano-midea/socialfeed/internal/repositories"
	"github.com/anonto42/nano-midea/socialfeed/internal/router"
	"github.com/anonto42/nano-midea/socialfeed/internal/services"
	"github.com/anonto42/nano-midea/socialfeed/pkg/config"
	"github.com/anonto42/nano-midea/socialfeed/pkg/firebase"
	"github.com/anonto42/nano-midea/socialfeed/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connections
	db, err := config.InitDB(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}
	defer db.CloseDB()

	if cfg.MigrateOnStart {
		if err := config.RunMigrations(cfg.PostgresConnStr); err != nil {
			return err
		}
		log.Info("PostgreSQL migrations applied")
	}

	// --- Repositories ---
	userRepo := repositories.NewPostgresUserRepository(db.Postgres)
	profileRepo := repositories.NewPostgresProfileRepository(db.Postgres)
	likeRepo := repositories.NewPostgresLikeRepository(db.Postgres)
	notificationRepo := repositories.NewPostgresNotificationRepository(db.Postgres)
	transactor := repositories.NewGormTransactor(db.Postgres)

	mongoDB := db.Mongo.Database(cfg.MongoDatabase)
	postRepo := repositories.NewMongoPostRepository(mongoDB)
	if err := postRepo.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create post indexes: %w", err)
	}
	commentRepo := repositories.NewMongoCommentRepository(mongoDB)
	if err := commentRepo.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create comment indexes: %w", err)
	}

	var followRepo repositories.FollowRepository
	switch cfg.GraphBackend {
	case config.GraphBackendNeo4j:
		neo4jRepo := repositories.NewNeo4jFollowRepository(db.Neo4j)
		if err := neo4jRepo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to prepare Neo4j schema: %w", err)
		}
		followRepo = neo4jRepo
	default:
		followRepo = repositories.NewPostgresFollowRepository(db.Postgres)
	}
	log.Info("social graph backend selected", zap.String("backend", cfg.GraphBackend))

	// Firebase sign-in is optional
	var verifier services.IDTokenVerifier
	firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
	switch {
	case err == nil:
		verifier = firebaseApp.AuthClient
	case errors.Is(err, firebase.ErrDisabled):
		log.Info("firebase sign-in disabled")
	default:
		return fmt.Errorf("failed to initialize Firebase: %w", err)
	}

	// --- Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(registry)

	// --- Services ---
	tokens := services.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	identity := services.NewIdentityService(userRepo, profileRepo, transactor, tokens, verifier)
	graph := services.NewSocialGraphService(userRepo, followRepo, recorder)
	notifications := services.NewNotificationService(userRepo, notificationRepo, postRepo, recorder)
	content := services.NewContentService(userRepo, postRepo, likeRepo, commentRepo, cfg.FeedPageSize)

	e := echo.New()
	router.SetupMiddleware(e)
	router.SetupRoutes(e, router.Dependencies{
		Identity:        identity,
		Graph:           graph,
		Feed:            services.NewFeedService(userRepo, graph, postRepo, likeRepo, cfg.FeedPageSize, recorder),
		Engagement:      services.NewEngagementService(userRepo, postRepo, likeRepo, notifications, transactor, recorder),
		Notifications:   notifications,
		Posts:           content,
		Comments:        content,
		FirebaseEnabled: verifier != nil,
	})

	metricsServer := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           metrics.SetupMetricsRoute(registry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("API server listening", zap.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info("metrics server listening", zap.String("port", cfg.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(e.Shutdown(shutdownCtx), metricsServer.Shutdown(shutdownCtx))
	})

	return g.Wait()
}

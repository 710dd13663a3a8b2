package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"workforce/internal/domain/audit"
	"workforce/internal/domain/auth"
	"workforce/internal/domain/leave"
	"workforce/internal/domain/policy"
	"workforce/internal/domain/team"
	"workforce/internal/domain/timesheet"
	"workforce/internal/platform/config"
	"workforce/internal/platform/db"
	"workforce/internal/platform/logging"
	"workforce/internal/platform/metrics"
	"workforce/internal/platform/querier"
	"workforce/internal/transport/http/api"
	leavehandler "workforce/internal/transport/http/handlers/leave"
	timesheethandler "workforce/internal/transport/http/handlers/timesheet"
	"workforce/internal/transport/http/middleware"
)

// Database is the store handle the router needs: queries plus a readiness
// check. *pgxpool.Pool satisfies it.
type Database interface {
	querier.Querier
	Ping(ctx context.Context) error
}

type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type App struct {
	Config  config.Config
	Logger  *zap.Logger
	Metrics *metrics.Collector
	Router  http.Handler
}

// NewApp wires stores, services and handlers on top of database.
func NewApp(cfg config.Config, database Database, tx TxRunner, logger *zap.Logger) *App {
	logger = logging.OrNop(logger)
	collector := metrics.New()

	auditLog := audit.NewRecorder(audit.New(database), logger.Named("audit"))
	policies := policy.NewResolver(policy.NewStore(database))
	teams := team.NewService(team.NewStore(database))
	perms := auth.StaticPermissions{}

	timesheets := timesheet.NewService(timesheet.NewStore(database), tx, policies, teams, auditLog, logger.Named("timesheet"))
	leaves := leave.NewService(leave.NewStore(database), tx, teams, auditLog, logger.Named("leave"))

	tsHandler := timesheethandler.NewHandler(timesheets, policies, teams, perms, collector, logger.Named("http.timesheet"))
	lvHandler := leavehandler.NewHandler(leaves, teams, perms, collector, logger.Named("http.leave"))
	tsHandler.DefaultPageSize, tsHandler.MaxPageSize = cfg.DefaultPageSize, cfg.MaxPageSize
	lvHandler.DefaultPageSize, lvHandler.MaxPageSize = cfg.DefaultPageSize, cfg.MaxPageSize

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger.Named("http"), collector))
	router.Use(middleware.Recoverer(logger))
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	if len(cfg.CORSAllowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	router.Use(middleware.Auth(cfg.JWTSecret, logger.Named("auth")))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := database.Ping(ctx); err != nil {
			logger.Warn("readiness check failed", zap.Error(err))
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, collector.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		limitOpts := []middleware.RateLimitOption{middleware.WithLogger(logger), middleware.WithForwardedFor(cfg.TrustForwardedFor)}
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute, limitOpts...))
		r.Use(middleware.ReviewRateLimit(cfg.RateLimitPerMinute, time.Minute, limitOpts...))
		tsHandler.RegisterRoutes(r)
		lvHandler.RegisterRoutes(r)
	})

	return &App{Config: cfg, Logger: logger, Metrics: collector, Router: router}
}

// Run connects to Postgres, applies migrations when enabled and serves until
// ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	logger = logging.OrNop(logger)

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir, logger.Named("migrate")); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
	}

	app := NewApp(cfg, pool, db.NewTxManager(pool, logger.Named("tx")), logger)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("workforce server listening", zap.String("addr", cfg.Addr), zap.String("env", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

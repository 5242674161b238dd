// Package app assembles the service: config, storage, domain services, and
// the route table.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"collectrium-auth/internal/admin"
	"collectrium-auth/internal/config"
	"collectrium-auth/internal/db"
	"collectrium-auth/internal/maintenance"
	"collectrium-auth/internal/observability"
	"collectrium-auth/internal/user"
	"collectrium-auth/internal/web"
)

type Options struct {
	LoadDotEnv    bool
	RunMigrations bool
}

// Runtime is the assembled application.
type Runtime struct {
	Addr    string
	Handler http.Handler
	Logger  *zap.Logger
	Close   func() error
}

func Build(ctx context.Context, options Options) (*Runtime, error) {
	cfg, err := config.Load(options.LoadDotEnv)
	if err != nil {
		return nil, err
	}

	logger := observability.NewLogger(cfg.DevelopmentMode)

	if err := observability.InitSentry(cfg.SentryDSN, cfg.Environment); err != nil {
		logger.Error("init_sentry_failed", zap.Error(err))
	}

	if options.RunMigrations {
		if err := db.Migrate(ctx, cfg.DatabaseURL); err != nil {
			return nil, err
		}
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	store := user.NewRepository(pool)
	tokens := user.NewTokenManager(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	sessions := user.NewService(store, tokens)
	userHandler := user.NewHandler(sessions, cfg.RefreshTTL, !cfg.DevelopmentMode)
	loginLimiter := user.NewLoginRateLimiter(cfg.LoginRateMax, cfg.LoginRateWindow)

	adminRepo := admin.NewRepository(pool)
	adminHandler := admin.NewHandler(adminRepo)
	cleanupHandler := maintenance.NewCleanupHandler(adminRepo, logger, cfg.CronSecret)

	authed := func(next http.Handler) http.Handler {
		return user.Authenticate(tokens, store, next)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/users/register", userHandler.Register)
	mux.Handle("POST /api/v1/users/login", loginLimiter.Middleware(http.HandlerFunc(userHandler.Login)))
	mux.HandleFunc("GET /api/v1/users/refresh", userHandler.Refresh)
	mux.Handle("GET /api/v1/users/logout", authed(http.HandlerFunc(userHandler.Logout)))
	mux.Handle("GET /api/v1/users", authed(user.RequireRole(user.RoleUser, http.HandlerFunc(userHandler.Me))))
	mux.Handle("GET /api/v1/admin/users", authed(user.RequireRole(user.RoleAdmin, http.HandlerFunc(adminHandler.ListUsers))))
	mux.Handle("PUT /api/v1/admin/users/block", authed(user.RequireRole(user.RoleAdmin, http.HandlerFunc(adminHandler.BlockUsers))))
	mux.Handle("DELETE /api/v1/admin/users", authed(user.RequireRole(user.RoleAdmin, http.HandlerFunc(adminHandler.DeleteUsers))))
	mux.HandleFunc("GET /internal/maintenance/cleanup", cleanupHandler.Handle)
	mux.HandleFunc("POST /internal/maintenance/cleanup", cleanupHandler.Handle)
	mux.HandleFunc("GET /health", healthHandler(pool))

	handler := web.CORS(cfg.AllowedOrigins, cfg.DevelopmentMode, mux)
	handler = observability.RequestLogging(logger, handler)
	handler = observability.Recover(logger, handler)

	return &Runtime{
		Addr:    cfg.Addr,
		Handler: handler,
		Logger:  logger,
		Close: func() error {
			observability.FlushSentry()
			_ = logger.Sync()
			pool.Close()
			return nil
		},
	}, nil
}

func healthHandler(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := pool.Ping(ctx); err != nil {
			web.Error(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
		web.JSON(w, http.StatusOK, map[string]string{"time": time.Now().UTC().Format(time.RFC3339)}, "ok")
	}
}

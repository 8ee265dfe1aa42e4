package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"users_sheet/internal/api"
	"users_sheet/internal/api/session"
	"users_sheet/internal/app/service"
	"users_sheet/internal/common/security"
	"users_sheet/internal/domain/model"
	"users_sheet/internal/domain/repository"
	"users_sheet/internal/platform/config"
	"users_sheet/internal/platform/database"
	"users_sheet/internal/platform/kv"
	"users_sheet/internal/platform/logging"
	"users_sheet/internal/platform/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// 1. Configuration and logging
	config.Load()
	cfg := config.AppConfig
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Database
	db, err := database.Connect(ctx, cfg.DBConnStr, cfg.DBMaxOpenConns)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	logger.Info("database ready", slog.String("host", cfg.DBHost), slog.String("name", cfg.DBName))

	// 3. Key/value store for selection snapshots and revoked sessions
	var store kv.Store
	if cfg.RedisAddr != "" {
		rdb, err := kv.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		store = kv.NewRedisStore(rdb)
		logger.Info("redis connected", slog.String("addr", cfg.RedisAddr))
	} else {
		maxTTL := max(cfg.SessionTTL, cfg.SelectionTTL)
		store = kv.NewMemoryStore(cfg.MemoryStoreSize, maxTTL)
		logger.Warn("REDIS_ADDR is empty, using in-process store; run a single instance only")
	}

	// 4. Repositories
	accountRepo := repository.NewPgAccountRepository(db)
	roleRepo := repository.NewPgRoleRepository(db)
	selectionRepo := repository.NewSelectionRepository(store, cfg.SelectionTTL)

	if err := roleRepo.CreateRole(ctx, model.ActiveRole); err != nil {
		return err
	}

	// 5. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// 6. Sessions and services
	codec := security.NewTokenCodec(cfg.SessionSecret, cfg.SessionTTL)
	sessions := session.NewManager(codec, store, session.CookieOptions{
		Name:   cfg.SessionCookieName,
		Secure: cfg.SessionCookieSecure,
	}, logger)

	authService := service.NewAuthService(accountRepo, roleRepo, sessions, service.Paths{
		Landing: cfg.DefaultLandingPath,
		SignIn:  cfg.SignInPath,
	}, logger, m)
	selectionService := service.NewSelectionService(accountRepo, sessions, selectionRepo, logger)
	adminService := service.NewAdminService(accountRepo, roleRepo, sessions, selectionService, logger, m)

	// 7. Router and HTTP server
	router := api.NewRouter(authService, adminService, sessions, m, reg, api.Paths{
		SignIn:       cfg.SignInPath,
		AccessDenied: cfg.AccessDeniedPath,
	}, logger)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("port", cfg.APIPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// 8. Graceful shutdown
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped gracefully")
	return nil
}

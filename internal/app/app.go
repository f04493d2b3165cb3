package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-mod-console/internal/config"
	"go-mod-console/internal/database"
	"go-mod-console/internal/event"
	"go-mod-console/internal/executor"
	"go-mod-console/internal/handler"
	"go-mod-console/internal/middleware"
	"go-mod-console/internal/repository"
	"go-mod-console/internal/router"
	"go-mod-console/internal/service"
	"go-mod-console/internal/websocket"
)

type App struct {
	server       *http.Server
	db           *database.DB
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	tokenRepo := repository.NewTokenRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	operationRepo := repository.NewOperationRepository(pool)
	slog.Info("database ready")

	authService, err := service.NewAuthService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL, userRepo, tokenRepo)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}
	if err := authService.EnsureDefaultAdmin(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed default admin: %w", err)
	}
	authMiddleware := middleware.NewAuthMiddleware(authService)
	authHandler := handler.NewAuthHandler(authService)

	bus := event.NewBus()
	hub := websocket.NewHub(bus)
	go hub.Run()

	executors := executor.NewHTTPRegistry(
		cfg.ExecutorBaseURL,
		cfg.ExecutorAccountsPath,
		cfg.ExecutorMediaPath,
		cfg.ExecutorEventsPath,
		cfg.ExecutorTimeout,
	)

	auditService := service.NewAuditService(auditRepo)
	auditHandler := handler.NewAuditHandler(auditService)

	engine := service.NewExecutionService(executors)
	retryService := service.NewRetryService(engine)
	sessionService := service.NewSessionService(engine, retryService, auditService, operationRepo, bus)
	sessionHandler := handler.NewSessionHandler(sessionService)
	operationsHandler := handler.NewOperationsHandler(sessionService)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	go sessionService.StartCleanupTicker(cleanupCtx, cfg.SessionTTL, cfg.SessionSweepInterval)

	healthCheck := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return db.Health(ctx)
	}

	appRouter := router.New(cfg, authMiddleware, authHandler, sessionHandler, operationsHandler, auditHandler, hub, healthCheck)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		db:     db,
		cleanupFuncs: []func(){
			func() {
				db.Close()
			},
			func() {
				cleanupCancel()
			},
		},
	}, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

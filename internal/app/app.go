package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/igarcialujan/user-management-api/internal/auth"
	"github.com/igarcialujan/user-management-api/internal/config"
	"github.com/igarcialujan/user-management-api/internal/database"
	"github.com/igarcialujan/user-management-api/internal/event"
	"github.com/igarcialujan/user-management-api/internal/handler"
	"github.com/igarcialujan/user-management-api/internal/middleware"
	"github.com/igarcialujan/user-management-api/internal/observability"
	"github.com/igarcialujan/user-management-api/internal/repository"
	"github.com/igarcialujan/user-management-api/internal/router"
	"github.com/igarcialujan/user-management-api/internal/security"
	"github.com/igarcialujan/user-management-api/internal/service"
	"github.com/igarcialujan/user-management-api/internal/validation"
)

type App struct {
	cfg          *config.Config
	server       *http.Server
	authService  *service.AuthService
	cleanupFuncs []func(context.Context)
}

type stores struct {
	users    service.UserStore
	tokens   service.RefreshTokenStore
	activity service.ActivityStore
	pinger   handler.Pinger
	close    func()
}

// New wires the application. With the postgres driver it blocks until the
// database answers (bounded by the retry policy) and the schema is current.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}

	shutdownTracer, err := observability.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.cleanupFuncs = append(a.cleanupFuncs, func(ctx context.Context) {
		if err := shutdownTracer(ctx); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	})

	var (
		metrics  *observability.Metrics
		gatherer prometheus.Gatherer
	)
	if cfg.MetricsEnabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = observability.NewMetrics(registry)
		gatherer = registry
	}

	st, err := openStores(ctx, cfg, metrics)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	a.cleanupFuncs = append(a.cleanupFuncs, func(context.Context) { st.close() })

	hasher, err := security.NewBcryptHasher(cfg.BcryptCost)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("failed to initialize password hasher: %w", err)
	}

	tokens, err := auth.NewManager(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("failed to initialize token manager: %w", err)
	}

	auditService := service.NewAuditService(st.activity)
	bus := event.NewBus()
	events, unsubscribe := bus.Subscribe()
	recorded := make(chan struct{})
	go func() {
		defer close(recorded)
		auditService.Record(events)
	}()
	a.cleanupFuncs = append(a.cleanupFuncs, func(ctx context.Context) {
		unsubscribe()
		select {
		case <-recorded:
		case <-ctx.Done():
			slog.Warn("activity recorder did not drain before shutdown")
		}
	})

	userService, err := service.NewUserService(st.users, st.tokens, hasher, validation.New())
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("failed to initialize user service: %w", err)
	}
	userService.WithEvents(bus)

	authService, err := service.NewAuthService(st.users, st.tokens, hasher, tokens, metrics)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}
	authService.WithEvents(bus)
	a.authService = authService

	appRouter := router.New(cfg, router.Deps{
		AuthMiddleware: middleware.NewAuthMiddleware(authService, handler.WriteError),
		AuthHandler:    handler.NewAuthHandler(authService),
		UserHandler:    handler.NewUserHandler(userService),
		AuditHandler:   handler.NewAuditHandler(auditService),
		HealthHandler:  handler.NewHealthHandler(st.pinger),
		Metrics:        metrics,
		Gatherer:       gatherer,
	})

	a.server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return a, nil
}

func openStores(ctx context.Context, cfg *config.Config, metrics *observability.Metrics) (stores, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		slog.Warn("using in-memory store; data is lost on restart")
		users := repository.NewMemoryUserRepository()
		return stores{
			users:    users,
			tokens:   repository.NewMemoryTokenRepository(),
			activity: repository.NewMemoryAuditRepository(),
			pinger:   users,
			close:    func() {},
		}, nil

	case config.StoreDriverPostgres:
		slog.Info("connecting to PostgreSQL")
		db, err := database.Connect(ctx, database.Options{
			URL:         cfg.DatabaseURL,
			MaxConns:    cfg.DBMaxConns,
			MinConns:    cfg.DBMinConns,
			MaxAttempts: cfg.DBConnectMaxAttempts,
			MaxInterval: cfg.DBConnectMaxInterval,
		})
		if err != nil {
			return stores{}, fmt.Errorf("failed to connect to database: %w", err)
		}

		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return stores{}, fmt.Errorf("failed to migrate database: %w", err)
		}

		slog.Info("database ready")
		return stores{
			users:    repository.NewUserRepository(db.Pool, metrics),
			tokens:   repository.NewTokenRepository(db.Pool, metrics),
			activity: repository.NewAuditRepository(db.Pool, metrics),
			pinger:   db,
			close:    db.Close,
		}, nil

	default:
		return stores{}, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run serves until SIGINT/SIGTERM or a listener failure, then shuts down.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	defer cancelCleanup()
	go a.runTokenCleanup(cleanupCtx, a.cfg.TokenCleanupInterval)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("graceful shutdown failed: %w", err)
	}
	cancelCleanup()
	a.close(shutdownCtx)

	slog.Info("server stopped")
	return runErr
}

// Close releases stores and exporters without starting the server.
func (a *App) Close(ctx context.Context) {
	a.close(ctx)
}

func (a *App) close(ctx context.Context) {
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i](ctx)
	}
	a.cleanupFuncs = nil
}

func (a *App) runTokenCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := a.authService.CleanExpiredTokens(ctx)
			if err != nil {
				slog.Warn("refresh token cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				slog.Info("expired refresh tokens removed", "count", removed)
			}
		}
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"dailyindex/internal/config"
	apierrors "dailyindex/internal/errors"
	"dailyindex/internal/infrastructure"
	customMiddleware "dailyindex/internal/middleware"
	"dailyindex/internal/services"
	handlers "dailyindex/internal/transport/http"
	ws "dailyindex/internal/websocket"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	ErrorHandler  *apierrors.ErrorHandler
	IndexService  *services.IndexService
	HealthService *services.HealthService
	WebSocketHub  *ws.Hub
}

// New loads configuration, initializes the global logger and builds the
// application.
func New() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return NewApplication(cfg, logger)
}

// NewApplication wires every component for cfg and loads the seed table. A
// seed that cannot be read or parsed is fatal.
func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))

	otelProviders, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Level == "debug"),
	}

	if err := app.initializeServices(); err != nil {
		otelProviders.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()
	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	metrics, err := infrastructure.CreateBusinessMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create business metrics: %w", err)
	}
	a.Metrics = metrics

	wsMetrics, err := ws.NewMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create websocket metrics: %w", err)
	}
	a.WebSocketHub = ws.NewHub(a.Logger, ws.WithConfig(a.Config.WebSocket), ws.WithMetrics(wsMetrics))
	a.WebSocketHub.Start()

	seed := services.FileSeed(a.Config.SeedPath())
	a.IndexService = services.NewIndexService(seed, a.Config.Data.ValidIndices,
		services.WithLogger(a.Logger),
		services.WithMetrics(metrics),
		services.WithNotifier(a.WebSocketHub),
		services.WithTracer(a.OTelProviders.Tracer),
	)
	if err := a.IndexService.Load(context.Background()); err != nil {
		a.WebSocketHub.Stop()
		return fmt.Errorf("failed to load seed table: %w", err)
	}

	a.HealthService = services.NewHealthService(config.AppVersion, a.IndexService, a.WebSocketHub, a.Logger)
	return nil
}

// setupRouter configures the HTTP router with all routes. Order:
// RequestID → RealIP → OTel → Logger → Recoverer → Security → CORS →
// RateLimit → Timeout.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	// The websocket route must not sit behind writers that break Hijack
	wsHandler := handlers.NewWebSocketHandler(a.WebSocketHub, a.Config.WebSocket,
		a.Config.Security.AllowedOrigins, a.Logger, a.ErrorHandler)
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).Get("/ws", wsHandler.ServeHTTP)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger, a.ErrorHandler))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
				AllowedOrigins: a.Config.Security.AllowedOrigins,
				ExposedHeaders: []string{handlers.RequestedIndexHeader, customMiddleware.RequestIDHeader},
				MaxAge:         300,
				Logger:         a.Logger,
			}))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
				a.ErrorHandler,
			).Handler)
		}

		if a.Config.Server.RequestTimeout > 0 {
			r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))
		}

		handlers.NewDocsHandler(config.AppVersion).RegisterRoutes(r)
		handlers.NewHealthHandler(a.HealthService, a.Logger).RegisterRoutes(r)
		handlers.NewIndexHandler(a.IndexService, a.Config.Server.MaxUploadBytes, a.Logger, a.ErrorHandler).RegisterRoutes(r)
	})

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.Router = r
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start serves on ln in the background. Serve errors other than a clean
// shutdown call cancel.
func (a *Application) Start(ctx context.Context, ln net.Listener, cancel context.CancelFunc) {
	a.Logger.InfoContext(ctx, "Application started",
		slog.String("address", ln.Addr().String()),
		slog.String("seed", a.IndexService.Stats().Seed),
		slog.Int("entries", a.IndexService.Stats().Entries))

	go func() {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	a.WebSocketHub.Stop()

	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

// Run serves until SIGINT, SIGTERM or a fatal server error.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.Server.Addr, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.Start(runCtx, ln, cancel)

	<-runCtx.Done()
	a.Logger.Info("Received shutdown signal")

	err = a.Stop(context.Background())
	if closeErr := infrastructure.CloseLogFile(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}
	return err
}

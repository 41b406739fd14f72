package app

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"segmentcli/internal/config"
	apierrors "segmentcli/internal/errors"
	"segmentcli/internal/exporter"
	"segmentcli/internal/infrastructure"
	customMiddleware "segmentcli/internal/middleware"
	"segmentcli/internal/publisher"
	"segmentcli/internal/segmentation"
	"segmentcli/internal/services"
	"segmentcli/internal/store"
	handlers "segmentcli/internal/transport/http"
	ws "segmentcli/internal/websocket"
)

var (
	// BuildTime is set at compile time with -ldflags "-X segmentcli/internal/app.BuildTime=..."
	BuildTime = ""
	// BuildID is a unique identifier for this build
	BuildID = generateBuildID()
)

func generateBuildID() string {
	h := sha256.New()
	h.Write([]byte(config.AppVersion))
	h.Write([]byte(time.Now().Format("2006-01-02")))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// Application represents the segmentation server and its dependencies
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        chi.Router
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Services      *ServiceContainer
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Segmentation *services.SegmentationService
	Health       *services.HealthService
	Runs         *services.RunStore
	WebSocket    *ws.Hub
	Store        *store.Store
	Publisher    *publisher.Publisher
}

// NewApplication wires the server from cfg. The logger should already be
// initialized from cfg.Logging.
func NewApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	logger.InfoContext(ctx, "Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("build_id", BuildID))

	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	if err := a.initializeServices(ctx); err != nil {
		a.closeServices(ctx)
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := a.setupRouter(); err != nil {
		a.closeServices(ctx)
		return nil, fmt.Errorf("failed to set up router: %w", err)
	}
	a.createServer()

	return a, nil
}

// initializeServices builds the hub, the optional store and publisher, and
// the segmentation and health services
func (a *Application) initializeServices(ctx context.Context) error {
	c := &ServiceContainer{Runs: services.NewRunStore(services.DefaultRunCapacity)}
	a.Services = c

	c.WebSocket = ws.NewHub(a.Logger)
	if wsMetrics, err := ws.NewMetrics(a.OTelProviders.Meter); err == nil {
		c.WebSocket.SetMetrics(wsMetrics)
	} else {
		a.Logger.WarnContext(ctx, "websocket metrics unavailable", slog.String("error", err.Error()))
	}
	c.WebSocket.Start()

	segmenter := segmentation.NewSegmenter(segmentation.NewConfig(a.Config.Segmentation), a.Logger)
	segmenter.SetTracer(a.OTelProviders.Tracer)
	if m, err := segmentation.NewMetrics(a.OTelProviders.Meter); err == nil {
		segmenter.SetMetrics(m)
	} else {
		a.Logger.WarnContext(ctx, "segmentation metrics unavailable", slog.String("error", err.Error()))
	}

	opts := []services.Option{
		services.WithHub(c.WebSocket),
		services.WithPaths(a.Paths),
		services.WithOutputFormat(exporter.FormatBoth),
		services.WithTimeout(a.Config.Server.OperationTimeout),
	}

	var database services.Pinger
	if a.Config.Database.Enabled {
		st, err := store.Open(ctx, a.Config.Database, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to open report store: %w", err)
		}
		if err := st.EnsureSchema(ctx); err != nil {
			st.Close()
			return fmt.Errorf("failed to prepare report store: %w", err)
		}
		c.Store = st
		database = st
		opts = append(opts, services.WithStore(st))
	}

	if a.Config.Kafka.Enabled {
		pub, err := publisher.NewFromConfig(a.Config.Kafka, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to create publisher: %w", err)
		}
		c.Publisher = pub
		opts = append(opts, services.WithPublisher(pub))
	}

	c.Segmentation = services.NewSegmentationService(segmenter, c.Runs, a.Logger, opts...)
	c.Health = services.NewHealthService(config.AppVersion, BuildTime, a.Paths.DataDir, c.Runs, c.WebSocket, database, a.Logger)

	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() error {
	errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
	if err != nil {
		return err
	}

	a.Router = handlers.NewRouter(handlers.RouterConfig{
		Config:       a.Config,
		Segmentation: a.Services.Segmentation,
		Health:       a.Services.Health,
		ErrorHandler: errorHandler,
		WebSocket:    ws.NewHandler(a.Services.WebSocket, a.Config.WebSocket, a.Config.Security.AllowedOrigins, a.Logger),
		Metrics:      a.OTelProviders.PrometheusHTTP,
		OTel:         otelMiddleware,
		Logger:       a.Logger,
	})
	return nil
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

// Start starts serving in the background. cancel is called when the
// listener fails.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting server",
		slog.String("address", a.Server.Addr),
		slog.Bool("database", a.Services.Store != nil),
		slog.Bool("kafka", a.Services.Publisher != nil))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}

	a.closeServices(shutdownCtx)

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

func (a *Application) closeServices(ctx context.Context) {
	c := a.Services
	if c == nil {
		return
	}
	if c.WebSocket != nil {
		c.WebSocket.Stop()
	}
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			a.Logger.ErrorContext(ctx, "Error closing publisher", slog.String("error", err.Error()))
		}
	}
	if c.Store != nil {
		c.Store.Close()
	}
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}

package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"segmentcli/internal/config"
	apierrors "segmentcli/internal/errors"
	"segmentcli/internal/middleware"
)

// RouterConfig collects what the API router serves
type RouterConfig struct {
	Config       *config.Config
	Segmentation SegmentationServiceInterface
	Health       HealthServiceInterface
	ErrorHandler *apierrors.ErrorHandler

	// Optional
	WebSocket http.Handler
	Metrics   http.Handler
	OTel      *middleware.OTelMiddleware

	Logger *slog.Logger
}

// NewRouter builds the chi router of the segmentation API. Middleware order:
// RequestID, RealIP, then for everything except the WebSocket OTel, logging,
// recovery, security headers, CORS and rate limiting.
func NewRouter(rc RouterConfig) chi.Router {
	logger := rc.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := rc.Config
	if cfg == nil {
		cfg = config.Default()
	}
	errorHandler := rc.ErrorHandler
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, cfg.Logging.Development)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	// The upgrade must reach the hub without response writer wrappers
	if rc.WebSocket != nil {
		r.Handle(config.WebSocketEndpoint, rc.WebSocket)
	}
	if rc.Metrics != nil {
		r.Handle(config.MetricsEndpoint, rc.Metrics)
	}

	r.Group(func(r chi.Router) {
		if rc.OTel != nil {
			r.Use(rc.OTel.Handler)
		}
		r.Use(apierrors.RequestLogger(logger))
		r.Use(apierrors.RecoveryMiddleware(errorHandler))
		r.Use(middleware.Chain(
			middleware.DefaultSecureHeaders().Handler,
			middleware.CORS(cfg.Security),
		)...)
		if rl := middleware.NewRateLimiterFromConfig(cfg.Security.RateLimit, errorHandler, logger); rl != nil {
			r.Use(rl.Handler)
		}
		r.Use(render.SetContentType(render.ContentTypeJSON))

		health := NewHealthHandler(rc.Health, logger)
		r.Get(config.HealthEndpoint, health.LivenessCheck)
		r.Get(config.ReadyEndpoint, health.ReadinessCheck)

		r.Route(config.APIBasePath, func(r chi.Router) {
			r.Get("/version", health.Version)

			validator := middleware.NewValidator(logger, errorHandler)
			segmentations := NewSegmentationHandler(rc.Segmentation, validator, errorHandler, cfg.Server.MaxUploadBytes, logger)
			r.Mount(strings.TrimPrefix(config.SegmentationsEndpoint, config.APIBasePath), segmentations.Routes())
		})
	})

	return r
}

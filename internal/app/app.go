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
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"demandcast/internal/config"
	"demandcast/internal/dataset"
	apierrors "demandcast/internal/errors"
	"demandcast/internal/forecast"
	"demandcast/internal/infrastructure"
	customMiddleware "demandcast/internal/middleware"
	"demandcast/internal/services"
	handlers "demandcast/internal/transport/http"
	ws "demandcast/internal/websocket"
)

// buildID falls back to a digest of version and day when no ID was
// linked in
func buildID() string {
	if config.BuildID != "" && config.BuildID != "dev" {
		return config.BuildID
	}
	h := sha256.New()
	h.Write([]byte(config.AppVersion))
	h.Write([]byte(time.Now().Format("2006-01-02")))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// Options are the command line overrides of the configuration
type Options struct {
	// ConfigPath is an explicit YAML file; empty searches the default locations
	ConfigPath string
	// Sources replace data.sources when non-empty
	Sources []string
	// Model overrides the forecasting model, nil means go-forecaster
	Model forecast.ModelFactory
}

// LoadConfig resolves the configuration for opts
func LoadConfig(opts Options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigPath != "" {
		cfg, err = config.LoadFile(opts.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if len(opts.Sources) > 0 {
		cfg.Data.Sources = opts.Sources
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}
	return cfg, nil
}

// Pipeline is the loader and forecast service shared by the web server
// and the terminal interface
type Pipeline struct {
	Loader    *dataset.Loader
	Forecasts *services.ForecastService
}

// NewPipeline wires loader, engine and service. The dataset is not loaded.
func NewPipeline(cfg *config.Config, model forecast.ModelFactory, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) (*Pipeline, error) {
	loader, err := dataset.NewLoader(cfg.Data, logger)
	if err != nil {
		return nil, err
	}
	engine := forecast.NewEngine(model, cfg.Forecast.CadenceDays, metrics, logger)
	return &Pipeline{
		Loader:    loader,
		Forecasts: services.NewForecastService(nil, engine, cfg.Forecast, metrics, logger),
	}, nil
}

// Load reads every source and installs the table
func (p *Pipeline) Load(ctx context.Context) error {
	table, err := p.Loader.Load(ctx)
	if err != nil {
		return err
	}
	p.Forecasts.SetTable(table)
	return nil
}

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics

	Pipeline      *Pipeline
	HealthService *services.HealthService
	WebSocketHub  *ws.Hub
	ErrorHandler  *apierrors.ErrorHandler

	Router *chi.Mux
	Server *http.Server
}

// NewApplication loads configuration and logging, then builds the
// application
func NewApplication(opts Options) (*Application, error) {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, opts.Model, logger)
}

// New builds the application from a resolved configuration
func New(cfg *config.Config, model forecast.ModelFactory, logger *slog.Logger) (*Application, error) {
	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.Any("sources", cfg.Data.Sources))

	otelProviders, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
	}

	if err := a.initializeServices(model); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	a.setupRouter()
	a.createServer()

	return a, nil
}

func (a *Application) initializeServices(model forecast.ModelFactory) error {
	pipeline, err := NewPipeline(a.Config, model, a.Metrics, a.Logger)
	if err != nil {
		return err
	}
	a.Pipeline = pipeline

	a.WebSocketHub = ws.NewHub(a.Logger)
	a.HealthService = services.NewHealthService(config.AppVersion, config.BuildTime, buildID(),
		pipeline.Forecasts, a.WebSocketHub, a.Logger)
	a.ErrorHandler = apierrors.NewErrorHandler(a.Logger, false)
	return nil
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	// upgraded connections outlive any request timeout
	r.Handle("/ws", ws.NewHandler(a.WebSocketHub, a.Pipeline.Forecasts, a.Config.WebSocket,
		a.Config.Security.AllowedOrigins, a.Logger))

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(a.corsConfig()))

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

		forecasts := a.Pipeline.Forecasts
		r.Get("/", handlers.NewPageHandler(forecasts, a.Logger).ServePage)
		a.setupAPIRoutes(r)
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.Router = r
}

func (a *Application) setupAPIRoutes(r chi.Router) {
	forecasts := a.Pipeline.Forecasts

	r.Route("/api", func(r chi.Router) {
		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/version", healthHandler.Version)

		r.Mount("/forecast", handlers.NewForecastHandler(forecasts, a.Logger, a.ErrorHandler).Routes())

		handlers.NewDatasetHandler(forecasts, a.Logger, a.ErrorHandler).RegisterRoutes(r)
	})
}

func (a *Application) corsConfig() customMiddleware.CORSConfig {
	cfg := customMiddleware.CORSConfig{
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		ExposedHeaders: []string{customMiddleware.RequestIDHeader, "ETag", "Content-Disposition"},
		MaxAge:         300,
	}
	if a.Config.Security.EnableCORS {
		cfg.AllowedOrigins = a.Config.Security.AllowedOrigins
	}
	return cfg
}

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

// Start serves HTTP and loads the dataset in the background. A load
// failure is fatal: it is logged and cancel is called.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	go func() {
		if err := a.Pipeline.Load(ctx); err != nil {
			a.Logger.ErrorContext(ctx, "Dataset could not be loaded", slog.String("error", err.Error()))
			cancel()
			return
		}
		a.Logger.InfoContext(ctx, "Application ready",
			slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	}()

	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if err := a.WebSocketHub.Shutdown(shutdownCtx); err != nil {
		a.Logger.WarnContext(ctx, "WebSocket sessions did not close in time", slog.String("error", err.Error()))
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return infrastructure.CloseLogFile()
}

// Run runs the application until interrupted or a fatal startup error
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
		stopErr := a.Stop(context.Background())
		return errors.Join(errors.New("application stopped after a fatal error"), stopErr)
	}

	return a.Stop(ctx)
}

// SourceList is a repeatable -source flag
type SourceList []string

// String implements flag.Value
func (s *SourceList) String() string {
	return strings.Join(*s, ",")
}

// Set implements flag.Value
func (s *SourceList) Set(v string) error {
	if strings.TrimSpace(v) == "" {
		return errors.New("source must not be empty")
	}
	*s = append(*s, v)
	return nil
}

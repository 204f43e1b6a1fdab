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

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"sitekit/internal/config"
	apperrors "sitekit/internal/errors"
	"sitekit/internal/forms"
	"sitekit/internal/infrastructure"
	customMiddleware "sitekit/internal/middleware"
	"sitekit/internal/rest"
	"sitekit/internal/security"
	"sitekit/internal/services"
	"sitekit/internal/templates"
	"sitekit/internal/toolbar"
	handlers "sitekit/internal/transport/http"
	ws "sitekit/internal/websocket"
	"sitekit/pkg/contracts"
)

// Version and BuildTime are overridable at link time.
var (
	Version   = "0.3.0"
	BuildTime = ""
)

// Application wires configuration, services, middleware and the HTTP
// server into one runnable unit.
type Application struct {
	Config   *config.Config
	Router   *chi.Mux
	Server   *http.Server
	Logger   *slog.Logger
	Store    *templates.Store
	Hub      *ws.Hub
	Toolbar  *toolbar.Toolbar
	Services *ServiceContainer

	otel          *infrastructure.OTelProviders
	codec         *security.Codec
	requestsPanel *toolbar.RequestsPanel
}

// ServiceContainer holds the application services.
type ServiceContainer struct {
	Pages    *services.PageService
	Contacts *services.ContactService
	Users    *services.UserService
	Health   *services.HealthService
}

// New loads configuration and builds the application.
func New() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig builds the application from an already-validated
// configuration. Tests use this to inject their own settings.
func NewWithConfig(cfg *config.Config) (*Application, error) {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("site", cfg.Site.Name),
		slog.String("version", Version))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Observability), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	app := &Application{
		Config: cfg,
		Logger: logger,
		otel:   otelProviders,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	if err := app.setupRouter(); err != nil {
		return nil, fmt.Errorf("failed to set up router: %w", err)
	}
	app.createServer()

	return app, nil
}

// initializeServices builds the service layer in dependency order.
func (a *Application) initializeServices() error {
	cfg := a.Config

	if cfg.Security.SessionSecret != "" {
		codec, err := security.NewCodec(cfg.Security.SessionSecret, cfg.Security.SessionCookie, cfg.Security.SessionTTL)
		if err != nil {
			return fmt.Errorf("session codec: %w", err)
		}
		a.codec = codec
	}

	users, err := services.NewUserService(cfg.Users, a.Logger)
	if err != nil {
		return fmt.Errorf("user directory: %w", err)
	}

	var clientCounter func() int
	if cfg.Toolbar.Enabled {
		a.Hub = ws.NewHub(a.Logger)
		clientCounter = a.Hub.ClientCount
	}

	a.Services = &ServiceContainer{
		Pages:    services.NewPageService(cfg.Site.ContentDir, a.Logger),
		Contacts: services.NewContactService(a.Logger),
		Users:    users,
		Health:   services.NewHealthService(Version, BuildTime, clientCounter),
	}

	return nil
}

// setupRouter assembles the middleware chain and all routes.
func (a *Application) setupRouter() error {
	cfg := a.Config

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.otel)
	if err != nil {
		return fmt.Errorf("otel middleware: %w", err)
	}

	a.Store = templates.NewStore(
		os.DirFS(cfg.Templates.Dir),
		templates.Site{Name: cfg.Site.Name, BaseURL: cfg.Site.BaseURL},
		a.Logger,
		templates.WithMetrics(otelMiddleware.Metrics()),
		templates.WithResolver(a.urlResolver()),
		templates.WithDecorator(forms.DecorateErrors),
	)

	errorHandler := apperrors.NewErrorHandler(a.Logger, cfg.Logging.Development)

	r := chi.NewRouter()
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(otelMiddleware.Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger, errorHandler))
	r.Use(customMiddleware.SecurityHeaders)

	if cfg.Security.EnableCORS {
		r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
			AllowedOrigins:   cfg.Security.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
			Logger:           a.Logger,
		}))
	}

	if a.codec != nil {
		r.Use(customMiddleware.CurrentUser(a.codec, a.Services.Users, a.Logger))
	}

	if cfg.Toolbar.Enabled {
		a.requestsPanel = toolbar.NewRequestsPanel(a.Hub, cfg.WebSocket, cfg.Toolbar.HistorySize, a.Logger)
		r.Use(customMiddleware.RequestFeed(a.requestsPanel))
	}

	// The fallback wraps the whole route tree so it sees the router's
	// own 404s; handler-raised 404s carry the dispatch marker and pass
	// through untouched.
	r.Use(customMiddleware.Fallback(customMiddleware.FallbackConfig{
		Store:       a.Store,
		AppendSlash: cfg.Templates.AppendSlash,
		Logger:      a.Logger,
		Metrics:     otelMiddleware.Metrics(),
	}))

	a.setupAPIRoutes(r, errorHandler)
	a.setupSiteRoutes(r)

	if a.otel.PrometheusHTTP != nil {
		r.With(customMiddleware.MarkDispatched).Handle("/metrics", a.otel.PrometheusHTTP)
	}

	if cfg.Toolbar.Enabled {
		a.Toolbar = toolbar.New(cfg.Toolbar.PathPrefix, a.Logger,
			toolbar.NewUserPanel(a.Services.Users, a.codec, a.Logger),
			a.requestsPanel,
		)
		r.With(customMiddleware.MarkDispatched).Mount(cfg.Toolbar.PathPrefix, a.Toolbar.Routes())
	}

	a.Router = r
	return nil
}

// setupAPIRoutes mounts the REST resources under /api/v1.
func (a *Application) setupAPIRoutes(r chi.Router, errorHandler *apperrors.ErrorHandler) {
	cfg := a.Config

	fatal := rest.WithFatalHandler(errorHandler.HandleError)

	r.Route("/api/"+contracts.APIVersion, func(r chi.Router) {
		r.Use(customMiddleware.MarkDispatched)

		if cfg.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				cfg.Security.RateLimit.RPS,
				cfg.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.Handle("/pages", rest.Resource(handlers.NewPagesResource(a.Services.Pages, a.Logger), fatal))
		r.Handle("/contact", rest.Resource(handlers.NewContactResource(a.Services.Contacts, a.Logger), fatal))
		if a.codec != nil {
			r.Handle("/auth", rest.Resource(handlers.NewAuthResource(a.Services.Users, a.codec, a.Logger), fatal))
		}
	})

	healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)
	r.With(customMiddleware.MarkDispatched).Get("/healthz", healthHandler.HealthCheck)
	r.With(customMiddleware.MarkDispatched).Get("/version", healthHandler.Version)
}

// setupSiteRoutes serves static assets and the server-rendered contact
// form. Content pages have no routes of their own: the fallback
// resolves them from the template store.
func (a *Application) setupSiteRoutes(r chi.Router) {
	contactPage := handlers.NewContactPage(a.Services.Contacts, a.Store, a.Logger)
	r.With(customMiddleware.MarkDispatched).Get("/contact", contactPage.Show)
	r.With(customMiddleware.MarkDispatched).Post("/contact", contactPage.Submit)

	staticDir := a.Config.Site.StaticDir
	if staticDir == "" {
		return
	}
	r.Route("/static", func(r chi.Router) {
		r.Use(customMiddleware.MarkDispatched)
		r.Use(customMiddleware.Compress(5))
		r.Handle("/*", http.StripPrefix("/static", http.FileServer(http.Dir(staticDir))))
	})
}

// urlResolver reverses the named URLs templates may reference.
func (a *Application) urlResolver() templates.URLResolver {
	names := map[string]string{
		"home":         "/",
		"healthz":      "/healthz",
		"version":      "/version",
		"pages":        "/api/v1/pages",
		"contact":      "/api/v1/contact",
		"contact_form": "/contact",
		"auth":         "/api/v1/auth",
	}
	if a.Config.Toolbar.Enabled {
		names["toolbar"] = a.Config.Toolbar.PathPrefix
	}
	return templates.ResolverFunc(func(name string, args ...string) (string, error) {
		url, ok := names[name]
		if !ok {
			return "", fmt.Errorf("unknown url name %q", name)
		}
		return url, nil
	})
}

// createServer creates the HTTP server.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Run serves until the context is cancelled or a signal arrives, then
// shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	if a.Hub != nil {
		g.Go(func() error {
			a.Hub.Run(ctx)
			return nil
		})
	}

	if a.Config.Templates.Reload {
		g.Go(func() error {
			err := a.Store.Watch(ctx, a.Config.Templates.Dir)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		return a.shutdown()
	})

	return g.Wait()
}

// shutdown drains the server and flushes observability state.
func (a *Application) shutdown() error {
	a.Logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	if a.otel != nil {
		if err := a.otel.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("otel shutdown: %w", err))
		}
	}
	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, fmt.Errorf("close log file: %w", err))
	}

	a.Logger.Info("shutdown complete")
	return errors.Join(errs...)
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpHandlers "github.com/bibliodesign/site/internal/adapters/http"
	"github.com/bibliodesign/site/internal/adapters/repository"
	"github.com/bibliodesign/site/internal/adapters/storage"
	"github.com/bibliodesign/site/internal/application/services"
	"github.com/bibliodesign/site/internal/domain/entities"
	"github.com/bibliodesign/site/internal/infrastructure/config"
	"github.com/bibliodesign/site/internal/infrastructure/database"
	"github.com/bibliodesign/site/internal/infrastructure/logger"
	"github.com/bibliodesign/site/internal/infrastructure/render"
	"github.com/bibliodesign/site/internal/infrastructure/session"
)

// Server represents the HTTP server
type Server struct {
	echo     *echo.Echo
	config   *config.Config
	logger   *logger.Logger
	db       *database.DB
	renderer *render.Renderer
	sessions *session.Manager
	store    session.Store
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// New creates a new server instance
func New(cfg *config.Config, db *database.DB, store session.Store, appLogger *logger.Logger) (*Server, error) {
	e := echo.New()

	// Set custom validator
	e.Validator = &CustomValidator{validator: validator.New()}

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout
	e.IPExtractor = ipExtractor(cfg.Security.TrustedProxies)

	renderer, err := render.New(cfg.Templates, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	e.Renderer = renderer

	images, err := storage.NewImageStore(cfg.Storage.ImagesDir, "/images")
	if err != nil {
		renderer.Close()
		return nil, fmt.Errorf("failed to prepare images directory: %w", err)
	}

	// Initialize repositories
	repos := repository.New(db, repository.NewIDGenerator())

	// Initialize services
	authService := services.NewAuthService(repos.Users, appLogger)
	contentService := services.NewContentService(repos.Content, appLogger)
	collectionService := services.NewCollectionService(repos, images, appLogger)
	inquiryService := services.NewInquiryService(repos.Inquiries(), appLogger)

	sessions := session.NewManager(store, cfg.Session)

	// Initialize handlers
	publicHandler := httpHandlers.NewPublicHandler(contentService, collectionService, inquiryService, appLogger)
	authHandler := httpHandlers.NewAuthHandler(authService, sessions, appLogger)
	adminHandler := httpHandlers.NewAdminHandler(contentService, collectionService, appLogger)

	server := &Server{
		echo:     e,
		config:   cfg,
		logger:   appLogger,
		db:       db,
		renderer: renderer,
		sessions: sessions,
		store:    store,
	}

	// Custom error handler
	e.HTTPErrorHandler = server.customErrorHandler

	// Setup middleware
	server.setupMiddleware()

	// Setup metrics
	if cfg.Metrics.Enabled {
		server.setupMetrics()
	}

	// Setup routes
	server.setupRoutes(publicHandler, authHandler, adminHandler)

	return server, nil
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.echo.Use(middleware.Recover())

	// Request ID middleware
	s.echo.Use(middleware.RequestID())

	// Logger middleware
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", values.Method,
				"uri", values.URI,
				"status", values.Status,
				"latency_ms", float64(values.Latency.Nanoseconds()) / 1000000,
				"remote_ip", values.RemoteIP,
				"user_agent", values.UserAgent,
				"request_id", values.RequestID,
			}

			if values.Error != nil {
				fields = append(fields, "error", values.Error.Error())
				s.logger.Errorw("HTTP request failed", fields...)
			} else {
				s.logger.Infow("HTTP request", fields...)
			}

			return nil
		},
	}))

	// Security headers
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'; img-src 'self' data:",
	}))

	// Static files from the public directory; routes handle everything else
	s.echo.Use(middleware.StaticWithConfig(middleware.StaticConfig{
		Filesystem: http.Dir(s.config.Storage.PublicDir),
		Skipper: func(c echo.Context) bool {
			method := c.Request().Method
			return method != http.MethodGet && method != http.MethodHead
		},
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(public *httpHandlers.PublicHandler, auth *httpHandlers.AuthHandler, admin *httpHandlers.AdminHandler) {
	// Health check routes
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/health/detailed", s.detailedHealthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	// Uploads may live outside the public directory
	s.echo.Static("/images", s.config.Storage.ImagesDir)

	// Public pages
	s.echo.GET("/", public.Index)
	s.echo.GET("/about", public.About)
	s.echo.GET("/services", public.Services)
	s.echo.GET("/process", public.Process)
	s.echo.GET("/portfolio", public.Portfolio)
	s.echo.GET("/contact", public.Contact)
	s.echo.POST("/contact", public.SubmitContact, s.rateLimiter())

	// Admin session routes
	s.echo.GET("/admin/login", auth.LoginPage)
	s.echo.POST("/admin/login", auth.Login, s.rateLimiter())
	s.echo.GET("/admin/logout", auth.Logout)

	// Admin panel (session required)
	s.echo.GET("/admin", s.requireAuth(admin.Dashboard))
	s.echo.GET("/admin/content", s.requireAuth(admin.ContentPage))
	s.echo.POST("/admin/content", s.requireAuth(admin.UpdateContent))

	for _, collection := range entities.Collections {
		base := "/admin/" + string(collection)

		s.echo.GET(base, s.requireAuth(admin.ListRecords(collection)))
		if collection != entities.CollectionInquiries {
			s.echo.POST(base, s.requireAuth(admin.CreateRecord(collection)))
		}
		s.echo.POST(base+"/delete/:id", s.requireAuth(admin.DeleteRecord(collection)))
	}
}

// setupMetrics configures Prometheus metrics
func (s *Server) setupMetrics() {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	documentsWritten := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_documents_written_total",
			Help: "Total number of whole-document rewrites in the data directory",
		},
		[]string{"document"},
	)

	registry.MustRegister(requestsTotal, requestDuration, documentsWritten)

	s.db.OnWrite(func(name string) {
		documentsWritten.WithLabelValues(name).Inc()
	})

	// Custom metrics middleware
	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start)
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}

			requestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				fmt.Sprintf("%d", status),
			).Inc()

			requestDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
			).Observe(duration.Seconds())

			return err
		}
	})

	// Metrics endpoint
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	s.echo.GET("/metrics", echo.WrapHandler(metricsHandler))
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) detailedHealthCheck(c echo.Context) error {
	status := "ok"
	checks := make(map[string]interface{})

	// Data directory health check
	if err := s.db.HealthCheck(); err != nil {
		status = "error"
		checks["storage"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	} else {
		checks["storage"] = map[string]interface{}{
			"status": "ok",
			"stats":  s.db.GetConnectionInfo(),
		}
	}

	// Session store health check
	if pinger, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		if err := pinger.Ping(c.Request().Context()); err != nil {
			status = "error"
			checks["sessions"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		} else {
			checks["sessions"] = map[string]interface{}{"status": "ok", "store": s.config.Session.Store}
		}
	} else {
		checks["sessions"] = map[string]interface{}{"status": "ok", "store": s.config.Session.Store}
	}

	response := map[string]interface{}{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
		"version": map[string]string{
			"app": s.config.App.Version,
			"go":  runtime.Version(),
		},
	}

	if status == "ok" {
		return c.JSON(http.StatusOK, response)
	}
	return c.JSON(http.StatusServiceUnavailable, response)
}

func (s *Server) readinessCheck(c echo.Context) error {
	// Check if server is ready to accept requests
	if err := s.db.HealthCheck(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "storage_not_ready",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Handler exposes the router, used by tests and embedding servers
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server
func (s *Server) Start(address string) error {
	s.logger.Infow("Starting server", "address", address)
	err := s.echo.Start(address)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("Shutting down server")
	err := s.echo.Shutdown(ctx)
	if cerr := s.renderer.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// customErrorHandler renders HTTP errors as the error page
func (s *Server) customErrorHandler(err error, c echo.Context) {
	var (
		code = http.StatusInternalServerError
		msg  = http.StatusText(http.StatusInternalServerError)
	)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
		if he.Internal != nil {
			err = fmt.Errorf("%v, %v", err, he.Internal)
		}
	}

	if code == http.StatusInternalServerError {
		s.logger.
			WithRequestID(c.Response().Header().Get(echo.HeaderXRequestID)).
			WithError(err).
			Errorw("Internal server error", "path", c.Request().URL.Path)
	}

	// Send response
	if c.Response().Committed {
		return
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.Render(code, "error", render.PageData{Status: code, Message: msg})
		if err != nil {
			err = c.String(code, msg)
		}
	}
	if err != nil {
		s.logger.Errorw("Error sending response", "error", err)
	}
}

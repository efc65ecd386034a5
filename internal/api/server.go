package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/emergency-assist/hospital-recommender/internal/domain"
	"github.com/emergency-assist/hospital-recommender/internal/middleware"
	"github.com/emergency-assist/hospital-recommender/internal/service"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

const defaultShutdownTimeout = 30 * time.Second

// CatalogStatus reports the health of the provider catalog.
type CatalogStatus interface {
	BreakerState() string
}

// Server represents the HTTP server
type Server struct {
	config      *domain.Config
	recommender *service.RecommendationService
	alerts      *service.AlertService
	catalog     CatalogStatus
	logger      *logrus.Logger
	router      *gin.Engine
	server      *http.Server
}

// Option customizes the server.
type Option func(*Server)

// WithAlertService exposes the alert routes.
func WithAlertService(alerts *service.AlertService) Option {
	return func(s *Server) { s.alerts = alerts }
}

// WithCatalogStatus adds the catalog breaker state to the health report.
func WithCatalogStatus(status CatalogStatus) Option {
	return func(s *Server) { s.catalog = status }
}

// NewServer creates a new HTTP server instance
func NewServer(cfg *domain.Config, recommender *service.RecommendationService, logger *logrus.Logger, opts ...Option) *Server {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(corsMiddleware(cfg.Server.AllowedOrigins))

	s := &Server{
		config:      cfg,
		recommender: recommender,
		logger:      logger,
		router:      router,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.config.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	v1.Use(middleware.OptionalJWTAuth(s.config.Auth))
	v1.Use(middleware.NewRateLimiter(s.config.RateLimit).Middleware())
	{
		v1.POST("/symptoms/classify", s.handleClassify)
		v1.POST("/hospitals/recommend", s.handleRecommend)
		v1.GET("/hospitals", s.handleListHospitals)
		v1.GET("/hospitals/:id", s.handleGetHospital)
	}

	if s.alerts == nil {
		return
	}
	alerts := v1.Group("/alerts")
	alerts.Use(middleware.JWTAuth(s.config.Auth))
	{
		alerts.POST("", s.handleCreateAlert)
		alerts.GET("", s.handleListAlerts)
		alerts.GET("/export", s.handleExportAlerts)
		alerts.GET("/:id", s.handleGetAlert)
		alerts.PATCH("/:id/status", s.handleUpdateAlertStatus)
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Correlation-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

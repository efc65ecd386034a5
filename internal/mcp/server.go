// Package mcp exposes the recommendation service as Model Context Protocol
// tools over stdio. It needs no external databases: the catalog is the
// bundled seed and audits go to SQLite.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/emergency-assist/hospital-recommender/internal/alerts"
	"github.com/emergency-assist/hospital-recommender/internal/catalog"
	"github.com/emergency-assist/hospital-recommender/internal/config"
	"github.com/emergency-assist/hospital-recommender/internal/domain"
	"github.com/emergency-assist/hospital-recommender/internal/service"
)

const (
	serverName    = "hospital-recommender"
	serverVersion = "v1.0.0"
)

// Server is the MCP front end of the recommendation service.
type Server struct {
	config      *config.LiteConfig
	mcpServer   *mcp.Server
	recommender *service.RecommendationService
	alertStore  domain.AlertStore
	logger      *logrus.Logger
}

// ServerOption is a functional option for Server.
type ServerOption func(*Server) error

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithRecommender replaces the service built from the configuration.
func WithRecommender(recommender *service.RecommendationService) ServerOption {
	return func(s *Server) error {
		s.recommender = recommender
		return nil
	}
}

// WithAlertStore sets the store recommendations are audited to.
func WithAlertStore(store domain.AlertStore) ServerOption {
	return func(s *Server) error {
		s.alertStore = store
		return nil
	}
}

// NewServer creates the MCP server and registers its tools.
func NewServer(cfg *config.LiteConfig, opts ...ServerOption) (*Server, error) {
	s := &Server{config: cfg}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if s.logger == nil {
		logCfg := cfg.Logging()
		logCfg.Output = "stderr"
		logger, err := config.NewLogger(logCfg)
		if err != nil {
			return nil, err
		}
		s.logger = logger
	}

	if s.recommender == nil {
		recommender, err := s.buildRecommender()
		if err != nil {
			s.Close()
			return nil, err
		}
		s.recommender = recommender
	}

	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)
	s.registerTools()

	s.logger.Info("MCP server initialized")
	return s, nil
}

func (s *Server) buildRecommender() (*service.RecommendationService, error) {
	cfg := s.config

	table := service.DefaultSymptomTable()
	if cfg.SymptomTablePath != "" {
		loaded, err := service.LoadSymptomTableFile(cfg.SymptomTablePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load symptom table: %w", err)
		}
		table = loaded
	}

	seed, err := catalog.NewSeedCatalog(cfg.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	providers := catalog.NewResilientCatalog(seed, catalog.ResilientConfig{
		Source:   "static",
		LocalTTL: cfg.CacheTTL,
	}, nil, s.logger)

	ranking := service.DefaultRankingConfig()
	ranking.DefaultLocation = cfg.DefaultLocation

	var opts []service.RecommendationOption
	if cfg.AuditEnabled {
		if s.alertStore == nil {
			if err := cfg.EnsureDataDir(); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
			store, err := alerts.NewSQLiteStore(cfg.AlertsDBPath())
			if err != nil {
				return nil, fmt.Errorf("failed to create alert store: %w", err)
			}
			s.alertStore = store
		}
		recorder := service.NewAuditRecorder(s.alertStore, alerts.NopPublisher{}, s.logger)
		opts = append(opts, service.WithAuditRecorder(recorder, 0))
	}

	return service.NewRecommendationService(
		service.NewSymptomClassifier(table, s.logger),
		providers,
		service.NewProximityRanker(ranking, s.logger),
		service.NewAttributeRanker(ranking.AttributeLimit, s.logger),
		s.logger,
		opts...,
	), nil
}

// Start serves MCP over stdio until ctx is cancelled or the client hangs up.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting hospital recommender MCP server")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Close waits for pending audits and releases the alert store.
func (s *Server) Close() error {
	if s.recommender != nil {
		s.recommender.Drain()
	}
	if s.alertStore != nil {
		if err := s.alertStore.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close alert store")
			return err
		}
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/emergency-assist/hospital-recommender/internal/alerts"
	"github.com/emergency-assist/hospital-recommender/internal/catalog"
	"github.com/emergency-assist/hospital-recommender/internal/database"
	"github.com/emergency-assist/hospital-recommender/internal/domain"
	"github.com/emergency-assist/hospital-recommender/internal/repository"
	"github.com/emergency-assist/hospital-recommender/internal/service"
	"github.com/emergency-assist/hospital-recommender/pkg/external"
)

// application holds the wired components of the HTTP service.
type application struct {
	config      *domain.Config
	logger      *logrus.Logger
	catalog     *catalog.ResilientCatalog
	recommender *service.RecommendationService
	alerts      *service.AlertService
	closers     []func()
}

func newApplication(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) (app *application, err error) {
	app = &application{config: cfg, logger: logger}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	upstream, err := app.catalogSource(ctx)
	if err != nil {
		return nil, err
	}

	var shared catalog.SharedCache
	if cfg.Cache.RedisURL != "" {
		cache, err := external.NewCacheClient(cfg.Cache)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, catalog cache is process-local")
		} else {
			shared = cache
			app.onClose(func() { _ = cache.Close() })
		}
	}
	app.catalog = catalog.NewResilientCatalog(upstream, catalog.NewResilientConfig(cfg.Catalog, cfg.Cache), shared, logger)

	table, err := loadSymptomTable(cfg.Classifier.TablePath)
	if err != nil {
		return nil, err
	}

	var opts []service.RecommendationOption
	if cfg.Audit.Enabled {
		store, err := app.alertStore()
		if err != nil {
			return nil, err
		}
		publisher := app.publisher()

		app.alerts = service.NewAlertService(store, publisher, alerts.DefaultExporters(), logger)
		opts = append(opts, service.WithAuditRecorder(service.NewAuditRecorder(store, publisher, logger), cfg.Audit.Timeout))
	}

	app.recommender = service.NewRecommendationService(
		service.NewSymptomClassifier(table, logger),
		app.catalog,
		service.NewProximityRanker(cfg.Ranking, logger),
		service.NewAttributeRanker(cfg.Ranking.AttributeLimit, logger),
		logger,
		opts...,
	)
	return app, nil
}

func (a *application) catalogSource(ctx context.Context) (domain.ProviderCatalog, error) {
	cfg := a.config

	switch strings.ToLower(cfg.Catalog.Source) {
	case "", "static":
		return catalog.NewSeedCatalog(cfg.Catalog.SeedFile)

	case "postgres":
		db, err := database.NewConnection(ctx, cfg.Database, a.logger)
		if err != nil {
			return nil, err
		}
		a.onClose(db.Close)
		return repository.NewHospitalRepository(db.Pool, a.logger), nil

	case "mongo":
		client, err := repository.NewMongoClient(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		a.onClose(func() { _ = client.Disconnect(context.Background()) })
		return repository.NewMongoHospitalRepository(client, cfg.Mongo, a.logger), nil

	case "remote":
		return external.NewCatalogClient(external.CatalogClientConfig{
			BaseURL:   cfg.Catalog.RemoteURL,
			APIKey:    cfg.Catalog.RemoteAPIKey,
			Timeout:   cfg.Catalog.RemoteTimeout,
			RateLimit: cfg.Catalog.RemoteRateLimit,
		}), nil
	}
	return nil, fmt.Errorf("unknown catalog source %q", cfg.Catalog.Source)
}

func (a *application) alertStore() (domain.AlertStore, error) {
	cfg := a.config

	var (
		store domain.AlertStore
		err   error
	)
	switch strings.ToLower(cfg.Audit.Store) {
	case "postgres":
		url := cfg.Audit.PostgresURL
		if url == "" {
			url = database.URL(cfg.Database)
		}
		store, err = alerts.NewPostgresStoreFromURL(url)
	default:
		store, err = alerts.NewSQLiteStore(cfg.Audit.SQLitePath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open alert store: %w", err)
	}
	a.onClose(func() { _ = store.Close() })
	return store, nil
}

func (a *application) publisher() domain.AlertPublisher {
	if a.config.MQTT.Broker == "" {
		return alerts.NopPublisher{}
	}
	publisher, err := alerts.NewMQTTPublisher(a.config.MQTT, a.logger)
	if err != nil {
		a.logger.WithError(err).Warn("MQTT broker unavailable, alert events will not be published")
		return alerts.NopPublisher{}
	}
	a.onClose(func() { _ = publisher.Close() })
	return publisher
}

func (a *application) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close waits for pending audits and releases resources in reverse order.
func (a *application) Close() {
	if a.recommender != nil {
		a.recommender.Drain()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func loadSymptomTable(path string) (*service.SymptomTable, error) {
	if path == "" {
		return service.DefaultSymptomTable(), nil
	}
	table, err := service.LoadSymptomTableFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load symptom table: %w", err)
	}
	return table, nil
}

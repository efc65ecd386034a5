package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/emergency-assist/hospital-recommender/internal/domain"
)

const activeListKey = "active"

// SharedCache is the optional cross-instance cache tier, implemented by
// external.CacheClient.
type SharedCache interface {
	GetProviders(ctx context.Context, source string) ([]domain.ProviderRecord, bool, error)
	SetProviders(ctx context.Context, source string, providers []domain.ProviderRecord, ttl time.Duration) error
	GetProvider(ctx context.Context, id string) (*domain.ProviderRecord, bool, error)
	SetProvider(ctx context.Context, provider *domain.ProviderRecord, ttl time.Duration) error
	InvalidateCatalog(ctx context.Context) error
}

// ResilientConfig tunes the caching and breaker behaviour of ResilientCatalog.
type ResilientConfig struct {
	Source             string
	LocalSize          int
	LocalTTL           time.Duration
	SharedTTL          time.Duration
	BreakerMaxRequests uint32
	BreakerInterval    time.Duration
	BreakerTimeout     time.Duration
}

// NewResilientConfig derives the wrapper settings from service configuration.
func NewResilientConfig(catalog domain.CatalogConfig, cache domain.CacheConfig) ResilientConfig {
	return ResilientConfig{
		Source:             catalog.Source,
		LocalSize:          cache.LocalSize,
		LocalTTL:           cache.LocalTTL,
		SharedTTL:          cache.DefaultTTL,
		BreakerMaxRequests: catalog.BreakerMaxRequests,
		BreakerInterval:    catalog.BreakerInterval,
		BreakerTimeout:     catalog.BreakerTimeout,
	}
}

// ResilientCatalog fronts a catalog source with an in-process LRU, an
// optional shared cache and a circuit breaker. Upstream failures and an open
// breaker are reported as domain.ErrCatalogUnavailable.
type ResilientCatalog struct {
	upstream  domain.ProviderCatalog
	source    string
	lists     *expirable.LRU[string, []domain.ProviderRecord]
	providers *expirable.LRU[string, domain.ProviderRecord]
	shared    SharedCache
	sharedTTL time.Duration
	breaker   *gobreaker.CircuitBreaker
	logger    *logrus.Logger
}

// NewResilientCatalog wraps upstream. shared may be nil.
func NewResilientCatalog(upstream domain.ProviderCatalog, cfg ResilientConfig, shared SharedCache, logger *logrus.Logger) *ResilientCatalog {
	if cfg.LocalSize <= 0 {
		cfg.LocalSize = 64
	}
	if cfg.LocalTTL <= 0 {
		cfg.LocalTTL = time.Minute
	}
	if cfg.BreakerMaxRequests == 0 {
		cfg.BreakerMaxRequests = 5
	}
	if cfg.BreakerInterval <= 0 {
		cfg.BreakerInterval = 30 * time.Second
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 60 * time.Second
	}
	if cfg.Source == "" {
		cfg.Source = "default"
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "catalog-" + cfg.Source,
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Catalog circuit breaker changed state")
		},
		// An unknown id is an answer, not an upstream failure
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrNotFound)
		},
	})

	return &ResilientCatalog{
		upstream:  upstream,
		source:    cfg.Source,
		lists:     expirable.NewLRU[string, []domain.ProviderRecord](1, nil, cfg.LocalTTL),
		providers: expirable.NewLRU[string, domain.ProviderRecord](cfg.LocalSize, nil, cfg.LocalTTL),
		shared:    shared,
		sharedTTL: cfg.SharedTTL,
		breaker:   breaker,
		logger:    logger,
	}
}

// ListActiveProviders returns the active providers, serving from cache when
// possible.
func (c *ResilientCatalog) ListActiveProviders(ctx context.Context) ([]domain.ProviderRecord, error) {
	if cached, ok := c.lists.Get(activeListKey); ok {
		return cloneProviders(cached), nil
	}

	if c.shared != nil {
		cached, found, err := c.shared.GetProviders(ctx, c.source)
		if err != nil {
			c.logger.WithError(err).Warn("Shared catalog cache read failed")
		} else if found {
			c.lists.Add(activeListKey, cached)
			return cloneProviders(cached), nil
		}
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.upstream.ListActiveProviders(ctx)
	})
	if err != nil {
		return nil, c.unavailable(err)
	}
	providers := result.([]domain.ProviderRecord)

	c.lists.Add(activeListKey, providers)
	if c.shared != nil {
		if err := c.shared.SetProviders(ctx, c.source, providers, c.sharedTTL); err != nil {
			c.logger.WithError(err).Warn("Shared catalog cache write failed")
		}
	}

	c.logger.WithFields(logrus.Fields{
		"source":    c.source,
		"providers": len(providers),
	}).Debug("Catalog refreshed from upstream")

	return cloneProviders(providers), nil
}

// GetProvider returns one provider, serving from cache when possible.
func (c *ResilientCatalog) GetProvider(ctx context.Context, id string) (*domain.ProviderRecord, error) {
	if cached, ok := c.providers.Get(id); ok {
		return &cached, nil
	}

	if c.shared != nil {
		cached, found, err := c.shared.GetProvider(ctx, id)
		if err != nil {
			c.logger.WithError(err).WithField("provider_id", id).Warn("Shared catalog cache read failed")
		} else if found && cached != nil {
			c.providers.Add(id, *cached)
			return cached, nil
		}
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.upstream.GetProvider(ctx, id)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, c.unavailable(err)
	}
	provider, _ := result.(*domain.ProviderRecord)
	if provider == nil {
		return nil, fmt.Errorf("provider %s: %w", id, domain.ErrNotFound)
	}

	c.providers.Add(id, *provider)
	if c.shared != nil {
		if err := c.shared.SetProvider(ctx, provider, c.sharedTTL); err != nil {
			c.logger.WithError(err).WithField("provider_id", id).Warn("Shared catalog cache write failed")
		}
	}
	p := *provider
	return &p, nil
}

// Invalidate drops every cached entry, local and shared.
func (c *ResilientCatalog) Invalidate(ctx context.Context) error {
	c.lists.Purge()
	c.providers.Purge()
	if c.shared != nil {
		return c.shared.InvalidateCatalog(ctx)
	}
	return nil
}

// BreakerState reports the circuit breaker state ("closed", "half-open", "open").
func (c *ResilientCatalog) BreakerState() string {
	return c.breaker.State().String()
}

func (c *ResilientCatalog) unavailable(err error) error {
	if errors.Is(err, domain.ErrCatalogUnavailable) {
		return err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: circuit breaker %s", domain.ErrCatalogUnavailable, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
}

func cloneProviders(in []domain.ProviderRecord) []domain.ProviderRecord {
	out := make([]domain.ProviderRecord, len(in))
	copy(out, in)
	return out
}

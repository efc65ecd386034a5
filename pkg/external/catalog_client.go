package external

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/emergency-assist/hospital-recommender/internal/domain"
)

// CatalogClientConfig represents configuration for the remote hospital catalog API
type CatalogClientConfig struct {
	BaseURL    string        `json:"base_url"`
	APIKey     string        `json:"api_key"`
	Timeout    time.Duration `json:"timeout"`
	RateLimit  int           `json:"rate_limit"` // requests per second
	MaxRetries int           `json:"max_retries"`
}

// CatalogClient fetches provider records from a remote catalog service.
// Every failure other than an unknown id is reported as
// domain.ErrCatalogUnavailable.
type CatalogClient struct {
	http      *resty.Client
	rateLimit *rate.Limiter
}

// NewCatalogClient creates a new remote catalog client
func NewCatalogClient(config CatalogClientConfig) *CatalogClient {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RateLimit <= 0 {
		config.RateLimit = 5
	}

	client := resty.New().
		SetBaseURL(config.BaseURL).
		SetTimeout(config.Timeout).
		SetRetryCount(config.MaxRetries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json")
	if config.APIKey != "" {
		client.SetHeader("X-API-Key", config.APIKey)
	}

	return &CatalogClient{
		http:      client,
		rateLimit: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

type providerListResponse struct {
	Hospitals []domain.ProviderRecord `json:"hospitals"`
}

// ListActiveProviders fetches all active providers
func (c *CatalogClient) ListActiveProviders(ctx context.Context) ([]domain.ProviderRecord, error) {
	if err := c.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %v", domain.ErrCatalogUnavailable, err)
	}

	var out providerListResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("active", "true").
		SetResult(&out).
		Get("/hospitals")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: remote catalog returned status %d", domain.ErrCatalogUnavailable, resp.StatusCode())
	}

	active := make([]domain.ProviderRecord, 0, len(out.Hospitals))
	for _, p := range out.Hospitals {
		if p.IsActive {
			active = append(active, p)
		}
	}
	return active, nil
}

// GetProvider fetches one provider by id
func (c *CatalogClient) GetProvider(ctx context.Context, id string) (*domain.ProviderRecord, error) {
	if err := c.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %v", domain.ErrCatalogUnavailable, err)
	}

	var out domain.ProviderRecord
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/hospitals/" + url.PathEscape(id))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, fmt.Errorf("provider %s: %w", id, domain.ErrNotFound)
	case resp.IsError():
		return nil, fmt.Errorf("%w: remote catalog returned status %d", domain.ErrCatalogUnavailable, resp.StatusCode())
	}
	return &out, nil
}

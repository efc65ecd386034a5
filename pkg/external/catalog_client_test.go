package external

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergency-assist/hospital-recommender/internal/domain"
)

func newCatalogServer(t *testing.T) *httptest.Server {
	t.Helper()

	inactive := sampleProviders()[0]
	inactive.ID = "closed"
	inactive.IsActive = false

	mux := http.NewServeMux()
	mux.HandleFunc("/hospitals", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("active"))
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"hospitals": append(sampleProviders(), inactive),
		})
	})
	mux.HandleFunc("/hospitals/hosp2", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sampleProviders()[0])
	})
	mux.HandleFunc("/hospitals/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestCatalogClient_ListActiveProviders(t *testing.T) {
	server := newCatalogServer(t)
	client := NewCatalogClient(CatalogClientConfig{
		BaseURL:   server.URL,
		APIKey:    "secret",
		Timeout:   2 * time.Second,
		RateLimit: 100,
	})

	providers, err := client.ListActiveProviders(context.Background())
	require.NoError(t, err)
	require.Len(t, providers, 1)
	assert.Equal(t, "hosp2", providers[0].ID)
	assert.Equal(t, 6, providers[0].EmergencyCapacity.DoctorCount())
}

func TestCatalogClient_GetProvider(t *testing.T) {
	server := newCatalogServer(t)
	client := NewCatalogClient(CatalogClientConfig{BaseURL: server.URL, APIKey: "secret", RateLimit: 100})
	ctx := context.Background()

	p, err := client.GetProvider(ctx, "hosp2")
	require.NoError(t, err)
	assert.Equal(t, "Shifa International Hospital", p.Name)

	_, err = client.GetProvider(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = client.GetProvider(ctx, "broken")
	assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)
}

func TestCatalogClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client := NewCatalogClient(CatalogClientConfig{BaseURL: server.URL, Timeout: 500 * time.Millisecond, RateLimit: 100})
	_, err := client.ListActiveProviders(context.Background())
	assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)
}

func TestCatalogClient_CancelledContext(t *testing.T) {
	client := NewCatalogClient(CatalogClientConfig{BaseURL: "http://127.0.0.1:1", RateLimit: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ListActiveProviders(ctx)
	assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)
}

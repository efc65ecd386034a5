// Package catalog provides the provider catalog sources used by the
// recommendation service and the caching, circuit-breaking wrapper placed in
// front of them.
package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/emergency-assist/hospital-recommender/internal/domain"
)

//go:embed seed_hospitals.json
var seedHospitalsJSON []byte

// StaticCatalog serves an in-memory, read-only provider list.
type StaticCatalog struct {
	providers []domain.ProviderRecord
	byID      map[string]int
}

// NewStaticCatalog validates the records and builds a catalog from them.
// Duplicate ids are rejected.
func NewStaticCatalog(providers []domain.ProviderRecord) (*StaticCatalog, error) {
	c := &StaticCatalog{
		providers: make([]domain.ProviderRecord, 0, len(providers)),
		byID:      make(map[string]int, len(providers)),
	}
	for i := range providers {
		p := providers[i]
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", domain.ErrInvalidProvider, p.ID)
		}
		c.byID[p.ID] = len(c.providers)
		c.providers = append(c.providers, p)
	}
	return c, nil
}

// SeedProviders returns the built-in provider seed.
func SeedProviders() ([]domain.ProviderRecord, error) {
	return DecodeProviders(bytes.NewReader(seedHospitalsJSON))
}

// LoadSeedFile reads a JSON array of provider records.
func LoadSeedFile(path string) ([]domain.ProviderRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()

	return DecodeProviders(f)
}

// DecodeProviders decodes a JSON array of provider records.
func DecodeProviders(r io.Reader) ([]domain.ProviderRecord, error) {
	var providers []domain.ProviderRecord
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&providers); err != nil {
		return nil, fmt.Errorf("decoding providers: %w", err)
	}
	return providers, nil
}

// NewSeedCatalog builds a StaticCatalog from path, or from the built-in
// seed when path is empty.
func NewSeedCatalog(path string) (*StaticCatalog, error) {
	var (
		providers []domain.ProviderRecord
		err       error
	)
	if path == "" {
		providers, err = SeedProviders()
	} else {
		providers, err = LoadSeedFile(path)
	}
	if err != nil {
		return nil, err
	}
	return NewStaticCatalog(providers)
}

// ListActiveProviders returns a copy of the active providers.
func (c *StaticCatalog) ListActiveProviders(_ context.Context) ([]domain.ProviderRecord, error) {
	out := make([]domain.ProviderRecord, 0, len(c.providers))
	for _, p := range c.providers {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

// GetProvider returns the provider with the given id.
func (c *StaticCatalog) GetProvider(_ context.Context, id string) (*domain.ProviderRecord, error) {
	i, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("provider %s: %w", id, domain.ErrNotFound)
	}
	p := c.providers[i]
	return &p, nil
}

// All returns every provider, active or not.
func (c *StaticCatalog) All() []domain.ProviderRecord {
	return append([]domain.ProviderRecord(nil), c.providers...)
}

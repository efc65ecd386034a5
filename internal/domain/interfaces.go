package domain

import (
	"context"
	"io"
)

// ProviderCatalog supplies the provider records available for ranking.
// Implementations return an error wrapping ErrCatalogUnavailable on transient
// fetch failures and ErrNotFound for unknown ids.
type ProviderCatalog interface {
	ListActiveProviders(ctx context.Context) ([]ProviderRecord, error)
	GetProvider(ctx context.Context, id string) (*ProviderRecord, error)
}

// AlertStore persists emergency alerts.
type AlertStore interface {
	Save(ctx context.Context, alert *EmergencyAlert) error
	Get(ctx context.Context, id string) (*EmergencyAlert, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*EmergencyAlert, error)
	UpdateStatus(ctx context.Context, id string, status AlertStatus) (*EmergencyAlert, error)
	Close() error
}

// AlertPublisher fans alert events out to dispatch systems.
type AlertPublisher interface {
	Publish(ctx context.Context, event *AlertEvent) error
	Close() error
}

// AlertExporter writes alerts in a given format.
type AlertExporter interface {
	Export(w io.Writer, alerts []*EmergencyAlert) error
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetRankingConfig() *RankingConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/emergency-assist/hospital-recommender/internal/domain"
)

var validCatalogSources = map[string]bool{
	"static": true, "postgres": true, "mongo": true, "remote": true,
}

var validAuditStores = map[string]bool{
	"sqlite": true, "postgres": true,
}

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v      *viper.Viper
	file   string
	config *domain.Config
}

// ManagerOption customizes how configuration is located.
type ManagerOption func(*Manager)

// WithConfigFile reads the given file instead of searching the default paths.
func WithConfigFile(path string) ManagerOption {
	return func(m *Manager) { m.file = path }
}

// NewManager creates a new configuration manager
func NewManager(opts ...ManagerOption) (*Manager, error) {
	m := &Manager{}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := viper.New()

	if m.file != "" {
		v.SetConfigFile(m.file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/hospital-recommender/")
	}

	v.SetEnvPrefix("HOSPITAL_REC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// The file is optional; defaults and environment variables suffice.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.v = v
	m.config = config
	return nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "hospital_recommender")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "30m")
	v.SetDefault("database.migrations_path", "")

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "emergency")
	v.SetDefault("mongo.collection", "hospitals")
	v.SetDefault("mongo.timeout", "5s")
	v.SetDefault("mongo.pool_size", 20)

	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.default_ttl", "5m")
	v.SetDefault("cache.max_retries", 3)
	v.SetDefault("cache.pool_size", 10)
	v.SetDefault("cache.pool_timeout", "4s")
	v.SetDefault("cache.local_size", 64)
	v.SetDefault("cache.local_ttl", "1m")

	v.SetDefault("catalog.source", "static")
	v.SetDefault("catalog.seed_file", "")
	v.SetDefault("catalog.remote_url", "")
	v.SetDefault("catalog.remote_api_key", "")
	v.SetDefault("catalog.remote_timeout", "10s")
	v.SetDefault("catalog.remote_rate_limit", 5)
	v.SetDefault("catalog.breaker_max_requests", 5)
	v.SetDefault("catalog.breaker_interval", "30s")
	v.SetDefault("catalog.breaker_timeout", "60s")

	v.SetDefault("ranking.default_location.lat", 33.6844)
	v.SetDefault("ranking.default_location.lng", 73.0479)
	v.SetDefault("ranking.default_limit", 4)
	v.SetDefault("ranking.max_distance_km", 30.0)
	v.SetDefault("ranking.min_available_beds", 1)
	v.SetDefault("ranking.min_doctors", 1)
	v.SetDefault("ranking.require_emergency", true)
	v.SetDefault("ranking.attribute_limit", 3)

	v.SetDefault("classifier.table_path", "")

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.store", "sqlite")
	v.SetDefault("audit.sqlite_path", "./data/alerts.db")
	v.SetDefault("audit.postgres_url", "")
	v.SetDefault("audit.timeout", "5s")

	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.client_id", "hospital-recommender")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic", "emergency/alerts")
	v.SetDefault("mqtt.qos", 1)

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")

	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetRankingConfig returns the ranking defaults
func (m *Manager) GetRankingConfig() *domain.RankingConfig {
	return &m.config.Ranking
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	source := strings.ToLower(config.Catalog.Source)
	if !validCatalogSources[source] {
		return fmt.Errorf("invalid catalog source: %s", config.Catalog.Source)
	}
	switch source {
	case "postgres":
		if config.Database.Host == "" || config.Database.Database == "" {
			return fmt.Errorf("database host and name are required for the postgres catalog")
		}
	case "mongo":
		if config.Mongo.URI == "" {
			return fmt.Errorf("mongo uri is required for the mongo catalog")
		}
	case "remote":
		if config.Catalog.RemoteURL == "" {
			return fmt.Errorf("catalog remote_url is required for the remote catalog")
		}
	}

	loc := config.Ranking.DefaultLocation
	if loc.Lat < -90 || loc.Lat > 90 || loc.Lng < -180 || loc.Lng > 180 {
		return fmt.Errorf("invalid default location: %.4f,%.4f", loc.Lat, loc.Lng)
	}
	if config.Ranking.DefaultLimit <= 0 {
		return fmt.Errorf("ranking default_limit must be positive")
	}
	if config.Ranking.MaxDistanceKm <= 0 {
		return fmt.Errorf("ranking max_distance_km must be positive")
	}

	if config.Audit.Enabled {
		store := strings.ToLower(config.Audit.Store)
		if !validAuditStores[store] {
			return fmt.Errorf("invalid audit store: %s", config.Audit.Store)
		}
		if store == "postgres" && config.Audit.PostgresURL == "" && config.Database.Host == "" {
			return fmt.Errorf("audit postgres_url or database host is required")
		}
	}

	if config.Auth.Enabled && config.Auth.JWTSecret == "" {
		return fmt.Errorf("auth jwt_secret is required when auth is enabled")
	}

	if config.MQTT.QoS > 2 {
		return fmt.Errorf("invalid mqtt qos: %d", config.MQTT.QoS)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// GetDatabaseConnectionString returns a formatted database connection string
func (m *Manager) GetDatabaseConnectionString() string {
	db := m.config.Database
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.Username, db.Password, db.Database, db.SSLMode)
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}

package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment string           `mapstructure:"environment"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Mongo       MongoConfig      `mapstructure:"mongo"`
	Cache       CacheConfig      `mapstructure:"cache"`
	Catalog     CatalogConfig    `mapstructure:"catalog"`
	Ranking     RankingConfig    `mapstructure:"ranking"`
	Classifier  ClassifierConfig `mapstructure:"classifier"`
	Audit       AuditConfig      `mapstructure:"audit"`
	MQTT        MQTTConfig       `mapstructure:"mqtt"`
	Auth        AuthConfig       `mapstructure:"auth"`
	RateLimit   RateLimitConfig  `mapstructure:"rate_limit"`
	Logging     LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// MongoConfig represents the document store holding the hospitals collection
type MongoConfig struct {
	URI        string        `mapstructure:"uri"`
	Database   string        `mapstructure:"database"`
	Collection string        `mapstructure:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"`
	PoolSize   uint64        `mapstructure:"pool_size"`
}

// CacheConfig represents catalog cache configuration
type CacheConfig struct {
	RedisURL    string        `mapstructure:"redis_url"`
	DefaultTTL  time.Duration `mapstructure:"default_ttl"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
	LocalSize   int           `mapstructure:"local_size"`
	LocalTTL    time.Duration `mapstructure:"local_ttl"`
}

// CatalogConfig selects and tunes the provider catalog source
type CatalogConfig struct {
	Source             string        `mapstructure:"source"` // static, postgres, mongo, remote
	SeedFile           string        `mapstructure:"seed_file"`
	RemoteURL          string        `mapstructure:"remote_url"`
	RemoteAPIKey       string        `mapstructure:"remote_api_key"`
	RemoteTimeout      time.Duration `mapstructure:"remote_timeout"`
	RemoteRateLimit    int           `mapstructure:"remote_rate_limit"`
	BreakerMaxRequests uint32        `mapstructure:"breaker_max_requests"`
	BreakerInterval    time.Duration `mapstructure:"breaker_interval"`
	BreakerTimeout     time.Duration `mapstructure:"breaker_timeout"`
}

// RankingConfig holds the ranking defaults
type RankingConfig struct {
	DefaultLocation  GeoPoint `mapstructure:"default_location"`
	DefaultLimit     int      `mapstructure:"default_limit"`
	MaxDistanceKm    float64  `mapstructure:"max_distance_km"`
	MinAvailableBeds int      `mapstructure:"min_available_beds"`
	MinDoctors       int      `mapstructure:"min_doctors"`
	RequireEmergency bool     `mapstructure:"require_emergency"`
	AttributeLimit   int      `mapstructure:"attribute_limit"`
}

// ClassifierConfig points at an alternative symptom table
type ClassifierConfig struct {
	TablePath string `mapstructure:"table_path"`
}

// AuditConfig controls recommendation audit persistence
type AuditConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Store       string        `mapstructure:"store"` // sqlite, postgres
	SQLitePath  string        `mapstructure:"sqlite_path"`
	PostgresURL string        `mapstructure:"postgres_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// MQTTConfig represents the broker alert events are published to
type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"client_id"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Topic    string `mapstructure:"topic"`
	QoS      byte   `mapstructure:"qos"`
}

// AuthConfig represents bearer token verification
type AuthConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// RateLimitConfig represents per-client request limits
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

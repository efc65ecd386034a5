package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/emergency-assist/hospital-recommender/internal/domain"
)

// LiteConfig is the environment-only configuration of the MCP server. It
// needs no database: the catalog is the bundled seed (or a seed file) and
// audits go to a SQLite file in DataDir.
type LiteConfig struct {
	DataDir string

	SeedFile         string // optional JSON catalog replacing the bundled seed
	SymptomTablePath string // optional YAML symptom table
	DefaultLocation  domain.GeoPoint
	CacheTTL         time.Duration

	AuditEnabled bool

	LogLevel  string
	LogFormat string
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()

	return &LiteConfig{
		DataDir:         filepath.Join(homeDir, ".hospital-recommender"),
		DefaultLocation: domain.GeoPoint{Lat: 33.6844, Lng: 73.0479},
		CacheTTL:        time.Minute,
		AuditEnabled:    true,
		LogLevel:        "info",
		LogFormat:       "json",
	}
}

// LoadLiteConfig reads HOSPITAL_REC_* environment variables over the defaults.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("HOSPITAL_REC_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	cfg.SeedFile = os.Getenv("HOSPITAL_REC_SEED_FILE")
	cfg.SymptomTablePath = os.Getenv("HOSPITAL_REC_SYMPTOM_TABLE")

	if v := os.Getenv("HOSPITAL_REC_DEFAULT_LAT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.DefaultLocation.Lat = f
		}
	}
	if v := os.Getenv("HOSPITAL_REC_DEFAULT_LNG"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.DefaultLocation.Lng = f
		}
	}
	if v := os.Getenv("HOSPITAL_REC_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.CacheTTL = d
		}
	}
	if v := os.Getenv("HOSPITAL_REC_AUDIT_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AuditEnabled = b
		}
	}

	if v := os.Getenv("HOSPITAL_REC_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("HOSPITAL_REC_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// AlertsDBPath returns the path of the audit SQLite database.
func (c *LiteConfig) AlertsDBPath() string {
	return filepath.Join(c.DataDir, "alerts.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}

// Logging returns the logger settings.
func (c *LiteConfig) Logging() domain.LoggingConfig {
	return domain.LoggingConfig{Level: c.LogLevel, Format: c.LogFormat}
}

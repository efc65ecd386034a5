package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, ".hospital-recommender", filepath.Base(cfg.DataDir))
	assert.InDelta(t, 33.6844, cfg.DefaultLocation.Lat, 1e-9)
	assert.InDelta(t, 73.0479, cfg.DefaultLocation.Lng, 1e-9)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.True(t, cfg.AuditEnabled)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadLiteConfig_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Empty(t, cfg.SeedFile)
	assert.Empty(t, cfg.SymptomTablePath)
	assert.True(t, cfg.AuditEnabled)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("HOSPITAL_REC_DATA_DIR", "/tmp/test-hospital")
	t.Setenv("HOSPITAL_REC_SEED_FILE", "/tmp/hospitals.json")
	t.Setenv("HOSPITAL_REC_SYMPTOM_TABLE", "/tmp/symptoms.yaml")
	t.Setenv("HOSPITAL_REC_DEFAULT_LAT", "24.8607")
	t.Setenv("HOSPITAL_REC_DEFAULT_LNG", "67.0011")
	t.Setenv("HOSPITAL_REC_CACHE_TTL", "2m")
	t.Setenv("HOSPITAL_REC_AUDIT_ENABLED", "false")
	t.Setenv("HOSPITAL_REC_LOG_LEVEL", "debug")
	t.Setenv("HOSPITAL_REC_LOG_FORMAT", "text")

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-hospital", cfg.DataDir)
	assert.Equal(t, "/tmp/hospitals.json", cfg.SeedFile)
	assert.Equal(t, "/tmp/symptoms.yaml", cfg.SymptomTablePath)
	assert.InDelta(t, 24.8607, cfg.DefaultLocation.Lat, 1e-9)
	assert.InDelta(t, 67.0011, cfg.DefaultLocation.Lng, 1e-9)
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL)
	assert.False(t, cfg.AuditEnabled)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadLiteConfig_IgnoresMalformedValues(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("HOSPITAL_REC_DEFAULT_LAT", "north")
	t.Setenv("HOSPITAL_REC_CACHE_TTL", "-1m")
	t.Setenv("HOSPITAL_REC_AUDIT_ENABLED", "maybe")

	cfg := LoadLiteConfig()

	assert.InDelta(t, 33.6844, cfg.DefaultLocation.Lat, 1e-9)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.True(t, cfg.AuditEnabled)
}

func TestLiteConfig_AlertsDBPath(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.hospital-recommender"}

	assert.Equal(t, "/home/user/.hospital-recommender/alerts.db", cfg.AlertsDBPath())
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	cfg := &LiteConfig{DataDir: filepath.Join(t.TempDir(), "hospital")}

	require.NoError(t, cfg.EnsureDataDir())

	info, err := os.Stat(cfg.DataDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	vars := []string{
		"HOSPITAL_REC_DATA_DIR",
		"HOSPITAL_REC_SEED_FILE",
		"HOSPITAL_REC_SYMPTOM_TABLE",
		"HOSPITAL_REC_DEFAULT_LAT",
		"HOSPITAL_REC_DEFAULT_LNG",
		"HOSPITAL_REC_CACHE_TTL",
		"HOSPITAL_REC_AUDIT_ENABLED",
		"HOSPITAL_REC_LOG_LEVEL",
		"HOSPITAL_REC_LOG_FORMAT",
	}
	for _, v := range vars {
		t.Setenv(v, "")
	}
}

package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/emergency-assist/hospital-recommender/internal/catalog"
	"github.com/emergency-assist/hospital-recommender/internal/database"
	"github.com/emergency-assist/hospital-recommender/internal/domain"
)

// generateTestPassword creates a random password for test databases
func generateTestPassword() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "test_fallback_password_123"
	}
	return "test_" + hex.EncodeToString(bytes)
}

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()
	password := generateTestPassword()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword(password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := domain.DatabaseConfig{
		Host:     host,
		Port:     port.Int(),
		Database: "testdb",
		Username: "testuser",
		Password: password,
		SSLMode:  "disable",
		MaxConns: 5,
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	runner, err := database.NewMigrationRunner(database.URL(cfg), "", logger)
	require.NoError(t, err)
	require.NoError(t, runner.Up())
	_ = runner.Close()

	db, err := database.NewConnection(ctx, cfg, logger)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestHospitalRepository(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	repo := NewHospitalRepository(db.Pool, logger)

	seed, err := catalog.SeedProviders()
	require.NoError(t, err)

	t.Run("Upsert_All_And_List", func(t *testing.T) {
		require.NoError(t, repo.UpsertAll(ctx, seed))

		active, err := repo.ListActiveProviders(ctx)
		require.NoError(t, err)
		assert.Len(t, active, len(seed))
	})

	t.Run("Get_Round_Trips_Record", func(t *testing.T) {
		shifa, err := repo.GetProvider(ctx, "hosp2")
		require.NoError(t, err)

		var want domain.ProviderRecord
		for _, p := range seed {
			if p.ID == "hosp2" {
				want = p
			}
		}
		assert.Equal(t, want.Name, shifa.Name)
		assert.Equal(t, want.Location, shifa.Location)
		assert.Equal(t, want.EmergencyCapacity, shifa.EmergencyCapacity)
		assert.ElementsMatch(t, want.Specialties, shifa.Specialties)
		assert.Equal(t, want.Doctors, shifa.Doctors)
		assert.Equal(t, want.Equipment, shifa.Equipment)
	})

	t.Run("Untracked_Doctor_Count_Stays_Nil", func(t *testing.T) {
		p, err := repo.GetProvider(ctx, "hosp7")
		require.NoError(t, err)
		assert.Nil(t, p.EmergencyCapacity.Doctors)
	})

	t.Run("Missing_Hospital", func(t *testing.T) {
		_, err := repo.GetProvider(ctx, "does-not-exist")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Inactive_Hidden_From_List", func(t *testing.T) {
		p, err := repo.GetProvider(ctx, "clinic2")
		require.NoError(t, err)
		p.IsActive = false
		require.NoError(t, repo.Upsert(ctx, p))

		active, err := repo.ListActiveProviders(ctx)
		require.NoError(t, err)
		assert.Len(t, active, len(seed)-1)

		still, err := repo.GetProvider(ctx, "clinic2")
		require.NoError(t, err)
		assert.False(t, still.IsActive)
	})

	t.Run("Update_Capacity", func(t *testing.T) {
		require.NoError(t, repo.UpdateCapacity(ctx, "hosp2", 5))
		p, err := repo.GetProvider(ctx, "hosp2")
		require.NoError(t, err)
		assert.Equal(t, 5, p.EmergencyCapacity.Available)

		err = repo.UpdateCapacity(ctx, "hosp2", 10000)
		var verr *domain.ValidationError
		assert.ErrorAs(t, err, &verr)

		err = repo.UpdateCapacity(ctx, "nope", 1)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Rejects_Invalid_Record", func(t *testing.T) {
		bad := domain.ProviderRecord{ID: "bad", EmergencyCapacity: domain.EmergencyCapacity{Total: 1, Available: 2}}
		assert.ErrorIs(t, repo.Upsert(ctx, &bad), domain.ErrInvalidProvider)
	})
}

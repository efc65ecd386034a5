package alerts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/emergency-assist/hospital-recommender/internal/domain"
)

// PostgresStore implements domain.AlertStore on the emergency_alerts table.
// The schema is created by the migrations.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL opens a connection pool and wraps it.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Save upserts the alert by id.
func (s *PostgresStore) Save(ctx context.Context, alert *domain.EmergencyAlert) error {
	args, err := alertArgs(alert)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO emergency_alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			service_provider = EXCLUDED.service_provider,
			recommended_hospitals = EXCLUDED.recommended_hospitals,
			updated_at = EXCLUDED.updated_at`

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save alert: %w", err)
	}
	return nil
}

// Get retrieves an alert by id.
func (s *PostgresStore) Get(ctx context.Context, id string) (*domain.EmergencyAlert, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM emergency_alerts WHERE id = $1`, id)

	alert, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("alert %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return alert, nil
}

// ListByUser returns up to limit alerts of the user, newest first.
func (s *PostgresStore) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.EmergencyAlert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+alertColumns+`
		FROM emergency_alerts
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.EmergencyAlert, 0)
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		result = append(result, alert)
	}
	return result, rows.Err()
}

// UpdateStatus sets the status and returns the updated alert.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status domain.AlertStatus) (*domain.EmergencyAlert, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE emergency_alerts
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+alertColumns, id, string(status))

	alert, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("alert %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update alert status: %w", err)
	}
	return alert, nil
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

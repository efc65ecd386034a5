package alerts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/emergency-assist/hospital-recommender/internal/domain"
)

// SQLiteStore implements domain.AlertStore using an embedded SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens the database at dbPath, creating the file and schema
// when missing. ":memory:" gives a private in-memory store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database lives as long as its single connection
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS emergency_alerts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		alert_type TEXT NOT NULL,
		description TEXT NOT NULL,
		medical_condition TEXT NOT NULL DEFAULT '',
		lat REAL,
		lng REAL,
		address TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'PENDING',
		service_provider TEXT NOT NULL DEFAULT '',
		recommended_hospitals TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_alerts_user_created ON emergency_alerts(user_id, created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save inserts the alert, replacing any stored alert with the same id.
func (s *SQLiteStore) Save(ctx context.Context, alert *domain.EmergencyAlert) error {
	args, err := alertArgs(alert)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO emergency_alerts (`+alertColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// Get retrieves an alert by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*domain.EmergencyAlert, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM emergency_alerts WHERE id = ?`, id)

	alert, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("alert %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan alert: %w", err)
	}
	return alert, nil
}

// ListByUser returns up to limit alerts of the user, newest first.
func (s *SQLiteStore) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.EmergencyAlert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+alertColumns+`
		FROM emergency_alerts
		WHERE user_id = ?
		ORDER BY created_at DESC, id
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.EmergencyAlert, 0)
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, alert)
	}
	return result, rows.Err()
}

// UpdateStatus sets the status of an alert and returns the updated record.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status domain.AlertStatus) (*domain.EmergencyAlert, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE emergency_alerts SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("alert %s: %w", id, domain.ErrNotFound)
	}
	return s.Get(ctx, id)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

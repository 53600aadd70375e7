package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/planchat/internal/domain"
	"github.com/ashureev/planchat/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	policy shared.RetryPolicy
}

var _ Repository = (*SQLiteStore)(nil)

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db, policy: shared.DefaultRetryPolicy}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS preferences (
		device_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (device_id, key)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetPreference retrieves one preference of a device.
func (s *SQLiteStore) GetPreference(ctx context.Context, deviceID, key string) (*domain.Preference, error) {
	query := `SELECT device_id, key, value, updated_at FROM preferences WHERE device_id = ? AND key = ?`
	row := s.db.QueryRowContext(ctx, query, deviceID, key)

	var pref domain.Preference
	var updatedAt int64
	err := row.Scan(&pref.DeviceID, &pref.Key, &pref.Value, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan preference row: %w", err)
	}
	pref.UpdatedAt = time.Unix(updatedAt, 0)
	return &pref, nil
}

// SetPreference creates or updates a preference. Writes that hit
// SQLITE_BUSY are retried with exponential backoff.
func (s *SQLiteStore) SetPreference(ctx context.Context, pref domain.Preference) error {
	if pref.DeviceID == "" || pref.Key == "" {
		return fmt.Errorf("set preference: device id and key are required")
	}
	if pref.UpdatedAt.IsZero() {
		pref.UpdatedAt = time.Now()
	}

	query := `
	INSERT INTO preferences (device_id, key, value, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(device_id, key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at`

	attempt := 0
	err := shared.RetryOnConflict(ctx, s.policy, func() error {
		attempt++
		_, err := s.db.ExecContext(ctx, query, pref.DeviceID, pref.Key, pref.Value, pref.UpdatedAt.Unix())
		if err != nil && shared.IsSQLiteConflictError(err) {
			slog.Debug("SetPreference hit SQLITE_BUSY", "device_id", pref.DeviceID, "attempt", attempt)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert preference: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

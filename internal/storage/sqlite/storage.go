// Package sqlite persists the ban list and settings in a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mcoot/hostguard/internal/model"
	"github.com/mcoot/hostguard/internal/storage"
)

const (
	banListKey  = "banlist"
	settingsKey = "settings"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// Storage is a SQLite-backed implementation of the storage interface
type Storage struct {
	sqlDB *sql.DB
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Open opens, and creates if needed, the SQLite database at path
func Open(path string) (*Storage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Storage{sqlDB: sqlDB}, nil
}

// Close releases the underlying SQLite connection
func (s *Storage) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ban list operations

func (s *Storage) GetBanList(ctx context.Context) (string, error) {
	value, err := s.get(ctx, banListKey)
	if errors.Is(err, sql.ErrNoRows) {
		return "", model.ErrBanListNotFound
	}
	return value, err
}

func (s *Storage) SaveBanList(ctx context.Context, blob string) error {
	return s.put(ctx, banListKey, blob)
}

// Settings operations

func (s *Storage) GetSettings(ctx context.Context) (*model.Settings, error) {
	value, err := s.get(ctx, settingsKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrSettingsNotFound
	}
	if err != nil {
		return nil, err
	}

	var settings model.Settings
	if err := json.Unmarshal([]byte(value), &settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &settings, nil
}

func (s *Storage) SaveSettings(ctx context.Context, settings *model.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return s.put(ctx, settingsKey, string(data))
}

func (s *Storage) get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func (s *Storage) put(ctx context.Context, key, value string) error {
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

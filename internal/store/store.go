// Package store persists asset metadata and redemption records in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	_ "modernc.org/sqlite"

	"payper/internal/models"
)

const (
	busyTimeoutMS   = 5000
	maxOpenConns    = 1
	maxIdleConns    = 1
	connMaxLifetime = 5 * time.Minute
)

// ErrNotFound reports an unknown asset id.
var ErrNotFound = errors.New("asset not found")

// AssetStore is the registry surface the publisher, catalog, and gate use.
type AssetStore interface {
	PutAsset(ctx context.Context, asset models.Asset) error
	GetAsset(ctx context.Context, id string) (models.Asset, error)
	ListAssets(ctx context.Context) ([]models.Asset, error)
	AssetExists(id string) (bool, error)
	RecordRedemption(ctx context.Context, r models.Redemption) (bool, error)
	ListRedemptions(ctx context.Context, assetID string) ([]models.Redemption, error)
	Info(ctx context.Context) (Info, error)
}

// Info summarizes store contents for the info endpoint.
type Info struct {
	SchemaVersion   int   `json:"schema_version"`
	AssetCount      int64 `json:"asset_count"`
	RedemptionCount int64 `json:"redemption_count"`
}

// Store wraps the SQLite database. A single writer connection serializes
// the publish read-modify-write path; reads share the same connection and
// never observe a torn write.
type Store struct {
	db *sql.DB
}

// Open opens the SQLite database and bootstraps the schema.
func Open(path string) (*Store, error) {
	dsn, err := sqliteDSN(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := configureDB(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func configureDB(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA foreign_keys = ON;",
		fmt.Sprintf("PRAGMA busy_timeout = %d;", busyTimeoutMS),
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	// Tune connection pool for local usage.
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	return nil
}

func sqliteDSN(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("db path is required")
	}
	u := url.URL{Scheme: "file", Path: path}
	return u.String(), nil
}

// Info reports schema version and row counts.
func (s *Store) Info(ctx context.Context) (Info, error) {
	var info Info
	version, err := currentVersion(s.db)
	if err != nil {
		return info, err
	}
	info.SchemaVersion = version
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assets").Scan(&info.AssetCount); err != nil {
		return info, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM redemptions").Scan(&info.RedemptionCount); err != nil {
		return info, err
	}
	return info, nil
}

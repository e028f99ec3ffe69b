package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"payper/internal/models"
)

// PutAsset inserts a new asset row. Asset ids are generated, never
// client-supplied, so an existing id is a programming error surfaced as
// a constraint failure rather than an overwrite.
func (s *Store) PutAsset(ctx context.Context, asset models.Asset) error {
	if asset.ID == "" {
		return fmt.Errorf("asset id is required")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO assets (id, file_name, size_bytes, price, seller_wallet, blob_key, sha256, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		asset.ID,
		asset.FileName,
		asset.SizeBytes,
		asset.Price,
		asset.SellerWallet,
		asset.BlobKey,
		asset.SHA256,
		asset.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// GetAsset looks up one asset by id.
func (s *Store) GetAsset(ctx context.Context, id string) (models.Asset, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, file_name, size_bytes, price, seller_wallet, blob_key, sha256, created_at
FROM assets WHERE id = ?`, id)
	asset, err := scanAsset(row)
	if err == sql.ErrNoRows {
		return models.Asset{}, ErrNotFound
	}
	return asset, err
}

// ListAssets returns all assets ordered newest first.
func (s *Store) ListAssets(ctx context.Context) ([]models.Asset, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, file_name, size_bytes, price, seller_wallet, blob_key, sha256, created_at
FROM assets ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assets := make([]models.Asset, 0)
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

// AssetExists checks whether an asset exists by id.
func (s *Store) AssetExists(id string) (bool, error) {
	var exists int
	err := s.db.QueryRow("SELECT 1 FROM assets WHERE id = ? LIMIT 1", id).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (models.Asset, error) {
	var asset models.Asset
	var createdAt string
	err := row.Scan(
		&asset.ID,
		&asset.FileName,
		&asset.SizeBytes,
		&asset.Price,
		&asset.SellerWallet,
		&asset.BlobKey,
		&asset.SHA256,
		&createdAt,
	)
	if err != nil {
		return models.Asset{}, err
	}
	asset.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return models.Asset{}, fmt.Errorf("parse created_at for %s: %w", asset.ID, err)
	}
	return asset, nil
}

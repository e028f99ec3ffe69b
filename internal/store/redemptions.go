package store

import (
	"context"
	"fmt"
	"time"

	"payper/internal/models"
)

// RecordRedemption inserts one redemption row. The (asset_id, tx_hash)
// pair is unique; a replayed proof leaves the table untouched and returns
// inserted=false, which the gate uses when single-use proofs are enforced.
func (s *Store) RecordRedemption(ctx context.Context, r models.Redemption) (bool, error) {
	if r.AssetID == "" || r.TxHash == "" {
		return false, fmt.Errorf("asset id and tx hash are required")
	}
	result, err := s.db.ExecContext(ctx, `
INSERT OR IGNORE INTO redemptions (asset_id, tx_hash, payer, amount_wei, redeemed_at)
VALUES (?, ?, ?, ?, ?)`,
		r.AssetID,
		r.TxHash,
		r.Payer,
		r.AmountWei,
		r.RedeemedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListRedemptions returns the redemption log for one asset, oldest first.
func (s *Store) ListRedemptions(ctx context.Context, assetID string) ([]models.Redemption, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT asset_id, tx_hash, payer, amount_wei, redeemed_at
FROM redemptions WHERE asset_id = ? ORDER BY redeemed_at, tx_hash`, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	redemptions := make([]models.Redemption, 0)
	for rows.Next() {
		var r models.Redemption
		var redeemedAt string
		if err := rows.Scan(&r.AssetID, &r.TxHash, &r.Payer, &r.AmountWei, &redeemedAt); err != nil {
			return nil, err
		}
		r.RedeemedAt, err = time.Parse(time.RFC3339Nano, redeemedAt)
		if err != nil {
			return nil, fmt.Errorf("parse redeemed_at for %s: %w", r.TxHash, err)
		}
		redemptions = append(redemptions, r)
	}
	return redemptions, rows.Err()
}

package models

import "time"

// Asset is one priced file listed for sale. Price and seller wallet are
// immutable once the asset is published; there is no update or delete.
type Asset struct {
	ID           string    `json:"id"`
	FileName     string    `json:"file_name"`
	SizeBytes    int64     `json:"size_bytes"`
	Price        string    `json:"price"`
	SellerWallet string    `json:"seller_wallet"`
	BlobKey      string    `json:"blob_key"`
	SHA256       string    `json:"sha256"`
	CreatedAt    time.Time `json:"created_at"`
}

// Redemption records one successful proof verification against an asset.
// It is an audit trail by default; with single-use proofs enabled the
// unique (asset_id, tx_hash) pair also enforces one redemption per payment.
type Redemption struct {
	AssetID    string    `json:"asset_id"`
	TxHash     string    `json:"tx_hash"`
	Payer      string    `json:"payer,omitempty"`
	AmountWei  string    `json:"amount_wei"`
	RedeemedAt time.Time `json:"redeemed_at"`
}

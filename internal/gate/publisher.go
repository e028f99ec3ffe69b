package gate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"payper/internal/blobstore"
	"payper/internal/models"
	"payper/internal/store"
	"payper/internal/wei"
)

// PublishInput carries the listing fields for a new asset.
type PublishInput struct {
	FileName     string
	Price        string
	SellerWallet string
}

// Publisher lists new assets: bytes first, metadata second, so the
// registry never references missing content. The reverse can leak an
// orphaned blob on a crash between the two writes; that is the accepted
// trade-off.
type Publisher struct {
	store  store.AssetStore
	blobs  blobstore.Store
	logger *slog.Logger
}

// NewPublisher creates a publisher over the registry and blob store.
func NewPublisher(assetStore store.AssetStore, blobs blobstore.Store, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{store: assetStore, blobs: blobs, logger: logger}
}

// Publish validates the listing, persists the content, mints a fresh id,
// and records the metadata. Price and wallet are immutable afterwards.
func (p *Publisher) Publish(ctx context.Context, in PublishInput, r io.Reader) (models.Asset, error) {
	var zero models.Asset

	if in.FileName == "" || in.Price == "" || in.SellerWallet == "" || r == nil {
		return zero, fmt.Errorf("%w: file, price, and wallet are required", ErrInvalidInput)
	}
	if _, err := wei.Parse(in.Price); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !common.IsHexAddress(in.SellerWallet) {
		return zero, fmt.Errorf("%w: invalid wallet address", ErrInvalidInput)
	}

	blob, err := p.blobs.Put(ctx, r)
	if err != nil {
		p.logger.Error("blob write failed", "file_name", in.FileName, "error", err)
		return zero, fmt.Errorf("%w: store content", ErrStorage)
	}

	id, err := store.GenerateAssetID(p.store.AssetExists)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	asset := models.Asset{
		ID:           id,
		FileName:     in.FileName,
		SizeBytes:    blob.SizeBytes,
		Price:        in.Price,
		SellerWallet: in.SellerWallet,
		BlobKey:      blob.Key,
		SHA256:       blob.SHA256,
		CreatedAt:    time.Now().UTC(),
	}
	if err := p.store.PutAsset(ctx, asset); err != nil {
		p.logger.Error("metadata write failed", "asset_id", id, "error", err)
		return zero, fmt.Errorf("%w: store metadata", ErrStorage)
	}

	p.logger.Info("asset published",
		"asset_id", id, "file_name", asset.FileName,
		"size_bytes", asset.SizeBytes, "price", asset.Price)
	return asset, nil
}

package gate

import (
	"context"
	"fmt"
	"time"

	"payper/internal/store"
)

// Listing is one publicly visible catalog entry. The seller wallet is
// deliberately absent; it is disclosed only inside a payment challenge.
type Listing struct {
	ID        string
	FileName  string
	Price     string
	SizeBytes int64
	CreatedAt time.Time
}

// Catalog lists published assets for discovery.
type Catalog struct {
	store store.AssetStore
}

// NewCatalog creates a catalog over the registry.
func NewCatalog(assetStore store.AssetStore) *Catalog {
	return &Catalog{store: assetStore}
}

// List returns all listings ordered newest first. An empty marketplace
// yields an empty slice, not an error.
func (c *Catalog) List(ctx context.Context) ([]Listing, error) {
	assets, err := c.store.ListAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	listings := make([]Listing, 0, len(assets))
	for _, asset := range assets {
		listings = append(listings, Listing{
			ID:        asset.ID,
			FileName:  asset.FileName,
			Price:     asset.Price,
			SizeBytes: asset.SizeBytes,
			CreatedAt: asset.CreatedAt,
		})
	}
	return listings, nil
}

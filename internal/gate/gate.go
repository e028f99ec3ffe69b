// Package gate implements the payment-gated exchange protocol: challenge
// issuance for unpaid requests and trustless proof verification against
// the ledger before asset bytes are released.
package gate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"payper/internal/blobstore"
	"payper/internal/ledger"
	"payper/internal/models"
	"payper/internal/store"
	"payper/internal/wei"
)

const defaultVerifyTimeout = 15 * time.Second

// Offer describes one acceptable payment for an asset.
type Offer struct {
	Amount    string
	Recipient string
	Currency  string
}

// Challenge is the priced-access-denied payload for an unpaid request.
// Offers always holds exactly one entry; the slice shape is kept for
// forward compatibility with multi-offer listings.
type Challenge struct {
	FileName     string
	SellerWallet string
	FileSize     int64
	Offers       []Offer
}

// Content is a verified asset payload ready to stream.
type Content struct {
	Reader    io.ReadCloser
	FileName  string
	SizeBytes int64
}

// Options configure gate verification behavior.
type Options struct {
	ChainID         int64
	Currency        string
	VerifyTimeout   time.Duration
	SingleUseProofs bool
}

// Gate enforces pay-to-access semantics over stored asset bytes. It keeps
// no per-request state, so challenge issuance is idempotent and
// verification is re-entrant.
type Gate struct {
	store   store.AssetStore
	blobs   blobstore.Store
	ledger  ledger.Client
	policy  ledger.ConfirmationPolicy
	opts    Options
	chainID *big.Int
	logger  *slog.Logger
}

// New creates a gate over the given registry, blob store, and ledger client.
func New(assetStore store.AssetStore, blobs blobstore.Store, ledgerClient ledger.Client, policy ledger.ConfirmationPolicy, opts Options, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	if policy == nil {
		policy = ledger.AnyLookup{}
	}
	if opts.Currency == "" {
		opts.Currency = "ETH"
	}
	if opts.VerifyTimeout <= 0 {
		opts.VerifyTimeout = defaultVerifyTimeout
	}
	return &Gate{
		store:   assetStore,
		blobs:   blobs,
		ledger:  ledgerClient,
		policy:  policy,
		opts:    opts,
		chainID: big.NewInt(opts.ChainID),
		logger:  logger,
	}
}

// Challenge builds the payment challenge for an asset. It has no side
// effects; any number of clients may request it concurrently.
func (g *Gate) Challenge(ctx context.Context, assetID string) (Challenge, error) {
	asset, err := g.lookup(ctx, assetID)
	if err != nil {
		return Challenge{}, err
	}
	return Challenge{
		FileName:     asset.FileName,
		SellerWallet: asset.SellerWallet,
		FileSize:     asset.SizeBytes,
		Offers: []Offer{{
			Amount:    asset.Price,
			Recipient: asset.SellerWallet,
			Currency:  g.opts.Currency,
		}},
	}, nil
}

// Redeem verifies a payment proof against the ledger and, on success,
// returns the asset bytes. The caller owns the returned reader.
func (g *Gate) Redeem(ctx context.Context, assetID, proof string) (*Content, error) {
	asset, err := g.lookup(ctx, assetID)
	if err != nil {
		return nil, err
	}

	priceWei, err := wei.Parse(asset.Price)
	if err != nil {
		// The publisher validated the price; a bad stored value is corruption.
		return nil, fmt.Errorf("%w: stored price for %s: %v", ErrStorage, asset.ID, err)
	}

	hash, ok := parseTxHash(proof)
	if !ok {
		g.logger.Debug("rejecting malformed proof", "asset_id", asset.ID)
		return nil, ErrVerificationFailed
	}

	tx, err := g.verify(ctx, asset, hash, priceWei)
	if err != nil {
		return nil, err
	}

	// Open before recording: a failed open must not consume the proof,
	// or a transient storage error would lock a paid buyer out of every
	// retry under single-use enforcement.
	rc, err := g.blobs.Open(ctx, asset.BlobKey)
	if err != nil {
		g.logger.Error("asset blob unreadable", "asset_id", asset.ID, "blob_key", asset.BlobKey, "error", err)
		return nil, fmt.Errorf("%w: open blob for %s", ErrStorage, asset.ID)
	}

	if err := g.recordRedemption(ctx, asset, tx, hash); err != nil {
		rc.Close()
		return nil, err
	}

	return &Content{Reader: rc, FileName: asset.FileName, SizeBytes: asset.SizeBytes}, nil
}

func (g *Gate) lookup(ctx context.Context, assetID string) (models.Asset, error) {
	asset, err := g.store.GetAsset(ctx, assetID)
	if err == store.ErrNotFound {
		return models.Asset{}, ErrAssetNotFound
	}
	if err != nil {
		g.logger.Error("asset lookup failed", "asset_id", assetID, "error", err)
		return models.Asset{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return asset, nil
}

// verify resolves the proof and checks recipient and amount against the
// same queried transaction record. Every failure collapses to
// ErrVerificationFailed; the distinguishing cause is only logged.
func (g *Gate) verify(ctx context.Context, asset models.Asset, hash common.Hash, priceWei *big.Int) (*types.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, g.opts.VerifyTimeout)
	defer cancel()

	tx, pending, err := g.ledger.TransactionByHash(ctx, hash)
	if err != nil {
		g.logger.Warn("proof lookup failed", "asset_id", asset.ID, "tx_hash", hash.Hex(), "error", err)
		return nil, ErrVerificationFailed
	}

	confirmed, err := g.policy.Confirmed(ctx, g.ledger, tx, pending)
	if err != nil {
		g.logger.Warn("confirmation check failed", "asset_id", asset.ID, "tx_hash", hash.Hex(), "error", err)
		return nil, ErrVerificationFailed
	}
	if !confirmed {
		g.logger.Debug("proof not confirmed", "asset_id", asset.ID, "tx_hash", hash.Hex())
		return nil, ErrVerificationFailed
	}

	to := tx.To()
	if to == nil || !strings.EqualFold(to.Hex(), asset.SellerWallet) {
		g.logger.Debug("proof recipient mismatch", "asset_id", asset.ID, "tx_hash", hash.Hex())
		return nil, ErrVerificationFailed
	}
	if tx.Value().Cmp(priceWei) < 0 {
		g.logger.Debug("proof amount insufficient",
			"asset_id", asset.ID, "tx_hash", hash.Hex(),
			"paid_wei", tx.Value().String(), "price_wei", priceWei.String())
		return nil, ErrVerificationFailed
	}

	return tx, nil
}

func (g *Gate) recordRedemption(ctx context.Context, asset models.Asset, tx *types.Transaction, hash common.Hash) error {
	redemption := models.Redemption{
		AssetID:    asset.ID,
		TxHash:     hash.Hex(),
		Payer:      senderAddress(tx, g.chainID),
		AmountWei:  tx.Value().String(),
		RedeemedAt: time.Now().UTC(),
	}
	inserted, err := g.store.RecordRedemption(ctx, redemption)
	if err != nil {
		if g.opts.SingleUseProofs {
			g.logger.Error("redemption record failed with single-use enforcement", "asset_id", asset.ID, "error", err)
			return fmt.Errorf("%w: record redemption", ErrStorage)
		}
		// Audit-only mode: a failed record must not block delivery.
		g.logger.Warn("redemption record failed", "asset_id", asset.ID, "error", err)
		return nil
	}
	if !inserted && g.opts.SingleUseProofs {
		g.logger.Info("rejecting replayed proof", "asset_id", asset.ID, "tx_hash", hash.Hex())
		return ErrVerificationFailed
	}
	return nil
}

func senderAddress(tx *types.Transaction, chainID *big.Int) string {
	sender, err := types.Sender(types.LatestSignerForChainID(chainID), tx)
	if err != nil {
		return ""
	}
	return sender.Hex()
}

func parseTxHash(proof string) (common.Hash, bool) {
	proof = strings.TrimSpace(proof)
	trimmed := strings.TrimPrefix(proof, "0x")
	if len(trimmed) != common.HashLength*2 {
		return common.Hash{}, false
	}
	for _, c := range trimmed {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return common.Hash{}, false
		}
	}
	return common.HexToHash(proof), true
}

package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"payper/internal/api"
	"payper/internal/ledger"
	"payper/internal/wei"
)

// Sentinel outcomes for a buying round.
var (
	ErrNoListings        = errors.New("catalog is empty")
	ErrPriceTooHigh      = errors.New("offer exceeds the configured max price")
	ErrDeclined          = errors.New("signal declined the purchase")
	ErrInsufficientFunds = errors.New("wallet balance below offer amount")
)

// Options configure a buying agent.
type Options struct {
	// DownloadDir is where redeemed assets are written.
	DownloadDir string
	// MaxPriceWei caps what the agent will pay. Nil means no cap.
	MaxPriceWei *big.Int
	// Signal gates each purchase; defaults to AcceptAll.
	Signal Signal
	// Poll is the receipt polling interval while a payment mines.
	Poll time.Duration
}

// Agent buys one asset per round: list, quote, pay, redeem, save.
type Agent struct {
	client  *api.Client
	backend ledger.Backend
	wallet  *Wallet
	opts    Options
	logger  *slog.Logger
}

// Purchase describes a completed buy.
type Purchase struct {
	AssetID   string
	FileName  string
	TxHash    common.Hash
	AmountWei *big.Int
	SavedPath string
}

// New creates a buying agent.
func New(client *api.Client, backend ledger.Backend, wallet *Wallet, opts Options, logger *slog.Logger) (*Agent, error) {
	if client == nil || backend == nil || wallet == nil {
		return nil, fmt.Errorf("client, backend, and wallet are required")
	}
	if opts.Signal == nil {
		opts.Signal = AcceptAll{}
	}
	if opts.DownloadDir == "" {
		opts.DownloadDir = "."
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{client: client, backend: backend, wallet: wallet, opts: opts, logger: logger}, nil
}

// RunOnce performs one buying round and returns the purchase. The
// sentinel errors report why a round ended without one.
func (a *Agent) RunOnce(ctx context.Context) (*Purchase, error) {
	files, err := a.client.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoListings
	}

	pick := files[rand.IntN(len(files))]
	a.logger.Info("considering listing", "asset_id", pick.ID, "file_name", pick.FileName, "price", pick.Price)

	challenge, err := a.client.RequestChallenge(ctx, pick.ID)
	if err != nil {
		return nil, fmt.Errorf("request challenge for %s: %w", pick.ID, err)
	}
	offer, err := challenge.PrimaryOffer()
	if err != nil {
		return nil, fmt.Errorf("challenge for %s: %w", pick.ID, err)
	}
	amount, err := wei.Parse(offer.Amount)
	if err != nil {
		return nil, fmt.Errorf("offer amount %q: %w", offer.Amount, err)
	}
	if !common.IsHexAddress(offer.Recipient) {
		return nil, fmt.Errorf("offer recipient %q is not an address", offer.Recipient)
	}

	if a.opts.MaxPriceWei != nil && amount.Cmp(a.opts.MaxPriceWei) > 0 {
		a.logger.Info("skipping listing over price cap",
			"asset_id", pick.ID, "amount_wei", amount.String(), "cap_wei", a.opts.MaxPriceWei.String())
		return nil, ErrPriceTooHigh
	}

	quote := Quote{
		AssetID:   pick.ID,
		FileName:  challenge.FileName,
		AmountWei: amount,
		Recipient: offer.Recipient,
		Currency:  offer.Currency,
	}
	approved, err := a.opts.Signal.Approve(ctx, quote)
	if err != nil {
		return nil, fmt.Errorf("signal: %w", err)
	}
	if !approved {
		return nil, ErrDeclined
	}

	balance, err := a.backend.BalanceAt(ctx, a.wallet.Address(), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch balance: %w", err)
	}
	if balance.Cmp(amount) < 0 {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientFunds, balance, amount)
	}

	hash, err := a.wallet.Pay(ctx, a.backend, common.HexToAddress(offer.Recipient), amount)
	if err != nil {
		return nil, fmt.Errorf("pay offer: %w", err)
	}
	a.logger.Info("payment submitted", "asset_id", pick.ID, "tx_hash", hash.Hex(), "amount_wei", amount.String())

	if _, err := WaitMined(ctx, a.backend, hash, a.opts.Poll); err != nil {
		return nil, err
	}

	body, suggested, err := a.client.Redeem(ctx, pick.ID, hash.Hex())
	if err != nil {
		return nil, fmt.Errorf("redeem %s: %w", pick.ID, err)
	}
	defer body.Close()

	savedPath, err := a.save(pick, suggested, body)
	if err != nil {
		return nil, err
	}
	a.logger.Info("purchase complete", "asset_id", pick.ID, "tx_hash", hash.Hex(), "path", savedPath)

	return &Purchase{
		AssetID:   pick.ID,
		FileName:  pick.FileName,
		TxHash:    hash,
		AmountWei: amount,
		SavedPath: savedPath,
	}, nil
}

func (a *Agent) save(pick api.FileSummary, suggested string, body io.Reader) (string, error) {
	name := filepath.Base(strings.TrimSpace(suggested))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = filepath.Base(pick.FileName)
	}
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = pick.ID
	}

	if err := os.MkdirAll(a.opts.DownloadDir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	path := filepath.Join(a.opts.DownloadDir, "agent_bought_"+name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

// Package agent implements an autonomous buyer: it browses the catalog,
// settles an offer on chain with its own wallet, and redeems the proof
// for the asset bytes.
package agent

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"payper/internal/ledger"
)

const (
	agentKeyEnvKey = "PAYPER_AGENT_KEY"
	transferGas    = 21000
)

// Wallet holds the agent's signing key.
type Wallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewWallet builds a wallet from a hex-encoded private key, with or
// without a 0x prefix.
func NewWallet(hexKey string) (*Wallet, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if trimmed == "" {
		return nil, fmt.Errorf("private key is required")
	}
	key, err := crypto.HexToECDSA(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &Wallet{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// WalletFromEnv reads the agent key from PAYPER_AGENT_KEY.
func WalletFromEnv() (*Wallet, error) {
	raw := os.Getenv(agentKeyEnvKey)
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%s is not set", agentKeyEnvKey)
	}
	return NewWallet(raw)
}

// Address returns the wallet's account address.
func (w *Wallet) Address() common.Address {
	return w.address
}

// Pay sends a native transfer of amountWei to the recipient and returns
// the transaction hash. The transaction is submitted, not yet mined.
func (w *Wallet) Pay(ctx context.Context, backend ledger.Backend, to common.Address, amountWei *big.Int) (common.Hash, error) {
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("fetch chain id: %w", err)
	}
	nonce, err := backend.PendingNonceAt(ctx, w.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("fetch nonce: %w", err)
	}
	gasPrice, err := backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("fetch gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    new(big.Int).Set(amountWei),
		Gas:      transferGas,
		GasPrice: gasPrice,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), w.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign transaction: %w", err)
	}
	if err := backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send transaction: %w", err)
	}
	return signed.Hash(), nil
}

// WaitMined polls for the transaction receipt until the context expires.
func WaitMined(ctx context.Context, backend ledger.Backend, hash common.Hash, poll time.Duration) (*types.Receipt, error) {
	if poll <= 0 {
		poll = 2 * time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		receipt, err := backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %s to mine: %w", hash, ctx.Err())
		case <-ticker.C:
		}
	}
}

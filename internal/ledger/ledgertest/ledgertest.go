// Package ledgertest provides an in-memory chain fake for tests.
package ledgertest

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type txEntry struct {
	tx      *types.Transaction
	pending bool
	block   uint64
}

// Chain is an in-memory node fake implementing ledger.Client and
// ledger.Backend. Safe for concurrent use.
type Chain struct {
	mu       sync.Mutex
	txs      map[common.Hash]txEntry
	balances map[common.Address]*big.Int
	head     uint64
	chainID  *big.Int

	// LookupErr, when set, fails every query, simulating an unreachable node.
	LookupErr error
}

// NewChain creates a fake chain with the given chain id.
func NewChain(chainID int64) *Chain {
	return &Chain{
		txs:      map[common.Hash]txEntry{},
		balances: map[common.Address]*big.Int{},
		head:     1,
		chainID:  big.NewInt(chainID),
	}
}

// SeedTransfer records an already-settled native transfer and returns its hash.
func (c *Chain) SeedTransfer(to common.Address, valueWei *big.Int) common.Hash {
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    uint64(len(c.txs)),
		To:       &to,
		Value:    new(big.Int).Set(valueWei),
		Gas:      21000,
		GasPrice: big.NewInt(1),
	})
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head++
	c.txs[tx.Hash()] = txEntry{tx: tx, block: c.head}
	return tx.Hash()
}

// SeedPending records a known but unmined transfer.
func (c *Chain) SeedPending(to common.Address, valueWei *big.Int) common.Hash {
	hash := c.SeedTransfer(to, valueWei)
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := c.txs[hash]
	entry.pending = true
	entry.block = 0
	c.txs[hash] = entry
	return hash
}

// SetBalance sets an account balance.
func (c *Chain) SetBalance(account common.Address, wei *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[account] = new(big.Int).Set(wei)
}

// AdvanceHead mines n empty blocks.
func (c *Chain) AdvanceHead(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head += n
}

func (c *Chain) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.LookupErr != nil {
		return nil, false, c.LookupErr
	}
	entry, ok := c.txs[hash]
	if !ok {
		return nil, false, fmt.Errorf("transaction %s not found", hash)
	}
	return entry.tx, entry.pending, nil
}

func (c *Chain) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.LookupErr != nil {
		return nil, c.LookupErr
	}
	entry, ok := c.txs[hash]
	if !ok || entry.pending {
		return nil, fmt.Errorf("receipt for %s not found", hash)
	}
	return &types.Receipt{
		TxHash:      hash,
		Status:      types.ReceiptStatusSuccessful,
		BlockNumber: new(big.Int).SetUint64(entry.block),
	}, nil
}

func (c *Chain) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.LookupErr != nil {
		return nil, c.LookupErr
	}
	balance, ok := c.balances[account]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(balance), nil
}

func (c *Chain) BlockNumber(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.LookupErr != nil {
		return 0, c.LookupErr
	}
	return c.head, nil
}

func (c *Chain) ChainID(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.chainID), nil
}

func (c *Chain) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 0, nil
}

func (c *Chain) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

// SendTransaction mines the transaction immediately.
func (c *Chain) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.LookupErr != nil {
		return c.LookupErr
	}
	c.head++
	c.txs[tx.Hash()] = txEntry{tx: tx, block: c.head}
	return nil
}

package ledger

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
)

// ConfirmationPolicy decides whether a transaction found on the node
// counts as settled. The original system accepted any lookup success;
// that stays the default, with depth checking available where the trust
// assumption is too loose.
type ConfirmationPolicy interface {
	Confirmed(ctx context.Context, client Client, tx *types.Transaction, pending bool) (bool, error)
}

// AnyLookup accepts every transaction the node can resolve, pending or not.
type AnyLookup struct{}

func (AnyLookup) Confirmed(ctx context.Context, client Client, tx *types.Transaction, pending bool) (bool, error) {
	return tx != nil, nil
}

// MinDepth requires the transaction to be mined at least Depth blocks
// below the chain head. Depth 1 means "in a block at the head".
type MinDepth struct {
	Depth uint64
}

func (p MinDepth) Confirmed(ctx context.Context, client Client, tx *types.Transaction, pending bool) (bool, error) {
	if tx == nil || pending {
		return false, nil
	}
	receipt, err := client.TransactionReceipt(ctx, tx.Hash())
	if err != nil {
		return false, err
	}
	if receipt == nil || receipt.BlockNumber == nil {
		return false, nil
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return false, nil
	}
	head, err := client.BlockNumber(ctx)
	if err != nil {
		return false, err
	}
	mined := receipt.BlockNumber.Uint64()
	if head < mined {
		return false, fmt.Errorf("head %d behind receipt block %d", head, mined)
	}
	return head-mined+1 >= p.Depth, nil
}

// PolicyForDepth picks the policy matching a configured confirmation depth.
func PolicyForDepth(minConfirmations uint64) ConfirmationPolicy {
	if minConfirmations == 0 {
		return AnyLookup{}
	}
	return MinDepth{Depth: minConfirmations}
}

package agent

import (
	"context"
	"math/big"
)

// Quote is what a signal sees about a candidate purchase.
type Quote struct {
	AssetID   string
	FileName  string
	AmountWei *big.Int
	Recipient string
	Currency  string
}

// Signal decides whether the agent should take a quoted purchase. The
// agent has already applied its hard price cap when a signal is asked.
type Signal interface {
	Approve(ctx context.Context, q Quote) (bool, error)
}

// AcceptAll approves every quote. It is the default signal.
type AcceptAll struct{}

func (AcceptAll) Approve(context.Context, Quote) (bool, error) { return true, nil }

// SignalFunc adapts a function to the Signal interface.
type SignalFunc func(ctx context.Context, q Quote) (bool, error)

func (f SignalFunc) Approve(ctx context.Context, q Quote) (bool, error) { return f(ctx, q) }

// SpendCap approves quotes at or below a wei limit. A nil limit
// approves everything.
type SpendCap struct {
	LimitWei *big.Int
}

func (s SpendCap) Approve(_ context.Context, q Quote) (bool, error) {
	if s.LimitWei == nil {
		return true, nil
	}
	return q.AmountWei.Cmp(s.LimitWei) <= 0, nil
}

package agent

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"payper/internal/api"
	"payper/internal/blobstore"
	"payper/internal/gate"
	"payper/internal/ledger/ledgertest"
	"payper/internal/server"
	"payper/internal/store"
	"payper/internal/wei"
)

// Known throwaway key, never used on a real network.
const (
	testAgentKey     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testSellerWallet = "0xAAAA567890123456789012345678901234567890"
)

type agentFixture struct {
	ts        *httptest.Server
	chain     *ledgertest.Chain
	publisher *gate.Publisher
	wallet    *Wallet
	dir       string
}

func newAgentFixture(t *testing.T) *agentFixture {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "payper.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	blobs, err := blobstore.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("open blobstore: %v", err)
	}

	chain := ledgertest.NewChain(338)
	srv := server.New("", server.Options{
		Store:  st,
		Blobs:  blobs,
		Ledger: chain,
		Gate:   gate.Options{ChainID: 338},
	}, slog.Default())

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	wallet, err := NewWallet(testAgentKey)
	if err != nil {
		t.Fatalf("build wallet: %v", err)
	}

	return &agentFixture{
		ts:        ts,
		chain:     chain,
		publisher: gate.NewPublisher(st, blobs, slog.Default()),
		wallet:    wallet,
		dir:       t.TempDir(),
	}
}

func (f *agentFixture) publish(t *testing.T, name, price string, content []byte) string {
	t.Helper()
	asset, err := f.publisher.Publish(context.Background(), gate.PublishInput{
		FileName:     name,
		Price:        price,
		SellerWallet: testSellerWallet,
	}, bytes.NewReader(content))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	return asset.ID
}

func (f *agentFixture) fund(amount string) {
	weiAmount, _ := wei.Parse(amount)
	f.chain.SetBalance(f.wallet.Address(), weiAmount)
}

func (f *agentFixture) newAgent(t *testing.T, opts Options) *Agent {
	t.Helper()
	if opts.DownloadDir == "" {
		opts.DownloadDir = f.dir
	}
	if opts.Poll == 0 {
		opts.Poll = time.Millisecond
	}
	a, err := New(api.NewClient(f.ts.URL), f.chain, f.wallet, opts, slog.Default())
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	return a
}

func TestRunOnceBuysAndSaves(t *testing.T) {
	f := newAgentFixture(t)
	content := []byte("contents the agent pays for")
	id := f.publish(t, "guide.txt", "2", content)
	f.fund("10")

	purchase, err := f.newAgent(t, Options{}).RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if purchase.AssetID != id {
		t.Fatalf("bought %s, expected %s", purchase.AssetID, id)
	}
	wantAmount, _ := wei.Parse("2")
	if purchase.AmountWei.Cmp(wantAmount) != 0 {
		t.Fatalf("paid %s wei, expected %s", purchase.AmountWei, wantAmount)
	}
	if base := filepath.Base(purchase.SavedPath); base != "agent_bought_guide.txt" {
		t.Fatalf("unexpected saved name: %s", base)
	}

	saved, err := os.ReadFile(purchase.SavedPath)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if !bytes.Equal(saved, content) {
		t.Fatal("saved bytes differ from published content")
	}
}

func TestRunOnceEmptyCatalog(t *testing.T) {
	f := newAgentFixture(t)
	f.fund("10")

	if _, err := f.newAgent(t, Options{}).RunOnce(context.Background()); !errors.Is(err, ErrNoListings) {
		t.Fatalf("expected ErrNoListings, got %v", err)
	}
}

func TestRunOncePriceCap(t *testing.T) {
	f := newAgentFixture(t)
	f.publish(t, "pricey.txt", "100", []byte("x"))
	f.fund("1000")

	priceCap, _ := wei.Parse("5")
	if _, err := f.newAgent(t, Options{MaxPriceWei: priceCap}).RunOnce(context.Background()); !errors.Is(err, ErrPriceTooHigh) {
		t.Fatalf("expected ErrPriceTooHigh, got %v", err)
	}
}

func TestRunOnceSignalDeclines(t *testing.T) {
	f := newAgentFixture(t)
	f.publish(t, "a.txt", "1", []byte("x"))
	f.fund("10")

	var seen Quote
	decline := SignalFunc(func(_ context.Context, q Quote) (bool, error) {
		seen = q
		return false, nil
	})
	if _, err := f.newAgent(t, Options{Signal: decline}).RunOnce(context.Background()); !errors.Is(err, ErrDeclined) {
		t.Fatalf("expected ErrDeclined, got %v", err)
	}
	if seen.FileName != "a.txt" || !strings.EqualFold(seen.Recipient, testSellerWallet) {
		t.Fatalf("signal saw unexpected quote: %+v", seen)
	}
}

func TestRunOnceInsufficientFunds(t *testing.T) {
	f := newAgentFixture(t)
	f.publish(t, "a.txt", "5", []byte("x"))
	f.fund("1")

	if _, err := f.newAgent(t, Options{}).RunOnce(context.Background()); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestSpendCap(t *testing.T) {
	limit, _ := wei.Parse("3")
	signal := SpendCap{LimitWei: limit}

	under, _ := wei.Parse("2")
	if ok, _ := signal.Approve(context.Background(), Quote{AmountWei: under}); !ok {
		t.Fatal("amount under the limit must be approved")
	}
	over, _ := wei.Parse("4")
	if ok, _ := signal.Approve(context.Background(), Quote{AmountWei: over}); ok {
		t.Fatal("amount over the limit must be declined")
	}
}

func TestWalletFromEnv(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		t.Setenv("PAYPER_AGENT_KEY", "")
		if _, err := WalletFromEnv(); err == nil {
			t.Fatal("expected error when key is unset")
		}
	})

	t.Run("with 0x prefix", func(t *testing.T) {
		t.Setenv("PAYPER_AGENT_KEY", "0x"+testAgentKey)
		w, err := WalletFromEnv()
		if err != nil {
			t.Fatalf("wallet from env: %v", err)
		}
		if w.Address().Hex() != "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266" {
			t.Fatalf("unexpected address: %s", w.Address().Hex())
		}
	})
}

package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"payper/internal/api"
	"payper/internal/blobstore"
	"payper/internal/gate"
	"payper/internal/ledger/ledgertest"
	"payper/internal/store"
	"payper/internal/wei"
)

const testSellerWallet = "0xAAAA567890123456789012345678901234567890"

type serverFixture struct {
	ts    *httptest.Server
	chain *ledgertest.Chain
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "payper.db")
	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	blobs, err := blobstore.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("open blobstore: %v", err)
	}

	chain := ledgertest.NewChain(338)
	srv := New("", Options{
		Store:   st,
		Blobs:   blobs,
		Ledger:  chain,
		Gate:    gate.Options{ChainID: 338},
		Version: "test",
		DBPath:  dbPath,
	}, slog.Default())

	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)

	return &serverFixture{ts: ts, chain: chain}
}

func (f *serverFixture) upload(t *testing.T, fileName, price string, content []byte) string {
	t.Helper()

	status, body := f.uploadRaw(t, map[string]string{"price": price, "wallet": testSellerWallet}, fileName, content)
	if status != http.StatusOK {
		t.Fatalf("upload returned %d: %s", status, body)
	}

	var resp api.PublishResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if !resp.Success || resp.AssetID == "" {
		t.Fatalf("unexpected upload response: %+v", resp)
	}
	return resp.AssetID
}

func (f *serverFixture) uploadRaw(t *testing.T, fields map[string]string, fileName string, content []byte) (int, []byte) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if fileName != "" {
		part, err := mw.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	resp, err := http.Post(f.ts.URL+"/api/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("upload request: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, body
}

func (f *serverFixture) download(t *testing.T, assetID, proof string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, f.ts.URL+"/api/download/"+assetID, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if proof != "" {
		req.Header.Set(api.PaymentHeader, proof)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("download request: %v", err)
	}
	return resp
}

func (f *serverFixture) pay(t *testing.T, price string) common.Hash {
	t.Helper()
	amount, err := wei.Parse(price)
	if err != nil {
		t.Fatalf("parse price: %v", err)
	}
	return f.chain.SeedTransfer(common.HexToAddress(testSellerWallet), amount)
}

func TestUploadChallengeRedeemFlow(t *testing.T) {
	f := newServerFixture(t)
	original := []byte("the full text of the report")
	id := f.upload(t, "report.txt", "5", original)

	// Listing includes the new file without the seller wallet.
	resp, err := http.Get(f.ts.URL + "/api/files")
	if err != nil {
		t.Fatalf("list request: %v", err)
	}
	var files []api.FileSummary
	if err := json.NewDecoder(resp.Body).Decode(&files); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	resp.Body.Close()
	if len(files) != 1 || files[0].ID != id || files[0].Price != "5" {
		t.Fatalf("unexpected listing: %+v", files)
	}

	// Without a proof the endpoint issues a 402 challenge.
	chResp := f.download(t, id, "")
	defer chResp.Body.Close()
	if chResp.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", chResp.StatusCode)
	}
	var challenge api.ChallengeResponse
	if err := json.NewDecoder(chResp.Body).Decode(&challenge); err != nil {
		t.Fatalf("decode challenge: %v", err)
	}
	if challenge.Error != msgPaymentRequired {
		t.Fatalf("unexpected challenge error: %q", challenge.Error)
	}
	offer, err := challenge.PrimaryOffer()
	if err != nil {
		t.Fatalf("primary offer: %v", err)
	}
	if offer.Amount != "5" || !strings.EqualFold(offer.Recipient, testSellerWallet) || offer.Currency != "ETH" {
		t.Fatalf("unexpected offer: %+v", offer)
	}

	// Pay the offer on chain and redeem.
	hash := f.pay(t, offer.Amount)
	dlResp := f.download(t, id, hash.Hex())
	defer dlResp.Body.Close()
	if dlResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(dlResp.Body)
		t.Fatalf("redeem returned %d: %s", dlResp.StatusCode, body)
	}
	got, err := io.ReadAll(dlResp.Body)
	if err != nil {
		t.Fatalf("read content: %v", err)
	}
	if !bytes.Equal(got, original) {
		t.Fatalf("released bytes differ from upload")
	}

	_, params, err := mime.ParseMediaType(dlResp.Header.Get("Content-Disposition"))
	if err != nil {
		t.Fatalf("parse content disposition: %v", err)
	}
	if params["filename"] != "report.txt" {
		t.Fatalf("unexpected filename: %q", params["filename"])
	}
	if ct := dlResp.Header.Get("Content-Type"); ct != "application/octet-stream" {
		t.Fatalf("unexpected content type: %q", ct)
	}
}

func TestDownloadUnknownAsset(t *testing.T) {
	f := newServerFixture(t)

	resp := f.download(t, "as-missing1", "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	var errResp api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if errResp.Error != msgFileNotFound {
		t.Fatalf("unexpected error message: %q", errResp.Error)
	}
}

func TestDownloadFailedVerification(t *testing.T) {
	f := newServerFixture(t)
	id := f.upload(t, "a.txt", "5", []byte("x"))

	t.Run("underpayment", func(t *testing.T) {
		hash := f.pay(t, "4.999999999999999999")
		resp := f.download(t, id, hash.Hex())
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
		var errResp api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
			t.Fatalf("decode error: %v", err)
		}
		if errResp.Error != msgVerificationFailed {
			t.Fatalf("unexpected error message: %q", errResp.Error)
		}
	})

	t.Run("unknown transaction", func(t *testing.T) {
		resp := f.download(t, id, "0x"+strings.Repeat("ab", 32))
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("malformed proof", func(t *testing.T) {
		resp := f.download(t, id, "not-a-hash")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})
}

func TestDownloadBodyProof(t *testing.T) {
	f := newServerFixture(t)
	original := []byte("paid content")
	id := f.upload(t, "b.txt", "1", original)
	hash := f.pay(t, "1")

	body := strings.NewReader(fmt.Sprintf(`{"txHash":%q}`, hash.Hex()))
	resp, err := http.Post(f.ts.URL+"/api/download/"+id, "application/json", body)
	if err != nil {
		t.Fatalf("download request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("redeem via body proof returned %d: %s", resp.StatusCode, raw)
	}
	got, _ := io.ReadAll(resp.Body)
	if !bytes.Equal(got, original) {
		t.Fatal("released bytes differ from upload")
	}
}

func TestUploadMissingFields(t *testing.T) {
	f := newServerFixture(t)

	cases := []struct {
		name     string
		fields   map[string]string
		fileName string
	}{
		{"no file", map[string]string{"price": "1", "wallet": testSellerWallet}, ""},
		{"no price", map[string]string{"wallet": testSellerWallet}, "a.txt"},
		{"no wallet", map[string]string{"price": "1"}, "a.txt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := f.uploadRaw(t, tc.fields, tc.fileName, []byte("x"))
			if status != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", status, body)
			}
			var errResp api.ErrorResponse
			if err := json.Unmarshal(body, &errResp); err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if errResp.Error != msgMissingFields {
				t.Fatalf("unexpected error message: %q", errResp.Error)
			}
		})
	}
}

func TestUploadInvalidInputs(t *testing.T) {
	f := newServerFixture(t)

	t.Run("bad wallet", func(t *testing.T) {
		status, _ := f.uploadRaw(t, map[string]string{"price": "1", "wallet": "nope"}, "a.txt", []byte("x"))
		if status != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", status)
		}
	})

	t.Run("bad price", func(t *testing.T) {
		status, _ := f.uploadRaw(t, map[string]string{"price": "-3", "wallet": testSellerWallet}, "a.txt", []byte("x"))
		if status != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", status)
		}
	})
}

func TestHealthAndInfo(t *testing.T) {
	f := newServerFixture(t)

	resp, err := http.Get(f.ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var health map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health["status"] != "ok" {
		t.Fatalf("unexpected health payload: %v", health)
	}

	infoResp, err := http.Get(f.ts.URL + "/v1/info")
	if err != nil {
		t.Fatalf("info request: %v", err)
	}
	defer infoResp.Body.Close()
	var info api.InfoResponse
	if err := json.NewDecoder(infoResp.Body).Decode(&info); err != nil {
		t.Fatalf("decode info: %v", err)
	}
	if info.Version != "test" {
		t.Fatalf("unexpected version: %q", info.Version)
	}
	if info.AssetCount != 0 {
		t.Fatalf("expected empty catalog, got %d assets", info.AssetCount)
	}
}

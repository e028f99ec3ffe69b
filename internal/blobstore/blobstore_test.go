package blobstore

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
)

func TestPutOpenRoundTrip(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	payload := []byte("the asset bytes")
	result, err := store.Put(context.Background(), bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if result.SizeBytes != int64(len(payload)) {
		t.Fatalf("size = %d, want %d", result.SizeBytes, len(payload))
	}
	if !strings.HasPrefix(result.Key, "sha256/") {
		t.Fatalf("unexpected key %q", result.Key)
	}

	rc, err := store.Open(context.Background(), result.Key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read blob: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("blob bytes changed: got %q", got)
	}
}

func TestPutSameContentTwice(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	first, err := store.Put(context.Background(), strings.NewReader("same"))
	if err != nil {
		t.Fatalf("first Put: %v", err)
	}
	second, err := store.Put(context.Background(), strings.NewReader("same"))
	if err != nil {
		t.Fatalf("second Put: %v", err)
	}
	if first.Key != second.Key || first.SHA256 != second.SHA256 {
		t.Fatalf("identical content produced different keys: %q vs %q", first.Key, second.Key)
	}
}

func TestOpenRejectsBadKeys(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	for _, key := range []string{"", "/abs/path", "../escape", "sha256/../../etc"} {
		t.Run(key, func(t *testing.T) {
			if _, err := store.Open(context.Background(), key); err == nil {
				t.Fatalf("Open(%q) should fail", key)
			}
		})
	}
}

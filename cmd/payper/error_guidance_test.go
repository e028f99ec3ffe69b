package main

import (
	"errors"
	"strings"
	"testing"

	"payper/internal/api"
)

func TestFormatCLIError(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		if lines := formatCLIError(nil); lines != nil {
			t.Fatalf("expected nil, got %v", lines)
		}
	})

	t.Run("plain error", func(t *testing.T) {
		lines := formatCLIError(errors.New("boom"))
		if len(lines) != 1 || lines[0] != "boom" {
			t.Fatalf("unexpected lines: %v", lines)
		}
	})

	t.Run("unauthorized hints at token", func(t *testing.T) {
		err := &api.APIError{Status: 401, Code: "unauthorized", Message: "unauthorized"}
		lines := formatCLIError(err)
		if !containsSubstring(lines, "PAYPER_API_TOKEN") {
			t.Fatalf("expected token hint, got %v", lines)
		}
	})

	t.Run("payment required hints at agent", func(t *testing.T) {
		err := &api.APIError{Status: 402, Code: "payment_required", Message: "Payment Required"}
		lines := formatCLIError(err)
		if !containsSubstring(lines, "--tx-hash") {
			t.Fatalf("expected redeem hint, got %v", lines)
		}
	})

	t.Run("server error hints at logs", func(t *testing.T) {
		err := &api.APIError{Status: 500, Code: "internal", Message: "DB error"}
		lines := formatCLIError(err)
		if !containsSubstring(lines, "server logs") {
			t.Fatalf("expected logs hint, got %v", lines)
		}
	})

	t.Run("deduplicates hint lines", func(t *testing.T) {
		lines := uniqueLines([]string{"a", "a", "", "b"})
		if len(lines) != 2 || lines[0] != "a" || lines[1] != "b" {
			t.Fatalf("unexpected lines: %v", lines)
		}
	})
}

func containsSubstring(lines []string, substr string) bool {
	for _, line := range lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

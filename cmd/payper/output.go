package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"payper/internal/api"
)

func writeJSON(payload any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeFileList(files []api.FileSummary) error {
	for _, f := range files {
		if err := writePlain("%s\n", formatFileLine(f)); err != nil {
			return err
		}
	}
	return nil
}

func formatFileLine(f api.FileSummary) string {
	return fmt.Sprintf("%s  %s  price=%s  %d bytes  %s", f.ID, f.FileName, f.Price, f.Size, formatTime(f.CreatedAt))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

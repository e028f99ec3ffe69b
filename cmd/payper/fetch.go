package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"payper/internal/api"
	"payper/internal/config"
)

func newFetchCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var txHash string
	var out string

	cmd := &cobra.Command{
		Use:   "fetch <asset-id>",
		Short: "Fetch a gated file: show its payment offer, or redeem a paid transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			assetID := args[0]

			return withClient(cfg, func(client *api.Client) error {
				if txHash == "" {
					challenge, err := client.RequestChallenge(cmd.Context(), assetID)
					if err != nil {
						return err
					}
					if *jsonOutput {
						return writeJSON(challenge)
					}
					offer, err := challenge.PrimaryOffer()
					if err != nil {
						return err
					}
					_ = writePlain("file: %s (%d bytes)\n", challenge.FileName, challenge.FileSize)
					_ = writePlain("pay %s %s to %s, then redeem with:\n", offer.Amount, offer.Currency, offer.Recipient)
					return writePlain("  payper fetch %s --tx-hash <hash>\n", assetID)
				}

				body, suggested, err := client.Redeem(cmd.Context(), assetID, txHash)
				if err != nil {
					return err
				}
				defer body.Close()

				target := out
				if target == "" {
					target = filepath.Base(suggested)
				}
				if target == "" || target == "." {
					target = assetID
				}

				f, err := os.Create(target)
				if err != nil {
					return err
				}
				if _, err := io.Copy(f, body); err != nil {
					f.Close()
					os.Remove(target)
					return fmt.Errorf("write %s: %w", target, err)
				}
				if err := f.Close(); err != nil {
					return err
				}

				if *jsonOutput {
					return writeJSON(map[string]string{"assetId": assetID, "path": target})
				}
				return writePlain("saved %s\n", target)
			})
		},
	}

	cmd.Flags().StringVar(&txHash, "tx-hash", "", "proof-of-payment transaction hash")
	cmd.Flags().StringVar(&out, "out", "", "output path (defaults to the server-suggested name)")

	return cmd
}

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/spf13/cobra"

	"payper/internal/agent"
	"payper/internal/api"
	"payper/internal/config"
	"payper/internal/ledger"
	"payper/internal/wei"
)

func newAgentCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var rounds int
	var maxPrice string
	var downloadDir string

	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Run the autonomous buyer: pick a listing, pay on chain, redeem the file",
		RunE: func(cmd *cobra.Command, args []string) error {
			wallet, err := agent.WalletFromEnv()
			if err != nil {
				return err
			}

			capWei, err := resolveMaxPrice(maxPrice, cfg.Agent.MaxPrice)
			if err != nil {
				return err
			}

			dir := downloadDir
			if dir == "" {
				dir = cfg.Agent.DownloadDir
			}

			backend, err := ledger.DialBackend(cfg.Chain.RPCURL)
			if err != nil {
				return err
			}

			logger := slog.Default().With("component", "agent")
			logger.Info("agent wallet ready", "address", wallet.Address().Hex())

			return withClient(cfg, func(client *api.Client) error {
				a, err := agent.New(client, backend, wallet, agent.Options{
					DownloadDir: dir,
					MaxPriceWei: capWei,
				}, logger)
				if err != nil {
					return err
				}

				for round := 0; round < rounds; round++ {
					purchase, err := a.RunOnce(cmd.Context())
					switch {
					case errors.Is(err, agent.ErrNoListings):
						return writePlain("nothing for sale\n")
					case errors.Is(err, agent.ErrPriceTooHigh), errors.Is(err, agent.ErrDeclined):
						logger.Info("round ended without a purchase", "reason", err)
						continue
					case err != nil:
						return err
					}

					if *jsonOutput {
						if err := writeJSON(map[string]string{
							"assetId": purchase.AssetID,
							"txHash":  purchase.TxHash.Hex(),
							"amount":  wei.Format(purchase.AmountWei),
							"path":    purchase.SavedPath,
						}); err != nil {
							return err
						}
						continue
					}
					if err := writePlain("bought %s (tx %s) -> %s\n", purchase.AssetID, purchase.TxHash.Hex(), purchase.SavedPath); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&rounds, "rounds", 1, "number of buying rounds")
	cmd.Flags().StringVar(&maxPrice, "max-price", "", "cap per purchase in native currency units")
	cmd.Flags().StringVar(&downloadDir, "download-dir", "", "where to save redeemed files")

	return cmd
}

func resolveMaxPrice(flagValue, configValue string) (*big.Int, error) {
	raw := flagValue
	if raw == "" {
		raw = configValue
	}
	if raw == "" {
		return nil, nil
	}
	capWei, err := wei.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid max price %q: %w", raw, err)
	}
	return capWei, nil
}

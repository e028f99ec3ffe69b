package main

import (
	"github.com/spf13/cobra"

	"payper/internal/api"
	"payper/internal/config"
)

func newInfoCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show server and database info",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetInfo(cmd.Context())
				if err != nil {
					return err
				}
				resp.DBPath = cfg.DBPath

				if *jsonOutput {
					return writeJSON(resp)
				}

				_ = writePlain("name: %s\n", resp.Name)
				_ = writePlain("version: %s\n", resp.Version)
				_ = writePlain("currency: %s\n", resp.Currency)
				_ = writePlain("chain_id: %d\n", resp.ChainID)
				_ = writePlain("schema_version: %d\n", resp.SchemaVersion)
				_ = writePlain("assets: %d\n", resp.AssetCount)
				_ = writePlain("redemptions: %d\n", resp.RedemptionCount)
				return writePlain("db_path: %s\n", resp.DBPath)
			})
		},
	}
}

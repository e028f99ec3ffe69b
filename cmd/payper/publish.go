package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"payper/internal/api"
	"payper/internal/config"
)

func newPublishCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var price string
	var wallet string
	var name string

	cmd := &cobra.Command{
		Use:   "publish <file>",
		Short: "Upload a file and list it for sale",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			fileName := name
			if fileName == "" {
				fileName = filepath.Base(path)
			}

			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.Publish(cmd.Context(), fileName, f, price, wallet)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writePlain("published %s as %s\n", fileName, resp.AssetID)
			})
		},
	}

	cmd.Flags().StringVar(&price, "price", "", "asking price in native currency units")
	cmd.Flags().StringVar(&wallet, "wallet", "", "seller wallet address that receives payments")
	cmd.Flags().StringVar(&name, "name", "", "listing file name (defaults to the file's base name)")
	_ = cmd.MarkFlagRequired("price")
	_ = cmd.MarkFlagRequired("wallet")

	return cmd
}

package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"payper/internal/blobstore"
	"payper/internal/config"
	"payper/internal/gate"
	"payper/internal/ledger"
	"payper/internal/server"
	"payper/internal/store"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the payper API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			if cfg.DBPath == "" {
				return fmt.Errorf("db path is required")
			}

			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			logger.Info("opening database", "path", cfg.DBPath)
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			bs, err := blobstore.NewLocal(cfg.BlobRoot())
			if err != nil {
				return err
			}

			logger.Info("connecting to chain", "rpc_url", cfg.Chain.RPCURL, "chain_id", cfg.Chain.ChainID)
			chain, err := ledger.Dial(cfg.Chain.RPCURL)
			if err != nil {
				return err
			}

			srv := server.New(addr, server.Options{
				Store:  st,
				Blobs:  bs,
				Ledger: chain,
				Gate: gate.Options{
					ChainID:         cfg.Chain.ChainID,
					Currency:        cfg.Chain.Currency,
					VerifyTimeout:   time.Duration(cfg.Chain.VerifyTimeoutSeconds) * time.Second,
					SingleUseProofs: cfg.Chain.SingleUseProofs,
				},
				MinConfirmations: cfg.Chain.MinConfirmations,
				Version:          version,
				DBPath:           cfg.DBPath,
				Uploads: server.UploadOptions{
					MaxUploadBytes:     cfg.Uploads.MaxUploadBytes,
					MultipartMaxMemory: cfg.Uploads.MultipartMaxMemory,
				},
			}, logger)
			return srv.ListenAndServe()
		},
	}
}

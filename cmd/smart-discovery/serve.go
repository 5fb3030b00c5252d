// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/smart-discovery/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the discovery pipeline over HTTP",
	Long: `Serve starts the HTTP API:

  POST /api/discover      run the pipeline on pasted content
  GET  /healthz           liveness check
  GET  /api/runs          recorded runs (ledger only)
  GET  /api/evidence?q=   search recorded evidence (ledger only)
  GET  /api/evidence/{id} trace one evidence id (ledger only)

Each request is an isolated run; nothing is written to the output directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			settings.Server.Addr = addr
		}

		store, err := openLedger()
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return server.New(server.Config{Settings: settings, Ledger: store}).ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from settings, :8080)")

	rootCmd.AddCommand(serveCmd)
}

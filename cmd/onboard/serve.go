package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sgupta906/oboarding-sub000/internal/config"
	"github.com/sgupta906/oboarding-sub000/internal/remote"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "sync",
	Short:   "Run the authoritative onboarding hub",
	Long: `Run the hub server that owns the canonical collection lists.

The hub serves CRUD over HTTP (/v1/{collection}) and pushes full collection
snapshots to subscribed WebSocket clients (/ws) after every write. Sync
daemons connect to it as their remote backing store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		hub := remote.NewHub(&remote.HubConfig{
			Port:   cfg.HubPort,
			Logger: log.New(os.Stderr, "[hub] ", log.LstdFlags),
		})

		if err := hub.Start(); err != nil {
			return fmt.Errorf("failed to start hub: %w", err)
		}

		fmt.Printf("Hub listening on %s\n", hub.Addr())
		fmt.Println("Press Ctrl+C to stop")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		return hub.Stop()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

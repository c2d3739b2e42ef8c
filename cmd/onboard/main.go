// Command onboard is the onboarding tracker's sync toolchain: it can run
// the authoritative hub, run the local-first sync daemon against a hub, and
// report collection status.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Employee onboarding tracker sync tools",
	Long: `onboard keeps a local-first cache of onboarding data in sync with an
authoritative hub, applying user mutations optimistically and reconciling
local and remote snapshots into one canonical view.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ./onboard.yaml)")

	rootCmd.AddGroup(&cobra.Group{ID: "sync", Title: "Sync Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: "info", Title: "Info Commands:"})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"os/user"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sgupta906/oboarding-sub000/internal/cache"
	"github.com/sgupta906/oboarding-sub000/internal/config"
	"github.com/sgupta906/oboarding-sub000/internal/engine"
	"github.com/sgupta906/oboarding-sub000/internal/identity"
	"github.com/sgupta906/oboarding-sub000/internal/remote"
	"github.com/sgupta906/oboarding-sub000/internal/store"
	"github.com/sgupta906/oboarding-sub000/internal/templates"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "sync",
	Short:   "Run the local-first sync daemon",
	Long: `Run the sync daemon against a hub.

The daemon keeps the local cache database and the hub's live feeds merged
into one canonical view per collection, loads template definitions from the
templates directory, and re-syncs them as the files change.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		logger := daemonLogger(cfg)

		c, err := cache.Open(cfg.CachePath)
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		defer c.Close()

		if err := c.InitSchema(); err != nil {
			return fmt.Errorf("failed to initialize cache schema: %w", err)
		}

		client := remote.NewClient(cfg.HubURL, logger)
		ident := identity.NewStatic(resolveUserID(cfg), cfg.UserRole)

		eng, err := engine.New(store.Init(), c, client, ident, &engine.Config{
			GuardWindow: cfg.GuardWindow,
			Logger:      logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create engine: %w", err)
		}

		if err := eng.Start(); err != nil {
			return fmt.Errorf("failed to start engine: %w", err)
		}
		defer eng.Stop()

		release, err := eng.AcquireAll()
		if err != nil {
			return fmt.Errorf("failed to open feeds: %w", err)
		}
		defer release()

		lib, err := templates.New(cfg.TemplatesDir, eng, &templates.Config{Logger: logger})
		if err != nil {
			return fmt.Errorf("failed to create template library: %w", err)
		}
		if err := lib.Start(); err != nil {
			return fmt.Errorf("failed to start template library: %w", err)
		}
		defer lib.Stop()

		fmt.Printf("Daemon running against %s (cache: %s)\n", cfg.HubURL, cfg.CachePath)
		fmt.Println("Press Ctrl+C to stop")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Println("Shutdown signal received")
		return nil
	},
}

// daemonLogger writes to a rotated log file when configured, stderr
// otherwise.
func daemonLogger(cfg *config.Config) *log.Logger {
	var out io.Writer = os.Stderr
	if cfg.LogFile != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
	}
	return log.New(out, "[onboard] ", log.LstdFlags)
}

// resolveUserID falls back to the OS user when no identity is configured.
func resolveUserID(cfg *config.Config) string {
	if cfg.UserID != "" {
		return cfg.UserID
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "unknown"
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

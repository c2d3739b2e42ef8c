package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sgupta906/oboarding-sub000/internal/config"
	"github.com/sgupta906/oboarding-sub000/internal/model"
	"github.com/sgupta906/oboarding-sub000/internal/remote"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "info",
	Short:   "Show collection counts from the hub",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		client := remote.NewClient(cfg.HubURL, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		counts := make(map[model.Key]int, len(model.Keys()))
		for _, key := range model.Keys() {
			data, err := client.List(ctx, key)
			if err != nil {
				return fmt.Errorf("failed to fetch %s: %w", key, err)
			}
			var records []json.RawMessage
			if err := json.Unmarshal(data, &records); err != nil {
				return fmt.Errorf("failed to decode %s: %w", key, err)
			}
			counts[key] = len(records)
		}

		fmt.Print(renderStatus(cfg.HubURL, counts))
		return nil
	},
}

// renderStatus formats the collection counts for the terminal.
func renderStatus(hubURL string, counts map[model.Key]int) string {
	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}
	if width > 60 {
		width = 60
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Width(width)
	keyStyle := lipgloss.NewStyle().Width(14)
	countStyle := lipgloss.NewStyle().Bold(true)

	out := titleStyle.Render(fmt.Sprintf("Onboarding hub: %s", hubURL)) + "\n"
	for _, key := range model.Keys() {
		out += fmt.Sprintf("  %s %s\n",
			keyStyle.Render(string(key)),
			countStyle.Render(fmt.Sprintf("%d", counts[key])))
	}
	return out
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

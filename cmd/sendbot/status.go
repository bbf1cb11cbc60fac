package main

import (
	"context"
	"fmt"
	"os"

	"sendbot/internal/config"
	"sendbot/internal/history"
	"sendbot/internal/schedule"

	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show config, schedule, and recent send history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				fmt.Printf("config:   %s (not loaded, using defaults)\n", cfgPath)
				cfg = config.Defaults()
				config.Finalize(cfg)
			} else {
				fmt.Printf("config:   %s\n", cfgPath)
			}

			if err := config.RequireCredentials(cfg); err != nil {
				fmt.Printf("creds:    incomplete (%v)\n", err)
			} else {
				fmt.Println("creds:    complete")
			}

			store := schedule.NewStore(cfg.Schedule.Path, logger)
			store.Load()
			fmt.Printf("schedule: %s (%d entries)\n", cfg.Schedule.Path, store.Len())
			for i, e := range store.Entries() {
				fmt.Printf("  %d. every %g seconds: %s\n", i+1, e.DelaySeconds, e.Message)
			}

			if !cfg.History.Enabled {
				return nil
			}
			if _, err := os.Stat(cfg.History.DBPath); err != nil {
				fmt.Println("history:  empty")
				return nil
			}
			histStore, err := history.NewStore(cfg.History.DBPath, logger)
			if err != nil {
				return fmt.Errorf("open send history: %w", err)
			}
			defer histStore.Close()

			records, err := histStore.Recent(context.Background(), 10)
			if err != nil {
				return fmt.Errorf("read send history: %w", err)
			}
			fmt.Printf("history:  %s (last %d sends)\n", cfg.History.DBPath, len(records))
			for _, r := range records {
				line := fmt.Sprintf("  %s  %-6s  %s", r.CreatedAt.Format("2006-01-02 15:04:05"), r.Status, r.Message)
				if r.Error != "" {
					line += " (" + r.Error + ")"
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}

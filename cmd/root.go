package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ecolyze/ecolyze/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "ecolyze",
	Short: "CO₂ emissions analytics pipeline",
	Long:  "Loads the OWID CO₂ dataset into BigQuery, aggregates top emitters per year, mirrors results to MongoDB, and forecasts emissions with BigQuery ML.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

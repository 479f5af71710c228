package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Retrain the forecast model and print its predictions",
	Long:  "Recreates the warehouse linear-regression model from the configured country's rows and runs ML.PREDICT. Assumes the emissions table is already synced (run `ecolyze sync` first on a fresh dataset).",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, "forecast")
		if err != nil {
			return err
		}
		defer env.Close(ctx)

		rows, err := env.Pipeline.Forecast(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Predicted CO₂ for %s (from %d):\n", cfg.Forecast.Country, cfg.Forecast.MinYear)
		printForecast(os.Stdout, rows)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(forecastCmd)
}

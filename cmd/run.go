package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ecolyze/ecolyze/internal/model"
)

var (
	runYear         int
	runSkipForecast bool
	runResync       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full analysis for one year",
	Long:  "Loads the dataset, syncs the warehouse, aggregates the top emitters, replaces the mirror collection, and (unless skipped) trains and queries the forecast model.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if runYear < cfg.Dataset.MinYear || runYear > cfg.Dataset.MaxYear {
			return fmt.Errorf("year %d out of range %d-%d", runYear, cfg.Dataset.MinYear, cfg.Dataset.MaxYear)
		}

		env, err := initPipeline(ctx, "analysis")
		if err != nil {
			return err
		}
		defer env.Close(ctx)

		if runResync {
			env.Pipeline.InvalidateSync()
		}

		result, err := env.Pipeline.Run(ctx, runYear, !runSkipForecast)
		if err != nil {
			return err
		}

		printSummary(os.Stdout, result)
		if len(result.Forecast) > 0 {
			fmt.Fprintf(os.Stdout, "\nPredicted CO₂ for %s (from %d):\n", cfg.Forecast.Country, cfg.Forecast.MinYear)
			printForecast(os.Stdout, result.Forecast)
		}
		return nil
	},
}

func printSummary(w io.Writer, result *model.AnalysisResult) {
	p := message.NewPrinter(language.English)
	p.Fprintf(w, "Loaded %d rows into the warehouse.\n", result.RowsLoaded)

	if len(result.Summary) == 0 {
		fmt.Fprintf(w, "No emissions recorded for %d.\n", result.Year)
		return
	}

	fmt.Fprintf(w, "Top CO₂ emitting countries in %d:\n", result.Year)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COUNTRY\tTOTAL CO₂")
	for _, row := range result.Summary {
		fmt.Fprintf(tw, "%s\t%.2f\n", row.Country, row.TotalCO2)
	}
	tw.Flush()
}

func printForecast(w io.Writer, rows []model.ForecastRow) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "YEAR\tPREDICTED CO₂")
	for _, row := range rows {
		fmt.Fprintf(tw, "%d\t%.2f\n", row.Year, row.PredictedCO2)
	}
	tw.Flush()
}

func init() {
	runCmd.Flags().IntVar(&runYear, "year", 2020, "year to aggregate")
	runCmd.Flags().BoolVar(&runSkipForecast, "skip-forecast", false, "skip model training and prediction")
	runCmd.Flags().BoolVar(&runResync, "resync", false, "refetch the dataset and reload the warehouse table")
	rootCmd.AddCommand(runCmd)
}

package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var syncResync bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Load the OWID dataset and sync the warehouse table",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, "sync")
		if err != nil {
			return err
		}
		defer env.Close(ctx)

		if syncResync {
			env.Pipeline.InvalidateSync()
		}

		n, err := env.Pipeline.Sync(ctx)
		if err != nil {
			return err
		}

		p := message.NewPrinter(language.English)
		p.Fprintf(os.Stdout, "Synced %d rows into %s.%s.%s\n", n, cfg.Warehouse.ProjectID, cfg.Warehouse.Dataset, cfg.Warehouse.Table)
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncResync, "resync", false, "refetch the dataset before loading")
	rootCmd.AddCommand(syncCmd)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/chart-etl/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "chart-etl",
	Short: "Music chart and awards ETL",
	Long: `Cleans a track chart, a Grammy nominations table and artist enrichment,
reconciles them into one table, loads it into the warehouse and shares it.

"run" executes every stage once. "clean" and "merge" run single stages on
files. Reconciliation joins on exact title and artist keys by default;
the fuzzy strategy falls back to token-sort similarity on titles.`,
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

package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/chart-etl/internal/extract"
	"github.com/sells-group/chart-etl/internal/warehouse"
)

var seedAwardsCmd = &cobra.Command{
	Use:   "seed-awards",
	Short: "Load the raw awards file into the warehouse",
	Long:  "Replaces the raw awards table (warehouse.raw_schema.awards_table) with the contents of sources.awards_csv.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if v, _ := cmd.Flags().GetString("file"); v != "" {
			cfg.Sources.AwardsCSV = v
		}
		if err := cfg.Validate("seed-awards"); err != nil {
			return err
		}

		pool, err := warehousePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		wh := warehouseConfig(cfg)
		if err := warehouse.Migrate(ctx, pool, wh.Schemas()...); err != nil {
			return eris.Wrap(err, "seed-awards")
		}

		n, err := extract.SeedAwards(ctx, newFetcher(cfg), warehouse.NewLoader(pool), cfg.Sources.AwardsCSV, wh.AwardsSource())
		if err != nil {
			return eris.Wrap(err, "seed-awards")
		}
		fmt.Printf("Seeded %d rows into %s\n", n, wh.AwardsSource())
		return nil
	},
}

func init() {
	seedAwardsCmd.Flags().String("file", "", "awards file path or URL (overrides sources.awards_csv)")
	rootCmd.AddCommand(seedAwardsCmd)
}

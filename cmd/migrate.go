package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/chart-etl/internal/warehouse"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply store and warehouse migrations",
	Long:  "Creates the run log and artist cache tables, then applies pending warehouse migrations and creates the raw, staging, processed and merged schemas. The warehouse step is skipped when no warehouse database is configured.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "migrate store")
		}
		_ = st.Close()
		zap.L().Info("store migrations applied", zap.String("driver", cfg.Store.Driver))

		if cfg.Warehouse.DatabaseURL == "" {
			zap.L().Warn("no warehouse database configured, skipping warehouse migrations")
			return nil
		}
		pool, err := warehousePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := warehouse.Migrate(ctx, pool, warehouseConfig(cfg).Schemas()...); err != nil {
			return eris.Wrap(err, "migrate warehouse")
		}
		zap.L().Info("all migrations applied successfully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

package extract

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/chart-etl/internal/db"
	"github.com/sells-group/chart-etl/internal/fetcher"
	"github.com/sells-group/chart-etl/internal/model"
	"github.com/sells-group/chart-etl/internal/warehouse"
)

// TableLoader writes a frame to a warehouse table.
type TableLoader interface {
	Load(ctx context.Context, table db.Table, f model.Frame, mode warehouse.Mode) (int64, error)
}

// SeedAwards loads the raw awards file at location into table, replacing
// any previous contents. Text cells are coerced to numbers and booleans so
// the raw table keeps its natural column types.
func SeedAwards(ctx context.Context, f fetcher.Fetcher, loader TableLoader, location string, table db.Table) (int64, error) {
	frame, err := fetcher.ReadFrame(ctx, f, location)
	if err != nil {
		return 0, err
	}
	frame = warehouse.CoerceFrame(frame.DropArtifacts())
	if frame.Len() == 0 {
		return 0, eris.Errorf("extract: awards file %s is empty", location)
	}

	n, err := loader.Load(ctx, table, frame, warehouse.ModeReplace)
	if err != nil {
		return 0, eris.Wrapf(err, "extract: seed %s", table)
	}
	zap.L().Info("extract: awards seeded", zap.String("table", table.String()), zap.Int64("rows", n))
	return n, nil
}

// Awards reads every row of the raw awards table.
func Awards(ctx context.Context, pool db.Pool, table db.Table) (model.Frame, error) {
	frame, err := warehouse.ReadTable(ctx, pool, table)
	if err != nil {
		return model.Frame{}, eris.Wrap(err, "extract: awards")
	}
	frame = frame.DropArtifacts()
	zap.L().Info("extract: awards loaded",
		zap.String("table", table.String()),
		zap.Int("rows", frame.Len()),
		zap.Int("columns", len(frame.Columns)),
	)
	return frame, nil
}

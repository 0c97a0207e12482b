// Package extract acquires the three source datasets: the tracks file, the
// raw awards table in the warehouse, and artist enrichment from the music
// API with a cache and a fallback file.
package extract

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/chart-etl/internal/fetcher"
	"github.com/sells-group/chart-etl/internal/model"
)

// Tracks reads the tracks dataset from location. Index artifact columns
// written by dataframe exports are dropped.
func Tracks(ctx context.Context, f fetcher.Fetcher, location string) (model.Frame, error) {
	frame, err := fetcher.ReadFrame(ctx, f, location)
	if err != nil {
		return model.Frame{}, err
	}
	frame = frame.DropArtifacts()
	zap.L().Info("extract: tracks loaded",
		zap.String("location", location),
		zap.Int("rows", frame.Len()),
		zap.Int("columns", len(frame.Columns)),
	)
	return frame, nil
}

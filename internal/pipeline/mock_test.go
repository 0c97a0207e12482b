package pipeline

import (
	"context"
	"sync"

	"github.com/sells-group/chart-etl/internal/db"
	"github.com/sells-group/chart-etl/internal/extract"
	"github.com/sells-group/chart-etl/internal/model"
	"github.com/sells-group/chart-etl/internal/warehouse"
)

// --- Run Log Fake ---

type fakeRuns struct {
	created  []string
	finished []model.Run
}

func (f *fakeRuns) CreateRun(_ context.Context, strategy string) (*model.Run, error) {
	f.created = append(f.created, strategy)
	return &model.Run{ID: "run-1", Strategy: strategy, Status: model.RunStatusRunning}, nil
}

func (f *fakeRuns) FinishRun(_ context.Context, run *model.Run) error {
	f.finished = append(f.finished, *run)
	return nil
}

// --- Loader Fake ---

type load struct {
	table db.Table
	frame model.Frame
	mode  warehouse.Mode
}

type fakeLoader struct {
	mu    sync.Mutex
	loads []load
	err   error
}

func (l *fakeLoader) Load(_ context.Context, table db.Table, f model.Frame, mode warehouse.Mode) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return 0, l.err
	}
	l.loads = append(l.loads, load{table: table, frame: f, mode: mode})
	return int64(f.Len()), nil
}

// --- Enricher Fake ---

type fakeEnricher struct {
	ids   []string
	frame model.Frame
	err   error
}

func (e *fakeEnricher) Extract(_ context.Context, trackIDs []string) (model.Frame, extract.Source, error) {
	e.ids = trackIDs
	if e.err != nil {
		return model.Frame{}, "", e.err
	}
	return e.frame, extract.SourceAPI, nil
}

// --- Uploader Fake ---

type fakeUploader struct {
	name string
	body []byte
}

func (u *fakeUploader) Upload(_ context.Context, name, _ string, body []byte) error {
	u.name, u.body = name, body
	return nil
}

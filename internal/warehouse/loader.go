package warehouse

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/chart-etl/internal/db"
	"github.com/sells-group/chart-etl/internal/model"
)

// Mode controls what happens to an existing table.
type Mode string

const (
	// ModeReplace drops and recreates the table.
	ModeReplace Mode = "replace"
	// ModeAppend creates the table only if absent and adds rows.
	ModeAppend Mode = "append"
)

// ParseMode validates a configured mode. Empty means replace.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeReplace:
		return ModeReplace, nil
	case ModeAppend:
		return ModeAppend, nil
	default:
		return "", eris.Errorf("warehouse: unknown load mode %q", s)
	}
}

// Config holds warehouse settings.
type Config struct {
	DatabaseURL    string   `yaml:"database_url" mapstructure:"database_url"`
	Schema         string   `yaml:"schema" mapstructure:"schema"`
	Table          string   `yaml:"table" mapstructure:"table"`
	Mode           string   `yaml:"mode" mapstructure:"mode"`
	RawSchema      string   `yaml:"raw_schema" mapstructure:"raw_schema"`
	AwardsTable    string   `yaml:"awards_table" mapstructure:"awards_table"`
	StagingSchemas []string `yaml:"staging_schemas" mapstructure:"staging_schemas"`
}

// MergedTable is the destination of the merged dataset.
func (c Config) MergedTable() db.Table {
	return db.Table{Schema: c.Schema, Name: c.Table}
}

// AwardsSource is the raw awards table read by extraction.
func (c Config) AwardsSource() db.Table {
	return db.Table{Schema: c.RawSchema, Name: c.AwardsTable}
}

// Schemas lists every schema the warehouse needs.
func (c Config) Schemas() []string {
	return append([]string{c.RawSchema, c.Schema}, c.StagingSchemas...)
}

// Loader writes frames to warehouse tables.
type Loader struct {
	pool db.Pool
}

// NewLoader creates a Loader on pool.
func NewLoader(pool db.Pool) *Loader {
	return &Loader{pool: pool}
}

// Load writes f to table in one transaction: the schema is created if
// absent, the table is created per mode with inferred column types, rows
// are bulk copied and the load is recorded in processed.load_log.
func (l *Loader) Load(ctx context.Context, table db.Table, f model.Frame, mode Mode) (int64, error) {
	log := zap.L().With(zap.String("component", "warehouse"), zap.String("table", table.String()))

	if len(f.Columns) == 0 {
		return 0, eris.Errorf("warehouse: frame for %s has no columns", table)
	}
	if f.Len() == 0 {
		return 0, eris.Errorf("warehouse: frame for %s is empty", table)
	}

	defs := InferSchema(f)

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "warehouse: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if table.Schema != "" {
		if _, err := tx.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{table.Schema}.Sanitize()); err != nil {
			return 0, eris.Wrapf(err, "warehouse: create schema %s", table.Schema)
		}
	}
	if mode == ModeReplace {
		if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+table.Sanitize()); err != nil {
			return 0, eris.Wrapf(err, "warehouse: drop %s", table)
		}
	}
	if _, err := tx.Exec(ctx, CreateTableSQL(table.Sanitize(), defs, mode == ModeAppend)); err != nil {
		return 0, eris.Wrapf(err, "warehouse: create %s", table)
	}

	rows := make([][]any, len(f.Rows))
	for i, row := range f.Rows {
		vals := make([]any, len(defs))
		for j, d := range defs {
			vals[j] = copyValue(row[d.Name], d.Type)
		}
		rows[i] = vals
	}

	n, err := tx.CopyFrom(ctx, table.Identifier(), f.Columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "warehouse: COPY INTO %s", table)
	}

	if _, err := tx.Exec(ctx,
		"INSERT INTO processed.load_log (table_name, mode, row_count) VALUES ($1, $2, $3)",
		table.String(), string(mode), n,
	); err != nil {
		return 0, eris.Wrap(err, "warehouse: record load")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "warehouse: commit")
	}

	log.Info("warehouse: table loaded",
		zap.String("mode", string(mode)),
		zap.Int64("rows", n),
		zap.Int("columns", len(defs)),
	)
	return n, nil
}

// ReadTable selects every row of table into a frame, preserving the
// table's column order.
func ReadTable(ctx context.Context, pool db.Pool, table db.Table) (model.Frame, error) {
	rows, err := pool.Query(ctx, fmt.Sprintf("SELECT * FROM %s", table.Sanitize()))
	if err != nil {
		return model.Frame{}, eris.Wrapf(err, "warehouse: query %s", table)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	header := make([]string, len(fields))
	for i, fd := range fields {
		header[i] = fd.Name
	}
	cols, renamed := model.DisambiguateColumns(header)
	if len(renamed) > 0 {
		zap.L().Warn("warehouse: duplicate columns renamed", zap.String("table", table.String()), zap.Strings("columns", renamed))
	}

	f := model.NewFrame(cols...)
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return model.Frame{}, eris.Wrapf(err, "warehouse: scan %s", table)
		}
		row := make(model.Row, len(cols))
		for i, col := range cols {
			row[col] = normalizeValue(vals[i])
		}
		f.Rows = append(f.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return model.Frame{}, eris.Wrapf(err, "warehouse: iterate %s", table)
	}
	return f, nil
}

// normalizeValue maps driver values onto frame cell types.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case int:
		return int64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}

// Package ioexport writes a SQLite snapshot of current metadata values.
// The snapshot is a single file that can be shared with tools that have
// no access to the PostgreSQL database.
package ioexport

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/huandu/go-sqlbuilder"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGo)

	irts "github.com/gnames/irts/pkg"
	"github.com/gnames/irts/pkg/schema"
	"github.com/gnames/irts/pkg/store"
)

const batchSize = 500

// Exporter copies current values of a store into SQLite files.
type Exporter struct {
	s   store.Store
	now func() time.Time
}

// Option configures Exporter.
type Option func(*Exporter)

// OptClock replaces the clock used for the snapshot time.
func OptClock(fn func() time.Time) Option {
	return func(e *Exporter) {
		if fn != nil {
			e.now = fn
		}
	}
}

// New creates an Exporter.
func New(s store.Store, opts ...Option) *Exporter {
	res := &Exporter{s: s, now: time.Now}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// Export writes current values of the given sources (all sources if
// empty) to a new SQLite file at path, an existing file is replaced.
// Returns the number of exported values.
func (e *Exporter) Export(
	ctx context.Context,
	path string,
	sources []string,
) (int, error) {
	vals, err := e.s.QueryCurrent(ctx, store.Filter{Sources: sources})
	if err != nil {
		return 0, err
	}

	if err = os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, OpenError(path, err)
	}
	db, err := sql.Open("sqlite", path)
	if err == nil {
		err = db.PingContext(ctx)
	}
	if err != nil {
		return 0, OpenError(path, err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, WriteError(path, err)
	}
	defer tx.Rollback()

	for _, m := range schema.SnapshotModels() {
		if _, err = tx.ExecContext(ctx, m.TableDDL()); err != nil {
			return 0, WriteError(path, err)
		}
	}
	if err = e.insertValues(ctx, tx, vals); err != nil {
		return 0, WriteError(path, err)
	}
	if err = e.insertInfo(ctx, tx, len(vals), sources); err != nil {
		return 0, WriteError(path, err)
	}
	for _, m := range schema.SnapshotModels() {
		for _, ddl := range m.IndexDDL() {
			if _, err = tx.ExecContext(ctx, ddl); err != nil {
				return 0, WriteError(path, err)
			}
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, WriteError(path, err)
	}

	slog.Info("Snapshot exported",
		"path", path, "values", humanize.Comma(int64(len(vals))))
	return len(vals), nil
}

func (e *Exporter) insertValues(
	ctx context.Context,
	tx *sql.Tx,
	vals []store.Value,
) error {
	model := schema.SnapshotValue{}
	cols := schema.Columns(model)
	for start := 0; start < len(vals); start += batchSize {
		ib := sqlbuilder.SQLite.NewInsertBuilder()
		ib.InsertInto(model.TableName()).Cols(cols...)
		for _, v := range vals[start:min(start+batchSize, len(vals))] {
			ib.Values(
				int64(v.RowID), v.Source, v.IDInSource, int64(v.Parent),
				string(v.Field), v.Place, v.Value,
				v.AddedAt.UTC().Format(time.RFC3339Nano),
			)
		}
		q, args := ib.Build()
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) insertInfo(
	ctx context.Context,
	tx *sql.Tx,
	count int,
	sources []string,
) error {
	model := schema.SnapshotInfo{}
	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto(model.TableName()).Cols(schema.Columns(model)...)
	ib.Values("created_at", e.now().UTC().Format(time.RFC3339))
	ib.Values("version", irts.Version)
	ib.Values("values_count", strconv.Itoa(count))
	ib.Values("sources", strings.Join(sources, ","))
	q, args := ib.Build()
	_, err := tx.ExecContext(ctx, q, args...)
	return err
}

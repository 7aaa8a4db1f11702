// Package store defines the versioned field store: an append-only log of
// metadata values and raw source payloads where every change is a new row
// and old rows are soft-deleted.
//
// A metadata row lives in a slot (source, idInSource, parent row, field,
// place). At most one row per slot is current (deletedAt is not set).
// Superseded rows point to their replacement through ReplacedBy, pruned
// rows only get DeletedAt.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/gnames/irts/pkg/field"
)

// ErrConflict is returned when a concurrent writer already occupied a slot
// or an identity. The operation can be retried.
var ErrConflict = errors.New("store: conflicting concurrent write")

// RowID identifies a metadata row. Zero means "no parent".
type RowID int64

// Format of a raw source payload.
type Format string

const (
	FormatXML  Format = "XML"
	FormatJSON Format = "JSON"
)

// Status describes what a write did.
type Status int

const (
	Unchanged Status = iota
	New
	Updated
)

func (s Status) String() string {
	switch s {
	case New:
		return "new"
	case Updated:
		return "updated"
	default:
		return "unchanged"
	}
}

// Scope points to the children of one parent of one entity.
type Scope struct {
	Source     string
	IDInSource string
	Parent     RowID
}

// Slot is the position of a single metadata value.
type Slot struct {
	Scope
	Field field.Field
	Place int
}

// Payload is a raw record received from a source.
type Payload struct {
	Source     string
	IDInSource string
	Data       []byte
	Format     Format
}

// SourceRecord is a stored version of a raw payload.
type SourceRecord struct {
	RowID      RowID
	Source     string
	IDInSource string
	Data       []byte
	Format     Format
	AddedAt    time.Time
	DeletedAt  *time.Time
	ReplacedBy RowID
}

// Value is a stored metadata row.
type Value struct {
	RowID      RowID
	Source     string
	IDInSource string
	Parent     RowID
	Field      field.Field
	Place      int
	Value      string
	AddedAt    time.Time
	DeletedAt  *time.Time
	ReplacedBy RowID
}

// IsCurrent reports if the row is not deleted.
func (v Value) IsCurrent() bool {
	return v.DeletedAt == nil
}

// PutResult is the outcome of PutValue.
type PutResult struct {
	RowID  RowID
	Status Status
}

// Filter selects current metadata rows. Empty fields do not filter.
type Filter struct {
	Sources    []string
	IDInSource []string
	Fields     []field.Field
	Values     []string
	// Parent limits rows to children of the given row. Use a pointer to
	// zero to get top-level rows only.
	Parent *RowID
	// ParentIDs limits rows to children of any of the given rows.
	ParentIDs []RowID
	Limit     int
}

// Store is the persistence contract of versioned metadata.
type Store interface {
	// PutSourcePayload stores a raw payload if it differs from the
	// current one.
	PutSourcePayload(ctx context.Context, p Payload) (Status, error)

	// CurrentPayload returns the current raw payload of an entity.
	CurrentPayload(
		ctx context.Context, source, idInSource string,
	) (SourceRecord, bool, error)

	// SourceIDs returns ids of all entities of a source that have a
	// current payload.
	SourceIDs(ctx context.Context, source string) ([]string, error)

	// PutValue writes a value to a slot. Equal values are left untouched,
	// different values supersede the current row and soft-delete all of
	// its current children.
	PutValue(ctx context.Context, slot Slot, value any) (PutResult, error)

	// InvalidatePlacesBeyond soft-deletes current rows of a field with
	// place greater than lastPlace. Returns the number of deleted rows.
	InvalidatePlacesBeyond(
		ctx context.Context, sc Scope, f field.Field, lastPlace int,
	) (int64, error)

	// InvalidateFieldsNotIn soft-deletes current rows whose field is not
	// in keep.
	InvalidateFieldsNotIn(
		ctx context.Context, sc Scope, keep []field.Field,
	) (int64, error)

	// InvalidateAllChildren soft-deletes all current rows under the scope.
	InvalidateAllChildren(ctx context.Context, sc Scope) (int64, error)

	// QueryCurrent returns current rows matching the filter ordered by
	// row id.
	QueryCurrent(ctx context.Context, f Filter) ([]Value, error)

	// History returns all rows of an entity, deleted ones included,
	// ordered by row id.
	History(ctx context.Context, source, idInSource string) ([]Value, error)

	// IDsWithPrefix returns distinct idInSource values of a source that
	// start with prefix, deleted rows included.
	IDsWithPrefix(ctx context.Context, source, prefix string) ([]string, error)

	// Atomic runs fn so that all its writes are committed together or not
	// at all. Calls with the same lockKey are serialized.
	Atomic(
		ctx context.Context, lockKey string,
		fn func(ctx context.Context, s Store) error,
	) error
}

// Package reconcile brings the stored state of an entity into agreement
// with a nested record, producing the smallest set of store mutations.
//
// Every value of the record is written into its slot. Values that did not
// change are left alone, changed values supersede old rows. After each
// field, places beyond the new number of entries are pruned. Complete
// records also prune fields that are no longer present, except those in
// the ignore list.
package reconcile

import (
	"context"
	"fmt"
	"slices"

	"github.com/gnames/irts/pkg/field"
	"github.com/gnames/irts/pkg/record"
	"github.com/gnames/irts/pkg/store"
)

// Engine reconciles records against a store.
type Engine struct {
	reg *field.Registry
}

// New creates an Engine that accepts fields known to the registry.
// With nil registry only dc, irts and local namespaces are accepted.
func New(reg *field.Registry) *Engine {
	if reg == nil {
		reg = field.NewRegistry()
	}
	return &Engine{reg: reg}
}

type options struct {
	complete bool
	ignore   []field.Field
}

// Option modifies a single Reconcile call.
type Option func(*options)

// Complete marks the record as the whole knowledge of the source about
// the entity. Fields missing from a complete record are soft-deleted.
func Complete(b bool) Option {
	return func(o *options) {
		o.complete = b
	}
}

// Ignore protects fields from pruning by a complete record.
func Ignore(fields ...field.Field) Option {
	return func(o *options) {
		o.ignore = append(o.ignore, fields...)
	}
}

// Reconcile writes rec into the scope of s. Field names are checked before
// anything is written. Writes are not wrapped into a transaction, callers
// that need all-or-nothing behavior run Reconcile inside store.Atomic.
func (e *Engine) Reconcile(
	ctx context.Context,
	s store.Store,
	sc store.Scope,
	rec *record.Record,
	opts ...Option,
) (Trace, error) {
	res := Trace{Source: sc.Source, IDInSource: sc.IDInSource}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := e.validate(rec); err != nil {
		return res, err
	}
	for _, v := range o.ignore {
		if err := e.reg.Validate(v); err != nil {
			return res, err
		}
	}

	err := e.reconcile(ctx, s, sc, rec, o, &res)
	return res, err
}

func (e *Engine) reconcile(
	ctx context.Context,
	s store.Store,
	sc store.Scope,
	rec *record.Record,
	o options,
	tr *Trace,
) error {
	fields := rec.Fields()
	for _, f := range fields {
		entries := rec.Entries(f)
		for place, ent := range entries {
			// absent values keep their place but are not written
			if ent.Value == nil {
				continue
			}
			val, err := record.NormalizeValue(ent.Value)
			if err != nil {
				return fmt.Errorf("%s[%d]: %w", f, place, err)
			}
			if val == "" {
				continue
			}

			slot := store.Slot{Scope: sc, Field: f, Place: place}
			res, err := s.PutValue(ctx, slot, val)
			if err != nil {
				return fmt.Errorf("cannot write %s[%d]: %w", f, place, err)
			}
			tr.Steps = append(tr.Steps, Step{
				Field:  f,
				Place:  place,
				Parent: sc.Parent,
				RowID:  res.RowID,
				Status: res.Status,
			})

			if ent.Children == nil {
				continue
			}
			child := store.Scope{
				Source:     sc.Source,
				IDInSource: sc.IDInSource,
				Parent:     res.RowID,
			}
			if err = e.reconcile(ctx, s, child, ent.Children, o, tr); err != nil {
				return err
			}
		}

		// an empty list supplies no last place, nothing is pruned
		if len(entries) == 0 {
			continue
		}
		n, err := s.InvalidatePlacesBeyond(ctx, sc, f, len(entries)-1)
		if err != nil {
			return fmt.Errorf("cannot prune places of %s: %w", f, err)
		}
		tr.Pruned += n
	}

	if !o.complete {
		return nil
	}
	keep := slices.Concat(fields, o.ignore)
	n, err := s.InvalidateFieldsNotIn(ctx, sc, keep)
	if err != nil {
		return fmt.Errorf("cannot prune fields: %w", err)
	}
	tr.Pruned += n
	return nil
}

func (e *Engine) validate(rec *record.Record) error {
	for _, f := range rec.Fields() {
		if err := e.reg.Validate(f); err != nil {
			return err
		}
		for _, v := range rec.Entries(f) {
			if v.Children == nil {
				continue
			}
			if err := e.validate(v.Children); err != nil {
				return err
			}
		}
	}
	return nil
}

package memstore

import (
	"context"

	"github.com/gnames/irts/pkg/field"
	"github.com/gnames/irts/pkg/store"
)

// tx is the view of the store given to Atomic callbacks. The store lock is
// already held, so its methods do not lock.
type tx struct {
	data *data
}

func (t *tx) PutSourcePayload(
	ctx context.Context,
	p store.Payload,
) (store.Status, error) {
	if err := ctx.Err(); err != nil {
		return store.Unchanged, err
	}
	return t.data.putSourcePayload(p)
}

func (t *tx) CurrentPayload(
	ctx context.Context,
	source, idInSource string,
) (store.SourceRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return store.SourceRecord{}, false, err
	}
	res, ok := t.data.currentPayload(source, idInSource)
	return res, ok, nil
}

func (t *tx) SourceIDs(ctx context.Context, source string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.data.sourceIDs(source), nil
}

func (t *tx) PutValue(
	ctx context.Context,
	slot store.Slot,
	value any,
) (store.PutResult, error) {
	if err := ctx.Err(); err != nil {
		return store.PutResult{}, err
	}
	return t.data.putValue(slot, value)
}

func (t *tx) InvalidatePlacesBeyond(
	ctx context.Context,
	sc store.Scope,
	f field.Field,
	lastPlace int,
) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return t.data.invalidatePlacesBeyond(sc, f, lastPlace), nil
}

func (t *tx) InvalidateFieldsNotIn(
	ctx context.Context,
	sc store.Scope,
	keep []field.Field,
) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return t.data.invalidateFieldsNotIn(sc, keep), nil
}

func (t *tx) InvalidateAllChildren(
	ctx context.Context,
	sc store.Scope,
) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return t.data.invalidateAllChildren(sc), nil
}

func (t *tx) QueryCurrent(
	ctx context.Context,
	f store.Filter,
) ([]store.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.data.queryCurrent(f), nil
}

func (t *tx) History(
	ctx context.Context,
	source, idInSource string,
) ([]store.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.data.history(source, idInSource), nil
}

func (t *tx) IDsWithPrefix(
	ctx context.Context,
	source, prefix string,
) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.data.idsWithPrefix(source, prefix), nil
}

// Atomic inside a running section joins it.
func (t *tx) Atomic(
	ctx context.Context,
	_ string,
	fn func(ctx context.Context, s store.Store) error,
) error {
	return fn(ctx, t)
}

// Package memstore is an in-memory implementation of store.Store.
//
// Rows are kept in an append-only log, a map of current pointers gives
// constant time slot lookups. Atomic sections hold the store lock for
// their whole duration and are rolled back from an undo journal when
// the callback fails.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/gnames/irts/pkg/field"
	"github.com/gnames/irts/pkg/store"
)

// MemStore keeps versioned metadata in memory. It is safe for concurrent
// use.
type MemStore struct {
	mu   sync.Mutex
	data *data
}

// Option configures MemStore.
type Option func(*MemStore)

// OptClock replaces the clock used for addedAt and deletedAt timestamps.
func OptClock(fn func() time.Time) Option {
	return func(m *MemStore) {
		if fn != nil {
			m.data.now = fn
		}
	}
}

// New creates an empty MemStore.
func New(opts ...Option) *MemStore {
	res := &MemStore{data: newData()}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

func (m *MemStore) PutSourcePayload(
	ctx context.Context,
	p store.Payload,
) (store.Status, error) {
	if err := ctx.Err(); err != nil {
		return store.Unchanged, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.putSourcePayload(p)
}

func (m *MemStore) CurrentPayload(
	ctx context.Context,
	source, idInSource string,
) (store.SourceRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return store.SourceRecord{}, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.data.currentPayload(source, idInSource)
	return res, ok, nil
}

func (m *MemStore) SourceIDs(
	ctx context.Context,
	source string,
) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.sourceIDs(source), nil
}

func (m *MemStore) PutValue(
	ctx context.Context,
	slot store.Slot,
	value any,
) (store.PutResult, error) {
	if err := ctx.Err(); err != nil {
		return store.PutResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.putValue(slot, value)
}

func (m *MemStore) InvalidatePlacesBeyond(
	ctx context.Context,
	sc store.Scope,
	f field.Field,
	lastPlace int,
) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.invalidatePlacesBeyond(sc, f, lastPlace), nil
}

func (m *MemStore) InvalidateFieldsNotIn(
	ctx context.Context,
	sc store.Scope,
	keep []field.Field,
) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.invalidateFieldsNotIn(sc, keep), nil
}

func (m *MemStore) InvalidateAllChildren(
	ctx context.Context,
	sc store.Scope,
) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.invalidateAllChildren(sc), nil
}

func (m *MemStore) QueryCurrent(
	ctx context.Context,
	f store.Filter,
) ([]store.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.queryCurrent(f), nil
}

func (m *MemStore) History(
	ctx context.Context,
	source, idInSource string,
) ([]store.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.history(source, idInSource), nil
}

func (m *MemStore) IDsWithPrefix(
	ctx context.Context,
	source, prefix string,
) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.idsWithPrefix(source, prefix), nil
}

// Atomic runs fn while holding the store lock. Every mutation made through
// the store passed to fn is undone if fn returns an error. The lock key is
// ignored, all atomic sections are serialized.
func (m *MemStore) Atomic(
	ctx context.Context,
	_ string,
	fn func(ctx context.Context, s store.Store) error,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data.begin()
	var done bool
	defer func() {
		if !done {
			m.data.rollback()
		}
	}()

	if err := fn(ctx, &tx{data: m.data}); err != nil {
		return err
	}
	m.data.commit()
	done = true
	return nil
}

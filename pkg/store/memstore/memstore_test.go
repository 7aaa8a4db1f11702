package memstore_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gnames/irts/pkg/field"
	"github.com/gnames/irts/pkg/store"
	"github.com/gnames/irts/pkg/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newStore() *memstore.MemStore {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return memstore.New(memstore.OptClock(c.now))
}

func slot(parent store.RowID, f field.Field, place int) store.Slot {
	return store.Slot{
		Scope: store.Scope{Source: "crossref", IDInSource: "10.1/x", Parent: parent},
		Field: f,
		Place: place,
	}
}

func TestPutSourcePayload(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	p := store.Payload{
		Source: "crossref", IDInSource: "10.1/x",
		Data: []byte(`{"a":1,"b":2}`), Format: store.FormatJSON,
	}

	st, err := s.PutSourcePayload(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, store.New, st)

	p.Data = []byte(`{"b":2, "a":1}`)
	st, err = s.PutSourcePayload(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, store.Unchanged, st)

	p.Data = []byte(`{"a":1,"b":3}`)
	st, err = s.PutSourcePayload(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, store.Updated, st)

	cur, ok, err := s.CurrentPayload(ctx, "crossref", "10.1/x")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"a":1,"b":3}`, string(cur.Data))
	assert.Equal(t, store.RowID(2), cur.RowID)
	assert.Nil(t, cur.DeletedAt)

	_, ok, err = s.CurrentPayload(ctx, "crossref", "10.1/none")
	require.NoError(t, err)
	assert.False(t, ok)

	ids, err := s.SourceIDs(ctx, "crossref")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.1/x"}, ids)
}

func TestPutValue(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	res, err := s.PutValue(ctx, slot(0, field.Title, 0), " Title ")
	require.NoError(t, err)
	assert.Equal(t, store.New, res.Status)
	first := res.RowID

	res, err = s.PutValue(ctx, slot(0, field.Title, 0), "Title")
	require.NoError(t, err)
	assert.Equal(t, store.Unchanged, res.Status)
	assert.Equal(t, first, res.RowID)

	res, err = s.PutValue(ctx, slot(0, field.Title, 0), "Other")
	require.NoError(t, err)
	assert.Equal(t, store.Updated, res.Status)
	assert.Greater(t, res.RowID, first)

	hist, err := s.History(ctx, "crossref", "10.1/x")
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.False(t, hist[0].IsCurrent())
	assert.Equal(t, res.RowID, hist[0].ReplacedBy)
	assert.Equal(t, hist[1].AddedAt, *hist[0].DeletedAt)
	assert.True(t, hist[1].IsCurrent())

	res, err = s.PutValue(ctx, slot(0, "irts.flag", 0), true)
	require.NoError(t, err)
	vals, err := s.QueryCurrent(ctx, store.Filter{Fields: []field.Field{"irts.flag"}})
	require.NoError(t, err)
	require.Len(t, vals, 1)
	assert.Equal(t, "TRUE", vals[0].Value)

	_, err = s.PutValue(ctx, slot(0, field.Title, 0), nil)
	assert.Error(t, err)
	_, err = s.PutValue(ctx, slot(0, field.Title, -1), "x")
	assert.Error(t, err)
}

func TestCascade(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	parent, err := s.PutValue(ctx, slot(0, field.Contrib, 0), "Doe, J")
	require.NoError(t, err)
	child, err := s.PutValue(ctx, slot(parent.RowID, field.ORCID, 0), "0000-1")
	require.NoError(t, err)
	_, err = s.PutValue(ctx, slot(parent.RowID, "dc.affiliation", 0), "KAUST")
	require.NoError(t, err)

	upd, err := s.PutValue(ctx, slot(0, field.Contrib, 0), "Doe, Jane")
	require.NoError(t, err)
	assert.Equal(t, store.Updated, upd.Status)

	p := parent.RowID
	vals, err := s.QueryCurrent(ctx, store.Filter{Parent: &p})
	require.NoError(t, err)
	assert.Empty(t, vals)

	hist, err := s.History(ctx, "crossref", "10.1/x")
	require.NoError(t, err)
	for _, v := range hist {
		if v.RowID == child.RowID {
			require.NotNil(t, v.DeletedAt)
			assert.Zero(t, v.ReplacedBy)
			assert.Equal(t, hist[0].DeletedAt, v.DeletedAt)
		}
	}
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	sc := store.Scope{Source: "crossref", IDInSource: "10.1/x"}

	for i, v := range []string{"A", "B", "C"} {
		_, err := s.PutValue(ctx, slot(0, field.Contrib, i), v)
		require.NoError(t, err)
	}
	_, err := s.PutValue(ctx, slot(0, field.Title, 0), "T")
	require.NoError(t, err)
	_, err = s.PutValue(ctx, slot(0, field.Type, 0), "Article")
	require.NoError(t, err)

	n, err := s.InvalidatePlacesBeyond(ctx, sc, field.Contrib, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.InvalidateFieldsNotIn(ctx, sc, []field.Field{field.Contrib, field.Title})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	top := store.RowID(0)
	vals, err := s.QueryCurrent(ctx, store.Filter{Parent: &top})
	require.NoError(t, err)
	require.Len(t, vals, 2)
	assert.Equal(t, "A", vals[0].Value)
	assert.Equal(t, "T", vals[1].Value)

	n, err = s.InvalidateAllChildren(ctx, sc)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	hist, err := s.History(ctx, "crossref", "10.1/x")
	require.NoError(t, err)
	assert.Len(t, hist, 5)
	for _, v := range hist {
		assert.NotNil(t, v.DeletedAt)
		assert.Zero(t, v.ReplacedBy)
	}
}

func TestQueryCurrent(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	put := func(src, id string, f field.Field, val string) {
		_, err := s.PutValue(ctx, store.Slot{
			Scope: store.Scope{Source: src, IDInSource: id},
			Field: f,
		}, val)
		require.NoError(t, err)
	}
	put("repository", "h1", field.DOI, "10.1/a")
	put("repository", "h2", field.DOI, "10.1/b")
	put("irts", "arxiv_1", field.DOI, "10.1/a")
	put("irts", "arxiv_1", field.Title, "T")

	tests := []struct {
		msg    string
		filter store.Filter
		ids    []string
	}{
		{"by value", store.Filter{
			Fields: []field.Field{field.DOI}, Values: []string{"10.1/a"},
		}, []string{"h1", "arxiv_1"}},
		{"by source", store.Filter{
			Sources: []string{"irts"},
		}, []string{"arxiv_1", "arxiv_1"}},
		{"by id", store.Filter{
			IDInSource: []string{"h2"},
		}, []string{"h2"}},
		{"limit", store.Filter{
			Fields: []field.Field{field.DOI}, Limit: 1,
		}, []string{"h1"}},
		{"nothing", store.Filter{
			Values: []string{"none"},
		}, nil},
	}

	for _, v := range tests {
		t.Run(v.msg, func(t *testing.T) {
			vals, err := s.QueryCurrent(ctx, v.filter)
			require.NoError(t, err)
			var ids []string
			for _, val := range vals {
				ids = append(ids, val.IDInSource)
			}
			assert.Equal(t, v.ids, ids)
		})
	}
}

func TestIDsWithPrefix(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	for _, id := range []string{"arxiv_1", "arxiv_2", "crossref_1", "arxiv_10"} {
		_, err := s.PutValue(ctx, store.Slot{
			Scope: store.Scope{Source: "irts", IDInSource: id},
			Field: field.Status,
		}, "inProcess")
		require.NoError(t, err)
	}
	_, err := s.InvalidateAllChildren(ctx, store.Scope{
		Source: "irts", IDInSource: "arxiv_10",
	})
	require.NoError(t, err)

	ids, err := s.IDsWithPrefix(ctx, "irts", "arxiv_")
	require.NoError(t, err)
	assert.Equal(t, []string{"arxiv_1", "arxiv_10", "arxiv_2"}, ids)
}

func TestAtomicRollback(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	_, err := s.PutValue(ctx, slot(0, field.Title, 0), "Old")
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.Atomic(ctx, "item", func(ctx context.Context, tx store.Store) error {
		if _, err := tx.PutValue(ctx, slot(0, field.Title, 0), "New"); err != nil {
			return err
		}
		if _, err := tx.PutValue(ctx, slot(0, field.Type, 0), "Article"); err != nil {
			return err
		}
		_, err := tx.PutSourcePayload(ctx, store.Payload{
			Source: "crossref", IDInSource: "10.1/x",
			Data: []byte("{}"), Format: store.FormatJSON,
		})
		if err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	hist, err := s.History(ctx, "crossref", "10.1/x")
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "Old", hist[0].Value)
	assert.True(t, hist[0].IsCurrent())
	assert.Zero(t, hist[0].ReplacedBy)

	_, ok, err := s.CurrentPayload(ctx, "crossref", "10.1/x")
	require.NoError(t, err)
	assert.False(t, ok)

	res, err := s.PutValue(ctx, slot(0, field.Title, 0), "Old")
	require.NoError(t, err)
	assert.Equal(t, store.Unchanged, res.Status)
}

func TestAtomicCommit(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	err := s.Atomic(ctx, "item", func(ctx context.Context, tx store.Store) error {
		return tx.Atomic(ctx, "nested", func(ctx context.Context, tx store.Store) error {
			_, err := tx.PutValue(ctx, slot(0, field.Title, 0), "T")
			return err
		})
	})
	require.NoError(t, err)

	vals, err := s.QueryCurrent(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Len(t, vals, 1)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newStore()
	_, err := s.PutValue(ctx, slot(0, field.Title, 0), "T")
	assert.ErrorIs(t, err, context.Canceled)
	err = s.Atomic(ctx, "k", func(context.Context, store.Store) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

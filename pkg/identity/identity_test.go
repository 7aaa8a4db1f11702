package identity_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/gnames/irts/pkg/field"
	"github.com/gnames/irts/pkg/identity"
	"github.com/gnames/irts/pkg/reconcile"
	"github.com/gnames/irts/pkg/record"
	"github.com/gnames/irts/pkg/store"
	"github.com/gnames/irts/pkg/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*memstore.MemStore, *reconcile.Engine, *identity.Controller) {
	s := memstore.New()
	eng := reconcile.New(field.NewRegistry("arxiv", "crossref"))
	return s, eng, identity.New(eng)
}

func put(
	t *testing.T,
	s store.Store,
	eng *reconcile.Engine,
	source, id string,
	rec *record.Record,
) {
	_, err := eng.Reconcile(context.Background(), s,
		store.Scope{Source: source, IDInSource: id}, rec, reconcile.Complete(true))
	require.NoError(t, err)
}

func arxivItem() *record.Record {
	return record.New().
		Add(field.Type, "Preprint").
		Add(field.Title, "Deep sea vents").
		Add(field.Issued, "2024-01-05").
		Add(field.ArxivID, "2401.00001")
}

func current(t *testing.T, s store.Store, id string) map[field.Field]string {
	vals, err := s.QueryCurrent(context.Background(), store.Filter{
		Sources:    []string{"irts"},
		IDInSource: []string{id},
	})
	require.NoError(t, err)
	res := make(map[field.Field]string)
	for _, v := range vals {
		res[v.Field] = v.Value
	}
	return res
}

func TestAdmitNew(t *testing.T) {
	ctx := context.Background()
	s, eng, ctl := setup(t)
	put(t, s, eng, "arxiv", "2401.00001", arxivItem())

	res, err := ctl.Admit(ctx, s, identity.Request{
		Source:     "arxiv",
		IDInSource: "2401.00001",
		IDField:    field.ArxivID,
		Reason:     "faculty name",
	})
	require.NoError(t, err)
	assert.Equal(t, identity.Admitted, res.Status)
	assert.Equal(t, "arxiv_1", res.Identity)
	assert.Len(t, res.Report, 8)

	got := current(t, s, "arxiv_1")
	assert.Equal(t, map[field.Field]string{
		field.TrackedSource:     "arxiv",
		field.TrackedIDInSource: "2401.00001",
		field.Type:              "Preprint",
		field.Status:            "inProcess",
		field.ArxivID:           "2401.00001",
		field.Title:             "Deep sea vents",
		field.Issued:            "2024-01-05",
		field.HarvestBasis:      "faculty name",
	}, got)

	vals, err := s.QueryCurrent(ctx, store.Filter{
		Sources: []string{"irts"},
		Fields:  []field.Field{field.TrackedSource, field.TrackedIDInSource},
	})
	require.NoError(t, err)
	require.Len(t, vals, 2)
	assert.Zero(t, vals[0].Parent)
	assert.Equal(t, vals[0].RowID, vals[1].Parent)
	for _, v := range vals {
		assert.Zero(t, v.Place)
	}
}

func TestAdmitDedup(t *testing.T) {
	ctx := context.Background()
	s, eng, ctl := setup(t)
	put(t, s, eng, "arxiv", "2401.00001", arxivItem())

	req := identity.Request{
		Source: "arxiv", IDInSource: "2401.00001", IDField: field.ArxivID,
	}
	res, err := ctl.Admit(ctx, s, req)
	require.NoError(t, err)
	assert.Equal(t, identity.Admitted, res.Status)

	res, err = ctl.Admit(ctx, s, req)
	require.NoError(t, err)
	assert.Equal(t, identity.AlreadyTracked, res.Status)
	assert.Empty(t, res.Identity)
	assert.Equal(t, "arxiv_1", res.MatchedID)
	assert.Equal(t, "id field", res.MatchedBy)

	ids, err := s.IDsWithPrefix(ctx, "irts", "arxiv_")
	require.NoError(t, err)
	assert.Equal(t, []string{"arxiv_1"}, ids)
}

func TestAdmitNextID(t *testing.T) {
	ctx := context.Background()
	s, eng, ctl := setup(t)
	put(t, s, eng, "irts", "arxiv_1", record.New().Add(field.Status, "done"))
	put(t, s, eng, "irts", "arxiv_7", record.New().Add(field.Status, "done"))
	put(t, s, eng, "irts", "arxiv_x", record.New().Add(field.Status, "done"))
	put(t, s, eng, "irts", "crossref_20", record.New().Add(field.Status, "done"))
	_, err := s.InvalidateAllChildren(ctx, store.Scope{
		Source: "irts", IDInSource: "arxiv_7",
	})
	require.NoError(t, err)

	put(t, s, eng, "arxiv", "2401.00002", arxivItem())
	res, err := ctl.Admit(ctx, s, identity.Request{
		Source: "arxiv", IDInSource: "2401.00002", IDField: field.ArxivID,
	})
	require.NoError(t, err)
	assert.Equal(t, "arxiv_8", res.Identity)
}

func TestAdmitMatches(t *testing.T) {
	tests := []struct {
		msg      string
		existing func(*testing.T, store.Store, *reconcile.Engine)
		item     *record.Record
		idField  field.Field
		status   identity.Status
		matched  string
		rule     string
	}{
		{
			msg: "doi in repository",
			existing: func(t *testing.T, s store.Store, eng *reconcile.Engine) {
				put(t, s, eng, "repository", "10754/1",
					record.New().Add(field.DOI, "10.1/abc"))
			},
			item: record.New().
				Add(field.DOI, "10.1/abc").Add(field.Title, "T"),
			idField: field.ArxivID,
			status:  identity.AlreadyTracked,
			matched: "10754/1",
			rule:    "doi",
		},
		{
			msg: "doi ignored when it is the id field",
			existing: func(t *testing.T, s store.Store, eng *reconcile.Engine) {
				put(t, s, eng, "repository", "10754/1",
					record.New().Add(field.DOI, "10.1/abc"))
			},
			item:    record.New().Add(field.DOI, "10.1/abc"),
			idField: field.DOI,
			status:  identity.Admitted,
		},
		{
			msg: "title and type in tracking",
			existing: func(t *testing.T, s store.Store, eng *reconcile.Engine) {
				put(t, s, eng, "irts", "crossref_3", record.New().
					Add(field.Title, "Deep sea vents").Add(field.Type, "Preprint"))
			},
			item:    arxivItem(),
			idField: field.ArxivID,
			status:  identity.AlreadyTracked,
			matched: "crossref_3",
			rule:    "title and type",
		},
		{
			msg: "title with other type",
			existing: func(t *testing.T, s store.Store, eng *reconcile.Engine) {
				put(t, s, eng, "irts", "crossref_3", record.New().
					Add(field.Title, "Deep sea vents").Add(field.Type, "Article"))
			},
			item:    arxivItem(),
			idField: field.ArxivID,
			status:  identity.Admitted,
		},
		{
			msg: "title ignored when doi is known",
			existing: func(t *testing.T, s store.Store, eng *reconcile.Engine) {
				put(t, s, eng, "irts", "crossref_3", record.New().
					Add(field.Title, "Deep sea vents").Add(field.Type, "Preprint"))
			},
			item:    arxivItem().Add(field.DOI, "10.1/new"),
			idField: field.ArxivID,
			status:  identity.Admitted,
		},
		{
			msg: "pointer pair",
			existing: func(t *testing.T, s store.Store, eng *reconcile.Engine) {
				put(t, s, eng, "irts", "arxiv_4", record.New().
					AddChild(field.TrackedSource, "arxiv", record.New().
						Add(field.TrackedIDInSource, "2401.00001")))
			},
			item:    arxivItem(),
			idField: "arxiv.id",
			status:  identity.AlreadyTracked,
			matched: "arxiv_4",
			rule:    "source pointer",
		},
		{
			msg: "pointer of another source",
			existing: func(t *testing.T, s store.Store, eng *reconcile.Engine) {
				put(t, s, eng, "irts", "crossref_4", record.New().
					AddChild(field.TrackedSource, "crossref", record.New().
						Add(field.TrackedIDInSource, "2401.00001")))
			},
			item:    arxivItem(),
			idField: "arxiv.id",
			status:  identity.Admitted,
		},
	}

	for _, v := range tests {
		t.Run(v.msg, func(t *testing.T) {
			ctx := context.Background()
			s, eng, ctl := setup(t)
			v.existing(t, s, eng)
			put(t, s, eng, "arxiv", "2401.00001", v.item)

			res, err := ctl.Admit(ctx, s, identity.Request{
				Source: "arxiv", IDInSource: "2401.00001", IDField: v.idField,
			})
			require.NoError(t, err)
			assert.Equal(t, v.status, res.Status)
			assert.Equal(t, v.matched, res.MatchedID)
			assert.Equal(t, v.rule, res.MatchedBy)
		})
	}
}

func TestAdmitDOIAsIDField(t *testing.T) {
	ctx := context.Background()
	s, eng, ctl := setup(t)
	put(t, s, eng, "crossref", "10.1/abc", record.New().
		Add(field.DOI, "10.1/abc").Add(field.Type, "Article"))

	res, err := ctl.Admit(ctx, s, identity.Request{
		Source: "crossref", IDInSource: "10.1/abc", IDField: field.DOI,
	})
	require.NoError(t, err)
	require.Equal(t, identity.Admitted, res.Status)

	vals, err := s.QueryCurrent(ctx, store.Filter{
		Sources:    []string{"irts"},
		IDInSource: []string{res.Identity},
		Fields:     []field.Field{field.DOI},
	})
	require.NoError(t, err)
	assert.Len(t, vals, 1)

	got := current(t, s, res.Identity)
	assert.NotContains(t, got, field.HarvestBasis)
	assert.NotContains(t, got, field.Title)
}

func TestAdmitValidation(t *testing.T) {
	_, _, ctl := setup(t)
	s := memstore.New()
	_, err := ctl.Admit(context.Background(), s, identity.Request{
		Source: "arxiv", IDField: field.ArxivID,
	})
	assert.Error(t, err)
}

type conflictStore struct {
	*memstore.MemStore
	calls int
}

func (c *conflictStore) Atomic(
	ctx context.Context,
	key string,
	fn func(context.Context, store.Store) error,
) error {
	c.calls++
	if c.calls == 1 {
		return fmt.Errorf("duplicate identity: %w", store.ErrConflict)
	}
	return c.MemStore.Atomic(ctx, key, fn)
}

func TestAdmitRetriesConflict(t *testing.T) {
	ctx := context.Background()
	s, eng, ctl := setup(t)
	put(t, s, eng, "arxiv", "2401.00001", arxivItem())

	cs := &conflictStore{MemStore: s}
	res, err := ctl.Admit(ctx, cs, identity.Request{
		Source: "arxiv", IDInSource: "2401.00001", IDField: field.ArxivID,
	})
	require.NoError(t, err)
	assert.Equal(t, identity.Admitted, res.Status)
	assert.Equal(t, 2, cs.calls)

	ctl = identity.New(eng, identity.OptAttempts(1))
	cs = &conflictStore{MemStore: memstore.New()}
	_, err = ctl.Admit(ctx, cs, identity.Request{
		Source: "arxiv", IDInSource: "2401.00001", IDField: field.ArxivID,
	})
	assert.ErrorIs(t, err, store.ErrConflict)
}

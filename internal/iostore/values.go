package iostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jackc/pgx/v5"

	"github.com/gnames/irts/pkg/field"
	"github.com/gnames/irts/pkg/record"
	"github.com/gnames/irts/pkg/store"
)

var valueColumns = []string{
	"row_id", "source", "id_in_source", "parent_row_id", "field", "place",
	"value", "added_at", "deleted_at", "replaced_by",
}

func (s *PgStore) PutValue(
	ctx context.Context,
	slot store.Slot,
	value any,
) (store.PutResult, error) {
	var res store.PutResult
	if slot.Source == "" || slot.IDInSource == "" {
		return res, fmt.Errorf("slot without source or id")
	}
	if slot.Field == "" || slot.Place < 0 {
		return res, fmt.Errorf("bad slot %s[%d]", slot.Field, slot.Place)
	}
	val, err := record.NormalizeValue(value)
	if err != nil {
		return res, err
	}

	err = s.write(ctx, func(txs *PgStore) error {
		var cur int64
		var curVal string
		err := txs.q.QueryRow(ctx, `
SELECT row_id, value FROM metadata
  WHERE source = $1 AND id_in_source = $2
    AND COALESCE(parent_row_id, 0) = $3
    AND field = $4 AND place = $5 AND deleted_at IS NULL
  FOR UPDATE`,
			slot.Source, slot.IDInSource, int64(slot.Parent),
			string(slot.Field), slot.Place,
		).Scan(&cur, &curVal)
		found := err == nil
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return wrapErr("current value", err)
		}
		if found && curVal == val {
			res = store.PutResult{RowID: store.RowID(cur), Status: store.Unchanged}
			return nil
		}

		now := txs.now()
		if found {
			_, err = txs.q.Exec(ctx,
				"UPDATE metadata SET deleted_at = $1 WHERE row_id = $2", now, cur)
			if err != nil {
				return wrapErr("retire value", err)
			}
		}

		var id int64
		err = txs.q.QueryRow(ctx, `
INSERT INTO metadata
  (source, id_in_source, parent_row_id, field, place, value, added_at)
  VALUES ($1, $2, $3, $4, $5, $6, $7)
  RETURNING row_id`,
			slot.Source, slot.IDInSource, nullRowID(slot.Parent),
			string(slot.Field), slot.Place, val, now,
		).Scan(&id)
		if err != nil {
			return wrapErr("insert value", err)
		}

		if !found {
			res = store.PutResult{RowID: store.RowID(id), Status: store.New}
			return nil
		}

		_, err = txs.q.Exec(ctx,
			"UPDATE metadata SET replaced_by = $1 WHERE row_id = $2", id, cur)
		if err != nil {
			return wrapErr("link value", err)
		}
		_, err = txs.q.Exec(ctx, `
UPDATE metadata SET deleted_at = $1
  WHERE parent_row_id = $2 AND deleted_at IS NULL`, now, cur)
		if err != nil {
			return wrapErr("retire children", err)
		}
		res = store.PutResult{RowID: store.RowID(id), Status: store.Updated}
		return nil
	})
	if err != nil {
		return store.PutResult{}, err
	}
	return res, nil
}

func (s *PgStore) InvalidatePlacesBeyond(
	ctx context.Context,
	sc store.Scope,
	f field.Field,
	lastPlace int,
) (int64, error) {
	return s.invalidate(ctx, sc, func(ub *sqlbuilder.UpdateBuilder) []string {
		return []string{
			ub.Equal("field", string(f)),
			ub.GreaterThan("place", lastPlace),
		}
	})
}

func (s *PgStore) InvalidateFieldsNotIn(
	ctx context.Context,
	sc store.Scope,
	keep []field.Field,
) (int64, error) {
	return s.invalidate(ctx, sc, func(ub *sqlbuilder.UpdateBuilder) []string {
		if len(keep) == 0 {
			return nil
		}
		return []string{ub.NotIn("field", anys(keep)...)}
	})
}

func (s *PgStore) InvalidateAllChildren(
	ctx context.Context,
	sc store.Scope,
) (int64, error) {
	return s.invalidate(ctx, sc, nil)
}

// invalidate soft-deletes current rows of a scope that match extra
// conditions.
func (s *PgStore) invalidate(
	ctx context.Context,
	sc store.Scope,
	cond func(ub *sqlbuilder.UpdateBuilder) []string,
) (int64, error) {
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("metadata")
	ub.Set(ub.Assign("deleted_at", s.now()))
	where := []string{
		ub.Equal("source", sc.Source),
		ub.Equal("id_in_source", sc.IDInSource),
		ub.IsNull("deleted_at"),
	}
	if sc.Parent == 0 {
		where = append(where, ub.IsNull("parent_row_id"))
	} else {
		where = append(where, ub.Equal("parent_row_id", int64(sc.Parent)))
	}
	if cond != nil {
		where = append(where, cond(ub)...)
	}
	ub.Where(where...)

	query, args := ub.Build()
	tag, err := s.q.Exec(ctx, query, args...)
	if err != nil {
		return 0, wrapErr("invalidate", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PgStore) QueryCurrent(
	ctx context.Context,
	f store.Filter,
) ([]store.Value, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(valueColumns...)
	sb.From("metadata")
	where := []string{sb.IsNull("deleted_at")}
	if len(f.Sources) > 0 {
		where = append(where, sb.In("source", anys(f.Sources)...))
	}
	if len(f.IDInSource) > 0 {
		where = append(where, sb.In("id_in_source", anys(f.IDInSource)...))
	}
	if len(f.Fields) > 0 {
		where = append(where, sb.In("field", anys(f.Fields)...))
	}
	if len(f.Values) > 0 {
		where = append(where, sb.In("value", anys(f.Values)...))
	}
	if f.Parent != nil {
		where = append(where,
			sb.Equal("COALESCE(parent_row_id, 0)", int64(*f.Parent)))
	}
	if len(f.ParentIDs) > 0 {
		where = append(where,
			sb.In("COALESCE(parent_row_id, 0)", anys(f.ParentIDs)...))
	}
	sb.Where(where...)
	sb.OrderBy("row_id")
	if f.Limit > 0 {
		sb.Limit(f.Limit)
	}

	query, args := sb.Build()
	return s.values(ctx, "query current", query, args...)
}

func (s *PgStore) History(
	ctx context.Context,
	source, idInSource string,
) ([]store.Value, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(valueColumns...)
	sb.From("metadata")
	sb.Where(
		sb.Equal("source", source),
		sb.Equal("id_in_source", idInSource),
	)
	sb.OrderBy("row_id")

	query, args := sb.Build()
	return s.values(ctx, "history", query, args...)
}

func (s *PgStore) IDsWithPrefix(
	ctx context.Context,
	source, prefix string,
) ([]string, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("DISTINCT id_in_source COLLATE \"C\" AS id")
	sb.From("metadata")
	sb.Where(
		sb.Equal("source", source),
		sb.Like("id_in_source", escapeLike(prefix)+"%"),
	)
	sb.OrderBy("id")

	query, args := sb.Build()
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("ids with prefix", err)
	}
	res, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, wrapErr("ids with prefix", err)
	}
	return res, nil
}

func (s *PgStore) values(
	ctx context.Context,
	op, query string,
	args ...any,
) ([]store.Value, error) {
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	res, err := pgx.CollectRows(rows, scanValue)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return res, nil
}

func scanValue(row pgx.CollectableRow) (store.Value, error) {
	var res store.Value
	var id int64
	var parent, replaced *int64
	var f string
	var deleted *time.Time
	err := row.Scan(
		&id, &res.Source, &res.IDInSource, &parent, &f, &res.Place,
		&res.Value, &res.AddedAt, &deleted, &replaced,
	)
	if err != nil {
		return res, err
	}
	res.RowID = store.RowID(id)
	res.Parent = rowID(parent)
	res.Field = field.Field(f)
	res.DeletedAt = deleted
	res.ReplacedBy = rowID(replaced)
	return res, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// anys converts values for IN conditions. Fields and row ids become
// their underlying types.
func anys[T ~string | ~int64](vals []T) []any {
	res := make([]any, len(vals))
	for i, v := range vals {
		switch val := any(v).(type) {
		case field.Field:
			res[i] = string(val)
		case store.RowID:
			res[i] = int64(val)
		default:
			res[i] = val
		}
	}
	return res
}

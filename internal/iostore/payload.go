package iostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gnames/irts/pkg/store"
)

func (s *PgStore) PutSourcePayload(
	ctx context.Context,
	p store.Payload,
) (store.Status, error) {
	if p.Source == "" || p.IDInSource == "" {
		return store.Unchanged, fmt.Errorf("payload without source or id")
	}
	hash := store.PayloadHash(p.Data, p.Format)

	res := store.Unchanged
	err := s.write(ctx, func(txs *PgStore) error {
		var cur int64
		var curHash string
		err := txs.q.QueryRow(ctx, `
SELECT row_id, hash FROM source_data
  WHERE source = $1 AND id_in_source = $2 AND deleted_at IS NULL
  FOR UPDATE`,
			p.Source, p.IDInSource).Scan(&cur, &curHash)
		found := err == nil
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return wrapErr("current payload", err)
		}
		if found && curHash == hash {
			return nil
		}

		now := txs.now()
		if found {
			_, err = txs.q.Exec(ctx,
				"UPDATE source_data SET deleted_at = $1 WHERE row_id = $2",
				now, cur)
			if err != nil {
				return wrapErr("retire payload", err)
			}
		}

		var id int64
		err = txs.q.QueryRow(ctx, `
INSERT INTO source_data
  (source, id_in_source, format, hash, data, added_at)
  VALUES ($1, $2, $3, $4, $5, $6)
  RETURNING row_id`,
			p.Source, p.IDInSource, string(p.Format), hash, p.Data, now,
		).Scan(&id)
		if err != nil {
			return wrapErr("insert payload", err)
		}

		if !found {
			res = store.New
			return nil
		}
		_, err = txs.q.Exec(ctx,
			"UPDATE source_data SET replaced_by = $1 WHERE row_id = $2",
			id, cur)
		if err != nil {
			return wrapErr("link payload", err)
		}
		res = store.Updated
		return nil
	})
	if err != nil {
		return store.Unchanged, err
	}
	return res, nil
}

func (s *PgStore) CurrentPayload(
	ctx context.Context,
	source, idInSource string,
) (store.SourceRecord, bool, error) {
	var res store.SourceRecord
	var id int64
	var format string
	err := s.q.QueryRow(ctx, `
SELECT row_id, source, id_in_source, data, format, added_at
  FROM source_data
  WHERE source = $1 AND id_in_source = $2 AND deleted_at IS NULL`,
		source, idInSource,
	).Scan(&id, &res.Source, &res.IDInSource, &res.Data, &format, &res.AddedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.SourceRecord{}, false, nil
	}
	if err != nil {
		return store.SourceRecord{}, false, wrapErr("current payload", err)
	}
	res.RowID = store.RowID(id)
	res.Format = store.Format(format)
	return res, true, nil
}

func (s *PgStore) SourceIDs(
	ctx context.Context,
	source string,
) ([]string, error) {
	rows, err := s.q.Query(ctx, `
SELECT id_in_source FROM source_data
  WHERE source = $1 AND deleted_at IS NULL
  ORDER BY id_in_source COLLATE "C"`, source)
	if err != nil {
		return nil, wrapErr("source ids", err)
	}
	res, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, wrapErr("source ids", err)
	}
	return res, nil
}

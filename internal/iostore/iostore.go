// Package iostore implements store.Store on PostgreSQL. This is an impure
// I/O package, tables are created by ioschema.
//
// Every write that touches more than one row runs in a transaction.
// Atomic sections take a transaction-scoped advisory lock on their key,
// partial unique indexes turn racing writers of the same slot into
// store.ErrConflict.
package iostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gnames/irts/pkg/store"
)

// querier is satisfied by both pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgStore keeps versioned metadata in PostgreSQL. It is safe for
// concurrent use, a PgStore given to an Atomic callback is bound to its
// transaction and must not escape it.
type PgStore struct {
	pool *pgxpool.Pool
	q    querier
	tx   pgx.Tx
	now  func() time.Time
}

// Option configures PgStore.
type Option func(*PgStore)

// OptClock replaces the clock used for added_at and deleted_at.
func OptClock(fn func() time.Time) Option {
	return func(s *PgStore) {
		if fn != nil {
			s.now = fn
		}
	}
}

// New creates a store on a connected pool.
func New(pool *pgxpool.Pool, opts ...Option) *PgStore {
	res := &PgStore{
		pool: pool,
		q:    pool,
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// Atomic runs fn in a transaction. Calls with the same lockKey wait for
// each other. Atomic called inside a running section joins it.
func (s *PgStore) Atomic(
	ctx context.Context,
	lockKey string,
	fn func(ctx context.Context, s store.Store) error,
) error {
	if s.tx != nil {
		if err := s.lock(ctx, s.tx, lockKey); err != nil {
			return err
		}
		return fn(ctx, s)
	}
	return s.inTx(ctx, lockKey, func(txs *PgStore) error {
		return fn(ctx, txs)
	})
}

// write runs fn in its own transaction unless the store is already bound
// to one.
func (s *PgStore) write(ctx context.Context, fn func(txs *PgStore) error) error {
	if s.tx != nil {
		return fn(s)
	}
	return s.inTx(ctx, "", fn)
}

func (s *PgStore) inTx(
	ctx context.Context,
	lockKey string,
	fn func(txs *PgStore) error,
) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return QueryError("begin", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if err = s.lock(ctx, tx, lockKey); err != nil {
		return err
	}

	txs := &PgStore{pool: s.pool, q: tx, tx: tx, now: s.now}
	if err = fn(txs); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return wrapErr("commit", err)
	}
	return nil
}

// lock takes an advisory lock released at the end of the transaction.
func (s *PgStore) lock(ctx context.Context, tx pgx.Tx, key string) error {
	if key == "" {
		return nil
	}
	_, err := tx.Exec(ctx,
		"SELECT pg_advisory_xact_lock(hashtextextended($1, 0))", key)
	if err != nil {
		return wrapErr("lock", err)
	}
	return nil
}

// wrapErr turns unique and serialization violations into
// store.ErrConflict. Other errors keep their cause.
func wrapErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "40001", "40P01":
			return fmt.Errorf("%s: %w (%s)", op, store.ErrConflict, pgErr.Message)
		}
	}
	if errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return QueryError(op, err)
}

// nullRowID stores the zero row id as NULL.
func nullRowID(id store.RowID) *int64 {
	if id == 0 {
		return nil
	}
	res := int64(id)
	return &res
}

func rowID(id *int64) store.RowID {
	if id == nil {
		return 0
	}
	return store.RowID(*id)
}

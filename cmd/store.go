package cmd

import (
	"context"

	"github.com/gnames/gn"
	"github.com/gnames/irts/internal/iodb"
	"github.com/gnames/irts/internal/iostore"
	"github.com/gnames/irts/pkg/db"
)

// openStore connects to the database and returns the metadata store.
// The caller closes the operator.
func openStore(ctx context.Context) (db.Operator, *iostore.PgStore, error) {
	op := iodb.NewPgxOperator()
	if err := op.Connect(ctx, &cfg.Database); err != nil {
		return nil, nil, err
	}

	hasTables, err := op.HasTables(ctx)
	if err == nil && !hasTables {
		err = iodb.EmptyDatabaseError(cfg.Database.Host, cfg.Database.Database)
	}
	if err != nil {
		op.Close()
		return nil, nil, err
	}

	gn.Info("Connected to database: <em>%s@%s:%d/%s</em>",
		cfg.Database.User, cfg.Database.Host,
		cfg.Database.Port, cfg.Database.Database)
	return op, iostore.New(op.Pool()), nil
}

// Package lifecycle defines contracts of database lifecycle operations.
package lifecycle

import (
	"context"

	"github.com/gnames/irts/pkg/config"
)

// SchemaManager defines the interface for database schema management.
// It uses GORM AutoMigrate for tables and plain SQL for partial indexes.
// Schema management is idempotent - safe to run multiple times.
type SchemaManager interface {
	// Create creates tables and indexes of the versioned field store.
	Create(ctx context.Context, cfg *config.Config) error

	// Migrate updates the database schema to the latest version using GORM AutoMigrate.
	// GORM handles schema version tracking automatically.
	Migrate(ctx context.Context, cfg *config.Config) error
}

package schema

import (
	"gorm.io/gorm"
)

// AllModels returns all schema models for GORM AutoMigrate.
func AllModels() []any {
	return []any{
		&SourceData{},
		&Metadata{},
	}
}

// Migrate runs GORM AutoMigrate to create or update schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}

// Index is a named index statement that GORM tags cannot express.
type Index struct {
	Name string
	SQL  string
}

// Indexes returns partial and expression indexes. Unique indexes over
// current rows make concurrent writers of the same slot fail instead of
// creating two current rows.
func Indexes() []Index {
	return []Index{
		{
			Name: "metadata_current_slot",
			SQL: `CREATE UNIQUE INDEX IF NOT EXISTS metadata_current_slot
  ON metadata (source, id_in_source, COALESCE(parent_row_id, 0), field, place)
  WHERE deleted_at IS NULL`,
		},
		{
			Name: "metadata_entity",
			SQL: `CREATE INDEX IF NOT EXISTS metadata_entity
  ON metadata (source, id_in_source)`,
		},
		{
			Name: "metadata_current_field",
			SQL: `CREATE INDEX IF NOT EXISTS metadata_current_field
  ON metadata (field) WHERE deleted_at IS NULL`,
		},
		{
			Name: "metadata_current_value",
			SQL: `CREATE INDEX IF NOT EXISTS metadata_current_value
  ON metadata USING hash (value) WHERE deleted_at IS NULL`,
		},
		{
			Name: "metadata_current_parent",
			SQL: `CREATE INDEX IF NOT EXISTS metadata_current_parent
  ON metadata (parent_row_id) WHERE deleted_at IS NULL`,
		},
		{
			Name: "source_data_current",
			SQL: `CREATE UNIQUE INDEX IF NOT EXISTS source_data_current
  ON source_data (source, id_in_source) WHERE deleted_at IS NULL`,
		},
	}
}

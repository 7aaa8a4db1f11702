// Package schema provides database models of the versioned field store
// and of the SQLite snapshot export.
package schema

import (
	"time"
)

// SourceData is a version of a raw payload received from a source.
// At most one row per (source, id_in_source) has no DeletedAt.
type SourceData struct {
	// RowID grows with every new version.
	RowID int64 `gorm:"column:row_id;primaryKey;autoIncrement"`

	// Source is the name of the harvested source, for example "crossref".
	Source string `gorm:"type:varchar(100);not null"`

	// IDInSource identifies the record inside its source.
	IDInSource string `gorm:"column:id_in_source;type:varchar(255);not null"`

	// Format is "XML" or "JSON".
	Format string `gorm:"type:varchar(10);not null"`

	// Hash is UUIDv5 of the canonical payload.
	Hash string `gorm:"type:uuid;not null"`

	// Data is the payload as it was received.
	Data []byte `gorm:"type:bytea;not null"`

	AddedAt   time.Time `gorm:"not null"`
	DeletedAt *time.Time

	// ReplacedBy is the row that superseded this one.
	ReplacedBy *int64
}

// TableName of SourceData.
func (SourceData) TableName() string {
	return "source_data"
}

// Metadata is a version of a single metadata value. Children of a value
// point to it with ParentRowID.
type Metadata struct {
	RowID      int64  `gorm:"column:row_id;primaryKey;autoIncrement"`
	Source     string `gorm:"type:varchar(100);not null"`
	IDInSource string `gorm:"column:id_in_source;type:varchar(255);not null"`

	// ParentRowID is empty for top-level values.
	ParentRowID *int64 `gorm:"column:parent_row_id"`

	// Field is a dot-separated name like "dc.title".
	Field string `gorm:"type:varchar(255);not null"`

	// Place orders repeated values of a field, starting from 0.
	Place int `gorm:"not null;default:0"`

	Value string `gorm:"type:text;not null"`

	AddedAt   time.Time `gorm:"not null"`
	DeletedAt *time.Time

	// ReplacedBy is set when a different value took the slot, pruned
	// rows only get DeletedAt.
	ReplacedBy *int64
}

// TableName of Metadata.
func (Metadata) TableName() string {
	return "metadata"
}

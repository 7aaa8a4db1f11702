package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// DDLGenerator defines how snapshot models generate SQLite DDL.
type DDLGenerator interface {
	// TableDDL returns the CREATE TABLE statement for this model.
	TableDDL() string

	// IndexDDL returns CREATE INDEX statements for this model.
	IndexDDL() []string

	// TableName returns the table name for this model.
	TableName() string
}

// SnapshotValue is a current metadata value in a SQLite snapshot.
type SnapshotValue struct {
	RowID       int64  `db:"row_id" ddl:"INTEGER PRIMARY KEY"`
	Source      string `db:"source" ddl:"TEXT NOT NULL"`
	IDInSource  string `db:"id_in_source" ddl:"TEXT NOT NULL"`
	ParentRowID int64  `db:"parent_row_id" ddl:"INTEGER NOT NULL DEFAULT 0"`
	Field       string `db:"field" ddl:"TEXT NOT NULL"`
	Place       int    `db:"place" ddl:"INTEGER NOT NULL"`
	Value       string `db:"value" ddl:"TEXT NOT NULL"`
	AddedAt     string `db:"added_at" ddl:"TEXT NOT NULL"`
}

// SnapshotInfo describes when and how a snapshot was made.
type SnapshotInfo struct {
	Key   string `db:"key" ddl:"TEXT PRIMARY KEY"`
	Value string `db:"value" ddl:"TEXT NOT NULL"`
}

// SnapshotModels returns all snapshot models.
func SnapshotModels() []DDLGenerator {
	return []DDLGenerator{SnapshotValue{}, SnapshotInfo{}}
}

// Columns returns db tags of a model in field order.
func Columns(model any) []string {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	var res []string
	for i := range t.NumField() {
		if tag := t.Field(i).Tag.Get("db"); tag != "" {
			res = append(res, tag)
		}
	}
	return res
}

// generateDDL creates a CREATE TABLE statement from struct tags.
func generateDDL(model any, tableName string) string {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	var columns []string
	for i := range t.NumField() {
		field := t.Field(i)
		dbTag := field.Tag.Get("db")
		ddlTag := field.Tag.Get("ddl")

		if dbTag != "" && ddlTag != "" {
			columns = append(columns, fmt.Sprintf("    %s %s", dbTag, ddlTag))
		}
	}

	return fmt.Sprintf("CREATE TABLE %s (\n%s\n);",
		tableName,
		strings.Join(columns, ",\n"))
}

func (sv SnapshotValue) TableDDL() string {
	return generateDDL(sv, sv.TableName())
}

func (sv SnapshotValue) IndexDDL() []string {
	return []string{
		"CREATE INDEX idx_metadata_entity ON metadata(source, id_in_source);",
		"CREATE INDEX idx_metadata_field_value ON metadata(field, value);",
		"CREATE INDEX idx_metadata_parent ON metadata(parent_row_id);",
	}
}

func (sv SnapshotValue) TableName() string {
	return "metadata"
}

func (si SnapshotInfo) TableDDL() string {
	return generateDDL(si, si.TableName())
}

func (si SnapshotInfo) IndexDDL() []string {
	return nil
}

func (si SnapshotInfo) TableName() string {
	return "snapshot_info"
}

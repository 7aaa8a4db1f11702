package schema_test

import (
	"strings"
	"testing"

	"github.com/gnames/irts/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableNames(t *testing.T) {
	assert.Equal(t, "source_data", schema.SourceData{}.TableName())
	assert.Equal(t, "metadata", schema.Metadata{}.TableName())
	assert.Len(t, schema.AllModels(), 2)
}

// TestIndexes checks that slots and payloads are unique among current
// rows only.
func TestIndexes(t *testing.T) {
	idx := schema.Indexes()
	require.NotEmpty(t, idx)

	byName := make(map[string]string)
	for _, v := range idx {
		assert.Contains(t, v.SQL, v.Name)
		assert.Contains(t, v.SQL, "IF NOT EXISTS")
		byName[v.Name] = v.SQL
	}

	slot := byName["metadata_current_slot"]
	assert.Contains(t, slot, "UNIQUE")
	assert.Contains(t, slot, "COALESCE(parent_row_id, 0)")
	assert.Contains(t, slot, "WHERE deleted_at IS NULL")

	payload := byName["source_data_current"]
	assert.Contains(t, payload, "UNIQUE")
	assert.Contains(t, payload, "WHERE deleted_at IS NULL")
}

func TestSnapshotValueDDL(t *testing.T) {
	sv := schema.SnapshotValue{}
	ddl := sv.TableDDL()

	assert.True(t, strings.HasPrefix(ddl, "CREATE TABLE metadata ("))
	assert.Contains(t, ddl, "row_id INTEGER PRIMARY KEY")
	assert.Contains(t, ddl, "field TEXT NOT NULL")
	assert.Contains(t, ddl, "parent_row_id INTEGER NOT NULL DEFAULT 0")

	indexes := strings.Join(sv.IndexDDL(), "\n")
	assert.Contains(t, indexes, "metadata(source, id_in_source)")
	assert.Contains(t, indexes, "metadata(field, value)")
}

func TestSnapshotInfoDDL(t *testing.T) {
	si := schema.SnapshotInfo{}
	assert.Equal(t,
		"CREATE TABLE snapshot_info (\n    key TEXT PRIMARY KEY,\n    value TEXT NOT NULL\n);",
		si.TableDDL())
	assert.Empty(t, si.IndexDDL())
}

func TestColumns(t *testing.T) {
	assert.Equal(t,
		[]string{"row_id", "source", "id_in_source", "parent_row_id",
			"field", "place", "value", "added_at"},
		schema.Columns(schema.SnapshotValue{}))
	assert.Equal(t, []string{"key", "value"},
		schema.Columns(&schema.SnapshotInfo{}))
	assert.Len(t, schema.SnapshotModels(), 2)
}

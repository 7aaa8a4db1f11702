package errcode

import (
	"github.com/gnames/gn"
)

const (
	UnknownError gn.ErrorCode = iota

	// File System errors
	CreateDirError
	CopyFileError
	ReadFileError

	// Logging errors
	CreateLogFileError

	// Database errors
	DBConnectionError
	DBTableCheckError
	DBEmptyDatabaseError
	DBNotConnectedError
	DBTableExistsCheckError
	DBQueryTablesError
	DBScanTableError
	DBDropTableError

	// Schema errors
	SchemaGORMConnectionError
	SchemaCreateError
	SchemaMigrateError
	SchemaIndexError

	// Mapping errors
	MappingsReadError
	MappingsParseError

	// Record errors
	RecordReadError
	RecordParseError

	// Harvest errors
	HarvestUnknownSourceError
	HarvestUnknownModeError
	HarvestRequestError
	HarvestResponseError
	HarvestParseError
	HarvestItemError
	HarvestAllSourcesFailedError

	// Store errors
	StoreQueryError

	// Export errors
	ExportOpenError
	ExportWriteError

	// Metrics errors
	MetricsWriteError
)

// Package config provides configuration management for irts.
//
// This package has no I/O dependencies (no file operations, no network calls).
// Validation functions may write user-facing warnings via gn.Warn().
//
// # Configuration Sources
//
// Precedence (highest to lowest): CLI flags > env vars > config.yaml > defaults
//
// # Design Principles
//
// - Default config (from New()) is always valid - no validation needed
// - All mutations go through Option functions - the only way to modify Config
// - Invalid options are rejected with gn.Warn() - config remains in valid state
// - ToOptions() converts persistent fields (those in config.yaml)
// - Environment variables match ToOptions() fields exactly
//
// # Persistent vs Runtime Fields
//
// Persistent fields (in ToOptions, config.yaml, and env vars):
//   - Database: host, port, user, password, database, ssl_mode
//   - Log: level, format, destination
//   - Harvest: arxiv_api, arxiv_delay, crossref_api, crossref_delay,
//     email, institution_abbrev, institution_city, skip_names,
//     metrics_file
//   - General: jobs_number
//
// Runtime-only fields (CLI flags only):
//   - Harvest.Sources, Harvest.Mode (per-command)
//   - HomeDir (set once at startup)
//
// # Environment Variables
//
// Use IRTS_ prefix with underscores for nesting:
//
//	IRTS_DATABASE_HOST=localhost
//	IRTS_DATABASE_PORT=5432
//	IRTS_LOG_LEVEL=info
//	IRTS_HARVEST_EMAIL=library@example.edu
//	IRTS_JOBS_NUMBER=2
package config

import (
	"runtime"
)

// Config represents the complete irts configuration.
type Config struct {
	// Database contains PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`

	// Harvest contains settings of external sources and harvest runs.
	Harvest HarvestConfig `mapstructure:"harvest" yaml:"harvest"`

	Log LogConfig `mapstructure:"log" yaml:"log"`

	// JobsNumber is the number of sources harvested concurrently.
	// Items of one source are always processed sequentially.
	JobsNumber int `mapstructure:"jobs_number" yaml:"jobs_number"`

	// HomeDir determines where config, cache and logs directories reside.
	// It must be set by CLI during init, there is no default value for it.
	HomeDir string
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname or IP address.
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the PostgreSQL server port number.
	Port int `mapstructure:"port" yaml:"port"`

	// User is the PostgreSQL database username.
	User string `mapstructure:"user" yaml:"user"`

	// Password is the PostgreSQL database password.
	Password string `mapstructure:"password" yaml:"password"`

	// Database is the PostgreSQL database name to connect to.
	Database string `mapstructure:"database" yaml:"database"`

	// SSLMode specifies the SSL connection mode.
	// Valid values: "disable", "require", "verify-ca", "verify-full"
	SSLMode string `mapstructure:"ssl_mode" yaml:"ssl_mode"`
}

// HarvestConfig contains settings of external sources.
type HarvestConfig struct {
	// ArxivAPI is the base URL of the arXiv query API.
	ArxivAPI string `mapstructure:"arxiv_api" yaml:"arxiv_api"`

	// ArxivDelay is the pause between arXiv requests in seconds.
	ArxivDelay int `mapstructure:"arxiv_delay" yaml:"arxiv_delay"`

	// CrossrefAPI is the base URL of the Crossref REST API.
	CrossrefAPI string `mapstructure:"crossref_api" yaml:"crossref_api"`

	// CrossrefDelay is the pause between Crossref requests in seconds.
	CrossrefDelay int `mapstructure:"crossref_delay" yaml:"crossref_delay"`

	// Email is sent to APIs that ask for a contact (Crossref "mailto").
	Email string `mapstructure:"email" yaml:"email"`

	// InstitutionAbbrev is used in affiliation queries.
	InstitutionAbbrev string `mapstructure:"institution_abbrev" yaml:"institution_abbrev"`

	// InstitutionCity narrows affiliation queries.
	InstitutionCity string `mapstructure:"institution_city" yaml:"institution_city"`

	// SkipNames are author names too common to search by name.
	SkipNames []string `mapstructure:"skip_names" yaml:"skip_names"`

	// MetricsFile, when set, receives Prometheus text metrics after
	// every harvest run.
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file"`

	// Sources limits a harvest run to the given sources.
	// Empty slice means all known sources.
	Sources []string `mapstructure:"-" yaml:"-"`

	// Mode is one of "new", "reharvest", "reprocess".
	Mode string `mapstructure:"-" yaml:"-"`
}

// LogConfig provides typical settings for application logs.
type LogConfig struct {
	// Format can be 'json', 'text' or 'tint' (user-facing and colored).
	Format string `mapstructure:"format"      yaml:"format"`
	// Level of logging -- 'error', 'warn', 'info', 'debug'
	Level string `mapstructure:"level"       yaml:"level"`
	// Destination can be a log file (to default place), STDERR or STDOUT
	Destination string `mapstructure:"destination" yaml:"destination"`
}

// New creates a Config with sensible default values.
// The returned config is always valid and ready to use.
// Default values can be overridden using Option functions via Update().
func New() *Config {
	res := &Config{
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			Database: "irts",
			SSLMode:  "disable",
		},
		Harvest: HarvestConfig{
			ArxivAPI:      "https://export.arxiv.org/api/query",
			ArxivDelay:    3,
			CrossrefAPI:   "https://api.crossref.org",
			CrossrefDelay: 1,
			Mode:          "new",
		},
		Log: LogConfig{
			Format: "json",
			Level:  "info",
			// for now file is rewritten every time the log starts
			Destination: "file",
		},
		JobsNumber: min(runtime.NumCPU(), 2),
	}

	return res
}

package config

import (
	"path/filepath"
)

var (
	// AppName is used in generating file system paths.
	AppName = "irts"

	// TrackingSource is the source name of the cross-source identity
	// records.
	TrackingSource = "irts"

	// RepositorySource is the source name of records already present
	// in the institutional repository.
	RepositorySource = "repository"
)

// ConfigDir returns the directory path for configuration files.
// Returns ~/.config/irts by default.
func ConfigDir(homeDir string) string {
	return filepath.Join(homeDir, ".config", AppName)
}

// CacheDir returns the directory path for cache files.
// Returns ~/.cache/irts by default.
func CacheDir(homeDir string) string {
	return filepath.Join(homeDir, ".cache", AppName)
}

// LogDir returns the directory path for log files.
// Returns ~/.local/share/irts/logs by default.
func LogDir(homeDir string) string {
	return filepath.Join(homeDir, ".local", "share", AppName, "logs")
}

// ConfigFilePath returns the full path to the config.yaml file.
// Returns ~/.config/irts/config.yaml by default.
func ConfigFilePath(homeDir string) string {
	return filepath.Join(ConfigDir(homeDir), "config.yaml")
}

// MappingsFilePath returns the full path to the mappings.yaml file.
// Returns ~/.config/irts/mappings.yaml by default.
func MappingsFilePath(homeDir string) string {
	return filepath.Join(ConfigDir(homeDir), "mappings.yaml")
}

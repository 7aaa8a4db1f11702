// Package iofs prepares directories and default files used by irts.
package iofs

import (
	_ "embed"
	"os"

	"github.com/gnames/irts/pkg/config"
	"github.com/gnames/irts/pkg/record"
)

//go:embed config.yaml
var ConfigYAML string

//go:embed mappings.yaml
var MappingsYAML string

func EnsureDirs(homeDir string) error {
	dirs := []string{
		config.ConfigDir(homeDir),
		config.CacheDir(homeDir),
		config.LogDir(homeDir),
	}
	for _, v := range dirs {
		if err := touchDir(v); err != nil {
			return err
		}
	}
	return nil
}

func touchDir(dir string) error {
	info, err := os.Stat(dir)
	if err == nil && info.IsDir() {
		return nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return CreateDirError(dir, err)
	}

	return nil
}

// EnsureConfigFile writes the default config.yaml unless it exists.
func EnsureConfigFile(homeDir string) error {
	return ensureFile(config.ConfigFilePath(homeDir), ConfigYAML)
}

// EnsureMappingsFile writes the default mappings.yaml unless it exists.
func EnsureMappingsFile(homeDir string) error {
	return ensureFile(config.MappingsFilePath(homeDir), MappingsYAML)
}

func ensureFile(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return CopyFileError(path, err)
	}

	return nil
}

// ReadRecord reads a metadata record from a JSON file.
func ReadRecord(path string) (*record.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, RecordReadError(path, err)
	}
	res := record.New()
	if err = res.UnmarshalJSON(data); err != nil {
		return nil, RecordParseError(path, err)
	}
	return res, nil
}

package iofs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gnames/gn"
	"github.com/gnames/irts/pkg/errcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEnsureDirs_CreatesDirectories verifies all required
// directories are created.
func TestEnsureDirs_CreatesDirectories(t *testing.T) {
	// Create temporary test directory
	tmpDir := t.TempDir()

	err := EnsureDirs(tmpDir)
	require.NoError(t, err)

	// Verify config directory exists
	configDir := filepath.Join(tmpDir, ".config", "irts")
	info, err := os.Stat(configDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir(),
		"Config directory should exist")

	// Verify cache directory exists
	cacheDir := filepath.Join(tmpDir, ".cache", "irts")
	info, err = os.Stat(cacheDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir(),
		"Cache directory should exist")

	// Verify log directory exists
	logDir := filepath.Join(tmpDir, ".local", "share", "irts",
		"logs")
	info, err = os.Stat(logDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir(),
		"Log directory should exist")
}

// TestEnsureDirs_Idempotent verifies multiple calls work.
func TestEnsureDirs_Idempotent(t *testing.T) {
	tmpDir := t.TempDir()

	// First call
	err := EnsureDirs(tmpDir)
	require.NoError(t, err)

	// Second call should succeed
	err = EnsureDirs(tmpDir)
	require.NoError(t, err)

	// Third call should still succeed
	err = EnsureDirs(tmpDir)
	require.NoError(t, err)
}

// TestEnsureDirs_PermissionsCorrect verifies directory
// permissions are set correctly.
func TestEnsureDirs_PermissionsCorrect(t *testing.T) {
	tmpDir := t.TempDir()

	err := EnsureDirs(tmpDir)
	require.NoError(t, err)

	configDir := filepath.Join(tmpDir, ".config", "irts")
	info, err := os.Stat(configDir)
	require.NoError(t, err)

	// Check permissions (0755)
	mode := info.Mode().Perm()
	assert.Equal(t, os.FileMode(0755), mode,
		"Directory should have 0755 permissions")
}

// TestTouchDir_CreatesNewDirectory verifies new directory
// creation.
func TestTouchDir_CreatesNewDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	newDir := filepath.Join(tmpDir, "test", "subdir")

	err := touchDir(newDir)
	require.NoError(t, err)

	info, err := os.Stat(newDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

// TestTouchDir_ExistingDirectory verifies existing directory
// is not modified.
func TestTouchDir_ExistingDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	existingDir := filepath.Join(tmpDir, "existing")

	// Create directory first
	err := os.MkdirAll(existingDir, 0755)
	require.NoError(t, err)

	// Get original info
	originalInfo, err := os.Stat(existingDir)
	require.NoError(t, err)

	// Call touchDir on existing directory
	err = touchDir(existingDir)
	require.NoError(t, err)

	// Verify directory still exists and unchanged
	newInfo, err := os.Stat(existingDir)
	require.NoError(t, err)
	assert.True(t, newInfo.IsDir())
	assert.Equal(t, originalInfo.Mode(), newInfo.Mode())
}

// TestEnsureConfigFile_CreatesFile verifies config file
// is created.
func TestEnsureConfigFile_CreatesFile(t *testing.T) {
	tmpDir := t.TempDir()

	// First ensure directories exist
	err := EnsureDirs(tmpDir)
	require.NoError(t, err)

	// Create config file
	err = EnsureConfigFile(tmpDir)
	require.NoError(t, err)

	// Verify file exists
	configPath := filepath.Join(tmpDir, ".config", "irts",
		"config.yaml")
	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.False(t, info.IsDir(),
		"Config file should be a file, not directory")

	// Verify file is not empty
	assert.Greater(t, info.Size(), int64(0),
		"Config file should not be empty")
}

// TestEnsureConfigFile_ContentCorrect verifies config file
// content matches embedded template.
func TestEnsureConfigFile_ContentCorrect(t *testing.T) {
	tmpDir := t.TempDir()

	err := EnsureDirs(tmpDir)
	require.NoError(t, err)

	err = EnsureConfigFile(tmpDir)
	require.NoError(t, err)

	configPath := filepath.Join(tmpDir, ".config", "irts",
		"config.yaml")
	content, err := os.ReadFile(configPath)
	require.NoError(t, err)

	// Verify content matches embedded ConfigYAML
	assert.Equal(t, ConfigYAML, string(content),
		"Config file content should match embedded template")
}

// TestEnsureConfigFile_Idempotent verifies existing file
// is not overwritten.
func TestEnsureConfigFile_Idempotent(t *testing.T) {
	tmpDir := t.TempDir()

	err := EnsureDirs(tmpDir)
	require.NoError(t, err)

	// Create config file
	err = EnsureConfigFile(tmpDir)
	require.NoError(t, err)

	configPath := filepath.Join(tmpDir, ".config", "irts",
		"config.yaml")

	// Modify the file
	customContent := "# Custom config\ndatabase:\n  host: myhost"
	err = os.WriteFile(configPath, []byte(customContent),
		0644)
	require.NoError(t, err)

	// Call EnsureConfigFile again
	err = EnsureConfigFile(tmpDir)
	require.NoError(t, err)

	// Verify file still has custom content
	content, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Equal(t, customContent, string(content),
		"Existing config file should not be overwritten")
}

// TestEnsureConfigFile_PermissionsCorrect verifies file
// permissions are set correctly.
func TestEnsureConfigFile_PermissionsCorrect(t *testing.T) {
	tmpDir := t.TempDir()

	err := EnsureDirs(tmpDir)
	require.NoError(t, err)

	err = EnsureConfigFile(tmpDir)
	require.NoError(t, err)

	configPath := filepath.Join(tmpDir, ".config", "irts",
		"config.yaml")
	info, err := os.Stat(configPath)
	require.NoError(t, err)

	// Check permissions (0644)
	mode := info.Mode().Perm()
	assert.Equal(t, os.FileMode(0644), mode,
		"Config file should have 0644 permissions")
}

// TestConfigYAML_Embedded verifies embedded config is
// not empty.
func TestConfigYAML_Embedded(t *testing.T) {
	assert.NotEmpty(t, ConfigYAML,
		"Embedded ConfigYAML should not be empty")
	assert.Contains(t, ConfigYAML, "database",
		"ConfigYAML should contain database section")
	assert.Contains(t, ConfigYAML, "log",
		"ConfigYAML should contain log section")
}

// TestEnsureMappingsFile_CreatesFile verifies mappings file
// is created.
func TestEnsureMappingsFile_CreatesFile(t *testing.T) {
	tmpDir := t.TempDir()

	// First ensure directories exist
	err := EnsureDirs(tmpDir)
	require.NoError(t, err)

	// Create mappings file
	err = EnsureMappingsFile(tmpDir)
	require.NoError(t, err)

	// Verify file exists
	mappingsPath := filepath.Join(tmpDir, ".config", "irts",
		"mappings.yaml")
	info, err := os.Stat(mappingsPath)
	require.NoError(t, err)
	assert.False(t, info.IsDir(),
		"Mappings file should be a file, not directory")

	// Verify file is not empty
	assert.Greater(t, info.Size(), int64(0),
		"Mappings file should not be empty")
}

// TestEnsureMappingsFile_ContentCorrect verifies sources
// file content matches embedded template.
func TestEnsureMappingsFile_ContentCorrect(t *testing.T) {
	tmpDir := t.TempDir()

	err := EnsureDirs(tmpDir)
	require.NoError(t, err)

	err = EnsureMappingsFile(tmpDir)
	require.NoError(t, err)

	mappingsPath := filepath.Join(tmpDir, ".config", "irts",
		"mappings.yaml")
	content, err := os.ReadFile(mappingsPath)
	require.NoError(t, err)

	// Verify content matches embedded MappingsYAML
	assert.Equal(t, MappingsYAML, string(content),
		"Mappings file content should match embedded template")
}

// TestEnsureMappingsFile_Idempotent verifies existing file
// is not overwritten.
func TestEnsureMappingsFile_Idempotent(t *testing.T) {
	tmpDir := t.TempDir()

	err := EnsureDirs(tmpDir)
	require.NoError(t, err)

	// Create mappings file
	err = EnsureMappingsFile(tmpDir)
	require.NoError(t, err)

	mappingsPath := filepath.Join(tmpDir, ".config", "irts",
		"mappings.yaml")

	// Modify the file
	customContent := "# Custom mappings\nsources: {}"
	err = os.WriteFile(mappingsPath, []byte(customContent),
		0644)
	require.NoError(t, err)

	// Call EnsureMappingsFile again
	err = EnsureMappingsFile(tmpDir)
	require.NoError(t, err)

	// Verify file still has custom content
	content, err := os.ReadFile(mappingsPath)
	require.NoError(t, err)
	assert.Equal(t, customContent, string(content),
		"Existing mappings file should not be overwritten")
}

// TestEnsureMappingsFile_PermissionsCorrect verifies file
// permissions are set correctly.
func TestEnsureMappingsFile_PermissionsCorrect(t *testing.T) {
	tmpDir := t.TempDir()

	err := EnsureDirs(tmpDir)
	require.NoError(t, err)

	err = EnsureMappingsFile(tmpDir)
	require.NoError(t, err)

	mappingsPath := filepath.Join(tmpDir, ".config", "irts",
		"mappings.yaml")
	info, err := os.Stat(mappingsPath)
	require.NoError(t, err)

	// Check permissions (0644)
	mode := info.Mode().Perm()
	assert.Equal(t, os.FileMode(0644), mode,
		"Mappings file should have 0644 permissions")
}

// TestMappingsYAML_Embedded verifies embedded mappings are
// not empty.
func TestMappingsYAML_Embedded(t *testing.T) {
	assert.NotEmpty(t, MappingsYAML,
		"Embedded MappingsYAML should not be empty")
	assert.Contains(t, MappingsYAML, "arxiv:",
		"MappingsYAML should contain arxiv rules")
	assert.Contains(t, MappingsYAML, "crossref:",
		"MappingsYAML should contain crossref rules")
	assert.Contains(t, MappingsYAML, "paths:",
		"MappingsYAML should contain JSON path rules")
}

func TestReadRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rec.json")
	data := `{"dc.title": "Title",
	"dc.contributor.author": [{"value": "Doe, Jane",
	  "children": {"dc.identifier.orcid": "0000-0001"}}]}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	rec, err := ReadRecord(path)
	require.NoError(t, err)
	assert.Equal(t, "Title", rec.First("dc.title"))
	authors := rec.Entries("dc.contributor.author")
	require.Len(t, authors, 1)
	assert.Equal(t, "0000-0001",
		authors[0].Children.First("dc.identifier.orcid"))

	tests := []struct {
		msg  string
		path string
		data string
		code gn.ErrorCode
	}{
		{"missing", filepath.Join(dir, "none.json"), "",
			errcode.RecordReadError},
		{"array", filepath.Join(dir, "arr.json"), `["a"]`,
			errcode.RecordParseError},
	}
	for _, v := range tests {
		t.Run(v.msg, func(t *testing.T) {
			if v.data != "" {
				require.NoError(t, os.WriteFile(v.path, []byte(v.data), 0644))
			}
			_, err := ReadRecord(v.path)
			require.Error(t, err)
			gnErr, ok := err.(*gn.Error)
			require.True(t, ok)
			assert.Equal(t, v.code, gnErr.Code)
		})
	}
}

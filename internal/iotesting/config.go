// Package iotesting provides shared utilities for integration tests.
package iotesting

import (
	"os"
	"strconv"
	"testing"

	"github.com/gnames/irts/pkg/config"
)

// TestDatabaseName is the database used by all integration tests.
// Tests never run against the database from config.yaml.
const TestDatabaseName = "irts_test"

// GetTestConfig returns default configuration with database settings
// taken from IRTS_DATABASE_* environment variables. The database name is
// always TestDatabaseName.
func GetTestConfig() *config.Config {
	cfg := config.New()
	var opts []config.Option
	if s := os.Getenv("IRTS_DATABASE_HOST"); s != "" {
		opts = append(opts, config.OptDatabaseHost(s))
	}
	if s := os.Getenv("IRTS_DATABASE_PORT"); s != "" {
		if i, err := strconv.Atoi(s); err == nil {
			opts = append(opts, config.OptDatabasePort(i))
		}
	}
	if s := os.Getenv("IRTS_DATABASE_USER"); s != "" {
		opts = append(opts, config.OptDatabaseUser(s))
	}
	if s := os.Getenv("IRTS_DATABASE_PASSWORD"); s != "" {
		opts = append(opts, config.OptDatabasePassword(s))
	}
	opts = append(opts, config.OptDatabaseDatabase(TestDatabaseName))
	cfg.Update(opts)
	return cfg
}

// SkipIfShort skips integration tests in -short mode.
//
//	func TestSomething(t *testing.T) {
//	    iotesting.SkipIfShort(t)
//	    cfg := iotesting.GetTestConfig()
//	    ...
//	}
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}

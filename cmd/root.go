/*
Copyright © 2025 Dmitry Mozzherin <dmozzherin@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gnames/gn"
	"github.com/gnames/irts/internal/iofs"
	"github.com/gnames/irts/internal/iologger"
	irts "github.com/gnames/irts/pkg"
	"github.com/gnames/irts/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	homeDir string
	opts    []config.Option
	cfg     *config.Config
)

// getRootCmd returns the base command with all subcommands attached.
func getRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Version: fmt.Sprintf("version: %s\nbuild:   %s", irts.Version, irts.Build),
		Use:     "irts",
		Short:   "IRTS harvests publication metadata for repository tracking",
		Long: `IRTS collects metadata of publications by institution members from
external sources and keeps it in a versioned PostgreSQL store.

Features:
  - Harvesting: arXiv and Crossref connectors
  - Versioning: every change of a metadata value is kept as history
  - Tracking: new items get an identity of the form {source}_{n}
  - Snapshots: current metadata exported to SQLite

Configuration precedence (highest to lowest):
  1. CLI flags
  2. Environment variables (IRTS_*)
  3. Config file (~/.config/irts/config.yaml)
  4. Built-in defaults

Environment Variables:
  Nested fields use underscores (database.host → IRTS_DATABASE_HOST).

  Examples:
    IRTS_DATABASE_HOST        PostgreSQL host
    IRTS_DATABASE_PASSWORD    PostgreSQL password
    IRTS_HARVEST_EMAIL        contact email sent to Crossref
    IRTS_LOG_LEVEL            log level (debug/info/warn/error)`,
		PersistentPreRunE: bootstrap,
		RunE:              runRoot,
		SilenceErrors:     true,
		SilenceUsage:      true,
	}

	// Remove the automatic "irts version" prefix
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	// Override version flag to use -V (consistent with other gn projects)
	rootCmd.Flags().BoolP("version", "V", false, "version for irts")

	rootCmd.AddCommand(
		getCreateCmd(),
		getMigrateCmd(),
		getHarvestCmd(),
		getIngestCmd(),
		getShowCmd(),
		getExportCmd(),
	)
	return rootCmd
}

func bootstrap(cmd *cobra.Command, args []string) error {
	var err error
	homeDir, err = os.UserHomeDir()
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	if err = iofs.EnsureDirs(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	// Initialize logging with hardcoded defaults
	// Will be reconfigured later with user's config settings
	defaultLog := config.LogConfig{
		Format:      "json",
		Level:       "info",
		Destination: "file",
	}
	if err = iologger.Init(config.LogDir(homeDir), defaultLog, false); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	if err = iofs.EnsureConfigFile(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}
	if err = iofs.EnsureMappingsFile(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	var cfgViper *config.Config
	if cfgViper, err = initConfig(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	cfg = config.New()
	opts = cfgViper.ToOptions()
	cfg.Update(opts)

	// Set HomeDir after config is loaded
	cfg.Update([]config.Option{config.OptHomeDir(homeDir)})

	// Reconfigure logging with user's settings, the log of the bootstrap
	// stage is kept.
	if err = iologger.Init(config.LogDir(cfg.HomeDir), cfg.Log, true); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	slog.Info("Configuration loaded",
		"config_file", config.ConfigFilePath(homeDir),
		"command", cmd.Name(),
	)
	return nil
}

func runRoot(cmd *cobra.Command, args []string) error {
	gn.Info(
		"Configuration files are available at <em>%s</em>",
		config.ConfigDir(homeDir),
	)
	return cmd.Help()
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := getRootCmd().Execute()
	if err != nil {
		os.Exit(1)
	}
}

func initConfig(home string) (*config.Config, error) {
	var err error
	cfgPath := config.ConfigFilePath(home)
	v := viper.New()
	v.SetConfigFile(cfgPath)

	initEnvVars(v)

	if err = v.ReadInConfig(); err != nil {
		return nil, iofs.ReadFileError(cfgPath, err)
	}

	var res config.Config
	if err = v.Unmarshal(&res); err != nil {
		return nil, iofs.ReadFileError(cfgPath, err)
	}

	return &res, nil
}

func initEnvVars(v *viper.Viper) {
	// Set environment variables we want.
	// We set them manually so we can see clearly which env variables are allowed.
	// These match the fields included in config.ToOptions() - i.e., persistent
	// configuration that can be stored in config.yaml.
	v.SetEnvPrefix("IRTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Database configuration
	v.BindEnv("database.host", "IRTS_DATABASE_HOST")
	v.BindEnv("database.port", "IRTS_DATABASE_PORT")
	v.BindEnv("database.user", "IRTS_DATABASE_USER")
	v.BindEnv("database.password", "IRTS_DATABASE_PASSWORD")
	v.BindEnv("database.database", "IRTS_DATABASE_DATABASE")
	v.BindEnv("database.ssl_mode", "IRTS_DATABASE_SSL_MODE")

	// Harvest configuration
	v.BindEnv("harvest.arxiv_api", "IRTS_HARVEST_ARXIV_API")
	v.BindEnv("harvest.arxiv_delay", "IRTS_HARVEST_ARXIV_DELAY")
	v.BindEnv("harvest.crossref_api", "IRTS_HARVEST_CROSSREF_API")
	v.BindEnv("harvest.crossref_delay", "IRTS_HARVEST_CROSSREF_DELAY")
	v.BindEnv("harvest.email", "IRTS_HARVEST_EMAIL")
	v.BindEnv("harvest.institution_abbrev", "IRTS_HARVEST_INSTITUTION_ABBREV")
	v.BindEnv("harvest.institution_city", "IRTS_HARVEST_INSTITUTION_CITY")
	v.BindEnv("harvest.skip_names", "IRTS_HARVEST_SKIP_NAMES")
	v.BindEnv("harvest.metrics_file", "IRTS_HARVEST_METRICS_FILE")

	// Log configuration
	v.BindEnv("log.level", "IRTS_LOG_LEVEL")
	v.BindEnv("log.format", "IRTS_LOG_FORMAT")
	v.BindEnv("log.destination", "IRTS_LOG_DESTINATION")

	// General configuration
	v.BindEnv("jobs_number", "IRTS_JOBS_NUMBER")

	v.AutomaticEnv()
}

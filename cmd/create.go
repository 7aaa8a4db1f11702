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
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gnames/gn"
	"github.com/gnames/irts/internal/iodb"
	"github.com/gnames/irts/internal/ioschema"
	"github.com/gnames/irts/pkg/schema"
	"github.com/spf13/cobra"
)

func getCreateCmd() *cobra.Command {
	var force bool

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create the metadata store schema",
		Long: `Create builds the IRTS store in an empty PostgreSQL database.

Tables:
  source_data  raw payloads, one current row per (source, id_in_source)
  metadata     versioned field values, replaced rows are kept as history

Tables come from GORM AutoMigrate, then partial indexes over current
(not deleted) rows are added:
` + indexList() + `
metadata_current_slot keeps at most one current value per slot, two
writers of the same slot get a conflict instead of duplicate rows.

An existing schema is dropped after confirmation, --force skips it.

Examples:
  irts create
  irts create --force
  irts create -f`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCreate(cmd.Context(), os.Stdin, force)
		},
	}

	createCmd.Flags().BoolVarP(&force, "force", "f",
		false, "drop existing tables without confirmation")

	return createCmd
}

// indexList renders index names one per line for help output.
func indexList() string {
	var sb strings.Builder
	for _, idx := range schema.Indexes() {
		sb.WriteString("  " + idx.Name + "\n")
	}
	return sb.String()
}

// confirmDrop asks for permission to drop existing tables.
func confirmDrop(r io.Reader, w io.Writer) (bool, error) {
	fmt.Fprint(w, "\nDrop ALL existing tables and data? (yes/no): ")
	answer, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "yes", "y":
		return true, nil
	}
	return false, nil
}

func runCreate(ctx context.Context, in io.Reader, force bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	op := iodb.NewPgxOperator()
	if err := op.Connect(ctx, &cfg.Database); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}
	defer op.Close()

	gn.Info("Connected to database: <em>%s@%s:%d/%s</em>",
		cfg.Database.User, cfg.Database.Host,
		cfg.Database.Port, cfg.Database.Database)

	hasTables, err := op.HasTables(ctx)
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	if hasTables {
		if !force {
			gn.Warn("Database already contains tables.")
			ok, err := confirmDrop(in, os.Stdout)
			if err != nil {
				gn.Warn("Failed to read user input")
				return err
			}
			if !ok {
				gn.Info("Aborted. No changes made.")
				return nil
			}
		}
		gn.Info("Dropping existing tables...")
		if err := op.DropAllTables(ctx); err != nil {
			gn.PrintErrorMessage(err)
			return err
		}
	}

	sm := ioschema.NewManager(op)
	gn.Info("Creating source_data and metadata tables...")
	if err := sm.Create(ctx, cfg); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}
	for _, idx := range schema.Indexes() {
		gn.Info("Index <em>%s</em> is ready", idx.Name)
	}

	gn.Info("Store schema is ready, %d indexes over current rows.",
		len(schema.Indexes()))
	gn.Info("Next: 'irts ingest' loads records, 'irts harvest' " +
		"collects them from sources.")
	return nil
}

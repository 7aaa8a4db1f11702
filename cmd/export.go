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
	"context"

	"github.com/gnames/gn"
	"github.com/gnames/irts/internal/ioexport"
	"github.com/spf13/cobra"
)

// getExportCmd returns the export command.
func getExportCmd() *cobra.Command {
	var sources []string

	exportCmd := &cobra.Command{
		Use:   "export FILE.sqlite",
		Short: "Export current metadata to a SQLite snapshot",
		Long: `Export writes current metadata values into a new SQLite file.

The snapshot has a "metadata" table with current values (parent_row_id
is 0 for top-level values) and a "snapshot_info" table describing when
and from which sources it was made. An existing file is replaced.

Examples:
  irts export irts.sqlite
  irts export -s irts,crossref tracked.sqlite`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args[0], sources)
		},
	}

	exportCmd.Flags().StringSliceVarP(&sources, "sources", "s", nil,
		"comma-separated sources to export (default all)")

	return exportCmd
}

func runExport(_ *cobra.Command, path string, sources []string) error {
	ctx := context.Background()
	op, st, err := openStore(ctx)
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}
	defer op.Close()

	count, err := ioexport.New(st).Export(ctx, path, sources)
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}
	gn.Info("Exported <em>%d</em> values to <em>%s</em>", count, path)
	return nil
}

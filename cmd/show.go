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
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gnames/gn"
	"github.com/gnames/irts/pkg/store"
	"github.com/spf13/cobra"
)

// getShowCmd returns the show command.
func getShowCmd() *cobra.Command {
	var source, id string
	var history bool

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print metadata of one record",
		Long: `Show prints current metadata values of a record as a tree, child
values are indented under their parent.

With --history deleted and superseded values are printed too, each
value starts with its row id and deleted values tell when they were
deleted and which row replaced them.

Examples:
  irts show -s irts -i crossref_12
  irts show -s crossref -i 10.1000/xyz123 --history`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, source, id, history)
		},
	}

	entityFlags(showCmd, &source, &id)
	showCmd.Flags().BoolVar(&history, "history", false,
		"include deleted and superseded values")

	return showCmd
}

func runShow(cmd *cobra.Command, source, id string, history bool) error {
	ctx := context.Background()
	op, st, err := openStore(ctx)
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}
	defer op.Close()

	var vals []store.Value
	if history {
		vals, err = st.History(ctx, source, id)
	} else {
		vals, err = st.QueryCurrent(ctx, store.Filter{
			Sources:    []string{source},
			IDInSource: []string{id},
		})
	}
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	if len(vals) == 0 {
		gn.Warn("No metadata for <em>%s %s</em>", source, id)
		return nil
	}
	renderTree(cmd.OutOrStdout(), vals, history)
	return nil
}

// renderTree prints values as a tree in row order. Values whose parent
// is not in vals are printed at the top level.
func renderTree(w io.Writer, vals []store.Value, history bool) {
	known := make(map[store.RowID]struct{}, len(vals))
	for _, v := range vals {
		known[v.RowID] = struct{}{}
	}
	children := make(map[store.RowID][]store.Value)
	var roots []store.Value
	for _, v := range vals {
		if _, ok := known[v.Parent]; ok && v.Parent != 0 {
			children[v.Parent] = append(children[v.Parent], v)
			continue
		}
		roots = append(roots, v)
	}

	var walk func(vs []store.Value, depth int)
	walk = func(vs []store.Value, depth int) {
		for _, v := range vs {
			fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), valueLine(v, history))
			walk(children[v.RowID], depth+1)
		}
	}
	walk(roots, 0)
}

func valueLine(v store.Value, history bool) string {
	res := fmt.Sprintf("%s[%d]: %s", v.Field, v.Place, v.Value)
	if !history {
		return res
	}
	res = fmt.Sprintf("#%d %s", v.RowID, res)
	if v.DeletedAt == nil {
		return res
	}
	deleted := v.DeletedAt.UTC().Format(time.DateTime)
	if v.ReplacedBy == 0 {
		return fmt.Sprintf("%s (deleted %s)", res, deleted)
	}
	return fmt.Sprintf("%s (deleted %s, replaced by #%d)", res, deleted, v.ReplacedBy)
}

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
	"strings"

	"github.com/gnames/gn"
	"github.com/gnames/irts/internal/iofs"
	"github.com/gnames/irts/internal/ioharvest"
	"github.com/gnames/irts/pkg/field"
	"github.com/gnames/irts/pkg/identity"
	"github.com/gnames/irts/pkg/reconcile"
	"github.com/gnames/irts/pkg/store"
	"github.com/spf13/cobra"
)

type ingestFlags struct {
	source   string
	id       string
	complete bool
	admit    string
	reason   string
}

// getIngestCmd returns the ingest command.
func getIngestCmd() *cobra.Command {
	var f ingestFlags

	ingestCmd := &cobra.Command{
		Use:   "ingest FILE.json",
		Short: "Reconcile a JSON record into the metadata store",
		Long: `Ingest reads one record from a JSON file and reconciles it with the
current metadata of the given source and id.

A record maps field names to values. A value is a string, an object
with "value" and "children", or an array of those:

  {
    "dc.title": "Some title",
    "dc.contributor.author": [
      {"value": "Doe, Jane",
       "children": {"dc.identifier.orcid": "0000-0001-2345-6789"}}
    ]
  }

With --complete fields and places missing from the record are deleted.
With --admit the item gets a tracking identity unless it is tracked
already, the flag value is the field holding the id of the item.

Faculty and repository records are loaded this way, for example
under sources "local" and "repository".

Examples:
  irts ingest -s local -i jdoe person.json --complete
  irts ingest -s repository -i 10754/1 item.json --complete
  irts ingest -s crossref -i 10.1000/x work.json \
    --admit dc.identifier.doi --reason "Added by hand"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, args[0], f)
		},
	}

	entityFlags(ingestCmd, &f.source, &f.id)
	ingestCmd.Flags().BoolVarP(&f.complete, "complete", "c", false,
		"delete fields and places absent from the record")
	ingestCmd.Flags().StringVarP(&f.admit, "admit", "a", "",
		"admit the item using the given id field")
	ingestCmd.Flags().StringVarP(&f.reason, "reason", "r", "",
		"harvest basis stored with a new identity")

	return ingestCmd
}

func runIngest(cmd *cobra.Command, path string, f ingestFlags) error {
	ctx := context.Background()

	rec, err := iofs.ReadRecord(path)
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	var idField field.Field
	if f.admit != "" {
		if idField, err = field.Parse(f.admit); err != nil {
			gn.PrintErrorMessage(err)
			return err
		}
	}

	op, st, err := openStore(ctx)
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}
	defer op.Close()

	reg := field.NewRegistry(ioharvest.Sources...)
	reg.Register(f.source)
	eng := reconcile.New(reg)

	sc := store.Scope{Source: f.source, IDInSource: f.id}
	var tr reconcile.Trace
	err = st.Atomic(ctx, "item:"+f.source+":"+f.id,
		func(ctx context.Context, tx store.Store) error {
			var err error
			tr, err = eng.Reconcile(ctx, tx, sc, rec,
				reconcile.Complete(f.complete))
			return err
		})
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	out := cmd.OutOrStdout()
	for _, v := range tr.Report() {
		fmt.Fprintln(out, v)
	}
	gn.Info("New: <em>%d</em>, updated: <em>%d</em>, unchanged: <em>%d</em>, deleted: <em>%d</em>",
		tr.Count(store.New), tr.Count(store.Updated),
		tr.Count(store.Unchanged), tr.Pruned)

	if f.admit == "" {
		return nil
	}

	res, err := identity.New(eng).Admit(ctx, st, identity.Request{
		Source:     f.source,
		IDInSource: f.id,
		IDField:    idField,
		Reason:     f.reason,
	})
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}
	if len(res.Report) > 0 {
		fmt.Fprintln(out, strings.Join(res.Report, "\n"))
	}
	if res.Status == identity.Admitted {
		gn.Info("Admitted as <em>%s</em>", res.Identity)
	} else {
		gn.Info("Already tracked as <em>%s</em> (%s)", res.MatchedID, res.MatchedBy)
	}
	return nil
}

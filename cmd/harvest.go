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
	"os"
	"os/signal"
	"strings"

	"github.com/gnames/gn"
	"github.com/gnames/irts/internal/ioharvest"
	"github.com/gnames/irts/internal/iomapper"
	"github.com/gnames/irts/internal/iometrics"
	"github.com/gnames/irts/pkg/config"
	"github.com/gnames/irts/pkg/field"
	"github.com/gnames/irts/pkg/harvest"
	"github.com/gnames/irts/pkg/identity"
	"github.com/gnames/irts/pkg/mapper"
	"github.com/gnames/irts/pkg/reconcile"
	"github.com/spf13/cobra"
)

// getHarvestCmd returns the harvest command.
func getHarvestCmd() *cobra.Command {
	var sources []string
	var mode string
	var quiet bool

	harvestCmd := &cobra.Command{
		Use:   "harvest",
		Short: "Harvest metadata from external sources",
		Long: `Harvest collects metadata from arXiv and Crossref.

Every harvested item goes through three steps:
  1. Raw payload is stored if it differs from the current one
  2. Record is reconciled with current metadata of the item
  3. Items not tracked yet receive a new identity {source}_{n}

Modes:
  new        discover items that were not harvested yet (default)
  reharvest  fetch again items known to the repository
  reprocess  rebuild records from stored payloads, no network access

Sources are harvested concurrently (jobs_number in config), items of
one source are processed in order.

Examples:
  irts harvest
  irts harvest -s crossref
  irts harvest -s arxiv,crossref -m reharvest
  irts harvest -m reprocess -q`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHarvest(cmd, sources, mode, quiet)
		},
	}

	harvestCmd.Flags().StringSliceVarP(&sources, "sources", "s", nil,
		"comma-separated sources to harvest (default all)")
	harvestCmd.Flags().StringVarP(&mode, "mode", "m", string(harvest.ModeNew),
		"harvest mode: new, reharvest or reprocess")
	harvestCmd.Flags().BoolVarP(&quiet, "quiet", "q", false,
		"do not show progress bar")

	return harvestCmd
}

func runHarvest(
	_ *cobra.Command,
	sources []string,
	modeStr string,
	quiet bool,
) error {
	mode, err := harvest.ParseMode(modeStr)
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}
	for i := range sources {
		sources[i] = strings.ToLower(strings.TrimSpace(sources[i]))
	}
	cfg.Update([]config.Option{
		config.OptHarvestSources(sources),
		config.OptHarvestMode(string(mode)),
	})

	rules, err := iomapper.Load(config.MappingsFilePath(cfg.HomeDir))
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}
	conns, err := ioharvest.New(cfg, mapper.New(rules), sources)
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	op, st, err := openStore(ctx)
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}
	defer op.Close()

	eng := reconcile.New(field.NewRegistry(ioharvest.Sources...))
	metrics := iometrics.New()
	h := harvest.New(st, eng, identity.New(eng), conns,
		harvest.OptJobs(cfg.JobsNumber),
		harvest.OptRecorder(metrics),
		harvest.OptProgress(!quiet),
	)

	gn.Info("Harvesting <em>%d</em> source(s) in <em>%s</em> mode",
		len(conns), mode)
	sums, err := h.Run(ctx, mode)
	for _, v := range sums {
		if v.Source != "" {
			fmt.Println(v.Text())
		}
	}

	if cfg.Harvest.MetricsFile != "" {
		if mErr := metrics.WriteToTextfile(cfg.Harvest.MetricsFile); mErr != nil {
			gn.PrintErrorMessage(mErr)
		}
	}

	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}
	return nil
}

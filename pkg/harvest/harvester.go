package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/gnames/gn"
	"github.com/gnames/gnfmt"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gnames/irts/pkg/identity"
	"github.com/gnames/irts/pkg/reconcile"
	"github.com/gnames/irts/pkg/store"
)

// Harvester drives connectors.
type Harvester struct {
	st       store.Store
	eng      *reconcile.Engine
	ctl      *identity.Controller
	conns    []Connector
	rec      Recorder
	jobs     int
	progress bool
}

// Option configures Harvester.
type Option func(*Harvester)

// OptJobs sets how many sources are harvested at the same time.
func OptJobs(i int) Option {
	return func(h *Harvester) {
		if i > 0 {
			h.jobs = i
		}
	}
}

// OptRecorder sets the receiver of harvest events.
func OptRecorder(r Recorder) Option {
	return func(h *Harvester) {
		if r != nil {
			h.rec = r
		}
	}
}

// OptProgress turns the terminal progress bar on or off.
func OptProgress(b bool) Option {
	return func(h *Harvester) {
		h.progress = b
	}
}

// New creates a Harvester for the given connectors.
func New(
	st store.Store,
	eng *reconcile.Engine,
	ctl *identity.Controller,
	conns []Connector,
	opts ...Option,
) *Harvester {
	res := &Harvester{
		st:    st,
		eng:   eng,
		ctl:   ctl,
		conns: conns,
		rec:   noopRecorder{},
		jobs:  1,
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// Run harvests all connectors in the given mode. A failed source does not
// stop others, an error is returned only when all sources failed or the
// context was cancelled.
func (h *Harvester) Run(ctx context.Context, mode Mode) ([]Summary, error) {
	runID := uuid.New().String()
	startTime := time.Now()
	slog.Info("Starting harvest",
		"run_id", runID, "mode", mode, "sources", len(h.conns))

	var bar *pb.ProgressBar
	if h.progress {
		bar = pb.Full.Start(0)
		bar.Set("prefix", "harvested items: ")
		bar.Set(pb.CleanOnFinish, true)
		defer bar.Finish()
	}

	res := make([]Summary, len(h.conns))
	var mu sync.Mutex
	var failed int

	g := &errgroup.Group{}
	g.SetLimit(h.jobs)
	for i, c := range h.conns {
		g.Go(func() error {
			sum, err := h.harvestSource(ctx, c, mode, runID, bar)
			res[i] = sum
			if err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				slog.Error("Failed to harvest source",
					"source", c.Source(), "run_id", runID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return res, CancelledError(err)
	}

	slog.Info("Harvest complete",
		"run_id", runID,
		"failed", failed,
		"total", len(h.conns),
		"duration", gnfmt.TimeString(time.Since(startTime).Seconds()),
	)
	if failed > 0 && failed == len(h.conns) {
		return res, AllSourcesFailedError(failed)
	}
	if failed > 0 {
		slog.Warn("Some sources failed to harvest",
			"failed", failed, "succeeded", len(h.conns)-failed)
	}
	return res, nil
}

func (h *Harvester) harvestSource(
	ctx context.Context,
	c Connector,
	mode Mode,
	runID string,
	bar *pb.ProgressBar,
) (Summary, error) {
	src := c.Source()
	res := Summary{Source: src, RunID: runID, Mode: mode}
	startTime := time.Now()
	res.log("Starting %s harvest (type: %s)", src, mode)

	yield := func(it Item) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		st := h.processItem(ctx, c, it, &res)
		res.count(st)
		h.rec.ItemDone(src, st)
		if bar != nil {
			bar.Increment()
		}
		return nil
	}

	var err error
	if mode == ModeReprocess {
		err = h.reprocess(ctx, c, yield)
	} else {
		err = c.Fetch(ctx, mode, h.st, yield)
	}

	res.Duration = time.Since(startTime)
	h.rec.SourceDone(src, res.Duration, err)
	if err != nil {
		return res, err
	}

	slog.Info("Source harvested",
		"source", src,
		"run_id", runID,
		"all", res.All,
		"new", res.New,
		"modified", res.Modified,
		"unchanged", res.Unchanged,
		"skipped", res.Skipped,
		"errors", res.Errors,
		"admitted", res.Admitted,
		"duration", gnfmt.TimeString(res.Duration.Seconds()),
	)
	gn.Info("<em>%s</em>: %s items stored, %s changed in %s",
		src,
		humanize.Comma(int64(res.All)),
		humanize.Comma(int64(res.Changed())),
		gnfmt.TimeString(res.Duration.Seconds()),
	)
	return res, nil
}

// reprocess rebuilds records of a source from its current payloads.
func (h *Harvester) reprocess(
	ctx context.Context,
	c Connector,
	yield func(Item) error,
) error {
	src := c.Source()
	ids, err := h.st.SourceIDs(ctx, src)
	if err != nil {
		return err
	}
	for _, id := range ids {
		sr, ok, err := h.st.CurrentPayload(ctx, src, id)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		it := Item{
			IDInSource: id,
			Data:       sr.Data,
			Format:     sr.Format,
			Basis:      "Reprocess",
		}
		it.Record, it.Err = c.Parse(id, sr.Data)
		if err = yield(it); err != nil {
			return err
		}
	}
	return nil
}

// processItem stores payload and record of an item in one atomic section
// and admits it afterwards.
func (h *Harvester) processItem(
	ctx context.Context,
	c Connector,
	it Item,
	sum *Summary,
) ItemStatus {
	src := c.Source()
	sum.log("Processing: %s", it.IDInSource)

	switch {
	case it.Err != nil:
		sum.log("  Error: %s", it.Err)
		slog.Warn("Cannot harvest item",
			"source", src, "id_in_source", it.IDInSource, "error", it.Err)
		return StatusError
	case it.Skip != "":
		sum.log("  Skipped - %s", it.Skip)
		return StatusSkipped
	case it.Record == nil:
		sum.log("  Error: no record")
		return StatusError
	}

	var payload store.Status
	var tr reconcile.Trace
	key := "item:" + src + ":" + it.IDInSource
	err := h.st.Atomic(ctx, key, func(ctx context.Context, tx store.Store) error {
		var err error
		payload, err = tx.PutSourcePayload(ctx, store.Payload{
			Source:     src,
			IDInSource: it.IDInSource,
			Data:       it.Data,
			Format:     it.Format,
		})
		if err != nil {
			return fmt.Errorf("cannot store payload: %w", err)
		}
		sc := store.Scope{Source: src, IDInSource: it.IDInSource}
		tr, err = h.eng.Reconcile(ctx, tx, sc, it.Record,
			reconcile.Complete(true), reconcile.Ignore(it.Ignore...))
		return err
	})
	if err != nil {
		err = ItemError(src, it.IDInSource, err)
		sum.log("  Error: %s", err)
		slog.Error("Cannot store item",
			"source", src, "id_in_source", it.IDInSource, "error", err)
		return StatusError
	}

	res := itemStatus(payload, tr)
	sum.Report = append(sum.Report, tr.Report()...)
	sum.log("  %s status: %s", src, res)

	adm, err := h.ctl.Admit(ctx, h.st, identity.Request{
		Source:     src,
		IDInSource: it.IDInSource,
		IDField:    c.IDField(),
		Reason:     it.Basis,
	})
	if err != nil {
		sum.Errors++
		sum.log("  Admission error: %s", err)
		slog.Error("Cannot admit item",
			"source", src, "id_in_source", it.IDInSource, "error", err)
		return res
	}
	sum.Report = append(sum.Report, adm.Report...)
	sum.log("  IRTS status: %s", adm.Status)
	if adm.Status == identity.Admitted {
		sum.Admitted++
		h.rec.Admitted(src)
	}
	return res
}

func itemStatus(payload store.Status, tr reconcile.Trace) ItemStatus {
	switch {
	case payload == store.New:
		return StatusNew
	case payload == store.Updated || tr.Changed():
		return StatusModified
	default:
		return StatusUnchanged
	}
}

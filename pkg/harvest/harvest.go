// Package harvest runs source connectors and pushes every harvested item
// through the store, the reconciliation engine and identity admission.
package harvest

import (
	"context"
	"time"

	"github.com/gnames/irts/pkg/field"
	"github.com/gnames/irts/pkg/record"
	"github.com/gnames/irts/pkg/store"
)

// Mode selects which items a connector harvests.
type Mode string

const (
	// ModeNew discovers items that are not harvested yet.
	ModeNew Mode = "new"
	// ModeReharvest fetches again items that are known already.
	ModeReharvest Mode = "reharvest"
	// ModeReprocess rebuilds records from stored payloads without network
	// access.
	ModeReprocess Mode = "reprocess"
)

// ParseMode converts a string to Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeNew, ModeReharvest, ModeReprocess:
		return m, nil
	case "":
		return ModeNew, nil
	}
	return "", UnknownModeError(s)
}

// Item is one harvested entity.
type Item struct {
	IDInSource string
	Data       []byte
	Format     store.Format
	Record     *record.Record

	// Basis explains why the item was harvested. It becomes the harvest
	// basis of a newly admitted identity.
	Basis string

	// Ignore lists fields the complete record must not prune.
	Ignore []field.Field

	// Skip is the reason the item is counted but not stored.
	Skip string

	// Err is a failure to fetch or parse the item.
	Err error
}

// Connector knows how to get items from one source.
type Connector interface {
	// Source is the source name records are stored under.
	Source() string

	// IDField is the standard field holding the id of an item.
	IDField() field.Field

	// Fetch finds and downloads items for the mode and passes each to
	// yield. Failures of a single item are reported through Item.Err,
	// the returned error stops the whole source. ModeReprocess is handled
	// by the Harvester and never reaches Fetch.
	Fetch(
		ctx context.Context,
		mode Mode,
		s store.Store,
		yield func(Item) error,
	) error

	// Parse builds a record from a stored payload.
	Parse(idInSource string, data []byte) (*record.Record, error)
}

// ItemStatus is the outcome of one item.
type ItemStatus string

const (
	StatusNew       ItemStatus = "new"
	StatusModified  ItemStatus = "modified"
	StatusUnchanged ItemStatus = "unchanged"
	StatusSkipped   ItemStatus = "skipped"
	StatusError     ItemStatus = "error"
)

// Recorder receives harvest events, usually to update metrics.
type Recorder interface {
	ItemDone(source string, status ItemStatus)
	Admitted(source string)
	SourceDone(source string, d time.Duration, err error)
}

type noopRecorder struct{}

func (noopRecorder) ItemDone(string, ItemStatus)             {}
func (noopRecorder) Admitted(string)                         {}
func (noopRecorder) SourceDone(string, time.Duration, error) {}

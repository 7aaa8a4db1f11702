package harvest

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/irts/pkg/errcode"
)

// UnknownModeError is returned for a harvest mode that does not exist.
func UnknownModeError(mode string) error {
	msg := `Unknown harvest mode <em>%s</em>

<em>Supported modes:</em> new, reharvest, reprocess`

	return &gn.Error{
		Code: errcode.HarvestUnknownModeError,
		Msg:  msg,
		Vars: []any{mode},
		Err:  fmt.Errorf("unknown harvest mode %q", mode),
	}
}

// UnknownSourceError is returned when no connector serves a source.
func UnknownSourceError(source string) error {
	msg := `No harvester for source <em>%s</em>`

	return &gn.Error{
		Code: errcode.HarvestUnknownSourceError,
		Msg:  msg,
		Vars: []any{source},
		Err:  fmt.Errorf("unknown source %q", source),
	}
}

// AllSourcesFailedError is returned when not a single source was
// harvested.
func AllSourcesFailedError(count int) error {
	msg := `Failed number of sources: <em>%d</em>`

	plural := "s"
	if count == 1 {
		plural = ""
	}

	return &gn.Error{
		Code: errcode.HarvestAllSourcesFailedError,
		Msg:  msg,
		Vars: []any{count},
		Err:  fmt.Errorf("%d source%s failed to harvest", count, plural),
	}
}

// ItemError wraps a failure of one harvested item.
func ItemError(source, id string, err error) error {
	msg := `Cannot store <em>%s</em> item <em>%s</em>`

	return &gn.Error{
		Code: errcode.HarvestItemError,
		Msg:  msg,
		Vars: []any{source, id},
		Err:  fmt.Errorf("item %s %s: %w", source, id, err),
	}
}

// CancelledError is returned when harvest stops because of the context.
func CancelledError(err error) error {
	msg := "Harvest was cancelled"

	return &gn.Error{
		Code: errcode.UnknownError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("harvest cancelled: %w", err),
	}
}

// Package ioharvest implements harvest.Connector for arXiv and Crossref.
// This is an impure I/O package, it talks to external APIs and reads the
// store to decide what to harvest.
package ioharvest

import (
	"time"

	"github.com/gnames/irts/pkg/config"
	"github.com/gnames/irts/pkg/harvest"
	"github.com/gnames/irts/pkg/mapper"
)

// Sources lists names of all supported sources.
var Sources = []string{arxivSource, crossrefSource}

type settings struct {
	now func() time.Time
}

// Option configures connectors.
type Option func(*settings)

// OptClock replaces the clock used for year and date filters.
func OptClock(fn func() time.Time) Option {
	return func(s *settings) {
		if fn != nil {
			s.now = fn
		}
	}
}

func newSettings(opts []Option) settings {
	res := settings{now: time.Now}
	for _, opt := range opts {
		opt(&res)
	}
	return res
}

// New creates connectors for the given source names. Empty names mean
// all sources.
func New(
	cfg *config.Config,
	m *mapper.Mapper,
	names []string,
	opts ...Option,
) ([]harvest.Connector, error) {
	if len(names) == 0 {
		names = Sources
	}
	res := make([]harvest.Connector, 0, len(names))
	for _, v := range names {
		switch v {
		case arxivSource:
			res = append(res, NewArxiv(cfg, m, opts...))
		case crossrefSource:
			res = append(res, NewCrossref(cfg, m, opts...))
		default:
			return nil, harvest.UnknownSourceError(v)
		}
	}
	return res, nil
}

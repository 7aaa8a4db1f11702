package ioharvest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gnames/irts/pkg/config"
	"github.com/gnames/irts/pkg/field"
	"github.com/gnames/irts/pkg/harvest"
	"github.com/gnames/irts/pkg/mapper"
	"github.com/gnames/irts/pkg/record"
	"github.com/gnames/irts/pkg/store"
)

const crossrefSource = "crossref"

// Harvest bases of Crossref discovery methods.
const (
	basisNewDOI      = "New DOI from any source"
	basisORCID       = "DOI from faculty ORCID"
	basisAffiliation = "DOI from affiliation query"
	basisFunder      = "DOI from funder query"
)

// Crossref harvests works metadata from the Crossref REST API.
type Crossref struct {
	api    string
	cl     *client
	m      *mapper.Mapper
	ev     *evaluator
	abbrev string
	city   string
	now    func() time.Time
}

// NewCrossref creates the Crossref connector.
func NewCrossref(
	cfg *config.Config,
	m *mapper.Mapper,
	opts ...Option,
) *Crossref {
	s := newSettings(opts)
	return &Crossref{
		api:    strings.TrimRight(cfg.Harvest.CrossrefAPI, "/"),
		cl:     newClient(seconds(cfg.Harvest.CrossrefDelay), cfg.Harvest.Email),
		m:      m,
		ev:     newEvaluator(),
		abbrev: cfg.Harvest.InstitutionAbbrev,
		city:   cfg.Harvest.InstitutionCity,
		now:    s.now,
	}
}

func (c *Crossref) Source() string {
	return crossrefSource
}

func (c *Crossref) IDField() field.Field {
	return field.DOI
}

// Fetch discovers DOIs and downloads their metadata. In new mode DOIs come
// from other sources, from works of faculty ORCIDs, from affiliation and
// from funder queries. Reharvest mode fetches again all Crossref DOIs.
func (c *Crossref) Fetch(
	ctx context.Context,
	mode harvest.Mode,
	s store.Store,
	yield func(harvest.Item) error,
) error {
	var dois []doiBasis
	var err error
	if mode == harvest.ModeReharvest {
		dois, err = c.reharvestDOIs(ctx, s)
	} else {
		dois, err = c.discover(ctx, s)
	}
	if err != nil {
		return err
	}

	for _, v := range dois {
		it := c.item(ctx, v)
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = yield(it); err != nil {
			return err
		}
	}
	return nil
}

// Parse builds a record from a stored Crossref work.
func (c *Crossref) Parse(_ string, data []byte) (*record.Record, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, ParseError(crossrefSource, "work", err)
	}
	rules := c.m.Paths(crossrefSource)
	if len(rules) == 0 {
		return nil, ParseError(crossrefSource, "work",
			errors.New("no path rules for crossref in mappings"))
	}
	return c.ev.record(c.m, crossrefSource, rules, doc)
}

type doiBasis struct {
	doi   string
	basis string
}

func (c *Crossref) item(ctx context.Context, v doiBasis) harvest.Item {
	res := harvest.Item{IDInSource: v.doi, Basis: v.basis}
	body, err := c.cl.get(ctx, c.api+"/works/"+url.PathEscape(v.doi), nil)
	if err != nil {
		res.Err = err
		return res
	}

	var resp struct {
		Message json.RawMessage `json:"message"`
	}
	if err = json.Unmarshal(body, &resp); err != nil || len(resp.Message) == 0 {
		if err == nil {
			err = errors.New("response has no message")
		}
		res.Err = ParseError(crossrefSource, "response", err)
		return res
	}

	res.Data = resp.Message
	res.Format = store.FormatJSON
	res.Record, res.Err = c.Parse(v.doi, resp.Message)
	return res
}

func (c *Crossref) reharvestDOIs(
	ctx context.Context,
	s store.Store,
) ([]doiBasis, error) {
	dois, err := distinctValues(ctx, s, []string{crossrefSource}, field.DOI)
	if err != nil {
		return nil, err
	}
	res := make([]doiBasis, 0, len(dois))
	for _, v := range dois {
		res = append(res, doiBasis{doi: strings.ToLower(v), basis: reharvestBasis})
	}
	return res, nil
}

// discover collects DOIs without Crossref payload. The first method that
// finds a DOI gives its basis.
func (c *Crossref) discover(
	ctx context.Context,
	s store.Store,
) ([]doiBasis, error) {
	var res []doiBasis
	seen := make(map[string]struct{})
	add := func(basis string, dois []string) error {
		var count int
		for _, v := range dois {
			doi := strings.ToLower(strings.TrimSpace(v))
			if _, ok := seen[doi]; ok || doi == "" {
				continue
			}
			seen[doi] = struct{}{}
			_, ok, err := s.CurrentPayload(ctx, crossrefSource, doi)
			if err != nil {
				return err
			}
			if ok {
				continue
			}
			res = append(res, doiBasis{doi: doi, basis: basis})
			count++
		}
		slog.Info("Crossref DOIs discovered", "basis", basis, "count", count)
		return nil
	}

	known, err := distinctValues(ctx, s, nil, field.DOI)
	if err != nil {
		return nil, err
	}
	if err = add(basisNewDOI, known); err != nil {
		return nil, err
	}

	byORCID, err := c.orcidDOIs(ctx, s)
	if err != nil {
		return nil, err
	}
	if err = add(basisORCID, byORCID); err != nil {
		return nil, err
	}

	byAff := c.affiliationDOIs(ctx)
	if err = add(basisAffiliation, byAff); err != nil {
		return nil, err
	}

	byFunder := c.funderDOIs(ctx)
	if err = add(basisFunder, byFunder); err != nil {
		return nil, err
	}
	return res, ctx.Err()
}

func (c *Crossref) weekAgo() string {
	return c.now().AddDate(0, 0, -7).Format(time.DateOnly)
}

// orcidDOIs queries works created during the last week by each current
// faculty member with an ORCID. Failed queries are logged and skipped.
func (c *Crossref) orcidDOIs(
	ctx context.Context,
	s store.Store,
) ([]string, error) {
	people, err := currentFaculty(ctx, s)
	if err != nil {
		return nil, err
	}
	var res []string
	for _, p := range people {
		if p.orcid == "" {
			continue
		}
		params := url.Values{}
		params.Set("filter", "orcid:"+p.orcid+",from-created-date:"+c.weekAgo())
		params.Set("select", "DOI")
		dois, err := c.works(ctx, params)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("ORCID query failed", "orcid", p.orcid, "error", err)
			continue
		}
		res = append(res, dois...)
	}
	return res, nil
}

func (c *Crossref) affiliationDOIs(ctx context.Context) []string {
	if c.abbrev == "" {
		return nil
	}
	params := url.Values{}
	params.Add("query.affiliation", c.abbrev)
	if c.city != "" {
		params.Add("query.affiliation", c.city)
	}
	params.Set("filter", "from-created-date:"+c.weekAgo())
	params.Set("rows", "50")
	res, err := c.works(ctx, params)
	if err != nil {
		slog.Warn("Affiliation query failed", "error", err)
	}
	return res
}

// funderDOIs uses the first funder found by the institution name.
func (c *Crossref) funderDOIs(ctx context.Context) []string {
	if c.abbrev == "" {
		return nil
	}
	params := url.Values{}
	params.Set("query", c.abbrev)
	body, err := c.cl.get(ctx, c.api+"/funders", params)
	var ids []string
	if err == nil {
		ids, err = c.texts(body, "message.items[0].id")
	}
	if err != nil || len(ids) == 0 {
		if err != nil {
			slog.Warn("Funder query failed", "error", err)
		}
		return nil
	}

	params = url.Values{}
	params.Set("filter", "funder:"+ids[0]+",from-created-date:"+c.weekAgo())
	params.Set("rows", "50")
	res, err := c.works(ctx, params)
	if err != nil {
		slog.Warn("Funder works query failed", "funder", ids[0], "error", err)
	}
	return res
}

// works returns DOIs of a works query.
func (c *Crossref) works(ctx context.Context, params url.Values) ([]string, error) {
	body, err := c.cl.get(ctx, c.api+"/works", params)
	if err != nil {
		return nil, err
	}
	return c.texts(body, "message.items[].DOI")
}

func (c *Crossref) texts(body []byte, expr string) ([]string, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, ParseError(crossrefSource, "response", err)
	}
	return c.ev.texts(expr, doc)
}

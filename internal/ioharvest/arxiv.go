package ioharvest

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gnames/gnlib"

	"github.com/gnames/irts/pkg/config"
	"github.com/gnames/irts/pkg/field"
	"github.com/gnames/irts/pkg/harvest"
	"github.com/gnames/irts/pkg/mapper"
	"github.com/gnames/irts/pkg/record"
	"github.com/gnames/irts/pkg/store"
)

const (
	arxivSource    = "arxiv"
	facultyBasis   = "Harvested based on active faculty member name"
	reharvestBasis = "Reharvest"
)

var arxivIDRe = regexp.MustCompile(`^(.+?)v(\d+)$`)

// Arxiv harvests preprints of current faculty from the arXiv API.
type Arxiv struct {
	api  string
	cl   *client
	m    *mapper.Mapper
	skip []string
	now  func() time.Time
}

// NewArxiv creates the arXiv connector.
func NewArxiv(cfg *config.Config, m *mapper.Mapper, opts ...Option) *Arxiv {
	s := newSettings(opts)
	return &Arxiv{
		api:  cfg.Harvest.ArxivAPI,
		cl:   newClient(seconds(cfg.Harvest.ArxivDelay), ""),
		m:    m,
		skip: cfg.Harvest.SkipNames,
		now:  s.now,
	}
}

func (a *Arxiv) Source() string {
	return arxivSource
}

func (a *Arxiv) IDField() field.Field {
	return field.ArxivID
}

// Fetch searches arXiv by names of current faculty. In reharvest mode it
// fetches again every arXiv id known to the repository.
func (a *Arxiv) Fetch(
	ctx context.Context,
	mode harvest.Mode,
	s store.Store,
	yield func(harvest.Item) error,
) error {
	if mode == harvest.ModeReharvest {
		return a.reharvest(ctx, s, yield)
	}
	return a.byFaculty(ctx, s, yield)
}

// Parse builds a record from a stored Atom entry.
func (a *Arxiv) Parse(_ string, data []byte) (*record.Record, error) {
	_, _, rec, err := a.entry(data)
	return rec, err
}

func (a *Arxiv) byFaculty(
	ctx context.Context,
	s store.Store,
	yield func(harvest.Item) error,
) error {
	people, err := currentFaculty(ctx, s)
	if err != nil {
		return err
	}
	year := strconv.Itoa(a.now().Year())
	slog.Info("Searching arXiv by faculty names", "people", len(people))

	for _, p := range people {
		if p.name == "" {
			continue
		}
		if slices.Contains(a.skip, p.name) {
			slog.Info("Name is too common, skipping", "name", p.name)
			continue
		}

		params := url.Values{}
		params.Set("search_query", `au:"`+p.name+`"`)
		params.Set("start", "0")
		params.Set("max_results", "100")
		params.Set("sortBy", "lastUpdatedDate")
		params.Set("sortOrder", "descending")
		body, err := a.cl.get(ctx, a.api, params)
		if err == nil {
			err = a.yieldFeed(body, year, facultyBasis, yield)
		}
		if err = a.itemErr(ctx, p.name, err, yield); err != nil {
			return err
		}
	}
	return nil
}

func (a *Arxiv) reharvest(
	ctx context.Context,
	s store.Store,
	yield func(harvest.Item) error,
) error {
	ids, err := distinctValues(ctx, s,
		[]string{config.RepositorySource}, field.ArxivID)
	if err != nil {
		return err
	}
	slog.Info("Reharvesting arXiv ids", "count", len(ids))

	for _, id := range ids {
		params := url.Values{}
		params.Set("id_list", id)
		body, err := a.cl.get(ctx, a.api, params)
		if err == nil {
			err = a.yieldFeed(body, "", reharvestBasis, yield)
		}
		if err = a.itemErr(ctx, id, err, yield); err != nil {
			return err
		}
	}
	return nil
}

// itemErr reports a failed request as an item error. Cancellation and
// errors of yield are returned.
func (a *Arxiv) itemErr(
	ctx context.Context,
	id string,
	err error,
	yield func(harvest.Item) error,
) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var ye yieldError
	if errors.As(err, &ye) {
		return ye.err
	}
	return yield(harvest.Item{IDInSource: id, Err: err})
}

// yieldError marks errors returned by yield.
type yieldError struct {
	err error
}

func (e yieldError) Error() string {
	return e.err.Error()
}

// yieldFeed sends entries of an Atom feed to yield. Entries not
// published in year are skipped, empty year accepts all.
func (a *Arxiv) yieldFeed(
	body []byte,
	year, basis string,
	yield func(harvest.Item) error,
) error {
	entries, err := splitFeed(body)
	if err != nil {
		return ParseError(arxivSource, "feed", err)
	}
	for _, raw := range entries {
		var it harvest.Item
		id, published, rec, err := a.entry(raw)
		switch {
		case err != nil:
			it = harvest.Item{IDInSource: id, Err: err}
		case year != "" && !strings.Contains(published, year):
			it = harvest.Item{IDInSource: id, Skip: "Not from current year"}
		default:
			it = harvest.Item{
				IDInSource: id,
				Data:       raw,
				Format:     store.FormatXML,
				Record:     rec,
				Basis:      basis,
			}
		}
		if err = yield(it); err != nil {
			return yieldError{err: err}
		}
	}
	return nil
}

// xmlNode keeps any XML element with its attributes and children.
type xmlNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Text    string     `xml:",chardata"`
	Nodes   []xmlNode  `xml:",any"`
}

func (n xmlNode) child(local string) (xmlNode, bool) {
	idx := slices.IndexFunc(n.Nodes, func(c xmlNode) bool {
		return c.XMLName.Local == local
	})
	if idx < 0 {
		return xmlNode{}, false
	}
	return n.Nodes[idx], true
}

func (n xmlNode) attr(names ...string) string {
	for _, name := range names {
		for _, v := range n.Attrs {
			if v.Name.Local == name {
				return v.Value
			}
		}
	}
	return ""
}

// splitFeed returns raw bytes of every entry of an Atom feed.
func splitFeed(body []byte) ([][]byte, error) {
	body = []byte(gnlib.FixUtf8(string(body)))
	d := xml.NewDecoder(bytes.NewReader(body))
	var res [][]byte
	for {
		start := d.InputOffset()
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "entry" {
			continue
		}
		if err = d.Skip(); err != nil {
			return nil, err
		}
		raw := bytes.TrimSpace(body[start:d.InputOffset()])
		res = append(res, bytes.Clone(raw))
	}
	return res, nil
}

// entry converts one Atom entry to a record. Elements are mapped to
// fields by their local name, elements with nested elements get the text
// of their "name" (or first) element as value and the rest as children.
func (a *Arxiv) entry(raw []byte) (string, string, *record.Record, error) {
	var n xmlNode
	if err := xml.Unmarshal(raw, &n); err != nil {
		return "", "", nil, ParseError(arxivSource, "entry", err)
	}
	idNode, ok := n.child("id")
	if !ok {
		return "", "", nil, ParseError(arxivSource, "entry",
			errors.New("entry has no id"))
	}
	id, version := splitArxivID(idNode.Text)
	var published string
	if p, ok := n.child("published"); ok {
		published = strings.TrimSpace(p.Text)
	}

	rec := record.New().
		Add(field.Type, "Preprint").
		Add(field.Publisher, "arXiv").
		Add(field.Version, version).
		Add(field.ArxivID, id)
	for _, c := range n.Nodes {
		tag := c.XMLName.Local
		f := a.m.MapField(arxivSource, tag, "")
		val, children := a.nodeValue(c)
		rec.AddEntry(f, record.Entry{
			Value:    a.m.Transform(arxivSource, f, val),
			Children: children,
		})
	}
	return id, published, rec, nil
}

func (a *Arxiv) nodeValue(n xmlNode) (string, *record.Record) {
	val := strings.TrimSpace(n.Text)
	if len(n.Nodes) == 0 {
		if val == "" {
			val = n.attr("term", "href")
		}
		return val, nil
	}

	head := -1
	if val == "" {
		head = slices.IndexFunc(n.Nodes, func(c xmlNode) bool {
			return c.XMLName.Local == "name"
		})
		head = max(head, 0)
		val = strings.TrimSpace(n.Nodes[head].Text)
	}

	parent := n.XMLName.Local
	children := record.New()
	for i, c := range n.Nodes {
		if i == head {
			continue
		}
		f := a.m.MapField(arxivSource, c.XMLName.Local, parent)
		v, ch := a.nodeValue(c)
		children.AddEntry(f, record.Entry{
			Value:    a.m.Transform(arxivSource, f, v),
			Children: ch,
		})
	}
	return val, children
}

// splitArxivID turns "http://arxiv.org/abs/2401.00001v2" into
// "2401.00001" and "2".
func splitArxivID(s string) (string, string) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "/abs/"); i >= 0 {
		s = s[i+len("/abs/"):]
	}
	m := arxivIDRe.FindStringSubmatch(s)
	if m == nil {
		return s, "1"
	}
	return m[1], m[2]
}

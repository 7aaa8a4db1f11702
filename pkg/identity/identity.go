// Package identity decides whether a harvested item already corresponds
// to a tracked entity and mints a new tracking identity when it does not.
//
// Tracking records live under their own source (config.TrackingSource).
// Each one carries an "irts.source" value with a nested "irts.idInSource"
// child that points back to the item it was created from.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/gnames/irts/pkg/config"
	"github.com/gnames/irts/pkg/field"
	"github.com/gnames/irts/pkg/reconcile"
	"github.com/gnames/irts/pkg/record"
	"github.com/gnames/irts/pkg/store"
)

// StatusInProcess is the status of freshly admitted items.
const StatusInProcess = "inProcess"

// Status of an admission.
type Status int

const (
	AlreadyTracked Status = iota
	Admitted
)

func (s Status) String() string {
	if s == Admitted {
		return "inProcess"
	}
	return "existing"
}

// Request describes an item that was reconciled under its own source.
type Request struct {
	Source     string      `validate:"required"`
	IDInSource string      `validate:"required"`
	IDField    field.Field `validate:"required"`
	// Reason is stored as the harvest basis of a new identity.
	Reason string
}

// Result of Admit.
type Result struct {
	Status Status
	// Identity is the new tracking id, empty for already tracked items.
	Identity string
	// MatchedID and MatchedSource point to the record that made the item
	// already tracked.
	MatchedID     string
	MatchedSource string
	// MatchedBy names the rule that found the existing record.
	MatchedBy string
	Report    []string
}

// Controller admits items into tracking.
type Controller struct {
	eng        *reconcile.Engine
	validate   *validator.Validate
	tracking   string
	repository string
	attempts   int
}

// Option configures Controller.
type Option func(*Controller)

// OptSources sets names of the tracking and repository sources.
func OptSources(tracking, repository string) Option {
	return func(c *Controller) {
		if tracking != "" {
			c.tracking = tracking
		}
		if repository != "" {
			c.repository = repository
		}
	}
}

// OptAttempts sets how many times admission is tried on write conflicts.
func OptAttempts(i int) Option {
	return func(c *Controller) {
		if i > 0 {
			c.attempts = i
		}
	}
}

// New creates a Controller that writes tracking records through eng.
func New(eng *reconcile.Engine, opts ...Option) *Controller {
	res := &Controller{
		eng:        eng,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		tracking:   config.TrackingSource,
		repository: config.RepositorySource,
		attempts:   3,
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// Admit checks if the item is tracked already and creates a tracking
// record if it is not. The check and the creation run in one atomic
// section serialized per source, conflicts are retried.
func (c *Controller) Admit(
	ctx context.Context,
	s store.Store,
	req Request,
) (Result, error) {
	var res Result
	if err := c.validate.Struct(req); err != nil {
		return res, fmt.Errorf("bad admission request: %w", err)
	}

	var err error
	for i := range c.attempts {
		err = s.Atomic(ctx, "admit:"+req.Source,
			func(ctx context.Context, tx store.Store) error {
				var err error
				res, err = c.admit(ctx, tx, req)
				return err
			})
		if !errors.Is(err, store.ErrConflict) {
			break
		}
		slog.Warn("Identity conflict, retrying",
			"source", req.Source, "id_in_source", req.IDInSource,
			"attempt", i+1)
	}
	if err != nil {
		return Result{}, err
	}

	if res.Status == Admitted {
		slog.Info("Added to process",
			"source", req.Source, "id_in_source", req.IDInSource,
			"identity", res.Identity)
	}
	return res, nil
}

func (c *Controller) admit(
	ctx context.Context,
	s store.Store,
	req Request,
) (Result, error) {
	item, err := c.itemFields(ctx, s, req)
	if err != nil {
		return Result{}, err
	}

	res, found, err := c.findExisting(ctx, s, req, item)
	if err != nil || found {
		return res, err
	}

	id, err := c.nextID(ctx, s, req.Source)
	if err != nil {
		return Result{}, err
	}

	res = Result{Status: Admitted, Identity: id}
	sc := store.Scope{Source: c.tracking, IDInSource: id}
	for _, rec := range c.trackingRecords(req, item) {
		tr, err := c.eng.Reconcile(ctx, s, sc, rec)
		if err != nil {
			return Result{}, fmt.Errorf("cannot write identity %s: %w", id, err)
		}
		res.Report = append(res.Report, tr.Report()...)
	}
	return res, nil
}

type itemFields struct {
	typ, doi, title, issued string
}

func (c *Controller) itemFields(
	ctx context.Context,
	s store.Store,
	req Request,
) (itemFields, error) {
	var res itemFields
	top := store.RowID(0)
	vals, err := s.QueryCurrent(ctx, store.Filter{
		Sources:    []string{req.Source},
		IDInSource: []string{req.IDInSource},
		Fields:     []field.Field{field.Type, field.DOI, field.Title, field.Issued},
		Parent:     &top,
	})
	if err != nil {
		return res, err
	}
	first := func(f field.Field) string {
		var best *store.Value
		for i := range vals {
			if vals[i].Field != f {
				continue
			}
			if best == nil || vals[i].Place < best.Place {
				best = &vals[i]
			}
		}
		if best == nil {
			return ""
		}
		return best.Value
	}
	res.typ = first(field.Type)
	res.doi = first(field.DOI)
	res.title = first(field.Title)
	res.issued = first(field.Issued)
	return res, nil
}

func (c *Controller) findExisting(
	ctx context.Context,
	s store.Store,
	req Request,
	item itemFields,
) (Result, bool, error) {
	known := []string{c.repository, c.tracking}

	v, err := c.firstMatch(ctx, s, known, req.IDField, req.IDInSource)
	if err != nil || v != nil {
		return tracked(v, "id field"), v != nil, err
	}

	if item.doi != "" && req.IDField != field.DOI {
		v, err = c.firstMatch(ctx, s, known, field.DOI, item.doi)
		if err != nil || v != nil {
			return tracked(v, "doi"), v != nil, err
		}
	}

	if item.doi == "" && item.title != "" && item.typ != "" {
		v, err = c.titleMatch(ctx, s, known, item.title, item.typ)
		if err != nil || v != nil {
			return tracked(v, "title and type"), v != nil, err
		}
	}

	v, err = c.pointerMatch(ctx, s, req.Source, req.IDInSource)
	if err != nil || v != nil {
		return tracked(v, "source pointer"), v != nil, err
	}
	return Result{}, false, nil
}

func tracked(v *store.Value, rule string) Result {
	if v == nil {
		return Result{}
	}
	return Result{
		Status:        AlreadyTracked,
		MatchedID:     v.IDInSource,
		MatchedSource: v.Source,
		MatchedBy:     rule,
	}
}

func (c *Controller) firstMatch(
	ctx context.Context,
	s store.Store,
	sources []string,
	f field.Field,
	value string,
) (*store.Value, error) {
	vals, err := s.QueryCurrent(ctx, store.Filter{
		Sources: sources,
		Fields:  []field.Field{f},
		Values:  []string{value},
		Limit:   1,
	})
	if err != nil || len(vals) == 0 {
		return nil, err
	}
	return &vals[0], nil
}

func (c *Controller) titleMatch(
	ctx context.Context,
	s store.Store,
	sources []string,
	title, typ string,
) (*store.Value, error) {
	titles, err := s.QueryCurrent(ctx, store.Filter{
		Sources: sources,
		Fields:  []field.Field{field.Title},
		Values:  []string{title},
	})
	if err != nil {
		return nil, err
	}
	for i := range titles {
		v := titles[i]
		types, err := s.QueryCurrent(ctx, store.Filter{
			Sources:    []string{v.Source},
			IDInSource: []string{v.IDInSource},
			Fields:     []field.Field{field.Type},
			Values:     []string{typ},
			Limit:      1,
		})
		if err != nil {
			return nil, err
		}
		if len(types) > 0 {
			return &v, nil
		}
	}
	return nil, nil
}

func (c *Controller) pointerMatch(
	ctx context.Context,
	s store.Store,
	source, id string,
) (*store.Value, error) {
	parents, err := s.QueryCurrent(ctx, store.Filter{
		Sources: []string{c.tracking},
		Fields:  []field.Field{field.TrackedSource},
		Values:  []string{source},
	})
	if err != nil || len(parents) == 0 {
		return nil, err
	}
	ids := make([]store.RowID, len(parents))
	for i, v := range parents {
		ids[i] = v.RowID
	}
	children, err := s.QueryCurrent(ctx, store.Filter{
		Sources:   []string{c.tracking},
		Fields:    []field.Field{field.TrackedIDInSource},
		Values:    []string{id},
		ParentIDs: ids,
		Limit:     1,
	})
	if err != nil || len(children) == 0 {
		return nil, err
	}
	return &children[0], nil
}

// nextID returns "{source}_{n}" where n follows the largest numeric
// suffix ever used for the source, deleted identities included.
func (c *Controller) nextID(
	ctx context.Context,
	s store.Store,
	source string,
) (string, error) {
	prefix := source + "_"
	ids, err := s.IDsWithPrefix(ctx, c.tracking, prefix)
	if err != nil {
		return "", err
	}
	var maxNum int
	for _, v := range ids {
		n, err := strconv.Atoi(strings.TrimPrefix(v, prefix))
		if err != nil {
			continue
		}
		maxNum = max(maxNum, n)
	}
	return prefix + strconv.Itoa(maxNum+1), nil
}

// trackingRecords returns single-field partial records of a new identity.
// Each is reconciled on its own so nothing else is pruned.
func (c *Controller) trackingRecords(
	req Request,
	item itemFields,
) []*record.Record {
	pointer := record.New().Add(field.TrackedIDInSource, req.IDInSource)
	res := []*record.Record{
		record.New().AddChild(field.TrackedSource, req.Source, pointer),
		record.New().Add(field.Type, item.typ),
		record.New().Add(field.Status, StatusInProcess),
		record.New().Add(req.IDField, req.IDInSource),
		record.New().Add(field.Title, item.title),
		record.New().Add(field.Issued, item.issued),
	}
	if item.doi != "" && req.IDField != field.DOI {
		res = append(res, record.New().Add(field.DOI, item.doi))
	}
	if req.Reason != "" {
		res = append(res, record.New().Add(field.HarvestBasis, req.Reason))
	}
	return res
}

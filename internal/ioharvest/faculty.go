package ioharvest

import (
	"context"
	"slices"

	"github.com/gnames/irts/pkg/field"
	"github.com/gnames/irts/pkg/store"
)

// localSource keeps person records of the institution.
const localSource = "local"

// person is a current faculty member.
type person struct {
	id    string
	name  string
	orcid string
}

// currentFaculty returns people with a "Faculty" employment that has no
// end date. The end date is a sibling of the employment type, both are
// children of the same employment row.
func currentFaculty(ctx context.Context, s store.Store) ([]person, error) {
	emps, err := s.QueryCurrent(ctx, store.Filter{
		Sources: []string{localSource},
		Fields:  []field.Field{field.EmploymentType},
		Values:  []string{"Faculty"},
	})
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, v := range emps {
		if slices.Contains(ids, v.IDInSource) {
			continue
		}
		parent := v.Parent
		ends, err := s.QueryCurrent(ctx, store.Filter{
			Sources:    []string{localSource},
			IDInSource: []string{v.IDInSource},
			Fields:     []field.Field{field.DateEnd},
			Parent:     &parent,
			Limit:      1,
		})
		if err != nil {
			return nil, err
		}
		if len(ends) == 0 {
			ids = append(ids, v.IDInSource)
		}
	}

	res := make([]person, 0, len(ids))
	for _, id := range ids {
		p := person{id: id}
		vals, err := s.QueryCurrent(ctx, store.Filter{
			Sources:    []string{localSource},
			IDInSource: []string{id},
			Fields:     []field.Field{field.PersonName, field.ORCID},
		})
		if err != nil {
			return nil, err
		}
		for _, v := range vals {
			switch {
			case v.Field == field.PersonName && p.name == "":
				p.name = v.Value
			case v.Field == field.ORCID && p.orcid == "":
				p.orcid = v.Value
			}
		}
		res = append(res, p)
	}
	return res, nil
}

// distinctValues returns current values of a field in the given sources.
// All sources are searched when sources is empty.
func distinctValues(
	ctx context.Context,
	s store.Store,
	sources []string,
	f field.Field,
) ([]string, error) {
	vals, err := s.QueryCurrent(ctx, store.Filter{
		Sources: sources,
		Fields:  []field.Field{f},
	})
	if err != nil {
		return nil, err
	}
	var res []string
	seen := make(map[string]struct{})
	for _, v := range vals {
		if _, ok := seen[v.Value]; ok {
			continue
		}
		seen[v.Value] = struct{}{}
		res = append(res, v.Value)
	}
	return res, nil
}

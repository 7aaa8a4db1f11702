package ioharvest

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jmespath/go-jmespath"

	"github.com/gnames/irts/pkg/mapper"
	"github.com/gnames/irts/pkg/record"
)

// evaluator runs JMESPath expressions and keeps them compiled.
type evaluator struct {
	mu    sync.RWMutex
	cache map[string]*jmespath.JMESPath
}

func newEvaluator() *evaluator {
	return &evaluator{cache: make(map[string]*jmespath.JMESPath)}
}

func (e *evaluator) search(expr string, data any) (any, error) {
	e.mu.RLock()
	compiled, ok := e.cache[expr]
	e.mu.RUnlock()

	if !ok {
		var err error
		compiled, err = jmespath.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid expression %q: %w", expr, err)
		}
		e.mu.Lock()
		e.cache[expr] = compiled
		e.mu.Unlock()
	}

	res, err := compiled.Search(data)
	if err != nil {
		return nil, fmt.Errorf("cannot evaluate %q: %w", expr, err)
	}
	return res, nil
}

// texts returns string results of an expression, a single string
// becomes a slice of one element.
func (e *evaluator) texts(expr string, data any) ([]string, error) {
	found, err := e.search(expr, data)
	if err != nil {
		return nil, err
	}
	var res []string
	for _, v := range asList(found) {
		if s, ok := v.(string); ok && s != "" {
			res = append(res, s)
		}
	}
	return res, nil
}

// record builds a record from a decoded JSON document. Every value goes
// through transformations of its field.
func (e *evaluator) record(
	m *mapper.Mapper,
	source string,
	rules []mapper.PathRule,
	doc any,
) (*record.Record, error) {
	res := record.New()
	for _, r := range rules {
		found, err := e.search(r.Path, doc)
		if err != nil {
			return nil, err
		}
		for _, elem := range asList(found) {
			v := elem
			if r.Value != "" {
				if v, err = e.search(r.Value, elem); err != nil {
					return nil, err
				}
			}
			val := m.Transform(source, r.Field, formatValue(v, r.Format))
			ent := record.Entry{Value: val}
			if len(r.Children) > 0 {
				ent.Children, err = e.record(m, source, r.Children, elem)
				if err != nil {
					return nil, err
				}
			}
			res.AddEntry(r.Field, ent)
		}
	}
	return res, nil
}

func asList(v any) []any {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		return val
	default:
		return []any{val}
	}
}

func formatValue(v any, format string) string {
	switch format {
	case mapper.FormatJoin:
		var parts []string
		for _, p := range asList(v) {
			if s := scalar(p); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case mapper.FormatDateParts:
		var parts []string
		for _, p := range asList(v) {
			n, ok := p.(float64)
			if !ok {
				break
			}
			parts = append(parts, fmt.Sprintf("%02d", int(n)))
		}
		return strings.Join(parts, "-")
	}
	return scalar(v)
}

// scalar converts JSON scalars to text, objects and arrays give an empty
// string.
func scalar(v any) string {
	switch v.(type) {
	case nil, map[string]any, []any:
		return ""
	}
	res, err := record.NormalizeValue(v)
	if err != nil {
		return ""
	}
	return res
}

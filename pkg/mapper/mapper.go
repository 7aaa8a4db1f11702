// Package mapper maps source element names to standard field names and
// applies value transformations configured per source and field.
package mapper

import (
	"cmp"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/gnames/irts/pkg/field"
)

// Transformation types.
const (
	Replace   = "replace"
	Regex     = "regex"
	Uppercase = "uppercase"
	Lowercase = "lowercase"
	Strip     = "strip"
	Prefix    = "prefix"
	Suffix    = "suffix"
)

// FieldRule maps an element of a source to a standard field. Parent is the
// source name of the enclosing element, empty for top-level elements.
type FieldRule struct {
	Source      string      `yaml:"source"`
	Parent      string      `yaml:"parent"`
	SourceField string      `yaml:"source_field"`
	Field       field.Field `yaml:"field"`
}

// Transformation changes values of a field. Lower priority runs first.
type Transformation struct {
	Source    string      `yaml:"source"`
	Field     field.Field `yaml:"field"`
	Type      string      `yaml:"type"`
	Parameter string      `yaml:"parameter"`
	Value     string      `yaml:"value"`
	Priority  int         `yaml:"priority"`
}

// Value formats of path rules.
const (
	// FormatJoin joins a list of strings with ", ".
	FormatJoin = "join"
	// FormatDateParts turns [2024, 1, 5] into "2024-01-05".
	FormatDateParts = "date-parts"
)

// PathRule extracts a field from a JSON payload. Path is a JMESPath
// expression, a list result gives one entry per element. Value, when
// set, is evaluated against every element to get its value. Children
// are evaluated against the element and become children of the entry.
type PathRule struct {
	Source   string      `yaml:"source"`
	Path     string      `yaml:"path"`
	Field    field.Field `yaml:"field"`
	Value    string      `yaml:"value"`
	Format   string      `yaml:"format"`
	Children []PathRule  `yaml:"children"`
}

// Rules is the full set of mapping rules.
type Rules struct {
	Fields          []FieldRule
	Transformations []Transformation
	Paths           []PathRule
}

type transform struct {
	Transformation
	re *regexp.Regexp
}

// Mapper resolves field names and transformations. Lookups are cached
// until ClearCache or SetRules is called. It is safe for concurrent use.
type Mapper struct {
	mu         sync.RWMutex
	rules      Rules
	fieldCache map[string]field.Field
	transCache map[string][]transform
}

// New creates a Mapper with the given rules.
func New(rules Rules) *Mapper {
	res := &Mapper{}
	res.SetRules(rules)
	return res
}

// SetRules replaces the rules and drops cached lookups.
func (m *Mapper) SetRules(rules Rules) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = rules
	m.clear()
}

// ClearCache drops cached lookups.
func (m *Mapper) ClearCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clear()
	slog.Info("Mapper cache cleared")
}

func (m *Mapper) clear() {
	m.fieldCache = make(map[string]field.Field)
	m.transCache = make(map[string][]transform)
}

// MapField returns the standard field of a source element. Elements
// without a rule become "source.element", names that already contain a
// dot are kept as they are.
func (m *Mapper) MapField(source, sourceField, parent string) field.Field {
	key := source + ":" + parent + ":" + sourceField
	m.mu.RLock()
	res, ok := m.fieldCache[key]
	m.mu.RUnlock()
	if ok {
		return res
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	idx := slices.IndexFunc(m.rules.Fields, func(r FieldRule) bool {
		return r.Source == source && r.Parent == parent &&
			r.SourceField == sourceField
	})
	switch {
	case idx >= 0:
		res = m.rules.Fields[idx].Field
	case !strings.Contains(sourceField, "."):
		res = field.Field(source + "." + sourceField)
	default:
		res = field.Field(sourceField)
	}
	m.fieldCache[key] = res
	return res
}

// Paths returns path rules of a source in their original order.
func (m *Mapper) Paths(source string) []PathRule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []PathRule
	for _, v := range m.rules.Paths {
		if v.Source == source {
			res = append(res, v)
		}
	}
	return res
}

// Transform applies transformations of a field to a value in priority
// order.
func (m *Mapper) Transform(source string, f field.Field, value string) string {
	for _, t := range m.transforms(source, f) {
		value = t.apply(value)
	}
	return value
}

func (m *Mapper) transforms(source string, f field.Field) []transform {
	key := source + ":" + string(f)
	m.mu.RLock()
	res, ok := m.transCache[key]
	m.mu.RUnlock()
	if ok {
		return res
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.rules.Transformations {
		if v.Source != source || v.Field != f {
			continue
		}
		t := transform{Transformation: v}
		if v.Type == Regex {
			re, err := regexp.Compile(v.Parameter)
			if err != nil {
				slog.Warn("Bad transformation regex",
					"source", source, "field", f,
					"pattern", v.Parameter, "error", err)
				continue
			}
			t.re = re
		}
		res = append(res, t)
	}
	slices.SortStableFunc(res, func(a, b transform) int {
		return cmp.Compare(a.Priority, b.Priority)
	})
	m.transCache[key] = res
	return res
}

func (t transform) apply(value string) string {
	switch t.Type {
	case Replace:
		if t.Parameter != "" {
			return strings.ReplaceAll(value, t.Parameter, t.Value)
		}
	case Regex:
		if t.re != nil {
			return t.re.ReplaceAllString(value, t.Value)
		}
	case Uppercase:
		return strings.ToUpper(value)
	case Lowercase:
		return strings.ToLower(value)
	case Strip:
		if t.Parameter == "" {
			return strings.TrimSpace(value)
		}
		return strings.Trim(value, t.Parameter)
	case Prefix:
		return t.Parameter + value
	case Suffix:
		return value + t.Parameter
	}
	return value
}

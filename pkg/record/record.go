// Package record provides the nested, multi-valued metadata record that
// source connectors produce and the reconciliation engine consumes.
//
// A Record is an ordered list of fields. Every field holds an ordered list
// of entries, the position of an entry is its place. An entry has a value
// and optional children, which are a Record themselves. A nil Children
// pointer means the children are absent, which is different from an empty
// children record: absent children are left alone during reconciliation,
// empty ones are reconciled (and usually pruned).
package record

import (
	"slices"

	"github.com/gnames/irts/pkg/field"
)

// Entry is one value of a field at some place.
type Entry struct {
	Value    any
	Children *Record
}

// Record is an ordered multi-valued mapping of fields to entries.
type Record struct {
	fields  []field.Field
	entries map[field.Field][]Entry
}

// New creates an empty record.
func New() *Record {
	return &Record{entries: make(map[field.Field][]Entry)}
}

// Values converts plain values to entries without children.
func Values(vals ...any) []Entry {
	res := make([]Entry, len(vals))
	for i, v := range vals {
		res[i] = Entry{Value: v}
	}
	return res
}

// Set replaces entries of a field. A field keeps the position in which
// it was first added.
func (r *Record) Set(f field.Field, entries ...Entry) *Record {
	r.init()
	if _, ok := r.entries[f]; !ok {
		r.fields = append(r.fields, f)
	}
	r.entries[f] = slices.Clone(entries)
	return r
}

// Add appends one value to a field. Returns the record for chaining.
func (r *Record) Add(f field.Field, value any) *Record {
	return r.AddEntry(f, Entry{Value: value})
}

// AddEntry appends an entry to a field.
func (r *Record) AddEntry(f field.Field, e Entry) *Record {
	r.init()
	if _, ok := r.entries[f]; !ok {
		r.fields = append(r.fields, f)
	}
	r.entries[f] = append(r.entries[f], e)
	return r
}

// AddChild appends a value with children to a field.
func (r *Record) AddChild(f field.Field, value any, children *Record) *Record {
	return r.AddEntry(f, Entry{Value: value, Children: children})
}

// Fields returns fields in insertion order.
func (r *Record) Fields() []field.Field {
	if r == nil {
		return nil
	}
	return slices.Clone(r.fields)
}

// Entries returns entries of a field.
func (r *Record) Entries(f field.Field) []Entry {
	if r == nil {
		return nil
	}
	return r.entries[f]
}

// Has reports whether a field is present.
func (r *Record) Has(f field.Field) bool {
	if r == nil {
		return false
	}
	_, ok := r.entries[f]
	return ok
}

// First returns the normalized value of the first non-empty entry of
// a field, or an empty string.
func (r *Record) First(f field.Field) string {
	for _, v := range r.Entries(f) {
		s, err := NormalizeValue(v.Value)
		if err == nil && s != "" {
			return s
		}
	}
	return ""
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.fields)
}

// Delete removes a field.
func (r *Record) Delete(f field.Field) {
	if r == nil {
		return
	}
	if _, ok := r.entries[f]; !ok {
		return
	}
	delete(r.entries, f)
	r.fields = slices.DeleteFunc(r.fields, func(v field.Field) bool {
		return v == f
	})
}

func (r *Record) init() {
	if r.entries == nil {
		r.entries = make(map[field.Field][]Entry)
	}
}

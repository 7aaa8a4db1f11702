package memstore

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/gnames/irts/pkg/field"
	"github.com/gnames/irts/pkg/record"
	"github.com/gnames/irts/pkg/store"
)

type slotKey struct {
	scope scopeKey
	field field.Field
	place int
}

type scopeKey struct {
	source, id string
	parent     store.RowID
}

type entityKey struct {
	source, id string
}

type data struct {
	now func() time.Time

	// values[i] has RowID i+1
	values   []store.Value
	current  map[slotKey]store.RowID
	children map[scopeKey][]store.RowID

	payloads   []store.SourceRecord
	curPayload map[entityKey]int

	journal   []func()
	recording bool
}

func newData() *data {
	return &data{
		now:        func() time.Time { return time.Now().UTC() },
		current:    make(map[slotKey]store.RowID),
		children:   make(map[scopeKey][]store.RowID),
		curPayload: make(map[entityKey]int),
	}
}

func (d *data) begin() {
	d.journal = d.journal[:0]
	d.recording = true
}

func (d *data) commit() {
	d.journal = d.journal[:0]
	d.recording = false
}

func (d *data) rollback() {
	for i := len(d.journal) - 1; i >= 0; i-- {
		d.journal[i]()
	}
	d.commit()
}

func (d *data) undo(fn func()) {
	if d.recording {
		d.journal = append(d.journal, fn)
	}
}

func (d *data) putSourcePayload(p store.Payload) (store.Status, error) {
	if p.Source == "" || p.IDInSource == "" {
		return store.Unchanged, fmt.Errorf("payload without source or id")
	}
	k := entityKey{source: p.Source, id: p.IDInSource}
	now := d.now()
	idx, ok := d.curPayload[k]
	if ok && store.SamePayload(d.payloads[idx].Data, p.Data, p.Format) {
		return store.Unchanged, nil
	}

	rec := store.SourceRecord{
		RowID:      store.RowID(len(d.payloads) + 1),
		Source:     p.Source,
		IDInSource: p.IDInSource,
		Data:       slices.Clone(p.Data),
		Format:     p.Format,
		AddedAt:    now,
	}
	d.payloads = append(d.payloads, rec)
	d.curPayload[k] = len(d.payloads) - 1
	d.undo(func() {
		d.payloads = d.payloads[:len(d.payloads)-1]
		if ok {
			d.curPayload[k] = idx
		} else {
			delete(d.curPayload, k)
		}
	})
	if !ok {
		return store.New, nil
	}

	old := d.payloads[idx]
	d.payloads[idx].DeletedAt = &now
	d.payloads[idx].ReplacedBy = rec.RowID
	d.undo(func() { d.payloads[idx] = old })
	return store.Updated, nil
}

func (d *data) currentPayload(source, id string) (store.SourceRecord, bool) {
	idx, ok := d.curPayload[entityKey{source: source, id: id}]
	if !ok {
		return store.SourceRecord{}, false
	}
	res := d.payloads[idx]
	res.Data = slices.Clone(res.Data)
	return res, true
}

func (d *data) sourceIDs(source string) []string {
	var res []string
	for k := range d.curPayload {
		if k.source == source {
			res = append(res, k.id)
		}
	}
	slices.Sort(res)
	return res
}

func (d *data) putValue(slot store.Slot, value any) (store.PutResult, error) {
	var res store.PutResult
	if slot.Source == "" || slot.IDInSource == "" {
		return res, fmt.Errorf("slot without source or id")
	}
	if slot.Field == "" || slot.Place < 0 {
		return res, fmt.Errorf("bad slot %s[%d]", slot.Field, slot.Place)
	}
	val, err := record.NormalizeValue(value)
	if err != nil {
		return res, err
	}

	k := keyOf(slot)
	cur, ok := d.current[k]
	if ok && d.values[cur-1].Value == val {
		return store.PutResult{RowID: cur, Status: store.Unchanged}, nil
	}

	now := d.now()
	if !ok {
		id := d.insert(slot, val, now)
		return store.PutResult{RowID: id, Status: store.New}, nil
	}

	d.retire(cur, now)
	id := d.insert(slot, val, now)
	d.update(cur, func(v *store.Value) { v.ReplacedBy = id })
	old := d.values[cur-1]
	d.invalidate(
		scopeKey{source: old.Source, id: old.IDInSource, parent: cur},
		now,
		func(store.Value) bool { return true },
	)
	return store.PutResult{RowID: id, Status: store.Updated}, nil
}

func (d *data) invalidatePlacesBeyond(
	sc store.Scope,
	f field.Field,
	lastPlace int,
) int64 {
	return d.invalidate(scopeOf(sc), d.now(), func(v store.Value) bool {
		return v.Field == f && v.Place > lastPlace
	})
}

func (d *data) invalidateFieldsNotIn(sc store.Scope, keep []field.Field) int64 {
	return d.invalidate(scopeOf(sc), d.now(), func(v store.Value) bool {
		return !slices.Contains(keep, v.Field)
	})
}

func (d *data) invalidateAllChildren(sc store.Scope) int64 {
	return d.invalidate(scopeOf(sc), d.now(), func(store.Value) bool {
		return true
	})
}

func (d *data) queryCurrent(f store.Filter) []store.Value {
	var res []store.Value
	for _, v := range d.values {
		if !v.IsCurrent() || !match(v, f) {
			continue
		}
		res = append(res, v)
		if f.Limit > 0 && len(res) == f.Limit {
			break
		}
	}
	return res
}

func (d *data) history(source, id string) []store.Value {
	var res []store.Value
	for _, v := range d.values {
		if v.Source == source && v.IDInSource == id {
			res = append(res, v)
		}
	}
	return res
}

func (d *data) idsWithPrefix(source, prefix string) []string {
	seen := make(map[string]struct{})
	var res []string
	for _, v := range d.values {
		if v.Source != source || !strings.HasPrefix(v.IDInSource, prefix) {
			continue
		}
		if _, ok := seen[v.IDInSource]; ok {
			continue
		}
		seen[v.IDInSource] = struct{}{}
		res = append(res, v.IDInSource)
	}
	slices.Sort(res)
	return res
}

func (d *data) insert(slot store.Slot, val string, now time.Time) store.RowID {
	k := keyOf(slot)
	id := store.RowID(len(d.values) + 1)
	d.values = append(d.values, store.Value{
		RowID:      id,
		Source:     slot.Source,
		IDInSource: slot.IDInSource,
		Parent:     slot.Parent,
		Field:      slot.Field,
		Place:      slot.Place,
		Value:      val,
		AddedAt:    now,
	})
	d.current[k] = id
	d.children[k.scope] = append(d.children[k.scope], id)
	d.undo(func() {
		d.values = d.values[:len(d.values)-1]
		delete(d.current, k)
		ids := d.children[k.scope]
		d.children[k.scope] = ids[:len(ids)-1]
	})
	return id
}

// retire marks a row deleted and frees its slot.
func (d *data) retire(id store.RowID, now time.Time) {
	d.update(id, func(v *store.Value) { v.DeletedAt = &now })
	k := keyOf(slotOf(d.values[id-1]))
	delete(d.current, k)
	d.undo(func() { d.current[k] = id })
}

func (d *data) update(id store.RowID, fn func(*store.Value)) {
	old := d.values[id-1]
	fn(&d.values[id-1])
	d.undo(func() { d.values[id-1] = old })
}

func (d *data) invalidate(
	sk scopeKey,
	now time.Time,
	pred func(store.Value) bool,
) int64 {
	var res int64
	for _, id := range d.children[sk] {
		v := d.values[id-1]
		if v.IsCurrent() && pred(v) {
			d.retire(id, now)
			res++
		}
	}
	return res
}

func match(v store.Value, f store.Filter) bool {
	if len(f.Sources) > 0 && !slices.Contains(f.Sources, v.Source) {
		return false
	}
	if len(f.IDInSource) > 0 && !slices.Contains(f.IDInSource, v.IDInSource) {
		return false
	}
	if len(f.Fields) > 0 && !slices.Contains(f.Fields, v.Field) {
		return false
	}
	if len(f.Values) > 0 && !slices.Contains(f.Values, v.Value) {
		return false
	}
	if f.Parent != nil && v.Parent != *f.Parent {
		return false
	}
	if len(f.ParentIDs) > 0 && !slices.Contains(f.ParentIDs, v.Parent) {
		return false
	}
	return true
}

func keyOf(s store.Slot) slotKey {
	return slotKey{scope: scopeOf(s.Scope), field: s.Field, place: s.Place}
}

func scopeOf(sc store.Scope) scopeKey {
	return scopeKey{source: sc.Source, id: sc.IDInSource, parent: sc.Parent}
}

func slotOf(v store.Value) store.Slot {
	return store.Slot{
		Scope: store.Scope{
			Source:     v.Source,
			IDInSource: v.IDInSource,
			Parent:     v.Parent,
		},
		Field: v.Field,
		Place: v.Place,
	}
}

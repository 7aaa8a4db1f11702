package reconcile

import (
	"fmt"

	"github.com/gnames/irts/pkg/field"
	"github.com/gnames/irts/pkg/store"
)

// Step is one PutValue decision.
type Step struct {
	Field  field.Field
	Place  int
	Parent store.RowID
	RowID  store.RowID
	Status store.Status
}

// Trace collects what a Reconcile call did.
type Trace struct {
	Source     string
	IDInSource string
	Steps      []Step
	// Pruned is the number of rows soft-deleted because they were absent.
	Pruned int64
}

// Changed reports whether anything was written or pruned.
func (t Trace) Changed() bool {
	if t.Pruned > 0 {
		return true
	}
	for _, v := range t.Steps {
		if v.Status != store.Unchanged {
			return true
		}
	}
	return false
}

// Count returns the number of steps with the given status.
func (t Trace) Count(st store.Status) int {
	var res int
	for _, v := range t.Steps {
		if v.Status == st {
			res++
		}
	}
	return res
}

// Report renders one line per written value.
func (t Trace) Report() []string {
	res := make([]string, len(t.Steps))
	for i, v := range t.Steps {
		parent := "-"
		if v.Parent != 0 {
			parent = fmt.Sprintf("%d", v.Parent)
		}
		res[i] = fmt.Sprintf("%s %s: %s %d child of %s - %s",
			t.Source, t.IDInSource, v.Field, v.Place, parent, v.Status)
	}
	return res
}

// Package field defines the dot-separated metadata field names used by the
// store, such as "dc.title" or "irts.idInSource".
package field

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"
)

var (
	// ErrInvalid is returned for names that are not namespace.element
	// strings.
	ErrInvalid = errors.New("invalid field name")

	// ErrUnknown is returned for names whose namespace is not registered.
	ErrUnknown = errors.New("unknown field namespace")
)

// Field is a namespaced metadata field name.
type Field string

// Fields that have a meaning for reconciliation and identity admission.
const (
	Title     Field = "dc.title"
	Type      Field = "dc.type"
	DOI       Field = "dc.identifier.doi"
	ArxivID   Field = "dc.identifier.arxivid"
	ORCID     Field = "dc.identifier.orcid"
	Issued    Field = "dc.date.issued"
	Publisher Field = "dc.publisher"
	Version   Field = "dc.version"
	Contrib   Field = "dc.contributor.author"

	TrackedSource     Field = "irts.source"
	TrackedIDInSource Field = "irts.idInSource"
	Status            Field = "irts.status"
	HarvestBasis      Field = "irts.harvest.basis"

	EmploymentType Field = "local.employment.type"
	DateEnd        Field = "local.date.end"
	PersonName     Field = "local.person.name"
)

var nameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*(\.[A-Za-z0-9_-]+)+$`)

// Parse checks the syntax of a field name.
func Parse(s string) (Field, error) {
	s = strings.TrimSpace(s)
	if !nameRe.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	return Field(s), nil
}

// Namespace returns the part of the name before the first dot.
func (f Field) Namespace() string {
	ns, _, _ := strings.Cut(string(f), ".")
	return ns
}

func (f Field) String() string {
	return string(f)
}

// Registry keeps namespaces that are accepted for writing.
// The zero value is not usable, use NewRegistry.
type Registry struct {
	mu         sync.RWMutex
	namespaces map[string]struct{}
}

// NewRegistry creates a registry with dc, irts and local namespaces
// and any additional ones given.
func NewRegistry(namespaces ...string) *Registry {
	res := &Registry{namespaces: make(map[string]struct{})}
	for _, v := range append([]string{"dc", "irts", "local"}, namespaces...) {
		res.namespaces[v] = struct{}{}
	}
	return res
}

// Register adds namespaces to the registry. Source connectors register
// their own name so that unmapped elements fall back to "source.element".
func (r *Registry) Register(namespaces ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range namespaces {
		r.namespaces[v] = struct{}{}
	}
}

// Namespaces returns registered namespaces in sorted order.
func (r *Registry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]string, 0, len(r.namespaces))
	for k := range r.namespaces {
		res = append(res, k)
	}
	slices.Sort(res)
	return res
}

// Validate checks syntax and namespace of a field.
func (r *Registry) Validate(f Field) error {
	if _, err := Parse(string(f)); err != nil {
		return err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.namespaces[f.Namespace()]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknown, f)
	}
	return nil
}

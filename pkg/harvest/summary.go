package harvest

import (
	"fmt"
	"strings"
	"time"
)

// Summary describes the harvest of one source.
type Summary struct {
	Source string
	RunID  string
	Mode   Mode

	// All is the number of stored items, skipped and failed items are
	// not included.
	All       int
	New       int
	Modified  int
	Unchanged int
	Skipped   int
	Errors    int
	Admitted  int

	Duration time.Duration
	Report   []string
}

// Changed is the number of stored items that were new or modified.
func (s Summary) Changed() int {
	return s.All - s.Unchanged
}

func (s *Summary) count(st ItemStatus) {
	switch st {
	case StatusNew:
		s.New++
	case StatusModified:
		s.Modified++
	case StatusUnchanged:
		s.Unchanged++
	case StatusSkipped:
		s.Skipped++
		return
	case StatusError:
		s.Errors++
		return
	}
	s.All++
}

func (s *Summary) log(format string, args ...any) {
	s.Report = append(s.Report, fmt.Sprintf(format, args...))
}

// Text renders the summary for humans.
func (s Summary) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s harvest summary:\n", s.Source)
	fmt.Fprintf(&sb, "  Total: %d\n", s.All)
	fmt.Fprintf(&sb, "  New: %d\n", s.New)
	fmt.Fprintf(&sb, "  Modified: %d\n", s.Modified)
	fmt.Fprintf(&sb, "  Unchanged: %d\n", s.Unchanged)
	fmt.Fprintf(&sb, "  Skipped: %d\n", s.Skipped)
	fmt.Fprintf(&sb, "  Added to process: %d", s.Admitted)
	if s.Errors > 0 {
		fmt.Fprintf(&sb, "\n  Errors: %d", s.Errors)
	}
	return sb.String()
}

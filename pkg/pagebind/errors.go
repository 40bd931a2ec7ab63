package pagebind

import (
	"errors"
	"fmt"
	"strings"

	"github.com/entrhq/pagebind/pkg/by"
)

// ErrNoMatch is returned by SearchContext implementations when a
// criterion matches nothing. Locators translate it into a
// NotFoundError carrying every criterion they attempted.
var ErrNoMatch = errors.New("no element matches criterion")

// NotFoundError reports that none of a member's criteria matched.
type NotFoundError struct {
	// Criteria holds every criterion attempted, in resolution order.
	Criteria []by.Criterion
	// Index is the position of the missing element when a collection
	// item re-resolved positionally; -1 for single-element resolution.
	Index int
}

func newNotFoundError(criteria []by.Criterion) *NotFoundError {
	return &NotFoundError{Criteria: criteria, Index: -1}
}

func (e *NotFoundError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("element %d not found by %s", e.Index, formatCriteria(e.Criteria))
	}
	return fmt.Sprintf("element not found by %s", formatCriteria(e.Criteria))
}

// StaleError reports that a previously resolved handle no longer
// refers to a live node. Proxies recover exactly one StaleError per
// invocation by re-resolving; a second one in the same invocation
// reaches the caller unchanged.
type StaleError struct {
	// Cause is the adapter-level error that revealed the staleness,
	// if any.
	Cause error
}

func (e *StaleError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("stale element reference: %v", e.Cause)
	}
	return "stale element reference"
}

func (e *StaleError) Unwrap() error { return e.Cause }

// IsStale reports whether err marks a stale handle anywhere in its
// chain.
func IsStale(err error) bool {
	var stale *StaleError
	return errors.As(err, &stale)
}

// UnsupportedMemberError reports a member declaration whose shape is
// none of the recognized four (element, widget, element list, widget
// list).
type UnsupportedMemberError struct {
	Member string
	Shape  string
}

func (e *UnsupportedMemberError) Error() string {
	return fmt.Sprintf("member %q has unsupported shape %s", e.Member, e.Shape)
}

// NotWritableError reports a member whose decorated value cannot be
// assigned because the declaration carries no setter.
type NotWritableError struct {
	Member string
}

func (e *NotWritableError) Error() string {
	return fmt.Sprintf("member %q is not writable", e.Member)
}

// PopulateError reports the outcome of a failed or partially skipped
// Populate run. Member and Err name the first failure when the run
// aborted; Skipped lists the members left unassigned when the factory
// skips unsupported declarations, so nothing fails silently.
type PopulateError struct {
	Member  string
	Skipped []string
	Err     error
}

func (e *PopulateError) Error() string {
	switch {
	case e.Err != nil && len(e.Skipped) > 0:
		return fmt.Sprintf("populating member %q: %v (skipped: %s)",
			e.Member, e.Err, strings.Join(e.Skipped, ", "))
	case e.Err != nil:
		return fmt.Sprintf("populating member %q: %v", e.Member, e.Err)
	default:
		return fmt.Sprintf("populate skipped members: %s", strings.Join(e.Skipped, ", "))
	}
}

func (e *PopulateError) Unwrap() error { return e.Err }

func formatCriteria(criteria []by.Criterion) string {
	if len(criteria) == 0 {
		return "(no criteria)"
	}
	parts := make([]string, 0, len(criteria))
	for _, c := range criteria {
		parts = append(parts, c.String())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

package pagebind

import (
	"context"
	"fmt"

	"github.com/entrhq/pagebind/pkg/by"
)

// memberKind is the closed set of declared member shapes the decorator
// recognizes. Anything else fails with UnsupportedMemberError.
type memberKind int

const (
	kindInvalid memberKind = iota
	kindElement
	kindWidget
	kindElementList
	kindWidgetList
)

func (k memberKind) String() string {
	switch k {
	case kindElement:
		return "element"
	case kindWidget:
		return "widget"
	case kindElementList:
		return "element list"
	case kindWidgetList:
		return "widget list"
	default:
		return fmt.Sprintf("unrecognized(%d)", int(k))
	}
}

// Member is one declared binding: a named page-object field, the
// criteria that locate it, and a typed setter receiving the decorated
// value. Members are created through Binder methods; a zero Member has
// no recognized shape and fails decoration.
type Member struct {
	name     string
	kind     memberKind
	criteria []by.Criterion
	fresh    bool

	// Exactly one of these is non-nil, matching kind. The widget
	// variants carry the type-specific construction the generic bind
	// functions captured at declaration time.
	setElement  func(Element)
	setElements func(*Elements)
	bindWidget  func(ctx context.Context, env *bindEnv, root Element) error
	bindList    func(env *bindEnv, els *Elements) error
}

// Name returns the member's declared name.
func (m *Member) Name() string { return m.name }

// Criteria returns the member's criteria in declaration order.
func (m *Member) Criteria() []by.Criterion {
	out := make([]by.Criterion, len(m.criteria))
	copy(out, m.criteria)
	return out
}

// Fresh disables handle caching for this member: every capability
// invocation re-resolves. For collection members the items resolve
// per invocation too. Staleness recovery still applies within each
// invocation.
func (m *Member) Fresh() *Member {
	m.fresh = true
	return m
}

// writable reports whether the declaration carries a setter for its
// shape. The factory checks it before decorating so the decorated
// value is never built for a member that cannot accept it.
func (m *Member) writable() bool {
	switch m.kind {
	case kindElement:
		return m.setElement != nil
	case kindWidget:
		return m.bindWidget != nil
	case kindElementList:
		return m.setElements != nil
	case kindWidgetList:
		return m.bindList != nil
	default:
		return false
	}
}

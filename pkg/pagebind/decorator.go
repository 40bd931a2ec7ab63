package pagebind

import (
	"context"
)

// bindEnv is what widget construction closures need from the factory:
// the activator hook and the recursive entry back into member binding
// for nested page objects.
type bindEnv struct {
	activate Activator
	populate func(ctx context.Context, page Bindable, sc SearchContext) error
}

// decorate builds the value for one declared member and hands it to
// the member's setter. sc is the search root the member's criteria
// resolve against: the factory's own context for top-level members, a
// widget's root element for nested ones.
//
// Dispatch is a closed switch over the four recognized shapes, checked
// in declaration order of preference: element, widget, element list,
// widget list. Anything else is *UnsupportedMemberError. Writability
// is checked before any proxy is built so the decorated value is never
// constructed for a member that cannot accept it.
func (f *Factory) decorate(ctx context.Context, m *Member, sc SearchContext) error {
	switch m.kind {
	case kindElement, kindWidget, kindElementList, kindWidgetList:
	default:
		return &UnsupportedMemberError{Member: m.name, Shape: m.kind.String()}
	}
	if !m.writable() {
		return &NotWritableError{Member: m.name}
	}

	locator := f.locators(sc)
	opts := ProxyOptions{
		Fresh:  m.fresh || f.freshDefault,
		Logger: f.log,
	}

	switch m.kind {
	case kindElement:
		m.setElement(NewProxy(locator, m.criteria, opts))
	case kindWidget:
		root := NewProxy(locator, m.criteria, opts)
		return m.bindWidget(ctx, f.env, root)
	case kindElementList:
		m.setElements(NewElements(locator, m.criteria, opts))
	case kindWidgetList:
		return m.bindList(f.env, NewElements(locator, m.criteria, opts))
	}
	return nil
}

package pagebind

import (
	"context"
	"fmt"
)

// Widget is implemented by wrapper types: user structs that embed
// WidgetBase and treat one element as their root. A widget is itself a
// page object; when it implements Bindable its members are declared
// against a search context rooted at its element, so a widget's parts
// heal together with the widget.
//
// A widget type that declares a member of its own type never finishes
// decorating; keep widget graphs acyclic.
type Widget interface {
	// Root returns the element the widget was decorated around.
	Root() Element

	attach(root Element)
}

// WidgetBase carries a widget's root element. Embed it by value in
// wrapper structs; the zero value is ready and the root is attached
// during decoration.
type WidgetBase struct {
	root Element
}

// Root returns the element this widget was decorated around. It is nil
// until the widget is bound.
func (w *WidgetBase) Root() Element { return w.root }

func (w *WidgetBase) attach(root Element) { w.root = root }

// WidgetPtr constrains a type parameter to *W implementing Widget,
// which any pointer to a struct embedding WidgetBase satisfies.
type WidgetPtr[W any] interface {
	*W
	Widget
}

// Activator initializes freshly constructed widgets. It runs after the
// root element is attached and before nested members are bound, so it
// can finish construction that needs more than the zero value. Errors
// abort that member's decoration and propagate unchanged.
type Activator func(ctx context.Context, w Widget) error

// List is the lazy widget-sequence bound to sequence-of-wrapper
// members. Like Elements it caches nothing: each enumeration re-runs
// the collection query and decorates a fresh widget per element,
// nested members included.
type List[W any] struct {
	elements *Elements
	build    func(ctx context.Context, root Element) (*W, error)
}

// All decorates one widget per currently matched element, in match
// order.
func (l *List[W]) All(ctx context.Context) ([]*W, error) {
	els, err := l.elements.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*W, len(els))
	for i, el := range els {
		w, err := l.build(ctx, el)
		if err != nil {
			return nil, fmt.Errorf("widget %d: %w", i, err)
		}
		out[i] = w
	}
	return out, nil
}

// Count reports how many elements currently match, without building
// widgets.
func (l *List[W]) Count(ctx context.Context) (int, error) {
	return l.elements.Count(ctx)
}

// Nth decorates one widget around the i-th match. Nested members are
// bound immediately but stay lazy; the locator is not consulted until
// something is used.
func (l *List[W]) Nth(ctx context.Context, i int) (*W, error) {
	return l.build(ctx, l.elements.Nth(i))
}

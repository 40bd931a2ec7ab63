package pagebind

import (
	"context"
	"fmt"

	"github.com/entrhq/pagebind/pkg/by"
)

// Bindable is the page-object contract: a type declares its bound
// members against the Binder it is handed. DeclareMembers runs on
// every Populate, so declarations must be deterministic and must not
// hold on to the Binder.
type Bindable interface {
	DeclareMembers(b *Binder)
}

// Binder collects member declarations. Bad declarations never panic;
// they are recorded and surface as errors when the page is populated.
//
// Element and list members are declared through methods. Widget
// members need a type parameter, so they are declared through the
// top-level BindWidget and BindWidgetList functions.
type Binder struct {
	members []*Member
	errs    []error
}

// Element declares a single-element member. The setter receives the
// lazy proxy; a nil setter makes the member fail with
// *NotWritableError when populated.
func (b *Binder) Element(name string, set func(Element), criteria ...by.Criterion) *Member {
	if !b.check(name, criteria) {
		return &Member{}
	}
	return b.add(&Member{
		name:       name,
		kind:       kindElement,
		criteria:   by.Dedupe(criteria),
		setElement: set,
	})
}

// Elements declares a multi-element member. The setter receives the
// always-fresh collection proxy.
func (b *Binder) Elements(name string, set func(*Elements), criteria ...by.Criterion) *Member {
	if !b.check(name, criteria) {
		return &Member{}
	}
	return b.add(&Member{
		name:        name,
		kind:        kindElementList,
		criteria:    by.Dedupe(criteria),
		setElements: set,
	})
}

// Members returns the declarations collected so far, in declaration
// order.
func (b *Binder) Members() []*Member {
	out := make([]*Member, len(b.members))
	copy(out, b.members)
	return out
}

// Err returns the first declaration problem recorded, if any.
func (b *Binder) Err() error {
	if len(b.errs) == 0 {
		return nil
	}
	return b.errs[0]
}

// RecordError notes a declaration problem that surfaces when the page
// is populated. Declaration helpers built on top of the binder use it
// to report their own failures without panicking mid-declaration.
func (b *Binder) RecordError(err error) {
	if err != nil {
		b.errs = append(b.errs, err)
	}
}

func (b *Binder) add(m *Member) *Member {
	b.members = append(b.members, m)
	return m
}

// check validates the parts every declaration shares. Failing
// declarations are dropped; the recorded error surfaces on Populate.
func (b *Binder) check(name string, criteria []by.Criterion) bool {
	if name == "" {
		b.errs = append(b.errs, fmt.Errorf("member declared with empty name"))
		return false
	}
	for _, m := range b.members {
		if m.name == name {
			b.errs = append(b.errs, fmt.Errorf("member %q declared twice", name))
			return false
		}
	}
	if len(criteria) == 0 {
		b.errs = append(b.errs, fmt.Errorf("member %q declared with no criteria", name))
		return false
	}
	for _, c := range criteria {
		if c.Zero() {
			b.errs = append(b.errs, fmt.Errorf("member %q declared with a zero criterion", name))
			return false
		}
	}
	return true
}

// BindWidget declares a single-widget member on b. W is the wrapper
// struct type embedding WidgetBase; the setter receives the populated
// *W. The widget's root element is the lazy proxy for the criteria,
// and if *W implements Bindable its own members are bound against a
// search context rooted at that element.
func BindWidget[W any, PW WidgetPtr[W]](b *Binder, name string, set func(PW), criteria ...by.Criterion) *Member {
	if !b.check(name, criteria) {
		return &Member{}
	}
	m := &Member{
		name:     name,
		kind:     kindWidget,
		criteria: by.Dedupe(criteria),
	}
	if set != nil {
		m.bindWidget = func(ctx context.Context, env *bindEnv, root Element) error {
			w, err := buildWidget[W, PW](ctx, env, name, root)
			if err != nil {
				return err
			}
			set(w)
			return nil
		}
	}
	return b.add(m)
}

// BindWidgetList declares a sequence-of-widget member on b. The setter
// receives a List that decorates a fresh widget per matched element on
// every enumeration.
func BindWidgetList[W any, PW WidgetPtr[W]](b *Binder, name string, set func(*List[W]), criteria ...by.Criterion) *Member {
	if !b.check(name, criteria) {
		return &Member{}
	}
	m := &Member{
		name:     name,
		kind:     kindWidgetList,
		criteria: by.Dedupe(criteria),
	}
	if set != nil {
		m.bindList = func(env *bindEnv, els *Elements) error {
			set(&List[W]{
				elements: els,
				build: func(ctx context.Context, root Element) (*W, error) {
					w, err := buildWidget[W, PW](ctx, env, name, root)
					if err != nil {
						return nil, err
					}
					return (*W)(w), nil
				},
			})
			return nil
		}
	}
	return b.add(m)
}

// buildWidget constructs, activates and recursively binds one widget
// around root.
func buildWidget[W any, PW WidgetPtr[W]](ctx context.Context, env *bindEnv, name string, root Element) (PW, error) {
	var zero PW
	w := PW(new(W))
	w.attach(root)
	if env.activate != nil {
		if err := env.activate(ctx, w); err != nil {
			return zero, fmt.Errorf("activating widget %q: %w", name, err)
		}
	}
	if nested, ok := any(w).(Bindable); ok {
		if err := env.populate(ctx, nested, root); err != nil {
			return zero, fmt.Errorf("binding nested members of %q: %w", name, err)
		}
	}
	return w, nil
}

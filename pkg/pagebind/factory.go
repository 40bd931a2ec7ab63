package pagebind

import (
	"context"
	"errors"
	"fmt"

	"github.com/gobwas/glob"

	"github.com/entrhq/pagebind/pkg/logging"
)

// Factory populates page objects: it runs a page's member
// declarations, decorates each selected member and assigns the result
// through the member's setter. The factory owns assignment policy;
// decoration itself never writes.
//
// Construct with New; the zero Factory is not usable.
type Factory struct {
	sc              SearchContext
	locators        LocatorFactory
	activate        Activator
	log             *logging.Logger
	skipUnsupported bool
	freshDefault    bool
	only            []glob.Glob
	exclude         []glob.Glob
	optErrs         []error

	env *bindEnv
}

// Option configures a Factory.
type Option func(*Factory)

// WithActivator sets the hook run on each freshly constructed widget
// before its nested members are bound. A nil activator is ignored.
func WithActivator(a Activator) Option {
	return func(f *Factory) {
		if a != nil {
			f.activate = a
		}
	}
}

// WithLogger routes the factory's and its proxies' debug traces to l.
func WithLogger(l *logging.Logger) Option {
	return func(f *Factory) {
		if l != nil {
			f.log = l
		}
	}
}

// WithLocatorFactory replaces how locators are built over search
// contexts, e.g. to instrument or wrap resolution.
func WithLocatorFactory(lf LocatorFactory) Option {
	return func(f *Factory) {
		if lf != nil {
			f.locators = lf
		}
	}
}

// WithSkipUnsupported makes Populate record members that fail with
// *UnsupportedMemberError and continue instead of aborting. Skipped
// members are reported on the returned *PopulateError so nothing is
// silent.
func WithSkipUnsupported() Option {
	return func(f *Factory) {
		f.skipUnsupported = true
	}
}

// WithFreshElements makes every bound member resolve on each use
// instead of caching handles, as if each were declared Fresh.
func WithFreshElements() Option {
	return func(f *Factory) {
		f.freshDefault = true
	}
}

// WithOnly restricts Populate to members whose names match at least
// one of the glob patterns. Filters apply to top-level members only;
// nested widget members always bind with their widget.
func WithOnly(patterns ...string) Option {
	return func(f *Factory) {
		for _, p := range patterns {
			g, err := glob.Compile(p)
			if err != nil {
				f.optErrs = append(f.optErrs, fmt.Errorf("only pattern %q: %w", p, err))
				continue
			}
			f.only = append(f.only, g)
		}
	}
}

// WithExclude drops members whose names match any of the glob
// patterns. Exclusions win over WithOnly. Top-level members only.
func WithExclude(patterns ...string) Option {
	return func(f *Factory) {
		for _, p := range patterns {
			g, err := glob.Compile(p)
			if err != nil {
				f.optErrs = append(f.optErrs, fmt.Errorf("exclude pattern %q: %w", p, err))
				continue
			}
			f.exclude = append(f.exclude, g)
		}
	}
}

// New returns a Factory that resolves members against sc.
func New(sc SearchContext, opts ...Option) *Factory {
	f := &Factory{
		sc:       sc,
		locators: NewLocator,
		log:      logging.Null(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.env = &bindEnv{
		activate: f.activate,
		populate: func(ctx context.Context, page Bindable, root SearchContext) error {
			return f.populate(ctx, page, root, false)
		},
	}
	return f
}

// Populate binds every selected member the page declares. The default
// policy aborts on the first failure, returning a *PopulateError that
// names the member; see WithSkipUnsupported for the skipping policy.
// Populate can be called again at any time to re-decorate from
// scratch.
func (f *Factory) Populate(ctx context.Context, page Bindable) error {
	return f.populate(ctx, page, f.sc, true)
}

func (f *Factory) populate(ctx context.Context, page Bindable, sc SearchContext, top bool) error {
	if len(f.optErrs) > 0 {
		return fmt.Errorf("factory options: %w", f.optErrs[0])
	}

	b := &Binder{}
	page.DeclareMembers(b)
	if err := b.Err(); err != nil {
		return fmt.Errorf("member declarations: %w", err)
	}

	var skipped []string
	for _, m := range b.members {
		if top && !f.selected(m.name) {
			continue
		}
		err := f.decorate(ctx, m, sc)
		if err == nil {
			f.log.Debugf("factory:populate", "bound member %q (%s)", m.name, m.kind)
			continue
		}
		var unsupported *UnsupportedMemberError
		if f.skipUnsupported && errors.As(err, &unsupported) {
			f.log.Debugf("factory:populate", "skipping member %q: %v", m.name, err)
			skipped = append(skipped, m.name)
			continue
		}
		return &PopulateError{Member: m.name, Skipped: skipped, Err: err}
	}
	if len(skipped) > 0 {
		return &PopulateError{Skipped: skipped}
	}
	return nil
}

// selected applies the only/exclude member filters.
func (f *Factory) selected(name string) bool {
	if len(f.only) > 0 {
		matched := false
		for _, g := range f.only {
			if g.Match(name) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, g := range f.exclude {
		if g.Match(name) {
			return false
		}
	}
	return true
}

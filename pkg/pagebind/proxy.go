package pagebind

import (
	"context"
	"sync"

	"github.com/entrhq/pagebind/pkg/by"
	"github.com/entrhq/pagebind/pkg/logging"
)

// ProxyOptions configures proxy construction.
type ProxyOptions struct {
	// Fresh disables handle caching: every invocation re-resolves.
	// Staleness recovery still applies within each invocation.
	Fresh bool
	// Logger receives debug traces. Nil means no logging.
	Logger *logging.Logger
}

// ElementProxy is the lazy, self-healing Element this package binds
// into page objects. It resolves on first use and caches the handle;
// when an invocation reports a stale handle it discards the cache,
// resolves once more and retries the invocation once. A second
// staleness inside the same invocation reaches the caller unchanged,
// as does any non-stale failure, which also leaves the cache alone.
//
// A mutex serializes the cache slot and the recovery step, so a proxy
// is safe to share across goroutines; proxies never coordinate with
// each other.
type ElementProxy struct {
	locator  Locator
	criteria []by.Criterion
	fresh    bool
	log      *logging.Logger

	mu     sync.Mutex
	cached Element
}

// NewProxy returns a lazy proxy over the criteria. Construction never
// touches the locator: resolution happens on first use. Criteria are
// deduplicated, keeping first occurrences; the list must not be empty
// or every use will fail with a *NotFoundError.
func NewProxy(locator Locator, criteria []by.Criterion, opts ProxyOptions) *ElementProxy {
	log := opts.Logger
	if log == nil {
		log = logging.Null()
	}
	return &ElementProxy{
		locator:  locator,
		criteria: by.Dedupe(criteria),
		fresh:    opts.Fresh,
		log:      log,
	}
}

var _ Element = (*ElementProxy)(nil)

// Criteria returns the criteria the proxy resolves, deduplicated and
// in resolution order.
func (p *ElementProxy) Criteria() []by.Criterion {
	out := make([]by.Criterion, len(p.criteria))
	copy(out, p.criteria)
	return out
}

// prime seeds the cache with an already resolved handle so a freshly
// enumerated collection item skips a redundant first resolution.
func (p *ElementProxy) prime(el Element) {
	p.mu.Lock()
	p.cached = el
	p.mu.Unlock()
}

// element returns the working handle, resolving when the cache is
// empty or the proxy is in fresh mode. Callers hold p.mu.
func (p *ElementProxy) element(ctx context.Context) (Element, error) {
	if !p.fresh && p.cached != nil {
		return p.cached, nil
	}
	el, err := p.locator.ResolveOne(ctx, p.criteria)
	if err != nil {
		return nil, err
	}
	p.cached = el
	return el, nil
}

// withElement runs op through the resolve, invoke, recover pipeline
// described on ElementProxy.
func (p *ElementProxy) withElement(ctx context.Context, name string, op func(Element) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	el, err := p.element(ctx)
	if err != nil {
		return err
	}
	err = op(el)
	if err == nil || !IsStale(err) {
		return err
	}

	// One recovery per invocation: drop the cache, resolve again,
	// retry once. Whatever the retry returns is final.
	p.log.Debugf("proxy:retry", "stale handle on %s for %s, re-resolving", name, formatCriteria(p.criteria))
	p.cached = nil
	el, rerr := p.element(ctx)
	if rerr != nil {
		return rerr
	}
	return op(el)
}

func (p *ElementProxy) Click(ctx context.Context) error {
	return p.withElement(ctx, "Click", func(el Element) error {
		return el.Click(ctx)
	})
}

func (p *ElementProxy) Fill(ctx context.Context, value string) error {
	return p.withElement(ctx, "Fill", func(el Element) error {
		return el.Fill(ctx, value)
	})
}

func (p *ElementProxy) Type(ctx context.Context, text string) error {
	return p.withElement(ctx, "Type", func(el Element) error {
		return el.Type(ctx, text)
	})
}

func (p *ElementProxy) Press(ctx context.Context, key string) error {
	return p.withElement(ctx, "Press", func(el Element) error {
		return el.Press(ctx, key)
	})
}

func (p *ElementProxy) Hover(ctx context.Context) error {
	return p.withElement(ctx, "Hover", func(el Element) error {
		return el.Hover(ctx)
	})
}

func (p *ElementProxy) Focus(ctx context.Context) error {
	return p.withElement(ctx, "Focus", func(el Element) error {
		return el.Focus(ctx)
	})
}

func (p *ElementProxy) Text(ctx context.Context) (string, error) {
	var out string
	err := p.withElement(ctx, "Text", func(el Element) error {
		var opErr error
		out, opErr = el.Text(ctx)
		return opErr
	})
	return out, err
}

func (p *ElementProxy) TagName(ctx context.Context) (string, error) {
	var out string
	err := p.withElement(ctx, "TagName", func(el Element) error {
		var opErr error
		out, opErr = el.TagName(ctx)
		return opErr
	})
	return out, err
}

func (p *ElementProxy) Attribute(ctx context.Context, name string) (string, bool, error) {
	var (
		out     string
		present bool
	)
	err := p.withElement(ctx, "Attribute", func(el Element) error {
		var opErr error
		out, present, opErr = el.Attribute(ctx, name)
		return opErr
	})
	return out, present, err
}

func (p *ElementProxy) IsVisible(ctx context.Context) (bool, error) {
	var out bool
	err := p.withElement(ctx, "IsVisible", func(el Element) error {
		var opErr error
		out, opErr = el.IsVisible(ctx)
		return opErr
	})
	return out, err
}

func (p *ElementProxy) IsEnabled(ctx context.Context) (bool, error) {
	var out bool
	err := p.withElement(ctx, "IsEnabled", func(el Element) error {
		var opErr error
		out, opErr = el.IsEnabled(ctx)
		return opErr
	})
	return out, err
}

func (p *ElementProxy) IsChecked(ctx context.Context) (bool, error) {
	var out bool
	err := p.withElement(ctx, "IsChecked", func(el Element) error {
		var opErr error
		out, opErr = el.IsChecked(ctx)
		return opErr
	})
	return out, err
}

// Find scopes a search to the proxied element. The find itself runs
// through the pipeline, so a stale root heals before the scoped
// search; a miss inside the element is ErrNoMatch, not a retry.
func (p *ElementProxy) Find(ctx context.Context, c by.Criterion) (Element, error) {
	var out Element
	err := p.withElement(ctx, "Find", func(el Element) error {
		var opErr error
		out, opErr = el.Find(ctx, c)
		return opErr
	})
	return out, err
}

func (p *ElementProxy) FindAll(ctx context.Context, c by.Criterion) ([]Element, error) {
	var out []Element
	err := p.withElement(ctx, "FindAll", func(el Element) error {
		var opErr error
		out, opErr = el.FindAll(ctx, c)
		return opErr
	})
	return out, err
}

package pagebind

import (
	"context"

	"github.com/entrhq/pagebind/pkg/by"
	"github.com/entrhq/pagebind/pkg/logging"
)

// Elements is the always-fresh collection proxy bound to multi-element
// members. The collection itself caches nothing: every enumeration
// re-queries the locator, so element counts that change between reads
// are always reflected. Each returned item is its own ElementProxy,
// bound to its position, with independent lazy/cached/retry behavior
// for the scope of one enumeration.
type Elements struct {
	locator  Locator
	criteria []by.Criterion
	fresh    bool
	log      *logging.Logger
}

// NewElements returns a collection proxy over the criteria. Items
// inherit opts; the collection itself is always fresh regardless of
// opts.Fresh.
func NewElements(locator Locator, criteria []by.Criterion, opts ProxyOptions) *Elements {
	log := opts.Logger
	if log == nil {
		log = logging.Null()
	}
	return &Elements{
		locator:  locator,
		criteria: by.Dedupe(criteria),
		fresh:    opts.Fresh,
		log:      log,
	}
}

// Criteria returns the criteria the collection resolves, deduplicated
// and in resolution order.
func (e *Elements) Criteria() []by.Criterion {
	out := make([]by.Criterion, len(e.criteria))
	copy(out, e.criteria)
	return out
}

// All resolves the current matches and returns one proxy per match,
// in match order. Item i re-resolves as the i-th match of the same
// criteria if its handle goes stale, so a shrunken page surfaces a
// *NotFoundError carrying the index.
func (e *Elements) All(ctx context.Context) ([]Element, error) {
	matched, err := e.locator.ResolveAll(ctx, e.criteria)
	if err != nil {
		return nil, err
	}
	e.log.Debugf("elements:all", "%d matches for %s", len(matched), formatCriteria(e.criteria))
	out := make([]Element, len(matched))
	for i, el := range matched {
		item := e.nth(i)
		item.prime(el)
		out[i] = item
	}
	return out, nil
}

// Count returns the number of elements currently matched. Like every
// enumeration it queries the locator anew.
func (e *Elements) Count(ctx context.Context) (int, error) {
	matched, err := e.locator.ResolveAll(ctx, e.criteria)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

// Nth returns a lazy proxy for the i-th match. The locator is not
// consulted until the proxy is used.
func (e *Elements) Nth(i int) Element {
	return e.nth(i)
}

func (e *Elements) nth(i int) *ElementProxy {
	return NewProxy(
		&nthLocator{base: e.locator, index: i},
		e.criteria,
		ProxyOptions{Fresh: e.fresh, Logger: e.log},
	)
}

// nthLocator resolves the i-th match of a criteria union. Collection
// items use it to re-find themselves by position.
type nthLocator struct {
	base  Locator
	index int
}

func (n *nthLocator) ResolveOne(ctx context.Context, criteria []by.Criterion) (Element, error) {
	if n.index < 0 {
		return nil, &NotFoundError{Criteria: criteria, Index: n.index}
	}
	els, err := n.base.ResolveAll(ctx, criteria)
	if err != nil {
		return nil, err
	}
	if n.index >= len(els) {
		return nil, &NotFoundError{Criteria: criteria, Index: n.index}
	}
	return els[n.index], nil
}

func (n *nthLocator) ResolveAll(ctx context.Context, criteria []by.Criterion) ([]Element, error) {
	return n.base.ResolveAll(ctx, criteria)
}

package pagebind

import (
	"context"
	"errors"
	"fmt"

	"github.com/entrhq/pagebind/pkg/by"
)

// Locator resolves ordered criteria lists against a search context.
// Proxies depend on this interface rather than on SearchContext
// directly so resolution can be instrumented or replaced; see
// LocatorFactory.
type Locator interface {
	// ResolveOne returns the first element found by the first
	// criterion that matches anything. Criteria are ordered
	// alternatives with leftmost priority. When none match, the error
	// is a *NotFoundError naming every attempted criterion.
	ResolveOne(ctx context.Context, criteria []by.Criterion) (Element, error)

	// ResolveAll returns the union of matches across all criteria, in
	// criteria order. An empty result is not an error. Elements
	// matched by more than one criterion may appear more than once;
	// deduplication needs handle identity, which not every search
	// context can provide.
	ResolveAll(ctx context.Context, criteria []by.Criterion) ([]Element, error)
}

// LocatorFactory builds the locator used for a given search context.
// The default is NewLocator.
type LocatorFactory func(SearchContext) Locator

// NewLocator returns the standard Locator over sc.
func NewLocator(sc SearchContext) Locator {
	return &contextLocator{sc: sc}
}

type contextLocator struct {
	sc SearchContext
}

func (l *contextLocator) ResolveOne(ctx context.Context, criteria []by.Criterion) (Element, error) {
	for _, c := range criteria {
		el, err := findFirst(ctx, l.sc, c)
		if err == nil {
			return el, nil
		}
		if errors.Is(err, ErrNoMatch) {
			continue
		}
		return nil, fmt.Errorf("finding by %s: %w", c, err)
	}
	return nil, newNotFoundError(criteria)
}

func (l *contextLocator) ResolveAll(ctx context.Context, criteria []by.Criterion) ([]Element, error) {
	var matches []Element
	for _, c := range criteria {
		els, err := findEvery(ctx, l.sc, c)
		if err != nil {
			return nil, fmt.Errorf("finding all by %s: %w", c, err)
		}
		matches = append(matches, els...)
	}
	return matches, nil
}

// findFirst resolves one criterion to its first match. Chained
// criteria resolve through the full expansion so that a parent without
// the wanted child does not shadow a later parent that has one.
func findFirst(ctx context.Context, sc SearchContext, c by.Criterion) (Element, error) {
	if !by.IsChain(c) {
		return sc.Find(ctx, c)
	}
	matches, err := findEvery(ctx, sc, c)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrNoMatch
	}
	return matches[0], nil
}

// findEvery resolves one criterion to all matches. For chained
// criteria each link is searched within every match of the previous
// link, in order.
func findEvery(ctx context.Context, sc SearchContext, c by.Criterion) ([]Element, error) {
	links, err := by.Links(c)
	if err != nil {
		return nil, err
	}
	roots := []SearchContext{sc}
	var matches []Element
	for _, link := range links {
		matches = nil
		for _, root := range roots {
			els, err := root.FindAll(ctx, link)
			if err != nil {
				return nil, err
			}
			matches = append(matches, els...)
		}
		roots = make([]SearchContext, len(matches))
		for i, el := range matches {
			roots[i] = el
		}
	}
	return matches, nil
}

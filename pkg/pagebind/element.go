package pagebind

import (
	"context"

	"github.com/entrhq/pagebind/pkg/by"
)

// SearchContext finds elements by a single criterion. It is the
// resolution primitive everything else is built on: a browser page, a
// resolved element (scoped search) or an offline document.
//
// Implementations never cache and never retry. Find returns ErrNoMatch
// when nothing matches; FindAll returns an empty slice. Staleness
// reporting is the implementation's job: operations on handles whose
// node is gone must return an error recognized by IsStale.
type SearchContext interface {
	// Find returns the first element matching the criterion in
	// document order, or an error wrapping ErrNoMatch if nothing does.
	Find(ctx context.Context, c by.Criterion) (Element, error)

	// FindAll returns every element matching the criterion in document
	// order. No match is an empty slice, not an error.
	FindAll(ctx context.Context, c by.Criterion) ([]Element, error)
}

// Element is the capability surface of one live DOM node. An Element
// is also a SearchContext: finds through it are rooted at the node,
// which is how nested widgets scope their members.
//
// Handles can go stale at any time when the page mutates outside this
// library's control. Proxies bound by this package recover a single
// staleness per invocation; raw adapter handles do not recover at all.
type Element interface {
	SearchContext

	Click(ctx context.Context) error
	Fill(ctx context.Context, value string) error
	Type(ctx context.Context, text string) error
	Press(ctx context.Context, key string) error
	Hover(ctx context.Context) error
	Focus(ctx context.Context) error

	Text(ctx context.Context) (string, error)
	TagName(ctx context.Context) (string, error)
	// Attribute returns the attribute value and whether the attribute
	// is present at all.
	Attribute(ctx context.Context, name string) (string, bool, error)
	IsVisible(ctx context.Context) (bool, error)
	IsEnabled(ctx context.Context) (bool, error)
	IsChecked(ctx context.Context) (bool, error)
}

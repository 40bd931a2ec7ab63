// Package rodctx adapts go-rod pages and elements to the pagebind
// search contexts, for binding page objects over the DevTools protocol
// without a driver server.
//
// Lookups use rod's one-shot Has and Elements forms rather than the
// waiting Element form: retry and waiting policy belongs to the caller
// and to the proxy layer, not to the adapter.
package rodctx

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/entrhq/pagebind/pkg/by"
	"github.com/entrhq/pagebind/pkg/pagebind"
)

// Page wraps a rod.Page as a search context rooted at the document.
type Page struct {
	page *rod.Page
}

// NewPage returns a search context over page.
func NewPage(page *rod.Page) *Page {
	return &Page{page: page}
}

var _ pagebind.SearchContext = (*Page)(nil)

func (p *Page) Find(ctx context.Context, c by.Criterion) (pagebind.Element, error) {
	q, err := Translate(c)
	if err != nil {
		return nil, err
	}
	page := p.page.Context(ctx)
	var (
		has bool
		el  *rod.Element
	)
	if q.XPath != "" {
		has, el, err = page.HasX(q.XPath)
	} else {
		has, el, err = page.Has(q.CSS)
	}
	if err != nil {
		return nil, classify(err)
	}
	if !has {
		return nil, pagebind.ErrNoMatch
	}
	return &Handle{el: el}, nil
}

func (p *Page) FindAll(ctx context.Context, c by.Criterion) ([]pagebind.Element, error) {
	q, err := Translate(c)
	if err != nil {
		return nil, err
	}
	page := p.page.Context(ctx)
	var els rod.Elements
	if q.XPath != "" {
		els, err = page.ElementsX(q.XPath)
	} else {
		els, err = page.Elements(q.CSS)
	}
	if err != nil {
		return nil, classify(err)
	}
	return wrapAll(els), nil
}

// Handle wraps a rod.Element as a pagebind.Element.
type Handle struct {
	el *rod.Element
}

// NewHandle wraps a rod element directly, for callers that already
// hold one.
func NewHandle(el *rod.Element) *Handle {
	return &Handle{el: el}
}

var _ pagebind.Element = (*Handle)(nil)

func (h *Handle) Find(ctx context.Context, c by.Criterion) (pagebind.Element, error) {
	q, err := Translate(c)
	if err != nil {
		return nil, err
	}
	el := h.el.Context(ctx)
	var (
		has   bool
		found *rod.Element
	)
	if q.XPath != "" {
		has, found, err = el.HasX(q.XPath)
	} else {
		has, found, err = el.Has(q.CSS)
	}
	if err != nil {
		return nil, classify(err)
	}
	if !has {
		return nil, pagebind.ErrNoMatch
	}
	return &Handle{el: found}, nil
}

func (h *Handle) FindAll(ctx context.Context, c by.Criterion) ([]pagebind.Element, error) {
	q, err := Translate(c)
	if err != nil {
		return nil, err
	}
	el := h.el.Context(ctx)
	var els rod.Elements
	if q.XPath != "" {
		els, err = el.ElementsX(q.XPath)
	} else {
		els, err = el.Elements(q.CSS)
	}
	if err != nil {
		return nil, classify(err)
	}
	return wrapAll(els), nil
}

func (h *Handle) Click(ctx context.Context) error {
	return classify(h.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1))
}

// Fill selects the current content first so the value replaces it,
// matching the fill semantics of driver-based contexts.
func (h *Handle) Fill(ctx context.Context, value string) error {
	el := h.el.Context(ctx)
	if err := el.SelectAllText(); err != nil {
		return classify(err)
	}
	return classify(el.Input(value))
}

// Type inserts text at the current caret position without clearing.
func (h *Handle) Type(ctx context.Context, text string) error {
	return classify(h.el.Context(ctx).Input(text))
}

// Press sends one named key. Key names follow the W3C UI Events codes
// shared with the other contexts ("Enter", "Tab", "ArrowDown", ...);
// plain text goes through Type instead.
func (h *Handle) Press(ctx context.Context, key string) error {
	k, ok := namedKeys[key]
	if !ok {
		return fmt.Errorf("unknown key %q", key)
	}
	return classify(h.el.Context(ctx).Type(k))
}

func (h *Handle) Hover(ctx context.Context) error {
	return classify(h.el.Context(ctx).Hover())
}

func (h *Handle) Focus(ctx context.Context) error {
	return classify(h.el.Context(ctx).Focus())
}

func (h *Handle) Text(ctx context.Context) (string, error) {
	text, err := h.el.Context(ctx).Text()
	if err != nil {
		return "", classify(err)
	}
	return text, nil
}

func (h *Handle) TagName(ctx context.Context) (string, error) {
	obj, err := h.el.Context(ctx).Eval("() => this.tagName.toLowerCase()")
	if err != nil {
		return "", classify(err)
	}
	return obj.Value.Str(), nil
}

func (h *Handle) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, err := h.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, classify(err)
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (h *Handle) IsVisible(ctx context.Context) (bool, error) {
	visible, err := h.el.Context(ctx).Visible()
	if err != nil {
		return false, classify(err)
	}
	return visible, nil
}

func (h *Handle) IsEnabled(ctx context.Context) (bool, error) {
	disabled, err := h.el.Context(ctx).Disabled()
	if err != nil {
		return false, classify(err)
	}
	return !disabled, nil
}

func (h *Handle) IsChecked(ctx context.Context) (bool, error) {
	v, err := h.el.Context(ctx).Property("checked")
	if err != nil {
		return false, classify(err)
	}
	return v.Bool(), nil
}

func wrapAll(els rod.Elements) []pagebind.Element {
	if len(els) == 0 {
		return nil
	}
	out := make([]pagebind.Element, len(els))
	for i, el := range els {
		out[i] = &Handle{el: el}
	}
	return out
}

// namedKeys maps the portable key names Press accepts onto rod inputs.
var namedKeys = map[string]input.Key{
	"Enter":      input.Enter,
	"Tab":        input.Tab,
	"Escape":     input.Escape,
	"Backspace":  input.Backspace,
	"Delete":     input.Delete,
	"ArrowUp":    input.ArrowUp,
	"ArrowDown":  input.ArrowDown,
	"ArrowLeft":  input.ArrowLeft,
	"ArrowRight": input.ArrowRight,
	"Home":       input.Home,
	"End":        input.End,
	"PageUp":     input.PageUp,
	"PageDown":   input.PageDown,
	"Space":      input.Space,
}

// Query is a translated criterion. Exactly one of CSS and XPath is
// set; text criteria translate to XPath so one-shot lookups stay
// uniform between Find and FindAll.
type Query struct {
	CSS   string
	XPath string
}

// Translate turns a criterion into the rod query that resolves it.
// Chained criteria are rejected: the locator layer resolves chains
// level by level before the adapter is consulted.
func Translate(c by.Criterion) (Query, error) {
	switch c.Strategy {
	case by.StrategyID:
		return cssQuery(attrSelector("id", c.Value)), nil
	case by.StrategyCSS:
		return cssQuery(c.Value), nil
	case by.StrategyXPath:
		return Query{XPath: c.Value}, nil
	case by.StrategyName:
		return cssQuery(attrSelector("name", c.Value)), nil
	case by.StrategyClass:
		return cssQuery(fmt.Sprintf("[class~=%s]", cssQuote(c.Value))), nil
	case by.StrategyTag:
		return cssQuery(c.Value), nil
	case by.StrategyText:
		// Matches elements whose collapsed subtree text equals the
		// value; wrapping elements with no other text also match.
		return Query{XPath: ".//*[normalize-space()=" + xpathLiteral(c.Value) + "]"}, nil
	case by.StrategyLabel:
		return cssQuery(attrSelector("aria-label", c.Value)), nil
	case by.StrategyPlaceholder:
		return cssQuery(attrSelector("placeholder", c.Value)), nil
	case by.StrategyTestID:
		return cssQuery(attrSelector("data-testid", c.Value)), nil
	case by.StrategyTitle:
		return cssQuery(attrSelector("title", c.Value)), nil
	case by.StrategyAltText:
		return cssQuery(attrSelector("alt", c.Value)), nil
	case by.StrategyChain:
		return Query{}, fmt.Errorf("chain criterion %s must be resolved by a locator", c)
	default:
		return Query{}, fmt.Errorf("criterion %s has no rod query", c)
	}
}

func cssQuery(selector string) Query {
	return Query{CSS: selector}
}

func attrSelector(name, value string) string {
	return fmt.Sprintf("[%s=%s]", name, cssQuote(value))
}

func cssQuote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}

// xpathLiteral renders v as an XPath 1.0 string literal. XPath has no
// escape syntax, so values holding both quote kinds need concat.
func xpathLiteral(v string) string {
	if !strings.Contains(v, `"`) {
		return `"` + v + `"`
	}
	if !strings.Contains(v, "'") {
		return "'" + v + "'"
	}
	parts := strings.Split(v, `"`)
	for i, p := range parts {
		parts[i] = `"` + p + `"`
	}
	return "concat(" + strings.Join(parts, `, '"', `) + ")"
}

// staleMarkers are the DevTools protocol failures that mean a node or
// its execution context is gone rather than that an operation failed.
var staleMarkers = []string{
	"could not find node",
	"does not belong to the document",
	"cannot find context with specified id",
	"cannot find object",
}

// classify turns detachment failures into *StaleError so the proxy
// layer can recover; everything else passes through.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range staleMarkers {
		if strings.Contains(msg, marker) {
			return &pagebind.StaleError{Cause: err}
		}
	}
	return err
}

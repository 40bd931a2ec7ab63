// Package pwctx adapts Playwright pages and element handles to the
// pagebind search contexts, so page objects can bind against a live
// Chromium, Firefox or WebKit session driven by playwright-go.
//
// Playwright's client API carries its own timeouts and does not accept
// a context.Context; the adapter honors cancellation by checking the
// context before every call.
package pwctx

import (
	"context"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/pagebind/pkg/by"
	"github.com/entrhq/pagebind/pkg/pagebind"
)

// Page wraps a playwright.Page as a search context rooted at the
// document.
type Page struct {
	page playwright.Page
}

// NewPage returns a search context over page.
func NewPage(page playwright.Page) *Page {
	return &Page{page: page}
}

var _ pagebind.SearchContext = (*Page)(nil)

func (p *Page) Find(ctx context.Context, c by.Criterion) (pagebind.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel, err := Selector(c)
	if err != nil {
		return nil, err
	}
	h, err := p.page.QuerySelector(sel)
	if err != nil {
		return nil, classify(err)
	}
	if h == nil {
		return nil, pagebind.ErrNoMatch
	}
	return &Handle{handle: h}, nil
}

func (p *Page) FindAll(ctx context.Context, c by.Criterion) ([]pagebind.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel, err := Selector(c)
	if err != nil {
		return nil, err
	}
	handles, err := p.page.QuerySelectorAll(sel)
	if err != nil {
		return nil, classify(err)
	}
	return wrapAll(handles), nil
}

// Handle wraps a playwright.ElementHandle as a pagebind.Element.
// Handles go stale when their node is removed or the page navigates;
// the proxy layer recovers by re-resolving, so a Handle is normally
// only seen through an ElementProxy.
type Handle struct {
	handle playwright.ElementHandle
}

// NewHandle wraps an element handle directly, for callers that already
// hold one.
func NewHandle(handle playwright.ElementHandle) *Handle {
	return &Handle{handle: handle}
}

var _ pagebind.Element = (*Handle)(nil)

func (h *Handle) Find(ctx context.Context, c by.Criterion) (pagebind.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel, err := Selector(c)
	if err != nil {
		return nil, err
	}
	found, err := h.handle.QuerySelector(sel)
	if err != nil {
		return nil, classify(err)
	}
	if found == nil {
		return nil, pagebind.ErrNoMatch
	}
	return &Handle{handle: found}, nil
}

func (h *Handle) FindAll(ctx context.Context, c by.Criterion) ([]pagebind.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel, err := Selector(c)
	if err != nil {
		return nil, err
	}
	handles, err := h.handle.QuerySelectorAll(sel)
	if err != nil {
		return nil, classify(err)
	}
	return wrapAll(handles), nil
}

func (h *Handle) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classify(h.handle.Click())
}

func (h *Handle) Fill(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classify(h.handle.Fill(value))
}

func (h *Handle) Type(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classify(h.handle.Type(text))
}

func (h *Handle) Press(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classify(h.handle.Press(key))
}

func (h *Handle) Hover(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classify(h.handle.Hover())
}

func (h *Handle) Focus(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classify(h.handle.Focus())
}

func (h *Handle) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := h.handle.TextContent()
	if err != nil {
		return "", classify(err)
	}
	return text, nil
}

func (h *Handle) TagName(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err := h.handle.Evaluate("el => el.tagName.toLowerCase()")
	if err != nil {
		return "", classify(err)
	}
	tag, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("unexpected tagName result %T", v)
	}
	return tag, nil
}

// Attribute reports the attribute's value and whether it is present.
// Playwright's GetAttribute cannot tell an absent attribute from an
// empty one, so this goes through an evaluation that preserves null.
func (h *Handle) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	v, err := h.handle.Evaluate("(el, name) => el.getAttribute(name)", name)
	if err != nil {
		return "", false, classify(err)
	}
	if v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, fmt.Errorf("unexpected attribute result %T", v)
	}
	return s, true, nil
}

func (h *Handle) IsVisible(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	visible, err := h.handle.IsVisible()
	if err != nil {
		return false, classify(err)
	}
	return visible, nil
}

func (h *Handle) IsEnabled(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	enabled, err := h.handle.IsEnabled()
	if err != nil {
		return false, classify(err)
	}
	return enabled, nil
}

func (h *Handle) IsChecked(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	checked, err := h.handle.IsChecked()
	if err != nil {
		return false, classify(err)
	}
	return checked, nil
}

func wrapAll(handles []playwright.ElementHandle) []pagebind.Element {
	if len(handles) == 0 {
		return nil
	}
	out := make([]pagebind.Element, len(handles))
	for i, handle := range handles {
		out[i] = &Handle{handle: handle}
	}
	return out
}

// Selector translates a criterion into a Playwright selector string.
// Attribute-valued strategies become CSS attribute selectors so values
// never need engine-specific escaping; text uses Playwright's exact
// text engine. Chained criteria translate to Playwright's native
// chained form, which shares the same separator.
func Selector(c by.Criterion) (string, error) {
	if by.IsChain(c) {
		links, err := by.Links(c)
		if err != nil {
			return "", err
		}
		parts := make([]string, len(links))
		for i, link := range links {
			parts[i], err = Selector(link)
			if err != nil {
				return "", err
			}
		}
		return strings.Join(parts, " >> "), nil
	}

	switch c.Strategy {
	case by.StrategyID:
		return attrSelector("id", c.Value), nil
	case by.StrategyCSS:
		return "css=" + c.Value, nil
	case by.StrategyXPath:
		return "xpath=" + c.Value, nil
	case by.StrategyName:
		return attrSelector("name", c.Value), nil
	case by.StrategyClass:
		return fmt.Sprintf("css=[class~=%s]", cssQuote(c.Value)), nil
	case by.StrategyTag:
		return "css=" + c.Value, nil
	case by.StrategyText:
		return "text=" + cssQuote(c.Value), nil
	case by.StrategyLabel:
		return attrSelector("aria-label", c.Value), nil
	case by.StrategyPlaceholder:
		return attrSelector("placeholder", c.Value), nil
	case by.StrategyTestID:
		return attrSelector("data-testid", c.Value), nil
	case by.StrategyTitle:
		return attrSelector("title", c.Value), nil
	case by.StrategyAltText:
		return attrSelector("alt", c.Value), nil
	default:
		return "", fmt.Errorf("criterion %s has no playwright selector", c)
	}
}

func attrSelector(name, value string) string {
	return fmt.Sprintf("css=[%s=%s]", name, cssQuote(value))
}

func cssQuote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}

// staleMarkers are the messages Playwright reports when a handle
// outlives its node or its execution context.
var staleMarkers = []string{
	"not attached to the dom",
	"execution context was destroyed",
	"cannot find context with specified id",
	"cannot find node",
}

// classify turns Playwright detachment failures into *StaleError so
// the proxy layer can recover; everything else passes through.
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

// Package htmlctx adapts parsed static HTML to the pagebind search
// contexts. It serves scraping, offline page-object tests and fixture
// work: read operations behave like their live counterparts, while
// interactions fail with ErrNotInteractive because nothing is running
// the page.
//
// Staleness is modeled structurally: a node counts as stale once it no
// longer reaches the document root, which the mutation helpers
// (AppendHTML, Remove) can cause on purpose.
package htmlctx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/entrhq/pagebind/pkg/by"
	"github.com/entrhq/pagebind/pkg/pagebind"
)

// ErrNotInteractive marks operations that need a live browser session.
var ErrNotInteractive = errors.New("static HTML is not interactive")

// ErrXPathUnsupported marks xpath criteria, which the CSS-based
// matcher cannot serve.
var ErrXPathUnsupported = errors.New("xpath matching needs a browser context")

// Document is a search context over parsed HTML, rooted at the
// document node.
type Document struct {
	doc  *goquery.Document
	root *html.Node
}

// Parse reads and parses an HTML document.
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}
	return &Document{doc: doc, root: doc.Nodes[0]}, nil
}

// ParseString parses an HTML document held in a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

var _ pagebind.SearchContext = (*Document)(nil)

func (d *Document) Find(ctx context.Context, c by.Criterion) (pagebind.Element, error) {
	nodes, err := matchNodes(d.doc.Selection, c)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, pagebind.ErrNoMatch
	}
	return &Node{doc: d, node: nodes[0]}, nil
}

func (d *Document) FindAll(ctx context.Context, c by.Criterion) ([]pagebind.Element, error) {
	nodes, err := matchNodes(d.doc.Selection, c)
	if err != nil {
		return nil, err
	}
	return d.wrapAll(nodes), nil
}

func (d *Document) wrapAll(nodes []*html.Node) []pagebind.Element {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]pagebind.Element, len(nodes))
	for i, node := range nodes {
		out[i] = &Node{doc: d, node: node}
	}
	return out
}

// Node wraps one element node as a pagebind.Element.
type Node struct {
	doc  *Document
	node *html.Node
}

var _ pagebind.Element = (*Node)(nil)

// detached reports whether the node no longer reaches the document
// root.
func (n *Node) detached() bool {
	for p := n.node; p != nil; p = p.Parent {
		if p == n.doc.root {
			return false
		}
	}
	return true
}

func (n *Node) live() error {
	if n.detached() {
		return &pagebind.StaleError{}
	}
	return nil
}

func (n *Node) scope() *goquery.Selection {
	return goquery.NewDocumentFromNode(n.node).Selection
}

func (n *Node) Find(ctx context.Context, c by.Criterion) (pagebind.Element, error) {
	if err := n.live(); err != nil {
		return nil, err
	}
	nodes, err := matchNodes(n.scope(), c)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, pagebind.ErrNoMatch
	}
	return &Node{doc: n.doc, node: nodes[0]}, nil
}

func (n *Node) FindAll(ctx context.Context, c by.Criterion) ([]pagebind.Element, error) {
	if err := n.live(); err != nil {
		return nil, err
	}
	nodes, err := matchNodes(n.scope(), c)
	if err != nil {
		return nil, err
	}
	return n.doc.wrapAll(nodes), nil
}

func (n *Node) Click(ctx context.Context) error           { return n.interact("click") }
func (n *Node) Fill(ctx context.Context, _ string) error  { return n.interact("fill") }
func (n *Node) Type(ctx context.Context, _ string) error  { return n.interact("type") }
func (n *Node) Press(ctx context.Context, _ string) error { return n.interact("press") }
func (n *Node) Hover(ctx context.Context) error           { return n.interact("hover") }
func (n *Node) Focus(ctx context.Context) error           { return n.interact("focus") }

func (n *Node) interact(op string) error {
	if err := n.live(); err != nil {
		return err
	}
	return fmt.Errorf("%s: %w", op, ErrNotInteractive)
}

// Text returns the node's subtree text, unmodified.
func (n *Node) Text(ctx context.Context) (string, error) {
	if err := n.live(); err != nil {
		return "", err
	}
	return n.scope().Text(), nil
}

func (n *Node) TagName(ctx context.Context) (string, error) {
	if err := n.live(); err != nil {
		return "", err
	}
	return strings.ToLower(n.node.Data), nil
}

func (n *Node) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := n.live(); err != nil {
		return "", false, err
	}
	name = strings.ToLower(name)
	for _, attr := range n.node.Attr {
		if attr.Key == name {
			return attr.Val, true, nil
		}
	}
	return "", false, nil
}

// IsVisible applies a static heuristic: hidden attributes and inline
// display:none count as invisible, everything else as visible. Layout
// is a browser concern.
func (n *Node) IsVisible(ctx context.Context) (bool, error) {
	if err := n.live(); err != nil {
		return false, err
	}
	if _, hidden, _ := n.Attribute(ctx, "hidden"); hidden {
		return false, nil
	}
	if typ, ok, _ := n.Attribute(ctx, "type"); ok && typ == "hidden" {
		return false, nil
	}
	if style, ok, _ := n.Attribute(ctx, "style"); ok {
		collapsed := strings.ReplaceAll(style, " ", "")
		if strings.Contains(collapsed, "display:none") {
			return false, nil
		}
	}
	return true, nil
}

func (n *Node) IsEnabled(ctx context.Context) (bool, error) {
	if err := n.live(); err != nil {
		return false, err
	}
	_, disabled, _ := n.Attribute(ctx, "disabled")
	return !disabled, nil
}

func (n *Node) IsChecked(ctx context.Context) (bool, error) {
	if err := n.live(); err != nil {
		return false, err
	}
	_, checked, _ := n.Attribute(ctx, "checked")
	return checked, nil
}

// AppendHTML parses fragment in the node's context and appends the
// results as its last children, so dynamic DOM growth can be rehearsed
// without a browser.
func (n *Node) AppendHTML(fragment string) error {
	if err := n.live(); err != nil {
		return err
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), n.node)
	if err != nil {
		return fmt.Errorf("parsing fragment: %w", err)
	}
	for _, node := range nodes {
		n.node.AppendChild(node)
	}
	return nil
}

// Remove detaches the node from its parent. Handles held on the node
// or anything under it observe staleness afterwards.
func (n *Node) Remove() error {
	if err := n.live(); err != nil {
		return err
	}
	if n.node.Parent == nil {
		return fmt.Errorf("document root cannot be removed")
	}
	n.node.Parent.RemoveChild(n.node)
	return nil
}

// matchNodes resolves one criterion inside scope. Scoped matching
// covers descendants only, never the scope itself.
func matchNodes(scope *goquery.Selection, c by.Criterion) ([]*html.Node, error) {
	switch c.Strategy {
	case by.StrategyText:
		return textMatches(scope, c.Value), nil
	case by.StrategyXPath:
		return nil, fmt.Errorf("criterion %s: %w", c, ErrXPathUnsupported)
	case by.StrategyChain:
		return nil, fmt.Errorf("chain criterion %s must be resolved by a locator", c)
	default:
		sel, err := cssSelector(c)
		if err != nil {
			return nil, err
		}
		return scope.Find(sel).Nodes, nil
	}
}

// textMatches finds elements whose directly held text, trimmed, equals
// value. Only the element's own text nodes count, so the innermost
// wrapper matches rather than every ancestor.
func textMatches(scope *goquery.Selection, value string) []*html.Node {
	var out []*html.Node
	scope.Find("*").Each(func(_ int, s *goquery.Selection) {
		node := s.Nodes[0]
		if strings.TrimSpace(ownText(node)) == value {
			out = append(out, node)
		}
	})
	return out
}

func ownText(n *html.Node) string {
	var b strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			b.WriteString(child.Data)
		}
	}
	return b.String()
}

func cssSelector(c by.Criterion) (string, error) {
	switch c.Strategy {
	case by.StrategyID:
		return attrSelector("id", c.Value), nil
	case by.StrategyCSS:
		return c.Value, nil
	case by.StrategyName:
		return attrSelector("name", c.Value), nil
	case by.StrategyClass:
		return fmt.Sprintf("[class~=%s]", cssQuote(c.Value)), nil
	case by.StrategyTag:
		return c.Value, nil
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
		return "", fmt.Errorf("criterion %s has no css selector", c)
	}
}

func attrSelector(name, value string) string {
	return fmt.Sprintf("[%s=%s]", name, cssQuote(value))
}

func cssQuote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}

// Package by defines locator criteria: the strategy+value pairs page
// objects use to declare where their elements live. Criteria are plain
// comparable values, so ordered lists can be deduplicated and criteria
// can key maps.
package by

import (
	"fmt"
	"strings"
)

// Strategy identifies how a criterion's value is interpreted when
// searching a page.
type Strategy string

const (
	StrategyID          Strategy = "id"
	StrategyCSS         Strategy = "css"
	StrategyXPath       Strategy = "xpath"
	StrategyName        Strategy = "name"
	StrategyClass       Strategy = "class"
	StrategyTag         Strategy = "tag"
	StrategyText        Strategy = "text"
	StrategyLabel       Strategy = "label"
	StrategyPlaceholder Strategy = "placeholder"
	StrategyTestID      Strategy = "testid"
	StrategyTitle       Strategy = "title"
	StrategyAltText     Strategy = "alt"

	// StrategyChain marks a criterion built by Chain. Its value is the
	// serialized link list; use Links to take it apart.
	StrategyChain Strategy = "chain"
)

// chainSep separates the links of a chained criterion. It matches the
// chaining operator selector engines use, so serialized chains read
// naturally in logs and page map files.
const chainSep = " >> "

var strategies = map[Strategy]bool{
	StrategyID:          true,
	StrategyCSS:         true,
	StrategyXPath:       true,
	StrategyName:        true,
	StrategyClass:       true,
	StrategyTag:         true,
	StrategyText:        true,
	StrategyLabel:       true,
	StrategyPlaceholder: true,
	StrategyTestID:      true,
	StrategyTitle:       true,
	StrategyAltText:     true,
	StrategyChain:       true,
}

// Criterion is one locator strategy+value pair. Two criteria are equal
// when both fields are equal; resolution treats a member's criteria as
// ordered alternatives with leftmost priority.
type Criterion struct {
	Strategy Strategy
	Value    string
}

// String renders the criterion in the strategy=value form Parse reads.
func (c Criterion) String() string {
	return string(c.Strategy) + "=" + c.Value
}

// Zero reports whether the criterion is the zero value, which no
// search context can resolve.
func (c Criterion) Zero() bool {
	return c.Strategy == "" && c.Value == ""
}

// ID matches the element whose id attribute equals value.
func ID(value string) Criterion { return Criterion{Strategy: StrategyID, Value: value} }

// CSS matches elements by CSS selector.
func CSS(selector string) Criterion { return Criterion{Strategy: StrategyCSS, Value: selector} }

// XPath matches elements by XPath expression.
func XPath(expr string) Criterion { return Criterion{Strategy: StrategyXPath, Value: expr} }

// Name matches elements whose name attribute equals value.
func Name(value string) Criterion { return Criterion{Strategy: StrategyName, Value: value} }

// ClassName matches elements carrying the given class.
func ClassName(value string) Criterion { return Criterion{Strategy: StrategyClass, Value: value} }

// Tag matches elements by tag name.
func Tag(value string) Criterion { return Criterion{Strategy: StrategyTag, Value: value} }

// Text matches elements whose visible text equals value.
func Text(value string) Criterion { return Criterion{Strategy: StrategyText, Value: value} }

// Label matches form controls by the text of their label.
func Label(value string) Criterion { return Criterion{Strategy: StrategyLabel, Value: value} }

// Placeholder matches inputs by their placeholder text.
func Placeholder(value string) Criterion {
	return Criterion{Strategy: StrategyPlaceholder, Value: value}
}

// TestID matches elements by their data-testid attribute.
func TestID(value string) Criterion { return Criterion{Strategy: StrategyTestID, Value: value} }

// Title matches elements whose title attribute equals value.
func Title(value string) Criterion { return Criterion{Strategy: StrategyTitle, Value: value} }

// AltText matches elements whose alt attribute equals value.
func AltText(value string) Criterion { return Criterion{Strategy: StrategyAltText, Value: value} }

// Chain combines criteria into a single criterion that matches
// elements found by resolving each link within the matches of the
// previous one. Chains of chains flatten. Chaining a single criterion
// returns it unchanged.
func Chain(criteria ...Criterion) Criterion {
	if len(criteria) == 1 {
		return criteria[0]
	}
	parts := make([]string, 0, len(criteria))
	for _, c := range criteria {
		if IsChain(c) {
			parts = append(parts, c.Value)
			continue
		}
		parts = append(parts, c.String())
	}
	return Criterion{Strategy: StrategyChain, Value: strings.Join(parts, chainSep)}
}

// IsChain reports whether c was built by Chain.
func IsChain(c Criterion) bool {
	return c.Strategy == StrategyChain
}

// Links splits a chained criterion into its links, in order. A
// non-chained criterion yields itself as the only link.
func Links(c Criterion) ([]Criterion, error) {
	if !IsChain(c) {
		return []Criterion{c}, nil
	}
	parts := strings.Split(c.Value, chainSep)
	links := make([]Criterion, 0, len(parts))
	for _, p := range parts {
		link, err := Parse(p)
		if err != nil {
			return nil, fmt.Errorf("chain link %q: %w", p, err)
		}
		links = append(links, link)
	}
	return links, nil
}

// Parse reads a criterion from its strategy=value form. Strings
// containing the chain separator parse into a chained criterion.
// Strings without a recognizable strategy prefix are taken as CSS
// selectors, so bare selectors work in page map files; a prefix that
// looks like a strategy token but is not one is an error.
func Parse(s string) (Criterion, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Criterion{}, fmt.Errorf("empty criterion")
	}
	// A serialized chain carries its strategy prefix once, ahead of
	// the first link.
	if prefix, rest, found := strings.Cut(s, "="); found && strings.EqualFold(strings.TrimSpace(prefix), string(StrategyChain)) {
		s = strings.TrimSpace(rest)
		if s == "" {
			return Criterion{}, fmt.Errorf("empty chain criterion")
		}
	}
	if strings.Contains(s, chainSep) {
		parts := strings.Split(s, chainSep)
		links := make([]Criterion, 0, len(parts))
		for _, p := range parts {
			link, err := Parse(p)
			if err != nil {
				return Criterion{}, err
			}
			links = append(links, link)
		}
		return Chain(links...), nil
	}
	prefix, value, found := strings.Cut(s, "=")
	if !found {
		return Criterion{Strategy: StrategyCSS, Value: s}, nil
	}
	strategy := Strategy(strings.ToLower(strings.TrimSpace(prefix)))
	if !isStrategyToken(prefix) {
		// CSS selectors legitimately contain "=", e.g. [type=submit].
		return Criterion{Strategy: StrategyCSS, Value: s}, nil
	}
	if !strategies[strategy] {
		return Criterion{}, fmt.Errorf("unknown locator strategy %q", prefix)
	}
	return Criterion{Strategy: strategy, Value: value}, nil
}

// isStrategyToken reports whether s could name a strategy: letters
// only. Anything else is selector syntax.
func isStrategyToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

// ParseAll parses each string and returns the criteria in order.
func ParseAll(specs []string) ([]Criterion, error) {
	criteria := make([]Criterion, 0, len(specs))
	for _, s := range specs {
		c, err := Parse(s)
		if err != nil {
			return nil, err
		}
		criteria = append(criteria, c)
	}
	return criteria, nil
}

// Dedupe returns criteria with duplicates removed, keeping the first
// occurrence of each and preserving order.
func Dedupe(criteria []Criterion) []Criterion {
	seen := make(map[Criterion]struct{}, len(criteria))
	out := make([]Criterion, 0, len(criteria))
	for _, c := range criteria {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

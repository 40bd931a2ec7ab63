// Package pagemap loads page maps: YAML documents that record the
// lookup criteria for every member of every page in one place, so
// selectors live in reviewable data instead of being scattered through
// page object declarations.
//
// A page map looks like this:
//
//	pages:
//	  login:
//	    members:
//	      username:
//	        criteria: ["name=username", "css=input.user"]
//	      submit:
//	        criteria: ["testid=submit-btn"]
//	        fresh: true
//
// Each criteria entry uses the strategy=value form understood by
// by.Parse. Page objects bind against the map through the helpers on
// Page, which feed the stored criteria straight into a Binder.
package pagemap

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/entrhq/pagebind/pkg/by"
	"github.com/entrhq/pagebind/pkg/pagebind"
)

// mapSchema mirrors the YAML document layout.
type mapSchema struct {
	Pages map[string]pageSchema `yaml:"pages"`
}

type pageSchema struct {
	Members map[string]memberSchema `yaml:"members"`
}

type memberSchema struct {
	Criteria []string `yaml:"criteria"`
	Fresh    bool     `yaml:"fresh"`
}

// Map is a parsed page map. It is immutable after parsing and safe for
// concurrent use.
type Map struct {
	pages map[string]*Page
}

// Page holds the member criteria for a single page.
type Page struct {
	name    string
	members map[string]*memberSpec
}

type memberSpec struct {
	criteria []by.Criterion
	fresh    bool
}

// Load reads and parses a page map file.
func Load(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read page map: %w", err)
	}
	return Parse(data)
}

// Parse parses page map YAML and validates every criteria entry.
func Parse(data []byte) (*Map, error) {
	var schema mapSchema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("failed to parse page map YAML: %w", err)
	}

	m, err := build(schema)
	if err != nil {
		return nil, fmt.Errorf("invalid page map: %w", err)
	}
	return m, nil
}

func build(schema mapSchema) (*Map, error) {
	if len(schema.Pages) == 0 {
		return nil, fmt.Errorf("no pages declared")
	}

	m := &Map{pages: make(map[string]*Page, len(schema.Pages))}
	for pageName, ps := range schema.Pages {
		if pageName == "" {
			return nil, fmt.Errorf("page with empty name")
		}
		if len(ps.Members) == 0 {
			return nil, fmt.Errorf("page %q declares no members", pageName)
		}

		page := &Page{name: pageName, members: make(map[string]*memberSpec, len(ps.Members))}
		for memberName, ms := range ps.Members {
			if memberName == "" {
				return nil, fmt.Errorf("page %q has a member with empty name", pageName)
			}
			if len(ms.Criteria) == 0 {
				return nil, fmt.Errorf("page %q member %q has no criteria", pageName, memberName)
			}
			criteria, err := by.ParseAll(ms.Criteria)
			if err != nil {
				return nil, fmt.Errorf("page %q member %q: %w", pageName, memberName, err)
			}
			page.members[memberName] = &memberSpec{criteria: criteria, fresh: ms.Fresh}
		}
		m.pages[pageName] = page
	}
	return m, nil
}

// Page looks up a page by name.
func (m *Map) Page(name string) (*Page, error) {
	p, ok := m.pages[name]
	if !ok {
		return nil, fmt.Errorf("page map has no page %q", name)
	}
	return p, nil
}

// MustPage is like Page but panics on unknown names. It is meant for
// package-level page declarations where a missing entry is a bug.
func (m *Map) MustPage(name string) *Page {
	p, err := m.Page(name)
	if err != nil {
		panic(err)
	}
	return p
}

// Pages returns the declared page names in sorted order.
func (m *Map) Pages() []string {
	names := make([]string, 0, len(m.pages))
	for name := range m.pages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Name returns the page's name as declared in the map.
func (p *Page) Name() string {
	return p.name
}

// Members returns the page's member names in sorted order.
func (p *Page) Members() []string {
	names := make([]string, 0, len(p.members))
	for name := range p.members {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Criteria returns the criteria recorded for a member.
func (p *Page) Criteria(member string) ([]by.Criterion, error) {
	spec, err := p.spec(member)
	if err != nil {
		return nil, err
	}
	out := make([]by.Criterion, len(spec.criteria))
	copy(out, spec.criteria)
	return out, nil
}

// Fresh reports whether the map marks a member as fresh. Unknown
// members report false.
func (p *Page) Fresh(member string) bool {
	spec, ok := p.members[member]
	return ok && spec.fresh
}

func (p *Page) spec(member string) (*memberSpec, error) {
	spec, ok := p.members[member]
	if !ok {
		return nil, fmt.Errorf("page %q has no member %q", p.name, member)
	}
	return spec, nil
}

// Element declares a lazy element member on the binder using the
// criteria this page records for it. Unknown members are reported
// through the binder when the page is populated.
func (p *Page) Element(b *pagebind.Binder, member string, set func(pagebind.Element)) *pagebind.Member {
	spec, err := p.spec(member)
	if err != nil {
		b.RecordError(err)
		return &pagebind.Member{}
	}
	return p.finish(b.Element(member, set, spec.criteria...), spec)
}

// Elements declares a collection member on the binder using the
// criteria this page records for it.
func (p *Page) Elements(b *pagebind.Binder, member string, set func(*pagebind.Elements)) *pagebind.Member {
	spec, err := p.spec(member)
	if err != nil {
		b.RecordError(err)
		return &pagebind.Member{}
	}
	return p.finish(b.Elements(member, set, spec.criteria...), spec)
}

func (p *Page) finish(m *pagebind.Member, spec *memberSpec) *pagebind.Member {
	if spec.fresh {
		m.Fresh()
	}
	return m
}

// BindWidget declares a widget member on the binder using the criteria
// the page records for it.
func BindWidget[W any, PW pagebind.WidgetPtr[W]](p *Page, b *pagebind.Binder, member string, set func(PW)) *pagebind.Member {
	spec, err := p.spec(member)
	if err != nil {
		b.RecordError(err)
		return &pagebind.Member{}
	}
	return p.finish(pagebind.BindWidget[W, PW](b, member, set, spec.criteria...), spec)
}

// BindWidgetList declares a widget list member on the binder using the
// criteria the page records for it.
func BindWidgetList[W any, PW pagebind.WidgetPtr[W]](p *Page, b *pagebind.Binder, member string, set func(*pagebind.List[W])) *pagebind.Member {
	spec, err := p.spec(member)
	if err != nil {
		b.RecordError(err)
		return &pagebind.Member{}
	}
	return p.finish(pagebind.BindWidgetList[W, PW](b, member, set, spec.criteria...), spec)
}

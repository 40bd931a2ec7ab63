// Package pagebind binds page-object structs to live browser elements
// through lazy, self-healing proxies.
//
// A page object declares where its elements live; pagebind fills its
// fields with proxies that resolve on first use, cache the resolved
// handle, and transparently recover when the page mutates underneath
// them and a handle goes stale.
//
// # Architecture
//
// The package is built around five pieces:
//
//  1. SearchContext: the browser-facing resolution primitive (a page,
//     an element, or an offline document; see the pwctx, rodctx and
//     htmlctx subpackages)
//  2. Locator: resolves an ordered criteria list to one element
//     (first criterion that matches wins) or all elements (union)
//  3. ElementProxy / Elements: the lazy single-element proxy and the
//     always-fresh collection proxy
//  4. Binder: static member declarations, one per bound field
//  5. Factory: runs declarations, decorates members, assigns results
//
// # Declaring a page object
//
// Members are registered explicitly. A page object implements Bindable
// and declares each field with its criteria and a setter:
//
//	type LoginPage struct {
//	    Username pagebind.Element
//	    Password pagebind.Element
//	    Submit   pagebind.Element
//	}
//
//	func (p *LoginPage) DeclareMembers(b *pagebind.Binder) {
//	    b.Element("username", func(e pagebind.Element) { p.Username = e },
//	        by.ID("username"), by.Name("user"))
//	    b.Element("password", func(e pagebind.Element) { p.Password = e },
//	        by.ID("password"))
//	    b.Element("submit", func(e pagebind.Element) { p.Submit = e },
//	        by.CSS("button[type=submit]"), by.Text("Sign in"))
//	}
//
//	page := &LoginPage{}
//	f := pagebind.New(pwctx.NewPage(page))
//	if err := f.Populate(ctx, page); err != nil {
//	    return err
//	}
//	err := page.Username.Fill(ctx, "admin")
//
// Criteria on one member are ordered alternatives: the first one that
// matches anything wins, and when none do the error names them all.
//
// # Proxy behavior
//
// Proxies are lazy: Populate never touches the browser, and neither
// does proxy construction. The first capability invocation resolves
// and caches a handle; later invocations reuse it. When an invocation
// fails because the handle went stale, the proxy discards the cache,
// resolves once more and retries the invocation once. A second
// staleness inside the same invocation, and any non-stale failure,
// reach the caller unchanged.
//
// Collections never cache: each enumeration re-queries, so changing
// element counts are always reflected, while every returned item is
// its own proxy with the behavior above.
//
// # Widgets
//
// A widget wraps one element in a user-defined type, built around an
// embedded WidgetBase. Widgets nest: a widget that implements Bindable
// has its own members bound against a search context rooted at its
// element, so a whole component heals together.
//
//	type Row struct {
//	    pagebind.WidgetBase
//	    Name  pagebind.Element
//	    Price pagebind.Element
//	}
//
//	func (r *Row) DeclareMembers(b *pagebind.Binder) {
//	    b.Element("name", func(e pagebind.Element) { r.Name = e }, by.ClassName("name"))
//	    b.Element("price", func(e pagebind.Element) { r.Price = e }, by.ClassName("price"))
//	}
//
//	// on the page object:
//	pagebind.BindWidgetList(b, "rows", func(l *pagebind.List[Row]) { p.Rows = l },
//	    by.CSS("table#cart tr.row"))
package pagebind

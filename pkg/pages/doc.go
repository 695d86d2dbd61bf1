// Package pages is a reference rendering engine for nextgo built on templ
// components.
//
// Pages are registered by id. A page's view receives the request state and
// returns the component for the page body; layouts registered for the page
// wrap it, first layout outermost:
//
//	var site layout.Registry[*pages.Page]
//	withShell := site.With(layout.New("shell", Shell()))
//
//	home := withShell(&pages.Page{
//	    ID:    "/",
//	    Title: "Home",
//	    View:  func(state map[string]any) templ.Component { return Home(state) },
//	})
//
//	engine := pages.New(pages.Options{
//	    Pages:   []*pages.Page{home},
//	    Layouts: &site,
//	    Assets:  assets.NewFS(os.DirFS("build")),
//	})
//
// Documents embed the page state and the public negotiation settings in a
// <script id="__NEXT_DATA__" type="application/json"> element, so a browser
// starts from the server state without fetching it again.
package pages

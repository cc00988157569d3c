package urlstate

import "net/url"

// Pager computes navigation links for a rendered page.
type Pager struct {
	URL      *url.URL
	Params   Params
	Pages    int
	Defaults Defaults
}

// NewPager creates a pager for the list currently shown at u.
func NewPager(u *url.URL, p Params, pages int, d Defaults) *Pager {
	if p.Page < 1 {
		p.Page = 1
	}
	return &Pager{URL: u, Params: p, Pages: pages, Defaults: d}
}

// HasPrev returns true if there is a previous page.
func (p *Pager) HasPrev() bool {
	return p.Params.Page > 1
}

// HasNext returns true if there is a next page.
func (p *Pager) HasNext() bool {
	return p.Params.Page < p.Pages
}

// Prev returns the link to the previous page, or "" on the first page.
func (p *Pager) Prev() string {
	if !p.HasPrev() {
		return ""
	}
	return p.Link(p.Params.Page - 1)
}

// Next returns the link to the next page, or "" on the last page.
func (p *Pager) Next() string {
	if !p.HasNext() {
		return ""
	}
	return p.Link(p.Params.Page + 1)
}

// Link returns the link to the given page keeping the current filters.
func (p *Pager) Link(page int) string {
	params := p.Params
	params.Page = page
	return Write(p.URL, params, p.Defaults)
}

// PageLinks returns one entry per page for a numbered pager.
func (p *Pager) PageLinks() []PageLink {
	links := make([]PageLink, 0, p.Pages)
	for i := 1; i <= p.Pages; i++ {
		links = append(links, PageLink{Number: i, URL: p.Link(i), Current: i == p.Params.Page})
	}
	return links
}

// PageLink is one entry of a numbered pager.
type PageLink struct {
	Number  int
	URL     string
	Current bool
}

// Package urlstate keeps list filters and pagination in the query string so
// that a list view can be bookmarked, shared and restored with the back button.
package urlstate

import (
	"net/url"
	"strconv"
	"strings"
)

// Query keys.
const (
	KeyQuery    = "q"
	KeyPage     = "page"
	KeyPageSize = "page_size"

	legacyPageSize = "pageSize"
)

// MaxPageSize is the largest page the API will serve.
const MaxPageSize = 500

// Params is the list state carried by a URL.
type Params struct {
	Query    string
	Page     int
	PageSize int
}

// Defaults supplies the values used when the URL omits a parameter.
type Defaults struct {
	Page     int
	PageSize int
}

// DefaultDefaults matches the admin's list screens.
var DefaultDefaults = Defaults{Page: 1, PageSize: 25}

// Read extracts list state from a query string. Missing, non-numeric or
// non-positive numbers fall back to d. Page size is capped at MaxPageSize.
func Read(values url.Values, d Defaults) Params {
	if d.Page < 1 {
		d.Page = 1
	}
	if d.PageSize < 1 {
		d.PageSize = DefaultDefaults.PageSize
	}

	p := Params{
		Query:    strings.TrimSpace(values.Get(KeyQuery)),
		Page:     positive(values.Get(KeyPage), d.Page),
		PageSize: d.PageSize,
	}

	if v := values.Get(KeyPageSize); v != "" {
		p.PageSize = positive(v, d.PageSize)
	} else if v := values.Get(legacyPageSize); v != "" {
		p.PageSize = positive(v, d.PageSize)
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}

	return p
}

// Values renders p as query parameters, leaving out anything equal to d.
func (p Params) Values(d Defaults) url.Values {
	v := url.Values{}
	if p.Query != "" {
		v.Set(KeyQuery, p.Query)
	}
	if p.Page > 0 && p.Page != d.Page {
		v.Set(KeyPage, strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 && p.PageSize != d.PageSize {
		v.Set(KeyPageSize, strconv.Itoa(p.PageSize))
	}
	return v
}

// Write merges p into the query of u and returns the resulting path and
// query. Keys owned by Params are removed when empty or at their default;
// unrelated keys are kept.
func Write(u *url.URL, p Params, d Defaults) string {
	current := u.Query()
	current.Del(legacyPageSize)

	v := p.Values(d)
	q := Merge(current, map[string]string{
		KeyQuery:    v.Get(KeyQuery),
		KeyPage:     v.Get(KeyPage),
		KeyPageSize: v.Get(KeyPageSize),
	})

	out := url.URL{Path: u.Path, RawQuery: q.Encode()}
	return out.String()
}

// Merge overlays the given keys onto the current query and drops any of
// those keys whose new value is empty.
func Merge(current url.Values, params map[string]string) url.Values {
	out := url.Values{}
	for k, v := range current {
		out[k] = append([]string(nil), v...)
	}
	for k, v := range params {
		if v == "" {
			out.Del(k)
			continue
		}
		out.Set(k, v)
	}
	return out
}

func positive(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

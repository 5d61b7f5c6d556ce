package shared

import (
	"net/url"
	"strconv"
)

const (
	defaultPerPage = 50
	maxPerPage     = 500
)

// Page is a limit/offset window for listings.
type Page struct {
	Page    int `json:"page"`
	PerPage int `json:"perPage"`
}

// PageFromQuery reads page and perPage query parameters with defaults.
func PageFromQuery(q url.Values) Page {
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("perPage"))
	return NewPage(page, perPage)
}

// NewPage normalises page numbers and sizes.
func NewPage(page, perPage int) Page {
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	if page <= 0 {
		page = 1
	}
	return Page{Page: page, PerPage: perPage}
}

// Limit is the SQL LIMIT for the page.
func (p Page) Limit() int {
	return p.PerPage
}

// Offset is the SQL OFFSET for the page.
func (p Page) Offset() int {
	return (p.Page - 1) * p.PerPage
}

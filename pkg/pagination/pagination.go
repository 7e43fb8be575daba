// Package pagination pages archive listings with the FHIR search parameters
// _count and _offset.
package pagination

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultCount = 20
	MaxCount     = 100
)

// Page is the window of a listing a request asks for.
type Page struct {
	Count  int
	Offset int
}

// Parse reads _count and _offset from the query. Absent parameters take the
// defaults and _count is capped at MaxCount; anything that is not a
// non-negative integer is rejected.
func Parse(c echo.Context) (Page, error) {
	p := Page{Count: DefaultCount}
	if v := c.QueryParam("_count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Page{}, fmt.Errorf("invalid _count %q", v)
		}
		p.Count = min(n, MaxCount)
	}
	if v := c.QueryParam("_offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Page{}, fmt.Errorf("invalid _offset %q", v)
		}
		p.Offset = n
	}
	return p, nil
}

// Link is a navigation link of a listing.
type Link struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

// Listing is one page of results with its navigation links.
type Listing struct {
	Data   any    `json:"data"`
	Total  int    `json:"total"`
	Count  int    `json:"count"`
	Offset int    `json:"offset"`
	Links  []Link `json:"links"`
}

// Listing wraps data, the items of p out of total, for the listing at path.
// The filters are repeated on every link.
func (p Page) Listing(data any, total int, path string, filters url.Values) *Listing {
	return &Listing{
		Data:   data,
		Total:  total,
		Count:  p.Count,
		Offset: p.Offset,
		Links:  p.links(path, filters, total),
	}
}

// links returns self, then next and previous when they exist.
func (p Page) links(path string, filters url.Values, total int) []Link {
	at := func(offset int) string {
		q := make(url.Values, len(filters)+2)
		for k, v := range filters {
			q[k] = v
		}
		q.Set("_count", strconv.Itoa(p.Count))
		q.Set("_offset", strconv.Itoa(offset))
		return path + "?" + q.Encode()
	}

	links := []Link{{Relation: "self", URL: at(p.Offset)}}
	if p.Offset+p.Count < total {
		links = append(links, Link{Relation: "next", URL: at(p.Offset + p.Count)})
	}
	if p.Offset > 0 {
		links = append(links, Link{Relation: "previous", URL: at(max(p.Offset-p.Count, 0))})
	}
	return links
}

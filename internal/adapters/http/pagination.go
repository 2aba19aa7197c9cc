package http

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 500
)

// PaginatedResponse wraps list results with pagination metadata.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// Pagination contains offset-based pagination info.
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

// pageParams reads offset and limit from the query string, clamped to sane values.
func pageParams(c *fiber.Ctx) (offset, limit int) {
	offset = c.QueryInt("offset", 0)
	limit = c.QueryInt("limit", defaultPageLimit)
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > maxPageLimit {
		limit = defaultPageLimit
	}
	return offset, limit
}

// paginate returns the requested window of items and its metadata.
func paginate[T any](items []T, offset, limit int) ([]T, Pagination) {
	p := Pagination{Offset: offset, Limit: limit, Total: len(items)}
	if offset >= len(items) {
		return []T{}, p
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end], p
}

// SetLinkHeaders adds RFC 8288 Link headers (first, prev, next, last) for
// the current path.
func SetLinkHeaders(c *fiber.Ctx, p Pagination) {
	link := func(offset int, rel string) string {
		return fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel="%s"`, c.Path(), offset, p.Limit, rel)
	}

	links := []string{link(0, "first")}
	if p.Offset > 0 {
		links = append(links, link(max(p.Offset-p.Limit, 0), "prev"))
	}
	if p.Offset+p.Limit < p.Total {
		links = append(links, link(p.Offset+p.Limit, "next"))
	}
	links = append(links, link(max(p.Total-p.Limit, 0), "last"))

	c.Set("Link", strings.Join(links, ", "))
}

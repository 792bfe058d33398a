package request

import (
	"fmt"
	"net/http"
	"strconv"
)

// Pagination holds parsed pagination parameters. Pages are 1-based.
type Pagination struct {
	Page     int
	PageSize int
}

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ParsePagination extracts page and pageSize from query parameters, applying
// defaults and rejecting out-of-range values.
func ParsePagination(r *http.Request) (Pagination, error) {
	p := Pagination{
		Page:     DefaultPage,
		PageSize: DefaultPageSize,
	}

	if s := r.URL.Query().Get("page"); s != "" {
		page, err := strconv.Atoi(s)
		if err != nil || page < 1 {
			return p, fmt.Errorf("page must be a positive integer")
		}
		p.Page = page
	}

	if s := r.URL.Query().Get("pageSize"); s != "" {
		size, err := strconv.Atoi(s)
		if err != nil || size < 1 || size > MaxPageSize {
			return p, fmt.Errorf("pageSize must be between 1 and %d", MaxPageSize)
		}
		p.PageSize = size
	}

	return p, nil
}

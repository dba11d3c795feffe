package shared

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Sort directions accepted by list endpoints.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, limit, total int) Pagination {
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

// PageQuery is the parsed page/limit/sortBy/sortOrder query string.
type PageQuery struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// Offset returns the row offset for the page.
func (q PageQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// ParsePageQuery reads paging parameters, clamping limit to maxLimit.
func ParsePageQuery(values url.Values, defaultSort string, maxLimit int) PageQuery {
	q := PageQuery{Page: 1, Limit: 10, SortBy: defaultSort, SortOrder: SortAsc}
	if v, err := strconv.Atoi(values.Get("page")); err == nil && v > 0 {
		q.Page = v
	}
	if v, err := strconv.Atoi(values.Get("limit")); err == nil && v > 0 {
		q.Limit = v
	}
	if maxLimit > 0 && q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if v := strings.TrimSpace(values.Get("sortBy")); v != "" {
		q.SortBy = v
	}
	if strings.EqualFold(values.Get("sortOrder"), SortDesc) {
		q.SortOrder = SortDesc
	}
	return q
}

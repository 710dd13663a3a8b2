package shared

import (
	"net/http"
	"strconv"
)

type Pagination struct {
	Page     int
	PageSize int
}

// ParsePagination reads page and pageSize from the query. Missing or
// malformed values fall back to page 1 and defaultSize; pageSize is capped at
// maxSize.
func ParsePagination(r *http.Request, defaultSize, maxSize int) Pagination {
	page := 1
	size := defaultSize
	if raw := r.URL.Query().Get("page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			page = v
		}
	}
	if raw := r.URL.Query().Get("pageSize"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			size = v
		}
	}
	if maxSize > 0 && size > maxSize {
		size = maxSize
	}
	return Pagination{Page: page, PageSize: size}
}

// ParseBool treats "1", "true" and "yes" as true.
func ParseBool(raw string) bool {
	v, err := strconv.ParseBool(raw)
	if err == nil {
		return v
	}
	return raw == "yes"
}

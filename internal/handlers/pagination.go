package handlers

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

const defaultPageSize = 10

var errInvalidPagination = errors.New("invalid pagination params")

// parsePaginationParams reads page and limit, defaulting to the first page of
// ten. Values that are present but not positive integers are rejected.
func parsePaginationParams(pageStr, limitStr string) (int64, int64, error) {
	page := int64(1)
	limit := int64(defaultPageSize)

	if pageStr = strings.TrimSpace(pageStr); pageStr != "" {
		p, err := strconv.ParseInt(pageStr, 10, 64)
		if err != nil || p < 1 {
			return 0, 0, errInvalidPagination
		}
		page = p
	}

	if limitStr = strings.TrimSpace(limitStr); limitStr != "" {
		l, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil || l < 1 || l > 100 {
			return 0, 0, errInvalidPagination
		}
		limit = l
	}

	return page, limit, nil
}

func totalPages(total, limit int64) int64 {
	if limit <= 0 {
		return 0
	}
	return int64(math.Ceil(float64(total) / float64(limit)))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

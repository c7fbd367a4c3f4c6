package utils

import (
	"strconv"
	"strings"
)

// Pagination is a zero-based page window.
type Pagination struct {
	PageIdx  int
	PageSize int
	Skip     int
}

func NewPagination(pageIdx, pageSize int) Pagination {
	if pageIdx < 0 {
		pageIdx = 0
	}
	return Pagination{
		PageIdx:  pageIdx,
		PageSize: pageSize,
		Skip:     pageIdx * pageSize,
	}
}

// ParsePageIdx coerces anything that is not a non-negative integer to 0.
func ParsePageIdx(raw string) int {
	idx, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || idx < 0 {
		return 0
	}
	return idx
}

// MaxPage is ceil(total / pageSize).
func MaxPage(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	pages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		pages++
	}
	return pages
}

// Package query turns a toy listing request into store-neutral criteria, sort order and page window.
package query

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/InbalMary/mistertoy-mongo-backend/pkg/utils"
)

const PageSize = 10

// StockFilter is a string-typed tri-state. Only the exact strings "true" and "false" constrain.
type StockFilter string

const (
	StockAny   StockFilter = ""
	StockTrue  StockFilter = "true"
	StockFalse StockFilter = "false"
)

func ParseStock(raw string) StockFilter {
	switch StockFilter(raw) {
	case StockTrue:
		return StockTrue
	case StockFalse:
		return StockFalse
	default:
		return StockAny
	}
}

type SortKey string

const (
	SortNone      SortKey = ""
	SortName      SortKey = "name"
	SortPrice     SortKey = "price"
	SortCreatedAt SortKey = "createdAt"
)

func ParseSort(raw string) SortKey {
	switch SortKey(raw) {
	case SortName, SortPrice, SortCreatedAt:
		return SortKey(raw)
	default:
		return SortNone
	}
}

// FilterSpec is the listing request after boundary coercion.
type FilterSpec struct {
	Txt      string
	MaxPrice *float64
	InStock  StockFilter
	Labels   []string
	Sort     SortKey
	PageIdx  int
}

// ParseFilter reads txt, price, inStock, labels (comma-joined), sort and pageIdx.
// Malformed values fall back to their defaults instead of failing the request.
func ParseFilter(values url.Values) FilterSpec {
	spec := FilterSpec{
		Txt:     values.Get("txt"),
		InStock: ParseStock(values.Get("inStock")),
		Sort:    ParseSort(values.Get("sort")),
		PageIdx: utils.ParsePageIdx(values.Get("pageIdx")),
	}

	if raw := strings.TrimSpace(values.Get("price")); raw != "" {
		if price, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(price) && !math.IsInf(price, 0) {
			spec.MaxPrice = &price
		}
	}

	if raw := values.Get("labels"); raw != "" {
		for _, label := range strings.Split(raw, ",") {
			if label = strings.TrimSpace(label); label != "" {
				spec.Labels = append(spec.Labels, label)
			}
		}
	}

	return spec
}

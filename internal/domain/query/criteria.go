package query

import (
	"sort"
	"strings"

	"github.com/InbalMary/mistertoy-mongo-backend/internal/domain/entity"
	"github.com/InbalMary/mistertoy-mongo-backend/pkg/utils"
)

// Criteria is the store-neutral form of a FilterSpec. Zero values impose no constraint.
type Criteria struct {
	NameContains string
	MaxPrice     *float64
	InStock      *bool
	Labels       []string
}

// Build translates a FilterSpec into criteria, a sort key and a page window.
func Build(spec FilterSpec) (Criteria, SortKey, utils.Pagination) {
	criteria := Criteria{
		NameContains: spec.Txt,
		MaxPrice:     spec.MaxPrice,
	}

	switch spec.InStock {
	case StockTrue:
		inStock := true
		criteria.InStock = &inStock
	case StockFalse:
		inStock := false
		criteria.InStock = &inStock
	}

	if len(spec.Labels) > 0 {
		criteria.Labels = spec.Labels
	}

	return criteria, spec.Sort, utils.NewPagination(spec.PageIdx, PageSize)
}

// Matches evaluates the criteria in process, for stores that cannot express all of it natively.
func (c Criteria) Matches(toy *entity.Toy) bool {
	if c.NameContains != "" && !strings.Contains(strings.ToLower(toy.Name), strings.ToLower(c.NameContains)) {
		return false
	}
	if c.MaxPrice != nil && toy.Price > *c.MaxPrice {
		return false
	}
	if c.InStock != nil && toy.InStock != *c.InStock {
		return false
	}
	return HasAllLabels(toy.Labels, c.Labels)
}

// HasAllLabels reports whether have is a superset of want.
func HasAllLabels(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(have))
	for _, l := range have {
		set[l] = struct{}{}
	}
	for _, l := range want {
		if _, ok := set[l]; !ok {
			return false
		}
	}
	return true
}

// SortToys orders toys ascending by key. SortNone keeps the given order.
func SortToys(toys []*entity.Toy, key SortKey) {
	var less func(a, b *entity.Toy) bool
	switch key {
	case SortName:
		less = func(a, b *entity.Toy) bool { return a.Name < b.Name }
	case SortPrice:
		less = func(a, b *entity.Toy) bool { return a.Price < b.Price }
	case SortCreatedAt:
		less = func(a, b *entity.Toy) bool { return a.CreatedAt.Before(b.CreatedAt) }
	default:
		return
	}
	sort.SliceStable(toys, func(i, j int) bool { return less(toys[i], toys[j]) })
}

// Window returns the page of toys selected by p, or an empty slice past the end.
func Window(toys []*entity.Toy, p utils.Pagination) []*entity.Toy {
	if p.Skip >= len(toys) {
		return []*entity.Toy{}
	}
	end := p.Skip + p.PageSize
	if end > len(toys) {
		end = len(toys)
	}
	return toys[p.Skip:end]
}

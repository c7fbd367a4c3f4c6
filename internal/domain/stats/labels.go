// Package stats computes label statistics in process, with the same results as the
// Mongo aggregation pipeline used by the primary store.
package stats

import (
	"math"
	"sort"

	"github.com/InbalMary/mistertoy-mongo-backend/internal/domain/entity"
)

// Round2 rounds half to even at two decimals, like Mongo's $round.
func Round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

// Row is one toy as seen by the aggregator. InStock is kept loose so legacy
// documents that stored "true" as a string still count.
type Row struct {
	Labels  []string
	Price   float64
	InStock interface{}
}

func IsTruthy(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true"
	default:
		return false
	}
}

type accumulator struct {
	sum     float64
	total   int
	inStock int
}

// LabelStats expands each row into one entry per label, groups by label and projects
// avg price, total, in-stock count and in-stock percent. The result is sorted by label.
func LabelStats(rows []Row) []entity.LabelStat {
	groups := make(map[string]*accumulator)
	for _, row := range rows {
		for _, label := range row.Labels {
			acc, ok := groups[label]
			if !ok {
				acc = &accumulator{}
				groups[label] = acc
			}
			acc.sum += row.Price
			acc.total++
			if IsTruthy(row.InStock) {
				acc.inStock++
			}
		}
	}

	out := make([]entity.LabelStat, 0, len(groups))
	for label, acc := range groups {
		out = append(out, entity.LabelStat{
			Label:    label,
			AvgPrice: Round2(acc.sum / float64(acc.total)),
			Total:    acc.total,
			InStock:  acc.inStock,
			Percent:  Round2(float64(acc.inStock) / float64(acc.total) * 100),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// DistinctLabels returns every label used by any row, sorted ascending.
func DistinctLabels(rows []Row) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for _, label := range row.Labels {
			seen[label] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for label := range seen {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// ToMap keys the stats by label.
func ToMap(stats []entity.LabelStat) map[string]entity.LabelStat {
	out := make(map[string]entity.LabelStat, len(stats))
	for _, s := range stats {
		out[s.Label] = s
	}
	return out
}

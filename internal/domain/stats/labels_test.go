package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelStatsAveragesAndPercent(t *testing.T) {
	got := ToMap(LabelStats([]Row{
		{Labels: []string{"A"}, Price: 10, InStock: true},
		{Labels: []string{"A"}, Price: 20, InStock: false},
	}))

	require.Contains(t, got, "A")
	a := got["A"]
	assert.Equal(t, 15.0, a.AvgPrice)
	assert.Equal(t, 2, a.Total)
	assert.Equal(t, 1, a.InStock)
	assert.Equal(t, 50.0, a.Percent)
}

func TestLabelStatsExpandsMultiLabelToys(t *testing.T) {
	got := LabelStats([]Row{
		{Labels: []string{"B", "A"}, Price: 9, InStock: "true"},
		{Labels: []string{"B"}, Price: 1, InStock: "false"},
		{Labels: nil, Price: 100, InStock: true},
	})

	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Label)
	assert.Equal(t, "B", got[1].Label)
	assert.Equal(t, 1, got[0].InStock)
	assert.Equal(t, 100.0, got[0].Percent)
	assert.Equal(t, 5.0, got[1].AvgPrice)
	assert.Equal(t, 50.0, got[1].Percent)
}

func TestLabelStatsRounding(t *testing.T) {
	got := LabelStats([]Row{
		{Labels: []string{"A"}, Price: 1, InStock: true},
		{Labels: []string{"A"}, Price: 1, InStock: false},
		{Labels: []string{"A"}, Price: 2, InStock: false},
	})

	require.Len(t, got, 1)
	assert.Equal(t, 1.33, got[0].AvgPrice)
	assert.Equal(t, 33.33, got[0].Percent)
}

func TestDistinctLabelsSortedWithoutDuplicates(t *testing.T) {
	got := DistinctLabels([]Row{
		{Labels: []string{"Doll", "Art"}},
		{Labels: []string{"Art", "Baby"}},
		{Labels: []string{"Doll"}},
	})

	assert.Equal(t, []string{"Art", "Baby", "Doll"}, got)
}

func TestIsTruthy(t *testing.T) {
	assert.True(t, IsTruthy(true))
	assert.True(t, IsTruthy("true"))
	assert.False(t, IsTruthy("TRUE"))
	assert.False(t, IsTruthy(nil))
	assert.False(t, IsTruthy(1))
}

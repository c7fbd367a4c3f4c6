package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InbalMary/mistertoy-mongo-backend/internal/domain/entity"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/domain/query"
	"github.com/InbalMary/mistertoy-mongo-backend/pkg/errors"
	"github.com/InbalMary/mistertoy-mongo-backend/pkg/utils"
)

func seedToys() []*entity.Toy {
	owner := &entity.MiniUser{ID: "u1", Fullname: "Puki"}
	return []*entity.Toy{
		{Name: "Talking Doll", Price: 10, InStock: true, Labels: []string{"Doll", "Battery Powered"}, Owner: owner},
		{Name: "Teddy Bear", Price: 20, InStock: false, Labels: []string{"Doll", "Baby"}, Owner: owner},
		{Name: "Race Car", Price: 35, InStock: true, Labels: []string{"Outdoor"}},
	}
}

func TestMemoryCreateAssignsIDAndCreatedAt(t *testing.T) {
	repo := NewMemoryToyRepository()
	toy := &entity.Toy{Name: "Kite", Price: 5}

	require.NoError(t, repo.Create(context.Background(), toy))
	assert.True(t, utils.IsToyID(toy.ID))
	assert.False(t, toy.CreatedAt.IsZero())

	got, err := repo.GetByID(context.Background(), toy.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kite", got.Name)
}

func TestMemoryGetByIDMissing(t *testing.T) {
	repo := NewMemoryToyRepository()

	_, err := repo.GetByID(context.Background(), utils.NewToyID())
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestMemoryQueryFiltersAndCounts(t *testing.T) {
	repo := NewMemoryToyRepository(seedToys()...)
	criteria, sortKey, page := query.Build(query.FilterSpec{Labels: []string{"Doll"}, Sort: query.SortPrice})

	toys, total, err := repo.Query(context.Background(), criteria, sortKey, page)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, toys, 2)
	assert.Equal(t, "Talking Doll", toys[0].Name)
	assert.Equal(t, "Teddy Bear", toys[1].Name)
}

func TestMemoryQueryNaturalOrder(t *testing.T) {
	repo := NewMemoryToyRepository(seedToys()...)
	criteria, sortKey, page := query.Build(query.FilterSpec{})

	toys, total, err := repo.Query(context.Background(), criteria, sortKey, page)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, "Talking Doll", toys[0].Name)
	assert.Equal(t, "Race Car", toys[2].Name)
}

func TestMemoryUpdateAppliesOnlyGivenFields(t *testing.T) {
	repo := NewMemoryToyRepository(seedToys()...)
	toys, _, _ := repo.Query(context.Background(), query.Criteria{}, query.SortNone, utils.NewPagination(0, 10))
	id := toys[0].ID

	price := 99.0
	require.NoError(t, repo.Update(context.Background(), id, entity.ToyPatch{Price: &price}))

	got, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 99.0, got.Price)
	assert.Equal(t, "Talking Doll", got.Name)
	assert.Equal(t, []string{"Doll", "Battery Powered"}, got.Labels)

	err = repo.Update(context.Background(), utils.NewToyID(), entity.ToyPatch{Price: &price})
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestMemoryDeleteChecksOwner(t *testing.T) {
	repo := NewMemoryToyRepository(seedToys()...)
	toys, _, _ := repo.Query(context.Background(), query.Criteria{}, query.SortNone, utils.NewPagination(0, 10))

	n, err := repo.Delete(context.Background(), toys[0].ID, "someone-else")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = repo.Delete(context.Background(), toys[0].ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// unowned toys are only removable without an owner constraint
	n, err = repo.Delete(context.Background(), toys[2].ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = repo.Delete(context.Background(), toys[2].ID, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryPushAndPullMessage(t *testing.T) {
	repo := NewMemoryToyRepository(seedToys()...)
	toys, _, _ := repo.Query(context.Background(), query.Criteria{}, query.SortNone, utils.NewPagination(0, 10))
	id := toys[0].ID

	require.NoError(t, repo.PushMessage(context.Background(), id, entity.ToyMsg{ID: "m1", Txt: "first"}))
	require.NoError(t, repo.PushMessage(context.Background(), id, entity.ToyMsg{ID: "m2", Txt: "second"}))
	require.NoError(t, repo.PullMessage(context.Background(), id, "m1"))

	got, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, got.Msgs, 1)
	assert.Equal(t, "m2", got.Msgs[0].ID)

	err = repo.PushMessage(context.Background(), utils.NewToyID(), entity.ToyMsg{ID: "m3"})
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestMemoryReturnsCopies(t *testing.T) {
	repo := NewMemoryToyRepository(seedToys()...)
	toys, _, _ := repo.Query(context.Background(), query.Criteria{}, query.SortNone, utils.NewPagination(0, 10))

	toys[0].Labels[0] = "Mutated"
	got, err := repo.GetByID(context.Background(), toys[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Doll", got.Labels[0])
}

func TestMemoryLabelsAndStats(t *testing.T) {
	repo := NewMemoryToyRepository(seedToys()...)

	labels, err := repo.Labels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Baby", "Battery Powered", "Doll", "Outdoor"}, labels)

	labelStats, err := repo.LabelStats(context.Background())
	require.NoError(t, err)
	byLabel := make(map[string]entity.LabelStat)
	for _, s := range labelStats {
		byLabel[s.Label] = s
	}
	doll := byLabel["Doll"]
	assert.Equal(t, 15.0, doll.AvgPrice)
	assert.Equal(t, 2, doll.Total)
	assert.Equal(t, 1, doll.InStock)
	assert.Equal(t, 50.0, doll.Percent)
}

package repository

import (
	"context"
	"sync"

	"github.com/InbalMary/mistertoy-mongo-backend/internal/domain/entity"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/domain/query"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/domain/repository"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/domain/stats"
	"github.com/InbalMary/mistertoy-mongo-backend/pkg/errors"
	"github.com/InbalMary/mistertoy-mongo-backend/pkg/utils"
)

// memoryToyRepository keeps toys in insertion order. It backs DATASTORE_TYPE=memory and the tests.
type memoryToyRepository struct {
	mu   sync.RWMutex
	toys []*entity.Toy
}

func NewMemoryToyRepository(seed ...*entity.Toy) repository.ToyRepository {
	r := &memoryToyRepository{}
	for _, toy := range seed {
		c := cloneToy(toy)
		if c.ID == "" {
			c.ID = utils.NewToyID()
		}
		c.CreatedAt, _ = utils.CreatedAtFromID(c.ID)
		r.toys = append(r.toys, c)
	}
	return r
}

func (r *memoryToyRepository) Create(ctx context.Context, toy *entity.Toy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	toy.ID = utils.NewToyID()
	toy.CreatedAt, _ = utils.CreatedAtFromID(toy.ID)
	r.toys = append(r.toys, cloneToy(toy))
	return nil
}

func (r *memoryToyRepository) GetByID(ctx context.Context, id string) (*entity.Toy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.indexOf(id); i >= 0 {
		return cloneToy(r.toys[i]), nil
	}
	return nil, errors.NotFound("Toy", nil)
}

func (r *memoryToyRepository) Query(ctx context.Context, criteria query.Criteria, sortKey query.SortKey, page utils.Pagination) ([]*entity.Toy, int64, error) {
	r.mu.RLock()
	var matched []*entity.Toy
	for _, toy := range r.toys {
		if criteria.Matches(toy) {
			matched = append(matched, cloneToy(toy))
		}
	}
	r.mu.RUnlock()

	query.SortToys(matched, sortKey)
	return query.Window(matched, page), int64(len(matched)), nil
}

func (r *memoryToyRepository) Update(ctx context.Context, id string, patch entity.ToyPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return errors.NotFound("Toy", nil)
	}
	toy := r.toys[i]
	if patch.Name != nil {
		toy.Name = *patch.Name
	}
	if patch.Price != nil {
		toy.Price = *patch.Price
	}
	if patch.InStock != nil {
		toy.InStock = *patch.InStock
	}
	if patch.Labels != nil {
		toy.Labels = append([]string{}, patch.Labels...)
	}
	return nil
}

func (r *memoryToyRepository) Delete(ctx context.Context, id string, ownerID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return 0, nil
	}
	if ownerID != "" && (r.toys[i].Owner == nil || r.toys[i].Owner.ID != ownerID) {
		return 0, nil
	}
	r.toys = append(r.toys[:i], r.toys[i+1:]...)
	return 1, nil
}

func (r *memoryToyRepository) PushMessage(ctx context.Context, toyID string, msg entity.ToyMsg) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(toyID)
	if i < 0 {
		return errors.NotFound("Toy", nil)
	}
	r.toys[i].Msgs = append(r.toys[i].Msgs, msg)
	return nil
}

func (r *memoryToyRepository) PullMessage(ctx context.Context, toyID string, msgID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(toyID)
	if i < 0 {
		return errors.NotFound("Toy", nil)
	}
	kept := r.toys[i].Msgs[:0]
	for _, m := range r.toys[i].Msgs {
		if m.ID != msgID {
			kept = append(kept, m)
		}
	}
	r.toys[i].Msgs = kept
	return nil
}

func (r *memoryToyRepository) PushChatMessage(ctx context.Context, toyID string, msg entity.ChatMsg) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(toyID)
	if i < 0 {
		return errors.NotFound("Toy", nil)
	}
	r.toys[i].ChatHistory = append(r.toys[i].ChatHistory, msg)
	return nil
}

func (r *memoryToyRepository) Labels(ctx context.Context) ([]string, error) {
	return stats.DistinctLabels(r.rows()), nil
}

func (r *memoryToyRepository) LabelStats(ctx context.Context) ([]entity.LabelStat, error) {
	return stats.LabelStats(r.rows()), nil
}

func (r *memoryToyRepository) rows() []stats.Row {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([]stats.Row, 0, len(r.toys))
	for _, toy := range r.toys {
		rows = append(rows, stats.Row{Labels: toy.Labels, Price: toy.Price, InStock: toy.InStock})
	}
	return rows
}

func (r *memoryToyRepository) indexOf(id string) int {
	for i, toy := range r.toys {
		if toy.ID == id {
			return i
		}
	}
	return -1
}

func cloneToy(toy *entity.Toy) *entity.Toy {
	c := *toy
	if toy.Labels != nil {
		c.Labels = append([]string{}, toy.Labels...)
	}
	if toy.Msgs != nil {
		c.Msgs = append([]entity.ToyMsg{}, toy.Msgs...)
	}
	if toy.ChatHistory != nil {
		c.ChatHistory = append([]entity.ChatMsg{}, toy.ChatHistory...)
	}
	if toy.Owner != nil {
		owner := *toy.Owner
		c.Owner = &owner
	}
	return &c
}

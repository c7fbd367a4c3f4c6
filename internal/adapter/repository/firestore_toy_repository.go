package repository

import (
	"context"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/InbalMary/mistertoy-mongo-backend/internal/domain/entity"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/domain/query"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/domain/repository"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/domain/stats"
	"github.com/InbalMary/mistertoy-mongo-backend/pkg/errors"
	"github.com/InbalMary/mistertoy-mongo-backend/pkg/utils"
)

const firestoreToyCollection = "toys"

type firestoreToy struct {
	Name        string           `firestore:"name"`
	Price       float64          `firestore:"price"`
	InStock     interface{}      `firestore:"inStock"`
	Labels      []string         `firestore:"labels"`
	Owner       *entity.MiniUser `firestore:"owner,omitempty"`
	Msgs        []entity.ToyMsg  `firestore:"msgs"`
	ChatHistory []entity.ChatMsg `firestore:"chatHistory"`
}

func (d *firestoreToy) toEntity(id string) *entity.Toy {
	createdAt, _ := utils.CreatedAtFromID(id)
	return &entity.Toy{
		ID:          id,
		Name:        d.Name,
		Price:       d.Price,
		InStock:     stats.IsTruthy(d.InStock),
		Labels:      d.Labels,
		CreatedAt:   createdAt,
		Owner:       d.Owner,
		Msgs:        d.Msgs,
		ChatHistory: d.ChatHistory,
	}
}

// firestoreToyRepository stores toys under ObjectID-shaped document ids so that
// document id order is insertion order. Firestore has no substring match, no
// multi-value array-contains and no aggregation pipeline, so those parts of a
// query run in process after the native filters.
type firestoreToyRepository struct {
	client *firestore.Client
}

func NewFirestoreToyRepository(client *firestore.Client) repository.ToyRepository {
	return &firestoreToyRepository{
		client: client,
	}
}

func (r *firestoreToyRepository) toys() *firestore.CollectionRef {
	return r.client.Collection(firestoreToyCollection)
}

func (r *firestoreToyRepository) Create(ctx context.Context, toy *entity.Toy) error {
	id := utils.NewToyID()
	doc := firestoreToy{
		Name:        toy.Name,
		Price:       toy.Price,
		InStock:     toy.InStock,
		Labels:      nonNilLabels(toy.Labels),
		Owner:       toy.Owner,
		Msgs:        nonNilMsgs(toy.Msgs),
		ChatHistory: nonNilChat(toy.ChatHistory),
	}

	if _, err := r.toys().Doc(id).Create(ctx, doc); err != nil {
		return errors.StoreUnavailable("Failed to create toy", err)
	}

	toy.ID = id
	toy.CreatedAt, _ = utils.CreatedAtFromID(id)
	return nil
}

func (r *firestoreToyRepository) GetByID(ctx context.Context, id string) (*entity.Toy, error) {
	if !utils.IsToyID(id) {
		return nil, errors.NotFound("Toy", nil)
	}

	snap, err := r.toys().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Toy", err)
		}
		return nil, errors.StoreUnavailable("Failed to get toy", err)
	}

	var doc firestoreToy
	if err := snap.DataTo(&doc); err != nil {
		return nil, errors.Internal("Failed to parse toy data", err)
	}
	return doc.toEntity(snap.Ref.ID), nil
}

func (r *firestoreToyRepository) Query(ctx context.Context, criteria query.Criteria, sortKey query.SortKey, page utils.Pagination) ([]*entity.Toy, int64, error) {
	q := r.toys().Query
	if criteria.InStock != nil {
		q = q.Where("inStock", "==", *criteria.InStock)
	}
	if criteria.MaxPrice != nil {
		q = q.Where("price", "<=", *criteria.MaxPrice)
	}
	if len(criteria.Labels) > 0 {
		q = q.Where("labels", "array-contains", criteria.Labels[0])
	}

	docs, err := r.collect(ctx, q.Documents(ctx))
	if err != nil {
		return nil, 0, errors.StoreUnavailable("Failed to query toys", err)
	}

	var matched []*entity.Toy
	for _, toy := range docs {
		if criteria.Matches(toy) {
			matched = append(matched, toy)
		}
	}

	// natural order is document id order, the price inequality reorders by price
	if criteria.MaxPrice != nil {
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	}
	query.SortToys(matched, sortKey)
	return query.Window(matched, page), int64(len(matched)), nil
}

func (r *firestoreToyRepository) Update(ctx context.Context, id string, patch entity.ToyPatch) error {
	if !utils.IsToyID(id) {
		return errors.NotFound("Toy", nil)
	}

	var updates []firestore.Update
	if patch.Name != nil {
		updates = append(updates, firestore.Update{Path: "name", Value: *patch.Name})
	}
	if patch.Price != nil {
		updates = append(updates, firestore.Update{Path: "price", Value: *patch.Price})
	}
	if patch.InStock != nil {
		updates = append(updates, firestore.Update{Path: "inStock", Value: *patch.InStock})
	}
	if patch.Labels != nil {
		updates = append(updates, firestore.Update{Path: "labels", Value: patch.Labels})
	}

	if len(updates) == 0 {
		_, err := r.GetByID(ctx, id)
		return err
	}

	if _, err := r.toys().Doc(id).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Toy", err)
		}
		return errors.StoreUnavailable("Failed to update toy", err)
	}
	return nil
}

func (r *firestoreToyRepository) Delete(ctx context.Context, id string, ownerID string) (int64, error) {
	if !utils.IsToyID(id) {
		return 0, nil
	}

	ref := r.toys().Doc(id)
	var deleted int64
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		deleted = 0
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil
			}
			return err
		}

		if ownerID != "" {
			var doc firestoreToy
			if err := snap.DataTo(&doc); err != nil {
				return err
			}
			if doc.Owner == nil || doc.Owner.ID != ownerID {
				return nil
			}
		}

		deleted = 1
		return tx.Delete(ref)
	})
	if err != nil {
		return 0, errors.StoreUnavailable("Failed to remove toy", err)
	}
	return deleted, nil
}

func (r *firestoreToyRepository) PushMessage(ctx context.Context, toyID string, msg entity.ToyMsg) error {
	return r.arrayUnion(ctx, toyID, "msgs", msg, "Failed to add toy msg")
}

func (r *firestoreToyRepository) PushChatMessage(ctx context.Context, toyID string, msg entity.ChatMsg) error {
	return r.arrayUnion(ctx, toyID, "chatHistory", msg, "Failed to add chat msg")
}

func (r *firestoreToyRepository) arrayUnion(ctx context.Context, toyID, path string, value interface{}, message string) error {
	if !utils.IsToyID(toyID) {
		return errors.NotFound("Toy", nil)
	}

	_, err := r.toys().Doc(toyID).Update(ctx, []firestore.Update{
		{Path: path, Value: firestore.ArrayUnion(value)},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Toy", err)
		}
		return errors.StoreUnavailable(message, err)
	}
	return nil
}

func (r *firestoreToyRepository) PullMessage(ctx context.Context, toyID string, msgID string) error {
	if !utils.IsToyID(toyID) {
		return errors.NotFound("Toy", nil)
	}

	ref := r.toys().Doc(toyID)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}

		var doc firestoreToy
		if err := snap.DataTo(&doc); err != nil {
			return err
		}

		kept := make([]entity.ToyMsg, 0, len(doc.Msgs))
		for _, m := range doc.Msgs {
			if m.ID != msgID {
				kept = append(kept, m)
			}
		}
		return tx.Update(ref, []firestore.Update{{Path: "msgs", Value: kept}})
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Toy", err)
		}
		return errors.StoreUnavailable("Failed to remove toy msg", err)
	}
	return nil
}

func (r *firestoreToyRepository) Labels(ctx context.Context) ([]string, error) {
	rows, err := r.labelRows(ctx)
	if err != nil {
		return nil, errors.StoreUnavailable("Failed to get labels", err)
	}
	return stats.DistinctLabels(rows), nil
}

func (r *firestoreToyRepository) LabelStats(ctx context.Context) ([]entity.LabelStat, error) {
	rows, err := r.labelRows(ctx)
	if err != nil {
		return nil, errors.StoreUnavailable("Failed to get label stats", err)
	}
	return stats.LabelStats(rows), nil
}

func (r *firestoreToyRepository) labelRows(ctx context.Context) ([]stats.Row, error) {
	iter := r.toys().Select("labels", "price", "inStock").Documents(ctx)
	defer iter.Stop()

	var rows []stats.Row
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		var doc firestoreToy
		if err := snap.DataTo(&doc); err != nil {
			continue
		}
		rows = append(rows, stats.Row{Labels: doc.Labels, Price: doc.Price, InStock: doc.InStock})
	}
	return rows, nil
}

func (r *firestoreToyRepository) collect(ctx context.Context, iter *firestore.DocumentIterator) ([]*entity.Toy, error) {
	defer iter.Stop()

	var toys []*entity.Toy
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		var doc firestoreToy
		if err := snap.DataTo(&doc); err != nil {
			return nil, err
		}
		toys = append(toys, doc.toEntity(snap.Ref.ID))
	}
	return toys, nil
}

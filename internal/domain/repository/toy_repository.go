package repository

import (
	"context"

	"github.com/InbalMary/mistertoy-mongo-backend/internal/domain/entity"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/domain/query"
	"github.com/InbalMary/mistertoy-mongo-backend/pkg/utils"
)

// ToyRepository is the document store collaborator for toys. Ids cross this
// boundary as ObjectID hex strings. Lookups that miss return errors.NotFound,
// driver failures return errors.StoreUnavailable.
type ToyRepository interface {
	// Create assigns toy.ID.
	Create(ctx context.Context, toy *entity.Toy) error
	GetByID(ctx context.Context, id string) (*entity.Toy, error)
	// Query returns one page of matching toys and the total match count ignoring the page.
	Query(ctx context.Context, criteria query.Criteria, sortKey query.SortKey, page utils.Pagination) ([]*entity.Toy, int64, error)
	Update(ctx context.Context, id string, patch entity.ToyPatch) error
	// Delete removes the toy when its owner is ownerID, or unconditionally when ownerID is
	// empty. It returns the number of deleted documents.
	Delete(ctx context.Context, id string, ownerID string) (int64, error)

	PushMessage(ctx context.Context, toyID string, msg entity.ToyMsg) error
	PullMessage(ctx context.Context, toyID string, msgID string) error
	PushChatMessage(ctx context.Context, toyID string, msg entity.ChatMsg) error

	Labels(ctx context.Context) ([]string, error)
	// LabelStats is sorted by label.
	LabelStats(ctx context.Context) ([]entity.LabelStat, error)
}

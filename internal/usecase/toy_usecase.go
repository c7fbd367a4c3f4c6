package usecase

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/InbalMary/mistertoy-mongo-backend/internal/domain/entity"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/domain/query"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/domain/repository"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/domain/stats"
	"github.com/InbalMary/mistertoy-mongo-backend/pkg/errors"
	"github.com/InbalMary/mistertoy-mongo-backend/pkg/logger"
	"github.com/InbalMary/mistertoy-mongo-backend/pkg/utils"
)

type ToyUseCase struct {
	toyRepo   repository.ToyRepository
	newID     func() string
	newChatID func() string
	now       func() time.Time
	notifier  Notifier
}

// NewToyUseCase builds the catalog service. newID generates message ids.
func NewToyUseCase(toyRepo repository.ToyRepository, newID func() string) *ToyUseCase {
	return &ToyUseCase{
		toyRepo:   toyRepo,
		newID:     newID,
		newChatID: func() string { return ulid.Make().String() },
		now:       time.Now,
		notifier:  noopNotifier{},
	}
}

func (uc *ToyUseCase) SetNotifier(n Notifier) {
	if n == nil {
		n = noopNotifier{}
	}
	uc.notifier = n
}

type ToyPage struct {
	Toys    []*entity.Toy `json:"toys"`
	MaxPage int           `json:"maxPage"`
}

type ToyInput struct {
	Name    string   `json:"name" validate:"required"`
	Price   float64  `json:"price" validate:"gte=0"`
	InStock bool     `json:"inStock"`
	Labels  []string `json:"labels"`
}

func (uc *ToyUseCase) Query(ctx context.Context, spec query.FilterSpec) (*ToyPage, error) {
	criteria, sortKey, page := query.Build(spec)

	toys, total, err := uc.toyRepo.Query(ctx, criteria, sortKey, page)
	if err != nil {
		logger.StoreError("find toys", "", err)
		return nil, err
	}
	if toys == nil {
		toys = []*entity.Toy{}
	}

	return &ToyPage{
		Toys:    toys,
		MaxPage: utils.MaxPage(total, page.PageSize),
	}, nil
}

// GetByID returns nil without an error when the toy does not exist.
func (uc *ToyUseCase) GetByID(ctx context.Context, id string) (*entity.Toy, error) {
	toy, err := uc.toyRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return nil, nil
		}
		logger.StoreError("find toy", id, err)
		return nil, err
	}

	if createdAt, ok := utils.CreatedAtFromID(toy.ID); ok {
		toy.CreatedAt = createdAt
	}
	return toy, nil
}

func (uc *ToyUseCase) Add(ctx context.Context, input ToyInput, caller *entity.Identity) (*entity.Toy, error) {
	if caller == nil {
		return nil, errors.Unauthorized("Authentication required", nil)
	}
	if input.Price < 0 {
		return nil, errors.BadRequest("Price must not be negative", nil)
	}

	owner := caller.MiniUser()
	toy := &entity.Toy{
		Name:        input.Name,
		Price:       input.Price,
		InStock:     input.InStock,
		Labels:      entity.UniqueLabels(input.Labels),
		Owner:       &owner,
		Msgs:        []entity.ToyMsg{},
		ChatHistory: []entity.ChatMsg{},
	}
	if toy.Labels == nil {
		toy.Labels = []string{}
	}

	if err := uc.toyRepo.Create(ctx, toy); err != nil {
		logger.StoreError("insert toy", toy.Name, err)
		return nil, err
	}

	uc.notifier.BroadcastExcluding(EventToyAdded, toy, caller.ID, "")
	uc.notifier.EmitToWatchers(EventWatchedUserToyAdded, toy, caller.ID)
	return toy, nil
}

// Update replaces the provided fields of the stored toy and returns it reloaded.
// The id comes from the caller, never from the payload.
func (uc *ToyUseCase) Update(ctx context.Context, id string, patch entity.ToyPatch, caller *entity.Identity) (*entity.Toy, error) {
	if patch.Price != nil && *patch.Price < 0 {
		return nil, errors.BadRequest("Price must not be negative", nil)
	}
	if patch.Labels != nil {
		patch.Labels = entity.UniqueLabels(patch.Labels)
	}

	if err := uc.toyRepo.Update(ctx, id, patch); err != nil {
		if !errors.Is(err, errors.CodeNotFound) {
			logger.StoreError("update toy", id, err)
		}
		return nil, err
	}

	toy, err := uc.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if toy == nil {
		return nil, errors.NotFound("Toy", nil)
	}

	callerID := ""
	if caller != nil {
		callerID = caller.ID
	}
	uc.notifier.BroadcastExcluding(EventToyUpdated, toy, callerID, "")
	if toy.Owner != nil && toy.Owner.ID != "" && toy.Owner.ID != callerID {
		uc.notifier.EmitToUser(EventYourToyUpdated, toy, toy.Owner.ID)
	}
	return toy, nil
}

// Remove deletes a toy owned by the caller. Admins may delete any toy.
func (uc *ToyUseCase) Remove(ctx context.Context, id string, caller *entity.Identity) (string, error) {
	if caller == nil {
		return "", errors.Unauthorized("Authentication required", nil)
	}

	ownerID := caller.ID
	if caller.IsAdmin {
		ownerID = ""
	}

	deleted, err := uc.toyRepo.Delete(ctx, id, ownerID)
	if err != nil {
		logger.StoreError("remove toy", id, err)
		return "", err
	}
	if deleted == 0 {
		return "", errors.NotAuthorizedOrNotFound("Toy")
	}

	uc.notifier.BroadcastExcluding(EventToyRemoved, id, caller.ID, "")
	return id, nil
}

func (uc *ToyUseCase) AddMessage(ctx context.Context, toyID, txt string, author *entity.Identity) (*entity.ToyMsg, error) {
	if author == nil {
		return nil, errors.Unauthorized("Authentication required", nil)
	}

	msg := entity.ToyMsg{
		ID:        uc.newID(),
		Txt:       txt,
		By:        author.MiniUser(),
		CreatedAt: uc.now().UTC(),
	}

	if err := uc.toyRepo.PushMessage(ctx, toyID, msg); err != nil {
		if !errors.Is(err, errors.CodeNotFound) {
			logger.StoreError("add toy msg", toyID, err)
		}
		return nil, err
	}

	uc.notifier.BroadcastExcluding(EventToyMsgAdded, msg, author.ID, toyID)
	return &msg, nil
}

// RemoveMessage returns the whole toy after the message is gone.
func (uc *ToyUseCase) RemoveMessage(ctx context.Context, toyID, msgID string) (*entity.Toy, error) {
	if err := uc.toyRepo.PullMessage(ctx, toyID, msgID); err != nil {
		if !errors.Is(err, errors.CodeNotFound) {
			logger.StoreError("remove toy msg", toyID, err)
		}
		return nil, err
	}

	toy, err := uc.GetByID(ctx, toyID)
	if err != nil {
		return nil, err
	}
	if toy == nil {
		return nil, errors.NotFound("Toy", nil)
	}
	return toy, nil
}

func (uc *ToyUseCase) GetLabels(ctx context.Context) ([]string, error) {
	labels, err := uc.toyRepo.Labels(ctx)
	if err != nil {
		logger.StoreError("get labels", "", err)
		return nil, err
	}
	if labels == nil {
		labels = []string{}
	}
	return labels, nil
}

func (uc *ToyUseCase) GetLabelStats(ctx context.Context) (map[string]entity.LabelStat, error) {
	labelStats, err := uc.toyRepo.LabelStats(ctx)
	if err != nil {
		logger.StoreError("get label stats", "", err)
		return nil, err
	}
	return stats.ToMap(labelStats), nil
}

// ChatHistory returns the persisted chat of a topic. Unknown topics have an empty history.
func (uc *ToyUseCase) ChatHistory(ctx context.Context, topic string) ([]entity.ChatMsg, error) {
	toy, err := uc.GetByID(ctx, topic)
	if err != nil {
		return nil, err
	}
	if toy == nil || toy.ChatHistory == nil {
		return []entity.ChatMsg{}, nil
	}
	return toy.ChatHistory, nil
}

// AddChatMessage persists msg on the topic's chat history and returns it with its id set.
func (uc *ToyUseCase) AddChatMessage(ctx context.Context, topic string, msg entity.ChatMsg) (entity.ChatMsg, error) {
	if msg.ID == "" {
		msg.ID = uc.newChatID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = uc.now().UTC()
	}

	if err := uc.toyRepo.PushChatMessage(ctx, topic, msg); err != nil {
		logger.StoreError("add chat msg", topic, err)
		return msg, err
	}
	return msg, nil
}

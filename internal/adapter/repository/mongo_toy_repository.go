package repository

import (
	"context"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/InbalMary/mistertoy-mongo-backend/internal/domain/entity"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/domain/query"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/domain/repository"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/domain/stats"
	"github.com/InbalMary/mistertoy-mongo-backend/pkg/errors"
	"github.com/InbalMary/mistertoy-mongo-backend/pkg/utils"
)

const toyCollection = "toy"

// toyDocument is the stored shape. InStock is decoded loosely because older
// documents hold the string form.
type toyDocument struct {
	ID          bson.ObjectID    `bson:"_id,omitempty"`
	Name        string           `bson:"name"`
	Price       float64          `bson:"price"`
	InStock     interface{}      `bson:"inStock"`
	Labels      []string         `bson:"labels"`
	Owner       *entity.MiniUser `bson:"owner,omitempty"`
	Msgs        []entity.ToyMsg  `bson:"msgs"`
	ChatHistory []entity.ChatMsg `bson:"chatHistory"`
}

func (d *toyDocument) toEntity() *entity.Toy {
	return &entity.Toy{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Price:       d.Price,
		InStock:     stats.IsTruthy(d.InStock),
		Labels:      d.Labels,
		CreatedAt:   d.ID.Timestamp(),
		Owner:       d.Owner,
		Msgs:        d.Msgs,
		ChatHistory: d.ChatHistory,
	}
}

type labelStatDocument struct {
	Label    string  `bson:"_id"`
	AvgPrice float64 `bson:"avgPrice"`
	Total    int     `bson:"total"`
	InStock  int     `bson:"inStock"`
	Percent  float64 `bson:"percent"`
}

// MongoToyRepository is the primary store. Label statistics run as aggregation pipelines.
type MongoToyRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func NewMongoToyRepository(client *mongo.Client, database string) *MongoToyRepository {
	return &MongoToyRepository{
		client: client,
		coll:   client.Database(database).Collection(toyCollection),
	}
}

var _ repository.ToyRepository = (*MongoToyRepository)(nil)

// EnsureIndexes creates the indexes the listing and label queries rely on.
func (r *MongoToyRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "labels", Value: 1}}},
		{Keys: bson.D{{Key: "name", Value: 1}}},
		{Keys: bson.D{{Key: "price", Value: 1}}},
		{Keys: bson.D{{Key: "owner._id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("mongo: failed to create toy indexes: %w", err)
	}
	return nil
}

func (r *MongoToyRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

func (r *MongoToyRepository) Create(ctx context.Context, toy *entity.Toy) error {
	doc := toyDocument{
		ID:          bson.NewObjectID(),
		Name:        toy.Name,
		Price:       toy.Price,
		InStock:     toy.InStock,
		Labels:      nonNilLabels(toy.Labels),
		Owner:       toy.Owner,
		Msgs:        nonNilMsgs(toy.Msgs),
		ChatHistory: nonNilChat(toy.ChatHistory),
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return errors.StoreUnavailable("Failed to insert toy", err)
	}

	toy.ID = doc.ID.Hex()
	toy.CreatedAt = doc.ID.Timestamp()
	return nil
}

func (r *MongoToyRepository) GetByID(ctx context.Context, id string) (*entity.Toy, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, errors.NotFound("Toy", err)
	}

	var doc toyDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errors.NotFound("Toy", err)
		}
		return nil, errors.StoreUnavailable("Failed to get toy", err)
	}
	return doc.toEntity(), nil
}

func (r *MongoToyRepository) Query(ctx context.Context, criteria query.Criteria, sortKey query.SortKey, page utils.Pagination) ([]*entity.Toy, int64, error) {
	filter := mongoFilter(criteria)

	opts := options.Find().SetSkip(int64(page.Skip)).SetLimit(int64(page.PageSize))
	if sort := mongoSort(sortKey); sort != nil {
		opts.SetSort(sort)
	}

	var (
		total int64
		docs  []toyDocument
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := r.coll.CountDocuments(gctx, filter)
		total = n
		return err
	})
	g.Go(func() error {
		cursor, err := r.coll.Find(gctx, filter, opts)
		if err != nil {
			return err
		}
		return cursor.All(gctx, &docs)
	})
	if err := g.Wait(); err != nil {
		return nil, 0, errors.StoreUnavailable("Failed to query toys", err)
	}

	toys := make([]*entity.Toy, 0, len(docs))
	for i := range docs {
		toys = append(toys, docs[i].toEntity())
	}
	return toys, total, nil
}

func (r *MongoToyRepository) Update(ctx context.Context, id string, patch entity.ToyPatch) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return errors.NotFound("Toy", err)
	}

	set := bson.M{}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	if patch.InStock != nil {
		set["inStock"] = *patch.InStock
	}
	if patch.Labels != nil {
		set["labels"] = patch.Labels
	}

	if len(set) == 0 {
		n, err := r.coll.CountDocuments(ctx, bson.M{"_id": oid})
		if err != nil {
			return errors.StoreUnavailable("Failed to update toy", err)
		}
		if n == 0 {
			return errors.NotFound("Toy", nil)
		}
		return nil
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return errors.StoreUnavailable("Failed to update toy", err)
	}
	if res.MatchedCount == 0 {
		return errors.NotFound("Toy", nil)
	}
	return nil
}

func (r *MongoToyRepository) Delete(ctx context.Context, id string, ownerID string) (int64, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return 0, nil
	}

	criteria := bson.M{"_id": oid}
	if ownerID != "" {
		criteria["owner._id"] = ownerID
	}

	res, err := r.coll.DeleteOne(ctx, criteria)
	if err != nil {
		return 0, errors.StoreUnavailable("Failed to remove toy", err)
	}
	return res.DeletedCount, nil
}

func (r *MongoToyRepository) PushMessage(ctx context.Context, toyID string, msg entity.ToyMsg) error {
	return r.updateArray(ctx, toyID, bson.M{"$push": bson.M{"msgs": msg}}, "Failed to add toy msg")
}

func (r *MongoToyRepository) PullMessage(ctx context.Context, toyID string, msgID string) error {
	return r.updateArray(ctx, toyID, bson.M{"$pull": bson.M{"msgs": bson.M{"id": msgID}}}, "Failed to remove toy msg")
}

func (r *MongoToyRepository) PushChatMessage(ctx context.Context, toyID string, msg entity.ChatMsg) error {
	return r.updateArray(ctx, toyID, bson.M{"$push": bson.M{"chatHistory": msg}}, "Failed to add chat msg")
}

func (r *MongoToyRepository) updateArray(ctx context.Context, toyID string, update bson.M, message string) error {
	oid, err := bson.ObjectIDFromHex(toyID)
	if err != nil {
		return errors.NotFound("Toy", err)
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return errors.StoreUnavailable(message, err)
	}
	if res.MatchedCount == 0 {
		return errors.NotFound("Toy", nil)
	}
	return nil
}

func (r *MongoToyRepository) Labels(ctx context.Context) ([]string, error) {
	cursor, err := r.coll.Aggregate(ctx, labelsPipeline())
	if err != nil {
		return nil, errors.StoreUnavailable("Failed to get labels", err)
	}

	var docs []struct {
		Label string `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.StoreUnavailable("Failed to decode labels", err)
	}

	labels := make([]string, 0, len(docs))
	for _, d := range docs {
		labels = append(labels, d.Label)
	}
	return labels, nil
}

func (r *MongoToyRepository) LabelStats(ctx context.Context) ([]entity.LabelStat, error) {
	cursor, err := r.coll.Aggregate(ctx, labelStatsPipeline())
	if err != nil {
		return nil, errors.StoreUnavailable("Failed to get label stats", err)
	}

	var docs []labelStatDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.StoreUnavailable("Failed to decode label stats", err)
	}

	out := make([]entity.LabelStat, 0, len(docs))
	for _, d := range docs {
		out = append(out, entity.LabelStat{
			Label:    d.Label,
			AvgPrice: d.AvgPrice,
			Total:    d.Total,
			InStock:  d.InStock,
			Percent:  d.Percent,
		})
	}
	return out, nil
}

func mongoFilter(c query.Criteria) bson.M {
	filter := bson.M{}
	if c.NameContains != "" {
		filter["name"] = bson.M{"$regex": regexp.QuoteMeta(c.NameContains), "$options": "i"}
	}
	if c.MaxPrice != nil {
		filter["price"] = bson.M{"$lte": *c.MaxPrice}
	}
	if c.InStock != nil {
		filter["inStock"] = *c.InStock
	}
	if len(c.Labels) > 0 {
		filter["labels"] = bson.M{"$all": c.Labels}
	}
	return filter
}

// mongoSort returns nil for natural order. createdAt is not stored, the ObjectID carries it.
func mongoSort(key query.SortKey) bson.D {
	switch key {
	case query.SortName:
		return bson.D{{Key: "name", Value: 1}}
	case query.SortPrice:
		return bson.D{{Key: "price", Value: 1}}
	case query.SortCreatedAt:
		return bson.D{{Key: "_id", Value: 1}}
	default:
		return nil
	}
}

func labelsPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$unwind", Value: "$labels"}},
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$labels"}}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}

func labelStatsPipeline() mongo.Pipeline {
	inStock := bson.D{{Key: "$cond", Value: bson.A{
		bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "$eq", Value: bson.A{"$inStock", true}}},
			bson.D{{Key: "$eq", Value: bson.A{"$inStock", "true"}}},
		}}},
		1,
		0,
	}}}

	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "labels", Value: bson.D{
			{Key: "$exists", Value: true},
			{Key: "$ne", Value: bson.A{}},
		}}}}},
		{{Key: "$unwind", Value: "$labels"}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$labels"},
			{Key: "prices", Value: bson.D{{Key: "$push", Value: "$price"}}},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "inStock", Value: bson.D{{Key: "$sum", Value: inStock}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "avgPrice", Value: bson.D{{Key: "$round", Value: bson.A{
				bson.D{{Key: "$avg", Value: "$prices"}},
				2,
			}}}},
			{Key: "total", Value: 1},
			{Key: "inStock", Value: 1},
			{Key: "percent", Value: bson.D{{Key: "$round", Value: bson.A{
				bson.D{{Key: "$multiply", Value: bson.A{
					bson.D{{Key: "$divide", Value: bson.A{"$inStock", "$total"}}},
					100,
				}}},
				2,
			}}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}

func nonNilLabels(labels []string) []string {
	if labels == nil {
		return []string{}
	}
	return labels
}

func nonNilMsgs(msgs []entity.ToyMsg) []entity.ToyMsg {
	if msgs == nil {
		return []entity.ToyMsg{}
	}
	return msgs
}

func nonNilChat(msgs []entity.ChatMsg) []entity.ChatMsg {
	if msgs == nil {
		return []entity.ChatMsg{}
	}
	return msgs
}

package migrate

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// UpdateResult reports how many documents an update matched and changed.
type UpdateResult struct {
	Matched  int64
	Modified int64
}

// Collection is the subset of a document collection the loader needs.
type Collection interface {
	InsertMany(ctx context.Context, docs []any) (int, error)
	Find(ctx context.Context, filter bson.D) ([]bson.D, error)
	UpdateOne(ctx context.Context, filter, update bson.D) (UpdateResult, error)
	UpdateMany(ctx context.Context, filter, update bson.D) (UpdateResult, error)
	DeleteOne(ctx context.Context, filter bson.D) (int64, error)
	DeleteMany(ctx context.Context, filter bson.D) (int64, error)
	Drop(ctx context.Context) error
}

type mongoCollection struct {
	coll *mongo.Collection
}

var _ Collection = (*mongoCollection)(nil)

// NewMongoCollection adapts a driver collection.
func NewMongoCollection(coll *mongo.Collection) Collection {
	return &mongoCollection{coll: coll}
}

func (c *mongoCollection) InsertMany(ctx context.Context, docs []any) (int, error) {
	res, err := c.coll.InsertMany(ctx, docs)
	if err != nil {
		return 0, err
	}
	return len(res.InsertedIDs), nil
}

func (c *mongoCollection) Find(ctx context.Context, filter bson.D) ([]bson.D, error) {
	cur, err := c.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	var docs []bson.D
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (c *mongoCollection) UpdateOne(ctx context.Context, filter, update bson.D) (UpdateResult, error) {
	res, err := c.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return UpdateResult{}, err
	}
	return UpdateResult{Matched: res.MatchedCount, Modified: res.ModifiedCount}, nil
}

func (c *mongoCollection) UpdateMany(ctx context.Context, filter, update bson.D) (UpdateResult, error) {
	res, err := c.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return UpdateResult{}, err
	}
	return UpdateResult{Matched: res.MatchedCount, Modified: res.ModifiedCount}, nil
}

func (c *mongoCollection) DeleteOne(ctx context.Context, filter bson.D) (int64, error) {
	res, err := c.coll.DeleteOne(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (c *mongoCollection) DeleteMany(ctx context.Context, filter bson.D) (int64, error) {
	res, err := c.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (c *mongoCollection) Drop(ctx context.Context) error {
	return c.coll.Drop(ctx)
}

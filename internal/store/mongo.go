package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// nodeDocument is one root of the tree as stored in the nodes collection.
type nodeDocument struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	Version   int64     `bson:"version"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Mongo is a Store backed by a MongoDB collection holding one document per
// top-level key ("<identity>", "users", "conversation_<id>").
type Mongo struct {
	documentStore
}

// NewMongo returns a Mongo store over coll. Observed paths are polled every
// pollInterval.
func NewMongo(coll *mongo.Collection, pollInterval time.Duration) *Mongo {
	return &Mongo{documentStore{roots: &mongoRoots{coll: coll}, interval: pollInterval}}
}

type mongoRoots struct {
	coll *mongo.Collection
}

func (r *mongoRoots) load(ctx context.Context, key string) ([]byte, int64, error) {
	var doc nodeDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, errors.Wrapf(err, "load node %s", key)
	}
	return []byte(doc.Value), doc.Version, nil
}

func (r *mongoRoots) save(ctx context.Context, key string, raw []byte, version int64) (bool, error) {
	switch {
	case version == 0 && raw == nil:
		return true, nil

	case version == 0:
		_, err := r.coll.InsertOne(ctx, nodeDocument{
			Key:       key,
			Value:     string(raw),
			Version:   1,
			UpdatedAt: time.Now(),
		})
		if mongo.IsDuplicateKeyError(err) {
			// created concurrently
			return false, nil
		}
		if err != nil {
			return false, errors.Wrapf(err, "insert node %s", key)
		}
		return true, nil

	case raw == nil:
		res, err := r.coll.DeleteOne(ctx, bson.M{"_id": key, "version": version})
		if err != nil {
			return false, errors.Wrapf(err, "delete node %s", key)
		}
		return res.DeletedCount == 1, nil

	default:
		res, err := r.coll.UpdateOne(ctx,
			bson.M{"_id": key, "version": version},
			bson.M{
				"$set": bson.M{"value": string(raw), "updated_at": time.Now()},
				"$inc": bson.M{"version": 1},
			},
		)
		if err != nil {
			return false, errors.Wrapf(err, "update node %s", key)
		}
		return res.MatchedCount == 1, nil
	}
}

package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const sequencesCollection = "sequences"

// sequences hands out monotonically increasing numeric identifiers, one
// counter document per entity name. The $inc upsert is atomic on the
// server, so concurrent callers never observe the same value.
type sequences struct {
	coll *mongo.Collection
}

func newSequences(db *mongo.Database) *sequences {
	return &sequences{coll: db.Collection(sequencesCollection)}
}

func (s *sequences) next(ctx context.Context, name string) (int64, error) {
	res := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)

	var doc struct {
		Value int64 `bson:"value"`
	}
	if err := res.Decode(&doc); err != nil {
		return 0, fmt.Errorf("next %s id: %w", name, err)
	}
	return doc.Value, nil
}

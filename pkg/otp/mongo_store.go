package otp

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// DefaultMongoCollection holds OTP records when no collection name is given.
const DefaultMongoCollection = "otp_records"

type mongoRecord struct {
	ID     string `bson:"_id"`
	Record `bson:",inline"`
}

// MongoStore keeps one document per (purpose, recipient) keyed by
// "purpose:recipient". A TTL index on purge_at lets MongoDB drop records
// nobody finished.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore creates a store on the given collection.
func NewMongoStore(db *mongo.Database, collection string) *MongoStore {
	if collection == "" {
		collection = DefaultMongoCollection
	}
	return &MongoStore{coll: db.Collection(collection)}
}

// EnsureIndexes creates the TTL index on purge_at.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "purge_at", Value: 1}},
		Options: options.Index().SetName("purge_at_ttl").SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("create otp ttl index: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *MongoStore) Get(ctx context.Context, purpose Purpose, recipient string) (*Record, error) {
	var doc mongoRecord
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: RecordKey(purpose, recipient)}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find otp record: %w", err)
	}
	return &doc.Record, nil
}

// Put implements Store. Creation relies on the unique _id, updates replace
// the document only while its version still matches.
func (s *MongoStore) Put(ctx context.Context, rec *Record, expectedVersion int64) error {
	doc := mongoRecord{ID: rec.Key(), Record: *rec}
	doc.Version = expectedVersion + 1

	if expectedVersion == 0 {
		if _, err := s.coll.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return ErrVersionConflict
			}
			return fmt.Errorf("insert otp record: %w", err)
		}
		rec.Version = doc.Version
		return nil
	}

	res, err := s.coll.ReplaceOne(ctx, bson.D{
		{Key: "_id", Value: doc.ID},
		{Key: "version", Value: expectedVersion},
	}, doc)
	if err != nil {
		return fmt.Errorf("replace otp record: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrVersionConflict
	}
	rec.Version = doc.Version
	return nil
}

// Delete implements Store.
func (s *MongoStore) Delete(ctx context.Context, purpose Purpose, recipient string, expectedVersion int64) error {
	key := RecordKey(purpose, recipient)

	res, err := s.coll.DeleteOne(ctx, bson.D{
		{Key: "_id", Value: key},
		{Key: "version", Value: expectedVersion},
	})
	if err != nil {
		return fmt.Errorf("delete otp record: %w", err)
	}
	if res.DeletedCount > 0 {
		return nil
	}

	n, err := s.coll.CountDocuments(ctx, bson.D{{Key: "_id", Value: key}})
	if err != nil {
		return fmt.Errorf("count otp records: %w", err)
	}
	if n == 0 {
		return ErrRecordNotFound
	}
	return ErrVersionConflict
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	yerrors "github.com/yiyinbot/yiyin/pkg/errors"
)

// mongoRecord is the stored document. Data holds the JSON encoding of the
// value so any Go type round-trips unchanged.
type mongoRecord struct {
	Key     string `bson:"_id"`
	Version int64  `bson:"version"`
	Data    string `bson:"data"`
}

// MongoStore keeps one document per key in a collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// DialMongo connects to uri and uses database/collection.
func DialMongo(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStore{client: client, coll: client.Database(database).Collection(collection)}, nil
}

func (s *MongoStore) load(ctx context.Context, key string) (*mongoRecord, error) {
	var rec mongoRecord
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Get implements [Store].
func (s *MongoStore) Get(ctx context.Context, key string, v any) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	rec, err := s.load(ctx, key)
	if err != nil || rec == nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(rec.Data), v); err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return true, nil
}

// Put implements [Store].
func (s *MongoStore) Put(ctx context.Context, key string, v any) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.coll.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"data": string(data)}, "$inc": bson.M{"version": 1}},
		options.Update().SetUpsert(true),
	)
	return err
}

// Update implements [Store]. The write only succeeds if the document still
// has the version that was read; otherwise the whole cycle is retried.
func (s *MongoStore) Update(ctx context.Context, key string, v any, fn func(bool) error) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	for range maxTxRetries {
		reset(v)
		rec, err := s.load(ctx, key)
		if err != nil {
			return err
		}
		if rec != nil {
			if err := json.Unmarshal([]byte(rec.Data), v); err != nil {
				return fmt.Errorf("parse %s: %w", key, err)
			}
		}

		write, err := runUpdate(fn, rec != nil)
		if err != nil || !write {
			return err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}

		if rec == nil {
			_, err := s.coll.InsertOne(ctx, mongoRecord{Key: key, Version: 1, Data: string(data)})
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			return err
		}

		res, err := s.coll.UpdateOne(ctx,
			bson.M{"_id": key, "version": rec.Version},
			bson.M{"$set": bson.M{"data": string(data), "version": rec.Version + 1}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 1 {
			return nil
		}
	}
	return yerrors.New(yerrors.ErrCodeConflict, "too many concurrent updates to %s", key)
}

// Delete implements [Store].
func (s *MongoStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": key})
	return err
}

// Keys implements [Store].
func (s *MongoStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	filter := bson.M{"_id": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}}
	cur, err := s.coll.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var keys []string
	for cur.Next(ctx) {
		var doc struct {
			Key string `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		keys = append(keys, doc.Key)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// Close implements [Store].
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

var _ Store = (*MongoStore)(nil)

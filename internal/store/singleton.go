package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SingletonKey is the fixed _id of a singleton document.
const SingletonKey = "singleton"

// Singleton stores exactly one document per collection under SingletonKey.
type Singleton[T any] struct {
	col      *mongo.Collection
	recorder OperationRecorder
}

func NewSingleton[T any](col *mongo.Collection, recorder OperationRecorder) *Singleton[T] {
	return &Singleton[T]{col: col, recorder: recorder}
}

// Load returns the document, inserting defaults first when it does not exist yet.
// defaults must not contain _id.
func (s *Singleton[T]) Load(ctx context.Context, defaults bson.M) (*T, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc T
	err := s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": SingletonKey},
		bson.M{"$setOnInsert": defaults},
		opts,
	).Decode(&doc)
	s.record("load", err == nil)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.col.Name(), err)
	}
	return &doc, nil
}

// Save sets fields on the document, creating it from defaults when absent.
// Keys present in set take precedence over defaults.
func (s *Singleton[T]) Save(ctx context.Context, set, defaults bson.M) (*T, error) {
	onInsert := bson.M{}
	for k, v := range defaults {
		if _, overridden := set[k]; !overridden {
			onInsert[k] = v
		}
	}

	update := bson.M{"$set": set}
	if len(onInsert) > 0 {
		update["$setOnInsert"] = onInsert
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc T
	err := s.col.FindOneAndUpdate(ctx, bson.M{"_id": SingletonKey}, update, opts).Decode(&doc)
	s.record("save", err == nil)
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", s.col.Name(), err)
	}
	return &doc, nil
}

// AdoptLegacy re-keys a document stored under a generated ObjectID to
// SingletonKey. The newest one by updatedAt wins and the rest are removed.
// It does nothing and returns false when the keyed document already exists.
func (s *Singleton[T]) AdoptLegacy(ctx context.Context) (bool, error) {
	n, err := s.col.CountDocuments(ctx, bson.M{"_id": SingletonKey})
	if err != nil {
		return false, fmt.Errorf("count %s: %w", s.col.Name(), err)
	}
	if n > 0 {
		return false, nil
	}

	opts := options.FindOne().SetSort(bson.D{{Key: "updatedAt", Value: -1}, {Key: "_id", Value: -1}})
	var legacy bson.M
	err = s.col.FindOne(ctx, bson.M{"_id": bson.M{"$ne": SingletonKey}}, opts).Decode(&legacy)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find legacy %s: %w", s.col.Name(), err)
	}

	legacy["_id"] = SingletonKey
	delete(legacy, "__v")
	_, err = s.col.InsertOne(ctx, legacy)
	s.record("adopt", err == nil)
	if err != nil {
		return false, fmt.Errorf("re-key %s: %w", s.col.Name(), err)
	}
	if _, err := s.col.DeleteMany(ctx, bson.M{"_id": bson.M{"$ne": SingletonKey}}); err != nil {
		return true, fmt.Errorf("remove legacy %s: %w", s.col.Name(), err)
	}
	return true, nil
}

func (s *Singleton[T]) record(op string, success bool) {
	if s.recorder != nil {
		s.recorder.RecordDatabaseOperation(op, s.col.Name(), success)
	}
}

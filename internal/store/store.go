// Package store is the document mapper between typed entities and Mongo
// collections. Every listing resource goes through Repository; the video
// banner settings go through Singleton.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrInvalidID is returned before any lookup when an identifier is not a 24-char hex ObjectID.
	ErrInvalidID = errors.New("invalid identifier")
	// ErrNotFound is returned when no document matches the identifier.
	ErrNotFound = errors.New("document not found")
)

// Repository is the CRUD contract shared by all listing resources.
type Repository[T any] interface {
	List(ctx context.Context, filter bson.M) ([]T, error)
	Get(ctx context.Context, id string) (*T, error)
	Insert(ctx context.Context, doc *T) error
	Update(ctx context.Context, id string, set bson.M) (*T, error)
	Delete(ctx context.Context, id string) error
}

// OperationRecorder receives one call per Mongo operation. telemetry.Metrics satisfies it.
type OperationRecorder interface {
	RecordDatabaseOperation(operation, collection string, success bool)
}

// ParseID validates a path identifier.
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return oid, nil
}

// MongoRepository implements Repository on a single collection.
type MongoRepository[T any] struct {
	col      *mongo.Collection
	recorder OperationRecorder
	now      func() time.Time
}

func NewMongoRepository[T any](col *mongo.Collection, recorder OperationRecorder) *MongoRepository[T] {
	return &MongoRepository[T]{
		col:      col,
		recorder: recorder,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Collection exposes the collection name for logging and cache keys.
func (r *MongoRepository[T]) Collection() string {
	return r.col.Name()
}

// List returns matching documents newest first. The result is never nil.
func (r *MongoRepository[T]) List(ctx context.Context, filter bson.M) ([]T, error) {
	if filter == nil {
		filter = bson.M{}
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		r.record("find", false)
		return nil, fmt.Errorf("find %s: %w", r.col.Name(), err)
	}
	defer cursor.Close(ctx)

	docs := make([]T, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		r.record("find", false)
		return nil, fmt.Errorf("decode %s: %w", r.col.Name(), err)
	}

	r.record("find", true)
	return docs, nil
}

func (r *MongoRepository[T]) Get(ctx context.Context, id string) (*T, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}

	var doc T
	err = r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		r.record("find_one", true)
		return nil, ErrNotFound
	}
	if err != nil {
		r.record("find_one", false)
		return nil, fmt.Errorf("find %s %s: %w", r.col.Name(), id, err)
	}

	r.record("find_one", true)
	return &doc, nil
}

// Insert stores doc as-is; callers assign the ObjectID and timestamps.
func (r *MongoRepository[T]) Insert(ctx context.Context, doc *T) error {
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		r.record("insert", false)
		return fmt.Errorf("insert %s: %w", r.col.Name(), err)
	}
	r.record("insert", true)
	return nil
}

// Update applies a partial $set, bumps updatedAt and returns the document after the write.
func (r *MongoRepository[T]) Update(ctx context.Context, id string, set bson.M) (*T, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}

	fields := bson.M{}
	for k, v := range set {
		fields[k] = v
	}
	fields["updatedAt"] = r.now()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc T
	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": fields}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		r.record("update", true)
		return nil, ErrNotFound
	}
	if err != nil {
		r.record("update", false)
		return nil, fmt.Errorf("update %s %s: %w", r.col.Name(), id, err)
	}

	r.record("update", true)
	return &doc, nil
}

func (r *MongoRepository[T]) Delete(ctx context.Context, id string) error {
	oid, err := ParseID(id)
	if err != nil {
		return err
	}

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		r.record("delete", false)
		return fmt.Errorf("delete %s %s: %w", r.col.Name(), id, err)
	}
	r.record("delete", true)

	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository[T]) record(op string, success bool) {
	if r.recorder != nil {
		r.recorder.RecordDatabaseOperation(op, r.col.Name(), success)
	}
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxImages is the number of gallery images a profile card can hold.
const MaxImages = 5

// Document carries the fields the store manages for every listing.
type Document struct {
	ID        primitive.ObjectID `bson:"_id" json:"_id"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// NewDocument allocates an identifier and stamps both timestamps with now.
func NewDocument(now time.Time) Document {
	return Document{
		ID:        primitive.NewObjectID(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Key returns the hex form of the identifier.
func (d Document) Key() string {
	return d.ID.Hex()
}

// Identifiable is satisfied by every listing through its embedded Document.
type Identifiable interface {
	Key() string
}

// CreateCommand is a validated create payload for a listing of type T.
type CreateCommand[T any] interface {
	Entity(doc Document) T
}

// UpdateCommand is a validated partial update. Changes returns only the
// fields present in the payload, keyed by their stored names.
type UpdateCommand interface {
	Changes() bson.M
}

func setString(set bson.M, key string, v *string) {
	if v != nil {
		set[key] = *v
	}
}

func images(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

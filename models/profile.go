package models

import (
	"go.mongodb.org/mongo-driver/bson"
)

type ProfileFields struct {
	Heading       string   `bson:"heading" json:"heading"`
	Description   string   `bson:"description" json:"description"`
	Location      string   `bson:"location" json:"location"`
	ContactNumber string   `bson:"contactNumber" json:"contactNumber"`
	Images        []string `bson:"images" json:"images"`
}

type Profile struct {
	Document      `bson:",inline"`
	ProfileFields `bson:",inline"`
}

// HighProfileCallGirl has the same shape as Profile but lives in its own collection.
type HighProfileCallGirl struct {
	Document      `bson:",inline"`
	ProfileFields `bson:",inline"`
}

type CreateProfileRequest struct {
	Heading       string   `json:"heading" binding:"required,max=200"`
	Description   string   `json:"description" binding:"required,max=5000"`
	Location      string   `json:"location" binding:"required,max=200"`
	ContactNumber string   `json:"contactNumber" binding:"required,max=32"`
	Images        []string `json:"images" binding:"omitempty,max=5"`
}

func (r CreateProfileRequest) fields() ProfileFields {
	return ProfileFields{
		Heading:       r.Heading,
		Description:   r.Description,
		Location:      r.Location,
		ContactNumber: r.ContactNumber,
		Images:        images(r.Images),
	}
}

func (r CreateProfileRequest) Entity(doc Document) Profile {
	return Profile{Document: doc, ProfileFields: r.fields()}
}

// UpdateProfileRequest is a partial update; nil fields are left untouched and
// present ones may not be blank. An explicit empty images list clears the gallery.
type UpdateProfileRequest struct {
	Heading       *string  `json:"heading" binding:"omitempty,min=1,max=200"`
	Description   *string  `json:"description" binding:"omitempty,min=1,max=5000"`
	Location      *string  `json:"location" binding:"omitempty,min=1,max=200"`
	ContactNumber *string  `json:"contactNumber" binding:"omitempty,min=1,max=32"`
	Images        []string `json:"images" binding:"omitempty,max=5"`
}

func (r UpdateProfileRequest) Changes() bson.M {
	set := bson.M{}
	setString(set, "heading", r.Heading)
	setString(set, "description", r.Description)
	setString(set, "location", r.Location)
	setString(set, "contactNumber", r.ContactNumber)
	if r.Images != nil {
		set["images"] = r.Images
	}
	return set
}

type CreateHighProfileRequest CreateProfileRequest

func (r CreateHighProfileRequest) Entity(doc Document) HighProfileCallGirl {
	return HighProfileCallGirl{Document: doc, ProfileFields: CreateProfileRequest(r).fields()}
}

type UpdateHighProfileRequest UpdateProfileRequest

func (r UpdateHighProfileRequest) Changes() bson.M {
	return UpdateProfileRequest(r).Changes()
}

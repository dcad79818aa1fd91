package models

import (
	"go.mongodb.org/mongo-driver/bson"
)

const (
	CategoryStandard = "standard"
	CategoryVIP      = "vip"
)

type ExtraService struct {
	Document `bson:",inline"`
	Name     string `bson:"name" json:"name"`
	Rate     string `bson:"rate" json:"rate"`
	Contact  string `bson:"contact" json:"contact"`
	Category string `bson:"category" json:"category"`
}

type CreateExtraServiceRequest struct {
	Name     string `json:"name" binding:"required,max=200"`
	Rate     string `json:"rate" binding:"required,max=100"`
	Contact  string `json:"contact" binding:"required,max=100"`
	Category string `json:"category" binding:"required,oneof=standard vip"`
}

func (r CreateExtraServiceRequest) Entity(doc Document) ExtraService {
	return ExtraService{
		Document: doc,
		Name:     r.Name,
		Rate:     r.Rate,
		Contact:  r.Contact,
		Category: r.Category,
	}
}

type UpdateExtraServiceRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=200"`
	Rate     *string `json:"rate" binding:"omitempty,min=1,max=100"`
	Contact  *string `json:"contact" binding:"omitempty,min=1,max=100"`
	Category *string `json:"category" binding:"omitempty,oneof=standard vip"`
}

func (r UpdateExtraServiceRequest) Changes() bson.M {
	set := bson.M{}
	setString(set, "name", r.Name)
	setString(set, "rate", r.Rate)
	setString(set, "contact", r.Contact)
	setString(set, "category", r.Category)
	return set
}

// ValidCategory reports whether c is an accepted extra-service category.
func ValidCategory(c string) bool {
	return c == CategoryStandard || c == CategoryVIP
}

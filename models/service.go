package models

import (
	"go.mongodb.org/mongo-driver/bson"
)

// Service is one row of the rate card: a named service, its duration and price.
type Service struct {
	Document `bson:",inline"`
	Name     string  `bson:"name" json:"name"`
	Service  string  `bson:"service" json:"service"`
	Duration string  `bson:"duration" json:"duration"`
	Price    float64 `bson:"price" json:"price"`
}

type CreateServiceRequest struct {
	Name     string   `json:"name" binding:"required,max=200"`
	Service  string   `json:"service" binding:"required,max=200"`
	Duration string   `json:"duration" binding:"required,max=100"`
	Price    *float64 `json:"price" binding:"required,min=0"`
}

func (r CreateServiceRequest) Entity(doc Document) Service {
	return Service{
		Document: doc,
		Name:     r.Name,
		Service:  r.Service,
		Duration: r.Duration,
		Price:    *r.Price,
	}
}

type UpdateServiceRequest struct {
	Name     *string  `json:"name" binding:"omitempty,min=1,max=200"`
	Service  *string  `json:"service" binding:"omitempty,min=1,max=200"`
	Duration *string  `json:"duration" binding:"omitempty,min=1,max=100"`
	Price    *float64 `json:"price" binding:"omitempty,min=0"`
}

func (r UpdateServiceRequest) Changes() bson.M {
	set := bson.M{}
	setString(set, "name", r.Name)
	setString(set, "service", r.Service)
	setString(set, "duration", r.Duration)
	if r.Price != nil {
		set["price"] = *r.Price
	}
	return set
}

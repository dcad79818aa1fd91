package models

import (
	"go.mongodb.org/mongo-driver/bson"
)

type FinalCallGirl struct {
	Document `bson:",inline"`
	Name     string `bson:"name" json:"name"`
	Rate     string `bson:"rate" json:"rate"`
	WhatsApp string `bson:"whatsapp" json:"whatsapp"`
}

type CreateFinalCallGirlRequest struct {
	Name     string `json:"name" binding:"required,max=200"`
	Rate     string `json:"rate" binding:"required,max=100"`
	WhatsApp string `json:"whatsapp" binding:"required,max=32"`
}

func (r CreateFinalCallGirlRequest) Entity(doc Document) FinalCallGirl {
	return FinalCallGirl{
		Document: doc,
		Name:     r.Name,
		Rate:     r.Rate,
		WhatsApp: r.WhatsApp,
	}
}

type UpdateFinalCallGirlRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=200"`
	Rate     *string `json:"rate" binding:"omitempty,min=1,max=100"`
	WhatsApp *string `json:"whatsapp" binding:"omitempty,min=1,max=32"`
}

func (r UpdateFinalCallGirlRequest) Changes() bson.M {
	set := bson.M{}
	setString(set, "name", r.Name)
	setString(set, "rate", r.Rate)
	setString(set, "whatsapp", r.WhatsApp)
	return set
}

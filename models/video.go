package models

import "time"

// VideoSettings is the promo banner singleton shown on the home page.
type VideoSettings struct {
	ID          string    `bson:"_id" json:"-"`
	VideoURL    string    `bson:"videoUrl" json:"videoUrl"`
	PhoneNumber string    `bson:"phoneNumber" json:"phoneNumber"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

type VideoSettingsResponse struct {
	Success bool           `json:"success"`
	Data    *VideoSettings `json:"data"`
	Message string         `json:"message,omitempty"`
}

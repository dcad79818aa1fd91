package models

import (
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func TestCreateProfileRequestValidation(t *testing.T) {
	valid := CreateProfileRequest{Heading: "A", Description: "d", Location: "l", ContactNumber: "1"}
	assert.NoError(t, binding.Validator.ValidateStruct(valid))

	tooMany := valid
	tooMany.Images = make([]string, MaxImages+1)
	assert.Error(t, binding.Validator.ValidateStruct(tooMany))

	missing := valid
	missing.Location = ""
	assert.Error(t, binding.Validator.ValidateStruct(missing))

	long := valid
	long.Heading = strings.Repeat("h", 201)
	assert.Error(t, binding.Validator.ValidateStruct(long))
}

func TestCreateEntityNormalizesImages(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	doc := NewDocument(now)

	p := CreateProfileRequest{Heading: "A", Description: "d", Location: "l", ContactNumber: "1"}.Entity(doc)
	assert.Equal(t, doc.ID, p.ID)
	assert.Equal(t, now, p.CreatedAt)
	assert.Equal(t, now, p.UpdatedAt)
	require.NotNil(t, p.Images)
	assert.Empty(t, p.Images)

	hp := CreateHighProfileRequest{Heading: "B", Description: "d", Location: "l", ContactNumber: "1", Images: []string{"x"}}.Entity(doc)
	assert.Equal(t, "B", hp.Heading)
	assert.Equal(t, []string{"x"}, hp.Images)
}

func TestUpdateRequestsRejectBlankValues(t *testing.T) {
	cases := []struct {
		name string
		req  any
		ok   bool
	}{
		{"empty profile patch", UpdateProfileRequest{}, true},
		{"blank heading", UpdateProfileRequest{Heading: strPtr("")}, false},
		{"cleared images", UpdateProfileRequest{Images: []string{}}, true},
		{"negative price", UpdateServiceRequest{Price: floatPtr(-1)}, false},
		{"zero price", UpdateServiceRequest{Price: floatPtr(0)}, true},
		{"unknown category", UpdateExtraServiceRequest{Category: strPtr("gold")}, false},
		{"vip category", UpdateExtraServiceRequest{Category: strPtr(CategoryVIP)}, true},
		{"blank whatsapp", UpdateFinalCallGirlRequest{WhatsApp: strPtr("")}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := binding.Validator.ValidateStruct(tc.req)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestCreateServiceRequiresPrice(t *testing.T) {
	req := CreateServiceRequest{Name: "n", Service: "s", Duration: "1h"}
	assert.Error(t, binding.Validator.ValidateStruct(req))

	req.Price = floatPtr(0)
	assert.NoError(t, binding.Validator.ValidateStruct(req))
	assert.Equal(t, 0.0, req.Entity(NewDocument(time.Now())).Price)
}

func TestChangesOnlyCarriesPresentFields(t *testing.T) {
	assert.Empty(t, UpdateProfileRequest{}.Changes())

	assert.Equal(t, bson.M{"location": "Udaipur"}, UpdateProfileRequest{Location: strPtr("Udaipur")}.Changes())
	assert.Equal(t, bson.M{"images": []string{}}, UpdateHighProfileRequest{Images: []string{}}.Changes())
	assert.Equal(t, bson.M{"price": 2500.0, "name": "n"}, UpdateServiceRequest{Name: strPtr("n"), Price: floatPtr(2500)}.Changes())
	assert.Equal(t, bson.M{"category": "vip"}, UpdateExtraServiceRequest{Category: strPtr("vip")}.Changes())
	assert.Equal(t, bson.M{"whatsapp": "91"}, UpdateFinalCallGirlRequest{WhatsApp: strPtr("91")}.Changes())
}

func TestValidCategory(t *testing.T) {
	assert.True(t, ValidCategory("standard"))
	assert.True(t, ValidCategory("vip"))
	assert.False(t, ValidCategory("VIP"))
	assert.False(t, ValidCategory(""))
}

func TestLoginRequestValidation(t *testing.T) {
	assert.NoError(t, binding.Validator.ValidateStruct(LoginRequest{Username: "admin", Password: "x"}))
	assert.Error(t, binding.Validator.ValidateStruct(LoginRequest{Username: "ad", Password: "x"}))
	assert.Error(t, binding.Validator.ValidateStruct(LoginRequest{Username: "admin"}))
}

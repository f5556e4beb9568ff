package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteopoint/meteopoint/internal/api/models"
)

type sampleRequest struct {
	Name     string   `json:"name" validate:"required,max=10"`
	Latitude *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Note     string   `json:"note,omitempty" validate:"omitempty,min=3"`
}

func TestValidate(t *testing.T) {
	lat := 52.37
	assert.Nil(t, models.Validate(sampleRequest{Name: "home", Latitude: &lat}))

	zero := 0.0
	assert.Nil(t, models.Validate(sampleRequest{Name: "equator", Latitude: &zero}))

	bad := 95.0
	errs := models.Validate(sampleRequest{Latitude: &bad, Note: "x"})
	require.Len(t, errs, 3)

	byField := map[string]models.FieldError{}
	for _, e := range errs {
		byField[e.Field] = e
	}
	assert.Equal(t, "REQUIRED", byField["name"].Code)
	assert.Equal(t, "OUT_OF_RANGE", byField["latitude"].Code)
	assert.Equal(t, "must be less than or equal to 90", byField["latitude"].Message)
	assert.Equal(t, "INVALID_LENGTH", byField["note"].Code)
	assert.Equal(t, "must be at least 3 characters", byField["note"].Message)
}

func TestValidate_MissingPointer(t *testing.T) {
	errs := models.Validate(sampleRequest{Name: "home"})
	require.Len(t, errs, 1)
	assert.Equal(t, "latitude", errs[0].Field)
	assert.Equal(t, "REQUIRED", errs[0].Code)
}

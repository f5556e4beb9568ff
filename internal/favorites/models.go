// Package favorites stores each user's saved locations and serves forecasts
// over them.
package favorites

import (
	"errors"
	"time"

	"github.com/meteopoint/meteopoint/internal/api/models"
	"github.com/meteopoint/meteopoint/internal/weather"
)

// Repository errors.
var (
	ErrNotFound  = errors.New("favorite location not found")
	ErrDuplicate = errors.New("location already saved as a favorite")
)

// Favorite is a saved location. City and Country are nil when the geocoder
// could not name the place.
type Favorite struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Name      string    `json:"name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	City      *string   `json:"city"`
	Country   *string   `json:"country"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// FormattedAddress is filled on create and update only; it is not stored.
	FormattedAddress string `json:"formattedAddress,omitempty"`
}

// Coordinate returns the favorite's position.
func (f *Favorite) Coordinate() weather.Coordinate {
	return weather.Coordinate{Latitude: f.Latitude, Longitude: f.Longitude}
}

// CreateRequest is the body of POST /api/favorites.
type CreateRequest struct {
	Name      string   `json:"name" validate:"required,max=100"`
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

// UpdateRequest is the body of PUT /api/favorites/{id}. Nil fields are left
// unchanged.
type UpdateRequest struct {
	Name      *string  `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Latitude  *float64 `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
}

// LocationForecast is one favorite with its daily series. A failed location
// in a multi-location response carries Error and no forecast.
type LocationForecast struct {
	Location  *Favorite               `json:"location"`
	DaysAhead int                     `json:"daysAhead"`
	DaysCount int                     `json:"daysCount"`
	Forecast  []weather.DailyForecast `json:"forecast"`
	Source    string                  `json:"source,omitempty"`
	Error     string                  `json:"error,omitempty"`
}

// AllForecasts is the body of GET /api/favorites/forecast/all.
type AllForecasts struct {
	LocationsCount int                `json:"locationsCount"`
	DaysAhead      int                `json:"daysAhead"`
	Forecasts      []LocationForecast `json:"forecasts"`
}

// AggregatedForecast is the body of GET /api/favorites/forecast/aggregated.
type AggregatedForecast struct {
	weather.AggregatedForecast

	// RequestedLocations counts every favorite, including those that failed.
	RequestedLocations int `json:"requestedLocations"`
	DaysAhead          int `json:"daysAhead"`
}

// ValidationError represents invalid favorite input.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

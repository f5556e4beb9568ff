package favorites

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/meteopoint/meteopoint/internal/api/models"
	"github.com/meteopoint/meteopoint/internal/geocoding"
	"github.com/meteopoint/meteopoint/internal/weather"
)

// Reverser names the place at a coordinate.
type Reverser interface {
	Reverse(ctx context.Context, lat, lon float64) geocoding.Location
}

// Forecaster produces daily series for coordinates.
type Forecaster interface {
	SeriesDays(days int) (int, error)
	Series(ctx context.Context, coord weather.Coordinate, days int) ([]weather.DailyForecast, error)
	SeriesAll(ctx context.Context, coords []weather.Coordinate, days int) ([]weather.SeriesResult, error)
	Aggregate(ctx context.Context, coords []weather.Coordinate, days int) (*weather.AggregatedForecast, error)
}

// ServiceConfig holds configuration for the favorites service.
type ServiceConfig struct {
	Repo       Repository
	Geocoder   Reverser
	Forecaster Forecaster
	Now        func() time.Time
	Logger     zerolog.Logger
}

// Service provides favorite location operations.
type Service struct {
	repo       Repository
	geocoder   Reverser
	forecaster Forecaster
	now        func() time.Time
	logger     zerolog.Logger
}

// NewService creates a new favorites service.
func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:       cfg.Repo,
		geocoder:   cfg.Geocoder,
		forecaster: cfg.Forecaster,
		now:        now,
		logger:     cfg.Logger.With().Str("component", "favorites").Logger(),
	}
}

// List returns the user's favorites, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]*Favorite, error) {
	return s.repo.List(ctx, userID)
}

// Get returns one of the user's favorites.
func (s *Service) Get(ctx context.Context, userID, id string) (*Favorite, error) {
	return s.repo.Get(ctx, userID, id)
}

// Create validates input, names the place and saves it.
func (s *Service) Create(ctx context.Context, userID string, input *CreateRequest) (*Favorite, error) {
	if fieldErrors := models.Validate(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, &ValidationError{Errors: []models.FieldError{{Field: "name", Message: "is required", Code: "REQUIRED"}}}
	}

	now := s.now().UTC()
	f := &Favorite{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Latitude:  *input.Latitude,
		Longitude: *input.Longitude,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.locate(ctx, f)

	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// Update applies the non-nil fields of input. Moving the coordinates
// re-runs reverse geocoding.
func (s *Service) Update(ctx context.Context, userID, id string, input *UpdateRequest) (*Favorite, error) {
	if fieldErrors := models.Validate(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	f, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, &ValidationError{Errors: []models.FieldError{{Field: "name", Message: "is required", Code: "REQUIRED"}}}
		}
		f.Name = name
	}

	moved := false
	if input.Latitude != nil && *input.Latitude != f.Latitude {
		f.Latitude = *input.Latitude
		moved = true
	}
	if input.Longitude != nil && *input.Longitude != f.Longitude {
		f.Longitude = *input.Longitude
		moved = true
	}
	if moved {
		s.locate(ctx, f)
	}
	f.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// Delete removes one of the user's favorites.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.repo.Delete(ctx, userID, id)
}

// Forecast returns the daily series for one favorite.
func (s *Service) Forecast(ctx context.Context, userID, id string, days int) (*LocationForecast, error) {
	days, err := s.forecaster.SeriesDays(days)
	if err != nil {
		return nil, err
	}

	f, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	series, err := s.forecaster.Series(ctx, f.Coordinate(), days)
	if err != nil {
		return nil, fmt.Errorf("forecast for favorite %s: %w", f.ID, err)
	}

	return &LocationForecast{
		Location:  f,
		DaysAhead: days,
		DaysCount: len(series),
		Forecast:  series,
		Source:    seriesSource(series),
	}, nil
}

// ForecastAll returns a series for every favorite. Locations whose series
// failed are listed with an error message.
func (s *Service) ForecastAll(ctx context.Context, userID string, days int) (*AllForecasts, error) {
	days, err := s.forecaster.SeriesDays(days)
	if err != nil {
		return nil, err
	}

	favs, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &AllForecasts{
		LocationsCount: len(favs),
		DaysAhead:      days,
		Forecasts:      make([]LocationForecast, 0, len(favs)),
	}
	if len(favs) == 0 {
		return out, nil
	}

	results, err := s.forecaster.SeriesAll(ctx, coordinates(favs), days)
	if err != nil {
		return nil, err
	}

	for i, r := range results {
		lf := LocationForecast{Location: favs[i], DaysAhead: days}
		if r.Err != nil {
			lf.Forecast = []weather.DailyForecast{}
			lf.Error = publicError(r.Err)
		} else {
			lf.Forecast = r.Forecast
			lf.DaysCount = len(r.Forecast)
			lf.Source = seriesSource(r.Forecast)
		}
		out.Forecasts = append(out.Forecasts, lf)
	}
	return out, nil
}

// Aggregated averages the series of every favorite by date. With no
// favorites at all the result is an empty aggregate rather than an error.
func (s *Service) Aggregated(ctx context.Context, userID string, days int) (*AggregatedForecast, error) {
	days, err := s.forecaster.SeriesDays(days)
	if err != nil {
		return nil, err
	}

	favs, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(favs) == 0 {
		return &AggregatedForecast{
			AggregatedForecast: weather.AggregatedForecast{
				Aggregated: true,
				Forecast:   []weather.AggregatedDay{},
				Source:     weather.SourceAggregated,
			},
			DaysAhead: days,
		}, nil
	}

	agg, err := s.forecaster.Aggregate(ctx, coordinates(favs), days)
	if err != nil {
		return nil, err
	}

	return &AggregatedForecast{
		AggregatedForecast: *agg,
		RequestedLocations: len(favs),
		DaysAhead:          days,
	}, nil
}

func (s *Service) locate(ctx context.Context, f *Favorite) {
	loc := s.geocoder.Reverse(ctx, f.Latitude, f.Longitude)
	f.City = loc.City
	f.Country = loc.Country
	f.FormattedAddress = loc.FormattedAddress
}

func coordinates(favs []*Favorite) []weather.Coordinate {
	coords := make([]weather.Coordinate, len(favs))
	for i, f := range favs {
		coords[i] = f.Coordinate()
	}
	return coords
}

// seriesSource labels a series by the sources that produced its days.
func seriesSource(series []weather.DailyForecast) string {
	for _, d := range series {
		if d.Kind == weather.KindStatistical {
			return weather.SourceOpenMeteo + " + " + weather.SourceStatistical
		}
	}
	return weather.SourceOpenMeteo
}

func publicError(err error) string {
	switch {
	case errors.Is(err, weather.ErrInsufficientHistory):
		return "insufficient historical data"
	case errors.Is(err, weather.ErrUpstreamUnavailable):
		return "weather data provider unavailable"
	default:
		return "forecast unavailable"
	}
}

package favorites_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteopoint/meteopoint/internal/favorites"
	"github.com/meteopoint/meteopoint/internal/geocoding"
	"github.com/meteopoint/meteopoint/internal/weather"
)

type mockGeocoder struct {
	mu    sync.Mutex
	calls int
}

func (m *mockGeocoder) Reverse(_ context.Context, lat, lon float64) geocoding.Location {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	city, country := "Amsterdam", "Netherlands"
	return geocoding.Location{City: &city, Country: &country, FormattedAddress: fmt.Sprintf("Amsterdam (%g, %g)", lat, lon)}
}

func (m *mockGeocoder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockForecaster returns a constant series and fails for coordinates listed in failing.
type mockForecaster struct {
	failing map[weather.Coordinate]bool
}

func (m *mockForecaster) SeriesDays(days int) (int, error) {
	if days == 0 {
		days = weather.DefaultSeriesDays
	}
	return days, weather.ValidateSeriesDays(days)
}

func (m *mockForecaster) Series(_ context.Context, coord weather.Coordinate, days int) ([]weather.DailyForecast, error) {
	if m.failing[coord] {
		return nil, fmt.Errorf("fetching live range: %w", weather.ErrUpstreamUnavailable)
	}
	out := make([]weather.DailyForecast, days)
	start := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	for i := range out {
		kind := weather.KindLive
		if i > 10 {
			kind = weather.KindStatistical
		}
		out[i] = weather.DailyForecast{
			Date:     start.AddDate(0, 0, i).Format(weather.DateLayout),
			Kind:     kind,
			TempMax:  20 + coord.Latitude/10,
			TempMin:  10,
			Humidity: 70,
		}
	}
	return out, nil
}

func (m *mockForecaster) SeriesAll(ctx context.Context, coords []weather.Coordinate, days int) ([]weather.SeriesResult, error) {
	out := make([]weather.SeriesResult, len(coords))
	for i, c := range coords {
		f, err := m.Series(ctx, c, days)
		out[i] = weather.SeriesResult{Coordinate: c, Forecast: f, Err: err}
	}
	return out, nil
}

func (m *mockForecaster) Aggregate(ctx context.Context, coords []weather.Coordinate, days int) (*weather.AggregatedForecast, error) {
	results, _ := m.SeriesAll(ctx, coords, days)
	var series [][]weather.DailyForecast
	for _, r := range results {
		if r.Err == nil {
			series = append(series, r.Forecast)
		}
	}
	if len(series) == 0 {
		return nil, weather.ErrNoForecastsAvailable
	}
	return weather.AggregateSeries(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), series), nil
}

func ptr[T any](v T) *T { return &v }

func newService(t *testing.T, forecaster *mockForecaster) (*favorites.Service, *mockGeocoder) {
	t.Helper()
	if forecaster == nil {
		forecaster = &mockForecaster{}
	}
	geo := &mockGeocoder{}
	clock := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	svc := favorites.NewService(favorites.ServiceConfig{
		Repo:       favorites.NewInMemoryRepository(),
		Geocoder:   geo,
		Forecaster: forecaster,
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
		Logger: zerolog.Nop(),
	})
	return svc, geo
}

func TestService_Create(t *testing.T) {
	svc, geo := newService(t, nil)
	ctx := context.Background()

	f, err := svc.Create(ctx, "user-1", &favorites.CreateRequest{
		Name:      "  Home ",
		Latitude:  ptr(52.37),
		Longitude: ptr(4.89),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, f.ID)
	assert.Equal(t, "Home", f.Name)
	require.NotNil(t, f.City)
	assert.Equal(t, "Amsterdam", *f.City)
	assert.Equal(t, "Amsterdam (52.37, 4.89)", f.FormattedAddress)
	assert.Equal(t, 1, geo.Calls())

	_, err = svc.Create(ctx, "user-1", &favorites.CreateRequest{Name: "Again", Latitude: ptr(52.37), Longitude: ptr(4.89)})
	assert.ErrorIs(t, err, favorites.ErrDuplicate)

	// Same coordinates for another user are fine.
	_, err = svc.Create(ctx, "user-2", &favorites.CreateRequest{Name: "Home", Latitude: ptr(52.37), Longitude: ptr(4.89)})
	require.NoError(t, err)

	got, err := svc.Get(ctx, "user-1", f.ID)
	require.NoError(t, err)
	assert.Empty(t, got.FormattedAddress)
}

func TestService_Create_ValidationErrors(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		input     *favorites.CreateRequest
		wantField string
	}{
		{"missing name", &favorites.CreateRequest{Latitude: ptr(1.0), Longitude: ptr(1.0)}, "name"},
		{"blank name", &favorites.CreateRequest{Name: "   ", Latitude: ptr(1.0), Longitude: ptr(1.0)}, "name"},
		{"missing latitude", &favorites.CreateRequest{Name: "x", Longitude: ptr(1.0)}, "latitude"},
		{"latitude out of range", &favorites.CreateRequest{Name: "x", Latitude: ptr(-90.5), Longitude: ptr(1.0)}, "latitude"},
		{"longitude out of range", &favorites.CreateRequest{Name: "x", Latitude: ptr(1.0), Longitude: ptr(181.0)}, "longitude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "user-1", tt.input)
			var verr *favorites.ValidationError
			require.ErrorAs(t, err, &verr)
			require.NotEmpty(t, verr.Errors)
			assert.Equal(t, tt.wantField, verr.Errors[0].Field)
		})
	}
}

func TestService_ListNewestFirstAndScoped(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, "user-1", &favorites.CreateRequest{Name: "A", Latitude: ptr(1.0), Longitude: ptr(1.0)})
	require.NoError(t, err)
	second, err := svc.Create(ctx, "user-1", &favorites.CreateRequest{Name: "B", Latitude: ptr(2.0), Longitude: ptr(2.0)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "user-2", &favorites.CreateRequest{Name: "C", Latitude: ptr(3.0), Longitude: ptr(3.0)})
	require.NoError(t, err)

	list, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	_, err = svc.Get(ctx, "user-2", first.ID)
	assert.ErrorIs(t, err, favorites.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "user-2", first.ID), favorites.ErrNotFound)
}

func TestService_Update(t *testing.T) {
	svc, geo := newService(t, nil)
	ctx := context.Background()

	f, err := svc.Create(ctx, "user-1", &favorites.CreateRequest{Name: "Home", Latitude: ptr(52.0), Longitude: ptr(4.0)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "user-1", &favorites.CreateRequest{Name: "Work", Latitude: ptr(51.0), Longitude: ptr(5.0)})
	require.NoError(t, err)
	require.Equal(t, 2, geo.Calls())

	renamed, err := svc.Update(ctx, "user-1", f.ID, &favorites.UpdateRequest{Name: ptr("House")})
	require.NoError(t, err)
	assert.Equal(t, "House", renamed.Name)
	assert.Equal(t, 2, geo.Calls(), "rename must not geocode")
	assert.True(t, renamed.UpdatedAt.After(f.UpdatedAt))

	moved, err := svc.Update(ctx, "user-1", f.ID, &favorites.UpdateRequest{Latitude: ptr(52.5)})
	require.NoError(t, err)
	assert.Equal(t, 52.5, moved.Latitude)
	assert.Equal(t, 4.0, moved.Longitude)
	assert.Equal(t, 3, geo.Calls())

	_, err = svc.Update(ctx, "user-1", f.ID, &favorites.UpdateRequest{Latitude: ptr(51.0), Longitude: ptr(5.0)})
	assert.ErrorIs(t, err, favorites.ErrDuplicate)

	_, err = svc.Update(ctx, "user-1", f.ID, &favorites.UpdateRequest{Longitude: ptr(200.0)})
	var verr *favorites.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = svc.Update(ctx, "user-2", f.ID, &favorites.UpdateRequest{Name: ptr("Mine")})
	assert.ErrorIs(t, err, favorites.ErrNotFound)
}

func TestService_Forecast(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	f, err := svc.Create(ctx, "user-1", &favorites.CreateRequest{Name: "Home", Latitude: ptr(50.0), Longitude: ptr(4.0)})
	require.NoError(t, err)

	lf, err := svc.Forecast(ctx, "user-1", f.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, weather.DefaultSeriesDays, lf.DaysAhead)
	assert.Equal(t, 7, lf.DaysCount)
	assert.Equal(t, weather.SourceOpenMeteo, lf.Source)

	lf, err = svc.Forecast(ctx, "user-1", f.ID, 14)
	require.NoError(t, err)
	assert.Equal(t, weather.SourceOpenMeteo+" + "+weather.SourceStatistical, lf.Source)

	_, err = svc.Forecast(ctx, "user-1", f.ID, 17)
	var verr *weather.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = svc.Forecast(ctx, "user-1", "missing", 3)
	assert.ErrorIs(t, err, favorites.ErrNotFound)
}

func TestService_ForecastAllAndAggregated(t *testing.T) {
	failing := weather.Coordinate{Latitude: 30, Longitude: 30}
	svc, _ := newService(t, &mockForecaster{failing: map[weather.Coordinate]bool{failing: true}})
	ctx := context.Background()

	empty, err := svc.ForecastAll(ctx, "user-1", 3)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.LocationsCount)
	assert.Empty(t, empty.Forecasts)

	emptyAgg, err := svc.Aggregated(ctx, "user-1", 3)
	require.NoError(t, err)
	assert.Equal(t, 0, emptyAgg.LocationsCount)
	assert.Empty(t, emptyAgg.Forecast)

	_, err = svc.Create(ctx, "user-1", &favorites.CreateRequest{Name: "A", Latitude: ptr(10.0), Longitude: ptr(1.0)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "user-1", &favorites.CreateRequest{Name: "B", Latitude: ptr(20.0), Longitude: ptr(1.0)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "user-1", &favorites.CreateRequest{Name: "Broken", Latitude: ptr(30.0), Longitude: ptr(30.0)})
	require.NoError(t, err)

	all, err := svc.ForecastAll(ctx, "user-1", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, all.LocationsCount)
	require.Len(t, all.Forecasts, 3)
	assert.Equal(t, "Broken", all.Forecasts[0].Location.Name)
	assert.Equal(t, "weather data provider unavailable", all.Forecasts[0].Error)
	assert.Empty(t, all.Forecasts[0].Forecast)
	assert.Len(t, all.Forecasts[1].Forecast, 3)
	assert.Empty(t, all.Forecasts[1].Error)

	agg, err := svc.Aggregated(ctx, "user-1", 3)
	require.NoError(t, err)
	assert.Equal(t, 2, agg.LocationsCount)
	assert.Equal(t, 3, agg.RequestedLocations)
	require.Len(t, agg.Forecast, 3)
	// (21 + 22) / 2
	assert.Equal(t, 21.5, agg.Forecast[0].Temperature.Max)
}

func TestService_AggregatedAllFailed(t *testing.T) {
	failing := weather.Coordinate{Latitude: 30, Longitude: 30}
	svc, _ := newService(t, &mockForecaster{failing: map[weather.Coordinate]bool{failing: true}})
	ctx := context.Background()

	_, err := svc.Create(ctx, "user-1", &favorites.CreateRequest{Name: "Broken", Latitude: ptr(30.0), Longitude: ptr(30.0)})
	require.NoError(t, err)

	_, err = svc.Aggregated(ctx, "user-1", 3)
	assert.ErrorIs(t, err, weather.ErrNoForecastsAvailable)
}

package weather_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteopoint/meteopoint/internal/weather"
)

var utrecht = weather.Coordinate{Latitude: 52.09, Longitude: 5.12}

func TestService_AggregateAveragesLocations(t *testing.T) {
	live := newMockLive()
	live.perCoord[amsterdam] = weather.DayRecord{TempMax: 20, TempMin: 10, WindSpeed: 2, Precipitation: 0.1, Humidity: 60}
	live.perCoord[utrecht] = weather.DayRecord{TempMax: 30, TempMin: 15, WindSpeed: 5, Precipitation: 0.3, Humidity: 71}
	svc := newService(newMockHistorical(), live)

	agg, err := svc.Aggregate(context.Background(), []weather.Coordinate{amsterdam, utrecht}, 3)
	require.NoError(t, err)

	assert.True(t, agg.Aggregated)
	assert.Equal(t, 2, agg.LocationsCount)
	assert.Equal(t, weather.SourceAggregated, agg.Source)
	require.Len(t, agg.Forecast, 3)

	day := agg.Forecast[0]
	assert.Equal(t, "2025-06-15", day.Date)
	assert.Equal(t, 25.0, day.Temperature.Max)
	assert.Equal(t, 12.5, day.Temperature.Min)
	assert.Equal(t, 3.5, day.WindSpeed)
	assert.Equal(t, 0.2, day.Precipitation)
	assert.Equal(t, 65.5, day.Humidity)
	assert.Equal(t, 2, day.Locations)
}

func TestService_AggregateExcludesFailedLocation(t *testing.T) {
	live := newMockLive()
	live.perCoord[amsterdam] = weather.DayRecord{TempMax: 20, TempMin: 10, WindSpeed: 2, Precipitation: 0.1, Humidity: 60}
	live.failCoords[utrecht] = true
	svc := newService(newMockHistorical(), live)

	agg, err := svc.Aggregate(context.Background(), []weather.Coordinate{amsterdam, utrecht}, 5)
	require.NoError(t, err)

	assert.Equal(t, 1, agg.LocationsCount)
	require.Len(t, agg.Forecast, 5)
	for _, day := range agg.Forecast {
		assert.Equal(t, 20.0, day.Temperature.Max)
		assert.Equal(t, 10.0, day.Temperature.Min)
		assert.Equal(t, 2.0, day.WindSpeed)
		assert.Equal(t, 0.1, day.Precipitation)
		assert.Equal(t, 60.0, day.Humidity)
		assert.Equal(t, 1, day.Locations)
	}
}

func TestService_AggregatePartialSynthesisFailureDropsWholeLocation(t *testing.T) {
	hist := newMockHistorical()
	hist.err = errUpstream
	svc := newService(hist, newMockLive())

	// Days past the horizon need history, which is down.
	_, err := svc.Aggregate(context.Background(), []weather.Coordinate{amsterdam, utrecht}, 12)
	assert.ErrorIs(t, err, weather.ErrNoForecastsAvailable)
}

func TestService_AggregateNoLocations(t *testing.T) {
	svc := newService(newMockHistorical(), newMockLive())

	_, err := svc.Aggregate(context.Background(), nil, 7)
	assert.ErrorIs(t, err, weather.ErrNoForecastsAvailable)
}

func TestService_SeriesAllKeepsOrderAndErrors(t *testing.T) {
	live := newMockLive()
	live.failCoords[amsterdam] = true
	svc := newService(newMockHistorical(), live)

	results, err := svc.SeriesAll(context.Background(), []weather.Coordinate{amsterdam, utrecht}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, amsterdam, results[0].Coordinate)
	assert.ErrorIs(t, results[0].Err, weather.ErrUpstreamUnavailable)
	assert.Nil(t, results[0].Forecast)

	assert.Equal(t, utrecht, results[1].Coordinate)
	require.NoError(t, results[1].Err)
	assert.Len(t, results[1].Forecast, 2)
}

func TestAggregateSeries_OnlyMatchingDates(t *testing.T) {
	start := date(t, "2025-06-15")
	a := []weather.DailyForecast{
		{Date: "2025-06-15", TempMax: 10},
		{Date: "2025-06-16", TempMax: 20},
	}
	b := []weather.DailyForecast{
		{Date: "2025-06-15", TempMax: 14},
		{Date: "2025-06-17", TempMax: 99},
	}

	agg := weather.AggregateSeries(start, [][]weather.DailyForecast{a, b})

	require.Len(t, agg.Forecast, 2)
	assert.Equal(t, 12.0, agg.Forecast[0].Temperature.Max)
	assert.Equal(t, 2, agg.Forecast[0].Locations)
	assert.Equal(t, "2025-06-16", agg.Forecast[1].Date)
	assert.Equal(t, 20.0, agg.Forecast[1].Temperature.Max)
	assert.Equal(t, 1, agg.Forecast[1].Locations)
}

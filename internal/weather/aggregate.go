package weather

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// SourceAggregated labels an aggregated forecast.
const SourceAggregated = "Open-Meteo API (Aggregated)"

// AggregatedDay is the mean across locations for one calendar date.
type AggregatedDay struct {
	Date          string          `json:"date"`
	Temperature   TemperaturePair `json:"temperature"`
	WindSpeed     float64         `json:"wind_speed"`
	Precipitation float64         `json:"precipitation"`
	Humidity      float64         `json:"humidity"`
	Locations     int             `json:"locations"`
}

// AggregatedForecast is a composite series over several locations.
type AggregatedForecast struct {
	Aggregated     bool            `json:"aggregated"`
	LocationsCount int             `json:"locationsCount"`
	Forecast       []AggregatedDay `json:"forecast"`
	Source         string          `json:"source"`
}

// SeriesResult is the outcome of one location's series fetch.
type SeriesResult struct {
	Coordinate Coordinate
	Forecast   []DailyForecast
	Err        error
}

// SeriesAll fetches a series for every coordinate concurrently. Results keep
// the input order; a failed location carries its error instead of a forecast.
func (s *Service) SeriesAll(ctx context.Context, coords []Coordinate, days int) ([]SeriesResult, error) {
	days, err := s.SeriesDays(days)
	if err != nil {
		return nil, err
	}

	results := make([]SeriesResult, len(coords))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, coord := range coords {
		g.Go(func() error {
			forecast, err := s.Series(gCtx, coord, days)
			results[i] = SeriesResult{Coordinate: coord, Forecast: forecast, Err: err}
			if err != nil {
				s.logger.Warn().Err(err).
					Float64("latitude", coord.Latitude).
					Float64("longitude", coord.Longitude).
					Msg("excluding location from forecast")
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Aggregate averages each calendar date across all locations whose series
// succeeded. A location with any failure contributes to no day.
func (s *Service) Aggregate(ctx context.Context, coords []Coordinate, days int) (*AggregatedForecast, error) {
	results, err := s.SeriesAll(ctx, coords, days)
	if err != nil {
		return nil, err
	}

	var series [][]DailyForecast
	for _, r := range results {
		if r.Err == nil {
			series = append(series, r.Forecast)
		}
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: %d locations requested", ErrNoForecastsAvailable, len(coords))
	}

	return AggregateSeries(s.Today(), series), nil
}

// AggregateSeries averages per-location series by date. Entry i of a series
// counts toward start+i only when its date matches; dates nobody covered are
// left out.
func AggregateSeries(start time.Time, series [][]DailyForecast) *AggregatedForecast {
	length := 0
	for _, sr := range series {
		length = max(length, len(sr))
	}

	out := &AggregatedForecast{
		Aggregated:     true,
		LocationsCount: len(series),
		Forecast:       make([]AggregatedDay, 0, length),
		Source:         SourceAggregated,
	}

	for i := 0; i < length; i++ {
		date := start.AddDate(0, 0, i).Format(DateLayout)

		var tmax, tmin, wind, precip, humidity float64
		n := 0
		for _, sr := range series {
			if i >= len(sr) || sr[i].Date != date {
				continue
			}
			d := sr[i]
			tmax += d.TempMax
			tmin += d.TempMin
			wind += d.WindSpeed
			precip += d.Precipitation
			humidity += d.Humidity
			n++
		}
		if n == 0 {
			continue
		}

		count := float64(n)
		out.Forecast = append(out.Forecast, AggregatedDay{
			Date: date,
			Temperature: TemperaturePair{
				Max: round(tmax/count, 1),
				Min: round(tmin/count, 1),
			},
			WindSpeed:     round(wind/count, 1),
			Precipitation: round(precip/count, 2),
			Humidity:      round(humidity/count, 1),
			Locations:     n,
		})
	}

	return out
}

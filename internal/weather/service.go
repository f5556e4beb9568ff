package weather

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/meteopoint/meteopoint/internal/api/models"
)

const (
	// DefaultSeriesDays is the default length of a multi-day series.
	DefaultSeriesDays = 7

	// MaxSeriesDays is the longest multi-day series accepted.
	MaxSeriesDays = 16

	// DefaultSeriesYearsBack is how many years a far-future day in a series samples.
	DefaultSeriesYearsBack = 25
)

// LiveSource provides short-horizon predictions.
type LiveSource interface {
	// FetchForecast returns the live-forecast Record for one date.
	FetchForecast(ctx context.Context, coord Coordinate, date time.Time) (*Record, error)

	// FetchRange returns one DayRecord per date in [start, end].
	FetchRange(ctx context.Context, coord Coordinate, start, end time.Time) ([]DayRecord, error)
}

// ServiceConfig holds configuration for the weather resolution service.
type ServiceConfig struct {
	// Historical provides observed days (required).
	Historical HistoricalSource

	// Live provides forecasts within the horizon (required).
	Live LiveSource

	// Clock supplies "today".
	// Default: SystemClock
	Clock Clock

	// Logger for service operations.
	Logger zerolog.Logger

	// HorizonDays is the last day offset answered by Live.
	// Default: 10
	HorizonDays int

	// YearsBack is the history depth for single-date synthesis.
	// Default: 40
	YearsBack int

	// SeriesYearsBack is the history depth for far days in a series.
	// Default: 25
	SeriesYearsBack int

	// SeriesDays is used when a series length of zero is requested.
	// Default: 7
	SeriesDays int

	// Concurrency bounds parallel fetches within one synthesis or aggregation.
	// Default: 40
	Concurrency int
}

// Service resolves weather for a coordinate and date.
type Service struct {
	historical      HistoricalSource
	live            LiveSource
	synth           *Synthesizer
	clock           Clock
	logger          zerolog.Logger
	horizonDays     int
	yearsBack       int
	seriesYearsBack int
	seriesDays      int
	concurrency     int
}

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock
	}

	horizon := cfg.HorizonDays
	if horizon <= 0 {
		horizon = DefaultHorizonDays
	}

	yearsBack := cfg.YearsBack
	if yearsBack <= 0 {
		yearsBack = DefaultYearsBack
	}

	seriesYearsBack := cfg.SeriesYearsBack
	if seriesYearsBack <= 0 {
		seriesYearsBack = DefaultSeriesYearsBack
	}

	seriesDays := cfg.SeriesDays
	if seriesDays <= 0 {
		seriesDays = DefaultSeriesDays
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultYearsBack
	}

	logger := cfg.Logger.With().Str("component", "weather").Logger()

	return &Service{
		historical: cfg.Historical,
		live:       cfg.Live,
		synth: NewSynthesizer(SynthesizerConfig{
			Source:      cfg.Historical,
			Clock:       clock,
			Concurrency: concurrency,
			Logger:      cfg.Logger,
		}),
		clock:           clock,
		logger:          logger,
		horizonDays:     horizon,
		yearsBack:       yearsBack,
		seriesYearsBack: seriesYearsBack,
		seriesDays:      seriesDays,
		concurrency:     concurrency,
	}
}

// HorizonDays returns the configured live-forecast horizon.
func (s *Service) HorizonDays() int {
	return s.horizonDays
}

// Today returns the service's current calendar date.
func (s *Service) Today() time.Time {
	return civilDate(s.clock.Now())
}

// Resolve returns the record for q: observed values for past dates, a live
// forecast within the horizon and a statistical forecast beyond it.
func (s *Service) Resolve(ctx context.Context, q Query) (*Record, error) {
	if err := q.Coordinate.Validate(); err != nil {
		return nil, err
	}

	class := Classify(q.Date, s.clock.Now(), s.horizonDays)
	s.logger.Debug().
		Str("date", q.Date.Format(DateLayout)).
		Str("class", class.String()).
		Msg("resolving weather")

	switch class {
	case ClassPast:
		day, err := s.historical.FetchDay(ctx, q.Coordinate, q.Date)
		if err != nil {
			return nil, fmt.Errorf("fetching historical day: %w", err)
		}
		return HistoricalRecord(q.Coordinate, day), nil

	case ClassLiveForecast:
		rec, err := s.live.FetchForecast(ctx, q.Coordinate, q.Date)
		if err != nil {
			return nil, fmt.Errorf("fetching live forecast: %w", err)
		}
		return rec, nil

	default:
		return s.synth.Synthesize(ctx, q.Coordinate, q.Date, s.yearsBack)
	}
}

// DailyForecast is one day of a multi-day series.
type DailyForecast struct {
	Date          string  `json:"date"`
	Kind          Kind    `json:"type"`
	TempMax       float64 `json:"temperature_max"`
	TempMin       float64 `json:"temperature_min"`
	WindSpeed     float64 `json:"wind_speed"`
	Precipitation float64 `json:"precipitation"`
	Humidity      float64 `json:"humidity"`
}

// ValidateSeriesDays checks a requested series length. Zero is not valid here;
// callers substitute the default first.
func ValidateSeriesDays(days int) error {
	if days < 1 || days > MaxSeriesDays {
		return &ValidationError{Errors: []models.FieldError{{
			Field:   "days",
			Message: fmt.Sprintf("days must be between 1 and %d", MaxSeriesDays),
			Code:    "OUT_OF_RANGE",
		}}}
	}
	return nil
}

// SeriesDays resolves a requested length, substituting the default for zero.
func (s *Service) SeriesDays(days int) (int, error) {
	if days == 0 {
		days = s.seriesDays
	}
	if err := ValidateSeriesDays(days); err != nil {
		return 0, err
	}
	return days, nil
}

// Series returns days consecutive daily forecasts starting today. Days within
// the horizon come from one live range request; later days are synthesized.
// Any failure fails the whole series.
func (s *Service) Series(ctx context.Context, coord Coordinate, days int) ([]DailyForecast, error) {
	if err := coord.Validate(); err != nil {
		return nil, err
	}
	days, err := s.SeriesDays(days)
	if err != nil {
		return nil, err
	}

	today := s.Today()
	liveDays := min(days, s.horizonDays+1)
	series := make([]DailyForecast, days)

	live, err := s.live.FetchRange(ctx, coord, today, today.AddDate(0, 0, liveDays-1))
	if err != nil {
		return nil, fmt.Errorf("fetching live range: %w", err)
	}
	if len(live) != liveDays {
		return nil, fmt.Errorf("%w: expected %d live days, got %d", ErrUpstreamUnavailable, liveDays, len(live))
	}
	for i, d := range live {
		series[i] = DailyForecast{
			Date:          d.Date.Format(DateLayout),
			Kind:          KindLive,
			TempMax:       d.TempMax,
			TempMin:       d.TempMin,
			WindSpeed:     d.WindSpeed,
			Precipitation: d.Precipitation,
			Humidity:      d.Humidity,
		}
	}

	if liveDays == days {
		return series, nil
	}

	g, gCtx := errgroup.WithContext(ctx)
	for i := liveDays; i < days; i++ {
		date := today.AddDate(0, 0, i)
		g.Go(func() error {
			rec, err := s.synth.Synthesize(gCtx, coord, date, s.seriesYearsBack)
			if err != nil {
				return fmt.Errorf("synthesizing %s: %w", date.Format(DateLayout), err)
			}
			p := rec.Predicted
			series[i] = DailyForecast{
				Date:          rec.Date,
				Kind:          KindStatistical,
				TempMax:       p.Temperature.Max.Value,
				TempMin:       p.Temperature.Min.Value,
				WindSpeed:     p.WindSpeed.Value,
				Precipitation: p.Precipitation.ExpectedMM,
				Humidity:      p.Humidity.Value,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return series, nil
}

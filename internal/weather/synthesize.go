package weather

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultYearsBack is how many previous years a point forecast samples.
const DefaultYearsBack = 40

// HistoricalSource returns observed values for one past day.
type HistoricalSource interface {
	FetchDay(ctx context.Context, coord Coordinate, date time.Time) (*DayRecord, error)
}

// SynthesizerConfig holds configuration for the statistical synthesizer.
type SynthesizerConfig struct {
	// Source provides historical days (required).
	Source HistoricalSource

	// Clock decides which candidate years are already in the past.
	// Default: SystemClock
	Clock Clock

	// Concurrency bounds in-flight fetches for one synthesis.
	// Default: 40
	Concurrency int

	// Logger for dropped samples.
	Logger zerolog.Logger
}

// Synthesizer builds forecasts from same-calendar-day history.
type Synthesizer struct {
	source      HistoricalSource
	clock       Clock
	concurrency int
	logger      zerolog.Logger
}

// NewSynthesizer creates a synthesizer.
func NewSynthesizer(cfg SynthesizerConfig) *Synthesizer {
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultYearsBack
	}

	return &Synthesizer{
		source:      cfg.Source,
		clock:       clock,
		concurrency: concurrency,
		logger:      cfg.Logger.With().Str("component", "synthesizer").Logger(),
	}
}

// CandidateDates returns target's month and day in each of the yearsBack
// previous years, newest first. Dates that do not exist in a given year
// (Feb 29) and dates not strictly before today are skipped.
func CandidateDates(target, today time.Time, yearsBack int) []time.Time {
	today = civilDate(today)
	month, day := target.Month(), target.Day()

	dates := make([]time.Time, 0, yearsBack)
	for i := 1; i <= yearsBack; i++ {
		d := time.Date(target.Year()-i, month, day, 0, 0, 0, 0, time.UTC)
		if d.Month() != month || d.Day() != day {
			continue
		}
		if !d.Before(today) {
			continue
		}
		dates = append(dates, d)
	}
	return dates
}

// Synthesize produces a statistical forecast for target from up to yearsBack
// years of history. Years that fail to fetch are dropped from the sample.
// Cancelling ctx abandons every outstanding fetch.
func (s *Synthesizer) Synthesize(ctx context.Context, coord Coordinate, target time.Time, yearsBack int) (*Record, error) {
	if yearsBack <= 0 {
		yearsBack = DefaultYearsBack
	}

	dates := CandidateDates(target, s.clock.Now(), yearsBack)
	sample := s.collect(ctx, coord, dates)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(sample) == 0 {
		return nil, fmt.Errorf("%w: no usable years for %s at %s",
			ErrInsufficientHistory, target.Format(DateLayout), coord)
	}

	s.logger.Debug().
		Str("date", target.Format(DateLayout)).
		Int("candidates", len(dates)).
		Int("sampled", len(sample)).
		Msg("synthesized statistical forecast")

	return StatisticalRecord(coord, target, sample), nil
}

func (s *Synthesizer) collect(ctx context.Context, coord Coordinate, dates []time.Time) []DayRecord {
	results := make([]*DayRecord, len(dates))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, date := range dates {
		g.Go(func() error {
			day, err := s.source.FetchDay(gCtx, coord, date)
			if err != nil {
				s.logger.Debug().Err(err).
					Str("date", date.Format(DateLayout)).
					Msg("dropping historical year")
				return nil
			}
			results[i] = day
			return nil
		})
	}
	_ = g.Wait()

	sample := make([]DayRecord, 0, len(results))
	for _, r := range results {
		if r != nil {
			sample = append(sample, *r)
		}
	}
	return sample
}

// StatisticalRecord turns a non-empty historical sample into a forecast for target.
func StatisticalRecord(coord Coordinate, target time.Time, sample []DayRecord) *Record {
	n := len(sample)
	tmax := make([]float64, n)
	tmin := make([]float64, n)
	wind := make([]float64, n)
	precip := make([]float64, n)
	humidity := make([]float64, n)
	for i, d := range sample {
		tmax[i] = d.TempMax
		tmin[i] = d.TempMin
		wind[i] = d.WindSpeed
		precip[i] = d.Precipitation
		humidity[i] = d.Humidity
	}

	tmaxStats := ComputeStatistics(tmax)
	precipStats := ComputeStatistics(precip)

	windEst := spread(ComputeStatistics(wind))
	windEst.Range.Min = max(0, windEst.Range.Min)

	humidityEst := spread(ComputeStatistics(humidity))
	humidityEst.Range.Min = max(0, humidityEst.Range.Min)
	humidityEst.Range.Max = min(100, humidityEst.Range.Max)

	return &Record{
		Kind:     KindStatistical,
		Date:     target.Format(DateLayout),
		Location: coord,
		Source:   SourceStatistical,
		Predicted: &Predicted{
			Temperature: TemperatureEstimate{
				Max: spread(tmaxStats),
				Min: spread(ComputeStatistics(tmin)),
			},
			WindSpeed: windEst,
			Precipitation: PrecipitationEstimate{
				ExpectedMM:        round(precipStats.Mean, 2),
				ProbabilityOfRain: RainProbability(precip),
				Range: Range{
					Min: round(max(0, precipStats.Mean-precipStats.StdDev), 2),
					Max: round(precipStats.Mean+precipStats.StdDev, 2),
				},
			},
			Humidity: humidityEst,
		},
		Confidence:              Confidence(tmaxStats.StdDev),
		HistoricalYearsAnalyzed: n,
		Disclaimer:              StatisticalDisclaimer,
	}
}

// spread builds mean±stddev rounded to one decimal.
func spread(st MetricStatistics) Estimate {
	return Estimate{
		Value: round(st.Mean, 1),
		Range: Range{
			Min: round(st.Mean-st.StdDev, 1),
			Max: round(st.Mean+st.StdDev, 1),
		},
	}
}

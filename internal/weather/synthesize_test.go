package weather_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteopoint/meteopoint/internal/weather"
)

func TestComputeStatistics(t *testing.T) {
	st := weather.ComputeStatistics([]float64{16, 10, 14, 12})

	assert.Equal(t, 10.0, st.Min)
	assert.Equal(t, 16.0, st.Max)
	assert.Equal(t, 13.0, st.Mean)
	assert.Equal(t, 14.0, st.Median, "even samples take sorted[n/2]")
	assert.Equal(t, 2.24, st.StdDev, "population standard deviation of 10,12,14,16 is sqrt(5)")
	assert.Equal(t, 4, st.SampleSize)
}

func TestComputeStatistics_OddAndEmpty(t *testing.T) {
	st := weather.ComputeStatistics([]float64{3, 1, 2})
	assert.Equal(t, 2.0, st.Median)
	assert.Equal(t, 0.82, st.StdDev)

	assert.Equal(t, weather.MetricStatistics{}, weather.ComputeStatistics(nil))
}

func TestComputeStatistics_DoesNotReorderInput(t *testing.T) {
	values := []float64{3, 1, 2}
	weather.ComputeStatistics(values)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestRainProbability(t *testing.T) {
	assert.Equal(t, 25.0, weather.RainProbability([]float64{0, 0, 2, 0}))
	assert.Equal(t, 0.0, weather.RainProbability([]float64{0.5, 0.5}), "threshold is exclusive")
	assert.Equal(t, 33.3, weather.RainProbability([]float64{1, 0, 0}))
	assert.Equal(t, 0.0, weather.RainProbability(nil))
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 95.0, weather.Confidence(0))
	assert.Equal(t, 90.0, weather.Confidence(2))
	assert.Equal(t, 60.0, weather.Confidence(12))
	assert.Equal(t, 88.8, weather.Confidence(2.24))
}

func TestCandidateDates(t *testing.T) {
	today := date(t, "2025-06-15")

	dates := weather.CandidateDates(date(t, "2025-09-01"), today, 3)
	require.Len(t, dates, 3)
	assert.Equal(t, "2024-09-01", dates[0].Format(weather.DateLayout))
	assert.Equal(t, "2022-09-01", dates[2].Format(weather.DateLayout))
}

func TestCandidateDates_SkipsMissingLeapDays(t *testing.T) {
	dates := weather.CandidateDates(date(t, "2028-02-29"), date(t, "2025-06-15"), 8)

	var got []string
	for _, d := range dates {
		got = append(got, d.Format(weather.DateLayout))
	}
	assert.Equal(t, []string{"2024-02-29", "2020-02-29"}, got)
}

func TestCandidateDates_OnlyStrictlyPast(t *testing.T) {
	// A target two years out reaches back to the current year and tomorrow.
	dates := weather.CandidateDates(date(t, "2027-06-16"), date(t, "2025-06-15"), 3)

	require.Len(t, dates, 1)
	assert.Equal(t, "2024-06-16", dates[0].Format(weather.DateLayout))

	// Today itself is not in the past either.
	dates = weather.CandidateDates(date(t, "2026-06-15"), date(t, "2025-06-15"), 2)
	require.Len(t, dates, 1)
	assert.Equal(t, "2024-06-15", dates[0].Format(weather.DateLayout))
}

func TestStatisticalRecord_NoVariance(t *testing.T) {
	day := weather.DayRecord{TempMax: 21.5, TempMin: 11.5, WindSpeed: 4.2, Precipitation: 1.25, Humidity: 72}
	sample := []weather.DayRecord{day, day, day, day, day}

	rec := weather.StatisticalRecord(amsterdam, date(t, "2025-12-24"), sample)

	assert.Equal(t, weather.KindStatistical, rec.Kind)
	assert.Equal(t, "2025-12-24", rec.Date)
	assert.Equal(t, 95.0, rec.Confidence)
	assert.Equal(t, 5, rec.HistoricalYearsAnalyzed)

	p := rec.Predicted
	require.NotNil(t, p)
	assert.Equal(t, weather.Estimate{Value: 21.5, Range: weather.Range{Min: 21.5, Max: 21.5}}, p.Temperature.Max)
	assert.Equal(t, weather.Estimate{Value: 11.5, Range: weather.Range{Min: 11.5, Max: 11.5}}, p.Temperature.Min)
	assert.Equal(t, weather.Estimate{Value: 4.2, Range: weather.Range{Min: 4.2, Max: 4.2}}, p.WindSpeed)
	assert.Equal(t, weather.Estimate{Value: 72, Range: weather.Range{Min: 72, Max: 72}}, p.Humidity)
	assert.Equal(t, 1.25, p.Precipitation.ExpectedMM)
	assert.Equal(t, weather.Range{Min: 1.25, Max: 1.25}, p.Precipitation.Range)
	assert.Equal(t, 100.0, p.Precipitation.ProbabilityOfRain)
}

func TestStatisticalRecord_RangesAndClamps(t *testing.T) {
	sample := []weather.DayRecord{
		{TempMax: 10, TempMin: 0, WindSpeed: 0, Precipitation: 0, Humidity: 100},
		{TempMax: 12, TempMin: 2, WindSpeed: 0, Precipitation: 0, Humidity: 100},
		{TempMax: 14, TempMin: 4, WindSpeed: 0, Precipitation: 2, Humidity: 90},
		{TempMax: 16, TempMin: 6, WindSpeed: 4, Precipitation: 0, Humidity: 98},
	}

	rec := weather.StatisticalRecord(amsterdam, date(t, "2025-12-24"), sample)
	p := rec.Predicted

	// mean 13, sd 2.24
	assert.Equal(t, 13.0, p.Temperature.Max.Value)
	assert.Equal(t, weather.Range{Min: 10.8, Max: 15.2}, p.Temperature.Max.Range)
	assert.Equal(t, 88.8, rec.Confidence)

	// mean 1, sd 1.73: lower bound clamped to zero
	assert.Equal(t, 1.0, p.WindSpeed.Value)
	assert.Equal(t, 0.0, p.WindSpeed.Range.Min)
	assert.Equal(t, 2.7, p.WindSpeed.Range.Max)

	// mean 0.5, sd 0.87
	assert.Equal(t, 0.5, p.Precipitation.ExpectedMM)
	assert.Equal(t, 0.0, p.Precipitation.Range.Min)
	assert.Equal(t, 1.37, p.Precipitation.Range.Max)
	assert.Equal(t, 25.0, p.Precipitation.ProbabilityOfRain)

	// mean 97, sd 4.12: upper bound clamped to 100
	assert.Equal(t, 97.0, p.Humidity.Value)
	assert.Equal(t, 92.9, p.Humidity.Range.Min)
	assert.Equal(t, 100.0, p.Humidity.Range.Max)
}

func TestSynthesizer_DropsFailedYears(t *testing.T) {
	hist := newMockHistorical()
	hist.fallback = &weather.DayRecord{TempMax: 20, TempMin: 10, WindSpeed: 3, Precipitation: 0, Humidity: 60}
	hist.failYears[2024] = true
	hist.failYears[2020] = true

	synth := weather.NewSynthesizer(weather.SynthesizerConfig{
		Source: hist,
		Clock:  weather.FixedClock(fixedNow),
		Logger: zerolog.Nop(),
	})

	rec, err := synth.Synthesize(context.Background(), amsterdam, date(t, "2025-10-01"), 10)
	require.NoError(t, err)

	assert.Equal(t, 8, rec.HistoricalYearsAnalyzed)
	assert.Equal(t, 10, hist.calls())
}

func TestSynthesizer_CancelledContext(t *testing.T) {
	hist := newMockHistorical()
	hist.fallback = &weather.DayRecord{TempMax: 20}

	synth := weather.NewSynthesizer(weather.SynthesizerConfig{
		Source: hist,
		Clock:  weather.FixedClock(fixedNow),
		Logger: zerolog.Nop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := synth.Synthesize(ctx, amsterdam, date(t, "2025-10-01"), 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecord_JSONRoundTrip(t *testing.T) {
	sample := []weather.DayRecord{
		{TempMax: 10.123, TempMin: 0.3, WindSpeed: 1.1, Precipitation: 0.07, Humidity: 81.3},
		{TempMax: 12.987, TempMin: 2.1, WindSpeed: 2.2, Precipitation: 3.33, Humidity: 64.9},
		{TempMax: 14.5, TempMin: 4.7, WindSpeed: 0.4, Precipitation: 0.01, Humidity: 77.7},
	}

	records := []*weather.Record{
		weather.StatisticalRecord(amsterdam, date(t, "2025-12-24"), sample),
		weather.LiveRecord(amsterdam, &weather.DayRecord{Date: fixedNow, TempMax: 21.4, TempMin: 11.9, WindSpeed: 5.3, Precipitation: 0.1, Humidity: 95}),
		weather.HistoricalRecord(amsterdam, &weather.DayRecord{Date: fixedNow.AddDate(0, 0, -3), TempMax: 19.87, TempMin: 8.01, WindSpeed: 2.98, Precipitation: 12.44, Humidity: 70.25}),
	}

	for _, rec := range records {
		t.Run(string(rec.Kind), func(t *testing.T) {
			data, err := json.Marshal(rec)
			require.NoError(t, err)

			var decoded weather.Record
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.Equal(t, *rec, decoded)
		})
	}
}

func TestRecord_JSONShape(t *testing.T) {
	rec := weather.LiveRecord(amsterdam, &weather.DayRecord{
		Date: time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), TempMax: 22, TempMin: 12, WindSpeed: 4, Precipitation: 0, Humidity: 15,
	})

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, "live-forecast", raw["type"])
	assert.Equal(t, "2025-06-16", raw["date"])
	assert.NotContains(t, raw, "confidence")
	assert.NotContains(t, raw, "observed")

	predicted := raw["predicted"].(map[string]any)
	precip := predicted["precipitation"].(map[string]any)
	assert.Equal(t, 10.0, precip["probability_of_rain"])

	humidity := predicted["humidity"].(map[string]any)
	assert.Equal(t, map[string]any{"min": 0.0, "max": 25.0}, humidity["range"])
}

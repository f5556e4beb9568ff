package weather

import (
	"errors"
	"fmt"
	"time"

	"github.com/meteopoint/meteopoint/internal/api/models"
)

// Weather errors.
var (
	// ErrUpstreamUnavailable means an external data source failed, timed out or
	// returned an unusable payload.
	ErrUpstreamUnavailable = errors.New("upstream weather source unavailable")

	// ErrInsufficientHistory means no historical sample could be collected.
	ErrInsufficientHistory = errors.New("insufficient historical data")

	// ErrNoForecastsAvailable means no location produced a usable forecast.
	ErrNoForecastsAvailable = errors.New("no forecasts available")
)

// DateLayout is the calendar date format accepted and emitted by the service.
const DateLayout = "2006-01-02"

// Coordinate is a point on Earth in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// String formats the coordinate as "lat, lon".
func (c Coordinate) String() string {
	return fmt.Sprintf("%g, %g", c.Latitude, c.Longitude)
}

// Validate checks that both components are in range. NaN is out of range.
func (c Coordinate) Validate() error {
	var fieldErrors []models.FieldError

	if !(c.Latitude >= -90 && c.Latitude <= 90) {
		fieldErrors = append(fieldErrors, models.FieldError{
			Field:   "latitude",
			Message: "latitude must be between -90 and 90",
			Code:    "OUT_OF_RANGE",
		})
	}
	if !(c.Longitude >= -180 && c.Longitude <= 180) {
		fieldErrors = append(fieldErrors, models.FieldError{
			Field:   "longitude",
			Message: "longitude must be between -180 and 180",
			Code:    "OUT_OF_RANGE",
		})
	}

	if len(fieldErrors) > 0 {
		return &ValidationError{Errors: fieldErrors}
	}
	return nil
}

// Query is a validated request for one coordinate on one calendar date.
type Query struct {
	Coordinate Coordinate
	Date       time.Time
}

// NewQuery validates the coordinate and parses date as YYYY-MM-DD.
func NewQuery(coord Coordinate, date string) (Query, error) {
	var fieldErrors []models.FieldError

	if err := coord.Validate(); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			fieldErrors = append(fieldErrors, verr.Errors...)
		}
	}

	parsed, err := ParseDate(date)
	if err != nil {
		fieldErrors = append(fieldErrors, models.FieldError{
			Field:   "date",
			Message: "date must use the YYYY-MM-DD format",
			Code:    "INVALID_FORMAT",
		})
	}

	if len(fieldErrors) > 0 {
		return Query{}, &ValidationError{Errors: fieldErrors}
	}

	return Query{Coordinate: coord, Date: parsed}, nil
}

// ParseDate parses a YYYY-MM-DD string into a UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// ValidationError represents invalid caller input.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// DayRecord is one day of observed or predicted values at a coordinate.
// Temperatures are in °C, wind speed in m/s, precipitation in mm and
// humidity in percent.
type DayRecord struct {
	Date          time.Time
	TempMax       float64
	TempMin       float64
	WindSpeed     float64
	Precipitation float64
	Humidity      float64
}

// Kind tags a Record with how it was produced.
type Kind string

const (
	KindHistorical  Kind = "historical"
	KindLive        Kind = "live-forecast"
	KindStatistical Kind = "statistical-forecast"
)

// Record is the normalized weather record returned to callers.
// Historical records carry Observed; forecasts carry Predicted.
type Record struct {
	Kind       Kind       `json:"type"`
	Date       string     `json:"date"`
	Location   Coordinate `json:"location"`
	Source     string     `json:"source"`
	Observed   *Observed  `json:"observed,omitempty"`
	Predicted  *Predicted `json:"predicted,omitempty"`
	Confidence float64    `json:"confidence,omitempty"`

	HistoricalYearsAnalyzed int    `json:"historical_years_analyzed,omitempty"`
	Disclaimer              string `json:"disclaimer,omitempty"`
}

// TemperaturePair holds a daily maximum and minimum.
type TemperaturePair struct {
	Max float64 `json:"max"`
	Min float64 `json:"min"`
}

// Observed holds raw values for a past date.
type Observed struct {
	Temperature   TemperaturePair `json:"temperature"`
	WindSpeed     float64         `json:"wind_speed"`
	Precipitation float64         `json:"precipitation"`
	Humidity      float64         `json:"humidity"`
}

// Range is an inclusive interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Estimate is a predicted value with its plausible range.
type Estimate struct {
	Value float64 `json:"value"`
	Range Range   `json:"range"`
}

// TemperatureEstimate groups the daily maximum and minimum estimates.
type TemperatureEstimate struct {
	Max Estimate `json:"max"`
	Min Estimate `json:"min"`
}

// PrecipitationEstimate is the predicted rainfall and chance of rain.
type PrecipitationEstimate struct {
	ExpectedMM        float64 `json:"expected_mm"`
	ProbabilityOfRain float64 `json:"probability_of_rain"`
	Range             Range   `json:"range"`
}

// Predicted holds forecast values for a future date.
type Predicted struct {
	Temperature   TemperatureEstimate   `json:"temperature"`
	WindSpeed     Estimate              `json:"wind_speed"`
	Precipitation PrecipitationEstimate `json:"precipitation"`
	Humidity      Estimate              `json:"humidity"`
}

// Sources and disclaimers attached to records.
const (
	SourceNASAPower   = "NASA POWER"
	SourceOpenMeteo   = "Open-Meteo API"
	SourceStatistical = "NASA POWER historical analysis"

	LiveDisclaimer        = "Real-time forecast data from Open-Meteo API"
	StatisticalDisclaimer = "Forecast based on historical data analysis. Not to be used for critical decisions."
)

// HistoricalRecord wraps an observed day as a historical Record.
func HistoricalRecord(coord Coordinate, day *DayRecord) *Record {
	return &Record{
		Kind:     KindHistorical,
		Date:     day.Date.Format(DateLayout),
		Location: coord,
		Source:   SourceNASAPower,
		Observed: &Observed{
			Temperature:   TemperaturePair{Max: day.TempMax, Min: day.TempMin},
			WindSpeed:     day.WindSpeed,
			Precipitation: day.Precipitation,
			Humidity:      day.Humidity,
		},
	}
}

// LiveRecord reshapes a point prediction into a live-forecast Record.
// The upstream returns no distributions, so every range is synthetic.
func LiveRecord(coord Coordinate, day *DayRecord) *Record {
	rain := 10.0
	if day.Precipitation > 0 {
		rain = 50
	}

	temps := Range{Min: day.TempMin, Max: day.TempMax}

	return &Record{
		Kind:     KindLive,
		Date:     day.Date.Format(DateLayout),
		Location: coord,
		Source:   SourceOpenMeteo,
		Predicted: &Predicted{
			Temperature: TemperatureEstimate{
				Max: Estimate{Value: day.TempMax, Range: temps},
				Min: Estimate{Value: day.TempMin, Range: temps},
			},
			WindSpeed: Estimate{
				Value: day.WindSpeed,
				Range: Range{Min: 0, Max: day.WindSpeed},
			},
			Precipitation: PrecipitationEstimate{
				ExpectedMM:        day.Precipitation,
				ProbabilityOfRain: rain,
				Range:             Range{Min: 0, Max: round(1.5*day.Precipitation, 2)},
			},
			Humidity: Estimate{
				Value: day.Humidity,
				Range: Range{
					Min: max(0, day.Humidity-20),
					Max: min(100, day.Humidity+10),
				},
			},
		},
		Disclaimer: LiveDisclaimer,
	}
}

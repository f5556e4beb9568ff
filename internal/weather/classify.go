package weather

import "time"

// DefaultHorizonDays is how far ahead the live forecast source is trusted.
const DefaultHorizonDays = 10

// DateClass says which source answers a given target date.
type DateClass int

const (
	ClassPast DateClass = iota
	ClassLiveForecast
	ClassFarFuture
)

func (c DateClass) String() string {
	switch c {
	case ClassPast:
		return "PAST"
	case ClassLiveForecast:
		return "LIVE_FORECAST"
	case ClassFarFuture:
		return "FAR_FUTURE"
	default:
		return "UNKNOWN"
	}
}

// DaysFromNow returns the number of calendar days between today and target.
// Negative values are in the past.
func DaysFromNow(target, today time.Time) int {
	diff := civilDate(target).Sub(civilDate(today))
	return int(diff.Hours() / 24)
}

// Classify routes target relative to today. Today itself is a live forecast.
func Classify(target, today time.Time, horizonDays int) DateClass {
	days := DaysFromNow(target, today)
	switch {
	case days < 0:
		return ClassPast
	case days <= horizonDays:
		return ClassLiveForecast
	default:
		return ClassFarFuture
	}
}

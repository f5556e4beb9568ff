package weather

import (
	"math"
	"sort"
)

// RainThresholdMM is the daily precipitation above which a day counts as rainy.
const RainThresholdMM = 0.5

// MetricStatistics describes one quantity across a historical sample.
// Mean and StdDev are rounded to two decimals.
type MetricStatistics struct {
	Min        float64
	Max        float64
	Mean       float64
	Median     float64
	StdDev     float64
	SampleSize int
}

// ComputeStatistics summarizes values. The median is sorted[n/2] with no
// averaging for even-sized samples. StdDev divides by n, not n-1.
func ComputeStatistics(values []float64) MetricStatistics {
	n := len(values)
	if n == 0 {
		return MetricStatistics{}
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(n)

	var sq float64
	for _, v := range sorted {
		d := v - mean
		sq += d * d
	}

	return MetricStatistics{
		Min:        sorted[0],
		Max:        sorted[n-1],
		Mean:       round(mean, 2),
		Median:     sorted[n/2],
		StdDev:     round(math.Sqrt(sq/float64(n)), 2),
		SampleSize: n,
	}
}

// RainProbability is the percentage of days above RainThresholdMM, to one decimal.
func RainProbability(precipitation []float64) float64 {
	if len(precipitation) == 0 {
		return 0
	}
	rainy := 0
	for _, p := range precipitation {
		if p > RainThresholdMM {
			rainy++
		}
	}
	return round(float64(rainy)/float64(len(precipitation))*100, 1)
}

// Confidence maps the spread of daily maximum temperature to a 60..95 score.
func Confidence(tempMaxStdDev float64) float64 {
	return round(clamp(100-5*tempMaxStdDev, 60, 95), 1)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

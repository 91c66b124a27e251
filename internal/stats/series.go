package stats

import "math"

// SeriesStats summarizes a fitness series.
type SeriesStats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Max   float64 `json:"max"`
	Min   float64 `json:"min"`
}

// Describe returns population statistics for values. An empty series is all
// zeros.
func Describe(values []float64) SeriesStats {
	if len(values) == 0 {
		return SeriesStats{}
	}
	out := SeriesStats{Count: len(values), Max: values[0], Min: values[0]}
	total := 0.0
	for _, value := range values {
		total += value
		if value > out.Max {
			out.Max = value
		}
		if value < out.Min {
			out.Min = value
		}
	}
	out.Mean = total / float64(len(values))
	sumSq := 0.0
	for _, value := range values {
		diff := out.Mean - value
		sumSq += diff * diff
	}
	out.Std = math.Sqrt(sumSq / float64(len(values)))
	return out
}

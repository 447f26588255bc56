package market

import "math"

// Stats summarizes the close series of one ticker over the lookback window.
type Stats struct {
	Last      float64
	Mean      float64
	Std       float64 // population standard deviation
	Min       float64
	Max       float64
	PctChange float64 // first -> last, in percent
}

// ComputeStats derives Stats from the trailing windowDays closes of series.
// ok is false when the series is empty.
func ComputeStats(series []Quote, windowDays int) (Stats, bool) {
	if len(series) == 0 {
		return Stats{}, false
	}
	if windowDays > 0 && len(series) > windowDays {
		series = series[len(series)-windowDays:]
	}

	first := series[0].Close
	last := series[len(series)-1].Close

	var sum, minV, maxV float64
	minV, maxV = series[0].Close, series[0].Close
	for _, q := range series {
		sum += q.Close
		if q.Close < minV {
			minV = q.Close
		}
		if q.Close > maxV {
			maxV = q.Close
		}
	}
	mean := sum / float64(len(series))

	var variance float64
	for _, q := range series {
		d := q.Close - mean
		variance += d * d
	}
	variance /= float64(len(series))

	pct := 0.0
	if first != 0 {
		pct = (last - first) / first * 100.0
	}

	return Stats{
		Last:      last,
		Mean:      mean,
		Std:       math.Sqrt(variance),
		Min:       minV,
		Max:       maxV,
		PctChange: pct,
	}, true
}

// AllStats computes Stats for every ticker with data.
func AllStats(prices map[string][]Quote, windowDays int) map[string]Stats {
	out := make(map[string]Stats, len(prices))
	for tk, series := range prices {
		if st, ok := ComputeStats(series, windowDays); ok {
			out[tk] = st
		}
	}
	return out
}

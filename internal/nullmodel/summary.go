package nullmodel

import (
	"fmt"

	"github.com/montanaflynn/stats"
)

// Summary describes a null sample.
type Summary struct {
	N                int
	Mean             float64
	StdDev           float64
	Median           float64
	P95              float64
	PositiveFraction float64
}

// Summarize computes descriptive statistics of a null sample.
func Summarize(sample []float64) (Summary, error) {
	data := stats.Float64Data(sample)

	mean, err := stats.Mean(data)
	if err != nil {
		return Summary{}, fmt.Errorf("null mean: %w", err)
	}
	sd, err := stats.StandardDeviationSample(data)
	if err != nil {
		return Summary{}, fmt.Errorf("null standard deviation: %w", err)
	}
	median, err := stats.Median(data)
	if err != nil {
		return Summary{}, fmt.Errorf("null median: %w", err)
	}
	p95, err := stats.Percentile(data, 95)
	if err != nil {
		return Summary{}, fmt.Errorf("null percentile: %w", err)
	}

	var pos int
	for _, v := range sample {
		if v > 0 {
			pos++
		}
	}
	return Summary{
		N:                len(sample),
		Mean:             mean,
		StdDev:           sd,
		Median:           median,
		P95:              p95,
		PositiveFraction: float64(pos) / float64(len(sample)),
	}, nil
}

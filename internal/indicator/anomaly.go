package indicator

import (
	"math"

	"github.com/droughtwatch/cdi-etl/internal/domain"
)

// Fitted index values outside this range are treated as artifacts of the
// standardization and clamped.
const (
	fittedIndexValidMin = -3.09
	fittedIndexValidMax = 3.09
)

// IndexCalculator standardizes one cell's observation series against its
// baseline sample. Implementations must be deterministic and must return NaN
// where the observation is missing.
type IndexCalculator interface {
	Calculate(observations, baseline []float64) []float64
}

// ZScore standardizes against the baseline mean and standard deviation and
// clamps the result to the fitted-index validity range. It is the default
// calculator for both SPI and SMA anomalies.
type ZScore struct{}

func (ZScore) Calculate(observations, baseline []float64) []float64 {
	mean, std := baselineStats(baseline)
	out := make([]float64, len(observations))
	for i, v := range observations {
		if !domain.IsValid(v) || std == 0 || math.IsNaN(std) {
			out[i] = math.NaN()
			continue
		}
		out[i] = clampIndex((v - mean) / std)
	}
	return out
}

func clampIndex(v float64) float64 {
	if v < fittedIndexValidMin {
		return fittedIndexValidMin
	}
	if v > fittedIndexValidMax {
		return fittedIndexValidMax
	}
	return v
}

// baselineStats computes mean and population standard deviation over the
// valid baseline samples. Fewer than two valid samples yields NaN stats,
// which propagates missing through the calculator.
func baselineStats(baseline []float64) (mean, std float64) {
	var sum float64
	var n int
	for _, v := range baseline {
		if domain.IsValid(v) {
			sum += v
			n++
		}
	}
	if n < 2 {
		return math.NaN(), math.NaN()
	}
	mean = sum / float64(n)

	var ss float64
	for _, v := range baseline {
		if domain.IsValid(v) {
			d := v - mean
			ss += d * d
		}
	}
	std = math.Sqrt(ss / float64(n))
	return mean, std
}

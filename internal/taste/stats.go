package taste

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation, or 0 for fewer than
// two values.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// Skewness returns the standardized third moment. A flat distribution
// (zero variance) skews 0 rather than NaN.
func Skewness(values []float64) float64 {
	sd := StdDev(values)
	if sd == 0 {
		return 0
	}
	mean := Mean(values)
	var sum float64
	for _, v := range values {
		d := (v - mean) / sd
		sum += d * d * d
	}
	return sum / float64(len(values))
}

// Pearson returns the correlation coefficient between xs and ys. It
// returns exactly 0 when fewer than 5 points are given or when either
// series is constant, so callers never see NaN.
func Pearson(xs, ys []float64) float64 {
	n := len(xs)
	if n != len(ys) || n < 5 {
		return 0
	}
	meanX := Mean(xs)
	meanY := Mean(ys)
	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}

// WeightedMean averages values by the given non-negative weights. A zero
// total weight yields the plain mean of values, or 0 when empty.
func WeightedMean(values, weights []float64) float64 {
	if len(values) == 0 || len(values) != len(weights) {
		return 0
	}
	var sum, total float64
	for i, v := range values {
		sum += v * weights[i]
		total += weights[i]
	}
	if total == 0 {
		return Mean(values)
	}
	return sum / total
}

// WeightedPercentile returns the value at percentile p (0-100) of the
// weighted distribution: the smallest value whose cumulative weight share
// reaches p. Ties in value keep their paired weights.
func WeightedPercentile(values, weights []float64, p float64) float64 {
	if len(values) == 0 || len(values) != len(weights) {
		return 0
	}
	type pair struct{ v, w float64 }
	pairs := make([]pair, len(values))
	var total float64
	for i := range values {
		pairs[i] = pair{values[i], weights[i]}
		total += weights[i]
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].v < pairs[j].v })
	if total == 0 {
		// Unweighted fallback: index by rank.
		idx := int(math.Ceil(p/100*float64(len(pairs)))) - 1
		if idx < 0 {
			idx = 0
		}
		return pairs[idx].v
	}
	target := p / 100 * total
	var cum float64
	for _, pr := range pairs {
		cum += pr.w
		if cum >= target {
			return pr.v
		}
	}
	return pairs[len(pairs)-1].v
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

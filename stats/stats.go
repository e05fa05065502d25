// Package stats keeps running statistics over task scores.
package stats

import "math"

const (
	Epsilon = 1e-6
)

func FuzzyEqual(a, b float64) bool {
	return math.Abs(a-b) < Epsilon
}

// Running accumulates mean and variance of a stream of scores without
// keeping them (Welford's algorithm).
type Running struct {
	n    int
	mean float64
	m2   float64
}

func (s *Running) Push(val float64) {
	s.n++
	delta := val - s.mean
	s.mean += delta / float64(s.n)
	s.m2 += delta * (val - s.mean)
}

func (s *Running) Count() int { return s.n }

func (s *Running) Mean() float64 {
	if s.n == 0 {
		return 0.0
	}
	return s.mean
}

func (s *Running) Variance() float64 {
	if s.n <= 1 {
		return 0.0
	}
	return s.m2 / float64(s.n-1)
}

func (s *Running) Stdev() float64 {
	return math.Sqrt(s.Variance())
}

// HalfWidth is the half width of the confidence interval around the mean,
// given as a percentage (e.g. 95).
func (s *Running) HalfWidth(confidence float64) float64 {
	if s.n <= 1 {
		return 0.0
	}
	return ZVal(confidence) * s.Stdev() / math.Sqrt(float64(s.n))
}

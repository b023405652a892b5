// Package grading holds the pluggable policies that turn a list of scores
// into a single numeric grade.
package grading

import (
	"fmt"
	"slices"

	"github.com/yigit/schoolrecords/internal/pkg/apperrors"
)

// Strategy names accepted by New.
const (
	StrategyWeightedAverage = "weighted_average"
	StrategyBestNOfM        = "best_n_of_m"
)

// Score is one graded item and its weight.
type Score struct {
	Score  float64
	Weight float64
}

// Calculator computes a grade from scores.
type Calculator interface {
	CalculateGrade(scores []Score) float64
	Name() string
}

// WeightedAverage returns sum(score*weight)/sum(weight), or 0 when the total
// weight is not positive.
type WeightedAverage struct{}

func (WeightedAverage) Name() string { return StrategyWeightedAverage }

func (WeightedAverage) CalculateGrade(scores []Score) float64 {
	var sum, weights float64
	for _, s := range scores {
		sum += s.Score * s.Weight
		weights += s.Weight
	}
	if weights <= 0 {
		return 0
	}
	return sum / weights
}

// BestNOfM averages the N highest raw scores, ignoring weights.
type BestNOfM struct {
	n int
}

// NewBestNOfM returns a BestNOfM keeping the top n scores.
func NewBestNOfM(n int) *BestNOfM {
	return &BestNOfM{n: n}
}

// N returns the number of scores kept.
func (b *BestNOfM) N() int { return b.n }

func (b *BestNOfM) Name() string { return StrategyBestNOfM }

func (b *BestNOfM) CalculateGrade(scores []Score) float64 {
	take := min(b.n, len(scores))
	if take <= 0 {
		return 0
	}

	raw := make([]float64, len(scores))
	for i, s := range scores {
		raw[i] = s.Score
	}
	slices.SortFunc(raw, func(a, b float64) int {
		switch {
		case a > b:
			return -1
		case a < b:
			return 1
		}
		return 0
	})

	var sum float64
	for _, v := range raw[:take] {
		sum += v
	}
	return sum / float64(take)
}

// New returns the calculator registered under strategy. bestN only applies
// to best_n_of_m.
func New(strategy string, bestN int) (Calculator, error) {
	switch strategy {
	case "", StrategyWeightedAverage:
		return WeightedAverage{}, nil
	case StrategyBestNOfM:
		if bestN < 1 {
			return nil, fmt.Errorf("%w: best_n must be at least 1", apperrors.ErrValidationFailed)
		}
		return NewBestNOfM(bestN), nil
	default:
		return nil, fmt.Errorf("%w: unknown grading strategy %q", apperrors.ErrValidationFailed, strategy)
	}
}

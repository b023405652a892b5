package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/schoolrecords/internal/pkg/apperrors"
)

func TestWeightedAverage(t *testing.T) {
	calc := WeightedAverage{}

	assert.InDelta(t, 80.0, calc.CalculateGrade([]Score{{Score: 80, Weight: 1}}), 1e-9)
	assert.InDelta(t, 72.5, calc.CalculateGrade([]Score{{Score: 90, Weight: 1}, {Score: 55, Weight: 1}}), 1e-9)
	// 90*3 + 60*1 = 330 over 4
	assert.InDelta(t, 82.5, calc.CalculateGrade([]Score{{Score: 90, Weight: 3}, {Score: 60, Weight: 1}}), 1e-9)

	assert.Zero(t, calc.CalculateGrade(nil))
	assert.Zero(t, calc.CalculateGrade([]Score{{Score: 70, Weight: 0}}))
	assert.Equal(t, StrategyWeightedAverage, calc.Name())
}

func TestBestNOfM(t *testing.T) {
	calc := NewBestNOfM(2)
	scores := []Score{{Score: 40, Weight: 5}, {Score: 90, Weight: 1}, {Score: 70, Weight: 1}}

	assert.InDelta(t, 80.0, calc.CalculateGrade(scores), 1e-9)
	assert.Equal(t, []Score{{Score: 40, Weight: 5}, {Score: 90, Weight: 1}, {Score: 70, Weight: 1}}, scores, "input is not reordered")

	assert.InDelta(t, 65.0, NewBestNOfM(5).CalculateGrade([]Score{{Score: 60}, {Score: 70}}), 1e-9)
	assert.Zero(t, calc.CalculateGrade(nil))
	assert.Zero(t, NewBestNOfM(0).CalculateGrade(scores))
	assert.Equal(t, 2, calc.N())
	assert.Equal(t, StrategyBestNOfM, calc.Name())
}

func TestNew(t *testing.T) {
	c, err := New("", 0)
	require.NoError(t, err)
	assert.IsType(t, WeightedAverage{}, c)

	c, err = New(StrategyBestNOfM, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, c.(*BestNOfM).N())

	_, err = New(StrategyBestNOfM, 0)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = New("median", 0)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

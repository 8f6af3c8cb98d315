package progress

import (
	"testing"

	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/matching"
	"github.com/stretchr/testify/assert"
)

func TestCalculate_WeightedProgress(t *testing.T) {
	detected := []matching.DetectedElement{
		{ElementID: "a", Status: matching.StatusCompleted},
		{ElementID: "b", Status: matching.StatusInProgress},
	}

	m := Calculate(detected, 4)

	// (1*1.0 + 1*0.5) / 4 * 100
	assert.InDelta(t, 37.5, m.OverallProgress, 0.001)
	assert.Equal(t, 4, m.TotalElements)
	assert.Equal(t, 2, m.DetectedCount)
	assert.Equal(t, 1, m.CompletedCount)
	assert.Equal(t, 1, m.InProgressCount)
	assert.Equal(t, 0, m.NotStartedCount)
}

func TestCalculate_AllCompleted(t *testing.T) {
	detected := []matching.DetectedElement{
		{ElementID: "a", Status: matching.StatusCompleted},
		{ElementID: "b", Status: matching.StatusCompleted},
	}

	m := Calculate(detected, 2)
	assert.InDelta(t, 100.0, m.OverallProgress, 0.001)
}

func TestCalculate_EmptyCatalog(t *testing.T) {
	detected := []matching.DetectedElement{
		{ElementID: "a", Status: matching.StatusCompleted},
	}

	m := Calculate(detected, 0)
	assert.Zero(t, m.OverallProgress)
	assert.Equal(t, 1, m.CompletedCount)
}

func TestCalculate_NoDetections(t *testing.T) {
	m := Calculate(nil, 10)
	assert.Zero(t, m.OverallProgress)
	assert.Equal(t, 10, m.TotalElements)
	assert.Zero(t, m.DetectedCount)
}

func TestCalculate_NotStartedContributesNothing(t *testing.T) {
	detected := []matching.DetectedElement{
		{ElementID: "a", Status: matching.StatusNotStarted},
		{ElementID: "b", Status: matching.StatusNotStarted},
	}

	m := Calculate(detected, 2)
	assert.Zero(t, m.OverallProgress)
	assert.Equal(t, 2, m.NotStartedCount)
}

func TestCalculate_ClampsAboveHundred(t *testing.T) {
	// More completed detections than catalog entries, as can happen when
	// the caller passes a stale total. Progress must not exceed 100.
	detected := []matching.DetectedElement{
		{ElementID: "a", Status: matching.StatusCompleted},
		{ElementID: "b", Status: matching.StatusCompleted},
		{ElementID: "c", Status: matching.StatusCompleted},
	}

	m := Calculate(detected, 2)
	assert.InDelta(t, 100.0, m.OverallProgress, 0.001)
}

func TestCalculate_TwoDecimalRounding(t *testing.T) {
	detected := []matching.DetectedElement{
		{ElementID: "a", Status: matching.StatusCompleted},
	}

	// 1/3 * 100 = 33.333... rounds to 33.33
	m := Calculate(detected, 3)
	assert.InDelta(t, 33.33, m.OverallProgress, 0.0001)
}

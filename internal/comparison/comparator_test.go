package comparison

import (
	"testing"
	"time"

	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/matching"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare_VelocityOverTenDays(t *testing.T) {
	c := NewComparator(nil)

	analyzedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	now := analyzedAt.Add(10 * 24 * time.Hour)

	prev := &PreviousAnalysis{
		AnalysisID:      "prev-1",
		OverallProgress: 30.0,
		AnalyzedAt:      analyzedAt,
	}

	result := c.Compare(nil, 55.0, prev, now)

	require.NotNil(t, result)
	assert.InDelta(t, 25.0, result.ProgressChange, 0.001)
	assert.InDelta(t, 10.0, result.DaysBetween, 0.001)
	require.NotNil(t, result.Velocity)
	assert.InDelta(t, 2.5, *result.Velocity, 0.001)
}

func TestCompare_SameDayVelocityUndefined(t *testing.T) {
	c := NewComparator(nil)

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	prev := &PreviousAnalysis{
		AnalysisID:      "prev-1",
		OverallProgress: 30.0,
		AnalyzedAt:      now,
	}

	result := c.Compare(nil, 40.0, prev, now)

	require.NotNil(t, result)
	assert.InDelta(t, 10.0, result.ProgressChange, 0.001)
	assert.Nil(t, result.Velocity, "zero elapsed days must not default velocity to zero")
}

func TestCompare_BackwardTransitionReported(t *testing.T) {
	c := NewComparator(nil)

	prev := &PreviousAnalysis{
		AnalysisID:      "prev-1",
		OverallProgress: 60.0,
		DetectedElements: []matching.DetectedElement{
			{ElementID: "w1", ElementType: "Wall", Status: matching.StatusCompleted},
		},
		AnalyzedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
	current := []matching.DetectedElement{
		{ElementID: "w1", ElementType: "Wall", Status: matching.StatusInProgress},
	}

	result := c.Compare(current, 50.0, prev, time.Date(2026, 8, 8, 0, 0, 0, 0, time.UTC))

	require.NotNil(t, result)
	require.Len(t, result.StatusChanges, 1)
	assert.Equal(t, matching.StatusCompleted, result.StatusChanges[0].PreviousStatus)
	assert.Equal(t, matching.StatusInProgress, result.StatusChanges[0].CurrentStatus)
	assert.InDelta(t, -10.0, result.ProgressChange, 0.001)
	require.NotNil(t, result.Velocity)
	assert.Negative(t, *result.Velocity)
}

func TestCompare_AddedAndRemovedPartitions(t *testing.T) {
	c := NewComparator(nil)

	prev := &PreviousAnalysis{
		AnalysisID: "prev-1",
		DetectedElements: []matching.DetectedElement{
			{ElementID: "a", Status: matching.StatusCompleted},
			{ElementID: "b", Status: matching.StatusInProgress},
		},
		AnalyzedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
	current := []matching.DetectedElement{
		{ElementID: "b", Status: matching.StatusInProgress},
		{ElementID: "c", Status: matching.StatusInProgress},
		{ElementID: "d", Status: matching.StatusCompleted},
	}

	result := c.Compare(current, 50.0, prev, time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC))

	require.NotNil(t, result)
	assert.Equal(t, []string{"c", "d"}, result.ElementsAdded)
	assert.Equal(t, []string{"a"}, result.ElementsRemoved)
	assert.Empty(t, result.StatusChanges)
}

func TestCompare_NoPrevious(t *testing.T) {
	c := NewComparator(nil)

	result := c.Compare(nil, 50.0, nil, time.Now())
	assert.Nil(t, result)
}

func TestCompare_Deterministic(t *testing.T) {
	c := NewComparator(nil)

	prev := &PreviousAnalysis{
		AnalysisID: "prev-1",
		DetectedElements: []matching.DetectedElement{
			{ElementID: "z", Status: matching.StatusCompleted},
			{ElementID: "y", Status: matching.StatusCompleted},
		},
		AnalyzedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
	current := []matching.DetectedElement{
		{ElementID: "m", Status: matching.StatusInProgress},
		{ElementID: "k", Status: matching.StatusInProgress},
	}
	now := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)

	first := c.Compare(current, 20.0, prev, now)
	second := c.Compare(current, 20.0, prev, now)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"k", "m"}, first.ElementsAdded)
	assert.Equal(t, []string{"y", "z"}, first.ElementsRemoved)
}

// Package progress turns detection results into progress metrics and
// construction alerts.
package progress

import (
	"math"

	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/matching"
)

// Metrics summarizes construction progress for one analysis.
type Metrics struct {
	OverallProgress float64 `json:"overall_progress"`
	TotalElements   int     `json:"total_elements"`
	DetectedCount   int     `json:"detected_count"`
	CompletedCount  int     `json:"completed_count"`
	InProgressCount int     `json:"in_progress_count"`
	NotStartedCount int     `json:"not_started_count"`
}

// inProgressWeight is how much a partially built element contributes
// relative to a completed one.
const inProgressWeight = 0.5

// Calculate computes weighted progress over the full catalog size. Elements
// in progress count half. An empty catalog yields zero progress, not a
// division error. The result is clamped to [0, 100] and rounded to two
// decimals.
func Calculate(detected []matching.DetectedElement, totalElements int) Metrics {
	m := Metrics{
		TotalElements: totalElements,
		DetectedCount: len(detected),
	}

	for _, d := range detected {
		switch d.Status {
		case matching.StatusCompleted:
			m.CompletedCount++
		case matching.StatusInProgress:
			m.InProgressCount++
		case matching.StatusNotStarted:
			m.NotStartedCount++
		}
	}

	if totalElements <= 0 {
		return m
	}

	weighted := float64(m.CompletedCount) + float64(m.InProgressCount)*inProgressWeight
	pct := weighted / float64(totalElements) * 100

	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	m.OverallProgress = round2(pct)
	return m
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Package comparison computes temporal deltas between two analyses of the
// same project.
package comparison

import (
	"math"
	"sort"
	"time"

	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/matching"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/observability"
)

// PreviousAnalysis is the slice of an earlier analysis the comparator needs.
type PreviousAnalysis struct {
	AnalysisID       string                     `json:"analysis_id"`
	OverallProgress  float64                    `json:"overall_progress"`
	DetectedElements []matching.DetectedElement `json:"detected_elements"`
	AnalyzedAt       time.Time                  `json:"analyzed_at"`
}

// StatusChange records one element whose status moved between analyses.
// Backward transitions are reported as-is; demolition and rework happen.
type StatusChange struct {
	ElementID      string                 `json:"element_id"`
	ElementType    string                 `json:"element_type,omitempty"`
	PreviousStatus matching.ElementStatus `json:"previous_status"`
	CurrentStatus  matching.ElementStatus `json:"current_status"`
}

// Result is the temporal comparison between the current analysis and the
// previous one. Velocity is percent points per day and stays nil when the
// analyses are not separated in time; zero would fake a measurement.
type Result struct {
	PreviousAnalysisID string         `json:"previous_analysis_id"`
	ProgressChange     float64        `json:"progress_change"`
	ElementsAdded      []string       `json:"elements_added,omitempty"`
	ElementsRemoved    []string       `json:"elements_removed,omitempty"`
	StatusChanges      []StatusChange `json:"status_changes,omitempty"`
	DaysBetween        float64        `json:"days_between"`
	Velocity           *float64       `json:"velocity,omitempty"`
}

// Comparator diffs detection sets by element ID.
type Comparator struct {
	logger *observability.Logger
}

// NewComparator creates a comparator.
func NewComparator(logger *observability.Logger) *Comparator {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Comparator{logger: logger}
}

// Compare diffs the current detections and progress against the previous
// analysis. A nil previous analysis means there is nothing to compare; that
// is a normal state for a project's first photo, not an error.
func (c *Comparator) Compare(current []matching.DetectedElement, currentProgress float64, prev *PreviousAnalysis, now time.Time) *Result {
	if prev == nil {
		return nil
	}

	currByID := make(map[string]matching.DetectedElement, len(current))
	for _, d := range current {
		currByID[d.ElementID] = d
	}
	prevByID := make(map[string]matching.DetectedElement, len(prev.DetectedElements))
	for _, d := range prev.DetectedElements {
		prevByID[d.ElementID] = d
	}

	result := &Result{
		PreviousAnalysisID: prev.AnalysisID,
		ProgressChange:     round2(currentProgress - prev.OverallProgress),
	}

	for id, d := range currByID {
		before, existed := prevByID[id]
		if !existed {
			result.ElementsAdded = append(result.ElementsAdded, id)
			continue
		}
		if before.Status != d.Status {
			result.StatusChanges = append(result.StatusChanges, StatusChange{
				ElementID:      id,
				ElementType:    d.ElementType,
				PreviousStatus: before.Status,
				CurrentStatus:  d.Status,
			})
		}
	}

	for id := range prevByID {
		if _, exists := currByID[id]; !exists {
			result.ElementsRemoved = append(result.ElementsRemoved, id)
		}
	}

	sort.Strings(result.ElementsAdded)
	sort.Strings(result.ElementsRemoved)
	sort.Slice(result.StatusChanges, func(i, j int) bool {
		return result.StatusChanges[i].ElementID < result.StatusChanges[j].ElementID
	})

	days := now.Sub(prev.AnalyzedAt).Hours() / 24
	if days > 0 {
		result.DaysBetween = round2(days)
		velocity := round2(result.ProgressChange / days)
		result.Velocity = &velocity
	}

	c.logger.Debug().
		Str("previous_analysis_id", prev.AnalysisID).
		Float64("progress_change", result.ProgressChange).
		Int("added", len(result.ElementsAdded)).
		Int("removed", len(result.ElementsRemoved)).
		Int("status_changes", len(result.StatusChanges)).
		Msg("temporal comparison complete")

	return result
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

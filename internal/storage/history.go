package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/comparison"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/matching"
)

// AnalysisHistory serves previous analyses to the engine from the
// analyses table. A project with no stored analyses yields nil without
// an error, which the engine treats as "no comparison possible".
type AnalysisHistory struct {
	analyses *AnalysisRepository
}

// NewAnalysisHistory creates a history backed by the analysis repository.
func NewAnalysisHistory(analyses *AnalysisRepository) *AnalysisHistory {
	return &AnalysisHistory{analyses: analyses}
}

// MostRecent returns the latest stored analysis for the project.
func (h *AnalysisHistory) MostRecent(ctx context.Context, projectID string) (*comparison.PreviousAnalysis, error) {
	id, err := uuid.Parse(projectID)
	if err != nil {
		return nil, fmt.Errorf("invalid project id %q: %w", projectID, err)
	}

	analysis, err := h.analyses.MostRecent(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var detected []matching.DetectedElement
	if len(analysis.DetectedElements) > 0 {
		if err := json.Unmarshal(analysis.DetectedElements, &detected); err != nil {
			return nil, fmt.Errorf("decode detected elements of analysis %s: %w", analysis.ID, err)
		}
	}

	return &comparison.PreviousAnalysis{
		AnalysisID:       analysis.ID.String(),
		OverallProgress:  analysis.OverallProgress,
		DetectedElements: detected,
		AnalyzedAt:       analysis.AnalyzedAt,
	}, nil
}

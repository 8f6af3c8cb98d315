package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/comparison"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/matching"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/observability"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/storage"
)

// ReportHandler serves stored analyses and on-demand comparisons.
type ReportHandler struct {
	logger     *observability.Logger
	analyses   *storage.AnalysisRepository
	comparator *comparison.Comparator
}

// NewReportHandler creates a new report handler.
func NewReportHandler(logger *observability.Logger, analyses *storage.AnalysisRepository, comparator *comparison.Comparator) *ReportHandler {
	return &ReportHandler{logger: logger, analyses: analyses, comparator: comparator}
}

// AnalysisSummaryDTO is one stored analysis in list responses. The detected
// element set is omitted; fetch the analysis by ID for the full payload.
type AnalysisSummaryDTO struct {
	AnalysisID      string    `json:"analysis_id"`
	OverallProgress float64   `json:"overall_progress"`
	ConfidenceScore float64   `json:"confidence_score"`
	Degraded        bool      `json:"degraded"`
	AnalyzedAt      time.Time `json:"analyzed_at"`
}

// AnalysisDetailDTO is one stored analysis with its full detection set.
type AnalysisDetailDTO struct {
	AnalysisID       string                     `json:"analysis_id"`
	ProjectID        string                     `json:"project_id"`
	Description      string                     `json:"description,omitempty"`
	OverallProgress  float64                    `json:"overall_progress"`
	ConfidenceScore  float64                    `json:"confidence_score"`
	Degraded         bool                       `json:"degraded"`
	DetectedElements []matching.DetectedElement `json:"detected_elements"`
	Comparison       *comparison.Result         `json:"comparison,omitempty"`
	AnalyzedAt       time.Time                  `json:"analyzed_at"`
}

// ListAnalyses handles GET /projects/{projectId}/analyses.
func (h *ReportHandler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	projectID, err := uuid.Parse(chi.URLParam(r, "projectId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project id", err.Error())
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	records, err := h.analyses.ListByProject(ctx, projectID, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Analysis listing failed")
		writeError(w, http.StatusInternalServerError, "analysis listing failed", err.Error())
		return
	}

	summaries := make([]AnalysisSummaryDTO, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, AnalysisSummaryDTO{
			AnalysisID:      rec.ID.String(),
			OverallProgress: rec.OverallProgress,
			ConfidenceScore: rec.ConfidenceScore,
			Degraded:        rec.Degraded,
			AnalyzedAt:      rec.AnalyzedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"analyses": summaries})
}

// GetAnalysis handles GET /projects/{projectId}/analyses/{analysisId}.
func (h *ReportHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	analysisID, err := uuid.Parse(chi.URLParam(r, "analysisId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid analysis id", err.Error())
		return
	}

	record, err := h.analyses.GetByID(ctx, analysisID)
	if err != nil {
		if err == storage.ErrNotFound {
			writeError(w, http.StatusNotFound, "analysis not found", "")
			return
		}
		h.logger.Error().Err(err).Msg("Analysis lookup failed")
		writeError(w, http.StatusInternalServerError, "analysis lookup failed", err.Error())
		return
	}

	detail, err := toDetailDTO(record)
	if err != nil {
		h.logger.Error().Err(err).Msg("Stored analysis is malformed")
		writeError(w, http.StatusInternalServerError, "stored analysis is malformed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// Compare handles GET /projects/{projectId}/compare?from=<id>&to=<id>. It
// recomputes the temporal comparison between two stored analyses; without
// query parameters the two most recent analyses are compared.
func (h *ReportHandler) Compare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	projectID, err := uuid.Parse(chi.URLParam(r, "projectId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project id", err.Error())
		return
	}

	from, to, err := h.resolvePair(ctx, projectID, r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		if err == storage.ErrNotFound {
			writeError(w, http.StatusNotFound, "not enough analyses to compare", "")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid comparison request", err.Error())
		return
	}

	fromDetail, err := toDetailDTO(from)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stored analysis is malformed", err.Error())
		return
	}
	toDetail, err := toDetailDTO(to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stored analysis is malformed", err.Error())
		return
	}

	previous := &comparison.PreviousAnalysis{
		AnalysisID:       fromDetail.AnalysisID,
		OverallProgress:  fromDetail.OverallProgress,
		DetectedElements: fromDetail.DetectedElements,
		AnalyzedAt:       fromDetail.AnalyzedAt,
	}

	result := h.comparator.Compare(toDetail.DetectedElements, toDetail.OverallProgress, previous, toDetail.AnalyzedAt)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"from":       fromDetail.AnalysisID,
		"to":         toDetail.AnalysisID,
		"comparison": result,
	})
}

// resolvePair loads the two analyses to compare. Explicit IDs win; otherwise
// the two latest analyses of the project are used, older first.
func (h *ReportHandler) resolvePair(ctx context.Context, projectID uuid.UUID, fromStr, toStr string) (*storage.Analysis, *storage.Analysis, error) {
	if fromStr != "" && toStr != "" {
		fromID, err := uuid.Parse(fromStr)
		if err != nil {
			return nil, nil, err
		}
		toID, err := uuid.Parse(toStr)
		if err != nil {
			return nil, nil, err
		}

		from, err := h.analyses.GetByID(ctx, fromID)
		if err != nil {
			return nil, nil, err
		}
		to, err := h.analyses.GetByID(ctx, toID)
		if err != nil {
			return nil, nil, err
		}
		return from, to, nil
	}

	latest, err := h.analyses.ListByProject(ctx, projectID, 2)
	if err != nil {
		return nil, nil, err
	}
	if len(latest) < 2 {
		return nil, nil, storage.ErrNotFound
	}
	return latest[1], latest[0], nil
}

func toDetailDTO(record *storage.Analysis) (*AnalysisDetailDTO, error) {
	detail := &AnalysisDetailDTO{
		AnalysisID:      record.ID.String(),
		ProjectID:       record.ProjectID.String(),
		Description:     record.Description,
		OverallProgress: record.OverallProgress,
		ConfidenceScore: record.ConfidenceScore,
		Degraded:        record.Degraded,
		AnalyzedAt:      record.AnalyzedAt,
	}

	if len(record.DetectedElements) > 0 {
		if err := json.Unmarshal(record.DetectedElements, &detail.DetectedElements); err != nil {
			return nil, err
		}
	}
	if len(record.Comparison) > 0 {
		var cmp comparison.Result
		if err := json.Unmarshal(record.Comparison, &cmp); err != nil {
			return nil, err
		}
		detail.Comparison = &cmp
	}

	return detail, nil
}

package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/cache"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/catalog"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/embedding"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/engine"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/observability"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/progress"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/storage"
)

// AnalysisDeps wires the analysis handler's collaborators.
type AnalysisDeps struct {
	Engine       *engine.Engine
	Batch        *engine.BatchProcessor
	Embedder     embedding.Embedder
	Analyses     *storage.AnalysisRepository
	Alerts       *storage.AlertRepository
	Cache        cache.Client
	CacheTTL     time.Duration
	CacheResults bool
}

// AnalysisHandler handles image analysis requests.
type AnalysisHandler struct {
	logger *observability.Logger
	deps   AnalysisDeps
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(logger *observability.Logger, deps AnalysisDeps) *AnalysisHandler {
	return &AnalysisHandler{logger: logger, deps: deps}
}

// AnalyzeRequestDTO represents one analysis request. Either an image (raw
// bytes, base64) or a precomputed embedding or a description must be present.
type AnalyzeRequestDTO struct {
	ProjectID        string                  `json:"project_id"`
	ImageBase64      string                  `json:"image_base64,omitempty"`
	ImageEmbedding   []float32               `json:"image_embedding,omitempty"`
	Description      string                  `json:"description,omitempty"`
	Elements         []catalog.Element       `json:"elements"`
	TargetElementIDs []string                `json:"target_element_ids,omitempty"`
	Deviations       []progress.DeviationNote `json:"deviations,omitempty"`
	AnalyzedAt       *time.Time              `json:"analyzed_at,omitempty"`
}

// BatchRequestDTO represents a multi-image analysis request.
type BatchRequestDTO struct {
	Requests []AnalyzeRequestDTO `json:"requests"`
}

// BatchItemDTO is one slot of the batch response, in request order.
type BatchItemDTO struct {
	Index  int                    `json:"index"`
	Result *engine.AnalysisResult `json:"result,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

// Analyze handles POST /analysis/analyze.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req AnalyzeRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, cacheKey, err := h.toInput(ctx, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	if cached := h.cachedResult(ctx, cacheKey); cached != nil {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	result, err := h.deps.Engine.Analyze(ctx, input)
	if err != nil {
		if err == engine.ErrNoSignal {
			writeError(w, http.StatusBadRequest, err.Error(), "")
			return
		}
		h.logger.Error().Err(err).Msg("Analysis failed")
		writeError(w, http.StatusInternalServerError, "analysis failed", err.Error())
		return
	}

	h.persist(ctx, result, cacheKey)

	writeJSON(w, http.StatusOK, result)
}

// AnalyzeBatch handles POST /analysis/batch.
func (h *AnalysisHandler) AnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req BatchRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if len(req.Requests) == 0 {
		writeError(w, http.StatusBadRequest, "requests is required", "")
		return
	}

	inputs := make([]engine.AnalysisInput, 0, len(req.Requests))
	cacheKeys := make([]string, 0, len(req.Requests))
	for _, item := range req.Requests {
		input, cacheKey, err := h.toInput(ctx, item)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid request", err.Error())
			return
		}
		inputs = append(inputs, input)
		cacheKeys = append(cacheKeys, cacheKey)
	}

	results := h.deps.Batch.Process(ctx, inputs)

	items := make([]BatchItemDTO, len(results))
	for i, res := range results {
		item := BatchItemDTO{Index: res.Index}
		if res.Err != nil {
			item.Error = res.Err.Error()
		} else {
			item.Result = res.Result
			h.persist(ctx, res.Result, cacheKeys[res.Index])
		}
		items[i] = item
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"results": items})
}

// toInput builds the engine input and the request's cache key. The key is
// derived from the request content, never from generated IDs, so a repeated
// photo maps to the same key.
func (h *AnalysisHandler) toInput(ctx context.Context, req AnalyzeRequestDTO) (engine.AnalysisInput, string, error) {
	input := engine.AnalysisInput{
		ProjectID:        req.ProjectID,
		ImageEmbedding:   req.ImageEmbedding,
		Description:      req.Description,
		Elements:         req.Elements,
		TargetElementIDs: req.TargetElementIDs,
		Deviations:       req.Deviations,
	}
	if req.AnalyzedAt != nil {
		input.AnalyzedAt = *req.AnalyzedAt
	}

	// Raw images are embedded here so the engine only ever sees vectors.
	var raw []byte
	if req.ImageBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			return input, "", err
		}
		raw = decoded

		if len(input.ImageEmbedding) == 0 && h.deps.Embedder != nil {
			emb, err := h.deps.Embedder.EmbedImage(ctx, raw)
			if err != nil {
				h.logger.Warn().Err(err).Msg("Image embedding failed, continuing with description only")
			} else {
				input.ImageEmbedding = emb
			}
		}
	}

	cacheKey := ""
	if h.deps.CacheResults && h.deps.Cache != nil {
		if digest := cache.RequestDigest(raw, input.ImageEmbedding, input.Description); digest != "" {
			cacheKey = cache.AnalysisRequestKey(req.ProjectID, digest)
		}
	}

	return input, cacheKey, nil
}

// cachedResult returns a previously computed response for the same request
// content, or nil on a miss.
func (h *AnalysisHandler) cachedResult(ctx context.Context, cacheKey string) *engine.AnalysisResult {
	if cacheKey == "" || h.deps.Cache == nil {
		return nil
	}

	body, err := h.deps.Cache.Get(ctx, cacheKey)
	if err != nil {
		return nil
	}

	var result engine.AnalysisResult
	if err := json.Unmarshal(body, &result); err != nil {
		h.logger.Warn().Err(err).Msg("Discarding undecodable cached analysis")
		return nil
	}

	h.logger.Debug().Str("project_id", result.ProjectID).Msg("Analysis served from cache")
	return &result
}

// persist stores the analysis and its alerts and caches the response under
// the request's content key. Persistence failures are logged, never
// surfaced; the caller already has the result.
func (h *AnalysisHandler) persist(ctx context.Context, result *engine.AnalysisResult, cacheKey string) {
	if cacheKey != "" && h.deps.Cache != nil {
		if body, err := json.Marshal(result); err == nil {
			if err := h.deps.Cache.Set(ctx, cacheKey, body, h.deps.CacheTTL); err != nil {
				h.logger.Warn().Err(err).Msg("Failed to cache analysis result")
			}
		}
	}

	projectID, err := uuid.Parse(result.ProjectID)
	if err != nil {
		h.logger.Warn().Str("project_id", result.ProjectID).Msg("Project ID is not a UUID, skipping persistence")
		return
	}
	analysisID, err := uuid.Parse(result.AnalysisID)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Malformed analysis ID, skipping persistence")
		return
	}

	detected, err := json.Marshal(result.DetectedElements)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode detected elements")
		return
	}

	record := &storage.Analysis{
		ID:               analysisID,
		ProjectID:        projectID,
		Description:      result.Description,
		OverallProgress:  result.Progress.OverallProgress,
		ConfidenceScore:  result.ConfidenceScore,
		Degraded:         result.Degraded,
		DetectedElements: detected,
		AnalyzedAt:       result.AnalyzedAt,
	}
	if result.Comparison != nil {
		if cmp, err := json.Marshal(result.Comparison); err == nil {
			record.Comparison = cmp
		}
	}

	if h.deps.Analyses != nil {
		if err := h.deps.Analyses.Create(ctx, record); err != nil {
			h.logger.Error().Err(err).Str("analysis_id", result.AnalysisID).Msg("Failed to persist analysis")
			return
		}
	}

	if h.deps.Alerts != nil && len(result.Alerts) > 0 {
		records := make([]*storage.AlertRecord, 0, len(result.Alerts))
		for _, a := range result.Alerts {
			rec := &storage.AlertRecord{
				ProjectID:  projectID,
				AnalysisID: analysisID,
				AlertType:  string(a.Type),
				Severity:   string(a.Severity),
				Message:    a.Message,
				ElementID:  a.ElementID,
			}
			if id, err := uuid.Parse(a.AlertID); err == nil {
				rec.ID = id
			}
			records = append(records, rec)
		}
		if err := h.deps.Alerts.CreateBatch(ctx, records); err != nil {
			h.logger.Error().Err(err).Msg("Failed to persist alerts")
		}
	}
}

// Package engine orchestrates the full analysis pipeline: cross-modal
// validation, concurrent vector and keyword matching, result merging,
// progress scoring, alerting, and temporal comparison.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/catalog"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/comparison"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/embedding"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/matching"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/observability"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/progress"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/validation"
)

// ErrNoSignal is returned when a request carries neither an image embedding
// nor a description; there is nothing to analyze.
var ErrNoSignal = errors.New("analysis needs an image embedding or a description")

// History looks up the most recent stored analysis for a project. A nil
// result with a nil error means the project has no history yet.
type History interface {
	MostRecent(ctx context.Context, projectID string) (*comparison.PreviousAnalysis, error)
}

// DescriptionGenerator produces an image description from a prompt. The
// engine uses it to regenerate descriptions that fail the cross-modal check.
type DescriptionGenerator interface {
	Describe(ctx context.Context, prompt string) (string, error)
}

// Config holds the engine's scoring parameters.
type Config struct {
	BaseConfidence      float64
	CrossModalThreshold float64
	RelaxedThreshold    float64
}

// DefaultConfig returns the standard scoring parameters.
func DefaultConfig() Config {
	return Config{
		BaseConfidence:      0.85,
		CrossModalThreshold: 0.6,
		RelaxedThreshold:    0.5,
	}
}

// Deps wires the engine's collaborators. Retriever, Embedder, Generator and
// History are optional: without a retriever the engine runs keyword-only,
// without an embedder the cross-modal check passes neutrally, without
// history there is simply no comparison.
type Deps struct {
	Retriever  *matching.Retriever
	Matcher    *matching.KeywordMatcher
	Geometry   *validation.GeometryChecker
	Alerts     *progress.Generator
	Comparator *comparison.Comparator
	Embedder   embedding.Embedder
	Generator  DescriptionGenerator
	History    History
	Logger     *observability.Logger
}

// Engine runs construction progress analyses.
type Engine struct {
	cfg        Config
	retriever  *matching.Retriever
	matcher    *matching.KeywordMatcher
	geometry   *validation.GeometryChecker
	alerts     *progress.Generator
	comparator *comparison.Comparator
	embedder   embedding.Embedder
	generator  DescriptionGenerator
	history    History
	logger     *observability.Logger
}

// New creates an engine. Zero config values fall back to defaults; missing
// collaborators that have safe defaults are constructed.
func New(cfg Config, deps Deps) *Engine {
	defaults := DefaultConfig()
	if cfg.BaseConfidence <= 0 {
		cfg.BaseConfidence = defaults.BaseConfidence
	}
	if cfg.CrossModalThreshold <= 0 {
		cfg.CrossModalThreshold = defaults.CrossModalThreshold
	}
	if cfg.RelaxedThreshold <= 0 {
		cfg.RelaxedThreshold = defaults.RelaxedThreshold
	}

	logger := deps.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}
	if deps.Matcher == nil {
		deps.Matcher = matching.NewKeywordMatcher(matching.MatcherConfig{}, logger)
	}
	if deps.Geometry == nil {
		deps.Geometry = validation.NewGeometryChecker(logger)
	}
	if deps.Alerts == nil {
		deps.Alerts = progress.NewGenerator(logger)
	}
	if deps.Comparator == nil {
		deps.Comparator = comparison.NewComparator(logger)
	}

	return &Engine{
		cfg:        cfg,
		retriever:  deps.Retriever,
		matcher:    deps.Matcher,
		geometry:   deps.Geometry,
		alerts:     deps.Alerts,
		comparator: deps.Comparator,
		embedder:   deps.Embedder,
		generator:  deps.Generator,
		history:    deps.History,
		logger:     logger,
	}
}

// AnalysisInput is one analysis request.
type AnalysisInput struct {
	ProjectID        string
	ImageEmbedding   []float32
	Description      string
	Elements         []catalog.Element
	TargetElementIDs []string
	Deviations       []progress.DeviationNote
	// Previous overrides the history lookup when set.
	Previous   *comparison.PreviousAnalysis
	AnalyzedAt time.Time
}

// AnalysisResult is the engine's full output for one image.
type AnalysisResult struct {
	AnalysisID           string                     `json:"analysis_id"`
	ProjectID            string                     `json:"project_id"`
	Description          string                     `json:"description,omitempty"`
	DetectedElements     []matching.DetectedElement `json:"detected_elements"`
	Progress             progress.Metrics           `json:"progress"`
	Alerts               []progress.Alert           `json:"alerts,omitempty"`
	Comparison           *comparison.Result         `json:"comparison,omitempty"`
	Geometry             validation.GeometryResult  `json:"geometry"`
	ConfidenceScore      float64                    `json:"confidence_score"`
	CrossModalSimilarity float64                    `json:"cross_modal_similarity"`
	Degraded             bool                       `json:"degraded"`
	AnalyzedAt           time.Time                  `json:"analyzed_at"`
	ProcessingMS         int64                      `json:"processing_ms"`
}

// Analyze runs the pipeline for one image. Vector retrieval and keyword
// matching run concurrently; a retrieval failure degrades the analysis to
// keyword-only instead of failing it, flagged on the result.
func (e *Engine) Analyze(ctx context.Context, input AnalysisInput) (*AnalysisResult, error) {
	start := time.Now()

	if len(input.ImageEmbedding) == 0 && input.Description == "" {
		return nil, ErrNoSignal
	}
	if input.ProjectID == "" {
		return nil, fmt.Errorf("project id is required")
	}

	analyzedAt := input.AnalyzedAt
	if analyzedAt.IsZero() {
		analyzedAt = time.Now().UTC()
	}

	logger := e.logger.WithProject(input.ProjectID).WithOperation("analyze")

	previous := input.Previous
	if previous == nil && e.history != nil {
		prev, err := e.history.MostRecent(ctx, input.ProjectID)
		if err != nil {
			logger.Warn().Err(err).Msg("history lookup failed, continuing without comparison")
		} else {
			previous = prev
		}
	}

	description, similarity := e.validateDescription(ctx, input, previous, logger)

	var (
		wg         sync.WaitGroup
		vectorHits []matching.DetectedElement
		vectorErr  error
		keywords   []matching.DetectedElement
	)

	if e.retriever != nil && len(input.ImageEmbedding) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vectorHits, vectorErr = e.retriever.Retrieve(ctx, input.ProjectID, input.ImageEmbedding, input.TargetElementIDs)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		keywords = e.matcher.Match(description, input.Elements, input.TargetElementIDs)
	}()

	wg.Wait()

	degraded := false
	if vectorErr != nil {
		degraded = true
		logger.Warn().Err(vectorErr).Msg("vector retrieval failed, degrading to keyword matching")
	}

	merged := matching.Merge(vectorHits, keywords)
	unmatched := annotateDeviations(merged, input.Deviations)
	geo := e.geometry.Check(merged)
	metrics := progress.Calculate(merged, len(input.Elements))
	alerts := e.alerts.Generate(merged, input.Elements, unmatched, geo.Issues)
	cmp := e.comparator.Compare(merged, metrics.OverallProgress, previous, analyzedAt)

	result := &AnalysisResult{
		AnalysisID:           uuid.NewString(),
		ProjectID:            input.ProjectID,
		Description:          description,
		DetectedElements:     merged,
		Progress:             metrics,
		Alerts:               alerts,
		Comparison:           cmp,
		Geometry:             geo,
		ConfidenceScore:      round2(e.cfg.BaseConfidence * geo.PenaltyFactor),
		CrossModalSimilarity: round2(similarity),
		Degraded:             degraded,
		AnalyzedAt:           analyzedAt,
		ProcessingMS:         time.Since(start).Milliseconds(),
	}

	logger.Info().
		Int("detected", len(merged)).
		Float64("overall_progress", metrics.OverallProgress).
		Int("alerts", len(alerts)).
		Bool("degraded", degraded).
		Msg("analysis complete")

	return result, nil
}

// validateDescription runs the cross-modal consistency check and, when the
// description disagrees badly with the image, asks the generator for one
// regeneration and re-checks against the relaxed threshold. The analysis
// keeps going either way; the check gates the description, never the run.
func (e *Engine) validateDescription(ctx context.Context, input AnalysisInput, previous *comparison.PreviousAnalysis, logger *observability.Logger) (string, float64) {
	description := input.Description

	if e.embedder == nil || description == "" || len(input.ImageEmbedding) == 0 {
		return description, validation.NeutralSimilarity
	}

	textEmb, err := e.embedder.EmbedSingle(ctx, description)
	if err != nil {
		logger.Warn().Err(err).Msg("text embedding failed, cross-modal check inconclusive")
		return description, validation.NeutralSimilarity
	}

	_, sim := validation.ValidateCrossModal(input.ImageEmbedding, textEmb, e.cfg.CrossModalThreshold)
	if sim >= e.cfg.RelaxedThreshold || e.generator == nil {
		return description, sim
	}

	logger.Info().Float64("similarity", sim).Msg("description inconsistent with image, regenerating once")

	prompt := BuildAnalysisPrompt(PromptContext{
		ProjectID:  input.ProjectID,
		Elements:   input.Elements,
		Previous:   previous,
		AnalyzedAt: input.AnalyzedAt,
	})

	regenerated, err := e.generator.Describe(ctx, prompt)
	if err != nil || regenerated == "" {
		logger.Warn().Err(err).Msg("description regeneration failed, keeping original")
		return description, sim
	}

	regenEmb, err := e.embedder.EmbedSingle(ctx, regenerated)
	if err != nil {
		logger.Warn().Err(err).Msg("regenerated text embedding failed, keeping original")
		return description, sim
	}

	consistent, regenSim := validation.ValidateCrossModal(input.ImageEmbedding, regenEmb, e.cfg.RelaxedThreshold)
	if consistent && regenSim > sim {
		return regenerated, regenSim
	}

	logger.Warn().
		Float64("original_similarity", sim).
		Float64("regenerated_similarity", regenSim).
		Msg("regenerated description no better, keeping original")
	return description, sim
}

// annotateDeviations attaches each deviation note to the first detection of
// the same element type that has no note yet, and returns the notes that
// matched nothing. A note attaches to exactly one detection so the alert
// generator emits one alert per note either way.
func annotateDeviations(detected []matching.DetectedElement, notes []progress.DeviationNote) []progress.DeviationNote {
	if len(notes) == 0 {
		return nil
	}

	var unmatched []progress.DeviationNote
	for _, note := range notes {
		attached := false
		for i := range detected {
			if detected[i].Deviation != "" || !strings.EqualFold(detected[i].ElementType, note.ElementType) {
				continue
			}
			detected[i].Deviation = note.Detail
			attached = true
			break
		}
		if !attached {
			unmatched = append(unmatched, note)
		}
	}
	return unmatched
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/catalog"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/comparison"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/matching"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingIndex struct{}

func (failingIndex) Insert(ctx context.Context, entries []matching.Entry) error {
	return nil
}

func (failingIndex) Search(ctx context.Context, projectID string, query []float32, topK int) ([]matching.Hit, error) {
	return nil, errors.New("index offline")
}

func (failingIndex) Count(ctx context.Context, projectID string) (int, error) {
	return 0, nil
}

type stubHistory struct {
	previous *comparison.PreviousAnalysis
	err      error
}

func (s *stubHistory) MostRecent(ctx context.Context, projectID string) (*comparison.PreviousAnalysis, error) {
	return s.previous, s.err
}

type stubEmbedder struct {
	vectors map[string][]float32
}

func (s *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = s.vectors[t]
	}
	return out, nil
}

func (s *stubEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	v, ok := s.vectors[text]
	if !ok {
		return nil, errors.New("unknown text")
	}
	return v, nil
}

func (s *stubEmbedder) EmbedImage(ctx context.Context, image []byte) ([]float32, error) {
	return nil, errors.New("not used")
}

func (s *stubEmbedder) Model() string  { return "stub" }
func (s *stubEmbedder) Dimension() int { return 2 }

type stubGenerator struct {
	description string
	err         error
	calls       int
}

func (s *stubGenerator) Describe(ctx context.Context, prompt string) (string, error) {
	s.calls++
	return s.description, s.err
}

func fourElementCatalog() []catalog.Element {
	return []catalog.Element{
		{ElementID: "w1", ElementType: "Wall", Name: "Parede Norte"},
		{ElementID: "s1", ElementType: "Slab", Name: "Laje Térreo"},
		{ElementID: "c1", ElementType: "Column", Name: "P1"},
		{ElementID: "b1", ElementType: "Beam", Name: "V1"},
	}
}

func TestEngine_Analyze_KeywordOnly(t *testing.T) {
	e := New(Config{}, Deps{})

	result, err := e.Analyze(context.Background(), AnalysisInput{
		ProjectID:   "p1",
		Description: "parede concluída, laje em construção",
		Elements:    fourElementCatalog(),
	})

	require.NoError(t, err)
	assert.False(t, result.Degraded)
	assert.NotEmpty(t, result.AnalysisID)

	// Wall and slab match by keyword; column and beam have no signal.
	require.Len(t, result.DetectedElements, 2)
	for _, d := range result.DetectedElements {
		assert.Equal(t, matching.SourceKeyword, d.Source)
	}

	// Status keywords apply per description, completion wording winning:
	// both detections read as completed, (2*1.0)/4*100.
	assert.InDelta(t, 50.0, result.Progress.OverallProgress, 0.001)

	// Two catalog entries went undetected.
	missing := 0
	for _, a := range result.Alerts {
		if a.Type == progress.AlertMissingElement {
			missing++
		}
	}
	assert.Equal(t, 2, missing)
}

func TestEngine_Analyze_VectorAndKeywordMerge(t *testing.T) {
	idx := matching.NewMemoryIndex(3)
	require.NoError(t, idx.Insert(context.Background(), []matching.Entry{
		{ElementID: "w1", ProjectID: "p1", ElementType: "Wall", ElementName: "Parede Norte", Vector: []float32{1, 0, 0}},
		{ElementID: "s1", ProjectID: "p1", ElementType: "Slab", ElementName: "Laje Térreo", Vector: []float32{0, 1, 0}},
	}))

	e := New(Config{}, Deps{
		Retriever: matching.NewRetriever(idx, 10, nil),
	})

	result, err := e.Analyze(context.Background(), AnalysisInput{
		ProjectID:      "p1",
		ImageEmbedding: []float32{1, 0, 0},
		Description:    "pilar em construção",
		Elements:       fourElementCatalog(),
	})

	require.NoError(t, err)
	assert.False(t, result.Degraded)

	byID := map[string]matching.DetectedElement{}
	for _, d := range result.DetectedElements {
		byID[d.ElementID] = d
	}

	wall, ok := byID["w1"]
	require.True(t, ok)
	assert.Equal(t, matching.SourceVector, wall.Source)
	assert.Equal(t, matching.StatusCompleted, wall.Status)

	column, ok := byID["c1"]
	require.True(t, ok)
	assert.Equal(t, matching.SourceKeyword, column.Source)

	// Plausible scene: full base confidence.
	assert.InDelta(t, 0.85, result.ConfidenceScore, 0.001)
}

func TestEngine_Analyze_DegradesOnRetrievalFailure(t *testing.T) {
	e := New(Config{}, Deps{
		Retriever: matching.NewRetriever(failingIndex{}, 10, nil),
	})

	result, err := e.Analyze(context.Background(), AnalysisInput{
		ProjectID:      "p1",
		ImageEmbedding: []float32{1, 0, 0},
		Description:    "parede concluída",
		Elements:       fourElementCatalog(),
	})

	require.NoError(t, err, "retrieval failure must not fail the analysis")
	assert.True(t, result.Degraded)
	require.Len(t, result.DetectedElements, 1)
	assert.Equal(t, matching.SourceKeyword, result.DetectedElements[0].Source)
}

func TestEngine_Analyze_GeometryPenaltyLowersConfidence(t *testing.T) {
	e := New(Config{}, Deps{})

	result, err := e.Analyze(context.Background(), AnalysisInput{
		ProjectID:   "p1",
		Description: "telhado concluído",
		Elements: []catalog.Element{
			{ElementID: "r1", ElementType: "Roof", Name: "Telhado"},
		},
	})

	require.NoError(t, err)
	assert.False(t, result.Geometry.Plausible)
	assert.InDelta(t, 0.85*0.7, result.ConfidenceScore, 0.01)

	var geometryAlert *progress.Alert
	for i, a := range result.Alerts {
		if a.Type == progress.AlertGeometry {
			geometryAlert = &result.Alerts[i]
		}
	}
	require.NotNil(t, geometryAlert, "high severity geometry issue must surface as alert")
	assert.Equal(t, progress.SeverityHigh, geometryAlert.Severity)
}

func TestEngine_Analyze_ComparisonFromHistory(t *testing.T) {
	analyzedAt := time.Date(2026, 8, 18, 0, 0, 0, 0, time.UTC)
	history := &stubHistory{previous: &comparison.PreviousAnalysis{
		AnalysisID:      "prev-1",
		OverallProgress: 25.0,
		AnalyzedAt:      analyzedAt.Add(-10 * 24 * time.Hour),
	}}

	e := New(Config{}, Deps{History: history})

	result, err := e.Analyze(context.Background(), AnalysisInput{
		ProjectID:   "p1",
		Description: "parede concluída, laje concluída",
		Elements: []catalog.Element{
			{ElementID: "w1", ElementType: "Wall", Name: "Parede"},
			{ElementID: "s1", ElementType: "Slab", Name: "Laje"},
		},
		AnalyzedAt: analyzedAt,
	})

	require.NoError(t, err)
	require.NotNil(t, result.Comparison)
	assert.Equal(t, "prev-1", result.Comparison.PreviousAnalysisID)
	// 100% now vs 25% then over 10 days.
	assert.InDelta(t, 75.0, result.Comparison.ProgressChange, 0.001)
	require.NotNil(t, result.Comparison.Velocity)
	assert.InDelta(t, 7.5, *result.Comparison.Velocity, 0.001)
}

func TestEngine_Analyze_HistoryErrorIsNotFatal(t *testing.T) {
	e := New(Config{}, Deps{History: &stubHistory{err: errors.New("db down")}})

	result, err := e.Analyze(context.Background(), AnalysisInput{
		ProjectID:   "p1",
		Description: "parede concluída",
		Elements:    fourElementCatalog(),
	})

	require.NoError(t, err)
	assert.Nil(t, result.Comparison)
}

func TestEngine_Analyze_DeviationNotesAnnotateDetections(t *testing.T) {
	e := New(Config{}, Deps{})

	result, err := e.Analyze(context.Background(), AnalysisInput{
		ProjectID:   "p1",
		Description: "parede concluída",
		Elements: []catalog.Element{
			{ElementID: "w1", ElementType: "Wall", Name: "Parede"},
		},
		Deviations: []progress.DeviationNote{
			{ElementType: "Wall", Detail: "espessura divergente do projeto"},
			{ElementType: "Roof", Detail: "telha fora de especificação"},
		},
	})

	require.NoError(t, err)
	require.Len(t, result.DetectedElements, 1)
	assert.Equal(t, "espessura divergente do projeto", result.DetectedElements[0].Deviation)

	// One alert per note: the wall note carries the detection's element id,
	// the roof note matched nothing and stays a free-floating deviation.
	var withID, withoutID int
	for _, a := range result.Alerts {
		if a.Type != progress.AlertDeviation {
			continue
		}
		if a.ElementID != "" {
			withID++
		} else {
			withoutID++
		}
	}
	assert.Equal(t, 1, withID)
	assert.Equal(t, 1, withoutID)
}

func TestEngine_Analyze_NoSignal(t *testing.T) {
	e := New(Config{}, Deps{})

	_, err := e.Analyze(context.Background(), AnalysisInput{ProjectID: "p1"})
	assert.ErrorIs(t, err, ErrNoSignal)
}

func TestEngine_Analyze_MissingProjectID(t *testing.T) {
	e := New(Config{}, Deps{})

	_, err := e.Analyze(context.Background(), AnalysisInput{Description: "parede"})
	assert.Error(t, err)
}

func TestEngine_Analyze_RegeneratesInconsistentDescription(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"descrição ruim":             {0, 1},
		"parede concluída na imagem": {1, 0},
	}}
	generator := &stubGenerator{description: "parede concluída na imagem"}

	e := New(Config{}, Deps{Embedder: embedder, Generator: generator})

	result, err := e.Analyze(context.Background(), AnalysisInput{
		ProjectID:      "p1",
		ImageEmbedding: []float32{1, 0},
		Description:    "descrição ruim",
		Elements:       fourElementCatalog(),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, generator.calls, "exactly one regeneration attempt")
	assert.Equal(t, "parede concluída na imagem", result.Description)
	assert.InDelta(t, 1.0, result.CrossModalSimilarity, 0.001)

	// The regenerated description drives keyword matching.
	require.NotEmpty(t, result.DetectedElements)
	assert.Equal(t, "w1", result.DetectedElements[0].ElementID)
}

func TestEngine_Analyze_KeepsOriginalWhenRegenerationFails(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"descrição ruim": {0, 1},
	}}
	generator := &stubGenerator{err: errors.New("generator offline")}

	e := New(Config{}, Deps{Embedder: embedder, Generator: generator})

	result, err := e.Analyze(context.Background(), AnalysisInput{
		ProjectID:      "p1",
		ImageEmbedding: []float32{1, 0},
		Description:    "descrição ruim",
		Elements:       fourElementCatalog(),
	})

	require.NoError(t, err)
	assert.Equal(t, "descrição ruim", result.Description)
	assert.InDelta(t, 0.0, result.CrossModalSimilarity, 0.001)
}

func TestEngine_Analyze_NoEmbedderNeutralSimilarity(t *testing.T) {
	e := New(Config{}, Deps{})

	result, err := e.Analyze(context.Background(), AnalysisInput{
		ProjectID:   "p1",
		Description: "parede concluída",
		Elements:    fourElementCatalog(),
	})

	require.NoError(t, err)
	assert.InDelta(t, 0.5, result.CrossModalSimilarity, 0.001)
}

package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/cache"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/catalog"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/engine"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/observability"
)

const testProjectID = "11111111-1111-1111-1111-111111111111"

func testCatalog() []catalog.Element {
	return []catalog.Element{
		{ElementID: "w1", ElementType: "Wall", Name: "Parede Norte"},
		{ElementID: "s1", ElementType: "Slab", Name: "Laje Térreo"},
	}
}

func postAnalyze(t *testing.T, h *AnalysisHandler, req AnalyzeRequestDTO) engine.AnalysisResult {
	t.Helper()

	body, err := json.Marshal(req)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/analyze", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.Analyze(w, r)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result engine.AnalysisResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	return result
}

func TestAnalyze_RepeatRequestServedFromCache(t *testing.T) {
	c := cache.NewMemoryClient(100)
	defer c.Close()

	h := NewAnalysisHandler(observability.NopLogger(), AnalysisDeps{
		Engine:       engine.New(engine.Config{}, engine.Deps{}),
		Cache:        c,
		CacheTTL:     time.Minute,
		CacheResults: true,
	})

	req := AnalyzeRequestDTO{
		ProjectID:   testProjectID,
		Description: "parede concluída, laje em construção",
		Elements:    testCatalog(),
	}

	first := postAnalyze(t, h, req)
	second := postAnalyze(t, h, req)

	// The engine mints a new analysis ID per run, so an identical ID proves
	// the second response came from the cache.
	assert.Equal(t, first.AnalysisID, second.AnalysisID)
	assert.Equal(t, first.Progress, second.Progress)

	other := req
	other.Description = "apenas fundação concluída"
	third := postAnalyze(t, h, other)
	assert.NotEqual(t, first.AnalysisID, third.AnalysisID, "different content must not share a cache entry")
}

func TestAnalyze_CacheDisabledReprocesses(t *testing.T) {
	c := cache.NewMemoryClient(100)
	defer c.Close()

	h := NewAnalysisHandler(observability.NopLogger(), AnalysisDeps{
		Engine:       engine.New(engine.Config{}, engine.Deps{}),
		Cache:        c,
		CacheTTL:     time.Minute,
		CacheResults: false,
	})

	req := AnalyzeRequestDTO{
		ProjectID:   testProjectID,
		Description: "parede concluída",
		Elements:    testCatalog(),
	}

	first := postAnalyze(t, h, req)
	second := postAnalyze(t, h, req)
	assert.NotEqual(t, first.AnalysisID, second.AnalysisID)
}

package storage

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/matching"
)

func testDB(t *testing.T) DB {
	t.Helper()

	db, err := Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(context.Background(), db))
	return db
}

func TestProjectRepository_CreateAndGet(t *testing.T) {
	db := testDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()

	project := &Project{Name: "Residencial Aurora", TotalElements: 42}
	require.NoError(t, repo.Create(ctx, project))
	require.NotEqual(t, uuid.Nil, project.ID)

	got, err := repo.GetByID(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, "Residencial Aurora", got.Name)
	assert.Equal(t, 42, got.TotalElements)
}

func TestProjectRepository_GetMissing(t *testing.T) {
	repo := NewProjectRepository(testDB(t))

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProjectRepository_UpdateTotalElements(t *testing.T) {
	db := testDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()

	project := &Project{Name: "Obra 1"}
	require.NoError(t, repo.Create(ctx, project))

	require.NoError(t, repo.UpdateTotalElements(ctx, project.ID, 17))

	got, err := repo.GetByID(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, 17, got.TotalElements)

	assert.ErrorIs(t, repo.UpdateTotalElements(ctx, uuid.New(), 5), ErrNotFound)
}

func TestAnalysisRepository_MostRecentByAnalyzedAt(t *testing.T) {
	db := testDB(t)
	repo := NewAnalysisRepository(db)
	ctx := context.Background()
	projectID := uuid.New()

	detected, err := json.Marshal([]matching.DetectedElement{
		{ElementID: "w1", ElementType: "Wall", Status: matching.StatusCompleted, Confidence: 0.9},
	})
	require.NoError(t, err)

	older := &Analysis{
		ProjectID:        projectID,
		OverallProgress:  30.0,
		DetectedElements: detected,
		AnalyzedAt:       time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC),
	}
	newer := &Analysis{
		ProjectID:        projectID,
		OverallProgress:  55.0,
		DetectedElements: detected,
		AnalyzedAt:       time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
	}

	// Inserted out of order on purpose; ordering is by analyzed_at, not
	// insertion time.
	require.NoError(t, repo.Create(ctx, newer))
	require.NoError(t, repo.Create(ctx, older))

	got, err := repo.MostRecent(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)
	assert.InDelta(t, 55.0, got.OverallProgress, 0.001)
}

func TestAnalysisRepository_MostRecentEmpty(t *testing.T) {
	repo := NewAnalysisRepository(testDB(t))

	_, err := repo.MostRecent(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAnalysisRepository_ListByProject(t *testing.T) {
	db := testDB(t)
	repo := NewAnalysisRepository(db)
	ctx := context.Background()
	projectID := uuid.New()

	for i := 0; i < 3; i++ {
		a := &Analysis{
			ProjectID:        projectID,
			DetectedElements: json.RawMessage(`[]`),
			AnalyzedAt:       time.Date(2026, 8, 1+i, 0, 0, 0, 0, time.UTC),
		}
		require.NoError(t, repo.Create(ctx, a))
	}
	other := &Analysis{
		ProjectID:        uuid.New(),
		DetectedElements: json.RawMessage(`[]`),
		AnalyzedAt:       time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(ctx, other))

	analyses, err := repo.ListByProject(ctx, projectID, 2)
	require.NoError(t, err)
	require.Len(t, analyses, 2)
	assert.True(t, analyses[0].AnalyzedAt.After(analyses[1].AnalyzedAt), "newest first")
}

func TestAnalysisRepository_RoundTripsJSONBlobs(t *testing.T) {
	db := testDB(t)
	repo := NewAnalysisRepository(db)
	ctx := context.Background()

	a := &Analysis{
		ProjectID:        uuid.New(),
		Description:      "parede norte concluída",
		OverallProgress:  37.5,
		ConfidenceScore:  0.72,
		Degraded:         true,
		DetectedElements: json.RawMessage(`[{"element_id":"w1"}]`),
		Comparison:       json.RawMessage(`{"progress_change":7.5}`),
		AnalyzedAt:       time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, a))

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"element_id":"w1"}]`, string(got.DetectedElements))
	assert.JSONEq(t, `{"progress_change":7.5}`, string(got.Comparison))
	assert.True(t, got.Degraded)
	assert.InDelta(t, 0.72, got.ConfidenceScore, 0.001)
}

func TestAnalysisHistory_MostRecent(t *testing.T) {
	db := testDB(t)
	repo := NewAnalysisRepository(db)
	history := NewAnalysisHistory(repo)
	ctx := context.Background()
	projectID := uuid.New()

	detected, err := json.Marshal([]matching.DetectedElement{
		{ElementID: "w1", ElementType: "Wall", Status: matching.StatusInProgress, Confidence: 0.6},
	})
	require.NoError(t, err)

	a := &Analysis{
		ProjectID:        projectID,
		OverallProgress:  25.0,
		DetectedElements: detected,
		AnalyzedAt:       time.Date(2026, 8, 18, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(ctx, a))

	prev, err := history.MostRecent(ctx, projectID.String())
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, a.ID.String(), prev.AnalysisID)
	assert.InDelta(t, 25.0, prev.OverallProgress, 0.001)
	require.Len(t, prev.DetectedElements, 1)
	assert.Equal(t, matching.StatusInProgress, prev.DetectedElements[0].Status)
}

func TestAnalysisHistory_NoHistoryIsNotAnError(t *testing.T) {
	history := NewAnalysisHistory(NewAnalysisRepository(testDB(t)))

	prev, err := history.MostRecent(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, prev)
}

func TestAnalysisHistory_RejectsMalformedProjectID(t *testing.T) {
	history := NewAnalysisHistory(NewAnalysisRepository(testDB(t)))

	_, err := history.MostRecent(context.Background(), "not-a-uuid")
	assert.Error(t, err)
}

func TestAlertRepository_Workflow(t *testing.T) {
	db := testDB(t)
	repo := NewAlertRepository(db)
	ctx := context.Background()
	projectID := uuid.New()
	analysisID := uuid.New()

	alerts := []*AlertRecord{
		{
			ProjectID:  projectID,
			AnalysisID: analysisID,
			AlertType:  "missing_element",
			Severity:   "medium",
			Message:    "Wall (Parede Sul) não identificado na imagem",
			ElementID:  "w2",
		},
		{
			ProjectID:  projectID,
			AnalysisID: analysisID,
			AlertType:  "safety_concern",
			Severity:   "high",
			Message:    "Andaime sem guarda-corpo",
		},
	}
	require.NoError(t, repo.CreateBatch(ctx, alerts))

	open, err := repo.ListByProject(ctx, projectID, true)
	require.NoError(t, err)
	assert.Len(t, open, 2)

	require.NoError(t, repo.Resolve(ctx, alerts[0].ID))

	open, err = repo.ListByProject(ctx, projectID, true)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "safety_concern", open[0].AlertType)

	all, err := repo.ListByProject(ctx, projectID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	for _, a := range all {
		if a.ID == alerts[0].ID {
			assert.True(t, a.Resolved)
			assert.NotNil(t, a.ResolvedAt)
		}
	}

	assert.ErrorIs(t, repo.Resolve(ctx, uuid.New()), ErrNotFound)
}

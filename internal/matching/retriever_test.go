package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubIndex struct {
	hits []Hit
	err  error
}

func (s *stubIndex) Insert(ctx context.Context, entries []Entry) error {
	return nil
}

func (s *stubIndex) Search(ctx context.Context, projectID string, query []float32, topK int) ([]Hit, error) {
	return s.hits, s.err
}

func (s *stubIndex) Count(ctx context.Context, projectID string) (int, error) {
	return len(s.hits), nil
}

func TestRetriever_MinMaxNormalization(t *testing.T) {
	index := &stubIndex{hits: []Hit{
		{ElementID: "a", ElementType: "Wall", ElementName: "W1", Score: 0.91},
		{ElementID: "b", ElementType: "Slab", ElementName: "S1", Score: 0.40},
		{ElementID: "c", ElementType: "Beam", ElementName: "B1", Score: 0.12},
	}}
	r := NewRetriever(index, 10, nil)

	detected, err := r.Retrieve(context.Background(), "p1", []float32{0.1, 0.2}, nil)
	require.NoError(t, err)
	require.Len(t, detected, 3)

	// Spread 0.79: scores stretch across the full [0, 1] range.
	assert.InDelta(t, 1.0, detected[0].Confidence, 0.001)
	assert.InDelta(t, 0.354, detected[1].Confidence, 0.001)
	assert.InDelta(t, 0.0, detected[2].Confidence, 0.001)

	assert.Equal(t, StatusCompleted, detected[0].Status)
	assert.Equal(t, StatusNotStarted, detected[1].Status)
	assert.Equal(t, StatusNotStarted, detected[2].Status)

	for _, d := range detected {
		assert.Equal(t, SourceVector, d.Source)
	}
}

func TestRetriever_DegenerateSpreadClampsRawScores(t *testing.T) {
	index := &stubIndex{hits: []Hit{
		{ElementID: "a", ElementType: "Wall", ElementName: "W1", Score: 0.72},
		{ElementID: "b", ElementType: "Slab", ElementName: "S1", Score: 0.715},
	}}
	r := NewRetriever(index, 10, nil)

	detected, err := r.Retrieve(context.Background(), "p1", []float32{0.1}, nil)
	require.NoError(t, err)
	require.Len(t, detected, 2)

	// Spread below epsilon: raw scores pass through clamped, no stretching
	// to the extremes.
	assert.InDelta(t, 0.72, detected[0].Confidence, 0.001)
	assert.InDelta(t, 0.715, detected[1].Confidence, 0.001)
	assert.Equal(t, StatusCompleted, detected[0].Status)
}

func TestRetriever_DegenerateSpreadNegativeScore(t *testing.T) {
	index := &stubIndex{hits: []Hit{
		{ElementID: "a", ElementType: "Wall", ElementName: "W1", Score: -0.2},
	}}
	r := NewRetriever(index, 10, nil)

	detected, err := r.Retrieve(context.Background(), "p1", []float32{0.1}, nil)
	require.NoError(t, err)
	require.Len(t, detected, 1)

	// A lone negative cosine carries no usable signal; it reads as unknown.
	assert.InDelta(t, 0.5, detected[0].Confidence, 0.001)
	assert.Equal(t, StatusInProgress, detected[0].Status)
}

func TestRetriever_TargetFilter(t *testing.T) {
	index := &stubIndex{hits: []Hit{
		{ElementID: "a", ElementType: "Wall", ElementName: "W1", Score: 0.9},
		{ElementID: "b", ElementType: "Slab", ElementName: "S1", Score: 0.4},
	}}
	r := NewRetriever(index, 10, nil)

	detected, err := r.Retrieve(context.Background(), "p1", []float32{0.1}, []string{"b"})
	require.NoError(t, err)
	require.Len(t, detected, 1)
	assert.Equal(t, "b", detected[0].ElementID)
}

func TestRetriever_DedupesNearDuplicateHits(t *testing.T) {
	index := &stubIndex{hits: []Hit{
		{ElementID: "w1", ElementType: "Wall", ElementName: "Parede Norte", Score: 0.9},
		{ElementID: "w2", ElementType: "wall", ElementName: " parede norte", Score: 0.5},
		{ElementID: "s1", ElementType: "Slab", ElementName: "Laje", Score: 0.2},
	}}
	r := NewRetriever(index, 10, nil)

	detected, err := r.Retrieve(context.Background(), "p1", []float32{0.1}, nil)
	require.NoError(t, err)
	require.Len(t, detected, 2)

	assert.Equal(t, "w1", detected[0].ElementID)
	assert.Equal(t, []string{"w2"}, detected[0].MergedIDs)
}

func TestRetriever_SearchErrorPropagates(t *testing.T) {
	index := &stubIndex{err: errors.New("index offline")}
	r := NewRetriever(index, 10, nil)

	detected, err := r.Retrieve(context.Background(), "p1", []float32{0.1}, nil)
	assert.Error(t, err)
	assert.Nil(t, detected)
}

func TestRetriever_EmptyResultIsNotAnError(t *testing.T) {
	index := &stubIndex{}
	r := NewRetriever(index, 10, nil)

	detected, err := r.Retrieve(context.Background(), "p1", []float32{0.1}, nil)
	assert.NoError(t, err)
	assert.Empty(t, detected)
}

func TestRetriever_EmptyQueryRejected(t *testing.T) {
	r := NewRetriever(&stubIndex{}, 10, nil)

	_, err := r.Retrieve(context.Background(), "p1", nil, nil)
	assert.Error(t, err)
}

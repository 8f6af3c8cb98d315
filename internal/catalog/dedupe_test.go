package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupe_GroupsCosmeticVariants(t *testing.T) {
	records := []Record{
		{ElementID: "w1", ElementType: "Wall", Name: "Parede Norte", Score: 0.8},
		{ElementID: "w2", ElementType: "wall ", Name: " parede norte", Score: 0.9},
		{ElementID: "c1", ElementType: "Column", Name: "P1", Score: 0.7},
	}

	groups := Dedupe(records)

	require.Len(t, groups, 2)

	assert.Equal(t, Identity{Type: "wall", Name: "parede norte"}, groups[0].Identity)
	assert.Equal(t, []string{"w1", "w2"}, groups[0].ElementIDs)
	// Higher score wins representative.
	assert.Equal(t, "w2", groups[0].Representative.ElementID)

	assert.Equal(t, Identity{Type: "column", Name: "p1"}, groups[1].Identity)
	assert.Equal(t, []string{"c1"}, groups[1].ElementIDs)
}

func TestDedupe_PartitionsEveryInputID(t *testing.T) {
	records := []Record{
		{ElementID: "a", ElementType: "Wall", Name: "W1", Score: 0.5},
		{ElementID: "b", ElementType: "Wall", Name: "W1", Score: 0.6},
		{ElementID: "c", ElementType: "Slab", Name: "S1", Score: 0.4},
		{ElementID: "d", ElementType: "Beam", Name: "B1", Score: 0.3},
	}

	groups := Dedupe(records)

	seen := map[string]int{}
	for _, g := range groups {
		for _, id := range g.ElementIDs {
			seen[id]++
		}
	}

	for _, rec := range records {
		assert.Equal(t, 1, seen[rec.ElementID], "id %s must land in exactly one group", rec.ElementID)
	}
}

func TestDedupe_Idempotent(t *testing.T) {
	records := []Record{
		{ElementID: "a", ElementType: "Wall", Name: "W1", Score: 0.5},
		{ElementID: "b", ElementType: "WALL", Name: "w1", Score: 0.9},
		{ElementID: "c", ElementType: "Slab", Name: "S1", Score: 0.4},
	}

	first := Dedupe(records)

	flattened := make([]Record, 0, len(first))
	for _, g := range first {
		flattened = append(flattened, g.Record())
	}

	second := Dedupe(flattened)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Identity, second[i].Identity)
		assert.ElementsMatch(t, first[i].ElementIDs, second[i].ElementIDs)
		assert.Equal(t, first[i].Representative.ElementID, second[i].Representative.ElementID)
	}
}

func TestDedupe_TieKeepsFirstSeen(t *testing.T) {
	records := []Record{
		{ElementID: "a", ElementType: "Wall", Name: "W1", Score: 0.5},
		{ElementID: "b", ElementType: "Wall", Name: "W1", Score: 0.5},
	}

	groups := Dedupe(records)

	require.Len(t, groups, 1)
	assert.Equal(t, "a", groups[0].Representative.ElementID)
}

func TestDedupe_Empty(t *testing.T) {
	assert.Empty(t, Dedupe(nil))
	assert.Empty(t, Dedupe([]Record{}))
}

func TestElement_EmbeddingContext(t *testing.T) {
	e := Element{
		ElementType: "Wall",
		Name:        "Parede Norte",
		Description: "Alvenaria estrutural",
		Level:       "Térreo",
	}
	assert.Equal(t, "Wall - Parede Norte - Alvenaria estrutural - Térreo", e.EmbeddingContext())

	sparse := Element{ElementType: "Slab", Name: "Laje L1"}
	assert.Equal(t, "Slab - Laje L1", sparse.EmbeddingContext())
}

package matching

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Entry is one indexed catalog element.
type Entry struct {
	ElementID   string
	ProjectID   string
	ElementType string
	ElementName string
	Context     string
	Vector      []float32
}

// Hit is one raw similarity result. Score is cosine similarity before any
// normalization; the retriever owns score normalization.
type Hit struct {
	ElementID   string
	ElementType string
	ElementName string
	Context     string
	Score       float64
}

// VectorIndex is the similarity search surface the retriever runs against.
type VectorIndex interface {
	Insert(ctx context.Context, entries []Entry) error
	Search(ctx context.Context, projectID string, query []float32, topK int) ([]Hit, error)
	Count(ctx context.Context, projectID string) (int, error)
}

// MemoryIndex is an in-memory cosine similarity index. It serves
// development, tests, and small catalogs; a server-backed index can replace
// it behind the same interface.
type MemoryIndex struct {
	mu        sync.RWMutex
	entries   []Entry
	dimension int
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex(dimension int) *MemoryIndex {
	return &MemoryIndex{dimension: dimension}
}

// Insert adds entries to the index. Vectors are normalized on insert so
// searches reduce to dot products.
func (idx *MemoryIndex) Insert(ctx context.Context, entries []Entry) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, e := range entries {
		if idx.dimension > 0 && len(e.Vector) != idx.dimension {
			return fmt.Errorf("entry %s: dimension %d, index expects %d", e.ElementID, len(e.Vector), idx.dimension)
		}
		e.Vector = normalizeVector(e.Vector)
		idx.entries = append(idx.entries, e)
	}

	return nil
}

// Search returns the topK most similar entries for the project, best first.
func (idx *MemoryIndex) Search(ctx context.Context, projectID string, query []float32, topK int) ([]Hit, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}
	if topK <= 0 {
		topK = 10
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	normalized := normalizeVector(query)

	hits := make([]Hit, 0, len(idx.entries))
	for _, e := range idx.entries {
		if projectID != "" && e.ProjectID != projectID {
			continue
		}
		if len(e.Vector) != len(normalized) {
			continue
		}
		hits = append(hits, Hit{
			ElementID:   e.ElementID,
			ElementType: e.ElementType,
			ElementName: e.ElementName,
			Context:     e.Context,
			Score:       dotProduct(normalized, e.Vector),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}

	return hits, nil
}

// Count returns the number of entries indexed for a project.
func (idx *MemoryIndex) Count(ctx context.Context, projectID string) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if projectID == "" {
		return len(idx.entries), nil
	}

	n := 0
	for _, e := range idx.entries {
		if e.ProjectID == projectID {
			n++
		}
	}
	return n, nil
}

func dotProduct(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func normalizeVector(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}

	norm := float32(1.0 / math.Sqrt(sum))
	out := make([]float32, len(v))
	for i := range v {
		out[i] = v[i] * norm
	}
	return out
}

var _ VectorIndex = (*MemoryIndex)(nil)

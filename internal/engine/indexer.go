package engine

import (
	"context"
	"fmt"

	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/catalog"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/embedding"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/matching"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/observability"
)

// Indexer ingests a parsed building-model catalog into the vector index.
// Model file parsing happens upstream; the indexer receives elements.
type Indexer struct {
	index     matching.VectorIndex
	embedder  embedding.Embedder
	batchSize int
	logger    *observability.Logger
}

// NewIndexer creates an indexer. Batch size defaults to 64.
func NewIndexer(index matching.VectorIndex, embedder embedding.Embedder, batchSize int, logger *observability.Logger) *Indexer {
	if batchSize <= 0 {
		batchSize = 64
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Indexer{
		index:     index,
		embedder:  embedder,
		batchSize: batchSize,
		logger:    logger,
	}
}

// IndexCatalog dedupes the elements, embeds one context string per semantic
// group, and inserts the vectors. Returns how many entries were indexed.
func (ix *Indexer) IndexCatalog(ctx context.Context, projectID string, elements []catalog.Element) (int, error) {
	if projectID == "" {
		return 0, fmt.Errorf("project id is required")
	}
	if len(elements) == 0 {
		return 0, nil
	}

	byID := make(map[string]catalog.Element, len(elements))
	records := make([]catalog.Record, 0, len(elements))
	for _, e := range elements {
		byID[e.ElementID] = e
		records = append(records, catalog.Record{
			ElementID:   e.ElementID,
			ElementType: e.ElementType,
			Name:        e.Name,
		})
	}

	groups := catalog.Dedupe(records)

	contexts := make([]string, 0, len(groups))
	for _, g := range groups {
		contexts = append(contexts, byID[g.Representative.ElementID].EmbeddingContext())
	}

	vectors := make([][]float32, 0, len(contexts))
	for i := 0; i < len(contexts); i += ix.batchSize {
		end := i + ix.batchSize
		if end > len(contexts) {
			end = len(contexts)
		}

		batch, err := ix.embedder.Embed(ctx, contexts[i:end])
		if err != nil {
			return 0, fmt.Errorf("embed catalog batch %d-%d: %w", i, end, err)
		}
		vectors = append(vectors, batch...)
	}

	entries := make([]matching.Entry, 0, len(groups))
	for i, g := range groups {
		rep := byID[g.Representative.ElementID]
		entries = append(entries, matching.Entry{
			ElementID:   rep.ElementID,
			ProjectID:   projectID,
			ElementType: rep.ElementType,
			ElementName: rep.Name,
			Context:     contexts[i],
			Vector:      vectors[i],
		})
	}

	if err := ix.index.Insert(ctx, entries); err != nil {
		return 0, fmt.Errorf("insert catalog entries: %w", err)
	}

	ix.logger.Info().
		Str("project_id", projectID).
		Int("elements", len(elements)).
		Int("indexed", len(entries)).
		Msg("catalog indexed")

	return len(entries), nil
}

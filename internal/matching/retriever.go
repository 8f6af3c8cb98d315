package matching

import (
	"context"
	"fmt"
	"math"

	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/catalog"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/observability"
)

// minScoreSpread guards min-max normalization against near-identical raw
// scores, where dividing by the spread would amplify noise into fake
// confidence differences.
const minScoreSpread = 0.01

// Retriever turns image-embedding similarity search into detections.
type Retriever struct {
	index  VectorIndex
	topK   int
	logger *observability.Logger
}

// NewRetriever creates a retriever over the given index.
func NewRetriever(index VectorIndex, topK int, logger *observability.Logger) *Retriever {
	if topK <= 0 {
		topK = 10
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Retriever{
		index:  index,
		topK:   topK,
		logger: logger,
	}
}

// Retrieve searches the project index with the image embedding and maps the
// hits to detections. Raw similarity scores are min-max normalized across
// the result set before the status thresholds apply. When targetIDs is
// non-empty only those elements are considered. Retrieval problems surface
// as an error so the caller can degrade; they never panic mid-pipeline.
func (r *Retriever) Retrieve(ctx context.Context, projectID string, query []float32, targetIDs []string) ([]DetectedElement, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("empty query embedding")
	}

	hits, err := r.index.Search(ctx, projectID, query, r.topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(hits) == 0 {
		r.logger.Debug().Str("project_id", projectID).Msg("vector search returned no hits")
		return nil, nil
	}

	confidences := normalizeScores(hits)

	targets := make(map[string]bool, len(targetIDs))
	for _, id := range targetIDs {
		targets[id] = true
	}

	records := make([]catalog.Record, 0, len(hits))
	hitByID := make(map[string]Hit, len(hits))
	for i, hit := range hits {
		if len(targets) > 0 && !targets[hit.ElementID] {
			continue
		}
		records = append(records, catalog.Record{
			ElementID:   hit.ElementID,
			ElementType: hit.ElementType,
			Name:        hit.ElementName,
			Score:       confidences[i],
		})
		hitByID[hit.ElementID] = hit
	}

	// Near-duplicate catalog entries collapse to one detection so a wall
	// indexed twice does not count twice toward progress.
	groups := catalog.Dedupe(records)

	detected := make([]DetectedElement, 0, len(groups))
	for _, g := range groups {
		rep := g.Representative
		detected = append(detected, DetectedElement{
			ElementID:   rep.ElementID,
			ElementType: rep.ElementType,
			ElementName: rep.Name,
			Status:      StatusForConfidence(rep.Score),
			Confidence:  rep.Score,
			Source:      SourceVector,
			Description: fmt.Sprintf("%s (%s)", rep.Name, rep.ElementType),
			MergedIDs:   g.Record().MergedIDs,
		})
	}

	r.logger.Debug().
		Str("project_id", projectID).
		Int("hits", len(hits)).
		Int("detected", len(detected)).
		Msg("vector retrieval complete")

	return detected, nil
}

// normalizeScores applies min-max normalization over the result set. With a
// degenerate spread the raw scores are clamped instead: a negative cosine
// reads as an unknown 0.5, anything else caps at 1.0.
func normalizeScores(hits []Hit) []float64 {
	minScore := hits[0].Score
	maxScore := hits[0].Score
	for _, h := range hits[1:] {
		if h.Score < minScore {
			minScore = h.Score
		}
		if h.Score > maxScore {
			maxScore = h.Score
		}
	}

	spread := maxScore - minScore

	out := make([]float64, len(hits))
	for i, h := range hits {
		var conf float64
		if spread > minScoreSpread {
			conf = (h.Score - minScore) / spread
		} else if h.Score < 0 {
			conf = 0.5
		} else {
			conf = math.Min(h.Score, 1.0)
		}
		out[i] = round3(conf)
	}
	return out
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

// Package validation checks analysis outputs for internal consistency:
// cross-modal agreement between image and text embeddings, and geometric
// plausibility of the detected element set.
package validation

import "math"

// NeutralSimilarity is reported when a cross-modal check cannot run. The
// check is advisory, so a missing embedding must not veto the analysis.
const NeutralSimilarity = 0.5

// ValidateCrossModal compares the image embedding against the embedding of
// the generated description. Both vectors must come from the same embedding
// space. Returns whether the pair clears the threshold and the raw cosine
// similarity. With either embedding missing or unusable the check is
// inconclusive and passes neutrally.
func ValidateCrossModal(imageEmb, textEmb []float32, threshold float64) (bool, float64) {
	if len(imageEmb) == 0 || len(textEmb) == 0 || len(imageEmb) != len(textEmb) {
		return true, NeutralSimilarity
	}

	sim, ok := cosineSimilarity(imageEmb, textEmb)
	if !ok {
		return true, NeutralSimilarity
	}

	return sim >= threshold, sim
}

// cosineSimilarity returns the cosine of the angle between a and b. The
// second return is false when either vector has zero magnitude.
func cosineSimilarity(a, b []float32) (float64, bool) {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, false
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true
}

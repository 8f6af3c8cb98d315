package matching

// Merge combines vector and keyword detections keyed by element ID. Vector
// detections carry calibrated similarity evidence, so they win whenever
// both paths saw the same element; keyword detections fill the gaps. Output
// order is deterministic: vector results in retrieval order, then keyword
// additions in match order.
func Merge(vector, keyword []DetectedElement) []DetectedElement {
	merged := make([]DetectedElement, 0, len(vector)+len(keyword))
	seen := make(map[string]bool, len(vector))

	for _, d := range vector {
		if seen[d.ElementID] {
			continue
		}
		seen[d.ElementID] = true
		merged = append(merged, d)
	}

	for _, d := range keyword {
		if seen[d.ElementID] {
			continue
		}
		seen[d.ElementID] = true
		merged = append(merged, d)
	}

	return merged
}

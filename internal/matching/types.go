// Package matching detects catalog elements in a site photo by combining
// vector similarity retrieval with keyword and fuzzy text matching.
package matching

// ElementStatus is the construction state inferred for one element.
type ElementStatus string

const (
	StatusCompleted  ElementStatus = "completed"
	StatusInProgress ElementStatus = "in_progress"
	StatusNotStarted ElementStatus = "not_started"
)

// DetectionSource records which matching path produced a detection.
type DetectionSource string

const (
	SourceVector  DetectionSource = "vector_search"
	SourceKeyword DetectionSource = "keyword_match"
)

// DetectedElement is one catalog element recognized in the analyzed image.
type DetectedElement struct {
	ElementID   string          `json:"element_id"`
	ElementType string          `json:"element_type"`
	ElementName string          `json:"element_name,omitempty"`
	Status      ElementStatus   `json:"status"`
	Confidence  float64         `json:"confidence"`
	Source      DetectionSource `json:"source"`
	Description string          `json:"description,omitempty"`
	Deviation   string          `json:"deviation,omitempty"`
	MergedIDs   []string        `json:"merged_ids,omitempty"`
}

// StatusForConfidence maps a normalized similarity confidence to a status.
// High similarity means the element looks finished in the photo; mid-range
// similarity reads as work in progress.
func StatusForConfidence(confidence float64) ElementStatus {
	switch {
	case confidence > 0.7:
		return StatusCompleted
	case confidence > 0.4:
		return StatusInProgress
	default:
		return StatusNotStarted
	}
}

package validation

import (
	"fmt"
	"strings"

	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/matching"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/observability"
)

// Issue severities. High severity issues surface as alerts downstream.
const (
	IssueSeverityMedium = "medium"
	IssueSeverityHigh   = "high"
)

// Issue is one violated plausibility rule.
type Issue struct {
	Rule       string   `json:"rule"`
	Severity   string   `json:"severity"`
	Message    string   `json:"message"`
	ElementIDs []string `json:"element_ids,omitempty"`
}

// GeometryResult is the outcome of the plausibility check. PenaltyFactor is
// in (0, 1] and scales the analysis confidence; 1.0 means nothing looked
// wrong.
type GeometryResult struct {
	Plausible     bool    `json:"plausible"`
	PenaltyFactor float64 `json:"penalty_factor"`
	Issues        []Issue `json:"issues,omitempty"`
}

// GeometryChecker flags detection sets that violate construction ordering,
// like a roof recognized in a photo with no supporting structure. A failed
// rule lowers confidence in the whole analysis instead of discarding it.
type GeometryChecker struct {
	logger *observability.Logger
}

// NewGeometryChecker creates a checker.
func NewGeometryChecker(logger *observability.Logger) *GeometryChecker {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &GeometryChecker{logger: logger}
}

// penaltyFloor keeps the factor from collapsing to zero when several rules
// fire at once.
const penaltyFloor = 0.5

// Check runs every rule against the detected set. Only elements actually
// visible (completed or in progress) count as present.
func (c *GeometryChecker) Check(detected []matching.DetectedElement) GeometryResult {
	present := presentByCategory(detected)

	var issues []Issue
	penalty := 1.0

	if elevated := firstOf(present, "roof", "slab"); elevated != nil && len(present["wall"]) == 0 && len(present["column"]) == 0 {
		issues = append(issues, Issue{
			Rule:     "elevated_without_support",
			Severity: IssueSeverityHigh,
			Message: fmt.Sprintf("%s detectado sem paredes ou pilares visíveis na imagem",
				elevated.ElementType),
			ElementIDs: []string{elevated.ElementID},
		})
		penalty *= 0.7
	}

	if opening := firstOf(present, "door", "window"); opening != nil && len(present["wall"]) == 0 {
		issues = append(issues, Issue{
			Rule:     "opening_without_wall",
			Severity: IssueSeverityMedium,
			Message: fmt.Sprintf("%s detectado sem parede correspondente na imagem",
				opening.ElementType),
			ElementIDs: []string{opening.ElementID},
		})
		penalty *= 0.85
	}

	if roofDone := completedOf(present, "roof"); roofDone != nil && allNotStarted(detected, "wall") {
		issues = append(issues, Issue{
			Rule:     "roof_before_walls",
			Severity: IssueSeverityMedium,
			Message: fmt.Sprintf("%s concluído com paredes não iniciadas",
				roofDone.ElementType),
			ElementIDs: []string{roofDone.ElementID},
		})
		penalty *= 0.85
	}

	if penalty < penaltyFloor {
		penalty = penaltyFloor
	}

	if len(issues) > 0 {
		c.logger.Warn().
			Int("issues", len(issues)).
			Float64("penalty_factor", penalty).
			Msg("geometric plausibility issues found")
	}

	return GeometryResult{
		Plausible:     len(issues) == 0,
		PenaltyFactor: penalty,
		Issues:        issues,
	}
}

// categoryVocab maps rule categories to type keywords in both languages.
// Order matters: the first category whose vocabulary matches wins.
var categoryVocab = []struct {
	name  string
	words []string
}{
	{"wall", []string{"wall", "parede", "alvenaria"}},
	{"column", []string{"column", "pilar", "coluna"}},
	{"roof", []string{"roof", "telhado", "cobertura"}},
	{"slab", []string{"slab", "laje"}},
	{"door", []string{"door", "porta"}},
	{"window", []string{"window", "janela", "esquadria"}},
}

func presentByCategory(detected []matching.DetectedElement) map[string][]matching.DetectedElement {
	present := make(map[string][]matching.DetectedElement)
	for _, d := range detected {
		if d.Status == matching.StatusNotStarted {
			continue
		}
		if cat, ok := categorize(d.ElementType); ok {
			present[cat] = append(present[cat], d)
		}
	}
	return present
}

func categorize(elementType string) (string, bool) {
	lower := strings.ToLower(elementType)
	for _, cat := range categoryVocab {
		for _, w := range cat.words {
			if strings.Contains(lower, w) {
				return cat.name, true
			}
		}
	}
	return "", false
}

func firstOf(present map[string][]matching.DetectedElement, categories ...string) *matching.DetectedElement {
	for _, cat := range categories {
		if ds := present[cat]; len(ds) > 0 {
			return &ds[0]
		}
	}
	return nil
}

func completedOf(present map[string][]matching.DetectedElement, category string) *matching.DetectedElement {
	for i, d := range present[category] {
		if d.Status == matching.StatusCompleted {
			return &present[category][i]
		}
	}
	return nil
}

// allNotStarted reports whether the detection set saw the category only in
// not started state, with at least one such sighting.
func allNotStarted(detected []matching.DetectedElement, category string) bool {
	sightings := 0
	for _, d := range detected {
		if cat, ok := categorize(d.ElementType); !ok || cat != category {
			continue
		}
		sightings++
		if d.Status != matching.StatusNotStarted {
			return false
		}
	}
	return sightings > 0
}

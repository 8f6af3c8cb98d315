package progress

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/catalog"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/matching"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/observability"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/validation"
)

// AlertType categorizes a construction alert.
type AlertType string

const (
	AlertMissingElement AlertType = "missing_element"
	AlertDeviation      AlertType = "deviation"
	AlertDelay          AlertType = "delay"
	AlertQualityIssue   AlertType = "quality_issue"
	AlertSafetyConcern  AlertType = "safety_concern"
	AlertGeometry       AlertType = "geometric_implausibility"
)

// AlertSeverity ranks how urgently an alert needs attention.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// Alert is one actionable finding from an analysis.
type Alert struct {
	AlertID   string        `json:"alert_id"`
	Type      AlertType     `json:"alert_type"`
	Severity  AlertSeverity `json:"severity"`
	Message   string        `json:"message"`
	ElementID string        `json:"element_id,omitempty"`
}

// DeviationNote is a free-text deviation reported by the description
// generator, tied to the element type it concerns.
type DeviationNote struct {
	ElementType string `json:"element_type"`
	Detail      string `json:"detail"`
}

// Generator builds alerts out of detection results.
type Generator struct {
	logger *observability.Logger
}

// NewGenerator creates an alert generator.
func NewGenerator(logger *observability.Logger) *Generator {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Generator{logger: logger}
}

// Generate produces the alert set for one analysis: a missing-element alert
// for every catalog entry absent from the detections, one alert per
// deviation note or per-detection deviation, and one per geometry issue.
func (g *Generator) Generate(detected []matching.DetectedElement, elements []catalog.Element, deviations []DeviationNote, issues []validation.Issue) []Alert {
	alerts := g.missingElements(detected, elements)

	for _, note := range deviations {
		alerts = append(alerts, g.deviation(note))
	}

	for _, d := range detected {
		if strings.TrimSpace(d.Deviation) == "" {
			continue
		}
		alert := g.deviation(DeviationNote{ElementType: d.ElementType, Detail: d.Deviation})
		alert.ElementID = d.ElementID
		alerts = append(alerts, alert)
	}

	for _, issue := range issues {
		alerts = append(alerts, geometryAlert(issue))
	}

	if len(alerts) > 0 {
		g.logger.Debug().Int("alerts", len(alerts)).Msg("alerts generated")
	}

	return alerts
}

// missingElements flags catalog entries nothing detected. IDs absorbed into
// a detection by deduplication count as detected too.
func (g *Generator) missingElements(detected []matching.DetectedElement, elements []catalog.Element) []Alert {
	seen := make(map[string]bool, len(detected))
	for _, d := range detected {
		seen[d.ElementID] = true
		for _, id := range d.MergedIDs {
			seen[id] = true
		}
	}

	var alerts []Alert
	for _, e := range elements {
		if seen[e.ElementID] {
			continue
		}

		name := strings.TrimSpace(e.Name)
		if name == "" {
			name = "sem nome"
		}

		alerts = append(alerts, Alert{
			AlertID:   uuid.NewString(),
			Type:      AlertMissingElement,
			Severity:  SeverityMedium,
			Message:   fmt.Sprintf("%s (%s) não identificado na imagem", e.ElementType, name),
			ElementID: e.ElementID,
		})
	}

	return alerts
}

func (g *Generator) deviation(note DeviationNote) Alert {
	alertType, severity := Classify(note.Detail)
	if alertType == AlertMissingElement {
		// A deviation note about an absent element is still a deviation;
		// missing-element alerts come from catalog coverage.
		alertType = AlertDeviation
	}

	return Alert{
		AlertID:  uuid.NewString(),
		Type:     alertType,
		Severity: severity,
		Message:  fmt.Sprintf("Desvio em %s: %s", note.ElementType, note.Detail),
	}
}

func geometryAlert(issue validation.Issue) Alert {
	severity := SeverityMedium
	if issue.Severity == validation.IssueSeverityHigh {
		severity = SeverityHigh
	}

	elementID := ""
	if len(issue.ElementIDs) > 0 {
		elementID = issue.ElementIDs[0]
	}

	return Alert{
		AlertID:   uuid.NewString(),
		Type:      AlertGeometry,
		Severity:  severity,
		Message:   issue.Message,
		ElementID: elementID,
	}
}

// Classify infers the type and severity of a free-text alert in Portuguese
// or English. Safety concerns never classify below high.
func Classify(text string) (AlertType, AlertSeverity) {
	lower := strings.ToLower(text)

	alertType := AlertDeviation
	switch {
	case containsAny(lower, "seguran", "safety", "risco", "epi"):
		alertType = AlertSafetyConcern
	case containsAny(lower, "qualidade", "quality", "fissura", "trinca", "crack"):
		alertType = AlertQualityIssue
	case containsAny(lower, "atras", "delay"):
		alertType = AlertDelay
	case containsAny(lower, "não identificado", "ausente", "missing", "faltando"):
		alertType = AlertMissingElement
	}

	severity := SeverityMedium
	switch {
	case containsAny(lower, "crítico", "crítica", "critical", "urgente"):
		severity = SeverityCritical
	case containsAny(lower, "alto", "alta", "high", "grave"):
		severity = SeverityHigh
	case containsAny(lower, "baixo", "baixa", "low", "menor"):
		severity = SeverityLow
	}

	if alertType == AlertSafetyConcern && severity != SeverityCritical {
		severity = SeverityHigh
	}

	return alertType, severity
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

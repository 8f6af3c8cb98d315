package matching

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/catalog"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/observability"
)

// MatcherConfig holds the keyword tables and thresholds used by the text
// matching path. Site descriptions mix Portuguese and English, so both
// vocabularies are carried for every element type.
type MatcherConfig struct {
	TypeKeywords       map[string][]string
	CompletedKeywords  []string
	InProgressKeywords []string
	NotStartedKeywords []string
	FuzzyThreshold     int
	ExactConfidence    float64
	FuzzyConfidenceCap float64
}

// DefaultMatcherConfig returns the standard construction vocabulary.
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		TypeKeywords: map[string][]string{
			"wall":       {"wall", "parede", "alvenaria", "masonry"},
			"slab":       {"slab", "laje", "floor", "piso"},
			"column":     {"column", "pilar", "coluna"},
			"beam":       {"beam", "viga"},
			"foundation": {"foundation", "fundação", "footing", "sapata", "estaca", "pile"},
			"stair":      {"stair", "escada", "staircase"},
			"roof":       {"roof", "telhado", "cobertura"},
			"door":       {"door", "porta"},
			"window":     {"window", "janela", "esquadria"},
		},
		// Portuguese entries are stems so gender and plural variants match.
		CompletedKeywords:  []string{"concluí", "concluid", "completed", "finalizad", "finished", "pronto", "pronta"},
		InProgressKeywords: []string{"em construção", "construção", "in progress", "andamento", "execu", "parcial"},
		NotStartedKeywords: []string{"não iniciad", "not started", "ausente", "missing"},
		FuzzyThreshold:     80,
		ExactConfidence:    0.85,
		FuzzyConfidenceCap: 0.90,
	}
}

// KeywordMatcher detects elements by scanning the image description for
// type keywords, falling back to fuzzy matching for noisy wording. It is a
// pure function of its inputs and never mutates the catalog.
type KeywordMatcher struct {
	cfg    MatcherConfig
	logger *observability.Logger
}

// NewKeywordMatcher creates a matcher with the given configuration. Zero
// thresholds fall back to defaults.
func NewKeywordMatcher(cfg MatcherConfig, logger *observability.Logger) *KeywordMatcher {
	defaults := DefaultMatcherConfig()
	if cfg.TypeKeywords == nil {
		cfg.TypeKeywords = defaults.TypeKeywords
	}
	if cfg.CompletedKeywords == nil {
		cfg.CompletedKeywords = defaults.CompletedKeywords
	}
	if cfg.InProgressKeywords == nil {
		cfg.InProgressKeywords = defaults.InProgressKeywords
	}
	if cfg.NotStartedKeywords == nil {
		cfg.NotStartedKeywords = defaults.NotStartedKeywords
	}
	if cfg.FuzzyThreshold <= 0 {
		cfg.FuzzyThreshold = defaults.FuzzyThreshold
	}
	if cfg.ExactConfidence <= 0 {
		cfg.ExactConfidence = defaults.ExactConfidence
	}
	if cfg.FuzzyConfidenceCap <= 0 {
		cfg.FuzzyConfidenceCap = defaults.FuzzyConfidenceCap
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &KeywordMatcher{cfg: cfg, logger: logger}
}

// Match scans the description for each catalog element. An exact keyword
// hit is worth a fixed confidence; a fuzzy hit scores proportionally to its
// partial ratio, capped below the exact level. Elements whose type has no
// vocabulary entry fall back to fuzzy matching on their own type and name.
func (m *KeywordMatcher) Match(description string, elements []catalog.Element, targetIDs []string) []DetectedElement {
	desc := strings.ToLower(description)
	if strings.TrimSpace(desc) == "" {
		return nil
	}

	targets := make(map[string]bool, len(targetIDs))
	for _, id := range targetIDs {
		targets[id] = true
	}

	status := m.statusFrom(desc)

	detected := make([]DetectedElement, 0, len(elements))
	for _, e := range elements {
		if len(targets) > 0 && !targets[e.ElementID] {
			continue
		}

		confidence, ok := m.scoreElement(desc, e)
		if !ok {
			continue
		}

		detected = append(detected, DetectedElement{
			ElementID:   e.ElementID,
			ElementType: e.ElementType,
			ElementName: e.Name,
			Status:      status,
			Confidence:  confidence,
			Source:      SourceKeyword,
			Description: fmt.Sprintf("%s identificado na descrição da imagem", e.ElementType),
		})
	}

	return detected
}

// scoreElement returns the match confidence for one element, or false when
// the description gives no signal for it.
func (m *KeywordMatcher) scoreElement(desc string, e catalog.Element) (float64, bool) {
	terms := m.termsFor(e)

	for _, term := range terms {
		if strings.Contains(desc, term) {
			return m.cfg.ExactConfidence, true
		}
	}

	best := 0
	for _, term := range terms {
		if score := PartialRatio(term, desc); score > best {
			best = score
		}
	}

	if best >= m.cfg.FuzzyThreshold {
		return math.Min(float64(best)/100.0, m.cfg.FuzzyConfidenceCap), true
	}

	return 0, false
}

// termsFor collects the search vocabulary for an element: every keyword of
// every type entry whose key appears in the element type, plus the element's
// own lowercased type and name.
func (m *KeywordMatcher) termsFor(e catalog.Element) []string {
	typeLower := strings.ToLower(e.ElementType)
	nameLower := strings.ToLower(strings.TrimSpace(e.Name))

	keys := make([]string, 0, len(m.cfg.TypeKeywords))
	for k := range m.cfg.TypeKeywords {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	terms := make([]string, 0, 8)
	for _, key := range keys {
		if strings.Contains(typeLower, key) {
			terms = append(terms, m.cfg.TypeKeywords[key]...)
		}
	}

	if typeLower != "" {
		terms = append(terms, typeLower)
	}
	if nameLower != "" {
		terms = append(terms, nameLower)
	}

	return terms
}

// statusFrom infers a single status for everything matched in this
// description. Completion wording wins over progress wording; with no
// status signal at all, a visible element is assumed under construction.
func (m *KeywordMatcher) statusFrom(desc string) ElementStatus {
	for _, kw := range m.cfg.CompletedKeywords {
		if strings.Contains(desc, kw) {
			return StatusCompleted
		}
	}
	for _, kw := range m.cfg.InProgressKeywords {
		if strings.Contains(desc, kw) {
			return StatusInProgress
		}
	}
	for _, kw := range m.cfg.NotStartedKeywords {
		if strings.Contains(desc, kw) {
			return StatusNotStarted
		}
	}
	return StatusInProgress
}

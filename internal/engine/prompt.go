package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/catalog"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/comparison"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/matching"
)

// PromptContext carries everything the prompt builder may ground the
// description generator on.
type PromptContext struct {
	ProjectID   string
	ProjectName string
	Elements    []catalog.Element
	Previous    *comparison.PreviousAnalysis
	AnalyzedAt  time.Time
}

// maxExpectedProgressHint caps the expected-progress hint so a long gap
// between photos does not push the generator into describing a finished
// building.
const maxExpectedProgressHint = 20.0

// BuildAnalysisPrompt assembles the description-generator prompt: expected
// catalog elements grouped by type, temporal context from the previous
// analysis, and anti-hallucination rules. The expected-progress hint is
// guidance for the generator only; it never feeds back into scoring.
func BuildAnalysisPrompt(pctx PromptContext) string {
	var b strings.Builder

	b.WriteString("Você é um inspetor de obras analisando uma foto de canteiro.\n")
	if pctx.ProjectName != "" {
		fmt.Fprintf(&b, "Projeto: %s\n", pctx.ProjectName)
	}

	if summary := summarizeCatalog(pctx.Elements); summary != "" {
		b.WriteString("\nElementos previstos no modelo da edificação:\n")
		b.WriteString(summary)
	}

	if pctx.Previous != nil {
		b.WriteString("\nContexto temporal:\n")
		fmt.Fprintf(&b, "- Progresso na última análise: %.1f%%\n", pctx.Previous.OverallProgress)
		fmt.Fprintf(&b, "- Fase estimada da obra: %s\n", InferPhase(pctx.Previous.OverallProgress))

		if done := listByStatus(pctx.Previous.DetectedElements, matching.StatusCompleted); done != "" {
			fmt.Fprintf(&b, "- Já concluídos: %s\n", done)
		}
		if doing := listByStatus(pctx.Previous.DetectedElements, matching.StatusInProgress); doing != "" {
			fmt.Fprintf(&b, "- Em andamento: %s\n", doing)
		}

		analyzedAt := pctx.AnalyzedAt
		if analyzedAt.IsZero() {
			analyzedAt = time.Now().UTC()
		}
		days := analyzedAt.Sub(pctx.Previous.AnalyzedAt).Hours() / 24
		if days > 0 {
			fmt.Fprintf(&b, "- Dias desde a última análise: %.0f\n", days)
			fmt.Fprintf(&b, "- Avanço adicional esperado: até %.0f%%\n", ExpectedProgressHint(days))
		}
	}

	b.WriteString("\nRegras:\n")
	b.WriteString("- Descreva apenas o que está visível na imagem.\n")
	b.WriteString("- Não invente elementos que não aparecem na foto.\n")
	b.WriteString("- Para cada elemento visível, indique o estado: concluído, em construção ou não iniciado.\n")
	b.WriteString("- Aponte desvios visíveis em relação aos elementos previstos.\n")

	return b.String()
}

// ExpectedProgressHint estimates how much additional progress a gap of the
// given length could plausibly bring, at two percent points per day, capped.
func ExpectedProgressHint(days float64) float64 {
	hint := days * 2
	if hint > maxExpectedProgressHint {
		return maxExpectedProgressHint
	}
	if hint < 0 {
		return 0
	}
	return hint
}

// InferPhase names the construction phase a progress percentage implies.
func InferPhase(progressPct float64) string {
	switch {
	case progressPct < 25:
		return "fundação"
	case progressPct < 60:
		return "estrutura"
	case progressPct < 90:
		return "acabamento"
	default:
		return "concluída"
	}
}

// summarizeCatalog groups the catalog by element type with counts, one line
// per type, alphabetical.
func summarizeCatalog(elements []catalog.Element) string {
	if len(elements) == 0 {
		return ""
	}

	counts := make(map[string]int)
	for _, e := range elements {
		counts[e.ElementType]++
	}

	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)

	var b strings.Builder
	for _, t := range types {
		fmt.Fprintf(&b, "- %dx %s\n", counts[t], t)
	}
	return b.String()
}

func listByStatus(detected []matching.DetectedElement, status matching.ElementStatus) string {
	var names []string
	for _, d := range detected {
		if d.Status != status {
			continue
		}
		name := d.ElementName
		if name == "" {
			name = d.ElementType
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

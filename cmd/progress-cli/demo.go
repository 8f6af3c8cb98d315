package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/catalog"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/comparison"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/embedding"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/engine"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/matching"
)

// newDemoCmd creates the demo subcommand: a self-contained walkthrough that
// needs no database, no embedding service, and no photos.
func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run an in-memory progress analysis walkthrough",
		Long: `Demo simulates three site visits to a small residential project, using
the deterministic mock embedder, and shows detection, progress scoring,
alerts, and temporal comparison end to end.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			return runDemo(ctx)
		},
	}
}

func runDemo(ctx context.Context) error {
	ui := NewUI(outputJSON, noColor)
	defer ui.Close()

	const projectID = "11111111-1111-1111-1111-111111111111"

	elements := []catalog.Element{
		{ElementID: "f1", ElementType: "Foundation", Name: "Sapata corrida", Level: "Fundação"},
		{ElementID: "w1", ElementType: "Wall", Name: "Parede Norte", Level: "Térreo"},
		{ElementID: "w2", ElementType: "Wall", Name: "Parede Sul", Level: "Térreo"},
		{ElementID: "c1", ElementType: "Column", Name: "Pilar P1", Level: "Térreo"},
		{ElementID: "s1", ElementType: "Slab", Name: "Laje L1", Level: "Térreo"},
		{ElementID: "r1", ElementType: "Roof", Name: "Cobertura", Level: "Cobertura"},
	}

	visits := []struct {
		label       string
		description string
		daysAgo     int
	}{
		{
			label:       "Semana 1",
			description: "Sapata corrida concluída, terreno nivelado. Pilar P1 em construção.",
			daysAgo:     14,
		},
		{
			label:       "Semana 2",
			description: "Parede Norte concluída, Parede Sul em construção. Pilar P1 concluído.",
			daysAgo:     7,
		},
		{
			label:       "Semana 3",
			description: "Paredes concluídas, Laje L1 em construção. Cobertura não iniciada.",
			daysAgo:     0,
		},
	}

	ui.Section("Progress Engine demo")
	ui.Info("Project: Residencial Aurora (%d catalog elements)", len(elements))

	embedder := embedding.NewMockClient(64)
	index := matching.NewMemoryIndex(64)
	indexer := engine.NewIndexer(index, embedder, 16, logger)

	bar := ui.ProgressBar("indexing", int64(len(elements)))
	indexed, err := indexer.IndexCatalog(ctx, projectID, elements)
	if err != nil {
		return fmt.Errorf("index catalog: %w", err)
	}
	if bar != nil {
		bar.IncrBy(len(elements))
	}
	ui.Success("Indexed %d unique elements", indexed)

	eng := engine.New(engine.Config{}, engine.Deps{
		Retriever: matching.NewRetriever(index, 10, logger),
		Embedder:  embedder,
		Logger:    logger,
	})

	now := time.Now().UTC()
	var previous *comparison.PreviousAnalysis

	for _, visit := range visits {
		analyzedAt := now.AddDate(0, 0, -visit.daysAgo)

		result, err := eng.Analyze(ctx, engine.AnalysisInput{
			ProjectID:   projectID,
			Description: visit.description,
			Elements:    elements,
			Previous:    previous,
			AnalyzedAt:  analyzedAt,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", visit.label, err)
		}

		ui.Section(visit.label)
		ui.KeyValue("Description", visit.description)
		ui.KeyValue("Overall progress", fmt.Sprintf("%.2f%%", result.Progress.OverallProgress))
		ui.KeyValue("Confidence", fmt.Sprintf("%.2f", result.ConfidenceScore))
		ui.KeyValue("Phase", engine.InferPhase(result.Progress.OverallProgress))

		if len(result.DetectedElements) > 0 {
			rows := make([][]string, 0, len(result.DetectedElements))
			for _, el := range result.DetectedElements {
				rows = append(rows, []string{
					el.ElementType, el.ElementName, string(el.Status), fmt.Sprintf("%.2f", el.Confidence),
				})
			}
			ui.Newline()
			ui.Table([]string{"Type", "Name", "Status", "Confidence"}, rows)
		}

		for _, a := range result.Alerts {
			switch a.Severity {
			case "high", "critical":
				ui.Error("[%s] %s", a.Type, a.Message)
			default:
				ui.Warning("[%s] %s", a.Type, a.Message)
			}
		}

		if result.Comparison != nil {
			ui.Newline()
			ui.Step("Change since %s: %+.2f%% over %.0f days",
				previousLabel(previous), result.Comparison.ProgressChange, result.Comparison.DaysBetween)
			if result.Comparison.Velocity != nil {
				ui.Step("Velocity: %.2f %%/day", *result.Comparison.Velocity)
			}
			for _, sc := range result.Comparison.StatusChanges {
				ui.Step("%s: %s → %s", sc.ElementID, sc.PreviousStatus, sc.CurrentStatus)
			}
		}

		previous = &comparison.PreviousAnalysis{
			AnalysisID:       result.AnalysisID,
			OverallProgress:  result.Progress.OverallProgress,
			DetectedElements: result.DetectedElements,
			AnalyzedAt:       result.AnalyzedAt,
		}
	}

	ui.Newline()
	ui.Success("Demo complete")
	return nil
}

func previousLabel(prev *comparison.PreviousAnalysis) string {
	if prev == nil {
		return "start"
	}
	return prev.AnalyzedAt.Format("2006-01-02")
}

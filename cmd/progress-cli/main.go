// Package main provides the Progress Engine CLI entrypoint.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/catalog"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/comparison"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/config"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/embedding"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/engine"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/matching"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/observability"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/storage"
)

var (
	// Global flags
	cfgFile    string
	outputJSON bool
	noColor    bool

	// Configuration and logger
	cfg    *config.Config
	logger *observability.Logger
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "progress-cli",
	Short: "Progress Engine CLI for catalog indexing, analysis, and reporting",
	Long: `Progress Engine CLI provides commands for construction progress analysis.

Use this tool to:
- Index a project's BIM element catalog for vector retrieval
- Analyze site photos against the catalog
- Compare analyses over time and inspect velocity
- Review and resolve alerts

All commands support --json for automation.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logFormat := "console"
		if outputJSON {
			logFormat = "json"
		}

		logger = observability.NewLogger(observability.LogConfig{
			Level:       cfg.Observability.LogLevel,
			Format:      logFormat,
			ServiceName: "progress-cli",
		})

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: uses env vars)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newCompareCmd())
	rootCmd.AddCommand(newAlertsCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newDemoCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newAnalyzeCmd creates the analyze subcommand.
func newAnalyzeCmd() *cobra.Command {
	var (
		project     string
		catalogPath string
		description string
		imagePath   string
		analyzedAt  string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one site photo against the element catalog",
		Long: `Analyze indexes the catalog, embeds the photo when one is given, matches
detections against the catalog, and reports progress, alerts, and the
comparison with the previous stored analysis.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			projectID, err := resolveID(project)
			if err != nil {
				return fmt.Errorf("invalid project: %w", err)
			}

			elements, err := loadCatalog(catalogPath)
			if err != nil {
				return err
			}

			db, err := openDatabase(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			if err := storage.Migrate(ctx, db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			app, err := buildApp(db)
			if err != nil {
				return err
			}

			if _, err := app.indexer.IndexCatalog(ctx, projectID.String(), elements); err != nil {
				return fmt.Errorf("index catalog: %w", err)
			}

			input := engine.AnalysisInput{
				ProjectID:   projectID.String(),
				Description: description,
				Elements:    elements,
			}
			if analyzedAt != "" {
				ts, err := time.Parse(time.RFC3339, analyzedAt)
				if err != nil {
					return fmt.Errorf("invalid --analyzed-at: %w", err)
				}
				input.AnalyzedAt = ts
			}

			if imagePath != "" {
				raw, err := os.ReadFile(imagePath)
				if err != nil {
					return fmt.Errorf("read image: %w", err)
				}
				emb, err := app.embedder.EmbedImage(ctx, raw)
				if err != nil {
					logger.Warn().Err(err).Msg("Image embedding failed, continuing with description only")
				} else {
					input.ImageEmbedding = emb
				}
			}

			result, err := app.engine.Analyze(ctx, input)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			if err := persistAnalysis(ctx, app, result); err != nil {
				logger.Warn().Err(err).Msg("Failed to persist analysis")
			}

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			printAnalysis(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "project ID or name (required)")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "path to element catalog JSON (required)")
	cmd.Flags().StringVar(&description, "description", "", "image description text")
	cmd.Flags().StringVar(&imagePath, "image", "", "path to site photo")
	cmd.Flags().StringVar(&analyzedAt, "analyzed-at", "", "analysis timestamp (RFC3339, default: now)")

	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("catalog")

	return cmd
}

// newBatchCmd creates the batch subcommand.
func newBatchCmd() *cobra.Command {
	var (
		project     string
		catalogPath string
		inputPath   string
	)

	type batchItem struct {
		Description string `json:"description"`
		ImagePath   string `json:"image_path,omitempty"`
		AnalyzedAt  string `json:"analyzed_at,omitempty"`
	}

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Analyze a set of site photos in one run",
		Long: `Batch reads an input file with one entry per photo and analyzes them
against the shared catalog, reporting per-item outcomes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()

			projectID, err := resolveID(project)
			if err != nil {
				return fmt.Errorf("invalid project: %w", err)
			}

			elements, err := loadCatalog(catalogPath)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(inputPath)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			var items []batchItem
			if err := json.Unmarshal(data, &items); err != nil {
				return fmt.Errorf("parse input: %w", err)
			}
			if len(items) == 0 {
				return fmt.Errorf("input file has no entries")
			}

			db, err := openDatabase(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			if err := storage.Migrate(ctx, db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			app, err := buildApp(db)
			if err != nil {
				return err
			}

			if _, err := app.indexer.IndexCatalog(ctx, projectID.String(), elements); err != nil {
				return fmt.Errorf("index catalog: %w", err)
			}

			inputs := make([]engine.AnalysisInput, 0, len(items))
			for i, item := range items {
				input := engine.AnalysisInput{
					ProjectID:   projectID.String(),
					Description: item.Description,
					Elements:    elements,
				}
				if item.AnalyzedAt != "" {
					ts, err := time.Parse(time.RFC3339, item.AnalyzedAt)
					if err != nil {
						return fmt.Errorf("entry %d: invalid analyzed_at: %w", i, err)
					}
					input.AnalyzedAt = ts
				}
				if item.ImagePath != "" {
					raw, err := os.ReadFile(item.ImagePath)
					if err != nil {
						return fmt.Errorf("entry %d: read image: %w", i, err)
					}
					if emb, err := app.embedder.EmbedImage(ctx, raw); err == nil {
						input.ImageEmbedding = emb
					}
				}
				inputs = append(inputs, input)
			}

			ui := NewUI(outputJSON, noColor)
			ui.Step("Analyzing %d photos with %d workers", len(inputs), cfg.Analysis.MaxConcurrent)

			results := app.batch.Process(ctx, inputs)
			ui.Close()

			failed := 0
			for _, res := range results {
				if res.Err != nil {
					failed++
					continue
				}
				if err := persistAnalysis(ctx, app, res.Result); err != nil {
					logger.Warn().Err(err).Int("index", res.Index).Msg("Failed to persist analysis")
				}
			}

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}

			ui.Success("Batch completed: %d analyzed, %d failed", len(results)-failed, failed)
			for _, res := range results {
				if res.Err != nil {
					ui.Error("entry %d: %v", res.Index, res.Err)
				} else {
					ui.Step("entry %d: progress %.2f%%, %d alerts",
						res.Index, res.Result.Progress.OverallProgress, len(res.Result.Alerts))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "project ID or name (required)")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "path to element catalog JSON (required)")
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "path to batch input JSON (required)")

	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("catalog")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

// newCompareCmd creates the compare subcommand.
func newCompareCmd() *cobra.Command {
	var (
		project string
		from    string
		to      string
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare two stored analyses of a project",
		Long: `Compare recomputes the temporal comparison between two stored analyses.
Without --from and --to the two most recent analyses are compared.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			projectID, err := resolveID(project)
			if err != nil {
				return fmt.Errorf("invalid project: %w", err)
			}

			db, err := openDatabase(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			analyses := storage.NewAnalysisRepository(db)

			var older, newer *storage.Analysis
			if from != "" && to != "" {
				fromID, err := uuid.Parse(from)
				if err != nil {
					return fmt.Errorf("invalid --from: %w", err)
				}
				toID, err := uuid.Parse(to)
				if err != nil {
					return fmt.Errorf("invalid --to: %w", err)
				}
				if older, err = analyses.GetByID(ctx, fromID); err != nil {
					return fmt.Errorf("load --from analysis: %w", err)
				}
				if newer, err = analyses.GetByID(ctx, toID); err != nil {
					return fmt.Errorf("load --to analysis: %w", err)
				}
			} else {
				latest, err := analyses.ListByProject(ctx, projectID, 2)
				if err != nil {
					return fmt.Errorf("list analyses: %w", err)
				}
				if len(latest) < 2 {
					return fmt.Errorf("project has fewer than two stored analyses")
				}
				older, newer = latest[1], latest[0]
			}

			var olderDetected, newerDetected []matching.DetectedElement
			if err := json.Unmarshal(older.DetectedElements, &olderDetected); err != nil {
				return fmt.Errorf("decode analysis %s: %w", older.ID, err)
			}
			if err := json.Unmarshal(newer.DetectedElements, &newerDetected); err != nil {
				return fmt.Errorf("decode analysis %s: %w", newer.ID, err)
			}

			comparator := comparison.NewComparator(logger)
			result := comparator.Compare(newerDetected, newer.OverallProgress, &comparison.PreviousAnalysis{
				AnalysisID:       older.ID.String(),
				OverallProgress:  older.OverallProgress,
				DetectedElements: olderDetected,
				AnalyzedAt:       older.AnalyzedAt,
			}, newer.AnalyzedAt)

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			ui := NewUI(outputJSON, noColor)
			defer ui.Close()

			ui.Section("Temporal comparison")
			ui.KeyValue("From", older.ID.String())
			ui.KeyValue("To", newer.ID.String())
			ui.KeyValue("Progress change", fmt.Sprintf("%+.2f%%", result.ProgressChange))
			ui.KeyValue("Days between", fmt.Sprintf("%.1f", result.DaysBetween))
			if result.Velocity != nil {
				ui.KeyValue("Velocity", fmt.Sprintf("%.2f %%/day", *result.Velocity))
			} else {
				ui.KeyValue("Velocity", "n/a (analyses not separated in time)")
			}
			ui.KeyValue("Elements added", strings.Join(result.ElementsAdded, ", "))
			ui.KeyValue("Elements removed", strings.Join(result.ElementsRemoved, ", "))

			if len(result.StatusChanges) > 0 {
				rows := make([][]string, 0, len(result.StatusChanges))
				for _, sc := range result.StatusChanges {
					rows = append(rows, []string{
						sc.ElementID, sc.ElementType, string(sc.PreviousStatus), string(sc.CurrentStatus),
					})
				}
				ui.Newline()
				ui.Table([]string{"Element", "Type", "Previous", "Current"}, rows)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "project ID or name (required)")
	cmd.Flags().StringVar(&from, "from", "", "older analysis ID")
	cmd.Flags().StringVar(&to, "to", "", "newer analysis ID")

	_ = cmd.MarkFlagRequired("project")

	return cmd
}

// newAlertsCmd creates the alerts subcommand.
func newAlertsCmd() *cobra.Command {
	var (
		project  string
		onlyOpen bool
		resolve  string
	)

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List or resolve a project's alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			db, err := openDatabase(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			alerts := storage.NewAlertRepository(db)

			if resolve != "" {
				alertID, err := uuid.Parse(resolve)
				if err != nil {
					return fmt.Errorf("invalid alert id: %w", err)
				}
				if err := alerts.Resolve(ctx, alertID); err != nil {
					return fmt.Errorf("resolve alert: %w", err)
				}
				fmt.Printf("✓ Alert %s resolved\n", resolve)
				return nil
			}

			projectID, err := resolveID(project)
			if err != nil {
				return fmt.Errorf("invalid project: %w", err)
			}

			records, err := alerts.ListByProject(ctx, projectID, onlyOpen)
			if err != nil {
				return fmt.Errorf("list alerts: %w", err)
			}

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}

			if len(records) == 0 {
				fmt.Println("No alerts.")
				return nil
			}

			ui := NewUI(outputJSON, noColor)
			defer ui.Close()

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				state := "open"
				if rec.Resolved {
					state = "resolved"
				}
				rows = append(rows, []string{
					rec.ID.String(), rec.AlertType, rec.Severity, state, rec.Message,
				})
			}
			ui.Table([]string{"ID", "Type", "Severity", "State", "Message"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "project ID or name")
	cmd.Flags().BoolVar(&onlyOpen, "open", false, "list only unresolved alerts")
	cmd.Flags().StringVar(&resolve, "resolve", "", "alert ID to mark resolved")

	return cmd
}

// newMigrateCmd creates the migrate subcommand.
func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			db, err := openDatabase(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			if err := storage.Migrate(ctx, db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			fmt.Printf("✓ Schema applied on %s\n", cfg.Database.Driver)
			return nil
		},
	}
}

// newVersionCmd creates the version subcommand.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.Encode(map[string]string{"version": "0.1.0"})
				return
			}
			fmt.Println("progress-cli v0.1.0")
		},
	}
}

// app bundles the wired analysis components for one CLI invocation.
type app struct {
	engine   *engine.Engine
	batch    *engine.BatchProcessor
	indexer  *engine.Indexer
	embedder embedding.Embedder
	analyses *storage.AnalysisRepository
	alerts   *storage.AlertRepository
}

// buildApp assembles the analysis pipeline against the given database.
func buildApp(db *sql.DB) (*app, error) {
	var embedder embedding.Embedder
	if cfg.Embedding.BaseURL != "" {
		client, err := embedding.NewClient(embedding.Config{
			APIKey:    cfg.Embedding.APIKey,
			Model:     cfg.Embedding.Model,
			BaseURL:   cfg.Embedding.BaseURL,
			Dimension: cfg.Embedding.Dimension,
			Timeout:   cfg.Embedding.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("create embedding client: %w", err)
		}
		embedder = client
	} else {
		logger.Warn().Msg("No embedding endpoint configured, using deterministic mock embedder")
		embedder = embedding.NewMockClient(cfg.Embedding.Dimension)
	}

	analyses := storage.NewAnalysisRepository(db)
	alerts := storage.NewAlertRepository(db)

	index := matching.NewMemoryIndex(cfg.Embedding.Dimension)
	eng := engine.New(engine.Config{
		BaseConfidence:      cfg.Analysis.BaseConfidence,
		CrossModalThreshold: cfg.Analysis.CrossModalThreshold,
		RelaxedThreshold:    cfg.Analysis.RelaxedThreshold,
	}, engine.Deps{
		Retriever: matching.NewRetriever(index, cfg.Matching.VectorTopK, logger),
		Matcher: matching.NewKeywordMatcher(matching.MatcherConfig{
			FuzzyThreshold:     cfg.Matching.FuzzyThreshold,
			ExactConfidence:    cfg.Matching.ExactConfidence,
			FuzzyConfidenceCap: cfg.Matching.FuzzyConfidenceCap,
		}, logger),
		Embedder: embedder,
		History:  storage.NewAnalysisHistory(analyses),
		Logger:   logger,
	})

	return &app{
		engine:   eng,
		batch:    engine.NewBatchProcessor(eng, cfg.Analysis.MaxConcurrent, time.Minute, logger),
		indexer:  engine.NewIndexer(index, embedder, cfg.Embedding.BatchSize, logger),
		embedder: embedder,
		analyses: analyses,
		alerts:   alerts,
	}, nil
}

// persistAnalysis stores one analysis result and its alerts.
func persistAnalysis(ctx context.Context, app *app, result *engine.AnalysisResult) error {
	projectID, err := uuid.Parse(result.ProjectID)
	if err != nil {
		return fmt.Errorf("project id is not a UUID: %w", err)
	}
	analysisID, err := uuid.Parse(result.AnalysisID)
	if err != nil {
		return fmt.Errorf("malformed analysis id: %w", err)
	}

	detected, err := json.Marshal(result.DetectedElements)
	if err != nil {
		return fmt.Errorf("encode detected elements: %w", err)
	}

	record := &storage.Analysis{
		ID:               analysisID,
		ProjectID:        projectID,
		Description:      result.Description,
		OverallProgress:  result.Progress.OverallProgress,
		ConfidenceScore:  result.ConfidenceScore,
		Degraded:         result.Degraded,
		DetectedElements: detected,
		AnalyzedAt:       result.AnalyzedAt,
	}
	if result.Comparison != nil {
		if cmp, err := json.Marshal(result.Comparison); err == nil {
			record.Comparison = cmp
		}
	}
	if err := app.analyses.Create(ctx, record); err != nil {
		return err
	}

	if len(result.Alerts) == 0 {
		return nil
	}
	records := make([]*storage.AlertRecord, 0, len(result.Alerts))
	for _, a := range result.Alerts {
		rec := &storage.AlertRecord{
			ProjectID:  projectID,
			AnalysisID: analysisID,
			AlertType:  string(a.Type),
			Severity:   string(a.Severity),
			Message:    a.Message,
			ElementID:  a.ElementID,
		}
		if id, err := uuid.Parse(a.AlertID); err == nil {
			rec.ID = id
		}
		records = append(records, rec)
	}
	return app.alerts.CreateBatch(ctx, records)
}

// printAnalysis renders one analysis result for terminal output.
func printAnalysis(result *engine.AnalysisResult) {
	ui := NewUI(false, noColor)
	defer ui.Close()

	ui.Section("Analysis " + result.AnalysisID)
	ui.KeyValue("Overall progress", fmt.Sprintf("%.2f%%", result.Progress.OverallProgress))
	ui.KeyValue("Confidence", fmt.Sprintf("%.2f", result.ConfidenceScore))
	ui.KeyValue("Cross-modal similarity", fmt.Sprintf("%.2f", result.CrossModalSimilarity))
	ui.KeyValue("Degraded", result.Degraded)
	ui.KeyValue("Processing", fmt.Sprintf("%dms", result.ProcessingMS))

	if len(result.DetectedElements) > 0 {
		rows := make([][]string, 0, len(result.DetectedElements))
		for _, el := range result.DetectedElements {
			rows = append(rows, []string{
				el.ElementID, el.ElementType, el.ElementName,
				string(el.Status), fmt.Sprintf("%.3f", el.Confidence), string(el.Source),
			})
		}
		ui.Newline()
		ui.Table([]string{"Element", "Type", "Name", "Status", "Confidence", "Source"}, rows)
	}

	if len(result.Alerts) > 0 {
		ui.Section("Alerts")
		for _, a := range result.Alerts {
			switch a.Severity {
			case "high", "critical":
				ui.Error("[%s] %s", a.Type, a.Message)
			default:
				ui.Warning("[%s] %s", a.Type, a.Message)
			}
		}
	}

	if result.Comparison != nil {
		ui.Section("Since previous analysis")
		ui.KeyValue("Progress change", fmt.Sprintf("%+.2f%%", result.Comparison.ProgressChange))
		ui.KeyValue("Days between", fmt.Sprintf("%.1f", result.Comparison.DaysBetween))
		if result.Comparison.Velocity != nil {
			ui.KeyValue("Velocity", fmt.Sprintf("%.2f %%/day", *result.Comparison.Velocity))
		}
	}
}

// loadCatalog reads an element catalog from a JSON file.
func loadCatalog(path string) ([]catalog.Element, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var elements []catalog.Element
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}
	return elements, nil
}

// resolveID parses a string as UUID or derives a deterministic UUID from a
// name for local development.
func resolveID(idOrName string) (uuid.UUID, error) {
	if idOrName == "" {
		return uuid.Nil, fmt.Errorf("empty ID or name")
	}
	if id, err := uuid.Parse(idOrName); err == nil {
		return id, nil
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(idOrName)), nil
}

// openDatabase opens a database connection based on the configuration.
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	return storage.Open(cfg.Database.Driver, cfg.DatabaseDSN())
}

// Package main provides the API router setup.
package main

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sitelens-ai/sitelens/libs/progress-engine/cmd/progress-engine-api/handlers"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/cmd/progress-engine-api/middleware"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/cache"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/comparison"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/config"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/embedding"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/engine"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/matching"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/observability"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/progress"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/storage"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/validation"
)

// NewRouter creates the main API router with all routes configured.
func NewRouter(logger *observability.Logger, cfg *config.Config, db *sql.DB) (http.Handler, error) {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(chimiddleware.Timeout(cfg.Server.WriteTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"progress-engine"}`))
	})

	r.Get("/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.PingContext(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.Write([]byte(`{"status":"ready"}`))
	})

	// Cache: redis when configured, in-process otherwise.
	var cacheClient cache.Client
	if cfg.Cache.Driver == "redis" {
		redisClient, err := cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, falling back to memory cache")
			cacheClient = cache.NewMemoryClient(10000)
		} else {
			cacheClient = redisClient
		}
	} else {
		cacheClient = cache.NewMemoryClient(10000)
	}

	// Embedder: remote client when a base URL is configured, otherwise the
	// deterministic mock so development works offline.
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
			return nil, err
		}
		embedder = client
	} else {
		logger.Warn().Msg("No embedding endpoint configured, using deterministic mock embedder")
		embedder = embedding.NewMockClient(cfg.Embedding.Dimension)
	}

	// Repositories and history.
	projectRepo := storage.NewProjectRepository(db)
	analysisRepo := storage.NewAnalysisRepository(db)
	alertRepo := storage.NewAlertRepository(db)
	history := storage.NewAnalysisHistory(analysisRepo)

	// Matching and analysis pipeline.
	vectorIndex := matching.NewMemoryIndex(cfg.Embedding.Dimension)
	retriever := matching.NewRetriever(vectorIndex, cfg.Matching.VectorTopK, logger)
	matcher := matching.NewKeywordMatcher(matching.MatcherConfig{
		FuzzyThreshold:     cfg.Matching.FuzzyThreshold,
		ExactConfidence:    cfg.Matching.ExactConfidence,
		FuzzyConfidenceCap: cfg.Matching.FuzzyConfidenceCap,
	}, logger)

	analysisEngine := engine.New(engine.Config{
		BaseConfidence:      cfg.Analysis.BaseConfidence,
		CrossModalThreshold: cfg.Analysis.CrossModalThreshold,
		RelaxedThreshold:    cfg.Analysis.RelaxedThreshold,
	}, engine.Deps{
		Retriever:  retriever,
		Matcher:    matcher,
		Geometry:   validation.NewGeometryChecker(logger),
		Alerts:     progress.NewGenerator(logger),
		Comparator: comparison.NewComparator(logger),
		Embedder:   embedder,
		History:    history,
		Logger:     logger,
	})

	batchProcessor := engine.NewBatchProcessor(analysisEngine, cfg.Analysis.MaxConcurrent, cfg.Server.WriteTimeout, logger)
	indexer := engine.NewIndexer(vectorIndex, embedder, cfg.Embedding.BatchSize, logger)

	analysisHandler := handlers.NewAnalysisHandler(logger, handlers.AnalysisDeps{
		Engine:       analysisEngine,
		Batch:        batchProcessor,
		Embedder:     embedder,
		Analyses:     analysisRepo,
		Alerts:       alertRepo,
		Cache:        cacheClient,
		CacheTTL:     cfg.Cache.TTL,
		CacheResults: cfg.Analysis.CacheResults,
	})
	catalogHandler := handlers.NewCatalogHandler(logger, projectRepo, indexer)
	alertHandler := handlers.NewAlertHandler(logger, alertRepo)
	reportHandler := handlers.NewReportHandler(logger, analysisRepo, comparison.NewComparator(logger))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/projects", func(r chi.Router) {
			r.Post("/", catalogHandler.CreateProject)
			r.Route("/{projectId}", func(r chi.Router) {
				r.Post("/catalog", catalogHandler.IngestCatalog)
				r.Get("/alerts", alertHandler.ListAlerts)
				r.Get("/analyses", reportHandler.ListAnalyses)
				r.Get("/analyses/{analysisId}", reportHandler.GetAnalysis)
				r.Get("/compare", reportHandler.Compare)
			})
		})

		r.Route("/analysis", func(r chi.Router) {
			r.Post("/analyze", analysisHandler.Analyze)
			r.Post("/batch", analysisHandler.AnalyzeBatch)
		})

		r.Post("/alerts/{alertId}/resolve", alertHandler.ResolveAlert)
	})

	return r, nil
}

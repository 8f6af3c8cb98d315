package engine

import (
	"context"
	"sync"
	"time"

	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/observability"
)

// BatchResult pairs one analysis outcome with its input position.
type BatchResult struct {
	Index  int
	Result *AnalysisResult
	Err    error
}

// BatchProcessor runs multiple analyses for a project with bounded
// concurrency. One failing item does not abort the batch.
type BatchProcessor struct {
	engine        *Engine
	maxConcurrent int
	timeout       time.Duration
	logger        *observability.Logger
}

// NewBatchProcessor creates a processor. Concurrency defaults to 3, the
// per-item timeout to 60 seconds.
func NewBatchProcessor(engine *Engine, maxConcurrent int, timeout time.Duration, logger *observability.Logger) *BatchProcessor {
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &BatchProcessor{
		engine:        engine,
		maxConcurrent: maxConcurrent,
		timeout:       timeout,
		logger:        logger,
	}
}

// Process analyzes every input and returns results in input order.
func (p *BatchProcessor) Process(ctx context.Context, inputs []AnalysisInput) []BatchResult {
	if len(inputs) == 0 {
		return nil
	}

	start := time.Now()
	results := make([]BatchResult, len(inputs))

	type job struct {
		index int
		input AnalysisInput
	}

	workChan := make(chan job)
	var wg sync.WaitGroup

	workers := p.maxConcurrent
	if workers > len(inputs) {
		workers = len(inputs)
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range workChan {
				itemCtx, cancel := context.WithTimeout(ctx, p.timeout)
				result, err := p.engine.Analyze(itemCtx, j.input)
				cancel()

				results[j.index] = BatchResult{
					Index:  j.index,
					Result: result,
					Err:    err,
				}
			}
		}()
	}

	for i, input := range inputs {
		workChan <- job{index: i, input: input}
	}
	close(workChan)

	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}

	p.logger.Info().
		Int("items", len(inputs)).
		Int("failed", failed).
		Dur("elapsed", time.Since(start)).
		Msg("batch analysis complete")

	return results
}

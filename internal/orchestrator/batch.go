package orchestrator

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sitelens/sitelens/internal/analysis"
	"github.com/sitelens/sitelens/internal/telemetry"
)

// AnalyzeBatch runs the pipeline over many requests with a fixed worker
// pool. Workers share one collector, so the aggregate request rate holds no
// matter how many workers run. A failing URL never affects its siblings;
// URLs the deadline cuts off are recorded as SKIPPED.
func (o *Orchestrator) AnalyzeBatch(ctx context.Context, reqs []analysis.AnalysisRequest) *analysis.BatchResult {
	batch := &analysis.BatchResult{
		BatchID:   uuid.NewString(),
		Results:   make(map[string]*analysis.AnalysisResult, len(reqs)),
		StartedAt: o.clock.Now(),
	}

	// The deadline gates scheduling only. A pipeline that already started
	// runs on the caller's context and is allowed to finish.
	sched := ctx
	if o.opts.Deadline > 0 {
		var cancel context.CancelFunc
		sched, cancel = context.WithTimeout(ctx, o.opts.Deadline)
		defer cancel()
	}

	o.logger.Info("batch started",
		zap.String("batch_id", batch.BatchID),
		zap.Int("urls", len(reqs)),
		zap.Int("workers", o.opts.Workers),
	)

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		jobs = make(chan analysis.AnalysisRequest)
	)
	record := func(url string, res *analysis.AnalysisResult) {
		mu.Lock()
		defer mu.Unlock()
		batch.Results[url] = res
	}

	for range o.opts.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for req := range jobs {
				telemetry.IncActiveWorkers()
				record(req.URL, o.analyzeOne(sched, ctx, req))
				telemetry.DecActiveWorkers()
			}
		}()
	}

	for _, req := range reqs {
		select {
		case jobs <- req:
		case <-sched.Done():
			record(req.URL, o.skippedResult(req.URL, sched.Err()))
		}
	}
	close(jobs)
	wg.Wait()

	batch.CompletedAt = o.clock.Now()
	o.logger.Info("batch finished",
		zap.String("batch_id", batch.BatchID),
		zap.Int("completed", batch.CountByStatus(analysis.StatusCompleted)),
		zap.Int("partial", batch.CountByStatus(analysis.StatusPartial)),
		zap.Int("failed", batch.CountByStatus(analysis.StatusFailed)),
		zap.Int("skipped", batch.CountByStatus(analysis.StatusSkipped)),
	)
	return batch
}

// analyzeOne isolates one URL: any error, including a bad analyzer list,
// becomes that URL's terminal result instead of aborting the batch. sched
// expires with the batch deadline and gates starting the pipeline; the
// pipeline itself runs on run, which does not.
func (o *Orchestrator) analyzeOne(sched, run context.Context, req analysis.AnalysisRequest) *analysis.AnalysisResult {
	if err := sched.Err(); err != nil {
		return o.skippedResult(req.URL, err)
	}
	result, err := o.AnalyzeURL(run, req)
	if err != nil {
		return o.errorResult(req.URL, err)
	}
	return result
}

func sortResults(results []analysis.AnalyzerResult) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].Analyzer < results[j].Analyzer
	})
}

func sortedKeys(m map[string]error) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

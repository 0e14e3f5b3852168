// Concurrent batch executor.
//
// Information Hiding:
// - Worker pool size and wall-clock budget
// - Panic and error isolation per item
// - Input-order reassembly of results that complete in any order

package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/richinex/sleuth/metrics"
	"golang.org/x/sync/errgroup"
)

// Batch defaults.
const (
	DefaultBatchWorkers = 5
	DefaultBatchBudget  = 900 * time.Second
)

// Task is one unit of batched work.
type Task func(ctx context.Context) (Result, error)

// Fallbacks produce the text for items that did not complete normally.
type Fallbacks struct {
	// OnError renders a failed or panicking item.
	OnError func(i int, err error) string
	// OnTimeout renders an item that was not finished within the budget.
	OnTimeout func(i int) string
}

// BatchExecutor runs tasks on a bounded pool under a wall-clock budget.
// The budget stops the executor from waiting; it does not cancel work in flight.
type BatchExecutor struct {
	Workers int
	Budget  time.Duration
	Logger  *slog.Logger
}

// NewBatchExecutor returns an executor with default settings.
func NewBatchExecutor() *BatchExecutor {
	return &BatchExecutor{Workers: DefaultBatchWorkers, Budget: DefaultBatchBudget}
}

type indexedResult struct {
	index  int
	result Result
}

// Run executes tasks and returns one result per task in input order.
func (b *BatchExecutor) Run(ctx context.Context, tasks []Task, fb Fallbacks) []Result {
	results := make([]Result, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	workers := b.Workers
	if workers <= 0 {
		workers = DefaultBatchWorkers
	}
	budget := b.Budget
	if budget <= 0 {
		budget = DefaultBatchBudget
	}
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Buffered so late finishers never block after Run has returned.
	done := make(chan indexedResult, len(tasks))
	var expired atomic.Bool

	var g errgroup.Group
	g.SetLimit(workers)
	go func() {
		for i, task := range tasks {
			if expired.Load() {
				return
			}
			g.Go(func() error {
				if expired.Load() {
					return nil
				}
				done <- indexedResult{index: i, result: b.runOne(ctx, i, task, fb, logger)}
				return nil
			})
		}
	}()

	timer := time.NewTimer(budget)
	defer timer.Stop()

	completed := make([]bool, len(tasks))
	remaining := len(tasks)
	for remaining > 0 {
		select {
		case r := <-done:
			results[r.index] = r.result
			completed[r.index] = true
			remaining--
		case <-timer.C:
			expired.Store(true)
			logger.Warn("batch budget exceeded", "budget", budget, "unfinished", remaining)
			b.fillTimeouts(results, completed, done, fb)
			return results
		case <-ctx.Done():
			expired.Store(true)
			b.fillTimeouts(results, completed, done, fb)
			return results
		}
	}
	return results
}

// fillTimeouts takes results that already arrived and renders the rest as timeouts.
func (b *BatchExecutor) fillTimeouts(results []Result, completed []bool, done <-chan indexedResult, fb Fallbacks) {
	for {
		select {
		case r := <-done:
			results[r.index] = r.result
			completed[r.index] = true
			continue
		default:
		}
		break
	}
	for i := range results {
		if completed[i] {
			continue
		}
		metrics.BatchItems.WithLabelValues("timeout").Inc()
		results[i] = Result{Text: fb.timeout(i)}
	}
}

func (b *BatchExecutor) runOne(ctx context.Context, i int, task Task, fb Fallbacks, logger *slog.Logger) (result Result) {
	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("panic: %v", p)
			logger.Error("batch item panicked", "index", i, "error", err)
			metrics.BatchItems.WithLabelValues("error").Inc()
			result = Result{Text: fb.error(i, err)}
		}
	}()

	result, err := task(ctx)
	if err != nil {
		logger.Warn("batch item failed", "index", i, "error", err)
		metrics.BatchItems.WithLabelValues("error").Inc()
		return Result{Text: fb.error(i, err)}
	}
	metrics.BatchItems.WithLabelValues("ok").Inc()
	return result
}

func (fb Fallbacks) error(i int, err error) string {
	if fb.OnError == nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return fb.OnError(i, err)
}

func (fb Fallbacks) timeout(i int) string {
	if fb.OnTimeout == nil {
		return "Error retrieval"
	}
	return fb.OnTimeout(i)
}

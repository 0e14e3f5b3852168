// Command execution for CLI commands.
//
// Information Hiding:
// - Question file parsing
// - Output directory naming
// - Benchmark worker pool and report assembly
// - Output formatting

package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/richinex/sleuth/agent"
	"github.com/richinex/sleuth/config"
	"github.com/richinex/sleuth/model"
	"github.com/richinex/sleuth/storage"
	"golang.org/x/sync/errgroup"
)

// DefaultBenchWorkers is the number of questions solved concurrently.
const DefaultBenchWorkers = 5

// maxQuestionLine bounds one JSONL line.
const maxQuestionLine = 16 << 20

// BenchOptions holds benchmark execution options.
type BenchOptions struct {
	DataPath  string
	OutputDir string
	Note      string
	Limit     int // 0 runs every question
	Workers   int
}

// DefaultBenchOptions returns default benchmark options.
func DefaultBenchOptions() BenchOptions {
	return BenchOptions{
		OutputDir: "results",
		Workers:   DefaultBenchWorkers,
	}
}

// BenchSummary counts benchmark outcomes.
type BenchSummary struct {
	Dir       string
	Total     int
	Succeeded int
	Failed    int
}

// LoadQuestions reads a JSONL question file.
func LoadQuestions(path string) ([]model.Question, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open questions: %w", err)
	}
	defer f.Close()
	return ReadQuestions(f)
}

// ReadQuestions parses one question per line. Blank lines are skipped.
func ReadQuestions(r io.Reader) ([]model.Question, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxQuestionLine)

	var questions []model.Question
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var q model.Question
		if err := json.Unmarshal([]byte(text), &q); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		questions = append(questions, q)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read questions: %w", err)
	}
	return questions, nil
}

var modelNameReplacer = strings.NewReplacer("/", "_", "\\", "_", ":", "_")

// OutputDirName returns <base>/<model>_<thinking|nothinking>[_<note>].
func OutputDirName(base, modelName string, thinking bool, note string) string {
	mode := "nothinking"
	if thinking {
		mode = "thinking"
	}
	name := modelNameReplacer.Replace(modelName) + "_" + mode
	if note != "" {
		name += "_" + note
	}
	return filepath.Join(base, name)
}

// RunBenchmark solves questions on a worker pool and writes the sorted report.
// A failed question is logged and left without an artifact so a rerun retries it.
func RunBenchmark(ctx context.Context, runner *agent.Runner, questions []model.Question, store *storage.RunStore, workers int, logger *slog.Logger) (BenchSummary, error) {
	if workers < 1 {
		workers = DefaultBenchWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}

	summary := BenchSummary{Dir: store.Dir(), Total: len(questions)}

	type outcome struct {
		id   string
		data json.RawMessage
	}
	var (
		mu       sync.Mutex
		outcomes []outcome
		done     int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, q := range questions {
		g.Go(func() error {
			data, err := runner.RunIn(gctx, q, store)

			mu.Lock()
			defer mu.Unlock()
			done++
			if err != nil {
				summary.Failed++
				logger.Error("question failed", "question_id", q.ID, "error", err)
				fmt.Printf("[%d/%d] %s failed\n", done, summary.Total, q.ID)
				return nil
			}
			summary.Succeeded++
			outcomes = append(outcomes, outcome{id: q.ID, data: data})
			fmt.Printf("[%d/%d] %s done\n", done, summary.Total, q.ID)
			return nil
		})
	}
	_ = g.Wait()

	slices.SortStableFunc(outcomes, func(a, b outcome) int {
		return model.CompareIDs(a.id, b.id)
	})
	records := make([]json.RawMessage, len(outcomes))
	for i, o := range outcomes {
		records[i] = o.data
	}
	if err := store.WriteReport(records); err != nil {
		return summary, err
	}
	return summary, ctx.Err()
}

// Bench runs the benchmark described by opts.
func Bench(ctx context.Context, settings config.Settings, opts BenchOptions, logger *slog.Logger) error {
	questions, err := LoadQuestions(opts.DataPath)
	if err != nil {
		return err
	}
	if opts.Limit > 0 && opts.Limit < len(questions) {
		questions = questions[:opts.Limit]
	}

	stack, err := BuildStack(settings, logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	dir := OutputDirName(opts.OutputDir, stack.ModelName, settings.Agent.EnableThinking, opts.Note)
	store, err := storage.NewRunStore(dir)
	if err != nil {
		return err
	}

	fmt.Printf("Running %d questions with %s (%d workers)...\n\n", len(questions), stack.ModelName, opts.Workers)

	runner := agent.NewRunner(stack.Agent, stack.ModelName, logger)
	summary, err := RunBenchmark(ctx, runner, questions, store, opts.Workers, logger)
	printSummary(summary)
	return err
}

// Ask solves a single question and prints the prediction.
func Ask(ctx context.Context, settings config.Settings, question, id, outputDir string, logger *slog.Logger) error {
	if id == "" {
		id = uuid.New().String()
	}

	stack, err := BuildStack(settings, logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	store, err := storage.NewRunStore(outputDir)
	if err != nil {
		return err
	}

	runner := agent.NewRunner(stack.Agent, stack.ModelName, logger)
	data, err := runner.RunIn(ctx, model.Question{ID: id, Text: question}, store)
	if err != nil {
		return err
	}

	var record model.RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return fmt.Errorf("failed to decode artifact: %w", err)
	}

	fmt.Printf("%s\n\n", record.Prediction)
	fmt.Printf("Steps: %d (%s)\n", record.StepsTaken, record.TerminationReason)
	fmt.Printf("Tokens: %d in, %d out\n", record.TokenStats.TotalInputTokens, record.TokenStats.TotalOutputTokens)
	fmt.Printf("Artifact: %s\n", store.Path(id))
	return nil
}

func printSummary(s BenchSummary) {
	fmt.Println()
	fmt.Printf("Succeeded: %d/%d\n", s.Succeeded, s.Total)
	if s.Failed > 0 {
		fmt.Printf("Failed: %d (rerun to retry)\n", s.Failed)
	}
	fmt.Printf("Report: %s\n", filepath.Join(s.Dir, storage.ReportFile))
}

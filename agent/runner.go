// Idempotent question runner.
//
// Information Hiding:
// - Artifact location and encoding (via storage.RunStore)
// - Run metadata added around a bare solve

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/richinex/sleuth/model"
	"github.com/richinex/sleuth/storage"
)

// Solver answers one question.
type Solver interface {
	Solve(ctx context.Context, question string) (model.RunRecord, error)
}

// Runner solves questions once and persists each outcome as an artifact.
type Runner struct {
	solver    Solver
	modelName string
	logger    *slog.Logger
}

// NewRunner creates a runner. modelName is recorded in every artifact.
func NewRunner(solver Solver, modelName string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{solver: solver, modelName: modelName, logger: logger}
}

// Run returns the artifact for q in outputDir. An existing artifact is
// returned byte-for-byte without solving. A failed solve writes nothing.
func (r *Runner) Run(ctx context.Context, q model.Question, outputDir string) (json.RawMessage, error) {
	store, err := storage.NewRunStore(outputDir)
	if err != nil {
		return nil, err
	}
	return r.RunIn(ctx, q, store)
}

// RunIn is Run against an open store.
func (r *Runner) RunIn(ctx context.Context, q model.Question, store *storage.RunStore) (json.RawMessage, error) {
	logger := r.logger.With("question_id", q.ID)

	stored, err := store.Load(q.ID)
	if err == nil {
		logger.Debug("artifact exists, skipping")
		return stored, nil
	}
	if !errors.Is(err, storage.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load artifact for %s: %w", q.ID, err)
	}

	start := time.Now()
	record, err := r.solver.Solve(ctx, q.Text)
	if err != nil {
		logger.Error("solve failed", "error", err)
		return nil, fmt.Errorf("question %s: %w", q.ID, err)
	}

	record.Idx = q.ID
	record.QuestionItem = q.Item()
	record.TotalTimeSeconds = time.Since(start).Seconds()
	record.AgentType = AgentType
	record.ModelName = r.modelName

	data, err := store.Save(q.ID, record)
	if err != nil {
		return nil, fmt.Errorf("failed to save artifact for %s: %w", q.ID, err)
	}
	logger.Info("question solved",
		"termination_reason", string(record.TerminationReason),
		"steps", record.StepsTaken,
		"seconds", record.TotalTimeSeconds)
	return data, nil
}

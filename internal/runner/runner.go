// Package runner drives a generation run: pending batches flow through
// assemble → generate → validate → dedup → persist in bounded parallel
// chunks, with the manifest checkpointed after every completed batch.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lexlabs/qgen/internal/artifact"
	"github.com/lexlabs/qgen/internal/config"
	"github.com/lexlabs/qgen/internal/dedup"
	"github.com/lexlabs/qgen/internal/engine"
	"github.com/lexlabs/qgen/internal/executor"
	"github.com/lexlabs/qgen/internal/git"
	"github.com/lexlabs/qgen/internal/manifest"
	"github.com/lexlabs/qgen/internal/planner"
	"github.com/lexlabs/qgen/internal/prompt"
	"github.com/lexlabs/qgen/internal/validate"
)

// SummaryFileName is the per-language aggregate written after each run.
const SummaryFileName = "run-summary.json"

// Generator produces the questions for one batch. The production
// implementation is the executor; tests substitute deterministic fakes.
type Generator interface {
	Generate(ctx context.Context, prompt, schemaRef, batchID string) (*executor.Payload, error)
}

// Runner wires the per-batch pipeline to the chunked dispatcher. All
// fields except Display and Logger must be set.
type Runner struct {
	Assembler *prompt.Assembler
	Generator Generator
	Validator *validate.Validator
	Manifest  *manifest.Manifest
	Store     *artifact.Store
	Hashes    *dedup.Set
	Display   *engine.Display
	Logger    *slog.Logger

	Language    string
	EngineName  string
	SchemaRef   string
	Parallelism int

	// CommitRepo enables the post-run auto-commit of the output
	// directory when non-empty. It is the repository root path.
	CommitRepo string
}

// Summary aggregates one run's outcomes.
type Summary struct {
	Language   string    `json:"language"`
	Planned    int       `json:"planned"`
	Skipped    int       `json:"skipped"`
	Executed   int       `json:"executed"`
	Validated  int       `json:"validated"`
	Warnings   int       `json:"warnings"`
	Failed     int       `json:"failed"`
	Questions  int       `json:"questions"`
	Tokens     int       `json:"tokens"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// batchResult is one batch's contribution to the run summary.
type batchResult struct {
	status    manifest.Status
	questions int
	tokens    int
}

// Run executes every pending batch and returns the aggregate summary.
//
// Batch failures never abort the run; they are folded into the manifest
// and the summary. The returned error is non-nil only when the run was
// interrupted through the context, in which case the summary covers the
// chunks that settled before the interruption.
func (r *Runner) Run(ctx context.Context, planned []planner.BatchSpec) (*Summary, error) {
	log := r.logger()
	if r.Display == nil {
		r.Display = engine.NewDisplay(io.Discard)
	}

	sum := &Summary{
		Language:  r.Language,
		Planned:   len(planned),
		StartedAt: time.Now().UTC(),
	}

	// Dedup history must be rebuilt before the first dispatch or
	// cross-run duplicates go undetected.
	if n := r.Manifest.RebuildHashes(r.Hashes, log); n > 0 {
		log.Info("recovered dedup history", "questions", n, "hashes", r.Hashes.Len())
	}

	pending := r.Manifest.Pending(planned)
	sum.Skipped = len(planned) - len(pending)
	if sum.Skipped > 0 {
		log.Info("resuming run", "skipped", sum.Skipped, "pending", len(pending))
	}

	par := r.parallelism()
	r.Display.ShowRunHeader(r.Language, r.EngineName, len(pending), par)

	var runErr error
	if par <= 1 {
		runErr = r.runSequential(ctx, pending, sum)
	} else {
		runErr = r.runChunked(ctx, pending, par, sum)
	}

	sum.FinishedAt = time.Now().UTC()
	r.Display.ShowRunSummary(sum.Validated, sum.Warnings, sum.Failed)
	log.Info("run finished",
		"validated", sum.Validated,
		"warnings", sum.Warnings,
		"failed", sum.Failed,
		"skipped", sum.Skipped,
		"tokens", sum.Tokens)

	r.writeSummary(sum, log)
	r.commit(sum, log)
	return sum, runErr
}

func (r *Runner) runSequential(ctx context.Context, pending []planner.BatchSpec, sum *Summary) error {
	for i, b := range pending {
		if err := ctx.Err(); err != nil {
			r.logger().Warn("run interrupted", "completed", i, "pending", len(pending)-i)
			return err
		}
		sum.fold(r.runBatch(ctx, b))
	}
	return nil
}

func (r *Runner) runChunked(ctx context.Context, pending []planner.BatchSpec, size int, sum *Summary) error {
	chunks := chunkBatches(pending, size)

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			r.logger().Warn("run interrupted",
				"completed_chunks", i,
				"total_chunks", len(chunks))
			return err
		}
		r.Display.ShowChunkHeader(i+1, len(chunks), len(chunk))

		// All batches in a chunk run concurrently; the next chunk
		// starts only after every one of them settles.
		results := make([]batchResult, len(chunk))
		var wg sync.WaitGroup
		for j, b := range chunk {
			wg.Add(1)
			go func(j int, batch planner.BatchSpec) {
				defer wg.Done()
				results[j] = r.runBatch(ctx, batch)
			}(j, b)
		}
		wg.Wait()

		for _, res := range results {
			sum.fold(res)
		}
	}
	return nil
}

// runBatch executes the full pipeline for one batch. Failures are
// recorded, never raised: a bad batch must not take its siblings down.
func (r *Runner) runBatch(ctx context.Context, batch planner.BatchSpec) batchResult {
	log := r.logger().With("batchId", batch.BatchID)
	start := time.Now()
	r.Display.BatchStarted(batch.BatchID)

	fail := func(err error) batchResult {
		if merr := r.Manifest.MarkFailed(batch.BatchID, err.Error()); merr != nil {
			log.Error("failed to record batch failure", "error", merr)
		}
		r.checkpoint(log)
		r.Display.BatchDone(batch.BatchID, engine.BatchFail, err.Error(), time.Since(start), 0)
		return batchResult{status: manifest.StatusFailed}
	}

	log.Debug("assembling prompt", "step", 1)
	promptText, err := r.Assembler.Assemble(batch)
	if err != nil {
		log.Error("prompt assembly failed", "error", err)
		return fail(err)
	}

	log.Debug("generating", "step", 2, "engine", r.EngineName)
	payload, err := r.Generator.Generate(ctx, promptText, r.SchemaRef, batch.BatchID)
	if err != nil {
		// The executor already logged the diagnostic.
		return fail(err)
	}

	log.Debug("validating", "step", 3, "questions", len(payload.Questions))
	res := r.Validator.ValidateBatch(payload.Questions, validate.Expected{
		Type:  batch.Type,
		Level: batch.Level,
	}, r.Hashes)

	path, err := r.Store.Write(artifact.New(batch, payload.Questions, res))
	if err != nil {
		log.Error("artifact write failed", "error", err)
		return fail(err)
	}
	log.Debug("artifact written", "step", 4, "path", path)

	// Hash contributions merge only after this batch's own validation
	// and persistence; later batches then see them immediately.
	r.Hashes.AddAll(res.Hashes)

	if err := r.Manifest.MarkGenerated(batch.BatchID, path, len(payload.Questions)); err != nil {
		log.Error("manifest update failed", "error", err)
		r.checkpoint(log)
		return batchResult{status: manifest.StatusFailed}
	}
	status := manifest.StatusGenerated
	if res.Valid {
		if err := r.Manifest.MarkValidated(batch.BatchID); err != nil {
			log.Error("manifest update failed", "error", err)
		} else {
			status = manifest.StatusValidated
		}
	}
	log.Debug("manifest checkpoint", "step", 5, "status", status)
	r.checkpoint(log)

	dur := time.Since(start)
	log.Info("batch complete",
		"status", status,
		"questions", len(payload.Questions),
		"errors", len(res.Errors),
		"duplicates", len(res.HashConflicts),
		"tokens", payload.Tokens,
		"duration", dur.Round(time.Millisecond))

	if status == manifest.StatusValidated {
		detail := fmt.Sprintf("%d questions", len(payload.Questions))
		r.Display.BatchDone(batch.BatchID, engine.BatchOK, detail, dur, payload.Tokens)
	} else {
		r.Display.BatchDone(batch.BatchID, engine.BatchWarn, warnDetail(res), dur, payload.Tokens)
	}

	return batchResult{
		status:    status,
		questions: len(payload.Questions),
		tokens:    payload.Tokens,
	}
}

func (r *Runner) checkpoint(log *slog.Logger) {
	if err := r.Manifest.Save(); err != nil {
		log.Error("manifest checkpoint failed", "error", err)
	}
}

// writeSummary persists the run aggregate next to the manifest.
func (r *Runner) writeSummary(sum *Summary, log *slog.Logger) {
	dir := r.Store.LanguageDir(r.Language)
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Error("failed to create summary directory", "error", err)
		return
	}

	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		log.Error("failed to marshal run summary", "error", err)
		return
	}
	path := filepath.Join(dir, SummaryFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Error("failed to write run summary", "error", err)
		return
	}
	log.Debug("run summary written", "path", path)
}

// commit auto-commits the output directory when enabled.
func (r *Runner) commit(sum *Summary, log *slog.Logger) {
	if r.CommitRepo == "" {
		return
	}

	line := fmt.Sprintf("%s: %d validated, %d warnings, %d failed",
		r.Language, sum.Validated, sum.Warnings, sum.Failed)
	result, err := git.AutoCommit(r.CommitRepo, r.Store.Root, line)
	switch {
	case errors.Is(err, git.ErrNoChanges):
		log.Info("auto-commit skipped: output unchanged")
	case err != nil:
		log.Warn("auto-commit failed", "error", err)
	default:
		hash := result.Hash
		if len(hash) > 8 {
			hash = hash[:8]
		}
		log.Info("committed output", "hash", hash, "message", result.Message)
	}
}

func (r *Runner) parallelism() int {
	p := r.Parallelism
	if p < 1 {
		p = 1
	}
	if p > config.MaxParallelism {
		p = config.MaxParallelism
	}
	return p
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (s *Summary) fold(res batchResult) {
	s.Executed++
	s.Questions += res.questions
	s.Tokens += res.tokens
	switch res.status {
	case manifest.StatusValidated:
		s.Validated++
	case manifest.StatusGenerated:
		s.Warnings++
	default:
		s.Failed++
	}
}

func warnDetail(res *validate.Result) string {
	var parts []string
	if n := len(res.Errors); n > 0 {
		parts = append(parts, fmt.Sprintf("%d validation errors", n))
	}
	if n := len(res.HashConflicts); n > 0 {
		parts = append(parts, fmt.Sprintf("%d duplicates", n))
	}
	return strings.Join(parts, ", ")
}

// chunkBatches splits pending work into dispatch groups of the
// parallelism bound.
func chunkBatches(batches []planner.BatchSpec, size int) [][]planner.BatchSpec {
	var chunks [][]planner.BatchSpec
	for start := 0; start < len(batches); start += size {
		end := start + size
		if end > len(batches) {
			end = len(batches)
		}
		chunks = append(chunks, batches[start:end])
	}
	return chunks
}

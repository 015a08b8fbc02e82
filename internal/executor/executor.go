// Package executor turns an assembled prompt into parsed questions by
// driving an external generation engine. Failures at this boundary
// never escape as panics; they come back as a nil payload plus an
// error bounded in size for the manifest.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/xeipuuv/gojsonschema"

	"github.com/lexlabs/qgen/internal/engine"
	"github.com/lexlabs/qgen/internal/question"
	"github.com/lexlabs/qgen/internal/retry"
)

// maxErrorLen bounds error strings destined for the manifest and logs.
const maxErrorLen = 500

// Payload is the parsed output of one generation call.
type Payload struct {
	Questions []question.Question `json:"questions"`
	Tokens    int                 `json:"-"` // usage reported by the engine, informational
}

// Generator produces one batch of questions from an assembled prompt.
// The production implementation shells out to an engine CLI; tests
// substitute fakes.
type Generator interface {
	Generate(ctx context.Context, prompt, schemaRef, batchID string) (*Payload, error)
}

// Executor is the production Generator backed by a registered engine.
type Executor struct {
	Engine engine.Engine
	Logger *slog.Logger
	Retry  retry.Config

	mu      sync.Mutex
	schemas map[string]*gojsonschema.Schema
}

// New creates an executor with default retry behavior.
func New(eng engine.Engine, logger *slog.Logger) *Executor {
	return &Executor{
		Engine:  eng,
		Logger:  logger,
		Retry:   retry.DefaultConfig(),
		schemas: make(map[string]*gojsonschema.Schema),
	}
}

// Generate runs one batch prompt through the engine and parses the
// result. The prompt is staged in a batch-scoped temp file that is
// removed on every exit path. schemaRef may be empty to skip the
// structural check.
func (e *Executor) Generate(ctx context.Context, prompt, schemaRef, batchID string) (payload *Payload, err error) {
	// Panics below this point become a failed batch, not a dead run.
	defer func() {
		if r := recover(); r != nil {
			payload = nil
			err = e.fail(batchID, "panic", fmt.Errorf("generation panicked: %v", r))
		}
	}()

	promptPath, err := e.stagePrompt(prompt, batchID)
	if err != nil {
		return nil, e.fail(batchID, "stage", err)
	}
	defer os.Remove(promptPath)

	retryCfg := e.Retry
	retryCfg.Logger = e.logger().With("batchId", batchID)

	var engResult engine.Result
	res := retry.Execute(ctx, retryCfg, func() retry.Result {
		engResult = e.Engine.Generate(ctx, promptPath)
		if engResult.Error != nil {
			return retry.Result{Success: false, Error: engResult.Error}
		}
		return retry.Result{Success: true, Output: engResult.Output}
	})
	if !res.Success {
		return nil, e.fail(batchID, "engine", res.Error)
	}

	body, envTokens, err := unwrapPayload(engResult.Output)
	if err != nil {
		return nil, e.fail(batchID, "parse", err)
	}

	if schemaRef != "" {
		if err := e.checkSchema(schemaRef, body); err != nil {
			return nil, e.fail(batchID, "schema", err)
		}
	}

	questions, err := decodeQuestions(body)
	if err != nil {
		return nil, e.fail(batchID, "decode", err)
	}

	p := &Payload{
		Questions: questions,
		Tokens:    engResult.Tokens + envTokens,
	}
	e.logger().Info("generation complete",
		"batchId", batchID,
		"questions", len(p.Questions),
		"tokens", p.Tokens,
		"duration", engResult.Duration)
	return p, nil
}

// stagePrompt writes the prompt to a uniquely named temp file so
// concurrent batches never share an artifact.
func (e *Executor) stagePrompt(prompt, batchID string) (string, error) {
	f, err := os.CreateTemp("", "qgen-prompt-"+batchID+"-*.md")
	if err != nil {
		return "", fmt.Errorf("failed to create prompt file: %w", err)
	}
	if _, err := f.WriteString(prompt); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write prompt file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to close prompt file: %w", err)
	}
	return f.Name(), nil
}

// checkSchema validates the payload body against the question schema
// before decoding. Schemas are compiled once and cached per ref.
func (e *Executor) checkSchema(schemaRef string, body []byte) error {
	schema, err := e.schemaFor(schemaRef)
	if err != nil {
		return err
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("schema check failed: %w", err)
	}
	if !result.Valid() {
		descs := result.Errors()
		msgs := make([]string, 0, 4)
		for i, d := range descs {
			if i == 3 {
				msgs = append(msgs, fmt.Sprintf("and %d more", len(descs)-3))
				break
			}
			msgs = append(msgs, d.String())
		}
		return fmt.Errorf("output violates question schema: %s", strings.Join(msgs, "; "))
	}
	return nil
}

func (e *Executor) schemaFor(ref string) (*gojsonschema.Schema, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.schemas[ref]; ok {
		return s, nil
	}

	abs, err := filepath.Abs(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve schema path: %w", err)
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewReferenceLoader("file://" + abs))
	if err != nil {
		return nil, fmt.Errorf("failed to load question schema %s: %w", ref, err)
	}
	if e.schemas == nil {
		e.schemas = make(map[string]*gojsonschema.Schema)
	}
	e.schemas[ref] = s
	return s, nil
}

// fail logs the batch diagnostic and returns the bounded error the
// manifest will record.
func (e *Executor) fail(batchID, stage string, err error) error {
	msg := truncateError(err)
	e.logger().Error("generation failed",
		"batchId", batchID,
		"stage", stage,
		"error", msg)
	return errors.New(msg)
}

func (e *Executor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func truncateError(err error) string {
	s := err.Error()
	if len(s) <= maxErrorLen {
		return s
	}
	// Keep the cut on a rune boundary; engine errors carry multi-byte
	// text and the result lands in the manifest.
	cut := maxErrorLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// envelopeUsage mirrors the usage block of a result envelope.
type envelopeUsage struct {
	InputTokens              int `json:"input_tokens"`
	CachedInputTokens        int `json:"cached_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	OutputTokens             int `json:"output_tokens"`
}

func (u envelopeUsage) total() int {
	return u.InputTokens + u.CachedInputTokens + u.CacheReadInputTokens +
		u.CacheCreationInputTokens + u.OutputTokens
}

// unwrapPayload applies the two-level envelope tolerance: the engine's
// output is either the payload itself, or a result envelope whose
// `result` string embeds the payload. Either level may be wrapped in
// markdown fences.
func unwrapPayload(output string) ([]byte, int, error) {
	raw := []byte(stripFences(strings.TrimSpace(output)))
	if len(raw) == 0 {
		return nil, 0, errors.New("generation produced no output")
	}
	if raw[0] == '[' {
		// A bare question array has no envelope to unwrap.
		return raw, 0, nil
	}

	var env struct {
		IsError bool          `json:"is_error"`
		Result  string        `json:"result"`
		Usage   envelopeUsage `json:"usage"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, 0, fmt.Errorf("malformed generation output: %w", err)
	}
	tokens := env.Usage.total()

	if env.IsError {
		return nil, tokens, fmt.Errorf("engine reported error: %s", strings.TrimSpace(env.Result))
	}

	if env.Result != "" {
		nested := []byte(stripFences(strings.TrimSpace(env.Result)))
		if json.Valid(nested) {
			return nested, tokens, nil
		}
		// Nested parse failed; treat the envelope itself as the payload.
	}
	return raw, tokens, nil
}

// stripFences removes a single surrounding markdown code fence.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	trimmed := strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(trimmed, '\n'); idx != -1 {
		// Drop the info string ("json", "JSON", ...) on the fence line.
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// decodeQuestions accepts both the {"questions": [...]} payload shape
// and a bare question array.
func decodeQuestions(body []byte) ([]question.Question, error) {
	var wrapped struct {
		Questions []question.Question `json:"questions"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil {
		return wrapped.Questions, nil
	}

	var bare []question.Question
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare, nil
	}

	return nil, errors.New("payload is neither a questions object nor a question array")
}

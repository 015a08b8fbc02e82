package executor

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
	"testing"
	"time"
	"unicode/utf8"

	"github.com/lexlabs/qgen/internal/engine"
	"github.com/lexlabs/qgen/internal/retry"
)

// fakeEngine replays scripted results and records how it was called.
type fakeEngine struct {
	results     []engine.Result
	calls       int
	promptSeen  string
	promptFiles []string
	panicMsg    string
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Generate(ctx context.Context, promptFile string) engine.Result {
	f.calls++
	f.promptFiles = append(f.promptFiles, promptFile)
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if data, err := os.ReadFile(promptFile); err == nil {
		f.promptSeen = string(data)
	}
	idx := f.calls - 1
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	return f.results[idx]
}

func newTestExecutor(fe *fakeEngine) *Executor {
	e := New(fe, slog.New(slog.NewTextHandler(io.Discard, nil)))
	e.Retry = retry.Config{MaxRetries: 3, BaseDelay: time.Millisecond, MaxJitterPercent: 0}
	return e
}

func questionsJSON(n int) string {
	qs := make([]map[string]interface{}, n)
	for i := range qs {
		qs[i] = map[string]interface{}{
			"type":          "mcq",
			"targetSkill":   "vocabulary",
			"difficulty":    "N5",
			"question":      fmt.Sprintf("What does word %d mean?", i),
			"options":       []string{"a", "b", "c", "d"},
			"correctAnswer": "a",
			"points":        10,
		}
	}
	data, _ := json.Marshal(map[string]interface{}{"questions": qs})
	return string(data)
}

func TestGenerate_DirectPayload(t *testing.T) {
	fe := &fakeEngine{results: []engine.Result{{Output: questionsJSON(2)}}}
	e := newTestExecutor(fe)

	p, err := e.Generate(context.Background(), "prompt text", "", "japanese-n5-mcq-0001")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(p.Questions) != 2 {
		t.Errorf("questions = %d, want 2", len(p.Questions))
	}
}

func TestGenerate_UnwrapsResultEnvelope(t *testing.T) {
	envelope := map[string]interface{}{
		"type":     "result",
		"is_error": false,
		"result":   questionsJSON(1),
		"usage": map[string]int{
			"input_tokens":  1000,
			"output_tokens": 200,
		},
	}
	data, _ := json.Marshal(envelope)

	fe := &fakeEngine{results: []engine.Result{{Output: string(data)}}}
	e := newTestExecutor(fe)

	p, err := e.Generate(context.Background(), "prompt", "", "b-0001")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(p.Questions) != 1 {
		t.Errorf("questions = %d, want 1", len(p.Questions))
	}
	if p.Tokens != 1200 {
		t.Errorf("tokens = %d, want 1200", p.Tokens)
	}
}

func TestGenerate_FencedResultString(t *testing.T) {
	envelope := map[string]interface{}{
		"result": "```json\n" + questionsJSON(1) + "\n```",
	}
	data, _ := json.Marshal(envelope)

	fe := &fakeEngine{results: []engine.Result{{Output: string(data)}}}
	e := newTestExecutor(fe)

	p, err := e.Generate(context.Background(), "prompt", "", "b-0001")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(p.Questions) != 1 {
		t.Errorf("questions = %d, want 1", len(p.Questions))
	}
}

func TestGenerate_EnvelopeFallbackWhenNestedParseFails(t *testing.T) {
	// The output carries both a non-JSON result string and an inline
	// questions array; the envelope itself is the payload.
	output := `{"result": "done, see questions", ` + strings.TrimPrefix(questionsJSON(1), "{")

	fe := &fakeEngine{results: []engine.Result{{Output: output}}}
	e := newTestExecutor(fe)

	p, err := e.Generate(context.Background(), "prompt", "", "b-0001")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(p.Questions) != 1 {
		t.Errorf("questions = %d, want 1 (envelope-as-payload fallback)", len(p.Questions))
	}
}

func TestGenerate_BareArrayPayload(t *testing.T) {
	wrapped := questionsJSON(2)
	var obj struct {
		Questions []json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal([]byte(wrapped), &obj); err != nil {
		t.Fatalf("fixture error: %v", err)
	}
	arr, _ := json.Marshal(obj.Questions)

	fe := &fakeEngine{results: []engine.Result{{Output: string(arr)}}}
	e := newTestExecutor(fe)

	p, err := e.Generate(context.Background(), "prompt", "", "b-0001")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(p.Questions) != 2 {
		t.Errorf("questions = %d, want 2", len(p.Questions))
	}
}

func TestGenerate_MalformedOutput(t *testing.T) {
	fe := &fakeEngine{results: []engine.Result{{Output: "the model rambled instead of emitting JSON"}}}
	e := newTestExecutor(fe)

	p, err := e.Generate(context.Background(), "prompt", "", "b-0001")
	if err == nil {
		t.Fatal("Generate() error = nil for malformed output")
	}
	if p != nil {
		t.Errorf("payload = %+v, want nil on failure", p)
	}
	if !strings.Contains(err.Error(), "malformed") {
		t.Errorf("error = %q, want mention of malformed output", err)
	}
	if fe.calls != 1 {
		t.Errorf("engine calls = %d, want 1 (parse failures are not retried)", fe.calls)
	}
}

func TestGenerate_ErrorEnvelope(t *testing.T) {
	fe := &fakeEngine{results: []engine.Result{{Output: `{"is_error": true, "result": "credit balance is too low"}`}}}
	e := newTestExecutor(fe)

	_, err := e.Generate(context.Background(), "prompt", "", "b-0001")
	if err == nil {
		t.Fatal("Generate() error = nil for error envelope")
	}
	if !strings.Contains(err.Error(), "credit balance is too low") {
		t.Errorf("error = %q, want engine message surfaced", err)
	}
}

func TestGenerate_RetriesTransientEngineFailures(t *testing.T) {
	fe := &fakeEngine{results: []engine.Result{
		{Error: fmt.Errorf("generation failed: rate limit exceeded")},
		{Error: fmt.Errorf("generation failed: rate limit exceeded")},
		{Output: questionsJSON(1)},
	}}
	e := newTestExecutor(fe)

	p, err := e.Generate(context.Background(), "prompt", "", "b-0001")
	if err != nil {
		t.Fatalf("Generate() error = %v, want success after retries", err)
	}
	if fe.calls != 3 {
		t.Errorf("engine calls = %d, want 3", fe.calls)
	}
	if len(p.Questions) != 1 {
		t.Errorf("questions = %d, want 1", len(p.Questions))
	}
}

func TestGenerate_NonRetryableEngineFailure(t *testing.T) {
	fe := &fakeEngine{results: []engine.Result{
		{Error: fmt.Errorf("generation failed: authentication failed")},
	}}
	e := newTestExecutor(fe)

	_, err := e.Generate(context.Background(), "prompt", "", "b-0001")
	if err == nil {
		t.Fatal("Generate() error = nil, want failure")
	}
	if fe.calls != 1 {
		t.Errorf("engine calls = %d, want 1 (no retry on auth errors)", fe.calls)
	}
}

func TestGenerate_StagesAndCleansPromptFile(t *testing.T) {
	fe := &fakeEngine{results: []engine.Result{{Output: questionsJSON(1)}}}
	e := newTestExecutor(fe)

	prompt := "Generate 5 mcq questions about food."
	if _, err := e.Generate(context.Background(), prompt, "", "japanese-n5-mcq-0042"); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if fe.promptSeen != prompt {
		t.Errorf("prompt file content = %q, want %q", fe.promptSeen, prompt)
	}
	if len(fe.promptFiles) != 1 {
		t.Fatalf("prompt files = %d, want 1", len(fe.promptFiles))
	}
	name := filepath.Base(fe.promptFiles[0])
	if !strings.Contains(name, "japanese-n5-mcq-0042") {
		t.Errorf("prompt file %q not batch-scoped", name)
	}
	if _, err := os.Stat(fe.promptFiles[0]); !os.IsNotExist(err) {
		t.Errorf("prompt file %s not removed after generation", fe.promptFiles[0])
	}
}

func TestGenerate_PromptFileRemovedOnFailure(t *testing.T) {
	fe := &fakeEngine{results: []engine.Result{{Output: "garbage"}}}
	e := newTestExecutor(fe)

	if _, err := e.Generate(context.Background(), "prompt", "", "b-0001"); err == nil {
		t.Fatal("Generate() error = nil, want parse failure")
	}
	if _, err := os.Stat(fe.promptFiles[0]); !os.IsNotExist(err) {
		t.Errorf("prompt file %s not removed on failure path", fe.promptFiles[0])
	}
}

func TestGenerate_SchemaViolation(t *testing.T) {
	schemaPath := filepath.Join(t.TempDir(), "questions.schema.json")
	schema := `{
		"type": "object",
		"required": ["questions"],
		"properties": {
			"questions": {"type": "array", "minItems": 1}
		}
	}`
	if err := os.WriteFile(schemaPath, []byte(schema), 0o644); err != nil {
		t.Fatalf("failed to write schema: %v", err)
	}

	fe := &fakeEngine{results: []engine.Result{{Output: `{"summary": "no questions here"}`}}}
	e := newTestExecutor(fe)

	_, err := e.Generate(context.Background(), "prompt", schemaPath, "b-0001")
	if err == nil {
		t.Fatal("Generate() error = nil, want schema violation")
	}
	if !strings.Contains(err.Error(), "schema") {
		t.Errorf("error = %q, want schema violation", err)
	}
}

func TestGenerate_SchemaAccepts(t *testing.T) {
	schemaPath := filepath.Join(t.TempDir(), "questions.schema.json")
	schema := `{
		"type": "object",
		"required": ["questions"],
		"properties": {
			"questions": {"type": "array", "minItems": 1}
		}
	}`
	if err := os.WriteFile(schemaPath, []byte(schema), 0o644); err != nil {
		t.Fatalf("failed to write schema: %v", err)
	}

	fe := &fakeEngine{results: []engine.Result{{Output: questionsJSON(3)}}}
	e := newTestExecutor(fe)

	p, err := e.Generate(context.Background(), "prompt", schemaPath, "b-0001")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(p.Questions) != 3 {
		t.Errorf("questions = %d, want 3", len(p.Questions))
	}
}

func TestGenerate_TruncatesLongErrors(t *testing.T) {
	longMsg := "invalid request: " + strings.Repeat("x", 2000)
	fe := &fakeEngine{results: []engine.Result{{Error: fmt.Errorf("%s", longMsg)}}}
	e := newTestExecutor(fe)

	_, err := e.Generate(context.Background(), "prompt", "", "b-0001")
	if err == nil {
		t.Fatal("Generate() error = nil, want failure")
	}
	if len(err.Error()) > maxErrorLen {
		t.Errorf("error length = %d, want <= %d", len(err.Error()), maxErrorLen)
	}
	if !strings.HasSuffix(err.Error(), "...") {
		t.Errorf("truncated error should end with ellipsis: %q", err.Error()[:50])
	}
}

func TestTruncateError_CutsOnRuneBoundary(t *testing.T) {
	// One leading ASCII byte pushes the cut point mid-rune.
	got := truncateError(errors.New("x" + strings.Repeat("界", 200)))

	if len(got) > maxErrorLen {
		t.Errorf("length = %d, want <= %d", len(got), maxErrorLen)
	}
	if !utf8.ValidString(got) {
		t.Errorf("truncateError() produced invalid UTF-8: %q", got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncateError() = %q, want ellipsis suffix", got)
	}
}

func TestGenerate_RecoversPanics(t *testing.T) {
	fe := &fakeEngine{panicMsg: "index out of range", results: []engine.Result{{}}}
	e := newTestExecutor(fe)

	p, err := e.Generate(context.Background(), "prompt", "", "b-0001")
	if err == nil {
		t.Fatal("Generate() error = nil, want recovered panic")
	}
	if p != nil {
		t.Errorf("payload = %+v, want nil", p)
	}
	if !strings.Contains(err.Error(), "panicked") {
		t.Errorf("error = %q, want panic diagnostic", err)
	}
}

func TestUnwrapPayload_EmptyOutput(t *testing.T) {
	if _, _, err := unwrapPayload("   \n  "); err == nil {
		t.Error("unwrapPayload(blank) error = nil, want failure")
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripFences(tt.in); got != tt.want {
				t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

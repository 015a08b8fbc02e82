package engine

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// Spinner frames using braille characters
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Progress bar characters
const (
	barFilled = "█"
	barEmpty  = "░"
	barWidth  = 20
)

// BatchOutcome classifies a finished batch for display purposes.
type BatchOutcome int

const (
	BatchOK   BatchOutcome = iota // validated clean
	BatchWarn                     // persisted with validation issues
	BatchFail                     // generation or persistence failed
)

// Flusher is an optional interface for writers that support flushing.
type Flusher interface {
	Sync() error
}

// Display handles terminal output with spinners and formatted status.
// Batch workers finish concurrently, so completion reporting is
// serialized behind the display lock.
type Display struct {
	out       io.Writer
	mu        sync.Mutex
	spinMu    sync.Mutex // Separate mutex for spinner to avoid deadlock
	spinning  bool
	spinStop  chan struct{}
	spinDone  chan struct{}
	spinMsg   string
	runStart  time.Time
	spinStart time.Time

	// Stats tracking
	totalBatches int
	doneBatches  int
	totalTokens  int
}

// NewDisplay creates a new display writer.
func NewDisplay(out io.Writer) *Display {
	now := time.Now()
	return &Display{
		out:       out,
		runStart:  now,
		spinStart: now,
	}
}

// flush attempts to flush the output if it supports it.
func (d *Display) flush() {
	if f, ok := d.out.(Flusher); ok {
		f.Sync()
	}
}

// StartSpinner begins the loading spinner with a message.
func (d *Display) StartSpinner(msg string) {
	d.spinMu.Lock()
	if d.spinning {
		d.spinMu.Unlock()
		return
	}
	d.spinning = true
	d.spinMsg = msg
	d.spinStart = time.Now()
	d.spinStop = make(chan struct{})
	d.spinDone = make(chan struct{})
	d.spinMu.Unlock()

	go func() {
		defer close(d.spinDone)
		frame := 0
		first := true
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-d.spinStop:
				// Move up, clear line, stay there for next output.
				// Skip when no frame was drawn yet, otherwise the
				// erase eats the previous line of real output.
				if !first {
					fmt.Fprintf(d.out, "\033[1A\r\033[K")
					d.flush()
				}
				return
			case <-ticker.C:
				elapsed := formatElapsed(time.Since(d.spinStart))
				if first {
					// First frame: print spinner + newline (cursor goes below)
					fmt.Fprintf(d.out, "   %s %s (%s)\n", spinnerFrames[frame], d.spinMsg, elapsed)
					first = false
				} else {
					// Subsequent frames: move up, clear line, reprint + newline
					fmt.Fprintf(d.out, "\033[1A\r\033[K   %s %s (%s)\n", spinnerFrames[frame], d.spinMsg, elapsed)
				}
				d.flush()
				frame = (frame + 1) % len(spinnerFrames)
			}
		}
	}()
}

// StopSpinner stops the loading spinner.
func (d *Display) StopSpinner() {
	d.spinMu.Lock()
	if !d.spinning {
		d.spinMu.Unlock()
		return
	}
	d.spinning = false
	close(d.spinStop)
	d.spinMu.Unlock()
	<-d.spinDone
}

// ShowRunHeader displays the run banner before any batch is dispatched.
func (d *Display) ShowRunHeader(language, engineName string, batches, parallelism int) {
	d.mu.Lock()
	d.totalBatches = batches
	d.doneBatches = 0
	d.runStart = time.Now()
	d.mu.Unlock()

	var b strings.Builder
	b.WriteString(StyleTitle.Render(fmt.Sprintf("qgen · %s", language)))
	b.WriteString(fmt.Sprintf("\nEngine: %s", engineName))
	b.WriteString(fmt.Sprintf("\nBatches: %d", batches))
	b.WriteString(fmt.Sprintf("\nParallelism: %d", parallelism))
	fmt.Fprintln(d.out, HeaderBox().Render(b.String()))
	fmt.Fprintln(d.out)
}

// ShowChunkHeader displays the chunk banner with overall progress.
func (d *Display) ShowChunkHeader(current, total, size int) {
	d.StopSpinner()
	d.mu.Lock()
	done := d.doneBatches
	totalBatches := d.totalBatches
	elapsed := time.Since(d.runStart).Round(time.Second)
	d.mu.Unlock()

	rule := StyleMuted.Render(strings.Repeat("─", 55))
	fmt.Fprintf(d.out, "%s\n", rule)
	fmt.Fprintf(d.out, "  Chunk %d/%d  [%s]  %d/%d batches  %s elapsed\n",
		current, total, progressBar(done, totalBatches), done, totalBatches, elapsed)
	fmt.Fprintf(d.out, "%s\n", rule)
}

// BatchStarted prints the dispatch line for one batch.
func (d *Display) BatchStarted(batchID string) {
	d.StopSpinner()
	d.mu.Lock()
	fmt.Fprintf(d.out, "   %s %s\n", StyleToolArrow.String(), batchID)
	d.mu.Unlock()
	d.startProgressSpinner()
}

// BatchDone prints the completion line for one batch and refreshes the
// in-flight spinner.
func (d *Display) BatchDone(batchID string, outcome BatchOutcome, detail string, dur time.Duration, tokens int) {
	d.StopSpinner()

	d.mu.Lock()
	d.doneBatches++
	d.totalTokens += tokens
	done, total := d.doneBatches, d.totalBatches

	status := StyleSuccess.Render("[ok]")
	switch outcome {
	case BatchWarn:
		status = StyleWarning.Render("[??]")
	case BatchFail:
		status = StyleError.Render("[!!]")
	}
	line := fmt.Sprintf("   %s %s  %s", status, batchID, formatElapsed(dur))
	if detail != "" {
		line += "  " + StyleMuted.Render(truncate(detail, 60))
	}
	fmt.Fprintln(d.out, line)
	d.mu.Unlock()

	if done < total {
		d.startProgressSpinner()
	}
}

// startProgressSpinner resumes the spinner with current batch counts.
func (d *Display) startProgressSpinner() {
	d.mu.Lock()
	msg := fmt.Sprintf("generating · %d/%d batches done", d.doneBatches, d.totalBatches)
	d.mu.Unlock()
	d.StartSpinner(msg)
}

// ShowRunSummary displays the end-of-run box with aggregate counts.
func (d *Display) ShowRunSummary(validated, warned, failed int) {
	d.StopSpinner()
	d.mu.Lock()
	elapsed := time.Since(d.runStart).Round(time.Second)
	tokens := d.totalTokens
	d.mu.Unlock()

	var b strings.Builder
	switch {
	case validated == 0 && failed > 0:
		b.WriteString(StyleError.Render("[!!] Run finished with no validated batches"))
	case failed > 0 || warned > 0:
		b.WriteString(StyleWarning.Render("[??] Run finished with issues"))
	default:
		b.WriteString(StyleSuccess.Render("[ok] Run complete"))
	}
	b.WriteString(fmt.Sprintf("\nValidated: %d", validated))
	b.WriteString(fmt.Sprintf("\nWith warnings: %d", warned))
	b.WriteString(fmt.Sprintf("\nFailed: %d", failed))
	b.WriteString(fmt.Sprintf("\nTotal time: %s", elapsed))
	if tokens > 0 {
		b.WriteString(fmt.Sprintf("\nTotal tokens: %s", formatTokens(tokens)))
	}

	box := SuccessBox()
	switch {
	case validated == 0 && failed > 0:
		box = ErrorBox()
	case failed > 0 || warned > 0:
		box = WarningBox()
	}
	fmt.Fprintln(d.out)
	fmt.Fprintln(d.out, box.Render(b.String()))
}

// ShowCommandHeader displays the standard command banner.
func (d *Display) ShowCommandHeader(title, subtitle string) {
	fmt.Fprintf(d.out, "\n%s %s\n", StyleCommandIcon.String(), StyleBold.Render(title))
	if subtitle != "" {
		fmt.Fprintf(d.out, "  %s\n", StyleMuted.Render(subtitle))
	}
	fmt.Fprintln(d.out)
}

// ShowCommandError displays an error box with an optional issue list.
func (d *Display) ShowCommandError(msg string, issues []string) {
	d.StopSpinner()
	var b strings.Builder
	b.WriteString(StyleError.Render("[!!] " + msg))
	for _, issue := range issues {
		b.WriteString("\n  - " + issue)
	}
	fmt.Fprintln(d.out, ErrorBox().Render(b.String()))
}

// ShowCommandSuccess displays a success box with an optional detail line.
func (d *Display) ShowCommandSuccess(msg, detail string) {
	d.StopSpinner()
	var b strings.Builder
	b.WriteString(StyleSuccess.Render("[ok] " + msg))
	if detail != "" {
		b.WriteString("\n  " + detail)
	}
	fmt.Fprintln(d.out, SuccessBox().Render(b.String()))
}

// ShowInfo displays an info message.
func (d *Display) ShowInfo(format string, args ...interface{}) {
	fmt.Fprintf(d.out, format, args...)
}

// Helper functions

func progressBar(done, total int) string {
	if total <= 0 {
		return StyleProgressEmpty.Render(strings.Repeat(barEmpty, barWidth))
	}
	filled := done * barWidth / total
	if filled > barWidth {
		filled = barWidth
	}
	return StyleProgressFilled.Render(strings.Repeat(barFilled, filled)) +
		StyleProgressEmpty.Render(strings.Repeat(barEmpty, barWidth-filled))
}

// formatElapsed formats duration with fixed width (always 6 chars like " 1.04s")
func formatElapsed(d time.Duration) string {
	secs := d.Seconds()
	if secs < 10 {
		return fmt.Sprintf("%5.2fs", secs) // " 1.04s"
	} else if secs < 100 {
		return fmt.Sprintf("%5.1fs", secs) // " 10.0s"
	}
	return fmt.Sprintf("%5.0fs", secs) // "  100s"
}

func formatTokens(n int) string {
	if n >= 1000000 {
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
	if n >= 1000 {
		return fmt.Sprintf("%.1fk", float64(n)/1000)
	}
	return fmt.Sprintf("%d", n)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Keep the cut on a rune boundary.
	cut := max - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// Package output renders plain command output for the dry-run and
// reporting commands. Streaming run feedback lives in the engine
// package's Display; this printer covers output that is useful when
// piped.
package output

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Printer handles formatted output for the CLI.
type Printer struct {
	w io.Writer
}

// New creates a new Printer that writes to the given writer.
func New(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Header prints a command heading followed by a blank line.
func (p *Printer) Header(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n\n", args...)
}

// Line prints one formatted line.
func (p *Printer) Line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Table prints rows as an aligned, bordered table.
func (p *Printer) Table(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Faint(true)).
		StyleFunc(func(row, _ int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				s = s.Bold(true)
			}
			return s
		}).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(p.w, t.Render())
}

// BatchCount prints the planned batch total.
// Format: "12 batches, 60 questions"
func (p *Printer) BatchCount(batches, questions int) {
	if batches == 1 {
		fmt.Fprintf(p.w, "1 batch, %d questions\n", questions)
		return
	}
	fmt.Fprintf(p.w, "%d batches, %d questions\n", batches, questions)
}

// ResumeNote prints what a resumed run would do with already-recorded
// batches.
// Format: "Resume: 3 complete, 1 failed (will retry), 8 new"
func (p *Printer) ResumeNote(complete, failed, fresh int) {
	fmt.Fprintf(p.w, "Resume: %d complete, %d failed (will retry), %d new\n", complete, failed, fresh)
}

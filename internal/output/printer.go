// Package output renders workflow runs and definitions for the terminal.
//
// Styling uses lipgloss with a renderer bound to the destination writer, so
// output to a pipe or a buffer carries no escape codes.
package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"toolflow/internal/value"
	"toolflow/internal/workflow"
)

// Printer writes styled, human-readable output.
type Printer struct {
	out io.Writer

	header  lipgloss.Style
	step    lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	muted   lipgloss.Style
	key     lipgloss.Style
}

// NewPrinter creates a Printer that writes to stdout.
func NewPrinter() *Printer {
	return NewPrinterWithWriter(os.Stdout)
}

// NewPrinterWithWriter creates a Printer that writes to w.
func NewPrinterWithWriter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		out:     w,
		header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		step:    r.NewStyle().Foreground(lipgloss.Color("14")),
		success: r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		failure: r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		muted:   r.NewStyle().Faint(true),
		key:     r.NewStyle().Bold(true),
	}
}

// Writer returns the destination writer.
func (p *Printer) Writer() io.Writer { return p.out }

func (p *Printer) printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

// Text prints an unstyled line.
func (p *Printer) Text(format string, args ...any) {
	p.printf(format+"\n", args...)
}

// WorkflowStart announces a run.
func (p *Printer) WorkflowStart(name string, steps int) {
	p.printf("%s %s\n", p.header.Render("▶ "+name), p.muted.Render(fmt.Sprintf("(%d steps)", steps)))
}

// StepStart reports the step about to run. Its signature matches
// workflow.ProgressCallback.
func (p *Printer) StepStart(stepIndex, totalSteps int, tool string) {
	p.printf("  %s %s\n", p.muted.Render(fmt.Sprintf("[%d/%d]", stepIndex, totalSteps)), p.step.Render(tool))
}

// WorkflowComplete reports a successful run and its results, sorted by tool.
func (p *Printer) WorkflowComplete(name string, results workflow.ResultSet, elapsed time.Duration) {
	p.printf("%s %s\n", p.success.Render("✓ "+name+" completed"), p.muted.Render(formatDuration(elapsed)))
	p.Results(results)
}

// Results prints each tool's result on its own line.
func (p *Printer) Results(results workflow.ResultSet) {
	tools := make([]string, 0, len(results))
	for tool := range results {
		tools = append(tools, tool)
	}
	sort.Strings(tools)
	for _, tool := range tools {
		p.printf("  %s %s\n", p.key.Render(tool+":"), display(results[tool]))
	}
}

// WorkflowFailed reports a failed run.
func (p *Printer) WorkflowFailed(name string, err error, elapsed time.Duration) {
	p.printf("%s %s\n", p.failure.Render("✗ "+name+" failed"), p.muted.Render(formatDuration(elapsed)))
	p.printf("  %s\n", err)
}

// WorkflowList prints registered workflows with their step counts.
func (p *Printer) WorkflowList(defs map[string][]workflow.Step) {
	if len(defs) == 0 {
		p.printf("%s\n", p.muted.Render("no workflows registered"))
		return
	}
	names := make([]string, 0, len(defs))
	width := 0
	for name := range defs {
		names = append(names, name)
		if len(name) > width {
			width = len(name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		steps := defs[name]
		tools := make([]string, len(steps))
		for i, s := range steps {
			tools[i] = s.Tool
		}
		p.printf("%s  %s\n",
			p.key.Render(fmt.Sprintf("%-*s", width, name)),
			p.muted.Render(fmt.Sprintf("%d steps: %s", len(steps), strings.Join(tools, " → "))))
	}
}

// WorkflowSteps prints one workflow's steps and parameters.
func (p *Printer) WorkflowSteps(name string, steps []workflow.Step) {
	p.printf("%s\n", p.header.Render(name))
	for i, s := range steps {
		p.printf("  %d. %s\n", i+1, p.step.Render(s.Tool))
		keys := make([]string, 0, len(s.Params))
		for k := range s.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			p.printf("       %s %s\n", p.muted.Render(k+":"), s.Params[k])
		}
	}
}

// display renders strings bare and everything else as JSON.
func display(v value.Value) string {
	if s, ok := v.AsString(); ok {
		return s
	}
	return v.String()
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(10 * time.Millisecond).String()
}

// Package report renders runner results for the terminal or for machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/pengelbrecht/tally/internal/runner"
)

// Formatter receives scenario results as they finish and the full result at
// the end of a run.
type Formatter interface {
	Scenario(sr runner.ScenarioResult)
	Finish(res *runner.Result) error
}

// Options tunes formatter output.
type Options struct {
	// Width is the terminal width used to truncate scenario names (default 80).
	Width int
	// Verbose prints the steps of passing scenarios too.
	Verbose bool
}

// New returns the formatter registered under name.
func New(name string, w io.Writer, opts Options) (Formatter, error) {
	if opts.Width <= 0 {
		opts.Width = 80
	}
	switch name {
	case "pretty", "":
		return &Pretty{w: w, opts: opts}, nil
	case "progress":
		return &Progress{w: w}, nil
	case "json":
		return &JSON{w: w}, nil
	default:
		return nil, fmt.Errorf("unknown format %q", name)
	}
}

var (
	colorGreen  = lipgloss.Color("2")
	colorRed    = lipgloss.Color("1")
	colorYellow = lipgloss.Color("3")
	colorGray   = lipgloss.Color("8")
	colorCyan   = lipgloss.Color("6")

	featureStyle = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(colorGray)
	snippetStyle = lipgloss.NewStyle().Foreground(colorCyan)
)

func statusStyle(s runner.Status) lipgloss.Style {
	switch s {
	case runner.StatusPassed:
		return lipgloss.NewStyle().Foreground(colorGreen)
	case runner.StatusFailed, runner.StatusAmbiguous:
		return lipgloss.NewStyle().Foreground(colorRed)
	case runner.StatusUndefined:
		return lipgloss.NewStyle().Foreground(colorYellow)
	default:
		return dimStyle
	}
}

func statusIcon(s runner.Status) string {
	switch s {
	case runner.StatusPassed:
		return "✓"
	case runner.StatusFailed:
		return "✗"
	case runner.StatusUndefined:
		return "?"
	case runner.StatusAmbiguous:
		return "!"
	default:
		return "-"
	}
}

// Pretty prints features, scenarios and failure details, then a summary.
type Pretty struct {
	w    io.Writer
	opts Options
}

// Scenario is a no-op; Pretty prints everything in file order on Finish.
func (p *Pretty) Scenario(runner.ScenarioResult) {}

// Finish writes the report.
func (p *Pretty) Finish(res *runner.Result) error {
	var b strings.Builder
	for _, fr := range res.Features {
		if len(fr.Scenarios) == 0 {
			continue
		}
		b.WriteString(featureStyle.Render("Feature: "+fr.Name) + " " + dimStyle.Render(fr.Path) + "\n\n")
		for _, sr := range fr.Scenarios {
			p.writeScenario(&b, sr)
		}
		b.WriteString("\n")
	}
	b.WriteString(SummaryLine(res.Summary) + "\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d steps in %s", res.Summary.Steps, res.Duration.Round(time.Microsecond))) + "\n")

	_, err := io.WriteString(p.w, b.String())
	return err
}

func (p *Pretty) writeScenario(b *strings.Builder, sr runner.ScenarioResult) {
	style := statusStyle(sr.Status)
	loc := fmt.Sprintf(":%d", sr.Line)
	// Leave room for the indent, icon and line suffix.
	avail := max(p.opts.Width-4-ansi.StringWidth(loc)-1, 10)
	name := ansi.Truncate(sr.Name, avail, "…")
	b.WriteString("  " + style.Render(statusIcon(sr.Status)+" "+name) + " " + dimStyle.Render(loc) + "\n")

	if sr.Status == runner.StatusPassed && !p.opts.Verbose {
		return
	}
	for _, st := range sr.Steps {
		b.WriteString("      " + statusStyle(st.Status).Render(st.Keyword+" "+st.Text) + "\n")
		if st.Error != "" && st.Status != runner.StatusUndefined {
			b.WriteString("        " + statusStyle(st.Status).Render(st.Error) + "\n")
		}
		if st.Snippet != "" {
			b.WriteString("        " + dimStyle.Render("define it with:") + "\n")
			for _, line := range strings.Split(st.Snippet, "\n") {
				b.WriteString("        " + snippetStyle.Render(line) + "\n")
			}
		}
	}
}

// SummaryLine renders "N scenarios (a passed, b failed, ...)".
func SummaryLine(s runner.Summary) string {
	parts := []string{}
	add := func(n int, status runner.Status) {
		if n > 0 {
			parts = append(parts, statusStyle(status).Render(fmt.Sprintf("%d %s", n, status)))
		}
	}
	add(s.Passed, runner.StatusPassed)
	add(s.Failed, runner.StatusFailed)
	add(s.Undefined, runner.StatusUndefined)
	add(s.Ambiguous, runner.StatusAmbiguous)
	add(s.Skipped, runner.StatusSkipped)

	noun := "scenarios"
	if s.Scenarios == 1 {
		noun = "scenario"
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%d %s", s.Scenarios, noun)
	}
	return fmt.Sprintf("%d %s (%s)", s.Scenarios, noun, strings.Join(parts, ", "))
}

// Progress prints one character per scenario as it finishes.
type Progress struct {
	w     io.Writer
	count int
}

// Scenario writes the scenario's status character.
func (p *Progress) Scenario(sr runner.ScenarioResult) {
	var c string
	switch sr.Status {
	case runner.StatusPassed:
		c = "."
	case runner.StatusFailed, runner.StatusAmbiguous:
		c = "F"
	case runner.StatusUndefined:
		c = "U"
	default:
		c = "-"
	}
	fmt.Fprint(p.w, statusStyle(sr.Status).Render(c))
	p.count++
}

// Finish ends the progress line and prints failures and the summary.
func (p *Progress) Finish(res *runner.Result) error {
	var b strings.Builder
	if p.count > 0 {
		b.WriteString("\n")
	}
	for _, fr := range res.Features {
		for _, sr := range fr.Scenarios {
			st, ok := sr.Failed()
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "%s:%d %s\n  %s %s: %s\n", fr.Path, st.Line, sr.Name, st.Keyword, st.Text, st.Error)
		}
	}
	b.WriteString(SummaryLine(res.Summary) + "\n")
	_, err := io.WriteString(p.w, b.String())
	return err
}

// JSON writes the whole result as one indented document.
type JSON struct {
	w io.Writer
}

// Scenario is a no-op.
func (j *JSON) Scenario(runner.ScenarioResult) {}

// Finish encodes res.
func (j *JSON) Finish(res *runner.Result) error {
	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

package check

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
)

// Step names a check
type Step string

const (
	StepConfigFile  Step = "config-file"
	StepValidation  Step = "validation"
	StepEnvironment Step = "environment"
	StepBackend     Step = "backend"
)

// Severity grades a finding
type Severity int

const (
	SeverityOK Severity = iota
	SeverityWarning
	SeverityError
)

// Finding is one observation made by a step
type Finding struct {
	Step     Step
	Severity Severity
	Message  string
	// Hint tells the user how to fix an error or warning
	Hint string
}

// Result collects the findings of one run
type Result struct {
	Path     string
	Created  bool
	Findings []Finding
}

func (r *Result) add(step Step, sev Severity, msg, hint string) Finding {
	f := Finding{Step: step, Severity: sev, Message: msg, Hint: hint}
	r.Findings = append(r.Findings, f)
	return f
}

// OK reports whether nothing blocks startup
func (r *Result) OK() bool {
	return len(r.Errors()) == 0
}

// Errors returns the blocking findings
func (r *Result) Errors() []Finding { return r.filter(SeverityError) }

// Warnings returns the non-blocking findings
func (r *Result) Warnings() []Finding { return r.filter(SeverityWarning) }

func (r *Result) filter(sev Severity) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == sev {
			out = append(out, f)
		}
	}
	return out
}

// Summary describes the counts, e.g. "config created, 2 warning(s)"
func (r *Result) Summary() string {
	var parts []string
	if r.Created {
		parts = append(parts, "config created")
	}
	if n := len(r.Errors()); n > 0 {
		parts = append(parts, fmt.Sprintf("%d error(s)", n))
	}
	if n := len(r.Warnings()); n > 0 {
		parts = append(parts, fmt.Sprintf("%d warning(s)", n))
	}
	return strings.Join(parts, ", ")
}

// Print writes the errors, warnings and fix hints to w
func (r *Result) Print(w io.Writer) {
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	if errs := r.Errors(); len(errs) > 0 {
		red.Fprintln(w, "\n[ERROR] Environment check failed")
		for _, f := range errs {
			red.Fprintf(w, "  ✗ %s\n", f.Message)
		}
	}
	if warns := r.Warnings(); len(warns) > 0 {
		yellow.Fprintln(w, "\n[WARNING] Configuration warnings:")
		for _, f := range warns {
			yellow.Fprintf(w, "  ⚠ %s\n", f.Message)
		}
	}

	var hints []string
	for _, f := range r.Findings {
		if f.Hint != "" {
			hints = append(hints, f.Hint)
		}
	}
	if len(hints) > 0 {
		cyan.Fprintln(w, "\nTo fix these issues:")
		for _, h := range hints {
			fmt.Fprintf(w, "  → %s\n", h)
		}
	}
	fmt.Fprintln(w)
}

// PrintSummary writes the closing line of an interactive run
func (r *Result) PrintSummary(w io.Writer) {
	rule := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	fmt.Fprintln(w, rule.Render(strings.Repeat("─", 50)))

	mark := color.New(color.FgGreen, color.Bold)
	symbol := "✓"
	switch {
	case !r.OK():
		mark, symbol = color.New(color.FgRed, color.Bold), "✗"
	case len(r.Warnings()) > 0:
		mark, symbol = color.New(color.FgYellow, color.Bold), "⚠"
	}
	mark.Fprintf(w, "%s Check completed", symbol)

	if s := r.Summary(); s != "" {
		fmt.Fprintf(w, " (%s)\n", s)
	} else {
		fmt.Fprintln(w, " - all checks passed")
	}
}

func (c *Checker) header() {
	if !c.verbose {
		return
	}
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).MarginBottom(1)
	fmt.Fprintln(c.out, title.Render("🔍 PassportView Environment Check"))
}

func (c *Checker) section(title string) {
	if !c.verbose {
		return
	}
	style := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, style.Render(title+"..."))
}

func (c *Checker) progress(f Finding) {
	if !c.verbose {
		return
	}
	switch f.Severity {
	case SeverityOK:
		color.New(color.FgGreen).Fprintf(c.out, "  ✓ %s\n", f.Message)
	case SeverityWarning:
		color.New(color.FgYellow).Fprintf(c.out, "  ⚠ %s\n", f.Message)
	default:
		color.New(color.FgRed).Fprintf(c.out, "  ✗ %s\n", f.Message)
	}
}

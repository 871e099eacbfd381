package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/entrhq/sessionrig/pkg/hooks"
)

// renderSummary formats the per-target results printed after a run. Teardown
// errors are shown but never change the exit code.
func renderSummary(summaries []*hooks.RunSummary) string {
	var b strings.Builder

	b.WriteString("\n" + headerStyle.Render("Run summary") + "\n")
	if len(summaries) == 0 {
		b.WriteString(mutedStyle.Render("  no targets were run") + "\n")
		return b.String()
	}

	for _, s := range summaries {
		b.WriteString(fmt.Sprintf("\n%s %s\n",
			targetStyle.Render(s.Target),
			mutedStyle.Render(fmt.Sprintf("(%s, %s)", s.Mode, s.Duration.Round(time.Millisecond))),
		))

		if s.SetupError != "" {
			b.WriteString("  " + errorStyle.Render("setup failed: "+s.SetupError) + "\n")
		}

		for _, r := range s.Scenarios {
			b.WriteString(fmt.Sprintf("  %s %s %s\n",
				outcomeMarker(r.Outcome),
				r.Name,
				mutedStyle.Render(r.Duration.Round(time.Millisecond).String()),
			))
			if r.Error != "" {
				b.WriteString("      " + mutedStyle.Render(firstLine(r.Error)) + "\n")
			}
		}

		b.WriteString(fmt.Sprintf("  %s  %s  %s\n",
			passStyle.Render(fmt.Sprintf("%d passed", s.Passed)),
			failStyle.Render(fmt.Sprintf("%d failed", s.Failed)),
			infraStyle.Render(fmt.Sprintf("%d infrastructure errors", s.InfraError)),
		))

		if s.TeardownError != "" {
			b.WriteString("  " + infraStyle.Render("teardown: "+s.TeardownError) + "\n")
		}
		if s.ReportPath != "" {
			b.WriteString("  " + mutedStyle.Render("report: "+s.ReportPath) + "\n")
		}
	}

	return b.String()
}

func outcomeMarker(o hooks.Outcome) string {
	switch o {
	case hooks.OutcomePassed:
		return passStyle.Render("✓")
	case hooks.OutcomeFailed:
		return failStyle.Render("✗")
	default:
		return infraStyle.Render("!")
	}
}

// firstLine drops panic stacks and other multi-line detail from the summary.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

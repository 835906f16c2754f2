package rpmutils

import (
	"encoding/json"
	"fmt"
	"io"
)

// RenderReportText writes a human readable report. Satisfied requirements are
// only listed when verbose is set.
func RenderReportText(w io.Writer, title string, report SatisfactionReport, verbose bool) {
	if title != "" {
		fmt.Fprintf(w, "Dependency check: %s\n", title)
	}

	for _, v := range report.Details {
		if v.Satisfied {
			if verbose {
				fmt.Fprintf(w, "  ✓ %s (matched %s", v.Requirement, v.MatchedVersion)
				if v.MatchedSource != "" {
					fmt.Fprintf(w, " from %s", v.MatchedSource)
				}
				fmt.Fprintln(w, ")")
			}
			continue
		}
		fmt.Fprintf(w, "  ✗ %s\n", v.Requirement)
	}

	if report.Satisfied {
		fmt.Fprintf(w, "All %d requirements satisfied", len(report.Details))
	} else {
		fmt.Fprintf(w, "%d of %d requirements missing", len(report.Missing), len(report.Details))
	}
	if report.Excluded > 0 {
		fmt.Fprintf(w, " (%d excluded)", report.Excluded)
	}
	fmt.Fprintln(w)
}

// RenderReportJSON writes the report as indented JSON.
func RenderReportJSON(w io.Writer, report SatisfactionReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(report)
}

package logger

import (
	"fmt"
	"os"
	"path/filepath"
)

// StringListReport collects lines that are appended to a report file.
type StringListReport struct {
	Title string
	RunID string
	Items []string
}

var ReportPath = "builds"

// NewMissingReport starts a report of unsatisfied requirements.
func NewMissingReport(title, runID string) *StringListReport {
	return &StringListReport{
		Title: title,
		RunID: runID,
		Items: []string{},
	}
}

// Add appends items to the report.
func (r *StringListReport) Add(items ...string) {
	r.Items = append(r.Items, items...)
}

// FilePath returns where WriteToFile writes, e.g. builds/missing-hello.txt.
func (r *StringListReport) FilePath() string {
	return filepath.Join(ReportPath, fmt.Sprintf("missing-%s.txt", safeTitle(r.Title)))
}

// WriteToFile appends the collected items to FilePath, preceded by the run ID
// and followed by an empty line, then clears the items.
func (r *StringListReport) WriteToFile() (string, error) {
	if err := os.MkdirAll(ReportPath, 0755); err != nil {
		return "", fmt.Errorf("creating base path: %w", err)
	}

	reportFullPath := r.FilePath()
	f, err := os.OpenFile(reportFullPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	if r.RunID != "" {
		if _, err := fmt.Fprintf(f, "# run %s\n", r.RunID); err != nil {
			return "", fmt.Errorf("writing to file: %w", err)
		}
	}
	for _, item := range r.Items {
		if _, err := fmt.Fprintln(f, item); err != nil {
			return "", fmt.Errorf("writing to file: %w", err)
		}
	}
	if _, err := fmt.Fprintln(f); err != nil {
		return "", fmt.Errorf("writing new line to file: %w", err)
	}

	r.Items = []string{}
	return reportFullPath, nil
}

// safeTitle replaces everything but ASCII letters and digits with underscores.
func safeTitle(title string) string {
	if title == "" {
		return "untitled"
	}
	safe := make([]rune, 0, len(title))
	for _, r := range title {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			safe = append(safe, r)
		} else {
			safe = append(safe, '_')
		}
	}
	return string(safe)
}

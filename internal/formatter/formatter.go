// package formatter provides functions to export sync reports and list
// snapshots to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/tasks"
)

// SnapshotToCSV converts a list snapshot to CSV with columns: Key, Title, Status, Progress, Score, UpdatedAt
func SnapshotToCSV(snapshot *models.ListSnapshot) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Key", "Title", "Status", "Progress", "Score", "UpdatedAt"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, entry := range snapshot.Entries {
		score := ""
		if entry.Score != nil {
			score = strconv.FormatFloat(*entry.Score, 'f', -1, 64)
		}
		record := []string{
			entry.Key,
			entry.Title,
			string(entry.Status),
			strconv.Itoa(entry.Progress),
			score,
			entry.UpdatedAt.Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ReportToMarkdown converts a sync report to Markdown
func ReportToMarkdown(report *tasks.Report) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Sync Report %s\n\n", report.ID))
	buf.WriteString(fmt.Sprintf("**Mode**: %s\n", report.Mode))
	buf.WriteString(fmt.Sprintf("**Outcome**: %s\n", report.Outcome))
	if report.DryRun {
		buf.WriteString("**Dry run**: yes\n")
	}
	buf.WriteString(fmt.Sprintf("**Started**: %s\n", report.StartedAt.Format(time.RFC3339)))
	buf.WriteString(fmt.Sprintf("**Duration**: %s\n\n", report.Duration().Round(time.Millisecond)))

	buf.WriteString("| Updated | In sync | Failed | Skipped |\n")
	buf.WriteString("| --- | --- | --- | --- |\n")
	buf.WriteString(fmt.Sprintf("| %d | %d | %d | %d |\n", report.Updated, report.NoOps, report.Failed, report.Skipped))

	if len(report.Errors) > 0 {
		buf.WriteString("\n## Failures\n\n")
		for _, entryErr := range report.Errors {
			buf.WriteString(fmt.Sprintf("- **%s** (%s): %s\n", entryErr.Title, entryErr.Target, entryErr.Message))
		}
	}

	return buf.Bytes(), nil
}

// ReportToText converts a sync report to plain text
func ReportToText(report *tasks.Report) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Sync %s\n", report.ID))
	buf.WriteString(fmt.Sprintf("Mode: %s\n", report.Mode))
	buf.WriteString(fmt.Sprintf("Result: %s\n\n", report.Summary()))

	for i, entryErr := range report.Errors {
		buf.WriteString(fmt.Sprintf("%d. %s (%s): %s\n", i+1, entryErr.Title, entryErr.Target, entryErr.Message))
	}

	return buf.Bytes(), nil
}

// WriteFile writes exported data to the given path, creating parent
// directories as needed.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

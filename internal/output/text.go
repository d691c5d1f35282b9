package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"github.com/vburojevic/journalq/internal/domain"
)

const textTimeLayout = "2006-01-02 15:04:05.000"

// TextWriter renders query results as a table for humans.
// Entries are buffered until Flush or WriteSummary so column widths fit.
type TextWriter struct {
	w     io.Writer
	color bool
	rows  [][]string
}

// NewTextWriter creates a new text writer. color enables lipgloss styling.
func NewTextWriter(w io.Writer, color bool) *TextWriter {
	return &TextWriter{w: w, color: color}
}

func (w *TextWriter) render(style lipgloss.Style, s string) string {
	if !w.color {
		return s
	}
	return style.Render(s)
}

// Write buffers a single log entry
func (w *TextWriter) Write(entry *domain.LogEntry) error {
	severity := string(entry.Severity)
	if w.color {
		severity = SeverityIndicator(entry.Severity)
	}
	w.rows = append(w.rows, []string{
		w.render(Styles.Timestamp, entry.Time().Local().Format(textTimeLayout)),
		severity,
		w.render(Styles.Origin, entry.Origin),
		w.render(SeverityStyle(entry.Severity), entry.Message),
	})
	return nil
}

// Flush renders buffered entries
func (w *TextWriter) Flush() error {
	if len(w.rows) == 0 {
		return nil
	}
	table := tablewriter.NewWriter(w.w)
	table.Header("Time", "Severity", "Origin", "Message")
	for _, row := range w.rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	w.rows = nil
	return table.Render()
}

// WriteSummary flushes entries and prints the totals and resume cursor
func (w *TextWriter) WriteSummary(summary *domain.QuerySummary) error {
	if err := w.Flush(); err != nil {
		return err
	}

	line := "\n" + w.render(Styles.Header, "Summary") + "\n"
	line += w.render(Styles.Label, "Total: ") + w.render(Styles.Value, strconv.Itoa(summary.TotalCount)) + " | "
	if summary.ErrorCount > 0 {
		line += w.render(Styles.Error, "Errors: "+strconv.Itoa(summary.ErrorCount)) + " | "
	} else {
		line += w.render(Styles.Label, "Errors: ") + w.render(Styles.Value, "0") + " | "
	}
	line += w.render(Styles.Label, "Warnings: ") + w.render(Styles.Value, strconv.Itoa(summary.WarningCount)) + " | "
	line += w.render(Styles.Label, "Skipped: ") + w.render(Styles.Value, strconv.Itoa(summary.SkippedCount)) + "\n"

	line += w.render(Styles.Label, "Stopped: ") + summary.Stop
	if summary.ReadError != "" {
		line += " (" + w.render(Styles.Danger, summary.ReadError) + ")"
	}
	line += "\n"
	if summary.LastCursor != "" {
		line += w.render(Styles.Label, "Resume with: ") + "--cursor '" + summary.LastCursor + "'\n"
	}
	if w.color {
		line += StatusText(summary.HasErrors) + "\n"
	}

	_, err := io.WriteString(w.w, line)
	return err
}

// WriteError outputs a styled error
func (w *TextWriter) WriteError(code, message string) error {
	line := w.render(Styles.Danger, "Error") + " " + w.render(Styles.Warning, "["+code+"]") + ": " + message + "\n"
	_, err := io.WriteString(w.w, line)
	return err
}

// WriteCheck outputs a doctor check result
func (w *TextWriter) WriteCheck(name, status, detail string) error {
	var mark string
	switch status {
	case "ok":
		mark = w.render(Styles.Success, "ok  ")
	case "warning":
		mark = w.render(Styles.Warning, "WARN")
	default:
		mark = w.render(Styles.Danger, "FAIL")
	}
	_, err := fmt.Fprintf(w.w, "%s %-16s %s\n", mark, name, detail)
	return err
}

package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/vburojevic/journalq/internal/domain"
)

// NDJSONWriter writes query results as NDJSON
type NDJSONWriter struct {
	w       io.Writer
	encoder *json.Encoder
}

// NewNDJSONWriter creates a new NDJSON writer
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &NDJSONWriter{
		w:       w,
		encoder: enc,
	}
}

// OutputEntry is one journal entry on the NDJSON stream
type OutputEntry struct {
	Type          string `json:"type"` // Always "log"
	SchemaVersion int    `json:"schemaVersion"`
	Timestamp     string `json:"timestamp"`
	Date          int64  `json:"date"`
	Severity      string `json:"severity"`
	Origin        string `json:"origin,omitempty"`
	Message       string `json:"message"`
	Cursor        string `json:"cursor,omitempty"`
}

// CheckOutput is one doctor check result
type CheckOutput struct {
	Type          string `json:"type"` // Always "check"
	SchemaVersion int    `json:"schemaVersion"`
	Name          string `json:"name"`
	Status        string `json:"status"` // ok, warning, error
	Detail        string `json:"detail,omitempty"`
}

// Write outputs a single log entry as NDJSON
func (w *NDJSONWriter) Write(entry *domain.LogEntry) error {
	return w.encoder.Encode(OutputEntry{
		Type:          "log",
		SchemaVersion: SchemaVersion,
		Timestamp:     entry.Time().UTC().Format(time.RFC3339Nano),
		Date:          entry.Timestamp,
		Severity:      string(entry.Severity),
		Origin:        entry.Origin,
		Message:       entry.Message,
		Cursor:        entry.Position,
	})
}

// WriteSummary outputs the query_end marker
func (w *NDJSONWriter) WriteSummary(summary *domain.QuerySummary) error {
	summary.SchemaVersion = SchemaVersion
	return w.encoder.Encode(summary)
}

// WriteError outputs an error
func (w *NDJSONWriter) WriteError(code, message string, hint ...string) error {
	err := domain.NewErrorOutput(code, message)
	if len(hint) > 0 {
		err.Hint = hint[0]
	}
	err.SchemaVersion = SchemaVersion
	return w.encoder.Encode(err)
}

// WriteCheck outputs a doctor check result
func (w *NDJSONWriter) WriteCheck(name, status, detail string) error {
	return w.encoder.Encode(&CheckOutput{
		Type:          "check",
		SchemaVersion: SchemaVersion,
		Name:          name,
		Status:        status,
		Detail:        detail,
	})
}

// WriteRaw outputs raw JSON data
func (w *NDJSONWriter) WriteRaw(v interface{}) error {
	return w.encoder.Encode(v)
}

package domain

// QuerySummary closes an NDJSON query stream with counts and the resume cursor
type QuerySummary struct {
	Type          string `json:"type"`          // Always "query_end"
	SchemaVersion int    `json:"schemaVersion"` // Schema version for compatibility

	TotalCount   int `json:"totalCount"`
	ErrorCount   int `json:"errorCount"`
	WarningCount int `json:"warningCount"`
	InfoCount    int `json:"infoCount"`
	SkippedCount int `json:"skippedCount"`

	HasErrors bool `json:"hasErrors"`

	Stop       string `json:"stop"`
	ReadError  string `json:"readError,omitempty"`
	LastCursor string `json:"last_cursor"`
}

// NewQuerySummary tallies a query result
func NewQuerySummary(res QueryResult) *QuerySummary {
	s := &QuerySummary{
		Type:         "query_end",
		TotalCount:   len(res.Entries),
		SkippedCount: res.Skipped,
		Stop:         string(res.Stop),
		LastCursor:   res.LastCursor,
	}
	for _, e := range res.Entries {
		switch e.Severity {
		case SeverityError:
			s.ErrorCount++
		case SeverityWarning:
			s.WarningCount++
		default:
			s.InfoCount++
		}
	}
	s.HasErrors = s.ErrorCount > 0
	if res.ReadErr != nil {
		s.ReadError = res.ReadErr.Error()
	}
	return s
}

// ErrorOutput represents a structured error for NDJSON output
type ErrorOutput struct {
	Type          string `json:"type"`          // Always "error"
	SchemaVersion int    `json:"schemaVersion"` // Schema version for compatibility
	Code          string `json:"code"`          // Machine-readable error code
	Message       string `json:"message"`       // Human-readable message
	Hint          string `json:"hint,omitempty"`
}

// NewErrorOutput creates a new error output
// Note: SchemaVersion should be set by the caller (output package)
func NewErrorOutput(code, message string) *ErrorOutput {
	return &ErrorOutput{
		Type:    "error",
		Code:    code,
		Message: message,
	}
}

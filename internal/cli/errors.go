package cli

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/vburojevic/journalq/internal/journal"
	"github.com/vburojevic/journalq/internal/output"
)

// CLIError is a structured error used for consistent NDJSON/text emission.
type CLIError struct {
	Code    string
	Message string
	Hint    string
}

func (e *CLIError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// outputErrorCommon emits the error as an NDJSON error record or a text
// line on stderr, and returns it for the exit status.
func outputErrorCommon(globals *Globals, code, message string, hint ...string) error {
	e := &CLIError{Code: code, Message: message}
	if len(hint) > 0 {
		e.Hint = hint[0]
	}
	if globals == nil {
		return e
	}
	if globals.Format == "ndjson" {
		_ = output.NewNDJSONWriter(globals.Stdout).WriteError(e.Code, e.Message, e.Hint)
		return e
	}
	_ = output.NewTextWriter(globals.Stderr, colorEnabled(globals.Stderr)).WriteError(e.Code, e.Message)
	if e.Hint != "" {
		fmt.Fprintf(globals.Stderr, "Hint: %s\n", e.Hint)
	}
	return e
}

// codeForQueryError maps a query failure to a stable error code
func codeForQueryError(err error) string {
	switch {
	case errors.Is(err, journal.ErrCursorNotFound):
		return "INVALID_CURSOR"
	case errors.Is(err, exec.ErrNotFound):
		return "JOURNALCTL_NOT_FOUND"
	default:
		return "OPEN_FAILED"
	}
}

func hintForQueryError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, journal.ErrCursorNotFound) {
		return "The cursor is no longer in the journal (rotated or vacuumed); drop --cursor to start at the tail"
	}
	if errors.Is(err, exec.ErrNotFound) {
		return "journalctl not found; install systemd or set journal.journalctl in the config (then `journalq doctor`)"
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "permission denied") || strings.Contains(msg, "no journal files were opened due to insufficient permissions") {
		return "Add the user to the systemd-journal group, or run with sufficient privileges"
	}
	if strings.Contains(msg, "no such file or directory") {
		return "Check journal.directory and journal.files in the config"
	}
	return ""
}

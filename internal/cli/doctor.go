package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os/exec"
	"strings"
	"time"

	"github.com/vburojevic/journalq/internal/journal"
	"github.com/vburojevic/journalq/internal/output"
)

// DoctorCmd checks journalctl, journal access and configuration
type DoctorCmd struct {
	Timeout time.Duration `default:"15s" help:"Timeout for the journal checks"`
}

// checkResult represents a single diagnostic check
type checkResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warning", "error"
	Message string `json:"message,omitempty"`
}

// doctorReport closes the NDJSON check stream
type doctorReport struct {
	Type          string `json:"type"` // Always "doctor"
	SchemaVersion int    `json:"schemaVersion"`
	Timestamp     string `json:"timestamp"`
	AllPassed     bool   `json:"all_passed"`
	ErrorCount    int    `json:"error_count"`
	WarnCount     int    `json:"warn_count"`
}

// Run executes the doctor command
func (c *DoctorCmd) Run(globals *Globals) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	checks := []checkResult{
		c.checkJournalctl(ctx, globals),
		c.checkJournal(ctx, globals),
		c.checkConfig(globals),
		c.checkListen(globals),
	}

	errorCount, warnCount := 0, 0
	for _, check := range checks {
		switch check.Status {
		case "error":
			errorCount++
		case "warning":
			warnCount++
		}
	}

	if globals.Format == "ndjson" {
		w := output.NewNDJSONWriter(globals.Stdout)
		for _, check := range checks {
			if err := w.WriteCheck(check.Name, check.Status, check.Message); err != nil {
				return err
			}
		}
		if err := w.WriteRaw(doctorReport{
			Type:          "doctor",
			SchemaVersion: output.SchemaVersion,
			Timestamp:     time.Now().Format(time.RFC3339),
			AllPassed:     errorCount == 0,
			ErrorCount:    errorCount,
			WarnCount:     warnCount,
		}); err != nil {
			return err
		}
	} else {
		w := output.NewTextWriter(globals.Stdout, colorEnabled(globals.Stdout))
		fmt.Fprintln(globals.Stdout, "journalq doctor")
		fmt.Fprintln(globals.Stdout)
		for _, check := range checks {
			if err := w.WriteCheck(check.Name, check.Status, check.Message); err != nil {
				return err
			}
		}
		fmt.Fprintln(globals.Stdout)
		if errorCount == 0 && warnCount == 0 {
			fmt.Fprintln(globals.Stdout, "All checks passed!")
		} else {
			fmt.Fprintf(globals.Stdout, "Errors: %d, Warnings: %d\n", errorCount, warnCount)
		}
	}

	if errorCount > 0 {
		return fmt.Errorf("%d doctor check(s) failed", errorCount)
	}
	return nil
}

func (c *DoctorCmd) checkJournalctl(ctx context.Context, globals *Globals) checkResult {
	bin := globals.Config.Journal.Journalctl
	path, err := exec.LookPath(bin)
	if err != nil {
		return checkResult{Name: "journalctl", Status: "error", Message: hintForQueryError(err)}
	}

	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return checkResult{Name: "journalctl", Status: "warning", Message: path + ": --version failed: " + err.Error()}
	}
	version, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return checkResult{Name: "journalctl", Status: "ok", Message: path + " (" + version + ")"}
}

func (c *DoctorCmd) checkJournal(ctx context.Context, globals *Globals) checkResult {
	cur, err := journal.OpenCursor(ctx, globals.Opener(), "")
	if err != nil {
		msg := err.Error()
		if hint := hintForQueryError(err); hint != "" {
			msg += "; " + hint
		}
		return checkResult{Name: "journal", Status: "error", Message: msg}
	}
	defer cur.Close()

	entry, err := cur.Next()
	switch {
	case errors.Is(err, io.EOF):
		return checkResult{Name: "journal", Status: "warning", Message: "journal is empty"}
	case err != nil:
		return checkResult{Name: "journal", Status: "error", Message: err.Error()}
	}
	return checkResult{
		Name:    "journal",
		Status:  "ok",
		Message: "newest entry " + entry.Time().Format(time.RFC3339),
	}
}

func (c *DoctorCmd) checkConfig(globals *Globals) checkResult {
	if globals.ConfigFile == "" {
		return checkResult{Name: "config", Status: "ok", Message: "no config file, using defaults (try `journalq config generate`)"}
	}
	cfg := globals.Config
	if cfg.Query.MaxLimit > 0 && cfg.Query.DefaultLimit > cfg.Query.MaxLimit {
		return checkResult{
			Name:    "config",
			Status:  "warning",
			Message: fmt.Sprintf("%s: query.default_limit %d exceeds query.max_limit %d", globals.ConfigFile, cfg.Query.DefaultLimit, cfg.Query.MaxLimit),
		}
	}
	return checkResult{Name: "config", Status: "ok", Message: globals.ConfigFile}
}

func (c *DoctorCmd) checkListen(globals *Globals) checkResult {
	addr := globals.Config.Server.Listen
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return checkResult{Name: "listen", Status: "error", Message: fmt.Sprintf("server.listen %q: %v", addr, err)}
	}
	return checkResult{Name: "listen", Status: "ok", Message: addr}
}

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/vburojevic/journalq/internal/config"
)

// ConfigCmd shows or manages configuration
type ConfigCmd struct {
	Show     ConfigShowCmd     `cmd:"" default:"withargs" help:"Show current configuration"`
	Path     ConfigPathCmd     `cmd:"" help:"Show configuration file path"`
	Generate ConfigGenerateCmd `cmd:"" help:"Generate sample configuration file"`
}

// ConfigShowCmd shows current configuration
type ConfigShowCmd struct{}

// Run executes the config show command
func (c *ConfigShowCmd) Run(globals *Globals) error {
	cfg := globals.Config
	if cfg == nil {
		cfg = config.Default()
	}

	if globals.Format == "ndjson" {
		output := map[string]interface{}{
			"type":    "config",
			"file":    globals.ConfigFile,
			"log":     cfg.Log,
			"server":  cfg.Server,
			"journal": cfg.Journal,
			"query":   cfg.Query,
		}
		encoder := json.NewEncoder(globals.Stdout)
		return encoder.Encode(output)
	}

	// Text output
	fmt.Fprintln(globals.Stdout, "Current Configuration:")
	fmt.Fprintln(globals.Stdout, "")
	fmt.Fprintln(globals.Stdout, "Log:")
	fmt.Fprintf(globals.Stdout, "  level:  %s\n", cfg.Log.Level)
	fmt.Fprintf(globals.Stdout, "  format: %s\n", cfg.Log.Format)
	fmt.Fprintln(globals.Stdout, "Server:")
	fmt.Fprintf(globals.Stdout, "  listen:          %s\n", cfg.Server.Listen)
	fmt.Fprintf(globals.Stdout, "  request_timeout: %s\n", cfg.Server.RequestTimeout)
	fmt.Fprintf(globals.Stdout, "  rate_limit:      %g/s (burst %d)\n", cfg.Server.RateLimit, cfg.Server.RateBurst)
	fmt.Fprintf(globals.Stdout, "  gzip:            %v\n", cfg.Server.Gzip)
	fmt.Fprintf(globals.Stdout, "  metrics:         %v\n", cfg.Server.Metrics)
	fmt.Fprintln(globals.Stdout, "Journal:")
	fmt.Fprintf(globals.Stdout, "  journalctl: %s\n", cfg.Journal.Journalctl)
	if cfg.Journal.Directory != "" {
		fmt.Fprintf(globals.Stdout, "  directory:  %s\n", cfg.Journal.Directory)
	}
	if len(cfg.Journal.Files) > 0 {
		fmt.Fprintf(globals.Stdout, "  files:      %v\n", cfg.Journal.Files)
	}
	fmt.Fprintf(globals.Stdout, "  merge:      %v\n", cfg.Journal.Merge)
	fmt.Fprintf(globals.Stdout, "  user:       %v\n", cfg.Journal.User)
	fmt.Fprintln(globals.Stdout, "Query:")
	fmt.Fprintf(globals.Stdout, "  default_limit: %d\n", cfg.Query.DefaultLimit)
	fmt.Fprintf(globals.Stdout, "  max_limit:     %d\n", cfg.Query.MaxLimit)

	if globals.ConfigFile != "" {
		fmt.Fprintln(globals.Stdout, "")
		fmt.Fprintf(globals.Stdout, "Loaded from: %s\n", globals.ConfigFile)
	}

	return nil
}

// ConfigPathCmd shows config file path
type ConfigPathCmd struct{}

// Run executes the config path command
func (c *ConfigPathCmd) Run(globals *Globals) error {
	path := globals.ConfigFile
	if path == "" {
		path = config.ConfigFile()
	}

	if globals.Format == "ndjson" {
		output := map[string]interface{}{
			"type": "config_path",
			"path": path,
		}
		encoder := json.NewEncoder(globals.Stdout)
		return encoder.Encode(output)
	}

	if path == "" {
		fmt.Fprintln(globals.Stdout, "No configuration file found")
		fmt.Fprintln(globals.Stdout, "")
		fmt.Fprintln(globals.Stdout, "Create one at:")
		fmt.Fprintln(globals.Stdout, "  ./journalq.yaml")
		fmt.Fprintln(globals.Stdout, "  ~/.journalq.yaml")
		fmt.Fprintln(globals.Stdout, "  ~/.config/journalq/config.yaml")
		fmt.Fprintln(globals.Stdout, "  /etc/journalq/config.yaml")
	} else {
		fmt.Fprintf(globals.Stdout, "Config file: %s\n", path)
	}

	return nil
}

// ConfigGenerateCmd generates a sample configuration file
type ConfigGenerateCmd struct{}

// Run executes the config generate command
func (c *ConfigGenerateCmd) Run(globals *Globals) error {
	sampleConfig := `# journalq configuration file
# Place this file at ./journalq.yaml, ~/.journalq.yaml,
# ~/.config/journalq/config.yaml or /etc/journalq/config.yaml.
# JOURNALQ_* environment variables (and a .env file) override these values.

log:
  # debug, info, warn, error
  level: info
  # auto (console on a terminal, json otherwise), json, console
  format: auto

server:
  listen: "127.0.0.1:8080"
  # Deadline for one /logs request; the entries read so far are returned
  request_timeout: 10s
  # Requests per second on /logs (0 disables the limiter)
  rate_limit: 20
  rate_burst: 40
  gzip: true
  # Serve Prometheus metrics on /metrics
  metrics: true

journal:
  journalctl: journalctl
  # Read journal files from a directory instead of the system journal
  # directory: /var/log/journal/remote
  # files:
  #   - /var/log/journal/system.journal
  merge: false
  user: false

query:
  # Entries returned when a request has no n
  default_limit: 100
  # Upper bound for n (0 = unbounded)
  max_limit: 10000
`

	fmt.Fprint(globals.Stdout, sampleConfig)
	return nil
}

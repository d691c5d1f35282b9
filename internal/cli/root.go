package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/vburojevic/journalq/internal/config"
	"github.com/vburojevic/journalq/internal/journal"
	"github.com/vburojevic/journalq/internal/logging"
)

// CLI is the root command structure for journalq
type CLI struct {
	// Global flags
	Format     string `short:"f" default:"ndjson" enum:"ndjson,text" help:"Output format"`
	Quiet      bool   `short:"q" help:"Suppress non-log output (summaries, info lines)"`
	Verbose    bool   `short:"v" help:"Show debug output (journalctl arguments and diagnostics)"`
	ConfigPath string `name:"config" type:"path" help:"Config file (default: search ./.journalq.yaml, ~/.journalq.yaml, ~/.config/journalq, /etc/journalq)"`

	// Commands
	Serve   ServeCmd   `cmd:"" help:"Serve journal queries over HTTP"`
	Query   QueryCmd   `cmd:"" help:"Run one journal query and print the result"`
	Doctor  DoctorCmd  `cmd:"" help:"Check journalctl, journal access and configuration"`
	Config  ConfigCmd  `cmd:"" help:"Show or manage configuration"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

// Globals holds shared state for all commands
type Globals struct {
	Format     string
	Quiet      bool
	Verbose    bool
	Stdout     io.Writer
	Stderr     io.Writer
	Config     *config.Config
	ConfigFile string // file the config was loaded from, "" for defaults
}

// NewGlobals creates a new Globals instance from CLI flags and loaded config
func NewGlobals(cli *CLI, cfg *config.Config, configFile string) *Globals {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Globals{
		Format:     cli.Format,
		Quiet:      cli.Quiet,
		Verbose:    cli.Verbose,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		Config:     cfg,
		ConfigFile: configFile,
	}
}

// Debug prints a debug message if verbose mode is enabled
func (g *Globals) Debug(format string, args ...interface{}) {
	if g.Verbose {
		fmt.Fprintf(g.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// Logger builds the zap logger from config; --verbose forces debug level.
func (g *Globals) Logger() (*zap.Logger, error) {
	level := g.Config.Log.Level
	if g.Verbose {
		level = "debug"
	}
	return logging.New(level, g.Config.Log.Format, g.Stderr)
}

// Opener builds the journalctl opener described by the journal config
func (g *Globals) Opener() *journal.Journalctl {
	jc := g.Config.Journal
	j := journal.NewJournalctl(journal.JournalctlOptions{
		Binary:    jc.Journalctl,
		Directory: jc.Directory,
		Files:     jc.Files,
		Merge:     jc.Merge,
		User:      jc.User,
		OnStderrLine: func(line string) {
			g.Debug("journalctl: %s", line)
		},
	})
	g.Debug("journalctl args: %v", j.Args(""))
	return j
}

// colorEnabled reports whether w is a terminal
func colorEnabled(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// VersionCmd shows version information
type VersionCmd struct{}

// Run executes the version command
func (v *VersionCmd) Run(globals *Globals) error {
	if globals.Format == "ndjson" {
		_, err := io.WriteString(globals.Stdout, `{"type":"version","version":"`+Version+`","commit":"`+Commit+`"}`+"\n")
		return err
	}
	_, err := io.WriteString(globals.Stdout, "journalq version "+Version+" ("+Commit+")\n")
	return err
}

// Version information (set at build time)
var (
	Version = "dev"
	Commit  = "none"
)

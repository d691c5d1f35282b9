package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/vburojevic/journalq/internal/cli"
	"github.com/vburojevic/journalq/internal/config"
)

func main() {
	var c cli.CLI

	ctx := kong.Parse(&c,
		kong.Name("journalq"),
		kong.Description("journalq: read-only HTTP endpoint over the systemd journal\n\nSTART HERE: journalq serve, then GET /logs?n=50&severity=warning"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
	)

	// Load configuration from --config, or the search path, plus environment.
	cfg, path, err := config.LoadWithPath(c.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.Default()
		path = ""
	}

	globals := cli.NewGlobals(&c, cfg, path)
	if err := ctx.Run(globals); err != nil {
		os.Exit(1)
	}
}

package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vburojevic/journalq/internal/domain"
	"github.com/vburojevic/journalq/internal/output"
	"github.com/vburojevic/journalq/internal/query"
)

// QueryCmd runs one journal query, newest entries first
type QueryCmd struct {
	Limit    int           `short:"n" default:"-1" help:"Maximum entries to return (default: query.default_limit)"`
	Severity string        `short:"s" help:"Lowest severity to include: error, warning or info"`
	LastSecs int64         `name:"last-secs" default:"-1" help:"Only entries from the last N seconds"`
	Cursor   string        `short:"c" help:"Resume from this cursor (the last_cursor of a previous query)"`
	Timeout  time.Duration `default:"30s" help:"Give up reading after this long and print what was found"`
}

// Run executes the query command
func (c *QueryCmd) Run(globals *Globals) error {
	if c.Severity != "" {
		if _, ok := domain.ParseSeverityName(c.Severity); !ok {
			return outputErrorCommon(globals, "INVALID_SEVERITY",
				fmt.Sprintf("unknown severity %q", c.Severity), "Use error, warning or info")
		}
	}

	logger, err := globals.Logger()
	if err != nil {
		return outputErrorCommon(globals, "INVALID_CONFIG", err.Error())
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	engine := query.NewEngine(globals.Opener(),
		query.WithLogger(logger),
		query.WithMaxLimit(globals.Config.Query.MaxLimit),
	)

	res, err := engine.Query(ctx, c.params(globals))
	if err != nil {
		return outputErrorCommon(globals, codeForQueryError(err), err.Error(), hintForQueryError(err))
	}
	logger.Debug("query finished",
		zap.Int("entries", len(res.Entries)),
		zap.Int("skipped", res.Skipped),
		zap.String("stop", string(res.Stop)),
	)

	if err := c.print(globals, res); err != nil {
		return err
	}
	if res.ReadErr != nil {
		return fmt.Errorf("journal read stopped early: %w", res.ReadErr)
	}
	return nil
}

func (c *QueryCmd) params(globals *Globals) domain.QueryParameters {
	limit := c.Limit
	if limit < 0 {
		limit = globals.Config.Query.DefaultLimit
		// a non-positive default_limit means the built-in default
		if limit <= 0 {
			limit = domain.DefaultLimit
		}
	}
	params := domain.QueryParameters{
		Limit:       &limit,
		MinSeverity: c.Severity,
		Cursor:      c.Cursor,
	}
	if c.LastSecs >= 0 {
		secs := c.LastSecs
		params.SinceSeconds = &secs
	}
	return params
}

func (c *QueryCmd) print(globals *Globals, res domain.QueryResult) error {
	summary := domain.NewQuerySummary(res)

	if globals.Format == "ndjson" {
		w := output.NewNDJSONWriter(globals.Stdout)
		for i := range res.Entries {
			if err := w.Write(&res.Entries[i]); err != nil {
				return err
			}
		}
		if globals.Quiet {
			return nil
		}
		return w.WriteSummary(summary)
	}

	w := output.NewTextWriter(globals.Stdout, colorEnabled(globals.Stdout))
	for i := range res.Entries {
		if err := w.Write(&res.Entries[i]); err != nil {
			return err
		}
	}
	if globals.Quiet {
		return w.Flush()
	}
	return w.WriteSummary(summary)
}

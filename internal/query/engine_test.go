package query

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vburojevic/journalq/internal/domain"
	"github.com/vburojevic/journalq/internal/journal"
	"github.com/vburojevic/journalq/internal/journal/journaltest"
	"github.com/vburojevic/journalq/internal/metrics"
)

func intPtr(n int) *int       { return &n }
func int64Ptr(n int64) *int64 { return &n }

// scenarioJournal holds priorities [6, 2, 4, 2] at timestamps [100, 200, 300, 400].
func scenarioJournal() *journaltest.Journal {
	return journaltest.New(
		journaltest.NewRecord("c100", "6", 100, "started"),
		journaltest.NewRecord("c200", "2", 200, "crashed"),
		journaltest.NewRecord("c300", "4", 300, "degraded"),
		journaltest.NewRecord("c400", "2", 400, "crashed again"),
	)
}

func timestamps(entries []domain.LogEntry) []int64 {
	out := make([]int64, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Timestamp)
	}
	return out
}

func newTestEngine(t *testing.T, j journal.Opener, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	return NewEngine(j, opts...)
}

func TestQueryScenarios(t *testing.T) {
	ctx := context.Background()

	t.Run("warning threshold skips info", func(t *testing.T) {
		j := scenarioJournal()
		res, err := newTestEngine(t, j).Query(ctx, domain.QueryParameters{
			Limit:       intPtr(10),
			MinSeverity: "warning",
		})
		require.NoError(t, err)

		assert.Equal(t, []int64{400, 300, 200}, timestamps(res.Entries))
		assert.Equal(t, []domain.Severity{domain.SeverityError, domain.SeverityWarning, domain.SeverityError},
			[]domain.Severity{res.Entries[0].Severity, res.Entries[1].Severity, res.Entries[2].Severity})
		assert.Equal(t, "c200", res.LastCursor)
		assert.Equal(t, 1, res.Skipped)
		assert.Equal(t, domain.StopExhausted, res.Stop)
		assert.Equal(t, 0, j.Outstanding())
	})

	t.Run("limit then resume", func(t *testing.T) {
		j := scenarioJournal()
		e := newTestEngine(t, j)

		first, err := e.Query(ctx, domain.QueryParameters{Limit: intPtr(2)})
		require.NoError(t, err)
		assert.Equal(t, []int64{400, 300}, timestamps(first.Entries))
		assert.Equal(t, "c300", first.LastCursor)
		assert.Equal(t, domain.StopLimit, first.Stop)

		second, err := e.Query(ctx, domain.QueryParameters{Limit: intPtr(10), Cursor: first.LastCursor})
		require.NoError(t, err)
		assert.Equal(t, []int64{200, 100}, timestamps(second.Entries))
		assert.Equal(t, "c100", second.LastCursor)
		assert.Equal(t, 0, j.Outstanding())
	})
}

func TestQueryDefaults(t *testing.T) {
	var records []journaltest.Record
	for i := 1; i <= 150; i++ {
		records = append(records, journaltest.NewRecord(fmt.Sprintf("c%d", i), "6", int64(i), "tick"))
	}
	j := journaltest.New(records...)

	res, err := newTestEngine(t, j).Query(context.Background(), domain.QueryParameters{})
	require.NoError(t, err)
	assert.Len(t, res.Entries, domain.DefaultLimit)
	assert.Equal(t, int64(150), res.Entries[0].Timestamp)
	assert.Equal(t, "c51", res.LastCursor)
}

func TestQueryLimitZero(t *testing.T) {
	j := scenarioJournal()
	res, err := newTestEngine(t, j).Query(context.Background(), domain.QueryParameters{Limit: intPtr(0)})
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
	assert.Equal(t, "", res.LastCursor)
	assert.Equal(t, 0, j.Reads(), "limit 0 must not read the journal")
	assert.Equal(t, 0, j.Outstanding())
}

func TestQueryMaxLimit(t *testing.T) {
	j := scenarioJournal()
	res, err := newTestEngine(t, j, WithMaxLimit(3)).Query(context.Background(), domain.QueryParameters{Limit: intPtr(1000)})
	require.NoError(t, err)
	assert.Len(t, res.Entries, 3)
}

func TestQuerySinceSeconds(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	mock := clock.NewMock()
	mock.Set(now)

	us := func(d time.Duration) int64 { return now.Add(-d).UnixMicro() }
	j := journaltest.New(
		journaltest.NewRecord("old-error", "0", us(2*time.Hour), "ancient failure"),
		journaltest.NewRecord("a", "6", us(50*time.Minute), "a"),
		journaltest.NewRecord("b", "3", us(20*time.Minute), "b"),
		journaltest.NewRecord("c", "6", us(5*time.Minute), "c"),
		journaltest.NewRecord("d", "5", us(time.Minute), "d"),
	)

	e := newTestEngine(t, j, WithClock(mock))

	t.Run("stops at the time bound", func(t *testing.T) {
		res, err := e.Query(context.Background(), domain.QueryParameters{SinceSeconds: int64Ptr(30 * 60)})
		require.NoError(t, err)
		assert.Equal(t, []string{"d", "c", "b"}, positionsOf(res.Entries))
		assert.Equal(t, domain.StopTimeBound, res.Stop)
	})

	t.Run("time bound is a stop, not a skip", func(t *testing.T) {
		before := j.Reads()
		res, err := e.Query(context.Background(), domain.QueryParameters{
			SinceSeconds: int64Ptr(30 * 60),
			MinSeverity:  "error",
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, positionsOf(res.Entries))
		// d, c, b, then a (too old) ends the walk; old-error is never read.
		assert.Equal(t, 4, j.Reads()-before)
	})

	t.Run("window older than the epoch returns everything", func(t *testing.T) {
		for _, secs := range []int64{10_000_000_000, math.MaxInt64} {
			res, err := e.Query(context.Background(), domain.QueryParameters{SinceSeconds: int64Ptr(secs)})
			require.NoError(t, err)
			assert.Equal(t, []string{"d", "c", "b", "a", "old-error"}, positionsOf(res.Entries), "since=%d", secs)
			assert.Equal(t, domain.StopExhausted, res.Stop)
		}
	})

	t.Run("zero seconds excludes everything in the past", func(t *testing.T) {
		res, err := e.Query(context.Background(), domain.QueryParameters{SinceSeconds: int64Ptr(0)})
		require.NoError(t, err)
		assert.Empty(t, res.Entries)
		assert.Equal(t, domain.StopTimeBound, res.Stop)
	})
}

func positionsOf(entries []domain.LogEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Position)
	}
	return out
}

func TestQueryUnknownSeverityDoesNotFilter(t *testing.T) {
	for _, sev := range []string{"critical", "info", ""} {
		res, err := newTestEngine(t, scenarioJournal()).Query(context.Background(), domain.QueryParameters{MinSeverity: sev})
		require.NoError(t, err)
		assert.Len(t, res.Entries, 4, "severity=%q", sev)
		assert.Zero(t, res.Skipped, "severity=%q", sev)
	}
}

func TestQueryInvalidCursor(t *testing.T) {
	j := scenarioJournal()
	res, err := newTestEngine(t, j).Query(context.Background(), domain.QueryParameters{Cursor: "gone"})
	require.Error(t, err)

	var openErr *journal.OpenError
	assert.ErrorAs(t, err, &openErr)
	assert.ErrorIs(t, err, journal.ErrCursorNotFound)
	assert.Empty(t, res.Entries)
	assert.Equal(t, 0, j.Outstanding())
}

func TestQueryOpenFailure(t *testing.T) {
	j := scenarioJournal()
	j.OpenErr = errors.New("no journal files")
	reg := prometheus.NewRegistry()
	m := metrics.NewQueryMetrics(reg)

	_, err := newTestEngine(t, j, WithMetrics(m)).Query(context.Background(), domain.QueryParameters{})
	var openErr *journal.OpenError
	require.ErrorAs(t, err, &openErr)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("open_error")))
}

func TestQueryReadErrorReturnsPartialResult(t *testing.T) {
	j := scenarioJournal()
	j.FailAfter = 2
	m := metrics.NewQueryMetrics(prometheus.NewRegistry())

	res, err := newTestEngine(t, j, WithMetrics(m)).Query(context.Background(), domain.QueryParameters{Limit: intPtr(10)})
	require.NoError(t, err)
	assert.Equal(t, []int64{400, 300}, timestamps(res.Entries))
	assert.Equal(t, "c300", res.LastCursor)
	assert.Equal(t, domain.StopReadError, res.Stop)

	var readErr *journal.ReadError
	assert.ErrorAs(t, res.ReadErr, &readErr)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReadErrorsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("read_error")))
	assert.Equal(t, 0, j.Outstanding())
}

func TestQueryCancelledReturnsPartialResult(t *testing.T) {
	j := scenarioJournal()
	ctx, cancel := context.WithCancel(context.Background())

	e := newTestEngine(t, cancelAfter{Opener: j, reads: 1, cancel: cancel})
	res, err := e.Query(ctx, domain.QueryParameters{Limit: intPtr(10)})
	require.NoError(t, err)
	assert.Equal(t, []int64{400}, timestamps(res.Entries))
	assert.Equal(t, "c400", res.LastCursor)
	assert.Equal(t, domain.StopCancelled, res.Stop)
	assert.Equal(t, 0, j.Outstanding())
}

// cancelAfter cancels the query context after a number of records were read.
type cancelAfter struct {
	journal.Opener
	reads  int
	cancel context.CancelFunc
}

func (c cancelAfter) Open(ctx context.Context) (journal.Reader, error) {
	r, err := c.Opener.Open(ctx)
	if err != nil {
		return nil, err
	}
	return &cancellingReader{Reader: r, left: c.reads, cancel: c.cancel}, nil
}

type cancellingReader struct {
	journal.Reader
	left   int
	cancel context.CancelFunc
}

func (r *cancellingReader) Previous() (journal.Record, error) {
	rec, err := r.Reader.Previous()
	r.left--
	if r.left <= 0 {
		r.cancel()
	}
	return rec, err
}

func TestQueryIdempotentPoll(t *testing.T) {
	j := scenarioJournal()
	e := newTestEngine(t, j)

	first, err := e.Query(context.Background(), domain.QueryParameters{Limit: intPtr(3)})
	require.NoError(t, err)
	second, err := e.Query(context.Background(), domain.QueryParameters{Limit: intPtr(3)})
	require.NoError(t, err)
	assert.Equal(t, first.Entries, second.Entries)
	assert.Equal(t, first.LastCursor, second.LastCursor)

	t.Run("exhausted cursor echoes the caller's cursor", func(t *testing.T) {
		res, err := e.Query(context.Background(), domain.QueryParameters{Cursor: "c100"})
		require.NoError(t, err)
		assert.Empty(t, res.Entries)
		assert.Equal(t, "c100", res.LastCursor)
	})
}

func TestQueryResumptionHasNoGapOrDuplicate(t *testing.T) {
	var records []journaltest.Record
	priorities := []string{"6", "3", "5", "7", "0", "4", "6", "2", "6", "1", "5", "6"}
	for i, p := range priorities {
		records = append(records, journaltest.NewRecord(fmt.Sprintf("c%02d", i), p, int64(100*(i+1)), "m"))
	}
	j := journaltest.New(records...)
	e := newTestEngine(t, j)

	for _, sev := range []string{"", "warning", "error"} {
		for k := 1; k <= 5; k++ {
			t.Run(fmt.Sprintf("severity=%q k=%d", sev, k), func(t *testing.T) {
				whole, err := e.Query(context.Background(), domain.QueryParameters{Limit: intPtr(2 * k), MinSeverity: sev})
				require.NoError(t, err)

				first, err := e.Query(context.Background(), domain.QueryParameters{Limit: intPtr(k), MinSeverity: sev})
				require.NoError(t, err)
				second, err := e.Query(context.Background(), domain.QueryParameters{Limit: intPtr(k), MinSeverity: sev, Cursor: first.LastCursor})
				require.NoError(t, err)

				combined := append(append([]domain.LogEntry{}, first.Entries...), second.Entries...)
				require.LessOrEqual(t, len(combined), len(whole.Entries))
				assert.Equal(t, whole.Entries[:len(combined)], combined)
			})
		}
	}
}

func TestQueryInvariants(t *testing.T) {
	var records []journaltest.Record
	for i := 0; i < 40; i++ {
		records = append(records, journaltest.NewRecord(fmt.Sprintf("c%d", i), fmt.Sprint(i%8), int64(1000+i*7), "m"))
	}
	e := newTestEngine(t, journaltest.New(records...))

	for _, limit := range []int{0, 1, 7, 40, 100} {
		for _, sev := range []string{"", "error", "warning", "info", "bogus"} {
			res, err := e.Query(context.Background(), domain.QueryParameters{Limit: intPtr(limit), MinSeverity: sev})
			require.NoError(t, err)
			assert.LessOrEqual(t, len(res.Entries), limit)

			for i := 1; i < len(res.Entries); i++ {
				assert.LessOrEqual(t, res.Entries[i].Timestamp, res.Entries[i-1].Timestamp)
			}
			if sev == "warning" {
				for _, entry := range res.Entries {
					assert.LessOrEqual(t, entry.Severity.Cardinality(), 1)
				}
			}
		}
	}
}

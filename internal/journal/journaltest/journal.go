// Package journaltest provides an in-memory journal for tests.
package journaltest

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"

	"github.com/vburojevic/journalq/internal/journal"
)

// Record is a raw journal record held as a field map
type Record map[string]string

// NewRecord builds a record with the fields the decoder reads.
// An empty priority leaves PRIORITY unset; a zero ts leaves the wallclock unset.
func NewRecord(cursor, priority string, ts int64, message string) Record {
	r := Record{journal.FieldCursor: cursor}
	if priority != "" {
		r[journal.FieldPriority] = priority
	}
	if ts != 0 {
		r[journal.FieldRealtime] = strconv.FormatInt(ts, 10)
	}
	if message != "" {
		r[journal.FieldMessage] = message
	}
	return r
}

// WithUnit sets _SYSTEMD_UNIT
func (r Record) WithUnit(unit string) Record {
	r[journal.FieldUnit] = unit
	return r
}

func (r Record) Field(name string) (string, bool) {
	v, ok := r[name]
	return v, ok
}

func (r Record) Message() (string, bool) { return r.Field(journal.FieldMessage) }

func (r Record) WallclockMicros() (int64, bool) {
	v, ok := r[journal.FieldRealtime]
	if !ok {
		return 0, false
	}
	us, err := strconv.ParseInt(v, 10, 64)
	return us, err == nil
}

func (r Record) UniqueID() string { return r[journal.FieldCursor] }

// Journal is an append-only in-memory journal, oldest record first.
// Each reader sees a snapshot taken when it was opened.
type Journal struct {
	mu      sync.Mutex
	records []Record

	// OpenErr makes every Open fail
	OpenErr error
	// FailAfter makes readers fail on the read after this many successful
	// reads; zero disables it.
	FailAfter int

	opened int
	closed int
	reads  int
}

// New creates a journal holding records (oldest first)
func New(records ...Record) *Journal {
	return &Journal{records: records}
}

// Append adds newer records
func (j *Journal) Append(records ...Record) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, records...)
}

// Open implements journal.Opener
func (j *Journal) Open(ctx context.Context) (journal.Reader, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.OpenErr != nil {
		return nil, j.OpenErr
	}
	j.opened++
	snap := make([]Record, len(j.records))
	copy(snap, j.records)
	return &reader{j: j, records: snap, pos: -1}, nil
}

// Outstanding returns the number of readers opened but not closed
func (j *Journal) Outstanding() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.opened - j.closed
}

// Reads returns the total number of Previous calls that yielded a record
func (j *Journal) Reads() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.reads
}

var errInjected = errors.New("injected read failure")

type reader struct {
	j       *Journal
	records []Record
	pos     int // index of the record the next Previous returns, plus one
	reads   int
	closed  bool
}

func (r *reader) SeekTail() error {
	r.pos = len(r.records)
	return nil
}

func (r *reader) SeekCursor(cursor string) error {
	for i, rec := range r.records {
		if rec.UniqueID() == cursor {
			r.pos = i
			return nil
		}
	}
	return journal.ErrCursorNotFound
}

func (r *reader) Previous() (journal.Record, error) {
	if r.closed {
		return nil, errors.New("reader closed")
	}
	if r.pos < 0 {
		return nil, errors.New("reader not positioned")
	}
	if r.j.FailAfter > 0 && r.reads >= r.j.FailAfter {
		return nil, errInjected
	}
	if r.pos == 0 {
		return nil, io.EOF
	}
	r.pos--
	r.reads++
	r.j.mu.Lock()
	r.j.reads++
	r.j.mu.Unlock()
	return r.records[r.pos], nil
}

func (r *reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.j.mu.Lock()
	r.j.closed++
	r.j.mu.Unlock()
	return nil
}

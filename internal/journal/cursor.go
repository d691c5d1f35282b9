package journal

import (
	"context"
	"errors"
	"io"

	"github.com/vburojevic/journalq/internal/domain"
)

// Cursor walks the journal backwards, one decoded entry per Next call.
// It cannot be rewound; once Next returns an error every later call returns
// the same error.
type Cursor struct {
	reader Reader
	err    error
}

// OpenCursor opens a reader and positions it at the tail, or on the record
// named by position when one is given. Failures are *OpenError.
func OpenCursor(ctx context.Context, opener Opener, position string) (*Cursor, error) {
	r, err := opener.Open(ctx)
	if err != nil {
		return nil, &OpenError{Op: "open", Err: err}
	}

	op := "seek tail"
	if position == "" {
		err = r.SeekTail()
	} else {
		op = "seek cursor"
		err = r.SeekCursor(position)
	}
	if err != nil {
		_ = r.Close()
		return nil, &OpenError{Op: op, Err: err}
	}

	return &Cursor{reader: r}, nil
}

// Next returns the next older entry, io.EOF at the head of the journal, or
// a *ReadError when the reader fails.
func (c *Cursor) Next() (domain.LogEntry, error) {
	if c.err != nil {
		return domain.LogEntry{}, c.err
	}
	if c.reader == nil {
		return domain.LogEntry{}, ErrCursorClosed
	}

	rec, err := c.reader.Previous()
	if err != nil {
		if errors.Is(err, io.EOF) {
			c.err = io.EOF
		} else {
			c.err = &ReadError{Err: err}
		}
		return domain.LogEntry{}, c.err
	}
	return Decode(rec), nil
}

// Close releases the underlying reader. It is safe to call more than once.
func (c *Cursor) Close() error {
	if c.reader == nil {
		return nil
	}
	err := c.reader.Close()
	c.reader = nil
	return err
}

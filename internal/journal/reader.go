// Package journal reads the systemd journal backwards and decodes its records.
//
// The package is split into the collaborator boundary (Opener, Reader,
// Record), a journalctl-backed implementation of that boundary, and the
// Cursor that the query engine drives one record at a time.
package journal

import (
	"context"
	"errors"
	"fmt"
)

// Journal field names consumed by the decoder
const (
	FieldMessage   = "MESSAGE"
	FieldPriority  = "PRIORITY"
	FieldUnit      = "_SYSTEMD_UNIT"
	FieldRealtime  = "__REALTIME_TIMESTAMP"
	FieldCursor    = "__CURSOR"
	FieldMonotonic = "__MONOTONIC_TIMESTAMP"
)

var (
	// ErrCursorNotFound is returned when a cursor does not name a record
	// present in the journal (malformed token, rotated away, other machine).
	ErrCursorNotFound = errors.New("cursor not found in journal")
	// ErrCursorClosed is returned by Next after Close
	ErrCursorClosed = errors.New("cursor closed")
)

// Opener opens independent readers over the same journal
type Opener interface {
	Open(ctx context.Context) (Reader, error)
}

// Reader is a single positioned handle on the journal.
// A Reader is owned by one goroutine.
type Reader interface {
	// SeekTail positions the reader after the most recent record.
	SeekTail() error
	// SeekCursor positions the reader on the record named by cursor so that
	// the next Previous call yields the record just before it.
	SeekCursor(cursor string) error
	// Previous steps one record into the past. It returns io.EOF once no
	// earlier record exists.
	Previous() (Record, error)
	Close() error
}

// Record exposes the raw fields of one journal record
type Record interface {
	Field(name string) (string, bool)
	Message() (string, bool)
	WallclockMicros() (int64, bool)
	UniqueID() string
}

// OpenError reports that the journal could not be opened or positioned.
// Retrying with the same cursor cannot succeed.
type OpenError struct {
	Op  string
	Err error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("journal %s: %v", e.Op, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// ReadError reports a failure while stepping through the journal
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("journal read: %v", e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

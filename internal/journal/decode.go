package journal

import "github.com/vburojevic/journalq/internal/domain"

// Decode converts a raw record into a LogEntry. Missing fields fall back to
// empty strings, Info severity and a zero timestamp.
func Decode(rec Record) domain.LogEntry {
	msg, _ := rec.Message()
	origin, _ := rec.Field(FieldUnit)
	ts, _ := rec.WallclockMicros()
	return domain.LogEntry{
		Message:   msg,
		Severity:  domain.ClassifyPriority(rec.Field(FieldPriority)),
		Origin:    origin,
		Timestamp: ts,
		Position:  rec.UniqueID(),
	}
}

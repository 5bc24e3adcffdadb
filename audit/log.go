package audit

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rustyeddy/riskgate/internal/id"
)

// Sink receives every appended record, e.g. the SQLite store for
// durable retention behind the in-memory log.
type Sink interface {
	Append(Record) error
}

// Log is an append-only sequence of audit records with optional
// bounded retention. Like the budget tracker it is owned by a single
// gate and mutated sequentially; it is not safe for concurrent use.
type Log struct {
	retention int // 0 = unbounded
	records   []Record
	sink      Sink
}

// NewLog returns a log keeping at most retention records in memory;
// retention <= 0 means unbounded.
func NewLog(retention int) *Log {
	if retention < 0 {
		retention = 0
	}
	return &Log{retention: retention}
}

// WithSink attaches a durable sink and returns the log.
func (l *Log) WithSink(s Sink) *Log {
	l.sink = s
	return l
}

// Append adds a record, assigning an ID when missing. Sink failures
// are reported but never drop the in-memory entry; the trail must be
// complete regardless of outcome.
func (l *Log) Append(r Record) error {
	if r.ID == "" {
		r.ID = id.New()
	}
	l.records = append(l.records, r)
	if l.retention > 0 && len(l.records) > l.retention {
		l.records = l.records[len(l.records)-l.retention:]
	}
	if l.sink != nil {
		if err := l.sink.Append(r); err != nil {
			return fmt.Errorf("audit sink: %w", err)
		}
	}
	return nil
}

// Len returns the number of retained records.
func (l *Log) Len() int { return len(l.records) }

// Recent returns the most recent n records in insertion order. n <= 0
// or n beyond the retained length returns everything retained.
func (l *Log) Recent(n int) []Record {
	if n <= 0 || n > len(l.records) {
		n = len(l.records)
	}
	out := make([]Record, n)
	copy(out, l.records[len(l.records)-n:])
	return out
}

// ExportJSONL writes the retained records to w as line-oriented JSON,
// one record per line, oldest first.
func (l *Log) ExportJSONL(w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, r := range l.records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("export audit record %s: %w", r.ID, err)
		}
	}
	return nil
}

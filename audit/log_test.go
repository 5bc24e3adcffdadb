package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(i int) Record {
	return Record{
		T:               time.Date(2026, 8, 28, 14, 0, i, 0, time.UTC),
		Symbol:          "XSP",
		Width:           1.0,
		Credit:          0.22,
		Contracts:       1,
		DailyCap:        500,
		RemainingBudget: 500 - float64(i),
		Decision:        Approved,
	}
}

func TestLogAssignsIDs(t *testing.T) {
	t.Parallel()

	l := NewLog(0)
	require.NoError(t, l.Append(record(1)))
	require.NoError(t, l.Append(record(2)))

	recs := l.Recent(0)
	require.Len(t, recs, 2)
	assert.NotEmpty(t, recs[0].ID)
	assert.NotEmpty(t, recs[1].ID)
	assert.NotEqual(t, recs[0].ID, recs[1].ID)
}

func TestLogRetention(t *testing.T) {
	t.Parallel()

	l := NewLog(3)
	for i := 0; i < 10; i++ {
		require.NoError(t, l.Append(record(i)))
	}

	assert.Equal(t, 3, l.Len())
	recs := l.Recent(0)
	require.Len(t, recs, 3)
	// The oldest entries were evicted; the last three survive in
	// insertion order.
	assert.InDelta(t, 493.0, recs[0].RemainingBudget, 1e-9)
	assert.InDelta(t, 491.0, recs[2].RemainingBudget, 1e-9)
}

func TestLogRecent(t *testing.T) {
	t.Parallel()

	l := NewLog(0)
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Append(record(i)))
	}

	recs := l.Recent(2)
	require.Len(t, recs, 2)
	assert.InDelta(t, 497.0, recs[0].RemainingBudget, 1e-9)
	assert.InDelta(t, 496.0, recs[1].RemainingBudget, 1e-9)

	// Asking for more than retained returns everything.
	assert.Len(t, l.Recent(50), 5)
}

func TestExportJSONL(t *testing.T) {
	t.Parallel()

	l := NewLog(0)
	rejected := record(1)
	rejected.Decision = Rejected
	rejected.Reason = "INSUFFICIENT_BUDGET"
	require.NoError(t, l.Append(record(0)))
	require.NoError(t, l.Append(rejected))

	var buf bytes.Buffer
	require.NoError(t, l.ExportJSONL(&buf))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var got Record
	require.NoError(t, json.Unmarshal(lines[1], &got))
	assert.Equal(t, Rejected, got.Decision)
	assert.Equal(t, "INSUFFICIENT_BUDGET", got.Reason)
}

type failingSink struct{}

func (failingSink) Append(Record) error { return fmt.Errorf("disk full") }

func TestSinkFailureKeepsRecord(t *testing.T) {
	t.Parallel()

	l := NewLog(0).WithSink(failingSink{})
	err := l.Append(record(1))
	assert.Error(t, err)
	// The in-memory trail stays complete regardless.
	assert.Equal(t, 1, l.Len())
}
